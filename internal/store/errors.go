package store

import "errors"

// Sentinel errors shared by the store implementations and the services
// built on top of them. Handlers map these to HTTP statuses with
// errors.Is; services may wrap them with additional context.
var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrConflict           = errors.New("conflict")
	ErrBadRequest         = errors.New("bad request")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInsufficientCredit = errors.New("insufficient credit")
	ErrInvalidState       = errors.New("invalid state transition")
	ErrExpired            = errors.New("expired")
)
