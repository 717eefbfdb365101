// Package version exposes build identity constants.
package version

const (
	Name    = "shopen"
	Version = "0.1.0"
)
