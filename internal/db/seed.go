package db

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"shopen/internal/models"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func defaultPens() []models.Pen {
	return []models.Pen{
		{Brand: "Pilot", Price: decimal.NewFromInt(15), Stock: 100, Color: strPtr("blue"), Length: intPtr(15)},
		{Brand: "Pilot", Price: decimal.NewFromInt(16), Stock: 100, Color: strPtr("red"), Length: intPtr(13)},
		{Brand: "Pilot", Price: decimal.NewFromInt(15), Stock: 100, Color: strPtr("black"), Length: intPtr(20)},
		{Brand: "Parker", Price: decimal.NewFromInt(125), Stock: 50, Color: strPtr("green"), Length: intPtr(17)},
		{Brand: "Parker", Price: decimal.NewFromInt(25), Stock: 60, Color: strPtr("red"), Length: intPtr(17)},
		{Brand: "Bic", Price: decimal.NewFromInt(3), Stock: 300, Color: strPtr("blue"), Length: intPtr(19)},
	}
}

// Seed inserts the default superuser and stock when the database is empty.
func Seed(ctx context.Context, database *gorm.DB) error {
	var userCount, penCount int64
	if err := database.WithContext(ctx).Model(&models.User{}).Count(&userCount).Error; err != nil {
		return err
	}
	if err := database.WithContext(ctx).Model(&models.Pen{}).Count(&penCount).Error; err != nil {
		return err
	}
	if userCount > 0 || penCount > 0 {
		return nil
	}
	return seed(ctx, database)
}

// Reset wipes every store and reseeds the defaults. It backs the
// super-admin factory-reset maintenance hook.
func Reset(ctx context.Context, database *gorm.DB) error {
	return database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{
			&models.Session{},
			&models.Transaction{},
			&models.User{},
			&models.Pen{},
		} {
			if err := tx.Where("1 = 1").Delete(model).Error; err != nil {
				return err
			}
		}
		return seed(ctx, tx)
	})
}

func seed(ctx context.Context, database *gorm.DB) error {
	hash, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := models.User{
		Name:        "admin",
		SecretHash:  string(hash),
		Role:        models.RoleAdmin,
		Credit:      decimal.Zero,
		IsSuperuser: true,
	}
	if err := database.WithContext(ctx).Create(&admin).Error; err != nil {
		return err
	}

	pens := defaultPens()
	return database.WithContext(ctx).Create(&pens).Error
}
