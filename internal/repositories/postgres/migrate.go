package postgres

import (
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/studioflow/class-payroll-service/internal/models"
)

// SeedConfig optionally bootstraps the first admin account
type SeedConfig struct {
	AdminName     string
	AdminEmail    string
	AdminPassword string
}

// Migrate creates or updates the schema and seeds the rows the reports depend on
func Migrate(db *gorm.DB, seed SeedConfig) error {
	// independent tables first, then the ones holding foreign keys
	tables := []interface{}{
		&models.Teacher{},
		&models.Role{},
		&models.Rank{},
		&models.Modality{},
		&models.FixedValues{},
		&models.ClassSession{},
		&models.ClassAssignment{},
		&models.PasswordResetToken{},
	}

	for _, table := range tables {
		if err := db.AutoMigrate(table); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", table, err)
		}
	}

	if err := seedFixedValues(db); err != nil {
		return err
	}
	return seedAdmin(db, seed)
}

func seedFixedValues(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.FixedValues{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count fixed values: %w", err)
	}
	if count > 0 {
		return nil
	}

	values := models.DefaultFixedValues()
	if err := db.Create(&values).Error; err != nil {
		return fmt.Errorf("failed to seed fixed values: %w", err)
	}
	slog.Info("Seeded default fixed values",
		"revenue_per_student", values.RevenuePerStudent.StringFixed(2),
		"fixed_cost_per_class", values.FixedCostPerClass.StringFixed(2))
	return nil
}

func seedAdmin(db *gorm.DB, seed SeedConfig) error {
	if seed.AdminEmail == "" || seed.AdminPassword == "" {
		return nil
	}

	var existing models.Teacher
	err := db.Where("LOWER(email) = LOWER(?)", seed.AdminEmail).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up admin account: %w", err)
	}

	name := seed.AdminName
	if name == "" {
		name = "Administrador"
	}
	email := seed.AdminEmail
	admin := models.Teacher{Name: name, Email: &email, Role: models.RoleAdmin}
	if err := admin.SetPassword(seed.AdminPassword); err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to seed admin account: %w", err)
	}
	slog.Info("Seeded admin account", "email", email)
	return nil
}
