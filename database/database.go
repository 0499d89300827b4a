// database.go - Handles database connection and setup

package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"go-user-backend/auth"
	"go-user-backend/config"
	"go-user-backend/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the configured database and runs migrations.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dialector = postgres.Open(cfg.PostgresDSN())
	case "sqlite":
		dialector = sqlite.Open(cfg.DBPath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}

	logLevel := logger.Warn
	if cfg.IsDevelopment() {
		logLevel = logger.Info
	}
	return open(dialector, logger.Default.LogMode(logLevel))
}

// OpenSQLite opens a SQLite database at dsn with migrations applied. Tests
// use it with in-memory DSNs.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	return open(sqlite.Open(dsn), logger.Default.LogMode(logger.Silent))
}

func open(dialector gorm.Dialector, l logger.Interface) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         l,
		TranslateError: true, // unique violations surface as gorm.ErrDuplicatedKey
	})
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the tables for every model.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Task{}, &models.RefreshToken{}); err != nil {
		return err
	}
	return backfillTaskSearchKeys(db)
}

// backfillTaskSearchKeys fills name_lower for rows written before the column existed.
func backfillTaskSearchKeys(db *gorm.DB) error {
	var tasks []models.Task
	return db.Model(&models.Task{}).
		Select("id", "name").
		Where("(name_lower IS NULL OR name_lower = '') AND name <> ''").
		FindInBatches(&tasks, 200, func(tx *gorm.DB, batch int) error {
			for _, t := range tasks {
				err := db.Model(&models.Task{}).Where("id = ?", t.ID).
					UpdateColumn("name_lower", strings.ToLower(t.Name)).Error
				if err != nil {
					return err
				}
			}
			return nil
		}).Error
}

// SeedAdmin creates the configured admin account when enabled and no admin
// exists yet. Credentials come from configuration, never from code.
func SeedAdmin(ctx context.Context, db *gorm.DB, cfg *config.Config, hasher *auth.Hasher) error {
	if !cfg.CreateAdmin {
		return nil
	}
	if cfg.AdminPassword == "" {
		return errors.New("admin seeding enabled without ADMIN_PASSWORD")
	}

	var count int64
	if err := db.WithContext(ctx).Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := hasher.Hash(ctx, cfg.AdminPassword)
	if err != nil {
		return err
	}

	admin := models.User{
		FirstName:     "Admin",
		LastName:      "User",
		Email:         cfg.AdminEmail,
		Password:      hash,
		Role:          models.RoleAdmin,
		IsActive:      true,
		EmailVerified: true,
	}
	if err := db.WithContext(ctx).Create(&admin).Error; err != nil {
		return err
	}
	log.Printf("created default admin %s", admin.Email)
	return nil
}
