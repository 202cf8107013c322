package database

import (
	"errors"
	"log"
	"strings"
	"time"

	"messmate/config"
	"messmate/internal/domain"
	"messmate/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// AutoMigrate runs Gorm auto-migration for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.UserOTP{},
		&models.PushSubscription{},
		&models.Notification{},
	)
}

// SeedAdmin creates the first ADMIN account when none exists. Without a
// configured password it does nothing.
func SeedAdmin(db *gorm.DB, cfg config.AdminConfig) {
	if cfg.Password == "" {
		log.Printf("[seed] ADMIN_PASSWORD not set; skipping admin seed")
		return
	}
	var existing models.User
	err := db.Where("role = ?", domain.RoleAdmin).First(&existing).Error
	if err == nil {
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("[seed] lookup admin: %v", err)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("[seed] hash admin password: %v", err)
		return
	}
	now := time.Now()
	admin := models.User{
		Email:           strings.ToLower(strings.TrimSpace(cfg.Email)),
		Name:            cfg.Name,
		PasswordHash:    string(hash),
		Role:            domain.RoleAdmin,
		EmailVerifiedAt: &now,
	}
	if err := db.Create(&admin).Error; err != nil {
		log.Printf("[seed] create admin: %v", err)
		return
	}
	log.Printf("[seed] created admin %s", admin.Email)
}
