package repository

import (
	"time"

	"messmate/internal/models"

	"gorm.io/gorm"
)

type OTPRepository struct {
	db *gorm.DB
}

func NewOTPRepository(db *gorm.DB) *OTPRepository {
	return &OTPRepository{db: db}
}

func (r *OTPRepository) Create(o *models.UserOTP) error {
	return r.db.Create(o).Error
}

// Latest returns the newest unconsumed code for the user and purpose.
func (r *OTPRepository) Latest(userID uint, purpose string) (*models.UserOTP, error) {
	var o models.UserOTP
	err := r.db.Where("user_id = ? AND purpose = ? AND consumed_at IS NULL", userID, purpose).
		Order("id DESC").First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OTPRepository) Update(o *models.UserOTP) error {
	return r.db.Save(o).Error
}

// ConsumeAll marks every pending code of the user and purpose as consumed.
func (r *OTPRepository) ConsumeAll(userID uint, purpose string, at time.Time) error {
	return r.db.Model(&models.UserOTP{}).
		Where("user_id = ? AND purpose = ? AND consumed_at IS NULL", userID, purpose).
		Update("consumed_at", at).Error
}
