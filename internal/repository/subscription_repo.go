package repository

import (
	"messmate/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Upsert inserts the subscription or, when the endpoint is already known,
// rebinds it to s.UserID and refreshes keys and metadata.
func (r *SubscriptionRepository) Upsert(s *models.PushSubscription) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "keys", "expiration_time", "user_agent", "client_timestamp", "updated_at"}),
	}).Create(s).Error
}

func (r *SubscriptionRepository) DeleteByEndpoint(userID uint, endpoint string) (int64, error) {
	res := r.db.Where("user_id = ? AND endpoint = ?", userID, endpoint).Delete(&models.PushSubscription{})
	return res.RowsAffected, res.Error
}

// Purge removes an endpoint regardless of owner. Used when a push service
// reports it gone.
func (r *SubscriptionRepository) Purge(endpoint string) error {
	return r.db.Where("endpoint = ?", endpoint).Delete(&models.PushSubscription{}).Error
}

func (r *SubscriptionRepository) ListByUserIDs(userIDs []uint) ([]models.PushSubscription, error) {
	var list []models.PushSubscription
	if len(userIDs) == 0 {
		return list, nil
	}
	err := r.db.Where("user_id IN ?", userIDs).Find(&list).Error
	return list, err
}

func (r *SubscriptionRepository) CountByUserID(userID uint) (int64, error) {
	var n int64
	err := r.db.Model(&models.PushSubscription{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}
