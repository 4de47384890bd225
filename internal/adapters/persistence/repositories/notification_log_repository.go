package repositories

import (
	"context"
	"time"

	"collections-console/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// notificationLogRepository implements NotificationLogRepository on MySQL
type notificationLogRepository struct {
	db *gorm.DB
}

// NewNotificationLogRepository creates a new GORM notification log repository
func NewNotificationLogRepository(db *gorm.DB) NotificationLogRepository {
	return &notificationLogRepository{db: db}
}

// Create stores one send attempt
func (r *notificationLogRepository) Create(ctx context.Context, entry *models.NotificationLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// CountSince counts successful sends of kind to a customer since the given time
func (r *notificationLogRepository) CountSince(ctx context.Context, customerID, kind string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.NotificationLog{}).
		Where("customer_id = ? AND kind = ? AND status = ? AND created_at >= ?", customerID, kind, models.StatusSent, since).
		Count(&count).Error
	return count, err
}

// List returns log entries newest first, optionally filtered by customer
func (r *notificationLogRepository) List(ctx context.Context, customerID string, offset, limit int) ([]*models.NotificationLog, int64, error) {
	var entries []*models.NotificationLog
	var total int64

	query := r.db.WithContext(ctx).Model(&models.NotificationLog{})
	if customerID != "" {
		query = query.Where("customer_id = ?", customerID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
