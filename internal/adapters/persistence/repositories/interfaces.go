package repositories

import (
	"context"
	"time"

	"collections-console/internal/adapters/persistence/models"
)

// NotificationLogRepository defines the notification audit log interface
type NotificationLogRepository interface {
	Create(ctx context.Context, entry *models.NotificationLog) error
	CountSince(ctx context.Context, customerID, kind string, since time.Time) (int64, error)
	List(ctx context.Context, customerID string, offset, limit int) ([]*models.NotificationLog, int64, error)
}
