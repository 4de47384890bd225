package repositories

import (
	"context"
	"sync"
	"time"

	"collections-console/internal/adapters/persistence/models"
)

// memoryNotificationLogRepository keeps the audit log in process memory.
// Used when no audit database is configured and in tests.
type memoryNotificationLogRepository struct {
	mu      sync.RWMutex
	nextID  uint
	entries []*models.NotificationLog
}

// NewMemoryNotificationLogRepository creates an in-memory notification log
func NewMemoryNotificationLogRepository() NotificationLogRepository {
	return &memoryNotificationLogRepository{}
}

func (r *memoryNotificationLogRepository) Create(_ context.Context, entry *models.NotificationLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	entry.ID = r.nextID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	copied := *entry
	r.entries = append(r.entries, &copied)
	return nil
}

func (r *memoryNotificationLogRepository) CountSince(_ context.Context, customerID, kind string, since time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, e := range r.entries {
		if e.CustomerID == customerID && e.Kind == kind && e.Status == models.StatusSent && !e.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *memoryNotificationLogRepository) List(_ context.Context, customerID string, offset, limit int) ([]*models.NotificationLog, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.NotificationLog
	for i := len(r.entries) - 1; i >= 0; i-- {
		if customerID == "" || r.entries[i].CustomerID == customerID {
			copied := *r.entries[i]
			matched = append(matched, &copied)
		}
	}

	total := int64(len(matched))
	if offset >= len(matched) {
		return []*models.NotificationLog{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}
