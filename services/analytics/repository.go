package analytics

import (
	"context"

	"gorm.io/gorm"
)

// Repository is the append-only event sink plus the read side used for
// aggregation.
type Repository interface {
	Append(ctx context.Context, event *Event) error
	CountByType(ctx context.Context, lockerID, eventType string) (int64, error)
	ListByLocker(ctx context.Context, lockerID string) ([]Event, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository returns a gorm backed Repository implementation.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Append(ctx context.Context, event *Event) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *gormRepository) CountByType(ctx context.Context, lockerID, eventType string) (int64, error) {
	if r == nil || r.db == nil {
		return 0, gorm.ErrInvalidDB
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&Event{}).
		Where("locker_id = ? AND event_type = ?", lockerID, eventType).
		Count(&count).Error
	return count, err
}

func (r *gormRepository) ListByLocker(ctx context.Context, lockerID string) ([]Event, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var events []Event
	if err := r.db.WithContext(ctx).
		Where("locker_id = ?", lockerID).
		Order("created_at ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
