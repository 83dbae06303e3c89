package locker

import (
	"context"

	"gorm.io/gorm"
)

// Repository describes database operations available for lockers.
type Repository interface {
	Create(ctx context.Context, locker *Locker) error
	GetByID(ctx context.Context, lockerID string) (*Locker, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Locker, error)
	Update(ctx context.Context, locker *Locker) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository returns a gorm backed Repository implementation.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, locker *Locker) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	return r.db.WithContext(ctx).Create(locker).Error
}

func (r *gormRepository) GetByID(ctx context.Context, lockerID string) (*Locker, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var locker Locker
	err := r.db.WithContext(ctx).
		Where("id = ?", lockerID).
		First(&locker).Error
	if err != nil {
		return nil, err
	}
	return &locker, nil
}

func (r *gormRepository) ListByOwner(ctx context.Context, ownerID string) ([]Locker, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var lockers []Locker
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&lockers).Error; err != nil {
		return nil, err
	}
	return lockers, nil
}

func (r *gormRepository) Update(ctx context.Context, locker *Locker) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}

	res := r.db.WithContext(ctx).
		Model(&Locker{}).
		Where("id = ? AND owner_id = ?", locker.ID, locker.OwnerID).
		Updates(map[string]any{
			"title":           locker.Title,
			"destination_url": locker.DestinationURL,
			"updated_at":      locker.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
