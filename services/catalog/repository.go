package catalog

import (
	"context"

	"gorm.io/gorm"
)

// Repository describes database operations available for catalog tasks.
type Repository interface {
	Create(ctx context.Context, task *Task) error
	GetByID(ctx context.Context, taskID string) (*Task, error)
	List(ctx context.Context) ([]Task, error)
	ListActive(ctx context.Context) ([]Task, error)
	Update(ctx context.Context, task *Task) error
	Delete(ctx context.Context, taskID string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository returns a gorm backed Repository implementation.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, task *Task) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *gormRepository) GetByID(ctx context.Context, taskID string) (*Task, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var task Task
	err := r.db.WithContext(ctx).
		Where("id = ?", taskID).
		First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *gormRepository) List(ctx context.Context) ([]Task, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var tasks []Task
	if err := r.db.WithContext(ctx).
		Order("created_at ASC").Order("id ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *gormRepository) ListActive(ctx context.Context) ([]Task, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var tasks []Task
	if err := r.db.WithContext(ctx).
		Where("status = ?", StatusActive).
		Order("created_at ASC").Order("id ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *gormRepository) Update(ctx context.Context, task *Task) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}

	res := r.db.WithContext(ctx).
		Model(&Task{}).
		Where("id = ?", task.ID).
		Updates(map[string]any{
			"title":       task.Title,
			"description": task.Description,
			"ad_url":      task.AdURL,
			"devices":     task.Devices,
			"cpm_tier1":   task.CPMTier1,
			"cpm_tier2":   task.CPMTier2,
			"cpm_tier3":   task.CPMTier3,
			"status":      task.Status,
			"updated_at":  task.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *gormRepository) Delete(ctx context.Context, taskID string) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}

	res := r.db.WithContext(ctx).
		Where("id = ?", taskID).
		Delete(&Task{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
