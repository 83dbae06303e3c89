package catalog

import (
	"context"
	"errors"
	"time"

	"linklock/pkg/config"
	"linklock/pkg/errutil"
	"linklock/services/geo"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	repo  Repository
	node  *snowflake.Node
	cache *activeCache
}

type ServiceParams struct {
	fx.In
	Repository Repository
	Node       *snowflake.Node
	Cfg        *config.Config
}

func NewService(p ServiceParams) *Service {
	return &Service{
		repo:  p.Repository,
		node:  p.Node,
		cache: newActiveCache(p.Cfg.Gate.CatalogCacheTTL),
	}
}

func (s *Service) CreateTask(ctx context.Context, task *Task) (*Task, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	)

	if task.Title == "" {
		return nil, errutil.BadRequest("title is required")
	}
	if task.Status == "" {
		task.Status = StatusActive
	}
	if task.Status != StatusActive && task.Status != StatusInactive {
		return nil, errutil.BadRequest("status must be Active or Inactive")
	}

	task.ID = s.node.Generate().String()
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt

	if err := s.repo.Create(ctx, task); err != nil {
		zapLog.Error("failed to create task", zap.Error(err))
		return nil, errutil.Internal("failed to create task", errutil.WithErr(err))
	}

	s.cache.Invalidate()
	return task, nil
}

func (s *Service) UpdateTask(ctx context.Context, task *Task) (*Task, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	)

	if task.ID == "" {
		return nil, errutil.BadRequest("task id is required")
	}
	if task.Status != "" && task.Status != StatusActive && task.Status != StatusInactive {
		return nil, errutil.BadRequest("status must be Active or Inactive")
	}

	task.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, task); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errutil.NotFound("task not found")
		}
		zapLog.Error("failed to update task", zap.Error(err), zap.String("task_id", task.ID))
		return nil, errutil.Internal("failed to update task", errutil.WithErr(err))
	}

	s.cache.Invalidate()
	return s.GetTask(ctx, task.ID)
}

func (s *Service) DeleteTask(ctx context.Context, taskID string) error {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	if err := s.repo.Delete(ctx, taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errutil.NotFound("task not found")
		}
		zap.L().Error("failed to delete task", zap.Error(err), zap.String("task_id", taskID))
		return errutil.Internal("failed to delete task", errutil.WithErr(err))
	}

	s.cache.Invalidate()
	return nil
}

func (s *Service) GetTask(ctx context.Context, taskID string) (*Task, error) {
	task, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errutil.NotFound("task not found")
		}
		return nil, errutil.Internal("failed to query task", errutil.WithErr(err))
	}
	return task, nil
}

func (s *Service) ListTasks(ctx context.Context) ([]Task, error) {
	tasks, err := s.repo.List(ctx)
	if err != nil {
		zap.L().Error("failed to list tasks", zap.Error(err))
		return nil, errutil.Internal("failed to list tasks", errutil.WithErr(err))
	}
	return tasks, nil
}

// ActiveTasks returns the active catalog through the read-through cache.
func (s *Service) ActiveTasks(ctx context.Context) ([]Task, error) {
	return s.cache.Fill(func() ([]Task, error) {
		return s.repo.ListActive(ctx)
	})
}

// GateList is the ordered subset of active tasks the visitor must complete
// for the given device and tier.
func (s *Service) GateList(ctx context.Context, device geo.Device, tier geo.Tier) ([]Task, error) {
	tasks, err := s.ActiveTasks(ctx)
	if err != nil {
		zap.L().Error("failed to load active catalog", zap.Error(err))
		return nil, errutil.Internal("failed to load task catalog", errutil.WithErr(err))
	}
	return Eligible(tasks, device, tier), nil
}
