package locker

import (
	"context"
	"errors"
	"time"

	"linklock/pkg/errutil"
	"linklock/pkg/shortid"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// shortIDAttempts bounds regeneration when a generated slug collides.
const shortIDAttempts = 5

type Service struct {
	repo Repository
}

type ServiceParams struct {
	fx.In
	Repository Repository
}

func NewService(p ServiceParams) *Service {
	return &Service{repo: p.Repository}
}

// Create mints a locker with a generated short ID, regenerating on the
// rare slug collision.
func (s *Service) Create(ctx context.Context, ownerID, title, destinationURL string) (*Locker, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	)

	if ownerID == "" {
		return nil, errutil.Unauthorized("owner is required")
	}
	if destinationURL == "" {
		return nil, errutil.BadRequest("destination_url is required")
	}

	for attempt := 0; attempt < shortIDAttempts; attempt++ {
		id, err := shortid.New(shortid.DefaultLength)
		if err != nil {
			return nil, errutil.Internal("failed to generate locker id", errutil.WithErr(err))
		}

		locker := &Locker{
			ID:             id,
			OwnerID:        ownerID,
			Title:          title,
			DestinationURL: destinationURL,
			CreatedAt:      time.Now(),
			UpdatedAt:      time.Now(),
		}

		err = s.repo.Create(ctx, locker)
		if err == nil {
			return locker, nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			zapLog.Warn("locker short id collision, regenerating", zap.String("id", id))
			continue
		}

		zapLog.Error("failed to create locker", zap.Error(err))
		return nil, errutil.Internal("failed to create locker", errutil.WithErr(err))
	}

	return nil, errutil.Internal("exhausted locker id generation attempts")
}

// Get resolves a locker by its public short ID.
func (s *Service) Get(ctx context.Context, lockerID string) (*Locker, error) {
	locker, err := s.repo.GetByID(ctx, lockerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errutil.NotFound("locker not found")
		}
		return nil, errutil.Internal("failed to query locker", errutil.WithErr(err))
	}
	return locker, nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]Locker, error) {
	if ownerID == "" {
		return nil, errutil.Unauthorized("owner is required")
	}

	lockers, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		zap.L().Error("failed to list lockers", zap.Error(err), zap.String("owner_id", ownerID))
		return nil, errutil.Internal("failed to list lockers", errutil.WithErr(err))
	}
	return lockers, nil
}

// Update edits a locker's title or destination. Only the owner may edit.
func (s *Service) Update(ctx context.Context, ownerID, lockerID, title, destinationURL string) (*Locker, error) {
	if ownerID == "" {
		return nil, errutil.Unauthorized("owner is required")
	}

	current, err := s.Get(ctx, lockerID)
	if err != nil {
		return nil, err
	}
	if current.OwnerID != ownerID {
		return nil, errutil.Forbidden("locker belongs to another owner")
	}

	if title == "" {
		title = current.Title
	}
	if destinationURL == "" {
		destinationURL = current.DestinationURL
	}

	updated := &Locker{
		ID:             lockerID,
		OwnerID:        ownerID,
		Title:          title,
		DestinationURL: destinationURL,
		UpdatedAt:      time.Now(),
	}

	if err := s.repo.Update(ctx, updated); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errutil.NotFound("locker not found")
		}
		zap.L().Error("failed to update locker", zap.Error(err), zap.String("locker_id", lockerID))
		return nil, errutil.Internal("failed to update locker", errutil.WithErr(err))
	}

	return s.Get(ctx, lockerID)
}
