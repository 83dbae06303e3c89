package analytics

import (
	"context"
	"time"

	"linklock/pkg/errutil"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	repo Repository
	node *snowflake.Node
}

type ServiceParams struct {
	fx.In
	Repository Repository
	Node       *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		repo: p.Repository,
		node: p.Node,
	}
}

// Append writes one event to the log. The event id and timestamp are
// assigned here; callers never supply them.
func (s *Service) Append(ctx context.Context, event Event) error {
	if event.LockerID == "" {
		return errutil.BadRequest("locker_id is required")
	}

	switch event.EventType {
	case EventVisit, EventTaskComplete, EventUnlock, EventDropoff:
	default:
		return errutil.BadRequest("unknown event type")
	}

	event.ID = s.node.Generate().String()
	event.CreatedAt = time.Now()

	if err := s.repo.Append(ctx, &event); err != nil {
		zap.L().Error("failed to append event",
			zap.Error(err),
			zap.String("locker_id", event.LockerID),
			zap.String("event_type", event.EventType),
		)
		return errutil.Internal("failed to append event", errutil.WithErr(err))
	}

	return nil
}

// Summarize aggregates a locker's funnel counts from the event log.
func (s *Service) Summarize(ctx context.Context, lockerID string) (*Summary, error) {
	summary := &Summary{LockerID: lockerID}

	counts := []struct {
		eventType string
		dest      *int64
	}{
		{EventVisit, &summary.Visits},
		{EventTaskComplete, &summary.TasksCompleted},
		{EventUnlock, &summary.Unlocks},
		{EventDropoff, &summary.Dropoffs},
	}

	for _, c := range counts {
		count, err := s.repo.CountByType(ctx, lockerID, c.eventType)
		if err != nil {
			zap.L().Error("failed to count events",
				zap.Error(err),
				zap.String("locker_id", lockerID),
				zap.String("event_type", c.eventType),
			)
			return nil, errutil.Internal("failed to aggregate events", errutil.WithErr(err))
		}
		*c.dest = count
	}

	if summary.Visits > 0 {
		summary.ConversionRate = float64(summary.Unlocks) / float64(summary.Visits)
	}

	return summary, nil
}
