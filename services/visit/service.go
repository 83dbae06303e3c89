package visit

import (
	"context"
	"errors"
	"time"

	"linklock/pkg/config"
	"linklock/pkg/errutil"
	"linklock/pkg/task"
	"linklock/services/analytics"
	"linklock/services/attribution"
	"linklock/services/catalog"
	"linklock/services/geo"
	"linklock/services/locker"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	store       Store
	resolver    *geo.Resolver
	catalog     *catalog.Service
	lockers     *locker.Service
	attribution *attribution.Service
	analytics   *analytics.Service
	enqueuer    task.Enqueuer
	dwell       time.Duration
}

type ServiceParams struct {
	fx.In
	Store       Store
	Resolver    *geo.Resolver
	Catalog     *catalog.Service
	Lockers     *locker.Service
	Attribution *attribution.Service
	Analytics   *analytics.Service
	Enqueuer    task.Enqueuer
	Cfg         *config.Config
}

func NewService(p ServiceParams) *Service {
	return &Service{
		store:       p.Store,
		resolver:    p.Resolver,
		catalog:     p.Catalog,
		lockers:     p.Lockers,
		attribution: p.Attribution,
		analytics:   p.Analytics,
		enqueuer:    p.Enqueuer,
		dwell:       p.Cfg.Gate.DwellDuration,
	}
}

// StartInput describes the incoming visitor.
type StartInput struct {
	LockerID  string
	UserAgent string
	IP        string
	Referrer  string
}

// Start opens a visit session: it classifies the visitor, snapshots the
// eligible gate tasks, and logs the visit. An empty gate is not an error;
// the visitor can unlock immediately.
func (s *Service) Start(ctx context.Context, in StartInput) (*Visit, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
		zap.String("locker_id", in.LockerID),
	)

	lk, err := s.lockers.Get(ctx, in.LockerID)
	if err != nil {
		return nil, err
	}

	resolution := s.resolver.Resolve(ctx, in.UserAgent, in.IP)

	gate, err := s.catalog.GateList(ctx, resolution.Device, resolution.Tier)
	if err != nil {
		return nil, err
	}

	states := make([]TaskState, 0, len(gate))
	for _, t := range gate {
		states = append(states, TaskState{
			TaskID:      t.ID,
			Title:       t.Title,
			Description: t.Description,
			AdURL:       t.AdURL,
			State:       StatePending,
		})
	}

	visit := &Visit{
		ID:             uuid.NewString(),
		LockerID:       lk.ID,
		DestinationURL: lk.DestinationURL,
		Device:         resolution.Device,
		Country:        resolution.Country,
		Tier:           resolution.Tier,
		Tasks:          states,
		StartedAt:      time.Now(),
	}

	if err := s.store.Save(ctx, visit); err != nil {
		zapLog.Error("failed to save visit session", zap.Error(err))
		return nil, errutil.Internal("failed to start visit", errutil.WithErr(err))
	}

	if err := s.analytics.Append(ctx, analytics.Event{
		LockerID:  lk.ID,
		EventType: analytics.EventVisit,
		IP:        in.IP,
		UserAgent: in.UserAgent,
		Referrer:  in.Referrer,
	}); err != nil {
		// The visit proceeds even when the log write fails.
		zapLog.Warn("failed to log visit event", zap.Error(err))
	}

	zapLog.Info("visit started",
		zap.String("visit_id", visit.ID),
		zap.String("device", string(visit.Device)),
		zap.String("tier", string(visit.Tier)),
		zap.Int("gate_size", len(visit.Tasks)),
	)

	return visit, nil
}

// Get returns a live visit session.
func (s *Service) Get(ctx context.Context, visitID string) (*Visit, error) {
	visit, err := s.store.Get(ctx, visitID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, errutil.NotFound("visit not found or expired")
		}
		return nil, errutil.Internal("failed to load visit", errutil.WithErr(err))
	}
	return visit, nil
}

// ClickTask marks a gate task as started and schedules its dwell
// completion. The timer is server-side; it fires whether or not the
// visitor keeps the tab open. Clicking an in-progress or completed task is
// a no-op that returns the current state.
func (s *Service) ClickTask(ctx context.Context, visitID, taskID string) (*TaskState, error) {
	visit, err := s.Get(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if visit.Unlocked {
		return nil, errutil.Conflict("visit already unlocked")
	}

	state := visit.Task(taskID)
	if state == nil {
		return nil, errutil.NotFound("task is not part of this visit")
	}
	if state.AdURL == "" {
		return nil, errutil.UnprocessableEntity("task has no ad url")
	}
	if state.State != StatePending {
		return state, nil
	}

	now := time.Now()
	state.State = StateInProgress
	state.StartedAt = &now

	if err := s.store.Save(ctx, visit); err != nil {
		return nil, errutil.Internal("failed to update visit", errutil.WithErr(err))
	}

	if err := s.scheduleCompletion(visitID, taskID); err != nil {
		zap.L().Error("failed to schedule dwell completion",
			zap.Error(err),
			zap.String("visit_id", visitID),
			zap.String("task_id", taskID),
		)
		return nil, errutil.Internal("failed to schedule task completion", errutil.WithErr(err))
	}

	return state, nil
}

// CompleteTask fires when the dwell timer elapses. It is idempotent: the
// attribution layer enforces at-most-once credit even if the job is
// delivered twice.
func (s *Service) CompleteTask(ctx context.Context, visitID, taskID string) error {
	visit, err := s.store.Get(ctx, visitID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			// Session expired before the timer fired; nothing to credit.
			zap.L().Warn("dwell timer fired for expired visit", zap.String("visit_id", visitID))
			return nil
		}
		return err
	}

	state := visit.Task(taskID)
	if state == nil {
		zap.L().Warn("dwell timer fired for unknown task",
			zap.String("visit_id", visitID),
			zap.String("task_id", taskID),
		)
		return nil
	}
	if state.State == StateCompleted {
		return nil
	}

	// Credit before the state moves: a task only reads Completed once its
	// attribution has landed, so a transient attribution failure leaves the
	// task in progress and the redelivered job attempts the credit again.
	event, err := s.attribution.Attribute(ctx, attribution.Input{
		VisitID:  visitID,
		LockerID: visit.LockerID,
		TaskID:   taskID,
		Country:  visit.Country,
		Tier:     visit.Tier,
	})
	if err != nil {
		var be errutil.BaseError
		if !errors.As(err, &be) || be.Code != errutil.StatusConflict {
			return err
		}
		// Already credited by an earlier delivery; finish the state move.
	}

	state.State = StateCompleted
	if err := s.store.Save(ctx, visit); err != nil {
		// Safe to retry: the reference key turns the re-credit into a
		// conflict and the state move converges.
		return err
	}

	if err := s.analytics.Append(ctx, analytics.Event{
		LockerID:  visit.LockerID,
		EventType: analytics.EventTaskComplete,
		TaskID:    taskID,
	}); err != nil {
		zap.L().Warn("failed to log task completion", zap.Error(err), zap.String("visit_id", visitID))
	}

	if event != nil {
		zap.L().Info("task completed",
			zap.String("visit_id", visitID),
			zap.String("task_id", taskID),
			zap.Float64("amount", event.Amount),
		)
	}

	return nil
}

// Unlock releases the destination once every gate task is completed.
// Unlocking twice returns the same destination.
func (s *Service) Unlock(ctx context.Context, visitID string) (*Visit, error) {
	visit, err := s.Get(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if visit.Unlocked {
		return visit, nil
	}
	if !visit.AllCompleted() {
		return nil, errutil.UnprocessableEntity("gate tasks are still pending")
	}

	now := time.Now()
	visit.Unlocked = true
	visit.UnlockedAt = &now

	if err := s.store.Save(ctx, visit); err != nil {
		return nil, errutil.Internal("failed to update visit", errutil.WithErr(err))
	}

	if err := s.analytics.Append(ctx, analytics.Event{
		LockerID:  visit.LockerID,
		EventType: analytics.EventUnlock,
		Duration:  now.Sub(visit.StartedAt).Milliseconds(),
	}); err != nil {
		zap.L().Warn("failed to log unlock event", zap.Error(err), zap.String("visit_id", visitID))
	}

	zap.L().Info("visit unlocked",
		zap.String("visit_id", visitID),
		zap.String("locker_id", visit.LockerID),
	)

	return visit, nil
}

// Dropoff records that the visitor abandoned the gate, with how far they got.
func (s *Service) Dropoff(ctx context.Context, visitID string) error {
	visit, err := s.Get(ctx, visitID)
	if err != nil {
		return err
	}
	if visit.Unlocked {
		return errutil.Conflict("visit already unlocked")
	}

	if err := s.analytics.Append(ctx, analytics.Event{
		LockerID:  visit.LockerID,
		EventType: analytics.EventDropoff,
		Completed: visit.CompletedCount(),
	}); err != nil {
		return err
	}

	return nil
}
