package attribution

import (
	"context"
	"errors"
	"time"

	"linklock/pkg/errutil"
	"linklock/services/catalog"
	"linklock/services/geo"
	"linklock/services/locker"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// completionsPerMille: CPM prices 1000 completions, so one completion earns
// CPM divided by this.
const completionsPerMille = 1000

// Input identifies one task completion to credit.
type Input struct {
	VisitID  string
	LockerID string
	TaskID   string
	Country  string
	Tier     geo.Tier
}

type Service struct {
	db   *gorm.DB
	node *snowflake.Node
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,
	}
}

// Attribute credits the locker owner for one completed task, exactly once
// per (visit, task). The balance increment and the ledger row commit in one
// transaction: there is never an event without a landed credit, nor the
// reverse.
func (s *Service) Attribute(ctx context.Context, in Input) (*RevenueEvent, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
		zap.String("visit_id", in.VisitID),
		zap.String("locker_id", in.LockerID),
		zap.String("task_id", in.TaskID),
	)

	if in.VisitID == "" || in.LockerID == "" || in.TaskID == "" {
		return nil, errutil.BadRequest("visit, locker and task ids are required")
	}

	var event *RevenueEvent
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reference := ReferenceID(in.VisitID, in.TaskID)

		var existing RevenueEvent
		err := tx.Where("reference_id = ?", reference).First(&existing).Error
		if err == nil {
			return errutil.Conflict("completion already attributed")
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var lk locker.Locker
		if err := tx.Where("id = ?", in.LockerID).First(&lk).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errutil.NotFound("locker not found")
			}
			return err
		}

		var task catalog.Task
		if err := tx.Where("id = ?", in.TaskID).First(&task).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errutil.NotFound("task not found")
			}
			return err
		}

		revenue := task.TierCPM(in.Tier) / completionsPerMille

		if err := s.creditBalance(tx, lk.OwnerID, revenue); err != nil {
			return err
		}

		event = &RevenueEvent{
			ID:          s.node.Generate().String(),
			ReferenceID: reference,
			UserID:      lk.OwnerID,
			LockerID:    in.LockerID,
			TaskID:      in.TaskID,
			Amount:      revenue,
			Country:     in.Country,
			Tier:        string(in.Tier),
			CreatedAt:   time.Now(),
		}
		if err := tx.Create(event).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// Lost the race to a concurrent duplicate; roll the credit back.
				return errutil.Conflict("completion already attributed")
			}
			return err
		}

		return nil
	})
	if err != nil {
		var be errutil.BaseError
		if errors.As(err, &be) {
			return nil, err
		}
		zapLog.Error("attribution failed", zap.Error(err))
		return nil, errutil.Internal("attribution failed", errutil.WithErr(err))
	}

	zapLog.Info("revenue attributed",
		zap.String("user_id", event.UserID),
		zap.Float64("amount", event.Amount),
		zap.String("tier", event.Tier),
	)

	return event, nil
}

// creditBalance applies an atomic, storage-level increment. A plain
// read-add-write would lose updates under concurrent completions crediting
// the same account.
func (s *Service) creditBalance(tx *gorm.DB, accountID string, amount float64) error {
	res := tx.Model(&Account{}).
		Where("id = ?", accountID).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance + ?", amount),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// First credit for this account.
	err := tx.Create(&Account{
		ID:        accountID,
		Balance:   amount,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}

	// Concurrent first credit created the row between the update and the
	// insert; retry the increment.
	res = tx.Model(&Account{}).
		Where("id = ?", accountID).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance + ?", amount),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errutil.Internal("failed to credit account balance")
	}
	return nil
}

// GetBalance reads a creator's current balance. Unknown accounts read as
// zero; an account row only exists after the first credit.
func (s *Service) GetBalance(ctx context.Context, accountID string) (float64, error) {
	var account Account
	err := s.db.WithContext(ctx).Where("id = ?", accountID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, errutil.Internal("failed to query balance", errutil.WithErr(err))
	}
	return account.Balance, nil
}

// ListEvents returns the revenue ledger rows for one creator.
func (s *Service) ListEvents(ctx context.Context, userID string) ([]RevenueEvent, error) {
	var events []RevenueEvent
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, errutil.Internal("failed to list revenue events", errutil.WithErr(err))
	}
	return events, nil
}
