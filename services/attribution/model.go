package attribution

import (
	"fmt"
	"time"
)

// Account carries a creator's earned balance. The balance only ever grows
// through attribution; withdrawals are settled by a separate system.
type Account struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	Balance   float64   `gorm:"column:balance" json:"balance"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Account) TableName() string { return "accounts" }

// RevenueEvent is one immutable row of the revenue ledger, written exactly
// once per (visit, task) completion.
type RevenueEvent struct {
	ID string `gorm:"column:id;primaryKey" json:"id"`
	// ReferenceID is "{visitID}:{taskID}"; its uniqueness is what enforces
	// at-most-once credit.
	ReferenceID string    `gorm:"column:reference_id;uniqueIndex" json:"reference_id"`
	UserID      string    `gorm:"column:user_id;index" json:"user_id"`
	LockerID    string    `gorm:"column:locker_id;index" json:"locker_id"`
	TaskID      string    `gorm:"column:task_id" json:"task_id"`
	Amount      float64   `gorm:"column:amount" json:"amount"`
	Country     string    `gorm:"column:country" json:"country"`
	Tier        string    `gorm:"column:tier" json:"tier"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
}

func (RevenueEvent) TableName() string { return "revenue_events" }

// ReferenceID builds the idempotency key for one task completion within
// one visit.
func ReferenceID(visitID, taskID string) string {
	return fmt.Sprintf("%s:%s", visitID, taskID)
}
