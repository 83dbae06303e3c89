package analytics

import (
	"time"

	"gorm.io/datatypes"
)

// Event types accepted by the append-only log.
const (
	EventVisit        = "visit"
	EventTaskComplete = "task_complete"
	EventUnlock       = "unlock"
	EventDropoff      = "dropoff"
)

// Event is one row of the append-only visit activity log. Rows are never
// mutated or deleted; aggregation happens at read time.
type Event struct {
	ID        string         `gorm:"column:id;primaryKey" json:"id"`
	LockerID  string         `gorm:"column:locker_id;index" json:"locker_id"`
	EventType string         `gorm:"column:event_type;index" json:"event_type"`
	UserID    string         `gorm:"column:user_id" json:"user_id,omitempty"`
	IP        string         `gorm:"column:ip" json:"ip,omitempty"`
	UserAgent string         `gorm:"column:user_agent" json:"user_agent,omitempty"`
	Referrer  string         `gorm:"column:referrer" json:"referrer,omitempty"`
	TaskID    string         `gorm:"column:task_id" json:"task_id,omitempty"`
	// Completed carries the dropoff progress count (tasks done before the
	// visitor left).
	Completed int            `gorm:"column:completed" json:"completed,omitempty"`
	// Duration is milliseconds from gate-ready to unlock.
	Duration  int64          `gorm:"column:duration" json:"duration,omitempty"`
	Extra     datatypes.JSON `gorm:"column:extra" json:"extra,omitempty"`
	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (Event) TableName() string { return "locker_events" }

// Summary aggregates a single locker's funnel.
type Summary struct {
	LockerID       string  `json:"locker_id"`
	Visits         int64   `json:"visits"`
	TasksCompleted int64   `json:"tasks_completed"`
	Unlocks        int64   `json:"unlocks"`
	Dropoffs       int64   `json:"dropoffs"`
	ConversionRate float64 `json:"conversion_rate"`
}
