package visit

import (
	"time"

	"linklock/services/geo"
)

// Task states within a visit session.
const (
	StatePending    = "pending"
	StateInProgress = "in_progress"
	StateCompleted  = "completed"
)

// TaskState is one gate task as seen by a single visitor, snapshotted from
// the catalog when the visit starts. Later catalog edits never change the
// gate of a visit already in flight.
type TaskState struct {
	TaskID      string     `json:"task_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	AdURL       string     `json:"ad_url,omitempty"`
	State       string     `json:"state"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
}

// Visit is one visitor's session against one locker.
type Visit struct {
	ID             string      `json:"id"`
	LockerID       string      `json:"locker_id"`
	DestinationURL string      `json:"destination_url"`
	Device         geo.Device  `json:"device"`
	Country        string      `json:"country"`
	Tier           geo.Tier    `json:"tier"`
	Tasks          []TaskState `json:"tasks"`
	StartedAt      time.Time   `json:"started_at"`
	Unlocked       bool        `json:"unlocked"`
	UnlockedAt     *time.Time  `json:"unlocked_at,omitempty"`
}

// Task finds a gate task by id.
func (v *Visit) Task(taskID string) *TaskState {
	for i := range v.Tasks {
		if v.Tasks[i].TaskID == taskID {
			return &v.Tasks[i]
		}
	}
	return nil
}

// AllCompleted reports whether every gate task is done. An empty gate is
// trivially complete; such lockers unlock for free.
func (v *Visit) AllCompleted() bool {
	for i := range v.Tasks {
		if v.Tasks[i].State != StateCompleted {
			return false
		}
	}
	return true
}

// CompletedCount returns how many gate tasks are done.
func (v *Visit) CompletedCount() int {
	n := 0
	for i := range v.Tasks {
		if v.Tasks[i].State == StateCompleted {
			n++
		}
	}
	return n
}

func stateRank(state string) int {
	switch state {
	case StateCompleted:
		return 2
	case StateInProgress:
		return 1
	default:
		return 0
	}
}

// merge reconciles an update against the stored session. Task states and
// the unlocked flag only ever advance, so two callers that read the same
// session and write back concurrently cannot roll back each other's
// progress.
func merge(current, update *Visit) *Visit {
	merged := *update
	merged.Tasks = make([]TaskState, len(update.Tasks))
	copy(merged.Tasks, update.Tasks)

	for i := range merged.Tasks {
		prev := current.Task(merged.Tasks[i].TaskID)
		if prev == nil {
			continue
		}
		if stateRank(prev.State) > stateRank(merged.Tasks[i].State) {
			merged.Tasks[i].State = prev.State
			merged.Tasks[i].StartedAt = prev.StartedAt
		} else if merged.Tasks[i].StartedAt == nil {
			merged.Tasks[i].StartedAt = prev.StartedAt
		}
	}

	if current.Unlocked && !merged.Unlocked {
		merged.Unlocked = true
		merged.UnlockedAt = current.UnlockedAt
	}

	return &merged
}
