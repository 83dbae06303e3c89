package visit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// TypeCompleteTask is the dwell-timer job. It is enqueued when a visitor
// clicks a task and processed after the dwell duration elapses.
const TypeCompleteTask = "visit:complete_task"

type completeTaskPayload struct {
	VisitID string `json:"visit_id"`
	TaskID  string `json:"task_id"`
}

// NewCompleteTaskTask builds the dwell-timer job for one (visit, task).
func NewCompleteTaskTask(visitID, taskID string) (*asynq.Task, error) {
	payload, err := json.Marshal(completeTaskPayload{VisitID: visitID, TaskID: taskID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCompleteTask, payload), nil
}

func (s *Service) scheduleCompletion(visitID, taskID string) error {
	t, err := NewCompleteTaskTask(visitID, taskID)
	if err != nil {
		return err
	}
	_, err = s.enqueuer.Enqueue(t, asynq.ProcessIn(s.dwell), asynq.Queue("default"))
	return err
}

// HandleCompleteTask processes the dwell-timer job.
func (s *Service) HandleCompleteTask(ctx context.Context, t *asynq.Task) error {
	var payload completeTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to decode payload: %v: %w", err, asynq.SkipRetry)
	}
	return s.CompleteTask(ctx, payload.VisitID, payload.TaskID)
}

func registerWorker(mux *asynq.ServeMux, svc *Service) {
	mux.HandleFunc(TypeCompleteTask, svc.HandleCompleteTask)
}
