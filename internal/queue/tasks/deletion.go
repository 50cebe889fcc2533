package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desp-aas/project-management/internal/services"
	appErr "github.com/desp-aas/project-management/pkg/errors"
	"github.com/desp-aas/project-management/pkg/logger"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// DeletePayload is the task payload for project:delete.
type DeletePayload struct {
	ProjectID   string `json:"project_id"`
	ServerID    string `json:"server_id,omitempty"`
	AwaitServer bool   `json:"await_server"`
	// ScheduledAt is when the request was accepted; the server wait counts from it.
	ScheduledAt time.Time `json:"scheduled_at"`
}

type deletionQueue struct {
	enq     Enqueuer
	timeout time.Duration
}

// NewDeletionQueue schedules deletions on the worker. timeout bounds a single run and
// must cover the server wait window, which counts from the job's ScheduledAt.
func NewDeletionQueue(enq Enqueuer, timeout time.Duration) services.DeletionScheduler {
	return &deletionQueue{enq: enq, timeout: timeout}
}

func (q *deletionQueue) Schedule(ctx context.Context, job services.DeletionJob) error {
	p := DeletePayload{ProjectID: job.ProjectID.String(), AwaitServer: job.AwaitServer, ScheduledAt: job.ScheduledAt}
	if job.ServerID != uuid.Nil {
		p.ServerID = job.ServerID.String()
	}
	pb, err := json.Marshal(p)
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "encode deletion task failed")
	}

	task := asynq.NewTask(TypeProjectDelete, pb)
	info, err := q.enq.EnqueueContext(ctx, task,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(0),
		asynq.Timeout(q.timeout),
	)
	if err != nil {
		logger.L().Error("enqueue deletion task failed", zap.String("project_id", p.ProjectID), zap.Error(err))
		return appErr.Wrap(err, appErr.CodeUnavailable, "enqueue deletion task failed")
	}
	logger.L().Info("deletion task enqueued", zap.String("project_id", p.ProjectID), zap.String("task_id", info.ID))
	return nil
}

// DeletionTaskHandler runs queued deletions on the worker.
type DeletionTaskHandler struct {
	runner services.DeletionRunner
}

func NewDeletionTaskHandler(runner services.DeletionRunner) *DeletionTaskHandler {
	return &DeletionTaskHandler{runner: runner}
}

func (h *DeletionTaskHandler) HandleProjectDelete(ctx context.Context, t *asynq.Task) error {
	var p DeletePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		logger.L().Error("invalid deletion task payload", zap.Error(err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	job, err := p.job()
	if err != nil {
		logger.L().Error("invalid ids in deletion task", zap.Error(err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	logger.L().Info("handling deletion task", zap.String("project_id", p.ProjectID), zap.Bool("await_server", p.AwaitServer))
	return h.runner.Run(ctx, job)
}

func (p DeletePayload) job() (services.DeletionJob, error) {
	projectID, err := uuid.Parse(p.ProjectID)
	if err != nil {
		return services.DeletionJob{}, fmt.Errorf("project id: %w", err)
	}
	job := services.DeletionJob{ProjectID: projectID, AwaitServer: p.AwaitServer, ScheduledAt: p.ScheduledAt}
	if p.ServerID != "" {
		if job.ServerID, err = uuid.Parse(p.ServerID); err != nil {
			return services.DeletionJob{}, fmt.Errorf("server id: %w", err)
		}
	}
	return job, nil
}
