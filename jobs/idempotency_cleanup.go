package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/dapur-erp/dapur-erp/internal/jobs"
)

// TaskIdempotencyCleanup prunes old payment idempotency keys.
const TaskIdempotencyCleanup = "maintenance:idempotency-cleanup"

// DefaultIdempotencyRetention is how long payment references stay deduplicated.
const DefaultIdempotencyRetention = 90 * 24 * time.Hour

// IdempotencyCleanupPayload carries the retention window.
type IdempotencyCleanupPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewIdempotencyCleanupTask builds a cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(IdempotencyCleanupPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault), asynq.MaxRetry(1)), nil
}

// IdempotencyPruner deletes keys older than a window.
type IdempotencyPruner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// IdempotencyCleanupJob processes TaskIdempotencyCleanup tasks.
type IdempotencyCleanupJob struct {
	Store   IdempotencyPruner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle runs one cleanup.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	var payload IdempotencyCleanupPayload
	if err := decodePayload(t, &payload); err != nil {
		return err
	}
	if payload.Retention <= 0 {
		payload.Retention = DefaultIdempotencyRetention
	}
	tracker := j.Metrics.Track(TaskIdempotencyCleanup)
	err := j.Store.Cleanup(ctx, payload.Retention)
	if err != nil && j.Logger != nil {
		j.Logger.ErrorContext(ctx, "idempotency cleanup", slog.Any("error", err))
	}
	return tracker.End(err)
}
