package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/dapur-erp/dapur-erp/internal/jobs"
)

// OverdueMarker flags invoices past due. Implemented by ap.Service.
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, asOf time.Time) (int, error)
}

// OverdueSweepJob processes TaskInvoiceOverdueSweep tasks.
type OverdueSweepJob struct {
	Invoices OverdueMarker
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewOverdueSweepJob wires dependencies for the sweep handler.
func NewOverdueSweepJob(invoices OverdueMarker, logger *slog.Logger, metrics *jobmetrics.Metrics) *OverdueSweepJob {
	return &OverdueSweepJob{
		Invoices: invoices,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle runs one sweep.
func (j *OverdueSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Invoices == nil {
		return errors.New("overdue sweep: handler not configured")
	}
	var payload OverdueSweepPayload
	if err := decodePayload(t, &payload); err != nil {
		return err
	}
	asOf := j.now()
	if payload.AsOf != nil {
		asOf = *payload.AsOf
	}
	_, err := j.Run(ctx, asOf)
	return err
}

// Run flags overdue invoices as of asOf and returns how many changed.
func (j *OverdueSweepJob) Run(ctx context.Context, asOf time.Time) (int, error) {
	tracker := j.Metrics.Track(TaskInvoiceOverdueSweep)
	logger := j.logger().With(slog.Time("as_of", asOf))
	marked, err := j.Invoices.MarkOverdue(ctx, asOf)
	j.Metrics.AddOverdue(marked)
	if err != nil {
		logger.ErrorContext(ctx, "overdue sweep", slog.Int("marked", marked), slog.Any("error", err))
		return marked, tracker.End(err)
	}
	logger.InfoContext(ctx, "overdue sweep finished", slog.Int("marked", marked))
	return marked, tracker.End(nil)
}

func (j *OverdueSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskInvoiceOverdueSweep))
	}
	return slog.Default().With(slog.String("job", TaskInvoiceOverdueSweep))
}

func (j *OverdueSweepJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
