package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dapur-erp/dapur-erp/internal/notification"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskNotificationDeliver pushes one committed notification to the external channel.
	TaskNotificationDeliver = "notification:deliver"
	// TaskInvoiceOverdueSweep flags unpaid invoices past their due date.
	TaskInvoiceOverdueSweep = "invoice:overdue-sweep"
)

// DeliveryMaxRetry bounds redelivery attempts of a notification.
const DeliveryMaxRetry = 5

// OverdueSweepPayload carries the optional reference time of a sweep.
type OverdueSweepPayload struct {
	AsOf *time.Time `json:"as_of,omitempty"`
}

// NewNotificationDeliverTask wraps a delivery in an Asynq task.
func NewNotificationDeliverTask(d notification.Delivery) (*asynq.Task, error) {
	body, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationDeliver, body, asynq.Queue(QueueDefault), asynq.MaxRetry(DeliveryMaxRetry)), nil
}

// NewOverdueSweepTask builds a sweep task. A nil asOf means "now" at processing time.
func NewOverdueSweepTask(asOf *time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(OverdueSweepPayload{AsOf: asOf})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoiceOverdueSweep, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

func decodePayload(t *asynq.Task, target any) error {
	if err := json.Unmarshal(t.Payload(), target); err != nil {
		return fmt.Errorf("jobs: decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return nil
}
