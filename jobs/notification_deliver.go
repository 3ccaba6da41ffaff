package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/dapur-erp/dapur-erp/internal/jobs"
	"github.com/dapur-erp/dapur-erp/internal/notification"
)

// Sender pushes a notification to an external channel.
type Sender interface {
	Send(ctx context.Context, d notification.Delivery) error
}

// DeliveryJob processes TaskNotificationDeliver tasks.
type DeliveryJob struct {
	Sender  Sender
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewDeliveryJob wires dependencies for the delivery handler.
func NewDeliveryJob(sender Sender, logger *slog.Logger, metrics *jobmetrics.Metrics) *DeliveryJob {
	return &DeliveryJob{Sender: sender, Logger: logger, Metrics: metrics}
}

// Handle sends one delivery. Send errors are returned so Asynq retries them.
func (j *DeliveryJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Sender == nil {
		return errors.New("notification delivery: handler not configured")
	}
	var d notification.Delivery
	if err := decodePayload(t, &d); err != nil {
		return err
	}
	tracker := j.Metrics.Track(TaskNotificationDeliver)
	err := j.Sender.Send(ctx, d)
	j.Metrics.AddDelivery(string(d.RecipientRole), err == nil)
	if err != nil {
		j.logger().WarnContext(ctx, "notification delivery failed",
			slog.Int64("notification_id", d.NotificationID),
			slog.String("role", string(d.RecipientRole)),
			slog.Any("error", err))
	}
	return tracker.End(err)
}

func (j *DeliveryJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskNotificationDeliver))
	}
	return slog.Default().With(slog.String("job", TaskNotificationDeliver))
}

// LogSender writes deliveries to the log. Used when no webhook is configured.
type LogSender struct {
	Logger *slog.Logger
}

// Send implements Sender.
func (s LogSender) Send(ctx context.Context, d notification.Delivery) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification delivered",
		slog.Int64("notification_id", d.NotificationID),
		slog.String("type", string(d.Type)),
		slog.String("role", string(d.RecipientRole)),
		slog.String("title", d.Title))
	return nil
}

// WebhookSender posts deliveries as JSON to a fixed URL.
type WebhookSender struct {
	URL    string
	Client *http.Client
}

// NewWebhookSender constructs a WebhookSender with a bounded client timeout.
func NewWebhookSender(url string, timeout time.Duration) *WebhookSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSender{URL: url, Client: &http.Client{Timeout: timeout}}
}

// Send implements Sender. Any non-2xx answer is an error.
func (s *WebhookSender) Send(ctx context.Context, d notification.Delivery) error {
	body, err := json.Marshal(d)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Dapur-Notification-Type", string(d.Type))
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}
	return nil
}
