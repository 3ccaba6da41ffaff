package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dapur-erp/dapur-erp/internal/platform/db"
	"github.com/dapur-erp/dapur-erp/internal/shared"
)

// Repository persists notifications. Implementations resolve the active
// transaction from ctx.
type Repository interface {
	Insert(ctx context.Context, n *Notification) error
	List(ctx context.Context, filter ListFilter) ([]Notification, error)
	UnreadCount(ctx context.Context, role shared.Role) (int, error)
	// MarkRead sets read_at once; later calls keep the first timestamp. Only
	// notifications addressed to role are visible.
	MarkRead(ctx context.Context, id int64, role shared.Role, at time.Time) (Notification, error)
	MarkAllRead(ctx context.Context, role shared.Role, at time.Time) (int, error)
}

// Deliverer queues a notification for external delivery.
type Deliverer interface {
	EnqueueDelivery(ctx context.Context, d Delivery) error
}

// Service is the notification dispatcher.
type Service struct {
	repo      Repository
	deliverer Deliverer
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs Service. deliverer may be nil, in which case
// notifications stay in the inbox only.
func NewService(repo Repository, deliverer Deliverer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		deliverer: deliverer,
		logger:    logger.With(slog.String("component", "notification")),
		now:       time.Now,
	}
}

// Notify appends one notification and queues its delivery once the
// surrounding transaction commits. Delivery errors are logged only.
func (s *Service) Notify(ctx context.Context, in NotifyInput) (Notification, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Type == "" {
		return Notification{}, fmt.Errorf("%w: type is required", ErrValidation)
	}
	if in.Title == "" {
		return Notification{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if !in.RecipientRole.Valid() {
		return Notification{}, fmt.Errorf("%w: unknown recipient role %q", ErrValidation, in.RecipientRole)
	}
	n := Notification{
		Type:          in.Type,
		Title:         in.Title,
		Message:       in.Message,
		RecipientRole: in.RecipientRole,
		RecipientID:   in.RecipientID,
		POID:          in.POID,
		InvoiceID:     in.InvoiceID,
		CreatedAt:     s.now(),
	}
	if err := s.repo.Insert(ctx, &n); err != nil {
		return Notification{}, err
	}
	if s.deliverer != nil {
		delivery := Delivery{
			NotificationID: n.ID,
			Type:           n.Type,
			Title:          n.Title,
			Message:        n.Message,
			RecipientRole:  n.RecipientRole,
			RecipientID:    n.RecipientID,
		}
		db.AfterCommit(ctx, func(ctx context.Context) {
			if err := s.deliverer.EnqueueDelivery(ctx, delivery); err != nil {
				s.logger.WarnContext(ctx, "enqueue notification delivery",
					slog.Int64("notification_id", delivery.NotificationID),
					slog.Any("error", err))
			}
		})
	}
	return n, nil
}

// List returns the inbox of a role, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Notification, error) {
	if !filter.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, filter.Role)
	}
	filter.Page = shared.NewPage(filter.Page.Limit, filter.Page.Offset)
	return s.repo.List(ctx, filter)
}

// UnreadCount returns how many notifications of role are unread.
func (s *Service) UnreadCount(ctx context.Context, role shared.Role) (int, error) {
	if !role.Valid() {
		return 0, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	return s.repo.UnreadCount(ctx, role)
}

// MarkRead flags one notification of role as read. Repeated calls are no-ops.
func (s *Service) MarkRead(ctx context.Context, id int64, role shared.Role) (Notification, error) {
	return s.repo.MarkRead(ctx, id, role, s.now())
}

// MarkAllRead flags every unread notification of role and returns how many
// changed.
func (s *Service) MarkAllRead(ctx context.Context, role shared.Role) (int, error) {
	if !role.Valid() {
		return 0, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	return s.repo.MarkAllRead(ctx, role, s.now())
}
