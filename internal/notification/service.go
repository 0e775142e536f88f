package notification

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/fieldops/dispatch-api/internal/models"
	"github.com/fieldops/dispatch-api/internal/repository"
)

// ErrTerminalState is returned when a lifecycle transition is attempted on a
// dismissed or acted notification.
var ErrTerminalState = errors.New("notification is in a terminal state")

// ErrInvalidSnooze is returned for non-positive snooze durations.
var ErrInvalidSnooze = errors.New("snooze hours must be positive")

// Service owns the notification lifecycle: what shows on the feed and which
// transitions are legal. Acting on a notification signals intent only; the
// downstream action (calling the customer, booking the slot) stays with the
// caller.
type Service interface {
	ListActive(ctx context.Context, businessID string, limit int) ([]models.Notification, error)
	Dismiss(ctx context.Context, businessID, notificationID string) (models.Notification, error)
	Snooze(ctx context.Context, businessID, notificationID string, hours int) (models.Notification, error)
	MarkActed(ctx context.Context, businessID, notificationID string) (models.Notification, error)
}

type service struct {
	repo   repository.NotificationRepository
	now    func() time.Time
	logger zerolog.Logger
}

func NewService(repo repository.NotificationRepository, logger zerolog.Logger) Service {
	return &service{
		repo:   repo,
		now:    time.Now,
		logger: logger.With().Str("component", "notification_service").Logger(),
	}
}

func (s *service) ListActive(ctx context.Context, businessID string, limit int) ([]models.Notification, error) {
	return s.repo.ListVisible(ctx, businessID, s.now(), limit)
}

func (s *service) Dismiss(ctx context.Context, businessID, notificationID string) (models.Notification, error) {
	return s.transition(ctx, businessID, notificationID, models.NotificationStateDismissed, nil)
}

func (s *service) Snooze(ctx context.Context, businessID, notificationID string, hours int) (models.Notification, error) {
	if hours <= 0 {
		return models.Notification{}, ErrInvalidSnooze
	}
	until := s.now().Add(time.Duration(hours) * time.Hour)
	return s.transition(ctx, businessID, notificationID, models.NotificationStateSnoozed, &until)
}

func (s *service) MarkActed(ctx context.Context, businessID, notificationID string) (models.Notification, error) {
	return s.transition(ctx, businessID, notificationID, models.NotificationStateActed, nil)
}

func (s *service) transition(ctx context.Context, businessID, notificationID string, next models.NotificationState, snoozedUntil *time.Time) (models.Notification, error) {
	current, err := s.repo.Get(ctx, businessID, notificationID)
	if err != nil {
		return models.Notification{}, err
	}
	if !current.State.CanTransition(next) {
		return models.Notification{}, ErrTerminalState
	}

	updated, err := s.repo.UpdateState(ctx, businessID, notificationID, next, snoozedUntil)
	if err != nil {
		return models.Notification{}, err
	}
	s.logger.Info().
		Str("notification_id", notificationID).
		Str("from", string(current.State)).
		Str("to", string(next)).
		Msg("notification state changed")
	return updated, nil
}
