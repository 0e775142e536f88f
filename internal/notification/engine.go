package notification

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/fieldops/dispatch-api/internal/models"
	"github.com/fieldops/dispatch-api/internal/repository"
)

// Engine evaluates the three detection rules and persists whatever is new.
// Candidates whose dedupe key already matches a non-terminal notification are
// skipped silently; the partial unique index in the store catches the ones
// that race past the in-memory check.
type Engine struct {
	repo      repository.NotificationRepository
	notifiers []Notifier
	logger    zerolog.Logger
}

func NewEngine(repo repository.NotificationRepository, logger zerolog.Logger, notifiers ...Notifier) *Engine {
	active := make([]Notifier, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			active = append(active, n)
		}
	}
	return &Engine{
		repo:      repo,
		notifiers: active,
		logger:    logger.With().Str("component", "notification_engine").Logger(),
	}
}

// Run evaluates all rules against the snapshot and returns the notifications
// actually created this pass.
func (e *Engine) Run(ctx context.Context, businessID string, in RuleInputs) ([]models.Notification, error) {
	existing, err := e.repo.ActiveDedupeKeys(ctx, businessID)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	candidates = append(candidates, EmptyPrioritySlots(in)...)
	candidates = append(candidates, CustomerOverdue(in)...)
	candidates = append(candidates, GapOpportunities(in)...)

	var created []models.Notification
	for _, c := range candidates {
		if existing[c.DedupeKey] {
			continue
		}
		notif, ok, err := e.repo.Create(ctx, repository.CreateNotificationParams{
			BusinessID: businessID,
			Type:       c.Type,
			Title:      c.Title,
			Message:    c.Message,
			Priority:   c.Priority,
			Metadata:   c.Metadata,
			DedupeKey:  c.DedupeKey,
		})
		if err != nil {
			e.logger.Error().Err(err).Str("dedupe_key", c.DedupeKey).Msg("failed to persist notification")
			return created, err
		}
		if !ok {
			// Lost the race to a concurrent run; same outcome as the dedupe skip.
			continue
		}
		existing[c.DedupeKey] = true
		created = append(created, notif)

		if notif.Priority == models.NotificationPriorityHigh {
			for _, notifier := range e.notifiers {
				if err := notifier.Notify(ctx, notif); err != nil {
					e.logger.Warn().Err(err).Str("notification_id", notif.ID).Msg("failed to deliver notification")
				}
			}
		}
	}

	e.logger.Debug().
		Str("business_id", businessID).
		Int("candidates", len(candidates)).
		Int("created", len(created)).
		Msg("notification rules evaluated")
	return created, nil
}
