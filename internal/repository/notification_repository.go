package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/fieldops/dispatch-api/internal/models"
)

// ErrNotFound is returned when a notification does not exist for the tenant.
var ErrNotFound = errors.New("notification not found")

type CreateNotificationParams struct {
	BusinessID string
	Type       models.NotificationType
	Title      string
	Message    string
	Priority   models.NotificationPriority
	Metadata   map[string]interface{}
	DedupeKey  string
}

type NotificationRepository interface {
	// Create inserts a notification unless a non-terminal row with the same
	// dedupe key already exists. The bool reports whether a row was created.
	Create(ctx context.Context, params CreateNotificationParams) (models.Notification, bool, error)
	ActiveDedupeKeys(ctx context.Context, businessID string) (map[string]bool, error)
	ListVisible(ctx context.Context, businessID string, now time.Time, limit int) ([]models.Notification, error)
	Get(ctx context.Context, businessID, notificationID string) (models.Notification, error)
	UpdateState(ctx context.Context, businessID, notificationID string, state models.NotificationState, snoozedUntil *time.Time) (models.Notification, error)
}

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

const notificationColumns = `id, business_id, type, title, message, priority, metadata, dedupe_key, state, snoozed_until, created_at, updated_at`

func (r *notificationRepository) Create(ctx context.Context, params CreateNotificationParams) (models.Notification, bool, error) {
	// The conflict target matches the partial unique index on non-terminal
	// rows, so concurrent generators racing on the same condition collapse to
	// a single row instead of erroring.
	const query = `
		INSERT INTO notifications (business_id, type, title, message, priority, metadata, dedupe_key, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'active')
		ON CONFLICT (business_id, dedupe_key) WHERE state IN ('active', 'snoozed') DO NOTHING
		RETURNING ` + notificationColumns

	var metadata interface{}
	if len(params.Metadata) > 0 {
		raw, err := json.Marshal(params.Metadata)
		if err != nil {
			return models.Notification{}, false, errors.Wrap(err, "marshal notification metadata")
		}
		metadata = raw
	}

	var notif models.Notification
	err := r.db.GetContext(ctx, &notif, query,
		params.BusinessID, params.Type, params.Title, params.Message, params.Priority, metadata, params.DedupeKey)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Notification{}, false, nil
	}
	if err != nil {
		return models.Notification{}, false, errors.Wrap(err, "create notification")
	}
	return notif, true, nil
}

func (r *notificationRepository) ActiveDedupeKeys(ctx context.Context, businessID string) (map[string]bool, error) {
	const query = `
		SELECT dedupe_key
		FROM notifications
		WHERE business_id = $1 AND state IN ('active', 'snoozed')
	`
	var keys []string
	if err := r.db.SelectContext(ctx, &keys, query, businessID); err != nil {
		return nil, errors.Wrap(err, "list active dedupe keys")
	}
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set, nil
}

func (r *notificationRepository) ListVisible(ctx context.Context, businessID string, now time.Time, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	const query = `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE business_id = $1
		  AND (state = 'active' OR (state = 'snoozed' AND snoozed_until <= $2))
		ORDER BY CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END, created_at DESC
		LIMIT $3
	`
	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, businessID, now, limit); err != nil {
		return nil, errors.Wrap(err, "list visible notifications")
	}
	return notifications, nil
}

func (r *notificationRepository) Get(ctx context.Context, businessID, notificationID string) (models.Notification, error) {
	const query = `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE business_id = $1 AND id = $2
	`
	var notif models.Notification
	err := r.db.GetContext(ctx, &notif, query, businessID, notificationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Notification{}, ErrNotFound
	}
	if err != nil {
		return models.Notification{}, errors.Wrap(err, "get notification")
	}
	return notif, nil
}

func (r *notificationRepository) UpdateState(ctx context.Context, businessID, notificationID string, state models.NotificationState, snoozedUntil *time.Time) (models.Notification, error) {
	const query = `
		UPDATE notifications
		SET state = $3, snoozed_until = $4, updated_at = now()
		WHERE business_id = $1 AND id = $2
		RETURNING ` + notificationColumns

	var notif models.Notification
	err := r.db.GetContext(ctx, &notif, query, businessID, notificationID, state, snoozedUntil)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Notification{}, ErrNotFound
	}
	if err != nil {
		return models.Notification{}, errors.Wrap(err, "update notification state")
	}
	return notif, nil
}
