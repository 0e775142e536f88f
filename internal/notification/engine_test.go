package notification

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/dispatch-api/internal/models"
	"github.com/fieldops/dispatch-api/internal/repository"
)

// fakeNotificationRepo keeps notifications in memory and enforces the same
// live-dedupe-key uniqueness the real store does with its partial index.
type fakeNotificationRepo struct {
	rows map[string]*models.Notification
	seq  int
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{rows: make(map[string]*models.Notification)}
}

func (f *fakeNotificationRepo) Create(_ context.Context, params repository.CreateNotificationParams) (models.Notification, bool, error) {
	for _, row := range f.rows {
		if row.BusinessID == params.BusinessID && row.DedupeKey == params.DedupeKey && !row.State.Terminal() {
			return models.Notification{}, false, nil
		}
	}
	f.seq++
	notif := models.Notification{
		ID:         fmt.Sprintf("notif-%d", f.seq),
		BusinessID: params.BusinessID,
		Type:       params.Type,
		Title:      params.Title,
		Message:    params.Message,
		Priority:   params.Priority,
		DedupeKey:  params.DedupeKey,
		State:      models.NotificationStateActive,
	}
	f.rows[notif.ID] = &notif
	return notif, true, nil
}

func (f *fakeNotificationRepo) ActiveDedupeKeys(_ context.Context, businessID string) (map[string]bool, error) {
	keys := make(map[string]bool)
	for _, row := range f.rows {
		if row.BusinessID == businessID && !row.State.Terminal() {
			keys[row.DedupeKey] = true
		}
	}
	return keys, nil
}

func (f *fakeNotificationRepo) ListVisible(_ context.Context, businessID string, now time.Time, _ int) ([]models.Notification, error) {
	var out []models.Notification
	for _, row := range f.rows {
		if row.BusinessID == businessID && row.Visible(now) {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) Get(_ context.Context, businessID, notificationID string) (models.Notification, error) {
	row, ok := f.rows[notificationID]
	if !ok || row.BusinessID != businessID {
		return models.Notification{}, repository.ErrNotFound
	}
	return *row, nil
}

func (f *fakeNotificationRepo) UpdateState(_ context.Context, businessID, notificationID string, state models.NotificationState, snoozedUntil *time.Time) (models.Notification, error) {
	row, ok := f.rows[notificationID]
	if !ok || row.BusinessID != businessID {
		return models.Notification{}, repository.ErrNotFound
	}
	row.State = state
	row.SnoozedUntil = snoozedUntil
	return *row, nil
}

type recordingNotifier struct {
	delivered []models.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, notif models.Notification) error {
	r.delivered = append(r.delivered, notif)
	return nil
}

func overdueInputs(now time.Time) RuleInputs {
	last := now.AddDate(0, 0, -90)
	return RuleInputs{
		Now:          now,
		OverdueAfter: 60 * 24 * time.Hour,
		Clients: []models.ClientActivity{
			{Client: models.Client{ID: "idle", Name: "Dana Reyes"}, LastCompletedAt: &last},
		},
	}
}

func TestEngineCreatesAndThenDeduplicates(t *testing.T) {
	repo := newFakeNotificationRepo()
	engine := NewEngine(repo, zerolog.Nop())
	now := dayAt(ruleMonday, 9, 0)

	created, err := engine.Run(context.Background(), "biz-1", overdueInputs(now))
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, models.NotificationTypeCustomerOverdue, created[0].Type)

	// Same condition, second pass: the live row suppresses the candidate.
	again, err := engine.Run(context.Background(), "biz-1", overdueInputs(now))
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Len(t, repo.rows, 1)
}

func TestEngineReemitsAfterDismissal(t *testing.T) {
	repo := newFakeNotificationRepo()
	engine := NewEngine(repo, zerolog.Nop())
	now := dayAt(ruleMonday, 9, 0)

	created, err := engine.Run(context.Background(), "biz-1", overdueInputs(now))
	require.NoError(t, err)
	require.Len(t, created, 1)

	// Dismissal ends the row's dedupe hold; the still-true condition comes back.
	_, err = repo.UpdateState(context.Background(), "biz-1", created[0].ID, models.NotificationStateDismissed, nil)
	require.NoError(t, err)

	again, err := engine.Run(context.Background(), "biz-1", overdueInputs(now))
	require.NoError(t, err)
	assert.Len(t, again, 1)
}

func TestEngineDeliversOnlyHighPriority(t *testing.T) {
	repo := newFakeNotificationRepo()
	notifier := &recordingNotifier{}
	engine := NewEngine(repo, zerolog.Nop(), notifier)

	now := dayAt(ruleTuesday, 14, 0)
	last := now.AddDate(0, 0, -90)
	in := RuleInputs{
		Now:          now,
		Blocks:       []models.PriorityBlock{vipTuesdayBlock()},
		OverdueAfter: 60 * 24 * time.Hour,
		Clients: []models.ClientActivity{
			{Client: models.Client{ID: "idle", Name: "Dana Reyes"}, LastCompletedAt: &last},
		},
	}

	created, err := engine.Run(context.Background(), "biz-1", in)
	require.NoError(t, err)
	require.Len(t, created, 2)

	// The empty priority slot is high priority and goes out; the overdue
	// customer stays on the in-app feed only.
	require.Len(t, notifier.delivered, 1)
	assert.Equal(t, models.NotificationTypeEmptyPrioritySlot, notifier.delivered[0].Type)
}

func TestEngineScopesDedupeToBusiness(t *testing.T) {
	repo := newFakeNotificationRepo()
	engine := NewEngine(repo, zerolog.Nop())
	now := dayAt(ruleMonday, 9, 0)

	_, err := engine.Run(context.Background(), "biz-1", overdueInputs(now))
	require.NoError(t, err)

	created, err := engine.Run(context.Background(), "biz-2", overdueInputs(now))
	require.NoError(t, err)
	assert.Len(t, created, 1, "another tenant's notification must not suppress this one")
}
