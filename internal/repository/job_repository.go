package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/fieldops/dispatch-api/internal/models"
)

type JobRepository interface {
	ListUnscheduled(ctx context.Context, businessID string) ([]models.Job, error)
	ListBookedBetween(ctx context.Context, businessID string, from, to time.Time) ([]models.Job, error)
	ListAssignmentsBetween(ctx context.Context, businessID string, from, to time.Time) (map[string]string, error)
	ListClientActivity(ctx context.Context, businessID string) ([]models.ClientActivity, error)
	ApplyScheduleEntry(ctx context.Context, businessID string, entry models.ProposalEntry, bufferMinutes int) (bool, error)
}

type jobRepository struct {
	db *sqlx.DB
}

func NewJobRepository(db *sqlx.DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) ListUnscheduled(ctx context.Context, businessID string) ([]models.Job, error) {
	const query = `
		SELECT id, business_id, client_id, title, category, location, duration_minutes,
		       value_cents, status, scheduled_at, weather_sensitive, completed_at, created_at, updated_at
		FROM jobs
		WHERE business_id = $1 AND status = 'pending' AND scheduled_at IS NULL
		ORDER BY created_at ASC
	`
	var jobs []models.Job
	if err := r.db.SelectContext(ctx, &jobs, query, businessID); err != nil {
		return nil, errors.Wrap(err, "list unscheduled jobs")
	}
	return jobs, nil
}

func (r *jobRepository) ListBookedBetween(ctx context.Context, businessID string, from, to time.Time) ([]models.Job, error) {
	const query = `
		SELECT id, business_id, client_id, title, category, location, duration_minutes,
		       value_cents, status, scheduled_at, weather_sensitive, completed_at, created_at, updated_at
		FROM jobs
		WHERE business_id = $1
		  AND status IN ('pending', 'confirmed')
		  AND scheduled_at >= $2 AND scheduled_at < $3
		ORDER BY scheduled_at ASC
	`
	var jobs []models.Job
	if err := r.db.SelectContext(ctx, &jobs, query, businessID, from, to); err != nil {
		return nil, errors.Wrap(err, "list booked jobs")
	}
	return jobs, nil
}

func (r *jobRepository) ListAssignmentsBetween(ctx context.Context, businessID string, from, to time.Time) (map[string]string, error) {
	const query = `
		SELECT ta.job_id, ta.team_member_id
		FROM team_assignments ta
		JOIN jobs j ON j.id = ta.job_id
		WHERE ta.business_id = $1
		  AND j.scheduled_at >= $2 AND j.scheduled_at < $3
	`
	rows, err := r.db.QueryxContext(ctx, query, businessID, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "list assignments")
	}
	defer rows.Close()

	assignments := make(map[string]string)
	for rows.Next() {
		var jobID, memberID string
		if err := rows.Scan(&jobID, &memberID); err != nil {
			return nil, err
		}
		assignments[jobID] = memberID
	}
	return assignments, rows.Err()
}

func (r *jobRepository) ListClientActivity(ctx context.Context, businessID string) ([]models.ClientActivity, error) {
	const query = `
		SELECT c.id, c.business_id, c.name, c.email, c.phone, c.created_at,
		       MAX(j.completed_at) FILTER (WHERE j.status = 'completed') AS last_completed_at,
		       COUNT(j.id) FILTER (WHERE j.status = 'confirmed' AND j.scheduled_at >= now()) AS upcoming_jobs
		FROM clients c
		LEFT JOIN jobs j ON j.client_id = c.id AND j.business_id = c.business_id
		WHERE c.business_id = $1
		GROUP BY c.id, c.business_id, c.name, c.email, c.phone, c.created_at
		ORDER BY c.name ASC
	`
	var activity []models.ClientActivity
	if err := r.db.SelectContext(ctx, &activity, query, businessID); err != nil {
		return nil, errors.Wrap(err, "list client activity")
	}
	return activity, nil
}

// ApplyScheduleEntry books one job inside its own transaction. The UPDATE is
// guarded by an overlap re-check against every other confirmed booking, so a
// concurrent run that already took the slot makes this a zero-row update
// rather than a silent double-booking. Re-applying the identical entry
// matches the guard (the job's own row is excluded) and rewrites the same
// values, which is what makes the whole apply path idempotent.
func (r *jobRepository) ApplyScheduleEntry(ctx context.Context, businessID string, entry models.ProposalEntry, bufferMinutes int) (bool, error) {
	const scheduleQuery = `
		UPDATE jobs AS j
		SET scheduled_at = $3, status = 'confirmed', updated_at = now()
		WHERE j.id = $2
		  AND j.business_id = $1
		  AND j.status IN ('pending', 'confirmed')
		  AND NOT EXISTS (
			SELECT 1
			FROM jobs o
			WHERE o.business_id = $1
			  AND o.id <> j.id
			  AND o.status = 'confirmed'
			  AND o.scheduled_at IS NOT NULL
			  AND o.scheduled_at < $3::timestamptz + make_interval(mins => j.duration_minutes + $4)
			  AND $3::timestamptz < o.scheduled_at + make_interval(mins => o.duration_minutes + $4)
		  )
	`
	const assignQuery = `
		INSERT INTO team_assignments (job_id, team_member_id, business_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (job_id, team_member_id) DO UPDATE SET updated_at = now()
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, errors.Wrap(err, "begin apply transaction")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, scheduleQuery, businessID, entry.JobID, entry.ScheduledAt, bufferMinutes)
	if err != nil {
		return false, errors.Wrapf(err, "schedule job %s", entry.JobID)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}

	if entry.AssignedTo != "" {
		if _, err := tx.ExecContext(ctx, assignQuery, entry.JobID, entry.AssignedTo, businessID); err != nil {
			return false, errors.Wrapf(err, "upsert assignment for job %s", entry.JobID)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, errors.Wrap(err, "commit apply transaction")
	}
	return true, nil
}
