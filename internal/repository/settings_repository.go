package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/fieldops/dispatch-api/internal/models"
)

type SettingsRepository interface {
	GetWeekHours(ctx context.Context, businessID string) (models.WeekHours, error)
	ListPriorityBlocks(ctx context.Context, businessID string) ([]models.PriorityBlock, error)
}

type settingsRepository struct {
	db *sqlx.DB
}

func NewSettingsRepository(db *sqlx.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

// GetWeekHours returns the opening hours keyed by weekday. Weekdays with no
// row are simply absent; lookups through WeekHours.For treat them as closed.
func (r *settingsRepository) GetWeekHours(ctx context.Context, businessID string) (models.WeekHours, error) {
	const query = `
		SELECT weekday, open_time, close_time, closed
		FROM business_hours
		WHERE business_id = $1
	`
	rows, err := r.db.QueryxContext(ctx, query, businessID)
	if err != nil {
		return nil, errors.Wrap(err, "get business hours")
	}
	defer rows.Close()

	hours := make(models.WeekHours)
	for rows.Next() {
		var (
			weekday     int
			open, close string
			closed      bool
		)
		if err := rows.Scan(&weekday, &open, &close, &closed); err != nil {
			return nil, err
		}
		day := time.Weekday(weekday)
		hours[day] = models.DayHours{Weekday: day, OpenTime: open, CloseTime: close, Closed: closed}
	}
	return hours, rows.Err()
}

func (r *settingsRepository) ListPriorityBlocks(ctx context.Context, businessID string) ([]models.PriorityBlock, error) {
	const query = `
		SELECT id, business_id, days, start_time, end_time, priority_for, fallback_hours, enabled
		FROM priority_blocks
		WHERE business_id = $1 AND enabled = true
		ORDER BY start_time ASC
	`
	rows, err := r.db.QueryxContext(ctx, query, businessID)
	if err != nil {
		return nil, errors.Wrap(err, "list priority blocks")
	}
	defer rows.Close()

	var blocks []models.PriorityBlock
	for rows.Next() {
		var (
			block models.PriorityBlock
			days  pq.Int64Array
		)
		if err := rows.Scan(&block.ID, &block.BusinessID, &days, &block.StartTime, &block.EndTime,
			&block.PriorityFor, &block.FallbackHours, &block.Enabled); err != nil {
			return nil, err
		}
		for _, d := range days {
			block.Days = append(block.Days, time.Weekday(d))
		}
		blocks = append(blocks, block)
	}
	return blocks, rows.Err()
}
