package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/fieldops/dispatch-api/internal/models"
)

type WeatherRepository interface {
	UpsertForecast(ctx context.Context, businessID string, days []models.WeatherDay) error
	ListBetween(ctx context.Context, businessID string, from, to time.Time) ([]models.WeatherDay, error)
}

type weatherRepository struct {
	db *sqlx.DB
}

func NewWeatherRepository(db *sqlx.DB) WeatherRepository {
	return &weatherRepository{db: db}
}

// UpsertForecast replaces the cached forecast rows for the supplied dates.
// The forecast collaborator pushes a fresh window whenever it has one; stale
// dates age out of relevance rather than being deleted.
func (r *weatherRepository) UpsertForecast(ctx context.Context, businessID string, days []models.WeatherDay) error {
	const query = `
		INSERT INTO weather_days (business_id, date, condition, rain_probability)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (business_id, date)
		DO UPDATE SET condition = EXCLUDED.condition, rain_probability = EXCLUDED.rain_probability
	`
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin forecast upsert")
	}
	defer tx.Rollback()

	for _, day := range days {
		if _, err := tx.ExecContext(ctx, query, businessID, day.Date, day.Condition, day.RainProbability); err != nil {
			return errors.Wrapf(err, "upsert forecast for %s", day.Date.Format("2006-01-02"))
		}
	}
	return tx.Commit()
}

func (r *weatherRepository) ListBetween(ctx context.Context, businessID string, from, to time.Time) ([]models.WeatherDay, error) {
	const query = `
		SELECT business_id, date, condition, rain_probability
		FROM weather_days
		WHERE business_id = $1 AND date >= $2 AND date < $3
		ORDER BY date ASC
	`
	var days []models.WeatherDay
	if err := r.db.SelectContext(ctx, &days, query, businessID, from, to); err != nil {
		return nil, errors.Wrap(err, "list weather days")
	}
	return days, nil
}
