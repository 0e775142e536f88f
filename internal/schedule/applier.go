package schedule

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldops/dispatch-api/internal/models"
)

// ApplyStore is the write contract the applier drives. Implementations must
// make ApplyScheduleEntry atomic per job and re-check overlap at write time;
// the applier trusts neither the proposal nor its own earlier validation once
// concurrent writers enter the picture.
type ApplyStore interface {
	ApplyScheduleEntry(ctx context.Context, businessID string, entry models.ProposalEntry, bufferMinutes int) (bool, error)
}

// Applier writes validated proposal entries back to the job records. Each
// entry is its own atomic unit: one conflicting or failing job never blocks
// the rest of the run, it just shows up in the skipped list.
type Applier struct {
	store  ApplyStore
	buffer time.Duration
	logger zerolog.Logger
}

func NewApplier(store ApplyStore, buffer time.Duration, logger zerolog.Logger) *Applier {
	if buffer <= 0 {
		buffer = 30 * time.Minute
	}
	return &Applier{
		store:  store,
		buffer: buffer,
		logger: logger.With().Str("component", "applier").Logger(),
	}
}

// Apply persists entries one by one. Re-applying an identical set of entries
// is a no-op at the storage layer, so callers may safely repeat a run.
func (a *Applier) Apply(ctx context.Context, businessID string, entries []models.ProposalEntry) (models.ApplyResult, error) {
	var result models.ApplyResult
	bufferMinutes := int(a.buffer / time.Minute)

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		applied, err := a.store.ApplyScheduleEntry(ctx, businessID, entry, bufferMinutes)
		if err != nil {
			a.logger.Error().Err(err).Str("job_id", entry.JobID).Msg("failed to apply schedule entry")
			result.Skipped = append(result.Skipped, models.SkippedEntry{JobID: entry.JobID, Reason: "write failed: " + err.Error()})
			continue
		}
		if !applied {
			result.Skipped = append(result.Skipped, models.SkippedEntry{JobID: entry.JobID, Reason: "conflict detected at write time"})
			continue
		}
		result.Applied = append(result.Applied, entry)
	}

	a.logger.Info().
		Str("business_id", businessID).
		Int("applied", len(result.Applied)).
		Int("skipped", len(result.Skipped)).
		Msg("schedule apply complete")
	return result, nil
}
