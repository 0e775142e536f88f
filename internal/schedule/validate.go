package schedule

import (
	"fmt"

	"github.com/fieldops/dispatch-api/internal/models"
)

// ValidateProposal independently re-checks every proposal entry against the
// hard constraints: the referenced job must be in the unscheduled set, the
// team member (when named) must exist and be active, the slot must sit inside
// that weekday's business hours, and the buffered window must not overlap any
// existing booking or an earlier accepted entry. Entries that fail are
// returned as skips, never silently discarded. This pass is what makes the
// remote strategy safe to use at all.
func ValidateProposal(proposal models.ScheduleProposal, jobs []models.Job, model PlanModel) (accepted []models.ProposalEntry, skipped []models.SkippedEntry) {
	jobByID := make(map[string]models.Job, len(jobs))
	for _, j := range jobs {
		jobByID[j.ID] = j
	}
	members := make(map[string]bool, len(model.Team))
	for _, m := range model.Team {
		members[m.ID] = true
	}

	seen := make(map[string]bool)
	var acceptedWindows []Interval

	for _, entry := range proposal.Entries {
		job, ok := jobByID[entry.JobID]
		if !ok {
			skipped = append(skipped, skip(entry, "references unknown job id"))
			continue
		}
		if seen[entry.JobID] {
			skipped = append(skipped, skip(entry, "duplicate entry for job"))
			continue
		}
		if job.Status != models.JobStatusPending {
			skipped = append(skipped, skip(entry, fmt.Sprintf("job status %s is not schedulable", job.Status)))
			continue
		}
		if entry.AssignedTo != "" && !members[entry.AssignedTo] {
			skipped = append(skipped, skip(entry, "references unknown or inactive team member"))
			continue
		}

		day, ok := model.DayFor(entry.ScheduledAt)
		if !ok {
			skipped = append(skipped, skip(entry, "outside the planning horizon"))
			continue
		}
		if day.Closed {
			skipped = append(skipped, skip(entry, "business is closed that day"))
			continue
		}
		end := entry.ScheduledAt.Add(job.Duration())
		if entry.ScheduledAt.Before(day.Hours.Start) || end.After(day.Hours.End) {
			skipped = append(skipped, skip(entry, "outside business hours"))
			continue
		}

		window := Interval{Start: entry.ScheduledAt, End: end.Add(model.Buffer)}
		if conflictsWithBooked(window, model) {
			skipped = append(skipped, skip(entry, "overlaps an existing booking"))
			continue
		}
		if conflictsWithAccepted(window, acceptedWindows) {
			skipped = append(skipped, skip(entry, "overlaps another proposed entry"))
			continue
		}

		seen[entry.JobID] = true
		acceptedWindows = append(acceptedWindows, window)
		accepted = append(accepted, entry)
	}
	return accepted, skipped
}

func conflictsWithBooked(window Interval, model PlanModel) bool {
	for _, booked := range model.Booked {
		if booked.Window(model.Buffer).Overlaps(window) {
			return true
		}
	}
	return false
}

func conflictsWithAccepted(window Interval, accepted []Interval) bool {
	for _, iv := range accepted {
		if iv.Overlaps(window) {
			return true
		}
	}
	return false
}

func skip(entry models.ProposalEntry, reason string) models.SkippedEntry {
	return models.SkippedEntry{JobID: entry.JobID, Reason: reason}
}
