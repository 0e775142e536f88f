package notification

import (
	"fmt"
	"time"

	"github.com/fieldops/dispatch-api/internal/models"
	"github.com/fieldops/dispatch-api/internal/schedule"
)

// Candidate is a notification a rule wants to emit. Whether it actually lands
// depends on the engine's dedupe pass against existing non-terminal rows.
type Candidate struct {
	Type      models.NotificationType
	Title     string
	Message   string
	Priority  models.NotificationPriority
	Metadata  map[string]interface{}
	DedupeKey string
}

// RuleInputs is everything the three detection rules read. Rules are pure
// functions of this snapshot plus nothing else; the engine assembles it once
// per run.
type RuleInputs struct {
	Now          time.Time
	Blocks       []models.PriorityBlock
	Booked       []models.Job
	Clients      []models.ClientActivity
	Model        schedule.PlanModel
	OverdueAfter time.Duration
	MinGap       time.Duration
}

// EmptyPrioritySlots flags enabled priority blocks whose occurrence today has
// fully elapsed past the fallback grace period with nothing booked inside the
// window. The dedupe subject includes the date, so yesterday's miss never
// suppresses today's.
func EmptyPrioritySlots(in RuleInputs) []Candidate {
	var out []Candidate
	today := in.Now.Weekday()
	date := in.Now.Format("2006-01-02")

	for _, block := range in.Blocks {
		if !block.Enabled || !block.AppliesOn(today) {
			continue
		}
		window, ok := blockWindowOn(in.Now, block)
		if !ok {
			continue
		}
		grace := time.Duration(block.FallbackHours) * time.Hour
		if in.Now.Before(window.End.Add(grace)) {
			continue
		}
		if jobsWithin(in.Booked, window) > 0 {
			continue
		}
		out = append(out, Candidate{
			Type:     models.NotificationTypeEmptyPrioritySlot,
			Title:    fmt.Sprintf("%s window went unfilled", block.PriorityFor),
			Message:  fmt.Sprintf("The %s priority window (%s–%s) ended with no jobs booked.", block.PriorityFor, block.StartTime, block.EndTime),
			Priority: models.NotificationPriorityHigh,
			Metadata: map[string]interface{}{
				"block_id":     block.ID,
				"priority_for": block.PriorityFor,
				"date":         date,
			},
			DedupeKey: fmt.Sprintf("%s:block:%s:%s", models.NotificationTypeEmptyPrioritySlot, block.ID, date),
		})
	}
	return out
}

// CustomerOverdue flags clients whose most recent completed job is older than
// the re-engagement threshold and who have nothing upcoming on the books.
// Fixed threshold, not a learned cadence.
func CustomerOverdue(in RuleInputs) []Candidate {
	var out []Candidate
	for _, client := range in.Clients {
		if client.LastCompletedAt == nil || client.UpcomingJobs > 0 {
			continue
		}
		idle := in.Now.Sub(*client.LastCompletedAt)
		if idle <= in.OverdueAfter {
			continue
		}
		out = append(out, Candidate{
			Type:     models.NotificationTypeCustomerOverdue,
			Title:    fmt.Sprintf("%s may be due for service", client.Name),
			Message:  fmt.Sprintf("Last job for %s finished %d days ago and nothing is scheduled.", client.Name, int(idle.Hours()/24)),
			Priority: models.NotificationPriorityMedium,
			Metadata: map[string]interface{}{
				"client_id":         client.ID,
				"last_completed_at": client.LastCompletedAt.Format(time.RFC3339),
			},
			DedupeKey: fmt.Sprintf("%s:client:%s", models.NotificationTypeCustomerOverdue, client.ID),
		})
	}
	return out
}

// GapOpportunities flags open intervals long enough to book that sit directly
// against an existing booking on the same day, suggesting an efficient
// fill-in near work already on the calendar.
func GapOpportunities(in RuleInputs) []Candidate {
	locations := make(map[string]models.Job, len(in.Booked))
	for _, job := range in.Booked {
		locations[job.ID] = job
	}

	var out []Candidate
	for _, day := range in.Model.Days {
		if day.Closed {
			continue
		}
		for _, gap := range day.Free {
			if gap.Duration() < in.MinGap {
				continue
			}
			neighbor, ok := adjacentBooking(gap, day, in.Model)
			if !ok {
				continue
			}
			job := locations[neighbor.JobID]
			area := roughLocation(job.Location)
			msg := fmt.Sprintf("%d min open next to %q on %s.", int(gap.Duration().Minutes()), neighbor.Title, day.Date.Format("Mon Jan 2"))
			if area != "" {
				msg = fmt.Sprintf("%d min open near %s next to %q on %s.", int(gap.Duration().Minutes()), area, neighbor.Title, day.Date.Format("Mon Jan 2"))
			}
			out = append(out, Candidate{
				Type:     models.NotificationTypeGapOpportunity,
				Title:    "Fillable gap in the schedule",
				Message:  msg,
				Priority: models.NotificationPriorityLow,
				Metadata: map[string]interface{}{
					"date":         day.Date.Format("2006-01-02"),
					"gap_start":    gap.Start.Format(time.RFC3339),
					"gap_minutes":  int(gap.Duration().Minutes()),
					"neighbor_job": neighbor.JobID,
					"location":     job.Location,
				},
				DedupeKey: fmt.Sprintf("%s:gap:%s:%s", models.NotificationTypeGapOpportunity, day.Date.Format("2006-01-02"), gap.Start.Format("15:04")),
			})
		}
	}
	return out
}

func blockWindowOn(now time.Time, block models.PriorityBlock) (schedule.Interval, bool) {
	start, err1 := clockOnDay(now, block.StartTime)
	end, err2 := clockOnDay(now, block.EndTime)
	if err1 != nil || err2 != nil || !start.Before(end) {
		return schedule.Interval{}, false
	}
	return schedule.Interval{Start: start, End: end}, true
}

func clockOnDay(day time.Time, clock string) (time.Time, error) {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		if parsed, err = time.Parse("15:04:05", clock); err != nil {
			return time.Time{}, err
		}
	}
	return time.Date(day.Year(), day.Month(), day.Day(), parsed.Hour(), parsed.Minute(), 0, 0, day.Location()), nil
}

func jobsWithin(booked []models.Job, window schedule.Interval) int {
	count := 0
	for _, job := range booked {
		if job.ScheduledAt != nil && window.Contains(*job.ScheduledAt) {
			count++
		}
	}
	return count
}

// adjacentBooking finds a booking whose buffered window borders the gap on
// either side.
func adjacentBooking(gap schedule.Interval, day schedule.DayPlan, model schedule.PlanModel) (schedule.BookedJob, bool) {
	for _, booked := range model.Booked {
		if !sameDay(booked.Start, day.Date) {
			continue
		}
		window := booked.Window(model.Buffer)
		if window.End.Equal(gap.Start) || gap.End.Equal(window.Start) {
			return booked, true
		}
	}
	return schedule.BookedJob{}, false
}

func sameDay(t, date time.Time) bool {
	y1, m1, d1 := t.Date()
	y2, m2, d2 := date.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// roughLocation reduces a full address to its city-level segment for the
// human-readable message.
func roughLocation(location string) string {
	for i := 0; i < len(location); i++ {
		if location[i] == ',' {
			return location[:i]
		}
	}
	return location
}
