package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/dispatch-api/internal/models"
	"github.com/fieldops/dispatch-api/internal/schedule"
)

var (
	ruleMonday  = time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	ruleTuesday = ruleMonday.AddDate(0, 0, 1)
)

func dayAt(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC)
}

func vipTuesdayBlock() models.PriorityBlock {
	return models.PriorityBlock{
		ID:            "vip-block",
		Days:          []time.Weekday{time.Tuesday},
		StartTime:     "10:00",
		EndTime:       "12:00",
		PriorityFor:   "VIP",
		FallbackHours: 2,
		Enabled:       true,
	}
}

func TestEmptyPrioritySlotsFiresAfterGracePeriod(t *testing.T) {
	in := RuleInputs{
		Now:    dayAt(ruleTuesday, 14, 0), // window ended 12:00, grace 2h elapsed
		Blocks: []models.PriorityBlock{vipTuesdayBlock()},
	}

	candidates := EmptyPrioritySlots(in)
	require.Len(t, candidates, 1)
	assert.Equal(t, models.NotificationTypeEmptyPrioritySlot, candidates[0].Type)
	assert.Equal(t, models.NotificationPriorityHigh, candidates[0].Priority)
	assert.Equal(t, "empty_priority_slot:block:vip-block:2026-01-06", candidates[0].DedupeKey)
	assert.Contains(t, candidates[0].Title, "VIP")
}

func TestEmptyPrioritySlotsWaitsOutTheGracePeriod(t *testing.T) {
	in := RuleInputs{
		Now:    dayAt(ruleTuesday, 13, 30), // inside the 2h fallback window
		Blocks: []models.PriorityBlock{vipTuesdayBlock()},
	}
	assert.Empty(t, EmptyPrioritySlots(in))
}

func TestEmptyPrioritySlotsSuppressedByBookedJob(t *testing.T) {
	booked := dayAt(ruleTuesday, 10, 30)
	in := RuleInputs{
		Now:    dayAt(ruleTuesday, 14, 0),
		Blocks: []models.PriorityBlock{vipTuesdayBlock()},
		Booked: []models.Job{
			{ID: "job-1", Status: models.JobStatusConfirmed, ScheduledAt: &booked},
		},
	}
	assert.Empty(t, EmptyPrioritySlots(in))
}

func TestEmptyPrioritySlotsIgnoresOtherDaysAndDisabledBlocks(t *testing.T) {
	disabled := vipTuesdayBlock()
	disabled.Enabled = false

	in := RuleInputs{
		Now:    dayAt(ruleMonday, 14, 0), // block only applies on Tuesday
		Blocks: []models.PriorityBlock{vipTuesdayBlock(), disabled},
	}
	assert.Empty(t, EmptyPrioritySlots(in))
}

func TestCustomerOverdueFlagsIdleClientsWithoutUpcomingWork(t *testing.T) {
	lastVisit := dayAt(ruleMonday, 9, 0).AddDate(0, 0, -90)
	recentVisit := dayAt(ruleMonday, 9, 0).AddDate(0, 0, -10)

	in := RuleInputs{
		Now:          dayAt(ruleMonday, 9, 0),
		OverdueAfter: 60 * 24 * time.Hour,
		Clients: []models.ClientActivity{
			{Client: models.Client{ID: "idle", Name: "Dana Reyes"}, LastCompletedAt: &lastVisit},
			{Client: models.Client{ID: "rebooked", Name: "Lee Park"}, LastCompletedAt: &lastVisit, UpcomingJobs: 1},
			{Client: models.Client{ID: "recent", Name: "Ana Silva"}, LastCompletedAt: &recentVisit},
			{Client: models.Client{ID: "never", Name: "New Client"}},
		},
	}

	candidates := CustomerOverdue(in)
	require.Len(t, candidates, 1)
	assert.Equal(t, "customer_overdue:client:idle", candidates[0].DedupeKey)
	assert.Equal(t, models.NotificationPriorityMedium, candidates[0].Priority)
	assert.Contains(t, candidates[0].Message, "90 days")
}

func TestGapOpportunitiesFlagsGapsBorderingBookings(t *testing.T) {
	scheduled := dayAt(ruleMonday, 10, 0)
	bookedJob := models.Job{
		ID:              "job-1",
		Title:           "Hedge trim",
		Location:        "12 Elm St, Springfield",
		DurationMinutes: 60,
		Status:          models.JobStatusConfirmed,
		ScheduledAt:     &scheduled,
	}
	model := schedule.BuildPlanModel(schedule.PlanInputs{
		Hours: models.WeekHours{
			time.Monday: {Weekday: time.Monday, OpenTime: "09:00", CloseTime: "17:00"},
		},
		Booked: []models.Job{bookedJob},
	}, schedule.PlanOptions{
		Start:       ruleMonday,
		HorizonDays: 1,
		Buffer:      30 * time.Minute,
	})

	in := RuleInputs{
		Now:    dayAt(ruleMonday, 8, 0),
		Booked: []models.Job{bookedJob},
		Model:  model,
		MinGap: 60 * time.Minute,
	}

	// Booking occupies [10:00, 11:30) with buffer, leaving a 60 minute gap
	// before it and the rest of the day after it.
	candidates := GapOpportunities(in)
	require.Len(t, candidates, 2)
	assert.Equal(t, "gap_opportunity:gap:2026-01-05:09:00", candidates[0].DedupeKey)
	assert.Equal(t, "gap_opportunity:gap:2026-01-05:11:30", candidates[1].DedupeKey)
	assert.Equal(t, models.NotificationPriorityLow, candidates[0].Priority)
	assert.Contains(t, candidates[0].Message, "Hedge trim")
	assert.Contains(t, candidates[0].Message, "12 Elm St", "message should carry the rough area, not the full address")
	assert.NotContains(t, candidates[0].Message, "Springfield")
}

func TestGapOpportunitiesIgnoresShortAndDetachedGaps(t *testing.T) {
	scheduled := dayAt(ruleMonday, 10, 0)
	bookedJob := models.Job{
		ID:              "job-1",
		Title:           "Hedge trim",
		DurationMinutes: 60,
		Status:          models.JobStatusConfirmed,
		ScheduledAt:     &scheduled,
	}
	model := schedule.BuildPlanModel(schedule.PlanInputs{
		Hours: models.WeekHours{
			time.Monday:  {Weekday: time.Monday, OpenTime: "09:00", CloseTime: "17:00"},
			time.Tuesday: {Weekday: time.Tuesday, OpenTime: "09:00", CloseTime: "17:00"},
		},
		Booked: []models.Job{bookedJob},
	}, schedule.PlanOptions{
		Start:       ruleMonday,
		HorizonDays: 2,
		Buffer:      30 * time.Minute,
	})

	in := RuleInputs{
		Now:    dayAt(ruleMonday, 8, 0),
		Booked: []models.Job{bookedJob},
		Model:  model,
		MinGap: 90 * time.Minute,
	}

	// The 60 minute pre-booking gap is under the threshold, and Tuesday's
	// fully open day touches no booking at all.
	candidates := GapOpportunities(in)
	require.Len(t, candidates, 1)
	assert.Equal(t, "gap_opportunity:gap:2026-01-05:11:30", candidates[0].DedupeKey)
}
