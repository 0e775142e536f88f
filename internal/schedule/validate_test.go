package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/dispatch-api/internal/models"
)

func TestValidateDropsUnknownJobID(t *testing.T) {
	jobs := []models.Job{pendingJob("known", 60, 10000)}
	model := BuildPlanModel(PlanInputs{Hours: weekdayHours()}, PlanOptions{Start: monday, HorizonDays: 7})

	proposal := models.ScheduleProposal{Entries: []models.ProposalEntry{
		{JobID: "ghost", ScheduledAt: at(monday, 9, 0)},
		{JobID: "known", ScheduledAt: at(monday, 11, 0)},
	}}

	accepted, skipped := ValidateProposal(proposal, jobs, model)
	require.Len(t, accepted, 1)
	assert.Equal(t, "known", accepted[0].JobID)
	require.Len(t, skipped, 1)
	assert.Equal(t, "ghost", skipped[0].JobID)
	assert.Contains(t, skipped[0].Reason, "unknown job")
}

func TestValidateRejectsOutsideBusinessHours(t *testing.T) {
	jobs := []models.Job{
		pendingJob("early", 60, 10000),
		pendingJob("late", 120, 10000),
		pendingJob("weekend", 60, 10000),
	}
	model := BuildPlanModel(PlanInputs{Hours: weekdayHours()}, PlanOptions{Start: monday, HorizonDays: 7})

	saturday := monday.AddDate(0, 0, 5)
	proposal := models.ScheduleProposal{Entries: []models.ProposalEntry{
		{JobID: "early", ScheduledAt: at(monday, 8, 0)},
		{JobID: "late", ScheduledAt: at(monday, 16, 30)}, // runs past close
		{JobID: "weekend", ScheduledAt: at(saturday, 10, 0)},
	}}

	accepted, skipped := ValidateProposal(proposal, jobs, model)
	assert.Empty(t, accepted)
	require.Len(t, skipped, 3)
	assert.Contains(t, skipped[0].Reason, "outside business hours")
	assert.Contains(t, skipped[1].Reason, "outside business hours")
	assert.Contains(t, skipped[2].Reason, "closed")
}

func TestValidateRejectsOverlapWithExistingBooking(t *testing.T) {
	booked := at(monday, 10, 0)
	jobs := []models.Job{pendingJob("new", 60, 10000)}
	model := BuildPlanModel(PlanInputs{
		Hours: weekdayHours(),
		Booked: []models.Job{
			{ID: "existing", DurationMinutes: 60, Status: models.JobStatusConfirmed, ScheduledAt: &booked},
		},
	}, PlanOptions{Start: monday, HorizonDays: 7, Buffer: 30 * time.Minute})

	// 11:15 collides with the existing booking's trailing buffer (ends 11:30).
	proposal := models.ScheduleProposal{Entries: []models.ProposalEntry{
		{JobID: "new", ScheduledAt: at(monday, 11, 15)},
	}}

	accepted, skipped := ValidateProposal(proposal, jobs, model)
	assert.Empty(t, accepted)
	require.Len(t, skipped, 1)
	assert.Contains(t, skipped[0].Reason, "existing booking")
}

func TestValidateRejectsOverlappingProposalEntries(t *testing.T) {
	jobs := []models.Job{
		pendingJob("a", 60, 10000),
		pendingJob("b", 60, 10000),
	}
	model := BuildPlanModel(PlanInputs{Hours: weekdayHours()}, PlanOptions{Start: monday, HorizonDays: 7, Buffer: 30 * time.Minute})

	proposal := models.ScheduleProposal{Entries: []models.ProposalEntry{
		{JobID: "a", ScheduledAt: at(monday, 9, 0)},
		{JobID: "b", ScheduledAt: at(monday, 9, 30)},
	}}

	accepted, skipped := ValidateProposal(proposal, jobs, model)
	require.Len(t, accepted, 1)
	assert.Equal(t, "a", accepted[0].JobID)
	require.Len(t, skipped, 1)
	assert.Contains(t, skipped[0].Reason, "another proposed entry")
}

func TestValidateRejectsUnknownTeamMemberAndDuplicates(t *testing.T) {
	jobs := []models.Job{
		pendingJob("a", 60, 10000),
		pendingJob("b", 60, 10000),
	}
	model := BuildPlanModel(PlanInputs{
		Hours: weekdayHours(),
		Team:  []models.TeamMember{{ID: "member-1", Active: true}},
	}, PlanOptions{Start: monday, HorizonDays: 7})

	proposal := models.ScheduleProposal{Entries: []models.ProposalEntry{
		{JobID: "a", ScheduledAt: at(monday, 9, 0), AssignedTo: "member-1"},
		{JobID: "a", ScheduledAt: at(monday, 13, 0), AssignedTo: "member-1"},
		{JobID: "b", ScheduledAt: at(monday, 15, 0), AssignedTo: "stranger"},
	}}

	accepted, skipped := ValidateProposal(proposal, jobs, model)
	require.Len(t, accepted, 1)
	require.Len(t, skipped, 2)
	assert.Contains(t, skipped[0].Reason, "duplicate")
	assert.Contains(t, skipped[1].Reason, "team member")
}

func TestValidateRejectsNonPendingJob(t *testing.T) {
	done := pendingJob("done", 60, 10000)
	done.Status = models.JobStatusCompleted
	model := BuildPlanModel(PlanInputs{Hours: weekdayHours()}, PlanOptions{Start: monday, HorizonDays: 7})

	proposal := models.ScheduleProposal{Entries: []models.ProposalEntry{
		{JobID: "done", ScheduledAt: at(monday, 9, 0)},
	}}

	accepted, skipped := ValidateProposal(proposal, []models.Job{done}, model)
	assert.Empty(t, accepted)
	require.Len(t, skipped, 1)
	assert.Contains(t, skipped[0].Reason, "not schedulable")
}
