package models

import (
	"time"
)

// PriorityBlock is a recurring reserved window for a category of high-value
// work. Days uses time.Weekday numbering (0 = Sunday). FallbackHours is the
// grace period after the window closes before it counts as having gone empty.
type PriorityBlock struct {
	ID            string         `json:"id" db:"id"`
	BusinessID    string         `json:"business_id" db:"business_id"`
	Days          []time.Weekday `json:"days"`
	StartTime     string         `json:"start_time" db:"start_time"` // "15:04"
	EndTime       string         `json:"end_time" db:"end_time"`
	PriorityFor   string         `json:"priority_for" db:"priority_for"`
	FallbackHours int            `json:"fallback_hours" db:"fallback_hours"`
	Enabled       bool           `json:"enabled" db:"enabled"`
}

// AppliesOn reports whether the block recurs on the given weekday.
func (b PriorityBlock) AppliesOn(day time.Weekday) bool {
	for _, d := range b.Days {
		if d == day {
			return true
		}
	}
	return false
}

// DayHours is one weekday's opening window. A malformed or missing row is
// represented as Closed.
type DayHours struct {
	Weekday   time.Weekday `json:"weekday" db:"weekday"`
	OpenTime  string       `json:"open_time" db:"open_time"` // "15:04"
	CloseTime string       `json:"close_time" db:"close_time"`
	Closed    bool         `json:"closed" db:"closed"`
}

// WeekHours maps weekday to opening hours. Lookup of an absent weekday yields
// a closed day.
type WeekHours map[time.Weekday]DayHours

func (w WeekHours) For(day time.Weekday) DayHours {
	if h, ok := w[day]; ok {
		return h
	}
	return DayHours{Weekday: day, Closed: true}
}

type WeatherDay struct {
	BusinessID      string    `json:"business_id" db:"business_id"`
	Date            time.Time `json:"date" db:"date"`
	Condition       string    `json:"condition" db:"condition"`
	RainProbability int       `json:"rain_probability" db:"rain_probability"`
}

// ProposalEntry is one candidate booking. AssignedTo may be empty when the
// strategy leaves crew selection to the dispatcher.
type ProposalEntry struct {
	JobID       string    `json:"job_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	AssignedTo  string    `json:"assigned_to,omitempty"`
	Reason      string    `json:"reason,omitempty"`
}

// ScheduleProposal is the transient output of one optimization strategy run.
// It is never persisted; only entries that survive validation reach the
// applier.
type ScheduleProposal struct {
	Entries  []ProposalEntry `json:"entries"`
	Strategy string          `json:"strategy"`
	Notes    string          `json:"notes,omitempty"`
}

// SkippedEntry records a proposal entry rejected by validation or by the
// write-time conflict check, with the reason it was dropped.
type SkippedEntry struct {
	JobID  string `json:"job_id"`
	Reason string `json:"reason"`
}

// RunSummary is what an optimization run reports back to the caller: which
// strategy produced the proposal, what survived validation, and what was
// dropped on the way.
type RunSummary struct {
	Strategy        string          `json:"strategy"`
	Proposed        int             `json:"proposed"`
	Accepted        []ProposalEntry `json:"accepted"`
	Skipped         []SkippedEntry  `json:"skipped"`
	TotalValueCents int64           `json:"total_value_cents"`
}

// ApplyResult reports the outcome of writing a validated proposal: entries
// persisted, and entries skipped by the write-time overlap re-check.
type ApplyResult struct {
	Applied []ProposalEntry `json:"applied"`
	Skipped []SkippedEntry  `json:"skipped"`
}
