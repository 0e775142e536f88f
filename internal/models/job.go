package models

import (
	"time"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusConfirmed JobStatus = "confirmed"
	JobStatusCompleted JobStatus = "completed"
	JobStatusCanceled  JobStatus = "canceled"
)

// Job is a unit of billable work for a client. scheduled_at is nil until the
// applier (or an operator) books it; completion and cancellation are driven by
// the job-management collaborators, never by the scheduling core.
type Job struct {
	ID               string     `json:"id" db:"id"`
	BusinessID       string     `json:"business_id" db:"business_id"`
	ClientID         string     `json:"client_id" db:"client_id"`
	Title            string     `json:"title" db:"title"`
	Category         string     `json:"category" db:"category"`
	Location         string     `json:"location" db:"location"`
	DurationMinutes  int        `json:"duration_minutes" db:"duration_minutes"`
	ValueCents       int64      `json:"value_cents" db:"value_cents"`
	Status           JobStatus  `json:"status" db:"status"`
	ScheduledAt      *time.Time `json:"scheduled_at" db:"scheduled_at"`
	WeatherSensitive bool       `json:"weather_sensitive" db:"weather_sensitive"`
	CompletedAt      *time.Time `json:"completed_at" db:"completed_at"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// Duration returns the job length as a time.Duration.
func (j Job) Duration() time.Duration {
	return time.Duration(j.DurationMinutes) * time.Minute
}

type Client struct {
	ID         string    `json:"id" db:"id"`
	BusinessID string    `json:"business_id" db:"business_id"`
	Name       string    `json:"name" db:"name"`
	Email      string    `json:"email" db:"email"`
	Phone      string    `json:"phone" db:"phone"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// ClientActivity is the per-client view the overdue rule evaluates: when we
// last finished work for them and whether anything is already on the books.
type ClientActivity struct {
	Client
	LastCompletedAt *time.Time `json:"last_completed_at" db:"last_completed_at"`
	UpcomingJobs    int        `json:"upcoming_jobs" db:"upcoming_jobs"`
}

type TeamMember struct {
	ID         string `json:"id" db:"id"`
	BusinessID string `json:"business_id" db:"business_id"`
	Name       string `json:"name" db:"name"`
	Role       string `json:"role" db:"role"`
	Active     bool   `json:"active" db:"active"`
}

// Assignment links a scheduled job to a team member. The (job_id,
// team_member_id) pair is the primary key, which is what makes re-applying an
// identical proposal a no-op.
type Assignment struct {
	JobID        string    `json:"job_id" db:"job_id"`
	TeamMemberID string    `json:"team_member_id" db:"team_member_id"`
	BusinessID   string    `json:"business_id" db:"business_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
