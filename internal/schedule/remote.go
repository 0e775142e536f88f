package schedule

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/fieldops/dispatch-api/internal/models"
)

// remoteAttempts caps calls per proposal at the initial request plus exactly
// one retry.
const remoteAttempts = 2

// RemoteStrategy asks an external reasoning service for a schedule proposal.
// The response is parsed, never trusted: validation downstream treats it the
// same as any other proposer. Timeouts, non-200s, and unparseable bodies all
// surface as errors so the optimizer can fall back to the local strategy.
type RemoteStrategy struct {
	url    string
	apiKey string

	timeout time.Duration
	client  *http.Client
	logger  zerolog.Logger
}

func NewRemoteStrategy(url, apiKey string, timeout time.Duration, logger zerolog.Logger) *RemoteStrategy {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &RemoteStrategy{
		url:     url,
		apiKey:  apiKey,
		timeout: timeout,
		client:  &http.Client{},
		logger:  logger.With().Str("component", "remote_strategy").Logger(),
	}
}

func (s *RemoteStrategy) Name() string { return "remote_heuristic" }

func (s *RemoteStrategy) Propose(ctx context.Context, jobs []models.Job, model PlanModel) (models.ScheduleProposal, error) {
	payload, err := json.Marshal(buildRemoteRequest(jobs, model))
	if err != nil {
		return models.ScheduleProposal{}, errors.Wrap(err, "marshal optimizer request")
	}

	var lastErr error
	for attempt := 1; attempt <= remoteAttempts; attempt++ {
		proposal, err := s.attempt(ctx, payload)
		if err == nil {
			proposal.Strategy = s.Name()
			return proposal, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			// Enclosing request canceled; don't burn the retry.
			return models.ScheduleProposal{}, ctx.Err()
		}
		s.logger.Warn().Err(err).Int("attempt", attempt).Msg("remote proposal attempt failed")
	}
	return models.ScheduleProposal{}, errors.Wrap(lastErr, "remote strategy exhausted retries")
}

func (s *RemoteStrategy) attempt(ctx context.Context, payload []byte) (models.ScheduleProposal, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return models.ScheduleProposal{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return models.ScheduleProposal{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return models.ScheduleProposal{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return models.ScheduleProposal{}, fmt.Errorf("optimizer service returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed remoteResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return models.ScheduleProposal{}, errors.Wrap(err, "unparseable optimizer response")
	}
	return parsed.toProposal()
}

// Request/response wire shapes for the remote optimizer contract.

type remoteRequest struct {
	UnscheduledJobs []remoteJob              `json:"unscheduled_jobs"`
	CurrentSchedule []remoteBooking          `json:"current_schedule"`
	PriorityBlocks  []remoteBlock            `json:"priority_blocks"`
	Weather         map[string]remoteWeather `json:"weather"`
	Team            []remoteMember           `json:"team"`
	BusinessHours   map[string]remoteHours   `json:"business_hours"`
}

type remoteJob struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	DurationMin int     `json:"duration_min"`
	Value       float64 `json:"value"`
	ClientName  string  `json:"client_name,omitempty"`
	Location    string  `json:"location,omitempty"`
}

type remoteBooking struct {
	ScheduledAt time.Time `json:"scheduled_at"`
	Title       string    `json:"title"`
	DurationMin int       `json:"duration_min"`
}

type remoteBlock struct {
	Days        []string `json:"days"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	PriorityFor string   `json:"priority_for"`
}

type remoteWeather struct {
	Condition       string `json:"condition"`
	RainProbability int    `json:"rain_probability"`
}

type remoteMember struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type remoteHours struct {
	Open   string `json:"open,omitempty"`
	Close  string `json:"close,omitempty"`
	Closed bool   `json:"closed,omitempty"`
}

type remoteResponse struct {
	Schedule []remoteScheduleEntry `json:"schedule"`
	Summary  remoteSummary         `json:"summary"`
}

type remoteScheduleEntry struct {
	JobID       string `json:"job_id"`
	ScheduledAt string `json:"scheduled_at"`
	AssignedTo  string `json:"assigned_to,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

type remoteSummary struct {
	JobsScheduled       int     `json:"jobs_scheduled"`
	TotalValue          float64 `json:"total_value"`
	PrioritySlotsFilled int     `json:"priority_slots_filled"`
	Notes               string  `json:"notes,omitempty"`
}

func (r remoteResponse) toProposal() (models.ScheduleProposal, error) {
	proposal := models.ScheduleProposal{Notes: r.Summary.Notes}
	for _, entry := range r.Schedule {
		if strings.TrimSpace(entry.JobID) == "" {
			return models.ScheduleProposal{}, fmt.Errorf("schedule entry missing job_id")
		}
		at, err := time.Parse(time.RFC3339, entry.ScheduledAt)
		if err != nil {
			return models.ScheduleProposal{}, errors.Wrapf(err, "schedule entry for job %s has bad scheduled_at", entry.JobID)
		}
		proposal.Entries = append(proposal.Entries, models.ProposalEntry{
			JobID:       entry.JobID,
			ScheduledAt: at,
			AssignedTo:  entry.AssignedTo,
			Reason:      entry.Reason,
		})
	}
	return proposal, nil
}

func buildRemoteRequest(jobs []models.Job, model PlanModel) remoteRequest {
	req := remoteRequest{
		Weather:       make(map[string]remoteWeather),
		BusinessHours: make(map[string]remoteHours),
	}

	for _, job := range jobs {
		req.UnscheduledJobs = append(req.UnscheduledJobs, remoteJob{
			ID:          job.ID,
			Title:       job.Title,
			DurationMin: job.DurationMinutes,
			Value:       float64(job.ValueCents) / 100,
			Location:    job.Location,
		})
	}

	for _, booked := range model.Booked {
		req.CurrentSchedule = append(req.CurrentSchedule, remoteBooking{
			ScheduledAt: booked.Start,
			Title:       booked.Title,
			DurationMin: int(booked.Duration / time.Minute),
		})
	}

	for _, block := range model.Blocks {
		rb := remoteBlock{Start: block.StartTime, End: block.EndTime, PriorityFor: block.PriorityFor}
		for _, d := range block.Days {
			rb.Days = append(rb.Days, strings.ToLower(d.String()))
		}
		req.PriorityBlocks = append(req.PriorityBlocks, rb)
	}

	for date, w := range model.Weather {
		req.Weather[date] = remoteWeather{Condition: w.Condition, RainProbability: w.RainProbability}
	}

	for _, m := range model.Team {
		req.Team = append(req.Team, remoteMember{ID: m.ID, Name: m.Name, Role: m.Role})
	}

	for day := time.Sunday; day <= time.Saturday; day++ {
		h := model.Hours.For(day)
		key := strings.ToLower(day.String())
		if h.Closed {
			req.BusinessHours[key] = remoteHours{Closed: true}
			continue
		}
		req.BusinessHours[key] = remoteHours{Open: h.OpenTime, Close: h.CloseTime}
	}

	return req
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
