package schedule

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/fieldops/dispatch-api/internal/models"
	"github.com/fieldops/dispatch-api/internal/repository"
)

// Snapshot is one request's self-contained view of a business's scheduling
// state. Runs never share mutable state; every invocation loads its own.
type Snapshot struct {
	Unscheduled []models.Job
	Booked      []models.Job
	Blocks      []models.PriorityBlock
	Model       PlanModel
}

// RunReport is the response body of a full pipeline run.
type RunReport struct {
	Summary models.RunSummary   `json:"summary"`
	Apply   *models.ApplyResult `json:"apply,omitempty"`
	DryRun  bool                `json:"dry_run"`
}

// Planner wires the schedule pipeline together: load collaborator data, build
// the constraint model, propose, validate, apply.
type Planner struct {
	jobs      repository.JobRepository
	team      repository.TeamRepository
	settings  repository.SettingsRepository
	weather   repository.WeatherRepository
	optimizer *Optimizer
	applier   *Applier
	opts      PlanOptions
	now       func() time.Time
	logger    zerolog.Logger
}

func NewPlanner(
	jobs repository.JobRepository,
	team repository.TeamRepository,
	settings repository.SettingsRepository,
	weather repository.WeatherRepository,
	optimizer *Optimizer,
	applier *Applier,
	opts PlanOptions,
	logger zerolog.Logger,
) *Planner {
	return &Planner{
		jobs:      jobs,
		team:      team,
		settings:  settings,
		weather:   weather,
		optimizer: optimizer,
		applier:   applier,
		opts:      opts,
		now:       time.Now,
		logger:    logger.With().Str("component", "planner").Logger(),
	}
}

// Snapshot loads the planning inputs and builds the constraint model. Missing
// weather or team data is not an error; the model degrades to permissive
// defaults.
func (p *Planner) Snapshot(ctx context.Context, businessID string) (Snapshot, error) {
	now := p.now()
	horizon := p.opts.HorizonDays
	if horizon <= 0 {
		horizon = 7
	}
	from := midnight(now)
	to := from.AddDate(0, 0, horizon)

	unscheduled, err := p.jobs.ListUnscheduled(ctx, businessID)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "load unscheduled jobs")
	}
	booked, err := p.jobs.ListBookedBetween(ctx, businessID, from, to)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "load booked jobs")
	}
	assignments, err := p.jobs.ListAssignmentsBetween(ctx, businessID, from, to)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "load assignments")
	}
	hours, err := p.settings.GetWeekHours(ctx, businessID)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "load business hours")
	}
	blocks, err := p.settings.ListPriorityBlocks(ctx, businessID)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "load priority blocks")
	}

	team, err := p.team.ListActiveMembers(ctx, businessID)
	if err != nil {
		p.logger.Warn().Err(err).Msg("team roster unavailable, planning without team constraints")
		team = nil
	}
	forecast, err := p.weather.ListBetween(ctx, businessID, from, to)
	if err != nil {
		p.logger.Warn().Err(err).Msg("weather forecast unavailable, planning without rain constraints")
		forecast = nil
	}

	opts := p.opts
	opts.Start = now
	model := BuildPlanModel(PlanInputs{
		Booked:      booked,
		Assignments: assignments,
		Team:        team,
		Hours:       hours,
		Blocks:      blocks,
		Weather:     forecast,
	}, opts)

	return Snapshot{
		Unscheduled: unscheduled,
		Booked:      booked,
		Blocks:      blocks,
		Model:       model,
	}, nil
}

// Run executes the full pipeline for one business. With dryRun the proposal
// is validated and summarized but nothing is written.
func (p *Planner) Run(ctx context.Context, businessID string, dryRun bool) (RunReport, error) {
	snap, err := p.Snapshot(ctx, businessID)
	if err != nil {
		return RunReport{}, err
	}

	summary, err := p.optimizer.Run(ctx, snap.Unscheduled, snap.Model)
	if err != nil {
		return RunReport{}, err
	}

	report := RunReport{Summary: summary, DryRun: dryRun}
	if dryRun {
		return report, nil
	}

	result, err := p.applier.Apply(ctx, businessID, summary.Accepted)
	if err != nil {
		return RunReport{}, err
	}
	report.Apply = &result
	return report, nil
}
