package schedule

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/fieldops/dispatch-api/internal/models"
)

// Optimizer runs the configured strategy, falls back to the local greedy
// strategy when the remote one fails, and validates whatever came out. The
// strategy/validator split is deliberate: proposers are untrusted, the
// validator is not pluggable.
type Optimizer struct {
	remote Strategy // nil when no remote service is configured
	local  Strategy
	logger zerolog.Logger
}

func NewOptimizer(remote Strategy, logger zerolog.Logger) *Optimizer {
	return &Optimizer{
		remote: remote,
		local:  NewGreedyStrategy(),
		logger: logger.With().Str("component", "optimizer").Logger(),
	}
}

// Run produces a validated run summary. It returns an error only when the
// enclosing request is canceled; strategy failures degrade to the local
// fallback instead.
func (o *Optimizer) Run(ctx context.Context, jobs []models.Job, model PlanModel) (models.RunSummary, error) {
	proposal, err := o.propose(ctx, jobs, model)
	if err != nil {
		return models.RunSummary{}, err
	}

	accepted, skipped := ValidateProposal(proposal, jobs, model)

	summary := models.RunSummary{
		Strategy: proposal.Strategy,
		Proposed: len(proposal.Entries),
		Accepted: accepted,
		Skipped:  skipped,
	}
	valueByJob := make(map[string]int64, len(jobs))
	for _, j := range jobs {
		valueByJob[j.ID] = j.ValueCents
	}
	for _, entry := range accepted {
		summary.TotalValueCents += valueByJob[entry.JobID]
	}

	o.logger.Info().
		Str("strategy", summary.Strategy).
		Int("proposed", summary.Proposed).
		Int("accepted", len(accepted)).
		Int("skipped", len(skipped)).
		Msg("optimization run complete")
	return summary, nil
}

func (o *Optimizer) propose(ctx context.Context, jobs []models.Job, model PlanModel) (models.ScheduleProposal, error) {
	if o.remote != nil {
		proposal, err := o.remote.Propose(ctx, jobs, model)
		if err == nil {
			return proposal, nil
		}
		if ctx.Err() != nil {
			return models.ScheduleProposal{}, ctx.Err()
		}
		o.logger.Warn().Err(err).Msg("remote strategy failed, falling back to local greedy")
	}
	return o.local.Propose(ctx, jobs, model)
}
