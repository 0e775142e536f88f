package schedule

import (
	"context"

	"github.com/fieldops/dispatch-api/internal/models"
)

// Strategy proposes an assignment of unscheduled jobs to time slots. A
// proposal is untrusted output: every entry passes through ValidateProposal
// before anything is written, regardless of which strategy produced it.
type Strategy interface {
	Name() string
	Propose(ctx context.Context, jobs []models.Job, model PlanModel) (models.ScheduleProposal, error)
}
