package notification

import (
	"context"

	"github.com/fieldops/dispatch-api/internal/models"
)

// Notifier delivers a persisted notification over an out-of-band channel.
// Delivery is best-effort; failures are logged by the engine, never surfaced
// to the request that triggered the run.
type Notifier interface {
	Notify(ctx context.Context, notification models.Notification) error
}
