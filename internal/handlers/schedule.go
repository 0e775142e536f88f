package handlers

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/fieldops/dispatch-api/internal/authz"
	"github.com/fieldops/dispatch-api/internal/schedule"
)

type ScheduleHandler struct {
	planner *schedule.Planner
	logger  zerolog.Logger
}

func NewScheduleHandler(planner *schedule.Planner, logger zerolog.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		planner: planner,
		logger:  logger.With().Str("handler", "schedule").Logger(),
	}
}

// RunOptimization executes the full schedule pipeline for the tenant. With
// ?dry_run=true the proposal is validated and returned without being applied.
func (h *ScheduleHandler) RunOptimization(w http.ResponseWriter, r *http.Request) {
	businessID, ok := authz.BusinessIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing business context", http.StatusUnauthorized)
		return
	}

	dryRun := false
	if raw := r.URL.Query().Get("dry_run"); raw != "" {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			dryRun = parsed
		}
	}

	report, err := h.planner.Run(r.Context(), businessID, dryRun)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		h.logger.Error().Err(err).Str("business_id", businessID).Msg("optimization run failed")
		http.Error(w, "Failed to run schedule optimization", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, report)
}
