package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/fieldops/dispatch-api/internal/authz"
	"github.com/fieldops/dispatch-api/internal/models"
	"github.com/fieldops/dispatch-api/internal/notification"
	"github.com/fieldops/dispatch-api/internal/repository"
	"github.com/fieldops/dispatch-api/internal/schedule"
)

type NotificationHandler struct {
	engine  *notification.Engine
	service notification.Service
	planner *schedule.Planner
	jobs    repository.JobRepository

	overdueAfter time.Duration
	minGap       time.Duration
	logger       zerolog.Logger
}

func NewNotificationHandler(
	engine *notification.Engine,
	service notification.Service,
	planner *schedule.Planner,
	jobs repository.JobRepository,
	overdueAfter, minGap time.Duration,
	logger zerolog.Logger,
) *NotificationHandler {
	return &NotificationHandler{
		engine:       engine,
		service:      service,
		planner:      planner,
		jobs:         jobs,
		overdueAfter: overdueAfter,
		minGap:       minGap,
		logger:       logger.With().Str("handler", "notification").Logger(),
	}
}

// List re-evaluates the detection rules and returns the active feed. The
// rules run on every dashboard load; dedupe keys keep repeated evaluation
// from stacking duplicates.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	businessID, ok := authz.BusinessIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing business context", http.StatusUnauthorized)
		return
	}

	limit := 25
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	snap, err := h.planner.Snapshot(r.Context(), businessID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load rule inputs")
		http.Error(w, "Failed to evaluate notifications", http.StatusInternalServerError)
		return
	}
	clients, err := h.jobs.ListClientActivity(r.Context(), businessID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load client activity")
		http.Error(w, "Failed to evaluate notifications", http.StatusInternalServerError)
		return
	}

	if _, err := h.engine.Run(r.Context(), businessID, notification.RuleInputs{
		Now:          time.Now(),
		Blocks:       snap.Blocks,
		Booked:       snap.Booked,
		Clients:      clients,
		Model:        snap.Model,
		OverdueAfter: h.overdueAfter,
		MinGap:       h.minGap,
	}); err != nil {
		h.logger.Error().Err(err).Msg("notification rule evaluation failed")
		http.Error(w, "Failed to evaluate notifications", http.StatusInternalServerError)
		return
	}

	notifications, err := h.service.ListActive(r.Context(), businessID, limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list notifications")
		http.Error(w, "Failed to list notifications", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": notifications,
	})
}

func (h *NotificationHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(businessID, id string) (models.Notification, error) {
		return h.service.Dismiss(r.Context(), businessID, id)
	})
}

func (h *NotificationHandler) Snooze(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Hours int `json:"hours"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	h.transition(w, r, func(businessID, id string) (models.Notification, error) {
		return h.service.Snooze(r.Context(), businessID, id, payload.Hours)
	})
}

func (h *NotificationHandler) MarkActed(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(businessID, id string) (models.Notification, error) {
		return h.service.MarkActed(r.Context(), businessID, id)
	})
}

func (h *NotificationHandler) transition(w http.ResponseWriter, r *http.Request, fn func(businessID, id string) (models.Notification, error)) {
	businessID, ok := authz.BusinessIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing business context", http.StatusUnauthorized)
		return
	}
	notifID := strings.TrimSpace(mux.Vars(r)["notificationID"])
	if notifID == "" {
		http.Error(w, "Notification ID is required", http.StatusBadRequest)
		return
	}

	notif, err := fn(businessID, notifID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		http.Error(w, "Notification not found", http.StatusNotFound)
	case errors.Is(err, notification.ErrTerminalState):
		http.Error(w, "Notification is already resolved", http.StatusConflict)
	case errors.Is(err, notification.ErrInvalidSnooze):
		http.Error(w, "Snooze hours must be positive", http.StatusBadRequest)
	case err != nil:
		h.logger.Error().Err(err).Str("notification_id", notifID).Msg("failed to update notification")
		http.Error(w, "Failed to update notification", http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusOK, notif)
	}
}
