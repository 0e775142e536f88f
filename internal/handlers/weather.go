package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldops/dispatch-api/internal/authz"
	"github.com/fieldops/dispatch-api/internal/models"
	"github.com/fieldops/dispatch-api/internal/repository"
)

type WeatherHandler struct {
	repo   repository.WeatherRepository
	logger zerolog.Logger
}

func NewWeatherHandler(repo repository.WeatherRepository, logger zerolog.Logger) *WeatherHandler {
	return &WeatherHandler{
		repo:   repo,
		logger: logger.With().Str("handler", "weather").Logger(),
	}
}

// UpsertForecast ingests the short-term forecast pushed by the weather
// collaborator, keyed by date.
func (h *WeatherHandler) UpsertForecast(w http.ResponseWriter, r *http.Request) {
	businessID, ok := authz.BusinessIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing business context", http.StatusUnauthorized)
		return
	}

	var payload map[string]struct {
		Condition       string `json:"condition"`
		RainProbability int    `json:"rain_probability"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	var days []models.WeatherDay
	for rawDate, entry := range payload {
		date, err := time.Parse("2006-01-02", rawDate)
		if err != nil {
			http.Error(w, "Invalid forecast date: "+rawDate, http.StatusBadRequest)
			return
		}
		if entry.RainProbability < 0 || entry.RainProbability > 100 {
			http.Error(w, "Rain probability must be 0-100", http.StatusBadRequest)
			return
		}
		days = append(days, models.WeatherDay{
			BusinessID:      businessID,
			Date:            date,
			Condition:       entry.Condition,
			RainProbability: entry.RainProbability,
		})
	}

	if err := h.repo.UpsertForecast(r.Context(), businessID, days); err != nil {
		h.logger.Error().Err(err).Msg("failed to upsert forecast")
		http.Error(w, "Failed to store forecast", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"days": len(days)})
}
