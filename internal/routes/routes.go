package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fieldops/dispatch-api/internal/handlers"
)

// NewRouter sets up the API routes. Everything under /api requires a tenant
// token; /health does not.
func NewRouter(
	scheduleHandler *handlers.ScheduleHandler,
	notificationHandler *handlers.NotificationHandler,
	weatherHandler *handlers.WeatherHandler,
	auth func(http.Handler) http.Handler,
) *mux.Router {
	router := mux.NewRouter()

	// Health check route
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(auth)

	api.HandleFunc("/schedule/runs", scheduleHandler.RunOptimization).Methods(http.MethodPost)

	api.HandleFunc("/notifications", notificationHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{notificationID}/dismiss", notificationHandler.Dismiss).Methods(http.MethodPost)
	api.HandleFunc("/notifications/{notificationID}/snooze", notificationHandler.Snooze).Methods(http.MethodPost)
	api.HandleFunc("/notifications/{notificationID}/act", notificationHandler.MarkActed).Methods(http.MethodPost)

	api.HandleFunc("/weather", weatherHandler.UpsertForecast).Methods(http.MethodPut)

	return router
}
