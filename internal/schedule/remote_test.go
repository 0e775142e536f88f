package schedule

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/dispatch-api/internal/models"
)

func remoteFixtureResponse(jobID string, scheduledAt time.Time) string {
	body, _ := json.Marshal(map[string]interface{}{
		"schedule": []map[string]interface{}{
			{"job_id": jobID, "scheduled_at": scheduledAt.Format(time.RFC3339), "reason": "heuristic pick"},
		},
		"summary": map[string]interface{}{
			"jobs_scheduled": 1, "total_value": 800.0, "priority_slots_filled": 0, "notes": "ok",
		},
	})
	return string(body)
}

func TestRemoteStrategyParsesProposal(t *testing.T) {
	slot := at(monday, 9, 0)
	var gotRequest remoteRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))
		w.Write([]byte(remoteFixtureResponse("job-1", slot)))
	}))
	defer server.Close()

	strategy := NewRemoteStrategy(server.URL, "secret", time.Second, zerolog.Nop())
	jobs := []models.Job{pendingJob("job-1", 60, 80000)}
	model := BuildPlanModel(PlanInputs{Hours: weekdayHours()}, PlanOptions{Start: monday, HorizonDays: 7})

	proposal, err := strategy.Propose(context.Background(), jobs, model)
	require.NoError(t, err)
	require.Len(t, proposal.Entries, 1)
	assert.Equal(t, "job-1", proposal.Entries[0].JobID)
	assert.True(t, slot.Equal(proposal.Entries[0].ScheduledAt))
	assert.Equal(t, "remote_heuristic", proposal.Strategy)

	// The wire request carries the full constraint model.
	require.Len(t, gotRequest.UnscheduledJobs, 1)
	assert.Equal(t, 800.0, gotRequest.UnscheduledJobs[0].Value)
	assert.Equal(t, remoteHours{Open: "09:00", Close: "17:00"}, gotRequest.BusinessHours["monday"])
	assert.Equal(t, remoteHours{Closed: true}, gotRequest.BusinessHours["saturday"])
}

func TestRemoteStrategyRetriesOnceThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	slot := at(monday, 9, 0)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(remoteFixtureResponse("job-1", slot)))
	}))
	defer server.Close()

	strategy := NewRemoteStrategy(server.URL, "", time.Second, zerolog.Nop())
	model := BuildPlanModel(PlanInputs{Hours: weekdayHours()}, PlanOptions{Start: monday, HorizonDays: 7})

	proposal, err := strategy.Propose(context.Background(), []models.Job{pendingJob("job-1", 60, 80000)}, model)
	require.NoError(t, err)
	assert.Len(t, proposal.Entries, 1)
	assert.EqualValues(t, 2, calls.Load())
}

func TestRemoteStrategyGivesUpAfterOneRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	strategy := NewRemoteStrategy(server.URL, "", time.Second, zerolog.Nop())
	model := BuildPlanModel(PlanInputs{Hours: weekdayHours()}, PlanOptions{Start: monday, HorizonDays: 7})

	_, err := strategy.Propose(context.Background(), nil, model)
	require.Error(t, err)
	assert.EqualValues(t, 2, calls.Load(), "exactly one retry after the initial attempt")
}

func TestRemoteStrategyRejectsMalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "<html>upstream error</html>"},
		{name: "missing job id", body: `{"schedule":[{"scheduled_at":"2026-01-05T09:00:00Z"}],"summary":{}}`},
		{name: "bad timestamp", body: `{"schedule":[{"job_id":"job-1","scheduled_at":"next tuesday"}],"summary":{}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			strategy := NewRemoteStrategy(server.URL, "", time.Second, zerolog.Nop())
			model := BuildPlanModel(PlanInputs{Hours: weekdayHours()}, PlanOptions{Start: monday, HorizonDays: 7})

			_, err := strategy.Propose(context.Background(), nil, model)
			assert.Error(t, err)
		})
	}
}

func TestRemoteStrategyTimesOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server can notice the client disconnect and
		// cancel the request context; otherwise Close deadlocks on this handler.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer server.Close()

	strategy := NewRemoteStrategy(server.URL, "", 50*time.Millisecond, zerolog.Nop())
	model := BuildPlanModel(PlanInputs{Hours: weekdayHours()}, PlanOptions{Start: monday, HorizonDays: 7})

	start := time.Now()
	_, err := strategy.Propose(context.Background(), nil, model)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second, "both attempts should respect the per-attempt timeout")
}

func TestRemoteStrategyStopsOnCanceledContext(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	strategy := NewRemoteStrategy(server.URL, "", time.Second, zerolog.Nop())
	model := BuildPlanModel(PlanInputs{Hours: weekdayHours()}, PlanOptions{Start: monday, HorizonDays: 7})

	cancel()
	_, err := strategy.Propose(ctx, nil, model)
	require.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, calls.Load(), int32(1), "no retry once the enclosing request is gone")
}
