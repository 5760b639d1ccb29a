package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kalambet/huddle/internal/insights"
	"github.com/kalambet/huddle/internal/standup"
	"github.com/kalambet/huddle/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// InsightService computes and caches insights.
type InsightService interface {
	TeamInsight(ctx context.Context, teamID, date, provider string, refresh bool) (standup.TeamInsight, error)
	PersonalInsight(ctx context.Context, standupID, provider string, refresh bool) (standup.PersonalInsight, error)
	Streak(teamID, userID string) (int, error)
	Trends(ctx context.Context, teamID, from, to string) (insights.Trends, error)
}

// StandupStore persists standups and queues background work.
type StandupStore interface {
	SaveStandup(r standup.Record) (standup.Record, error)
	GetStandup(id string) (standup.Record, error)
	ListStandups(f storage.StandupFilter) ([]standup.Record, error)
	SoftDeleteStandup(id string) error
	DeleteInsightsForStandup(k storage.InsightKey) error
	EnqueueJob(job storage.Job) (string, error)
}

type AppDeps struct {
	Insights InsightService
	Store    StandupStore
	Token    string
	// Today returns the current date for standups posted without one.
	Today func() string
	// Timeout bounds insight requests; zero means no limit beyond the model's.
	Timeout time.Duration
}

// NewRouter serves /health unauthenticated and everything under /v1 behind
// bearer auth.
func NewRouter(deps AppDeps) http.Handler {
	if deps.Today == nil {
		deps.Today = func() string { return time.Now().UTC().Format("2006-01-02") }
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		if deps.Timeout > 0 {
			r.Use(middleware.Timeout(deps.Timeout))
		}

		r.Get("/insights/team", handleTeamInsight(deps))
		r.Get("/insights/personal/{standupID}", handlePersonalInsight(deps))
		r.Get("/insights/streak", handleStreak(deps))
		r.Get("/insights/trends", handleTrends(deps))

		r.Post("/standups", handleCreateStandup(deps))
		r.Get("/standups", handleListStandups(deps))
		r.Get("/standups/{id}", handleGetStandup(deps))
		r.Delete("/standups/{id}", handleDeleteStandup(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func refreshParam(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	return v
}

func handleTeamInsight(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		teamID := strings.TrimSpace(q.Get("teamId"))
		if teamID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "teamId is required")
			return
		}

		insight, err := deps.Insights.TeamInsight(r.Context(), teamID, q.Get("date"), q.Get("provider"), refreshParam(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, insight)
	}
}

func handlePersonalInsight(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "standupID")
		insight, err := deps.Insights.PersonalInsight(r.Context(), id, r.URL.Query().Get("provider"), refreshParam(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, insight)
	}
}

func handleStreak(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		teamID, userID := q.Get("teamId"), q.Get("userId")
		if teamID == "" || userID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "teamId and userId are required")
			return
		}
		n, err := deps.Insights.Streak(teamID, userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"streak": n})
	}
}

func handleTrends(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		teamID, from, to := q.Get("teamId"), q.Get("from"), q.Get("to")
		if teamID == "" || from == "" || to == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "teamId, from and to are required")
			return
		}
		if from > to {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "from must not be after to")
			return
		}
		t, err := deps.Insights.Trends(r.Context(), teamID, from, to)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}
