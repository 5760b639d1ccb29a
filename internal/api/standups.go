package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/huddle/internal/digest"
	"github.com/kalambet/huddle/internal/standup"
	"github.com/kalambet/huddle/internal/storage"
)

// StandupRequest is the body of POST /v1/standups.
type StandupRequest struct {
	TeamID    string `json:"teamId"`
	UserID    string `json:"userId"`
	Author    string `json:"author"`
	Date      string `json:"date"`
	Yesterday string `json:"yesterday"`
	Today     string `json:"today"`
	Blockers  string `json:"blockers"`
}

func handleCreateStandup(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req StandupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.TeamID) == "" || strings.TrimSpace(req.Author) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "teamId and author are required")
			return
		}
		if req.Date == "" {
			req.Date = deps.Today()
		}
		if _, err := time.Parse("2006-01-02", req.Date); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "date must be YYYY-MM-DD")
			return
		}

		saved, err := deps.Store.SaveStandup(standup.Record{
			TeamID:    strings.TrimSpace(req.TeamID),
			UserID:    strings.TrimSpace(req.UserID),
			Author:    strings.TrimSpace(req.Author),
			Date:      req.Date,
			Yesterday: req.Yesterday,
			Today:     req.Today,
			Blockers:  req.Blockers,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		// The day's team view is stale once a new entry lands.
		if err := deps.Store.DeleteInsightsForStandup(storage.InsightKey{TeamID: saved.TeamID, Date: saved.Date}); err != nil {
			slog.Warn("could not invalidate team insight", "team", saved.TeamID, "date", saved.Date, "error", err)
		}
		if _, err := deps.Store.EnqueueJob(digest.PersonalJob(saved.ID)); err != nil {
			slog.Warn("could not queue personal insight", "standup", saved.ID, "error", err)
		}

		writeJSON(w, http.StatusCreated, saved)
	}
}

func handleListStandups(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f := storage.StandupFilter{
			TeamID: q.Get("teamId"),
			UserID: q.Get("userId"),
			Date:   q.Get("date"),
			From:   q.Get("from"),
			To:     q.Get("to"),
			Limit:  100,
		}
		if v := q.Get("limit"); v != "" {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil || n == 0 || n > 500 {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "limit must be between 1 and 500")
				return
			}
			f.Limit = n
		}
		if f.TeamID == "" && f.UserID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "teamId or userId is required")
			return
		}

		records, err := deps.Store.ListStandups(f)
		if err != nil {
			writeError(w, err)
			return
		}
		if records == nil {
			records = []standup.Record{}
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func handleGetStandup(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := deps.Store.GetStandup(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func handleDeleteStandup(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		rec, err := deps.Store.GetStandup(id)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := deps.Store.SoftDeleteStandup(id); err != nil {
			writeError(w, err)
			return
		}
		if err := deps.Store.DeleteInsightsForStandup(storage.InsightKey{StandupID: id, TeamID: rec.TeamID, Date: rec.Date}); err != nil {
			slog.Warn("could not invalidate insights", "standup", id, "error", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
