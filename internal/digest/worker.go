package digest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/kalambet/huddle/internal/standup"
	"github.com/kalambet/huddle/internal/storage"
)

// Job types drained by Worker.
const (
	JobTeamInsight     = "team_insight"
	JobPersonalInsight = "personal_insight"
)

// JobStore abstracts the job queue operations.
type JobStore interface {
	ClaimNextJob(types []string) (*storage.Job, error)
	CompleteJob(id string) error
	FailJob(id string, errMsg string) error
}

// Warmer computes and caches insights.
type Warmer interface {
	TeamInsight(ctx context.Context, teamID, date, provider string, refresh bool) (standup.TeamInsight, error)
	PersonalInsight(ctx context.Context, standupID, provider string, refresh bool) (standup.PersonalInsight, error)
}

type jobPayload struct {
	TeamID    string `json:"team_id,omitempty"`
	Date      string `json:"date,omitempty"`
	StandupID string `json:"standup_id,omitempty"`
	Provider  string `json:"provider,omitempty"`
}

// PersonalJob builds a queue entry that warms one standup's insight.
func PersonalJob(standupID string) storage.Job {
	payload, _ := json.Marshal(jobPayload{StandupID: standupID})
	return storage.Job{Type: JobPersonalInsight, PayloadJSON: string(payload)}
}

// Worker processes insight jobs from the SQLite job queue.
type Worker struct {
	store  JobStore
	warmer Warmer
	poll   time.Duration
	logger *slog.Logger
}

// NewWorker creates a Worker. If pollInterval is <= 0, it defaults to 500ms.
func NewWorker(store JobStore, warmer Warmer, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		store:  store,
		warmer: warmer,
		poll:   pollInterval,
		logger: slog.Default(),
	}
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single job. It reports whether a job was
// processed, successfully or not.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob([]string{JobTeamInsight, JobPersonalInsight})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	if err := w.process(ctx, job); err != nil {
		w.logger.Warn("job failed", "job_id", job.ID, "type", job.Type, "attempt", job.Attempts+1, "error", err)
		if failErr := w.store.FailJob(job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
		}
		return true, nil
	}

	if err := w.store.CompleteJob(job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	return true, nil
}

func (w *Worker) process(ctx context.Context, job *storage.Job) error {
	var p jobPayload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &p); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}

	switch job.Type {
	case JobTeamInsight:
		if p.TeamID == "" {
			return fmt.Errorf("team_insight job %s has no team_id", job.ID)
		}
		insight, err := w.warmer.TeamInsight(ctx, p.TeamID, p.Date, p.Provider, true)
		if err != nil {
			return err
		}
		w.logger.Info("team insight warmed", "team", p.TeamID, "date", p.Date, "syncs", len(insight.SuggestedSyncs))
	case JobPersonalInsight:
		if p.StandupID == "" {
			return fmt.Errorf("personal_insight job %s has no standup_id", job.ID)
		}
		if _, err := w.warmer.PersonalInsight(ctx, p.StandupID, p.Provider, false); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported job type %q", job.Type)
	}
	return nil
}
