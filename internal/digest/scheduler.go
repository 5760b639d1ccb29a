// Package digest precomputes insights in the background: a daily cron
// schedule enqueues jobs and a Worker drains the queue.
package digest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kalambet/huddle/internal/storage"
)

// Enqueuer adds jobs to the queue.
type Enqueuer interface {
	EnqueueJob(job storage.Job) (string, error)
}

// Scheduler enqueues a team_insight job per team once a day.
type Scheduler struct {
	cron   *cron.Cron
	store  Enqueuer
	teams  []string
	loc    *time.Location
	logger *slog.Logger
}

// Spec converts an "HH:MM" wall-clock time into a five-field cron spec.
func Spec(at string) (string, error) {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return "", fmt.Errorf("invalid digest time %q: %w", at, err)
	}
	return fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour()), nil
}

// NewScheduler registers the daily run at "HH:MM" in loc.
func NewScheduler(store Enqueuer, at string, loc *time.Location, teams []string) (*Scheduler, error) {
	if len(teams) == 0 {
		return nil, errors.New("digest: no teams configured")
	}
	spec, err := Spec(at)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}

	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		store:  store,
		teams:  teams,
		loc:    loc,
		logger: slog.Default(),
	}
	if _, err := s.cron.AddFunc(spec, func() {
		if err := s.Enqueue(time.Now().In(loc).Format("2006-01-02")); err != nil {
			s.logger.Error("digest enqueue failed", "error", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("adding cron job: %w", err)
	}
	return s, nil
}

// Enqueue adds one team_insight job per configured team for date.
func (s *Scheduler) Enqueue(date string) error {
	var errs []error
	for _, team := range s.teams {
		payload, err := json.Marshal(jobPayload{TeamID: team, Date: date})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		id, err := s.store.EnqueueJob(storage.Job{Type: JobTeamInsight, PayloadJSON: string(payload)})
		if err != nil {
			errs = append(errs, fmt.Errorf("enqueue %s: %w", team, err))
			continue
		}
		s.logger.Info("digest job enqueued", "job_id", id, "team", team, "date", date)
	}
	return errors.Join(errs...)
}

// Run starts the schedule and blocks until ctx is cancelled, then waits for
// a running enqueue to finish.
func (s *Scheduler) Run(ctx context.Context) {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
}

// Next reports the next scheduled run.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Schedule.Next(time.Now().In(s.loc))
}
