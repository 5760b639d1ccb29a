// Package insights serves team and personal insights backed by the standup
// store, caching each result until a refresh is requested.
package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/kalambet/huddle/internal/engine"
	"github.com/kalambet/huddle/internal/personal"
	"github.com/kalambet/huddle/internal/standup"
	"github.com/kalambet/huddle/internal/storage"
	"github.com/kalambet/huddle/internal/team"
)

// DefaultTimezone decides what "today" means for streaks and digests.
const DefaultTimezone = "Asia/Kolkata"

const (
	streakWindow = 90
	dateLayout   = "2006-01-02"

	defaultComputeTimeout = 5 * time.Minute
)

// TrendKeywords are matched as substrings of each standup's lowercased text.
var TrendKeywords = []string{"api", "env", "build", "deploy", "access", "review", "merge", "dependency"}

// Store is the persistence the service needs.
type Store interface {
	GetStandup(id string) (standup.Record, error)
	ListStandups(f storage.StandupFilter) ([]standup.Record, error)
	StandupDates(teamID, userID string, limit uint64) ([]string, error)
	DailyCounts(f storage.StandupFilter) ([]storage.DayCount, error)
	GetTeamInsight(teamID, date string) (storage.InsightRow, error)
	SaveTeamInsight(teamID, date, provider, resultJSON string) error
	GetPersonalInsight(standupID string) (storage.InsightRow, error)
	SavePersonalInsight(standupID, provider, resultJSON string) error
}

// Selector resolves a provider name to a model invoker.
type Selector interface {
	Select(provider string) (*engine.Invoker, error)
}

// Service computes insights on demand and caches them in the store.
type Service struct {
	store    Store
	models   Selector
	location *time.Location
	logger   *slog.Logger
	group    singleflight.Group

	computeTimeout time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithLocation sets the timezone used for "today".
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithLogger replaces slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithComputeTimeout bounds one shared insight computation, including both
// model attempts and caching.
func WithComputeTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.computeTimeout = d
		}
	}
}

// NewService creates a Service.
func NewService(store Store, models Selector, opts ...Option) *Service {
	s := &Service{
		store:    store,
		models:   models,
		location: LoadLocation(DefaultTimezone),
		logger:   slog.Default(),

		computeTimeout: defaultComputeTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadLocation returns the named zone, falling back to UTC when it is unknown.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		slog.Warn("unknown timezone, using UTC", "timezone", name, "error", err)
		return time.UTC
	}
	return loc
}

// Today returns the current date in the service timezone.
func (s *Service) Today() string {
	return time.Now().In(s.location).Format(dateLayout)
}

// TeamInsight returns the insight for teamID on date. An empty date means
// today. Cached results are served unless refresh is set; concurrent
// identical requests share one pipeline run.
func (s *Service) TeamInsight(ctx context.Context, teamID, date, provider string, refresh bool) (standup.TeamInsight, error) {
	if date == "" {
		date = s.Today()
	}
	if err := validDate(date); err != nil {
		return standup.TeamInsight{}, err
	}

	key := strings.Join([]string{"team", teamID, date, provider, fmt.Sprint(refresh)}, "|")
	v, shared, err := s.share(ctx, key, func(ctx context.Context) (any, error) {
		return s.teamInsight(ctx, teamID, date, provider, refresh)
	})
	if err != nil {
		return standup.TeamInsight{}, err
	}
	if shared {
		s.logger.Debug("team insight shared with concurrent request", "team", teamID, "date", date)
	}
	return v.(standup.TeamInsight), nil
}

func (s *Service) teamInsight(ctx context.Context, teamID, date, provider string, refresh bool) (standup.TeamInsight, error) {
	if !refresh {
		var cached standup.TeamInsight
		if ok, err := s.cached(func() (storage.InsightRow, error) { return s.store.GetTeamInsight(teamID, date) }, &cached); err != nil {
			return standup.TeamInsight{}, err
		} else if ok {
			s.logger.Debug("team insight cache hit", "team", teamID, "date", date)
			return cached, nil
		}
	}

	records, err := s.store.ListStandups(storage.StandupFilter{TeamID: teamID, Date: date})
	if err != nil {
		return standup.TeamInsight{}, fmt.Errorf("loading standups: %w", err)
	}
	if len(records) == 0 {
		return standup.EmptyTeamInsight(), nil
	}

	inv, err := s.models.Select(provider)
	if err != nil {
		return standup.TeamInsight{}, err
	}
	result, err := team.NewSynthesizer(inv.WithLogger(s.logger), s.logger).Synthesize(ctx, records)
	if err != nil {
		return standup.TeamInsight{}, err
	}

	if err := s.save(result, func(data string) error {
		return s.store.SaveTeamInsight(teamID, date, inv.Provider(), data)
	}); err != nil {
		return standup.TeamInsight{}, err
	}
	s.logger.Info("team insight computed", "team", teamID, "date", date, "provider", inv.Provider(), "standups", len(records))
	return result, nil
}

// PersonalInsight returns coaching feedback for one standup. Deleted or
// unknown standups yield standup.ErrNotFound.
func (s *Service) PersonalInsight(ctx context.Context, standupID, provider string, refresh bool) (standup.PersonalInsight, error) {
	key := strings.Join([]string{"personal", standupID, provider, fmt.Sprint(refresh)}, "|")
	v, _, err := s.share(ctx, key, func(ctx context.Context) (any, error) {
		return s.personalInsight(ctx, standupID, provider, refresh)
	})
	if err != nil {
		return standup.PersonalInsight{}, err
	}
	return v.(standup.PersonalInsight), nil
}

func (s *Service) personalInsight(ctx context.Context, standupID, provider string, refresh bool) (standup.PersonalInsight, error) {
	rec, err := s.store.GetStandup(standupID)
	if errors.Is(err, storage.ErrNotFound) {
		return standup.PersonalInsight{}, fmt.Errorf("%w: %s", standup.ErrNotFound, standupID)
	}
	if err != nil {
		return standup.PersonalInsight{}, fmt.Errorf("loading standup: %w", err)
	}

	if !refresh {
		var cached standup.PersonalInsight
		if ok, err := s.cached(func() (storage.InsightRow, error) { return s.store.GetPersonalInsight(standupID) }, &cached); err != nil {
			return standup.PersonalInsight{}, err
		} else if ok {
			return cached, nil
		}
	}

	inv, err := s.models.Select(provider)
	if err != nil {
		return standup.PersonalInsight{}, err
	}
	result, err := personal.NewAnalyzer(inv.WithLogger(s.logger), s.logger).Analyze(ctx, rec)
	if err != nil {
		return standup.PersonalInsight{}, err
	}

	if err := s.save(result, func(data string) error {
		return s.store.SavePersonalInsight(standupID, inv.Provider(), data)
	}); err != nil {
		return standup.PersonalInsight{}, err
	}
	return result, nil
}

// share runs fn once per key across concurrent callers. The run is detached
// from any single caller's cancellation and bounded by the service's compute
// timeout; a caller whose ctx ends stops waiting and gets ctx.Err().
func (s *Service) share(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, bool, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		runCtx, cancel := context.WithTimeout(detached, s.computeTimeout)
		defer cancel()
		return fn(runCtx)
	})
	select {
	case res := <-ch:
		return res.Val, res.Shared, res.Err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// cached decodes the row returned by get into dst. A missing or unreadable
// row is a miss.
func (s *Service) cached(get func() (storage.InsightRow, error), dst any) (bool, error) {
	row, err := get()
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading insight cache: %w", err)
	}
	if err := json.Unmarshal([]byte(row.ResultJSON), dst); err != nil {
		s.logger.Warn("discarding unreadable cached insight", "id", row.ID, "error", err)
		return false, nil
	}
	return true, nil
}

func (s *Service) save(v any, put func(string) error) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding insight: %w", err)
	}
	if err := put(string(data)); err != nil {
		return fmt.Errorf("caching insight: %w", err)
	}
	return nil
}

// Streak counts consecutive days, ending today, on which userID posted a
// standup to teamID. Only the last 90 posting days are considered.
func (s *Service) Streak(teamID, userID string) (int, error) {
	dates, err := s.store.StandupDates(teamID, userID, streakWindow)
	if err != nil {
		return 0, fmt.Errorf("loading standup dates: %w", err)
	}
	return streak(dates, time.Now().In(s.location)), nil
}

func streak(dates []string, today time.Time) int {
	posted := make(map[string]bool, len(dates))
	for _, d := range dates {
		posted[d] = true
	}
	n := 0
	for d := today; posted[d.Format(dateLayout)]; d = d.AddDate(0, 0, -1) {
		n++
	}
	return n
}

// Trends summarizes a team's standups between from and to inclusive.
type Trends struct {
	PerDay        []DayCount     `json:"perDay"`
	BlockerCounts map[string]int `json:"blockerCounts"`
}

// DayCount is the number of standups posted on Date.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Trends returns per-day standup counts and keyword hits for the range.
func (s *Service) Trends(ctx context.Context, teamID, from, to string) (Trends, error) {
	for _, d := range []string{from, to} {
		if err := validDate(d); err != nil {
			return Trends{}, err
		}
	}
	f := storage.StandupFilter{TeamID: teamID, From: from, To: to}

	var (
		days    []storage.DayCount
		records []standup.Record
	)
	var g errgroup.Group
	g.Go(func() (err error) {
		days, err = s.store.DailyCounts(f)
		return err
	})
	g.Go(func() (err error) {
		records, err = s.store.ListStandups(f)
		return err
	})
	if err := g.Wait(); err != nil {
		return Trends{}, fmt.Errorf("loading trends: %w", err)
	}

	out := Trends{PerDay: make([]DayCount, 0, len(days)), BlockerCounts: KeywordCounts(records)}
	for _, d := range days {
		out.PerDay = append(out.PerDay, DayCount{Date: d.Date, Count: d.Count})
	}
	return out, nil
}

// KeywordCounts counts, per trend keyword, the standups whose combined text
// mentions it.
func KeywordCounts(records []standup.Record) map[string]int {
	counts := make(map[string]int)
	for _, r := range records {
		text := strings.ToLower(strings.Join([]string{r.Blockers, r.Today, r.Yesterday}, " "))
		for _, k := range TrendKeywords {
			if strings.Contains(text, k) {
				counts[k]++
			}
		}
	}
	return counts
}

// ErrInvalidDate is returned for dates not in YYYY-MM-DD form.
var ErrInvalidDate = errors.New("date must be YYYY-MM-DD")

func validDate(d string) error {
	if _, err := time.Parse(dateLayout, d); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, d)
	}
	return nil
}
