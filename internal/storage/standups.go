package storage

import (
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/kalambet/huddle/internal/standup"
)

var standupColumns = []string{
	"id", "team_id", "user_id", "author", "date", "yesterday", "today", "blockers", "deleted", "created_at",
}

// SaveStandup inserts r, assigning an ID and CreatedAt when missing, and
// returns the stored record.
func (s *Store) SaveStandup(r standup.Record) (standup.Record, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.UserID == "" {
		r.UserID = strings.ToLower(strings.TrimSpace(r.Author))
	}
	created := timestamp()
	if !r.CreatedAt.IsZero() {
		created = r.CreatedAt.UTC().Format(timeLayout)
	}

	query, args, err := sq.Insert("standups").
		Columns(standupColumns...).
		Values(r.ID, r.TeamID, r.UserID, r.Author, r.Date, r.Yesterday, r.Today, r.Blockers, r.Deleted, created).
		ToSql()
	if err != nil {
		return standup.Record{}, fmt.Errorf("building insert: %w", err)
	}
	if _, err := s.db.Exec(query, args...); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return standup.Record{}, fmt.Errorf("%w: %s on %s", ErrDuplicateStandup, r.UserID, r.Date)
		}
		return standup.Record{}, err
	}

	if r.CreatedAt, err = parseTime("created_at", created); err != nil {
		return standup.Record{}, err
	}
	return r, nil
}

// GetStandup returns a live standup by ID. Soft-deleted rows are reported
// as ErrNotFound.
func (s *Store) GetStandup(id string) (standup.Record, error) {
	query, args, err := sq.Select(standupColumns...).
		From("standups").
		Where(sq.Eq{"id": id, "deleted": 0}).
		ToSql()
	if err != nil {
		return standup.Record{}, fmt.Errorf("building select: %w", err)
	}
	r, err := scanStandup(s.db.QueryRow(query, args...))
	if err == sql.ErrNoRows {
		return standup.Record{}, ErrNotFound
	}
	return r, err
}

// ListStandups returns standups matching f, ordered by date then creation time.
func (s *Store) ListStandups(f StandupFilter) ([]standup.Record, error) {
	b := sq.Select(standupColumns...).From("standups").OrderBy("date ASC", "created_at ASC")
	b = applyFilter(b, f)
	if f.Limit > 0 {
		b = b.Limit(f.Limit)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select: %w", err)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []standup.Record
	for rows.Next() {
		r, err := scanStandup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SoftDeleteStandup flags a standup as deleted so it drops out of listings
// and insights.
func (s *Store) SoftDeleteStandup(id string) error {
	res, err := s.db.Exec(`UPDATE standups SET deleted = 1 WHERE id = ? AND deleted = 0`, id)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

// StandupDates returns the distinct dates a user posted a live standup,
// newest first, at most limit entries.
func (s *Store) StandupDates(teamID, userID string, limit uint64) ([]string, error) {
	b := sq.Select("DISTINCT date").
		From("standups").
		Where(sq.Eq{"user_id": userID, "deleted": 0}).
		OrderBy("date DESC")
	if teamID != "" {
		b = b.Where(sq.Eq{"team_id": teamID})
	}
	if limit > 0 {
		b = b.Limit(limit)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select: %w", err)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// DailyCounts groups live standups matching f by date.
func (s *Store) DailyCounts(f StandupFilter) ([]DayCount, error) {
	f.IncludeDeleted = false
	b := applyFilter(sq.Select("date", "COUNT(*)").From("standups"), f).
		GroupBy("date").
		OrderBy("date ASC")

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select: %w", err)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DayCount
	for rows.Next() {
		var dc DayCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, err
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}

func applyFilter(b sq.SelectBuilder, f StandupFilter) sq.SelectBuilder {
	if f.TeamID != "" {
		b = b.Where(sq.Eq{"team_id": f.TeamID})
	}
	if f.UserID != "" {
		b = b.Where(sq.Eq{"user_id": f.UserID})
	}
	if f.Date != "" {
		b = b.Where(sq.Eq{"date": f.Date})
	}
	if f.From != "" {
		b = b.Where(sq.GtOrEq{"date": f.From})
	}
	if f.To != "" {
		b = b.Where(sq.LtOrEq{"date": f.To})
	}
	if !f.IncludeDeleted {
		b = b.Where(sq.Eq{"deleted": 0})
	}
	return b
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStandup(row rowScanner) (standup.Record, error) {
	var r standup.Record
	var createdAt string
	if err := row.Scan(&r.ID, &r.TeamID, &r.UserID, &r.Author, &r.Date, &r.Yesterday, &r.Today, &r.Blockers, &r.Deleted, &createdAt); err != nil {
		return standup.Record{}, err
	}
	t, err := parseTime("created_at", createdAt)
	if err != nil {
		return standup.Record{}, err
	}
	r.CreatedAt = t
	return r, nil
}
