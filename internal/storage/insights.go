package storage

import (
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

var insightColumns = []string{
	"id", "kind", "team_id", "date", "standup_id", "provider", "result_json", "created_at", "updated_at",
}

// SaveTeamInsight stores the team result for teamID on date, replacing any
// previous one.
func (s *Store) SaveTeamInsight(teamID, date, provider, resultJSON string) error {
	ts := timestamp()
	_, err := s.db.Exec(`
		INSERT INTO insights (id, kind, team_id, date, standup_id, provider, result_json, created_at, updated_at)
		VALUES (?, 'team', ?, ?, '', ?, ?, ?, ?)
		ON CONFLICT(team_id, date) WHERE kind = 'team'
		DO UPDATE SET provider = excluded.provider, result_json = excluded.result_json, updated_at = excluded.updated_at`,
		uuid.NewString(), teamID, date, provider, resultJSON, ts, ts,
	)
	return err
}

// SavePersonalInsight stores the coaching result for one standup, replacing
// any previous one.
func (s *Store) SavePersonalInsight(standupID, provider, resultJSON string) error {
	ts := timestamp()
	_, err := s.db.Exec(`
		INSERT INTO insights (id, kind, team_id, date, standup_id, provider, result_json, created_at, updated_at)
		VALUES (?, 'personal', '', '', ?, ?, ?, ?, ?)
		ON CONFLICT(standup_id) WHERE kind = 'personal'
		DO UPDATE SET provider = excluded.provider, result_json = excluded.result_json, updated_at = excluded.updated_at`,
		uuid.NewString(), standupID, provider, resultJSON, ts, ts,
	)
	return err
}

// GetTeamInsight returns the cached team result for teamID on date.
func (s *Store) GetTeamInsight(teamID, date string) (InsightRow, error) {
	return s.getInsight(sq.Eq{"kind": KindTeam, "team_id": teamID, "date": date})
}

// GetPersonalInsight returns the cached coaching result for a standup.
func (s *Store) GetPersonalInsight(standupID string) (InsightRow, error) {
	return s.getInsight(sq.Eq{"kind": KindPersonal, "standup_id": standupID})
}

// DeleteInsightsForStandup drops the personal row for a standup and the team
// row for its team and date, so neither is served stale.
func (s *Store) DeleteInsightsForStandup(k InsightKey) error {
	_, err := s.db.Exec(`
		DELETE FROM insights
		WHERE (kind = 'personal' AND standup_id = ?) OR (kind = 'team' AND team_id = ? AND date = ?)`,
		k.StandupID, k.TeamID, k.Date,
	)
	return err
}

func (s *Store) getInsight(where sq.Eq) (InsightRow, error) {
	query, args, err := sq.Select(insightColumns...).From("insights").Where(where).ToSql()
	if err != nil {
		return InsightRow{}, fmt.Errorf("building select: %w", err)
	}

	var row InsightRow
	var createdAt, updatedAt string
	err = s.db.QueryRow(query, args...).Scan(
		&row.ID, &row.Kind, &row.TeamID, &row.Date, &row.StandupID, &row.Provider, &row.ResultJSON, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return InsightRow{}, ErrNotFound
	}
	if err != nil {
		return InsightRow{}, err
	}
	if row.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return InsightRow{}, err
	}
	if row.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return InsightRow{}, err
	}
	return row, nil
}
