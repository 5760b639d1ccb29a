package standup

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when a requested standup does not exist or was deleted.
var ErrNotFound = errors.New("standup not found")

// Record is a single daily standup entry as submitted by a team member.
type Record struct {
	ID        string    `json:"id" yaml:"id,omitempty"`
	TeamID    string    `json:"team_id" yaml:"team_id,omitempty"`
	UserID    string    `json:"user_id" yaml:"user_id,omitempty"`
	Author    string    `json:"author" yaml:"author"`
	Date      string    `json:"date" yaml:"date,omitempty"`
	Yesterday string    `json:"yesterday" yaml:"yesterday"`
	Today     string    `json:"today" yaml:"today"`
	Blockers  string    `json:"blockers" yaml:"blockers"`
	Deleted   bool      `json:"deleted,omitempty" yaml:"-"`
	CreatedAt time.Time `json:"created_at" yaml:"-"`
}

// SyncPair suggests two people who should talk today and why.
type SyncPair struct {
	Members []string `json:"members"`
	Reason  string   `json:"reason"`
}

// TeamInsight is the synthesized view of a team's standups for one day.
type TeamInsight struct {
	TeamSummary    string         `json:"teamSummary"`
	CommonBlockers []string       `json:"commonBlockers"`
	SuggestedSyncs []SyncPair     `json:"suggestedSyncs"`
	Risks          []string       `json:"risks"`
	BlockerCounts  map[string]int `json:"blockerCounts"`
}

// EmptyTeamInsight is returned when no standups exist for the requested scope.
func EmptyTeamInsight() TeamInsight {
	return TeamInsight{
		TeamSummary:    "No standups found for this date.",
		CommonBlockers: []string{},
		SuggestedSyncs: []SyncPair{},
		Risks:          []string{},
		BlockerCounts:  map[string]int{},
	}
}

// Tone labels for a personal standup.
const (
	TonePositive    = "positive"
	ToneNeutral     = "neutral"
	ToneOverwhelmed = "overwhelmed"
	ToneFrustrated  = "frustrated"
)

// ValidTone reports whether s is one of the known tone labels.
func ValidTone(s string) bool {
	switch s {
	case TonePositive, ToneNeutral, ToneOverwhelmed, ToneFrustrated:
		return true
	}
	return false
}

// PersonalInsight is coaching feedback for a single standup.
type PersonalInsight struct {
	KeyTasks        []string `json:"keyTasks"`
	ClarityFeedback string   `json:"clarityFeedback"`
	Tone            string   `json:"tone"`
	Suggestions     []string `json:"suggestions"`
}

var noBlocker = map[string]bool{
	"": true, "-": true, "none": true, "n/a": true, "na": true, "no": true, "nothing": true, "nil": true,
}

// BlockerText returns the trimmed blockers field, or "" when it only says
// there is no blocker ("none", "-", "n/a", ...).
func BlockerText(s string) string {
	t := strings.TrimSpace(s)
	if noBlocker[strings.ToLower(strings.TrimRight(t, "."))] {
		return ""
	}
	return t
}

// Names returns the distinct author names of records in first-seen order.
func Names(records []Record) []string {
	seen := make(map[string]bool, len(records))
	var out []string
	for _, r := range records {
		n := strings.TrimSpace(r.Author)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
