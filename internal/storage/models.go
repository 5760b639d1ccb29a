package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateStandup is returned when a user already has a live standup for the date.
var ErrDuplicateStandup = errors.New("standup already exists for this user and date")

// Insight kinds stored in the cache table.
const (
	KindTeam     = "team"
	KindPersonal = "personal"
)

// InsightRow is a cached pipeline result. Team rows are keyed by TeamID and
// Date, personal rows by StandupID.
type InsightRow struct {
	ID         string
	Kind       string
	TeamID     string
	Date       string
	StandupID  string
	Provider   string
	ResultJSON string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// InsightKey identifies the cache rows derived from one standup.
type InsightKey struct {
	StandupID string
	TeamID    string
	Date      string
}

// StandupFilter narrows ListStandups. Zero fields are ignored; From and To
// are inclusive YYYY-MM-DD bounds.
type StandupFilter struct {
	TeamID         string
	UserID         string
	Date           string
	From           string
	To             string
	IncludeDeleted bool
	Limit          uint64
}

// DayCount is the number of live standups recorded on one date.
type DayCount struct {
	Date  string
	Count int
}

type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}
