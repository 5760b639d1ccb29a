package standup

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Batch is the on-disk format for a day of standups, used by the CLI.
//
//	team: core
//	date: 2025-01-10
//	standups:
//	  - author: Alice
//	    yesterday: Wired team selectors
//	    today: Implement rotate-code endpoint
//	    blockers: waiting on staging db credentials
type Batch struct {
	Team     string   `yaml:"team"`
	Date     string   `yaml:"date"`
	Standups []Record `yaml:"standups"`
}

// DecodeBatch reads a YAML batch. Records without a date inherit the batch
// date, and records without a team inherit the batch team.
func DecodeBatch(r io.Reader) (Batch, error) {
	var b Batch
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&b); err != nil {
		if errors.Is(err, io.EOF) {
			return Batch{}, fmt.Errorf("empty batch file")
		}
		return Batch{}, fmt.Errorf("decoding batch: %w", err)
	}

	for i := range b.Standups {
		rec := &b.Standups[i]
		rec.Author = strings.TrimSpace(rec.Author)
		if rec.Author == "" {
			return Batch{}, fmt.Errorf("standup %d: author is required", i+1)
		}
		if rec.Date == "" {
			rec.Date = b.Date
		}
		if rec.TeamID == "" {
			rec.TeamID = b.Team
		}
	}
	return b, nil
}
