// Package team synthesizes a day's standups into a TeamInsight: it derives
// per-person signals, asks a model for a summary, then repairs and overlays
// the answer with deterministic data.
package team

import (
	"cmp"
	"slices"
	"strings"

	"github.com/kalambet/huddle/internal/signals"
	"github.com/kalambet/huddle/internal/standup"
)

// Profile is what one standup says about its author.
type Profile struct {
	Name           string       `json:"name"`
	Topics         []string     `json:"topics"`
	Tags           signals.Tags `json:"tags"`
	BlockerPhrases []string     `json:"blockerPhrases"`
}

// HasBlocker reports whether label is among the profile's canonical blockers.
func (p Profile) HasBlocker(label string) bool {
	return slices.Contains(p.BlockerPhrases, label)
}

// BuildProfiles derives one Profile per record, in input order.
func BuildProfiles(records []standup.Record) []Profile {
	out := make([]Profile, 0, len(records))
	for _, r := range records {
		out = append(out, Profile{
			Name:           strings.TrimSpace(r.Author),
			Topics:         signals.TopicList(r.Yesterday + " " + r.Today),
			Tags:           signals.InferTags(r.Yesterday, r.Today),
			BlockerPhrases: signals.CanonicalBlockers(r.Blockers),
		})
	}
	return out
}

// topicDocs returns the topic list of every profile, aligned by index.
func topicDocs(profiles []Profile) [][]string {
	docs := make([][]string, len(profiles))
	for i, p := range profiles {
		docs[i] = p.Topics
	}
	return docs
}

// CountBlockers counts, per canonical label, how many standups mention it.
// A label counts once per standup.
func CountBlockers(records []standup.Record) map[string]int {
	counts := make(map[string]int)
	for _, r := range records {
		for _, label := range signals.CanonicalBlockers(r.Blockers) {
			counts[label]++
		}
	}
	return counts
}

// BlockerCount is one entry of a frequency-sorted blocker table.
type BlockerCount struct {
	Label string
	Count int
}

// SortedBlockers orders counts by count descending, ties alphabetical.
func SortedBlockers(counts map[string]int) []BlockerCount {
	out := make([]BlockerCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, BlockerCount{Label: label, Count: n})
	}
	slices.SortFunc(out, func(a, b BlockerCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Label, b.Label)
	})
	return out
}

// roster holds the first profile with each helper capability.
type roster struct {
	devops   *Profile
	auth     *Profile
	payments *Profile
	tests    *Profile
}

func newRoster(profiles []Profile) roster {
	var r roster
	for i := range profiles {
		p := &profiles[i]
		if r.devops == nil && p.Tags.DevOps {
			r.devops = p
		}
		if r.auth == nil && p.Tags.Auth {
			r.auth = p
		}
		if r.payments == nil && (p.Tags.Payments || p.Tags.Metrics) {
			r.payments = p
		}
		if r.tests == nil && p.Tags.Tests {
			r.tests = p
		}
	}
	return r
}

func (p *Profile) name() string {
	if p == nil {
		return ""
	}
	return p.Name
}
