package team

import (
	"strings"

	"github.com/kalambet/huddle/internal/signals"
	"github.com/kalambet/huddle/internal/similarity"
	"github.com/kalambet/huddle/internal/standup"
)

// MaxHints caps the pre-model hint list.
const MaxHints = 8

const (
	reasonAuthAlign      = "Align on auth/session middleware"
	reasonPaymentsLimit  = "Coordinate on payments rate limit mitigation"
	reasonFlakyTests     = "Stabilize flaky tests / CI"
	reasonGenericOverlap = "Overlap on closely related implementation details"
)

func unblockReason(label string) string { return "Unblock: " + label }

func overlapReason(keywords []string) string {
	if len(keywords) == 0 {
		return reasonGenericOverlap
	}
	return "Overlap on: " + strings.Join(keywords, ", ")
}

// pairKey identifies an unordered pair of names.
func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// pairList accumulates distinct two-person pairs in insertion order.
type pairList struct {
	seen  map[string]bool
	pairs []standup.SyncPair
}

func newPairList(existing []standup.SyncPair) *pairList {
	pl := &pairList{seen: make(map[string]bool)}
	for _, s := range existing {
		if len(s.Members) >= 2 {
			key := pairKey(s.Members[0], s.Members[1])
			if pl.seen[key] {
				continue
			}
			pl.seen[key] = true
		}
		pl.pairs = append(pl.pairs, s)
	}
	return pl
}

func (pl *pairList) has(a, b string) bool { return pl.seen[pairKey(a, b)] }

// add appends {a, b} unless either name is empty, they are equal, or the
// pair is already present.
func (pl *pairList) add(a, b, reason string) bool {
	if a == "" || b == "" || a == b || pl.has(a, b) {
		return false
	}
	pl.seen[pairKey(a, b)] = true
	pl.pairs = append(pl.pairs, standup.SyncPair{Members: []string{a, b}, Reason: reason})
	return true
}

func (pl *pairList) len() int { return len(pl.pairs) }

// BuildHints proposes pairs before the model runs: first people blocked on
// something a teammate can resolve, then people whose topics overlap.
func BuildHints(profiles []Profile, idf map[string]float64) []standup.SyncPair {
	r := newRoster(profiles)
	pl := newPairList(nil)

	for _, p := range profiles {
		for _, label := range p.BlockerPhrases {
			switch {
			case signals.IsCredentialBlocker(label):
				pl.add(p.Name, r.devops.name(), unblockReason(label))
			case label == signals.BlockerAuthSession:
				pl.add(p.Name, r.auth.name(), reasonAuthAlign)
			case label == signals.BlockerPayments429:
				pl.add(p.Name, r.payments.name(), reasonPaymentsLimit)
			case label == signals.BlockerFlakyTests:
				pl.add(p.Name, r.tests.name(), reasonFlakyTests)
			}
		}
	}

	for i := 0; i < len(profiles); i++ {
		for j := i + 1; j < len(profiles); j++ {
			a, b := profiles[i], profiles[j]
			if similarity.Jaccard(a.Topics, b.Topics) < similarity.OverlapThreshold {
				continue
			}
			kw := similarity.SharedKeywords(a.Topics, b.Topics, idf, 3)
			pl.add(a.Name, b.Name, overlapReason(kw))
		}
	}

	if len(pl.pairs) > MaxHints {
		return pl.pairs[:MaxHints]
	}
	return pl.pairs
}
