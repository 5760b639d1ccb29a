package signals

import (
	"regexp"
	"strings"
)

// Canonical blocker labels.
const (
	BlockerStagingCreds = "staging db credentials"
	BlockerAPIAccess    = "api access whitelist"
	BlockerPayments429  = "payments 429"
	BlockerAuthMismatch = "auth middleware mismatch"
	BlockerAuthSession  = "auth/session"
	BlockerFlakyTests   = "flaky tests"
)

// knownPhrases are matched as plain substrings of lowercased blocker text.
var knownPhrases = []string{
	"staging db credentials",
	"db creds",
	"staging db user",
	"api access whitelist",
	"api access to staging",
	"payments 429",
	"payments sandbox 429",
	"rate limit",
	"flaky tests",
	"auth middleware mismatch",
	"auth/session",
}

var (
	reStagingDB   = regexp.MustCompile(`\bstaging\b.*\bdb\b|\bdb\b.*\bstaging\b`)
	reAPIAccess   = regexp.MustCompile(`\bapi\b.*\baccess\b`)
	reRateLimit   = regexp.MustCompile(`\b429\b|\brate limit`)
	reFlakyTests  = regexp.MustCompile(`flaky.*test`)
	reAuthSession = regexp.MustCompile(`auth.*middleware|auth/session`)
)

// heuristics apply only when no known phrase matched.
var heuristics = []BlockerRule{
	{Label: BlockerStagingCreds, Match: reStagingDB.MatchString},
	{Label: BlockerAPIAccess, Match: reAPIAccess.MatchString},
	{Label: BlockerPayments429, Match: reRateLimit.MatchString},
	{Label: BlockerFlakyTests, Match: reFlakyTests.MatchString},
	{Label: BlockerAuthSession, Match: reAuthSession.MatchString},
}

// MatchBlockers returns the known blocker phrases found in text, in list
// order. If none are present, a small set of co-occurrence heuristics maps
// the text onto canonical labels instead. The result is never nil.
func MatchBlockers(text string) []string {
	t := strings.ToLower(text)
	hits := []string{}
	for _, p := range knownPhrases {
		if strings.Contains(t, p) {
			hits = append(hits, p)
		}
	}
	if len(hits) > 0 {
		return hits
	}
	for _, h := range heuristics {
		if h.Match(t) {
			hits = append(hits, h.Label)
		}
	}
	return hits
}

// BlockerRule maps lowercased blocker text onto a canonical label.
type BlockerRule struct {
	Label string
	Match func(lower string) bool
}

// DefaultBlockerRules is the canonicalization priority table. The first
// matching rule wins.
var DefaultBlockerRules = []BlockerRule{
	{Label: BlockerStagingCreds, Match: func(t string) bool {
		return strings.Contains(t, "staging db user") || reStagingDB.MatchString(t) || strings.Contains(t, "db creds")
	}},
	{Label: BlockerAPIAccess, Match: func(t string) bool {
		return strings.Contains(t, "api access whitelist") || reAPIAccess.MatchString(t)
	}},
	{Label: BlockerPayments429, Match: func(t string) bool {
		return strings.Contains(t, "payments 429") || strings.Contains(t, "payments sandbox 429") || reRateLimit.MatchString(t)
	}},
	{Label: BlockerAuthMismatch, Match: func(t string) bool {
		return strings.Contains(t, "auth middleware mismatch")
	}},
	{Label: BlockerAuthSession, Match: reAuthSession.MatchString},
	{Label: BlockerFlakyTests, Match: reFlakyTests.MatchString},
}

// Canonicalizer normalizes raw blocker text using an ordered rule table.
type Canonicalizer struct {
	rules []BlockerRule
}

// NewCanonicalizer returns a Canonicalizer using rules in priority order.
// A nil slice selects DefaultBlockerRules.
func NewCanonicalizer(rules []BlockerRule) *Canonicalizer {
	if rules == nil {
		rules = DefaultBlockerRules
	}
	return &Canonicalizer{rules: rules}
}

// Canonical returns the label of the first matching rule, or the lowercased
// trimmed input when nothing matches.
func (c *Canonicalizer) Canonical(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	for _, r := range c.rules {
		if r.Match(t) {
			return r.Label
		}
	}
	return t
}

var defaultCanonicalizer = NewCanonicalizer(nil)

// CanonicalBlocker normalizes raw with the default priority table.
func CanonicalBlocker(raw string) string {
	return defaultCanonicalizer.Canonical(raw)
}

// CanonicalBlockers matches text and returns the distinct canonical labels
// in first-seen order.
func CanonicalBlockers(text string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, p := range MatchBlockers(text) {
		c := CanonicalBlocker(p)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// IsCredentialBlocker reports whether label is resolved by infrastructure
// access (devops) rather than by a code owner.
func IsCredentialBlocker(label string) bool {
	return label == BlockerStagingCreds || label == BlockerAPIAccess
}
