package personal

import (
	"slices"
	"strings"

	"github.com/kalambet/huddle/internal/signals"
)

const (
	maxSuggestions = 5
	minSuggestions = 2
	unblockPrefix  = "unblock:"
)

var overlapStopwords = map[string]bool{
	"the": true, "a": true, "an": true, "to": true, "for": true, "and": true,
	"with": true, "add": true, "create": true, "implement": true, "make": true,
	"do": true, "endpoint": true, "flow": true, "task": true, "today": true,
	"yesterday": true,
}

var fallbackSuggestions = []string{
	"Add a brief note with file names or PR IDs for today's task",
	"Share an ETA for today's main deliverable",
}

func isUnblock(s string) bool {
	return strings.HasPrefix(strings.ToLower(s), unblockPrefix)
}

func significantWords(s string) []string {
	var out []string
	for _, w := range strings.Fields(canonical(s)) {
		if len(w) > 2 && !overlapStopwords[w] {
			out = append(out, w)
		}
	}
	return out
}

// overlaps reports whether a and b share at least two significant words.
func overlaps(a, b string) bool {
	bw := significantWords(b)
	shared := 0
	seen := map[string]bool{}
	for _, w := range significantWords(a) {
		if seen[w] || !slices.Contains(bw, w) {
			continue
		}
		seen[w] = true
		if shared++; shared >= 2 {
			return true
		}
	}
	return false
}

// cannedSuggestions returns domain next steps implied by today's text.
func cannedSuggestions(today string) []string {
	t := strings.ToLower(today)
	var out []string
	if strings.Contains(t, "rotate") && strings.Contains(t, "code") {
		out = append(out,
			"Write unit test for rotate-code endpoint",
			"Document API contract for rotate-code (path, payload, status codes)")
	}
	if strings.Contains(t, "selector") {
		out = append(out,
			"Bind selectors to component state/props and verify UI flow",
			"Add a small e2e check for team selector wiring")
	}
	return out
}

// suggestionFilter decides which candidate suggestions may be kept.
type suggestionFilter struct {
	keyTasks []string
	keyCanon map[string]bool
	blocker  string
}

func newSuggestionFilter(keyTasks []string, blocker string) suggestionFilter {
	f := suggestionFilter{keyTasks: keyTasks, keyCanon: make(map[string]bool), blocker: blocker}
	for _, k := range keyTasks {
		f.keyCanon[canonical(k)] = true
	}
	return f
}

func (f suggestionFilter) allow(s string) bool {
	c := canonical(s)
	if c == "" || f.keyCanon[c] || isUnblock(s) {
		return false
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "waiting") {
		return false
	}
	if f.blocker != "" && strings.Contains(lower, f.blocker) {
		return false
	}
	for _, k := range f.keyTasks {
		if overlaps(s, k) {
			return false
		}
	}
	return true
}

// buildSuggestions filters the model's suggestions, pins a single Unblock
// entry when there is a blocker, and tops the list up to between two and
// five entries. blocker is the raw blocker text ("" when there is none).
func buildSuggestions(model, keyTasks, todayTasks []string, today, blocker string) []string {
	blk := strings.ToLower(blocker)
	f := newSuggestionFilter(keyTasks, blk)

	var out []string
	seen := map[string]bool{}
	push := func(s string) {
		s = normalizeSuggestion(s)
		c := canonical(s)
		if c == "" || seen[c] || len(out) >= maxSuggestions {
			return
		}
		seen[c] = true
		out = append(out, s)
	}

	if blk != "" {
		push("Unblock: " + signals.CanonicalBlocker(blk))
	}
	for _, s := range model {
		if f.allow(normalizeSuggestion(s)) {
			push(s)
		}
	}
	for _, s := range append(slices.Clone(todayTasks), cannedSuggestions(today)...) {
		if len(out) >= maxSuggestions {
			break
		}
		if f.allow(normalizeSuggestion(s)) {
			push(s)
		}
	}
	for _, s := range fallbackSuggestions {
		if len(out) >= minSuggestions {
			break
		}
		push(s)
	}
	return out
}
