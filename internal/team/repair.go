package team

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kalambet/huddle/internal/engine"
	"github.com/kalambet/huddle/internal/standup"
)

const (
	maxListItems   = 5
	placeholderPM  = "PM / Tech Lead"
	placeholderOps = "DevOps"

	summaryUnavailable   = "Summary unavailable."
	reasonDefault        = "Coordinate on blockers/priorities."
	reasonRefinedCoord   = "Coordinate on today's specific blockers and deliverables"
	reasonCredsFallback  = "Unblock staging DB credentials for backend/testing."
	reasonPriorityClarif = "Clarify task priority to reduce context switching."
	reasonGenericCoord   = "Coordinate on today's deliverables and blockers."
)

var (
	reGenericOverlap = regexp.MustCompile(`(?i)^overlap on:\s*(team|work|tasks|add|added|update|code)(,|\s|$)`)
	reCoordinateOn   = regexp.MustCompile(`(?i)^coordinate on\b`)
	reCredsLanguage  = regexp.MustCompile(`credential|creds|password|db user|staging db|api access|whitelist`)
	rePriorityTalk   = regexp.MustCompile(`unclear|priority|priorit`)
)

// refineReason replaces low-information reasons with more specific wording.
func refineReason(reason string) string {
	r := strings.TrimSpace(reason)
	if reGenericOverlap.MatchString(r) {
		return reasonGenericOverlap
	}
	if reCoordinateOn.MatchString(r) && len(r) < 30 {
		return reasonRefinedCoord
	}
	return r
}

// ensurePair always yields two member names: the first two distinct
// non-empty members, else the first two batch authors, else placeholders.
func ensurePair(members, universe []string) []string {
	uniq := distinctTrimmed(members)
	switch {
	case len(uniq) >= 2:
		return uniq[:2]
	case len(universe) >= 2:
		return []string{universe[0], universe[1]}
	case len(universe) == 1:
		return []string{universe[0], placeholderPM}
	default:
		return []string{placeholderPM, placeholderOps}
	}
}

func distinctTrimmed(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := []string{}
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}

func capList[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// rawSync is the strict shape of a suggestedSyncs entry.
type rawSync struct {
	Members []string `json:"members"`
	Reason  string   `json:"reason"`
}

type rawInsight struct {
	TeamSummary    string    `json:"teamSummary"`
	CommonBlockers []string  `json:"commonBlockers"`
	SuggestedSyncs []rawSync `json:"suggestedSyncs"`
	Risks          []string  `json:"risks"`
}

var requiredKeys = []string{"teamSummary", "commonBlockers", "suggestedSyncs", "risks"}

// parseStrict decodes text only if every schema key is present, non-null and
// correctly typed, including members and reason on each sync.
func parseStrict(text string) (rawInsight, bool) {
	var out rawInsight
	body := []byte(engine.StripCodeFences(text))

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return out, false
	}
	for _, k := range requiredKeys {
		v, ok := fields[k]
		if !ok || isNull(v) {
			return out, false
		}
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, false
	}

	var syncs []map[string]json.RawMessage
	if err := json.Unmarshal(fields["suggestedSyncs"], &syncs); err != nil {
		return out, false
	}
	for _, s := range syncs {
		m, okM := s["members"]
		r, okR := s["reason"]
		if !okM || !okR || isNull(m) || isNull(r) {
			return out, false
		}
	}
	return out, true
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// ValidOutput reports whether text satisfies the strict team schema.
func ValidOutput(text string) bool {
	_, ok := parseStrict(text)
	return ok
}

// repair turns model text into a TeamInsight. Schema-conforming output is
// cleaned; anything else is salvaged field by field. Either way syncs come
// back with one entry per unordered pair. universe is the batch's
// author names and corpus its lowercased standup text.
func repair(text string, universe []string, corpus string) standup.TeamInsight {
	if raw, ok := parseStrict(text); ok {
		syncs := make([]standup.SyncPair, 0, len(raw.SuggestedSyncs))
		for _, s := range raw.SuggestedSyncs {
			reason := strings.TrimSpace(s.Reason)
			if reason == "" {
				reason = reasonDefault
			}
			syncs = append(syncs, standup.SyncPair{
				Members: ensurePair(s.Members, universe),
				Reason:  refineReason(reason),
			})
		}
		return standup.TeamInsight{
			TeamSummary:    strings.TrimSpace(raw.TeamSummary),
			CommonBlockers: capList(distinctTrimmed(raw.CommonBlockers), maxListItems),
			SuggestedSyncs: dedupeSyncs(syncs),
			Risks:          capList(distinctTrimmed(raw.Risks), maxListItems),
		}
	}
	return coerce(text, universe, corpus)
}

func coerce(text string, universe []string, corpus string) standup.TeamInsight {
	out := standup.TeamInsight{
		TeamSummary:    summaryUnavailable,
		CommonBlockers: []string{},
		SuggestedSyncs: []standup.SyncPair{},
		Risks:          []string{},
	}

	var obj map[string]any
	if body := engine.ExtractJSON(text); body != "" {
		if err := json.Unmarshal([]byte(body), &obj); err != nil {
			obj = nil
		}
	}
	if s, ok := obj["teamSummary"].(string); ok && strings.TrimSpace(s) != "" {
		out.TeamSummary = strings.TrimSpace(s)
	}
	out.CommonBlockers = capList(distinctTrimmed(stringsOf(obj["commonBlockers"])), maxListItems)
	out.Risks = capList(distinctTrimmed(stringsOf(obj["risks"])), maxListItems)

	if items, ok := obj["suggestedSyncs"].([]any); ok {
		for _, it := range items {
			switch v := it.(type) {
			case map[string]any:
				members, okM := v["members"].([]any)
				reason, okR := v["reason"].(string)
				if !okM || !okR {
					continue
				}
				if reason = strings.TrimSpace(reason); reason == "" {
					reason = reasonDefault
				}
				out.SuggestedSyncs = append(out.SuggestedSyncs, standup.SyncPair{
					Members: ensurePair(stringsOf(members), universe),
					Reason:  refineReason(reason),
				})
			case string:
				reason := strings.TrimSpace(v)
				if reason == "" {
					reason = reasonDefault
				}
				out.SuggestedSyncs = append(out.SuggestedSyncs, standup.SyncPair{
					Members: ensurePair(nil, universe),
					Reason:  refineReason(reason),
				})
			}
		}
	}

	if len(out.SuggestedSyncs) == 0 {
		if reCredsLanguage.MatchString(corpus) {
			out.SuggestedSyncs = append(out.SuggestedSyncs, standup.SyncPair{Members: ensurePair(nil, universe), Reason: reasonCredsFallback})
		}
		if rePriorityTalk.MatchString(corpus) {
			out.SuggestedSyncs = append(out.SuggestedSyncs, standup.SyncPair{Members: ensurePair(nil, universe), Reason: reasonPriorityClarif})
		}
		if len(out.SuggestedSyncs) == 0 {
			out.SuggestedSyncs = append(out.SuggestedSyncs, standup.SyncPair{Members: ensurePair(nil, universe), Reason: reasonGenericCoord})
		}
	}
	out.SuggestedSyncs = dedupeSyncs(out.SuggestedSyncs)
	return out
}

// stringsOf keeps the string elements of a decoded JSON array.
func stringsOf(v any) []string {
	var out []string
	switch arr := v.(type) {
	case []any:
		for _, x := range arr {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
	case []string:
		out = arr
	}
	return out
}

// corpusOf lowercases every standup field into one string for language checks.
func corpusOf(records []standup.Record) string {
	var sb strings.Builder
	for _, r := range records {
		sb.WriteString(r.Yesterday)
		sb.WriteByte(' ')
		sb.WriteString(r.Today)
		sb.WriteByte(' ')
		sb.WriteString(r.Blockers)
		sb.WriteByte(' ')
	}
	return strings.ToLower(sb.String())
}
