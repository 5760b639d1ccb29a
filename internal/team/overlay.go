package team

import (
	"fmt"
	"maps"
	"regexp"

	"github.com/kalambet/huddle/internal/standup"
)

const maxRisks = 3

var (
	reOnePpl  = regexp.MustCompile(`(?i)\b1\s+ppl\b`)
	reManyPpl = regexp.MustCompile(`(?i)\b(\d+)\s+ppl\b`)
)

func fixRiskGrammar(r string) string {
	r = reOnePpl.ReplaceAllString(r, "1 person")
	return reManyPpl.ReplaceAllString(r, "$1 people")
}

// overlay replaces the data-derived fields of in with values computed from
// the blocker counts. Model risks survive only when no blocker is shared by
// two or more people.
func overlay(in standup.TeamInsight, counts map[string]int) standup.TeamInsight {
	sorted := SortedBlockers(counts)

	common := make([]string, 0, min(len(sorted), maxListItems))
	for _, bc := range capList(sorted, maxListItems) {
		common = append(common, bc.Label)
	}

	var deterministic []string
	for _, bc := range sorted {
		if bc.Count < 2 {
			continue
		}
		deterministic = append(deterministic, fmt.Sprintf("%d people blocked by %s", bc.Count, bc.Label))
		if len(deterministic) == maxRisks {
			break
		}
	}

	risks := make([]string, 0, len(in.Risks))
	if len(deterministic) > 0 {
		risks = deterministic
	} else {
		for _, r := range in.Risks {
			risks = append(risks, fixRiskGrammar(r))
		}
		risks = capList(risks, maxRisks)
	}

	in.CommonBlockers = common
	in.Risks = risks
	in.BlockerCounts = maps.Clone(counts)
	if in.BlockerCounts == nil {
		in.BlockerCounts = map[string]int{}
	}
	if in.SuggestedSyncs == nil {
		in.SuggestedSyncs = []standup.SyncPair{}
	}
	return in
}
