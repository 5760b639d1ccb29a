package personal

import (
	"regexp"
	"strings"

	"github.com/kalambet/huddle/internal/signals"
)

const (
	tipRotateCode = `For "rotate-code": name the file(s)/module(s) and one test (e.g., POST /teams/:id/rotate-code + Jest case).`
	tipSelectors  = "For selectors: specify component(s) and binding (e.g., <TeamPicker> -> teamId)."
	tipYesterday  = "Add 1-2 concrete outcomes for yesterday (PR #, files, endpoint)."
	tipToday      = "Make today measurable (API path, UI surface, or test)."
	tipGeneric    = "Prefer short bullets; include owners/IDs where relevant."

	// minDetail is the joined task length below which an update reads as vague.
	minDetail = 15
)

var reTemplated = regexp.MustCompile(`(?i)^if vague`)

// synthesizeClarity builds at most two concrete tips from the standup text.
func synthesizeClarity(yesterday, today string) string {
	t := strings.ToLower(today)
	var tips []string
	if strings.Contains(t, "rotate") && strings.Contains(t, "code") {
		tips = append(tips, tipRotateCode)
	}
	if strings.Contains(t, "selector") {
		tips = append(tips, tipSelectors)
	}
	if len(strings.Join(splitTasks(yesterday), " ")) < minDetail {
		tips = append(tips, tipYesterday)
	}
	if len(tips) == 0 && len(strings.Join(splitTasks(today), " ")) < minDetail {
		tips = append(tips, tipToday)
	}
	if len(tips) == 0 {
		tips = append(tips, tipGeneric)
	}
	if len(tips) > 2 {
		tips = tips[:2]
	}
	return strings.Join(tips, " ")
}

// needsClarity reports whether model feedback must be replaced: it is empty,
// a template, reads like a blocker, or restates the blocker text.
func needsClarity(feedback, blocker string) bool {
	f := strings.TrimSpace(feedback)
	if f == "" || reTemplated.MatchString(f) || signals.IsBlockerLike(f) {
		return true
	}
	return blocker != "" && strings.Contains(strings.ToLower(f), blocker)
}
