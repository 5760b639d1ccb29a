package team

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kalambet/huddle/internal/engine"
	"github.com/kalambet/huddle/internal/signals"
	"github.com/kalambet/huddle/internal/standup"
)

const schemaInstructions = `The output must be a single JSON object with exactly these keys:
{
  "teamSummary": string,
  "commonBlockers": string[],
  "suggestedSyncs": [{"members": string[], "reason": string}],
  "risks": string[]
}`

const systemPrompt = `You are an engineering manager assistant.
Return ONLY valid JSON per the schema. No markdown fences. No extra text.
` + schemaInstructions

const rules = `Rules:
- Use only the information above (standups + hints). Do not invent names.
- "teamSummary": write exactly 1 short paragraph (2-4 sentences) that MUST:
  * mention the total number of standups analyzed (%d),
  * explicitly name 2 concrete shared topics/keywords (e.g., "rotate-code", "selectors", "insights"),
  * reference at least one concrete blocker phrase if present (e.g., "staging db credentials", "flaky tests").
- "commonBlockers": 3-5 items, concise, normalized (e.g., "staging db credentials", "flaky tests").
- "suggestedSyncs": 3-5 pairs, each MUST have 2 members and a specific reason:
  * Overlap: name the 1-3 specific shared keywords.
  * Unblock: name the specific blocker being unblocked (e.g., "staging db credentials").
- The "reason" MUST NOT summarize accomplishments ("built X", "did Y"); it must explain the overlap or unblock.
- Avoid generic words in reasons like "team", "work", "tasks", "add". Be concrete.
- "risks": up to 3 short items, only if clearly supported by data (e.g., "3 people blocked by staging db credentials").
- Keep all lists within 3-5 items.`

// personTopics is the per-author hint block sent to the model.
type personTopics struct {
	Name          string   `json:"name"`
	Topics        []string `json:"topics"`
	BlockerTopics []string `json:"blockerTopics"`
}

// renderStandups formats records as compact markdown blocks.
func renderStandups(records []standup.Record) string {
	var sb strings.Builder
	for i, r := range records {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "### %s — %s\n- Y: %s\n- T: %s\n- B: %s\n",
			strings.TrimSpace(r.Author), r.Date, orDash(r.Yesterday), orDash(r.Today), orDash(r.Blockers))
	}
	return sb.String()
}

func orDash(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "-"
	}
	return s
}

func toJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "null"
	}
	return string(b)
}

// buildMessages returns the full prompt and the reduced retry prompt.
func buildMessages(records []standup.Record, profiles []Profile, counts map[string]int, hints []standup.SyncPair) (primary, reduced []engine.Message) {
	people := make([]personTopics, len(records))
	for i, r := range records {
		people[i] = personTopics{
			Name:          profiles[i].Name,
			Topics:        nonNil(profiles[i].Topics),
			BlockerTopics: nonNil(signals.TopicList(r.Blockers)),
		}
	}
	if hints == nil {
		hints = []standup.SyncPair{}
	}
	rendered := renderStandups(records)

	var user strings.Builder
	fmt.Fprintf(&user, "# Team Standups (single date)\n%s\n", rendered)
	user.WriteString("# Derived Hints (non-authoritative; use only if helpful)\n")
	fmt.Fprintf(&user, "- Per-person topics (from yesterday/today):\n%s\n", toJSON(people))
	fmt.Fprintf(&user, "- Blocker keyword counts (merged across people):\n%s\n", toJSON(counts))
	fmt.Fprintf(&user, "- Suggested pairs hints (pre-identified, optional to use):\n%s\n\n", toJSON(hints))
	fmt.Fprintf(&user, rules, len(records))

	primary = []engine.Message{
		{Role: engine.RoleSystem, Content: systemPrompt},
		{Role: engine.RoleUser, Content: user.String()},
	}
	reduced = []engine.Message{
		{Role: engine.RoleSystem, Content: "Return ONLY valid JSON for this schema (no markdown, no extra text):\n" + schemaInstructions},
		{Role: engine.RoleUser, Content: "Context:\n" + rendered},
	}
	return primary, reduced
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
