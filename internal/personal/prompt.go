package personal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kalambet/huddle/internal/engine"
	"github.com/kalambet/huddle/internal/standup"
)

const schemaInstructions = `The output must be a single JSON object with exactly these keys:
{
  "keyTasks": string[],
  "clarityFeedback": string,
  "tone": "positive" | "neutral" | "overwhelmed" | "frustrated",
  "suggestions": string[]
}`

const coachRules = `Rules:
- "keyTasks": extract crisp bullets from BOTH yesterday and today; include action verbs and objects (e.g., "Implement rotate-code endpoint", "Wire team selectors").
- DO NOT put blockers into "suggestions"; if you must address a blocker, phrase it as "Unblock: <short blocker>".
- "clarityFeedback": write concrete guidance (no placeholders); suggest how to be more specific (files, endpoints, tests, owners).
- "tone": one word from {positive, neutral, overwhelmed, frustrated}.
- "suggestions": 2-5 short next steps, measurable if possible; no duplicates of keyTasks or plain restatements.
- Use only the information provided.`

func renderStandup(r standup.Record) string {
	dash := func(s string) string {
		if s = strings.TrimSpace(s); s == "" {
			return "-"
		}
		return s
	}
	return fmt.Sprintf("### %s — %s\n- Y: %s\n- T: %s\n- B: %s\n",
		strings.TrimSpace(r.Author), r.Date, dash(r.Yesterday), dash(r.Today), dash(r.Blockers))
}

func buildMessages(r standup.Record) (primary, reduced []engine.Message) {
	rendered := renderStandup(r)
	primary = []engine.Message{
		{Role: engine.RoleSystem, Content: "You are a thoughtful teammate coach.\nReturn ONLY valid JSON per the schema. No markdown fences. No extra text.\n" + schemaInstructions},
		{Role: engine.RoleUser, Content: "# Standup (single person)\n" + rendered + "\n" + coachRules},
	}
	reduced = []engine.Message{
		{Role: engine.RoleSystem, Content: "Return ONLY valid JSON for this schema (no markdown, no extra text):\n" + schemaInstructions},
		{Role: engine.RoleUser, Content: "Context:\n" + rendered},
	}
	return primary, reduced
}

type rawInsight struct {
	KeyTasks        []string `json:"keyTasks"`
	ClarityFeedback string   `json:"clarityFeedback"`
	Tone            string   `json:"tone"`
	Suggestions     []string `json:"suggestions"`
}

var requiredKeys = []string{"keyTasks", "clarityFeedback", "tone", "suggestions"}

func parseStrict(text string) (rawInsight, bool) {
	var out rawInsight
	body := []byte(engine.StripCodeFences(text))
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return out, false
	}
	for _, k := range requiredKeys {
		v, ok := fields[k]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return out, false
		}
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, false
	}
	return out, true
}

// ValidOutput reports whether text satisfies the personal insight schema.
func ValidOutput(text string) bool {
	_, ok := parseStrict(text)
	return ok
}
