package personal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kalambet/huddle/internal/engine"
	"github.com/kalambet/huddle/internal/signals"
	"github.com/kalambet/huddle/internal/standup"
)

const maxKeyTasks = 6

// Generator produces model text for a prompt, retrying once with reduced.
type Generator interface {
	Invoke(ctx context.Context, primary, reduced []engine.Message, valid func(string) bool) (string, error)
}

// Analyzer produces a PersonalInsight for one standup.
type Analyzer struct {
	gen    Generator
	logger *slog.Logger
}

// NewAnalyzer creates an Analyzer. A nil logger uses slog.Default().
func NewAnalyzer(gen Generator, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{gen: gen, logger: logger}
}

// Analyze asks the model for an insight and hardens the answer. Output that
// does not match the schema is replaced by a locally derived draft before
// post-processing. Only a model failure is returned as an error.
func (a *Analyzer) Analyze(ctx context.Context, r standup.Record) (standup.PersonalInsight, error) {
	primary, reduced := buildMessages(r)
	text, err := a.gen.Invoke(ctx, primary, reduced, ValidOutput)
	if err != nil {
		return standup.PersonalInsight{}, fmt.Errorf("personal insight: %w", err)
	}

	raw, ok := parseStrict(text)
	if !ok {
		a.logger.Warn("model output did not match schema, using local draft", "standup", r.ID)
		raw = localDraft(r)
	}
	return finalize(raw, r), nil
}

// localDraft derives an insight from the standup text alone.
func localDraft(r standup.Record) rawInsight {
	y, t := splitTasks(r.Yesterday), splitTasks(r.Today)
	keyTasks := append(append([]string{}, y...), t...)
	if len(keyTasks) > 5 {
		keyTasks = keyTasks[:5]
	}
	if len(t) > 4 {
		t = t[:4]
	}
	return rawInsight{
		KeyTasks:        keyTasks,
		ClarityFeedback: synthesizeClarity(r.Yesterday, r.Today),
		Tone:            signals.InferTone(r.Yesterday, r.Today, r.Blockers),
		Suggestions:     t,
	}
}

// finalize applies the deterministic post-processing to a draft.
func finalize(raw rawInsight, r standup.Record) standup.PersonalInsight {
	todayTasks := splitTasks(r.Today)
	blocker := standup.BlockerText(r.Blockers)

	keyTasks := rankKeyTasks(todayTasks, splitTasks(r.Yesterday), raw.KeyTasks)

	tone := strings.ToLower(strings.TrimSpace(raw.Tone))
	if !standup.ValidTone(tone) {
		tone = signals.InferTone(r.Yesterday, r.Today, r.Blockers)
	}
	tone = signals.AdjustTone(tone, blocker)

	clarity := strings.TrimSpace(raw.ClarityFeedback)
	if needsClarity(clarity, strings.ToLower(blocker)) {
		clarity = synthesizeClarity(r.Yesterday, r.Today)
	}

	return standup.PersonalInsight{
		KeyTasks:        keyTasks,
		ClarityFeedback: clarity,
		Tone:            tone,
		Suggestions:     buildSuggestions(raw.Suggestions, keyTasks, todayTasks, r.Today, blocker),
	}
}

// rankKeyTasks merges task sources in priority order, dropping canonical
// duplicates, so today's tasks precede yesterday's and the model's.
func rankKeyTasks(sources ...[]string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, src := range sources {
		for _, t := range src {
			t = normalizeSuggestion(t)
			c := canonical(t)
			if c == "" || seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, t)
			if len(out) == maxKeyTasks {
				return out
			}
		}
	}
	return out
}
