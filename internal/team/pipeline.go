package team

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kalambet/huddle/internal/engine"
	"github.com/kalambet/huddle/internal/similarity"
	"github.com/kalambet/huddle/internal/standup"
)

// Generator produces model text for a prompt, retrying once with reduced
// when the primary attempt fails or is rejected by valid.
type Generator interface {
	Invoke(ctx context.Context, primary, reduced []engine.Message, valid func(string) bool) (string, error)
}

// Synthesizer turns one day's standups into a TeamInsight.
type Synthesizer struct {
	gen    Generator
	logger *slog.Logger
}

// NewSynthesizer creates a Synthesizer. A nil logger uses slog.Default().
func NewSynthesizer(gen Generator, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{gen: gen, logger: logger}
}

// Synthesize runs the full pipeline. An empty batch returns the empty
// insight without calling the model. The only error is a model failure.
func (s *Synthesizer) Synthesize(ctx context.Context, records []standup.Record) (standup.TeamInsight, error) {
	if len(records) == 0 {
		return standup.EmptyTeamInsight(), nil
	}

	profiles := BuildProfiles(records)
	counts := CountBlockers(records)
	idf := similarity.IDF(topicDocs(profiles))
	hints := BuildHints(profiles, idf)
	primary, reduced := buildMessages(records, profiles, counts, hints)

	s.logger.Debug("synthesizing team insight",
		"standups", len(records), "hints", len(hints), "blockers", len(counts))

	text, err := s.gen.Invoke(ctx, primary, reduced, ValidOutput)
	if err != nil {
		return standup.TeamInsight{}, fmt.Errorf("team insight: %w", err)
	}
	if !ValidOutput(text) {
		s.logger.Warn("model output did not match schema, coercing", "bytes", len(text))
	}

	insight := repair(text, standup.Names(records), corpusOf(records))
	insight.SuggestedSyncs = augment(insight.SuggestedSyncs, hints, profiles, idf, counts)
	return overlay(insight, counts), nil
}
