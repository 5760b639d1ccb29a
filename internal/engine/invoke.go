package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ErrModelUnavailable is returned when the backend could not produce any
// text after the retry.
var ErrModelUnavailable = errors.New("model unavailable")

// Invoker runs one primary attempt and at most one reduced-prompt retry
// against a single Engine.
type Invoker struct {
	engine  Engine
	opts    ChatOptions
	timeout time.Duration
	logger  *slog.Logger
}

// NewInvoker wraps e. Each attempt is bounded by timeout when it is positive.
func NewInvoker(e Engine, opts ChatOptions, timeout time.Duration) *Invoker {
	return &Invoker{engine: e, opts: opts, timeout: timeout, logger: slog.Default()}
}

// WithLogger sets the logger used for retry warnings. A nil logger is ignored.
func (inv *Invoker) WithLogger(l *slog.Logger) *Invoker {
	if l != nil {
		inv.logger = l
	}
	return inv
}

// Provider returns the underlying engine name.
func (inv *Invoker) Provider() string { return inv.engine.Name() }

// Invoke sends primary. A transport error, empty text, or text rejected by
// valid triggers one attempt with reduced. If the retry still fails at the
// transport level or returns nothing, the error wraps ErrModelUnavailable;
// non-empty but invalid retry text is returned for the caller to repair.
func (inv *Invoker) Invoke(ctx context.Context, primary, reduced []Message, valid func(string) bool) (string, error) {
	text, err := inv.attempt(ctx, primary)
	if err == nil && strings.TrimSpace(text) != "" && (valid == nil || valid(text)) {
		return text, nil
	}
	if ctx.Err() != nil {
		return "", fmt.Errorf("%w: %w", ErrModelUnavailable, ctx.Err())
	}
	inv.logger.Warn("model output unusable, retrying with reduced prompt",
		"provider", inv.engine.Name(), "error", err, "empty", strings.TrimSpace(text) == "")

	if len(reduced) == 0 {
		reduced = primary
	}
	text, err = inv.attempt(ctx, reduced)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrModelUnavailable, inv.engine.Name(), err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %s returned empty output", ErrModelUnavailable, inv.engine.Name())
	}
	return text, nil
}

func (inv *Invoker) attempt(ctx context.Context, messages []Message) (string, error) {
	if inv.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.timeout)
		defer cancel()
	}
	return inv.engine.Chat(ctx, messages, inv.opts)
}
