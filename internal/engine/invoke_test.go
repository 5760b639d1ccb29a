package engine

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

type reply struct {
	text string
	err  error
}

// scriptedEngine returns replies in order and records each call's messages.
type scriptedEngine struct {
	replies []reply
	calls   [][]Message
}

func (s *scriptedEngine) Name() string { return "scripted" }

func (s *scriptedEngine) Chat(_ context.Context, messages []Message, _ ChatOptions) (string, error) {
	s.calls = append(s.calls, messages)
	if len(s.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r.text, r.err
}

var (
	primaryMsgs = []Message{{Role: RoleUser, Content: "full prompt"}}
	reducedMsgs = []Message{{Role: RoleUser, Content: "reduced prompt"}}
)

func isJSONObject(s string) bool { return len(s) > 0 && s[0] == '{' }

func TestInvoke_FirstAttemptSucceeds(t *testing.T) {
	e := &scriptedEngine{replies: []reply{{text: `{"ok":true}`}}}
	got, err := NewInvoker(e, DefaultChatOptions, 0).Invoke(context.Background(), primaryMsgs, reducedMsgs, isJSONObject)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got != `{"ok":true}` || len(e.calls) != 1 {
		t.Errorf("got %q after %d calls", got, len(e.calls))
	}
}

func TestInvoke_RetriesWithReducedPrompt(t *testing.T) {
	tests := []struct {
		name  string
		first reply
	}{
		{"transport error", reply{err: errors.New("connection reset")}},
		{"empty text", reply{text: "   "}},
		{"invalid text", reply{text: "Sure! Here is your summary."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &scriptedEngine{replies: []reply{tt.first, {text: `{"ok":1}`}}}
			got, err := NewInvoker(e, DefaultChatOptions, 0).Invoke(context.Background(), primaryMsgs, reducedMsgs, isJSONObject)
			if err != nil {
				t.Fatalf("Invoke: %v", err)
			}
			if got != `{"ok":1}` {
				t.Errorf("got %q", got)
			}
			if len(e.calls) != 2 || e.calls[1][0].Content != "reduced prompt" {
				t.Errorf("calls = %+v, want second call with reduced prompt", e.calls)
			}
		})
	}
}

func TestInvoke_DoubleFailureIsFatal(t *testing.T) {
	e := &scriptedEngine{replies: []reply{{err: errors.New("503")}, {err: errors.New("503")}}}
	_, err := NewInvoker(e, DefaultChatOptions, 0).Invoke(context.Background(), primaryMsgs, reducedMsgs, isJSONObject)
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("err = %v, want ErrModelUnavailable", err)
	}
	if len(e.calls) != 2 {
		t.Errorf("calls = %d, want 2", len(e.calls))
	}
}

func TestInvoke_EmptyRetryIsFatal(t *testing.T) {
	e := &scriptedEngine{replies: []reply{{text: ""}, {text: ""}}}
	_, err := NewInvoker(e, DefaultChatOptions, 0).Invoke(context.Background(), primaryMsgs, reducedMsgs, isJSONObject)
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("err = %v, want ErrModelUnavailable", err)
	}
}

func TestInvoke_InvalidRetryReturnedForRepair(t *testing.T) {
	e := &scriptedEngine{replies: []reply{{text: "prose"}, {text: "more prose {\"a\":1}"}}}
	got, err := NewInvoker(e, DefaultChatOptions, 0).Invoke(context.Background(), primaryMsgs, reducedMsgs, isJSONObject)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got != "more prose {\"a\":1}" {
		t.Errorf("got %q", got)
	}
}

func TestInvoke_RetryWarningUsesInjectedLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	e := &scriptedEngine{replies: []reply{{text: ""}, {text: `{"ok":true}`}}}

	inv := NewInvoker(e, DefaultChatOptions, 0).WithLogger(logger)
	if _, err := inv.Invoke(context.Background(), primaryMsgs, reducedMsgs, isJSONObject); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "retrying with reduced prompt") || !strings.Contains(out, "provider=scripted") {
		t.Errorf("log output = %q", out)
	}
	if inv.WithLogger(nil).logger != logger {
		t.Error("nil logger replaced the injected one")
	}
}
