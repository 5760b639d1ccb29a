package engine

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
)

type mockReadiness struct {
	isRunning bool
	models    map[string]bool
	pulled    []string
}

func (m *mockReadiness) IsRunning(_ context.Context) bool             { return m.isRunning }
func (m *mockReadiness) HasModel(_ context.Context, name string) bool { return m.models[name] }
func (m *mockReadiness) PullModel(_ context.Context, name string, cb func(PullProgress)) error {
	m.pulled = append(m.pulled, name)
	if cb != nil {
		cb(PullProgress{Status: "downloading", Total: 10, Completed: 5})
		cb(PullProgress{Status: "success"})
	}
	return nil
}

func TestEnsureReady_ModelPresent(t *testing.T) {
	m := &mockReadiness{isRunning: true, models: map[string]bool{"llama3.1:8b": true}}
	if err := EnsureReady(context.Background(), m, "llama3.1:8b", io.Discard); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if len(m.pulled) != 0 {
		t.Errorf("expected no pulls, got %v", m.pulled)
	}
}

func TestEnsureReady_PullsMissing(t *testing.T) {
	m := &mockReadiness{isRunning: true, models: map[string]bool{}}
	var out bytes.Buffer
	if err := EnsureReady(context.Background(), m, "llama3.1:8b", &out); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if len(m.pulled) != 1 || m.pulled[0] != "llama3.1:8b" {
		t.Errorf("pulled = %v", m.pulled)
	}
	if !strings.Contains(out.String(), "downloading 50%") {
		t.Errorf("progress output = %q", out.String())
	}
}

func TestEnsureReady_EngineDown(t *testing.T) {
	m := &mockReadiness{isRunning: false}
	if err := EnsureReady(context.Background(), m, "llama3.1:8b", io.Discard); err == nil {
		t.Fatal("expected error when engine is down")
	}
}
