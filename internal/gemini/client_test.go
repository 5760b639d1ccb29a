package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenerate(t *testing.T) {
	var (
		gotPath, gotKey string
		captured        map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"tone\":"},{"text":"\"neutral\"}"}]}}]}`))
	}))
	defer srv.Close()

	c := New("secret", WithBaseURL(srv.URL))
	out, err := c.Generate(context.Background(), Request{
		System:      "You are a standup analyst.",
		User:        "standups",
		Temperature: 0.1,
		MaxTokens:   512,
		JSON:        true,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != `{"tone":"neutral"}` {
		t.Errorf("text = %q", out)
	}
	if gotPath != "/"+DefaultModel+":generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "secret" {
		t.Errorf("key = %q", gotKey)
	}

	cfg, _ := captured["generationConfig"].(map[string]any)
	if cfg["responseMimeType"] != "application/json" || cfg["maxOutputTokens"] != float64(512) {
		t.Errorf("generationConfig = %v", cfg)
	}
	if _, ok := captured["systemInstruction"]; !ok {
		t.Error("systemInstruction missing")
	}
}

func TestGenerate_NoSystemInstruction(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer srv.Close()

	c := New("k", WithBaseURL(srv.URL))
	if _, err := c.Generate(context.Background(), Request{Model: "gemini-1.5-flash", User: "hi"}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, ok := captured["systemInstruction"]; ok {
		t.Error("systemInstruction sent without a system prompt")
	}
}

func TestGenerate_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c := New("k", WithBaseURL(srv.URL))
	if _, err := c.Generate(context.Background(), Request{User: "x"}); err != ErrEmptyResponse {
		t.Fatalf("err = %v, want ErrEmptyResponse", err)
	}
}

func TestGenerate_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusForbidden)
	}))
	defer srv.Close()

	c := New("k", WithBaseURL(srv.URL))
	if _, err := c.Generate(context.Background(), Request{User: "x"}); err == nil {
		t.Fatal("expected error on 403")
	}
}
