package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

// mockSecrets is a test double for the secret store.
type mockSecrets map[string]string

func (m mockSecrets) Get(_, account string) (string, error) {
	if v, ok := m[account]; ok {
		return v, nil
	}
	return "", errors.New("not found")
}

func writeTempConfig(t *testing.T, content string) *fileBackend {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return newFileBackend(path)
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		for _, name := range append([]string{s.env}, s.aliases...) {
			t.Setenv(name, "")
		}
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := loadWith(writeTempConfig(t, `{}`), mockSecrets{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4000 {
		t.Errorf("Server.Port = %d, want 4000", cfg.Server.Port)
	}
	if cfg.Model.Provider != "groq" || cfg.Model.Temperature != 0.1 || cfg.Model.MaxTokens != 1024 {
		t.Errorf("Model = %+v", cfg.Model)
	}
	if cfg.Ollama.Model != "llama3.1:8b" || cfg.Ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("Ollama = %+v", cfg.Ollama)
	}
	if cfg.Groq.Model != "llama-3.1-8b-instant" || cfg.Gemini.Model != "gemini-1.5-pro" {
		t.Errorf("hosted models = %q, %q", cfg.Groq.Model, cfg.Gemini.Model)
	}
	if cfg.Digest.Timezone != "Asia/Kolkata" || cfg.Digest.Time != "09:30" {
		t.Errorf("Digest = %+v", cfg.Digest)
	}
	if d, _ := cfg.ModelTimeout(); d != 60*time.Second {
		t.Errorf("timeout = %v", d)
	}
}

func TestFileValues(t *testing.T) {
	clearEnv(t)
	b := writeTempConfig(t, `{
		"server.port": 5000,
		"model.provider": "ollama",
		"model.temperature": "0.3",
		"model.timeout": "15s",
		"ollama.model": "qwen2.5:7b",
		"storage.data_dir": "/tmp/huddle-test",
		"digest.teams": "core, web ,,"
	}`)

	cfg, err := loadWith(b, mockSecrets{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 5000 || cfg.Model.Provider != "ollama" || cfg.Model.Temperature != 0.3 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Ollama.Model != "qwen2.5:7b" || cfg.Storage.DataDir != "/tmp/huddle-test" {
		t.Errorf("cfg = %+v", cfg)
	}
	if got := cfg.DigestTeams(); !slices.Equal(got, []string{"core", "web"}) {
		t.Errorf("DigestTeams = %q", got)
	}

	ec := cfg.Engine()
	if ec.Provider != "ollama" || ec.Timeout != 15*time.Second || ec.OllamaModel != "qwen2.5:7b" {
		t.Errorf("engine config = %+v", ec)
	}
}

func TestEnvOverrideAndAliases(t *testing.T) {
	clearEnv(t)
	t.Setenv("HUDDLE_SERVER_PORT", "7000")
	t.Setenv("GROQ_API_KEY", "alias-key")
	t.Setenv("OLLAMA_HOST", "http://gpu-box:11434")
	t.Setenv("HUDDLE_MODEL_PROVIDER", "gemini")

	cfg, err := loadWith(writeTempConfig(t, `{"server.port": 5000}`), mockSecrets{"groq.api_key": "file-key"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want env value", cfg.Server.Port)
	}
	if cfg.Groq.APIKey != "alias-key" {
		t.Errorf("Groq.APIKey = %q, want env over secrets file", cfg.Groq.APIKey)
	}
	if cfg.Ollama.BaseURL != "http://gpu-box:11434" {
		t.Errorf("Ollama.BaseURL = %q", cfg.Ollama.BaseURL)
	}
	if cfg.Model.Provider != "gemini" {
		t.Errorf("Provider = %q", cfg.Model.Provider)
	}
}

func TestSecretsFallback(t *testing.T) {
	clearEnv(t)
	cfg, err := loadWith(writeTempConfig(t, `{}`), mockSecrets{"gemini.api_key": "g-secret", "server.token": "tok"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gemini.APIKey != "g-secret" || cfg.Server.Token != "tok" {
		t.Errorf("secrets not applied: gemini=%q token=%q", cfg.Gemini.APIKey, cfg.Server.Token)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name, file, want string
	}{
		{"provider", `{"model.provider": "openai"}`, "model.provider"},
		{"timeout", `{"model.timeout": "soon"}`, "model.timeout"},
		{"temperature", `{"model.temperature": "3"}`, "model.temperature"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := loadWith(writeTempConfig(t, tt.file), mockSecrets{})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestSetKey(t *testing.T) {
	dir := t.TempDir()
	b := newFileBackend(filepath.Join(dir, "config.json"))
	secrets := fileSecrets{path: filepath.Join(dir, "secrets.json")}

	if err := setKeyWith(b, secrets, "server.port", "8080"); err != nil {
		t.Fatalf("set int: %v", err)
	}
	if err := setKeyWith(b, secrets, "server.port", "eighty"); err == nil {
		t.Error("expected error for non-integer port")
	}
	if err := setKeyWith(b, secrets, "model.temperature", "warm"); err == nil {
		t.Error("expected error for non-numeric temperature")
	}
	if err := setKeyWith(b, secrets, "nope", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
	if err := setKeyWith(b, secrets, "groq.api_key", "gsk_123456"); err != nil {
		t.Fatalf("set secret: %v", err)
	}

	reloaded := newFileBackend(b.path)
	if v, ok, _ := reloaded.GetInt("server.port"); !ok || v != 8080 {
		t.Errorf("server.port = %d, %v", v, ok)
	}
	if _, ok, _ := reloaded.GetString("groq.api_key"); ok {
		t.Error("secret written to config file")
	}
	if v, err := secrets.Get(secretsService, "groq.api_key"); err != nil || v != "gsk_123456" {
		t.Errorf("secret = %q, %v", v, err)
	}
	if info, _ := os.Stat(secrets.path); info.Mode().Perm() != 0o600 {
		t.Errorf("secrets mode = %v", info.Mode().Perm())
	}
}

func TestShowAllMasksSecrets(t *testing.T) {
	cfg := defaults()
	cfg.Groq.APIKey = "gsk_abcdef1234"

	for _, ki := range ShowAll(cfg) {
		switch ki.Key {
		case "groq.api_key":
			if ki.Value != "****1234" {
				t.Errorf("groq.api_key shown as %q", ki.Value)
			}
		case "gemini.api_key":
			if ki.Value != "(unset)" {
				t.Errorf("gemini.api_key shown as %q", ki.Value)
			}
		}
	}
	if len(ValidKeys()) != len(specs) {
		t.Error("ValidKeys does not cover every spec")
	}
}
