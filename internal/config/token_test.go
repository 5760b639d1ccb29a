package config

import (
	"path/filepath"
	"testing"
)

func TestGetAPIToken_PrefersConfig(t *testing.T) {
	cfg := defaults()
	cfg.Server.Token = "configured"
	tok, err := GetAPIToken(cfg, fileSecrets{path: filepath.Join(t.TempDir(), "secrets.json")})
	if err != nil || tok != "configured" {
		t.Errorf("token = %q, %v", tok, err)
	}
}

func TestGetAPIToken_GeneratesOnce(t *testing.T) {
	store := fileSecrets{path: filepath.Join(t.TempDir(), "secrets.json")}

	first, err := GetAPIToken(defaults(), store)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if len(first) != 64 {
		t.Errorf("token length = %d, want 64", len(first))
	}

	second, err := GetAPIToken(defaults(), store)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if first != second {
		t.Error("token regenerated on second call")
	}
}
