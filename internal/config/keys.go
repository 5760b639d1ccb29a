package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	aliases []string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

// specs lists every recognised key. Secrets are never read from or written to
// the config file; they come from the environment or the secrets file.
var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "HUDDLE_SERVER_PORT",
		aliases: []string{"PORT"},
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.token", typ: kString, env: "HUDDLE_SERVER_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Token },
	},
	{
		key: "model.provider", typ: kString, env: "HUDDLE_MODEL_PROVIDER",
		apply:   func(cfg *Config, v any) { cfg.Model.Provider = v.(string) },
		extract: func(cfg Config) any { return cfg.Model.Provider },
	},
	{
		key: "model.temperature", typ: kFloat, env: "HUDDLE_MODEL_TEMPERATURE",
		apply:   func(cfg *Config, v any) { cfg.Model.Temperature = v.(float64) },
		extract: func(cfg Config) any { return cfg.Model.Temperature },
	},
	{
		key: "model.max_tokens", typ: kInt, env: "HUDDLE_MODEL_MAX_TOKENS",
		apply:   func(cfg *Config, v any) { cfg.Model.MaxTokens = v.(int) },
		extract: func(cfg Config) any { return cfg.Model.MaxTokens },
	},
	{
		key: "model.timeout", typ: kString, env: "HUDDLE_MODEL_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Model.Timeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Model.Timeout },
	},
	{
		key: "groq.base_url", typ: kString, env: "HUDDLE_GROQ_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Groq.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Groq.BaseURL },
	},
	{
		key: "groq.model", typ: kString, env: "HUDDLE_GROQ_MODEL",
		aliases: []string{"GROQ_MODEL"},
		apply:   func(cfg *Config, v any) { cfg.Groq.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Groq.Model },
	},
	{
		key: "groq.api_key", typ: kString, env: "HUDDLE_GROQ_API_KEY",
		aliases: []string{"GROQ_API_KEY"},
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Groq.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Groq.APIKey },
	},
	{
		key: "gemini.base_url", typ: kString, env: "HUDDLE_GEMINI_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Gemini.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.BaseURL },
	},
	{
		key: "gemini.model", typ: kString, env: "HUDDLE_GEMINI_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Gemini.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.Model },
	},
	{
		key: "gemini.api_key", typ: kString, env: "HUDDLE_GEMINI_API_KEY",
		aliases: []string{"GOOGLE_API_KEY"},
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Gemini.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.APIKey },
	},
	{
		key: "ollama.base_url", typ: kString, env: "HUDDLE_OLLAMA_BASE_URL",
		aliases: []string{"OLLAMA_HOST"},
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "ollama.model", typ: kString, env: "HUDDLE_OLLAMA_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.Model },
	},
	{
		key: "storage.data_dir", typ: kString, env: "HUDDLE_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "HUDDLE_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "digest.time", typ: kString, env: "HUDDLE_DIGEST_TIME",
		apply:   func(cfg *Config, v any) { cfg.Digest.Time = v.(string) },
		extract: func(cfg Config) any { return cfg.Digest.Time },
	},
	{
		key: "digest.timezone", typ: kString, env: "HUDDLE_DIGEST_TIMEZONE",
		apply:   func(cfg *Config, v any) { cfg.Digest.Timezone = v.(string) },
		extract: func(cfg Config) any { return cfg.Digest.Timezone },
	},
	{
		key: "digest.teams", typ: kString, env: "HUDDLE_DIGEST_TEAMS",
		apply:   func(cfg *Config, v any) { cfg.Digest.Teams = v.(string) },
		extract: func(cfg Config) any { return cfg.Digest.Teams },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		case kFloat:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					s.apply(cfg, f)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse float from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		raw, name := lookupEnv(s)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", name, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", name, raw, err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", name, raw, err)
			}
		}
	}
}

// lookupEnv returns the first non-empty value among the HUDDLE_* variable
// and its aliases, with the variable name it came from.
func lookupEnv(s keySpec) (string, string) {
	for _, name := range append([]string{s.env}, s.aliases...) {
		if v := os.Getenv(name); v != "" {
			return v, name
		}
	}
	return "", ""
}
