package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const tokenAccount = "server.token"

// SecretStore reads and writes secrets.
type SecretStore interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
}

// Secrets returns the secrets file used by Load and SetKey.
func Secrets() SecretStore {
	return fileSecrets{path: SecretsFilePath()}
}

// GetAPIToken returns cfg.Server.Token when set. Otherwise it reads the
// stored token, generating and persisting a fresh one on first use.
func GetAPIToken(cfg Config, store SecretStore) (string, error) {
	if cfg.Server.Token != "" {
		return cfg.Server.Token, nil
	}
	if tok, err := store.Get(secretsService, tokenAccount); err == nil && tok != "" {
		return tok, nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	tok := hex.EncodeToString(buf)
	if err := store.Set(secretsService, tokenAccount, tok); err != nil {
		return "", fmt.Errorf("storing token: %w", err)
	}
	return tok, nil
}
