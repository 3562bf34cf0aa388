package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Secrets resolves named credentials from a read-only file-per-secret root
// (one file per secret, file contents are the value), falling back to an
// environment variable when the file does not exist.
type Secrets struct {
	root string
}

// NewSecrets creates a resolver rooted at dir. dir may not exist; lookups
// simply fall through to the environment in that case.
func NewSecrets(dir string) *Secrets {
	return &Secrets{root: dir}
}

// Get resolves name, e.g. "slack_webhook_url", first against
// <root>/slack_webhook_url, then against the environment variable
// SLACK_WEBHOOK_URL (uppercased name).
func (s *Secrets) Get(name string) (string, error) {
	if s.root != "" {
		path := filepath.Join(s.root, name)
		data, err := os.ReadFile(path)
		if err == nil {
			return strings.TrimSpace(string(data)), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("read secret file %q: %w", path, err)
		}
	}

	envName := strings.ToUpper(name)
	if value, ok := os.LookupEnv(envName); ok {
		return value, nil
	}

	return "", fmt.Errorf("secret %q not found in %s or environment %s", name, s.root, envName)
}

// GetOrDefault resolves name, returning def when neither the file nor the
// environment variable is set.
func (s *Secrets) GetOrDefault(name, def string) string {
	value, err := s.Get(name)
	if err != nil {
		return def
	}
	return value
}
