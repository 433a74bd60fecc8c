package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Env is a snapshot of environment variables used for option resolution.
// It is never written back to the process environment.
type Env map[string]string

// LoadEnv snapshots the process environment and overlays envFile when set.
func LoadEnv(envFile string) (Env, error) {
	env := ParseEnviron(os.Environ())

	if envFile == "" {
		return env, nil
	}

	overlay, err := godotenv.Read(filepath.Clean(envFile))
	if err != nil {
		return nil, fmt.Errorf("read env file: %w", err)
	}

	for key, value := range overlay {
		env[key] = value
	}

	return env, nil
}

// ParseEnviron converts KEY=VALUE pairs into an Env.
func ParseEnviron(environ []string) Env {
	env := make(Env, len(environ))

	for _, kv := range environ {
		key, value, found := strings.Cut(kv, "=")
		if !found {
			continue
		}

		env[key] = value
	}

	return env
}

// First returns the first non-empty value among keys.
func (e Env) First(keys ...string) string {
	for _, key := range keys {
		if value := e[key]; value != "" {
			return value
		}
	}

	return ""
}
