package hub

import (
	"os"
	"strings"
)

// CredentialProvider yields the bearer token for the hub, if one is present.
// Acquiring and persisting tokens is a collaborator's job; the pipeline only
// consumes them.
type CredentialProvider interface {
	CurrentToken() (string, bool)
}

// EnvCredentials resolves the token from the first non-empty environment
// variable in Vars.
type EnvCredentials struct {
	Vars []string
}

// NewEnvCredentials builds a provider that checks primary first, then the
// conventional hub variables.
func NewEnvCredentials(primary string) EnvCredentials {
	vars := []string{}
	for _, v := range []string{primary, "HF_TOKEN", "HUGGING_FACE_HUB_TOKEN"} {
		v = strings.TrimSpace(v)
		if v == "" || contains(vars, v) {
			continue
		}
		vars = append(vars, v)
	}
	return EnvCredentials{Vars: vars}
}

func (c EnvCredentials) CurrentToken() (string, bool) {
	for _, name := range c.Vars {
		if token := strings.TrimSpace(os.Getenv(name)); token != "" {
			return token, true
		}
	}
	return "", false
}

// StaticCredentials holds a fixed token, mostly for tests.
type StaticCredentials string

func (c StaticCredentials) CurrentToken() (string, bool) {
	return string(c), c != ""
}

func contains(items []string, value string) bool {
	for _, item := range items {
		if item == value {
			return true
		}
	}
	return false
}
