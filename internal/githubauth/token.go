package githubauth

import (
	"os"
	"strings"
)

// Environment variable names used by GitHub authentication helpers.
const (
	EnvForkSyncToken  = "FORK_SYNC_TOKEN"
	EnvGitHubCLIToken = "GH_TOKEN"
	EnvGitHubToken    = "GITHUB_TOKEN"
	EnvGitHubOwner    = "GITHUB_OWNER"
)

var tokenPreference = []string{
	EnvForkSyncToken,
	EnvGitHubCLIToken,
	EnvGitHubToken,
}

// ResolveToken returns the first non-empty GitHub authentication token observed
// in the provided environment map or the process environment.
func ResolveToken(environment map[string]string) (string, bool) {
	for _, key := range tokenPreference {
		if value, ok := lookup(environment, key); ok {
			return value, true
		}
	}
	for _, key := range tokenPreference {
		if value, ok := os.LookupEnv(key); ok {
			value = strings.TrimSpace(value)
			if len(value) > 0 {
				return value, true
			}
		}
	}
	return "", false
}

// ResolveOwner returns the repository owner observed in the provided
// environment map or the process environment, falling back to defaultOwner.
func ResolveOwner(environment map[string]string, defaultOwner string) string {
	if value, ok := lookup(environment, EnvGitHubOwner); ok {
		return value
	}
	if value, ok := os.LookupEnv(EnvGitHubOwner); ok {
		value = strings.TrimSpace(value)
		if len(value) > 0 {
			return value
		}
	}
	return defaultOwner
}

func lookup(environment map[string]string, key string) (string, bool) {
	if environment == nil {
		return "", false
	}
	value, exists := environment[key]
	if !exists {
		return "", false
	}
	value = strings.TrimSpace(value)
	if len(value) == 0 {
		return "", false
	}
	return value, true
}
