package credentials

import (
	"os"
	"strings"
)

// Environment variable names consulted when a secret was not supplied explicitly.
const (
	EnvGitHubCLIToken = "GH_TOKEN"
	EnvGitHubToken    = "GITHUB_TOKEN"
	EnvGitHubAPIToken = "GITHUB_API_TOKEN"
	EnvGiteaToken     = "GITEA_TOKEN"
)

var sourceTokenPreference = []string{
	EnvGitHubCLIToken,
	EnvGitHubToken,
	EnvGitHubAPIToken,
}

var destinationTokenPreference = []string{
	EnvGiteaToken,
}

// EnvironmentLookup obtains an environment variable value.
type EnvironmentLookup func(key string) (string, bool)

// FileReader reads the contents of a file path.
type FileReader func(path string) ([]byte, error)

func resolveEnvironmentToken(environmentLookup EnvironmentLookup, preference []string) (string, bool) {
	if environmentLookup == nil {
		environmentLookup = os.LookupEnv
	}
	for _, key := range preference {
		value, found := environmentLookup(key)
		if !found {
			continue
		}
		trimmedValue := strings.TrimSpace(value)
		if len(trimmedValue) > 0 {
			return trimmedValue, true
		}
	}
	return "", false
}
