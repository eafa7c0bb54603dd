package githubauth_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/forksync/internal/githubauth"
)

const (
	testDefaultOwnerConstant = "USD-AI-ResearchLab"
)

func TestResolveTokenHonorsPreferenceOrder(testInstance *testing.T) {
	testCases := []struct {
		name          string
		environment   map[string]string
		expectedToken string
		expectedFound bool
	}{
		{
			name: "fork_sync_token_preferred",
			environment: map[string]string{
				githubauth.EnvForkSyncToken: "fork-token",
				githubauth.EnvGitHubToken:   "generic-token",
			},
			expectedToken: "fork-token",
			expectedFound: true,
		},
		{
			name: "gh_token_before_github_token",
			environment: map[string]string{
				githubauth.EnvGitHubCLIToken: "cli-token",
				githubauth.EnvGitHubToken:    "generic-token",
			},
			expectedToken: "cli-token",
			expectedFound: true,
		},
		{
			name:          "github_token_fallback",
			environment:   map[string]string{githubauth.EnvGitHubToken: "generic-token"},
			expectedToken: "generic-token",
			expectedFound: true,
		},
		{
			name:        "blank_values_ignored",
			environment: map[string]string{githubauth.EnvForkSyncToken: "   "},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			for _, environmentKey := range []string{githubauth.EnvForkSyncToken, githubauth.EnvGitHubCLIToken, githubauth.EnvGitHubToken} {
				testInstance.Setenv(environmentKey, "")
			}

			resolvedToken, found := githubauth.ResolveToken(testCase.environment)
			require.Equal(testInstance, testCase.expectedFound, found)
			require.Equal(testInstance, testCase.expectedToken, resolvedToken)
		})
	}
}

func TestResolveOwnerFallsBackToDefault(testInstance *testing.T) {
	testInstance.Setenv(githubauth.EnvGitHubOwner, "")
	require.Equal(testInstance, testDefaultOwnerConstant, githubauth.ResolveOwner(nil, testDefaultOwnerConstant))
	require.Equal(testInstance, "research-forks", githubauth.ResolveOwner(map[string]string{githubauth.EnvGitHubOwner: "research-forks"}, testDefaultOwnerConstant))
}

func TestResolveOwnerReadsProcessEnvironment(testInstance *testing.T) {
	testInstance.Setenv(githubauth.EnvGitHubOwner, "org-from-env")
	require.Equal(testInstance, "org-from-env", githubauth.ResolveOwner(nil, testDefaultOwnerConstant))
}
