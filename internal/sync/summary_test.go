package sync_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/forksync/internal/sync"
)

const summaryTestOwnerConstant = "research-forks"

func TestSummarizeCategorizesOutcomes(testInstance *testing.T) {
	outcomes := []sync.SyncOutcome{
		{Kind: sync.OutcomeFastForwarded, RepositoryName: "fork-one", Branch: "main"},
		{Kind: sync.OutcomePullRequestOpened, RepositoryName: "fork-two", Branch: "sync/upstream-20260823", PullRequestNumber: 12},
		{Kind: sync.OutcomeSkipped, RepositoryName: "fork-three", SkipReason: "disabled"},
		{Kind: sync.OutcomeFailed, RepositoryName: "fork-four", ErrorMessage: "failed to fetch upstream"},
	}

	summary := sync.Summarize(summaryTestOwnerConstant, outcomes)

	require.Equal(testInstance, []string{"research-forks/fork-one:main"}, summary.FastForwardedIdentifiers)
	require.Equal(testInstance, []string{"research-forks/fork-two#12"}, summary.PullRequestIdentifiers)
	require.Equal(testInstance, []string{"fork-three (disabled)"}, summary.SkippedRepositories)
	require.Equal(testInstance, []string{"fork-four: failed to fetch upstream"}, summary.FailureDescriptions)
	require.Equal(testInstance, len(outcomes), summary.Total())
}

func TestRenderEmitsSectionedReport(testInstance *testing.T) {
	summary := sync.Summarize(summaryTestOwnerConstant, []sync.SyncOutcome{
		{Kind: sync.OutcomeFastForwarded, RepositoryName: "fork-one", Branch: "main"},
		{Kind: sync.OutcomeSkipped, RepositoryName: "fork-three", SkipReason: "disabled"},
	})

	report := summary.Render()

	require.Contains(testInstance, report, "Fork synchronization summary")
	require.Contains(testInstance, report, "Pull requests opened (0):")
	require.Contains(testInstance, report, "Fast-forwarded (1):")
	require.Contains(testInstance, report, "  - research-forks/fork-one:main")
	require.Contains(testInstance, report, "Skipped (1):")
	require.Contains(testInstance, report, "  - fork-three (disabled)")
	require.Contains(testInstance, report, "Errors (0):")
}

func TestRenderOnEmptyRunListsEmptySections(testInstance *testing.T) {
	report := sync.Summarize(summaryTestOwnerConstant, nil).Render()

	require.Contains(testInstance, report, "Pull requests opened (0):")
	require.Contains(testInstance, report, "Fast-forwarded (0):")
	require.Contains(testInstance, report, "Skipped (0):")
	require.Contains(testInstance, report, "Errors (0):")
}
