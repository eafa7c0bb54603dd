package sync_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/forksync/internal/githubapi"
	"github.com/temirov/forksync/internal/gitrepo"
	"github.com/temirov/forksync/internal/manifest"
	"github.com/temirov/forksync/internal/sync"
)

const (
	serviceTestOwnerConstant      = "research-forks"
	serviceTestBranchConstant     = "main"
	serviceTestUpstreamConstant   = "https://github.com/example/fork-one.git"
	serviceTestSyncBranchConstant = "sync/upstream-20260823"
)

var serviceTestRunTimestamp = time.Date(2026, time.August, 23, 7, 30, 0, 0, time.UTC)

type fixedClock struct{}

func (fixedClock) Now() time.Time { return serviceTestRunTimestamp }

type fakeRepositoryClient struct {
	callLog         []string
	prepareFailures map[string]error
	pushFailures    map[string]error
	fastForwardable map[string]bool
	mergeResults    map[string]gitrepo.MergeResult
}

func (client *fakeRepositoryClient) record(format string, values ...any) {
	client.callLog = append(client.callLog, fmt.Sprintf(format, values...))
}

func (client *fakeRepositoryClient) PrepareWorkingCopy(_ context.Context, repositoryName string, originURL string, trackedBranch string) (gitrepo.WorkingCopy, error) {
	client.record("prepare %s %s", originURL, repositoryName)
	if failure, exists := client.prepareFailures[repositoryName]; exists {
		return gitrepo.WorkingCopy{}, failure
	}
	return gitrepo.WorkingCopy{RepositoryName: repositoryName, Path: "/tmp/" + repositoryName, TrackedBranch: trackedBranch}, nil
}

func (client *fakeRepositoryClient) EnsureUpstreamRemote(_ context.Context, workingCopy gitrepo.WorkingCopy, _ string) error {
	client.record("ensure-upstream %s", workingCopy.RepositoryName)
	return nil
}

func (client *fakeRepositoryClient) FetchUpstream(_ context.Context, workingCopy gitrepo.WorkingCopy, _ string) error {
	client.record("fetch-upstream %s", workingCopy.RepositoryName)
	return nil
}

func (client *fakeRepositoryClient) CanFastForward(_ context.Context, workingCopy gitrepo.WorkingCopy) (bool, error) {
	client.record("can-fast-forward %s", workingCopy.RepositoryName)
	return client.fastForwardable[workingCopy.RepositoryName], nil
}

func (client *fakeRepositoryClient) FastForward(_ context.Context, workingCopy gitrepo.WorkingCopy) error {
	client.record("fast-forward %s", workingCopy.RepositoryName)
	return nil
}

func (client *fakeRepositoryClient) EnsureSyncBranch(_ context.Context, workingCopy gitrepo.WorkingCopy, stamp time.Time) (string, bool, error) {
	client.record("ensure-sync-branch %s %s", gitrepo.SyncBranchName(stamp), workingCopy.RepositoryName)
	return gitrepo.SyncBranchName(stamp), false, nil
}

func (client *fakeRepositoryClient) MergeUpstream(_ context.Context, workingCopy gitrepo.WorkingCopy, syncBranchName string) (gitrepo.MergeResult, error) {
	client.record("merge %s %s", syncBranchName, workingCopy.RepositoryName)
	return client.mergeResults[workingCopy.RepositoryName], nil
}

func (client *fakeRepositoryClient) Push(_ context.Context, workingCopy gitrepo.WorkingCopy, branchName string, setUpstream bool) error {
	client.record("push %s set-upstream=%t %s", branchName, setUpstream, workingCopy.RepositoryName)
	if failure, exists := client.pushFailures[workingCopy.RepositoryName]; exists {
		return failure
	}
	return nil
}

type openPullRequestCall struct {
	Owner      string
	Repository string
	HeadBranch string
	BaseBranch string
	Title      string
	Body       string
}

type fakeHostingClient struct {
	openCalls  []openPullRequestCall
	nextNumber int
	openError  error
}

func (client *fakeHostingClient) OpenPullRequest(_ context.Context, owner string, repository string, headBranch string, baseBranch string, title string, body string) (githubapi.PullRequest, bool, error) {
	client.openCalls = append(client.openCalls, openPullRequestCall{
		Owner:      owner,
		Repository: repository,
		HeadBranch: headBranch,
		BaseBranch: baseBranch,
		Title:      title,
		Body:       body,
	})
	if client.openError != nil {
		return githubapi.PullRequest{}, false, client.openError
	}
	client.nextNumber++
	return githubapi.PullRequest{Number: client.nextNumber, URL: fmt.Sprintf("https://github.com/%s/%s/pull/%d", owner, repository, client.nextNumber)}, true, nil
}

func newTestService(testInstance *testing.T, repositories *fakeRepositoryClient, hosting *fakeHostingClient) *sync.Service {
	testInstance.Helper()
	service, creationError := sync.NewService(serviceTestOwnerConstant, sync.Dependencies{
		Repositories: repositories,
		Hosting:      hosting,
		Clock:        fixedClock{},
		Logger:       zap.NewNop(),
	})
	require.NoError(testInstance, creationError)
	return service
}

func repositoryEntry(name string, disabled bool) manifest.RepositoryConfig {
	return manifest.RepositoryConfig{
		Name:          name,
		UpstreamURL:   serviceTestUpstreamConstant,
		TrackedBranch: serviceTestBranchConstant,
		Disabled:      disabled,
	}
}

func TestNewServiceValidatesDependencies(testInstance *testing.T) {
	_, ownerError := sync.NewService("  ", sync.Dependencies{Repositories: &fakeRepositoryClient{}, Hosting: &fakeHostingClient{}})
	require.ErrorIs(testInstance, ownerError, sync.ErrOwnerRequired)

	_, repositoriesError := sync.NewService(serviceTestOwnerConstant, sync.Dependencies{Hosting: &fakeHostingClient{}})
	require.ErrorIs(testInstance, repositoriesError, sync.ErrRepositoryClientNotConfigured)

	_, hostingError := sync.NewService(serviceTestOwnerConstant, sync.Dependencies{Repositories: &fakeRepositoryClient{}})
	require.ErrorIs(testInstance, hostingError, sync.ErrHostingClientNotConfigured)
}

func TestRunProducesExactlyOneOutcomePerRepository(testInstance *testing.T) {
	repositories := &fakeRepositoryClient{
		fastForwardable: map[string]bool{"fork-one": true},
		prepareFailures: map[string]error{"fork-four": errors.New("invalid credentials")},
	}
	hosting := &fakeHostingClient{}
	service := newTestService(testInstance, repositories, hosting)

	outcomes := service.Run(context.Background(), []manifest.RepositoryConfig{
		repositoryEntry("fork-one", false),
		repositoryEntry("fork-two", false),
		repositoryEntry("fork-three", true),
		repositoryEntry("fork-four", false),
	})

	require.Len(testInstance, outcomes, 4)
	require.Equal(testInstance, sync.OutcomeFastForwarded, outcomes[0].Kind)
	require.Equal(testInstance, sync.OutcomePullRequestOpened, outcomes[1].Kind)
	require.Equal(testInstance, sync.OutcomeSkipped, outcomes[2].Kind)
	require.Equal(testInstance, sync.OutcomeFailed, outcomes[3].Kind)

	summary := sync.Summarize(serviceTestOwnerConstant, outcomes)
	require.Equal(testInstance, len(outcomes), summary.Total())
}

func TestRunSkipsDisabledRepositoriesWithoutClientCalls(testInstance *testing.T) {
	repositories := &fakeRepositoryClient{}
	hosting := &fakeHostingClient{}
	service := newTestService(testInstance, repositories, hosting)

	outcomes := service.Run(context.Background(), []manifest.RepositoryConfig{repositoryEntry("fork-disabled", true)})

	require.Len(testInstance, outcomes, 1)
	require.Equal(testInstance, sync.OutcomeSkipped, outcomes[0].Kind)
	require.Equal(testInstance, "disabled", outcomes[0].SkipReason)
	require.Empty(testInstance, repositories.callLog)
	require.Empty(testInstance, hosting.openCalls)
}

func TestRunFastForwardNeverCreatesBranchOrPullRequest(testInstance *testing.T) {
	repositories := &fakeRepositoryClient{fastForwardable: map[string]bool{"fork-one": true}}
	hosting := &fakeHostingClient{}
	service := newTestService(testInstance, repositories, hosting)

	outcomes := service.Run(context.Background(), []manifest.RepositoryConfig{repositoryEntry("fork-one", false)})

	require.Equal(testInstance, sync.OutcomeFastForwarded, outcomes[0].Kind)
	require.Equal(testInstance, serviceTestBranchConstant, outcomes[0].Branch)
	require.Empty(testInstance, hosting.openCalls)
	require.Contains(testInstance, repositories.callLog, "push main set-upstream=false fork-one")
	for _, loggedCall := range repositories.callLog {
		require.NotContains(testInstance, loggedCall, "ensure-sync-branch")
		require.NotContains(testInstance, loggedCall, "merge ")
	}
}

func TestRunDivergedRepositoryOpensDatedPullRequest(testInstance *testing.T) {
	repositories := &fakeRepositoryClient{
		mergeResults: map[string]gitrepo.MergeResult{
			"fork-one": {Conflicted: true, ConflictedPaths: []string{"main.go"}},
		},
	}
	hosting := &fakeHostingClient{}
	service := newTestService(testInstance, repositories, hosting)

	outcomes := service.Run(context.Background(), []manifest.RepositoryConfig{repositoryEntry("fork-one", false)})

	require.Equal(testInstance, sync.OutcomePullRequestOpened, outcomes[0].Kind)
	require.Equal(testInstance, serviceTestSyncBranchConstant, outcomes[0].Branch)
	require.Equal(testInstance, 1, outcomes[0].PullRequestNumber)

	require.Len(testInstance, hosting.openCalls, 1)
	openCall := hosting.openCalls[0]
	require.Equal(testInstance, serviceTestOwnerConstant, openCall.Owner)
	require.Equal(testInstance, "fork-one", openCall.Repository)
	require.Equal(testInstance, serviceTestSyncBranchConstant, openCall.HeadBranch)
	require.Equal(testInstance, serviceTestBranchConstant, openCall.BaseBranch)
	require.Equal(testInstance, "Sync with upstream/main (2026-08-23)", openCall.Title)
	require.Contains(testInstance, openCall.Body, "- main.go")

	require.Contains(testInstance, repositories.callLog, "push sync/upstream-20260823 set-upstream=true fork-one")
}

func TestRunFailureDoesNotAbortRemainingRepositories(testInstance *testing.T) {
	repositories := &fakeRepositoryClient{
		prepareFailures: map[string]error{"fork-one": errors.New("invalid credentials")},
		fastForwardable: map[string]bool{"fork-two": true},
	}
	hosting := &fakeHostingClient{}
	service := newTestService(testInstance, repositories, hosting)

	outcomes := service.Run(context.Background(), []manifest.RepositoryConfig{
		repositoryEntry("fork-one", false),
		repositoryEntry("fork-two", false),
	})

	require.Equal(testInstance, sync.OutcomeFailed, outcomes[0].Kind)
	require.Contains(testInstance, outcomes[0].ErrorMessage, "invalid credentials")
	require.Equal(testInstance, sync.OutcomeFastForwarded, outcomes[1].Kind)
}

func TestRunHostingFailureRecordsFailedOutcome(testInstance *testing.T) {
	repositories := &fakeRepositoryClient{}
	hosting := &fakeHostingClient{openError: errors.New("api unavailable")}
	service := newTestService(testInstance, repositories, hosting)

	outcomes := service.Run(context.Background(), []manifest.RepositoryConfig{repositoryEntry("fork-one", false)})

	require.Equal(testInstance, sync.OutcomeFailed, outcomes[0].Kind)
	require.Contains(testInstance, outcomes[0].ErrorMessage, "api unavailable")
}

func TestRunUpToDateAndDisabledExample(testInstance *testing.T) {
	repositories := &fakeRepositoryClient{fastForwardable: map[string]bool{"repo-one": true}}
	hosting := &fakeHostingClient{}
	service := newTestService(testInstance, repositories, hosting)

	outcomes := service.Run(context.Background(), []manifest.RepositoryConfig{
		repositoryEntry("repo-one", false),
		repositoryEntry("repo-disabled", true),
	})

	summary := sync.Summarize(serviceTestOwnerConstant, outcomes)
	require.Len(testInstance, summary.FastForwardedIdentifiers, 1)
	require.Len(testInstance, summary.PullRequestIdentifiers, 0)
	require.Len(testInstance, summary.SkippedRepositories, 1)
	require.Len(testInstance, summary.FailureDescriptions, 0)
}

func TestRunDivergedAndDisabledExample(testInstance *testing.T) {
	repositories := &fakeRepositoryClient{}
	hosting := &fakeHostingClient{}
	service := newTestService(testInstance, repositories, hosting)

	outcomes := service.Run(context.Background(), []manifest.RepositoryConfig{
		repositoryEntry("repo-one", false),
		repositoryEntry("repo-disabled", true),
	})

	summary := sync.Summarize(serviceTestOwnerConstant, outcomes)
	require.Len(testInstance, summary.FastForwardedIdentifiers, 0)
	require.Len(testInstance, summary.PullRequestIdentifiers, 1)
	require.Len(testInstance, summary.SkippedRepositories, 1)
	require.Len(testInstance, summary.FailureDescriptions, 0)
	require.Equal(testInstance, serviceTestSyncBranchConstant, hosting.openCalls[0].HeadBranch)
	require.Equal(testInstance, serviceTestBranchConstant, hosting.openCalls[0].BaseBranch)
}
