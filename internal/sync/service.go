package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/forksync/internal/githubapi"
	"github.com/temirov/forksync/internal/gitrepo"
	"github.com/temirov/forksync/internal/manifest"
)

const (
	repositoryClientMissingMessageConstant = "repository client not configured"
	hostingClientMissingMessageConstant    = "hosting client not configured"
	ownerRequiredMessageConstant           = "repository owner not configured"
	disabledSkipReasonConstant             = "disabled"
	forkHostConstant                       = "github.com"
	pullRequestTitleTemplateConstant       = "Sync with upstream/%s (%s)"
	pullRequestTitleDateLayoutConstant     = "2006-01-02"
	pullRequestBodyCleanConstant           = "Automated synchronization of %s with upstream/%s. The merge completed without conflicts."
	pullRequestBodyConflictedConstant      = "Automated synchronization of %s with upstream/%s. The merge has unresolved conflicts committed for manual review in the following files:\n%s"
	pullRequestBodyConflictEntryConstant   = "- %s"
	repositoryLogFieldConstant             = "repository"
	branchLogFieldConstant                 = "branch"
	pullRequestLogFieldConstant            = "pull_request"
	outcomeLogFieldConstant                = "outcome"
	reusedBranchLogFieldConstant           = "reused"
	repositoryStartedMessageConstant       = "Synchronizing repository"
	repositorySkippedMessageConstant       = "Skipping repository"
	repositoryFailedMessageConstant        = "Repository synchronization failed"
	repositoryCompletedMessageConstant     = "Repository synchronized"
)

// ErrRepositoryClientNotConfigured indicates the service was constructed without a repository client.
var ErrRepositoryClientNotConfigured = errors.New(repositoryClientMissingMessageConstant)

// ErrHostingClientNotConfigured indicates the service was constructed without a hosting client.
var ErrHostingClientNotConfigured = errors.New(hostingClientMissingMessageConstant)

// ErrOwnerRequired indicates the service was constructed without a repository owner.
var ErrOwnerRequired = errors.New(ownerRequiredMessageConstant)

// Clock abstracts time acquisition for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time source.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// RepositoryClient exposes the per-fork git operations used by the orchestrator.
type RepositoryClient interface {
	PrepareWorkingCopy(executionContext context.Context, repositoryName string, originURL string, trackedBranch string) (gitrepo.WorkingCopy, error)
	EnsureUpstreamRemote(executionContext context.Context, workingCopy gitrepo.WorkingCopy, upstreamURL string) error
	FetchUpstream(executionContext context.Context, workingCopy gitrepo.WorkingCopy, upstreamURL string) error
	CanFastForward(executionContext context.Context, workingCopy gitrepo.WorkingCopy) (bool, error)
	FastForward(executionContext context.Context, workingCopy gitrepo.WorkingCopy) error
	EnsureSyncBranch(executionContext context.Context, workingCopy gitrepo.WorkingCopy, stamp time.Time) (string, bool, error)
	MergeUpstream(executionContext context.Context, workingCopy gitrepo.WorkingCopy, syncBranchName string) (gitrepo.MergeResult, error)
	Push(executionContext context.Context, workingCopy gitrepo.WorkingCopy, branchName string, setUpstream bool) error
}

// HostingClient exposes the pull request operations used by the orchestrator.
type HostingClient interface {
	OpenPullRequest(executionContext context.Context, owner string, repository string, headBranch string, baseBranch string, title string, body string) (githubapi.PullRequest, bool, error)
}

// Dependencies bundles the collaborators required by the Service.
type Dependencies struct {
	Repositories RepositoryClient
	Hosting      HostingClient
	Clock        Clock
	Logger       *zap.Logger
}

// Service drives one synchronization pass over the configured repositories.
type Service struct {
	owner        string
	repositories RepositoryClient
	hosting      HostingClient
	clock        Clock
	logger       *zap.Logger
}

// NewService constructs a Service for the provided fork owner and collaborators.
func NewService(owner string, dependencies Dependencies) (*Service, error) {
	trimmedOwner := strings.TrimSpace(owner)
	if len(trimmedOwner) == 0 {
		return nil, ErrOwnerRequired
	}
	if dependencies.Repositories == nil {
		return nil, ErrRepositoryClientNotConfigured
	}
	if dependencies.Hosting == nil {
		return nil, ErrHostingClientNotConfigured
	}

	clock := dependencies.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		owner:        trimmedOwner,
		repositories: dependencies.Repositories,
		hosting:      dependencies.Hosting,
		clock:        clock,
		logger:       logger,
	}, nil
}

// Run processes every configured repository in order and returns one outcome
// per repository. A repository's failure never aborts the remainder of the run.
func (service *Service) Run(executionContext context.Context, repositories []manifest.RepositoryConfig) []SyncOutcome {
	outcomes := make([]SyncOutcome, 0, len(repositories))
	for _, repositoryConfig := range repositories {
		outcome := service.synchronizeRepository(executionContext, repositoryConfig)
		service.logOutcome(outcome)
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func (service *Service) synchronizeRepository(executionContext context.Context, repositoryConfig manifest.RepositoryConfig) SyncOutcome {
	if repositoryConfig.Disabled {
		return skippedOutcome(repositoryConfig.Name, disabledSkipReasonConstant)
	}

	service.logger.Info(repositoryStartedMessageConstant,
		zap.String(repositoryLogFieldConstant, repositoryConfig.Name),
		zap.String(branchLogFieldConstant, repositoryConfig.TrackedBranch),
	)

	originURL, originURLError := gitrepo.FormatRemoteURL(gitrepo.RemoteURL{
		Protocol:   gitrepo.RemoteProtocolHTTPS,
		Host:       forkHostConstant,
		Owner:      service.owner,
		Repository: repositoryConfig.Name,
	})
	if originURLError != nil {
		return failedOutcome(repositoryConfig.Name, originURLError)
	}

	workingCopy, prepareError := service.repositories.PrepareWorkingCopy(executionContext, repositoryConfig.Name, originURL, repositoryConfig.TrackedBranch)
	if prepareError != nil {
		return failedOutcome(repositoryConfig.Name, prepareError)
	}

	if upstreamError := service.repositories.EnsureUpstreamRemote(executionContext, workingCopy, repositoryConfig.UpstreamURL); upstreamError != nil {
		return failedOutcome(repositoryConfig.Name, upstreamError)
	}

	if fetchError := service.repositories.FetchUpstream(executionContext, workingCopy, repositoryConfig.UpstreamURL); fetchError != nil {
		return failedOutcome(repositoryConfig.Name, fetchError)
	}

	fastForwardable, ancestryError := service.repositories.CanFastForward(executionContext, workingCopy)
	if ancestryError != nil {
		return failedOutcome(repositoryConfig.Name, ancestryError)
	}

	if fastForwardable {
		return service.fastForwardRepository(executionContext, repositoryConfig, workingCopy)
	}
	return service.openSyncPullRequest(executionContext, repositoryConfig, workingCopy)
}

func (service *Service) fastForwardRepository(executionContext context.Context, repositoryConfig manifest.RepositoryConfig, workingCopy gitrepo.WorkingCopy) SyncOutcome {
	if fastForwardError := service.repositories.FastForward(executionContext, workingCopy); fastForwardError != nil {
		return failedOutcome(repositoryConfig.Name, fastForwardError)
	}
	if pushError := service.repositories.Push(executionContext, workingCopy, repositoryConfig.TrackedBranch, false); pushError != nil {
		return failedOutcome(repositoryConfig.Name, pushError)
	}
	return fastForwardedOutcome(repositoryConfig.Name, repositoryConfig.TrackedBranch)
}

func (service *Service) openSyncPullRequest(executionContext context.Context, repositoryConfig manifest.RepositoryConfig, workingCopy gitrepo.WorkingCopy) SyncOutcome {
	runTimestamp := service.clock.Now().UTC()

	syncBranchName, branchReused, branchError := service.repositories.EnsureSyncBranch(executionContext, workingCopy, runTimestamp)
	if branchError != nil {
		return failedOutcome(repositoryConfig.Name, branchError)
	}
	service.logger.Debug(repositoryStartedMessageConstant,
		zap.String(repositoryLogFieldConstant, repositoryConfig.Name),
		zap.String(branchLogFieldConstant, syncBranchName),
		zap.Bool(reusedBranchLogFieldConstant, branchReused),
	)

	mergeResult, mergeError := service.repositories.MergeUpstream(executionContext, workingCopy, syncBranchName)
	if mergeError != nil {
		return failedOutcome(repositoryConfig.Name, mergeError)
	}

	if pushError := service.repositories.Push(executionContext, workingCopy, syncBranchName, true); pushError != nil {
		return failedOutcome(repositoryConfig.Name, pushError)
	}

	pullRequestTitle := fmt.Sprintf(pullRequestTitleTemplateConstant, repositoryConfig.TrackedBranch, runTimestamp.Format(pullRequestTitleDateLayoutConstant))
	pullRequestBody := buildPullRequestBody(repositoryConfig.TrackedBranch, mergeResult)

	pullRequest, _, openError := service.hosting.OpenPullRequest(executionContext, service.owner, repositoryConfig.Name, syncBranchName, repositoryConfig.TrackedBranch, pullRequestTitle, pullRequestBody)
	if openError != nil {
		return failedOutcome(repositoryConfig.Name, openError)
	}

	return pullRequestOpenedOutcome(repositoryConfig.Name, syncBranchName, pullRequest.Number, pullRequest.URL)
}

func buildPullRequestBody(trackedBranch string, mergeResult gitrepo.MergeResult) string {
	if !mergeResult.Conflicted {
		return fmt.Sprintf(pullRequestBodyCleanConstant, trackedBranch, trackedBranch)
	}

	conflictEntries := make([]string, 0, len(mergeResult.ConflictedPaths))
	for _, conflictedPath := range mergeResult.ConflictedPaths {
		conflictEntries = append(conflictEntries, fmt.Sprintf(pullRequestBodyConflictEntryConstant, conflictedPath))
	}
	return fmt.Sprintf(pullRequestBodyConflictedConstant, trackedBranch, trackedBranch, strings.Join(conflictEntries, "\n"))
}

func (service *Service) logOutcome(outcome SyncOutcome) {
	switch outcome.Kind {
	case OutcomeSkipped:
		service.logger.Info(repositorySkippedMessageConstant,
			zap.String(repositoryLogFieldConstant, outcome.RepositoryName),
			zap.String(outcomeLogFieldConstant, outcome.SkipReason),
		)
	case OutcomeFailed:
		service.logger.Error(repositoryFailedMessageConstant,
			zap.String(repositoryLogFieldConstant, outcome.RepositoryName),
			zap.String(outcomeLogFieldConstant, outcome.ErrorMessage),
		)
	case OutcomePullRequestOpened:
		service.logger.Info(repositoryCompletedMessageConstant,
			zap.String(repositoryLogFieldConstant, outcome.RepositoryName),
			zap.String(branchLogFieldConstant, outcome.Branch),
			zap.Int(pullRequestLogFieldConstant, outcome.PullRequestNumber),
		)
	case OutcomeFastForwarded:
		service.logger.Info(repositoryCompletedMessageConstant,
			zap.String(repositoryLogFieldConstant, outcome.RepositoryName),
			zap.String(branchLogFieldConstant, outcome.Branch),
		)
	}
}
