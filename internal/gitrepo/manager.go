package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/temirov/forksync/internal/execshell"
)

const (
	gitExecutorMissingMessageConstant           = "git executor not configured"
	workingDirectoryRootMissingMessageConstant  = "working directory root not configured"
	repositoryNameRequiredMessageConstant       = "repository name must be provided"
	branchNameRequiredMessageConstant           = "branch name must be provided"
	cloneErrorTemplateConstant                  = "failed to prepare working copy for %s: %s"
	workingCopyDirectoryPermissionsConstant     = 0o755
	gitInitSubcommandConstant                   = "init"
	gitRemoteSubcommandConstant                 = "remote"
	gitRemoteAddSubcommandConstant              = "add"
	gitRemoteSetURLSubcommandConstant           = "set-url"
	gitFetchSubcommandConstant                  = "fetch"
	gitFetchPruneFlagConstant                   = "--prune"
	gitCheckoutSubcommandConstant               = "checkout"
	gitCheckoutResetBranchFlagConstant          = "-B"
	gitMergeSubcommandConstant                  = "merge"
	gitMergeFastForwardOnlyFlagConstant         = "--ff-only"
	gitMergeNoFastForwardFlagConstant           = "--no-ff"
	gitMergeNoEditFlagConstant                  = "--no-edit"
	gitMergeBaseSubcommandConstant              = "merge-base"
	gitMergeBaseIsAncestorFlagConstant          = "--is-ancestor"
	gitRevParseSubcommandConstant               = "rev-parse"
	gitRevParseVerifyFlagConstant               = "--verify"
	gitRevParseQuietFlagConstant                = "--quiet"
	gitDiffSubcommandConstant                   = "diff"
	gitDiffNameOnlyFlagConstant                 = "--name-only"
	gitDiffUnmergedFilterFlagConstant           = "--diff-filter=U"
	gitAddSubcommandConstant                    = "add"
	gitAddAllFlagConstant                       = "--all"
	gitCommitSubcommandConstant                 = "commit"
	gitCommitMessageFlagConstant                = "-m"
	gitCommitNoVerifyFlagConstant               = "--no-verify"
	gitPushSubcommandConstant                   = "push"
	gitPushSetUpstreamFlagConstant              = "--set-upstream"
	gitTerminalPromptEnvironmentNameConstant    = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptEnvironmentDisableConstant = "0"
	remoteBranchReferenceTemplateConstant       = "refs/remotes/%s/%s"
	localBranchReferenceTemplateConstant        = "refs/heads/%s"
	remoteTrackingReferenceTemplateConstant     = "%s/%s"
	conflictCommitMessageTemplateConstant       = "Merge %s/%s with unresolved conflicts for manual review"
	ancestryCheckFailureTemplateConstant        = "failed to determine fast-forward eligibility: %w"
	fastForwardFailureTemplateConstant          = "failed to fast-forward %s: %w"
	upstreamFetchFailureTemplateConstant        = "failed to fetch upstream: %w"
	remoteConfigurationFailureTemplateConstant  = "failed to configure %s remote: %w"
	syncBranchFailureTemplateConstant           = "failed to prepare sync branch %s: %w"
	mergeFailureTemplateConstant                = "failed to merge %s into %s: %w"
	conflictInspectionFailureTemplateConstant   = "failed to inspect merge conflicts: %w"
	conflictCommitFailureTemplateConstant       = "failed to record conflicted merge: %w"
	pushFailureTemplateConstant                 = "failed to push %s: %w"
	nonFastForwardExitCodeConstant              = 1
	missingReferenceExitCodeConstant            = 1
	// SyncBranchPrefix is the deterministic prefix for dated sync branches.
	SyncBranchPrefix = "sync/upstream-"
	syncBranchDateLayoutConstant = "20060102"
)

var upstreamAuthenticationFailureMarkers = []string{
	"could not read Username",
	"Authentication failed",
	"Permission denied",
}

// ErrGitExecutorNotConfigured indicates the manager was constructed without an executor.
var ErrGitExecutorNotConfigured = errors.New(gitExecutorMissingMessageConstant)

// ErrWorkingDirectoryRootNotConfigured indicates the manager was constructed without a workdir root.
var ErrWorkingDirectoryRootNotConfigured = errors.New(workingDirectoryRootMissingMessageConstant)

// ErrRepositoryNameRequired indicates a repository name option was empty.
var ErrRepositoryNameRequired = errors.New(repositoryNameRequiredMessageConstant)

// ErrBranchNameRequired indicates a branch name option was empty.
var ErrBranchNameRequired = errors.New(branchNameRequiredMessageConstant)

// CloneError reports a working copy that could not be prepared.
type CloneError struct {
	Repository string
	Cause      error
}

// Error describes the preparation failure.
func (cloneError CloneError) Error() string {
	return fmt.Sprintf(cloneErrorTemplateConstant, cloneError.Repository, cloneError.Cause)
}

// Unwrap exposes the underlying cause.
func (cloneError CloneError) Unwrap() error {
	return cloneError.Cause
}

// GitExecutor exposes the subset of shell execution used by the repository manager.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// WorkingCopy identifies one prepared local clone of a fork.
type WorkingCopy struct {
	RepositoryName string
	Path           string
	TrackedBranch  string
}

// MergeResult reports the outcome of merging upstream into a sync branch.
type MergeResult struct {
	Conflicted      bool
	ConflictedPaths []string
}

// ManagerOptions configures a RepositoryManager.
type ManagerOptions struct {
	WorkingDirectoryRoot string
	OriginRemoteName     string
	UpstreamRemoteName   string
	UpstreamFetchToken   string
}

// RepositoryManager performs the git operations required to synchronize one fork.
type RepositoryManager struct {
	executor           GitExecutor
	workRoot           string
	originRemoteName   string
	upstreamRemoteName string
	upstreamFetchToken string
}

// NewRepositoryManager constructs a RepositoryManager from the provided executor and options.
func NewRepositoryManager(executor GitExecutor, options ManagerOptions) (*RepositoryManager, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	trimmedWorkRoot := strings.TrimSpace(options.WorkingDirectoryRoot)
	if len(trimmedWorkRoot) == 0 {
		return nil, ErrWorkingDirectoryRootNotConfigured
	}

	originRemoteName := strings.TrimSpace(options.OriginRemoteName)
	if len(originRemoteName) == 0 {
		originRemoteName = "origin"
	}
	upstreamRemoteName := strings.TrimSpace(options.UpstreamRemoteName)
	if len(upstreamRemoteName) == 0 {
		upstreamRemoteName = "upstream"
	}

	return &RepositoryManager{
		executor:           executor,
		workRoot:           trimmedWorkRoot,
		originRemoteName:   originRemoteName,
		upstreamRemoteName: upstreamRemoteName,
		upstreamFetchToken: strings.TrimSpace(options.UpstreamFetchToken),
	}, nil
}

// SyncBranchName returns the deterministic dated sync branch name for the provided time.
func SyncBranchName(stamp time.Time) string {
	return SyncBranchPrefix + stamp.UTC().Format(syncBranchDateLayoutConstant)
}

// PrepareWorkingCopy initializes or reuses the local clone for the named fork,
// points its origin remote at originURL, and checks out a clean tracked branch.
func (manager *RepositoryManager) PrepareWorkingCopy(executionContext context.Context, repositoryName string, originURL string, trackedBranch string) (WorkingCopy, error) {
	trimmedRepositoryName := strings.TrimSpace(repositoryName)
	if len(trimmedRepositoryName) == 0 {
		return WorkingCopy{}, ErrRepositoryNameRequired
	}
	trimmedBranch := strings.TrimSpace(trackedBranch)
	if len(trimmedBranch) == 0 {
		return WorkingCopy{}, ErrBranchNameRequired
	}

	workingCopyPath := filepath.Join(manager.workRoot, trimmedRepositoryName)
	if directoryError := os.MkdirAll(workingCopyPath, workingCopyDirectoryPermissionsConstant); directoryError != nil {
		return WorkingCopy{}, CloneError{Repository: trimmedRepositoryName, Cause: directoryError}
	}

	workingCopy := WorkingCopy{
		RepositoryName: trimmedRepositoryName,
		Path:           workingCopyPath,
		TrackedBranch:  trimmedBranch,
	}

	if _, initError := manager.executeGit(executionContext, workingCopyPath, gitInitSubcommandConstant); initError != nil {
		return WorkingCopy{}, CloneError{Repository: trimmedRepositoryName, Cause: initError}
	}

	if remoteError := manager.ensureRemote(executionContext, workingCopyPath, manager.originRemoteName, originURL); remoteError != nil {
		return WorkingCopy{}, CloneError{Repository: trimmedRepositoryName, Cause: remoteError}
	}

	if _, fetchError := manager.executeGit(executionContext, workingCopyPath, gitFetchSubcommandConstant, manager.originRemoteName, gitFetchPruneFlagConstant); fetchError != nil {
		return WorkingCopy{}, CloneError{Repository: trimmedRepositoryName, Cause: fetchError}
	}

	originBranchReference := fmt.Sprintf(remoteTrackingReferenceTemplateConstant, manager.originRemoteName, trimmedBranch)
	if _, checkoutError := manager.executeGit(executionContext, workingCopyPath, gitCheckoutSubcommandConstant, gitCheckoutResetBranchFlagConstant, trimmedBranch, originBranchReference); checkoutError != nil {
		return WorkingCopy{}, CloneError{Repository: trimmedRepositoryName, Cause: checkoutError}
	}

	return workingCopy, nil
}

// EnsureUpstreamRemote adds the upstream remote, updating its URL when the remote already exists.
func (manager *RepositoryManager) EnsureUpstreamRemote(executionContext context.Context, workingCopy WorkingCopy, upstreamURL string) error {
	if remoteError := manager.ensureRemote(executionContext, workingCopy.Path, manager.upstreamRemoteName, upstreamURL); remoteError != nil {
		return fmt.Errorf(remoteConfigurationFailureTemplateConstant, manager.upstreamRemoteName, remoteError)
	}
	return nil
}

// FetchUpstream fetches the upstream remote. When the fetch is rejected for
// authentication reasons and a token is configured, the fetch is retried once
// over a token-authenticated URL and the original URL is restored afterwards.
func (manager *RepositoryManager) FetchUpstream(executionContext context.Context, workingCopy WorkingCopy, upstreamURL string) error {
	_, fetchError := manager.executeGit(executionContext, workingCopy.Path, gitFetchSubcommandConstant, manager.upstreamRemoteName, gitFetchPruneFlagConstant)
	if fetchError == nil {
		return nil
	}

	if !manager.isAuthenticationFailure(fetchError) || len(manager.upstreamFetchToken) == 0 {
		return fmt.Errorf(upstreamFetchFailureTemplateConstant, fetchError)
	}

	authenticatedURL := WithTokenCredential(upstreamURL, manager.upstreamFetchToken)
	if authenticatedURL == strings.TrimSpace(upstreamURL) {
		return fmt.Errorf(upstreamFetchFailureTemplateConstant, fetchError)
	}

	if _, setURLError := manager.executeGit(executionContext, workingCopy.Path, gitRemoteSubcommandConstant, gitRemoteSetURLSubcommandConstant, manager.upstreamRemoteName, authenticatedURL); setURLError != nil {
		return fmt.Errorf(upstreamFetchFailureTemplateConstant, setURLError)
	}

	_, retryError := manager.executeGit(executionContext, workingCopy.Path, gitFetchSubcommandConstant, manager.upstreamRemoteName, gitFetchPruneFlagConstant)
	// The credentialed URL must never remain configured, even when the retry failed.
	_, restoreError := manager.executeGit(executionContext, workingCopy.Path, gitRemoteSubcommandConstant, gitRemoteSetURLSubcommandConstant, manager.upstreamRemoteName, strings.TrimSpace(upstreamURL))

	if retryError != nil {
		return fmt.Errorf(upstreamFetchFailureTemplateConstant, retryError)
	}
	if restoreError != nil {
		return fmt.Errorf(upstreamFetchFailureTemplateConstant, restoreError)
	}
	return nil
}

// CanFastForward reports whether the tracked branch can be fast-forwarded to
// the upstream branch tip. A false result is a normal signal, not an error.
func (manager *RepositoryManager) CanFastForward(executionContext context.Context, workingCopy WorkingCopy) (bool, error) {
	upstreamReference := fmt.Sprintf(remoteTrackingReferenceTemplateConstant, manager.upstreamRemoteName, workingCopy.TrackedBranch)
	_, ancestryError := manager.executeGit(executionContext, workingCopy.Path, gitMergeBaseSubcommandConstant, gitMergeBaseIsAncestorFlagConstant, workingCopy.TrackedBranch, upstreamReference)
	if ancestryError == nil {
		return true, nil
	}

	commandFailedError := execshell.CommandFailedError{}
	if errors.As(ancestryError, &commandFailedError) && commandFailedError.Result.ExitCode == nonFastForwardExitCodeConstant {
		return false, nil
	}

	return false, fmt.Errorf(ancestryCheckFailureTemplateConstant, ancestryError)
}

// FastForward advances the tracked branch to the upstream tip without creating a commit.
func (manager *RepositoryManager) FastForward(executionContext context.Context, workingCopy WorkingCopy) error {
	upstreamReference := fmt.Sprintf(remoteTrackingReferenceTemplateConstant, manager.upstreamRemoteName, workingCopy.TrackedBranch)
	if _, mergeError := manager.executeGit(executionContext, workingCopy.Path, gitMergeSubcommandConstant, gitMergeFastForwardOnlyFlagConstant, upstreamReference); mergeError != nil {
		return fmt.Errorf(fastForwardFailureTemplateConstant, workingCopy.TrackedBranch, mergeError)
	}
	return nil
}

// EnsureSyncBranch checks out the dated sync branch for the provided time,
// reusing a branch created earlier the same day locally or on origin.
func (manager *RepositoryManager) EnsureSyncBranch(executionContext context.Context, workingCopy WorkingCopy, stamp time.Time) (string, bool, error) {
	syncBranchName := SyncBranchName(stamp)

	originBranchExists, originLookupError := manager.referenceExists(executionContext, workingCopy.Path, fmt.Sprintf(remoteBranchReferenceTemplateConstant, manager.originRemoteName, syncBranchName))
	if originLookupError != nil {
		return "", false, fmt.Errorf(syncBranchFailureTemplateConstant, syncBranchName, originLookupError)
	}
	if originBranchExists {
		originReference := fmt.Sprintf(remoteTrackingReferenceTemplateConstant, manager.originRemoteName, syncBranchName)
		if _, checkoutError := manager.executeGit(executionContext, workingCopy.Path, gitCheckoutSubcommandConstant, gitCheckoutResetBranchFlagConstant, syncBranchName, originReference); checkoutError != nil {
			return "", false, fmt.Errorf(syncBranchFailureTemplateConstant, syncBranchName, checkoutError)
		}
		return syncBranchName, true, nil
	}

	localBranchExists, localLookupError := manager.referenceExists(executionContext, workingCopy.Path, fmt.Sprintf(localBranchReferenceTemplateConstant, syncBranchName))
	if localLookupError != nil {
		return "", false, fmt.Errorf(syncBranchFailureTemplateConstant, syncBranchName, localLookupError)
	}
	if localBranchExists {
		if _, checkoutError := manager.executeGit(executionContext, workingCopy.Path, gitCheckoutSubcommandConstant, syncBranchName); checkoutError != nil {
			return "", false, fmt.Errorf(syncBranchFailureTemplateConstant, syncBranchName, checkoutError)
		}
		return syncBranchName, true, nil
	}

	if _, creationError := manager.executeGit(executionContext, workingCopy.Path, gitCheckoutSubcommandConstant, gitCheckoutResetBranchFlagConstant, syncBranchName, workingCopy.TrackedBranch); creationError != nil {
		return "", false, fmt.Errorf(syncBranchFailureTemplateConstant, syncBranchName, creationError)
	}
	return syncBranchName, false, nil
}

// MergeUpstream merges the upstream tracked branch into the checked-out sync
// branch. Conflicts are committed as-is for manual resolution and reported
// through the MergeResult; they are never resolved automatically.
func (manager *RepositoryManager) MergeUpstream(executionContext context.Context, workingCopy WorkingCopy, syncBranchName string) (MergeResult, error) {
	upstreamReference := fmt.Sprintf(remoteTrackingReferenceTemplateConstant, manager.upstreamRemoteName, workingCopy.TrackedBranch)
	_, mergeError := manager.executeGit(executionContext, workingCopy.Path, gitMergeSubcommandConstant, gitMergeNoFastForwardFlagConstant, gitMergeNoEditFlagConstant, upstreamReference)
	if mergeError == nil {
		return MergeResult{}, nil
	}

	commandFailedError := execshell.CommandFailedError{}
	if !errors.As(mergeError, &commandFailedError) {
		return MergeResult{}, fmt.Errorf(mergeFailureTemplateConstant, upstreamReference, syncBranchName, mergeError)
	}

	conflictListing, conflictListingError := manager.executeGit(executionContext, workingCopy.Path, gitDiffSubcommandConstant, gitDiffNameOnlyFlagConstant, gitDiffUnmergedFilterFlagConstant)
	if conflictListingError != nil {
		return MergeResult{}, fmt.Errorf(conflictInspectionFailureTemplateConstant, conflictListingError)
	}

	conflictedPaths := splitNonEmptyLines(conflictListing.StandardOutput)
	if len(conflictedPaths) == 0 {
		return MergeResult{}, fmt.Errorf(mergeFailureTemplateConstant, upstreamReference, syncBranchName, mergeError)
	}

	if _, stageError := manager.executeGit(executionContext, workingCopy.Path, gitAddSubcommandConstant, gitAddAllFlagConstant); stageError != nil {
		return MergeResult{}, fmt.Errorf(conflictCommitFailureTemplateConstant, stageError)
	}

	conflictCommitMessage := fmt.Sprintf(conflictCommitMessageTemplateConstant, manager.upstreamRemoteName, workingCopy.TrackedBranch)
	if _, commitError := manager.executeGit(executionContext, workingCopy.Path, gitCommitSubcommandConstant, gitCommitNoVerifyFlagConstant, gitCommitMessageFlagConstant, conflictCommitMessage); commitError != nil {
		return MergeResult{}, fmt.Errorf(conflictCommitFailureTemplateConstant, commitError)
	}

	return MergeResult{Conflicted: true, ConflictedPaths: conflictedPaths}, nil
}

// Push publishes the named branch to origin. A plain push is always used;
// force pushing is never performed for any outcome.
func (manager *RepositoryManager) Push(executionContext context.Context, workingCopy WorkingCopy, branchName string, setUpstream bool) error {
	pushArguments := []string{gitPushSubcommandConstant}
	if setUpstream {
		pushArguments = append(pushArguments, gitPushSetUpstreamFlagConstant)
	}
	pushArguments = append(pushArguments, manager.originRemoteName, branchName)

	if _, pushError := manager.executeGit(executionContext, workingCopy.Path, pushArguments...); pushError != nil {
		return fmt.Errorf(pushFailureTemplateConstant, branchName, pushError)
	}
	return nil
}

func (manager *RepositoryManager) ensureRemote(executionContext context.Context, workingCopyPath string, remoteName string, remoteURL string) error {
	trimmedURL := strings.TrimSpace(remoteURL)
	_, additionError := manager.executeGit(executionContext, workingCopyPath, gitRemoteSubcommandConstant, gitRemoteAddSubcommandConstant, remoteName, trimmedURL)
	if additionError == nil {
		return nil
	}

	commandFailedError := execshell.CommandFailedError{}
	if !errors.As(additionError, &commandFailedError) {
		return additionError
	}

	_, updateError := manager.executeGit(executionContext, workingCopyPath, gitRemoteSubcommandConstant, gitRemoteSetURLSubcommandConstant, remoteName, trimmedURL)
	return updateError
}

func (manager *RepositoryManager) referenceExists(executionContext context.Context, workingCopyPath string, reference string) (bool, error) {
	_, lookupError := manager.executeGit(executionContext, workingCopyPath, gitRevParseSubcommandConstant, gitRevParseVerifyFlagConstant, gitRevParseQuietFlagConstant, reference)
	if lookupError == nil {
		return true, nil
	}

	commandFailedError := execshell.CommandFailedError{}
	if errors.As(lookupError, &commandFailedError) && commandFailedError.Result.ExitCode == missingReferenceExitCodeConstant {
		return false, nil
	}
	return false, lookupError
}

func (manager *RepositoryManager) isAuthenticationFailure(fetchError error) bool {
	commandFailedError := execshell.CommandFailedError{}
	if !errors.As(fetchError, &commandFailedError) {
		return false
	}
	for _, marker := range upstreamAuthenticationFailureMarkers {
		if strings.Contains(commandFailedError.Result.StandardError, marker) {
			return true
		}
	}
	return false
}

func (manager *RepositoryManager) executeGit(executionContext context.Context, workingDirectory string, arguments ...string) (execshell.ExecutionResult, error) {
	return manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: workingDirectory,
		EnvironmentVariables: map[string]string{
			gitTerminalPromptEnvironmentNameConstant: gitTerminalPromptEnvironmentDisableConstant,
		},
	})
}

func splitNonEmptyLines(output string) []string {
	rawLines := strings.Split(output, "\n")
	lines := make([]string, 0, len(rawLines))
	for _, rawLine := range rawLines {
		trimmedLine := strings.TrimSpace(rawLine)
		if len(trimmedLine) == 0 {
			continue
		}
		lines = append(lines, trimmedLine)
	}
	return lines
}
