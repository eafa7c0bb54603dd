package sync

// OutcomeKind classifies the terminal state reached for one repository.
type OutcomeKind string

// Terminal outcome kinds produced by a synchronization run.
const (
	OutcomeFastForwarded     OutcomeKind = OutcomeKind("fast_forwarded")
	OutcomePullRequestOpened OutcomeKind = OutcomeKind("pull_request_opened")
	OutcomeSkipped           OutcomeKind = OutcomeKind("skipped")
	OutcomeFailed            OutcomeKind = OutcomeKind("failed")
)

// SyncOutcome records the terminal state of one configured repository.
// Exactly one outcome is produced per configured repository per run.
type SyncOutcome struct {
	Kind              OutcomeKind
	RepositoryName    string
	Branch            string
	PullRequestNumber int
	PullRequestURL    string
	SkipReason        string
	ErrorMessage      string
}

func fastForwardedOutcome(repositoryName string, branchName string) SyncOutcome {
	return SyncOutcome{Kind: OutcomeFastForwarded, RepositoryName: repositoryName, Branch: branchName}
}

func pullRequestOpenedOutcome(repositoryName string, branchName string, pullRequestNumber int, pullRequestURL string) SyncOutcome {
	return SyncOutcome{
		Kind:              OutcomePullRequestOpened,
		RepositoryName:    repositoryName,
		Branch:            branchName,
		PullRequestNumber: pullRequestNumber,
		PullRequestURL:    pullRequestURL,
	}
}

func skippedOutcome(repositoryName string, reason string) SyncOutcome {
	return SyncOutcome{Kind: OutcomeSkipped, RepositoryName: repositoryName, SkipReason: reason}
}

func failedOutcome(repositoryName string, failure error) SyncOutcome {
	return SyncOutcome{Kind: OutcomeFailed, RepositoryName: repositoryName, ErrorMessage: failure.Error()}
}
