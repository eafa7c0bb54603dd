package sync

import (
	"fmt"
	"strings"
)

const (
	summaryHeaderConstant                  = "Fork synchronization summary"
	summaryFastForwardSectionConstant      = "Fast-forwarded"
	summaryPullRequestSectionConstant      = "Pull requests opened"
	summarySkippedSectionConstant          = "Skipped"
	summaryErrorSectionConstant            = "Errors"
	summarySectionHeaderTemplateConstant   = "%s (%d):"
	summaryEntryTemplateConstant           = "  - %s"
	fastForwardIdentifierTemplateConstant  = "%s/%s:%s"
	pullRequestIdentifierTemplateConstant  = "%s/%s#%d"
	skipIdentifierTemplateConstant         = "%s (%s)"
	failureIdentifierTemplateConstant      = "%s: %s"
)

// RunSummary aggregates the outcomes of one synchronization run by category.
type RunSummary struct {
	FastForwardedIdentifiers []string
	PullRequestIdentifiers   []string
	SkippedRepositories      []string
	FailureDescriptions      []string
}

// Summarize folds per-repository outcomes into a RunSummary. Identifiers use
// owner/repo:branch for fast-forwards and owner/repo#number for pull requests.
func Summarize(owner string, outcomes []SyncOutcome) RunSummary {
	summary := RunSummary{}
	for _, outcome := range outcomes {
		switch outcome.Kind {
		case OutcomeFastForwarded:
			summary.FastForwardedIdentifiers = append(summary.FastForwardedIdentifiers, fmt.Sprintf(fastForwardIdentifierTemplateConstant, owner, outcome.RepositoryName, outcome.Branch))
		case OutcomePullRequestOpened:
			summary.PullRequestIdentifiers = append(summary.PullRequestIdentifiers, fmt.Sprintf(pullRequestIdentifierTemplateConstant, owner, outcome.RepositoryName, outcome.PullRequestNumber))
		case OutcomeSkipped:
			summary.SkippedRepositories = append(summary.SkippedRepositories, fmt.Sprintf(skipIdentifierTemplateConstant, outcome.RepositoryName, outcome.SkipReason))
		case OutcomeFailed:
			summary.FailureDescriptions = append(summary.FailureDescriptions, fmt.Sprintf(failureIdentifierTemplateConstant, outcome.RepositoryName, outcome.ErrorMessage))
		}
	}
	return summary
}

// Total returns the number of repositories accounted for across all categories.
func (summary RunSummary) Total() int {
	return len(summary.FastForwardedIdentifiers) + len(summary.PullRequestIdentifiers) + len(summary.SkippedRepositories) + len(summary.FailureDescriptions)
}

// Render formats the summary as a sectioned human-readable report.
func (summary RunSummary) Render() string {
	reportBuilder := strings.Builder{}
	reportBuilder.WriteString(summaryHeaderConstant)
	reportBuilder.WriteString("\n")

	writeSection(&reportBuilder, summaryPullRequestSectionConstant, summary.PullRequestIdentifiers)
	writeSection(&reportBuilder, summaryFastForwardSectionConstant, summary.FastForwardedIdentifiers)
	writeSection(&reportBuilder, summarySkippedSectionConstant, summary.SkippedRepositories)
	writeSection(&reportBuilder, summaryErrorSectionConstant, summary.FailureDescriptions)

	return reportBuilder.String()
}

func writeSection(reportBuilder *strings.Builder, sectionName string, entries []string) {
	reportBuilder.WriteString(fmt.Sprintf(summarySectionHeaderTemplateConstant, sectionName, len(entries)))
	reportBuilder.WriteString("\n")
	for _, entry := range entries {
		reportBuilder.WriteString(fmt.Sprintf(summaryEntryTemplateConstant, entry))
		reportBuilder.WriteString("\n")
	}
}
