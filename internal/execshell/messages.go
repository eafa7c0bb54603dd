package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	standardErrorSuffixTemplateConstant     = ": %s"
	emptyStringConstant                     = ""
	defaultWorkingDirectoryLabelConstant    = "current directory"
	fallbackUnknownValueLabelConstant       = "unknown"
	unknownFailureMessageConstant           = "unknown error"
)

const (
	gitInitSubcommandNameConstant      = "init"
	gitRemoteSubcommandNameConstant    = "remote"
	gitRemoteAddSubcommandNameConstant = "add"
	gitRemoteSetURLSubcommandConstant  = "set-url"
	gitFetchSubcommandNameConstant     = "fetch"
	gitCheckoutSubcommandNameConstant  = "checkout"
	gitMergeSubcommandNameConstant     = "merge"
	gitMergeBaseSubcommandNameConstant = "merge-base"
	gitPushSubcommandNameConstant      = "push"
	gitFastForwardOnlyFlagConstant     = "--ff-only"
	gitIsAncestorFlagConstant          = "--is-ancestor"
)

const (
	gitInitStartTemplateConstant              = "Initializing repository at %s"
	gitInitSuccessTemplateConstant            = "Initialized repository at %s"
	gitInitFailureTemplateConstant            = "Failed to initialize repository at %s (exit code %d%s)"
	gitRemoteAddStartTemplateConstant         = "Adding %s remote in %s"
	gitRemoteAddSuccessTemplateConstant       = "Added %s remote in %s"
	gitRemoteAddFailureTemplateConstant       = "Failed to add %s remote in %s (exit code %d%s)"
	gitRemoteUpdateStartTemplateConstant      = "Updating %s remote in %s"
	gitRemoteUpdateSuccessTemplateConstant    = "Updated %s remote in %s"
	gitRemoteUpdateFailureTemplateConstant    = "Failed to update %s remote in %s (exit code %d%s)"
	gitFetchStartTemplateConstant             = "Fetching from %s in %s"
	gitFetchSuccessTemplateConstant           = "Fetched from %s in %s"
	gitFetchFailureTemplateConstant           = "Failed to fetch from %s in %s (exit code %d%s)"
	gitFetchAllRemotesLabelConstant           = "all remotes"
	gitCheckoutStartTemplateConstant          = "Switching %s to branch %s"
	gitCheckoutSuccessTemplateConstant        = "%s now on branch %s"
	gitCheckoutFailureTemplateConstant        = "Failed to switch %s to branch %s (exit code %d%s)"
	gitFastForwardStartTemplateConstant       = "Fast-forwarding to %s in %s"
	gitFastForwardSuccessTemplateConstant     = "Fast-forwarded to %s in %s"
	gitFastForwardFailureTemplateConstant     = "Could not fast-forward to %s in %s (exit code %d%s)"
	gitMergeStartTemplateConstant             = "Merging %s in %s"
	gitMergeSuccessTemplateConstant           = "Merged %s in %s"
	gitMergeFailureTemplateConstant           = "Merge of %s in %s reported conflicts or failed (exit code %d%s)"
	gitAncestryCheckStartTemplateConstant     = "Checking whether %s is an ancestor of %s in %s"
	gitAncestryCheckSuccessTemplateConstant   = "%s is an ancestor of %s in %s"
	gitAncestryCheckFailureTemplateConstant   = "%s is not an ancestor of %s in %s (exit code %d%s)"
	gitPushStartTemplateConstant              = "Pushing %s to %s from %s"
	gitPushSuccessTemplateConstant            = "Pushed %s to %s from %s"
	gitPushFailureTemplateConstant            = "Failed to push %s to %s from %s (exit code %d%s)"
	ancestryReferenceExpectedArgumentCountInt = 2
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if command.Name != CommandGit || len(command.Details.Arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	if stage == messageStageExecutionFailure {
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, formatter.formatCommandLabel(command), formatter.describeFailure(failure))
	}

	subcommand := strings.TrimSpace(command.Details.Arguments[0])
	switch subcommand {
	case gitInitSubcommandNameConstant:
		return formatter.describeInit(command, result, stage)
	case gitRemoteSubcommandNameConstant:
		return formatter.describeRemote(command, result, stage)
	case gitFetchSubcommandNameConstant:
		return formatter.describeFetch(command, result, stage)
	case gitCheckoutSubcommandNameConstant:
		return formatter.describeCheckout(command, result, stage)
	case gitMergeSubcommandNameConstant:
		return formatter.describeMerge(command, result, stage)
	case gitMergeBaseSubcommandNameConstant:
		return formatter.describeAncestryCheck(command, result, stage)
	case gitPushSubcommandNameConstant:
		return formatter.describePush(command, result, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeInit(command ShellCommand, result ExecutionResult, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitInitStartTemplateConstant, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitInitSuccessTemplateConstant, workingDirectory)
	default:
		return fmt.Sprintf(gitInitFailureTemplateConstant, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	}
}

func (formatter CommandMessageFormatter) describeRemote(command ShellCommand, result ExecutionResult, stage messageStage) string {
	arguments := command.Details.Arguments
	workingDirectory := formatter.describeWorkingDirectory(command)
	remoteName := formatter.ensureValue(formatter.argumentAtIndex(arguments, 2))

	subcommand := formatter.argumentAtIndex(arguments, 1)
	isUpdate := strings.TrimSpace(subcommand) == gitRemoteSetURLSubcommandConstant
	switch stage {
	case messageStageStart:
		if isUpdate {
			return fmt.Sprintf(gitRemoteUpdateStartTemplateConstant, remoteName, workingDirectory)
		}
		return fmt.Sprintf(gitRemoteAddStartTemplateConstant, remoteName, workingDirectory)
	case messageStageSuccess:
		if isUpdate {
			return fmt.Sprintf(gitRemoteUpdateSuccessTemplateConstant, remoteName, workingDirectory)
		}
		return fmt.Sprintf(gitRemoteAddSuccessTemplateConstant, remoteName, workingDirectory)
	default:
		if isUpdate {
			return fmt.Sprintf(gitRemoteUpdateFailureTemplateConstant, remoteName, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		}
		return fmt.Sprintf(gitRemoteAddFailureTemplateConstant, remoteName, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	}
}

func (formatter CommandMessageFormatter) describeFetch(command ShellCommand, result ExecutionResult, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	remoteName := formatter.firstNonFlagArgument(command.Details.Arguments[1:])
	if len(remoteName) == 0 {
		remoteName = gitFetchAllRemotesLabelConstant
	}
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitFetchStartTemplateConstant, remoteName, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitFetchSuccessTemplateConstant, remoteName, workingDirectory)
	default:
		return fmt.Sprintf(gitFetchFailureTemplateConstant, remoteName, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	}
}

func (formatter CommandMessageFormatter) describeCheckout(command ShellCommand, result ExecutionResult, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	branchName := formatter.ensureValue(formatter.firstNonFlagArgument(command.Details.Arguments[1:]))
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitCheckoutStartTemplateConstant, workingDirectory, branchName)
	case messageStageSuccess:
		return fmt.Sprintf(gitCheckoutSuccessTemplateConstant, workingDirectory, branchName)
	default:
		return fmt.Sprintf(gitCheckoutFailureTemplateConstant, workingDirectory, branchName, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	}
}

func (formatter CommandMessageFormatter) describeMerge(command ShellCommand, result ExecutionResult, stage messageStage) string {
	arguments := command.Details.Arguments
	workingDirectory := formatter.describeWorkingDirectory(command)
	mergeReference := formatter.ensureValue(formatter.lastNonFlagArgument(arguments[1:]))
	fastForwardOnly := containsArgument(arguments, gitFastForwardOnlyFlagConstant)

	switch stage {
	case messageStageStart:
		if fastForwardOnly {
			return fmt.Sprintf(gitFastForwardStartTemplateConstant, mergeReference, workingDirectory)
		}
		return fmt.Sprintf(gitMergeStartTemplateConstant, mergeReference, workingDirectory)
	case messageStageSuccess:
		if fastForwardOnly {
			return fmt.Sprintf(gitFastForwardSuccessTemplateConstant, mergeReference, workingDirectory)
		}
		return fmt.Sprintf(gitMergeSuccessTemplateConstant, mergeReference, workingDirectory)
	default:
		if fastForwardOnly {
			return fmt.Sprintf(gitFastForwardFailureTemplateConstant, mergeReference, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		}
		return fmt.Sprintf(gitMergeFailureTemplateConstant, mergeReference, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	}
}

func (formatter CommandMessageFormatter) describeAncestryCheck(command ShellCommand, result ExecutionResult, stage messageStage) string {
	arguments := command.Details.Arguments
	workingDirectory := formatter.describeWorkingDirectory(command)
	if !containsArgument(arguments, gitIsAncestorFlagConstant) {
		return formatter.buildGenericMessage(command, result, nil, stage)
	}

	references := formatter.nonFlagArguments(arguments[1:])
	if len(references) < ancestryReferenceExpectedArgumentCountInt {
		return formatter.buildGenericMessage(command, result, nil, stage)
	}
	ancestorReference := references[0]
	descendantReference := references[1]

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitAncestryCheckStartTemplateConstant, ancestorReference, descendantReference, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitAncestryCheckSuccessTemplateConstant, ancestorReference, descendantReference, workingDirectory)
	default:
		return fmt.Sprintf(gitAncestryCheckFailureTemplateConstant, ancestorReference, descendantReference, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	}
}

func (formatter CommandMessageFormatter) describePush(command ShellCommand, result ExecutionResult, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	references := formatter.nonFlagArguments(command.Details.Arguments[1:])
	remoteName := fallbackUnknownValueLabelConstant
	branchReference := fallbackUnknownValueLabelConstant
	if len(references) > 0 {
		remoteName = references[0]
	}
	if len(references) > 1 {
		branchReference = references[1]
	}

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitPushStartTemplateConstant, branchReference, remoteName, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitPushSuccessTemplateConstant, branchReference, remoteName, workingDirectory)
	default:
		return fmt.Sprintf(gitPushFailureTemplateConstant, branchReference, remoteName, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandLabel := string(command.Name)
	if len(command.Details.Arguments) > 0 {
		commandLabel = fmt.Sprintf("%s %s", commandLabel, strings.Join(command.Details.Arguments, " "))
	}
	return commandLabel
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func (formatter CommandMessageFormatter) ensureValue(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return trimmed
}

func (formatter CommandMessageFormatter) argumentAtIndex(arguments []string, index int) string {
	if index >= 0 && index < len(arguments) {
		return arguments[index]
	}
	return emptyStringConstant
}

func (formatter CommandMessageFormatter) firstNonFlagArgument(arguments []string) string {
	nonFlagArguments := formatter.nonFlagArguments(arguments)
	if len(nonFlagArguments) == 0 {
		return emptyStringConstant
	}
	return nonFlagArguments[0]
}

func (formatter CommandMessageFormatter) lastNonFlagArgument(arguments []string) string {
	nonFlagArguments := formatter.nonFlagArguments(arguments)
	if len(nonFlagArguments) == 0 {
		return emptyStringConstant
	}
	return nonFlagArguments[len(nonFlagArguments)-1]
}

func (formatter CommandMessageFormatter) nonFlagArguments(arguments []string) []string {
	collected := make([]string, 0, len(arguments))
	for _, argument := range arguments {
		trimmed := strings.TrimSpace(argument)
		if len(trimmed) == 0 {
			continue
		}
		if strings.HasPrefix(trimmed, "-") {
			continue
		}
		collected = append(collected, trimmed)
	}
	return collected
}

func containsArgument(arguments []string, value string) bool {
	for _, argument := range arguments {
		if strings.TrimSpace(argument) == value {
			return true
		}
	}
	return false
}
