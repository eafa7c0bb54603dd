package execshell

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	loggerNotConfiguredMessageConstant        = "logger not configured"
	commandRunnerNotConfiguredMessageConstant = "command runner not configured"
	commandFailedErrorTemplateConstant        = "%s exited with code %d%s"
	commandExecutionErrorTemplateConstant     = "%s could not be executed: %s"
	standardErrorDetailTemplateConstant       = ": %s"
	logFieldCommandConstant                   = "command"
	logFieldWorkingDirectoryConstant          = "working_directory"
	logFieldExitCodeConstant                  = "exit_code"
)

// ErrLoggerNotConfigured indicates the executor was constructed without a logger.
var ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)

// ErrCommandRunnerNotConfigured indicates the executor was constructed without a runner.
var ErrCommandRunnerNotConfigured = errors.New(commandRunnerNotConfiguredMessageConstant)

// CommandFailedError reports a command that completed with a non-zero exit code.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

// Error describes the failed command including captured standard error output.
func (failedError CommandFailedError) Error() string {
	standardErrorDetail := ""
	trimmedStandardError := strings.TrimSpace(failedError.Result.StandardError)
	if len(trimmedStandardError) > 0 {
		standardErrorDetail = fmt.Sprintf(standardErrorDetailTemplateConstant, trimmedStandardError)
	}
	return fmt.Sprintf(commandFailedErrorTemplateConstant, describeCommand(failedError.Command), failedError.Result.ExitCode, standardErrorDetail)
}

// CommandExecutionError reports a command that could not be started at all.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error describes the execution failure.
func (executionError CommandExecutionError) Error() string {
	return fmt.Sprintf(commandExecutionErrorTemplateConstant, describeCommand(executionError.Command), executionError.Cause)
}

// Unwrap exposes the underlying cause.
func (executionError CommandExecutionError) Unwrap() error {
	return executionError.Cause
}

// ShellExecutor runs external commands while logging lifecycle events.
type ShellExecutor struct {
	logger    *zap.Logger
	runner    CommandRunner
	formatter CommandMessageFormatter
}

// NewShellExecutor constructs a ShellExecutor after validating its dependencies.
func NewShellExecutor(logger *zap.Logger, runner CommandRunner) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}
	return &ShellExecutor{logger: logger, runner: runner, formatter: CommandMessageFormatter{}}, nil
}

// Execute runs the supplied command, logging its start and completion.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	executor.logger.Info(
		executor.formatter.BuildStartedMessage(command),
		zap.String(logFieldCommandConstant, describeCommand(command)),
		zap.String(logFieldWorkingDirectoryConstant, command.Details.WorkingDirectory),
	)

	executionResult, runError := executor.runner.Run(executionContext, command)
	if runError != nil {
		executor.logger.Error(
			executor.formatter.BuildExecutionFailureMessage(command, runError),
			zap.String(logFieldCommandConstant, describeCommand(command)),
		)
		return ExecutionResult{}, CommandExecutionError{Command: command, Cause: runError}
	}

	if executionResult.ExitCode != 0 {
		executor.logger.Info(
			executor.formatter.BuildFailureMessage(command, executionResult),
			zap.String(logFieldCommandConstant, describeCommand(command)),
			zap.Int(logFieldExitCodeConstant, executionResult.ExitCode),
		)
		return executionResult, CommandFailedError{Command: command, Result: executionResult}
	}

	executor.logger.Info(
		executor.formatter.BuildSuccessMessage(command),
		zap.String(logFieldCommandConstant, describeCommand(command)),
	)

	return executionResult, nil
}

// ExecuteGit runs git with the provided invocation details.
func (executor *ShellExecutor) ExecuteGit(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandGit, Details: details})
}

func describeCommand(command ShellCommand) string {
	if len(command.Details.Arguments) == 0 {
		return string(command.Name)
	}
	return fmt.Sprintf("%s %s", command.Name, strings.Join(command.Details.Arguments, " "))
}
