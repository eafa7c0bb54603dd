package execshell_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/forksync/internal/execshell"
)

const (
	testExecutionSuccessCaseNameConstant         = "success"
	testExecutionFailureCaseNameConstant         = "failure_exit_code"
	testExecutionRunnerErrorCaseNameConstant     = "runner_error"
	testCommandArgumentConstant                  = "--version"
	testStandardErrorOutputConstant              = "failure"
	testLoggerInitializationCaseNameConstant     = "logger_validation"
	testRunnerInitializationCaseNameConstant     = "runner_validation"
	testSuccessfulInitializationCaseNameConstant = "successful_initialization"
)

type recordingCommandRunner struct {
	executionResult  execshell.ExecutionResult
	executionError   error
	recordedCommands []execshell.ShellCommand
}

func (runner *recordingCommandRunner) Run(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	runner.recordedCommands = append(runner.recordedCommands, command)
	return runner.executionResult, runner.executionError
}

func TestShellExecutorInitializationValidation(testInstance *testing.T) {
	testCases := []struct {
		name          string
		logger        *zap.Logger
		runner        execshell.CommandRunner
		expectError   error
		expectSuccess bool
	}{
		{
			name:        testLoggerInitializationCaseNameConstant,
			logger:      nil,
			runner:      &recordingCommandRunner{},
			expectError: execshell.ErrLoggerNotConfigured,
		},
		{
			name:        testRunnerInitializationCaseNameConstant,
			logger:      zap.NewNop(),
			runner:      nil,
			expectError: execshell.ErrCommandRunnerNotConfigured,
		},
		{
			name:          testSuccessfulInitializationCaseNameConstant,
			logger:        zap.NewNop(),
			runner:        &recordingCommandRunner{},
			expectSuccess: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor, creationError := execshell.NewShellExecutor(testCase.logger, testCase.runner)
			if testCase.expectSuccess {
				require.NoError(testInstance, creationError)
				require.NotNil(testInstance, executor)
			} else {
				require.Error(testInstance, creationError)
				require.ErrorIs(testInstance, creationError, testCase.expectError)
			}
		})
	}
}

func TestShellExecutorExecuteBehavior(testInstance *testing.T) {
	testCases := []struct {
		name             string
		runnerResult     execshell.ExecutionResult
		runnerError      error
		expectErrorType  any
		expectedLogCount int
	}{
		{
			name: testExecutionSuccessCaseNameConstant,
			runnerResult: execshell.ExecutionResult{
				StandardOutput: "ok",
				ExitCode:       0,
			},
			expectedLogCount: 2,
		},
		{
			name: testExecutionFailureCaseNameConstant,
			runnerResult: execshell.ExecutionResult{
				StandardError: testStandardErrorOutputConstant,
				ExitCode:      1,
			},
			expectErrorType:  execshell.CommandFailedError{},
			expectedLogCount: 2,
		},
		{
			name:             testExecutionRunnerErrorCaseNameConstant,
			runnerError:      errors.New("runner failure"),
			expectErrorType:  execshell.CommandExecutionError{},
			expectedLogCount: 2,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			observerCore, observerLogs := observer.New(zap.DebugLevel)
			logger := zap.New(observerCore)
			recordingRunner := &recordingCommandRunner{
				executionResult: testCase.runnerResult,
				executionError:  testCase.runnerError,
			}

			shellExecutor, creationError := execshell.NewShellExecutor(logger, recordingRunner)
			require.NoError(testInstance, creationError)

			executionResult, executionError := shellExecutor.Execute(context.Background(), execshell.ShellCommand{
				Name:    execshell.CommandGit,
				Details: execshell.CommandDetails{Arguments: []string{testCommandArgumentConstant}},
			})

			if testCase.expectErrorType == nil {
				require.NoError(testInstance, executionError)
				require.Equal(testInstance, testCase.runnerResult, executionResult)
			} else {
				require.Error(testInstance, executionError)
				switch testCase.expectErrorType.(type) {
				case execshell.CommandFailedError:
					failedError := execshell.CommandFailedError{}
					require.ErrorAs(testInstance, executionError, &failedError)
					require.Equal(testInstance, testCase.runnerResult.ExitCode, failedError.Result.ExitCode)
				case execshell.CommandExecutionError:
					commandExecutionError := execshell.CommandExecutionError{}
					require.ErrorAs(testInstance, executionError, &commandExecutionError)
					require.ErrorIs(testInstance, commandExecutionError.Cause, testCase.runnerError)
				}
			}

			require.Len(testInstance, recordingRunner.recordedCommands, 1)
			require.Len(testInstance, observerLogs.All(), testCase.expectedLogCount)
		})
	}
}

func TestShellExecutorExecuteGitSetsCommandName(testInstance *testing.T) {
	recordingRunner := &recordingCommandRunner{}
	shellExecutor, creationError := execshell.NewShellExecutor(zap.NewNop(), recordingRunner)
	require.NoError(testInstance, creationError)

	_, executionError := shellExecutor.ExecuteGit(context.Background(), execshell.CommandDetails{Arguments: []string{testCommandArgumentConstant}})
	require.NoError(testInstance, executionError)
	require.Len(testInstance, recordingRunner.recordedCommands, 1)
	require.Equal(testInstance, execshell.CommandGit, recordingRunner.recordedCommands[0].Name)
}
