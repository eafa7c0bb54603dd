package execshell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

const (
	environmentAssignmentTemplateConstant = "%s=%s"
)

// OSCommandRunner executes commands using the operating system facilities.
type OSCommandRunner struct{}

// NewOSCommandRunner constructs a runner backed by os/exec.
func NewOSCommandRunner() *OSCommandRunner {
	return &OSCommandRunner{}
}

// Run executes the supplied command and captures its output. A non-zero exit
// code is reported through ExecutionResult with a nil error so callers can
// interpret git exit codes such as merge-base ancestry checks.
func (runner *OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	executable := exec.CommandContext(executionContext, string(command.Name), command.Details.Arguments...)
	executable.Dir = command.Details.WorkingDirectory
	executable.Env = mergedEnvironment(command.Details.EnvironmentVariables)

	var standardOutputBuffer bytes.Buffer
	var standardErrorBuffer bytes.Buffer
	executable.Stdout = &standardOutputBuffer
	executable.Stderr = &standardErrorBuffer

	runError := executable.Run()
	executionResult := ExecutionResult{
		StandardOutput: standardOutputBuffer.String(),
		StandardError:  standardErrorBuffer.String(),
	}
	if runError != nil {
		exitError := &exec.ExitError{}
		if !errors.As(runError, &exitError) {
			return ExecutionResult{}, runError
		}
		executionResult.ExitCode = exitError.ExitCode()
	}

	return executionResult, nil
}

func mergedEnvironment(environmentVariables map[string]string) []string {
	if len(environmentVariables) == 0 {
		return nil
	}

	merged := append([]string{}, os.Environ()...)
	for environmentKey, environmentValue := range environmentVariables {
		merged = append(merged, fmt.Sprintf(environmentAssignmentTemplateConstant, environmentKey, environmentValue))
	}
	return merged
}
