package execshell

import "context"

const (
	gitExecutableNameConstant = "git"
)

// CommandName identifies a supported external executable.
type CommandName string

// Supported executables.
const (
	CommandGit CommandName = CommandName(gitExecutableNameConstant)
)

// CommandDetails captures the arguments and execution environment for a command.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
}

// ShellCommand combines a CommandName with invocation details.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// ExecutionResult captures the observable results of executing a command.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CommandRunner represents the ability to run shell commands.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}
