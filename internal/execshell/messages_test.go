package execshell_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/forksync/internal/execshell"
)

const (
	testMessagesWorkingDirectoryConstant = "/tmp/worktrees/fork"
)

func TestCommandMessageFormatterDescribesGitSubcommands(testInstance *testing.T) {
	formatter := execshell.CommandMessageFormatter{}

	testCases := []struct {
		name                 string
		arguments            []string
		expectedStartMessage string
	}{
		{
			name:                 "fetch_remote",
			arguments:            []string{"fetch", "upstream", "--prune"},
			expectedStartMessage: "Fetching from upstream in /tmp/worktrees/fork",
		},
		{
			name:                 "fast_forward_merge",
			arguments:            []string{"merge", "--ff-only", "upstream/main"},
			expectedStartMessage: "Fast-forwarding to upstream/main in /tmp/worktrees/fork",
		},
		{
			name:                 "regular_merge",
			arguments:            []string{"merge", "--no-ff", "--no-edit", "upstream/main"},
			expectedStartMessage: "Merging upstream/main in /tmp/worktrees/fork",
		},
		{
			name:                 "ancestry_check",
			arguments:            []string{"merge-base", "--is-ancestor", "main", "upstream/main"},
			expectedStartMessage: "Checking whether main is an ancestor of upstream/main in /tmp/worktrees/fork",
		},
		{
			name:                 "push_branch",
			arguments:            []string{"push", "origin", "sync/upstream-20260823"},
			expectedStartMessage: "Pushing sync/upstream-20260823 to origin from /tmp/worktrees/fork",
		},
		{
			name:                 "remote_add",
			arguments:            []string{"remote", "add", "upstream", "https://github.com/example/tool.git"},
			expectedStartMessage: "Adding upstream remote in /tmp/worktrees/fork",
		},
		{
			name:                 "remote_set_url",
			arguments:            []string{"remote", "set-url", "upstream", "https://github.com/example/tool.git"},
			expectedStartMessage: "Updating upstream remote in /tmp/worktrees/fork",
		},
		{
			name:                 "checkout_branch",
			arguments:            []string{"checkout", "-B", "main", "origin/main"},
			expectedStartMessage: "Switching /tmp/worktrees/fork to branch main",
		},
		{
			name:                 "generic_fallback",
			arguments:            []string{"status", "--porcelain"},
			expectedStartMessage: "Running git status --porcelain",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			command := execshell.ShellCommand{
				Name: execshell.CommandGit,
				Details: execshell.CommandDetails{
					Arguments:        testCase.arguments,
					WorkingDirectory: testMessagesWorkingDirectoryConstant,
				},
			}
			require.Equal(testInstance, testCase.expectedStartMessage, formatter.BuildStartedMessage(command))
		})
	}
}

func TestCommandMessageFormatterIncludesStandardErrorOnFailure(testInstance *testing.T) {
	formatter := execshell.CommandMessageFormatter{}
	command := execshell.ShellCommand{
		Name: execshell.CommandGit,
		Details: execshell.CommandDetails{
			Arguments:        []string{"merge", "--ff-only", "upstream/main"},
			WorkingDirectory: testMessagesWorkingDirectoryConstant,
		},
	}
	result := execshell.ExecutionResult{ExitCode: 128, StandardError: "fatal: Not possible to fast-forward, aborting."}

	failureMessage := formatter.BuildFailureMessage(command, result)
	require.Contains(testInstance, failureMessage, "Could not fast-forward to upstream/main")
	require.Contains(testInstance, failureMessage, "exit code 128")
	require.Contains(testInstance, failureMessage, "Not possible to fast-forward")
}
