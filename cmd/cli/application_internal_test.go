package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewApplicationRegistersSyncCommand(testInstance *testing.T) {
	application := NewApplication()

	commandNames := []string{}
	for _, registeredCommand := range application.rootCommand.Commands() {
		commandNames = append(commandNames, registeredCommand.Name())
	}
	require.Contains(testInstance, commandNames, "sync")
}

func TestInitializeConfigurationAppliesDefaults(testInstance *testing.T) {
	application := NewApplication()

	require.NoError(testInstance, application.initializeConfiguration(application.rootCommand))

	require.Equal(testInstance, "info", application.configuration.Common.LogLevel)
	require.Equal(testInstance, "structured", application.configuration.Common.LogFormat)
	require.Equal(testInstance, "repos.yaml", application.configuration.Sync.ManifestPath)
	require.Equal(testInstance, "forks", application.configuration.Sync.WorkingDirectory)
	require.Equal(testInstance, "origin", application.configuration.Sync.BaseRemoteName)
	require.Equal(testInstance, "upstream", application.configuration.Sync.UpstreamRemoteName)
}

func TestInitializeConfigurationHonorsFlagOverrides(testInstance *testing.T) {
	application := NewApplication()
	require.NoError(testInstance, application.rootCommand.PersistentFlags().Set("log-level", "debug"))
	require.NoError(testInstance, application.rootCommand.PersistentFlags().Set("log-format", "console"))

	require.NoError(testInstance, application.initializeConfiguration(application.rootCommand))

	require.Equal(testInstance, "debug", application.configuration.Common.LogLevel)
	require.Equal(testInstance, "console", application.configuration.Common.LogFormat)
}

func TestInitializeConfigurationRejectsUnknownLogLevel(testInstance *testing.T) {
	application := NewApplication()
	require.NoError(testInstance, application.rootCommand.PersistentFlags().Set("log-level", "verbose"))

	initializationError := application.initializeConfiguration(application.rootCommand)
	require.Error(testInstance, initializationError)
	require.Contains(testInstance, initializationError.Error(), "unable to create logger")
}

func TestEmbeddedDefaultConfigurationIsIndependentCopy(testInstance *testing.T) {
	firstCopy, configurationType := EmbeddedDefaultConfiguration()
	require.Equal(testInstance, "yaml", configurationType)
	require.NotEmpty(testInstance, firstCopy)

	firstCopy[0] = '#'
	secondCopy, _ := EmbeddedDefaultConfiguration()
	require.NotEqual(testInstance, firstCopy[0], secondCopy[0])
}
