package sync

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/forksync/internal/execshell"
	"github.com/temirov/forksync/internal/githubapi"
	"github.com/temirov/forksync/internal/githubauth"
	"github.com/temirov/forksync/internal/gitrepo"
	"github.com/temirov/forksync/internal/manifest"
)

const (
	syncCommandUseConstant                  = "sync"
	syncCommandShortDescriptionConstant     = "Synchronize configured forks with their upstream repositories"
	syncCommandLongDescriptionConstant      = "sync fast-forwards each configured fork to its upstream tip when possible and otherwise publishes a dated sync branch and opens a pull request for manual review."
	unexpectedArgumentsErrorMessageConstant = "sync does not accept positional arguments"
	ownerFlagNameConstant                   = "owner"
	ownerFlagDescriptionConstant            = "GitHub user or organization that owns the forks"
	manifestFlagNameConstant                = "manifest"
	manifestFlagDescriptionConstant         = "Path to the repository manifest file"
	workdirFlagNameConstant                 = "workdir"
	workdirFlagDescriptionConstant          = "Directory that holds the local working copies"
	missingTokenErrorMessageConstant        = "no GitHub token configured: set FORK_SYNC_TOKEN, GH_TOKEN, or GITHUB_TOKEN"
	manifestLoadErrorTemplateConstant       = "unable to load repository manifest: %w"
	repositoryClientErrorTemplateConstant   = "unable to create repository client: %w"
	hostingClientErrorTemplateConstant      = "unable to create hosting client: %w"
	serviceCreationErrorTemplateConstant    = "unable to create sync service: %w"
	summaryWriteErrorTemplateConstant       = "unable to write run summary: %w"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current sync configuration.
type ConfigurationProvider func() Configuration

// RepositoryClientFactory builds the repository client used by one run.
type RepositoryClientFactory func(logger *zap.Logger, configuration Configuration, token string) (RepositoryClient, error)

// HostingClientFactory builds the hosting client used by one run.
type HostingClientFactory func(token string) (HostingClient, error)

// CommandBuilder assembles the sync command.
type CommandBuilder struct {
	LoggerProvider          LoggerProvider
	ConfigurationProvider   ConfigurationProvider
	Output                  io.Writer
	Environment             map[string]string
	RepositoryClientFactory RepositoryClientFactory
	HostingClientFactory    HostingClientFactory
	Clock                   Clock
}

// Build constructs the sync command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	syncCommand := &cobra.Command{
		Use:   syncCommandUseConstant,
		Short: syncCommandShortDescriptionConstant,
		Long:  syncCommandLongDescriptionConstant,
		RunE:  builder.runSync,
	}

	syncCommand.Flags().String(ownerFlagNameConstant, "", ownerFlagDescriptionConstant)
	syncCommand.Flags().String(manifestFlagNameConstant, "", manifestFlagDescriptionConstant)
	syncCommand.Flags().String(workdirFlagNameConstant, "", workdirFlagDescriptionConstant)

	return syncCommand, nil
}

func (builder *CommandBuilder) runSync(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errors.New(unexpectedArgumentsErrorMessageConstant)
	}

	configuration, configurationError := builder.resolveRunConfiguration(command)
	if configurationError != nil {
		return configurationError
	}

	owner := configuration.Owner
	if len(owner) == 0 {
		owner = githubauth.ResolveOwner(builder.Environment, defaultOwnerConstant)
	}

	token, tokenFound := githubauth.ResolveToken(builder.Environment)
	if !tokenFound {
		return errors.New(missingTokenErrorMessageConstant)
	}

	repositories, manifestError := manifest.Load(configuration.ManifestPath)
	if manifestError != nil {
		return fmt.Errorf(manifestLoadErrorTemplateConstant, manifestError)
	}

	logger := builder.resolveLogger()

	repositoryClient, repositoryClientError := builder.resolveRepositoryClient(logger, configuration, token)
	if repositoryClientError != nil {
		return fmt.Errorf(repositoryClientErrorTemplateConstant, repositoryClientError)
	}

	hostingClient, hostingClientError := builder.resolveHostingClient(token)
	if hostingClientError != nil {
		return fmt.Errorf(hostingClientErrorTemplateConstant, hostingClientError)
	}

	service, serviceError := NewService(owner, Dependencies{
		Repositories: repositoryClient,
		Hosting:      hostingClient,
		Clock:        builder.Clock,
		Logger:       logger,
	})
	if serviceError != nil {
		return fmt.Errorf(serviceCreationErrorTemplateConstant, serviceError)
	}

	outcomes := service.Run(command.Context(), repositories)
	summary := Summarize(owner, outcomes)

	if _, writeError := fmt.Fprint(builder.resolveOutput(command), summary.Render()); writeError != nil {
		return fmt.Errorf(summaryWriteErrorTemplateConstant, writeError)
	}

	return nil
}

func (builder *CommandBuilder) resolveRunConfiguration(command *cobra.Command) (Configuration, error) {
	configuration := Configuration{}
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}
	configuration = configuration.Sanitize()

	ownerFlagValue, ownerFlagError := command.Flags().GetString(ownerFlagNameConstant)
	if ownerFlagError != nil {
		return Configuration{}, ownerFlagError
	}
	configuration.Owner = selectStringValue(ownerFlagValue, configuration.Owner)

	manifestFlagValue, manifestFlagError := command.Flags().GetString(manifestFlagNameConstant)
	if manifestFlagError != nil {
		return Configuration{}, manifestFlagError
	}
	configuration.ManifestPath = selectStringValue(manifestFlagValue, configuration.ManifestPath)

	workdirFlagValue, workdirFlagError := command.Flags().GetString(workdirFlagNameConstant)
	if workdirFlagError != nil {
		return Configuration{}, workdirFlagError
	}
	configuration.WorkingDirectory = selectStringValue(workdirFlagValue, configuration.WorkingDirectory)

	return configuration, nil
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider != nil {
		if logger := builder.LoggerProvider(); logger != nil {
			return logger
		}
	}
	return zap.NewNop()
}

func (builder *CommandBuilder) resolveOutput(command *cobra.Command) io.Writer {
	if builder.Output != nil {
		return builder.Output
	}
	return command.OutOrStdout()
}

func (builder *CommandBuilder) resolveRepositoryClient(logger *zap.Logger, configuration Configuration, token string) (RepositoryClient, error) {
	if builder.RepositoryClientFactory != nil {
		return builder.RepositoryClientFactory(logger, configuration, token)
	}

	shellExecutor, executorError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner())
	if executorError != nil {
		return nil, executorError
	}

	return gitrepo.NewRepositoryManager(shellExecutor, gitrepo.ManagerOptions{
		WorkingDirectoryRoot: configuration.WorkingDirectory,
		OriginRemoteName:     configuration.BaseRemoteName,
		UpstreamRemoteName:   configuration.UpstreamRemoteName,
		UpstreamFetchToken:   token,
	})
}

func (builder *CommandBuilder) resolveHostingClient(token string) (HostingClient, error) {
	if builder.HostingClientFactory != nil {
		return builder.HostingClientFactory(token)
	}
	return githubapi.NewClient(token, githubapi.ClientOptions{})
}
