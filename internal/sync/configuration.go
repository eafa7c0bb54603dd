package sync

import "strings"

const (
	defaultOwnerConstant              = "USD-AI-ResearchLab"
	defaultManifestPathConstant       = "repos.yaml"
	defaultWorkingDirectoryConstant   = "forks"
	defaultBaseRemoteNameConstant     = "origin"
	defaultUpstreamRemoteNameConstant = "upstream"
	ownerConfigurationKeySuffix       = ".owner"
	manifestConfigurationKeySuffix    = ".manifest_path"
	workdirConfigurationKeySuffix     = ".workdir"
	baseRemoteConfigurationKeySuffix  = ".base_remote"
	upstreamRemoteConfigurationSuffix = ".upstream_remote"
)

// Configuration stores the persisted settings for the sync command.
type Configuration struct {
	Owner              string `mapstructure:"owner"`
	ManifestPath       string `mapstructure:"manifest_path"`
	WorkingDirectory   string `mapstructure:"workdir"`
	BaseRemoteName     string `mapstructure:"base_remote"`
	UpstreamRemoteName string `mapstructure:"upstream_remote"`
}

// DefaultConfiguration supplies baseline values for sync configuration.
func DefaultConfiguration() Configuration {
	return Configuration{
		ManifestPath:       defaultManifestPathConstant,
		WorkingDirectory:   defaultWorkingDirectoryConstant,
		BaseRemoteName:     defaultBaseRemoteNameConstant,
		UpstreamRemoteName: defaultUpstreamRemoteNameConstant,
	}
}

// DefaultConfigurationValues exposes default values keyed for the configuration loader.
func DefaultConfigurationValues(configurationKey string) map[string]any {
	defaults := DefaultConfiguration()
	return map[string]any{
		configurationKey + ownerConfigurationKeySuffix:       defaults.Owner,
		configurationKey + manifestConfigurationKeySuffix:    defaults.ManifestPath,
		configurationKey + workdirConfigurationKeySuffix:     defaults.WorkingDirectory,
		configurationKey + baseRemoteConfigurationKeySuffix:  defaults.BaseRemoteName,
		configurationKey + upstreamRemoteConfigurationSuffix: defaults.UpstreamRemoteName,
	}
}

// Sanitize trims configured values and backfills defaults for empty entries.
func (configuration Configuration) Sanitize() Configuration {
	defaults := DefaultConfiguration()

	sanitized := configuration
	sanitized.Owner = strings.TrimSpace(configuration.Owner)
	sanitized.ManifestPath = selectStringValue(configuration.ManifestPath, defaults.ManifestPath)
	sanitized.WorkingDirectory = selectStringValue(configuration.WorkingDirectory, defaults.WorkingDirectory)
	sanitized.BaseRemoteName = selectStringValue(configuration.BaseRemoteName, defaults.BaseRemoteName)
	sanitized.UpstreamRemoteName = selectStringValue(configuration.UpstreamRemoteName, defaults.UpstreamRemoteName)
	return sanitized
}

func selectStringValue(candidateValue string, fallbackValue string) string {
	trimmedCandidate := strings.TrimSpace(candidateValue)
	if len(trimmedCandidate) > 0 {
		return trimmedCandidate
	}
	return fallbackValue
}
