package manifest

import (
	"fmt"
	"os"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"

	"github.com/temirov/forksync/internal/gitrepo"
)

const (
	configErrorTemplateConstant                = "repository manifest %s: %s"
	configErrorWithCauseTemplateConstant       = "repository manifest %s: %s: %s"
	manifestUnreadableMessageConstant          = "file could not be read"
	manifestMalformedMessageConstant           = "file is not valid YAML"
	repositoriesNotMappingMessageConstant      = "repositories must be a mapping of name to settings"
	repositoryNameEmptyMessageConstant         = "repository name must not be empty"
	repositoryNameDuplicateTemplateConstant    = "repository %q is defined more than once"
	repositoryUpstreamInvalidTemplateConstant  = "repository %q has an unsupported upstream URL"
	repositoryEntryInvalidTemplateConstant     = "repository %q has invalid settings"
	repositoryUpstreamRequiredTemplateConstant = "repository %q is missing required field upstream"
	repositoryBranchRequiredTemplateConstant   = "repository %q is missing required field branch"
	mapstructureTagNameConstant                = "mapstructure"
	yamlMappingNodeTagConstant                 = "!!map"
	mappingNodeStrideConstant                  = 2
)

// RepositoryConfig describes one fork to keep synchronized with its upstream.
type RepositoryConfig struct {
	Name          string
	UpstreamURL   string `mapstructure:"upstream"`
	TrackedBranch string `mapstructure:"branch"`
	Disabled      bool   `mapstructure:"disabled"`
}

// ConfigError reports a fatal problem with the repository manifest.
type ConfigError struct {
	Path   string
	Reason string
	Cause  error
}

// Error describes the manifest problem.
func (configError ConfigError) Error() string {
	if configError.Cause == nil {
		return fmt.Sprintf(configErrorTemplateConstant, configError.Path, configError.Reason)
	}
	return fmt.Sprintf(configErrorWithCauseTemplateConstant, configError.Path, configError.Reason, configError.Cause)
}

// Unwrap exposes the underlying cause when present.
func (configError ConfigError) Unwrap() error {
	return configError.Cause
}

type manifestDocument struct {
	Repositories yaml.Node `yaml:"repositories"`
}

// Load reads the repository manifest at manifestPath and returns the
// configured repositories in the order they appear in the document.
func Load(manifestPath string) ([]RepositoryConfig, error) {
	manifestContent, readError := os.ReadFile(manifestPath)
	if readError != nil {
		return nil, ConfigError{Path: manifestPath, Reason: manifestUnreadableMessageConstant, Cause: readError}
	}

	var document manifestDocument
	if unmarshalError := yaml.Unmarshal(manifestContent, &document); unmarshalError != nil {
		return nil, ConfigError{Path: manifestPath, Reason: manifestMalformedMessageConstant, Cause: unmarshalError}
	}

	if document.Repositories.IsZero() {
		return []RepositoryConfig{}, nil
	}
	if document.Repositories.Kind != yaml.MappingNode || document.Repositories.Tag != yamlMappingNodeTagConstant {
		return nil, ConfigError{Path: manifestPath, Reason: repositoriesNotMappingMessageConstant}
	}

	entryNodes := document.Repositories.Content
	repositories := make([]RepositoryConfig, 0, len(entryNodes)/mappingNodeStrideConstant)
	seenRepositoryNames := make(map[string]struct{}, len(entryNodes)/mappingNodeStrideConstant)
	for nodeIndex := 0; nodeIndex+1 < len(entryNodes); nodeIndex += mappingNodeStrideConstant {
		nameNode := entryNodes[nodeIndex]
		settingsNode := entryNodes[nodeIndex+1]

		repositoryName := strings.TrimSpace(nameNode.Value)
		if len(repositoryName) == 0 {
			return nil, ConfigError{Path: manifestPath, Reason: repositoryNameEmptyMessageConstant}
		}
		if _, alreadySeen := seenRepositoryNames[repositoryName]; alreadySeen {
			return nil, ConfigError{
				Path:   manifestPath,
				Reason: fmt.Sprintf(repositoryNameDuplicateTemplateConstant, repositoryName),
			}
		}
		seenRepositoryNames[repositoryName] = struct{}{}

		repository, entryError := decodeRepositoryEntry(manifestPath, repositoryName, settingsNode)
		if entryError != nil {
			return nil, entryError
		}

		repositories = append(repositories, repository)
	}

	return repositories, nil
}

func decodeRepositoryEntry(manifestPath string, repositoryName string, settingsNode *yaml.Node) (RepositoryConfig, error) {
	var rawSettings map[string]any
	if decodeError := settingsNode.Decode(&rawSettings); decodeError != nil {
		return RepositoryConfig{}, ConfigError{
			Path:   manifestPath,
			Reason: fmt.Sprintf(repositoryEntryInvalidTemplateConstant, repositoryName),
			Cause:  decodeError,
		}
	}

	repository := RepositoryConfig{Name: repositoryName}
	decoder, decoderError := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: mapstructureTagNameConstant,
		Result:  &repository,
	})
	if decoderError != nil {
		return RepositoryConfig{}, ConfigError{
			Path:   manifestPath,
			Reason: fmt.Sprintf(repositoryEntryInvalidTemplateConstant, repositoryName),
			Cause:  decoderError,
		}
	}
	if decodeError := decoder.Decode(rawSettings); decodeError != nil {
		return RepositoryConfig{}, ConfigError{
			Path:   manifestPath,
			Reason: fmt.Sprintf(repositoryEntryInvalidTemplateConstant, repositoryName),
			Cause:  decodeError,
		}
	}

	repository.UpstreamURL = strings.TrimSpace(repository.UpstreamURL)
	repository.TrackedBranch = strings.TrimSpace(repository.TrackedBranch)

	if len(repository.UpstreamURL) == 0 {
		return RepositoryConfig{}, ConfigError{
			Path:   manifestPath,
			Reason: fmt.Sprintf(repositoryUpstreamRequiredTemplateConstant, repositoryName),
		}
	}
	if len(repository.TrackedBranch) == 0 {
		return RepositoryConfig{}, ConfigError{
			Path:   manifestPath,
			Reason: fmt.Sprintf(repositoryBranchRequiredTemplateConstant, repositoryName),
		}
	}
	if _, upstreamParseError := gitrepo.ParseRemoteURL(repository.UpstreamURL); upstreamParseError != nil {
		return RepositoryConfig{}, ConfigError{
			Path:   manifestPath,
			Reason: fmt.Sprintf(repositoryUpstreamInvalidTemplateConstant, repositoryName),
			Cause:  upstreamParseError,
		}
	}

	return repository, nil
}
