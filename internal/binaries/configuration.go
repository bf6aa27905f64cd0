package binaries

import "strings"

const (
	defaultRepositoryPathConstant      = "."
	configurationRepositoryKeyConstant = "repository"
	configurationBatchSizeKeyConstant  = "batch_size"
	configurationKeySeparatorConstant  = "."
)

// CommandConfiguration captures configuration values for the binary-check command.
// The policy itself is compiled in and has no configuration keys.
type CommandConfiguration struct {
	RepositoryPath string `mapstructure:"repository"`
	BatchSize      int    `mapstructure:"batch_size"`
}

// DefaultCommandConfiguration provides baseline configuration values for binary-check.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		RepositoryPath: defaultRepositoryPathConstant,
		BatchSize:      DefaultBatchSize,
	}
}

// DefaultConfigurationValues exposes the defaults as configuration keys under rootKey.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		rootKey + configurationKeySeparatorConstant + configurationRepositoryKeyConstant: defaults.RepositoryPath,
		rootKey + configurationKeySeparatorConstant + configurationBatchSizeKeyConstant:  defaults.BatchSize,
	}
}

// sanitize trims values and restores defaults for unusable ones.
func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	sanitized := configuration

	sanitized.RepositoryPath = strings.TrimSpace(configuration.RepositoryPath)
	if len(sanitized.RepositoryPath) == 0 {
		sanitized.RepositoryPath = defaultRepositoryPathConstant
	}
	if sanitized.BatchSize <= 0 {
		sanitized.BatchSize = DefaultBatchSize
	}

	return sanitized
}
