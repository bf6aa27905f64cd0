package utils

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	environmentKeySeparatorOldConstant              = "."
	environmentKeySeparatorNewConstant              = "_"
	listValueSeparatorConstant                      = ","
	configurationReadErrorTemplateConstant          = "failed to read configuration: %w"
	configurationUnmarshalErrorTemplateConstant     = "failed to parse configuration: %w"
	embeddedConfigurationMergeErrorTemplateConstant = "failed to merge embedded configuration: %w"
)

// ConfigurationLoader wraps Viper to load structured configuration files and environment overrides.
//
// Precedence, lowest first: defaults, embedded configuration, configuration file, environment.
type ConfigurationLoader struct {
	configurationName         string
	configurationType         string
	environmentPrefix         string
	searchPaths               []string
	environmentKeyReplacer    *strings.Replacer
	embeddedConfiguration     []byte
	embeddedConfigurationType string
}

// LoadedConfiguration surfaces metadata about the resolved configuration.
type LoadedConfiguration struct {
	ConfigFileUsed string
}

// NewConfigurationLoader creates a loader that searches known paths and respects an environment prefix.
func NewConfigurationLoader(configurationName string, configurationType string, environmentPrefix string, searchPaths []string) *ConfigurationLoader {
	return &ConfigurationLoader{
		configurationName:      configurationName,
		configurationType:      configurationType,
		environmentPrefix:      environmentPrefix,
		searchPaths:            append([]string{}, searchPaths...),
		environmentKeyReplacer: strings.NewReplacer(environmentKeySeparatorOldConstant, environmentKeySeparatorNewConstant),
	}
}

// SetEmbeddedConfiguration stores configuration data merged before user-provided configuration files.
func (loader *ConfigurationLoader) SetEmbeddedConfiguration(configurationData []byte, configurationType string) {
	if loader == nil {
		return
	}

	loader.embeddedConfigurationType = strings.TrimSpace(configurationType)
	if len(configurationData) == 0 {
		loader.embeddedConfiguration = nil
		return
	}
	loader.embeddedConfiguration = append([]byte{}, configurationData...)
}

// LoadConfiguration populates targetConfiguration using defaults, embedded data, configuration files and environment variables.
func (loader *ConfigurationLoader) LoadConfiguration(configurationFilePath string, defaultValues map[string]any, targetConfiguration any) (LoadedConfiguration, error) {
	viperInstance := viper.New()
	viperInstance.SetConfigName(loader.configurationName)
	viperInstance.SetConfigType(loader.configurationType)

	if mergeError := loader.mergeEmbeddedConfiguration(viperInstance); mergeError != nil {
		return LoadedConfiguration{}, mergeError
	}

	for _, searchPath := range loader.searchPaths {
		viperInstance.AddConfigPath(searchPath)
	}

	loader.bindEnvironment(viperInstance)

	for defaultKey, defaultValue := range defaultValues {
		viperInstance.SetDefault(defaultKey, defaultValue)
	}

	if len(configurationFilePath) > 0 {
		viperInstance.SetConfigFile(configurationFilePath)
	}

	if readError := viperInstance.MergeInConfig(); readError != nil {
		var notFoundError viper.ConfigFileNotFoundError
		if !errors.As(readError, &notFoundError) {
			return LoadedConfiguration{}, fmt.Errorf(configurationReadErrorTemplateConstant, readError)
		}
	}

	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(listValueSeparatorConstant),
	))
	if unmarshalError := viperInstance.Unmarshal(targetConfiguration, decodeHook); unmarshalError != nil {
		return LoadedConfiguration{}, fmt.Errorf(configurationUnmarshalErrorTemplateConstant, unmarshalError)
	}

	return LoadedConfiguration{ConfigFileUsed: viperInstance.ConfigFileUsed()}, nil
}

func (loader *ConfigurationLoader) mergeEmbeddedConfiguration(viperInstance *viper.Viper) error {
	if len(loader.embeddedConfiguration) == 0 {
		return nil
	}

	configurationType := loader.configurationType
	if len(loader.embeddedConfigurationType) > 0 {
		configurationType = loader.embeddedConfigurationType
	}

	viperInstance.SetConfigType(configurationType)
	defer viperInstance.SetConfigType(loader.configurationType)

	if mergeError := viperInstance.MergeConfig(bytes.NewReader(loader.embeddedConfiguration)); mergeError != nil {
		return fmt.Errorf(embeddedConfigurationMergeErrorTemplateConstant, mergeError)
	}
	return nil
}

func (loader *ConfigurationLoader) bindEnvironment(viperInstance *viper.Viper) {
	viperInstance.SetEnvPrefix(loader.environmentPrefix)
	if loader.environmentKeyReplacer != nil {
		viperInstance.SetEnvKeyReplacer(loader.environmentKeyReplacer)
	}
	viperInstance.AutomaticEnv()
}
