package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/binguard/internal/binaries"
	"github.com/temirov/binguard/internal/utils"
	flagutils "github.com/temirov/binguard/internal/utils/flags"
)

const (
	applicationNameConstant                 = "binguard"
	applicationShortDescriptionConstant     = "Repository checks that keep prebuilt binaries out of version control"
	applicationLongDescriptionConstant      = "binguard runs static repository checks in CI. binary-check fails when git tracks prebuilt binary artifacts that are not allowlisted."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format."
	versionFlagNameConstant                 = "version"
	versionFlagUsageConstant                = "Print the binguard version and exit."
	versionOutputTemplateConstant           = "%s version: %s\n"
	developmentVersionConstant              = "dev"
	develBuildVersionConstant               = "(devel)"
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	environmentPrefixConstant               = "BINGUARD"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	rootCommandInfoMessageConstant          = "binguard CLI executed"
	rootCommandDebugMessageConstant         = "binguard CLI diagnostics"
	logFieldCommandNameConstant             = "command_name"
	logFieldArgumentCountConstant           = "argument_count"
	logFieldArgumentsConstant               = "arguments"
	loggerNotInitializedMessageConstant     = "logger not initialized"
	defaultConfigurationSearchPathConstant  = "."
	toolsConfigurationKeyConstant           = "tools"
	binaryCheckConfigurationKeyConstant     = toolsConfigurationKeyConstant + ".binary_check"
)

// Version is stamped at build time through -ldflags "-X".
var Version string

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common ApplicationCommonConfiguration `mapstructure:"common"`
	Tools  ApplicationToolsConfiguration  `mapstructure:"tools"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// ApplicationToolsConfiguration holds configuration for CLI subcommands.
type ApplicationToolsConfiguration struct {
	BinaryCheck binaries.CommandConfiguration `mapstructure:"binary_check"`
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand            *cobra.Command
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          *utils.LoggerFactory
	logger                 *zap.Logger
	configuration          ApplicationConfiguration
	configurationMetadata  utils.LoadedConfiguration
	configurationFilePath  string
	logLevelFlagValue      string
	logFormatFlagValue     string
	versionFlagValue       bool
	commandContextAccessor utils.CommandContextAccessor
	versionResolver        func(context.Context) string
	exitFunction           func(int)
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		[]string{defaultConfigurationSearchPathConstant},
	)
	embeddedConfiguration, embeddedConfigurationType := EmbeddedDefaultConfiguration()
	configurationLoader.SetEmbeddedConfiguration(embeddedConfiguration, embeddedConfigurationType)

	application := &Application{
		configurationLoader:    configurationLoader,
		loggerFactory:          utils.NewLoggerFactory(),
		logger:                 zap.NewNop(),
		commandContextAccessor: utils.NewCommandContextAccessor(),
		versionResolver:        resolveVersion,
		exitFunction:           os.Exit,
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			if application.versionFlagValue {
				application.printVersion(command)
				return nil
			}
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runRootCommand(command, arguments)
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(
		&application.logLevelFlagValue,
		logLevelFlagNameConstant,
		"",
		flagutils.LogLevelChoices().Usage(logLevelFlagUsageConstant),
	)
	cobraCommand.PersistentFlags().StringVar(
		&application.logFormatFlagValue,
		logFormatFlagNameConstant,
		"",
		flagutils.LogFormatChoices().Usage(logFormatFlagUsageConstant),
	)
	cobraCommand.PersistentFlags().BoolVar(&application.versionFlagValue, versionFlagNameConstant, false, versionFlagUsageConstant)

	binaryCheckBuilder := binaries.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
		ConfigurationProvider: func() binaries.CommandConfiguration {
			return application.configuration.Tools.BinaryCheck
		},
	}
	binaryCheckCommand, binaryCheckBuildError := binaryCheckBuilder.Build()
	if binaryCheckBuildError == nil {
		cobraCommand.AddCommand(binaryCheckCommand)
	}

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the configured Cobra command hierarchy and ensures logger flushing.
func (application *Application) Execute() error {
	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatStructured),
	}
	for configurationKey, configurationValue := range binaries.DefaultConfigurationValues(binaryCheckConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}

	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}

	logger, loggerCreationError := application.loggerFactory.CreateLogger(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = logger

	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	if command != nil {
		updatedContext := application.commandContextAccessor.WithConfigurationFilePath(
			command.Context(),
			application.configurationMetadata.ConfigFileUsed,
		)
		command.SetContext(updatedContext)
		if rootCommand := command.Root(); rootCommand != nil {
			rootCommand.SetContext(updatedContext)
		}
	}

	return nil
}

func (application *Application) humanReadableLoggingEnabled() bool {
	logFormatValue := strings.TrimSpace(application.configuration.Common.LogFormat)
	return strings.EqualFold(logFormatValue, string(utils.LogFormatConsole))
}

func (application *Application) runRootCommand(command *cobra.Command, arguments []string) error {
	if application.logger == nil {
		return errors.New(loggerNotInitializedMessageConstant)
	}

	application.logger.Info(
		rootCommandInfoMessageConstant,
		zap.String(logFieldCommandNameConstant, command.Name()),
		zap.Int(logFieldArgumentCountConstant, len(arguments)),
	)

	application.logger.Debug(
		rootCommandDebugMessageConstant,
		zap.Strings(logFieldArgumentsConstant, arguments),
	)

	if len(arguments) == 0 {
		return command.Help()
	}

	return nil
}

func (application *Application) printVersion(command *cobra.Command) {
	versionResolver := application.versionResolver
	if versionResolver == nil {
		versionResolver = resolveVersion
	}
	fmt.Fprintf(command.OutOrStdout(), versionOutputTemplateConstant, applicationNameConstant, versionResolver(command.Context()))
	application.exitFunction(0)
}

func resolveVersion(context.Context) string {
	if trimmedVersion := strings.TrimSpace(Version); len(trimmedVersion) > 0 {
		return trimmedVersion
	}
	if buildInformation, available := debug.ReadBuildInfo(); available {
		moduleVersion := strings.TrimSpace(buildInformation.Main.Version)
		if len(moduleVersion) > 0 && moduleVersion != develBuildVersionConstant {
			return moduleVersion
		}
	}
	return developmentVersionConstant
}

func (application *Application) flushLogger() error {
	if syncError := application.syncLoggerInstance(application.logger); syncError != nil {
		return syncError
	}
	return nil
}

func (application *Application) syncLoggerInstance(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}

	syncError := logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	rootCommand := command.Root()
	if rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet == nil {
			continue
		}

		if flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}
