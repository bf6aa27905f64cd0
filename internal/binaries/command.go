package binaries

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/binguard/internal/dependencies"
	"github.com/temirov/binguard/internal/shared"
	"github.com/temirov/binguard/internal/utils"
	flagutils "github.com/temirov/binguard/internal/utils/flags"
	pathutils "github.com/temirov/binguard/internal/utils/path"
)

const (
	commandUseNameConstant                 = "binary-check"
	commandUsageTemplateConstant           = commandUseNameConstant + " [repository]"
	commandExampleTemplateConstant         = "binguard binary-check\nbinguard binary-check ~/Development/project --batch-size 200"
	commandShortDescriptionConstant        = "Fail when prebuilt binary artifacts are tracked by git"
	commandLongDescriptionConstant         = "binary-check lists the files tracked by git, flags binary artifacts by extension and by file(1) content type, exempts the compiled-in allowlist and exits non-zero when any other artifact is tracked. The repository defaults to the configured path or the current directory."
	binaryArtifactsDetectedMessageConstant = "binary artifacts detected"
)

// ErrBinaryArtifactsDetected indicates the run found at least one non-allowlisted binary artifact.
var ErrBinaryArtifactsDetected = errors.New(binaryArtifactsDetectedMessageConstant)

// LoggerProvider yields a zap logger instance.
type LoggerProvider func() *zap.Logger

// PolicyProvider yields the policy to classify against.
type PolicyProvider func() (*Policy, error)

// CommandBuilder assembles the binary-check command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	CommandExecutor              shared.CommandExecutor
	FileSystem                   shared.FileSystem
	Classifier                   TypeClassifier
	PolicyProvider               PolicyProvider
	RepositoryPathResolver       *pathutils.RepositoryPathResolver
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
}

// Build constructs the binary-check command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:     commandUsageTemplateConstant,
		Short:   commandShortDescriptionConstant,
		Long:    commandLongDescriptionConstant,
		Args:    cobra.MaximumNArgs(1),
		RunE:    builder.run,
		Example: commandExampleTemplateConstant,
	}

	flagutils.BindStringFlag(command, flagutils.FlagDefinition{
		Name:      flagutils.RepositoryFlagName,
		Shorthand: flagutils.RepositoryFlagShorthand,
		Usage:     flagutils.RepositoryFlagUsage,
		Enabled:   true,
	}, "")
	flagutils.BindIntFlag(command, flagutils.FlagDefinition{
		Name:    flagutils.BatchSizeFlagName,
		Usage:   flagutils.BatchSizeFlagUsage,
		Enabled: true,
	}, 0)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration()

	repositoryCandidates := make([]string, 0, 3)
	if len(arguments) > 0 {
		repositoryCandidates = append(repositoryCandidates, arguments[0])
	}
	if repositoryFlagValue, repositoryFlagChanged, repositoryFlagError := flagutils.StringFlag(command, flagutils.RepositoryFlagName); repositoryFlagError == nil && repositoryFlagChanged {
		repositoryCandidates = append(repositoryCandidates, repositoryFlagValue)
	}
	repositoryCandidates = append(repositoryCandidates, configuration.RepositoryPath)

	if batchSizeFlagValue, batchSizeFlagChanged, batchSizeFlagError := flagutils.IntFlag(command, flagutils.BatchSizeFlagName); batchSizeFlagError == nil && batchSizeFlagChanged && batchSizeFlagValue > 0 {
		configuration.BatchSize = batchSizeFlagValue
	}

	fileSystem := dependencies.ResolveFileSystem(builder.FileSystem)

	repositoryPathResolver := builder.RepositoryPathResolver
	if repositoryPathResolver == nil {
		repositoryPathResolver = pathutils.NewRepositoryPathResolver()
	}
	repositoryPath, resolveError := repositoryPathResolver.WithAbsolutizer(fileSystem).Resolve(repositoryCandidates...)
	if resolveError != nil {
		return resolveError
	}

	logger := builder.resolveLogger()
	humanReadableLogging := false
	if builder.HumanReadableLoggingProvider != nil {
		humanReadableLogging = builder.HumanReadableLoggingProvider()
	}

	commandExecutor, executorError := dependencies.ResolveCommandExecutor(builder.CommandExecutor, logger, humanReadableLogging)
	if executorError != nil {
		return executorError
	}
	policy, policyError := builder.resolvePolicy()
	if policyError != nil {
		return policyError
	}

	trackedFileLister, listerError := NewGitTrackedFileLister(commandExecutor, fileSystem)
	if listerError != nil {
		return listerError
	}

	classifier := builder.Classifier
	if classifier == nil {
		fileCommandClassifier, classifierError := NewFileCommandClassifier(commandExecutor, configuration.BatchSize)
		if classifierError != nil {
			return classifierError
		}
		classifier = fileCommandClassifier
	}

	service, serviceError := NewService(ServiceDependencies{
		TrackedFileLister: trackedFileLister,
		Classifier:        classifier,
		FileSystem:        fileSystem,
		Policy:            policy,
		Logger:            logger,
	})
	if serviceError != nil {
		return serviceError
	}

	executionContext := command.Context()
	if executionContext == nil {
		executionContext = context.Background()
	}

	report, runError := service.Run(executionContext, Options{RepositoryPath: repositoryPath})
	if runError != nil {
		return runError
	}

	NewReportPrinter(shared.NewWriterReporter(utils.NewFlushingWriter(command.OutOrStdout()))).Print(report)

	if !report.Passed() {
		return ErrBinaryArtifactsDetected
	}
	return nil
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().sanitize()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolvePolicy() (*Policy, error) {
	if builder.PolicyProvider == nil {
		return LoadEmbeddedPolicy()
	}
	return builder.PolicyProvider()
}
