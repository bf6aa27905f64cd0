package execshell

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	commandGitNameConstant                    = "git"
	commandFileNameConstant                   = "file"
	loggerNotConfiguredMessageConstant        = "shell executor logger not configured"
	commandRunnerNotConfiguredMessageConstant = "shell executor command runner not configured"
	commandFailedErrorTemplateConstant        = "%s exited with code %d%s"
	commandExecutionErrorTemplateConstant     = "%s could not be executed: %v"
	logFieldCommandNameConstant               = "command"
	logFieldArgumentsConstant                 = "arguments"
	logFieldWorkingDirectoryConstant          = "working_directory"
	logFieldExitCodeConstant                  = "exit_code"
	logFieldStandardErrorConstant             = "stderr"
	maximumLoggedArgumentsConstant            = 8
	truncatedArgumentsTemplateConstant        = "... (%d more)"
)

// CommandName identifies an executable supported by the shell executor.
type CommandName string

// Supported executables.
const (
	CommandGit  CommandName = CommandName(commandGitNameConstant)
	CommandFile CommandName = CommandName(commandFileNameConstant)
)

// ErrLoggerNotConfigured indicates the executor was constructed without a logger.
var ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)

// ErrCommandRunnerNotConfigured indicates the executor was constructed without a runner.
var ErrCommandRunnerNotConfigured = errors.New(commandRunnerNotConfiguredMessageConstant)

// CommandDetails describes the arguments and environment of a single invocation.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	StandardInput        []byte
}

// ShellCommand pairs an executable with its invocation details.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// ExecutionResult captures the observable outcome of a finished process.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CommandRunner executes shell commands.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// CommandFailedError reports a command that ran but exited with a non-zero code.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

// Error implements the error interface.
func (failure CommandFailedError) Error() string {
	standardErrorSuffix := CommandMessageFormatter{}.formatStandardErrorSuffix(failure.Result.StandardError)
	return fmt.Sprintf(commandFailedErrorTemplateConstant, failure.Command.Name, failure.Result.ExitCode, standardErrorSuffix)
}

// CommandExecutionError reports a command that could not be started or was interrupted.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error implements the error interface.
func (failure CommandExecutionError) Error() string {
	return fmt.Sprintf(commandExecutionErrorTemplateConstant, failure.Command.Name, failure.Cause)
}

// Unwrap exposes the underlying cause.
func (failure CommandExecutionError) Unwrap() error {
	return failure.Cause
}

// ShellExecutor runs commands through a CommandRunner and logs their lifecycle.
type ShellExecutor struct {
	logger    *zap.Logger
	runner    CommandRunner
	observer  CommandEventObserver
	formatter CommandMessageFormatter
}

// ShellExecutorOption customizes a ShellExecutor.
type ShellExecutorOption func(*ShellExecutor)

// WithCommandEventObserver routes command lifecycle events to the provided observer.
func WithCommandEventObserver(observer CommandEventObserver) ShellExecutorOption {
	return func(executor *ShellExecutor) {
		if observer != nil {
			executor.observer = observer
		}
	}
}

// NewShellExecutor constructs a ShellExecutor from the provided logger and runner.
func NewShellExecutor(logger *zap.Logger, runner CommandRunner, options ...ShellExecutorOption) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}

	executor := &ShellExecutor{
		logger:    logger,
		runner:    runner,
		observer:  noopCommandEventObserver{},
		formatter: CommandMessageFormatter{},
	}
	for _, option := range options {
		if option != nil {
			option(executor)
		}
	}

	return executor, nil
}

// Execute runs the command and converts non-zero exits into CommandFailedError.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	commandFields := []zap.Field{
		zap.String(logFieldCommandNameConstant, string(command.Name)),
		zap.Strings(logFieldArgumentsConstant, executor.summarizeArguments(command.Details.Arguments)),
		zap.String(logFieldWorkingDirectoryConstant, strings.TrimSpace(command.Details.WorkingDirectory)),
	}

	executor.logger.Debug(executor.formatter.BuildStartedMessage(command), commandFields...)
	executor.observer.CommandStarted(command)

	executionResult, runError := executor.runner.Run(executionContext, command)
	if runError != nil {
		executor.logger.Error(executor.formatter.BuildExecutionFailureMessage(command, runError), append(commandFields, zap.Error(runError))...)
		executor.observer.CommandExecutionFailed(command, runError)
		return ExecutionResult{}, CommandExecutionError{Command: command, Cause: runError}
	}

	executor.observer.CommandCompleted(command, executionResult)

	if executionResult.ExitCode != 0 {
		executor.logger.Warn(
			executor.formatter.BuildFailureMessage(command, executionResult),
			append(commandFields,
				zap.Int(logFieldExitCodeConstant, executionResult.ExitCode),
				zap.String(logFieldStandardErrorConstant, strings.TrimSpace(executionResult.StandardError)),
			)...,
		)
		return ExecutionResult{}, CommandFailedError{Command: command, Result: executionResult}
	}

	executor.logger.Debug(executor.formatter.BuildSuccessMessage(command), commandFields...)
	return executionResult, nil
}

// ExecuteGit runs git with the provided details.
func (executor *ShellExecutor) ExecuteGit(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandGit, Details: details})
}

// ExecuteFile runs the file(1) type identification utility with the provided details.
func (executor *ShellExecutor) ExecuteFile(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandFile, Details: details})
}

// summarizeArguments keeps log lines bounded when a batch carries many paths.
func (executor *ShellExecutor) summarizeArguments(arguments []string) []string {
	if len(arguments) <= maximumLoggedArgumentsConstant {
		return arguments
	}
	summarized := append([]string{}, arguments[:maximumLoggedArgumentsConstant]...)
	return append(summarized, fmt.Sprintf(truncatedArgumentsTemplateConstant, len(arguments)-maximumLoggedArgumentsConstant))
}
