package ui

import (
	"go.uber.org/zap"

	"github.com/temirov/binguard/internal/execshell"
)

// CommandMessageBuilder produces human-readable sentences for command lifecycle stages.
type CommandMessageBuilder interface {
	BuildStartedMessage(command execshell.ShellCommand) string
	BuildSuccessMessage(command execshell.ShellCommand) string
	BuildFailureMessage(command execshell.ShellCommand, result execshell.ExecutionResult) string
	BuildExecutionFailureMessage(command execshell.ShellCommand, failure error) string
}

// ConsoleCommandEventLogger renders command lifecycle events using a zap logger configured for human-readable output.
type ConsoleCommandEventLogger struct {
	logger         *zap.Logger
	messageBuilder CommandMessageBuilder
}

// NewConsoleCommandEventLogger constructs a console event logger backed by the provided zap logger.
func NewConsoleCommandEventLogger(logger *zap.Logger) *ConsoleCommandEventLogger {
	return NewConsoleCommandEventLoggerWithBuilder(logger, nil)
}

// NewConsoleCommandEventLoggerWithBuilder constructs a console event logger with custom message wording.
func NewConsoleCommandEventLoggerWithBuilder(logger *zap.Logger, messageBuilder CommandMessageBuilder) *ConsoleCommandEventLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if messageBuilder == nil {
		messageBuilder = execshell.CommandMessageFormatter{}
	}
	return &ConsoleCommandEventLogger{logger: logger, messageBuilder: messageBuilder}
}

// CommandStarted implements execshell.CommandEventObserver by logging command start notifications.
func (eventLogger *ConsoleCommandEventLogger) CommandStarted(command execshell.ShellCommand) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Info(eventLogger.messageBuilder.BuildStartedMessage(command))
}

// CommandCompleted implements execshell.CommandEventObserver by logging command completion notifications.
func (eventLogger *ConsoleCommandEventLogger) CommandCompleted(command execshell.ShellCommand, result execshell.ExecutionResult) {
	if eventLogger == nil {
		return
	}
	if result.ExitCode == 0 {
		eventLogger.logger.Info(eventLogger.messageBuilder.BuildSuccessMessage(command))
		return
	}
	eventLogger.logger.Warn(eventLogger.messageBuilder.BuildFailureMessage(command, result))
}

// CommandExecutionFailed implements execshell.CommandEventObserver by logging unexpected execution failures.
func (eventLogger *ConsoleCommandEventLogger) CommandExecutionFailed(command execshell.ShellCommand, failure error) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Error(eventLogger.messageBuilder.BuildExecutionFailureMessage(command, failure))
}
