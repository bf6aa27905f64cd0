package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	commandLabelTemplateConstant            = "%s%s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	defaultWorkingDirectoryLabelConstant    = "current directory"
	argumentTerminatorConstant              = "--"
	flagPrefixConstant                      = "-"
)

const (
	gitListFilesSubcommandNameConstant = "ls-files"
	gitRevParseSubcommandNameConstant  = "rev-parse"
	gitShowTopLevelFlagConstant        = "--show-toplevel"
)

const (
	gitListFilesStartTemplateConstant            = "Listing tracked files in %s"
	gitListFilesSuccessTemplateConstant          = "Listed tracked files in %s"
	gitListFilesFailureTemplateConstant          = "Failed to list tracked files in %s (exit code %d%s)"
	gitListFilesExecutionFailureTemplateConstant = "Unable to list tracked files in %s: %s"
	gitTopLevelStartTemplateConstant             = "Resolving repository root for %s"
	gitTopLevelSuccessTemplateConstant           = "Resolved repository root for %s"
	gitTopLevelFailureTemplateConstant           = "Could not confirm %s is a Git repository (exit code %d%s)"
	gitTopLevelExecutionFailureTemplateConstant  = "Unable to resolve repository root for %s: %s"
)

const (
	fileClassificationStartTemplateConstant            = "Identifying content types of %d file(s) in %s"
	fileClassificationSuccessTemplateConstant          = "Identified content types of %d file(s) in %s"
	fileClassificationFailureTemplateConstant          = "Failed to identify content types of %d file(s) in %s (exit code %d%s)"
	fileClassificationExecutionFailureTemplateConstant = "Unable to identify content types of %d file(s) in %s: %s"
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	switch command.Name {
	case CommandGit:
		return formatter.describeGitMessage(command, result, failure, stage)
	case CommandFile:
		return formatter.describeFileMessage(command, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if len(command.Details.Arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	workingDirectory := formatter.describeWorkingDirectory(command)
	subcommand := strings.TrimSpace(command.Details.Arguments[0])
	switch {
	case subcommand == gitListFilesSubcommandNameConstant:
		return formatter.selectMessage(stage, result, failure,
			fmt.Sprintf(gitListFilesStartTemplateConstant, workingDirectory),
			fmt.Sprintf(gitListFilesSuccessTemplateConstant, workingDirectory),
			gitListFilesFailureTemplateConstant,
			gitListFilesExecutionFailureTemplateConstant,
			workingDirectory,
		)
	case subcommand == gitRevParseSubcommandNameConstant && containsArgument(command.Details.Arguments, gitShowTopLevelFlagConstant):
		return formatter.selectMessage(stage, result, failure,
			fmt.Sprintf(gitTopLevelStartTemplateConstant, workingDirectory),
			fmt.Sprintf(gitTopLevelSuccessTemplateConstant, workingDirectory),
			gitTopLevelFailureTemplateConstant,
			gitTopLevelExecutionFailureTemplateConstant,
			workingDirectory,
		)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeFileMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	pathCount := countOperands(command.Details.Arguments)

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(fileClassificationStartTemplateConstant, pathCount, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(fileClassificationSuccessTemplateConstant, pathCount, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(fileClassificationFailureTemplateConstant, pathCount, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(fileClassificationExecutionFailureTemplateConstant, pathCount, workingDirectory, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) selectMessage(stage messageStage, result ExecutionResult, failure error, startMessage string, successMessage string, failureTemplate string, executionFailureTemplate string, subject string) string {
	switch stage {
	case messageStageStart:
		return startMessage
	case messageStageSuccess:
		return successMessage
	case messageStageFailure:
		return fmt.Sprintf(failureTemplate, subject, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(executionFailureTemplate, subject, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandLabel := string(command.Name)
	if len(command.Details.Arguments) > 0 {
		commandLabel = fmt.Sprintf("%s %s", commandLabel, strings.Join(command.Details.Arguments, commandArgumentsJoinSeparatorConstant))
	}
	workingDirectorySuffix := formatter.formatWorkingDirectorySuffix(command)
	return fmt.Sprintf(commandLabelTemplateConstant, commandLabel, workingDirectorySuffix)
}

func (formatter CommandMessageFormatter) formatWorkingDirectorySuffix(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func containsArgument(arguments []string, value string) bool {
	for _, argument := range arguments {
		if strings.TrimSpace(argument) == value {
			return true
		}
	}
	return false
}

// countOperands counts the arguments following "--", or the non-flag arguments when no terminator is present.
func countOperands(arguments []string) int {
	for argumentIndex, argument := range arguments {
		if argument == argumentTerminatorConstant {
			return len(arguments) - argumentIndex - 1
		}
	}

	operandCount := 0
	for _, argument := range arguments {
		if strings.HasPrefix(argument, flagPrefixConstant) {
			continue
		}
		operandCount++
	}
	return operandCount
}
