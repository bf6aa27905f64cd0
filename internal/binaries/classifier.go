package binaries

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/temirov/binguard/internal/execshell"
	"github.com/temirov/binguard/internal/shared"
)

const (
	// DefaultBatchSize bounds the number of paths passed to one classifier invocation.
	DefaultBatchSize = 100

	fileNoPadFlagConstant                      = "--no-pad"
	fileRawFlagConstant                        = "--raw"
	fileExitOnErrorFlagConstant                = "-E"
	filePrintNullFlagConstant                  = "--print0"
	fileArgumentTerminatorConstant             = "--"
	fileOutputPathTerminatorConstant           = '\x00'
	fileOutputRecordTerminatorConstant         = '\n'
	fileOutputFieldSeparatorConstant           = ":"
	classifierMissingMessageConstant           = "content-type classifier not configured"
	classificationErrorTemplateConstant        = "unable to classify %d file(s): %w"
	unexpectedRecordCountErrorTemplateConstant = "%w: expected %d record(s), received %d"
	unexpectedRecordPathErrorTemplateConstant  = "%w: record %d does not describe %q"
	trailingOutputErrorTemplateConstant        = "%w: unexpected output after %d record(s)"
	unreadableFileErrorTemplateConstant        = "%w: %s: %s"
	malformedClassifierOutputMessageConstant   = "malformed content-type classifier output"
	unreadableFileMessageConstant              = "content-type classifier could not read file"
)

// Descriptions file(1) prints instead of a content type when it could not read the file.
var (
	unreadableDescriptionPrefixes  = []string{"cannot open", "ERROR:"}
	unreadableDescriptionFragments = []string{"no read permission"}
)

// ErrClassifierNotConfigured indicates the content-type classifier dependency was missing.
var ErrClassifierNotConfigured = errors.New(classifierMissingMessageConstant)

// ErrMalformedClassifierOutput indicates the classifier output could not be matched to its input paths.
var ErrMalformedClassifierOutput = errors.New(malformedClassifierOutputMessageConstant)

// ErrUnreadableFile indicates the classifier could not open a file it was asked to describe.
var ErrUnreadableFile = errors.New(unreadableFileMessageConstant)

// TypeClassifier describes file contents as human-readable type descriptions.
type TypeClassifier interface {
	Classify(executionContext context.Context, repositoryPath string, paths []string) (map[string]string, error)
}

// FileCommandClassifier classifies files by running file(1) over fixed-size batches.
type FileCommandClassifier struct {
	executor  shared.CommandExecutor
	batchSize int
}

// NewFileCommandClassifier constructs a classifier. Non-positive batch sizes fall back to DefaultBatchSize.
func NewFileCommandClassifier(executor shared.CommandExecutor, batchSize int) (*FileCommandClassifier, error) {
	if executor == nil {
		return nil, ErrCommandExecutorNotConfigured
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &FileCommandClassifier{executor: executor, batchSize: batchSize}, nil
}

// BatchSize reports the number of paths passed to each invocation.
func (classifier *FileCommandClassifier) BatchSize() int {
	return classifier.batchSize
}

// Classify returns a description for every path. Batches run sequentially; the first failure aborts the call.
func (classifier *FileCommandClassifier) Classify(executionContext context.Context, repositoryPath string, paths []string) (map[string]string, error) {
	descriptions := make(map[string]string, len(paths))
	for _, batch := range chunkPaths(paths, classifier.batchSize) {
		batchDescriptions, batchError := classifier.classifyBatch(executionContext, repositoryPath, batch)
		if batchError != nil {
			return nil, fmt.Errorf(classificationErrorTemplateConstant, len(batch), batchError)
		}
		for path, description := range batchDescriptions {
			descriptions[path] = description
		}
	}
	return descriptions, nil
}

func (classifier *FileCommandClassifier) classifyBatch(executionContext context.Context, repositoryPath string, batch []string) (map[string]string, error) {
	arguments := make([]string, 0, len(batch)+5)
	arguments = append(arguments, fileNoPadFlagConstant, fileRawFlagConstant, fileExitOnErrorFlagConstant, filePrintNullFlagConstant, fileArgumentTerminatorConstant)
	arguments = append(arguments, batch...)

	executionResult, executionError := classifier.executor.ExecuteFile(executionContext, execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return nil, executionError
	}

	return parseFileOutput(executionResult.StandardOutput, batch)
}

// parseFileOutput pairs each output record with the path at the same position.
// A record is the path, a NUL byte, then ": <description>" up to the newline, so
// paths containing newlines or colons stay unambiguous.
func parseFileOutput(output string, batch []string) (map[string]string, error) {
	descriptions := make(map[string]string, len(batch))
	remainingOutput := output

	for recordIndex, expectedPath := range batch {
		pathEnd := strings.IndexByte(remainingOutput, fileOutputPathTerminatorConstant)
		if pathEnd < 0 {
			return nil, fmt.Errorf(unexpectedRecordCountErrorTemplateConstant, ErrMalformedClassifierOutput, len(batch), recordIndex)
		}
		if remainingOutput[:pathEnd] != expectedPath {
			return nil, fmt.Errorf(unexpectedRecordPathErrorTemplateConstant, ErrMalformedClassifierOutput, recordIndex+1, expectedPath)
		}
		remainingOutput = remainingOutput[pathEnd+1:]

		descriptionEnd := strings.IndexByte(remainingOutput, fileOutputRecordTerminatorConstant)
		if descriptionEnd < 0 {
			descriptionEnd = len(remainingOutput)
		}
		description := strings.TrimSpace(strings.TrimPrefix(remainingOutput[:descriptionEnd], fileOutputFieldSeparatorConstant))
		remainingOutput = remainingOutput[min(descriptionEnd+1, len(remainingOutput)):]

		if unreadableDescription(description) {
			return nil, fmt.Errorf(unreadableFileErrorTemplateConstant, ErrUnreadableFile, expectedPath, description)
		}
		descriptions[expectedPath] = description
	}

	if len(strings.TrimSpace(remainingOutput)) > 0 {
		return nil, fmt.Errorf(trailingOutputErrorTemplateConstant, ErrMalformedClassifierOutput, len(batch))
	}
	return descriptions, nil
}

func unreadableDescription(description string) bool {
	for _, prefix := range unreadableDescriptionPrefixes {
		if strings.HasPrefix(description, prefix) {
			return true
		}
	}
	for _, fragment := range unreadableDescriptionFragments {
		if strings.Contains(description, fragment) {
			return true
		}
	}
	return false
}

func chunkPaths(paths []string, batchSize int) [][]string {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	batches := make([][]string, 0, (len(paths)+batchSize-1)/batchSize)
	for startIndex := 0; startIndex < len(paths); startIndex += batchSize {
		endIndex := min(startIndex+batchSize, len(paths))
		batches = append(batches, paths[startIndex:endIndex])
	}
	return batches
}
