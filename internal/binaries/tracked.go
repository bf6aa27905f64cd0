package binaries

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/temirov/binguard/internal/execshell"
	"github.com/temirov/binguard/internal/shared"
)

const (
	gitListFilesSubcommandConstant           = "ls-files"
	gitNullTerminatedFlagConstant            = "-z"
	gitRevParseSubcommandConstant            = "rev-parse"
	gitShowTopLevelFlagConstant              = "--show-toplevel"
	gitTerminalPromptEnvironmentNameConstant = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptDisabledValueConstant   = "0"
	trackedPathSeparatorConstant             = "\x00"
	gitListFilesErrorTemplateConstant        = "unable to list tracked files: %w"
	gitTopLevelErrorTemplateConstant         = "unable to resolve repository root for %s: %w"
	trackedFileStatErrorTemplateConstant     = "unable to inspect tracked file %s: %w"
	commandExecutorMissingMessageConstant    = "command executor not configured"
	fileSystemMissingMessageConstant         = "file system not configured"
	repositoryPathRequiredMessageConstant    = "repository path must be provided"
)

// ErrCommandExecutorNotConfigured indicates the command executor dependency was missing.
var ErrCommandExecutorNotConfigured = errors.New(commandExecutorMissingMessageConstant)

// ErrFileSystemNotConfigured indicates the file system dependency was missing.
var ErrFileSystemNotConfigured = errors.New(fileSystemMissingMessageConstant)

// ErrRepositoryPathRequired indicates the repository path option was empty.
var ErrRepositoryPathRequired = errors.New(repositoryPathRequiredMessageConstant)

// TrackedFileLister enumerates version-controlled files.
type TrackedFileLister interface {
	ResolveRepositoryRoot(executionContext context.Context, repositoryPath string) (string, error)
	ListTrackedFiles(executionContext context.Context, repositoryRoot string) ([]TrackedFile, error)
}

// GitTrackedFileLister lists files through git and inspects them with Lstat.
type GitTrackedFileLister struct {
	executor   shared.CommandExecutor
	fileSystem shared.FileSystem
}

// NewGitTrackedFileLister constructs a lister from the provided collaborators.
func NewGitTrackedFileLister(executor shared.CommandExecutor, fileSystem shared.FileSystem) (*GitTrackedFileLister, error) {
	if executor == nil {
		return nil, ErrCommandExecutorNotConfigured
	}
	if fileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	return &GitTrackedFileLister{executor: executor, fileSystem: fileSystem}, nil
}

// ResolveRepositoryRoot returns the top-level directory of the work tree containing repositoryPath.
func (lister *GitTrackedFileLister) ResolveRepositoryRoot(executionContext context.Context, repositoryPath string) (string, error) {
	trimmedRepositoryPath := strings.TrimSpace(repositoryPath)
	if len(trimmedRepositoryPath) == 0 {
		return "", ErrRepositoryPathRequired
	}

	executionResult, executionError := lister.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            []string{gitRevParseSubcommandConstant, gitShowTopLevelFlagConstant},
		WorkingDirectory:     trimmedRepositoryPath,
		EnvironmentVariables: gitEnvironment(),
	})
	if executionError != nil {
		return "", fmt.Errorf(gitTopLevelErrorTemplateConstant, trimmedRepositoryPath, executionError)
	}

	repositoryRoot := strings.TrimSpace(executionResult.StandardOutput)
	if len(repositoryRoot) == 0 {
		return trimmedRepositoryPath, nil
	}
	return filepath.Clean(repositoryRoot), nil
}

// ListTrackedFiles returns tracked files in index order. Paths absent from the work tree are reported as non-regular.
func (lister *GitTrackedFileLister) ListTrackedFiles(executionContext context.Context, repositoryRoot string) ([]TrackedFile, error) {
	trimmedRepositoryRoot := strings.TrimSpace(repositoryRoot)
	if len(trimmedRepositoryRoot) == 0 {
		return nil, ErrRepositoryPathRequired
	}

	executionResult, executionError := lister.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            []string{gitListFilesSubcommandConstant, gitNullTerminatedFlagConstant},
		WorkingDirectory:     trimmedRepositoryRoot,
		EnvironmentVariables: gitEnvironment(),
	})
	if executionError != nil {
		return nil, fmt.Errorf(gitListFilesErrorTemplateConstant, executionError)
	}

	trackedPaths := splitTrackedPaths(executionResult.StandardOutput)
	trackedFiles := make([]TrackedFile, 0, len(trackedPaths))
	for _, trackedPath := range trackedPaths {
		trackedFile, inspectError := lister.inspect(trimmedRepositoryRoot, trackedPath)
		if inspectError != nil {
			return nil, inspectError
		}
		trackedFiles = append(trackedFiles, trackedFile)
	}
	return trackedFiles, nil
}

func (lister *GitTrackedFileLister) inspect(repositoryRoot string, trackedPath string) (TrackedFile, error) {
	trackedFile := TrackedFile{Path: trackedPath}

	fileInfo, statError := lister.fileSystem.Lstat(filepath.Join(repositoryRoot, filepath.FromSlash(trackedPath)))
	if statError != nil {
		if errors.Is(statError, fs.ErrNotExist) {
			return trackedFile, nil
		}
		return TrackedFile{}, fmt.Errorf(trackedFileStatErrorTemplateConstant, trackedPath, statError)
	}

	trackedFile.Symlink = fileInfo.Mode()&fs.ModeSymlink != 0
	trackedFile.Regular = fileInfo.Mode().IsRegular()
	return trackedFile, nil
}

// splitTrackedPaths splits NUL-terminated git output, dropping repeats that unmerged index stages produce.
func splitTrackedPaths(output string) []string {
	rawPaths := strings.Split(output, trackedPathSeparatorConstant)
	trackedPaths := make([]string, 0, len(rawPaths))
	seenPaths := make(map[string]struct{}, len(rawPaths))
	for _, rawPath := range rawPaths {
		if len(rawPath) == 0 {
			continue
		}
		if _, seen := seenPaths[rawPath]; seen {
			continue
		}
		seenPaths[rawPath] = struct{}{}
		trackedPaths = append(trackedPaths, rawPath)
	}
	return trackedPaths
}

func gitEnvironment() map[string]string {
	return map[string]string{gitTerminalPromptEnvironmentNameConstant: gitTerminalPromptDisabledValueConstant}
}
