package dependencies

import (
	"go.uber.org/zap"

	"github.com/temirov/binguard/internal/execshell"
	"github.com/temirov/binguard/internal/filesystem"
	"github.com/temirov/binguard/internal/shared"
	"github.com/temirov/binguard/internal/ui"
)

// ResolveFileSystem returns the provided filesystem or an OS-backed default.
func ResolveFileSystem(existing shared.FileSystem) shared.FileSystem {
	if existing != nil {
		return existing
	}
	return filesystem.OSFileSystem{}
}

// ResolveCommandExecutor returns the provided executor or constructs a shell-backed default.
// Human-readable logging routes command lifecycle events to the console logger.
func ResolveCommandExecutor(existing shared.CommandExecutor, logger *zap.Logger, humanReadableLogging bool) (shared.CommandExecutor, error) {
	if existing != nil {
		return existing, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	executorOptions := []execshell.ShellExecutorOption{}
	if humanReadableLogging {
		executorOptions = append(executorOptions, execshell.WithCommandEventObserver(ui.NewConsoleCommandEventLogger(logger)))
	}

	shellExecutor, creationError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner(), executorOptions...)
	if creationError != nil {
		return nil, creationError
	}
	return shellExecutor, nil
}
