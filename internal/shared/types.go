package shared

import (
	"context"
	"io/fs"

	"github.com/temirov/binguard/internal/execshell"
)

// FileSystem exposes the filesystem operations required by repository inspections.
type FileSystem interface {
	Lstat(path string) (fs.FileInfo, error)
	Abs(path string) (string, error)
}

// CommandExecutor exposes the subset of shell execution used by binary artifact detection.
type CommandExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
	ExecuteFile(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}
