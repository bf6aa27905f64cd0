package filesystem

import (
	"io/fs"
	"os"
	"path/filepath"
)

// OSFileSystem implements shared.FileSystem using the operating system primitives.
type OSFileSystem struct{}

// Lstat retrieves file metadata without following symbolic links.
func (OSFileSystem) Lstat(path string) (fs.FileInfo, error) {
	return os.Lstat(path)
}

// Abs resolves an absolute path.
func (OSFileSystem) Abs(path string) (string, error) {
	return filepath.Abs(path)
}
