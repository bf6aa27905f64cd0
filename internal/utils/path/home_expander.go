package pathutils

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	tildeSymbolConstant             = "~"
	tildeForwardSlashPrefixConstant = "~/"
)

var tildeWithPathSeparatorPrefix = tildeSymbolConstant + string(os.PathSeparator)

// HomeDirectoryProvider resolves the current user's home directory path.
type HomeDirectoryProvider func() (string, error)

// HomeExpander converts user home shortcuts to absolute paths. The home directory is looked up once.
type HomeExpander struct {
	homeDirectoryProvider HomeDirectoryProvider
	homeDirectory         string
	homeDirectoryError    error
	initializationGuard   sync.Once
}

// NewHomeExpander constructs a HomeExpander using the operating system lookup.
func NewHomeExpander() *HomeExpander {
	return NewHomeExpanderWithProvider(os.UserHomeDir)
}

// NewHomeExpanderWithProvider constructs a HomeExpander with a custom provider.
func NewHomeExpanderWithProvider(provider HomeDirectoryProvider) *HomeExpander {
	if provider == nil {
		provider = os.UserHomeDir
	}
	return &HomeExpander{homeDirectoryProvider: provider}
}

// Expand resolves leading tilde prefixes to the user's home directory.
func (expander *HomeExpander) Expand(candidatePath string) string {
	if expander == nil || !strings.HasPrefix(candidatePath, tildeSymbolConstant) {
		return candidatePath
	}

	resolvedHomeDirectory := expander.resolveHomeDirectory()
	if len(resolvedHomeDirectory) == 0 {
		return candidatePath
	}

	if candidatePath == tildeSymbolConstant {
		return resolvedHomeDirectory
	}

	for _, homePrefix := range []string{tildeForwardSlashPrefixConstant, tildeWithPathSeparatorPrefix} {
		if strings.HasPrefix(candidatePath, homePrefix) {
			return filepath.Join(resolvedHomeDirectory, strings.TrimPrefix(candidatePath, homePrefix))
		}
	}

	// "~user" forms are left untouched.
	return candidatePath
}

func (expander *HomeExpander) resolveHomeDirectory() string {
	expander.initializationGuard.Do(func() {
		expander.homeDirectory, expander.homeDirectoryError = expander.homeDirectoryProvider()
	})
	if expander.homeDirectoryError != nil {
		return ""
	}
	return expander.homeDirectory
}
