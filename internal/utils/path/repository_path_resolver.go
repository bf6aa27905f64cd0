package pathutils

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	defaultRepositoryPathConstant          = "."
	absolutePathResolutionTemplateConstant = "unable to resolve repository path %q: %w"
)

// ErrRepositoryPathEmpty indicates the resolver received only whitespace.
var ErrRepositoryPathEmpty = errors.New("repository path must not be empty")

// PathAbsolutizer converts relative paths into absolute ones.
type PathAbsolutizer interface {
	Abs(path string) (string, error)
}

// RepositoryPathResolver turns user supplied repository locations into cleaned absolute paths.
type RepositoryPathResolver struct {
	homeExpander *HomeExpander
	absolutize   func(string) (string, error)
}

// NewRepositoryPathResolver constructs a resolver backed by the operating system home lookup.
func NewRepositoryPathResolver() *RepositoryPathResolver {
	return NewRepositoryPathResolverWithExpander(nil)
}

// NewRepositoryPathResolverWithExpander constructs a resolver that expands "~" through the provided expander.
func NewRepositoryPathResolverWithExpander(homeExpander *HomeExpander) *RepositoryPathResolver {
	if homeExpander == nil {
		homeExpander = NewHomeExpander()
	}
	return &RepositoryPathResolver{homeExpander: homeExpander, absolutize: filepath.Abs}
}

// WithAbsolutizer returns a copy of the resolver that makes paths absolute through absolutizer.
// A nil absolutizer keeps the current behaviour.
func (resolver *RepositoryPathResolver) WithAbsolutizer(absolutizer PathAbsolutizer) *RepositoryPathResolver {
	configured := *resolver
	if absolutizer != nil {
		configured.absolutize = absolutizer.Abs
	}
	return &configured
}

// Resolve picks the first non-blank candidate, expands the home shortcut and makes it absolute.
// With no usable candidate the current directory is used.
func (resolver *RepositoryPathResolver) Resolve(candidatePaths ...string) (string, error) {
	selectedPath := defaultRepositoryPathConstant
	for _, candidatePath := range candidatePaths {
		trimmedCandidate := strings.TrimSpace(candidatePath)
		if len(trimmedCandidate) > 0 {
			selectedPath = trimmedCandidate
			break
		}
	}

	expandedPath := resolver.homeExpander.Expand(selectedPath)
	if len(strings.TrimSpace(expandedPath)) == 0 {
		return "", ErrRepositoryPathEmpty
	}

	absolutePath, absoluteError := resolver.absolutize(expandedPath)
	if absoluteError != nil {
		return "", fmt.Errorf(absolutePathResolutionTemplateConstant, selectedPath, absoluteError)
	}
	return filepath.Clean(absolutePath), nil
}
