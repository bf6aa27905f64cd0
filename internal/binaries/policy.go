package binaries

import (
	_ "embed"
	"errors"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	extensionSeparatorConstant                  = "."
	policyDecodeErrorTemplateConstant           = "unable to decode binary policy: %w"
	emptyExtensionMessageConstant               = "binary policy extension must not be empty"
	emptyPatternMessageConstant                 = "binary policy denylist pattern must not be empty"
	invalidPatternErrorTemplateConstant         = "invalid denylist pattern %q: %w"
	emptyAllowlistPathMessageConstant           = "binary policy allowlist path must not be empty"
	duplicateAllowlistPathErrorTemplateConstant = "duplicate allowlist path %q"
)

//go:embed policy.yaml
var embeddedPolicyContent []byte

// ErrEmptyExtension indicates an extension entry was blank.
var ErrEmptyExtension = errors.New(emptyExtensionMessageConstant)

// ErrEmptyPattern indicates a denylist entry carried no pattern.
var ErrEmptyPattern = errors.New(emptyPatternMessageConstant)

// ErrEmptyAllowlistPath indicates an allowlist entry carried no path.
var ErrEmptyAllowlistPath = errors.New(emptyAllowlistPathMessageConstant)

// PolicyDefinition is the declarative form of a Policy as stored in policy.yaml.
type PolicyDefinition struct {
	Extensions []string                    `yaml:"extensions"`
	Denylist   []DenylistPatternDefinition `yaml:"denylist"`
	Allowlist  []AllowlistEntry            `yaml:"allowlist"`
}

// DenylistPatternDefinition names a content-type signature expressed as a regular expression.
type DenylistPatternDefinition struct {
	Label   string `yaml:"label"`
	Pattern string `yaml:"pattern"`
}

// AllowlistEntry exempts a repository path from failing the check.
type AllowlistEntry struct {
	Path      string `yaml:"path"`
	Temporary bool   `yaml:"temporary"`
	Reason    string `yaml:"reason"`
}

// DenylistPattern is a compiled content-type signature.
type DenylistPattern struct {
	Label      string
	expression *regexp.Regexp
}

// Matches reports whether the description carries this signature.
func (pattern DenylistPattern) Matches(description string) bool {
	return pattern.expression.MatchString(description)
}

// String returns the source expression.
func (pattern DenylistPattern) String() string {
	return pattern.expression.String()
}

// Policy is the immutable set of rules a run classifies against.
type Policy struct {
	extensions map[string]struct{}
	denylist   []DenylistPattern
	allowlist  map[string]AllowlistEntry
}

// NewPolicy validates and compiles the definition.
func NewPolicy(definition PolicyDefinition) (*Policy, error) {
	policy := &Policy{
		extensions: make(map[string]struct{}, len(definition.Extensions)),
		denylist:   make([]DenylistPattern, 0, len(definition.Denylist)),
		allowlist:  make(map[string]AllowlistEntry, len(definition.Allowlist)),
	}

	for _, extension := range definition.Extensions {
		normalizedExtension := normalizeExtension(extension)
		if len(normalizedExtension) == 0 {
			return nil, ErrEmptyExtension
		}
		policy.extensions[normalizedExtension] = struct{}{}
	}

	for _, patternDefinition := range definition.Denylist {
		if len(strings.TrimSpace(patternDefinition.Pattern)) == 0 {
			return nil, ErrEmptyPattern
		}
		compiledExpression, compileError := regexp.Compile(patternDefinition.Pattern)
		if compileError != nil {
			return nil, fmt.Errorf(invalidPatternErrorTemplateConstant, patternDefinition.Pattern, compileError)
		}
		label := strings.TrimSpace(patternDefinition.Label)
		if len(label) == 0 {
			label = patternDefinition.Pattern
		}
		policy.denylist = append(policy.denylist, DenylistPattern{Label: label, expression: compiledExpression})
	}

	for _, entry := range definition.Allowlist {
		// Allowlist paths are compared exactly as git reports them.
		if len(entry.Path) == 0 || len(strings.TrimSpace(entry.Path)) == 0 {
			return nil, ErrEmptyAllowlistPath
		}
		if _, exists := policy.allowlist[entry.Path]; exists {
			return nil, fmt.Errorf(duplicateAllowlistPathErrorTemplateConstant, entry.Path)
		}
		entry.Reason = strings.TrimSpace(entry.Reason)
		policy.allowlist[entry.Path] = entry
	}

	return policy, nil
}

// ParsePolicy decodes a YAML policy document and compiles it.
func ParsePolicy(content []byte) (*Policy, error) {
	definition := PolicyDefinition{}
	if decodeError := yaml.Unmarshal(content, &definition); decodeError != nil {
		return nil, fmt.Errorf(policyDecodeErrorTemplateConstant, decodeError)
	}
	return NewPolicy(definition)
}

// LoadEmbeddedPolicy compiles the policy shipped inside the binary.
func LoadEmbeddedPolicy() (*Policy, error) {
	return ParsePolicy(embeddedPolicyContent)
}

// MatchesExtension reports whether the final suffix of the path belongs to the extension set.
func (policy *Policy) MatchesExtension(filePath string) bool {
	extension := extensionOf(filePath)
	if len(extension) == 0 {
		return false
	}
	_, matched := policy.extensions[extension]
	return matched
}

// MatchesDescription reports whether any denylist pattern matches the content-type description.
func (policy *Policy) MatchesDescription(description string) bool {
	_, matched := policy.MatchingPattern(description)
	return matched
}

// MatchingPattern returns the first denylist pattern matching the description.
func (policy *Policy) MatchingPattern(description string) (DenylistPattern, bool) {
	for _, pattern := range policy.denylist {
		if pattern.Matches(description) {
			return pattern, true
		}
	}
	return DenylistPattern{}, false
}

// AllowlistEntry looks up the path with exact, case-sensitive matching.
func (policy *Policy) AllowlistEntry(filePath string) (AllowlistEntry, bool) {
	entry, exists := policy.allowlist[filePath]
	return entry, exists
}

// Extensions returns the sorted extension set.
func (policy *Policy) Extensions() []string {
	extensions := make([]string, 0, len(policy.extensions))
	for extension := range policy.extensions {
		extensions = append(extensions, extension)
	}
	sort.Strings(extensions)
	return extensions
}

// DenylistPatterns returns a copy of the compiled denylist.
func (policy *Policy) DenylistPatterns() []DenylistPattern {
	return append([]DenylistPattern{}, policy.denylist...)
}

// AllowlistEntries returns the allowlist sorted by path.
func (policy *Policy) AllowlistEntries() []AllowlistEntry {
	entries := make([]AllowlistEntry, 0, len(policy.allowlist))
	for _, entry := range policy.allowlist {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(leftIndex int, rightIndex int) bool {
		return entries[leftIndex].Path < entries[rightIndex].Path
	})
	return entries
}

// extensionOf returns the normalized final suffix of a slash-separated path.
func extensionOf(filePath string) string {
	return normalizeExtension(path.Ext(filePath))
}

func normalizeExtension(extension string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(extension), extensionSeparatorConstant))
}
