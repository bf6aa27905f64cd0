// Package flags provides helpers for binding and reading shared Cobra flags.
package flags

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	// RepositoryFlagName exposes the shared repository flag name.
	RepositoryFlagName = "repository"
	// RepositoryFlagShorthand provides the shorthand for the repository flag.
	RepositoryFlagShorthand = "C"
	// RepositoryFlagUsage describes the shared repository flag purpose.
	RepositoryFlagUsage = "Repository working tree to inspect"
	// BatchSizeFlagName exposes the shared batch size flag name.
	BatchSizeFlagName = "batch-size"
	// BatchSizeFlagUsage describes the shared batch size flag purpose.
	BatchSizeFlagUsage = "Number of files passed to each content-type classifier invocation"
)

// ErrFlagNotDefined indicates the requested flag is not registered on the command.
var ErrFlagNotDefined = errors.New("flag not defined")

// FlagDefinition captures a single flag's configuration.
type FlagDefinition struct {
	Name      string
	Shorthand string
	Usage     string
	Enabled   bool
}

// BindStringFlag attaches a string flag to the command's local flag set unless it already exists.
func BindStringFlag(command *cobra.Command, definition FlagDefinition, defaultValue string) {
	flagSet := resolveLocalFlagSet(command, definition)
	if flagSet == nil {
		return
	}
	if len(definition.Shorthand) > 0 {
		flagSet.StringP(definition.Name, definition.Shorthand, defaultValue, definition.Usage)
		return
	}
	flagSet.String(definition.Name, defaultValue, definition.Usage)
}

// BindIntFlag attaches an integer flag to the command's local flag set unless it already exists.
func BindIntFlag(command *cobra.Command, definition FlagDefinition, defaultValue int) {
	flagSet := resolveLocalFlagSet(command, definition)
	if flagSet == nil {
		return
	}
	if len(definition.Shorthand) > 0 {
		flagSet.IntP(definition.Name, definition.Shorthand, defaultValue, definition.Usage)
		return
	}
	flagSet.Int(definition.Name, defaultValue, definition.Usage)
}

// StringFlag reads a string flag and reports whether the user set it explicitly.
func StringFlag(command *cobra.Command, name string) (string, bool, error) {
	flagSet, lookupError := lookupFlagSet(command, name)
	if lookupError != nil {
		return "", false, lookupError
	}
	value, valueError := flagSet.GetString(name)
	if valueError != nil {
		return "", false, valueError
	}
	return value, flagSet.Changed(name), nil
}

// IntFlag reads an integer flag and reports whether the user set it explicitly.
func IntFlag(command *cobra.Command, name string) (int, bool, error) {
	flagSet, lookupError := lookupFlagSet(command, name)
	if lookupError != nil {
		return 0, false, lookupError
	}
	value, valueError := flagSet.GetInt(name)
	if valueError != nil {
		return 0, false, valueError
	}
	return value, flagSet.Changed(name), nil
}

func resolveLocalFlagSet(command *cobra.Command, definition FlagDefinition) *pflag.FlagSet {
	if command == nil || !definition.Enabled || len(definition.Name) == 0 {
		return nil
	}
	flagSet := command.Flags()
	if flagSet.Lookup(definition.Name) != nil {
		return nil
	}
	return flagSet
}

func lookupFlagSet(command *cobra.Command, name string) (*pflag.FlagSet, error) {
	if command == nil {
		return nil, ErrFlagNotDefined
	}
	flagSet := command.Flags()
	if flagSet.Lookup(name) == nil {
		return nil, ErrFlagNotDefined
	}
	return flagSet, nil
}
