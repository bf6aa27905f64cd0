// Package cli constructs the binguard command-line interface, wiring the
// Cobra command hierarchy, configuration loader, and structured logging
// primitives around the binary-check command.
package cli
