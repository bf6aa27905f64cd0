// Package execshell provides structured helpers for invoking external tools.
//
// ShellExecutor wraps a CommandRunner with zap logging, typed failures and
// lifecycle notifications. OSCommandRunner is the os/exec backed runner used in
// production, and binguard relies on it to run git and file(1) in a testable manner.
package execshell
