// Package ui provides helpers for formatting human-readable console output.
//
// Command lifecycle events are rendered as short sentences on the console
// logger while the execshell executor keeps emitting structured diagnostics.
package ui
