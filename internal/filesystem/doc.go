// Package filesystem adapts operating system file primitives to the shared.FileSystem contract.
package filesystem
