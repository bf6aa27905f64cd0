// Package dependencies resolves default collaborators for command builders.
package dependencies
