// Package shared declares the collaborator contracts used across binguard packages.
package shared
