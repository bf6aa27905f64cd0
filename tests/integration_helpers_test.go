package tests

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	integrationBinaryNameConstant        = "binguard"
	integrationGitExecutableNameConstant = "git"
	integrationBuildTimeoutConstant      = 2 * time.Minute
	integrationCommandTimeoutConstant    = 30 * time.Second
	integrationStubDirectoryNameConstant = "stub-bin"
	integrationFileStubNameConstant      = "file"
	// Reports ELF for files whose first bytes carry the ELF magic and plain text otherwise.
	integrationFileStubScriptConstant = `#!/bin/sh
for argument in "$@"; do
	case "$argument" in
		--*|-E) continue ;;
	esac
	if head -c 4 "$argument" | grep -q ELF; then
		printf '%s\000: %s\n' "$argument" "ELF 64-bit LSB executable, x86-64, version 1 (SYSV), statically linked"
	else
		printf '%s\000: %s\n' "$argument" "ASCII text"
	fi
done
`
)

type integrationResult struct {
	output   string
	exitCode int
}

func requireGitAvailable(testInstance *testing.T) {
	testInstance.Helper()
	if _, lookupError := exec.LookPath(integrationGitExecutableNameConstant); lookupError != nil {
		testInstance.Skip("git executable not available")
	}
}

func repositoryRootDirectory(testInstance *testing.T) string {
	testInstance.Helper()
	currentWorkingDirectory, workingDirectoryError := os.Getwd()
	require.NoError(testInstance, workingDirectoryError)
	return filepath.Dir(currentWorkingDirectory)
}

func buildIntegrationBinary(testInstance *testing.T) string {
	testInstance.Helper()

	binaryPath := filepath.Join(testInstance.TempDir(), integrationBinaryNameConstant)
	executionContext, cancelFunction := context.WithTimeout(context.Background(), integrationBuildTimeoutConstant)
	defer cancelFunction()

	command := exec.CommandContext(executionContext, "go", "build", "-o", binaryPath, ".")
	command.Dir = repositoryRootDirectory(testInstance)
	outputBytes, buildError := command.CombinedOutput()
	requireNoError(testInstance, buildError, string(outputBytes))
	return binaryPath
}

// installFileStub places a deterministic file(1) replacement ahead of the system one and returns the PATH value.
func installFileStub(testInstance *testing.T) string {
	testInstance.Helper()

	stubDirectory := filepath.Join(testInstance.TempDir(), integrationStubDirectoryNameConstant)
	require.NoError(testInstance, os.Mkdir(stubDirectory, 0o755))
	stubPath := filepath.Join(stubDirectory, integrationFileStubNameConstant)
	require.NoError(testInstance, os.WriteFile(stubPath, []byte(integrationFileStubScriptConstant), 0o755))

	return stubDirectory + string(os.PathListSeparator) + os.Getenv("PATH")
}

func runIntegrationBinary(testInstance *testing.T, binaryPath string, workingDirectory string, environmentOverrides []string, arguments ...string) integrationResult {
	testInstance.Helper()

	executionContext, cancelFunction := context.WithTimeout(context.Background(), integrationCommandTimeoutConstant)
	defer cancelFunction()

	command := exec.CommandContext(executionContext, binaryPath, arguments...)
	command.Dir = workingDirectory
	command.Env = append(append([]string{}, os.Environ()...), environmentOverrides...)

	outputBytes, runError := command.CombinedOutput()
	result := integrationResult{output: string(outputBytes)}
	if runError != nil {
		var exitError *exec.ExitError
		require.True(testInstance, errors.As(runError, &exitError), "%v\n%s", runError, result.output)
		result.exitCode = exitError.ExitCode()
	}
	return result
}

func initializeRepository(testInstance *testing.T) string {
	testInstance.Helper()

	repositoryPath := filepath.Join(testInstance.TempDir(), "checkout")
	runGitCommand(testInstance, "", "init", "--quiet", repositoryPath)
	return repositoryPath
}

func commitFiles(testInstance *testing.T, repositoryPath string, files map[string]string) {
	testInstance.Helper()

	for relativePath, contents := range files {
		writeFile(testInstance, filepath.Join(repositoryPath, filepath.FromSlash(relativePath)), contents)
		runGitCommand(testInstance, repositoryPath, "add", "--", relativePath)
	}
	runGitCommand(testInstance, repositoryPath, "commit", "--quiet", "--allow-empty", "-m", "fixture")
}

func writeFile(testInstance *testing.T, filePath string, contents string) {
	testInstance.Helper()
	require.NoError(testInstance, os.MkdirAll(filepath.Dir(filePath), 0o755))
	require.NoError(testInstance, os.WriteFile(filePath, []byte(contents), 0o644))
}

func runGitCommand(testInstance *testing.T, workingDirectory string, arguments ...string) string {
	testInstance.Helper()

	executionContext, cancelFunction := context.WithTimeout(context.Background(), integrationCommandTimeoutConstant)
	defer cancelFunction()

	command := exec.CommandContext(executionContext, integrationGitExecutableNameConstant, arguments...)
	if len(workingDirectory) > 0 {
		command.Dir = workingDirectory
	}

	outputBytes, commandError := command.CombinedOutput()
	requireNoError(testInstance, commandError, string(outputBytes))
	return string(outputBytes)
}

func filterStructuredOutput(rawOutput string) string {
	lines := strings.Split(rawOutput, "\n")
	var filtered []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}
		if strings.HasPrefix(trimmed, "{") {
			continue
		}
		filtered = append(filtered, line)
	}
	if len(filtered) == 0 {
		return ""
	}
	return strings.Join(filtered, "\n") + "\n"
}

func requireNoError(testInstance *testing.T, err error, output string) {
	testInstance.Helper()
	if err != nil {
		testInstance.Fatalf("command failed: %v\n%s", err, output)
	}
}
