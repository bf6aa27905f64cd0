package binaries

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/temirov/binguard/internal/execshell"
)

const (
	testRepositoryRootConstant  = "/workspace/repo"
	testELFDescriptionConstant  = "ELF 64-bit LSB executable, x86-64, version 1 (SYSV), statically linked"
	testPEDescriptionConstant   = "PE32+ executable (console) x86-64, for MS Windows"
	testDLLDescriptionConstant  = "PE32 executable (DLL) (GUI) Intel 80386, for MS Windows"
	testTextDescriptionConstant = "ASCII text"
)

type fakeRepositoryFile struct {
	path        string
	mode        fs.FileMode
	size        int64
	description string
	missing     bool
}

func regularFile(filePath string, size int64, description string) fakeRepositoryFile {
	return fakeRepositoryFile{path: filePath, size: size, description: description}
}

func symlinkFile(filePath string) fakeRepositoryFile {
	return fakeRepositoryFile{path: filePath, mode: fs.ModeSymlink, size: 12, description: testELFDescriptionConstant}
}

// fakeRepository answers git, file(1) and file system queries for an in-memory work tree.
type fakeRepository struct {
	root              string
	files             []fakeRepositoryFile
	gitError          error
	fileError         error
	gitInvocations    []execshell.CommandDetails
	fileArguments     [][]string
	fileInvocations   [][]string
	fileWorkingFolder []string
	absInvocations    []string
}

func newFakeRepository(files ...fakeRepositoryFile) *fakeRepository {
	return &fakeRepository{root: testRepositoryRootConstant, files: files}
}

func (repository *fakeRepository) ExecuteGit(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	repository.gitInvocations = append(repository.gitInvocations, details)
	if repository.gitError != nil {
		return execshell.ExecutionResult{}, repository.gitError
	}

	switch details.Arguments[0] {
	case gitRevParseSubcommandConstant:
		return execshell.ExecutionResult{StandardOutput: repository.root + "\n"}, nil
	case gitListFilesSubcommandConstant:
		var outputBuilder strings.Builder
		for _, file := range repository.files {
			outputBuilder.WriteString(file.path)
			outputBuilder.WriteString("\x00")
		}
		return execshell.ExecutionResult{StandardOutput: outputBuilder.String()}, nil
	default:
		return execshell.ExecutionResult{}, fmt.Errorf("unexpected git arguments %v", details.Arguments)
	}
}

func (repository *fakeRepository) ExecuteFile(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	if repository.fileError != nil {
		return execshell.ExecutionResult{}, repository.fileError
	}

	operands := []string{}
	for argumentIndex, argument := range details.Arguments {
		if argument == fileArgumentTerminatorConstant {
			operands = append(operands, details.Arguments[argumentIndex+1:]...)
			break
		}
	}
	repository.fileArguments = append(repository.fileArguments, details.Arguments)
	repository.fileInvocations = append(repository.fileInvocations, operands)
	repository.fileWorkingFolder = append(repository.fileWorkingFolder, details.WorkingDirectory)

	var outputBuilder strings.Builder
	for _, operand := range operands {
		description := "cannot open `" + operand + "' (No such file or directory)"
		if file, found := repository.lookup(operand); found && !file.missing {
			description = file.description
		}
		outputBuilder.WriteString(operand + "\x00: " + description + "\n")
	}
	return execshell.ExecutionResult{StandardOutput: outputBuilder.String()}, nil
}

func (repository *fakeRepository) Lstat(filePath string) (fs.FileInfo, error) {
	relativePath := strings.TrimPrefix(filePath, repository.root+"/")
	file, found := repository.lookup(relativePath)
	if !found || file.missing {
		return nil, &fs.PathError{Op: "lstat", Path: filePath, Err: fs.ErrNotExist}
	}
	return fakeFileInfo{name: path.Base(file.path), mode: file.mode, size: file.size}, nil
}

// Abs resolves relative paths against the fake repository root.
func (repository *fakeRepository) Abs(filePath string) (string, error) {
	repository.absInvocations = append(repository.absInvocations, filePath)
	if path.IsAbs(filePath) {
		return filePath, nil
	}
	return path.Join(repository.root, filePath), nil
}

func (repository *fakeRepository) lookup(relativePath string) (fakeRepositoryFile, bool) {
	for _, file := range repository.files {
		if file.path == relativePath {
			return file, true
		}
	}
	return fakeRepositoryFile{}, false
}

type fakeFileInfo struct {
	name string
	mode fs.FileMode
	size int64
}

func (info fakeFileInfo) Name() string       { return info.name }
func (info fakeFileInfo) Size() int64        { return info.size }
func (info fakeFileInfo) Mode() fs.FileMode  { return info.mode }
func (info fakeFileInfo) ModTime() time.Time { return time.Time{} }
func (info fakeFileInfo) IsDir() bool        { return info.mode.IsDir() }
func (info fakeFileInfo) Sys() any           { return nil }

type mockClassifier struct {
	mock.Mock
}

func (classifier *mockClassifier) Classify(executionContext context.Context, repositoryPath string, paths []string) (map[string]string, error) {
	arguments := classifier.Called(executionContext, repositoryPath, paths)
	descriptions, _ := arguments.Get(0).(map[string]string)
	return descriptions, arguments.Error(1)
}

// embeddedPolicyWithAllowlist compiles the shipped policy with extra allowlist entries.
func embeddedPolicyWithAllowlist(testInstance *testing.T, entries ...AllowlistEntry) *Policy {
	testInstance.Helper()
	definition := PolicyDefinition{}
	require.NoError(testInstance, yaml.Unmarshal(embeddedPolicyContent, &definition))
	definition.Allowlist = append(definition.Allowlist, entries...)
	policy, policyError := NewPolicy(definition)
	require.NoError(testInstance, policyError)
	return policy
}
