package binaries

import (
	"context"
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestService(testInstance *testing.T, repository *fakeRepository, classifier TypeClassifier, policy *Policy) *Service {
	testInstance.Helper()
	lister, listerError := NewGitTrackedFileLister(repository, repository)
	require.NoError(testInstance, listerError)
	if classifier == nil {
		fileCommandClassifier, classifierError := NewFileCommandClassifier(repository, 2)
		require.NoError(testInstance, classifierError)
		classifier = fileCommandClassifier
	}
	service, serviceError := NewService(ServiceDependencies{
		TrackedFileLister: lister,
		Classifier:        classifier,
		FileSystem:        repository,
		Policy:            policy,
	})
	require.NoError(testInstance, serviceError)
	return service
}

func findingPaths(findings []Finding) []string {
	paths := make([]string, 0, len(findings))
	for _, finding := range findings {
		paths = append(paths, finding.Path)
	}
	return paths
}

func TestNewServiceValidatesDependencies(testInstance *testing.T) {
	repository := newFakeRepository()
	lister, listerError := NewGitTrackedFileLister(repository, repository)
	require.NoError(testInstance, listerError)
	policy := embeddedPolicyWithAllowlist(testInstance)

	testCases := []struct {
		name          string
		dependencies  ServiceDependencies
		expectedError error
	}{
		{name: "missing_lister", dependencies: ServiceDependencies{Classifier: &mockClassifier{}, FileSystem: repository, Policy: policy}, expectedError: ErrTrackedFileListerNotConfigured},
		{name: "missing_classifier", dependencies: ServiceDependencies{TrackedFileLister: lister, FileSystem: repository, Policy: policy}, expectedError: ErrClassifierNotConfigured},
		{name: "missing_file_system", dependencies: ServiceDependencies{TrackedFileLister: lister, Classifier: &mockClassifier{}, Policy: policy}, expectedError: ErrFileSystemNotConfigured},
		{name: "missing_policy", dependencies: ServiceDependencies{TrackedFileLister: lister, Classifier: &mockClassifier{}, FileSystem: repository}, expectedError: ErrPolicyNotConfigured},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			service, serviceError := NewService(testCase.dependencies)
			require.ErrorIs(testInstance, serviceError, testCase.expectedError)
			require.Nil(testInstance, service)
		})
	}
}

func TestServiceScenarioExtensionViolation(testInstance *testing.T) {
	repository := newFakeRepository(
		regularFile("readme.md", 120, testTextDescriptionConstant),
		regularFile("tool.exe", 2048, testPEDescriptionConstant),
	)
	classifier := &mockClassifier{}
	classifier.On("Classify", mock.Anything, testRepositoryRootConstant, []string{"readme.md"}).Return(map[string]string{"readme.md": testTextDescriptionConstant}, nil).Once()
	classifier.On("Classify", mock.Anything, testRepositoryRootConstant, []string{"tool.exe"}).Return(map[string]string{"tool.exe": testPEDescriptionConstant}, nil).Once()

	service := newTestService(testInstance, repository, classifier, embeddedPolicyWithAllowlist(testInstance))

	report, runError := service.Run(context.Background(), Options{RepositoryPath: testRepositoryRootConstant})
	require.NoError(testInstance, runError)
	classifier.AssertExpectations(testInstance)

	require.False(testInstance, report.Passed())
	require.Empty(testInstance, report.Allowlisted)
	require.Equal(testInstance, []Finding{{
		Path:           "tool.exe",
		Classification: ClassificationViolation,
		Phase:          DetectionPhaseExtension,
		Signature:      "extension .exe",
		Description:    testPEDescriptionConstant,
		Size:           2048,
	}}, report.Violations)
	require.Equal(testInstance, 2, report.TrackedFileCount)
	require.Equal(testInstance, 2, report.CandidateCount)
	require.Equal(testInstance, testRepositoryRootConstant, report.RepositoryPath)
}

func TestServiceScenarioAllowlistedExtension(testInstance *testing.T) {
	repository := newFakeRepository(regularFile("lib.dll", 4096, testDLLDescriptionConstant))
	policy := embeddedPolicyWithAllowlist(testInstance, AllowlistEntry{Path: "lib.dll", Temporary: true, Reason: "vendor SDK"})
	service := newTestService(testInstance, repository, nil, policy)

	report, runError := service.Run(context.Background(), Options{RepositoryPath: testRepositoryRootConstant})
	require.NoError(testInstance, runError)

	require.True(testInstance, report.Passed())
	require.Empty(testInstance, report.Violations)
	require.Equal(testInstance, []Finding{{
		Path:           "lib.dll",
		Classification: ClassificationAllowlisted,
		Phase:          DetectionPhaseExtension,
		Signature:      "extension .dll",
		Description:    testDLLDescriptionConstant,
		Size:           4096,
		Temporary:      true,
		Reason:         "vendor SDK",
	}}, report.Allowlisted)
}

func TestServiceScenarioCleanTextFile(testInstance *testing.T) {
	repository := newFakeRepository(regularFile("script.py", 64, testTextDescriptionConstant))
	service := newTestService(testInstance, repository, nil, embeddedPolicyWithAllowlist(testInstance))

	report, runError := service.Run(context.Background(), Options{RepositoryPath: testRepositoryRootConstant})
	require.NoError(testInstance, runError)

	require.True(testInstance, report.Passed())
	require.Empty(testInstance, report.Allowlisted)
	require.Empty(testInstance, report.Violations)
	require.Equal(testInstance, [][]string{{"script.py"}}, repository.fileInvocations)
}

func TestServiceScenarioContentTypeViolation(testInstance *testing.T) {
	repository := newFakeRepository(regularFile("data.bin", 1<<20, testELFDescriptionConstant))
	service := newTestService(testInstance, repository, nil, embeddedPolicyWithAllowlist(testInstance))

	report, runError := service.Run(context.Background(), Options{RepositoryPath: testRepositoryRootConstant})
	require.NoError(testInstance, runError)

	require.False(testInstance, report.Passed())
	require.Equal(testInstance, []Finding{{
		Path:           "data.bin",
		Classification: ClassificationViolation,
		Phase:          DetectionPhaseContentType,
		Signature:      "ELF binary",
		Description:    testELFDescriptionConstant,
		Size:           1 << 20,
	}}, report.Violations)
}

func TestServiceClassificationInvariants(testInstance *testing.T) {
	repository := newFakeRepository(
		regularFile("README.md", 10, testTextDescriptionConstant),
		regularFile("build/app.EXE", 30, testPEDescriptionConstant),
		symlinkFile("bin/linked.so"),
		symlinkFile("bin/linked-elf"),
		fakeRepositoryFile{path: "third_party/sub", mode: fs.ModeDir | 0o755},
		fakeRepositoryFile{path: "deleted.dll", missing: true},
		regularFile("assets/logo.png", 40, "PNG image data, 16 x 16, 8-bit/color RGBA, non-interlaced"),
		regularFile("third_party/protoc", 50, testELFDescriptionConstant),
		regularFile("vendor/libz.a", 60, "current ar archive"),
		regularFile("notes.txt", 70, "ASCII text, with no line terminators"),
		regularFile("tools/helper.so", 80, "ELF 64-bit LSB shared object, x86-64"),
	)
	policy := embeddedPolicyWithAllowlist(testInstance,
		AllowlistEntry{Path: "third_party/protoc", Temporary: true},
		AllowlistEntry{Path: "vendor/libz.a"},
		AllowlistEntry{Path: "README.md"},
		AllowlistEntry{Path: "bin/linked.so"},
	)
	service := newTestService(testInstance, repository, nil, policy)

	report, runError := service.Run(context.Background(), Options{RepositoryPath: testRepositoryRootConstant})
	require.NoError(testInstance, runError)

	require.Equal(testInstance, []string{"third_party/protoc", "vendor/libz.a"}, findingPaths(report.Allowlisted))
	require.Equal(testInstance, []string{"build/app.EXE", "tools/helper.so"}, findingPaths(report.Violations))
	require.Equal(testInstance, 11, report.TrackedFileCount)
	require.Equal(testInstance, 7, report.CandidateCount)

	classifiedPaths := map[string]Classification{}
	for _, finding := range append(append([]Finding{}, report.Allowlisted...), report.Violations...) {
		_, duplicate := classifiedPaths[finding.Path]
		require.False(testInstance, duplicate, finding.Path)
		classifiedPaths[finding.Path] = finding.Classification

		_, allowlisted := policy.AllowlistEntry(finding.Path)
		require.Equal(testInstance, finding.Classification == ClassificationAllowlisted, allowlisted, finding.Path)
		require.True(testInstance, policy.MatchesExtension(finding.Path) || policy.MatchesDescription(finding.Description), finding.Path)
	}

	for _, excludedPath := range []string{"bin/linked.so", "bin/linked-elf", "third_party/sub", "deleted.dll"} {
		require.NotContains(testInstance, classifiedPaths, excludedPath)
		for _, invocation := range repository.fileInvocations {
			require.NotContains(testInstance, invocation, excludedPath)
		}
	}
}

func TestServiceRunIsIdempotent(testInstance *testing.T) {
	repository := newFakeRepository(
		regularFile("a.jar", 10, "Java archive data (JAR)"),
		regularFile("b.txt", 20, testTextDescriptionConstant),
		regularFile("c", 30, testELFDescriptionConstant),
	)
	service := newTestService(testInstance, repository, nil, embeddedPolicyWithAllowlist(testInstance, AllowlistEntry{Path: "c"}))

	firstReport, firstError := service.Run(context.Background(), Options{RepositoryPath: testRepositoryRootConstant})
	require.NoError(testInstance, firstError)
	secondReport, secondError := service.Run(context.Background(), Options{RepositoryPath: testRepositoryRootConstant})
	require.NoError(testInstance, secondError)

	require.Equal(testInstance, firstReport, secondReport)
	require.Equal(testInstance, firstReport.Passed(), secondReport.Passed())
}

func TestServicePropagatesClassifierFailures(testInstance *testing.T) {
	classifierFailure := errors.New("file: command not found")

	testCases := []struct {
		name         string
		files        []fakeRepositoryFile
		expectedText string
	}{
		{
			name:         "content_type_phase",
			files:        []fakeRepositoryFile{regularFile("data.bin", 1, testELFDescriptionConstant)},
			expectedText: "unable to classify file contents",
		},
		{
			name:         "extension_description",
			files:        []fakeRepositoryFile{regularFile("tool.exe", 1, testPEDescriptionConstant)},
			expectedText: "unable to describe extension matches",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			classifier := &mockClassifier{}
			classifier.On("Classify", mock.Anything, testRepositoryRootConstant, mock.Anything).Return(nil, classifierFailure)

			service := newTestService(testInstance, newFakeRepository(testCase.files...), classifier, embeddedPolicyWithAllowlist(testInstance))

			report, runError := service.Run(context.Background(), Options{RepositoryPath: testRepositoryRootConstant})
			require.ErrorIs(testInstance, runError, classifierFailure)
			require.ErrorContains(testInstance, runError, testCase.expectedText)
			require.Equal(testInstance, Report{}, report)
		})
	}
}

func TestServiceFailsOnUnreadableFiles(testInstance *testing.T) {
	for _, description := range []string{
		"regular file, no read permission",
		"writable, regular file, no read permission",
		"ERROR: cannot read `blob.dat' (Input/output error)",
	} {
		testInstance.Run(description, func(testInstance *testing.T) {
			repository := newFakeRepository(
				regularFile("README.md", 12, testTextDescriptionConstant),
				regularFile("blob.dat", 1<<20, description),
			)
			service := newTestService(testInstance, repository, nil, embeddedPolicyWithAllowlist(testInstance))

			report, runError := service.Run(context.Background(), Options{RepositoryPath: testRepositoryRootConstant})
			require.ErrorIs(testInstance, runError, ErrUnreadableFile)
			require.Equal(testInstance, Report{}, report)
		})
	}
}

func TestServicePropagatesListingFailures(testInstance *testing.T) {
	listingFailure := errors.New("fatal: not a git repository")
	repository := newFakeRepository(regularFile("a.exe", 1, testPEDescriptionConstant))
	repository.gitError = listingFailure
	service := newTestService(testInstance, repository, &mockClassifier{}, embeddedPolicyWithAllowlist(testInstance))

	_, runError := service.Run(context.Background(), Options{RepositoryPath: testRepositoryRootConstant})
	require.ErrorIs(testInstance, runError, listingFailure)
}

func TestServiceLogsDetectionSummary(testInstance *testing.T) {
	observerCore, observedLogs := observer.New(zapcore.DebugLevel)
	repository := newFakeRepository(regularFile("tool.exe", 1, testPEDescriptionConstant), regularFile("a.txt", 1, testTextDescriptionConstant))
	lister, listerError := NewGitTrackedFileLister(repository, repository)
	require.NoError(testInstance, listerError)
	classifier, classifierError := NewFileCommandClassifier(repository, DefaultBatchSize)
	require.NoError(testInstance, classifierError)
	service, serviceError := NewService(ServiceDependencies{
		TrackedFileLister: lister,
		Classifier:        classifier,
		FileSystem:        repository,
		Policy:            embeddedPolicyWithAllowlist(testInstance),
		Logger:            zap.New(observerCore),
	})
	require.NoError(testInstance, serviceError)

	_, runError := service.Run(context.Background(), Options{RepositoryPath: testRepositoryRootConstant})
	require.NoError(testInstance, runError)

	summaryEntries := observedLogs.FilterMessage(detectionCompletedMessageConstant).All()
	require.Len(testInstance, summaryEntries, 1)
	require.Equal(testInstance, zapcore.InfoLevel, summaryEntries[0].Level)
	require.Equal(testInstance, int64(1), summaryEntries[0].ContextMap()[logFieldViolationCountConstant])
	require.Equal(testInstance, int64(0), summaryEntries[0].ContextMap()[logFieldAllowlistedCountConstant])
	require.Len(testInstance, observedLogs.FilterMessage(extensionPhaseCompletedMessageConstant).All(), 1)
	require.Len(testInstance, observedLogs.FilterMessage(contentTypePhaseCompletedMessageConstant).All(), 1)
}
