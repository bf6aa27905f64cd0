package binaries

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/temirov/binguard/internal/shared"
)

const (
	listerMissingMessageConstant             = "tracked file lister not configured"
	policyMissingMessageConstant             = "binary policy not configured"
	extensionSignatureTemplateConstant       = "extension .%s"
	fileSizeErrorTemplateConstant            = "unable to determine size of %s: %w"
	describeFindingsErrorTemplateConstant    = "unable to describe extension matches: %w"
	contentTypeFilterErrorTemplateConstant   = "unable to classify file contents: %w"
	trackedFilesListedMessageConstant        = "Tracked files listed"
	extensionPhaseCompletedMessageConstant   = "Extension filter completed"
	contentTypePhaseCompletedMessageConstant = "Content-type filter completed"
	detectionCompletedMessageConstant        = "Binary artifact detection completed"
	logFieldRepositoryConstant               = "repository"
	logFieldTrackedCountConstant             = "tracked_files"
	logFieldCandidateCountConstant           = "candidates"
	logFieldMatchedCountConstant             = "matched"
	logFieldInspectedCountConstant           = "inspected"
	logFieldAllowlistedCountConstant         = "allowlisted"
	logFieldViolationCountConstant           = "violations"
)

// ErrTrackedFileListerNotConfigured indicates the lister dependency was missing.
var ErrTrackedFileListerNotConfigured = errors.New(listerMissingMessageConstant)

// ErrPolicyNotConfigured indicates the policy dependency was missing.
var ErrPolicyNotConfigured = errors.New(policyMissingMessageConstant)

// ServiceDependencies enumerates collaborators required by the service.
type ServiceDependencies struct {
	TrackedFileLister TrackedFileLister
	Classifier        TypeClassifier
	FileSystem        shared.FileSystem
	Policy            *Policy
	Logger            *zap.Logger
}

// Options configure a detection run.
type Options struct {
	RepositoryPath string
}

// Service detects binary artifacts among tracked files.
type Service struct {
	lister     TrackedFileLister
	classifier TypeClassifier
	fileSystem shared.FileSystem
	policy     *Policy
	logger     *zap.Logger
}

// NewService constructs a Service from the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.TrackedFileLister == nil {
		return nil, ErrTrackedFileListerNotConfigured
	}
	if dependencies.Classifier == nil {
		return nil, ErrClassifierNotConfigured
	}
	if dependencies.FileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	if dependencies.Policy == nil {
		return nil, ErrPolicyNotConfigured
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		lister:     dependencies.TrackedFileLister,
		classifier: dependencies.Classifier,
		fileSystem: dependencies.FileSystem,
		policy:     dependencies.Policy,
		logger:     logger,
	}, nil
}

// Run classifies every tracked regular file and aggregates the findings.
// Findings keep the order in which git lists the files.
func (service *Service) Run(executionContext context.Context, options Options) (Report, error) {
	repositoryRoot, rootError := service.lister.ResolveRepositoryRoot(executionContext, options.RepositoryPath)
	if rootError != nil {
		return Report{}, rootError
	}

	trackedFiles, listError := service.lister.ListTrackedFiles(executionContext, repositoryRoot)
	if listError != nil {
		return Report{}, listError
	}

	candidatePaths := make([]string, 0, len(trackedFiles))
	for _, trackedFile := range trackedFiles {
		if trackedFile.Candidate() {
			candidatePaths = append(candidatePaths, trackedFile.Path)
		}
	}

	service.logger.Debug(
		trackedFilesListedMessageConstant,
		zap.String(logFieldRepositoryConstant, repositoryRoot),
		zap.Int(logFieldTrackedCountConstant, len(trackedFiles)),
		zap.Int(logFieldCandidateCountConstant, len(candidatePaths)),
	)

	findings := make(map[string]Finding, len(candidatePaths))

	extensionMatchedPaths := make([]string, 0)
	uncheckedPaths := make([]string, 0, len(candidatePaths))
	for _, candidatePath := range candidatePaths {
		if !service.policy.MatchesExtension(candidatePath) {
			uncheckedPaths = append(uncheckedPaths, candidatePath)
			continue
		}
		findings[candidatePath] = service.classify(candidatePath, DetectionPhaseExtension, fmt.Sprintf(extensionSignatureTemplateConstant, extensionOf(candidatePath)))
		extensionMatchedPaths = append(extensionMatchedPaths, candidatePath)
	}

	service.logger.Debug(
		extensionPhaseCompletedMessageConstant,
		zap.Int(logFieldMatchedCountConstant, len(extensionMatchedPaths)),
	)

	if len(uncheckedPaths) > 0 {
		descriptions, classifyError := service.classifier.Classify(executionContext, repositoryRoot, uncheckedPaths)
		if classifyError != nil {
			return Report{}, fmt.Errorf(contentTypeFilterErrorTemplateConstant, classifyError)
		}
		for _, uncheckedPath := range uncheckedPaths {
			description := descriptions[uncheckedPath]
			matchedPattern, matched := service.policy.MatchingPattern(description)
			if !matched {
				continue
			}
			finding := service.classify(uncheckedPath, DetectionPhaseContentType, matchedPattern.Label)
			finding.Description = description
			findings[uncheckedPath] = finding
		}
	}

	service.logger.Debug(
		contentTypePhaseCompletedMessageConstant,
		zap.Int(logFieldInspectedCountConstant, len(uncheckedPaths)),
		zap.Int(logFieldMatchedCountConstant, len(findings)-len(extensionMatchedPaths)),
	)

	if len(extensionMatchedPaths) > 0 {
		descriptions, describeError := service.classifier.Classify(executionContext, repositoryRoot, extensionMatchedPaths)
		if describeError != nil {
			return Report{}, fmt.Errorf(describeFindingsErrorTemplateConstant, describeError)
		}
		for _, matchedPath := range extensionMatchedPaths {
			finding := findings[matchedPath]
			finding.Description = descriptions[matchedPath]
			findings[matchedPath] = finding
		}
	}

	report := Report{
		RepositoryPath:   repositoryRoot,
		TrackedFileCount: len(trackedFiles),
		CandidateCount:   len(candidatePaths),
	}
	for _, candidatePath := range candidatePaths {
		finding, found := findings[candidatePath]
		if !found {
			continue
		}
		fileInfo, statError := service.fileSystem.Lstat(filepath.Join(repositoryRoot, filepath.FromSlash(candidatePath)))
		if statError != nil {
			return Report{}, fmt.Errorf(fileSizeErrorTemplateConstant, candidatePath, statError)
		}
		finding.Size = fileInfo.Size()

		if finding.Classification == ClassificationAllowlisted {
			report.Allowlisted = append(report.Allowlisted, finding)
			continue
		}
		report.Violations = append(report.Violations, finding)
	}

	service.logger.Info(
		detectionCompletedMessageConstant,
		zap.String(logFieldRepositoryConstant, repositoryRoot),
		zap.Int(logFieldTrackedCountConstant, report.TrackedFileCount),
		zap.Int(logFieldCandidateCountConstant, report.CandidateCount),
		zap.Int(logFieldAllowlistedCountConstant, len(report.Allowlisted)),
		zap.Int(logFieldViolationCountConstant, len(report.Violations)),
	)

	return report, nil
}

// classify decides between allowlisted and violation once a file matched a binary signature.
func (service *Service) classify(candidatePath string, phase DetectionPhase, signature string) Finding {
	finding := Finding{
		Path:           candidatePath,
		Classification: ClassificationViolation,
		Phase:          phase,
		Signature:      signature,
	}
	if entry, allowlisted := service.policy.AllowlistEntry(candidatePath); allowlisted {
		finding.Classification = ClassificationAllowlisted
		finding.Temporary = entry.Temporary
		finding.Reason = entry.Reason
	}
	return finding
}
