package binaries

// TrackedFile is a path known to the git index together with its working tree kind.
type TrackedFile struct {
	Path    string
	Regular bool
	Symlink bool
}

// Candidate reports whether the file takes part in classification.
func (trackedFile TrackedFile) Candidate() bool {
	return trackedFile.Regular && !trackedFile.Symlink
}

// Classification is the outcome recorded for a candidate file.
type Classification string

// Classification outcomes.
const (
	ClassificationNotChecked  Classification = "not_checked"
	ClassificationAllowlisted Classification = "allowlisted"
	ClassificationViolation   Classification = "violation"
)

// DetectionPhase names the phase that classified a file.
type DetectionPhase string

// Detection phases.
const (
	DetectionPhaseExtension   DetectionPhase = "extension"
	DetectionPhaseContentType DetectionPhase = "content_type"
)

// Finding describes a file classified as a binary artifact.
type Finding struct {
	Path           string
	Classification Classification
	Phase          DetectionPhase
	Signature      string
	Description    string
	Size           int64
	Temporary      bool
	Reason         string
}

// Report aggregates the outcome of a run.
type Report struct {
	RepositoryPath   string
	TrackedFileCount int
	CandidateCount   int
	Allowlisted      []Finding
	Violations       []Finding
}

// Passed reports whether the run found no violations.
func (report Report) Passed() bool {
	return len(report.Violations) == 0
}
