package binaries

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/temirov/binguard/internal/shared"
)

const (
	// PolicyFilePath is the repository location of the compiled-in policy document.
	PolicyFilePath = "internal/binaries/policy.yaml"

	summaryTemplateConstant               = "Inspected %d of %d tracked file(s) in %s\n"
	allowlistedHeaderTemplateConstant     = "WARNING: %d allowlisted binary artifact(s) are tracked:\n"
	violationsHeaderTemplateConstant      = "ERROR: %d binary artifact(s) must not be committed:\n"
	findingLineTemplateConstant           = "  - %s: %s (%s)%s\n"
	findingAnnotationsTemplateConstant    = " [%s]"
	temporaryAnnotationConstant           = "temporary"
	reasonAnnotationTemplateConstant      = "reason: %s"
	annotationSeparatorConstant           = ", "
	unknownDescriptionConstant            = "unknown content type"
	remediationHeaderConstant             = "Remediation:\n"
	removalInstructionsConstant           = "  Remove the artifacts from version control (run from the repository root):\n"
	removalCommandTemplateConstant        = "    git rm -- %s\n"
	allowlistInstructionsTemplateConstant = "  If a file is a false positive or must stay for now, add an allowlist entry to %s:\n"
	allowlistSnippetHeaderConstant        = "    allowlist:\n"
	allowlistSnippetEntryTemplateConstant = "      - path: %s\n        temporary: true\n        reason: <why the file is needed and when it will be removed>\n"
	successTemplateConstant               = "OK: no binary artifacts detected (0 violations, %d allowlisted)\n"
	shellSingleQuoteConstant              = "'"
	shellEscapedSingleQuoteConstant       = `'\''`
)

var (
	shellSafePathPattern   = regexp.MustCompile(`^[A-Za-z0-9@%_+=:,./-]+$`)
	yamlPlainScalarPattern = regexp.MustCompile(`^[A-Za-z0-9_./][A-Za-z0-9_+=,./-]*$`)
)

// ReportPrinter renders a Report as human-readable text.
type ReportPrinter struct {
	reporter       shared.Reporter
	policyFilePath string
}

// NewReportPrinter constructs a printer writing through the reporter.
func NewReportPrinter(reporter shared.Reporter) *ReportPrinter {
	if reporter == nil {
		reporter = shared.NewWriterReporter(nil)
	}
	return &ReportPrinter{reporter: reporter, policyFilePath: PolicyFilePath}
}

// Print writes the summary, the allowlisted warnings and either the violations with remediation or the success line.
func (printer *ReportPrinter) Print(report Report) {
	printer.reporter.Printf(summaryTemplateConstant, report.CandidateCount, report.TrackedFileCount, report.RepositoryPath)

	if len(report.Allowlisted) > 0 {
		printer.reporter.Printf(allowlistedHeaderTemplateConstant, len(report.Allowlisted))
		printer.printFindings(report.Allowlisted)
	}

	if report.Passed() {
		printer.reporter.Printf(successTemplateConstant, len(report.Allowlisted))
		return
	}

	printer.reporter.Printf(violationsHeaderTemplateConstant, len(report.Violations))
	printer.printFindings(report.Violations)

	printer.reporter.Printf(remediationHeaderConstant)
	printer.reporter.Printf(removalInstructionsConstant)
	for _, violation := range report.Violations {
		printer.reporter.Printf(removalCommandTemplateConstant, quoteShellArgument(violation.Path))
	}
	printer.reporter.Printf(allowlistInstructionsTemplateConstant, printer.policyFilePath)
	printer.reporter.Printf(allowlistSnippetHeaderConstant)
	for _, violation := range report.Violations {
		printer.reporter.Printf(allowlistSnippetEntryTemplateConstant, quoteYAMLScalar(violation.Path))
	}
}

func (printer *ReportPrinter) printFindings(findings []Finding) {
	for _, finding := range findings {
		description := strings.TrimSpace(finding.Description)
		if len(description) == 0 {
			description = unknownDescriptionConstant
		}
		printer.reporter.Printf(findingLineTemplateConstant, finding.Path, description, humanize.IBytes(uint64(max(finding.Size, 0))), formatAnnotations(finding))
	}
}

func formatAnnotations(finding Finding) string {
	annotations := make([]string, 0, 2)
	if finding.Temporary {
		annotations = append(annotations, temporaryAnnotationConstant)
	}
	if len(finding.Reason) > 0 {
		annotations = append(annotations, fmt.Sprintf(reasonAnnotationTemplateConstant, finding.Reason))
	}
	if len(annotations) == 0 {
		return ""
	}
	return fmt.Sprintf(findingAnnotationsTemplateConstant, strings.Join(annotations, annotationSeparatorConstant))
}

func quoteShellArgument(argument string) string {
	if shellSafePathPattern.MatchString(argument) {
		return argument
	}
	return shellSingleQuoteConstant + strings.ReplaceAll(argument, shellSingleQuoteConstant, shellEscapedSingleQuoteConstant) + shellSingleQuoteConstant
}

func quoteYAMLScalar(value string) string {
	if yamlPlainScalarPattern.MatchString(value) {
		return value
	}
	return fmt.Sprintf("%q", value)
}
