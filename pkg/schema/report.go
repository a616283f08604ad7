package schema

import "time"

// Section names a report section.
type Section string

const (
	SectionSummary    Section = "summary"
	SectionDiagram    Section = "diagram"
	SectionCost       Section = "cost"
	SectionReferences Section = "references"
)

// Sections lists every report section in display order.
var Sections = []Section{SectionSummary, SectionDiagram, SectionCost, SectionReferences}

// ParseSection validates a section name.
func ParseSection(s string) (Section, error) {
	for _, sec := range Sections {
		if string(sec) == s {
			return sec, nil
		}
	}
	return "", NewErrorf(ErrCodeValidation, "unknown report section %q", s)
}

// SectionResult is the UI-facing outcome of one flow: Content or Error, never both.
type SectionResult struct {
	Content  string            `json:"content,omitempty"`
	Error    string            `json:"error,omitempty"`
	Code     string            `json:"code,omitempty"`
	Warnings []ValidationIssue `json:"warnings,omitempty"`
}

// SectionOK wraps successful content.
func SectionOK(content string, warnings ...ValidationIssue) SectionResult {
	return SectionResult{Content: content, Warnings: warnings}
}

// SectionFailed wraps an error, keeping its code when it has one.
func SectionFailed(err error) SectionResult {
	return SectionResult{Error: err.Error(), Code: ErrorCode(err)}
}

// OK reports whether the section produced content.
func (r SectionResult) OK() bool {
	return r.Error == ""
}

// Report is the multi-section synthesis for a session.
type Report struct {
	SessionID    string                            `json:"session_id"`
	Requirements []Requirement                     `json:"requirements"`
	ByType       map[RequirementType][]Requirement `json:"requirements_by_type"`
	Sections     map[Section]SectionResult         `json:"sections"`
	GeneratedAt  time.Time                         `json:"generated_at"`
}
