package schema

// Event types published on the report event hub.
const (
	EventMessageAdded          = "message_added"
	EventRequirementsExtracted = "requirements_extracted"
	EventReportStarted         = "report_started"
	EventReportCompleted       = "report_completed"
	EventSectionStarted        = "section_started"
	EventSectionCompleted      = "section_completed"
	EventSectionFailed         = "section_failed"
)
