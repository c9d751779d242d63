package enums

import "fmt"

// ProjectStatus tracks the lifecycle of a production project.
type ProjectStatus string

const (
	ProjectStatusRequest          ProjectStatus = "request"
	ProjectStatusQuoteAndApproval ProjectStatus = "quote_and_approval"
	ProjectStatusApprovedPOP      ProjectStatus = "approved_pop"
	ProjectStatusQueued           ProjectStatus = "queued"
	ProjectStatusInProgress       ProjectStatus = "in_progress"
	ProjectStatusCompleted        ProjectStatus = "completed"
	ProjectStatusCancelled        ProjectStatus = "cancelled"
)

var validProjectStatuses = []ProjectStatus{
	ProjectStatusRequest,
	ProjectStatusQuoteAndApproval,
	ProjectStatusApprovedPOP,
	ProjectStatusQueued,
	ProjectStatusInProgress,
	ProjectStatusCompleted,
	ProjectStatusCancelled,
}

// String implements fmt.Stringer.
func (s ProjectStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ProjectStatus.
func (s ProjectStatus) IsValid() bool {
	for _, candidate := range validProjectStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the project can no longer change state.
func (s ProjectStatus) IsTerminal() bool {
	return s == ProjectStatusCompleted || s == ProjectStatusCancelled
}

// ParseProjectStatus converts raw input into a ProjectStatus.
func ParseProjectStatus(value string) (ProjectStatus, error) {
	for _, candidate := range validProjectStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid project status %q", value)
}
