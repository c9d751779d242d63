package enums

// Severity grades a validation result for callers that surface it.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// String implements fmt.Stringer.
func (s Severity) String() string {
	return string(s)
}
