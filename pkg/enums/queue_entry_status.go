package enums

import "fmt"

// QueueEntryStatus tracks the lifecycle of a cutting queue slot.
type QueueEntryStatus string

const (
	QueueEntryStatusQueued     QueueEntryStatus = "queued"
	QueueEntryStatusInProgress QueueEntryStatus = "in_progress"
	QueueEntryStatusCompleted  QueueEntryStatus = "completed"
	QueueEntryStatusCancelled  QueueEntryStatus = "cancelled"
)

var validQueueEntryStatuses = []QueueEntryStatus{
	QueueEntryStatusQueued,
	QueueEntryStatusInProgress,
	QueueEntryStatusCompleted,
	QueueEntryStatusCancelled,
}

// String implements fmt.Stringer.
func (s QueueEntryStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known QueueEntryStatus.
func (s QueueEntryStatus) IsValid() bool {
	for _, candidate := range validQueueEntryStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsActive reports whether the entry still occupies a position in the queue.
func (s QueueEntryStatus) IsActive() bool {
	return s == QueueEntryStatusQueued || s == QueueEntryStatusInProgress
}

// IsTerminal reports whether the entry has left the queue for good.
func (s QueueEntryStatus) IsTerminal() bool {
	return s == QueueEntryStatusCompleted || s == QueueEntryStatusCancelled
}

// ParseQueueEntryStatus converts raw input into a QueueEntryStatus.
func ParseQueueEntryStatus(value string) (QueueEntryStatus, error) {
	for _, candidate := range validQueueEntryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid queue entry status %q", value)
}
