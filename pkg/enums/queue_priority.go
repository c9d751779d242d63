package enums

import "fmt"

// QueuePriority is a display/sort hint for queue entries. The scheduling
// engine never reorders work based on it.
type QueuePriority string

const (
	QueuePriorityLow    QueuePriority = "low"
	QueuePriorityNormal QueuePriority = "normal"
	QueuePriorityHigh   QueuePriority = "high"
	QueuePriorityUrgent QueuePriority = "urgent"
)

var validQueuePriorities = []QueuePriority{
	QueuePriorityLow,
	QueuePriorityNormal,
	QueuePriorityHigh,
	QueuePriorityUrgent,
}

// IsValid reports whether the value is a known QueuePriority.
func (p QueuePriority) IsValid() bool {
	for _, candidate := range validQueuePriorities {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseQueuePriority converts raw input into a QueuePriority.
func ParseQueuePriority(value string) (QueuePriority, error) {
	for _, candidate := range validQueuePriorities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid queue priority %q", value)
}
