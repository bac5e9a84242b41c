package jobs

import "github.com/Lllllllleong/pdftomarkdown/internal/models"

// State is a step of the job state machine.
type State string

const (
	StateStarted    State = "started"
	StateFetching   State = "fetching"
	StateConverting State = "converting"
	StateStoring    State = "storing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateError      State = "error"
)

// Result describes how a job ended and the terminal notification sent for it.
type Result struct {
	State        State
	Notification models.Notification
}

// Outcome is the metrics label for the result: the failure reason for failed
// jobs, otherwise the state.
func (r Result) Outcome() string {
	if r.State != StateFailed {
		return string(r.State)
	}
	switch r.Notification.Message {
	case models.MessageFileNotFound:
		return "file_not_found"
	case models.MessageConversionFailed:
		return "conversion_failed"
	case models.MessageStorageFailed:
		return "storage_failed"
	default:
		return string(r.State)
	}
}
