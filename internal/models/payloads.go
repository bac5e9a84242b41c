package models

// These structs define the JSON payloads exchanged with callers of the
// conversion service, with the notification receiver, and with the agents
// behind the relay.

// ConvertRequest is the body of POST /convert.
type ConvertRequest struct {
	JobID    string `json:"job_id"`
	FileName string `json:"file_name"`
}

// ConvertResponse acknowledges an accepted conversion request.
type ConvertResponse struct {
	JobID    string `json:"job_id"`
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

// ErrorResponse is returned for rejected requests.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Notification is the status event posted to the notification receiver.
type Notification struct {
	Status   JobStatus `json:"status"`
	JobID    string    `json:"job_id"`
	FileName string    `json:"file_name"`
	Message  string    `json:"message"`
}

// NewNotification builds a notification for job.
func NewNotification(job Job, status JobStatus, message string) Notification {
	return Notification{
		Status:   status,
		JobID:    job.ID,
		FileName: job.FileName,
		Message:  message,
	}
}

// AgentMessage is the body forwarded to a downstream agent.
type AgentMessage struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// WorkflowArgument is the execution argument passed to the completion workflow.
type WorkflowArgument struct {
	JobID        string `json:"jobId"`
	FileName     string `json:"fileName"`
	MarkdownPath string `json:"markdownPath"`
}
