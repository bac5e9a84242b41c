package models

import "time"

// JobStatus is the status reported in a job notification.
type JobStatus string

const (
	StatusStarted   JobStatus = "started"
	StatusFailed    JobStatus = "failed"
	StatusCompleted JobStatus = "completed"
	StatusError     JobStatus = "error"
)

// Message codes carried by job notifications.
const (
	MessageStarted          = "pdf_to_md"
	MessageFileNotFound     = "pdf_to_md_file_not_found"
	MessageConversionFailed = "pdf_to_md_conversion_failed"
	MessageStorageFailed    = "pdf_to_md_storage_failed"
	MessageDone             = "pdf_to_md_done"
	messageErrorPrefix      = "pdf_to_md_error"
)

// ErrorMessage builds the message code for a job that hit an unexpected error.
func ErrorMessage(err error) string {
	return messageErrorPrefix + ": " + err.Error()
}

// Job is one request to convert a named document. It only lives for the
// duration of background processing.
type Job struct {
	ID       string
	FileName string
}

// SourceName is the file name of the PDF for logicalName in the file store.
func SourceName(logicalName string) string { return logicalName + ".pdf" }

// ResultName is the file name the Markdown for logicalName is written to.
func ResultName(logicalName string) string { return logicalName + ".md" }

// JobRecord is the Firestore mirror of the latest notification for a job.
// The notification receiver remains the system of record.
type JobRecord struct {
	JobID     string    `firestore:"jobId,omitempty"`
	FileName  string    `firestore:"fileName,omitempty"`
	Status    string    `firestore:"status,omitempty"`
	Message   string    `firestore:"message,omitempty"`
	UpdatedAt time.Time `firestore:"updatedAt,omitempty"`
}
