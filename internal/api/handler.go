// Package api exposes the conversion service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Lllllllleong/pdftomarkdown/internal/models"
)

const (
	ServiceName     = "PDF to Markdown Converter"
	acceptedMessage = "File uploaded successfully. Processing started."
	maxRequestBody  = 1 << 20
)

// Submitter schedules a job for background processing.
type Submitter interface {
	Submit(ctx context.Context, job models.Job) error
}

// Handler serves the conversion endpoints.
type Handler struct {
	jobs Submitter
}

// NewHandler creates a Handler that hands accepted jobs to jobs.
func NewHandler(jobs Submitter) *Handler {
	return &Handler{jobs: jobs}
}

// Convert validates a conversion request, schedules it and acknowledges
// without waiting for the outcome.
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	var req models.ConvertRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		slog.Warn("Could not decode convert request.", "error", err)
		writeError(w, http.StatusBadRequest, "request body must be a JSON object with job_id and file_name")
		return
	}

	job, err := validate(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.jobs.Submit(r.Context(), job); err != nil {
		slog.Error("Failed to schedule job.", "jobId", job.ID, "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Processing failed: %v", err))
		return
	}

	slog.Info("Conversion job accepted.", "jobId", job.ID, "fileName", job.FileName)
	writeJSON(w, http.StatusAccepted, models.ConvertResponse{
		JobID:    req.JobID,
		Filename: req.FileName,
		Status:   string(models.StatusStarted),
		Message:  acceptedMessage,
	})
}

// Health reports that the service is up.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthResponse{Status: "healthy", Service: ServiceName})
}

// validate rejects blank fields and returns the trimmed job.
func validate(req models.ConvertRequest) (models.Job, error) {
	job := models.Job{
		ID:       strings.TrimSpace(req.JobID),
		FileName: strings.TrimSpace(req.FileName),
	}
	if job.ID == "" {
		return models.Job{}, models.ValidationError("job_id is required")
	}
	if job.FileName == "" {
		return models.Job{}, models.ValidationError("file_name is required")
	}
	return job, nil
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, models.ErrorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to write response.", "error", err)
	}
}
