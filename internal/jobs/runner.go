// Package jobs runs PDF to Markdown conversion jobs in the background.
//
// A job moves through fetch, convert and store, sending a started
// notification on entry and exactly one terminal notification on exit. The
// pipeline never retries: the first failing step ends the job with a reason
// code. The temporary copy of the source document is removed on every exit
// path, including panics.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/Lllllllleong/pdftomarkdown/internal/converter"
	"github.com/Lllllllleong/pdftomarkdown/internal/filestore"
	"github.com/Lllllllleong/pdftomarkdown/internal/models"
	"github.com/Lllllllleong/pdftomarkdown/internal/notify"
)

// Runner drives a single job through the state machine.
type Runner struct {
	store     filestore.Store
	converter converter.Converter
	notifier  notify.Notifier
	metrics   *Metrics
}

// NewRunner creates a Runner. metrics may be nil.
func NewRunner(store filestore.Store, conv converter.Converter, notifier notify.Notifier, metrics *Metrics) *Runner {
	return &Runner{
		store:     store,
		converter: conv,
		notifier:  notifier,
		metrics:   metrics,
	}
}

// Run processes job to a terminal state. It never panics and never returns
// an error; the outcome is reported through the notifier.
func (r *Runner) Run(ctx context.Context, job models.Job) (res Result) {
	logCtx := slog.With("jobId", job.ID, "fileName", job.FileName)
	started := time.Now()
	r.metrics.jobStarted()

	var tempPath string
	state := StateStarted
	terminalSent := false

	defer func() {
		rec := recover()
		removeTemp(logCtx, tempPath)
		if rec != nil {
			err := fmt.Errorf("panic while %s: %v", state, rec)
			logCtx.Error("Unexpected panic while processing job.", "error", err, "stack", string(debug.Stack()))
			res = Result{State: StateError, Notification: models.NewNotification(job, models.StatusError, models.ErrorMessage(err))}
			if !terminalSent {
				r.notifyRecovering(ctx, logCtx, res.Notification)
			}
		}
		elapsed := time.Since(started)
		r.metrics.jobFinished(res, elapsed)
		logCtx.Info("Job finished.", "state", res.State, "message", res.Notification.Message, "duration", elapsed)
	}()

	finish := func(final State, status models.JobStatus, message string) Result {
		n := models.NewNotification(job, status, message)
		terminalSent = true
		r.notifier.Notify(ctx, n)
		return Result{State: final, Notification: n}
	}

	r.notifier.Notify(ctx, models.NewNotification(job, models.StatusStarted, models.MessageStarted))

	state = StateFetching
	fetched := r.store.Fetch(ctx, job.FileName)
	tempPath = fetched.Path
	if !fetched.Found() {
		logCtx.Warn("Job failed - PDF file not found.", "outcome", fetched.Outcome, "error", fetched.Error())
		return finish(StateFailed, models.StatusFailed, models.MessageFileNotFound)
	}

	state = StateConverting
	markdown, err := r.converter.Convert(ctx, tempPath)
	if err != nil {
		logCtx.Error("Error processing job.", "state", state, "error", err)
		return finish(StateError, models.StatusError, models.ErrorMessage(err))
	}
	if strings.TrimSpace(markdown) == "" {
		logCtx.Warn("Job failed during conversion - no content extracted.")
		return finish(StateFailed, models.StatusFailed, models.MessageConversionFailed)
	}

	state = StateStoring
	stored := r.store.Put(ctx, job.FileName, []byte(markdown))
	if !stored.OK() {
		logCtx.Warn("Job failed during storage.", "outcome", stored.Outcome, "error", stored.Error())
		return finish(StateFailed, models.StatusFailed, models.MessageStorageFailed)
	}

	logCtx.Info("Job completed successfully.", "bytes", len(markdown))
	return finish(StateCompleted, models.StatusCompleted, models.MessageDone)
}

// notifyRecovering sends n from the panic path; a second panic from the
// notifier is logged and dropped.
func (r *Runner) notifyRecovering(ctx context.Context, logCtx *slog.Logger, n models.Notification) {
	defer func() {
		if rec := recover(); rec != nil {
			logCtx.Error("Notifier panicked while reporting job error.", "status", n.Status, "panic", rec)
		}
	}()
	r.notifier.Notify(ctx, n)
}

func removeTemp(logCtx *slog.Logger, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil {
		if !os.IsNotExist(err) {
			logCtx.Error("Failed to clean up temporary file.", "path", path, "error", err)
		}
		return
	}
	logCtx.Debug("Cleaned up temporary file.", "path", path)
}
