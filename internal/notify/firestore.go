package notify

import (
	"context"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/Lllllllleong/pdftomarkdown/internal/models"
)

// recordWriter replaces the status document of one job.
type recordWriter func(ctx context.Context, jobID string, record models.JobRecord) error

// FirestoreNotifier mirrors the latest notification of each job into a
// Firestore document keyed by job ID.
type FirestoreNotifier struct {
	write recordWriter
	now   func() time.Time
}

// NewFirestoreNotifier creates a notifier writing to the named collection.
func NewFirestoreNotifier(client *firestore.Client, collection string) *FirestoreNotifier {
	coll := client.Collection(collection)
	return &FirestoreNotifier{
		write: func(ctx context.Context, jobID string, record models.JobRecord) error {
			_, err := coll.Doc(jobID).Set(ctx, record)
			return err
		},
		now: time.Now,
	}
}

func (f *FirestoreNotifier) Notify(ctx context.Context, n models.Notification) bool {
	record := models.JobRecord{
		JobID:     n.JobID,
		FileName:  n.FileName,
		Status:    string(n.Status),
		Message:   n.Message,
		UpdatedAt: f.now(),
	}
	if err := f.write(ctx, n.JobID, record); err != nil {
		slog.Error("Failed to mirror job status to Firestore.", "jobId", n.JobID, "status", n.Status, "error", err)
		return false
	}
	return true
}
