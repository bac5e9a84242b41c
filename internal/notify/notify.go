// Package notify delivers job status notifications. Delivery is best effort:
// a Notifier logs failures and reports them as false, it never returns an
// error and never retries.
package notify

import (
	"context"

	"github.com/Lllllllleong/pdftomarkdown/internal/models"
)

// Notifier delivers one status event and reports whether it was accepted.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) bool
}

// Multi fans a notification out to every sink in order. It reports true only
// when every sink delivered.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n models.Notification) bool {
	delivered := true
	for _, sink := range m {
		if !sink.Notify(ctx, n) {
			delivered = false
		}
	}
	return delivered
}
