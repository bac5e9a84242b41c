package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/googleapis/gax-go/v2"

	"github.com/Lllllllleong/pdftomarkdown/internal/models"
)

// executionCreator is satisfied by *executions.Client.
type executionCreator interface {
	CreateExecution(ctx context.Context, req *executionspb.CreateExecutionRequest, opts ...gax.CallOption) (*executionspb.Execution, error)
}

// WorkflowNotifier starts a Cloud Workflows execution for every completed
// job. Other statuses are ignored and count as delivered.
type WorkflowNotifier struct {
	client     executionCreator
	parent     string
	resultPath func(fileName string) string
}

// NewWorkflowNotifier creates a completion hook for the workflow at parent.
// resultPath maps a logical file name to the stored Markdown location.
func NewWorkflowNotifier(client executionCreator, parent string, resultPath func(string) string) *WorkflowNotifier {
	return &WorkflowNotifier{client: client, parent: parent, resultPath: resultPath}
}

func (w *WorkflowNotifier) Notify(ctx context.Context, n models.Notification) bool {
	if n.Status != models.StatusCompleted {
		return true
	}
	logCtx := slog.With("jobId", n.JobID, "workflow", w.parent)

	payload, err := json.Marshal(models.WorkflowArgument{
		JobID:        n.JobID,
		FileName:     n.FileName,
		MarkdownPath: w.resultPath(n.FileName),
	})
	if err != nil {
		logCtx.Error("Failed to marshal workflow payload.", "error", err)
		return false
	}

	exec, err := w.client.CreateExecution(ctx, &executionspb.CreateExecutionRequest{
		Parent:    w.parent,
		Execution: &executionspb.Execution{Argument: string(payload)},
	})
	if err != nil {
		logCtx.Error("Failed to trigger workflow execution.", "error", err)
		return false
	}
	logCtx.Info("Triggered workflow execution.", "execution", exec.GetName())
	return true
}
