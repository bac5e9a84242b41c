package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"

	"github.com/Lllllllleong/pdftomarkdown/internal/app"
	"github.com/Lllllllleong/pdftomarkdown/internal/config"
	"github.com/Lllllllleong/pdftomarkdown/internal/filestore"
	"github.com/Lllllllleong/pdftomarkdown/internal/logging"
	"github.com/Lllllllleong/pdftomarkdown/internal/models"
)

// storageObjectData is the subset of a Cloud Storage "object finalized" event we use.
type storageObjectData struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

var (
	pipeline *app.App
	store    *filestore.GCSStore
	once     sync.Once
	initErr  error
)

func init() {
	if err := logging.Setup(config.GetEnv("LOG_LEVEL", "info")); err != nil {
		slog.Warn("Falling back to info logging.", "error", err)
	}
	functions.CloudEvent("ConvertOnUpload", convertOnUpload)
}

// main starts a local functions framework server; in Cloud Functions the
// platform invokes the registered entry point directly.
func main() {
	port := config.GetEnv("PORT", "8080")
	if err := funcframework.StartHostPort(config.GetEnv("HOST", ""), port); err != nil {
		slog.Error("Functions framework exited.", "error", err)
		os.Exit(1)
	}
}

func initialize() error {
	cfg, err := config.LoadService()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.StoreBackend != config.StoreGCS {
		return fmt.Errorf("ConvertOnUpload requires STORE_BACKEND=%s, got %q", config.StoreGCS, cfg.StoreBackend)
	}
	// Metrics are not scraped from function instances.
	a, err := app.New(context.Background(), cfg, nil)
	if err != nil {
		return err
	}
	pipeline = a
	store = a.Store.(*filestore.GCSStore)
	return nil
}

// convertOnUpload converts a PDF as soon as it lands under the source prefix.
// The job runs synchronously. Job failures are reported through the
// notifiers and the invocation still succeeds.
func convertOnUpload(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		initErr = initialize()
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var data storageObjectData
	if err := json.Unmarshal(e.Data(), &data); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}
	logCtx := slog.With("eventId", e.ID(), "bucket", data.Bucket, "object", data.Name)

	if data.Bucket != store.BucketName() {
		logCtx.Info("Ignoring object from another bucket.")
		return nil
	}
	name, ok := store.LogicalName(data.Name)
	if !ok {
		logCtx.Info("Ignoring object outside the source prefix.")
		return nil
	}

	jobID := e.ID()
	if jobID == "" {
		jobID = uuid.NewString()
	}
	res := pipeline.Runner.Run(ctx, models.Job{ID: jobID, FileName: name})
	logCtx.Info("Upload-triggered conversion finished.", "jobId", jobID, "state", res.State, "outcome", res.Outcome())
	return nil
}
