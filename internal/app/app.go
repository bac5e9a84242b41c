// Package app assembles the conversion pipeline from a ServiceConfig. The
// long-running service and the upload-triggered function share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Lllllllleong/pdftomarkdown/internal/config"
	"github.com/Lllllllleong/pdftomarkdown/internal/converter"
	"github.com/Lllllllleong/pdftomarkdown/internal/filestore"
	"github.com/Lllllllleong/pdftomarkdown/internal/gcp"
	"github.com/Lllllllleong/pdftomarkdown/internal/jobs"
	"github.com/Lllllllleong/pdftomarkdown/internal/models"
	"github.com/Lllllllleong/pdftomarkdown/internal/notify"
)

// App holds the pipeline and every client it owns.
type App struct {
	Config     *config.ServiceConfig
	Runner     *jobs.Runner
	Store      filestore.Store
	HTTPClient *http.Client

	storageClient    *storage.Client
	firestoreClient  *firestore.Client
	executionsClient *executions.Client
	vertexClient     *gcp.VertexClient
}

// New creates the clients selected by cfg and wires them into a Runner.
// Metrics are registered on reg when it is non-nil. On error every client
// created so far is closed.
func New(ctx context.Context, cfg *config.ServiceConfig, reg prometheus.Registerer) (_ *App, err error) {
	a := &App{
		Config:     cfg,
		HTTPClient: notify.NewHTTPClient(cfg.NotifyTimeout),
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if err := a.initStore(ctx); err != nil {
		return nil, err
	}
	conv, err := a.initConverter(ctx)
	if err != nil {
		return nil, err
	}
	notifier, err := a.initNotifier(ctx)
	if err != nil {
		return nil, err
	}

	var metrics *jobs.Metrics
	if reg != nil {
		metrics = jobs.NewMetrics(reg)
	}
	a.Runner = jobs.NewRunner(a.Store, conv, notifier, metrics)

	slog.Info("Conversion pipeline initialized.",
		"store", cfg.StoreBackend,
		"converter", cfg.ConverterBackend,
		"sourceDir", cfg.SourceDir,
		"resultDir", cfg.ResultDir,
	)
	return a, nil
}

func (a *App) initStore(ctx context.Context) error {
	cfg := a.Config
	switch cfg.StoreBackend {
	case config.StoreGCS:
		client, err := gcp.NewStorageClient(ctx)
		if err != nil {
			return err
		}
		a.storageClient = client
		a.Store = filestore.NewGCSStore(client, cfg.GCSBucket, cfg.SourceDir, cfg.ResultDir)
	default:
		a.Store = filestore.NewFTPStore(cfg.FTP, cfg.SourceDir, cfg.ResultDir)
	}
	return nil
}

func (a *App) initConverter(ctx context.Context) (converter.Converter, error) {
	cfg := a.Config
	if cfg.ConverterBackend != config.ConverterVertex {
		return converter.NewFitz(), nil
	}
	client, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.VertexAIRegion, cfg.VertexModel)
	if err != nil {
		return nil, err
	}
	a.vertexClient = client
	return converter.NewVertex(client), nil
}

func (a *App) initNotifier(ctx context.Context) (notify.Notifier, error) {
	cfg := a.Config
	sinks := notify.Multi{notify.NewHTTPNotifier(a.HTTPClient, cfg.NotificationURL)}

	if cfg.FirestoreCollection != "" {
		client, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
		if err != nil {
			return nil, err
		}
		a.firestoreClient = client
		sinks = append(sinks, notify.NewFirestoreNotifier(client, cfg.FirestoreCollection))
	}

	if cfg.WorkflowID != "" {
		client, err := gcp.NewExecutionsClient(ctx)
		if err != nil {
			return nil, err
		}
		a.executionsClient = client
		parent := gcp.WorkflowParent(cfg.ProjectID, cfg.WorkflowLocation, cfg.WorkflowID)
		sinks = append(sinks, notify.NewWorkflowNotifier(client, parent, a.ResultPath))
	}

	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return sinks, nil
}

// ResultPath returns where the Markdown for logicalName is stored: a gs://
// URI for the bucket store, a server path for FTP.
func (a *App) ResultPath(logicalName string) string {
	if gcs, ok := a.Store.(*filestore.GCSStore); ok {
		return fmt.Sprintf("gs://%s/%s", gcs.BucketName(), gcs.ResultObject(logicalName))
	}
	return path.Join(a.Config.ResultDir, models.ResultName(logicalName))
}

// Close releases pooled connections and closes the cloud clients.
func (a *App) Close() error {
	a.HTTPClient.CloseIdleConnections()

	var errs []error
	if a.vertexClient != nil {
		errs = append(errs, a.vertexClient.Close())
	}
	if a.firestoreClient != nil {
		errs = append(errs, a.firestoreClient.Close())
	}
	if a.executionsClient != nil {
		errs = append(errs, a.executionsClient.Close())
	}
	if a.storageClient != nil {
		errs = append(errs, a.storageClient.Close())
	}
	return errors.Join(errs...)
}
