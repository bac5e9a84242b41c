package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/pdftomarkdown/internal/filestore"
	"github.com/Lllllllleong/pdftomarkdown/internal/models"
)

type fakeStore struct {
	t        *testing.T
	mu       sync.Mutex
	missing  bool
	putFails bool
	fetched  []string
	puts     map[string]string
}

func newFakeStore(t *testing.T) *fakeStore {
	return &fakeStore{t: t, puts: map[string]string{}}
}

func (s *fakeStore) Fetch(ctx context.Context, name string) filestore.FetchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.missing {
		return filestore.FetchResult{Outcome: filestore.OutcomeNotFound, Err: errors.New("550 not found")}
	}
	path := filepath.Join(s.t.TempDir(), name+".pdf")
	require.NoError(s.t, os.WriteFile(path, []byte("%PDF-1.7"), 0o600))
	s.fetched = append(s.fetched, path)
	return filestore.FetchResult{Path: path, Outcome: filestore.OutcomeOK}
}

func (s *fakeStore) Put(ctx context.Context, name string, content []byte) filestore.StoreResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putFails {
		return filestore.StoreResult{Outcome: filestore.OutcomeIOError, Err: errors.New("553 not allowed")}
	}
	s.puts[name] = string(content)
	return filestore.StoreResult{Outcome: filestore.OutcomeOK}
}

func (s *fakeStore) lastFetched() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(s.t, s.fetched)
	return s.fetched[len(s.fetched)-1]
}

type fakeConverter struct {
	markdown string
	err      error
	panicked any
	sawPath  string
}

func (c *fakeConverter) Convert(ctx context.Context, path string) (string, error) {
	c.sawPath = path
	if c.panicked != nil {
		panic(c.panicked)
	}
	return c.markdown, c.err
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.Notification
	ok     bool
}

func (n *recordingNotifier) Notify(ctx context.Context, ev models.Notification) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.ok
}

func (n *recordingNotifier) snapshot() []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.Notification(nil), n.events...)
}

var job = models.Job{ID: "job-42", FileName: "pump-manual"}

func started() models.Notification {
	return models.NewNotification(job, models.StatusStarted, models.MessageStarted)
}

func TestRunner_Completed(t *testing.T) {
	store := newFakeStore(t)
	conv := &fakeConverter{markdown: "# Pump manual"}
	notifier := &recordingNotifier{ok: true}

	res := NewRunner(store, conv, notifier, nil).Run(context.Background(), job)

	assert.Equal(t, StateCompleted, res.State)
	assert.Equal(t, []models.Notification{
		started(),
		models.NewNotification(job, models.StatusCompleted, models.MessageDone),
	}, notifier.snapshot())
	assert.Equal(t, "# Pump manual", store.puts["pump-manual"])
	assert.Equal(t, store.lastFetched(), conv.sawPath)
	assert.NoFileExists(t, store.lastFetched())
}

func TestRunner_FileNotFound(t *testing.T) {
	store := newFakeStore(t)
	store.missing = true
	conv := &fakeConverter{markdown: "unused"}
	notifier := &recordingNotifier{ok: true}

	res := NewRunner(store, conv, notifier, nil).Run(context.Background(), job)

	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, "file_not_found", res.Outcome())
	assert.Equal(t, []models.Notification{
		started(),
		models.NewNotification(job, models.StatusFailed, models.MessageFileNotFound),
	}, notifier.snapshot())
	assert.Empty(t, conv.sawPath, "converter must not run without a file")
	assert.Empty(t, store.puts)
}

func TestRunner_EmptyConversion(t *testing.T) {
	for _, markdown := range []string{"", "  \n\t"} {
		store := newFakeStore(t)
		notifier := &recordingNotifier{ok: true}

		res := NewRunner(store, &fakeConverter{markdown: markdown}, notifier, nil).Run(context.Background(), job)

		assert.Equal(t, StateFailed, res.State)
		assert.Equal(t, models.MessageConversionFailed, res.Notification.Message)
		assert.Len(t, notifier.snapshot(), 2)
		assert.Empty(t, store.puts)
		assert.NoFileExists(t, store.lastFetched())
	}
}

func TestRunner_StorageFailed(t *testing.T) {
	store := newFakeStore(t)
	store.putFails = true
	notifier := &recordingNotifier{ok: true}

	res := NewRunner(store, &fakeConverter{markdown: "# ok"}, notifier, nil).Run(context.Background(), job)

	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, []models.Notification{
		started(),
		models.NewNotification(job, models.StatusFailed, models.MessageStorageFailed),
	}, notifier.snapshot())
	assert.NoFileExists(t, store.lastFetched())
}

func TestRunner_ConversionError(t *testing.T) {
	store := newFakeStore(t)
	conv := &fakeConverter{err: models.ConversionError("invalid PDF", errors.New("xref table corrupt"))}
	notifier := &recordingNotifier{ok: true}

	res := NewRunner(store, conv, notifier, nil).Run(context.Background(), job)

	assert.Equal(t, StateError, res.State)
	events := notifier.snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, started(), events[0])
	assert.Equal(t, models.StatusError, events[1].Status)
	assert.Equal(t, "pdf_to_md_error: invalid PDF: xref table corrupt", events[1].Message)
	assert.NoFileExists(t, store.lastFetched())
}

func TestRunner_PanicBecomesError(t *testing.T) {
	store := newFakeStore(t)
	notifier := &recordingNotifier{ok: true}

	var res Result
	require.NotPanics(t, func() {
		res = NewRunner(store, &fakeConverter{panicked: "nil map write"}, notifier, nil).Run(context.Background(), job)
	})

	assert.Equal(t, StateError, res.State)
	events := notifier.snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, models.StatusError, events[1].Status)
	assert.Contains(t, events[1].Message, "nil map write")
	assert.NoFileExists(t, store.lastFetched())
}

// panickingNotifier panics for every status in panicOn and records the rest.
type panickingNotifier struct {
	recordingNotifier
	panicOn map[models.JobStatus]bool
	calls   int
}

func (n *panickingNotifier) Notify(ctx context.Context, ev models.Notification) bool {
	n.mu.Lock()
	n.calls++
	n.mu.Unlock()
	if n.panicOn[ev.Status] {
		panic("notifier boom")
	}
	return n.recordingNotifier.Notify(ctx, ev)
}

func TestRunner_NotifierPanicOnStartedIsContained(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	notifier := &panickingNotifier{panicOn: map[models.JobStatus]bool{
		models.StatusStarted: true,
		models.StatusError:   true,
	}}

	var res Result
	require.NotPanics(t, func() {
		res = NewRunner(newFakeStore(t), &fakeConverter{markdown: "# ok"}, notifier, metrics).Run(context.Background(), job)
	})

	assert.Equal(t, StateError, res.State)
	assert.Contains(t, res.Notification.Message, "notifier boom")
	assert.Equal(t, 2, notifier.calls)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.inFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.finished.WithLabelValues("error")))
}

func TestRunner_NotifierPanicOnCompletedRemovesTemp(t *testing.T) {
	store := newFakeStore(t)
	notifier := &panickingNotifier{panicOn: map[models.JobStatus]bool{models.StatusCompleted: true}}

	var res Result
	require.NotPanics(t, func() {
		res = NewRunner(store, &fakeConverter{markdown: "# ok"}, notifier, nil).Run(context.Background(), job)
	})

	assert.Equal(t, StateError, res.State)
	assert.NoFileExists(t, store.lastFetched())
	// The completed notification was the terminal one; no error follows it.
	assert.Equal(t, 2, notifier.calls)
	assert.Equal(t, []models.Notification{started()}, notifier.snapshot())
}

func TestRunner_NotificationFailuresDoNotStopJob(t *testing.T) {
	store := newFakeStore(t)
	notifier := &recordingNotifier{ok: false}

	res := NewRunner(store, &fakeConverter{markdown: "# ok"}, notifier, nil).Run(context.Background(), job)

	assert.Equal(t, StateCompleted, res.State)
	assert.Len(t, notifier.snapshot(), 2)
	assert.Equal(t, "# ok", store.puts["pump-manual"])
}

func TestRunner_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	store := newFakeStore(t)

	r := NewRunner(store, &fakeConverter{markdown: "# ok"}, &recordingNotifier{ok: true}, metrics)
	r.Run(context.Background(), job)
	store.missing = true
	r.Run(context.Background(), job)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.started))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.inFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.finished.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.finished.WithLabelValues("file_not_found")))
}

type blockingRunner struct {
	release chan struct{}
	mu      sync.Mutex
	ran     []models.Job
	ctxErr  []error
}

func (b *blockingRunner) Run(ctx context.Context, j models.Job) Result {
	<-b.release
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ran = append(b.ran, j)
	b.ctxErr = append(b.ctxErr, ctx.Err())
	return Result{State: StateCompleted}
}

func TestDispatcher_SubmitReturnsImmediately(t *testing.T) {
	runner := &blockingRunner{release: make(chan struct{})}
	d := NewDispatcher(runner)

	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	require.NoError(t, d.Submit(ctx, job))
	require.NoError(t, d.Submit(ctx, job), "duplicates are not rejected")
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int64(2), d.Running())

	cancel()
	close(runner.release)
	require.NoError(t, d.Shutdown(context.Background()))

	assert.Equal(t, []models.Job{job, job}, runner.ran)
	for _, err := range runner.ctxErr {
		assert.NoError(t, err, "jobs must not inherit request cancellation")
	}
	assert.Equal(t, int64(0), d.Running())
}

func TestDispatcher_RejectsAfterShutdown(t *testing.T) {
	d := NewDispatcher(&blockingRunner{release: make(chan struct{})})
	require.NoError(t, d.Shutdown(context.Background()))

	assert.ErrorIs(t, d.Submit(context.Background(), job), ErrShuttingDown)
}

func TestDispatcher_ShutdownTimeout(t *testing.T) {
	runner := &blockingRunner{release: make(chan struct{})}
	d := NewDispatcher(runner)
	require.NoError(t, d.Submit(context.Background(), job))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := d.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(runner.release)
}
