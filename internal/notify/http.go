package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Lllllllleong/pdftomarkdown/internal/models"
)

const maxLoggedBody = 1024

// NewHTTPClient creates the shared client used for notifications. It is
// built once at startup, shared read-only by all jobs and closed with
// CloseIdleConnections at shutdown.
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// HTTPNotifier posts notifications as JSON to a webhook.
type HTTPNotifier struct {
	client *http.Client
	url    string
}

// NewHTTPNotifier creates a webhook notifier using the shared client.
func NewHTTPNotifier(client *http.Client, url string) *HTTPNotifier {
	return &HTTPNotifier{client: client, url: url}
}

// Notify posts n and reports true on a 200 or 202 response.
func (h *HTTPNotifier) Notify(ctx context.Context, n models.Notification) bool {
	logCtx := slog.With("jobId", n.JobID, "status", n.Status, "notificationMessage", n.Message)

	payload, err := json.Marshal(n)
	if err != nil {
		logCtx.Error("Failed to encode notification.", "error", err)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(payload))
	if err != nil {
		logCtx.Error("Failed to build notification request.", "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		logCtx.Error("Error sending notification.", "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusAccepted {
		_, _ = io.Copy(io.Discard, resp.Body)
		logCtx.Info("Sent notification.")
		return true
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))
	logCtx.Warn("Notification rejected.", "statusCode", resp.StatusCode, "response", string(body))
	return false
}
