package app

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/pdftomarkdown/internal/config"
	"github.com/Lllllllleong/pdftomarkdown/internal/filestore"
)

func ftpConfig() *config.ServiceConfig {
	return &config.ServiceConfig{
		StoreBackend:     config.StoreFTP,
		ConverterBackend: config.ConverterFitz,
		FTP: config.FTPConfig{
			Host: "127.0.0.1", Port: 2121, Username: "u", Password: "p", Timeout: time.Second,
		},
		SourceDir:       "/pdf",
		ResultDir:       "/md",
		NotificationURL: "http://localhost:9/notify",
		NotifyTimeout:   time.Second,
	}
}

func TestNew_FTPWithFitz(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := New(context.Background(), ftpConfig(), reg)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	assert.NotNil(t, a.Runner)
	assert.IsType(t, &filestore.FTPStore{}, a.Store)
	assert.Equal(t, "/md/report.md", a.ResultPath("report"))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNew_NilRegistry(t *testing.T) {
	a, err := New(context.Background(), ftpConfig(), nil)
	require.NoError(t, err)
	assert.NotNil(t, a.Runner)
	assert.NoError(t, a.Close())
}
