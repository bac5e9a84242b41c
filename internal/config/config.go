// Package config loads the environment-provided settings of the conversion
// service and the agent relay.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

const (
	StoreFTP = "ftp"
	StoreGCS = "gcs"

	ConverterFitz   = "fitz"
	ConverterVertex = "vertex"
)

// FTPConfig holds the connection settings of the FTP file store.
type FTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// Addr returns host:port.
func (c FTPConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ServiceConfig holds all configuration for the PDF to Markdown service.
type ServiceConfig struct {
	Host            string
	Port            int
	LogLevel        string
	StoreBackend    string
	FTP             FTPConfig
	GCSBucket       string
	SourceDir       string
	ResultDir       string
	NotificationURL string
	NotifyTimeout   time.Duration
	ShutdownTimeout time.Duration

	ConverterBackend string
	ProjectID        string
	VertexAIRegion   string
	VertexModel      string

	FirestoreCollection string
	WorkflowID          string
	WorkflowLocation    string
}

// Addr returns the listen address of the HTTP server.
func (c *ServiceConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// LoadService loads and validates the service configuration from the environment.
func LoadService() (*ServiceConfig, error) {
	var errs []error
	intVar := func(key string, fallback int) int {
		n, err := GetEnvInt(key, fallback)
		errs = append(errs, err)
		return n
	}
	durationVar := func(key string, fallback time.Duration) time.Duration {
		d, err := GetEnvDuration(key, fallback)
		errs = append(errs, err)
		return d
	}

	cfg := &ServiceConfig{
		Host:         GetEnv("HOST", "0.0.0.0"),
		Port:         intVar("PORT", 8000),
		LogLevel:     GetEnv("LOG_LEVEL", "info"),
		StoreBackend: GetEnv("STORE_BACKEND", StoreFTP),
		FTP: FTPConfig{
			Host:     GetEnv("FTP_HOST", "127.0.0.1"),
			Port:     intVar("FTP_PORT", 2121),
			Username: GetEnv("FTP_USERNAME", ""),
			Password: GetEnv("FTP_PASSWORD", ""),
			Timeout:  durationVar("FTP_TIMEOUT", 30*time.Second),
		},
		GCSBucket:       GetEnv("GCS_BUCKET", ""),
		SourceDir:       GetEnv("SOURCE_DIR", "/pdf"),
		ResultDir:       GetEnv("RESULT_DIR", "/md"),
		NotificationURL: GetEnv("NOTIFICATION_URL", ""),
		NotifyTimeout:   durationVar("NOTIFY_TIMEOUT", 10*time.Second),
		ShutdownTimeout: durationVar("SHUTDOWN_TIMEOUT", 30*time.Second),

		ConverterBackend: GetEnv("CONVERTER_BACKEND", ConverterFitz),
		ProjectID:        GetEnv("PROJECT_ID", ""),
		VertexAIRegion:   GetEnv("VERTEX_AI_REGION", "us-central1"),
		VertexModel:      GetEnv("VERTEX_MODEL", "gemini-1.5-pro"),

		FirestoreCollection: GetEnv("FIRESTORE_COLLECTION", ""),
		WorkflowID:          GetEnv("WORKFLOW_ID", ""),
		WorkflowLocation:    GetEnv("WORKFLOW_LOCATION", "us-central1"),
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings and backend names.
func (c *ServiceConfig) Validate() error {
	if c.NotificationURL == "" {
		return fmt.Errorf("NOTIFICATION_URL environment variable must be set")
	}
	switch c.StoreBackend {
	case StoreFTP:
		if c.FTP.Username == "" || c.FTP.Password == "" {
			return fmt.Errorf("FTP_USERNAME and FTP_PASSWORD must be set")
		}
	case StoreGCS:
		if c.GCSBucket == "" {
			return fmt.Errorf("GCS_BUCKET must be set when STORE_BACKEND=gcs")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (must be ftp or gcs)", c.StoreBackend)
	}
	switch c.ConverterBackend {
	case ConverterFitz:
	case ConverterVertex:
		if c.ProjectID == "" {
			return fmt.Errorf("PROJECT_ID must be set when CONVERTER_BACKEND=vertex")
		}
	default:
		return fmt.Errorf("unknown CONVERTER_BACKEND %q (must be fitz or vertex)", c.ConverterBackend)
	}
	if (c.FirestoreCollection != "" || c.WorkflowID != "") && c.ProjectID == "" {
		return fmt.Errorf("PROJECT_ID must be set when FIRESTORE_COLLECTION or WORKFLOW_ID is configured")
	}
	return nil
}

// RelayConfig holds configuration for the agent relay.
type RelayConfig struct {
	Host               string
	Port               int
	LogLevel           string
	PolicyReviewerURL  string
	MedicalReviewerURL string
	Timeout            time.Duration
}

// Addr returns the listen address of the MCP server.
func (c *RelayConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// LoadRelay loads the relay configuration from the environment. Agent URLs
// may be empty; calls to an agent without a URL fail at call time.
func LoadRelay() (*RelayConfig, error) {
	port, err := GetEnvInt("PORT", 3001)
	if err != nil {
		return nil, err
	}
	timeout, err := GetEnvDuration("RELAY_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}
	return &RelayConfig{
		Host:               GetEnv("HOST", "0.0.0.0"),
		Port:               port,
		LogLevel:           GetEnv("LOG_LEVEL", "info"),
		PolicyReviewerURL:  GetEnv("POLICY_REVIEWER_URL", ""),
		MedicalReviewerURL: GetEnv("MEDICAL_REVIEWER_URL", ""),
		Timeout:            timeout,
	}, nil
}
