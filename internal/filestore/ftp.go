package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/textproto"

	"github.com/jlaffaye/ftp"

	"github.com/Lllllllleong/pdftomarkdown/internal/config"
	"github.com/Lllllllleong/pdftomarkdown/internal/models"
)

// ftpConn is the subset of *ftp.ServerConn the store uses.
type ftpConn interface {
	Login(user, password string) error
	ChangeDir(path string) error
	MakeDir(path string) error
	Retr(path string) (io.ReadCloser, error)
	Stor(path string, r io.Reader) error
	Quit() error
}

type dialFunc func(ctx context.Context, cfg config.FTPConfig) (ftpConn, error)

type serverConn struct {
	*ftp.ServerConn
}

func (c serverConn) Retr(path string) (io.ReadCloser, error) {
	return c.ServerConn.Retr(path)
}

func dialFTP(ctx context.Context, cfg config.FTPConfig) (ftpConn, error) {
	conn, err := ftp.Dial(cfg.Addr(), ftp.DialWithTimeout(cfg.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, err
	}
	return serverConn{conn}, nil
}

// FTPStore is a Store backed by an FTP server. Every call uses its own
// connection, so concurrent jobs share nothing.
type FTPStore struct {
	cfg       config.FTPConfig
	sourceDir string
	resultDir string
	dial      dialFunc
}

// NewFTPStore creates an FTP-backed store.
func NewFTPStore(cfg config.FTPConfig, sourceDir, resultDir string) *FTPStore {
	return &FTPStore{
		cfg:       cfg,
		sourceDir: sourceDir,
		resultDir: resultDir,
		dial:      dialFTP,
	}
}

func (s *FTPStore) connect(ctx context.Context) (ftpConn, error) {
	conn, err := s.dial(ctx, s.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to FTP server %s: %w", s.cfg.Addr(), err)
	}
	if err := conn.Login(s.cfg.Username, s.cfg.Password); err != nil {
		_ = conn.Quit()
		return nil, fmt.Errorf("failed to log in to FTP server: %w", err)
	}
	return conn, nil
}

// Fetch downloads <sourceDir>/<name>.pdf into a temporary file.
func (s *FTPStore) Fetch(ctx context.Context, logicalName string) FetchResult {
	logCtx := slog.With("fileName", logicalName, "store", "ftp")
	remoteName := models.SourceName(logicalName)

	conn, err := s.connect(ctx)
	if err != nil {
		logCtx.Error("Error reading PDF file from FTP.", "error", err)
		return fetchFailed(OutcomeIOError, err)
	}
	defer quit(conn)

	if err := conn.ChangeDir(s.sourceDir); err != nil {
		logCtx.Error("Failed to change to source directory.", "dir", s.sourceDir, "error", err)
		return fetchFailed(classifyFTPError(err), err)
	}

	resp, err := conn.Retr(remoteName)
	if err != nil {
		logCtx.Error("Error reading PDF file from FTP.", "remoteName", remoteName, "error", err)
		return fetchFailed(classifyFTPError(err), err)
	}
	path, copyErr := copyToTemp(resp)
	if closeErr := resp.Close(); closeErr != nil && copyErr == nil {
		// The transfer did not complete cleanly; the local copy may be truncated.
		removeQuietly(path)
		copyErr = fmt.Errorf("failed to finish transfer of %s: %w", remoteName, closeErr)
	}
	if copyErr != nil {
		logCtx.Error("Error reading PDF file from FTP.", "remoteName", remoteName, "error", copyErr)
		return fetchFailed(OutcomeIOError, copyErr)
	}

	logCtx.Info("Downloaded PDF file from FTP server.", "path", path)
	return FetchResult{Path: path, Outcome: OutcomeOK}
}

// Put uploads content as <resultDir>/<name>.md.
func (s *FTPStore) Put(ctx context.Context, logicalName string, content []byte) StoreResult {
	logCtx := slog.With("fileName", logicalName, "store", "ftp")
	remoteName := models.ResultName(logicalName)

	conn, err := s.connect(ctx)
	if err != nil {
		logCtx.Error("Error storing markdown content to FTP.", "error", err)
		return storeFailed(OutcomeIOError, err)
	}
	defer quit(conn)

	if err := ensureDir(conn, s.resultDir); err != nil {
		logCtx.Error("Failed to create or access result directory.", "dir", s.resultDir, "error", err)
		return storeFailed(OutcomeIOError, err)
	}

	if err := conn.Stor(remoteName, bytes.NewReader(content)); err != nil {
		logCtx.Error("Error storing markdown content to FTP.", "remoteName", remoteName, "error", err)
		return storeFailed(OutcomeIOError, err)
	}

	logCtx.Info("Stored markdown content on FTP server.", "remoteName", remoteName, "bytes", len(content))
	return StoreResult{Outcome: OutcomeOK}
}

// ensureDir changes into dir, creating it first when the server says it is
// missing. A concurrent creation that wins the race is not an error.
func ensureDir(conn ftpConn, dir string) error {
	if err := conn.ChangeDir(dir); err == nil {
		return nil
	} else if !isPermanent(err) {
		return err
	}

	if err := conn.MakeDir(dir); err != nil && !isPermanent(err) {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	if err := conn.ChangeDir(dir); err != nil {
		return fmt.Errorf("failed to change to %s: %w", dir, err)
	}
	return nil
}

func quit(conn ftpConn) {
	if err := conn.Quit(); err != nil {
		slog.Debug("FTP quit failed.", "error", err)
	}
}

// classifyFTPError maps a 550 reply to not-found and everything else to io-error.
func classifyFTPError(err error) Outcome {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) && protoErr.Code == ftp.StatusFileUnavailable {
		return OutcomeNotFound
	}
	return OutcomeIOError
}

// isPermanent reports whether err is a 5xx FTP reply.
func isPermanent(err error) bool {
	var protoErr *textproto.Error
	return errors.As(err, &protoErr) && protoErr.Code >= 500 && protoErr.Code < 600
}
