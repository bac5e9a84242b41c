package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"os"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/pdftomarkdown/internal/config"
)

// fakeFTP is an in-memory FTP server shared by every connection it hands out.
type fakeFTP struct {
	mu         sync.Mutex
	dirs       map[string]bool
	files      map[string][]byte
	loginErr   error
	mkdirErr   error
	retrBroken bool
	mkdirCalls int
	quits      int
}

func newFakeFTP() *fakeFTP {
	return &fakeFTP{
		dirs:  map[string]bool{"/": true, "/pdf": true},
		files: map[string][]byte{},
	}
}

func (f *fakeFTP) dial(ctx context.Context, cfg config.FTPConfig) (ftpConn, error) {
	return &fakeConn{srv: f, cwd: "/"}, nil
}

type fakeConn struct {
	srv *fakeFTP
	cwd string
}

func ftpReply(code int, msg string) error {
	return &textproto.Error{Code: code, Msg: msg}
}

func (c *fakeConn) Login(user, password string) error { return c.srv.loginErr }

func (c *fakeConn) ChangeDir(dir string) error {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()
	if !c.srv.dirs[dir] {
		return ftpReply(550, "No such directory")
	}
	c.cwd = dir
	return nil
}

func (c *fakeConn) MakeDir(dir string) error {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()
	c.srv.mkdirCalls++
	if c.srv.mkdirErr != nil {
		return c.srv.mkdirErr
	}
	if c.srv.dirs[dir] {
		return ftpReply(550, "Directory already exists")
	}
	c.srv.dirs[dir] = true
	return nil
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }
func (brokenReader) Close() error               { return nil }

func (c *fakeConn) Retr(name string) (io.ReadCloser, error) {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()
	if c.srv.retrBroken {
		return brokenReader{}, nil
	}
	data, ok := c.srv.files[path.Join(c.cwd, name)]
	if !ok {
		return nil, ftpReply(550, "File not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (c *fakeConn) Stor(name string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()
	c.srv.files[path.Join(c.cwd, name)] = data
	return nil
}

func (c *fakeConn) Quit() error {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()
	c.srv.quits++
	return nil
}

func newTestStore(srv *fakeFTP) *FTPStore {
	s := NewFTPStore(config.FTPConfig{Host: "127.0.0.1", Port: 2121, Username: "u", Password: "p"}, "/pdf", "/md")
	s.dial = srv.dial
	return s
}

func TestFTPStore_FetchFound(t *testing.T) {
	srv := newFakeFTP()
	srv.files["/pdf/report.pdf"] = []byte("%PDF-1.7 body")
	s := newTestStore(srv)

	res := s.Fetch(context.Background(), "report")
	require.True(t, res.Found(), "err: %v", res.Err)
	t.Cleanup(func() { os.Remove(res.Path) })

	assert.Equal(t, ".pdf", path.Ext(res.Path))
	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 body", string(data))
	assert.Equal(t, 1, srv.quits)
}

func TestFTPStore_FetchMissing(t *testing.T) {
	s := newTestStore(newFakeFTP())

	res := s.Fetch(context.Background(), "missing")
	assert.False(t, res.Found())
	assert.Equal(t, OutcomeNotFound, res.Outcome)
	assert.Empty(t, res.Path)
}

func TestFTPStore_FetchTransferFailureLeavesNoFile(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)
	srv := newFakeFTP()
	srv.retrBroken = true
	s := newTestStore(srv)

	res := s.Fetch(context.Background(), "report")

	assert.False(t, res.Found())
	assert.Equal(t, OutcomeIOError, res.Outcome)
	assert.Empty(t, res.Path)
	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFTPStore_LoginFailureIsSoft(t *testing.T) {
	srv := newFakeFTP()
	srv.loginErr = ftpReply(530, "Login incorrect")
	s := newTestStore(srv)

	assert.Equal(t, OutcomeIOError, s.Fetch(context.Background(), "report").Outcome)
	assert.False(t, s.Put(context.Background(), "report", []byte("# r")).OK())
}

func TestFTPStore_PutCreatesResultDir(t *testing.T) {
	srv := newFakeFTP()
	s := newTestStore(srv)

	res := s.Put(context.Background(), "report", []byte("# Report"))
	require.True(t, res.OK(), "err: %v", res.Err)
	assert.True(t, srv.dirs["/md"])
	assert.Equal(t, "# Report", string(srv.files["/md/report.md"]))
}

func TestFTPStore_PutTwiceWithExistingDir(t *testing.T) {
	srv := newFakeFTP()
	s := newTestStore(srv)

	first := s.Put(context.Background(), "report", []byte("v1"))
	second := s.Put(context.Background(), "report", []byte("v2"))

	assert.Equal(t, first.Outcome, second.Outcome)
	assert.True(t, second.OK())
	assert.Equal(t, 1, srv.mkdirCalls)
	assert.Equal(t, "v2", string(srv.files["/md/report.md"]))
}

func TestEnsureDir_ToleratesConcurrentCreate(t *testing.T) {
	srv := newFakeFTP()
	conn := &racingConn{fakeConn: fakeConn{srv: srv, cwd: "/"}}

	require.NoError(t, ensureDir(conn, "/md"))
	assert.Equal(t, "/md", conn.cwd)
}

// racingConn reports the directory as missing, then loses the MakeDir race.
type racingConn struct {
	fakeConn
	checked bool
}

func (c *racingConn) ChangeDir(dir string) error {
	if !c.checked {
		c.checked = true
		c.srv.dirs[dir] = true
		return ftpReply(550, "No such directory")
	}
	return c.fakeConn.ChangeDir(dir)
}

func TestFTPStore_PutDirPermissionDenied(t *testing.T) {
	srv := newFakeFTP()
	srv.mkdirErr = ftpReply(550, "Permission denied")
	s := newTestStore(srv)

	res := s.Put(context.Background(), "report", []byte("# r"))
	assert.False(t, res.OK())
	assert.Equal(t, OutcomeIOError, res.Outcome)
	assert.Error(t, res.Err)
}

func TestFTPStore_DialFailureIsSoft(t *testing.T) {
	s := NewFTPStore(config.FTPConfig{Host: "127.0.0.1", Port: 1, Username: "u", Password: "p", Timeout: time.Second}, "/pdf", "/md")

	res := s.Fetch(context.Background(), "report")
	assert.False(t, res.Found())
	assert.Equal(t, OutcomeIOError, res.Outcome)
}

func TestClassifyFTPError(t *testing.T) {
	tests := []struct {
		err  error
		want Outcome
	}{
		{ftpReply(550, "not found"), OutcomeNotFound},
		{fmt.Errorf("wrapped: %w", ftpReply(550, "not found")), OutcomeNotFound},
		{ftpReply(451, "local error"), OutcomeIOError},
		{errors.New("EOF"), OutcomeIOError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyFTPError(tt.err), tt.err.Error())
	}
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "ok", OutcomeOK.String())
	assert.Equal(t, "not_found", OutcomeNotFound.String())
	assert.Equal(t, "io_error", OutcomeIOError.String())
}
