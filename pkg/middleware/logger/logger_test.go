package logger

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/joeydtaylor/steeze-kv/pkg/middleware/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed(lvl zapcore.Level) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(lvl)
	return zap.New(core), logs
}

func TestAccessLogRecordsStatusAndUser(t *testing.T) {
	l, logs := observed(zap.InfoLevel)
	SetAccessLogger(l)

	ca, err := auth.New(auth.Config{DevBypass: true})
	require.NoError(t, err)

	h := ca.Middleware()((&Middleware{}).Middleware(ca)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})))

	req := httptest.NewRequest(http.MethodGet, "/ZZ", nil)
	req.Header.Set("X-Dev-User", "dev")
	req.Header.Set("Accept", "application/json")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, 1, logs.Len())
	ctx := logs.All()[0].ContextMap()
	assert.EqualValues(t, http.StatusNotFound, ctx["status"])
	assert.Equal(t, "/ZZ", ctx["uri"])
	assert.Equal(t, "dev", ctx["username"])
	assert.Equal(t, true, ctx["isAuthenticated"])
	assert.Equal(t, "application/json", ctx["accept"])
}

func TestBodyLoggedOnlyWhenAllowlisted(t *testing.T) {
	l, logs := observed(zap.InfoLevel)
	SetAccessLogger(l)
	AddBodyLogPaths("/graphql")

	var seen string
	h := (&Middleware{}).Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var b bytes.Buffer
		_, _ = b.ReadFrom(r.Body)
		seen = b.String()
	}))

	for _, p := range []string{"/graphql", "/other"} {
		req := httptest.NewRequest(http.MethodPost, p, strings.NewReader(`{"query":"{x}"}`))
		req.Header.Set("Content-Type", "application/json")
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, `{"query":"{x}"}`, seen, "body must reach the handler on %s", p)
	}

	require.Equal(t, 2, logs.Len())
	assert.Contains(t, logs.All()[0].ContextMap(), "requestData")
	assert.NotContains(t, logs.All()[1].ContextMap(), "requestData")
}

func TestTrace(t *testing.T) {
	l, logs := observed(zap.DebugLevel)
	done := Trace(l, "render", zap.String("key", "US"))
	done()
	require.Equal(t, 1, logs.Len())
	e := logs.All()[0]
	assert.Equal(t, "render finished", e.Message)
	assert.Contains(t, e.ContextMap(), "elapsed")
	assert.Equal(t, "US", e.ContextMap()["key"])

	quiet, qlogs := observed(zap.InfoLevel)
	Trace(quiet, "render")()
	assert.Zero(t, qlogs.Len())
}

func TestNewLogWritesFile(t *testing.T) {
	old := Dir
	Dir = t.TempDir()
	t.Cleanup(func() { Dir = old })

	l := NewLog("test.log")
	l.Error("lookup failed", zap.String("key", "US"))
	_ = l.Sync()

	b, err := os.ReadFile(filepath.Join(Dir, "test.log"))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"lookup failed"`)
	assert.Contains(t, string(b), `"key":"US"`)
	assert.Contains(t, string(b), `"sha":`)
}

func TestAccessLoggerBuiltOnceUnderConcurrency(t *testing.T) {
	old := Dir
	Dir = t.TempDir()
	prev := httpAccessLogger.Load()
	httpAccessLogger.Store(nil)
	t.Cleanup(func() {
		Dir = old
		httpAccessLogger.Store(prev)
	})

	h := (&Middleware{}).Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	const n = 8
	var (
		wg   sync.WaitGroup
		seen sync.Map
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/US", nil))
			seen.Store(accessLogger(), true)
		}()
	}
	wg.Wait()

	count := 0
	seen.Range(func(_, _ any) bool { count++; return true })
	assert.Equal(t, 1, count, "every request must share one access logger")
	assert.FileExists(t, filepath.Join(Dir, "http-access.log"))
}

// countingReader records how many bytes were pulled from the client.
type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

func TestChunkedBodyCaptureIsBounded(t *testing.T) {
	l, logs := observed(zap.InfoLevel)
	SetAccessLogger(l)
	AddBodyLogPaths("/graphql")

	const size = 4 << 20
	src := &countingReader{r: bytes.NewReader(bytes.Repeat([]byte("a"), size))}

	var readBeforeHandler int64
	var handlerSaw int
	h := (&Middleware{}).Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		readBeforeHandler = src.n.Load()
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		handlerSaw = len(b)
	}))

	req := httptest.NewRequest(http.MethodPost, "/graphql", io.NopCloser(src))
	req.ContentLength = -1
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.LessOrEqual(t, readBeforeHandler, int64(maxLoggedBody+1))
	assert.Equal(t, size, handlerSaw, "handler must still see the whole body")
	require.Equal(t, 1, logs.Len())
	assert.NotContains(t, logs.All()[0].ContextMap(), "requestData")
}
