package serverfx

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joeydtaylor/steeze-kv/pkg/middleware/logger"
	"github.com/joeydtaylor/steeze-kv/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func setup(t *testing.T, listen, storePath string) Options {
	t.Helper()
	dir := t.TempDir()
	old := logger.Dir
	logger.Dir = dir
	t.Cleanup(func() { logger.Dir = old })
	logger.SetAccessLogger(zap.NewNop())

	manifest := filepath.Join(dir, "manifest.toml")
	require.NoError(t, os.WriteFile(manifest, []byte(fmt.Sprintf(`
[server]
listen = %q

[store]
path = %q

[[route]]
path = "/{name}"
  [route.handler]
  type = "lookup"

[[route]]
path = "/graphql"
  [route.handler]
  type = "query"
`, listen, storePath)), 0o644))

	opts := DefaultOptions()
	opts.ManifestEnv = "KV_TEST_MANIFEST"
	t.Setenv("KV_TEST_MANIFEST", manifest)
	t.Setenv("KV_STORE_PATH", "")
	t.Setenv("SERVER_LISTEN_ADDRESS", "")
	t.Setenv("KV_POOL_WORKERS", "")
	return opts
}

func fixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "countries.db")
	l, err := store.CreateSQLite(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, l.Put(context.Background(), "US", []byte(`{"name":"United States"}`)))
	require.NoError(t, l.Commit())
	return path
}

func TestServeLookup(t *testing.T) {
	opts := setup(t, "127.0.0.1:0", fixture(t))

	var srv *Server
	app := fx.New(Module(opts), fx.Populate(&srv))
	require.NoError(t, app.Err())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, app.Start(ctx))
	t.Cleanup(func() { _ = app.Stop(context.Background()) })

	base := "http://" + srv.Addr().String()

	req, err := http.NewRequest(http.MethodGet, base+"/US", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "application/json")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, `{"name":"United States"}`, string(body))

	res, err = http.Get(base + "/ZZ")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	metrics, _ := io.ReadAll(res.Body)
	res.Body.Close()
	assert.Contains(t, string(metrics), "kv_pool_requests_total")
}

func TestMissingStoreAbortsStartup(t *testing.T) {
	opts := setup(t, "127.0.0.1:0", filepath.Join(t.TempDir(), "absent.db"))
	app := fx.New(Module(opts))
	assert.Error(t, app.Err())
}

func TestTakenPortAbortsStartup(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	opts := setup(t, ln.Addr().String(), fixture(t))
	app := fx.New(Module(opts))
	require.NoError(t, app.Err())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	assert.Error(t, app.Start(ctx))
}
