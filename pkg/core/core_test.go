package core

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joeydtaylor/steeze-kv/pkg/codec"
	"github.com/joeydtaylor/steeze-kv/pkg/dispatch"
	manifest "github.com/joeydtaylor/steeze-kv/pkg/manifest"
	"github.com/joeydtaylor/steeze-kv/pkg/middleware/auth"
	"github.com/joeydtaylor/steeze-kv/pkg/negotiate"
	"github.com/joeydtaylor/steeze-kv/pkg/pool"
	"github.com/joeydtaylor/steeze-kv/pkg/query"
	"github.com/joeydtaylor/steeze-kv/pkg/store"
	httpx "github.com/joeydtaylor/steeze-kv/pkg/transport/httpx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// faultyHandle serves a memory store but fails on "BAD".
type faultyHandle struct{ *store.Memory }

func (f faultyHandle) Lookup(ctx context.Context, key string) ([]byte, bool, error) {
	switch key {
	case "BAD":
		return nil, false, errors.New("disk on fire")
	case "SLOW":
		time.Sleep(200 * time.Millisecond)
		key = "US"
	}
	return f.Memory.Lookup(ctx, key)
}

func newServer(t *testing.T, cfg manifest.Config, a *auth.Middleware) http.Handler {
	t.Helper()
	h := faultyHandle{store.NewMemory(map[string][]byte{
		"US":       []byte(`{"name":"United States"}`),
		"FR":       []byte(`{"name":"France","capital":"Paris"}`),
		"RAW":      []byte(`not json`),
		"cc:DE":    []byte(`{"name":"Germany"}`),
		"<script>": []byte(`{"name":"<script>alert(1)</script>"}`),
	})}
	exec, err := query.NewExecutor(h, codec.JSON)
	require.NoError(t, err)

	p := pool.New(h, pool.WithQuerier(exec))
	require.NoError(t, p.Start())
	t.Cleanup(p.Stop)

	n, err := negotiate.New()
	require.NoError(t, err)

	return BuildRouter(cfg, BuildDeps{
		Auth:       a,
		Router:     httpx.NewChi(),
		Dispatcher: dispatch.New(p),
		Negotiator: n,
		Values:     codec.JSON,
	})
}

func get(h http.Handler, path, accept string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLookupNegotiation(t *testing.T) {
	h := newServer(t, manifest.Default(), nil)

	rec := get(h, "/US", "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, `{"name":"United States"}`, rec.Body.String())

	rec = get(h, "/US", "application/yaml")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Equal(t, "name: United States\n", rec.Body.String())

	rec = get(h, "/US", "application/json, application/yaml;q=0.1")
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))

	for _, accept := range []string{"", "text/plain", "*/*"} {
		rec = get(h, "/FR", accept)
		require.Equal(t, http.StatusOK, rec.Code, accept)
		assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Body.String(), "<title>France</title>")
		assert.Contains(t, rec.Body.String(), "Paris")
	}
}

func TestLookupHTMLEscapes(t *testing.T) {
	h := newServer(t, manifest.Default(), nil)
	rec := get(h, "/%3Cscript%3E", "text/html")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<script>alert")
	assert.Contains(t, rec.Body.String(), "&lt;script&gt;")
}

func TestLookupNotFoundIsEmpty404(t *testing.T) {
	h := newServer(t, manifest.Default(), nil)
	rec := get(h, "/ZZ", "application/json")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestLookupFaultsAreGeneric500(t *testing.T) {
	h := newServer(t, manifest.Default(), nil)
	for _, key := range []string{"BAD", "RAW"} {
		rec := get(h, "/"+key, "application/json")
		assert.Equal(t, http.StatusInternalServerError, rec.Code, key)
		assert.Equal(t, "Internal Server Error\n", rec.Body.String(), key)
		assert.NotContains(t, rec.Body.String(), "disk on fire")
	}

	// a fault on one request does not affect the next
	assert.Equal(t, http.StatusOK, get(h, "/US", "application/json").Code)
}

func TestKeyPrefixAndParam(t *testing.T) {
	cfg := manifest.Config{Routes: []manifest.Route{{
		Path:    "/countries/{code}",
		Handler: manifest.HSpec{Type: manifest.HandlerLookup, KeyParam: "code", KeyPrefix: "cc:"},
	}}}
	require.NoError(t, cfg.Validate())
	h := newServer(t, cfg, nil)

	rec := get(h, "/countries/DE", "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"name":"Germany"}`, rec.Body.String())
	assert.Equal(t, http.StatusNotFound, get(h, "/countries/US", "application/json").Code)
}

func post(h http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGraphQLRoute(t *testing.T) {
	h := newServer(t, manifest.Default(), nil)

	rec := post(h, "/graphql", `{"query":"{ country(code: \"US\") { code name } }"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"country":{"code":"US","name":"United States"}}}`, rec.Body.String())

	rec = post(h, "/graphql", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(h, "/graphql", `{"query":"{ country(code: \"BAD\") { name } }"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk on fire")
}

func TestHeartbeatAndUnknownRoutes(t *testing.T) {
	h := newServer(t, manifest.Default(), nil)
	rec := get(h, "/ping", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(h, "/a/b", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGuards(t *testing.T) {
	a, err := auth.New(auth.Config{DevBypass: true, AdminRole: "admin"})
	require.NoError(t, err)

	cfg := manifest.Config{Routes: []manifest.Route{
		{Path: "/open/{name}", Handler: manifest.HSpec{Type: manifest.HandlerLookup}},
		{Path: "/auth/{name}", Guard: manifest.Guard{RequireAuth: true}, Handler: manifest.HSpec{Type: manifest.HandlerLookup}},
		{Path: "/role/{name}", Guard: manifest.Guard{Roles: []string{"reader"}}, Handler: manifest.HSpec{Type: manifest.HandlerLookup}},
		{Path: "/user/{name}", Guard: manifest.Guard{Users: []string{"alice"}}, Handler: manifest.HSpec{Type: manifest.HandlerLookup}},
	}}
	require.NoError(t, cfg.Validate())
	h := newServer(t, cfg, a)

	as := func(path, user, role string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Accept", "application/json")
		if user != "" {
			req.Header.Set("X-Dev-User", user)
			req.Header.Set("X-Dev-Role", role)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, as("/open/US", "", ""))
	assert.Equal(t, http.StatusUnauthorized, as("/auth/US", "", ""))
	assert.Equal(t, http.StatusOK, as("/auth/US", "bob", ""))
	assert.Equal(t, http.StatusForbidden, as("/role/US", "bob", "writer"))
	assert.Equal(t, http.StatusOK, as("/role/US", "bob", "reader"))
	assert.Equal(t, http.StatusOK, as("/role/US", "root", "admin"))
	assert.Equal(t, http.StatusForbidden, as("/user/US", "bob", "reader"))
	assert.Equal(t, http.StatusOK, as("/user/US", "alice", ""))
	assert.Equal(t, http.StatusOK, as("/user/US", "root", "admin"))
	assert.Equal(t, http.StatusUnauthorized, as("/user/US", "", ""))
}

func TestRoutePolicyTimeout(t *testing.T) {
	cfg := manifest.Config{Routes: []manifest.Route{
		{Path: "/fast/{name}", Policy: manifest.Policy{TimeoutMS: 20}, Handler: manifest.HSpec{Type: manifest.HandlerLookup}},
		{Path: "/{name}", Handler: manifest.HSpec{Type: manifest.HandlerLookup}},
	}}
	require.NoError(t, cfg.Validate())
	h := newServer(t, cfg, nil)

	rec := get(h, "/fast/SLOW", "application/json")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error\n", rec.Body.String())

	rec = get(h, "/SLOW", "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"name":"United States"}`, rec.Body.String())
}

func TestGuardWithoutAuthRejects(t *testing.T) {
	cfg := manifest.Config{Routes: []manifest.Route{
		{Path: "/{name}", Guard: manifest.Guard{RequireAuth: true}, Handler: manifest.HSpec{Type: manifest.HandlerLookup}},
	}}
	require.NoError(t, cfg.Validate())
	h := newServer(t, cfg, nil)
	assert.Equal(t, http.StatusUnauthorized, get(h, "/US", "").Code)
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing file uses defaults", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
		require.NoError(t, err)
		assert.Equal(t, manifest.DefaultListen, cfg.Server.Listen)
		assert.Len(t, cfg.Routes, 2)
	})

	t.Run("file and env overrides", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "manifest.toml")
		require.NoError(t, os.WriteFile(p, []byte(`
[server]
listen = "127.0.0.1:9000"

[store]
path = "data.db"
value_codec = "cbor"

[pool]
workers = 5
dispatch_timeout_ms = 250

[[route]]
path = "/{name}"
method = "GET"
  [route.handler]
  type = "lookup"
  [route.guard]
  roles = ["reader"]
`), 0o644))

		t.Setenv("KV_POOL_WORKERS", "7")
		t.Setenv("KV_STORE_PATH", "other.db")
		cfg, err := LoadConfig(p)
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:9000", cfg.Server.Listen)
		assert.Equal(t, "other.db", cfg.Store.Path)
		assert.Equal(t, "cbor", cfg.Store.ValueCodec)
		assert.Equal(t, 7, cfg.Pool.Workers)
		assert.Equal(t, 250, cfg.Pool.DispatchTimeoutMS)
		require.Len(t, cfg.Routes, 1)
		assert.Equal(t, []string{"reader"}, cfg.Routes[0].Guard.Roles)
		assert.Equal(t, "name", cfg.Routes[0].Handler.KeyParam)
	})

	t.Run("bad env", func(t *testing.T) {
		t.Setenv("KV_POOL_WORKERS", "many")
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
		assert.Error(t, err)
	})

	t.Run("bad toml", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "manifest.toml")
		require.NoError(t, os.WriteFile(p, []byte("[[route]\n"), 0o644))
		_, err := LoadConfig(p)
		assert.Error(t, err)
	})
}
