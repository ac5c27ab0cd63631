package serverfx

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/joeydtaylor/steeze-kv/pkg/bundlefx"
	"github.com/joeydtaylor/steeze-kv/pkg/codec"
	"github.com/joeydtaylor/steeze-kv/pkg/core"
	"github.com/joeydtaylor/steeze-kv/pkg/dispatch"
	"github.com/joeydtaylor/steeze-kv/pkg/manifest"
	"github.com/joeydtaylor/steeze-kv/pkg/middleware/auth"
	"github.com/joeydtaylor/steeze-kv/pkg/middleware/logger"
	"github.com/joeydtaylor/steeze-kv/pkg/negotiate"
	"github.com/joeydtaylor/steeze-kv/pkg/pool"
	"github.com/joeydtaylor/steeze-kv/pkg/query"
	"github.com/joeydtaylor/steeze-kv/pkg/store"
	"github.com/joeydtaylor/steeze-kv/pkg/transport/httpx"
	"github.com/joeydtaylor/steeze-kv/pkg/version"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Options allow per-service env keys/defaults without code duplication.
type Options struct {
	Service         string // log tag only
	ManifestEnv     string // e.g. "KV_MANIFEST"
	DefaultManifest string // e.g. "manifest.toml"
	TLSCertEnv      string // e.g. "SSL_SERVER_CERTIFICATE"
	TLSKeyEnv       string // e.g. "SSL_SERVER_KEY"
}

func DefaultOptions() Options {
	return Options{
		Service:         "steeze-kv",
		ManifestEnv:     "KV_MANIFEST",
		DefaultManifest: core.DefaultManifestPath,
		TLSCertEnv:      "SSL_SERVER_CERTIFICATE",
		TLSKeyEnv:       "SSL_SERVER_KEY",
	}
}

// ---- Config ----

func provideConfig(opts Options, log *zap.Logger) (manifest.Config, error) {
	path := envOr(opts.ManifestEnv, opts.DefaultManifest)
	cfg, err := core.LoadConfig(path)
	if err != nil {
		log.Error("manifest load failed", zap.Error(err), zap.String("path", path))
		return manifest.Config{}, err
	}
	if cfg.Server.Service == "" || cfg.Server.Service == "steeze-kv" {
		cfg.Server.Service = opts.Service
	}
	log.Info("manifest loaded",
		zap.String("path", path),
		zap.Int("routes", len(cfg.Routes)),
		zap.String("store", cfg.Store.Path),
	)
	return cfg, nil
}

// ---- Store / query / pool ----

// provideStore opens the store once at startup; failure aborts the app.
func provideStore(lc fx.Lifecycle, cfg manifest.Config, log *zap.Logger) (store.Handle, error) {
	h, err := store.OpenSQLite(context.Background(), cfg.Store.Path,
		store.WithTable(cfg.Store.Table),
		store.WithMaxConns(cfg.Pool.Workers),
	)
	if err != nil {
		log.Error("store open failed", zap.Error(err), zap.String("path", cfg.Store.Path))
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return h.Close() }})
	return h, nil
}

func provideValueCodec(cfg manifest.Config) (codec.Codec, error) {
	return codec.ByName(cfg.Store.ValueCodec)
}

func provideQuery(h store.Handle, c codec.Codec) (*query.Executor, error) {
	return query.NewExecutor(h, c)
}

func providePool(lc fx.Lifecycle, cfg manifest.Config, h store.Handle, q *query.Executor, log *zap.Logger) *pool.Pool {
	p := pool.New(h,
		pool.WithWorkers(cfg.Pool.Workers),
		pool.WithQueueDepth(cfg.Pool.QueueDepth),
		pool.WithQuerier(q),
		pool.WithLogger(log),
	)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error { return p.Start() },
		OnStop: func(context.Context) error {
			p.Stop()
			return nil
		},
	})
	return p
}

func provideDispatcher(p *pool.Pool, cfg manifest.Config, log *zap.Logger) *dispatch.Dispatcher {
	return dispatch.New(p,
		dispatch.WithTimeout(cfg.Pool.DispatchTimeout()),
		dispatch.WithLogger(log),
	)
}

func provideNegotiator(cfg manifest.Config) (*negotiate.Negotiator, error) {
	var opts []negotiate.Option
	if cfg.Render.TemplateGlob != "" {
		opts = append(opts, negotiate.WithTemplateGlob(cfg.Render.TemplateGlob))
	}
	opts = append(opts, negotiate.WithTemplateName(cfg.Render.Template))
	return negotiate.New(opts...)
}

// ---- Router ----

type routerDeps struct {
	fx.In

	Cfg manifest.Config

	AuthMW *auth.Middleware
	LogMW  *logger.Middleware

	Metrics http.Handler `name:"metrics"`

	Dispatcher *dispatch.Dispatcher
	Negotiator *negotiate.Negotiator
	Values     codec.Codec
	R          httpx.Router
	Log        *zap.Logger
}

func provideRouter(d routerDeps) http.Handler {
	for _, rt := range d.Cfg.Routes {
		if rt.Handler.Type == manifest.HandlerQuery {
			logger.AddBodyLogPaths(rt.Path)
		}
	}
	return core.BuildRouter(d.Cfg, core.BuildDeps{
		Auth:       d.AuthMW,
		LogMW:      d.LogMW,
		Metrics:    d.Metrics,
		Router:     d.R,
		Dispatcher: d.Dispatcher,
		Negotiator: d.Negotiator,
		Values:     d.Values,
		Log:        d.Log,
	})
}

// ---- Server lifecycle ----

// Server exposes the bound address once the app has started.
type Server struct {
	srv  *http.Server
	addr net.Addr
}

// Addr is nil until OnStart has bound the listener.
func (s *Server) Addr() net.Addr { return s.addr }

type serverDeps struct {
	fx.In
	Opts   Options
	Cfg    manifest.Config
	Logger *zap.Logger
	App    http.Handler `name:"app"`
}

func provideServer(lc fx.Lifecycle, d serverDeps) *Server {
	cert := os.Getenv(d.Opts.TLSCertEnv)
	key := os.Getenv(d.Opts.TLSKeyEnv)
	useTLS := fileExists(cert) && fileExists(key)

	s := &Server{srv: &http.Server{
		Addr:         d.Cfg.Server.Listen,
		Handler:      d.App,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}}
	if useTLS {
		s.srv.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS13, MaxVersion: tls.VersionTLS13}
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			// bind synchronously so a taken port aborts startup
			ln, err := net.Listen("tcp", s.srv.Addr)
			if err != nil {
				d.Logger.Error("listen failed", zap.Error(err), zap.String("addr", s.srv.Addr))
				return err
			}
			s.addr = ln.Addr()

			mode := "PLAINTEXT"
			if useTLS {
				mode = "TLS"
			}
			d.Logger.Info("server starting ("+mode+")",
				zap.String("service", d.Cfg.Server.Service),
				zap.String("addr", s.addr.String()),
				zap.String("version", version.Short()),
			)
			go func() {
				var err error
				if useTLS {
					err = s.srv.ServeTLS(ln, cert, key)
				} else {
					err = s.srv.Serve(ln)
				}
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					d.Logger.Error("server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			d.Logger.Info("server stopping", zap.String("service", d.Cfg.Server.Service))
			return s.srv.Shutdown(ctx)
		},
	})
	return s
}

// ---- Public Fx module ----

func Module(opts Options) fx.Option {
	return fx.Options(
		fx.Supply(opts),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l}
		}),

		// auth, logger, metrics (named)
		bundlefx.Module,

		fx.Provide(
			provideConfig,
			provideStore,
			provideValueCodec,
			provideQuery,
			providePool,
			provideDispatcher,
			provideNegotiator,
			httpx.NewChi,
			fx.Annotate(provideRouter, fx.ResultTags(`name:"app"`)),
			provideServer,
		),

		fx.Invoke(func(*Server) {}),
	)
}

// ---- helpers ----

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
