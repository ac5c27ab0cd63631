package manifest

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the top-level manifest.
type Config struct {
	Server Server  `toml:"server"`
	Store  Store   `toml:"store"`
	Pool   Pool    `toml:"pool"`
	Render Render  `toml:"render"`
	Routes []Route `toml:"route"`
}

type Server struct {
	Service string `toml:"service"`
	Listen  string `toml:"listen"`
}

type Store struct {
	Path       string `toml:"path"`
	Table      string `toml:"table"`
	ValueCodec string `toml:"value_codec"` // "json" | "cbor" | "yaml"
}

type Pool struct {
	Workers           int `toml:"workers"`
	QueueDepth        int `toml:"queue_depth"`
	DispatchTimeoutMS int `toml:"dispatch_timeout_ms"`
}

// DispatchTimeout is zero when no bound is configured.
func (p Pool) DispatchTimeout() time.Duration {
	return time.Duration(p.DispatchTimeoutMS) * time.Millisecond
}

type Render struct {
	TemplateGlob string `toml:"template_glob"`
	Template     string `toml:"template"`
}

// Default is the manifest used when no file is present: the two routes of
// the country service on the default port.
func Default() Config {
	c := Config{
		Routes: []Route{
			{Path: "/{name}", Method: "GET", Handler: HSpec{Type: HandlerLookup}},
			{Path: "/graphql", Method: "POST", Handler: HSpec{Type: HandlerQuery}},
		},
	}
	_ = c.Validate()
	return c
}

// Validate fills defaults, normalizes routes and rejects invalid values.
func (c *Config) Validate() error {
	if c.Server.Service == "" {
		c.Server.Service = "steeze-kv"
	}
	if strings.TrimSpace(c.Server.Listen) == "" {
		c.Server.Listen = DefaultListen
	}

	if strings.TrimSpace(c.Store.Path) == "" {
		c.Store.Path = DefaultStorePath
	}
	if c.Store.Table == "" {
		c.Store.Table = DefaultTable
	}
	c.Store.ValueCodec = strings.ToLower(strings.TrimSpace(c.Store.ValueCodec))
	switch c.Store.ValueCodec {
	case "":
		c.Store.ValueCodec = DefaultValueCodec
	case "json", "cbor", "yaml":
	default:
		return fmt.Errorf("store.value_codec %q invalid", c.Store.ValueCodec)
	}

	switch {
	case c.Pool.Workers == 0:
		c.Pool.Workers = DefaultWorkers
	case c.Pool.Workers < 0:
		return errors.New("pool.workers must be > 0")
	}
	if c.Pool.QueueDepth < 0 {
		return errors.New("pool.queue_depth must be >= 0")
	}
	if c.Pool.DispatchTimeoutMS < 0 {
		return errors.New("pool.dispatch_timeout_ms must be >= 0")
	}

	if c.Render.Template == "" {
		c.Render.Template = DefaultTemplate
	}

	if len(c.Routes) == 0 {
		return errors.New("no routes defined")
	}
	return c.validateRoutes()
}
