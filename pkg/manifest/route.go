package manifest

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

// Route describes a single HTTP route.
type Route struct {
	Path    string   `toml:"path"`
	Method  string   `toml:"method"`
	Guard   Guard    `toml:"guard"`
	Policy  Policy   `toml:"policy"`
	Handler HSpec    `toml:"handler"`
	Tags    []string `toml:"tags"`
}

type Guard struct {
	Roles       []string `toml:"roles"`
	Users       []string `toml:"users"`
	RequireAuth bool     `toml:"require_auth"`
}

type Policy struct {
	TimeoutMS int `toml:"timeout_ms"`
}

// Timeout is zero when the route has no bound of its own.
func (p Policy) Timeout() time.Duration { return time.Duration(p.TimeoutMS) * time.Millisecond }

type HSpec struct {
	Type HandlerType `toml:"type"`
	// KeyParam names the path parameter holding the lookup key (lookup only).
	KeyParam string `toml:"key_param"`
	// KeyPrefix is prepended to the path parameter before the store lookup.
	KeyPrefix string `toml:"key_prefix"`
}

// normalize path/method/handler defaults
func (r *Route) normalize() error {
	if r.Path == "" {
		return errors.New("path is required")
	}
	if !strings.HasPrefix(r.Path, "/") {
		r.Path = "/" + r.Path
	}
	if r.Path != "/" {
		r.Path = path.Clean(r.Path)
	}
	r.Method = strings.ToUpper(strings.TrimSpace(r.Method))
	if r.Method == "" {
		switch r.Handler.Type {
		case HandlerQuery:
			r.Method = "POST"
		default:
			r.Method = "GET"
		}
	}
	if r.Handler.Type == HandlerLookup && r.Handler.KeyParam == "" {
		r.Handler.KeyParam = DefaultKeyParam
	}
	return nil
}

// validate fields that are independent of global state.
func (r *Route) validate() error {
	switch r.Handler.Type {
	case HandlerLookup:
		if !strings.Contains(r.Path, "{"+r.Handler.KeyParam+"}") {
			return fmt.Errorf("lookup path must contain {%s}", r.Handler.KeyParam)
		}
		if r.Method != "GET" && r.Method != "HEAD" {
			return fmt.Errorf("lookup handler requires GET, got %s", r.Method)
		}
	case HandlerQuery:
		if r.Method != "POST" {
			return fmt.Errorf("query handler requires POST, got %s", r.Method)
		}
	default:
		return fmt.Errorf("unknown handler type %q", r.Handler.Type)
	}

	if r.Policy.TimeoutMS < 0 {
		return errors.New("policy.timeout_ms must be >= 0")
	}
	return nil
}
