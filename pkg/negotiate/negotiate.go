// Package negotiate renders a looked-up record in the format a client asks for.
package negotiate

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/joeydtaylor/steeze-kv/pkg/codec"
)

//go:embed templates/*.html
var builtin embed.FS

// ErrSerialization means the value could not be rendered in the chosen format.
var ErrSerialization = errors.New("negotiate: serialization fault")

const (
	MIMEYAML = "application/yaml"
	MIMEJSON = "application/json"
	MIMEHTML = "text/html; charset=utf-8"

	DefaultTemplate = "country.html"
)

type Format int

const (
	FormatHTML Format = iota
	FormatJSON
	FormatYAML
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	default:
		return "html"
	}
}

// Select maps a preference string (an Accept header value) to a format.
// YAML wins over JSON when both appear; anything else renders HTML.
func Select(preference string) Format {
	switch {
	case strings.Contains(preference, MIMEYAML):
		return FormatYAML
	case strings.Contains(preference, MIMEJSON):
		return FormatJSON
	default:
		return FormatHTML
	}
}

// Response is a rendered body and its content type.
type Response struct {
	Body        []byte
	ContentType string
}

type config struct {
	glob string
	name string
}

type Option func(*config)

// WithTemplateGlob adds templates from disk; a file named like the built-in
// country.html replaces it.
func WithTemplateGlob(glob string) Option { return func(c *config) { c.glob = glob } }

func WithTemplateName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.name = name
		}
	}
}

type Negotiator struct {
	tmpl *template.Template
	name string
	json codec.Codec
	yaml codec.Codec
}

func New(opts ...Option) (*Negotiator, error) {
	cfg := config{name: DefaultTemplate}
	for _, o := range opts {
		o(&cfg)
	}

	t, err := template.New("").Option("missingkey=zero").ParseFS(builtin, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("negotiate: builtin templates: %w", err)
	}
	if cfg.glob != "" {
		if t, err = t.ParseGlob(cfg.glob); err != nil {
			return nil, fmt.Errorf("negotiate: templates %q: %w", cfg.glob, err)
		}
	}
	if t.Lookup(cfg.name) == nil {
		return nil, fmt.Errorf("negotiate: template %q not defined", cfg.name)
	}
	return &Negotiator{tmpl: t, name: cfg.name, json: codec.JSONStrict, yaml: codec.YAML}, nil
}

// Negotiate renders v for preference. It has no side effects.
func (n *Negotiator) Negotiate(preference string, v any) (Response, error) {
	var (
		res Response
		err error
	)
	switch f := Select(preference); f {
	case FormatYAML:
		res.ContentType = MIMEYAML
		res.Body, err = n.yaml.Marshal(v)
	case FormatJSON:
		res.ContentType = MIMEJSON
		res.Body, err = n.json.Marshal(v)
	default:
		res.ContentType = MIMEHTML
		res.Body, err = n.render(v)
	}
	if err != nil {
		return Response{}, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	if len(res.Body) == 0 {
		return Response{}, fmt.Errorf("%w: empty %s body", ErrSerialization, Select(preference))
	}
	return res, nil
}

func (n *Negotiator) render(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := n.tmpl.ExecuteTemplate(&buf, n.name, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
