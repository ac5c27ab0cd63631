// Package query executes GraphQL payloads against the key-value store.
//
// It is the opaque query collaborator run inside pool workers: Execute takes
// a GraphQL-over-HTTP JSON body and returns the JSON-encoded response.
//
//	{ country(code: "US") { code name field(name: "capital") } }
//	{ countries(codes: ["US", "FR"]) { code record } }
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/graphql-go/graphql"
	"github.com/joeydtaylor/steeze-kv/pkg/codec"
	"github.com/joeydtaylor/steeze-kv/pkg/pool"
)

// ErrBadQuery marks payloads that are not a GraphQL request at all.
var ErrBadQuery = fmt.Errorf("query: malformed payload: %w", pool.ErrBadRequest)

type request struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
	OperationName string         `json:"operationName"`
}

type record struct {
	code   string
	fields map[string]any
}

type Executor struct {
	handle pool.Handle
	codec  codec.Codec
	schema graphql.Schema
}

func NewExecutor(h pool.Handle, c codec.Codec) (*Executor, error) {
	if c == nil {
		c = codec.JSON
	}
	e := &Executor{handle: h, codec: c}
	schema, err := e.buildSchema()
	if err != nil {
		return nil, fmt.Errorf("query: schema: %w", err)
	}
	e.schema = schema
	return e, nil
}

// Execute runs one GraphQL request. Field errors are reported inside the
// response body; store faults hit by any resolver fail the whole call.
func (e *Executor) Execute(ctx context.Context, payload []byte) ([]byte, error) {
	var req request
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadQuery, err)
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("%w: empty query", ErrBadQuery)
	}

	f := &faults{}
	res := graphql.Do(graphql.Params{
		Schema:         e.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        context.WithValue(ctx, faultsKey{}, f),
	})
	if err := f.first(); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	out, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("query: encode result: %w", err)
	}
	return out, nil
}

func (e *Executor) lookup(ctx context.Context, code string) (*record, error) {
	raw, ok, err := e.handle.Lookup(ctx, code)
	if err != nil {
		noteFault(ctx, err)
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var v any
	if err := e.codec.Unmarshal(raw, &v); err != nil {
		err = fmt.Errorf("decode %q: %w", code, err)
		noteFault(ctx, err)
		return nil, err
	}
	fields, isMap := v.(map[string]any)
	if !isMap {
		fields = map[string]any{"value": v}
	}
	return &record{code: code, fields: fields}, nil
}

type faultsKey struct{}

type faults struct {
	mu  sync.Mutex
	err error
}

func (f *faults) first() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func noteFault(ctx context.Context, err error) {
	f, ok := ctx.Value(faultsKey{}).(*faults)
	if !ok {
		return
	}
	f.mu.Lock()
	if f.err == nil {
		f.err = err
	}
	f.mu.Unlock()
}
