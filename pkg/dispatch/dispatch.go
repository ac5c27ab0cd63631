// Package dispatch bridges request-serving goroutines to the worker pool.
//
// Dispatch submits a request and returns a Pending; Wait parks only the
// calling goroutine until the worker replies. Abandoning a Pending is safe:
// the reply channel is buffered, so the worker's write never blocks and the
// orphaned result is collected with the request.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	chimd "github.com/go-chi/chi/v5/middleware"
	"github.com/joeydtaylor/steeze-kv/pkg/pool"
	"go.uber.org/zap"
)

// Submitter is the part of *pool.Pool the dispatcher needs.
type Submitter interface {
	Submit(ctx context.Context, req *pool.Request) error
}

type Option func(*Dispatcher)

// WithTimeout bounds Lookup and Query. Zero disables the bound.
func WithTimeout(d time.Duration) Option { return func(x *Dispatcher) { x.timeout = d } }

func WithLogger(l *zap.Logger) Option {
	return func(x *Dispatcher) {
		if l != nil {
			x.log = l
		}
	}
}

type Dispatcher struct {
	pool    Submitter
	timeout time.Duration
	log     *zap.Logger
}

func New(p Submitter, opts ...Option) *Dispatcher {
	d := &Dispatcher{pool: p, log: zap.NewNop()}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Pending is an in-flight request.
type Pending struct {
	req     *pool.Request
	started time.Time

	once sync.Once
	done chan struct{}
	res  pool.Result
}

func (p *Pending) ID() string { return p.req.ID }

// Wait returns the worker's result, or a Failed result once ctx is done.
// A deadline maps to pool.ErrTimeout; the worker may still finish later and a
// later Wait picks the reply up. Once received, the result is returned to
// every caller.
func (p *Pending) Wait(ctx context.Context) pool.Result {
	select {
	case <-p.done:
		return p.res
	default:
	}
	select {
	case res := <-p.req.Reply():
		p.once.Do(func() {
			p.res = res
			close(p.done)
		})
		return res
	case <-p.done:
		return p.res
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return pool.Failed(fmt.Errorf("%w after %s", pool.ErrTimeout, time.Since(p.started).Round(time.Millisecond)))
		}
		return pool.Failed(ctx.Err())
	}
}

// Dispatch submits a lookup for key.
func (d *Dispatcher) Dispatch(ctx context.Context, key string) (*Pending, error) {
	return d.submit(ctx, pool.NewRequest(key, d.requestLog(ctx, zap.String("key", key))))
}

// DispatchQuery submits an opaque query payload.
func (d *Dispatcher) DispatchQuery(ctx context.Context, payload []byte) (*Pending, error) {
	return d.submit(ctx, pool.NewQueryRequest(payload, d.requestLog(ctx, zap.Int("payloadSize", len(payload)))))
}

// Lookup dispatches and waits under the configured timeout.
func (d *Dispatcher) Lookup(ctx context.Context, key string) pool.Result {
	ctx, cancel := d.bound(ctx)
	defer cancel()
	p, err := d.Dispatch(ctx, key)
	if err != nil {
		return pool.Failed(err)
	}
	return d.await(ctx, p)
}

// Query is Lookup for query payloads.
func (d *Dispatcher) Query(ctx context.Context, payload []byte) pool.Result {
	ctx, cancel := d.bound(ctx)
	defer cancel()
	p, err := d.DispatchQuery(ctx, payload)
	if err != nil {
		return pool.Failed(err)
	}
	return d.await(ctx, p)
}

func (d *Dispatcher) submit(ctx context.Context, req *pool.Request) (*Pending, error) {
	if d.pool == nil {
		return nil, pool.ErrPoolUnavailable
	}
	started := time.Now()
	if err := d.pool.Submit(ctx, req); err != nil {
		req.Log.Warn("dispatch failed", zap.String("kind", req.Kind.String()), zap.Error(err))
		return nil, err
	}
	return &Pending{req: req, started: started, done: make(chan struct{})}, nil
}

func (d *Dispatcher) await(ctx context.Context, p *Pending) pool.Result {
	res := p.Wait(ctx)
	if res.IsFailed() && errors.Is(res.Err, pool.ErrTimeout) {
		p.req.Log.Warn("dispatch timed out", zap.Error(res.Err))
	}
	return res
}

func (d *Dispatcher) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d.timeout)
}

func (d *Dispatcher) requestLog(ctx context.Context, fields ...zap.Field) *zap.Logger {
	if rid := chimd.GetReqID(ctx); rid != "" {
		fields = append(fields, zap.String("requestId", rid))
	}
	return d.log.With(fields...)
}
