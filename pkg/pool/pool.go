package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// Handle is the store contract workers call for KindLookup requests.
type Handle interface {
	Lookup(ctx context.Context, key string) ([]byte, bool, error)
}

// Querier executes opaque query payloads for KindQuery requests.
type Querier interface {
	Execute(ctx context.Context, payload []byte) ([]byte, error)
}

const (
	DefaultWorkers    = 3
	DefaultQueueDepth = 64
)

type Option func(*Pool)

func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithQueueDepth sets how many requests may wait for a worker. 0 means a
// submission only succeeds once a worker is ready to take it.
func WithQueueDepth(n int) Option {
	return func(p *Pool) {
		if n >= 0 {
			p.depth = n
		}
	}
}

func WithQuerier(q Querier) Option { return func(p *Pool) { p.querier = q } }

func WithLogger(l *zap.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.log = l
		}
	}
}

type Pool struct {
	handle  Handle
	querier Querier
	log     *zap.Logger
	workers int
	depth   int

	inbound chan *Request
	runner  *ants.Pool

	mu      sync.RWMutex
	started bool
	stopped bool
	wg      sync.WaitGroup

	nextID   atomic.Int64
	alive    atomic.Int64
	inflight atomic.Int64
	restarts atomic.Int64

	// onTake runs in the worker loop outside per-request recovery (tests only).
	onTake func(*Request)
}

type worker struct {
	id  int
	log *zap.Logger
}

func New(h Handle, opts ...Option) *Pool {
	p := &Pool{
		handle:  h,
		log:     zap.NewNop(),
		workers: DefaultWorkers,
		depth:   DefaultQueueDepth,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Start spawns the workers. Calling it on a running pool is a no-op.
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrPoolUnavailable
	}
	if p.started {
		return nil
	}
	if p.handle == nil {
		return errors.New("pool: nil store handle")
	}

	runner, err := ants.NewPool(p.workers, ants.WithPanicHandler(p.onWorkerPanic))
	if err != nil {
		return fmt.Errorf("pool: %w", err)
	}
	p.runner = runner
	p.inbound = make(chan *Request, p.depth)

	for i := 0; i < p.workers; i++ {
		if err := p.spawn(); err != nil {
			close(p.inbound)
			p.wg.Wait()
			runner.Release()
			return fmt.Errorf("pool: spawn worker: %w", err)
		}
	}
	p.started = true
	p.log.Info("worker pool started",
		zap.Int("workers", p.workers),
		zap.Int("queueDepth", p.depth),
		zap.Bool("query", p.querier != nil),
	)
	return nil
}

// Stop rejects new work, lets queued requests finish and waits for workers.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.stopped = true
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.inbound)
	p.mu.Unlock()

	p.wg.Wait()
	p.runner.Release()
	queuedGauge.Set(0)
	p.log.Info("worker pool stopped", zap.Int64("restarts", p.restarts.Load()))
}

// Submit hands req to the workers. It blocks while the queue is full and
// gives up when ctx is done.
func (p *Pool) Submit(ctx context.Context, req *Request) error {
	if req == nil || req.reply == nil {
		return errors.New("pool: request not built with NewRequest")
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.started || p.stopped || p.alive.Load() == 0 {
		return ErrPoolUnavailable
	}

	select {
	case p.inbound <- req:
		queuedGauge.Set(float64(len(p.inbound)))
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: queue full", ErrTimeout)
		}
		return ctx.Err()
	}
}

type Stats struct {
	Workers  int
	Alive    int
	Queued   int
	InFlight int
	Restarts int64
}

func (p *Pool) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := Stats{
		Workers:  p.workers,
		Alive:    int(p.alive.Load()),
		InFlight: int(p.inflight.Load()),
		Restarts: p.restarts.Load(),
	}
	if p.inbound != nil && !p.stopped {
		s.Queued = len(p.inbound)
	}
	return s
}

func (p *Pool) spawn() error {
	w := &worker{id: int(p.nextID.Add(1))}
	w.log = p.log.With(zap.String("thread_name", "lookup"), zap.Int("worker", w.id))
	in := p.inbound

	p.wg.Add(1)
	p.alive.Add(1)
	err := p.runner.Submit(func() {
		defer p.wg.Done()
		defer p.alive.Add(-1)
		p.loop(in, w)
	})
	if err != nil {
		p.alive.Add(-1)
		p.wg.Done()
	}
	return err
}

func (p *Pool) onWorkerPanic(v any) {
	p.log.Error("worker loop crashed", zap.Any("panic", v))
	go p.respawn()
}

func (p *Pool) respawn() {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return
	}
	if err := p.spawn(); err != nil {
		p.log.Error("worker respawn failed", zap.Error(err))
		return
	}
	p.restarts.Add(1)
	workerRestarts.Inc()
}

func (p *Pool) loop(in <-chan *Request, w *worker) {
	var cur *Request
	defer func() {
		// Runs while a crash unwinds; the caller still gets its one result.
		if cur != nil {
			cur.deliver(Failed(fmt.Errorf("%w: worker %d crashed", ErrStoreFault, w.id)))
		}
	}()

	w.log.Debug("worker started")
	for req := range in {
		cur = req
		queuedGauge.Set(float64(len(in)))
		if p.onTake != nil {
			p.onTake(req)
		}
		p.handleRequest(req, w)
		cur = nil
	}
	w.log.Debug("worker exiting")
}

func (p *Pool) handleRequest(req *Request, w *worker) {
	p.inflight.Add(1)
	inflightGauge.Inc()
	start := time.Now()

	res := p.execute(req, w)

	requestDuration.WithLabelValues(req.Kind.String()).Observe(time.Since(start).Seconds())
	requestsTotal.WithLabelValues(req.Kind.String(), res.Status.String()).Inc()
	inflightGauge.Dec()
	p.inflight.Add(-1)

	req.deliver(res)
}

func (p *Pool) execute(req *Request, w *worker) (res Result) {
	log := req.Log.With(zap.Int("worker", w.id))
	defer func() {
		if r := recover(); r != nil {
			log.Error("request panicked", zap.Any("panic", r), zap.Stack("stack"))
			res = Failed(fmt.Errorf("%w: panic: %v", ErrStoreFault, r))
		}
	}()

	ctx := context.Background()
	switch req.Kind {
	case KindLookup:
		v, ok, err := p.handle.Lookup(ctx, req.Key)
		if err != nil {
			log.Error("lookup failed", zap.String("key", req.Key), zap.Error(err))
			return Failed(fmt.Errorf("%w: %w", ErrStoreFault, err))
		}
		if !ok {
			log.Debug("key not found", zap.String("key", req.Key))
			return NotFound()
		}
		return Found(v)

	case KindQuery:
		if p.querier == nil {
			return Failed(ErrNoQuerier)
		}
		out, err := p.querier.Execute(ctx, req.Payload)
		if err != nil {
			if errors.Is(err, ErrBadRequest) {
				log.Info("query rejected", zap.Error(err))
				return Failed(err)
			}
			log.Error("query failed", zap.Error(err))
			return Failed(fmt.Errorf("%w: %w", ErrStoreFault, err))
		}
		return Found(out)

	default:
		return Failed(fmt.Errorf("pool: unknown request kind %s", req.Kind))
	}
}
