package pool

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Kind selects which blocking operation a worker performs.
type Kind int

const (
	KindLookup Kind = iota
	KindQuery
)

func (k Kind) String() string {
	switch k {
	case KindLookup:
		return "lookup"
	case KindQuery:
		return "query"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Status is the tag of a Result.
type Status int

const (
	StatusFound Status = iota
	StatusNotFound
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusNotFound:
		return "not_found"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is delivered exactly once per Request.
type Result struct {
	Status Status
	Value  []byte
	Err    error
}

func Found(v []byte) Result     { return Result{Status: StatusFound, Value: v} }
func NotFound() Result          { return Result{Status: StatusNotFound} }
func Failed(err error) Result   { return Result{Status: StatusFailed, Err: err} }
func (r Result) IsFound() bool  { return r.Status == StatusFound }
func (r Result) IsFailed() bool { return r.Status == StatusFailed }

// Request is one unit of work. The reply channel has capacity one so the
// worker never blocks on a caller that stopped waiting.
type Request struct {
	ID      string
	Kind    Kind
	Key     string
	Payload []byte
	Log     *zap.Logger

	reply chan Result
}

// NewRequest builds a lookup request with a fresh reply channel.
func NewRequest(key string, log *zap.Logger) *Request {
	return newRequest(KindLookup, key, nil, log)
}

// NewQueryRequest builds a query request carrying an opaque payload.
func NewQueryRequest(payload []byte, log *zap.Logger) *Request {
	return newRequest(KindQuery, "", payload, log)
}

func newRequest(kind Kind, key string, payload []byte, log *zap.Logger) *Request {
	if log == nil {
		log = zap.NewNop()
	}
	return &Request{
		ID:      uuid.NewString(),
		Kind:    kind,
		Key:     key,
		Payload: payload,
		Log:     log,
		reply:   make(chan Result, 1),
	}
}

// Reply is the receive side of the request's single-use reply channel.
func (r *Request) Reply() <-chan Result { return r.reply }

func (r *Request) deliver(res Result) {
	select {
	case r.reply <- res:
	default:
		// Already answered; exactly-once is enforced here.
		r.Log.Error("duplicate reply dropped", zap.String("requestId", r.ID))
	}
}
