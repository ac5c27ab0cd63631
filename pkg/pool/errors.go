package pool

import "errors"

var (
	// ErrNotFound marks an absent key. It is never carried by a Failed result;
	// callers use it when they need an error value for StatusNotFound.
	ErrNotFound = errors.New("kv: not found")

	// ErrStoreFault wraps I/O, corruption and panics raised by the store or querier.
	ErrStoreFault = errors.New("kv: store fault")

	// ErrPoolUnavailable is returned when no live worker can take the request.
	ErrPoolUnavailable = errors.New("kv: pool unavailable")

	// ErrTimeout means the caller stopped waiting; the worker may still be running.
	ErrTimeout = errors.New("kv: dispatch timeout")

	// ErrNoQuerier is returned for query requests on a pool built without WithQuerier.
	ErrNoQuerier = errors.New("kv: no querier configured")
)

// ErrBadRequest marks caller mistakes (for example a malformed query payload).
// Querier errors wrapping it are passed through instead of becoming ErrStoreFault.
var ErrBadRequest = errors.New("kv: bad request")
