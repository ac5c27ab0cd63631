// Package pool runs blocking key-value operations on a fixed set of workers.
//
// Callers build a Request (NewRequest or NewQueryRequest), Submit it, and read
// the single Result from Request.Reply. Workers share one bounded inbound
// channel, so at most N operations are in flight and further submissions
// queue (and eventually block) until a worker frees up.
//
// Per-request faults never leave a worker: store errors and panics become a
// Failed result wrapping ErrStoreFault. Worker loops are hosted on an ants
// pool; if a loop dies anyway it is replaced while the pool is running.
package pool
