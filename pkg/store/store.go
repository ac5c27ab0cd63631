package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// Handle is the blocking lookup contract the worker pool depends on.
type Handle interface {
	// Lookup returns the stored value for key. ok is false when the key is absent.
	Lookup(ctx context.Context, key string) (value []byte, ok bool, err error)
	Close() error
}

// DefaultTable is the table name used when the manifest does not set one.
const DefaultTable = "kv"

var ErrClosed = errors.New("store: handle closed")

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validTable(name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("store: invalid table name %q", name)
	}
	return nil
}
