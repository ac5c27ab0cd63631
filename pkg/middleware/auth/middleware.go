package auth

import (
	"crypto/rsa"
	"time"
)

type contextKey struct{ name string }

var userCtxKey = &contextKey{"user"}

// Middleware verifies bearer or cookie assertions and stores the resulting
// User on the request context. Requests without credentials pass through
// unauthenticated; route guards decide what to do with them.
type Middleware struct {
	adminRole string
	devBypass bool

	cookieName string
	issuer     string
	audience   string
	leeway     time.Duration

	// exactly one of hmacKey / rsaKey is set when verification is enabled
	hmacKey []byte
	rsaKey  *rsa.PublicKey
}

// Enabled reports whether a verification key is configured.
func (m *Middleware) Enabled() bool {
	return m != nil && (len(m.hmacKey) > 0 || m.rsaKey != nil)
}
