package core

import (
	"context"
	"net/http"

	"github.com/joeydtaylor/steeze-kv/pkg/codec"
	"github.com/joeydtaylor/steeze-kv/pkg/middleware/auth"
	"github.com/joeydtaylor/steeze-kv/pkg/middleware/logger"
	"github.com/joeydtaylor/steeze-kv/pkg/negotiate"
	"github.com/joeydtaylor/steeze-kv/pkg/pool"
	httpx "github.com/joeydtaylor/steeze-kv/pkg/transport/httpx"
	"go.uber.org/zap"
)

// Dispatcher is satisfied by *dispatch.Dispatcher.
type Dispatcher interface {
	Lookup(ctx context.Context, key string) pool.Result
	Query(ctx context.Context, payload []byte) pool.Result
}

type BuildDeps struct {
	Auth       *auth.Middleware
	LogMW      *logger.Middleware
	Metrics    http.Handler
	Router     httpx.Router
	Dispatcher Dispatcher
	Negotiator *negotiate.Negotiator
	// Values decodes stored records before negotiation.
	Values codec.Codec
	Log    *zap.Logger
}

func (d BuildDeps) log() *zap.Logger {
	if d.Log == nil {
		return zap.NewNop()
	}
	return d.Log
}

func (d BuildDeps) values() codec.Codec {
	if d.Values == nil {
		return codec.JSON
	}
	return d.Values
}
