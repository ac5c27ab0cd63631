package core

import (
	"errors"
	"io"
	"net/http"

	chimd "github.com/go-chi/chi/v5/middleware"
	manifest "github.com/joeydtaylor/steeze-kv/pkg/manifest"
	"github.com/joeydtaylor/steeze-kv/pkg/middleware/logger"
	hmetrics "github.com/joeydtaylor/steeze-kv/pkg/middleware/metrics"
	"github.com/joeydtaylor/steeze-kv/pkg/negotiate"
	"github.com/joeydtaylor/steeze-kv/pkg/pool"
	httpx "github.com/joeydtaylor/steeze-kv/pkg/transport/httpx"
	"go.uber.org/zap"
)

// maxQueryBytes caps POST bodies handed to the query collaborator.
const maxQueryBytes = 1 << 20

func wrapRoute(rt manifest.Route, d BuildDeps) http.HandlerFunc {
	if d.Dispatcher == nil {
		return func(w http.ResponseWriter, _ *http.Request) {
			writeStatus(w, http.StatusServiceUnavailable)
		}
	}
	switch rt.Handler.Type {
	case manifest.HandlerLookup:
		return lookupHandler(rt.Handler, d)
	case manifest.HandlerQuery:
		return queryHandler(d)
	default:
		return func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "unknown handler type", http.StatusInternalServerError)
		}
	}
}

func lookupHandler(hs manifest.HSpec, d BuildDeps) http.HandlerFunc {
	values := d.values()
	return func(w http.ResponseWriter, r *http.Request) {
		key := hs.KeyPrefix + httpx.Param(r, hs.KeyParam)
		log := d.log().With(
			zap.String("requestId", chimd.GetReqID(r.Context())),
			zap.String("key", key),
		)

		res := d.Dispatcher.Lookup(r.Context(), key)
		switch res.Status {
		case pool.StatusNotFound:
			w.WriteHeader(http.StatusNotFound)
			return
		case pool.StatusFailed:
			log.Error("lookup failed", zap.Error(res.Err))
			writeStatus(w, http.StatusInternalServerError)
			return
		}

		var v any
		if err := values.Unmarshal(res.Value, &v); err != nil {
			log.Error("decode record", zap.Error(err), zap.String("codec", values.ContentType()))
			writeStatus(w, http.StatusInternalServerError)
			return
		}

		pref := r.Header.Get("Accept")
		out, err := render(d.Negotiator, log, pref, v)
		if err != nil {
			log.Error("render record", zap.Error(err), zap.String("accept", pref))
			writeStatus(w, http.StatusInternalServerError)
			return
		}
		hmetrics.ObserveFormat(negotiate.Select(pref).String())

		w.Header().Set("Content-Type", out.ContentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(out.Body)
	}
}

func render(n *negotiate.Negotiator, log *zap.Logger, pref string, v any) (negotiate.Response, error) {
	defer logger.Trace(log, "render", zap.Stringer("format", negotiate.Select(pref)))()
	if n == nil {
		return negotiate.Response{}, negotiate.ErrSerialization
	}
	return n.Negotiate(pref, v)
}

func queryHandler(d BuildDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := d.log().With(zap.String("requestId", chimd.GetReqID(r.Context())))

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxQueryBytes))
		if err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				writeStatus(w, http.StatusRequestEntityTooLarge)
				return
			}
			writeStatus(w, http.StatusBadRequest)
			return
		}

		res := d.Dispatcher.Query(r.Context(), body)
		switch {
		case res.IsFound():
			writeJSON(w, res.Value, http.StatusOK)
		case errors.Is(res.Err, pool.ErrBadRequest):
			log.Info("bad query payload", zap.Error(res.Err))
			writeStatus(w, http.StatusBadRequest)
		default:
			log.Error("query failed", zap.Error(res.Err))
			writeStatus(w, http.StatusInternalServerError)
		}
	}
}
