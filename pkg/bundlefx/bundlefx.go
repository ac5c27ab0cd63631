// Package bundlefx groups the HTTP middleware providers.
package bundlefx

import (
	"github.com/joeydtaylor/steeze-kv/pkg/middleware/auth"
	"github.com/joeydtaylor/steeze-kv/pkg/middleware/logger"
	"github.com/joeydtaylor/steeze-kv/pkg/middleware/metrics"
	"go.uber.org/fx"
)

// Module provided to fx
var Module = fx.Options(
	auth.Module,
	logger.Module,
	metrics.Module,
)
