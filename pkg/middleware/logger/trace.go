package logger

import (
	"time"

	"go.uber.org/zap"
)

// Trace logs "<name> finished" with the elapsed time when the returned func
// runs. Use as: defer logger.Trace(log, "render")().
func Trace(l *zap.Logger, name string, fields ...zap.Field) func() {
	start := time.Now()
	return func() {
		if ce := l.Check(zap.DebugLevel, name+" finished"); ce != nil {
			ce.Write(append(fields, zap.Duration("elapsed", time.Since(start)))...)
		}
	}
}
