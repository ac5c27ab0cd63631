package logger

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/joeydtaylor/steeze-kv/pkg/version"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Dir is where NewLog writes its rotated files.
var Dir = envOr("LOG_DIR", "log")

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func ensureLogDir() string {
	_ = os.MkdirAll(Dir, 0o755)
	return Dir
}

// NewLog tees JSON records to a rotated file under Dir and to stdout.
// Every record carries the build commit.
func NewLog(n string) *zap.Logger {
	dir := ensureLogDir()

	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	console := zapcore.Lock(os.Stdout)

	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(dir, n),
		MaxSize:    50, // MB
		MaxBackups: 3,
		MaxAge:     7, // days
	})

	lvl := level()
	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(cfg), w, lvl),
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig()), console, lvl),
	)
	return zap.New(core).With(zap.String("sha", version.Short()))
}

func consoleConfig() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	return cfg
}

// level reads LOG_LEVEL; unknown values fall back to info.
func level() zapcore.Level {
	lvl := zap.InfoLevel
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		_ = lvl.UnmarshalText([]byte(v))
	}
	return lvl
}

// access logger, built on first use so importing the package creates no files
var (
	accessMu         sync.Mutex
	httpAccessLogger atomic.Pointer[zap.Logger]
)

func accessLogger() *zap.Logger {
	if l := httpAccessLogger.Load(); l != nil {
		return l
	}
	accessMu.Lock()
	defer accessMu.Unlock()
	if l := httpAccessLogger.Load(); l != nil {
		return l
	}
	l := NewLog("http-access.log")
	httpAccessLogger.Store(l)
	return l
}

// SetAccessLogger lets tests/CLIs override the access logger.
func SetAccessLogger(l *zap.Logger) {
	if l != nil {
		httpAccessLogger.Store(l)
	}
}
