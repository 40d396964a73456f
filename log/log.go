// Package log provides named loggers for the exchange engine.
//
// Each package grabs its own logger once:
//
//	var log = logger.Logger("fill")
package log

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.Mutex
	level   = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	root    *zap.Logger
	loggers = make(map[string]*zap.SugaredLogger)
)

func init() {
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.DisableStacktrace = true
	l, err := cfg.Build()
	if err != nil {
		l = zap.NewNop()
	}
	root = l
}

// Logger returns the named logger, creating it on first use.
func Logger(name string) *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[name]; ok {
		return l
	}
	l := root.Named(name).Sugar()
	loggers[name] = l
	return l
}

// SetLogLevel changes the level for every named logger.
func SetLogLevel(lvl zapcore.Level) {
	level.SetLevel(lvl)
}
