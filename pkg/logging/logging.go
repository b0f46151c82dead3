// Package logging wires the shared logger onto a zap core.
package logging

import (
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the application logger backed by zap.
func New(appName, level string, pretty bool) (ectologger.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if pretty {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)

	zlog, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}
	sink := zlog.Sugar().With("app", appName)

	logger := ectologger.NewEctoLogger(func(m ectologger.EctoLogMessage) {
		kv := make([]any, 0, (len(m.Fields)+1)*2)
		for k, v := range m.Fields {
			kv = append(kv, k, v)
		}
		if m.Err != nil {
			kv = append(kv, "error", m.Err)
		}
		entry := sink.With(kv...)

		switch strings.ToLower(fmt.Sprint(m.Level)) {
		case "debug":
			entry.Debug(m.Message)
		case "warn", "warning":
			entry.Warn(m.Message)
		case "error":
			entry.Error(m.Message)
		case "fatal":
			entry.Fatal(m.Message)
		default:
			entry.Info(m.Message)
		}
	})
	return logger, nil
}

// NewNop returns a logger that discards everything, for tests.
func NewNop() ectologger.Logger {
	return ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})
}
