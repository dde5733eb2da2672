package logging

import (
	"errors"
	"fmt"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap/zapcore"
)

const otelScope = "github.com/fyrsmithlabs/vectorgate"

// newCore tees the redacted sink core with the otelzap bridge and applies
// sampling on top.
func newCore(cfg *Config, otelProvider log.LoggerProvider, sink zapcore.WriteSyncer) (zapcore.Core, error) {
	var cores []zapcore.Core

	if cfg.Output.Stdout {
		enc, err := NewRedactingEncoder(newEncoder(cfg.Format), cfg.Redaction)
		if err != nil {
			return nil, fmt.Errorf("failed to create redacting encoder: %w", err)
		}
		cores = append(cores, zapcore.NewCore(enc, sink, cfg.Level))
	}

	if cfg.Output.OTEL && otelProvider != nil {
		bridge := otelzap.NewCore(otelScope, otelzap.WithLoggerProvider(otelProvider))
		cores = append(cores, &levelFilterCore{Core: bridge, min: cfg.Level, hasMin: true})
	}

	if len(cores) == 0 {
		return nil, errors.New("no log output available")
	}

	return newSampledCore(zapcore.NewTee(cores...), cfg.Sampling), nil
}
