package logging

import (
	"go.uber.org/zap/zapcore"
)

// TraceLevel sits below Debug. The engine adapters use it for per-point
// conversion detail that is never wanted outside local debugging.
const TraceLevel = zapcore.Level(-2)

// LevelFromString parses a level name. It understands "trace" in addition to
// the zap level names.
func LevelFromString(level string) (zapcore.Level, error) {
	if level == "trace" {
		return TraceLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel, err
	}
	return l, nil
}
