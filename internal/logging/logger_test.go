package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fyrsmithlabs/vectorgate/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newBufferLogger(t *testing.T, mutate func(*Config)) (*Logger, *bytes.Buffer) {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Sampling.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}
	buf := &bytes.Buffer{}
	logger, err := newLogger(cfg, nil, zapcore.AddSync(buf))
	require.NoError(t, err)
	return logger, buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(NewDefaultConfig(), nil)
	require.NoError(t, err)
	assert.NotNil(t, logger.Underlying())

	_, err = NewLogger(nil, nil)
	assert.Error(t, err)

	cfg := NewDefaultConfig()
	cfg.Format = "xml"
	_, err = NewLogger(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "format must be")
}

func TestLogger_WritesJSONWithConstantFields(t *testing.T) {
	logger, buf := newBufferLogger(t, nil)

	logger.Info(context.Background(), "collection created", zap.Int("dimensions", 3))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "collection created", lines[0]["msg"])
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "vectorgate", lines[0]["service"])
	assert.EqualValues(t, 3, lines[0]["dimensions"])
	assert.Contains(t, lines[0], "ts")
}

func TestLogger_LevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(t, func(c *Config) { c.Level = zapcore.WarnLevel })
	ctx := context.Background()

	logger.Debug(ctx, "dropped")
	logger.Info(ctx, "dropped too")
	logger.Warn(ctx, "kept")
	logger.Error(ctx, "kept too")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "kept", lines[0]["msg"])
	assert.False(t, logger.Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Enabled(zapcore.ErrorLevel))
}

func TestLogger_TraceLevelName(t *testing.T) {
	logger, buf := newBufferLogger(t, func(c *Config) { c.Level = TraceLevel })

	logger.Trace(context.Background(), "converted point")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "trace", lines[0]["level"])
}

func TestLogger_RedactsSensitiveFields(t *testing.T) {
	logger, buf := newBufferLogger(t, nil)
	ctx := context.Background()

	logger.With(zap.String("api_key", "with-secret")).Info(ctx, "child")
	logger.Info(ctx, "dialing qdrant",
		zap.String("api_key", "entry-secret"),
		zap.String("header", "Bearer abc.def"),
		Secret("credential", config.Secret("hunter2")),
		zap.String("host", "localhost"),
	)

	out := buf.String()
	assert.NotContains(t, out, "with-secret")
	assert.NotContains(t, out, "entry-secret")
	assert.NotContains(t, out, "abc.def")
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, `"host":"localhost"`)
	assert.Contains(t, out, "[REDACTED:pattern]")
}

func TestLogger_ContextCorrelation(t *testing.T) {
	logger, buf := newBufferLogger(t, nil)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithCollection(ctx, "embeddings")

	logger.Warn(ctx, "degraded result")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", lines[0]["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", lines[0]["span_id"])
	assert.Equal(t, "req-1", lines[0]["request.id"])
	assert.Equal(t, "embeddings", lines[0]["collection"])
}

func TestLogger_Sampling(t *testing.T) {
	logger, buf := newBufferLogger(t, func(c *Config) {
		c.Sampling.Enabled = true
		c.Sampling.Initial = 2
		c.Sampling.Thereafter = 0
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		logger.Info(ctx, "repeated")
	}
	for i := 0; i < 5; i++ {
		logger.Error(ctx, "failure")
	}

	var infos, errs int
	for _, l := range decodeLines(t, buf) {
		switch l["msg"] {
		case "repeated":
			infos++
		case "failure":
			errs++
		}
	}
	assert.Equal(t, 2, infos)
	assert.Equal(t, 5, errs, "errors are never sampled")
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"trace", TraceLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := LevelFromString(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no outputs", func(c *Config) { c.Output.Stdout = false }},
		{"zero tick", func(c *Config) { c.Sampling.Tick = 0 }},
		{"zero initial", func(c *Config) { c.Sampling.Initial = 0 }},
		{"bad pattern", func(c *Config) { c.Redaction.Patterns = []string{"(["} }},
		{"empty field value", func(c *Config) { c.Fields["env"] = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
