package logging

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/vectorgate/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const redactedValue = "[REDACTED]"

// Secret logs a config.Secret as its length only.
func Secret(key string, val config.Secret) zap.Field {
	return zap.String(key, "[REDACTED:"+strconv.Itoa(len(val.Value()))+"]")
}

// RedactingEncoder hides values of sensitive keys and values matching
// sensitive patterns before they reach the wrapped encoder.
type RedactingEncoder struct {
	zapcore.Encoder
	keys     map[string]bool
	patterns []*regexp.Regexp
}

// NewRedactingEncoder wraps base. A disabled config returns a pass-through.
func NewRedactingEncoder(base zapcore.Encoder, cfg RedactionConfig) (*RedactingEncoder, error) {
	e := &RedactingEncoder{Encoder: base}
	if !cfg.Enabled {
		return e, nil
	}

	e.keys = make(map[string]bool, len(cfg.Fields))
	for _, f := range cfg.Fields {
		e.keys[strings.ToLower(f)] = true
	}
	for _, p := range cfg.Patterns {
		if len(p) > maxPatternLen {
			return nil, fmt.Errorf("redaction pattern too long (max %d chars): %q", maxPatternLen, p)
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		e.patterns = append(e.patterns, re)
	}
	return e, nil
}

func (e *RedactingEncoder) sensitive(key string) bool {
	return e.keys[strings.ToLower(key)]
}

func (e *RedactingEncoder) AddString(key, val string) {
	if e.sensitive(key) {
		e.Encoder.AddString(key, redactedValue)
		return
	}
	for _, re := range e.patterns {
		if re.MatchString(val) {
			e.Encoder.AddString(key, "[REDACTED:pattern]")
			return
		}
	}
	e.Encoder.AddString(key, val)
}

func (e *RedactingEncoder) AddByteString(key string, val []byte) {
	if e.sensitive(key) {
		e.Encoder.AddString(key, redactedValue)
		return
	}
	e.Encoder.AddByteString(key, val)
}

func (e *RedactingEncoder) AddReflected(key string, val interface{}) error {
	if e.sensitive(key) {
		e.Encoder.AddString(key, redactedValue)
		return nil
	}
	return e.Encoder.AddReflected(key, val)
}

func (e *RedactingEncoder) AddObject(key string, obj zapcore.ObjectMarshaler) error {
	if e.sensitive(key) {
		e.Encoder.AddString(key, redactedValue)
		return nil
	}
	return e.Encoder.AddObject(key, obj)
}

func (e *RedactingEncoder) AddArray(key string, arr zapcore.ArrayMarshaler) error {
	if e.sensitive(key) {
		e.Encoder.AddString(key, redactedValue)
		return nil
	}
	return e.Encoder.AddArray(key, arr)
}

// EncodeEntry redacts per-entry fields. The wrapped encoder writes them
// itself, so the Add* overrides above only see fields attached with With.
func (e *RedactingEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	var out []zapcore.Field
	for i, f := range fields {
		r, ok := e.redact(f)
		if !ok {
			continue
		}
		if out == nil {
			out = append([]zapcore.Field(nil), fields...)
		}
		out[i] = r
	}
	if out == nil {
		out = fields
	}
	return e.Encoder.EncodeEntry(ent, out)
}

func (e *RedactingEncoder) redact(f zapcore.Field) (zapcore.Field, bool) {
	if e.sensitive(f.Key) {
		return zap.String(f.Key, redactedValue), true
	}
	if f.Type == zapcore.StringType {
		for _, re := range e.patterns {
			if re.MatchString(f.String) {
				return zap.String(f.Key, "[REDACTED:pattern]"), true
			}
		}
	}
	return f, false
}

func (e *RedactingEncoder) Clone() zapcore.Encoder {
	return &RedactingEncoder{
		Encoder:  e.Encoder.Clone(),
		keys:     e.keys,
		patterns: e.patterns,
	}
}
