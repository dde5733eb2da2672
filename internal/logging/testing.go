package logging

import (
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger is a Logger that records every entry for assertions.
type TestLogger struct {
	*Logger
	observed *observer.ObservedLogs
}

// NewTestLogger records all levels including TraceLevel.
func NewTestLogger() *TestLogger {
	core, observed := observer.New(TraceLevel)
	return &TestLogger{
		Logger:   &Logger{zap: zap.New(core)},
		observed: observed,
	}
}

// All returns every recorded entry.
func (t *TestLogger) All() []observer.LoggedEntry {
	return t.observed.All()
}

// FilterMessage returns entries whose message equals msg.
func (t *TestLogger) FilterMessage(msg string) *observer.ObservedLogs {
	return t.observed.FilterMessage(msg)
}

// Reset discards recorded entries.
func (t *TestLogger) Reset() {
	t.observed.TakeAll()
}

// AssertLogged fails unless an entry at level has a message containing msg.
func (t *TestLogger) AssertLogged(tb testing.TB, level zapcore.Level, msg string) {
	tb.Helper()
	for _, e := range t.observed.All() {
		if e.Level == level && strings.Contains(e.Message, msg) {
			return
		}
	}
	tb.Errorf("expected log at %v containing %q, got: %+v", level, msg, t.observed.All())
}

// AssertNotLogged fails if an entry at level has a message containing msg.
func (t *TestLogger) AssertNotLogged(tb testing.TB, level zapcore.Level, msg string) {
	tb.Helper()
	for _, e := range t.observed.All() {
		if e.Level == level && strings.Contains(e.Message, msg) {
			tb.Errorf("unexpected log at %v containing %q", level, msg)
		}
	}
}

// AssertField fails unless an entry with message msg carries key=expected.
func (t *TestLogger) AssertField(tb testing.TB, msg, key string, expected interface{}) {
	tb.Helper()
	for _, e := range t.observed.FilterMessage(msg).All() {
		if got, ok := e.ContextMap()[key]; ok && reflect.DeepEqual(got, expected) {
			return
		}
	}
	tb.Errorf("field %q=%v not found in message %q", key, expected, msg)
}

// AssertNoSecrets fails if secret appears in any message or string field.
func (t *TestLogger) AssertNoSecrets(tb testing.TB, secret string) {
	tb.Helper()
	for _, e := range t.observed.All() {
		if strings.Contains(e.Message, secret) {
			tb.Errorf("secret leaked in message %q", e.Message)
		}
		for _, f := range e.Context {
			if f.Type == zapcore.StringType && strings.Contains(f.String, secret) {
				tb.Errorf("secret leaked in field %q of message %q", f.Key, e.Message)
			}
		}
	}
}
