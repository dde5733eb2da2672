package logging

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestContextFields_Empty(t *testing.T) {
	assert.Empty(t, ContextFields(context.Background()))
}

func TestWithRequestID(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, ctx, WithRequestID(ctx, ""), "empty id leaves context untouched")

	long := strings.Repeat("x", 300)
	assert.Len(t, RequestIDFromContext(WithRequestID(ctx, long)), maxRequestIDLen)
	assert.Equal(t, "abc", RequestIDFromContext(WithRequestID(ctx, "abc")))
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()), "falls back to nop")

	tl := NewTestLogger()
	ctx := WithLogger(context.Background(), tl.Logger)
	FromContext(ctx).Info(ctx, "from context", zap.String("k", "v"))

	tl.AssertLogged(t, zapcore.InfoLevel, "from context")
	tl.AssertField(t, "from context", "k", "v")
}

func TestTestLogger_Assertions(t *testing.T) {
	tl := NewTestLogger()
	ctx := WithCollection(context.Background(), "embeddings")

	tl.Warn(ctx, "search hit missing original_id", zap.String("internal_id", "abc"))

	tl.AssertLogged(t, zapcore.WarnLevel, "missing original_id")
	tl.AssertNotLogged(t, zapcore.ErrorLevel, "missing original_id")
	tl.AssertField(t, "search hit missing original_id", "collection", "embeddings")
	tl.AssertNoSecrets(t, "hunter2")
	assert.Len(t, tl.All(), 1)

	tl.Reset()
	assert.Empty(t, tl.All())
}
