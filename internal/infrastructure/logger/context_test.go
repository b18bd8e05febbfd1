package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func bufferLogger(buf *bytes.Buffer) *zap.Logger {
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(buf), zapcore.DebugLevel))
}

func spanContext(t *testing.T) context.Context {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	return trace.ContextWithSpanContext(context.Background(), sc)
}

func TestFromContext(t *testing.T) {
	t.Run("returns attached logger", func(t *testing.T) {
		l := zap.NewExample()
		assert.Same(t, l, FromContext(WithContext(context.Background(), l)))
	})

	t.Run("falls back to no-op", func(t *testing.T) {
		l := FromContext(context.Background())
		require.NotNil(t, l)
		l.Info("discarded")
	})

	t.Run("ignores values of the wrong type", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), loggerKey, "not a logger")
		assert.NotNil(t, FromContext(ctx))
	})
}

func TestWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	ctx, l := WithRequestID(context.Background(), bufferLogger(&buf), "req-123")

	assert.Equal(t, "req-123", GetRequestID(ctx))
	assert.Empty(t, GetRequestID(context.Background()))

	l.Info("hello")
	assert.Contains(t, buf.String(), `"request_id":"req-123"`)
}

func TestWithActor(t *testing.T) {
	var buf bytes.Buffer
	actor := shared.NewActorContext(uuid.New(), uuid.New(), "clerk")

	ctx, _ := WithActor(context.Background(), bufferLogger(&buf), actor)
	stored, ok := shared.ActorFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, actor, stored)

	L(ctx).Info("posted")
	assert.Contains(t, buf.String(), actor.TenantID.String())
	assert.Contains(t, buf.String(), `"actor_id":"`+actor.ActorID.String()+`"`)
}

func TestTraceCorrelation(t *testing.T) {
	t.Run("no span", func(t *testing.T) {
		ctx := context.Background()
		assert.Empty(t, GetTraceID(ctx))
		assert.Empty(t, GetSpanID(ctx))
		l := zap.NewNop()
		assert.Same(t, l, WithTraceContext(ctx, l))
	})

	t.Run("valid span", func(t *testing.T) {
		ctx := spanContext(t)
		assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", GetTraceID(ctx))
		assert.Equal(t, "00f067aa0ba902b7", GetSpanID(ctx))

		var buf bytes.Buffer
		WithTraceContext(ctx, bufferLogger(&buf)).Info("traced")
		assert.Contains(t, buf.String(), `"trace_id":"4bf92f3577b34da6a3ce929d0e0e4736"`)
		assert.Contains(t, buf.String(), `"span_id":"00f067aa0ba902b7"`)
	})
}

func TestContextLogger(t *testing.T) {
	t.Run("enriches every level with trace fields", func(t *testing.T) {
		var buf bytes.Buffer
		ctx := WithContext(spanContext(t), bufferLogger(&buf))

		cl := L(ctx)
		cl.Debug("d")
		cl.Info("i")
		cl.Warn("w")
		cl.Error("e")
		assert.Equal(t, 4, bytes.Count(buf.Bytes(), []byte(`"trace_id"`)))
	})

	t.Run("With keeps parent fields", func(t *testing.T) {
		var buf bytes.Buffer
		cl := WithLogger(context.Background(), bufferLogger(&buf)).With(zap.String("document", "goods_receipt:1"))
		cl.Info("child")
		assert.Contains(t, buf.String(), `"document":"goods_receipt:1"`)
	})

	t.Run("nil logger does not panic", func(t *testing.T) {
		cl := WithLogger(context.Background(), nil)
		assert.NotPanics(t, func() { cl.Info("nothing") })
		assert.NotNil(t, cl.Zap())
	})
}
