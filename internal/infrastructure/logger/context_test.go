package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newBufferLogger() (*zap.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	encoderConfig := zap.NewProductionEncoderConfig()
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(buf),
		zapcore.DebugLevel,
	)
	return zap.New(core), buf
}

func TestWithContextAndFromContext(t *testing.T) {
	logger := zap.NewNop()
	ctx := WithContext(context.Background(), logger)

	assert.Same(t, logger, FromContext(ctx))
}

func TestFromContextReturnsNopWhenAbsent(t *testing.T) {
	logger := FromContext(context.Background())
	require.NotNil(t, logger)
}

func TestWithRequestID(t *testing.T) {
	logger, buf := newBufferLogger()

	ctx, enriched := WithRequestID(context.Background(), logger, "req-123")
	enriched.Info("hello")

	assert.Equal(t, "req-123", GetRequestID(ctx))
	assert.Contains(t, buf.String(), `"request_id":"req-123"`)
}

func TestWithUserID(t *testing.T) {
	logger, buf := newBufferLogger()

	ctx, enriched := WithUserID(context.Background(), logger, "user-7")
	enriched.Info("hello")

	assert.Equal(t, "user-7", GetUserID(ctx))
	assert.Contains(t, buf.String(), `"user_id":"user-7"`)
}

func TestContextLoggerInjectsContextFields(t *testing.T) {
	logger, buf := newBufferLogger()

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-9")
	ctx = context.WithValue(ctx, UserIDKey, "user-1")

	WithLogger(ctx, logger).Info("action performed")

	output := buf.String()
	assert.Contains(t, output, `"request_id":"req-9"`)
	assert.Contains(t, output, `"user_id":"user-1"`)
	assert.Contains(t, output, "action performed")
}

func TestContextLoggerOmitsEmptyFields(t *testing.T) {
	logger, buf := newBufferLogger()

	WithLogger(context.Background(), logger).Info("plain")

	output := buf.String()
	assert.NotContains(t, output, "request_id")
	assert.NotContains(t, output, "user_id")
}

func TestContextLoggerWith(t *testing.T) {
	logger, buf := newBufferLogger()

	WithLogger(context.Background(), logger).
		With(zap.String("folio", "DN-1")).
		Info("generated")

	assert.Contains(t, buf.String(), `"folio":"DN-1"`)
}
