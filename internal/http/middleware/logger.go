package middleware

import (
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"docvault/internal/logging"
)

// CauseLocalKey holds an internal error a handler answered with a generic message.
// Logger reports it under "error".
const CauseLocalKey = "error_cause"

// SetCause records err for the request log without exposing it in the response.
func SetCause(c *fiber.Ctx, err error) {
	c.Locals(CauseLocalKey, err)
}

// Logger is a middleware that logs each HTTP request through l.
// Fields:
// - request_id (taken from context locals set by RequestID middleware)
// - method
// - path
// - status
// - latency (in milliseconds, as float)
// - trace_id (when otelfiber started a span)
// - error (the recorded cause or the returned error, when present)
//
// 5xx responses are logged at error level and 4xx at warn level.
func Logger(l *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		rid, _ := c.Locals(RequestIDLocalKey).(string)
		status := statusOf(c, err)
		fields := []zap.Field{
			zap.String("request_id", rid),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Float64("latency", float64(time.Since(start).Microseconds())/1000.0),
		}
		if sc := trace.SpanContextFromContext(c.UserContext()); sc.IsValid() {
			fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
		}
		if cause, ok := c.Locals(CauseLocalKey).(error); ok {
			fields = append(fields, zap.Error(cause))
		} else if err != nil {
			fields = append(fields, zap.Error(err))
		}

		switch {
		case status >= fiber.StatusInternalServerError:
			l.Error("http_request", fields...)
		case status >= fiber.StatusBadRequest:
			l.Warn("http_request", fields...)
		default:
			l.Info("http_request", fields...)
		}

		return err
	}
}

// LoggerWithWriter is Logger writing JSON lines to w, timestamps in loc.
func LoggerWithWriter(w io.Writer, loc *time.Location) fiber.Handler {
	return Logger(logging.New(w, loc, zapcore.InfoLevel))
}

// statusOf returns the status the error handler will send for err, or the one already set.
func statusOf(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	if fiberErr, ok := err.(*fiber.Error); ok {
		return fiberErr.Code
	}
	return fiber.StatusInternalServerError
}
