// Package logging builds the zap loggers shared by the HTTP servers.
package logging

import (
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON logger writing one object per line to w. Timestamps are
// RFC 3339 in loc under the "ts" key.
func New(w io.Writer, loc *time.Location, level zapcore.Level) *zap.Logger {
	if loc == nil {
		loc = time.UTC
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.In(loc).Format(time.RFC3339Nano))
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core, zap.AddCaller())
}

// FromEnv returns a stdout logger. LOG_LEVEL selects the level (debug, info, warn, error),
// TZ-style names in LOG_TIMEZONE select the timestamp zone.
func FromEnv() *zap.Logger {
	level := zapcore.InfoLevel
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if l, err := zapcore.ParseLevel(v); err == nil {
			level = l
		}
	}
	loc := time.UTC
	if v := os.Getenv("LOG_TIMEZONE"); v != "" {
		if l, err := time.LoadLocation(v); err == nil {
			loc = l
		}
	}
	return New(os.Stdout, loc, level)
}
