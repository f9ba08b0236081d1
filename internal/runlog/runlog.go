// Package runlog implements the chronological text log kept in every run
// directory. Each Logger is owned by exactly one logbook; there is no
// process-wide registry.
package runlog

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mesh-intelligence/notata/pkg/types"
)

// Logger appends lines of the form
//
//	[2006-01-02T15:04:05] INFO message
//
// to a single log file.
type Logger struct {
	file   *os.File
	zl     *zap.Logger
	closed bool
}

// Open appends to (or creates) the log file at path. level is a zap level
// name ("debug", "info", "warn", "error"); empty means info.
func Open(path, level string) (*Logger, error) {
	lvl := zapcore.InfoLevel
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("log level %q: %w", level, types.ErrInvalid)
		}
		lvl = parsed
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log %s: %w", path, err)
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.AddSync(f), lvl)
	return &Logger{file: f, zl: zap.New(core)}, nil
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       bracketTime,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	}
}

func bracketTime(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + t.Format(types.TimeLayout) + "]")
}

// Log writes msg at lvl. Calls after Close are dropped.
func (l *Logger) Log(lvl zapcore.Level, msg string, fields ...zap.Field) {
	if l.closed {
		return
	}
	if ce := l.zl.Check(lvl, msg); ce != nil {
		ce.Write(fields...)
	}
}

func (l *Logger) Debug(msg string, fields ...zap.Field) { l.Log(zapcore.DebugLevel, msg, fields...) }
func (l *Logger) Info(msg string, fields ...zap.Field)  { l.Log(zapcore.InfoLevel, msg, fields...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)  { l.Log(zapcore.WarnLevel, msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field) { l.Log(zapcore.ErrorLevel, msg, fields...) }

// Sync flushes buffered entries to disk.
func (l *Logger) Sync() error {
	if l.closed {
		return nil
	}
	return l.zl.Sync()
}

// Close flushes and closes the log file. Close is idempotent.
func (l *Logger) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	syncErr := l.zl.Sync()
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("closing log: %w", err)
	}
	return syncErr
}
