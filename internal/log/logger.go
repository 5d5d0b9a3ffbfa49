// Package log provides structured logging with run context.
//
// Two logger variants are available:
//   - Logger: non-sugared *zap.Logger for the core/scheduler hot path
//     (high performance, structured fields).
//   - SugaredLogger: printf-style logging for CLI/debug surfaces
//     (convenience over performance).
//
// Use Logger.Sugar() to obtain a SugaredLogger when needed.
package log

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RunContext carries the identity fields attached to every log entry for
// one invocation of the core.
type RunContext struct {
	RunID       string
	ProfileName string
	// Level is the minimum level to emit ("debug", "info", "warn",
	// "error"). Empty defaults to "info".
	Level string
}

// parseLevel maps the --log_level flag's spelling onto a zapcore.Level,
// defaulting to info for an empty or unrecognized value.
func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger provides structured logging with run context.
type Logger struct {
	zap   *zap.Logger
	level zapcore.Level
}

// SugaredLogger provides printf/key-value style logging for CLI and
// debug surfaces.
type SugaredLogger struct {
	sugar *zap.SugaredLogger
}

// NewLogger creates a logger with run context, writing JSON to os.Stderr.
func NewLogger(ctx RunContext) *Logger {
	return newLoggerWithWriter(ctx, os.Stderr)
}

// WithOutput returns a new logger with a different output writer (used
// to send entries to profiling.log under the artifact directory instead
// of stderr). The level is inherited from the receiver.
func (l *Logger) WithOutput(w io.Writer) *Logger {
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(w), l.level)
	return &Logger{zap: l.zap.WithOptions(zap.WrapCore(func(zapcore.Core) zapcore.Core { return core })), level: l.level}
}

// WithTask returns a new logger with task_id/stage fields attached, used
// for the duration of one task's lifecycle in scheduler/runner logs.
func (l *Logger) WithTask(taskID string, stage int) *Logger {
	return &Logger{zap: l.zap.With(zap.String("task_id", taskID), zap.Int("stage", stage)), level: l.level}
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}
}

func newLoggerWithWriter(ctx RunContext, w io.Writer) *Logger {
	level := parseLevel(ctx.Level)
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(w), level)

	contextFields := []zap.Field{zap.String("run_id", ctx.RunID)}
	if ctx.ProfileName != "" {
		contextFields = append(contextFields, zap.String("profile", ctx.ProfileName))
	}

	zapLogger := zap.New(core).With(contextFields...)
	return &Logger{zap: zapLogger, level: level}
}

// Debug logs a debug message with structured fields.
func (l *Logger) Debug(message string, fields map[string]any) {
	l.zap.Debug(message, zap.Any("fields", fields))
}

// Info logs an info message with structured fields.
func (l *Logger) Info(message string, fields map[string]any) {
	l.zap.Info(message, zap.Any("fields", fields))
}

// Warn logs a warning message with structured fields.
func (l *Logger) Warn(message string, fields map[string]any) {
	l.zap.Warn(message, zap.Any("fields", fields))
}

// Error logs an error message with structured fields.
func (l *Logger) Error(message string, fields map[string]any) {
	l.zap.Error(message, zap.Any("fields", fields))
}

// Sugar returns a SugaredLogger for printf/key-value-style logging.
func (l *Logger) Sugar() *SugaredLogger {
	return &SugaredLogger{sugar: l.zap.Sugar()}
}

// Debugf logs a debug message with printf-style formatting.
func (s *SugaredLogger) Debugf(template string, args ...any) { s.sugar.Debugf(template, args...) }

// Infof logs an info message with printf-style formatting.
func (s *SugaredLogger) Infof(template string, args ...any) { s.sugar.Infof(template, args...) }

// Warnf logs a warning message with printf-style formatting.
func (s *SugaredLogger) Warnf(template string, args ...any) { s.sugar.Warnf(template, args...) }

// Errorf logs an error message with printf-style formatting.
func (s *SugaredLogger) Errorf(template string, args ...any) { s.sugar.Errorf(template, args...) }

// Warnw logs a warning message with alternating key-value pairs.
func (s *SugaredLogger) Warnw(message string, keysAndValues ...any) {
	s.sugar.Warnw(message, keysAndValues...)
}

// With returns a SugaredLogger with additional context fields.
func (s *SugaredLogger) With(args ...any) *SugaredLogger {
	return &SugaredLogger{sugar: s.sugar.With(args...)}
}
