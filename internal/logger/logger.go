package logger

import (
	"os"
	"regexp"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	tokenRegex = regexp.MustCompile(`eyJ[^\s"]+`)

	// level is shared by every Logger so SetLevel applies to package-level loggers
	// created before the config was loaded.
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Logger is a centralized structured logger
type Logger struct {
	z *zap.Logger
}

// New creates a new Logger writing JSON lines to stdout.
func New() *Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.Lock(os.Stdout), level)
	return &Logger{z: zap.New(core)}
}

// NewWithCore builds a Logger on an arbitrary zap core. Used by tests to capture output.
func NewWithCore(core zapcore.Core) *Logger {
	return &Logger{z: zap.New(core)}
}

// SetLevel changes the level of every Logger, e.g. "debug" or "error".
func SetLevel(l string) error {
	return level.UnmarshalText([]byte(l))
}

// Anonymize replaces sensitive information in logs (emails, tokens)
func Anonymize(s string) string {
	s = emailRegex.ReplaceAllString(s, "[REDACTED_EMAIL]")
	return tokenRegex.ReplaceAllString(s, "[REDACTED_TOKEN]")
}

func (l *Logger) fields(module string, err error) []zap.Field {
	fields := []zap.Field{zap.String("module", module)}
	if err != nil {
		fields = append(fields, zap.String("error", Anonymize(err.Error())))
	}
	return fields
}

// --- Convenient methods ---
func (l *Logger) Info(module, msg string) {
	l.z.Info(Anonymize(msg), l.fields(module, nil)...)
}

func (l *Logger) Debug(module, msg string) {
	l.z.Debug(Anonymize(msg), l.fields(module, nil)...)
}

func (l *Logger) Warn(module, msg string) {
	l.z.Warn(Anonymize(msg), l.fields(module, nil)...)
}

func (l *Logger) Error(module, msg string, err error) {
	l.z.Error(Anonymize(msg), l.fields(module, err)...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() {
	_ = l.z.Sync()
}
