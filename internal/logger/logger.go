package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

var Logger *log.Logger

func init() {
	Logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
	SetLevel(os.Getenv("LOG_LEVEL"))
}

// SetLevel parses a level name. Unknown or empty names fall back to INFO.
func SetLevel(level string) {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = log.InfoLevel
	}
	if strings.EqualFold(level, "warning") {
		lvl = log.WarnLevel
	}
	Logger.SetLevel(lvl)
}

// Level reports the active level name.
func Level() string {
	return Logger.GetLevel().String()
}

// SetOutput redirects Logger. Sub-loggers copy the writer when created,
// so call this before constructing components.
func SetOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// With returns a sub-logger tagged with a component prefix and key/values,
// e.g. With("scanout", "plane", 31).
func With(prefix string, keyvals ...interface{}) *log.Logger {
	return Logger.WithPrefix(prefix).With(keyvals...)
}

func Info(msg interface{}, keyvals ...interface{}) {
	Logger.Info(msg, keyvals...)
}

func Debug(msg interface{}, keyvals ...interface{}) {
	Logger.Debug(msg, keyvals...)
}

func Warn(msg interface{}, keyvals ...interface{}) {
	Logger.Warn(msg, keyvals...)
}

func Error(msg interface{}, keyvals ...interface{}) {
	Logger.Error(msg, keyvals...)
}

func Infof(format string, args ...interface{}) {
	Logger.Infof(format, args...)
}
