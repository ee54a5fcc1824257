package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"plant-monitor/internal/config"
)

func New(cfg config.Config, version string, appName string) *slog.Logger {
	return NewWithWriter(os.Stdout, cfg, version, appName)
}

// NewWithWriter is New writing to w. Dev builds get coloured tint output,
// everything else JSON lines.
func NewWithWriter(w io.Writer, cfg config.Config, version string, appName string) *slog.Logger {
	if version == "dev" {
		h := tint.NewHandler(w, &tint.Options{
			Level:      cfg.LogLevel,
			AddSource:  true,
			TimeFormat: time.Kitchen,
		})
		return slog.New(h).With("app", appName)
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})
	return slog.New(h).With(
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
	)
}

// RestyLogger adapts a slog.Logger to resty's printf-style logger.
type RestyLogger struct {
	Logger *slog.Logger
}

func Resty(logger *slog.Logger) *RestyLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &RestyLogger{Logger: logger.With("component", "resty")}
}

func (l *RestyLogger) Errorf(format string, v ...interface{}) {
	l.Logger.Error(trim(format, v))
}

func (l *RestyLogger) Warnf(format string, v ...interface{}) {
	l.Logger.Warn(trim(format, v))
}

func (l *RestyLogger) Debugf(format string, v ...interface{}) {
	l.Logger.Debug(trim(format, v))
}

func trim(format string, v []interface{}) string {
	return strings.TrimSpace(fmt.Sprintf(format, v...))
}
