// Package logger writes one structured line per event: ts, level, component,
// event and status come first, followed by the update metadata carried in ctx.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/m3rciful/restobot/core/buildinfo"
	coreconfig "github.com/m3rciful/restobot/core/config"
)

// Components used across the bot.
const (
	ComponentApp      = "app"
	ComponentTG       = "tg"
	ComponentWire     = "tg.wire"
	ComponentSender   = "tg.sender"
	ComponentSerial   = "tg.serial"
	ComponentDB       = "db"
	ComponentMigrate  = "db.migrate"
	ComponentGuard    = "guard"
	ComponentSession  = "session"
	ComponentOrder    = "scenario.order"
	ComponentReserve  = "scenario.reserve"
	ComponentOperator = "scenario.operator"
	ComponentFeedback = "scenario.feedback"
	ComponentCatalog  = "catalog"
	ComponentStorage  = "storage"
	ComponentNotify   = "notify"
)

// DefaultFile is the log file name used when only logging.dir is set.
const DefaultFile = "restobot.log"

var (
	base     atomic.Pointer[slog.Logger]
	levelVar slog.LevelVar
	trace    bool

	initOnce sync.Once
	closeMu  sync.Mutex
	out      *lineWriter
)

// InitLogger installs the structured handler described by cfg. Later calls are no-ops.
func InitLogger(cfg *coreconfig.Config) error {
	var initErr error
	initOnce.Do(func() {
		var lc coreconfig.LoggingConfig
		if cfg != nil {
			lc = cfg.Logging
		}
		trace = isTruthy(os.Getenv("TRACE")) || isTruthy(os.Getenv("LOG_TRACE"))
		levelVar.Set(parseLevel(lc.Level))
		if trace {
			levelVar.Set(slog.LevelDebug)
		}

		writers := []io.Writer{os.Stdout}
		var closers []io.Closer
		if dir := strings.TrimSpace(lc.Dir); dir != "" {
			f, err := openFile(dir, lc.File)
			if err != nil {
				initErr = err
				return
			}
			writers = append(writers, f)
			closers = append(closers, f)
		}
		closeMu.Lock()
		out = newLineWriter(writers, closers...)
		closeMu.Unlock()

		l := slog.New(newLineHandler(&levelVar, out, jsonFormat(lc)))
		base.Store(l)
		slog.SetDefault(l)

		mode := ""
		if cfg != nil {
			mode = cfg.Telegram.RunMode
		}
		Info(context.Background(), ComponentApp, "startup",
			slog.String("go_version", runtime.Version()),
			slog.String("build_commit", buildinfo.Commit),
			slog.String("build_time", buildinfo.Date),
			slog.String("cfg_profile", profile(lc)),
			slog.String("mode", mode),
		)
	})
	return initErr
}

func openFile(dir, name string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("logger: create dir: %w", err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultFile
	}
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logger: open file: %w", err)
	}
	return f, nil
}

// Shutdown flushes and closes the log sinks opened by InitLogger.
func Shutdown() error {
	closeMu.Lock()
	defer closeMu.Unlock()
	if out == nil {
		return nil
	}
	err := out.Close()
	out = nil
	return err
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// jsonFormat picks JSON unless kv is asked for or the profile is a dev one.
func jsonFormat(lc coreconfig.LoggingConfig) bool {
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		return false
	case "json":
		return true
	}
	switch profile(lc) {
	case "debug", "dev":
		return false
	}
	return true
}

func profile(lc coreconfig.LoggingConfig) string {
	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		return p
	}
	return "prod"
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// TraceEnabled reports whether TRACE forced debug output.
func TraceEnabled() bool {
	return trace
}

// Background returns context.Background().
func Background() context.Context {
	return context.Background()
}

func current() *slog.Logger {
	if l := base.Load(); l != nil {
		return l
	}
	return slog.Default()
}

func emit(ctx context.Context, level slog.Level, component, event string, attrs []slog.Attr) {
	if ctx == nil {
		ctx = context.Background()
	}
	l := current()
	if !l.Enabled(ctx, level) {
		return
	}
	all := make([]slog.Attr, 0, len(attrs)+1)
	all = append(all, slog.String("component", component))
	l.LogAttrs(ctx, level, event, append(all, attrs...)...)
}

// Debug logs event at debug level.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	emit(ctx, slog.LevelDebug, component, event, attrs)
}

// Info logs event at info level.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	emit(ctx, slog.LevelInfo, component, event, attrs)
}

// Warn logs event at warn level.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	emit(ctx, slog.LevelWarn, component, event, attrs)
}

// Error logs event at error level.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	emit(ctx, slog.LevelError, component, event, attrs)
}

var errClosed = errors.New("logger: writer closed")
