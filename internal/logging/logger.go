package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu     sync.RWMutex
	logger = zerolog.New(io.Discard)
	sinks  []io.Writer
)

// InitLogger configures the global logger. Logs go to a rotated file when
// file is set and are discarded otherwise; stderr is kept for the one-line
// diagnostic the tools print on failure.
func InitLogger(file string, maxSizeMB, maxBackups, maxAgeDays int, compress bool, level string) {
	mu.Lock()
	defer mu.Unlock()

	sinks = sinks[:0]
	if file != "" {
		sinks = append(sinks, &lumberjack.Logger{
			Filename:   file,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   compress,
		})
	}
	logger = build(parseLevel(level))
}

// EnableConsole mirrors log output to w in human-readable form. Colour is only
// used when w is a terminal.
func EnableConsole(w io.Writer) {
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !term.IsTerminal(int(f.Fd()))
	}

	mu.Lock()
	defer mu.Unlock()
	sinks = append(sinks, zerolog.ConsoleWriter{Out: w, NoColor: noColor, TimeFormat: time.Kitchen})
	logger = build(logger.GetLevel())
}

func build(lvl zerolog.Level) zerolog.Logger {
	var out io.Writer
	switch len(sinks) {
	case 0:
		out = io.Discard
	case 1:
		out = sinks[0]
	default:
		out = zerolog.MultiLevelWriter(sinks...)
	}
	return zerolog.New(out).With().Timestamp().Logger().Level(lvl)
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// SetLogLevel changes the minimum level; unknown values fall back to info.
func SetLogLevel(level string) {
	mu.Lock()
	defer mu.Unlock()
	logger = logger.Level(parseLevel(level))
}

// SetLoggerForTest replaces the global logger.
func SetLoggerForTest(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// Debug logs a debug message with key/value pairs.
func Debug(msg string, kv ...any) { write(zerolog.DebugLevel, msg, kv) }

// Info logs an info message with key/value pairs.
func Info(msg string, kv ...any) { write(zerolog.InfoLevel, msg, kv) }

// Warn logs a warning with key/value pairs.
func Warn(msg string, kv ...any) { write(zerolog.WarnLevel, msg, kv) }

// Error logs an error with key/value pairs.
func Error(msg string, kv ...any) { write(zerolog.ErrorLevel, msg, kv) }

func write(lvl zerolog.Level, msg string, kv []any) {
	mu.RLock()
	l := logger
	mu.RUnlock()

	ev := l.WithLevel(lvl)
	if ev == nil {
		return
	}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		if err, ok := kv[i+1].(error); ok {
			ev = ev.AnErr(key, err)
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	// A dangling key is kept so the mistake shows up in the log.
	if len(kv)%2 == 1 {
		ev = ev.Interface("dangling", kv[len(kv)-1])
	}
	ev.Msg(msg)
}
