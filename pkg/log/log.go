package log

import (
	"fmt"
	"io"
	"os"
	"sync"

	plog "github.com/phuslu/log"
)

var (
	defaultLogger *Logger
	once          sync.Once
)

func init() {
	once.Do(func() {
		defaultLogger = New(os.Stdout, "", FormatJSON, LogLevelDebug)
	})
}

type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
	LogLevelTrace
)

// Output formats understood by New.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

func (level LogLevel) String() string {
	switch level {
	case LogLevelError:
		return "error"
	case LogLevelWarn:
		return "warn"
	case LogLevelInfo:
		return "info"
	case LogLevelDebug:
		return "debug"
	case LogLevelTrace:
		return "trace"
	default:
		return "unknown"
	}
}

func (level LogLevel) backend() plog.Level {
	switch level {
	case LogLevelError:
		return plog.ErrorLevel
	case LogLevelWarn:
		return plog.WarnLevel
	case LogLevelInfo:
		return plog.InfoLevel
	case LogLevelDebug:
		return plog.DebugLevel
	default:
		return plog.TraceLevel
	}
}

// ParseLogLevel parses a log level string into a LogLevel.
// Valid log levels are: error, warn, info, debug, trace.
func ParseLogLevel(level string) (LogLevel, error) {
	switch level {
	case "error":
		return LogLevelError, nil
	case "warn":
		return LogLevelWarn, nil
	case "info":
		return LogLevelInfo, nil
	case "debug":
		return LogLevelDebug, nil
	case "trace":
		return LogLevelTrace, nil
	default:
		return LogLevelError, fmt.Errorf("unknown log level: %s", level)
	}
}

// SetDefaultLogger replaces the logger used by the package-level functions.
func SetDefaultLogger(logger *Logger) {
	defaultLogger = logger
}

func SetLevel(level LogLevel) {
	defaultLogger.SetLevel(level)
	defaultLogger.Info("Log level set to %s", level)
}

// Logger writes one structured line per entry through phuslu/log.
type Logger struct {
	logger    plog.Logger
	component string
	level     LogLevel
}

// New creates a Logger writing to out. component, when not empty, is attached
// to every entry. format is FormatJSON or FormatConsole.
func New(out io.Writer, component string, format string, level LogLevel) *Logger {
	var writer plog.Writer
	switch format {
	case FormatConsole:
		writer = &plog.ConsoleWriter{Writer: out, ColorOutput: false}
	default:
		writer = &plog.IOWriter{Writer: out}
	}
	return &Logger{
		logger: plog.Logger{
			Level:  level.backend(),
			Writer: writer,
		},
		component: component,
		level:     level,
	}
}

func (l *Logger) SetLevel(level LogLevel) {
	l.level = level
	l.logger.Level = level.backend()
}

func (l *Logger) Level() LogLevel {
	return l.level
}

func (l *Logger) entry(level LogLevel) *plog.Entry {
	var e *plog.Entry
	switch level {
	case LogLevelError:
		e = l.logger.Error()
	case LogLevelWarn:
		e = l.logger.Warn()
	case LogLevelInfo:
		e = l.logger.Info()
	case LogLevelDebug:
		e = l.logger.Debug()
	default:
		e = l.logger.Trace()
	}
	if e != nil && l.component != "" {
		e = e.Str("component", l.component)
	}
	return e
}

func (l *Logger) logf(level LogLevel, format string, args ...interface{}) {
	if level > l.level {
		return
	}
	// Entry is nil when the backend filters the level.
	if e := l.entry(level); e != nil {
		e.Msgf(format, args...)
	}
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.logf(LogLevelError, format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.logf(LogLevelWarn, format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.logf(LogLevelInfo, format, args...)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.logf(LogLevelDebug, format, args...)
}

func (l *Logger) Trace(format string, args ...interface{}) {
	l.logf(LogLevelTrace, format, args...)
}

func Info(format string, args ...interface{}) {
	defaultLogger.Info(format, args...)
}

func Error(format string, args ...interface{}) {
	defaultLogger.Error(format, args...)
}

func Warn(format string, args ...interface{}) {
	defaultLogger.Warn(format, args...)
}

func Debug(format string, args ...interface{}) {
	defaultLogger.Debug(format, args...)
}

func Trace(format string, args ...interface{}) {
	defaultLogger.Trace(format, args...)
}
