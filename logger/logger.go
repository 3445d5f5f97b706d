package logger

import (
	"bufio"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// noopFunc is a reusable no-op function to avoid allocations
var noopFunc = func() {}

// Trace returns a function that logs operation duration when called.
// Returns a no-op function when TRACE level is disabled to avoid overhead.
// Usage: defer logger.Trace("operation")()
func Trace(name string) func() {
	ll := current()
	if !ll.shouldLog(LogLevelTrace) {
		return noopFunc
	}
	start := time.Now()
	return func() {
		ll.log.Debug("trace", "op", name, "elapsed", time.Since(start))
	}
}

// MaxLogLines defines the maximum number of lines to keep in the log file
const MaxLogLines = 5000

// TimeFormat is the timestamp layout of every log line
const TimeFormat = "2006/01/02 15:04:05"

// LogLevel represents the logging level
type LogLevel int

const (
	LogLevelTrace LogLevel = iota
	LogLevelDebug
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// String returns the string representation of a log level
func (l LogLevel) String() string {
	switch l {
	case LogLevelTrace:
		return "TRACE"
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel parses a string into a LogLevel
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(s) {
	case "TRACE":
		return LogLevelTrace
	case "DEBUG":
		return LogLevelDebug
	case "INFO":
		return LogLevelInfo
	case "WARN", "WARNING":
		return LogLevelWarn
	case "ERROR":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// charmLevel maps a LogLevel onto the backend. Trace output is emitted at
// the backend's debug level.
func charmLevel(l LogLevel) log.Level {
	switch l {
	case LogLevelTrace, LogLevelDebug:
		return log.DebugLevel
	case LogLevelWarn:
		return log.WarnLevel
	case LogLevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// LimitedLogger writes leveled log lines to a file and keeps the file
// trimmed to the last MaxLogLines lines.
type LimitedLogger struct {
	file      *os.File
	lineCount int
	level     LogLevel
	mutex     sync.Mutex
	log       *log.Logger
}

var (
	globalMu     sync.RWMutex
	globalLogger *LimitedLogger
)

// defaultLogger is used before the global logger is initialized
var defaultLogger = newLogger(nil, os.Stderr, LogLevelInfo)

func newLogger(file *os.File, w io.Writer, level LogLevel) *LimitedLogger {
	ll := &LimitedLogger{
		file:  file,
		level: level,
	}
	if w == nil {
		w = ll
	}
	ll.log = log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      TimeFormat,
		Level:           charmLevel(level),
	})
	return ll
}

// NewLimitedLogger creates a LimitedLogger writing to file and installs it
// as the global logger.
func NewLimitedLogger(file *os.File, level LogLevel) *LimitedLogger {
	ll := newLogger(file, nil, level)

	// Count existing lines in the file
	ll.countExistingLines()

	globalMu.Lock()
	globalLogger = ll
	globalMu.Unlock()
	return ll
}

func current() *LimitedLogger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger != nil {
		return globalLogger
	}
	return defaultLogger
}

// SetLevel sets the logging level
func (ll *LimitedLogger) SetLevel(level LogLevel) {
	ll.mutex.Lock()
	ll.level = level
	ll.mutex.Unlock()
	ll.log.SetLevel(charmLevel(level))
}

// SetGlobalLevel sets the logging level on the global logger
func SetGlobalLevel(level LogLevel) {
	current().SetLevel(level)
}

// shouldLog returns true if the given level should be logged
func (ll *LimitedLogger) shouldLog(level LogLevel) bool {
	ll.mutex.Lock()
	defer ll.mutex.Unlock()
	return level >= ll.level
}

// Debug logs a debug message
func (ll *LimitedLogger) Debug(format string, v ...any) { ll.log.Debugf(format, v...) }

// Info logs an info message
func (ll *LimitedLogger) Info(format string, v ...any) { ll.log.Infof(format, v...) }

// Warn logs a warning message
func (ll *LimitedLogger) Warn(format string, v ...any) { ll.log.Warnf(format, v...) }

// Error logs an error message
func (ll *LimitedLogger) Error(format string, v ...any) { ll.log.Errorf(format, v...) }

// Fatal logs an error message and exits with code 1
func (ll *LimitedLogger) Fatal(format string, v ...any) {
	ll.log.Errorf(format, v...)
	os.Exit(1)
}

// Package-level logging functions that use the global logger (or default if not initialized)
func Debug(format string, v ...any) { current().Debug(format, v...) }

func Info(format string, v ...any) { current().Info(format, v...) }

func Warn(format string, v ...any) { current().Warn(format, v...) }

func Error(format string, v ...any) { current().Error(format, v...) }

func Fatal(format string, v ...any) { current().Fatal(format, v...) }

// Printf logs at info level. It matches the logf hook of nvim.New.
func Printf(format string, v ...any) { current().Info(format, v...) }

// countExistingLines counts the number of lines in the current log file
func (ll *LimitedLogger) countExistingLines() {
	ll.mutex.Lock()
	defer ll.mutex.Unlock()

	// Seek to beginning of file
	ll.file.Seek(0, io.SeekStart)
	scanner := bufio.NewScanner(ll.file)

	count := 0
	for scanner.Scan() {
		count++
	}

	ll.lineCount = count

	// Seek back to end of file for appending
	ll.file.Seek(0, io.SeekEnd)
}

// Write implements io.Writer interface
func (ll *LimitedLogger) Write(p []byte) (n int, err error) {
	ll.mutex.Lock()
	defer ll.mutex.Unlock()

	n, err = ll.file.Write(p)
	if err != nil {
		return n, err
	}

	ll.lineCount += strings.Count(string(p), "\n")

	if ll.lineCount > MaxLogLines {
		ll.rotateLogFile()
	}

	return n, err
}

// rotateLogFile trims the log file to keep only the last MaxLogLines lines
func (ll *LimitedLogger) rotateLogFile() {
	ll.file.Seek(0, io.SeekStart)
	scanner := bufio.NewScanner(ll.file)
	var lines []string

	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if len(lines) > MaxLogLines {
		lines = lines[len(lines)-MaxLogLines:]
	}

	ll.file.Truncate(0)
	ll.file.Seek(0, io.SeekStart)

	for _, line := range lines {
		ll.file.WriteString(line + "\n")
	}

	ll.lineCount = len(lines)
}

// Close closes the underlying file
func (ll *LimitedLogger) Close() error {
	if ll.file == nil {
		return nil
	}
	return ll.file.Close()
}
