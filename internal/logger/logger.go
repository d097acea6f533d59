package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// LogFormat represents the output format for logs
type LogFormat int

const (
	JSONFormat LogFormat = iota
	TextFormat
)

// Fields is a set of structured key/value pairs attached to an entry
type Fields map[string]interface{}

// LogEntry represents a structured log entry
type LogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Component string                 `json:"component,omitempty"`
	Caller    string                 `json:"caller,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// Logger is a leveled structured logger. Child loggers created with
// WithComponent or With share the parent's output and lock.
type Logger struct {
	state     *sharedState
	component string
	bound     Fields
}

type sharedState struct {
	mu     sync.Mutex
	level  LogLevel
	format LogFormat
	output io.Writer
	now    func() time.Time
}

// Config holds logger configuration
type Config struct {
	Level     LogLevel
	Format    LogFormat
	Output    io.Writer
	Component string
}

// New creates a new logger with the given configuration
func New(config Config) *Logger {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	return &Logger{
		state: &sharedState{
			level:  config.Level,
			format: config.Format,
			output: config.Output,
			now:    time.Now,
		},
		component: config.Component,
	}
}

// NewDefault creates a logger with default configuration
func NewDefault() *Logger {
	return New(Config{Level: INFO, Format: JSONFormat, Output: os.Stdout})
}

// WithComponent returns a child logger tagged with component
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{state: l.state, component: component, bound: l.bound}
}

// With returns a child logger that adds fields to every entry
func (l *Logger) With(fields Fields) *Logger {
	merged := make(Fields, len(l.bound)+len(fields))
	for k, v := range l.bound {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{state: l.state, component: l.component, bound: merged}
}

// SetLevel sets the minimum log level
func (l *Logger) SetLevel(level LogLevel) {
	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	l.state.level = level
}

// SetFormat sets the log output format
func (l *Logger) SetFormat(format LogFormat) {
	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	l.state.format = format
}

// Enabled reports whether entries at level would be written
func (l *Logger) Enabled(level LogLevel) bool {
	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	return level >= l.state.level
}

func (l *Logger) log(level LogLevel, message string, fields map[string]interface{}, err error) {
	s := l.state
	s.mu.Lock()
	defer s.mu.Unlock()

	if level < s.level {
		return
	}

	entry := LogEntry{
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Level:     level.String(),
		Message:   message,
		Component: l.component,
		Caller:    caller(3),
		Fields:    mergeFields(l.bound, fields),
	}
	if err != nil {
		entry.Error = err.Error()
	}

	var line string
	if s.format == JSONFormat {
		b, mErr := json.Marshal(entry)
		if mErr != nil {
			// unencodable field values fall back to their printed form
			entry.Fields = stringifyFields(entry.Fields)
			b, _ = json.Marshal(entry)
		}
		line = string(b) + "\n"
	} else {
		line = formatText(entry)
	}
	_, _ = io.WriteString(s.output, line)

	if level == FATAL {
		os.Exit(1)
	}
}

// caller returns "pkg.Func (file.go:line)" for the frame skip levels up
func caller(skip int) string {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	name := "unknown"
	if fn := runtime.FuncForPC(pc); fn != nil {
		name = fn.Name()
		if i := strings.LastIndex(name, "/"); i >= 0 {
			name = name[i+1:]
		}
	}
	if i := strings.LastIndex(file, "/"); i >= 0 {
		file = file[i+1:]
	}
	return fmt.Sprintf("%s (%s:%d)", name, file, line)
}

func mergeFields(bound Fields, fields map[string]interface{}) map[string]interface{} {
	if len(bound) == 0 {
		return fields
	}
	out := make(map[string]interface{}, len(bound)+len(fields))
	for k, v := range bound {
		out[k] = v
	}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func stringifyFields(fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}

// formatText renders an entry as one human-readable line with sorted fields
func formatText(entry LogEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", entry.Timestamp, entry.Level)
	if entry.Component != "" {
		fmt.Fprintf(&b, " [%s]", entry.Component)
	}
	b.WriteString(" ")
	b.WriteString(entry.Message)

	if len(entry.Fields) > 0 {
		keys := make([]string, 0, len(entry.Fields))
		for k := range entry.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, entry.Fields[k])
		}
	}
	if entry.Error != "" {
		fmt.Fprintf(&b, " error=%q", entry.Error)
	}
	if entry.Caller != "" {
		fmt.Fprintf(&b, " (%s)", entry.Caller)
	}
	b.WriteString("\n")
	return b.String()
}

func first(fields []map[string]interface{}) map[string]interface{} {
	if len(fields) > 0 {
		return fields[0]
	}
	return nil
}

// Debug logs a debug message
func (l *Logger) Debug(message string, fields ...map[string]interface{}) {
	l.log(DEBUG, message, first(fields), nil)
}

// Info logs an info message
func (l *Logger) Info(message string, fields ...map[string]interface{}) {
	l.log(INFO, message, first(fields), nil)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, fields ...map[string]interface{}) {
	l.log(WARN, message, first(fields), nil)
}

// Error logs an error message
func (l *Logger) Error(message string, err error, fields ...map[string]interface{}) {
	l.log(ERROR, message, first(fields), err)
}

// Fatal logs a fatal message and exits the program
func (l *Logger) Fatal(message string, err error, fields ...map[string]interface{}) {
	l.log(FATAL, message, first(fields), err)
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(DEBUG, fmt.Sprintf(format, args...), nil, nil)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(INFO, fmt.Sprintf(format, args...), nil, nil)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(WARN, fmt.Sprintf(format, args...), nil, nil)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log(ERROR, fmt.Sprintf(format, args...), nil, nil)
}
