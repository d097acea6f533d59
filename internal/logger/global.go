package logger

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
)

var global atomic.Pointer[Logger]

func init() {
	l := NewDefault()
	// best effort until main calls Configure with the loaded config
	_ = applyConfig(l, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), os.Getenv("ENVIRONMENT"))
	global.Store(l)
}

// Configure sets level and format of the global logger. format "auto"
// selects text for local/development environments and JSON elsewhere.
func Configure(level, format, environment string) error {
	return applyConfig(global.Load(), level, format, environment)
}

func applyConfig(l *Logger, level, format, environment string) error {
	if level != "" {
		lvl, err := ParseLevel(level)
		if err != nil {
			return err
		}
		l.SetLevel(lvl)
	}
	if format != "" {
		f, err := ParseFormat(format, environment)
		if err != nil {
			return err
		}
		l.SetFormat(f)
	}
	return nil
}

// ParseLevel parses a log level name
func ParseLevel(level string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DEBUG, nil
	case "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	case "FATAL":
		return FATAL, nil
	default:
		return INFO, fmt.Errorf("unknown log level %q", level)
	}
}

// ParseFormat parses json, text or auto
func ParseFormat(format, environment string) (LogFormat, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return JSONFormat, nil
	case "text":
		return TextFormat, nil
	case "auto", "":
		switch environment {
		case "local", "development":
			return TextFormat, nil
		}
		return JSONFormat, nil
	default:
		return JSONFormat, fmt.Errorf("unknown log format %q", format)
	}
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *Logger {
	return global.Load()
}

// SetGlobalLogger replaces the global logger instance
func SetGlobalLogger(l *Logger) {
	global.Store(l)
}

// Component returns a child of the global logger for a subsystem
func Component(name string) *Logger {
	return global.Load().WithComponent(name)
}

// Debug logs a debug message using the global logger
func Debug(message string, fields ...map[string]interface{}) {
	global.Load().log(DEBUG, message, first(fields), nil)
}

// Info logs an info message using the global logger
func Info(message string, fields ...map[string]interface{}) {
	global.Load().log(INFO, message, first(fields), nil)
}

// Warn logs a warning message using the global logger
func Warn(message string, fields ...map[string]interface{}) {
	global.Load().log(WARN, message, first(fields), nil)
}

// Error logs an error message using the global logger
func Error(message string, err error, fields ...map[string]interface{}) {
	global.Load().log(ERROR, message, first(fields), err)
}

// Fatal logs a fatal message using the global logger and exits
func Fatal(message string, err error, fields ...map[string]interface{}) {
	global.Load().log(FATAL, message, first(fields), err)
}

// Infof logs a formatted info message using the global logger
func Infof(format string, args ...interface{}) {
	global.Load().log(INFO, fmt.Sprintf(format, args...), nil, nil)
}

// Warnf logs a formatted warning message using the global logger
func Warnf(format string, args ...interface{}) {
	global.Load().log(WARN, fmt.Sprintf(format, args...), nil, nil)
}
