package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Logger represents a simple leveled key/value logger
type Logger interface {
	Debug(msg string, keyvals ...interface{})
	Info(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
	Error(msg string, keyvals ...interface{})
	With(keyvals ...interface{}) Logger
}

type logLevel int

const (
	debugLevel logLevel = iota
	infoLevel
	warnLevel
	errorLevel
)

type simpleLogger struct {
	debugLogger *log.Logger
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
	level       logLevel
	fields      []interface{}
}

// NewLogger creates a new logger with the specified level writing to stdout/stderr
func NewLogger(level string) Logger {
	return NewLoggerWithOutput(level, os.Stdout, os.Stderr)
}

// NewLoggerWithOutput creates a logger writing info-and-below to out and errors to errOut
func NewLoggerWithOutput(level string, out, errOut io.Writer) Logger {
	return &simpleLogger{
		debugLogger: log.New(out, "DEBUG: ", log.Ldate|log.Ltime|log.Lshortfile),
		infoLogger:  log.New(out, "INFO: ", log.Ldate|log.Ltime),
		warnLogger:  log.New(out, "WARN: ", log.Ldate|log.Ltime),
		errorLogger: log.New(errOut, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile),
		level:       parseLevel(level),
	}
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() Logger {
	return NewLoggerWithOutput("error", io.Discard, io.Discard)
}

func parseLevel(level string) logLevel {
	switch strings.ToLower(level) {
	case "debug":
		return debugLevel
	case "info":
		return infoLevel
	case "warn", "warning":
		return warnLevel
	case "error":
		return errorLevel
	default:
		return infoLevel
	}
}

func (l *simpleLogger) Debug(msg string, keyvals ...interface{}) {
	if l.level <= debugLevel {
		l.debugLogger.Output(2, l.format(msg, keyvals))
	}
}

func (l *simpleLogger) Info(msg string, keyvals ...interface{}) {
	if l.level <= infoLevel {
		l.infoLogger.Println(l.format(msg, keyvals))
	}
}

func (l *simpleLogger) Warn(msg string, keyvals ...interface{}) {
	if l.level <= warnLevel {
		l.warnLogger.Println(l.format(msg, keyvals))
	}
}

func (l *simpleLogger) Error(msg string, keyvals ...interface{}) {
	if l.level <= errorLevel {
		l.errorLogger.Output(2, l.format(msg, keyvals))
	}
}

// With returns a logger that prefixes every line with the given pairs
func (l *simpleLogger) With(keyvals ...interface{}) Logger {
	child := *l
	child.fields = append(append([]interface{}{}, l.fields...), keyvals...)
	return &child
}

func (l *simpleLogger) format(msg string, keyvals []interface{}) string {
	if len(l.fields) == 0 {
		return formatMsg(msg, keyvals...)
	}
	return formatMsg(msg, append(append([]interface{}{}, l.fields...), keyvals...)...)
}

func formatMsg(msg string, keyvals ...interface{}) string {
	if len(keyvals) == 0 {
		return msg
	}

	var b strings.Builder
	b.WriteString(msg)

	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprintf("%v", keyvals[i])
		value := "missing"

		if i+1 < len(keyvals) {
			value = fmt.Sprintf("%v", keyvals[i+1])
		}

		b.WriteString(" ")
		b.WriteString(key)
		b.WriteString("=")
		b.WriteString(value)
	}

	return b.String()
}
