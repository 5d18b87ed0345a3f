package logger

import (
	"fmt"
	"io"
	"os"
)

// Logger provides structured logging. Output defaults to stderr so that
// command tables written to stdout stay clean.
type Logger struct {
	writer io.Writer
}

// New creates a new logger instance
func New() *Logger {
	return &Logger{
		writer: os.Stderr,
	}
}

// NewWithWriter creates a logger with a custom writer
func NewWithWriter(w io.Writer) *Logger {
	return &Logger{
		writer: w,
	}
}

// Info logs informational messages
func (l *Logger) Info(msg string, fields ...Field) {
	l.log("INFO", msg, fields...)
}

// Error logs error messages
func (l *Logger) Error(msg string, fields ...Field) {
	l.log("ERROR", msg, fields...)
}

// Warn logs warning messages
func (l *Logger) Warn(msg string, fields ...Field) {
	l.log("WARNING", msg, fields...)
}

// Debug logs debug messages
func (l *Logger) Debug(msg string, fields ...Field) {
	l.log("DEBUG", msg, fields...)
}

func (l *Logger) log(level, msg string, fields ...Field) {
	output := fmt.Sprintf("LEVEL=%s MESSAGE=%s", level, msg)
	for _, field := range fields {
		output += fmt.Sprintf(" %s=%v", field.Key, field.Value)
	}
	_, _ = fmt.Fprintln(l.writer, output)
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value interface{}
}

// F creates a new field (shorthand)
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Common field constructors
func Action(value string) Field     { return F("ACTION", value) }
func Status(value string) Field     { return F("STATUS", value) }
func VM(value string) Field         { return F("VM", value) }
func Datastore(value string) Field  { return F("DATASTORE", value) }
func Disk(value string) Field       { return F("DISK", value) }
func Controller(value string) Field { return F("CONTROLLER", value) }
func Snapshot(value string) Field   { return F("SNAPSHOT", value) }
func PowerState(value string) Field { return F("POWER_STATE", value) }
func Attempt(value int) Field       { return F("ATTEMPT", value) }
func Count(value int) Field         { return F("COUNT", value) }
func Error(value error) Field       { return F("ERROR", value) }
func URL(value string) Field        { return F("URL", value) }
func Lease(value string) Field      { return F("LEASE", value) }
func Unit(value int32) Field        { return F("UNIT", value) }
func Bus(value int32) Field         { return F("BUS", value) }
func SizeGB(value int64) Field      { return F("SIZE_GB", value) }
func Reason(value string) Field     { return F("REASON", value) }
