package core

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

type logLevel int

const (
	debugLevel logLevel = iota
	infoLevel
	warnLevel
	errorLevel
)

// JSONLogger writes structured log lines as single-line JSON objects.
// Safe for concurrent use.
type JSONLogger struct {
	mu    sync.Mutex
	out   io.Writer
	level logLevel
	name  string
}

// NewJSONLogger creates a logger writing to stdout at the given level.
// Unknown levels default to info.
func NewJSONLogger(name, level string) *JSONLogger {
	return &JSONLogger{
		out:   os.Stdout,
		level: parseLevel(level),
		name:  name,
	}
}

func parseLevel(level string) logLevel {
	switch strings.ToLower(level) {
	case "debug":
		return debugLevel
	case "warn", "warning":
		return warnLevel
	case "error":
		return errorLevel
	default:
		return infoLevel
	}
}

func (l *JSONLogger) Debug(msg string, fields map[string]interface{}) {
	l.log(debugLevel, "debug", msg, fields)
}

func (l *JSONLogger) Info(msg string, fields map[string]interface{}) {
	l.log(infoLevel, "info", msg, fields)
}

func (l *JSONLogger) Warn(msg string, fields map[string]interface{}) {
	l.log(warnLevel, "warn", msg, fields)
}

func (l *JSONLogger) Error(msg string, fields map[string]interface{}) {
	l.log(errorLevel, "error", msg, fields)
}

func (l *JSONLogger) log(level logLevel, levelName, msg string, fields map[string]interface{}) {
	if level < l.level {
		return
	}

	entry := make(map[string]interface{}, len(fields)+4)
	for k, v := range fields {
		entry[k] = v
	}
	entry["time"] = time.Now().Format(time.RFC3339)
	entry["level"] = levelName
	entry["msg"] = msg
	if l.name != "" {
		entry["component"] = l.name
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(append(line, '\n'))
}
