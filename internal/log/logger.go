// Package log provides a global logger with configurable logging level. The intended use is for
// development builds.

package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Level int

const (
	LevelNone    Level = iota // Disables logging.
	LevelError                // Logs anomalies that are not expected to occur during normal use.
	LevelWarning              // Logs anomalies that are expected to occur occasionally during normal use.
	LevelInfo                 // Logs major events.
	LevelDebug                // Logs detailed IO
)

var globalLogLevel Level
var logMutex sync.Mutex
var logger = newLogger(os.Stderr)

var zerologLevels = map[Level]zerolog.Level{
	LevelNone:    zerolog.Disabled,
	LevelError:   zerolog.ErrorLevel,
	LevelWarning: zerolog.WarnLevel,
	LevelInfo:    zerolog.InfoLevel,
	LevelDebug:   zerolog.DebugLevel,
}

func newLogger(w io.Writer) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).With().Timestamp().Logger()
}

func SetLevel(level Level) {
	logMutex.Lock()
	defer logMutex.Unlock()
	globalLogLevel = level
}

// SetOutput redirects log messages to w.
func SetOutput(w io.Writer) {
	logMutex.Lock()
	defer logMutex.Unlock()
	logger = newLogger(w)
}

func logLevel() (Level, zerolog.Logger) {
	logMutex.Lock()
	defer logMutex.Unlock()
	return globalLogLevel, logger
}

func log(level Level, format string, a ...interface{}) {
	current, l := logLevel()
	if level > current || level == LevelNone {
		return
	}
	l.WithLevel(zerologLevels[level]).Msg(fmt.Sprintf(format, a...))
}

func Debug(format string, a ...interface{}) {
	log(LevelDebug, format, a...)
}
func Info(format string, a ...interface{}) {
	log(LevelInfo, format, a...)
}
func Warning(format string, a ...interface{}) {
	log(LevelWarning, format, a...)
}
func Error(format string, a ...interface{}) {
	log(LevelError, format, a...)
}
