// Package logger keeps four leveled standard loggers shared by the whole program.
package logger

import (
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	charm "github.com/charmbracelet/log"
)

var (
	Debug   *log.Logger
	Info    *log.Logger
	Warning *log.Logger
	Error   *log.Logger
)

func init() {
	LogInit(io.Discard, io.Discard, io.Discard, io.Discard)
}

// LogInit - set writers for every level. io.Discard switches the level off.
func LogInit(debugHandle io.Writer, infoHandle io.Writer, warningHandle io.Writer, errorHandle io.Writer) {
	Debug = newLevelLogger(debugHandle, charm.DebugLevel)
	Info = newLevelLogger(infoHandle, charm.InfoLevel)
	Warning = newLevelLogger(warningHandle, charm.WarnLevel)
	Error = newLevelLogger(errorHandle, charm.ErrorLevel)
}

func newLevelLogger(w io.Writer, level charm.Level) *log.Logger {
	if w == io.Discard {
		return log.New(io.Discard, "", 0)
	}

	l := charm.NewWithOptions(w, charm.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		TimeFunction:    func(t time.Time) time.Time { return t.UTC() },
		Level:           charm.DebugLevel,
	})

	return l.StandardLog(charm.StandardLogOptions{ForceLevel: level})
}

// Setup - enable levels starting from the named one: debug, info, warn(ing), error.
// Debug and info go to out, warnings and errors to errOut.
func Setup(level string, out, errOut io.Writer) error {
	switch strings.ToLower(level) {
	case "debug", "trace", "":
		LogInit(out, out, errOut, errOut)
	case "info":
		LogInit(io.Discard, out, errOut, errOut)
	case "warn", "warning":
		LogInit(io.Discard, io.Discard, errOut, errOut)
	case "error":
		LogInit(io.Discard, io.Discard, io.Discard, errOut)
	default:
		return fmt.Errorf("unknown log level: %s", level)
	}

	return nil
}
