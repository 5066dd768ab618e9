package main

import (
	"fmt"
	"log/slog"
	"strings"
)

// badgerLogger routes badger's printf-style logs into slog. Badger is
// chatty at info level, those lines go to debug.
type badgerLogger struct {
	log *slog.Logger
}

func newBadgerLogger(log *slog.Logger) *badgerLogger {
	return &badgerLogger{log: log.With("component", "badger")}
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.log.Error(message(format, args))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.log.Warn(message(format, args))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.log.Debug(message(format, args))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.log.Debug(message(format, args))
}

func message(format string, args []any) string {
	return strings.TrimRight(fmt.Sprintf(format, args...), "\n")
}
