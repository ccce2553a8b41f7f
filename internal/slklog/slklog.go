// Package slklog extends Go's logging functionality to allow multiple
// independent loggers, each with its own level and output, and a
// package-level facade used by every other package in this module. The
// shape follows minilog: a registry of named loggers guarded by a single
// lock, with level-gated package-level helpers.
package slklog

import (
	"fmt"
	golog "log"
	"os"
	"sync"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	FATAL
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "debug"
	case INFO:
		return "info"
	case WARN:
		return "warn"
	case ERROR:
		return "error"
	case FATAL:
		return "fatal"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// ParseLevel parses a level name as accepted by the -level flag an
// embedding CLI would expose; CLI parsing itself is out of scope here.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "debug":
		return DEBUG, nil
	case "info":
		return INFO, nil
	case "warn":
		return WARN, nil
	case "error":
		return ERROR, nil
	case "fatal":
		return FATAL, nil
	}
	return -1, fmt.Errorf("invalid log level %q", s)
}

type logger struct {
	l     *golog.Logger
	level Level
}

var (
	mu      sync.RWMutex
	loggers = make(map[string]*logger)
)

// AddLogger registers a named logger writing to w at the given minimum
// level. Re-registering a name replaces the previous logger.
func AddLogger(name string, w *os.File, level Level) {
	mu.Lock()
	defer mu.Unlock()
	loggers[name] = &logger{l: golog.New(w, "", golog.LstdFlags|golog.Lmicroseconds), level: level}
}

// DelLogger removes a named logger.
func DelLogger(name string) {
	mu.Lock()
	defer mu.Unlock()
	delete(loggers, name)
}

// Default installs a single stderr logger at the given level; convenient
// for tests and for cmd/ entry points that do not need multiple sinks.
func Default(level Level) {
	AddLogger("stderr", os.Stderr, level)
}

func dispatch(level Level, format string, arg ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	msg := fmt.Sprintf(format, arg...)
	for _, lg := range loggers {
		if lg.level <= level {
			lg.l.Printf("[%s] %s", level, msg)
		}
	}
}

func Debug(format string, arg ...interface{}) { dispatch(DEBUG, format, arg...) }
func Info(format string, arg ...interface{})  { dispatch(INFO, format, arg...) }
func Warn(format string, arg ...interface{})  { dispatch(WARN, format, arg...) }
func Error(format string, arg ...interface{}) { dispatch(ERROR, format, arg...) }

// Fatal logs at FATAL and terminates the process. Used only by
// unrecoverable initialization failures per spec.md §7.
func Fatal(format string, arg ...interface{}) {
	dispatch(FATAL, format, arg...)
	os.Exit(1)
}

// WillLog reports whether logging at level would produce output on any
// registered logger; useful when the message itself is expensive to build.
func WillLog(level Level) bool {
	mu.RLock()
	defer mu.RUnlock()
	for _, lg := range loggers {
		if lg.level <= level {
			return true
		}
	}
	return false
}
