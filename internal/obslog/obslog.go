// Package obslog wires the node's structured logging: a console zap core
// always on, a journald core tee'd in on Linux, and per-component named
// children so a log line from the connection pool reads differently from
// one out of the IPC server.
package obslog

import (
	"os"
	"runtime"

	"github.com/ssgreg/journald"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level controls the minimum severity emitted by both cores.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New builds the node's root logger. journald is wired in only when running
// on Linux and /run/systemd/journal/socket is reachable; elsewhere the
// console core runs alone rather than failing node startup over a
// nice-to-have.
func New(level Level) *zap.Logger {
	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	consoleCore := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), level.zapLevel())

	cores := []zapcore.Core{consoleCore}
	if runtime.GOOS == "linux" {
		if jc, err := newJournaldCore(level.zapLevel()); err == nil {
			cores = append(cores, jc)
		}
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

func newJournaldCore(level zapcore.Level) (zapcore.Core, error) {
	if _, err := os.Stat("/run/systemd/journal/socket"); err != nil {
		return nil, err
	}
	return journaldCore{level: level}, nil
}

// journaldCore adapts zapcore.Core onto journald.Send, matching the shape
// icinga-go-library's own journald core takes: one Send call per log entry,
// fields flattened into journald key=value pairs.
type journaldCore struct {
	level  zapcore.Level
	fields []zapcore.Field
}

func (c journaldCore) Enabled(lvl zapcore.Level) bool { return lvl >= c.level }

func (c journaldCore) With(fields []zapcore.Field) zapcore.Core {
	return journaldCore{level: c.level, fields: append(append([]zapcore.Field{}, c.fields...), fields...)}
}

func (c journaldCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c journaldCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	vars := map[string]string{"SYSLOG_IDENTIFIER": "ansilo-connectord"}
	for _, f := range append(append([]zapcore.Field{}, c.fields...), fields...) {
		vars[f.Key] = f.String
	}
	return journald.Send(ent.Message, journaldPriority(ent.Level), vars)
}

func (c journaldCore) Sync() error { return nil }

func journaldPriority(lvl zapcore.Level) journald.Priority {
	switch lvl {
	case zapcore.DebugLevel:
		return journald.PriorityDebug
	case zapcore.WarnLevel:
		return journald.PriorityWarning
	case zapcore.ErrorLevel:
		return journald.PriorityErr
	default:
		return journald.PriorityInfo
	}
}

// Component returns a named child logger, the convention obslog consumers
// use instead of calling logger.Named directly so the naming scheme stays
// in one place (e.g. Component(root, "ipc"), Component(root, "pool")).
func Component(root *zap.Logger, name string) *zap.Logger {
	return root.Named(name)
}
