package main

import (
	"io"
	"strings"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/sirupsen/logrus"
)

// logrusLogger adapts logrus to authclient.Logger. It accepts printf style
// calls and message plus key/value calls.
type logrusLogger struct {
	entry *logrus.Entry
}

var _ authclient.Logger = logrusLogger{}

func newLogger(out io.Writer, level string) logrusLogger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.WarnLevel
	}
	l.SetLevel(lvl)

	return logrusLogger{entry: logrus.NewEntry(l).WithField("component", "backoffice")}
}

func (l logrusLogger) Debug(format string, args ...any) {
	l.log(logrus.DebugLevel, format, args...)
}

func (l logrusLogger) Info(format string, args ...any) {
	l.log(logrus.InfoLevel, format, args...)
}

func (l logrusLogger) Warn(format string, args ...any) {
	l.log(logrus.WarnLevel, format, args...)
}

func (l logrusLogger) Error(format string, args ...any) {
	l.log(logrus.ErrorLevel, format, args...)
}

func (l logrusLogger) log(level logrus.Level, format string, args ...any) {
	if strings.Contains(format, "%") {
		l.entry.Logf(level, format, args...)
		return
	}
	l.entry.WithFields(fields(args)).Log(level, format)
}

func fields(args []any) logrus.Fields {
	out := make(logrus.Fields, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		if i+1 < len(args) {
			out[key] = args[i+1]
		} else {
			out[key] = nil
		}
	}
	return out
}
