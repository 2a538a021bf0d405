// Package kapsellog is the shared logging surface for every component of
// the container engine. It wraps logrus with package-level helpers backed
// by a single configured instance, plus an optional file hook so that
// "-l/--logging" can route a run's log lines to <root>/logs/<id>.log
// without disturbing the stderr stream.
package kapsellog

import (
	"os"

	"github.com/sirupsen/logrus"
)

var base = logrus.New()

func init() {
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	base.SetOutput(os.Stderr)
	base.SetLevel(logrus.InfoLevel)
}

// Configure attaches a file hook writing every log line to path, in
// addition to stderr. Called once by the run command when -l/--logging is
// set; a no-op path means logging stays stderr-only.
func Configure(path string, enabled bool) error {
	if !enabled || path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	base.AddHook(&fileHook{file: f, formatter: &logrus.TextFormatter{FullTimestamp: true}})
	return nil
}

type fileHook struct {
	file      *os.File
	formatter logrus.Formatter
}

func (h *fileHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *fileHook) Fire(e *logrus.Entry) error {
	line, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	_, err = h.file.Write(line)
	return err
}

func Printf(format string, args ...interface{})  { base.Infof(format, args...) }
func Println(args ...interface{})                { base.Infoln(args...) }
func Errorf(format string, args ...interface{})  { base.Errorf(format, args...) }
func Warnf(format string, args ...interface{})   { base.Warnf(format, args...) }
func WithField(k string, v interface{}) *logrus.Entry {
	return base.WithField(k, v)
}
