// Package logger configures the process-wide logrus logger.
package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

func (lvl LogLevel) IsValid() bool {
	switch lvl {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	default:
		return false
	}
}

func (lvl LogLevel) LogrusLevel() logrus.Level {
	switch lvl {
	case LogLevelDebug:
		return logrus.DebugLevel
	case LogLevelInfo:
		return logrus.InfoLevel
	case LogLevelError:
		return logrus.ErrorLevel
	default:
		return logrus.WarnLevel
	}
}

// Configure sets level and formatter on the standard logrus logger. Logs go
// to stderr unless file is set, in which case they go to a rotated file.
// The returned closer releases the file and is never nil.
func Configure(lvl LogLevel, file string) (io.Closer, error) {
	if !lvl.IsValid() {
		return nopCloser{}, errors.Errorf("invalid log level %q", lvl)
	}

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: file != ""})
	logrus.SetLevel(lvl.LogrusLevel())

	if file == "" {
		logrus.SetOutput(os.Stderr)
		return nopCloser{}, nil
	}

	w, err := rotatingFile(file)
	if err != nil {
		return nopCloser{}, err
	}
	logrus.SetOutput(w)
	return w, nil
}

func rotatingFile(file string) (*lumberjack.Logger, error) {
	dir := filepath.Dir(file)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create the logs dir %q", dir)
	}

	return &lumberjack.Logger{
		Filename:   file,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
