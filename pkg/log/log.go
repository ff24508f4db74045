package log

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New creates a configured logrus.Logger with the given log level.
// Invalid levels fall back to info with a warning.
func New(levelStr string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	logger.SetLevel(logrus.InfoLevel)

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		logger.Warnf("Invalid log level '%s', using default 'info'. Error: %v", levelStr, err)
	} else {
		logger.SetLevel(level)
	}

	return logger
}

// AddFileOutput tees the logger's output to a file in addition to its
// current writer. Returns a close function for the file.
func AddFileOutput(logger *logrus.Logger, path string) (func() error, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %q: %w", path, err)
	}
	logger.SetOutput(io.MultiWriter(logger.Out, f))
	return f.Close, nil
}
