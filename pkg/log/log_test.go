package log

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		input string
		want  logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"trace", logrus.TraceLevel},
		{"bogus", logrus.InfoLevel}, // invalid falls back to info
		{"", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			logger := New(tt.input)
			assert.Equal(t, tt.want, logger.GetLevel())
		})
	}
}

func TestNew_Formatter(t *testing.T) {
	logger := New("info")
	formatter, ok := logger.Formatter.(*logrus.TextFormatter)
	require.True(t, ok, "expected TextFormatter")
	assert.True(t, formatter.FullTimestamp)
	assert.Equal(t, "15:04:05.000", formatter.TimestampFormat)
}

func TestAddFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")

	logger := New("info")
	logger.SetOutput(io.Discard)
	closeFn, err := AddFileOutput(logger, path)
	require.NoError(t, err)

	logger.Info("warmed something")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "warmed something"),
		"log file should contain the message, got: %s", data)
}

func TestAddFileOutput_BadPath(t *testing.T) {
	logger := New("info")
	_, err := AddFileOutput(logger, filepath.Join(t.TempDir(), "missing", "dir", "run.log"))
	assert.Error(t, err)
}
