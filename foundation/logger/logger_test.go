package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevel(t *testing.T) {
	assert.True(t, LogLevel("debug").IsValid())
	assert.True(t, LogLevel("warn").IsValid())
	assert.False(t, LogLevel("verbose").IsValid())
	assert.False(t, LogLevel("").IsValid())

	assert.Equal(t, logrus.DebugLevel, LogLevelDebug.LogrusLevel())
	assert.Equal(t, logrus.InfoLevel, LogLevelInfo.LogrusLevel())
	assert.Equal(t, logrus.WarnLevel, LogLevelWarn.LogrusLevel())
	assert.Equal(t, logrus.ErrorLevel, LogLevelError.LogrusLevel())
}

func TestConfigureRejectsUnknownLevel(t *testing.T) {
	closer, err := Configure("loud", "")
	assert.Error(t, err)
	assert.NotNil(t, closer)
}

func TestConfigureLogFile(t *testing.T) {
	defer logrus.SetOutput(os.Stderr)

	file := filepath.Join(t.TempDir(), "logs", "w1temp.log")
	closer, err := Configure(LogLevelInfo, file)
	require.NoError(t, err)

	logrus.WithField("device", "28-00001").Info("hello from the test")
	require.NoError(t, closer.Close())

	content, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(content), "hello from the test")
	assert.Contains(t, string(content), "device=28-00001")
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}
