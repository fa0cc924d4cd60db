package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Levels(t *testing.T) {
	tests := []struct {
		verbosity int
		want      logrus.Level
	}{
		{0, logrus.InfoLevel},
		{1, logrus.DebugLevel},
		{2, logrus.TraceLevel},
		{5, logrus.TraceLevel},
	}

	for _, tt := range tests {
		require.NoError(t, Init(tt.verbosity, ""))
		assert.Equal(t, tt.want, logrus.GetLevel(), "verbosity %d", tt.verbosity)
	}
	Discard()
}

func TestInit_WritesLogFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "activity.log")

	require.NoError(t, Init(0, logFile))
	Discard()
	t.Cleanup(func() {
		logrus.StandardLogger().ReplaceHooks(make(logrus.LevelHooks))
	})

	GetLogger("test").Info("hello from the test")

	b, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), "hello from the test"))
}

func TestGetLogger_PadsPrefix(t *testing.T) {
	entry := GetLogger("x")
	prefix, ok := entry.Data["prefix"].(string)
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(prefix), 9)
	assert.Equal(t, "x", strings.TrimSpace(prefix))
}
