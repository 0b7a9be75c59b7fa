package logger

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Run("InvalidLevel", func(t *testing.T) {
		_, err := New(Config{Level: "loud", Format: "json"})
		assert.Error(t, err)
	})

	t.Run("FileOutput", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "passforge.log")
		log, err := New(Config{Level: "info", Format: "console", Output: io.Discard, File: &FileConfig{Enabled: true, Path: path}})
		require.NoError(t, err)

		log.WithComponent("test").Info("hello")
		require.NoError(t, log.Sync())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"component":"test"`)
		assert.Contains(t, string(data), `"timestamp"`)
	})
}

func TestOutput(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Config{Level: "warn", Format: "json", Output: &buf})
	require.NoError(t, err)

	log.Info("quiet")
	log.Warn("loud")

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), `"msg":"loud"`)
}

func TestSetLevel(t *testing.T) {
	log, err := New(Config{Level: "info", Format: "json"})
	require.NoError(t, err)

	child := log.WithRequestID("req-1")
	require.NoError(t, log.SetLevel("debug"))
	assert.Equal(t, zapcore.DebugLevel, child.Level())
	assert.True(t, child.Core().Enabled(zapcore.DebugLevel))

	assert.Error(t, log.SetLevel("chatty"))
	assert.Equal(t, zapcore.DebugLevel, log.Level())
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	assert.NotPanics(t, func() { log.WithComponent("x").Info("discarded") })
}
