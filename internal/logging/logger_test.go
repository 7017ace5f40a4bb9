package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fablesmith/loregate/internal/config"
)

func TestNew(t *testing.T) {
	t.Run("builds json and console loggers", func(t *testing.T) {
		for _, format := range []string{"json", "console"} {
			logger, err := New(config.LoggingConfig{Level: "info", Format: format})
			require.NoError(t, err, "format %s", format)
			assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
			assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
		}
	})

	t.Run("respects the configured level", func(t *testing.T) {
		logger, err := New(config.LoggingConfig{Level: "debug", Format: "json"})
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("rejects unknown level and format", func(t *testing.T) {
		_, err := New(config.LoggingConfig{Level: "loud", Format: "json"})
		assert.Error(t, err)

		_, err = New(config.LoggingConfig{Level: "info", Format: "xml"})
		assert.Error(t, err)
	})
}
