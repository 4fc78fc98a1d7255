package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/jm289765/concept-graph-web/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		level string
		want  zapcore.Level
	}{
		{name: "development debug", env: "development", level: "debug", want: zapcore.DebugLevel},
		{name: "production info", env: "production", level: "info", want: zapcore.InfoLevel},
		{name: "warn", env: "test", level: "warn", want: zapcore.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Environment = tt.env
			cfg.Logging.Level = tt.level

			logger, level, err := New(cfg, "stderr")
			require.NoError(t, err)
			require.NotNil(t, logger)
			assert.Equal(t, tt.want, level.Level())

			level.SetLevel(zapcore.ErrorLevel)
			assert.False(t, logger.Core().Enabled(zapcore.WarnLevel))
		})
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Level = "loud"
	_, _, err := New(cfg)
	assert.Error(t, err)
}
