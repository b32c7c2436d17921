package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		level zapcore.Level
	}{
		{name: "debug console", cfg: Config{Level: "debug", Format: "console"}, level: zapcore.DebugLevel},
		{name: "info json", cfg: Config{Level: "info", Format: "json"}, level: zapcore.InfoLevel},
		{name: "warn", cfg: Config{Level: "warn"}, level: zapcore.WarnLevel},
		{name: "default level", cfg: Config{}, level: zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(&tt.cfg)
			require.NoError(t, err)

			assert.True(t, log.Core().Enabled(tt.level))
			if tt.level > zapcore.DebugLevel {
				assert.False(t, log.Core().Enabled(tt.level-1))
			}
		})
	}
}

func TestNewInvalidLevel(t *testing.T) {
	_, err := New(&Config{Level: "verbose"})
	assert.Error(t, err)
}
