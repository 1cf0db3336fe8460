package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"WARN", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInitCLILogger(t *testing.T) {
	orig := CLILogger
	defer func() { CLILogger = orig }()

	InitCLILogger("r2fm", false)
	require.NotNil(t, CLILogger)
	assert.False(t, CLILogger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, CLILogger.Core().Enabled(zapcore.WarnLevel))

	InitCLILogger("r2fm", true)
	assert.True(t, CLILogger.Core().Enabled(zapcore.DebugLevel))
}

func TestInitServerLogger(t *testing.T) {
	orig := ServerLogger
	defer func() { ServerLogger = orig }()

	require.NoError(t, InitServerLogger("r2fm", "info", "structured"))
	assert.True(t, ServerLogger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, ServerLogger.Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, InitServerLogger("r2fm", "debug", "console"))
	assert.True(t, ServerLogger.Core().Enabled(zapcore.DebugLevel))

	assert.Error(t, InitServerLogger("r2fm", "info", "xml"))
	assert.Error(t, InitServerLogger("r2fm", "chatty", "structured"))
}
