package system

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	debugLog, err := NewLogger(true)
	require.NoError(t, err)
	require.True(t, debugLog.Desugar().Core().Enabled(zapcore.DebugLevel))

	prodLog, err := NewLogger(false)
	require.NoError(t, err)
	require.False(t, prodLog.Desugar().Core().Enabled(zapcore.DebugLevel))
	require.True(t, prodLog.Desugar().Core().Enabled(zapcore.InfoLevel))
}

func TestNewTestLogger(t *testing.T) {
	log := NewTestLogger()
	require.NotNil(t, log)
	log.Infow("test message", "key", "value")
}

func TestEmailFields(t *testing.T) {
	require.Equal(t, []interface{}{"name", "maintenance"}, EmailFields("maintenance", ""))
	require.Equal(t, []interface{}{"name", "maintenance", "subject", "Planned"}, EmailFields("maintenance", "Planned"))
}
