package obs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLoggerLevel(t *testing.T) {
	log := NewLogger("svc", "debug", false)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))

	log = NewLogger("svc", "loud", false)
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
}

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	cfg := OTelConfig{ServiceName: "svc"}
	require.False(t, cfg.Enabled())
	assert.Nil(t, cfg.headers())

	shutdown, err := Setup(context.Background(), cfg)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	cfg.AuthHeader = "Basic abc"
	assert.Equal(t, map[string]string{"Authorization": "Basic abc"}, cfg.headers())
}
