package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/xenscan/chainrpc/pkg/logger"
)

func TestLevel_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "info", LevelInfo.String())
	assert.Equal(t, "warning", LevelWarning.String())
	assert.Equal(t, "error", LevelError.String())
}

func TestNop(t *testing.T) {
	t.Parallel()

	Nop().Notify("ignored", LevelError, time.Second)
}

func TestFromLogger(t *testing.T) {
	t.Parallel()

	lggr, logs := logger.TestObserved(t, zapcore.InfoLevel)
	n := FromLogger(lggr)

	n.Notify("all good", LevelInfo, time.Second)
	n.Notify("heads up", LevelWarning, time.Second)
	n.Notify("broken", LevelError, time.Second)

	all := logs.All()
	require.Len(t, all, 3)
	assert.Equal(t, zapcore.InfoLevel, all[0].Level)
	assert.Equal(t, "all good", all[0].Message)
	assert.Equal(t, zapcore.WarnLevel, all[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, all[2].Level)
}
