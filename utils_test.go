package royaltysale

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseEther(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"50", "50000000000000000000"},
		{"2.5", "2500000000000000000"},
		{"0.000000000000000001", "1"},
		{"0", "0"},
	}
	for _, tt := range tests {
		wei, err := ParseEther(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, wei.String(), tt.in)
	}
}

func TestParseEtherRejects(t *testing.T) {
	_, err := ParseEther("-1")
	assert.ErrorIs(t, err, ErrNegativeAmount)

	_, err = ParseEther("0.0000000000000000001")
	assert.Error(t, err)

	_, err = ParseEther("fifty")
	assert.Error(t, err)

	_, err = ParseUnits("115792089237316195423570985008687907853269984665640564039457584007913129639936", 0)
	assert.ErrorIs(t, err, ErrArithmeticOverflow)
}

func TestFormatEther(t *testing.T) {
	assert.Equal(t, "2.5", FormatEther(ether(t, "2.5")))
	assert.Equal(t, "47.5", FormatEther(ether(t, "47.5")))
	assert.Equal(t, "0", FormatEther(nil))
	assert.Equal(t, "1.5", FormatUnits(big.NewInt(1500), 3))
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress(testReceiver)
	require.NoError(t, err)
	assert.Equal(t, testRoyalty, addr)

	_, err = ParseAddress("0x1234")
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("debug", true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = NewLogger("", false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))

	_, err = NewLogger("loud", false)
	assert.Error(t, err)
}

func TestEtherField(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	zap.New(core).Info("paid", Ether("royalty", ether(t, "2.5")))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "2.5", logs.All()[0].ContextMap()["royalty"])
}
