package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCollector(t *testing.T) {
	c := NewCollector()
	require.NotNil(t, c)
	require.NotNil(t, c.Registry())
}

func TestCollector_MessageDecodedAndTSBK(t *testing.T) {
	c := NewCollector()

	c.MessageDecoded("TDU")
	c.MessageDecoded("TDU")
	c.MessageDecoded("HDU")
	c.TSBKDecoded("GRP_V_CH_GRANT")

	families, err := c.Registry().Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

func TestCollector_AssemblerGaugeTracksActivations(t *testing.T) {
	c := NewCollector()

	c.AssemblerActivated()
	c.AssemblerActivated()
	c.AssemblerReset()

	require.Equal(t, 1, c.activeCount)
}

func TestCollector_AssemblerResetNeverGoesNegative(t *testing.T) {
	c := NewCollector()
	c.AssemblerReset()
	require.Equal(t, 0, c.activeCount)
}

func TestCollector_SyncAndPoolCounters(t *testing.T) {
	c := NewCollector()
	c.SyncAcquired()
	c.PoolExhausted()
	c.DecodeError()
	c.InputBits(48)
}

func TestCollector_IndependentRegistries(t *testing.T) {
	a := NewCollector()
	b := NewCollector()
	require.NotSame(t, a.Registry(), b.Registry())
}
