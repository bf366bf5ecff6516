//go:build integration
// +build integration

package integration

import (
	"testing"
	"time"

	"github.com/dbehnke/p25framer/internal/testhelpers"
	"github.com/dbehnke/p25framer/pkg/framer"
	"github.com/dbehnke/p25framer/pkg/message"
	"github.com/dbehnke/p25framer/pkg/metrics"
	"github.com/dbehnke/p25framer/pkg/mqttsink"
)

// TestMQTTSinkDispatchDisabled verifies a disabled sink never connects
// and its Dispatch is a silent no-op, matching the config-gated
// behavior of every other optional component.
func TestMQTTSinkDispatchDisabled(t *testing.T) {
	sink, err := mqttsink.New(mqttsink.Config{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("unexpected error constructing disabled sink: %v", err)
	}
	if sink == nil {
		t.Fatal("expected a disabled-but-non-nil sink")
	}

	// Dispatch must not panic even though no broker connection exists.
	sink.Dispatch(message.Message{})
	sink.Close()
}

// TestMetricsCollectionAcrossDecodedMessages exercises the collector
// end to end against a Framer fed a real TDU stream. It builds its own
// Framer (rather than suite.Framer) so it can override StatusSchedule
// the same way TestFramerSurvivesReset does: the stream below only
// supplies enough post-sync dibits for a TDU decoded with no
// status-bit skipping, and the default schedule would never let the
// assembler reach IsFull().
func TestMetricsCollectionAcrossDecodedMessages(t *testing.T) {
	cfg := framer.DefaultConfig()
	cfg.StatusSchedule = []int{1 << 30}

	collector := metrics.NewCollector()
	f := framer.New(cfg, nil)
	f.SetMetrics(collector)
	defer f.Dispose()

	stream := testhelpers.NewDibitStream().
		PushUint(0x5575F5FF77FF, 48).
		PushUint(0xF21, 12).
		PushUint(0x3, 4).
		PushZeros((64 - 16) / 2).
		PushZeros((504 - 64) / 2)

	for _, d := range stream.Dibits() {
		f.Receive(d)
	}

	if got := counterTotal(t, collector, "p25framer_messages_decoded_total"); got != 1 {
		t.Fatalf("expected exactly one decoded message counted, got %d", got)
	}
}

// TestIntegrationSuite_WaitForAdvanced checks WaitFor under a condition
// that flips true only after a few polls, confirming the suite's
// polling loop doesn't short-circuit on the first failure.
func TestIntegrationSuite_WaitForAdvanced(t *testing.T) {
	suite := testhelpers.NewIntegrationSuite(t)
	defer suite.Cleanup()

	attempts := 0
	ok := suite.WaitFor(func() bool {
		attempts++
		return attempts >= 3
	}, time.Second, "attempts >= 3")

	if !ok {
		t.Fatal("expected WaitFor to eventually succeed")
	}
}

// TestFramerSurvivesReset confirms a Framer that completes one message
// and is fed a second stream decodes independently, with no leftover
// state from the first assembly.
func TestFramerSurvivesReset(t *testing.T) {
	cfg := framer.DefaultConfig()
	cfg.StatusSchedule = []int{1 << 30}

	sink := testhelpers.NewRecordingSink()
	f := framer.New(cfg, nil)
	f.SetListener(sink)
	defer f.Dispose()

	stream := testhelpers.NewDibitStream().
		PushUint(0x5575F5FF77FF, 48).
		PushUint(0xF21, 12).
		PushUint(0x3, 4).
		PushZeros((64 - 16) / 2).
		PushZeros((504 - 64) / 2)

	for round := 0; round < 2; round++ {
		for _, d := range stream.Dibits() {
			f.Receive(d)
		}
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && sink.Count() != 2 {
		time.Sleep(10 * time.Millisecond)
	}
	if sink.Count() != 2 {
		t.Fatalf("expected two decoded messages across both streams, got %d", sink.Count())
	}
}

func counterTotal(t *testing.T, c *metrics.Collector, name string) int {
	t.Helper()
	metricFamilies, err := c.Registry().Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	total := 0
	for _, mf := range metricFamilies {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += int(m.GetCounter().GetValue())
		}
	}
	return total
}
