// Package metrics instruments the decoder with real Prometheus
// collectors (counters and gauges registered through promauto), the
// same metric-collector-struct-plus-promauto-constructors pattern
// used for SDR decode pipeline instrumentation elsewhere in this
// pack, adapted from per-band gauges to per-DUID decode counters.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds every Prometheus collector this decoder exposes.
// Each Collector owns its own registry so multiple instances (as in
// tests) never collide on metric names.
type Collector struct {
	mu sync.RWMutex

	registry *prometheus.Registry

	messagesDecoded  *prometheus.CounterVec
	decodeErrors     prometheus.Counter
	syncsAcquired    prometheus.Counter
	poolExhausted    prometheus.Counter
	activeAssemblers prometheus.Gauge
	tsbksByType      *prometheus.CounterVec
	inputBitsTotal   prometheus.Counter

	activeCount int
}

// NewCollector builds a fresh registry and registers this decoder's
// collectors against it.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		messagesDecoded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "p25framer_messages_decoded_total",
			Help: "Total number of completed Data Units decoded, by DUID.",
		}, []string{"duid"}),

		decodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "p25framer_decode_errors_total",
			Help: "Total number of assemblers that completed without emitting a message (buffer overrun).",
		}),

		syncsAcquired: factory.NewCounter(prometheus.CounterOpts{
			Name: "p25framer_syncs_acquired_total",
			Help: "Total number of frame sync pattern matches.",
		}),

		poolExhausted: factory.NewCounter(prometheus.CounterOpts{
			Name: "p25framer_pool_exhausted_total",
			Help: "Total number of sync matches that found no free assembler in the pool.",
		}),

		activeAssemblers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "p25framer_active_assemblers",
			Help: "Number of assemblers currently mid-message.",
		}),

		tsbksByType: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "p25framer_tsbks_decoded_total",
			Help: "Total number of decoded trunking signalling blocks, by opcode.",
		}, []string{"opcode"}),

		inputBitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "p25framer_input_bits_total",
			Help: "Total number of input bits received from the demodulator.",
		}),
	}
}

// Registry returns the Prometheus registry this collector's metrics
// are registered against, for wiring into an HTTP handler.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// MessageDecoded records one completed Data Unit of the given DUID
// name.
func (c *Collector) MessageDecoded(duidName string) {
	c.messagesDecoded.WithLabelValues(duidName).Inc()
}

// DecodeError records one assembler failure.
func (c *Collector) DecodeError() {
	c.decodeErrors.Inc()
}

// SyncAcquired records one frame sync match.
func (c *Collector) SyncAcquired() {
	c.syncsAcquired.Inc()
}

// PoolExhausted records one sync match dropped for lack of a free
// assembler.
func (c *Collector) PoolExhausted() {
	c.poolExhausted.Inc()
}

// AssemblerActivated increments the active-assembler gauge.
func (c *Collector) AssemblerActivated() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeCount++
	c.activeAssemblers.Set(float64(c.activeCount))
}

// AssemblerReset decrements the active-assembler gauge.
func (c *Collector) AssemblerReset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeCount > 0 {
		c.activeCount--
	}
	c.activeAssemblers.Set(float64(c.activeCount))
}

// TSBKDecoded records one decoded trunking signalling block under the
// given opcode label.
func (c *Collector) TSBKDecoded(opcodeName string) {
	c.tsbksByType.WithLabelValues(opcodeName).Inc()
}

// InputBits adds n to the total input bit count.
func (c *Collector) InputBits(n int) {
	c.inputBitsTotal.Add(float64(n))
}
