// Package framer implements the P25 Framer: dibit intake, sync
// detection, a fixed-size pool of assemblers, and dispatch to a
// message sink. The pool is a fixed-size, single-threaded slice rather
// than a dynamically-growing, mutex-guarded map: the dibit-ingest path
// owns its pool exclusively and needs no locking.
package framer

import (
	"fmt"
	"time"

	"github.com/dbehnke/p25framer/pkg/assembler"
	"github.com/dbehnke/p25framer/pkg/dibit"
	"github.com/dbehnke/p25framer/pkg/duid"
	"github.com/dbehnke/p25framer/pkg/logger"
	"github.com/dbehnke/p25framer/pkg/message"
	"github.com/dbehnke/p25framer/pkg/metrics"
	"github.com/dbehnke/p25framer/pkg/p25sync"
	"github.com/dbehnke/p25framer/pkg/tsbk"
)

// Config is the Framer's construction-time configuration: sync
// pattern, polarity, status schedule, and pool size.
type Config struct {
	SyncPattern    uint64
	Inverted       bool
	StatusSchedule []int
	PoolSize       int
}

// DefaultConfig returns sensible defaults: the P25 FS sync word,
// normal polarity, the standard status schedule, and a 2-assembler
// pool.
func DefaultConfig() Config {
	return Config{
		SyncPattern:    p25sync.DefaultPattern,
		Inverted:       false,
		StatusSchedule: assembler.DefaultStatusSchedule,
		PoolSize:       2,
	}
}

// Framer owns a SyncMatcher, a fixed-size pool of Assemblers, and an
// optional listener sink. It is not safe for concurrent use; exactly
// one ingest task may call Receive.
type Framer struct {
	matcher  *p25sync.Matcher
	pool     []*assembler.Assembler
	inverted bool
	sink     message.Sink
	metrics  *metrics.Collector
	log      *logger.Logger
	now      func() time.Time
}

// New creates a Framer from cfg. PoolSize below 1 is clamped to 1.
func New(cfg Config, log *logger.Logger) *Framer {
	size := cfg.PoolSize
	if size < 1 {
		size = 1
	}

	pool := make([]*assembler.Assembler, size)
	for i := range pool {
		pool[i] = assembler.New(cfg.StatusSchedule)
	}

	if log == nil {
		log = logger.New(logger.Config{Level: "info"})
	}

	return &Framer{
		matcher:  p25sync.New(cfg.SyncPattern),
		pool:     pool,
		inverted: cfg.Inverted,
		log:      log.WithComponent("framer"),
		now:      time.Now,
	}
}

// SetListener attaches the message sink. Dispatch is a no-op when no
// listener is set.
func (f *Framer) SetListener(sink message.Sink) {
	f.sink = sink
}

// ClearListener detaches the message sink.
func (f *Framer) ClearListener() {
	f.sink = nil
}

// SetMetrics attaches a metrics collector recording sync acquisitions,
// pool pressure, assembler lifecycle, decode errors, and per-opcode
// TSBK counts as they happen. Nil detaches it (the default, a no-op).
func (f *Framer) SetMetrics(m *metrics.Collector) {
	f.metrics = m
}

// Receive feeds one dibit to the matcher and every active assembler,
// resetting any assembler that completes, then activates a free
// assembler on a sync match.
func (f *Framer) Receive(d dibit.Dibit) {
	if f.inverted {
		d = d.Inverted()
	}

	if f.metrics != nil {
		f.metrics.InputBits(2)
	}

	f.matcher.Receive(d.Bit1())
	f.matcher.Receive(d.Bit2())

	for _, a := range f.pool {
		if !a.Active() {
			continue
		}
		msgs := a.Receive(d, f.now())
		for _, msg := range msgs {
			f.dispatch(msg)
		}
		if a.Complete() {
			// An assembler can only reach completion with no emitted
			// message via the BitBufferFull recovery path in
			// Assembler.Receive (an unexpected buffer overrun); every
			// other completion path emits exactly one message.
			if len(msgs) == 0 && f.metrics != nil {
				f.metrics.DecodeError()
			}
			if f.metrics != nil {
				f.metrics.AssemblerReset()
			}
			a.Reset()
		}
	}

	if f.matcher.Matches() {
		if f.metrics != nil {
			f.metrics.SyncAcquired()
		}
		f.activateFree()
	}
}

func (f *Framer) activateFree() {
	for _, a := range f.pool {
		if !a.Active() {
			a.Activate()
			if f.metrics != nil {
				f.metrics.AssemblerActivated()
			}
			return
		}
	}
	if f.metrics != nil {
		f.metrics.PoolExhausted()
	}
	f.log.Debug("assembler pool exhausted, dropping sync trigger")
}

func (f *Framer) dispatch(msg message.Message) {
	if f.metrics != nil {
		f.metrics.MessageDecoded(msg.DUID.String())
		if isTSBKDUID(msg.DUID) {
			if block, ok := msg.TSBK.(tsbk.TSBK); ok {
				f.metrics.TSBKDecoded(fmt.Sprintf("0x%02x", uint8(block.GetOpcode())))
			}
		}
	}
	if f.sink == nil {
		return
	}
	f.sink.Dispatch(msg)
}

func isTSBKDUID(d duid.DUID) bool {
	return d == duid.TSBK1 || d == duid.TSBK2 || d == duid.TSBK3
}

// Dispose detaches the listener and resets every pooled assembler. It
// is only safe to call from the ingest task, or after guaranteeing no
// further Receive calls.
func (f *Framer) Dispose() {
	f.ClearListener()
	for _, a := range f.pool {
		a.Reset()
	}
	f.matcher.Reset()
}
