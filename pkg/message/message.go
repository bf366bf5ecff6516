// Package message defines the emitted P25 message: a snapshot of a
// completed assembler's buffer plus its DUID tag, a tagged sum type in
// place of a subclass hierarchy.
package message

import (
	"time"

	"github.com/google/uuid"

	"github.com/dbehnke/p25framer/pkg/bitbuffer"
	"github.com/dbehnke/p25framer/pkg/duid"
)

// Message is an emitted Data Unit: an independent copy of the
// assembler's buffer at completion time, tagged with its final DUID
// and the Network Access Code read from the NID. Downstream code
// never observes the assembler's live buffer directly — only this
// snapshot.
type Message struct {
	// ID correlates this decode across downstream sinks (log lines,
	// MQTT events, websocket events), generalizing a per-stream
	// correlation ID down to the level of a single decoded unit.
	ID uuid.UUID

	DUID duid.DUID
	NAC  uint64

	// Payload is the bit payload for this DUID: for TSBKs, exactly 98
	// bits (the trellis-decoded data); for HDU/LDU/TDU/TDULC/PDU/UNKN,
	// the full canonical-length buffer.
	Payload *bitbuffer.BitBuffer

	// TSBK carries the decoded, typed trunking signalling block when
	// DUID is TSBK1/TSBK2/TSBK3. Nil otherwise.
	TSBK interface{}

	// ReceivedAt is supplied by the caller, never set by this
	// package. The Framer passes the time read from its clock
	// (time.Now) for the dibit that completed the message.
	ReceivedAt time.Time
}

// Sink receives emitted messages, one per completed Data Unit. The
// framer never drops a completed message; whether a sink is attached
// is the only externally visible gate.
type Sink interface {
	Dispatch(msg Message)
}

// SinkFunc adapts a plain function to the Sink interface, letting
// cmd/p25framer fan a single decode out to the monitor hub and the
// MQTT sink without a dedicated multiplexing type.
type SinkFunc func(msg Message)

// Dispatch calls f(msg).
func (f SinkFunc) Dispatch(msg Message) {
	f(msg)
}
