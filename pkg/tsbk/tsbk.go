// Package tsbk builds typed Trunking Signalling Block variants from a
// decoded 98-bit TSBK payload, dispatching on the opcode subfield to
// build a typed struct from a raw field buffer. Unknown opcodes fall
// back to a generic variant carrying the raw payload rather than
// failing.
package tsbk

import "github.com/dbehnke/p25framer/pkg/bitbuffer"

// Common header field offsets within the 98-bit TSBK payload. Bit 0 is
// the last-block flag, bits 1-6 the opcode (bit 7 is not read), bits
// 8-15 the manufacturer's ID, and bits from 16 onward the argument
// area consumed by opcode-specific decoding below.
const (
	lastBlockOffset = 0
	lastBlockWidth  = 1
	opcodeOffset    = 1
	opcodeWidth     = 6
	mfidOffset      = 8
	mfidWidth       = 8
)

// Opcode identifies a trunking signalling block's message type.
type Opcode uint8

const (
	OpcodeGroupVoiceChannelGrant       Opcode = 0x00
	OpcodeGroupVoiceChannelGrantUpdate Opcode = 0x02
	OpcodeUnitToUnitVoiceChannelGrant  Opcode = 0x04
	OpcodeUnitToUnitAnswerRequest      Opcode = 0x05
	OpcodeAcknowledgeResponse          Opcode = 0x16
	OpcodeDenyResponse                 Opcode = 0x27
)

// Header is the set of fields every TSBK variant shares, decoded once
// before dispatching on Opcode.
type Header struct {
	NAC       uint64
	LastBlock bool
	Opcode    Opcode
	MFID      uint8
}

// IsLastBlock reports whether this block terminates its TSBK/PDU
// continuation chain.
func (h Header) IsLastBlock() bool {
	return h.LastBlock
}

// TSBK is implemented by every typed TSBK variant plus GenericTSBK.
type TSBK interface {
	IsLastBlock() bool
	GetOpcode() Opcode
}

// GroupVoiceChannelGrant is TSBK opcode 0x00/0x02: assigns a channel
// for a group call.
type GroupVoiceChannelGrant struct {
	Header
	Channel     uint16
	TalkgroupID uint16
	SourceID    uint32
}

func (g GroupVoiceChannelGrant) IsLastBlock() bool  { return g.Header.IsLastBlock() }
func (g GroupVoiceChannelGrant) GetOpcode() Opcode { return g.Header.Opcode }

// UnitToUnitVoiceChannelGrant is TSBK opcode 0x04/0x05: assigns a
// channel for a private call.
type UnitToUnitVoiceChannelGrant struct {
	Header
	Channel       uint16
	TargetAddress uint32
	SourceAddress uint32
}

func (u UnitToUnitVoiceChannelGrant) IsLastBlock() bool  { return u.Header.IsLastBlock() }
func (u UnitToUnitVoiceChannelGrant) GetOpcode() Opcode { return u.Header.Opcode }

// AcknowledgeResponse is TSBK opcode 0x16.
type AcknowledgeResponse struct {
	Header
	ServiceType uint8
	TargetID    uint32
}

func (a AcknowledgeResponse) IsLastBlock() bool  { return a.Header.IsLastBlock() }
func (a AcknowledgeResponse) GetOpcode() Opcode { return a.Header.Opcode }

// DenyResponse is TSBK opcode 0x27.
type DenyResponse struct {
	Header
	ServiceType uint8
	Reason      uint8
	TargetID    uint32
}

func (d DenyResponse) IsLastBlock() bool  { return d.Header.IsLastBlock() }
func (d DenyResponse) GetOpcode() Opcode { return d.Header.Opcode }

// GenericTSBK preserves the raw payload for an opcode this decoder
// doesn't model explicitly.
type GenericTSBK struct {
	Header
	Payload []bool
}

func (g GenericTSBK) IsLastBlock() bool  { return g.Header.IsLastBlock() }
func (g GenericTSBK) GetOpcode() Opcode { return g.Header.Opcode }

// Build constructs a typed TSBK from a 98-bit decoded payload and the
// NAC extracted from the NID, dispatching on the opcode subfield.
func Build(nac uint64, buf *bitbuffer.BitBuffer) (TSBK, error) {
	last, err := buf.Bit(lastBlockOffset)
	if err != nil {
		return nil, err
	}
	opcodeVal, err := buf.GetInt(opcodeOffset, opcodeOffset+opcodeWidth)
	if err != nil {
		return nil, err
	}
	mfidVal, err := buf.GetInt(mfidOffset, mfidOffset+mfidWidth)
	if err != nil {
		return nil, err
	}

	hdr := Header{
		NAC:       nac,
		LastBlock: last,
		Opcode:    Opcode(opcodeVal),
		MFID:      uint8(mfidVal),
	}

	switch hdr.Opcode {
	case OpcodeGroupVoiceChannelGrant, OpcodeGroupVoiceChannelGrantUpdate:
		channel, err := buf.GetInt(16, 32)
		if err != nil {
			return nil, err
		}
		tg, err := buf.GetInt(32, 48)
		if err != nil {
			return nil, err
		}
		src, err := buf.GetInt(48, 72)
		if err != nil {
			return nil, err
		}
		return GroupVoiceChannelGrant{
			Header:      hdr,
			Channel:     uint16(channel),
			TalkgroupID: uint16(tg),
			SourceID:    uint32(src),
		}, nil

	case OpcodeUnitToUnitVoiceChannelGrant, OpcodeUnitToUnitAnswerRequest:
		channel, err := buf.GetInt(16, 32)
		if err != nil {
			return nil, err
		}
		target, err := buf.GetInt(32, 56)
		if err != nil {
			return nil, err
		}
		source, err := buf.GetInt(56, 80)
		if err != nil {
			return nil, err
		}
		return UnitToUnitVoiceChannelGrant{
			Header:        hdr,
			Channel:       uint16(channel),
			TargetAddress: uint32(target),
			SourceAddress: uint32(source),
		}, nil

	case OpcodeAcknowledgeResponse:
		svc, err := buf.GetInt(16, 24)
		if err != nil {
			return nil, err
		}
		target, err := buf.GetInt(24, 48)
		if err != nil {
			return nil, err
		}
		return AcknowledgeResponse{
			Header:      hdr,
			ServiceType: uint8(svc),
			TargetID:    uint32(target),
		}, nil

	case OpcodeDenyResponse:
		svc, err := buf.GetInt(16, 24)
		if err != nil {
			return nil, err
		}
		reason, err := buf.GetInt(24, 32)
		if err != nil {
			return nil, err
		}
		target, err := buf.GetInt(32, 56)
		if err != nil {
			return nil, err
		}
		return DenyResponse{
			Header:      hdr,
			ServiceType: uint8(svc),
			Reason:      uint8(reason),
			TargetID:    uint32(target),
		}, nil

	default:
		payload, err := buf.Get(0, buf.Len())
		if err != nil {
			return nil, err
		}
		return GenericTSBK{Header: hdr, Payload: payload}, nil
	}
}
