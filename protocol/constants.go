// Package protocol
// Author: momentics <momentics@gmail.com>
//
// WebSocket wire protocol constants

package protocol

import "strconv"

// Opcode is the 4-bit frame type.
type Opcode uint8

const (
	// Non-control opcodes (<0x8)
	OpcodeContinuation Opcode = 0x0
	OpcodeText         Opcode = 0x1
	OpcodeBinary       Opcode = 0x2

	// Control opcodes (>=0x8)
	OpcodeClose Opcode = 0x8
	OpcodePing  Opcode = 0x9
	OpcodePong  Opcode = 0xA
)

// IsControl reports whether o is in the control range.
func (o Opcode) IsControl() bool { return o&0x8 != 0 }

// Known reports whether o is one of the six opcodes RFC 6455 defines.
func (o Opcode) Known() bool {
	switch o {
	case OpcodeContinuation, OpcodeText, OpcodeBinary, OpcodeClose, OpcodePing, OpcodePong:
		return true
	}
	return false
}

func (o Opcode) String() string {
	switch o {
	case OpcodeContinuation:
		return "cont"
	case OpcodeText:
		return "text"
	case OpcodeBinary:
		return "bin"
	case OpcodeClose:
		return "close"
	case OpcodePing:
		return "ping"
	case OpcodePong:
		return "pong"
	default:
		return "0x" + strconv.FormatUint(uint64(o), 16)
	}
}

// Status is a close frame status code.
type Status uint16

const (
	StatusNone         Status = 0
	StatusNormal       Status = 1000
	StatusGoingAway    Status = 1001
	StatusProtocol     Status = 1002
	StatusType         Status = 1004
	StatusData         Status = 1007
	StatusPolicy       Status = 1008
	StatusTooBig       Status = 1009
	StatusExtension    Status = 1010
	StatusInternalFail Status = 1011
)

func (s Status) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusNormal:
		return "normal"
	case StatusGoingAway:
		return "going-away"
	case StatusProtocol:
		return "protocol-error"
	case StatusType:
		return "type"
	case StatusData:
		return "data"
	case StatusPolicy:
		return "policy"
	case StatusTooBig:
		return "too-big"
	case StatusExtension:
		return "extension"
	case StatusInternalFail:
		return "internal-failure"
	default:
		return strconv.Itoa(int(s))
	}
}

const (
	// Frame limit settings
	MaxControlPayloadLen = 125
	MaxFrameHeaderLen    = 14 // for extended payloads with masking

	// 7-bit length codes announcing an extended length
	len16Code = 126
	len64Code = 127

	// Bit masks
	FinBit    = 0x80
	Rsv1Bit   = 0x40
	Rsv2Bit   = 0x20
	Rsv3Bit   = 0x10
	OpcodeBit = 0x0F
	MaskBit   = 0x80
	Len7Bits  = 0x7F
)
