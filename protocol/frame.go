// Package protocol
// Author: momentics <momentics@gmail.com>
//
// In-memory model of one WebSocket frame header. The payload is not part of
// the model; callers move it separately using Length and MaskKey.

package protocol

// LenType tells which wire encoding carries the payload length.
type LenType uint8

const (
	LenNone LenType = iota
	Len7
	Len16
	Len64
)

func (t LenType) String() string {
	switch t {
	case Len7:
		return "7-bit"
	case Len16:
		return "16-bit"
	case Len64:
		return "64-bit"
	default:
		return "none"
	}
}

// extraBytes is the number of length bytes following the 7-bit code.
func (t LenType) extraBytes() int {
	switch t {
	case Len16:
		return 2
	case Len64:
		return 8
	default:
		return 0
	}
}

// PayloadLen is the tagged payload length. Value always holds the length;
// Type records the width it is (or was) encoded with.
type PayloadLen struct {
	Type  LenType
	Value uint64
}

// MinimalLenType returns the smallest encoding able to carry n.
func MinimalLenType(n uint64) LenType {
	switch {
	case n <= 125:
		return Len7
	case n <= 0xFFFF:
		return Len16
	default:
		return Len64
	}
}

// Frame is a decoded or to-be-encoded frame header.
type Frame struct {
	Fin    bool
	Rsv1   bool
	Rsv2   bool
	Rsv3   bool
	Opcode Opcode
	Masked bool

	PayloadLen PayloadLen

	// MaskKey is meaningful only if Masked.
	MaskKey [4]byte
}

// Length returns the payload length.
func (f *Frame) Length() uint64 { return f.PayloadLen.Value }

// SetLength stores n with its minimal encoding.
func (f *Frame) SetLength(n uint64) {
	f.PayloadLen = PayloadLen{Type: MinimalLenType(n), Value: n}
}

// SetMask marks the frame masked with key.
func (f *Frame) SetMask(key [4]byte) {
	f.Masked = true
	f.MaskKey = key
}

// HeaderLen is the number of bytes EncodeFrame writes for f.
func (f *Frame) HeaderLen() int {
	n := 2 + MinimalLenType(f.PayloadLen.Value).extraBytes()
	if f.Masked {
		n += 4
	}
	return n
}

// NewFrame builds a header for a payload of length n.
func NewFrame(op Opcode, fin bool, n uint64) Frame {
	f := Frame{Fin: fin, Opcode: op}
	f.SetLength(n)
	return f
}
