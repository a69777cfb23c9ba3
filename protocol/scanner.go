// File: protocol/scanner.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Scanner is a resumable frame header parser. Feed it the stream in chunks of
// any size; it keeps partial fields between calls and stops right after the
// header, leaving payload bytes to the caller.

package protocol

import "encoding/binary"

// ScanState is the field the scanner is currently reading.
type ScanState int8

const (
	StateNone    ScanState = -1 // between frames
	StateMeta    ScanState = 0  // FIN, RSV1-3, opcode, MASK, 7-bit length code
	StatePaylen  ScanState = 1  // 16- or 64-bit extended length
	StateMaskKey ScanState = 2  // 4-byte masking key
)

func (s ScanState) String() string {
	switch s {
	case StateMeta:
		return "meta"
	case StatePaylen:
		return "paylen"
	case StateMaskKey:
		return "mask-key"
	default:
		return "none"
	}
}

// Scanner holds the partial parse of one frame header. The zero value is
// not ready; use NewScanner or Reset. One scanner per connection is enough:
// it never holds payload data.
type Scanner struct {
	// Scans counts calls to Scan over the scanner's lifetime. A value that
	// keeps growing without frames completing points at a stalled peer.
	Scans uint16
	// CScans counts calls spent in the current field.
	CScans uint8
	// Frame is the captured header; complete once Scan reports done.
	Frame Frame

	state ScanState
	off   int // bytes of the current field already consumed
	field [8]byte
}

// NewScanner returns a scanner waiting for the first header byte.
func NewScanner() *Scanner {
	s := &Scanner{}
	s.Reset()
	return s
}

// Reset drops any partial header.
func (s *Scanner) Reset() {
	s.state = StateNone
	s.off = 0
	s.CScans = 0
}

// State reports the field in progress, StateNone between frames.
func (s *Scanner) State() ScanState { return s.state }

// Scan consumes header bytes from p. It returns how many bytes belong to the
// header and whether the header is now complete. When done, s.Frame holds the
// raw decoded fields and the scanner is back at StateNone; p[n:] starts the
// payload. Classifying protocol violations is left to Validate.
func (s *Scanner) Scan(p []byte) (n int, done bool) {
	s.Scans++
	if s.state == StateNone {
		s.Frame = Frame{}
		s.enter(StateMeta)
	}
	s.CScans++

	for n < len(p) {
		switch s.state {
		case StateMeta:
			s.field[s.off] = p[n]
			n++
			s.off++
			if s.off < 2 {
				continue
			}
			s.decodeMeta()
			switch {
			case s.Frame.PayloadLen.Type != Len7:
				s.enter(StatePaylen)
			case s.Frame.Masked:
				s.enter(StateMaskKey)
			default:
				return n, s.finish()
			}

		case StatePaylen:
			need := s.Frame.PayloadLen.Type.extraBytes()
			n += s.take(p[n:], need)
			if s.off < need {
				return n, false
			}
			if need == 2 {
				s.Frame.PayloadLen.Value = uint64(binary.BigEndian.Uint16(s.field[:2]))
			} else {
				s.Frame.PayloadLen.Value = binary.BigEndian.Uint64(s.field[:8])
			}
			if !s.Frame.Masked {
				return n, s.finish()
			}
			s.enter(StateMaskKey)

		case StateMaskKey:
			n += s.take(p[n:], 4)
			if s.off < 4 {
				return n, false
			}
			copy(s.Frame.MaskKey[:], s.field[:4])
			return n, s.finish()
		}
	}
	return n, false
}

func (s *Scanner) decodeMeta() {
	b0, b1 := s.field[0], s.field[1]
	f := &s.Frame
	f.Fin = b0&FinBit != 0
	f.Rsv1 = b0&Rsv1Bit != 0
	f.Rsv2 = b0&Rsv2Bit != 0
	f.Rsv3 = b0&Rsv3Bit != 0
	f.Opcode = Opcode(b0 & OpcodeBit)
	f.Masked = b1&MaskBit != 0

	switch code := b1 & Len7Bits; code {
	case len16Code:
		f.PayloadLen = PayloadLen{Type: Len16}
	case len64Code:
		f.PayloadLen = PayloadLen{Type: Len64}
	default:
		f.PayloadLen = PayloadLen{Type: Len7, Value: uint64(code)}
	}
}

// take copies up to need-off bytes of the current field from p.
func (s *Scanner) take(p []byte, need int) int {
	k := copy(s.field[s.off:need], p)
	s.off += k
	return k
}

func (s *Scanner) enter(st ScanState) {
	s.state = st
	s.off = 0
	s.CScans = 0
}

func (s *Scanner) finish() bool {
	s.state = StateNone
	s.off = 0
	return true
}
