// File: protocol/frame_codec.go
// Package protocol implements the frame header codec and payload masking.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Encoders write into caller-owned buffers and never allocate. They fail with
// api.ErrBufferTooSmall without a usable partial write.

package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/momentics/levee/api"
)

var (
	ErrNonMinimalLength = errors.New("payload length not minimally encoded")
	ErrBadMaskKey       = errors.New("mask key must be 4 bytes")
)

// Mask XORs src with key cycling by index mod 4 and writes the result to dst.
// It returns the number of bytes written, min(len(dst), len(src)). Applying it
// twice with the same key restores the input; dst may alias src.
func Mask(dst, src []byte, key [4]byte) int {
	return MaskAt(dst, src, key, 0)
}

// MaskAt is Mask for a slice starting at payload offset pos, so a payload that
// arrives in pieces can be unmasked piece by piece.
func MaskAt(dst, src []byte, key [4]byte, pos uint64) int {
	n := len(src)
	if len(dst) < n {
		n = len(dst)
	}
	k := int(pos & 3)
	for i := 0; i < n; i++ {
		dst[i] = src[i] ^ key[(k+i)&3]
	}
	return n
}

// EncodeFrame writes the header of f into dst and returns its length.
// A Frame whose PayloadLen.Type is set but not minimal is rejected; LenNone
// means "pick the minimal encoding".
func EncodeFrame(dst []byte, f *Frame) (int, error) {
	want := MinimalLenType(f.PayloadLen.Value)
	if f.PayloadLen.Type != LenNone && f.PayloadLen.Type != want {
		return 0, fmt.Errorf("%w: %d as %s", ErrNonMinimalLength, f.PayloadLen.Value, f.PayloadLen.Type)
	}
	need := f.HeaderLen()
	if len(dst) < need {
		return 0, fmt.Errorf("%w: header needs %d bytes, have %d", api.ErrBufferTooSmall, need, len(dst))
	}

	var b0 byte
	if f.Fin {
		b0 |= FinBit
	}
	if f.Rsv1 {
		b0 |= Rsv1Bit
	}
	if f.Rsv2 {
		b0 |= Rsv2Bit
	}
	if f.Rsv3 {
		b0 |= Rsv3Bit
	}
	b0 |= byte(f.Opcode) & OpcodeBit
	dst[0] = b0

	var maskBit byte
	if f.Masked {
		maskBit = MaskBit
	}
	offset := 2
	plen := f.PayloadLen.Value
	switch want {
	case Len7:
		dst[1] = byte(plen) | maskBit
	case Len16:
		dst[1] = len16Code | maskBit
		binary.BigEndian.PutUint16(dst[offset:], uint16(plen))
		offset += 2
	default:
		dst[1] = len64Code | maskBit
		binary.BigEndian.PutUint64(dst[offset:], plen)
		offset += 8
	}

	if f.Masked {
		copy(dst[offset:], f.MaskKey[:])
		offset += 4
	}
	return offset, nil
}

// EncodePing writes a complete PING frame. key == nil sends it unmasked
// (server side); clients must pass a 4-byte key.
func EncodePing(dst, payload, key []byte) (int, error) {
	return encodeControl(dst, OpcodePing, payload, key)
}

// EncodePong writes a complete PONG frame, typically echoing a ping payload.
func EncodePong(dst, payload, key []byte) (int, error) {
	return encodeControl(dst, OpcodePong, payload, key)
}

// EncodeClose writes a complete CLOSE frame. StatusNone sends an empty body.
func EncodeClose(dst []byte, status Status, reason string, key []byte) (int, error) {
	if status == StatusNone {
		return encodeControl(dst, OpcodeClose, nil, key)
	}
	var body [MaxControlPayloadLen]byte
	if 2+len(reason) > len(body) {
		return 0, fmt.Errorf("%w: close reason of %d bytes", ErrControlTooLarge, len(reason))
	}
	binary.BigEndian.PutUint16(body[:2], uint16(status))
	n := copy(body[2:], reason)
	return encodeControl(dst, OpcodeClose, body[:2+n], key)
}

// ParseClose splits a close payload into status and reason.
func ParseClose(payload []byte) (Status, string) {
	if len(payload) < 2 {
		return StatusNone, ""
	}
	return Status(binary.BigEndian.Uint16(payload)), string(payload[2:])
}

func encodeControl(dst []byte, op Opcode, payload, key []byte) (int, error) {
	if len(payload) > MaxControlPayloadLen {
		return 0, fmt.Errorf("%w: %d bytes", ErrControlTooLarge, len(payload))
	}
	f := NewFrame(op, true, uint64(len(payload)))
	if key != nil {
		if len(key) != 4 {
			return 0, ErrBadMaskKey
		}
		f.SetMask([4]byte{key[0], key[1], key[2], key[3]})
	}
	if len(dst) < f.HeaderLen()+len(payload) {
		return 0, fmt.Errorf("%w: control frame needs %d bytes", api.ErrBufferTooSmall, f.HeaderLen()+len(payload))
	}
	n, err := EncodeFrame(dst, &f)
	if err != nil {
		return 0, err
	}
	if f.Masked {
		Mask(dst[n:], payload, f.MaskKey)
	} else {
		copy(dst[n:], payload)
	}
	return n + len(payload), nil
}
