// File: protocol/policy.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Caller-side checks on a captured header. The scanner reports raw fields;
// whether a given field is acceptable depends on the endpoint's role and on
// negotiated extensions, so that decision lives here.

package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrReservedBits      = errors.New("reserved bits set without a negotiated extension")
	ErrUnknownOpcode     = errors.New("unknown opcode")
	ErrControlFragmented = errors.New("control frame is fragmented")
	ErrControlTooLarge   = errors.New("control frame payload exceeds 125 bytes")
	ErrMaskRequired      = errors.New("client frame is not masked")
	ErrMaskForbidden     = errors.New("server frame is masked")
	ErrFrameTooLarge     = errors.New("frame payload exceeds limit")
	ErrLengthMSBSet      = errors.New("64-bit payload length has its most significant bit set")
	ErrBadClosePayload   = errors.New("malformed close payload")
)

// Role is the endpoint receiving the frame.
type Role uint8

const (
	// RoleServer receives client frames, which must be masked.
	RoleServer Role = iota
	// RoleClient receives server frames, which must not be masked.
	RoleClient
)

// Policy describes what an endpoint accepts.
type Policy struct {
	Role Role
	// AllowedRsv is the set of RSV bits (Rsv1Bit|Rsv2Bit|Rsv3Bit) extensions may use.
	AllowedRsv byte
	// MaxPayload bounds data frame payloads; 0 means no limit.
	MaxPayload uint64
}

// DefaultPolicy is a server without extensions and a 1 MiB payload cap.
func DefaultPolicy() Policy {
	return Policy{Role: RoleServer, MaxPayload: 1 << 20}
}

// Validate checks f against p and RFC 6455 framing rules.
func Validate(f *Frame, p Policy) error {
	var rsv byte
	if f.Rsv1 {
		rsv |= Rsv1Bit
	}
	if f.Rsv2 {
		rsv |= Rsv2Bit
	}
	if f.Rsv3 {
		rsv |= Rsv3Bit
	}
	if rsv&^p.AllowedRsv != 0 {
		return ErrReservedBits
	}
	if !f.Opcode.Known() {
		return fmt.Errorf("%w: %s", ErrUnknownOpcode, f.Opcode)
	}
	if f.Opcode.IsControl() {
		if !f.Fin {
			return ErrControlFragmented
		}
		if f.Length() > MaxControlPayloadLen {
			return ErrControlTooLarge
		}
	}
	if f.PayloadLen.Type == Len64 && f.Length()>>63 != 0 {
		return ErrLengthMSBSet
	}
	switch {
	case p.Role == RoleServer && !f.Masked:
		return ErrMaskRequired
	case p.Role == RoleClient && f.Masked:
		return ErrMaskForbidden
	}
	if p.MaxPayload > 0 && f.Length() > p.MaxPayload {
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, f.Length(), p.MaxPayload)
	}
	return nil
}

// StatusFor maps a Validate error to the close status to send back.
func StatusFor(err error) Status {
	switch {
	case err == nil:
		return StatusNormal
	case errors.Is(err, ErrFrameTooLarge):
		return StatusTooBig
	case errors.Is(err, ErrReservedBits),
		errors.Is(err, ErrUnknownOpcode),
		errors.Is(err, ErrControlFragmented),
		errors.Is(err, ErrControlTooLarge),
		errors.Is(err, ErrMaskRequired),
		errors.Is(err, ErrMaskForbidden),
		errors.Is(err, ErrLengthMSBSet),
		errors.Is(err, ErrNonMinimalLength),
		errors.Is(err, ErrBadClosePayload):
		return StatusProtocol
	default:
		return StatusInternalFail
	}
}

// ValidCloseStatus reports whether a peer may send s in a close frame.
// 1004, 1005, 1006 and 1015 are reserved for local use and never travel.
func ValidCloseStatus(s Status) bool {
	switch {
	case s >= 1000 && s <= 1003:
		return true
	case s >= 1007 && s <= 1014:
		return true
	case s >= 3000 && s <= 4999:
		return true
	}
	return false
}

// CheckClose parses a received close payload. An empty payload yields
// StatusNone; a one-byte body or a status that may not travel is
// ErrBadClosePayload.
func CheckClose(payload []byte) (Status, string, error) {
	switch {
	case len(payload) == 0:
		return StatusNone, "", nil
	case len(payload) == 1:
		return StatusNone, "", fmt.Errorf("%w: 1-byte body", ErrBadClosePayload)
	}
	status, reason := ParseClose(payload)
	if !ValidCloseStatus(status) {
		return status, reason, fmt.Errorf("%w: status %d", ErrBadClosePayload, uint16(status))
	}
	return status, reason, nil
}
