// Copyright 2025 momentics@gmail.com
// License: Apache 2.0

// policy_test.go — caller-side validation of captured headers.
package protocol

import (
	"errors"
	"testing"
)

func maskedFrame(op Opcode, fin bool, n uint64) Frame {
	f := NewFrame(op, fin, n)
	f.SetMask([4]byte{1, 1, 1, 1})
	return f
}

func TestValidateAcceptsClientData(t *testing.T) {
	f := maskedFrame(OpcodeText, true, 10)
	if err := Validate(&f, DefaultPolicy()); err != nil {
		t.Fatal(err)
	}
}

func TestValidateRejections(t *testing.T) {
	p := DefaultPolicy()

	rsv := maskedFrame(OpcodeBinary, true, 1)
	rsv.Rsv1 = true
	if err := Validate(&rsv, p); !errors.Is(err, ErrReservedBits) {
		t.Errorf("rsv: %v", err)
	}
	withExt := p
	withExt.AllowedRsv = Rsv1Bit
	if err := Validate(&rsv, withExt); err != nil {
		t.Errorf("rsv1 allowed by extension: %v", err)
	}

	unknown := maskedFrame(Opcode(0x3), true, 0)
	if err := Validate(&unknown, p); !errors.Is(err, ErrUnknownOpcode) {
		t.Errorf("opcode: %v", err)
	}

	frag := maskedFrame(OpcodePing, false, 0)
	if err := Validate(&frag, p); !errors.Is(err, ErrControlFragmented) {
		t.Errorf("fragmented ping: %v", err)
	}

	big := maskedFrame(OpcodeClose, true, 126)
	if err := Validate(&big, p); !errors.Is(err, ErrControlTooLarge) {
		t.Errorf("large close: %v", err)
	}

	plain := NewFrame(OpcodeText, true, 1)
	if err := Validate(&plain, p); !errors.Is(err, ErrMaskRequired) {
		t.Errorf("unmasked client frame: %v", err)
	}
	client := Policy{Role: RoleClient}
	masked := maskedFrame(OpcodeText, true, 1)
	if err := Validate(&masked, client); !errors.Is(err, ErrMaskForbidden) {
		t.Errorf("masked server frame: %v", err)
	}

	huge := maskedFrame(OpcodeBinary, true, p.MaxPayload+1)
	err := Validate(&huge, p)
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("oversized: %v", err)
	}
	if StatusFor(err) != StatusTooBig {
		t.Errorf("oversized maps to %v", StatusFor(err))
	}

	msb := maskedFrame(OpcodeBinary, true, 1<<63)
	if err := Validate(&msb, Policy{}); !errors.Is(err, ErrLengthMSBSet) {
		t.Errorf("msb: %v", err)
	}
}

func TestStatusFor(t *testing.T) {
	if StatusFor(nil) != StatusNormal {
		t.Error("nil should map to normal")
	}
	if StatusFor(ErrMaskRequired) != StatusProtocol {
		t.Error("mask violation should be a protocol error")
	}
	if StatusFor(errors.New("boom")) != StatusInternalFail {
		t.Error("unknown errors map to internal failure")
	}
	if StatusProtocol.String() != "protocol-error" || Status(4000).String() != "4000" {
		t.Error("status names")
	}
}

func TestCheckClose(t *testing.T) {
	cases := []struct {
		name    string
		payload []byte
		status  Status
		bad     bool
	}{
		{"empty", nil, StatusNone, false},
		{"normal", []byte{0x03, 0xe8, 'o', 'k'}, StatusNormal, false},
		{"application", []byte{0x0f, 0xa0}, Status(4000), false},
		{"one byte", []byte{0x03}, StatusNone, true},
		{"below range", []byte{0x03, 0xe7}, Status(999), true},
		{"reserved 1004", []byte{0x03, 0xec}, Status(1004), true},
		{"no status 1005", []byte{0x03, 0xed}, Status(1005), true},
		{"abnormal 1006", []byte{0x03, 0xee}, Status(1006), true},
		{"tls 1015", []byte{0x03, 0xf7}, Status(1015), true},
		{"unassigned 2000", []byte{0x07, 0xd0}, Status(2000), true},
		{"above range", []byte{0x13, 0x88}, Status(5000), true},
	}
	for _, tc := range cases {
		status, _, err := CheckClose(tc.payload)
		if status != tc.status {
			t.Errorf("%s: status %v, want %v", tc.name, status, tc.status)
		}
		if tc.bad != (err != nil) {
			t.Errorf("%s: err %v", tc.name, err)
			continue
		}
		if tc.bad && StatusFor(err) != StatusProtocol {
			t.Errorf("%s: maps to %v", tc.name, StatusFor(err))
		}
	}
}
