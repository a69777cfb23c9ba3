// Copyright 2025 momentics@gmail.com
// License: Apache 2.0

// scanner_test.go — resumable header scanning across chunk boundaries.
package protocol

import (
	"testing"
)

var roundTripLengths = []uint64{0, 1, 125, 126, 65535, 65536}

func encodeHeader(t *testing.T, f *Frame) []byte {
	t.Helper()
	buf := make([]byte, MaxFrameHeaderLen)
	n, err := EncodeFrame(buf, f)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	return buf[:n]
}

func testFrames() []Frame {
	var out []Frame
	for _, l := range roundTripLengths {
		plain := NewFrame(OpcodeBinary, true, l)
		out = append(out, plain)

		masked := NewFrame(OpcodeText, false, l)
		masked.Rsv2 = true
		masked.SetMask([4]byte{0xDE, 0xAD, 0xBE, 0xEF})
		out = append(out, masked)
	}
	return out
}

func TestScanRoundTripSingleChunk(t *testing.T) {
	s := NewScanner()
	for _, want := range testFrames() {
		hdr := encodeHeader(t, &want)
		stream := append(append([]byte{}, hdr...), 0xFF, 0xFF) // payload follows
		n, done := s.Scan(stream)
		if !done {
			t.Fatalf("len %d: header not complete", want.Length())
		}
		if n != len(hdr) {
			t.Errorf("len %d: consumed %d, header is %d", want.Length(), n, len(hdr))
		}
		if s.Frame != want {
			t.Errorf("len %d: got %+v want %+v", want.Length(), s.Frame, want)
		}
		if s.State() != StateNone {
			t.Errorf("scanner not reset, state %v", s.State())
		}
	}
}

func TestScanRoundTripByteAtATime(t *testing.T) {
	for _, want := range testFrames() {
		s := NewScanner()
		hdr := encodeHeader(t, &want)
		for i, b := range hdr {
			n, done := s.Scan([]byte{b})
			if n != 1 {
				t.Fatalf("len %d byte %d: consumed %d", want.Length(), i, n)
			}
			if done != (i == len(hdr)-1) {
				t.Fatalf("len %d byte %d: done=%v", want.Length(), i, done)
			}
		}
		if s.Frame != want {
			t.Errorf("len %d: got %+v want %+v", want.Length(), s.Frame, want)
		}
		if int(s.Scans) != len(hdr) {
			t.Errorf("scans = %d, want %d", s.Scans, len(hdr))
		}
	}
}

func TestScanResumesMidField(t *testing.T) {
	want := NewFrame(OpcodeBinary, true, 65536)
	want.SetMask([4]byte{1, 2, 3, 4})
	hdr := encodeHeader(t, &want) // 2 meta + 8 length + 4 key

	s := NewScanner()
	if n, done := s.Scan(hdr[:5]); n != 5 || done {
		t.Fatalf("first chunk n=%d done=%v", n, done)
	}
	if s.State() != StatePaylen {
		t.Fatalf("state %v, want paylen", s.State())
	}
	if n, done := s.Scan(hdr[5:12]); n != 7 || done {
		t.Fatalf("second chunk n=%d done=%v", n, done)
	}
	if s.State() != StateMaskKey {
		t.Fatalf("state %v, want mask-key", s.State())
	}
	if s.CScans != 0 {
		t.Errorf("cscans = %d right after entering mask key", s.CScans)
	}
	if n, done := s.Scan(hdr[12:13]); n != 1 || done {
		t.Fatalf("third chunk n=%d done=%v", n, done)
	}
	if s.CScans != 1 {
		t.Errorf("cscans = %d, want 1", s.CScans)
	}
	if n, done := s.Scan(hdr[13:]); n != 1 || !done {
		t.Fatalf("last chunk n=%d done=%v", n, done)
	}
	if s.Frame != want {
		t.Errorf("got %+v", s.Frame)
	}
	if s.Scans != 4 {
		t.Errorf("scans = %d", s.Scans)
	}
}

func TestScanBackToBackFrames(t *testing.T) {
	ping := make([]byte, 8)
	n1, _ := EncodePing(ping, nil, nil)
	text := NewFrame(OpcodeText, true, 300)
	stream := append(ping[:n1], encodeHeader(t, &text)...)

	s := NewScanner()
	n, done := s.Scan(stream)
	if !done || n != 2 || s.Frame.Opcode != OpcodePing || !s.Frame.Fin {
		t.Fatalf("first frame: n=%d done=%v %+v", n, done, s.Frame)
	}
	n2, done := s.Scan(stream[n:])
	if !done || n2 != 4 || s.Frame.Opcode != OpcodeText || s.Frame.Length() != 300 {
		t.Fatalf("second frame: n=%d done=%v %+v", n2, done, s.Frame)
	}
}

func TestScanEmptyInput(t *testing.T) {
	s := NewScanner()
	if n, done := s.Scan(nil); n != 0 || done {
		t.Fatalf("n=%d done=%v", n, done)
	}
	if s.State() != StateMeta {
		t.Errorf("state %v", s.State())
	}
	s.Reset()
	if s.State() != StateNone {
		t.Error("Reset must return to none")
	}
}

func TestScanReportsRawFields(t *testing.T) {
	// Fragmented ping with all reserved bits: malformed, but scanning is not policy.
	s := NewScanner()
	n, done := s.Scan([]byte{0x79, 0x7E, 0x00, 0x05})
	if !done || n != 4 {
		t.Fatalf("n=%d done=%v", n, done)
	}
	f := s.Frame
	if f.Fin || !f.Rsv1 || !f.Rsv2 || !f.Rsv3 || f.Opcode != OpcodePing {
		t.Errorf("meta decoded wrong: %+v", f)
	}
	if f.PayloadLen.Type != Len16 || f.Length() != 5 {
		t.Errorf("non-minimal length must be reported as sent: %+v", f.PayloadLen)
	}
}
