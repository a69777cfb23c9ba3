// Copyright 2025 momentics@gmail.com
// License: Apache 2.0

// interop_test.go — headers cross-checked against github.com/gobwas/ws.
package protocol_test

import (
	"bytes"
	"testing"

	"github.com/gobwas/ws"

	"github.com/momentics/levee/protocol"
)

func TestEncodedHeadersReadByGobwas(t *testing.T) {
	for _, l := range []uint64{0, 1, 125, 126, 65535, 65536} {
		f := protocol.NewFrame(protocol.OpcodeBinary, true, l)
		f.SetMask([4]byte{7, 6, 5, 4})
		buf := make([]byte, protocol.MaxFrameHeaderLen)
		n, err := protocol.EncodeFrame(buf, &f)
		if err != nil {
			t.Fatal(err)
		}
		h, err := ws.ReadHeader(bytes.NewReader(buf[:n]))
		if err != nil {
			t.Fatalf("len %d: gobwas rejected header: %v", l, err)
		}
		if !h.Fin || h.OpCode != ws.OpBinary || !h.Masked || h.Mask != f.MaskKey || uint64(h.Length) != l {
			t.Errorf("len %d: gobwas read %+v", l, h)
		}
		if ws.HeaderSize(h) != n {
			t.Errorf("len %d: header size %d vs %d", l, ws.HeaderSize(h), n)
		}
	}
}

func TestGobwasHeadersScanned(t *testing.T) {
	for _, l := range []int64{0, 1, 125, 126, 65535, 65536} {
		var out bytes.Buffer
		h := ws.Header{Fin: true, OpCode: ws.OpText, Length: l, Masked: true, Mask: ws.NewMask()}
		if err := ws.WriteHeader(&out, h); err != nil {
			t.Fatal(err)
		}
		wire := out.Bytes()

		s := protocol.NewScanner()
		for i := range wire {
			_, done := s.Scan(wire[i : i+1])
			if done != (i == len(wire)-1) {
				t.Fatalf("len %d: done=%v at byte %d", l, done, i)
			}
		}
		f := s.Frame
		if !f.Fin || f.Opcode != protocol.OpcodeText || !f.Masked || f.MaskKey != h.Mask || f.Length() != uint64(l) {
			t.Errorf("len %d: scanned %+v", l, f)
		}
		if f.PayloadLen.Type != protocol.MinimalLenType(uint64(l)) {
			t.Errorf("len %d: gobwas used %s encoding", l, f.PayloadLen.Type)
		}
	}
}

func TestMaskMatchesGobwasCipher(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog")
	key := [4]byte{0x11, 0x22, 0x33, 0x44}

	ours := make([]byte, len(payload))
	protocol.Mask(ours, payload, key)

	theirs := append([]byte(nil), payload...)
	ws.Cipher(theirs, key, 0)
	if !bytes.Equal(ours, theirs) {
		t.Fatal("mask differs from gobwas cipher")
	}

	tail := append([]byte(nil), payload[5:]...)
	ws.Cipher(tail, key, 5)
	mine := make([]byte, len(tail))
	protocol.MaskAt(mine, payload[5:], key, 5)
	if !bytes.Equal(mine, tail) {
		t.Error("offset masking differs from gobwas cipher")
	}
}
