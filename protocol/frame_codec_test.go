// Copyright 2025 momentics@gmail.com
// License: Apache 2.0

// frame_codec_test.go — header encoding, control frames, masking.
package protocol

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/momentics/levee/api"
)

func TestEncodePingUnmasked(t *testing.T) {
	buf := make([]byte, 16)
	n, err := EncodePing(buf, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf[:n], []byte{0x89, 0x00}) {
		t.Errorf("ping header = % x", buf[:n])
	}
}

func TestEncodePongMasked(t *testing.T) {
	key := []byte{1, 2, 3, 4}
	buf := make([]byte, 32)
	n, err := EncodePong(buf, []byte("hi"), key)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x8A, 0x82, 1, 2, 3, 4, 'h' ^ 1, 'i' ^ 2}
	if !bytes.Equal(buf[:n], want) {
		t.Errorf("pong = % x, want % x", buf[:n], want)
	}
}

func TestEncodeControlErrors(t *testing.T) {
	if _, err := EncodePing(make([]byte, 1), nil, nil); !errors.Is(err, api.ErrBufferTooSmall) {
		t.Errorf("small buffer: %v", err)
	}
	if _, err := EncodePing(make([]byte, 256), make([]byte, 126), nil); !errors.Is(err, ErrControlTooLarge) {
		t.Errorf("large ping: %v", err)
	}
	if _, err := EncodePong(make([]byte, 16), nil, []byte{1, 2}); !errors.Is(err, ErrBadMaskKey) {
		t.Errorf("short key: %v", err)
	}
}

func TestEncodeCloseRoundTrip(t *testing.T) {
	buf := make([]byte, 64)
	n, err := EncodeClose(buf, StatusGoingAway, "bye", nil)
	if err != nil {
		t.Fatal(err)
	}
	if buf[0] != 0x88 || buf[1] != 5 {
		t.Fatalf("close header % x", buf[:2])
	}
	status, reason := ParseClose(buf[2:n])
	if status != StatusGoingAway || reason != "bye" {
		t.Errorf("parsed %v %q", status, reason)
	}
	n, _ = EncodeClose(buf, StatusNone, "", nil)
	if n != 2 {
		t.Errorf("empty close is %d bytes", n)
	}
}

func TestMinimalLengthEncoding(t *testing.T) {
	buf := make([]byte, MaxFrameHeaderLen)
	cases := []struct {
		length uint64
		extra  int
		code   byte
	}{
		{0, 0, 0},
		{125, 0, 125},
		{126, 2, 126},
		{65535, 2, 126},
		{65536, 8, 127},
	}
	for _, c := range cases {
		f := NewFrame(OpcodeBinary, true, c.length)
		n, err := EncodeFrame(buf, &f)
		if err != nil {
			t.Fatalf("len %d: %v", c.length, err)
		}
		if n != 2+c.extra {
			t.Errorf("len %d: header %d bytes, want %d", c.length, n, 2+c.extra)
		}
		if buf[1]&Len7Bits != c.code {
			t.Errorf("len %d: 7-bit code %d", c.length, buf[1]&Len7Bits)
		}
	}
}

func TestEncodeFrameRejectsNonMinimal(t *testing.T) {
	f := Frame{Opcode: OpcodeText, PayloadLen: PayloadLen{Type: Len16, Value: 10}}
	if _, err := EncodeFrame(make([]byte, 14), &f); !errors.Is(err, ErrNonMinimalLength) {
		t.Errorf("got %v", err)
	}
	f.PayloadLen.Type = LenNone
	n, err := EncodeFrame(make([]byte, 14), &f)
	if err != nil || n != 2 {
		t.Errorf("LenNone should pick minimal encoding: n=%d err=%v", n, err)
	}
}

func TestEncodeFrameBufferTooSmall(t *testing.T) {
	f := NewFrame(OpcodeBinary, true, 70000)
	f.SetMask([4]byte{9, 9, 9, 9})
	if f.HeaderLen() != 14 {
		t.Fatalf("HeaderLen = %d", f.HeaderLen())
	}
	if _, err := EncodeFrame(make([]byte, 13), &f); !errors.Is(err, api.ErrBufferTooSmall) {
		t.Errorf("got %v", err)
	}
}

func TestEncodeFrameBits(t *testing.T) {
	f := NewFrame(OpcodeText, false, 3)
	f.Rsv1, f.Rsv3 = true, true
	buf := make([]byte, 2)
	if _, err := EncodeFrame(buf, &f); err != nil {
		t.Fatal(err)
	}
	if buf[0] != Rsv1Bit|Rsv3Bit|0x1 || buf[1] != 3 {
		t.Errorf("header % x", buf)
	}
}

func TestMaskIsInvolution(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, size := range []int{0, 1, 3, 4, 5, 127, 4096} {
		src := make([]byte, size)
		rng.Read(src)
		var key [4]byte
		rng.Read(key[:])

		masked := make([]byte, size)
		if n := Mask(masked, src, key); n != size {
			t.Fatalf("Mask wrote %d of %d", n, size)
		}
		back := make([]byte, size)
		Mask(back, masked, key)
		if !bytes.Equal(back, src) {
			t.Errorf("size %d: mask twice did not restore input", size)
		}
		for i := range src {
			if masked[i] != src[i]^key[i%4] {
				t.Fatalf("size %d: byte %d not xored with key[%d]", size, i, i%4)
			}
		}
	}
}

func TestMaskAtMatchesWholePayload(t *testing.T) {
	payload := []byte("split across several reads of odd sizes")
	key := [4]byte{0xA1, 0xB2, 0xC3, 0xD4}
	whole := make([]byte, len(payload))
	Mask(whole, payload, key)

	pieces := make([]byte, len(payload))
	pos := 0
	for _, step := range []int{3, 1, 7, 2, 100} {
		end := pos + step
		if end > len(payload) {
			end = len(payload)
		}
		MaskAt(pieces[pos:end], payload[pos:end], key, uint64(pos))
		pos = end
	}
	if !bytes.Equal(pieces, whole) {
		t.Error("piecewise masking differs from one-shot masking")
	}
}
