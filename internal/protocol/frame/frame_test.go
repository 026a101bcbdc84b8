package frame

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeDecodeRoundTripAllLengths(t *testing.T) {
	for n := 0; n <= MaxData; n++ {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(0x11 * (i + 1))
		}
		in, err := NewMessage(data)
		if err != nil {
			t.Fatalf("new message len=%d: %v", n, err)
		}
		raw := Encode(in)
		out, err := Decode(raw[:])
		if err != nil {
			t.Fatalf("decode len=%d: %v", n, err)
		}
		if out != in {
			t.Fatalf("round trip mismatch len=%d got=%v want=%v", n, out, in)
		}
	}
}

func TestEncodeLayout(t *testing.T) {
	raw := Encode(MustMessage(1, 2, 3))
	want := []byte{0xAA, 3, 1, 2, 3, 0xAA ^ 3 ^ 1 ^ 2 ^ 3, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	if !bytes.Equal(raw[:], want) {
		t.Fatalf("unexpected layout: % x", raw[:])
	}
}

func TestEncodeFullPayloadHasNoFiller(t *testing.T) {
	raw := Encode(MustMessage(0, 1, 2, 3, 4, 5, 6, 7, 8, 9))
	if raw[1] != MaxData {
		t.Fatalf("unexpected length byte %d", raw[1])
	}
	if raw[Size-1] != Checksum(MaxData, []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}) {
		t.Fatalf("checksum must be the last byte of a full frame")
	}
}

func TestDecodeChecksumBitFlips(t *testing.T) {
	raw := Encode(MustMessage(0x10, 0x20, 0x30, 0x40))
	at := 2 + 4
	for bit := 0; bit < 8; bit++ {
		b := raw
		b[at] ^= 1 << bit
		if _, err := Decode(b[:]); !errors.Is(err, ErrCorrupted) {
			t.Fatalf("bit %d: expected ErrCorrupted, got %v", bit, err)
		}
	}
}

func TestDecodeRejectsLengthAboveMax(t *testing.T) {
	raw := Encode(MustMessage(1))
	for _, length := range []byte{11, 12, 0x80, 0xFF} {
		b := raw
		b[1] = length
		if _, err := Decode(b[:]); !errors.Is(err, ErrCorrupted) {
			t.Fatalf("length %d: expected ErrCorrupted, got %v", length, err)
		}
	}
}

func TestDecodeRejectsBadHeader(t *testing.T) {
	raw := Encode(MustMessage(1, 2))
	raw[0] = 0xAB
	if _, err := Decode(raw[:]); !errors.Is(err, ErrCorrupted) {
		t.Fatalf("expected ErrCorrupted, got %v", err)
	}
}

func TestDecodeShortFrame(t *testing.T) {
	if _, err := Decode([]byte{0xAA, 0}); !errors.Is(err, ErrCorrupted) {
		t.Fatalf("expected ErrCorrupted, got %v", err)
	}
}

func TestNewMessageTooLarge(t *testing.T) {
	if _, err := NewMessage(make([]byte, MaxData+1)); !errors.Is(err, ErrMessageTooLarge) {
		t.Fatalf("expected ErrMessageTooLarge, got %v", err)
	}
}

func TestMessageReplyMarker(t *testing.T) {
	if !MustMessage(ReplyMarker, 1).IsReply() {
		t.Fatalf("expected reply")
	}
	if MustMessage(CommandMarker, 1).IsReply() {
		t.Fatalf("command must not be a reply")
	}
	if MustMessage().IsReply() {
		t.Fatalf("empty message must not be a reply")
	}
}
