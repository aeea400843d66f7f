package flvsample

import (
	"bytes"
	"testing"
)

func TestBuildAudioTagHeader(t *testing.T) {
	hdr := BuildAudioTagHeader(AACPacketTypeRaw)
	if len(hdr) != 2 {
		t.Fatalf("expected 2-byte header, got %d bytes", len(hdr))
	}
	if hdr[0] != AudioFormatAAC<<4|0x0F {
		t.Fatalf("format byte mismatch: got %#x", hdr[0])
	}
	if hdr[1] != AACPacketTypeRaw {
		t.Fatalf("packet type byte mismatch: got %#x", hdr[1])
	}
}

func TestBuildAACSequenceHeader(t *testing.T) {
	asc := []byte{0x12, 0x10}
	out := BuildAACSequenceHeader(asc)
	if len(out) != 2+len(asc) {
		t.Fatalf("unexpected length: %d", len(out))
	}
	if out[1] != AACPacketTypeSequenceHeader {
		t.Fatalf("expected sequence-header packet type, got %d", out[1])
	}
	if !bytes.Equal(out[2:], asc) {
		t.Fatalf("config bytes mismatch: %x", out[2:])
	}
}

func TestBuildAACRawFrame(t *testing.T) {
	unit := []byte{0x01, 0x02, 0x03}
	out := BuildAACRawFrame(unit)
	if out[1] != AACPacketTypeRaw {
		t.Fatalf("expected raw packet type, got %d", out[1])
	}
	if !bytes.Equal(out[2:], unit) {
		t.Fatalf("access unit bytes mismatch: %x", out[2:])
	}
}
