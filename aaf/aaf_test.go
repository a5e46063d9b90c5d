package aaf

import (
	"bytes"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 5000)

	compressed, err := Compress(payload)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if !IsCompressed(compressed) {
		t.Fatal("IsCompressed = false for a freshly compressed buffer")
	}

	got, err := Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("roundtrip mismatch: got %d bytes, want %d", len(got), len(payload))
	}
}

func TestRoundTripMultiChunk(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, DefaultChunkSize*3+17)

	compressed, err := Compress(payload)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	got, err := Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("multi-chunk roundtrip mismatch")
	}
}

func TestRoundTripEmpty(t *testing.T) {
	compressed, err := Compress(nil)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	got, err := Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty output, got %d bytes", len(got))
	}
}

func TestDecompressRejectsBadMagic(t *testing.T) {
	buf := make([]byte, headerSize)
	if _, err := Decompress(buf); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestIsCompressedFalseForShortBuffer(t *testing.T) {
	if IsCompressed([]byte{1, 2}) {
		t.Fatal("expected false for a too-short buffer")
	}
}
