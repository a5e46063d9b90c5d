package tab

import (
	"testing"

	"github.com/go-ava/avaformat/bytestream"
)

func buildUncompressedTab(t *testing.T, filename string, payload []byte) (tabBuf, arcBuf []byte) {
	t.Helper()
	tabW := bytestream.NewWriter()
	arcW := bytestream.NewWriter()
	if err := WriteEntry(tabW, arcW, filename, payload, CompressNone, nil); err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}
	return tabW.Bytes(), arcW.Bytes()
}

func TestRoundTripUncompressed(t *testing.T) {
	payload := []byte("hello, world")
	tabBuf, arcBuf := buildUncompressedTab(t, "hello.bin", payload)

	entries, blocks, err := Parse(tabBuf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(blocks) != 0 {
		t.Fatalf("expected no compression blocks, got %d", len(blocks))
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	got, err := ReadEntry(arcBuf, entries[0], blocks, nil)
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("ReadEntry = %q, want %q", got, payload)
	}
}

func TestParseRejectsBadMagic(t *testing.T) {
	buf := make([]byte, headerSize)
	if _, _, err := Parse(buf); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestParseIgnoresTrailingPartialEntry(t *testing.T) {
	_, arcBuf := buildUncompressedTab(t, "hello.bin", []byte("x"))
	_ = arcBuf

	tabW := bytestream.NewWriter()
	arcW := bytestream.NewWriter()
	if err := WriteEntry(tabW, arcW, "hello.bin", []byte("payload"), CompressNone, nil); err != nil {
		t.Fatal(err)
	}
	tabW.WriteBytes([]byte{1, 2, 3})

	entries, _, err := Parse(tabW.Bytes())
	if err != nil {
		t.Fatalf("Parse with trailing partial bytes should not error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
}

func TestFindUnknownEntry(t *testing.T) {
	tabBuf, _ := buildUncompressedTab(t, "hello.bin", []byte("x"))
	entries, _, _ := Parse(tabBuf)
	if _, err := Find(entries, 0xdeadbeef); err == nil {
		t.Fatal("expected UnknownEntry error")
	}
}

func TestOodleEntryWithoutCodecFails(t *testing.T) {
	entry := Entry{Library: CompressOodle, Size: 4, UncompressedSize: 8}
	if _, err := ReadEntry([]byte{1, 2, 3, 4}, entry, nil, nil); err == nil {
		t.Fatal("expected CompressorUnavailable error")
	}
}

func TestRequiredReadSizeUncompressed(t *testing.T) {
	entry := Entry{Library: CompressNone, Size: 42}
	size, err := RequiredReadSize(entry, nil)
	if err != nil || size != 42 {
		t.Fatalf("RequiredReadSize = %d, %v, want 42, nil", size, err)
	}
}

func TestRequiredReadSizeBlockRun(t *testing.T) {
	blocks := []CompressedBlock{
		{}, // index 0 unused; runs start at index >= 1
		{CompressedSize: 10, UncompressedSize: 20},
		{CompressedSize: 15, UncompressedSize: 20},
	}
	entry := Entry{Library: CompressOodle, CompressedBlockIndex: 1, Size: 25}
	size, err := RequiredReadSize(entry, blocks)
	if err != nil {
		t.Fatal(err)
	}
	if size != 25 {
		t.Fatalf("RequiredReadSize = %d, want 25", size)
	}
}
