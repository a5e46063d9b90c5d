package legacy

import "testing"

func TestParseRejectsBadMagic(t *testing.T) {
	buf := make([]byte, headerSize)
	if _, err := Parse(buf); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestParseAndReadEntry(t *testing.T) {
	buf := []byte{
		0x54, 0x41, 0x42, 0x00, // "TAB\0" little-endian magic
		0x02, 0x00, // version
		0x01, 0x00, // endian
		0x00, 0x10, 0x00, 0x00, // alignment
		// entry: NameHash=1, Offset=0, Size=4
		0x01, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x04, 0x00, 0x00, 0x00,
	}
	entries, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	data := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	got, err := ReadEntry(data, entries[0])
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("ReadEntry = %v, want %v", got, data)
	}
}

func TestFindUnknown(t *testing.T) {
	if _, err := Find(nil, 1); err == nil {
		t.Fatal("expected UnknownEntry error")
	}
}
