package sarc

import (
	"bytes"
	"testing"

	"github.com/go-ava/avaformat/avahash"
)

func TestWriteParseReadRoundTripV2(t *testing.T) {
	buf, err := InitBuffer(2)
	if err != nil {
		t.Fatal(err)
	}

	payload := []byte("first file contents")
	buf, entries, err := WriteEntry(buf, nil, "a.bin", payload)
	if err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	payload2 := []byte("second file, longer contents than the first")
	buf, entries, err = WriteEntry(buf, entries, "b.bin", payload2)
	if err != nil {
		t.Fatalf("WriteEntry 2: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	version, parsed, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if version != 2 {
		t.Fatalf("version = %d, want 2", version)
	}
	if len(parsed) != 2 {
		t.Fatalf("expected 2 parsed entries, got %d", len(parsed))
	}

	got, err := ReadEntryByName(buf, parsed, "a.bin")
	if err != nil {
		t.Fatalf("ReadEntryByName(a.bin): %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("a.bin = %q, want %q", got, payload)
	}

	got2, err := ReadEntryByName(buf, parsed, "b.bin")
	if err != nil {
		t.Fatalf("ReadEntryByName(b.bin): %v", err)
	}
	if !bytes.Equal(got2, payload2) {
		t.Fatalf("b.bin = %q, want %q", got2, payload2)
	}
}

func TestParseRejectsBadMagic(t *testing.T) {
	buf := make([]byte, headerSize)
	if _, _, err := Parse(buf); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestReadEntryPatchedSentinel(t *testing.T) {
	e := Entry{Filename: "x", Offset: OffsetPatched, Size: 4}
	if _, err := ReadEntry([]byte{1, 2, 3, 4}, e); err == nil {
		t.Fatal("expected PatchedEntry error")
	}
	e.Offset = OffsetDeleted
	if _, err := ReadEntry([]byte{1, 2, 3, 4}, e); err == nil {
		t.Fatal("expected PatchedEntry error for deleted sentinel")
	}
}

func TestMergeTOCAddsAndPatches(t *testing.T) {
	existing := []Entry{
		{Filename: "keep.bin", NameHash: hashOf("keep.bin"), Offset: 100, Size: 10},
	}

	toc, err := WriteTOC([]Entry{
		{Filename: "keep.bin", Offset: 200, Size: 20},
		{Filename: "new.bin", Offset: 300, Size: 30},
	})
	if err != nil {
		t.Fatal(err)
	}

	added, patched, err := MergeTOC(&existing, toc)
	if err != nil {
		t.Fatalf("MergeTOC: %v", err)
	}
	if added != 1 {
		t.Fatalf("added = %d, want 1", added)
	}
	if patched != 1 {
		t.Fatalf("patched = %d, want 1", patched)
	}
	if len(existing) != 2 {
		t.Fatalf("expected 2 entries after merge, got %d", len(existing))
	}
}

func hashOf(name string) uint32 {
	return avahash.Hashlittle([]byte(name))
}
