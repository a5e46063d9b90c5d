package resourcebundle

import (
	"testing"

	"github.com/go-ava/avaformat/avahash"
)

func TestWriteReadTwoEntries(t *testing.T) {
	var buf []byte

	hello := []byte("H")
	world := []byte("W")
	if err := WriteEntry(&buf, "hello.bin", hello); err != nil {
		t.Fatalf("WriteEntry hello: %v", err)
	}
	if err := WriteEntry(&buf, "world.bin", world); err != nil {
		t.Fatalf("WriteEntry world: %v", err)
	}

	got, err := ReadEntry(buf, avahash.Hashlittle([]byte("world.bin")))
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	if string(got) != "W" {
		t.Fatalf("ReadEntry(world.bin) = %q, want %q", got, "W")
	}

	got, err = ReadEntry(buf, avahash.Hashlittle([]byte("hello.bin")))
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	if string(got) != "H" {
		t.Fatalf("ReadEntry(hello.bin) = %q, want %q", got, "H")
	}
}

func TestReadEntryUnknownHash(t *testing.T) {
	var buf []byte
	if err := WriteEntry(&buf, "a.bin", []byte("x")); err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}
	if _, err := ReadEntry(buf, 0xDEADBEEF); err == nil {
		t.Fatal("expected error for unknown hash")
	}
}

func TestReadEntryRejectsEmptyBuffer(t *testing.T) {
	if _, err := ReadEntry(nil, 0); err == nil {
		t.Fatal("expected error for empty buffer")
	}
}
