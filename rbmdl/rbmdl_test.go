package rbmdl

import (
	"encoding/binary"
	"testing"
)

func appendU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func TestScanTwoBlocks(t *testing.T) {
	var buf []byte
	buf = appendU32(buf, 0x1111) // type hash
	buf = append(buf, []byte("abcd")...)
	buf = appendU32(buf, ChecksumSentinel)
	buf = appendU32(buf, 0x2222) // type hash
	buf = append(buf, []byte("xyz0")...)
	buf = appendU32(buf, ChecksumSentinel)

	blocks, err := Scan(buf)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0].TypeHash != 0x1111 || string(blocks[0].Data) != "abcd" {
		t.Fatalf("block 0 = %+v", blocks[0])
	}
	if blocks[1].TypeHash != 0x2222 || string(blocks[1].Data) != "xyz0" {
		t.Fatalf("block 1 = %+v", blocks[1])
	}
}

func TestScanRejectsEmptyBuffer(t *testing.T) {
	if _, err := Scan(nil); err == nil {
		t.Fatal("expected error for empty buffer")
	}
}

func TestScanNoSentinelYieldsNoBlocks(t *testing.T) {
	blocks, err := Scan([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(blocks) != 0 {
		t.Fatalf("expected no blocks, got %d", len(blocks))
	}
}
