// Package legacy implements the fixed-choice legacy TAB layout: a 12-byte
// header, no compression-block table, and entries that are always stored
// uncompressed, mirroring ava::legacy::ArchiveTable.
package legacy

import (
	"github.com/go-ava/avaformat/avaerr"
	"github.com/go-ava/avaformat/bytestream"
)

// Magic is the required legacy TAB header magic, same bytes as the
// current-format TAB.
const Magic uint32 = 0x424154

const (
	headerSize = 0xC
	entrySize  = 0xC
)

// Header is the legacy 12-byte TAB header.
type Header struct {
	Magic     uint32
	Version   uint16
	Endian    uint16
	Alignment int32
}

// Entry is a legacy TAB entry: always-uncompressed bytes at [Offset,
// Offset+Size) in the data file.
type Entry struct {
	NameHash uint32
	Offset   uint32
	Size     uint32
}

// Parse reads the legacy header followed by a dense array of entries until
// EOF. Trailing bytes shorter than one entry are ignored.
func Parse(buf []byte) ([]Entry, error) {
	if len(buf) == 0 {
		return nil, avaerr.New("legacy.Parse", avaerr.InvalidArgument)
	}

	r := bytestream.NewReader(buf)

	magic, err := r.ReadU32()
	if err != nil {
		return nil, avaerr.New("legacy.Parse", avaerr.UnexpectedEOF)
	}
	if magic != Magic {
		return nil, avaerr.New("legacy.Parse", avaerr.InvalidMagic)
	}
	if _, err := r.ReadU16(); err != nil { // version
		return nil, avaerr.New("legacy.Parse", avaerr.UnexpectedEOF)
	}
	if _, err := r.ReadU16(); err != nil { // endian
		return nil, avaerr.New("legacy.Parse", avaerr.UnexpectedEOF)
	}
	if _, err := r.ReadI32(); err != nil { // alignment
		return nil, avaerr.New("legacy.Parse", avaerr.UnexpectedEOF)
	}

	var entries []Entry
	for r.Remaining() >= entrySize {
		var e Entry
		e.NameHash, _ = r.ReadU32()
		e.Offset, _ = r.ReadU32()
		e.Size, _ = r.ReadU32()
		entries = append(entries, e)
	}
	return entries, nil
}

// Find returns the first entry whose NameHash matches nameHash.
func Find(entries []Entry, nameHash uint32) (Entry, error) {
	for _, e := range entries {
		if e.NameHash == nameHash {
			return e, nil
		}
	}
	return Entry{}, avaerr.New("legacy.Find", avaerr.UnknownEntry)
}

// ReadEntry copies entry's bytes directly out of dataBuf; legacy entries
// are never compressed.
func ReadEntry(dataBuf []byte, entry Entry) ([]byte, error) {
	if len(dataBuf) == 0 {
		return nil, avaerr.New("legacy.ReadEntry", avaerr.InvalidArgument)
	}
	if int(entry.Offset)+int(entry.Size) > len(dataBuf) {
		return nil, avaerr.New("legacy.ReadEntry", avaerr.UnexpectedEOF)
	}
	out := make([]byte, entry.Size)
	copy(out, dataBuf[entry.Offset:entry.Offset+entry.Size])
	return out, nil
}
