// Package sarc implements the named-entry stream archive (v2 and v3 wire
// formats) plus its TOC overlay file, mirroring ava::StreamArchive. Entry
// lookup is by the same lookup3 name hash as every other format in this
// module (avahash.Hashlittle), in place of icza-mpq's two-hash MPQ cipher.
package sarc

import (
	"bytes"

	"github.com/go-ava/avaformat/avaerr"
	"github.com/go-ava/avaformat/avahash"
	"github.com/go-ava/avaformat/bytestream"
)

// Magic is the required SARC header magic ("SARC" as a little-endian u32).
const Magic uint32 = 0x43524153

const headerSize = 0x10

// Sentinel offsets.
const (
	OffsetPatched uint32 = 0
	OffsetDeleted uint32 = 0xFFFFFFFF
)

// Entry is one named SARC directory entry.
type Entry struct {
	Filename string
	NameHash uint32
	Offset   uint32
	Size     uint32
}

func alignUp4(n uint32) uint32 { return avahash.AlignUp(n, 4) }

// Parse reads a v2 or v3 SARC directory into a flat entry list, returning
// the header's version alongside it.
func Parse(buf []byte) (version uint32, entries []Entry, err error) {
	if len(buf) == 0 {
		return 0, nil, avaerr.New("sarc.Parse", avaerr.InvalidArgument)
	}

	r := bytestream.NewReader(buf)
	magicLen, e1 := r.ReadU32()
	magic, e2 := r.ReadU32()
	ver, e3 := r.ReadU32()
	dirSize, e4 := r.ReadU32()
	if e1 != nil || e2 != nil || e3 != nil || e4 != nil {
		return 0, nil, avaerr.New("sarc.Parse", avaerr.UnexpectedEOF)
	}
	_ = magicLen
	if magic != Magic {
		return 0, nil, avaerr.New("sarc.Parse", avaerr.InvalidMagic)
	}

	switch ver {
	case 2:
		entries, err = parseV2(r, dirSize)
	case 3:
		entries, err = parseV3(r, dirSize)
	default:
		return ver, nil, avaerr.New("sarc.Parse", avaerr.UnknownVersion)
	}
	return ver, entries, err
}

func parseV2(r *bytestream.Reader, dirSize uint32) ([]Entry, error) {
	dirStart := r.Tell()

	var entries []Entry
	for {
		// nameLen on disk is already the 4-byte-aligned length WriteEntry
		// wrote it as, not the raw filename length; the true filename ends
		// at the first 0x00 padding byte within it.
		nameLen, err := r.ReadU32()
		if err != nil {
			return nil, avaerr.New("sarc.parseV2", avaerr.UnexpectedEOF)
		}
		padded, err := r.ReadBytes(int(nameLen))
		if err != nil {
			return nil, avaerr.New("sarc.parseV2", avaerr.UnexpectedEOF)
		}
		if i := bytes.IndexByte(padded, 0); i >= 0 {
			padded = padded[:i]
		}
		name := string(padded)

		offset, err1 := r.ReadU32()
		size, err2 := r.ReadU32()
		if err1 != nil || err2 != nil {
			return nil, avaerr.New("sarc.parseV2", avaerr.UnexpectedEOF)
		}

		entries = append(entries, Entry{
			Filename: name,
			NameHash: avahash.Hashlittle([]byte(name)),
			Offset:   offset,
			Size:     size,
		})

		if dirSize-uint32(r.Tell()-dirStart) <= 15 {
			break
		}
	}
	return entries, nil
}

func parseV3(r *bytestream.Reader, dirSize uint32) ([]Entry, error) {
	stringsLen, err := r.ReadU32()
	if err != nil {
		return nil, avaerr.New("sarc.parseV3", avaerr.UnexpectedEOF)
	}
	stringsEnd := r.Tell() + int(stringsLen)

	filenames := make(map[uint32]string)
	for r.Tell() < stringsEnd {
		name, err := r.ReadCString()
		if err != nil {
			return nil, avaerr.New("sarc.parseV3", avaerr.UnexpectedEOF)
		}
		filenames[avahash.Hashlittle([]byte(name))] = name
	}

	var entries []Entry
	for r.Tell() < int(dirSize) {
		if _, err := r.ReadU32(); err != nil { // name offset, unused
			return nil, avaerr.New("sarc.parseV3", avaerr.UnexpectedEOF)
		}
		fileOffset, e1 := r.ReadU32()
		uncompressedSize, e2 := r.ReadU32()
		nameHash, e3 := r.ReadU32()
		if e1 != nil || e2 != nil || e3 != nil {
			return nil, avaerr.New("sarc.parseV3", avaerr.UnexpectedEOF)
		}
		if _, err := r.ReadU32(); err != nil { // extension hash, unused
			return nil, avaerr.New("sarc.parseV3", avaerr.UnexpectedEOF)
		}

		entries = append(entries, Entry{
			Filename: filenames[nameHash],
			NameHash: nameHash,
			Offset:   fileOffset,
			Size:     uncompressedSize,
		})
	}
	return entries, nil
}

// ParseTOC reads a TOC overlay into a fresh entry list.
func ParseTOC(buf []byte) ([]Entry, error) {
	if len(buf) == 0 {
		return nil, avaerr.New("sarc.ParseTOC", avaerr.InvalidArgument)
	}
	r := bytestream.NewReader(buf)

	var entries []Entry
	for r.Remaining() > 0 {
		e, err := readTOCEntry(r)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// MergeTOC merges a TOC overlay's entries onto an existing entry list by
// filename hash: unknown entries are appended, known entries have their
// offset/size overwritten. added counts brand-new entries; patched counts
// known entries whose offset or size actually changed.
func MergeTOC(entries *[]Entry, buf []byte) (added, patched uint32, err error) {
	if entries == nil || len(buf) == 0 {
		return 0, 0, avaerr.New("sarc.MergeTOC", avaerr.InvalidArgument)
	}
	r := bytestream.NewReader(buf)

	for r.Remaining() > 0 {
		e, err := readTOCEntry(r)
		if err != nil {
			return added, patched, err
		}

		found := false
		for i := range *entries {
			if (*entries)[i].NameHash == e.NameHash {
				found = true
				if (*entries)[i].Offset != e.Offset || (*entries)[i].Size != e.Size {
					patched++
				}
				(*entries)[i].Offset = e.Offset
				(*entries)[i].Size = e.Size
				break
			}
		}
		if !found {
			*entries = append(*entries, e)
			added++
		}
	}
	return added, patched, nil
}

func readTOCEntry(r *bytestream.Reader) (Entry, error) {
	length, err := r.ReadU32()
	if err != nil {
		return Entry{}, avaerr.New("sarc.readTOCEntry", avaerr.UnexpectedEOF)
	}
	nameBytes, err := r.ReadBytes(int(length))
	if err != nil {
		return Entry{}, avaerr.New("sarc.readTOCEntry", avaerr.UnexpectedEOF)
	}
	name := string(nameBytes)

	offset, e1 := r.ReadU32()
	size, e2 := r.ReadU32()
	if e1 != nil || e2 != nil {
		return Entry{}, avaerr.New("sarc.readTOCEntry", avaerr.UnexpectedEOF)
	}

	return Entry{
		Filename: name,
		NameHash: avahash.Hashlittle([]byte(name)),
		Offset:   offset,
		Size:     size,
	}, nil
}

// ReadEntry copies entry's bytes out of buf. A patched or deleted sentinel
// offset fails with PatchedEntry.
func ReadEntry(buf []byte, entry Entry) ([]byte, error) {
	if len(buf) == 0 {
		return nil, avaerr.New("sarc.ReadEntry", avaerr.InvalidArgument)
	}
	if entry.Offset == OffsetPatched || entry.Offset == OffsetDeleted {
		return nil, avaerr.New("sarc.ReadEntry", avaerr.PatchedEntry)
	}
	if int(entry.Offset)+int(entry.Size) > len(buf) {
		return nil, avaerr.New("sarc.ReadEntry", avaerr.UnexpectedEOF)
	}
	out := make([]byte, entry.Size)
	copy(out, buf[entry.Offset:entry.Offset+entry.Size])
	return out, nil
}

// ReadEntryByName resolves filename's hash against entries, then delegates
// to ReadEntry.
func ReadEntryByName(buf []byte, entries []Entry, filename string) ([]byte, error) {
	hash := avahash.Hashlittle([]byte(filename))
	for _, e := range entries {
		if e.NameHash == hash {
			return ReadEntry(buf, e)
		}
	}
	return nil, avaerr.New("sarc.ReadEntryByName", avaerr.UnknownEntry)
}

// InitBuffer returns a freshly written SARC header with no entries, for
// version 2 or 3.
func InitBuffer(version uint32) ([]byte, error) {
	if version < 2 || version > 3 {
		return nil, avaerr.New("sarc.InitBuffer", avaerr.UnknownVersion)
	}
	w := bytestream.NewWriter()
	w.WriteU32(4)
	w.WriteU32(Magic)
	w.WriteU32(version)
	w.WriteU32(0)
	return w.Bytes(), nil
}

// WriteEntry appends-or-replaces filename in a v2 SARC buffer, following
// the reference writer: existing entries are copied forward from their
// previous offsets, patched entries keep their sentinel, and the new/
// updated file is copied from payload. Only v2 is supported; v3's writer
// is incomplete upstream and this module treats v3 as read-only.
func WriteEntry(buf []byte, entries []Entry, filename string, payload []byte) ([]byte, []Entry, error) {
	if len(buf) == 0 || len(entries) == 0 && len(payload) == 0 {
		return nil, nil, avaerr.New("sarc.WriteEntry", avaerr.InvalidArgument)
	}
	r := bytestream.NewReader(buf)
	magicLen, e1 := r.ReadU32()
	magic, e2 := r.ReadU32()
	version, e3 := r.ReadU32()
	if e1 != nil || e2 != nil || e3 != nil {
		return nil, nil, avaerr.New("sarc.WriteEntry", avaerr.UnexpectedEOF)
	}
	_ = magicLen
	if magic != Magic {
		return nil, nil, avaerr.New("sarc.WriteEntry", avaerr.InvalidMagic)
	}
	if version != 2 {
		return nil, nil, avaerr.New("sarc.WriteEntry", avaerr.UnknownVersion)
	}

	hash := avahash.Hashlittle([]byte(filename))
	out := make([]Entry, len(entries))
	copy(out, entries)

	idx := -1
	for i := range out {
		if out[i].NameHash == hash {
			idx = i
			break
		}
	}
	if idx == -1 {
		out = append(out, Entry{Filename: filename, NameHash: hash, Offset: 1, Size: uint32(len(payload))})
		idx = len(out) - 1
	} else {
		out[idx].Size = uint32(len(payload))
		if out[idx].Offset == OffsetPatched || out[idx].Offset == OffsetDeleted {
			out[idx].Offset = 1
		}
	}

	var dirHeaderSize, dataSize uint32
	for _, e := range out {
		nameLen := uint32(len(e.Filename))
		dirHeaderSize += 4 + alignUp4(nameLen) + 4 + 4
		entryDataSize := uint32(0)
		if e.Offset != OffsetPatched && e.Offset != OffsetDeleted {
			entryDataSize = e.Size
		}
		dataSize += alignUp4(entryDataSize)
	}
	dirSize := avahash.AlignUp(dirHeaderSize, 16)

	// dataSize mirrors the reference writer's upfront buffer reservation;
	// Writer grows on demand so it isn't needed for sizing, only to mirror
	// the original's intent that entries are laid out back-to-back, 4-byte
	// aligned.
	_ = dataSize
	w := bytestream.NewWriter()
	w.WriteU32(4)
	w.WriteU32(Magic)
	w.WriteU32(2)
	w.WriteU32(dirSize)

	currentDataOffset := uint32(headerSize) + dirSize
	for i := range out {
		e := &out[i]
		nameLen := uint32(len(e.Filename))
		padding := avahash.AlignDistance(nameLen, 4)
		existsInSarc := e.Offset != OffsetPatched && e.Offset != OffsetDeleted

		dataOffset := e.Offset
		if existsInSarc {
			dataOffset = currentDataOffset
		}

		w.WriteU32(nameLen + padding)
		w.WriteBytes([]byte(e.Filename))
		w.WriteRepeated(0x00, int(padding))
		w.WriteU32(dataOffset)
		w.WriteU32(e.Size)

		if existsInSarc {
			savedPos := w.Tell()
			w.SetPos(int(dataOffset))
			if e.NameHash == hash {
				w.WriteBytes(payload)
			} else {
				w.WriteBytes(buf[e.Offset : e.Offset+e.Size])
			}
			w.SetPos(savedPos)
			e.Offset = dataOffset
			currentDataOffset = avahash.AlignUp(currentDataOffset+e.Size, 4)
		}
	}

	return w.Bytes(), out, nil
}

// WriteTOC emits entries as a TOC overlay: {nameLen, name, offset, size}
// with no alignment.
func WriteTOC(entries []Entry) ([]byte, error) {
	if len(entries) == 0 {
		return nil, avaerr.New("sarc.WriteTOC", avaerr.InvalidArgument)
	}
	w := bytestream.NewWriter()
	for _, e := range entries {
		w.WriteU32(uint32(len(e.Filename)))
		w.WriteBytes([]byte(e.Filename))
		w.WriteU32(e.Offset)
		w.WriteU32(e.Size)
	}
	return w.Bytes(), nil
}
