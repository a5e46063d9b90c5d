// Package tab implements the TAB/ARC index+data pair: a dense entry
// table addressed by name hash, with optional per-entry block
// compression, mirroring ava::ArchiveTable from the reference tooling.
// icza-mpq's diveIn shows the same shape of problem (fixed header,
// dense tables, sector-run decompression) for a different wire format;
// this package follows its field-at-a-time reading style over
// bytestream instead of binary.Read/reflection.
package tab

import (
	"github.com/go-ava/avaformat/avaerr"
	"github.com/go-ava/avaformat/avahash"
	"github.com/go-ava/avaformat/bytestream"
	"github.com/go-ava/avaformat/codec"
)

// Magic is the required TAB header magic ("TAB" as a little-endian u32).
const Magic uint32 = 0x424154

const (
	headerSize          = 0x18
	entrySize           = 0x14
	compressedBlockSize = 0x8
)

// CompressLibrary selects how an entry's bytes are encoded in the ARC data
// file.
type CompressLibrary uint8

const (
	CompressNone  CompressLibrary = 0
	CompressZlib  CompressLibrary = 1
	CompressOodle CompressLibrary = 4
)

const (
	entryFlagDecodeNone   uint8 = 0x0
	entryFlagDecodeBuffer uint8 = 0x1
)

// Header is the fixed TAB header.
type Header struct {
	Magic                  uint32
	Version                uint16
	Endian                 uint16
	Alignment              int32
	unknown                uint32
	MaxCompressedBlockSize uint32
	UncompressedBlockSize  uint32
}

// CompressedBlock is one entry in the dense compressed-block table.
type CompressedBlock struct {
	CompressedSize   uint32
	UncompressedSize uint32
}

// Entry is one TAB index entry.
type Entry struct {
	NameHash             uint32
	Offset               uint32
	Size                 uint32
	UncompressedSize     uint32
	CompressedBlockIndex uint16
	Library              CompressLibrary
	Flags                uint8
}

// Parse reads the header, the compressed-block table and every full entry
// record that fits before EOF. Trailing bytes shorter than one entry
// record are ignored, not an error.
func Parse(buf []byte) ([]Entry, []CompressedBlock, error) {
	if len(buf) == 0 {
		return nil, nil, avaerr.New("tab.Parse", avaerr.InvalidArgument)
	}

	r := bytestream.NewReader(buf)

	var h Header
	var err error
	read := func(fn func() error) {
		if err == nil {
			err = fn()
		}
	}
	read(func() (e error) { h.Magic, e = r.ReadU32(); return })
	read(func() (e error) { h.Version, e = r.ReadU16(); return })
	read(func() (e error) { h.Endian, e = r.ReadU16(); return })
	read(func() (e error) { h.Alignment, e = r.ReadI32(); return })
	read(func() (e error) { h.unknown, e = r.ReadU32(); return })
	read(func() (e error) { h.MaxCompressedBlockSize, e = r.ReadU32(); return })
	read(func() (e error) { h.UncompressedBlockSize, e = r.ReadU32(); return })
	if err != nil {
		return nil, nil, avaerr.New("tab.Parse", avaerr.UnexpectedEOF)
	}
	if h.Magic != Magic {
		return nil, nil, avaerr.New("tab.Parse", avaerr.InvalidMagic)
	}

	numBlocks, err := r.ReadU32()
	if err != nil {
		return nil, nil, avaerr.New("tab.Parse", avaerr.UnexpectedEOF)
	}

	blocks := make([]CompressedBlock, 0, numBlocks)
	for i := uint32(0); i < numBlocks; i++ {
		cs, err1 := r.ReadU32()
		us, err2 := r.ReadU32()
		if err1 != nil || err2 != nil {
			return nil, nil, avaerr.New("tab.Parse", avaerr.UnexpectedEOF)
		}
		blocks = append(blocks, CompressedBlock{CompressedSize: cs, UncompressedSize: us})
	}

	var entries []Entry
	for r.Remaining() >= entrySize {
		var e Entry
		e.NameHash, _ = r.ReadU32()
		e.Offset, _ = r.ReadU32()
		e.Size, _ = r.ReadU32()
		e.UncompressedSize, _ = r.ReadU32()
		e.CompressedBlockIndex, _ = r.ReadU16()
		lib, _ := r.ReadU8()
		e.Library = CompressLibrary(lib)
		e.Flags, _ = r.ReadU8()
		entries = append(entries, e)
	}

	return entries, blocks, nil
}

// Find returns the first entry whose NameHash matches. Duplicate hashes
// are permitted in the file; behavior beyond "first match" is
// unspecified.
func Find(entries []Entry, nameHash uint32) (Entry, error) {
	for _, e := range entries {
		if e.NameHash == nameHash {
			return e, nil
		}
	}
	return Entry{}, avaerr.New("tab.Find", avaerr.UnknownEntry)
}

// RequiredReadSize returns the span of ARC bytes that must be loaded to
// satisfy entry. For entries not using a compression-block run this is
// just entry.Size. For a block-using entry, the reference implementation's
// two internal helpers disagree (one adds entry.Size on top of the block
// sum, the other doesn't); this follows the read loop's actual behavior
// and sums compressed-block sizes for the run directly, which is what
// ReadEntry itself consumes.
func RequiredReadSize(entry Entry, blocks []CompressedBlock) (uint32, error) {
	if entry.Library == CompressNone || entry.CompressedBlockIndex == 0 {
		return entry.Size, nil
	}
	if len(blocks) == 0 {
		return 0, avaerr.New("tab.RequiredReadSize", avaerr.RequiresCompressionBlocks)
	}

	idx := entry.CompressedBlockIndex
	var total, remaining uint32 = 0, entry.Size
	for remaining > 0 {
		if int(idx) >= len(blocks) {
			return 0, avaerr.New("tab.RequiredReadSize", avaerr.UnknownEntry)
		}
		block := blocks[idx]
		total += block.CompressedSize
		if block.CompressedSize > remaining {
			remaining = 0
		} else {
			remaining -= block.CompressedSize
		}
		idx++
	}
	return total, nil
}

// ReadEntry materializes entry's bytes out of dataBuf (the ARC file). lz
// is consulted only when entry.Library == CompressOodle; a nil lz with an
// Oodle entry fails with CompressorUnavailable.
func ReadEntry(dataBuf []byte, entry Entry, blocks []CompressedBlock, lz *codec.Adapter) ([]byte, error) {
	if len(dataBuf) == 0 {
		return nil, avaerr.New("tab.ReadEntry", avaerr.InvalidArgument)
	}
	if entry.CompressedBlockIndex != 0 && len(blocks) == 0 {
		return nil, avaerr.New("tab.ReadEntry", avaerr.RequiresCompressionBlocks)
	}
	if int(entry.Offset)+int(entry.Size) > len(dataBuf) {
		return nil, avaerr.New("tab.ReadEntry", avaerr.UnexpectedEOF)
	}

	switch entry.Library {
	case CompressNone:
		out := make([]byte, entry.Size)
		copy(out, dataBuf[entry.Offset:entry.Offset+entry.Size])
		return out, nil

	case CompressZlib:
		return nil, avaerr.New("tab.ReadEntry", avaerr.NotImplemented)

	case CompressOodle:
		if lz == nil {
			return nil, avaerr.New("tab.ReadEntry", avaerr.CompressorUnavailable)
		}
		region := dataBuf[entry.Offset : entry.Offset+entry.Size]

		if entry.CompressedBlockIndex == 0 {
			out, err := lz.Decompress(region, int(entry.UncompressedSize))
			if err != nil {
				return nil, avaerr.New("tab.ReadEntry", avaerr.DecompressBlockFailed)
			}
			return out, nil
		}

		out := make([]byte, entry.UncompressedSize)
		idx := entry.CompressedBlockIndex
		var regionOffset, uncompressedOffset, remaining uint32 = 0, 0, entry.Size
		for remaining > 0 {
			if int(idx) >= len(blocks) {
				return nil, avaerr.New("tab.ReadEntry", avaerr.DecompressBlockFailed)
			}
			block := blocks[idx]
			if int(regionOffset)+int(block.CompressedSize) > len(region) {
				return nil, avaerr.New("tab.ReadEntry", avaerr.UnexpectedEOF)
			}
			chunk := region[regionOffset : regionOffset+block.CompressedSize]
			decoded, err := lz.Decompress(chunk, int(block.UncompressedSize))
			if err != nil || uint32(len(decoded)) != block.UncompressedSize {
				return nil, avaerr.New("tab.ReadEntry", avaerr.DecompressBlockFailed)
			}
			copy(out[uncompressedOffset:], decoded)

			regionOffset += block.CompressedSize
			uncompressedOffset += block.UncompressedSize
			if block.CompressedSize > remaining {
				remaining = 0
			} else {
				remaining -= block.CompressedSize
			}
			idx++
		}
		return out, nil
	}

	return nil, avaerr.New("tab.ReadEntry", avaerr.UnknownEntry)
}

// WriteEntry appends filename/payload to tab and arc, encoding payload per
// library. Block-compressed writes are not supported, matching the
// reference writer. Calling this on an empty tab buffer first writes the
// header and an empty compression-block table.
func WriteEntry(tab, arc *bytestream.Writer, filename string, payload []byte, library CompressLibrary, lz *codec.Adapter) error {
	if filename == "" || len(payload) == 0 {
		return avaerr.New("tab.WriteEntry", avaerr.InvalidArgument)
	}

	if tab.Len() == 0 {
		writeHeader(tab)
		tab.WriteU32(0) // compressed-block count; block writes unsupported
	}

	entry := Entry{
		NameHash:         avahash.Hashlittle([]byte(filename)),
		Offset:           uint32(arc.Len()),
		Size:             uint32(len(payload)),
		UncompressedSize: uint32(len(payload)),
		Library:          library,
		Flags:            entryFlagDecodeNone,
	}

	switch library {
	case CompressNone:
		arc.WriteBytes(payload)

	case CompressZlib:
		return avaerr.New("tab.WriteEntry", avaerr.NotImplemented)

	case CompressOodle:
		if lz == nil {
			return avaerr.New("tab.WriteEntry", avaerr.CompressorUnavailable)
		}
		packed, err := lz.Compress(payload)
		if err != nil || len(packed) == 0 {
			return avaerr.New("tab.WriteEntry", avaerr.CompressBlockFailed)
		}
		entry.Size = uint32(len(packed))
		entry.Flags = entryFlagDecodeBuffer
		arc.WriteBytes(packed)

	default:
		return avaerr.New("tab.WriteEntry", avaerr.UnknownEntry)
	}

	writeEntryRecord(tab, entry)
	return nil
}

func writeHeader(w *bytestream.Writer) {
	w.WriteU32(Magic)
	w.WriteU16(2)
	w.WriteU16(1)
	w.WriteI32(0x1000)
	w.WriteU32(0)
	w.WriteU32(0)
	w.WriteU32(0)
}

func writeEntryRecord(w *bytestream.Writer, e Entry) {
	w.WriteU32(e.NameHash)
	w.WriteU32(e.Offset)
	w.WriteU32(e.Size)
	w.WriteU32(e.UncompressedSize)
	w.WriteU16(e.CompressedBlockIndex)
	w.WriteU8(uint8(e.Library))
	w.WriteU8(e.Flags)
}
