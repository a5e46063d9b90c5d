// Package aaf implements the chunked raw-DEFLATE wrapper that feeds SARC,
// RTPC and ADF blobs into this module (spec's "external collaborator"
// C8), mirroring ava::CompressedFile. Each chunk is compressed
// independently through codec.DeflateRaw/InflateRaw, the same raw-DEFLATE
// contract C3 exposes to every other subsystem, rather than the original
// C++ tooling's zlib-framed payload.
package aaf

import (
	"github.com/go-ava/avaformat/avaerr"
	"github.com/go-ava/avaformat/avahash"
	"github.com/go-ava/avaformat/bytestream"
	"github.com/go-ava/avaformat/codec"
)

// Magic is the required AAF header magic ("AAF" as a little-endian u32).
const Magic uint32 = 0x464141

// ChunkMagic is the required per-chunk magic ("EWAM" as a little-endian u32).
const ChunkMagic uint32 = 0x4D415745

// Padding is the fill byte chunk regions are padded to a 16-byte boundary
// with.
const Padding byte = 0x30

const (
	headerSize      = 0x30
	chunkHeaderSize = 0x10
	tagSize         = 28
	chunkAlignment  = 16

	// DefaultChunkSize is the uncompressed size of every chunk but the
	// last, and the value this package reports as the required unpack
	// scratch-buffer size (the input length instead, when the input is
	// shorter than one chunk).
	DefaultChunkSize = 0x10000
)

// IsCompressed reports whether buf starts with the AAF magic.
func IsCompressed(buf []byte) bool {
	if len(buf) < 4 {
		return false
	}
	r := bytestream.NewReader(buf)
	magic, err := r.ReadU32()
	return err == nil && magic == Magic
}

// Compress wraps buf as a sequence of DefaultChunkSize-sized raw-DEFLATE
// chunks behind an AAF header.
func Compress(buf []byte) ([]byte, error) {
	w := bytestream.NewWriter()

	type packedChunk struct {
		compressed   []byte
		decompressed uint32
	}
	var chunks []packedChunk
	for offset := 0; offset < len(buf); {
		end := offset + DefaultChunkSize
		if end > len(buf) {
			end = len(buf)
		}
		raw := buf[offset:end]
		packed, err := codec.DeflateRaw(raw)
		if err != nil {
			return nil, avaerr.New("aaf.Compress", avaerr.CompressChunkFailed)
		}
		chunks = append(chunks, packedChunk{compressed: packed, decompressed: uint32(len(raw))})
		offset = end
	}

	requiredBuf := uint32(DefaultChunkSize)
	if len(buf) < DefaultChunkSize {
		requiredBuf = uint32(len(buf))
	}

	w.WriteU32(Magic)
	w.WriteU32(1)
	var tag [tagSize]byte
	w.WriteBytes(tag[:])
	w.WriteU32(uint32(len(buf)))
	w.WriteU32(requiredBuf)
	w.WriteU32(uint32(len(chunks)))

	for _, c := range chunks {
		unpadded := chunkHeaderSize + len(c.compressed)
		padded := int(avahash.AlignUp(uint32(unpadded), chunkAlignment))

		w.WriteU32(uint32(len(c.compressed)))
		w.WriteU32(c.decompressed)
		w.WriteU32(uint32(padded))
		w.WriteU32(ChunkMagic)
		w.WriteBytes(c.compressed)
		w.WriteRepeated(Padding, padded-unpadded)
	}

	return w.Bytes(), nil
}

// Decompress unwraps an AAF buffer back into its original bytes.
func Decompress(buf []byte) ([]byte, error) {
	if len(buf) < headerSize {
		return nil, avaerr.New("aaf.Decompress", avaerr.InvalidMagic)
	}

	r := bytestream.NewReader(buf)
	magic, e1 := r.ReadU32()
	if e1 != nil || magic != Magic {
		return nil, avaerr.New("aaf.Decompress", avaerr.InvalidMagic)
	}
	if _, err := r.ReadU32(); err != nil { // version
		return nil, avaerr.New("aaf.Decompress", avaerr.InvalidMagic)
	}
	if _, err := r.ReadBytes(tagSize); err != nil {
		return nil, avaerr.New("aaf.Decompress", avaerr.InvalidMagic)
	}
	totalSize, e2 := r.ReadU32()
	if _, err := r.ReadU32(); err != nil { // required unpack buffer size, informational only
		return nil, avaerr.New("aaf.Decompress", avaerr.InvalidMagic)
	}
	chunkCount, e3 := r.ReadU32()
	if e2 != nil || e3 != nil {
		return nil, avaerr.New("aaf.Decompress", avaerr.InvalidMagic)
	}

	out := make([]byte, 0, totalSize)
	for i := uint32(0); i < chunkCount; i++ {
		chunkStart := r.Tell()

		compressedSize, e1 := r.ReadU32()
		decompressedSize, e2 := r.ReadU32()
		chunkSize, e3 := r.ReadU32()
		chunkMagic, e4 := r.ReadU32()
		if e1 != nil || e2 != nil || e3 != nil || e4 != nil {
			return nil, avaerr.New("aaf.Decompress", avaerr.DecompressChunkFailed)
		}
		if chunkMagic != ChunkMagic {
			return nil, avaerr.New("aaf.Decompress", avaerr.InvalidChunkMagic)
		}

		compressed, err := r.ReadBytes(int(compressedSize))
		if err != nil {
			return nil, avaerr.New("aaf.Decompress", avaerr.DecompressChunkFailed)
		}
		decoded, err := codec.InflateRaw(compressed, int(decompressedSize))
		if err != nil {
			return nil, avaerr.New("aaf.Decompress", avaerr.DecompressChunkFailed)
		}
		out = append(out, decoded...)

		if err := r.SeekAbs(chunkStart + int(chunkSize)); err != nil {
			return nil, avaerr.New("aaf.Decompress", avaerr.DecompressChunkFailed)
		}
	}
	return out, nil
}
