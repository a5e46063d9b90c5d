// Package rbmdl exposes a render-block-model scanner, not a decoder. The
// reference tooling's own block walker is incomplete (spec §9: one path
// hardcodes block_size = 0, the other only locates block boundaries by
// scanning for the end-of-block checksum), so rather than guess
// per-block-type sizes this package only does what the reference tooling
// itself manages reliably: split a buffer into the spans between
// consecutive checksum sentinels and hand each one back, type hash and
// all, for a caller that knows the per-type layout to decode further.
package rbmdl

import (
	"encoding/binary"

	"github.com/go-ava/avaformat/avaerr"
)

// ChecksumSentinel marks the end of one render block.
const ChecksumSentinel uint32 = 0x89ABCDEF

// Block is one scanned span: the type hash read from the first four
// bytes of the span between two checksums, and the remaining bytes of
// that span. Decoding Data is deliberately left to the caller.
type Block struct {
	TypeHash uint32
	Data     []byte
}

// Scan splits buf into Blocks by locating every 4-byte-aligned occurrence
// of ChecksumSentinel. A span shorter than 4 bytes (too short to hold a
// type hash) is dropped rather than reported as a malformed Block.
func Scan(buf []byte) ([]Block, error) {
	if len(buf) == 0 {
		return nil, avaerr.New("rbmdl.Scan", avaerr.InvalidArgument)
	}

	var blocks []Block
	segStart := 0
	for pos := 0; pos+4 <= len(buf); pos += 4 {
		if binary.LittleEndian.Uint32(buf[pos:pos+4]) != ChecksumSentinel {
			continue
		}
		segment := buf[segStart:pos]
		if len(segment) >= 4 {
			blocks = append(blocks, Block{
				TypeHash: binary.LittleEndian.Uint32(segment[:4]),
				Data:     append([]byte(nil), segment[4:]...),
			})
		}
		segStart = pos + 4
	}
	return blocks, nil
}
