// Package resourcebundle implements the simpler single-blob named-entry
// format described in the reference tooling's resource_bundle.h/.cpp: no
// index/data split like tab, no directory like sarc. Each entry is a
// small fixed header immediately followed by its own raw bytes, entries
// concatenated back-to-back in one buffer — the shape spec.md's §8
// scenario 6 ("writing two entries... reading by hash") exercises.
package resourcebundle

import (
	"path/filepath"
	"strings"

	"github.com/go-ava/avaformat/avaerr"
	"github.com/go-ava/avaformat/avahash"
	"github.com/go-ava/avaformat/bytestream"
)

const entryHeaderSize = 0xC // nameHash + extensionHash + size, 4 bytes each

// extensionHash hashes filename's extension (without the leading dot),
// mirroring how the reference tooling derives a second lookup key from a
// file's type.
func extensionHash(filename string) uint32 {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	return avahash.Hashlittle([]byte(ext))
}

// ReadEntry scans buf for the first entry whose name hash matches and
// returns a copy of its payload bytes.
func ReadEntry(buf []byte, nameHash uint32) ([]byte, error) {
	if len(buf) == 0 {
		return nil, avaerr.New("resourcebundle.ReadEntry", avaerr.InvalidArgument)
	}

	r := bytestream.NewReader(buf)
	for r.Remaining() >= entryHeaderSize {
		entryNameHash, e1 := r.ReadU32()
		if _, err := r.ReadU32(); err != nil { // extension hash, not needed for lookup
			return nil, avaerr.New("resourcebundle.ReadEntry", avaerr.UnexpectedEOF)
		}
		size, e2 := r.ReadU32()
		if e1 != nil || e2 != nil {
			return nil, avaerr.New("resourcebundle.ReadEntry", avaerr.UnexpectedEOF)
		}

		payload, err := r.ReadBytes(int(size))
		if err != nil {
			return nil, avaerr.New("resourcebundle.ReadEntry", avaerr.UnexpectedEOF)
		}
		if entryNameHash == nameHash {
			out := make([]byte, len(payload))
			copy(out, payload)
			return out, nil
		}
	}
	return nil, avaerr.New("resourcebundle.ReadEntry", avaerr.UnknownEntry)
}

// WriteEntry appends a new entry for filename/payload onto buf.
func WriteEntry(buf *[]byte, filename string, payload []byte) error {
	if buf == nil || filename == "" {
		return avaerr.New("resourcebundle.WriteEntry", avaerr.InvalidArgument)
	}

	w := bytestream.NewWriterFrom(*buf)
	w.WriteU32(avahash.Hashlittle([]byte(filename)))
	w.WriteU32(extensionHash(filename))
	w.WriteU32(uint32(len(payload)))
	w.WriteBytes(payload)

	*buf = w.Bytes()
	return nil
}
