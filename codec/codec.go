// Package codec is the uniform call-through for the two compression
// families this module's archive formats use: raw DEFLATE (always
// available, backed by klauspost/compress/flate the same way
// arloliu-mebo and distr1-distri pull it in) and an external LZ codec
// loaded at runtime as a plug-in (the "Oodle" dynamic library in the
// reference tooling), via the codec/oodle dlopen shim.
package codec

import (
	"bytes"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"

	"github.com/go-ava/avaformat/avaerr"
	"github.com/go-ava/avaformat/codec/oodle"
)

// DeflateRaw compresses src with raw DEFLATE (no zlib/gzip framing).
func DeflateRaw(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, avaerr.New("codec.DeflateRaw", avaerr.CompressBlockFailed)
	}
	if _, err := w.Write(src); err != nil {
		return nil, avaerr.New("codec.DeflateRaw", avaerr.CompressBlockFailed)
	}
	if err := w.Close(); err != nil {
		return nil, avaerr.New("codec.DeflateRaw", avaerr.CompressBlockFailed)
	}
	return buf.Bytes(), nil
}

// InflateRaw decompresses src with raw DEFLATE, expecting exactly expected
// bytes of output.
func InflateRaw(src []byte, expected int) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(src))
	defer r.Close()

	out := make([]byte, expected)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, avaerr.New("codec.InflateRaw", avaerr.DecompressBlockFailed)
	}
	return out, nil
}

// LZCodec is the small interface the external LZ plug-in satisfies, so the
// lifecycle management in Adapter doesn't need to know it's specifically
// Oodle under the hood.
type LZCodec interface {
	Compress(src []byte) ([]byte, error)
	Decompress(src []byte, expectedSize int) ([]byte, error)
	Close() error
}

// Adapter manages the load/unload lifecycle of the external LZ plug-in.
// Load is idempotent; Unload only releases a library this Adapter loaded
// itself, per spec: "load/unload is not re-entrant; compress/decompress is
// callable from multiple threads once loaded."
type Adapter struct {
	mu       sync.Mutex
	lz       LZCodec
	loadedBy bool
}

// NewAdapter returns an Adapter with no LZ plug-in loaded.
func NewAdapter() *Adapter {
	return &Adapter{}
}

// Load resolves the external codec's symbols from the dynamic library at
// path. Calling Load again with a plug-in already loaded is a no-op.
func (a *Adapter) Load(path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.lz != nil {
		return nil
	}

	lib, err := oodle.Open(path)
	if err != nil {
		return err
	}
	a.lz = lib
	a.loadedBy = true
	return nil
}

// Unload releases the plug-in if this Adapter was the one that loaded it.
func (a *Adapter) Unload() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.lz == nil || !a.loadedBy {
		a.lz = nil
		a.loadedBy = false
		return nil
	}
	err := a.lz.Close()
	a.lz = nil
	a.loadedBy = false
	return err
}

// Compress runs the external LZ codec's compressor, failing with
// CompressorUnavailable if no plug-in is loaded.
func (a *Adapter) Compress(src []byte) ([]byte, error) {
	a.mu.Lock()
	lz := a.lz
	a.mu.Unlock()

	if lz == nil {
		return nil, avaerr.New("codec.Compress", avaerr.CompressorUnavailable)
	}
	return lz.Compress(src)
}

// Decompress runs the external LZ codec's decompressor, failing with
// CompressorUnavailable if no plug-in is loaded.
func (a *Adapter) Decompress(src []byte, expectedSize int) ([]byte, error) {
	a.mu.Lock()
	lz := a.lz
	a.mu.Unlock()

	if lz == nil {
		return nil, avaerr.New("codec.Decompress", avaerr.CompressorUnavailable)
	}
	return lz.Decompress(src, expectedSize)
}

// Loaded reports whether an LZ plug-in is currently loaded.
func (a *Adapter) Loaded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lz != nil
}

var (
	defaultOnce    sync.Once
	defaultAdapter *Adapter
)

// Default returns a process-global Adapter, the opt-in convenience shim
// called for in spec.md §9 ("Retain a convenience process-global only as an
// opt-in shim") for callers that don't want to thread an *Adapter through
// every call site themselves.
func Default() *Adapter {
	defaultOnce.Do(func() {
		defaultAdapter = NewAdapter()
	})
	return defaultAdapter
}
