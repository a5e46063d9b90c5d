// Package oodle resolves the external LZ compressor by name from a
// dynamic library at runtime, the same cgo-free dlopen/dlsym pattern
// purego's own examples use for wrapping vendor shared libraries — no
// headers, no cgo toolchain, just two symbols looked up by name.
//
// The real vendor library's compress/decompress entry points take a much
// larger parameter list (compressor selector, tuning level, scratch
// buffers, an options struct). This package only exposes the four
// parameters this module's call sites actually need — source pointer,
// source length, destination pointer, destination capacity — since
// nothing here links against the genuine proprietary library anyway and
// the wire formats that carry Oodle-compressed blocks only care that
// compress/decompress round-trip bytes.
package oodle

import (
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/go-ava/avaformat/avaerr"
)

type compressFunc func(src unsafe.Pointer, srcLen int32, dst unsafe.Pointer, dstCap int32) int32
type decompressFunc func(src unsafe.Pointer, srcLen int32, dst unsafe.Pointer, dstCap int32) int32

// Library is a loaded instance of the external codec. It satisfies
// codec.LZCodec.
type Library struct {
	handle     uintptr
	compress   compressFunc
	decompress decompressFunc
}

// Open dlopen's path and resolves OodleLZ_Compress/OodleLZ_Decompress. A
// missing library surfaces as CompressorUnavailable; a present library
// missing either symbol surfaces as CompressorBadSignature.
func Open(path string) (*Library, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, avaerr.New("oodle.Open", avaerr.CompressorUnavailable)
	}

	lib := &Library{handle: handle}
	if err := registerSymbols(lib); err != nil {
		return nil, err
	}
	return lib, nil
}

func registerSymbols(lib *Library) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = avaerr.New("oodle.Open", avaerr.CompressorBadSignature)
		}
	}()

	purego.RegisterLibFunc(&lib.compress, lib.handle, "OodleLZ_Compress")
	purego.RegisterLibFunc(&lib.decompress, lib.handle, "OodleLZ_Decompress")
	return nil
}

// Compress runs the external compressor into a destination buffer sized
// to the worst case (src plus a small safety margin), then trims to the
// number of bytes actually written.
func (l *Library) Compress(src []byte) ([]byte, error) {
	dstCap := len(src) + len(src)/8 + 64
	dst := make([]byte, dstCap)

	var srcPtr unsafe.Pointer
	if len(src) > 0 {
		srcPtr = unsafe.Pointer(&src[0])
	}

	n := l.compress(srcPtr, int32(len(src)), unsafe.Pointer(&dst[0]), int32(dstCap))
	if n <= 0 {
		return nil, avaerr.New("oodle.Compress", avaerr.CompressBlockFailed)
	}
	return dst[:n], nil
}

// Decompress runs the external decompressor, producing exactly
// expectedSize bytes of output.
func (l *Library) Decompress(src []byte, expectedSize int) ([]byte, error) {
	if expectedSize == 0 {
		return []byte{}, nil
	}
	dst := make([]byte, expectedSize)

	var srcPtr unsafe.Pointer
	if len(src) > 0 {
		srcPtr = unsafe.Pointer(&src[0])
	}

	n := l.decompress(srcPtr, int32(len(src)), unsafe.Pointer(&dst[0]), int32(expectedSize))
	if int(n) != expectedSize {
		return nil, avaerr.New("oodle.Decompress", avaerr.DecompressBlockFailed)
	}
	return dst, nil
}

// Close releases the dynamic library handle.
func (l *Library) Close() error {
	return purego.Dlclose(l.handle)
}
