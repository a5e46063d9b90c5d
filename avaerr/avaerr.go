// Package avaerr defines the single closed set of result codes shared by
// every container/record format in this module, mirroring the way the
// reference tooling keeps one Result enum across its TAB, SARC, RTPC and ADF
// readers instead of a different error type per subsystem.
package avaerr

// Code is a closed result code shared across every subsystem in this
// module. Parse and write operations never panic on malformed input; they
// return an error wrapping one of these codes instead.
type Code int

const (
	// OK is never returned as an error; it exists so ToString has something
	// to say about the zero value.
	OK Code = iota
	InvalidArgument
	NotImplemented

	// compression adapter (C3)
	CompressorUnavailable
	CompressorLoadFailed
	CompressorBadSignature

	// TAB/ARC (C4)
	InvalidMagic
	UnknownEntry
	RequiresCompressionBlocks
	CompressBlockFailed
	DecompressBlockFailed

	// AAF (C8)
	InvalidChunkMagic
	CompressChunkFailed
	DecompressChunkFailed

	// SARC (C5)
	UnknownVersion
	PatchedEntry

	// RBMDL
	BadChecksum

	// AVTX
	SourceBufferNeeded

	// bytestream (C1)
	UnexpectedEOF
)

var names = map[Code]string{
	OK:                        "E_OK",
	InvalidArgument:           "E_INVALID_ARGUMENT",
	NotImplemented:            "E_NOT_IMPLEMENTED",
	CompressorUnavailable:     "E_OODLE_LIBRARY_MISSING",
	CompressorLoadFailed:      "E_OODLE_FAILED_TO_LOAD",
	CompressorBadSignature:    "E_OODLE_BAD_SIGNATURE",
	InvalidMagic:              "E_INVALID_MAGIC",
	UnknownEntry:              "E_TAB_UNKNOWN_ENTRY",
	RequiresCompressionBlocks: "E_TAB_INPUT_REQUIRES_COMPRESSION_BLOCKS",
	CompressBlockFailed:       "E_TAB_COMPRESS_BLOCK_FAILED",
	DecompressBlockFailed:     "E_TAB_DECOMPRESS_BLOCK_FAILED",
	InvalidChunkMagic:         "E_AAF_INVALID_CHUNK_MAGIC",
	CompressChunkFailed:       "E_AAF_COMPRESS_CHUNK_FAILED",
	DecompressChunkFailed:     "E_AAF_DECOMPRESS_CHUNK_FAILED",
	UnknownVersion:            "E_SARC_UNKNOWN_VERSION",
	PatchedEntry:              "E_SARC_PATCHED_ENTRY",
	BadChecksum:               "E_RBMDL_BAD_CHECKSUM",
	SourceBufferNeeded:        "E_AVTX_SOURCE_BUFFER_NEEDED",
	UnexpectedEOF:             "E_UNEXPECTED_EOF",
}

// ToString renders a Code for diagnostics, as spec'd by every subsystem's
// shared Result enum.
func ToString(c Code) string {
	if s, ok := names[c]; ok {
		return s
	}
	return "E_UNKNOWN"
}

// Error pairs a Code with the operation that produced it. Subsystems return
// these wrapped in the standard error interface so callers can still use
// errors.Is/errors.As against the sentinel values below.
type Error struct {
	Op   string
	Code Code
}

func (e *Error) Error() string {
	if e.Op == "" {
		return ToString(e.Code)
	}
	return e.Op + ": " + ToString(e.Code)
}

// New constructs an error for op carrying code. Subsystems call this instead
// of ad-hoc fmt.Errorf so every failure remains traceable to a single closed
// Code.
func New(op string, code Code) error {
	return &Error{Op: op, Code: code}
}

// Is lets errors.Is(err, avaerr.ErrInvalidMagic) match any *Error carrying
// the same Code, whatever its Op, by way of the sentinel values declared
// below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinel values for errors.Is comparisons, e.g.:
//
//	if errors.Is(err, avaerr.ErrInvalidMagic) { ... }
var (
	ErrInvalidArgument           = &Error{Code: InvalidArgument}
	ErrNotImplemented            = &Error{Code: NotImplemented}
	ErrCompressorUnavailable     = &Error{Code: CompressorUnavailable}
	ErrCompressorLoadFailed      = &Error{Code: CompressorLoadFailed}
	ErrCompressorBadSignature    = &Error{Code: CompressorBadSignature}
	ErrInvalidMagic              = &Error{Code: InvalidMagic}
	ErrUnknownEntry              = &Error{Code: UnknownEntry}
	ErrRequiresCompressionBlocks = &Error{Code: RequiresCompressionBlocks}
	ErrCompressBlockFailed       = &Error{Code: CompressBlockFailed}
	ErrDecompressBlockFailed     = &Error{Code: DecompressBlockFailed}
	ErrInvalidChunkMagic         = &Error{Code: InvalidChunkMagic}
	ErrCompressChunkFailed       = &Error{Code: CompressChunkFailed}
	ErrDecompressChunkFailed     = &Error{Code: DecompressChunkFailed}
	ErrUnknownVersion            = &Error{Code: UnknownVersion}
	ErrPatchedEntry              = &Error{Code: PatchedEntry}
	ErrBadChecksum               = &Error{Code: BadChecksum}
	ErrSourceBufferNeeded        = &Error{Code: SourceBufferNeeded}
	ErrUnexpectedEOF             = &Error{Code: UnexpectedEOF}
)
