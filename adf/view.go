package adf

import (
	"encoding/binary"
	"math"
	"strings"
)

// Field resolves a dotted path of Struct member names (e.g.
// "Sniper.InitialRandomAimDistance") against i's type, walking nested
// Struct members by accumulated byte offset and decoding the leaf field
// as a Go value. Pointer/Deferred/String leaves are followed through
// i.Patches before being read, so a caller never sees a raw stored
// offset. Array (and other non-Scalar, non-Enum) leaves are not decoded
// and fail with a field-not-found error.
func (i *Instance) Field(path string) (any, error) {
	t, ok := i.adf.FindType(i.TypeHash)
	if !ok {
		return nil, errFieldNotFound(path)
	}

	offset := uint32(0)
	parts := strings.Split(path, ".")
	for idx, name := range parts {
		m, ok := findMember(t, name)
		if !ok {
			return nil, errFieldNotFound(path)
		}
		offset += m.Offset

		last := idx == len(parts)-1
		mt, ok := i.adf.FindType(m.TypeHash)
		if !ok {
			return nil, errFieldNotFound(path)
		}

		if !last {
			if mt.Kind != KindStruct {
				return nil, errFieldNotFound(path)
			}
			t = mt
			continue
		}
		return i.decodeAt(mt, offset)
	}
	return nil, errFieldNotFound(path)
}

func findMember(t *Type, name string) (Member, bool) {
	for _, m := range t.Members {
		if m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}

// decodeAt reads the value of type t stored at byte offset off in i's
// payload, following a Pointer/Deferred/String indirection through the
// patch-site index first.
func (i *Instance) decodeAt(t *Type, off uint32) (any, error) {
	switch t.Kind {
	case KindScalar:
		return i.decodeScalar(t, off)

	case KindString:
		target, ok := i.ResolvePointer(off)
		if !ok {
			return "", nil
		}
		return readCStringAt(i.Payload, target), nil

	case KindPointer, KindDeferred:
		target, ok := i.ResolvePointer(off)
		if !ok {
			return nil, nil
		}
		sub, ok := i.adf.FindType(t.SubtypeHash)
		if !ok {
			return nil, errFieldNotFound(t.Name)
		}
		return i.decodeAt(sub, target)

	case KindEnum:
		if int(off)+4 > len(i.Payload) {
			return nil, errFieldNotFound(t.Name)
		}
		raw := int32(binary.LittleEndian.Uint32(i.Payload[off:]))
		for _, e := range t.EnumEntries {
			if e.Value == raw {
				return e.Name, nil
			}
		}
		return raw, nil

	default:
		return nil, errFieldNotFound(t.Name)
	}
}

func (i *Instance) decodeScalar(t *Type, off uint32) (any, error) {
	if int(off)+int(t.Size) > len(i.Payload) {
		return nil, errFieldNotFound(t.Name)
	}
	b := i.Payload[off:]
	switch {
	case t.ScalarSubtype == SubtypeFloat && t.Size == 4:
		return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
	case t.ScalarSubtype == SubtypeFloat && t.Size == 8:
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
	case t.ScalarSubtype == SubtypeSigned:
		switch t.Size {
		case 1:
			return int8(b[0]), nil
		case 2:
			return int16(binary.LittleEndian.Uint16(b)), nil
		case 4:
			return int32(binary.LittleEndian.Uint32(b)), nil
		case 8:
			return int64(binary.LittleEndian.Uint64(b)), nil
		}
	case t.ScalarSubtype == SubtypeUnsigned:
		switch t.Size {
		case 1:
			return b[0], nil
		case 2:
			return binary.LittleEndian.Uint16(b), nil
		case 4:
			return binary.LittleEndian.Uint32(b), nil
		case 8:
			return binary.LittleEndian.Uint64(b), nil
		}
	}
	return nil, errFieldNotFound(t.Name)
}

func readCStringAt(buf []byte, offset uint32) string {
	if int(offset) >= len(buf) {
		return ""
	}
	end := offset
	for int(end) < len(buf) && buf[end] != 0 {
		end++
	}
	return string(buf[offset:end])
}

type fieldError struct{ path string }

func (e *fieldError) Error() string { return "adf: field not found: " + e.path }

func errFieldNotFound(path string) error { return &fieldError{path: path} }
