// Package adf implements the reflection-driven typed-record file format:
// a type registry plus a list of named instances whose relative offsets
// are fixed up into an addressable form on read, mirroring
// ava::AdfDatabase from the reference tooling. Where the reference
// tooling rewrites 32-bit file offsets into raw 64-bit pointers inside a
// freshly allocated buffer, this package keeps the decoded payload
// immutable and instead builds an index of (field offset, target offset)
// patch sites that a typed view resolves lazily — see Instance.Field.
package adf

import (
	"encoding/binary"

	"github.com/go-ava/avaformat/avaerr"
	"github.com/go-ava/avaformat/avahash"
	"github.com/go-ava/avaformat/bytestream"
)

// Magic is the required ADF header magic ("ADF " as a little-endian u32).
const Magic uint32 = 0x41444620

// DeferredTypeHash is the fixed sentinel type hash for the built-in
// Deferred pseudo-type, required by spec rather than synthesized.
const DeferredTypeHash uint32 = 0xDEFE88ED

// FlagRelativeOffsetsExist selects the tail-chain pointer fix-up mode in
// ReadInstance; when clear, the recursive-walk mode is used instead.
const FlagRelativeOffsetsExist uint32 = 0x1

const (
	headerSize    = 0x48
	instanceSize  = 0x18
	memberSize    = 0x20
	enumEntrySize = 0xC
	typeSize      = 0x28
)

// Kind is the closed set of ADF type kinds, in file order. The tag values
// match the reference tooling's on-disk AdfType enum.
type Kind uint32

const (
	KindScalar Kind = iota
	KindStruct
	KindPointer
	KindArray
	KindInlineArray
	KindString
	KindRecursive
	KindBitfield
	KindEnum
	KindStringHash
	KindDeferred
)

// ScalarSubtype distinguishes Scalar (and Enum storage) types.
type ScalarSubtype uint32

const (
	SubtypeSigned ScalarSubtype = iota
	SubtypeUnsigned
	SubtypeFloat
)

// Member is one field of a Struct or Bitfield type.
type Member struct {
	Name         string
	TypeHash     uint32
	Alignment    uint32
	Offset       uint32 // 24-bit byte offset within the owning type
	BitOffset    uint8  // bit offset within Offset, for Bitfield members
	Flags        uint32
	DefaultValue uint64
}

// EnumEntry is one named value of an Enum type.
type EnumEntry struct {
	Name  string
	Value int32
}

// Type is one registered ADF type: the kind-tagged reflection record.
// Members is populated for Struct and Bitfield kinds; EnumEntries for
// Enum. ArraySizeOrBitCount and MemberCountOrDataAlign are the two wire
// union fields (interpretation depends on Kind), kept raw alongside the
// already-decoded Members/EnumEntries slices.
type Type struct {
	Kind                   Kind
	Size                   uint32
	Alignment              uint32
	TypeHash               uint32
	Name                   string
	Flags                  uint32
	ScalarSubtype          ScalarSubtype
	SubtypeHash            uint32
	ArraySizeOrBitCount    uint32
	MemberCountOrDataAlign uint32
	Members                []Member
	EnumEntries            []EnumEntry
}

// InstanceInfo is the lightweight view returned by GetInstance: a
// borrowed slice into the source buffer, no pointer fix-up applied.
type InstanceInfo struct {
	NameHash    uint32
	TypeHash    uint32
	Name        string
	Payload     []byte
	PayloadSize uint32
}

// instanceRecord is the raw on-disk AdfInstance plus the buffer it was
// read from, needed by ReadInstance to read bytes past PayloadSize (the
// tail-chain case) using the original file's addressing.
type instanceRecord struct {
	nameHash      uint32
	typeHash      uint32
	name          string
	payloadOffset uint32
	payloadSize   uint32
	buf           []byte
	flags         uint32
}

// PatchSite is one fixed-up field: the byte offset within Instance.Payload
// holding a stored relative offset, and the absolute-within-payload target
// that offset resolves to. This replaces the reference tooling's in-place
// pointer rewrite with a lazily-resolved index, per spec's redesign note.
type PatchSite struct {
	FieldOffset  uint32
	TargetOffset uint32
}

// Instance is a materialized ADF record: an owned copy of its payload plus
// the patch-site index produced by pointer fix-up.
type Instance struct {
	NameHash uint32
	TypeHash uint32
	Name     string
	Payload  []byte
	Patches  []PatchSite

	adf *ADF
}

// ResolvePointer returns the target offset recorded for fieldOffset, if
// fieldOffset was one of the sites fixed up during ReadInstance.
func (i *Instance) ResolvePointer(fieldOffset uint32) (uint32, bool) {
	for _, p := range i.Patches {
		if p.FieldOffset == fieldOffset {
			return p.TargetOffset, true
		}
	}
	return 0, false
}

// ADF is a type registry plus the named instances loaded into it. A
// single ADF may be built from more than one file's bytes via AddTypes;
// type hash collisions keep the first definition, per spec.
type ADF struct {
	types      map[uint32]*Type
	typeOrder  []uint32
	instances  []instanceRecord
	internPool map[string]string
}

// New validates buf's header, bootstraps the twelve built-in types, and
// loads buf's own types and instances.
func New(buf []byte) (*ADF, error) {
	a := &ADF{
		types:      make(map[uint32]*Type),
		internPool: make(map[string]string),
	}
	a.bootstrap()
	if err := a.AddTypes(buf); err != nil {
		return nil, err
	}
	return a, nil
}

// FindType looks up a registered type by hash, built-in or file-supplied.
func (a *ADF) FindType(hash uint32) (*Type, bool) {
	t, ok := a.types[hash]
	return t, ok
}

// GetInstance returns the index-th instance without performing pointer
// fix-up; Payload borrows directly from the instance's source buffer.
func (a *ADF) GetInstance(index int) (InstanceInfo, error) {
	if index < 0 || index >= len(a.instances) {
		return InstanceInfo{}, avaerr.New("adf.GetInstance", avaerr.InvalidArgument)
	}
	r := a.instances[index]
	if int(r.payloadOffset)+int(r.payloadSize) > len(r.buf) {
		return InstanceInfo{}, avaerr.New("adf.GetInstance", avaerr.UnexpectedEOF)
	}
	return InstanceInfo{
		NameHash:    r.nameHash,
		TypeHash:    r.typeHash,
		Name:        r.name,
		Payload:     r.buf[r.payloadOffset : r.payloadOffset+r.payloadSize],
		PayloadSize: r.payloadSize,
	}, nil
}

// ReadInstance locates the first instance matching (nameHash, typeHash),
// copies its payload, and patches its relative offsets into the
// arena+index form described in package docs. Tail-chain mode is used
// when the source file's header carried FlagRelativeOffsetsExist;
// otherwise the type is walked recursively (via an explicit frame stack)
// to find Pointer/Deferred/Array/String fields.
func (a *ADF) ReadInstance(nameHash, typeHash uint32) (*Instance, error) {
	var rec *instanceRecord
	for i := range a.instances {
		if a.instances[i].nameHash == nameHash && a.instances[i].typeHash == typeHash {
			rec = &a.instances[i]
			break
		}
	}
	if rec == nil {
		return nil, avaerr.New("adf.ReadInstance", avaerr.UnknownEntry)
	}
	if int(rec.payloadOffset)+int(rec.payloadSize) > len(rec.buf) {
		return nil, avaerr.New("adf.ReadInstance", avaerr.UnexpectedEOF)
	}

	payload := make([]byte, rec.payloadSize)
	copy(payload, rec.buf[rec.payloadOffset:rec.payloadOffset+rec.payloadSize])

	inst := &Instance{
		NameHash: rec.nameHash,
		TypeHash: rec.typeHash,
		Name:     rec.name,
		Payload:  payload,
		adf:      a,
	}

	if rec.flags&FlagRelativeOffsetsExist != 0 {
		inst.Patches = tailChainPatches(rec.buf, rec.payloadOffset+rec.payloadSize)
	} else {
		inst.Patches = a.recursiveWalkPatches(rec.typeHash, payload)
	}
	return inst, nil
}

// tailChainPatches walks the 32-bit {delta, field} chain that follows an
// instance's payload when FlagRelativeOffsetsExist is set. This is the
// legacy-64-bit-layout path from spec §4.7; the exact pointer arithmetic
// is re-derived here from the textual description rather than ported
// verbatim (spec §9 flags the original as non-obvious and recommends
// re-deriving against known-good samples before trusting it byte-exact).
func tailChainPatches(buf []byte, chainStart uint32) []PatchSite {
	r := bytestream.NewReader(buf)

	var patches []PatchSite
	var current, prev uint32
	for {
		if err := r.SeekAbs(int(chainStart + current)); err != nil {
			break
		}
		size, err := r.ReadU32()
		if err != nil || size == 0 {
			break
		}
		current += size

		if err := r.SeekAbs(int(chainStart + current - 4)); err != nil {
			break
		}
		v, err := r.ReadU32()
		if err != nil {
			break
		}
		if v == 1 {
			v = 0
		}
		patches = append(patches, PatchSite{FieldOffset: current - 4, TargetOffset: prev})
		prev = v
	}
	return patches
}

// walkFrame is one (type, offset) unit of work for the recursive-walk
// pointer fix-up, kept on an explicit stack per spec §9's "iterative
// stack" redesign instead of a recursive function (avoids unbounded Go
// stack growth on pathological/cyclic type graphs).
type walkFrame struct {
	typeHash uint32
	offset   uint32
}

// recursiveWalkPatches walks typeHash's shape over payload: Struct
// members recurse by accumulated offset; Pointer/Deferred/Array/String
// fields carry a stored 32-bit offset that, if non-zero, becomes a patch
// site and recurses into the subtype payload at that offset (a zero
// offset produces no patch site).
func (a *ADF) recursiveWalkPatches(typeHash uint32, payload []byte) []PatchSite {
	var patches []PatchSite
	stack := []walkFrame{{typeHash: typeHash, offset: 0}}
	visited := make(map[uint32]bool)

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		t, ok := a.FindType(f.typeHash)
		if !ok {
			continue
		}

		switch t.Kind {
		case KindStruct, KindBitfield:
			for _, m := range t.Members {
				stack = append(stack, walkFrame{typeHash: m.TypeHash, offset: f.offset + m.Offset})
			}

		case KindPointer, KindDeferred, KindArray, KindString:
			if int(f.offset)+4 > len(payload) {
				continue
			}
			raw := binary.LittleEndian.Uint32(payload[f.offset:])
			if raw == 0 {
				continue
			}
			patches = append(patches, PatchSite{FieldOffset: f.offset, TargetOffset: raw})
			// Guard against cyclic/self-referential type graphs: a given
			// (type, target) pair is only walked once.
			key := f.typeHash<<1 ^ raw
			if !visited[key] {
				visited[key] = true
				stack = append(stack, walkFrame{typeHash: t.SubtypeHash, offset: raw})
			}

		default:
			// Scalar, Enum, StringHash, InlineArray, Recursive: no stored
			// relative offset to patch at this level.
		}
	}
	return patches
}

func (a *ADF) intern(s string) string {
	if v, ok := a.internPool[s]; ok {
		return v
	}
	a.internPool[s] = s
	return s
}

func (a *ADF) register(t *Type) {
	if _, exists := a.types[t.TypeHash]; exists {
		return // first definition wins
	}
	a.types[t.TypeHash] = t
	a.typeOrder = append(a.typeOrder, t.TypeHash)
}

// syntheticTypeHash derives the built-in bootstrap types' hashes from
// name + kind + size, per spec §4.7 phase 2 (everything but Deferred,
// which uses the fixed sentinel DeferredTypeHash).
func syntheticTypeHash(name string, kind Kind, size uint32) uint32 {
	buf := make([]byte, 0, len(name)+5)
	buf = append(buf, name...)
	buf = append(buf, byte(kind))
	var sz [4]byte
	binary.LittleEndian.PutUint32(sz[:], size)
	buf = append(buf, sz[:]...)
	return avahash.Hashlittle(buf)
}

func builtinScalar(name string, subtype ScalarSubtype, size uint32) *Type {
	return &Type{
		Kind:          KindScalar,
		Size:          size,
		Alignment:     size,
		TypeHash:      syntheticTypeHash(name, KindScalar, size),
		Name:          name,
		ScalarSubtype: subtype,
	}
}

// bootstrap inserts the twelve built-in primitive/pseudo types, required
// to be present before any file-supplied type is loaded, per spec §3(i).
func (a *ADF) bootstrap() {
	a.register(builtinScalar("int8", SubtypeSigned, 1))
	a.register(builtinScalar("uint8", SubtypeUnsigned, 1))
	a.register(builtinScalar("int16", SubtypeSigned, 2))
	a.register(builtinScalar("uint16", SubtypeUnsigned, 2))
	a.register(builtinScalar("int32", SubtypeSigned, 4))
	a.register(builtinScalar("uint32", SubtypeUnsigned, 4))
	a.register(builtinScalar("int64", SubtypeSigned, 8))
	a.register(builtinScalar("uint64", SubtypeUnsigned, 8))
	a.register(builtinScalar("float", SubtypeFloat, 4))
	a.register(builtinScalar("double", SubtypeFloat, 8))
	a.register(&Type{
		Kind:      KindString,
		Size:      8,
		Alignment: 8,
		TypeHash:  syntheticTypeHash("String", KindString, 8),
		Name:      "String",
	})
	a.register(&Type{
		Kind:      KindDeferred,
		Size:      16,
		Alignment: 8,
		TypeHash:  DeferredTypeHash,
		Name:      "Deferred",
	})
}

// header holds the leading 48 bytes (12 u32 fields) of the 0x48-byte ADF
// header; the remaining header bytes are not read.
type header struct {
	magic                  uint32
	version                uint32
	instanceCount          uint32
	instanceOffset         uint32
	typeCount              uint32
	firstTypeOffset        uint32
	stringHashCount        uint32
	firstStringHashOffset  uint32
	stringCount            uint32
	firstStringDataOffset  uint32
	fileSize               uint32
	flags                  uint32
}

// AddTypes merges another file's types and instances into a, following
// spec §4.7 phases 1-5. Type hash collisions with an already-registered
// type keep the first definition (file order determines "first").
func (a *ADF) AddTypes(buf []byte) error {
	if len(buf) < 24 {
		return avaerr.New("adf.AddTypes", avaerr.UnexpectedEOF)
	}

	r := bytestream.NewReader(buf)
	var h header
	var err error
	read := func(dst *uint32) {
		if err == nil {
			*dst, err = r.ReadU32()
		}
	}
	read(&h.magic)
	if err == nil && h.magic != Magic {
		return avaerr.New("adf.AddTypes", avaerr.InvalidMagic)
	}
	read(&h.version)
	read(&h.instanceCount)
	read(&h.instanceOffset)
	read(&h.typeCount)
	read(&h.firstTypeOffset)
	read(&h.stringHashCount)
	read(&h.firstStringHashOffset)
	read(&h.stringCount)
	read(&h.firstStringDataOffset)
	read(&h.fileSize)
	read(&h.flags)
	if err != nil {
		return avaerr.New("adf.AddTypes", avaerr.UnexpectedEOF)
	}

	stringHashes, err := parseStringHashTable(buf, h.firstStringHashOffset, h.stringHashCount)
	if err != nil {
		return err
	}
	_ = stringHashes // parsed for bounds checking only; not stored or consulted by name-index resolution

	pool, err := parseStringPool(buf, h.firstStringDataOffset, h.stringCount)
	if err != nil {
		return err
	}
	resolve := func(index uint32) string {
		if int(index) >= len(pool) {
			return ""
		}
		return a.intern(pool[index])
	}

	types, err := parseTypes(buf, h.firstTypeOffset, h.typeCount, resolve)
	if err != nil {
		return err
	}
	for _, t := range types {
		a.register(t)
	}

	instances, err := parseInstances(buf, h.instanceOffset, h.instanceCount, resolve)
	if err != nil {
		return err
	}
	for i := range instances {
		instances[i].buf = buf
		instances[i].flags = h.flags
	}
	a.instances = append(a.instances, instances...)
	return nil
}

func parseStringHashTable(buf []byte, offset, count uint32) (map[uint32]string, error) {
	out := make(map[uint32]string, count)
	if count == 0 {
		return out, nil
	}
	r := bytestream.NewReader(buf)
	if err := r.SeekAbs(int(offset)); err != nil {
		return nil, avaerr.New("adf.parseStringHashTable", avaerr.UnexpectedEOF)
	}
	for i := uint32(0); i < count; i++ {
		s, err := r.ReadCString()
		if err != nil {
			return nil, avaerr.New("adf.parseStringHashTable", avaerr.UnexpectedEOF)
		}
		key, err := r.ReadU64()
		if err != nil {
			return nil, avaerr.New("adf.parseStringHashTable", avaerr.UnexpectedEOF)
		}
		out[uint32(key)] = s
	}
	return out, nil
}

func parseStringPool(buf []byte, offset, count uint32) ([]string, error) {
	if count == 0 {
		return nil, nil
	}
	r := bytestream.NewReader(buf)
	if err := r.SeekAbs(int(offset)); err != nil {
		return nil, avaerr.New("adf.parseStringPool", avaerr.UnexpectedEOF)
	}
	lengths, err := r.ReadBytes(int(count))
	if err != nil {
		return nil, avaerr.New("adf.parseStringPool", avaerr.UnexpectedEOF)
	}
	out := make([]string, count)
	for i := uint32(0); i < count; i++ {
		s, err := r.ReadCString()
		if err != nil {
			return nil, avaerr.New("adf.parseStringPool", avaerr.UnexpectedEOF)
		}
		if int(lengths[i]) != len(s) {
			return nil, avaerr.New("adf.parseStringPool", avaerr.InvalidArgument)
		}
		out[i] = s
	}
	return out, nil
}

func parseTypes(buf []byte, offset, count uint32, resolve func(uint32) string) ([]*Type, error) {
	if count == 0 {
		return nil, nil
	}
	r := bytestream.NewReader(buf)
	if err := r.SeekAbs(int(offset)); err != nil {
		return nil, avaerr.New("adf.parseTypes", avaerr.UnexpectedEOF)
	}

	out := make([]*Type, 0, count)
	for i := uint32(0); i < count; i++ {
		t, err := parseOneType(r, resolve)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func parseOneType(r *bytestream.Reader, resolve func(uint32) string) (*Type, error) {
	t := &Type{}
	var kind, nameIdx, scalarSubtype uint32
	var err error
	read := func(dst *uint32) {
		if err == nil {
			*dst, err = r.ReadU32()
		}
	}
	read(&kind)
	read(&t.Size)
	read(&t.Alignment)
	read(&t.TypeHash)
	read(&nameIdx)
	read(&t.Flags)
	read(&scalarSubtype)
	read(&t.SubtypeHash)
	read(&t.ArraySizeOrBitCount)
	read(&t.MemberCountOrDataAlign)
	if err != nil {
		return nil, avaerr.New("adf.parseOneType", avaerr.UnexpectedEOF)
	}
	t.Kind = Kind(kind)
	t.ScalarSubtype = ScalarSubtype(scalarSubtype)
	t.Name = resolve(nameIdx)

	switch t.Kind {
	case KindStruct, KindBitfield:
		for i := uint32(0); i < t.MemberCountOrDataAlign; i++ {
			m, err := parseMember(r, resolve)
			if err != nil {
				return nil, err
			}
			t.Members = append(t.Members, m)
		}
	case KindEnum:
		for i := uint32(0); i < t.MemberCountOrDataAlign; i++ {
			e, err := parseEnumEntry(r, resolve)
			if err != nil {
				return nil, err
			}
			t.EnumEntries = append(t.EnumEntries, e)
		}
	}
	return t, nil
}

func parseMember(r *bytestream.Reader, resolve func(uint32) string) (Member, error) {
	var nameIdx, offsetBits uint32
	var m Member
	var err error
	read := func(dst *uint32) {
		if err == nil {
			*dst, err = r.ReadU32()
		}
	}
	read(&nameIdx)
	read(&m.TypeHash)
	read(&m.Alignment)
	read(&offsetBits)
	read(&m.Flags)
	if err != nil {
		return Member{}, avaerr.New("adf.parseMember", avaerr.UnexpectedEOF)
	}
	def, err := r.ReadU64()
	if err != nil {
		return Member{}, avaerr.New("adf.parseMember", avaerr.UnexpectedEOF)
	}
	if _, err := r.ReadU32(); err != nil { // reserved, pads the record to memberSize
		return Member{}, avaerr.New("adf.parseMember", avaerr.UnexpectedEOF)
	}
	m.Name = resolve(nameIdx)
	m.Offset = offsetBits & 0x00FFFFFF
	m.BitOffset = uint8(offsetBits >> 24)
	m.DefaultValue = def
	return m, nil
}

func parseEnumEntry(r *bytestream.Reader, resolve func(uint32) string) (EnumEntry, error) {
	nameIdx, err := r.ReadU32()
	if err != nil {
		return EnumEntry{}, avaerr.New("adf.parseEnumEntry", avaerr.UnexpectedEOF)
	}
	value, err := r.ReadI32()
	if err != nil {
		return EnumEntry{}, avaerr.New("adf.parseEnumEntry", avaerr.UnexpectedEOF)
	}
	if _, err := r.ReadU32(); err != nil { // reserved
		return EnumEntry{}, avaerr.New("adf.parseEnumEntry", avaerr.UnexpectedEOF)
	}
	return EnumEntry{Name: resolve(nameIdx), Value: value}, nil
}

func parseInstances(buf []byte, offset, count uint32, resolve func(uint32) string) ([]instanceRecord, error) {
	if count == 0 {
		return nil, nil
	}
	r := bytestream.NewReader(buf)
	if err := r.SeekAbs(int(offset)); err != nil {
		return nil, avaerr.New("adf.parseInstances", avaerr.UnexpectedEOF)
	}

	out := make([]instanceRecord, 0, count)
	for i := uint32(0); i < count; i++ {
		var rec instanceRecord
		var nameIdx uint32
		var err error
		read := func(dst *uint32) {
			if err == nil {
				*dst, err = r.ReadU32()
			}
		}
		read(&rec.nameHash)
		read(&rec.typeHash)
		read(&rec.payloadOffset)
		read(&rec.payloadSize)
		read(&nameIdx)
		if err == nil {
			_, err = r.ReadU32() // reserved, pads the record to instanceSize
		}
		if err != nil {
			return nil, avaerr.New("adf.parseInstances", avaerr.UnexpectedEOF)
		}
		rec.name = resolve(nameIdx)
		out = append(out, rec)
	}
	return out, nil
}
