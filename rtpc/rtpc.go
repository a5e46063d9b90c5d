// Package rtpc implements the RTPC property container: a tree of keyed
// containers whose leaves are tagged variants, mirroring
// ava::PropertyContainer from the reference tooling. Containers are
// serialized depth-first, each one's variant table and child-container
// records addressed by absolute byte offset, much like tab's dense
// entry/block tables but recursive instead of flat.
package rtpc

import (
	"math"

	"github.com/go-ava/avaformat/avaerr"
	"github.com/go-ava/avaformat/avahash"
	"github.com/go-ava/avaformat/bytestream"
)

// Magic is the required RTPC header magic ("RTPC" as a little-endian u32).
const Magic uint32 = 0x43505452

// Version is the header version this package reads and writes.
const Version uint32 = 1

// Padding is the fill byte used for every alignment gap this package
// inserts: between a variant table and its children, and before any
// variant payload that needs 4- or 16-byte alignment.
const Padding byte = 0x50

const (
	headerSize    = 8
	containerSize = 12
	variantSize   = 9
)

// VariantKind is the closed tag set carried on the wire. Tags 7 and 12 are
// reserved: representable so a Variant literal can name them, but invalid
// to read or write.
type VariantKind uint8

const (
	KindUnassigned VariantKind = 0
	KindInteger    VariantKind = 1
	KindFloat      VariantKind = 2
	KindString     VariantKind = 3
	KindVec2       VariantKind = 4
	KindVec3       VariantKind = 5
	KindVec4       VariantKind = 6
	kindReserved7  VariantKind = 7
	KindMat4       VariantKind = 8
	KindIntList    VariantKind = 9
	KindFloatList  VariantKind = 10
	KindByteList   VariantKind = 11
	KindObjectID   VariantKind = 13
	kindReserved12 VariantKind = 12
	KindEventList  VariantKind = 14
)

// Variant is a tagged value; only the field matching Kind is meaningful.
// Integer and Float are the only kinds inlined directly into the wire
// variant's offset slot — every other kind stores its payload at an
// absolute byte offset.
type Variant struct {
	Key  uint32
	Kind VariantKind

	Int       int32
	Float     float32
	Str       string
	Vec2      [2]float32
	Vec3      [3]float32
	Vec4      [4]float32
	Mat4      [16]float32
	IntList   []int32
	FloatList []float32
	ByteList  []byte
	ObjectID  uint64
	EventList []uint64
}

// Container is one node of the RTPC tree: a key, its variants in on-disk
// order, and its child containers in on-disk order.
type Container struct {
	Key      uint32
	Variants []Variant
	Children []Container
}

// invalidKey marks the sentinel Container/Variant returned by the Find*
// methods when nothing matches, per spec: lookups never fail, they return
// a reference distinguishable by this key.
const invalidKey uint32 = 0xFFFFFFFF

// FindContainer returns the first child (or, if recursive, descendant)
// container with the given key. ok is false and the sentinel Container is
// returned when nothing matches.
func (c *Container) FindContainer(key uint32, recursive bool) (*Container, bool) {
	for i := range c.Children {
		if c.Children[i].Key == key {
			return &c.Children[i], true
		}
	}
	if recursive {
		for i := range c.Children {
			if found, ok := c.Children[i].FindContainer(key, true); ok {
				return found, true
			}
		}
	}
	return &Container{Key: invalidKey}, false
}

// FindVariant returns the first variant on this container (or, if
// recursive, anywhere in the subtree) with the given key.
func (c *Container) FindVariant(key uint32, recursive bool) (*Variant, bool) {
	for i := range c.Variants {
		if c.Variants[i].Key == key {
			return &c.Variants[i], true
		}
	}
	if recursive {
		for i := range c.Children {
			if found, ok := c.Children[i].FindVariant(key, true); ok {
				return found, true
			}
		}
	}
	return &Variant{Key: invalidKey}, false
}

// Parse reads an RTPC buffer into its root Container tree.
func Parse(buf []byte) (Container, error) {
	if len(buf) == 0 {
		return Container{}, avaerr.New("rtpc.Parse", avaerr.InvalidArgument)
	}

	r := bytestream.NewReader(buf)
	magic, e1 := r.ReadU32()
	_, e2 := r.ReadU32() // version, not required to match a specific value on read
	if e1 != nil || e2 != nil {
		return Container{}, avaerr.New("rtpc.Parse", avaerr.UnexpectedEOF)
	}
	if magic != Magic {
		return Container{}, avaerr.New("rtpc.Parse", avaerr.InvalidMagic)
	}

	return readContainer(r, headerSize)
}

func readContainer(r *bytestream.Reader, pos int) (Container, error) {
	if err := r.SeekAbs(pos); err != nil {
		return Container{}, avaerr.New("rtpc.readContainer", avaerr.UnexpectedEOF)
	}
	key, e1 := r.ReadU32()
	dataOffset, e2 := r.ReadU32()
	variantCount, e3 := r.ReadU16()
	childCount, e4 := r.ReadU16()
	if e1 != nil || e2 != nil || e3 != nil || e4 != nil {
		return Container{}, avaerr.New("rtpc.readContainer", avaerr.UnexpectedEOF)
	}

	c := Container{Key: key}
	for i := 0; i < int(variantCount); i++ {
		v, err := readVariant(r, int(dataOffset)+i*variantSize)
		if err != nil {
			return Container{}, err
		}
		c.Variants = append(c.Variants, v)
	}

	childTableStart := avahash.AlignUp(dataOffset+uint32(variantCount)*variantSize, 4)
	for i := 0; i < int(childCount); i++ {
		child, err := readContainer(r, int(childTableStart)+i*containerSize)
		if err != nil {
			return Container{}, err
		}
		c.Children = append(c.Children, child)
	}
	return c, nil
}

func readVariant(r *bytestream.Reader, pos int) (Variant, error) {
	if err := r.SeekAbs(pos); err != nil {
		return Variant{}, avaerr.New("rtpc.readVariant", avaerr.UnexpectedEOF)
	}
	key, e1 := r.ReadU32()
	offsetOrInline, e2 := r.ReadU32()
	tag, e3 := r.ReadU8()
	if e1 != nil || e2 != nil || e3 != nil {
		return Variant{}, avaerr.New("rtpc.readVariant", avaerr.UnexpectedEOF)
	}

	v := Variant{Key: key, Kind: VariantKind(tag)}
	switch v.Kind {
	case KindUnassigned:
		// no payload

	case KindInteger:
		v.Int = int32(offsetOrInline)

	case KindFloat:
		v.Float = math.Float32frombits(offsetOrInline)

	case KindString:
		if err := r.SeekAbs(int(offsetOrInline)); err != nil {
			return Variant{}, avaerr.New("rtpc.readVariant", avaerr.UnexpectedEOF)
		}
		s, err := r.ReadCString()
		if err != nil {
			return Variant{}, avaerr.New("rtpc.readVariant", avaerr.UnexpectedEOF)
		}
		v.Str = s

	case KindVec2, KindVec3, KindVec4:
		n := map[VariantKind]int{KindVec2: 2, KindVec3: 3, KindVec4: 4}[v.Kind]
		vals, err := readFloats(r, offsetOrInline, n)
		if err != nil {
			return Variant{}, err
		}
		switch v.Kind {
		case KindVec2:
			copy(v.Vec2[:], vals)
		case KindVec3:
			copy(v.Vec3[:], vals)
		case KindVec4:
			copy(v.Vec4[:], vals)
		}

	case KindMat4:
		vals, err := readFloats(r, offsetOrInline, 16)
		if err != nil {
			return Variant{}, err
		}
		copy(v.Mat4[:], vals)

	case KindIntList:
		if err := r.SeekAbs(int(offsetOrInline)); err != nil {
			return Variant{}, avaerr.New("rtpc.readVariant", avaerr.UnexpectedEOF)
		}
		count, err := r.ReadU32()
		if err != nil {
			return Variant{}, avaerr.New("rtpc.readVariant", avaerr.UnexpectedEOF)
		}
		for i := uint32(0); i < count; i++ {
			x, err := r.ReadI32()
			if err != nil {
				return Variant{}, avaerr.New("rtpc.readVariant", avaerr.UnexpectedEOF)
			}
			v.IntList = append(v.IntList, x)
		}

	case KindFloatList:
		if err := r.SeekAbs(int(offsetOrInline)); err != nil {
			return Variant{}, avaerr.New("rtpc.readVariant", avaerr.UnexpectedEOF)
		}
		count, err := r.ReadU32()
		if err != nil {
			return Variant{}, avaerr.New("rtpc.readVariant", avaerr.UnexpectedEOF)
		}
		vals, err := readFloats(r, uint32(r.Tell()), int(count))
		if err != nil {
			return Variant{}, err
		}
		v.FloatList = vals

	case KindByteList:
		if err := r.SeekAbs(int(offsetOrInline)); err != nil {
			return Variant{}, avaerr.New("rtpc.readVariant", avaerr.UnexpectedEOF)
		}
		count, err := r.ReadU32()
		if err != nil {
			return Variant{}, avaerr.New("rtpc.readVariant", avaerr.UnexpectedEOF)
		}
		b, err := r.ReadBytes(int(count))
		if err != nil {
			return Variant{}, avaerr.New("rtpc.readVariant", avaerr.UnexpectedEOF)
		}
		v.ByteList = append([]byte(nil), b...)

	case KindObjectID:
		if err := r.SeekAbs(int(offsetOrInline)); err != nil {
			return Variant{}, avaerr.New("rtpc.readVariant", avaerr.UnexpectedEOF)
		}
		id, err := r.ReadU64()
		if err != nil {
			return Variant{}, avaerr.New("rtpc.readVariant", avaerr.UnexpectedEOF)
		}
		v.ObjectID = id

	case KindEventList:
		if err := r.SeekAbs(int(offsetOrInline)); err != nil {
			return Variant{}, avaerr.New("rtpc.readVariant", avaerr.UnexpectedEOF)
		}
		count, err := r.ReadU32()
		if err != nil {
			return Variant{}, avaerr.New("rtpc.readVariant", avaerr.UnexpectedEOF)
		}
		for i := uint32(0); i < count; i++ {
			id, err := r.ReadU64()
			if err != nil {
				return Variant{}, avaerr.New("rtpc.readVariant", avaerr.UnexpectedEOF)
			}
			v.EventList = append(v.EventList, id)
		}

	default:
		return Variant{}, avaerr.New("rtpc.readVariant", avaerr.InvalidArgument)
	}
	return v, nil
}

func readFloats(r *bytestream.Reader, offset uint32, n int) ([]float32, error) {
	if err := r.SeekAbs(int(offset)); err != nil {
		return nil, avaerr.New("rtpc.readFloats", avaerr.UnexpectedEOF)
	}
	out := make([]float32, n)
	for i := range out {
		f, err := r.ReadF32()
		if err != nil {
			return nil, avaerr.New("rtpc.readFloats", avaerr.UnexpectedEOF)
		}
		out[i] = f
	}
	return out, nil
}

// Write serializes root depth-first into a fresh RTPC buffer. Identical
// string payloads share storage via a value cache, per spec.
func Write(root Container) ([]byte, error) {
	w := bytestream.NewWriter()
	w.WriteU32(Magic)
	w.WriteU32(Version)

	rootPos := w.Tell()
	w.WriteU32(0)
	w.WriteU32(0)
	w.WriteU16(0)
	w.WriteU16(0)

	cache := make(map[string]uint32)
	dataOffset, err := writeContainer(w, root, cache)
	if err != nil {
		return nil, err
	}
	patchContainer(w, rootPos, root.Key, dataOffset, len(root.Variants), len(root.Children))
	return w.Bytes(), nil
}

func writeContainer(w *bytestream.Writer, c Container, cache map[string]uint32) (uint32, error) {
	alignWriter(w, 4)
	tableStart := w.Tell()

	for range c.Variants {
		w.WriteU32(0)
		w.WriteU32(0)
		w.WriteU8(0)
	}
	alignWriter(w, 4)

	childTableStart := w.Tell()
	for range c.Children {
		w.WriteU32(0)
		w.WriteU32(0)
		w.WriteU16(0)
		w.WriteU16(0)
	}

	for i, v := range c.Variants {
		if err := writeVariant(w, tableStart+i*variantSize, v, cache); err != nil {
			return 0, err
		}
	}

	for i, child := range c.Children {
		childDataOffset, err := writeContainer(w, child, cache)
		if err != nil {
			return 0, err
		}
		patchContainer(w, childTableStart+i*containerSize, child.Key, childDataOffset, len(child.Variants), len(child.Children))
	}

	return uint32(tableStart), nil
}

func writeVariant(w *bytestream.Writer, slot int, v Variant, cache map[string]uint32) error {
	switch v.Kind {
	case KindUnassigned:
		patchVariant(w, slot, v.Key, 0, v.Kind)
		return nil

	case KindInteger:
		patchVariant(w, slot, v.Key, uint32(v.Int), v.Kind)
		return nil

	case KindFloat:
		patchVariant(w, slot, v.Key, math.Float32bits(v.Float), v.Kind)
		return nil
	}

	align := uint32(4)
	if v.Kind == KindVec4 || v.Kind == KindMat4 {
		align = 16
	}
	alignWriter(w, align)

	var offset uint32
	switch v.Kind {
	case KindString:
		if cached, ok := cache[v.Str]; ok {
			offset = cached
		} else {
			offset = uint32(w.Tell())
			w.WriteCString(v.Str)
			cache[v.Str] = offset
		}

	case KindVec2:
		offset = uint32(w.Tell())
		writeFloats(w, v.Vec2[:])

	case KindVec3:
		offset = uint32(w.Tell())
		writeFloats(w, v.Vec3[:])

	case KindVec4:
		offset = uint32(w.Tell())
		writeFloats(w, v.Vec4[:])

	case KindMat4:
		offset = uint32(w.Tell())
		writeFloats(w, v.Mat4[:])

	case KindIntList:
		offset = uint32(w.Tell())
		w.WriteU32(uint32(len(v.IntList)))
		for _, x := range v.IntList {
			w.WriteI32(x)
		}

	case KindFloatList:
		offset = uint32(w.Tell())
		w.WriteU32(uint32(len(v.FloatList)))
		writeFloats(w, v.FloatList)

	case KindByteList:
		offset = uint32(w.Tell())
		w.WriteU32(uint32(len(v.ByteList)))
		w.WriteBytes(v.ByteList)

	case KindObjectID:
		offset = uint32(w.Tell())
		w.WriteU64(v.ObjectID)

	case KindEventList:
		offset = uint32(w.Tell())
		w.WriteU32(uint32(len(v.EventList)))
		for _, id := range v.EventList {
			w.WriteU64(id)
		}

	default:
		return avaerr.New("rtpc.writeVariant", avaerr.InvalidArgument)
	}

	patchVariant(w, slot, v.Key, offset, v.Kind)
	return nil
}

func writeFloats(w *bytestream.Writer, vals []float32) {
	for _, f := range vals {
		w.WriteF32(f)
	}
}

func alignWriter(w *bytestream.Writer, alignment uint32) {
	pad := avahash.AlignDistance(uint32(w.Tell()), alignment)
	w.WriteRepeated(Padding, int(pad))
}

func patchContainer(w *bytestream.Writer, pos int, key, dataOffset uint32, variantCount, childCount int) {
	saved := w.Tell()
	w.SetPos(pos)
	w.WriteU32(key)
	w.WriteU32(dataOffset)
	w.WriteU16(uint16(variantCount))
	w.WriteU16(uint16(childCount))
	w.SetPos(saved)
}

func patchVariant(w *bytestream.Writer, pos int, key, offsetOrInline uint32, tag VariantKind) {
	saved := w.Tell()
	w.SetPos(pos)
	w.WriteU32(key)
	w.WriteU32(offsetOrInline)
	w.WriteU8(uint8(tag))
	w.SetPos(saved)
}
