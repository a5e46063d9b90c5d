package adf

import (
	"math"
	"testing"

	"github.com/go-ava/avaformat/bytestream"
)

// minimalHeader returns a buffer holding just the 48-byte header this
// package actually reads, with every offset/count zero, for testing the
// built-in bootstrap with no file-supplied types.
func minimalHeader() []byte {
	w := bytestream.NewWriter()
	w.WriteU32(Magic)
	for i := 0; i < 11; i++ {
		w.WriteU32(0)
	}
	return w.Bytes()
}

func TestBootstrapContainsBuiltins(t *testing.T) {
	a, err := New(minimalHeader())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(a.types) != 12 {
		t.Fatalf("expected 12 built-in types, got %d", len(a.types))
	}
	if _, ok := a.FindType(DeferredTypeHash); !ok {
		t.Fatal("expected Deferred built-in to be registered under the fixed sentinel hash")
	}
	floatHash := syntheticTypeHash("float", KindScalar, 4)
	ft, ok := a.FindType(floatHash)
	if !ok || ft.ScalarSubtype != SubtypeFloat || ft.Size != 4 {
		t.Fatalf("expected float built-in, got %+v ok=%v", ft, ok)
	}
}

func TestNewRejectsBadMagic(t *testing.T) {
	buf := make([]byte, 24)
	if _, err := New(buf); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestNewRejectsTooSmallBuffer(t *testing.T) {
	if _, err := New(make([]byte, 4)); err == nil {
		t.Fatal("expected error for too-small buffer")
	}
}

// writeStringPoolSection writes the length-prefixed string pool (spec
// §3's string pool, table b) at the writer's current position and
// returns its starting offset.
func writeStringPoolSection(w *bytestream.Writer, strs []string) uint32 {
	start := uint32(w.Tell())
	for _, s := range strs {
		w.WriteU8(uint8(len(s)))
	}
	for _, s := range strs {
		w.WriteCString(s)
	}
	return start
}

func TestReadInstanceRecursiveWalkField(t *testing.T) {
	floatHash := syntheticTypeHash("float", KindScalar, 4)
	const weaponTypeHash = 0x8DFB5000
	sniperTypeHash := syntheticTypeHash("Sniper", KindStruct, 4)
	const instanceNameHash = 0xD9066DF1

	w := bytestream.NewWriter()
	// Reserve the 48-byte header; patched once every offset is known.
	headerPos := w.Tell()
	for i := 0; i < 12; i++ {
		w.WriteU32(0)
	}

	poolOffset := writeStringPoolSection(w, []string{"", "Weapon", "Sniper", "InitialRandomAimDistance"})

	typeOffset := uint32(w.Tell())
	// Type 0: "Weapon" struct with one member "Sniper" : SniperType at offset 0.
	w.WriteU32(uint32(KindStruct))
	w.WriteU32(4)
	w.WriteU32(4)
	w.WriteU32(weaponTypeHash)
	w.WriteU32(1) // nameIdx -> "Weapon"
	w.WriteU32(0) // flags
	w.WriteU32(uint32(SubtypeSigned))
	w.WriteU32(0) // subtypeHash
	w.WriteU32(0) // arraySizeOrBitCount
	w.WriteU32(1) // memberCount
	// member: Sniper
	w.WriteU32(2) // nameIdx -> "Sniper"
	w.WriteU32(sniperTypeHash)
	w.WriteU32(4)
	w.WriteU32(0) // offset 0, bitoffset 0
	w.WriteU32(0)
	w.WriteU64(0)
	w.WriteU32(0) // reserved pad to memberSize

	// Type 1: "Sniper" struct with one member "InitialRandomAimDistance" : float at offset 0.
	w.WriteU32(uint32(KindStruct))
	w.WriteU32(4)
	w.WriteU32(4)
	w.WriteU32(sniperTypeHash)
	w.WriteU32(2) // nameIdx -> "Sniper"
	w.WriteU32(0)
	w.WriteU32(uint32(SubtypeSigned))
	w.WriteU32(0)
	w.WriteU32(0)
	w.WriteU32(1)
	// member: InitialRandomAimDistance
	w.WriteU32(3) // nameIdx
	w.WriteU32(floatHash)
	w.WriteU32(4)
	w.WriteU32(0)
	w.WriteU32(0)
	w.WriteU64(0)
	w.WriteU32(0)

	instanceOffset := uint32(w.Tell())
	payloadOffset := instanceOffset + instanceSize
	w.WriteU32(instanceNameHash)
	w.WriteU32(weaponTypeHash)
	w.WriteU32(payloadOffset)
	w.WriteU32(4)
	w.WriteU32(0) // nameIdx -> ""
	w.WriteU32(0) // reserved

	w.WriteF32(1.5)

	patch := func(pos int, v uint32) {
		saved := w.Tell()
		w.SetPos(pos)
		w.WriteU32(v)
		w.SetPos(saved)
	}
	patch(headerPos, Magic)
	patch(headerPos+4, 1)    // version
	patch(headerPos+8, 1)    // instanceCount
	patch(headerPos+12, instanceOffset)
	patch(headerPos+16, 2) // typeCount
	patch(headerPos+20, typeOffset)
	patch(headerPos+24, 0) // stringHashCount
	patch(headerPos+28, 0) // firstStringHashOffset
	patch(headerPos+32, 4) // stringCount
	patch(headerPos+36, poolOffset)
	patch(headerPos+40, uint32(w.Len())) // fileSize
	patch(headerPos+44, 0)               // flags: recursive-walk mode

	a, err := New(w.Bytes())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	info, err := a.GetInstance(0)
	if err != nil {
		t.Fatalf("GetInstance: %v", err)
	}
	if info.NameHash != instanceNameHash {
		t.Fatalf("NameHash = %#x, want %#x", info.NameHash, instanceNameHash)
	}

	inst, err := a.ReadInstance(instanceNameHash, weaponTypeHash)
	if err != nil {
		t.Fatalf("ReadInstance: %v", err)
	}

	got, err := inst.Field("Sniper.InitialRandomAimDistance")
	if err != nil {
		t.Fatalf("Field: %v", err)
	}
	f, ok := got.(float32)
	if !ok || f != 1.5 {
		t.Fatalf("Field(Sniper.InitialRandomAimDistance) = %#v, want float32(1.5)", got)
	}
}

func TestTailChainPatches(t *testing.T) {
	// chain: two steps. current=0 -> size=8 -> current=8, v@4=20 (prev becomes 20, patch at 4: target=0)
	// -> next iter reads size at offset 8: 0 -> stop.
	buf := make([]byte, 16)
	// size field at offset 0
	buf[0], buf[1], buf[2], buf[3] = 8, 0, 0, 0
	// field value at offset 4 (current-4 after advancing to 8)
	buf[4], buf[5], buf[6], buf[7] = 20, 0, 0, 0
	// size field at offset 8 == 0 terminates the chain
	patches := tailChainPatches(buf, 0)
	if len(patches) != 1 {
		t.Fatalf("expected 1 patch, got %d: %+v", len(patches), patches)
	}
	if patches[0].FieldOffset != 4 || patches[0].TargetOffset != 0 {
		t.Fatalf("unexpected patch: %+v", patches[0])
	}
}

func TestFieldUnknownPathFails(t *testing.T) {
	a, err := New(minimalHeader())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	inst := &Instance{TypeHash: DeferredTypeHash, Payload: []byte{0, 0, 0, 0}, adf: a}
	if _, err := inst.Field("NotAField"); err == nil {
		t.Fatal("expected error for unknown field path")
	}
}

func TestDecodeScalarRoundTrip(t *testing.T) {
	a, _ := New(minimalHeader())
	floatHash := syntheticTypeHash("float", KindScalar, 4)
	ft, _ := a.FindType(floatHash)

	payload := make([]byte, 4)
	bits := math.Float32bits(3.25)
	payload[0] = byte(bits)
	payload[1] = byte(bits >> 8)
	payload[2] = byte(bits >> 16)
	payload[3] = byte(bits >> 24)

	inst := &Instance{Payload: payload, adf: a}
	got, err := inst.decodeAt(ft, 0)
	if err != nil {
		t.Fatalf("decodeAt: %v", err)
	}
	if got.(float32) != 3.25 {
		t.Fatalf("decodeAt = %v, want 3.25", got)
	}
}
