package avahash

import "testing"

func TestHashlittleEmptyInput(t *testing.T) {
	// hashlittle's zero-length fast path returns c unmodified, and
	// a==b==c==0xdeadbeef+length+initval, so for the empty string with the
	// default seed the result is exactly 0xdeadbeef.
	if got := Hashlittle(nil); got != 0xdeadbeef {
		t.Errorf("Hashlittle(nil) = %#x, want 0xdeadbeef", got)
	}
	if got := HashlittleSeed(nil, 1); got != 0xdeadbeef+1 {
		t.Errorf("HashlittleSeed(nil, 1) = %#x, want %#x", got, 0xdeadbeef+1)
	}
}

func TestHashlittleDeterministic(t *testing.T) {
	a := Hashlittle([]byte("weapons/sniper_rifle.bin"))
	b := Hashlittle([]byte("weapons/sniper_rifle.bin"))
	if a != b {
		t.Fatalf("hash not deterministic: %#x != %#x", a, b)
	}
	c := Hashlittle([]byte("weapons/sniper_rifle.bi"))
	if a == c {
		t.Fatalf("different inputs hashed identically")
	}
}

func TestAlignUpAndDistance(t *testing.T) {
	cases := []struct {
		value, alignment, wantUp, wantDist uint32
	}{
		{0, 4, 0, 0},
		{1, 4, 4, 3},
		{4, 4, 4, 0},
		{17, 16, 32, 15},
		{5, 1, 5, 0},
	}
	for _, c := range cases {
		if up := AlignUp(c.value, c.alignment); up != c.wantUp {
			t.Errorf("AlignUp(%d,%d) = %d, want %d", c.value, c.alignment, up, c.wantUp)
		}
		if d := AlignDistance(c.value, c.alignment); d != c.wantDist {
			t.Errorf("AlignDistance(%d,%d) = %d, want %d", c.value, c.alignment, d, c.wantDist)
		}
	}
}
