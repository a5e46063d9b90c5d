package avaerr

import (
	"errors"
	"testing"
)

func TestIsMatchesSentinel(t *testing.T) {
	err := New("tab.Parse", InvalidMagic)
	if !errors.Is(err, ErrInvalidMagic) {
		t.Fatalf("expected errors.Is to match ErrInvalidMagic, got %v", err)
	}
	if errors.Is(err, ErrUnknownEntry) {
		t.Fatalf("did not expect errors.Is to match ErrUnknownEntry")
	}
}

func TestToStringKnownAndUnknown(t *testing.T) {
	if got := ToString(InvalidMagic); got != "E_INVALID_MAGIC" {
		t.Fatalf("ToString(InvalidMagic) = %q", got)
	}
	if got := ToString(Code(9999)); got != "E_UNKNOWN" {
		t.Fatalf("ToString(unknown) = %q", got)
	}
}

func TestErrorStringIncludesOp(t *testing.T) {
	err := New("sarc.Parse", UnknownVersion)
	if err.Error() != "sarc.Parse: E_SARC_UNKNOWN_VERSION" {
		t.Fatalf("unexpected error string: %q", err.Error())
	}
}
