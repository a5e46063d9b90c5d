package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeflateRawRoundTrip(t *testing.T) {
	src := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 64)

	packed, err := DeflateRaw(src)
	require.NoError(t, err)
	require.NotEmpty(t, packed)
	require.Less(t, len(packed), len(src))

	unpacked, err := InflateRaw(packed, len(src))
	require.NoError(t, err)
	require.Equal(t, src, unpacked)
}

func TestDeflateRawEmptyInput(t *testing.T) {
	packed, err := DeflateRaw(nil)
	require.NoError(t, err)

	unpacked, err := InflateRaw(packed, 0)
	require.NoError(t, err)
	require.Empty(t, unpacked)
}

func TestAdapterCompressWithoutLoadFails(t *testing.T) {
	a := NewAdapter()
	require.False(t, a.Loaded())

	_, err := a.Compress([]byte("hello"))
	require.Error(t, err)

	_, err = a.Decompress([]byte("hello"), 5)
	require.Error(t, err)
}

func TestAdapterLoadMissingLibraryFails(t *testing.T) {
	a := NewAdapter()
	err := a.Load("/nonexistent/path/to/oodle.so")
	require.Error(t, err)
	require.False(t, a.Loaded())
}

func TestAdapterUnloadWithoutLoadIsNoop(t *testing.T) {
	a := NewAdapter()
	require.NoError(t, a.Unload())
}

func TestDefaultIsSingleton(t *testing.T) {
	require.Same(t, Default(), Default())
}
