package tiffengine

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ifdEntry is one little-endian IFD entry with an inline value.
type ifdEntry struct {
	Tag   uint16
	Type  uint16
	Count uint32
	Value uint32
}

// bilevelFixture writes an uncompressed 8x1 1-bit TIFF whose single row is
// the bits of row, most significant first, and returns its path.
func bilevelFixture(t *testing.T, dir string, photometric uint16, row byte) string {
	t.Helper()
	entries := []ifdEntry{
		{Tag: 256, Type: dtShort, Count: 1, Value: 8},
		{Tag: 257, Type: dtShort, Count: 1, Value: 1},
		{Tag: tagBitsPerSample, Type: dtShort, Count: 1, Value: 1},
		{Tag: 259, Type: dtShort, Count: 1, Value: 1},
		{Tag: tagPhotometric, Type: dtShort, Count: 1, Value: uint32(photometric)},
		{Tag: 273, Type: dtLong, Count: 1, Value: 0},
		{Tag: 278, Type: dtShort, Count: 1, Value: 1},
		{Tag: 279, Type: dtLong, Count: 1, Value: 1},
	}
	entries[5].Value = uint32(8 + 2 + len(entries)*ifdEntryLen + 4)

	var buf bytes.Buffer
	buf.WriteString("II*\x00")
	le := binary.LittleEndian
	require.NoError(t, binary.Write(&buf, le, uint32(8)))
	require.NoError(t, binary.Write(&buf, le, uint16(len(entries))))
	require.NoError(t, binary.Write(&buf, le, entries))
	require.NoError(t, binary.Write(&buf, le, uint32(0)))
	buf.WriteByte(row)

	path := filepath.Join(dir, "mask.tif")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

// TestReadLayout verifies the tags read from files of each kind.
func TestReadLayout(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
		want layout
	}{
		{
			name: "bilevel white is zero",
			path: bilevelFixture(t, dir, photometricWhiteIsZero, 0),
			want: layout{bits: 1, samples: 1, photometric: photometricWhiteIsZero},
		},
		{
			name: "8-bit gray",
			path: grayFixture(t, dir, "gray.tif", 1, 1, []uint8{0}),
			want: layout{bits: 8, samples: 1, photometric: 1},
		},
		{
			name: "rgba",
			path: rgbFixture(t, dir),
			want: layout{bits: 8, samples: 4, photometric: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := os.Open(tt.path)
			require.NoError(t, err)
			defer f.Close()

			got, err := readLayout(f)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestReadLayout_Malformed verifies files that are not TIFF are rejected.
func TestReadLayout_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "short", data: []byte("II")},
		{name: "bad magic", data: []byte("PK\x03\x04\x00\x00\x00\x00")},
		{name: "directory past end", data: []byte("II*\x00\xff\x00\x00\x00")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readLayout(bytes.NewReader(tt.data))
			assert.Error(t, err)
		})
	}
}
