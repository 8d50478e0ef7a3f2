//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2024 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package s3_test

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaviate/tiedstate/adapters/repos/s3"
)

func writeSample(t *testing.T, path string, checksum bool) {
	t.Helper()

	chk := "no"
	if checksum {
		chk = "yes"
	}
	wr, err := s3.Create(path, []s3.HeaderProp{
		{Name: s3.PropVersion, Value: "1.0"},
		{Name: s3.PropChecksum, Value: chk},
	})
	require.Nil(t, err)

	require.Nil(t, wr.WriteInt(3))
	require.Nil(t, wr.WriteFloatArray([]float32{1.5, -2.25, 1e-7}))
	if checksum {
		require.Nil(t, wr.WriteChecksum())
	}
	require.Nil(t, wr.Close())
}

func TestReadWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample")
	writeSample(t, path, true)

	props, rd, err := s3.Open(path)
	require.Nil(t, err)
	defer rd.Close()

	assert.Equal(t, "1.0", props[s3.PropVersion])
	assert.Equal(t, "yes", props[s3.PropChecksum])
	rd.ResetChecksum()

	n, err := rd.ReadInt()
	require.Nil(t, err)
	assert.Equal(t, int32(3), n)

	values, err := rd.ReadFloatArray(3)
	require.Nil(t, err)
	assert.Equal(t, []float32{1.5, -2.25, 1e-7}, values)

	assert.Nil(t, rd.ValidateChecksum(true))
}

func TestChecksumMismatchOnMutatedBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample")
	writeSample(t, path, true)

	raw, err := os.ReadFile(path)
	require.Nil(t, err)
	// flip one bit in the first body word, right behind the magic
	raw[len(raw)-4*4-1] ^= 0x01
	require.Nil(t, os.WriteFile(path, raw, 0o644))

	_, rd, err := s3.Open(path)
	require.Nil(t, err)
	defer rd.Close()
	rd.ResetChecksum()

	if _, err := rd.ReadInt(); err != nil {
		t.Fatal(err)
	}
	if _, err := rd.ReadFloatArray(3); err != nil {
		t.Fatal(err)
	}

	err = rd.ValidateChecksum(true)
	require.NotNil(t, err)
	assert.IsType(t, s3.ChecksumMismatchError{}, err)
}

func TestNoChecksumDeclared(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample")
	writeSample(t, path, false)

	props, rd, err := s3.Open(path)
	require.Nil(t, err)
	defer rd.Close()

	assert.Equal(t, "no", props[s3.PropChecksum])
	rd.ResetChecksum()

	if _, err := rd.ReadInt(); err != nil {
		t.Fatal(err)
	}
	if _, err := rd.ReadFloatArray(3); err != nil {
		t.Fatal(err)
	}
	assert.Nil(t, rd.ValidateChecksum(false))
}

// writeSwapped emits the same logical content as writeSample (without
// checksum) with every 32-bit word byte reversed, as if the file were
// produced on a machine of the opposite endianness.
func writeSwapped(t *testing.T, path string) {
	t.Helper()

	var out []byte
	out = append(out, []byte("s3\nversion 1.0\nchksum0 no\nendhdr\n")...)

	word := make([]byte, 4)
	appendSwapped := func(v uint32) {
		binary.NativeEndian.PutUint32(word, v)
		out = append(out, word[3], word[2], word[1], word[0])
	}

	appendSwapped(0x11223344)
	appendSwapped(uint32(3))
	for _, f := range []float32{1.5, -2.25, 1e-7} {
		appendSwapped(math.Float32bits(f))
	}

	require.Nil(t, os.WriteFile(path, out, 0o644))
}

func TestByteSwappedFileParsesIdentically(t *testing.T) {
	dir := t.TempDir()
	nativePath := filepath.Join(dir, "native")
	swappedPath := filepath.Join(dir, "swapped")
	writeSample(t, nativePath, false)
	writeSwapped(t, swappedPath)

	read := func(path string) (int32, []float32) {
		_, rd, err := s3.Open(path)
		require.Nil(t, err)
		defer rd.Close()
		rd.ResetChecksum()

		n, err := rd.ReadInt()
		require.Nil(t, err)
		values, err := rd.ReadFloatArray(3)
		require.Nil(t, err)
		return n, values
	}

	nativeN, nativeValues := read(nativePath)
	swappedN, swappedValues := read(swappedPath)
	assert.Equal(t, nativeN, swappedN)
	assert.Equal(t, nativeValues, swappedValues)
}

func TestOpenRejectsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foreign")
	require.Nil(t, os.WriteFile(path, []byte("mdef 0.3\n"), 0o644))

	_, _, err := s3.Open(path)
	require.NotNil(t, err)
	assert.IsType(t, s3.CorruptFileError{}, err)
}

func TestOpenRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "badmagic")
	content := append([]byte("s3\nendhdr\n"), 0xde, 0xad, 0xbe, 0xef)
	require.Nil(t, os.WriteFile(path, content, 0o644))

	_, _, err := s3.Open(path)
	require.NotNil(t, err)
	assert.IsType(t, s3.CorruptFileError{}, err)
}

func TestTruncatedBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short")
	writeSample(t, path, false)

	raw, err := os.ReadFile(path)
	require.Nil(t, err)
	require.Nil(t, os.WriteFile(path, raw[:len(raw)-2], 0o644))

	_, rd, err := s3.Open(path)
	require.Nil(t, err)
	defer rd.Close()

	if _, err := rd.ReadInt(); err != nil {
		t.Fatal(err)
	}
	_, err = rd.ReadFloatArray(3)
	require.NotNil(t, err)
	assert.IsType(t, s3.CorruptFileError{}, err)
}

func TestMissingFileWrapsNotExist(t *testing.T) {
	_, _, err := s3.Open(filepath.Join(t.TempDir(), "absent"))
	require.NotNil(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
