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

// Package s3 reads and writes the SphinxTrain "s3 binary" container:
// an ASCII key-value header terminated by "endhdr", a four-byte
// byte-order magic, a body of 32-bit words and an optional trailing
// checksum. All reads are sequential; there is no seeking.
package s3

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"math/bits"
	"os"

	"github.com/pkg/errors"
)

const (
	// byteOrderMagic decides whether the body needs byte swapping.
	byteOrderMagic uint32 = 0x11223344

	headerMarker    = "s3"
	headerEnd       = "endhdr"
	wordLen         = 4
	readerBufferLen = 64 * 1024
)

// PropVersion and PropChecksum are the header properties the loader
// acts on.
const (
	PropVersion  = "version"
	PropChecksum = "chksum0"
)

// Reader is a stateful sequential reader over the body of an s3 file.
// It carries the endianness decision made from the magic word and a
// running checksum over every word read since the last reset.
type Reader struct {
	f    *os.File
	r    *bufio.Reader
	path string
	swap bool
	chk  uint32
	buf  [wordLen]byte
}

// Open opens the file, parses the ASCII header into a property map,
// consumes the byte-order magic and returns a reader positioned at the
// first body word. The magic word is not part of the checksum. The
// caller owns the reader and must Close it on every path.
func Open(path string) (map[string]string, *Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open %s", path)
	}

	rd := &Reader{
		f:    f,
		r:    bufio.NewReaderSize(f, readerBufferLen),
		path: path,
	}

	props, err := rd.readHeader()
	if err != nil {
		rd.Close()
		return nil, nil, err
	}

	return props, rd, nil
}

func (rd *Reader) readHeader() (map[string]string, error) {
	marker, err := rd.readWord()
	if err != nil {
		return nil, err
	}
	if marker != headerMarker {
		return nil, NewCorruptFileErrorf(rd.path,
			"not an s3 binary file, leading token %q", marker)
	}

	props := map[string]string{}
	for {
		name, err := rd.readWord()
		if err != nil {
			return nil, err
		}
		if name == headerEnd {
			break
		}
		value, err := rd.readWord()
		if err != nil {
			return nil, err
		}
		props[name] = value
	}

	magic, err := rd.readRawWord()
	if err != nil {
		return nil, err
	}
	switch {
	case magic == byteOrderMagic:
		rd.swap = false
	case bits.ReverseBytes32(magic) == byteOrderMagic:
		rd.swap = true
	default:
		return nil, NewCorruptFileErrorf(rd.path,
			"unrecognized byte order magic %#x", magic)
	}

	return props, nil
}

// readWord returns the next whitespace-delimited ASCII token. The
// single whitespace byte terminating the token is consumed.
func (rd *Reader) readWord() (string, error) {
	var word []byte
	var c byte
	var err error
	for {
		c, err = rd.r.ReadByte()
		if err != nil {
			return "", rd.wrapHeaderErr(err)
		}
		if !isWhitespace(c) {
			break
		}
	}
	for {
		word = append(word, c)
		c, err = rd.r.ReadByte()
		if err != nil {
			return "", rd.wrapHeaderErr(err)
		}
		if isWhitespace(c) {
			return string(word), nil
		}
	}
}

func (rd *Reader) wrapHeaderErr(err error) error {
	if err == io.EOF {
		return NewCorruptFileErrorf(rd.path, "unterminated header")
	}
	return errors.Wrapf(err, "read header of %s", rd.path)
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// readRawWord reads one 32-bit word in file order without byte
// swapping or checksum accounting.
func (rd *Reader) readRawWord() (uint32, error) {
	if _, err := io.ReadFull(rd.r, rd.buf[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return 0, NewCorruptFileErrorf(rd.path, "truncated file")
		}
		return 0, errors.Wrapf(err, "read %s", rd.path)
	}
	return binary.NativeEndian.Uint32(rd.buf[:]), nil
}

// readBodyWord reads one word, swaps it to native order if the magic
// demanded it and folds it into the running checksum.
func (rd *Reader) readBodyWord() (uint32, error) {
	v, err := rd.readRawWord()
	if err != nil {
		return 0, err
	}
	if rd.swap {
		v = bits.ReverseBytes32(v)
	}
	rd.chk = bits.RotateLeft32(rd.chk, 20) + v
	return v, nil
}

func (rd *Reader) ReadInt() (int32, error) {
	v, err := rd.readBodyWord()
	return int32(v), err
}

func (rd *Reader) ReadFloat() (float32, error) {
	v, err := rd.readBodyWord()
	return math.Float32frombits(v), err
}

func (rd *Reader) ReadFloatArray(n int) ([]float32, error) {
	data := make([]float32, n)
	for i := range data {
		v, err := rd.ReadFloat()
		if err != nil {
			return nil, err
		}
		data[i] = v
	}
	return data, nil
}

// ResetChecksum zeroes the running checksum. The loader calls this
// once per file section, after the header.
func (rd *Reader) ResetChecksum() {
	rd.chk = 0
}

// ValidateChecksum reads the declared trailing checksum and compares
// it to the running value. A file whose header did not opt into
// checksums (declared == false) carries no trailer and validates
// trivially.
func (rd *Reader) ValidateChecksum(declared bool) error {
	if !declared {
		return nil
	}
	computed := rd.chk
	trailer, err := rd.readRawWord()
	if err != nil {
		return err
	}
	if rd.swap {
		trailer = bits.ReverseBytes32(trailer)
	}
	if trailer != computed {
		return ChecksumMismatchError{Path: rd.path, Want: trailer, Got: computed}
	}
	return nil
}

func (rd *Reader) Close() error {
	return rd.f.Close()
}
