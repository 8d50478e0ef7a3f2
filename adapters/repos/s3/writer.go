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

package s3

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"
	"os"

	"github.com/pkg/errors"
)

// HeaderProp is one ordered header key-value pair. Order matters for
// byte-exact round trips, so the writer takes a slice rather than a
// map.
type HeaderProp struct {
	Name  string
	Value string
}

// Writer emits an s3 binary file in the host's native byte order. It
// mirrors the Reader: header tokens, the byte-order magic, checksummed
// body words and an optional trailing checksum word.
type Writer struct {
	f    *os.File
	w    *bufio.Writer
	path string
	chk  uint32
	buf  [wordLen]byte
}

// Create opens the file for writing and emits the header followed by
// the native-order magic. The running checksum starts at zero.
func Create(path string, props []HeaderProp) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", path)
	}

	wr := &Writer{
		f:    f,
		w:    bufio.NewWriterSize(f, readerBufferLen),
		path: path,
	}

	if _, err := fmt.Fprintf(wr.w, "%s\n", headerMarker); err != nil {
		wr.abort()
		return nil, errors.Wrapf(err, "write header of %s", path)
	}
	for _, prop := range props {
		if _, err := fmt.Fprintf(wr.w, "%s %s\n", prop.Name, prop.Value); err != nil {
			wr.abort()
			return nil, errors.Wrapf(err, "write header of %s", path)
		}
	}
	if _, err := fmt.Fprintf(wr.w, "%s\n", headerEnd); err != nil {
		wr.abort()
		return nil, errors.Wrapf(err, "write header of %s", path)
	}

	if err := wr.writeRawWord(byteOrderMagic); err != nil {
		wr.abort()
		return nil, err
	}

	return wr, nil
}

func (wr *Writer) abort() {
	wr.f.Close()
}

func (wr *Writer) writeRawWord(v uint32) error {
	binary.NativeEndian.PutUint32(wr.buf[:], v)
	if _, err := wr.w.Write(wr.buf[:]); err != nil {
		return errors.Wrapf(err, "write %s", wr.path)
	}
	return nil
}

func (wr *Writer) writeBodyWord(v uint32) error {
	wr.chk = bits.RotateLeft32(wr.chk, 20) + v
	return wr.writeRawWord(v)
}

func (wr *Writer) WriteInt(v int32) error {
	return wr.writeBodyWord(uint32(v))
}

func (wr *Writer) WriteFloat(v float32) error {
	return wr.writeBodyWord(math.Float32bits(v))
}

func (wr *Writer) WriteFloatArray(data []float32) error {
	for _, v := range data {
		if err := wr.WriteFloat(v); err != nil {
			return err
		}
	}
	return nil
}

// WriteChecksum appends the running checksum as the trailing word. The
// trailer itself is not folded into the checksum.
func (wr *Writer) WriteChecksum() error {
	return wr.writeRawWord(wr.chk)
}

func (wr *Writer) Close() error {
	if err := wr.w.Flush(); err != nil {
		wr.f.Close()
		return errors.Wrapf(err, "flush %s", wr.path)
	}
	return wr.f.Close()
}
