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

import "fmt"

// CorruptFileError indicates the container framing is broken: a
// missing s3 marker, an unterminated header or an unrecognizable
// byte-order magic.
type CorruptFileError struct {
	Path string
	Msg  string
}

func NewCorruptFileErrorf(path, msg string, args ...interface{}) error {
	return CorruptFileError{Path: path, Msg: fmt.Sprintf(msg, args...)}
}

func (e CorruptFileError) Error() string {
	return fmt.Sprintf("corrupted s3 file %s: %s", e.Path, e.Msg)
}

// UnsupportedVersionError indicates the header declared a version this
// implementation does not read.
type UnsupportedVersionError struct {
	Path    string
	Version string
	Want    string
}

func (e UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported version %q in %s, want %q",
		e.Version, e.Path, e.Want)
}

// ChecksumMismatchError indicates the declared trailing checksum does
// not equal the running value.
type ChecksumMismatchError struct {
	Path string
	Want uint32
	Got  uint32
}

func (e ChecksumMismatchError) Error() string {
	return fmt.Sprintf("invalid checksum in %s: computed %#x, declared %#x",
		e.Path, e.Got, e.Want)
}
