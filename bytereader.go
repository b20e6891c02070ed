// Copyright 2024 The xbf Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package xbf

import (
	"encoding/binary"
	"math"

	"golang.org/x/text/encoding/unicode"
)

// byteReader is a positioned random-access view over the full file image.
// It never copies the underlying bytes; readBytes returns sub-slices of the
// backing array. All multi-byte reads are little-endian, matching XBF's wire
// format.
//
// byteReader is not safe for concurrent use; the interpreter that owns one
// is itself single-threaded (see spec §5).
type byteReader struct {
	data []byte
	pos  uint32
}

func newByteReader(data []byte) *byteReader {
	return &byteReader{data: data}
}

func (r *byteReader) position() uint32 { return r.pos }

func (r *byteReader) size() uint32 { return uint32(len(r.data)) }

func (r *byteReader) seek(abs uint32) error {
	if abs > r.size() {
		return ErrUnexpectedEOF
	}
	r.pos = abs
	return nil
}

func (r *byteReader) require(n uint32) error {
	if uint64(r.pos)+uint64(n) > uint64(r.size()) {
		return ErrUnexpectedEOF
	}
	return nil
}

func (r *byteReader) readBytes(n uint32) ([]byte, error) {
	if err := r.require(n); err != nil {
		return nil, err
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *byteReader) readU8() (uint8, error) {
	if err := r.require(1); err != nil {
		return 0, err
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *byteReader) readU16() (uint16, error) {
	if err := r.require(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *byteReader) readI32() (int32, error) {
	u, err := r.readU32()
	return int32(u), err
}

func (r *byteReader) readU32() (uint32, error) {
	if err := r.require(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *byteReader) readU64() (uint64, error) {
	if err := r.require(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *byteReader) readF32() (float32, error) {
	u, err := r.readU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(u), nil
}

// readChars reads n UTF-16 code units (2*n bytes) and decodes them as a
// UTF-16LE string, the same decoding the teacher applies to embedded PE
// version/unicode strings via golang.org/x/text/encoding/unicode.
func (r *byteReader) readChars(n uint32) (string, error) {
	raw, err := r.readBytes(n * 2)
	if err != nil {
		return "", err
	}
	return decodeUTF16(raw)
}

var utf16Decoder = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()

func decodeUTF16(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	out, err := utf16Decoder.Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// readInlineString reads an i32 character count followed by that many UTF-16
// code units. This is the "inline length-prefixed string" shape used for
// root-namespace prefixes, x:Class, and Duration values.
func (r *byteReader) readInlineString() (string, error) {
	n, err := r.readI32()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", wrapAt(ErrUnexpectedByte, r.pos, 0, "negative string length")
	}
	return r.readChars(uint32(n))
}

// read7BitVarint decodes a little-endian base-128 variable length integer,
// 5 bytes maximum (enough for a full uint32 plus continuation bits).
func (r *byteReader) read7BitVarint() (uint32, error) {
	var result uint32
	var shift uint
	for i := 0; i < 5; i++ {
		b, err := r.readU8()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
	return 0, wrapAt(ErrUnexpectedByte, r.pos, 0, "7-bit varint exceeds 5 bytes")
}
