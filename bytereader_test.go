// Copyright 2024 The xbf Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package xbf

import (
	"encoding/binary"
	"testing"
)

func TestByteReaderPrimitives(t *testing.T) {
	data := make([]byte, 0)
	data = append(data, 0xAB)                                   // u8
	var u16buf [2]byte
	binary.LittleEndian.PutUint16(u16buf[:], 0x1234)
	data = append(data, u16buf[:]...)
	var u32buf [4]byte
	binary.LittleEndian.PutUint32(u32buf[:], 0xDEADBEEF)
	data = append(data, u32buf[:]...)

	r := newByteReader(data)

	u8, err := r.readU8()
	if err != nil || u8 != 0xAB {
		t.Fatalf("readU8 = %v, %v", u8, err)
	}
	u16, err := r.readU16()
	if err != nil || u16 != 0x1234 {
		t.Fatalf("readU16 = %v, %v", u16, err)
	}
	u32, err := r.readU32()
	if err != nil || u32 != 0xDEADBEEF {
		t.Fatalf("readU32 = %v, %v", u32, err)
	}
	if r.position() != uint32(len(data)) {
		t.Fatalf("position = %d, want %d", r.position(), len(data))
	}
}

func TestByteReaderEOF(t *testing.T) {
	r := newByteReader([]byte{0x01})
	if _, err := r.readU32(); err != ErrUnexpectedEOF {
		t.Fatalf("readU32 past end = %v, want ErrUnexpectedEOF", err)
	}
}

func TestByteReaderSeek(t *testing.T) {
	r := newByteReader([]byte{1, 2, 3, 4})
	if err := r.seek(2); err != nil {
		t.Fatal(err)
	}
	b, err := r.readU8()
	if err != nil || b != 3 {
		t.Fatalf("after seek(2), readU8 = %v, %v", b, err)
	}
	if err := r.seek(100); err != ErrUnexpectedEOF {
		t.Fatalf("seek past end = %v, want ErrUnexpectedEOF", err)
	}
}

func TestByteReaderVarint(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want uint32
	}{
		{"single byte", []byte{0x00}, 0},
		{"single byte max", []byte{0x7F}, 0x7F},
		{"two bytes", []byte{0x80, 0x01}, 0x80},
		{"three bytes", []byte{0xFF, 0xFF, 0x03}, 0xFFFF},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := newByteReader(tc.raw)
			got, err := r.read7BitVarint()
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Fatalf("read7BitVarint = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestByteReaderVarintTooLong(t *testing.T) {
	r := newByteReader([]byte{0x80, 0x80, 0x80, 0x80, 0x80})
	if _, err := r.read7BitVarint(); err == nil {
		t.Fatal("expected error for a 5-byte all-continuation varint")
	}
}

func TestByteReaderUTF16String(t *testing.T) {
	nb := newNodeBuilder()
	for _, u := range utf16Units("Grid") {
		nb.u16(u)
	}
	r := newByteReader(nb.bytes())
	s, err := r.readChars(4)
	if err != nil {
		t.Fatal(err)
	}
	if s != "Grid" {
		t.Fatalf("readChars = %q, want %q", s, "Grid")
	}
}

func TestByteReaderInlineString(t *testing.T) {
	var raw []byte
	raw = append(raw, 3, 0, 0, 0) // i32 length = 3
	for _, u := range utf16Units("Foo") {
		var tmp [2]byte
		binary.LittleEndian.PutUint16(tmp[:], u)
		raw = append(raw, tmp[:]...)
	}
	r := newByteReader(raw)
	s, err := r.readInlineString()
	if err != nil {
		t.Fatal(err)
	}
	if s != "Foo" {
		t.Fatalf("readInlineString = %q, want %q", s, "Foo")
	}
}
