// Copyright 2024 The xbf Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package xbf

import (
	"bytes"
	"encoding/binary"
)

// nodeBuilder assembles node-stream bytes for tests, one opcode/value at a
// time, the same way the interpreter consumes them one opcode/value at a
// time. Tests build scenarios with this instead of transcribing hex, since
// the only thing that matters is that the bytes mean what this package's own
// opcode and value-tag constants say they mean.
type nodeBuilder struct {
	buf bytes.Buffer
}

func newNodeBuilder() *nodeBuilder { return &nodeBuilder{} }

func (b *nodeBuilder) bytes() []byte { return b.buf.Bytes() }

func (b *nodeBuilder) u8(v byte) *nodeBuilder {
	b.buf.WriteByte(v)
	return b
}

func (b *nodeBuilder) u16(v uint16) *nodeBuilder {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	b.buf.Write(tmp[:])
	return b
}

func (b *nodeBuilder) i32(v int32) *nodeBuilder {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	b.buf.Write(tmp[:])
	return b
}

func (b *nodeBuilder) f32bits(bits uint32) *nodeBuilder {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], bits)
	b.buf.Write(tmp[:])
	return b
}

// varint writes v as the 7-bit base-128 encoding read7BitVarint expects.
func (b *nodeBuilder) varint(v uint32) *nodeBuilder {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b.buf.WriteByte(c | 0x80)
		} else {
			b.buf.WriteByte(c)
			break
		}
	}
	return b
}

// emptyInlineString writes an i32 char count of zero (no payload), the shape
// root-namespace prefixes and x:Class use when absent/empty in tests.
func (b *nodeBuilder) emptyInlineString() *nodeBuilder {
	return b.i32(0)
}

func (b *nodeBuilder) valueInt(v int32) *nodeBuilder {
	return b.u8(valueTagInt).i32(v)
}

func (b *nodeBuilder) valueString(idx uint16) *nodeBuilder {
	return b.u8(valueTagString).u16(idx)
}

func (b *nodeBuilder) valueBool(v bool) *nodeBuilder {
	if v {
		return b.u8(valueTagBoolTrue)
	}
	return b.u8(valueTagBoolFalse)
}

func (b *nodeBuilder) valueEmpty() *nodeBuilder {
	return b.u8(valueTagEmpty)
}

// fileSpec describes the tables a test file should carry; all fields default
// to empty.
type fileSpec struct {
	strings        []string
	assemblies     []Assembly
	typeNamespaces []TypeNamespace
	types          []TypeRecord
	properties     []PropertyRecord
	xmlNamespaces  []XMLNamespace
	sections       [][]byte
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	buf.Write(tmp[:])
}

func writeI32(buf *bytes.Buffer, v int32) { writeU32(buf, uint32(v)) }

func writeTableString(buf *bytes.Buffer, s string) {
	chars := utf16Units(s)
	writeI32(buf, int32(len(chars)))
	for _, u := range chars {
		var tmp [2]byte
		binary.LittleEndian.PutUint16(tmp[:], u)
		buf.Write(tmp[:])
	}
	buf.Write([]byte{0, 0}) // mandatory zero u16 terminator
}

// utf16Units encodes s (ASCII-only in every test fixture) as UTF-16 code
// units; every test string fits in the basic multilingual plane so one rune
// is one unit.
func utf16Units(s string) []uint16 {
	out := make([]uint16, 0, len(s))
	for _, r := range s {
		out = append(out, uint16(r))
	}
	return out
}

// buildXBFFile assembles a complete XBF v2 byte image: header, the six
// metadata tables plus node-section directory, then the concatenated node
// sections, in the exact order readHeader/readTables/dispatchNode expect.
func buildXBFFile(spec fileSpec) []byte {
	var header bytes.Buffer
	header.Write(magic[:])
	writeU32(&header, 0) // metadataSize: unused by readTables (sequential read)
	writeU32(&header, 0) // nodeSize: ditto
	writeU32(&header, 2) // major version
	writeU32(&header, 0) // minor version
	for i := 0; i < 6; i++ {
		writeU64(&header, 0) // table offsets: unused, tables are read sequentially
	}
	header.Write(make([]byte, 32)) // hash

	var tables bytes.Buffer
	writeI32(&tables, int32(len(spec.strings)))
	for _, s := range spec.strings {
		writeTableString(&tables, s)
	}
	writeI32(&tables, int32(len(spec.assemblies)))
	for _, a := range spec.assemblies {
		writeI32(&tables, int32(a.Kind))
		writeI32(&tables, a.NameID)
	}
	writeI32(&tables, int32(len(spec.typeNamespaces)))
	for _, n := range spec.typeNamespaces {
		writeI32(&tables, n.AssemblyID)
		writeI32(&tables, n.NameID)
	}
	writeI32(&tables, int32(len(spec.types)))
	for _, t := range spec.types {
		writeI32(&tables, t.Flags)
		writeI32(&tables, t.NamespaceID)
		writeI32(&tables, t.NameID)
	}
	writeI32(&tables, int32(len(spec.properties)))
	for _, p := range spec.properties {
		writeI32(&tables, p.Flags)
		writeI32(&tables, p.DeclaringTypeID)
		writeI32(&tables, p.NameID)
	}
	writeI32(&tables, int32(len(spec.xmlNamespaces)))
	for _, n := range spec.xmlNamespaces {
		writeI32(&tables, n.NameID)
	}

	writeI32(&tables, int32(len(spec.sections)))
	var nodeOff int32
	for _, s := range spec.sections {
		writeI32(&tables, nodeOff)
		writeI32(&tables, nodeOff+int32(len(s)))
		nodeOff += int32(len(s))
	}

	var nodes bytes.Buffer
	for _, s := range spec.sections {
		nodes.Write(s)
	}

	out := append([]byte{}, header.Bytes()...)
	out = append(out, tables.Bytes()...)
	out = append(out, nodes.Bytes()...)
	return out
}
