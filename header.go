// Copyright 2024 The xbf Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package xbf

// magic is the 4-byte file signature "XBF\0".
var magic = [4]byte{'X', 'B', 'F', 0}

// Header is the fixed-layout record at the start of every XBF file.
type Header struct {
	MetadataSize uint32
	NodeSize     uint32
	MajorVersion uint32
	MinorVersion uint32

	// The six table offsets, in table order: strings, assemblies, type
	// namespaces, types, properties, xml namespaces. The header carries no
	// offset for the v2 node-section directory.
	StringsOffset       uint64
	AssembliesOffset    uint64
	TypeNamespacesOffset uint64
	TypesOffset         uint64
	PropertiesOffset    uint64
	XmlNamespacesOffset uint64

	Hash [32]byte
}

// AssemblyKind enumerates the `kind` field of an Assembly table record.
// XBF v1 documentation is the only source for these values; v2 has not been
// re-verified to still use them the same way (spec.md §9), so the integer
// value is preserved as-is rather than collapsed to an "unknown" sentinel.
type AssemblyKind int32

const (
	AssemblyKindUnknown AssemblyKind = iota
	AssemblyKindNative
	AssemblyKindManaged
	AssemblyKindSystem
	AssemblyKindParser
	AssemblyKindAlternate
)

// Assembly is one record of the assembly table.
type Assembly struct {
	Kind   AssemblyKind
	NameID int32
}

// TypeNamespace is one record of the type-namespace table.
type TypeNamespace struct {
	AssemblyID int32
	NameID     int32
}

// TypeRecord is one record of the type table.
type TypeRecord struct {
	Flags       int32
	NamespaceID int32
	NameID      int32
}

// PropertyRecord is one record of the property table. The declaring type id
// occupies the same wire slot as TypeRecord.NamespaceID; it is exposed here
// under its own name since for a property that slot means "declaring type",
// not "namespace".
type PropertyRecord struct {
	Flags           int32
	DeclaringTypeID int32
	NameID          int32
}

// XMLNamespace is one record of the XML-namespace table.
type XMLNamespace struct {
	NameID int32
}

// NodeSection describes one entry of the v2 node-section directory. Offsets
// are relative to the first-node-section base recorded once at load time;
// see Tables.sectionBase.
type NodeSection struct {
	// NodeOffset locates the section's node bytes relative to the first
	// node-section base.
	NodeOffset int32
	// PositionalOffset marks the end of nodes / start of positional
	// metadata; used as the section's end boundary.
	PositionalOffset int32
}

// Tables holds every table loaded from the header plus the node-section
// directory (v2 only), and the absolute file position the directory's
// offsets are relative to. Tables remain available for the entire lifetime
// of the Reader that loaded them, the same way pe.File keeps its parsed
// tables around after Parse returns.
type Tables struct {
	Strings        []string
	Assemblies     []Assembly
	TypeNamespaces []TypeNamespace
	Types          []TypeRecord
	Properties     []PropertyRecord
	XmlNamespaces  []XMLNamespace
	NodeSections   []NodeSection

	// sectionBase is the absolute file position immediately following the
	// node-section directory; every NodeSection offset is relative to it.
	sectionBase uint32
}

func readHeader(r *byteReader) (Header, error) {
	if err := r.seek(0); err != nil {
		return Header{}, err
	}
	sig, err := r.readBytes(4)
	if err != nil {
		return Header{}, ErrUnexpectedEOF
	}
	if sig[0] != magic[0] || sig[1] != magic[1] || sig[2] != magic[2] || sig[3] != magic[3] {
		return Header{}, ErrInvalidMagic
	}

	var h Header
	if h.MetadataSize, err = r.readU32(); err != nil {
		return Header{}, ErrUnexpectedEOF
	}
	if h.NodeSize, err = r.readU32(); err != nil {
		return Header{}, ErrUnexpectedEOF
	}
	if h.MajorVersion, err = r.readU32(); err != nil {
		return Header{}, ErrUnexpectedEOF
	}
	if h.MinorVersion, err = r.readU32(); err != nil {
		return Header{}, ErrUnexpectedEOF
	}
	if h.MajorVersion != 2 {
		return Header{}, ErrUnsupportedVersion
	}

	offsets := []*uint64{
		&h.StringsOffset, &h.AssembliesOffset, &h.TypeNamespacesOffset,
		&h.TypesOffset, &h.PropertiesOffset, &h.XmlNamespacesOffset,
	}
	for _, o := range offsets {
		v, err := r.readU64()
		if err != nil {
			return Header{}, ErrUnexpectedEOF
		}
		*o = v
	}

	hash, err := r.readBytes(32)
	if err != nil {
		return Header{}, ErrUnexpectedEOF
	}
	copy(h.Hash[:], hash)

	return h, nil
}

// readTables reads every table in header order, records the node-section
// base, and returns the fully populated Tables. r's position must already be
// at Header.StringsOffset-adjacent layout; each table is read from the
// reader's current cursor in sequence, per spec §4.2 ("reads the tables in
// the order above").
func readTables(r *byteReader, h Header) (Tables, error) {
	var t Tables
	var err error

	if t.Strings, err = readStringTable(r); err != nil {
		return Tables{}, err
	}
	if t.Assemblies, err = readAssemblyTable(r); err != nil {
		return Tables{}, err
	}
	if t.TypeNamespaces, err = readTypeNamespaceTable(r); err != nil {
		return Tables{}, err
	}
	if t.Types, err = readTypeTable(r); err != nil {
		return Tables{}, err
	}
	if t.Properties, err = readPropertyTable(r); err != nil {
		return Tables{}, err
	}
	if t.XmlNamespaces, err = readXMLNamespaceTable(r); err != nil {
		return Tables{}, err
	}
	if t.NodeSections, err = readNodeSectionDirectory(r); err != nil {
		return Tables{}, err
	}
	t.sectionBase = r.position()

	return t, nil
}

func readStringTable(r *byteReader) ([]string, error) {
	count, err := r.readI32()
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, wrapAt(ErrUnexpectedByte, r.position(), 0, "negative string table count")
	}
	out := make([]string, count)
	for i := int32(0); i < count; i++ {
		n, err := r.readI32()
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, wrapAt(ErrUnexpectedByte, r.position(), 0, "negative string length")
		}
		s, err := r.readChars(uint32(n))
		if err != nil {
			return nil, err
		}
		// v2 terminates every table string with a mandatory zero u16.
		term, err := r.readU16()
		if err != nil {
			return nil, err
		}
		if term != 0 {
			return nil, wrapAt(ErrUnexpectedByte, r.position(), 0, "non-zero string table terminator")
		}
		out[i] = s
	}
	return out, nil
}

func readAssemblyTable(r *byteReader) ([]Assembly, error) {
	count, err := r.readI32()
	if err != nil {
		return nil, err
	}
	out := make([]Assembly, count)
	for i := range out {
		kind, err := r.readI32()
		if err != nil {
			return nil, err
		}
		name, err := r.readI32()
		if err != nil {
			return nil, err
		}
		out[i] = Assembly{Kind: AssemblyKind(kind), NameID: name}
	}
	return out, nil
}

func readTypeNamespaceTable(r *byteReader) ([]TypeNamespace, error) {
	count, err := r.readI32()
	if err != nil {
		return nil, err
	}
	out := make([]TypeNamespace, count)
	for i := range out {
		asm, err := r.readI32()
		if err != nil {
			return nil, err
		}
		name, err := r.readI32()
		if err != nil {
			return nil, err
		}
		out[i] = TypeNamespace{AssemblyID: asm, NameID: name}
	}
	return out, nil
}

func readTypeTable(r *byteReader) ([]TypeRecord, error) {
	count, err := r.readI32()
	if err != nil {
		return nil, err
	}
	out := make([]TypeRecord, count)
	for i := range out {
		flags, err := r.readI32()
		if err != nil {
			return nil, err
		}
		ns, err := r.readI32()
		if err != nil {
			return nil, err
		}
		name, err := r.readI32()
		if err != nil {
			return nil, err
		}
		out[i] = TypeRecord{Flags: flags, NamespaceID: ns, NameID: name}
	}
	return out, nil
}

func readPropertyTable(r *byteReader) ([]PropertyRecord, error) {
	count, err := r.readI32()
	if err != nil {
		return nil, err
	}
	out := make([]PropertyRecord, count)
	for i := range out {
		flags, err := r.readI32()
		if err != nil {
			return nil, err
		}
		typ, err := r.readI32()
		if err != nil {
			return nil, err
		}
		name, err := r.readI32()
		if err != nil {
			return nil, err
		}
		out[i] = PropertyRecord{Flags: flags, DeclaringTypeID: typ, NameID: name}
	}
	return out, nil
}

func readXMLNamespaceTable(r *byteReader) ([]XMLNamespace, error) {
	count, err := r.readI32()
	if err != nil {
		return nil, err
	}
	out := make([]XMLNamespace, count)
	for i := range out {
		name, err := r.readI32()
		if err != nil {
			return nil, err
		}
		out[i] = XMLNamespace{NameID: name}
	}
	return out, nil
}

func readNodeSectionDirectory(r *byteReader) ([]NodeSection, error) {
	count, err := r.readI32()
	if err != nil {
		return nil, err
	}
	out := make([]NodeSection, count)
	for i := range out {
		nodeOff, err := r.readI32()
		if err != nil {
			return nil, err
		}
		posOff, err := r.readI32()
		if err != nil {
			return nil, err
		}
		out[i] = NodeSection{NodeOffset: nodeOff, PositionalOffset: posOff}
	}
	return out, nil
}

// string returns the string table entry at id, or "" if id is out of range
// (callers that need a hard failure check bounds themselves; the table
// accessors used by the name resolver are tolerant the same way
// pe.File.GetStringFromData tolerates an empty slice).
func (t *Tables) string(id int32) string {
	if id < 0 || int(id) >= len(t.Strings) {
		return ""
	}
	return t.Strings[id]
}

func (t *Tables) typeNamespaceURI(nsID int32) (string, bool) {
	if nsID < 0 || int(nsID) >= len(t.TypeNamespaces) {
		return "", false
	}
	return "using:" + t.string(t.TypeNamespaces[nsID].NameID), true
}

// sectionBounds returns the absolute [start, end) byte range of a node
// section: nodes run from NodeOffset to PositionalOffset, both relative to
// the recorded first-node-section base.
func (t *Tables) sectionBounds(s NodeSection) (start, end uint32) {
	start = t.sectionBase + uint32(s.NodeOffset)
	end = t.sectionBase + uint32(s.PositionalOffset)
	return
}
