// Copyright 2024 The xbf Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package xbf

import "testing"

func TestReadHeaderInvalidMagic(t *testing.T) {
	data := make([]byte, 64)
	copy(data, []byte("NOPE"))
	r := newByteReader(data)
	if _, err := readHeader(r); err != ErrInvalidMagic {
		t.Fatalf("readHeader = %v, want ErrInvalidMagic", err)
	}
}

func TestReadHeaderUnsupportedVersion(t *testing.T) {
	data := buildXBFFile(fileSpec{})
	// Major version sits right after magic(4) + metadataSize(4) + nodeSize(4).
	data[12] = 1
	r := newByteReader(data)
	if _, err := readHeader(r); err != ErrUnsupportedVersion {
		t.Fatalf("readHeader = %v, want ErrUnsupportedVersion", err)
	}
}

func TestReadHeaderAndTables(t *testing.T) {
	spec := fileSpec{
		strings: []string{"Grid", "Width"},
		types:   []TypeRecord{{Flags: 0, NamespaceID: -1, NameID: 0}},
		properties: []PropertyRecord{
			{Flags: 0, DeclaringTypeID: 0, NameID: 1},
		},
		sections: [][]byte{{0x17, 0, 0, 0x21}},
	}
	data := buildXBFFile(spec)

	r := newByteReader(data)
	h, err := readHeader(r)
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if h.MajorVersion != 2 {
		t.Fatalf("MajorVersion = %d, want 2", h.MajorVersion)
	}

	tables, err := readTables(r, h)
	if err != nil {
		t.Fatalf("readTables: %v", err)
	}
	if len(tables.Strings) != 2 || tables.Strings[0] != "Grid" || tables.Strings[1] != "Width" {
		t.Fatalf("Strings = %#v", tables.Strings)
	}
	if len(tables.Types) != 1 || tables.Types[0].NameID != 0 {
		t.Fatalf("Types = %#v", tables.Types)
	}
	if len(tables.Properties) != 1 || tables.Properties[0].NameID != 1 {
		t.Fatalf("Properties = %#v", tables.Properties)
	}
	if len(tables.NodeSections) != 1 {
		t.Fatalf("NodeSections = %#v", tables.NodeSections)
	}
	start, end := tables.sectionBounds(tables.NodeSections[0])
	if end-start != 4 {
		t.Fatalf("section length = %d, want 4", end-start)
	}
	if tables.string(0) != "Grid" {
		t.Fatalf("tables.string(0) = %q", tables.string(0))
	}
	if tables.string(99) != "" {
		t.Fatalf("tables.string(99) = %q, want empty for out-of-range id", tables.string(99))
	}
}
