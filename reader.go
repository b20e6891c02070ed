// Copyright 2024 The xbf Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package xbf

import (
	"os"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/xbfgo/xbf/xbflog"
)

// Options configures a Reader, the same way pe.Options configures a pe.File:
// defaulted where zero-valued, carried for the lifetime of the reader.
type Options struct {
	// DepthLimit bounds recursive node-section descents. Zero means the
	// default of 256 (spec's recommended recursion guard).
	DepthLimit int

	// Oracle resolves framework type/property/enum ids. Nil means NopOracle,
	// so every high-bit id falls back to its "Unknown…" rendering.
	Oracle FrameworkOracle

	// Logger receives Warn/Debug-level anomaly reports. Nil means a
	// stderr-backed logger filtered to Error, matching pe.New's default.
	Logger xbflog.Logger
}

func (o *Options) oracle() FrameworkOracle {
	if o == nil || o.Oracle == nil {
		return NopOracle{}
	}
	return o.Oracle
}

// Reader is an open XBF v2 file: loaded header and tables, ready to parse
// its root node section (and, for debugging, any individual node section)
// into an object graph or a disassembly trace.
type Reader struct {
	data   []byte
	mm     mmap.MMap
	f      *os.File
	header Header
	tables Tables
	opts   *Options
	logger *xbflog.Helper

	// Anomalies accumulates recoverable observations made during parsing
	// (count mismatches, non-zero padding, the single-file opcode 0x8B),
	// the same way pe.File.Anomalies does for recoverable PE parse issues.
	Anomalies []string

	disposed bool
}

// Open memory-maps the file at path and loads its header and tables,
// mirroring pe.New's use of mmap-go instead of a full read into memory.
func Open(path string, opts *Options) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	r, err := newReader(data, opts)
	if err != nil {
		data.Unmap()
		f.Close()
		return nil, err
	}
	r.mm, r.f = data, f
	return r, nil
}

// OpenBytes loads header and tables from an in-memory buffer, mirroring
// pe.NewBytes for callers that already hold the file contents (fuzzing,
// tests, sources that aren't a plain file).
func OpenBytes(data []byte, opts *Options) (*Reader, error) {
	return newReader(data, opts)
}

func newReader(data []byte, opts *Options) (*Reader, error) {
	if opts == nil {
		opts = &Options{}
	}
	if opts.DepthLimit <= 0 {
		opts.DepthLimit = 256
	}

	var logger *xbflog.Helper
	if opts.Logger == nil {
		std := xbflog.NewStdLogger(os.Stderr)
		logger = xbflog.NewHelper(xbflog.NewFilter(std, xbflog.FilterLevel(xbflog.LevelError)))
	} else {
		logger = xbflog.NewHelper(opts.Logger)
	}

	br := newByteReader(data)
	h, err := readHeader(br)
	if err != nil {
		return nil, err
	}
	tables, err := readTables(br, h)
	if err != nil {
		return nil, err
	}

	return &Reader{data: data, header: h, tables: tables, opts: opts, logger: logger}, nil
}

// Close releases the underlying stream. Calling any parse method afterwards
// fails with ErrDisposed.
func (r *Reader) Close() error {
	if r.disposed {
		return nil
	}
	r.disposed = true
	if r.mm != nil {
		_ = r.mm.Unmap()
	}
	if r.f != nil {
		return r.f.Close()
	}
	return nil
}

// Header returns the loaded file header.
func (r *Reader) Header() Header { return r.header }

// Tables returns the loaded metadata tables.
func (r *Reader) Tables() Tables { return r.tables }

func (r *Reader) newInterpreter(br *byteReader) *interpreter {
	names := newNameResolver(&r.tables, r.opts.oracle())
	return newInterpreter(br, &r.tables, names, r.opts, &r.Anomalies, r.logger)
}

func (r *Reader) rootSection() (NodeSection, error) {
	if len(r.tables.NodeSections) == 0 {
		return NodeSection{}, wrapAt(ErrUnexpectedEOF, 0, r.tables.sectionBase, "no node sections in file")
	}
	return r.tables.NodeSections[0], nil
}

// finishParse implements spec §7's "outermost call site wraps it" rule: any
// error that escaped a parse without already being a *ParseError gets the
// absolute position and section base attached here, at the public boundary.
func finishParse(br *byteReader, sectionBase uint32, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*ParseError); ok {
		return err
	}
	return wrapAt(err, br.position(), sectionBase, "")
}

// ReadRootNodeSection parses node section 0 as a root and returns the
// assembled object graph (spec §4.6).
func (r *Reader) ReadRootNodeSection() (*Obj, error) {
	if r.disposed {
		return nil, ErrDisposed
	}
	section, err := r.rootSection()
	if err != nil {
		return nil, err
	}
	start, end := r.tables.sectionBounds(section)

	br := newByteReader(r.data)
	if err := br.seek(start); err != nil {
		return nil, err
	}
	it := r.newInterpreter(br)

	root, err := it.readRoot(end)
	return root, finishParse(br, r.tables.sectionBase, err)
}

// DisassembleRootNodeSection parses node section 0 with trace recording
// enabled, returning the assembled Disassembly (spec §4.6).
func (r *Reader) DisassembleRootNodeSection() (*Disassembly, error) {
	if r.disposed {
		return nil, ErrDisposed
	}
	section, err := r.rootSection()
	if err != nil {
		return nil, err
	}
	start, end := r.tables.sectionBounds(section)

	br := newByteReader(r.data)
	if err := br.seek(start); err != nil {
		return nil, err
	}
	it := r.newInterpreter(br)
	it.trc = &trace{sectionIndex: 0}

	_, err = it.readRoot(end)
	return &Disassembly{Commands: it.trc.commands}, finishParse(br, r.tables.sectionBase, err)
}

// DisassembleNodeSection parses an arbitrary node section (as addressed by
// its index into Tables().NodeSections) with trace recording enabled. A
// synthetic placeholder object/collection pair is pushed first so that
// property-set and add-object opcodes inside the section — which normally
// apply to whatever object an enclosing Style/ResourceDictionary/DataTemplate
// reference already pushed — have somewhere to land; index 0 is parsed as an
// actual root instead, since that's what its bytes really are.
func (r *Reader) DisassembleNodeSection(index int) (*Disassembly, error) {
	if r.disposed {
		return nil, ErrDisposed
	}
	if index < 0 || index >= len(r.tables.NodeSections) {
		return nil, wrapAt(ErrUnexpectedEOF, 0, r.tables.sectionBase, "node section index out of range")
	}
	if index == 0 {
		return r.DisassembleRootNodeSection()
	}
	section := r.tables.NodeSections[index]
	start, end := r.tables.sectionBounds(section)

	br := newByteReader(r.data)
	if err := br.seek(start); err != nil {
		return nil, err
	}
	it := r.newInterpreter(br)
	it.trc = &trace{sectionIndex: index}

	placeholder := newObj("")
	it.pushObj(placeholder)
	it.pushCol(placeholder.Children)

	err := it.readNodesFrame(&frameMode{end: end})
	return &Disassembly{Commands: it.trc.commands}, finishParse(br, r.tables.sectionBase, err)
}
