// Copyright 2024 The xbf Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package xbf

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the header/table loader and the node stream
// interpreter. Use errors.Is to test for a specific kind; ParseError wraps
// these with positional context without losing the underlying sentinel.
var (
	// ErrInvalidMagic is returned when the first four bytes of the file are
	// not "XBF\0".
	ErrInvalidMagic = errors.New("xbf: invalid magic")

	// ErrUnsupportedVersion is returned when the header's major version is
	// not 2. Only XBF v2 is supported.
	ErrUnsupportedVersion = errors.New("xbf: unsupported version")

	// ErrUnexpectedEOF is returned when a read runs past the end of the
	// underlying byte source.
	ErrUnexpectedEOF = errors.New("xbf: unexpected end of file")

	// ErrUnexpectedByte is returned when a byte that was supposed to be a
	// fixed sentinel (a zero terminator, a zero padding varint, ...) holds
	// something else.
	ErrUnexpectedByte = errors.New("xbf: unexpected byte")

	// ErrUnknownOpcode is returned when the node stream interpreter
	// encounters a byte it has no dispatch entry for.
	ErrUnknownOpcode = errors.New("xbf: unknown opcode")

	// ErrUnknownValueType is returned when the value decoder encounters a
	// tag byte it doesn't recognize.
	ErrUnknownValueType = errors.New("xbf: unknown value type")

	// ErrUnknownSectionKind is returned when a node-section reference names
	// a kind this reader has no handler for.
	ErrUnknownSectionKind = errors.New("xbf: unknown section kind")

	// ErrStackCorruption is returned when a recursive section read returns
	// with objStack/colStack depths different from what it was entered with.
	ErrStackCorruption = errors.New("xbf: stack corruption")

	// ErrDisposed is returned by any parse call made on a closed Reader.
	ErrDisposed = errors.New("xbf: reader is closed")

	// ErrDepthExceeded is returned when recursive section descents exceed
	// the configured depth limit.
	ErrDepthExceeded = errors.New("xbf: recursion depth exceeded")

	// ErrUnsupportedFeature is returned for recognized-but-unimplemented
	// corners of the format.
	ErrUnsupportedFeature = errors.New("xbf: unsupported feature")
)

// ParseError wraps a sentinel error with the absolute file position at which
// the failing dispatch began, and (when known) the node-section base offset
// active at that point. The outermost ReadNodes call site is responsible for
// attaching this context before the error crosses back into caller code; the
// original sentinel remains reachable through Unwrap so callers can keep
// using errors.Is/errors.As.
type ParseError struct {
	Kind       error
	Position   uint32
	SectionBase uint32
	Detail     string
}

func (e *ParseError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%v at position 0x%x (section base 0x%x): %s",
			e.Kind, e.Position, e.SectionBase, e.Detail)
	}
	return fmt.Sprintf("%v at position 0x%x (section base 0x%x)",
		e.Kind, e.Position, e.SectionBase)
}

func (e *ParseError) Unwrap() error { return e.Kind }

func wrapAt(kind error, pos, base uint32, detail string) error {
	return &ParseError{Kind: kind, Position: pos, SectionBase: base, Detail: detail}
}
