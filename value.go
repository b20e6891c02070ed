// Copyright 2024 The xbf Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package xbf

import (
	"fmt"
	"strconv"
)

// Value tag bytes, spec §4.4.
const (
	valueTagBoolFalse  = 0x01
	valueTagBoolTrue   = 0x02
	valueTagFloat      = 0x03
	valueTagInt        = 0x04
	valueTagString     = 0x05
	valueTagThickness  = 0x06
	valueTagGridLength = 0x07
	valueTagColor      = 0x08
	valueTagDuration   = 0x09
	valueTagEmpty      = 0x0A
	valueTagEnum       = 0x0B
)

// Thickness is the decoded value of tag 0x06.
type Thickness struct {
	Left, Top, Right, Bottom float32
}

// String normalizes a Thickness to XAML's shorthand forms: a single number
// when all four sides match, "l,t" when left==right and top==bottom, or the
// full "l,t,r,b" form otherwise.
func (t Thickness) String() string {
	if t.Left == t.Top && t.Top == t.Right && t.Right == t.Bottom {
		return formatFloat(t.Left)
	}
	if t.Left == t.Right && t.Top == t.Bottom {
		return fmt.Sprintf("%s,%s", formatFloat(t.Left), formatFloat(t.Top))
	}
	return fmt.Sprintf("%s,%s,%s,%s",
		formatFloat(t.Left), formatFloat(t.Top), formatFloat(t.Right), formatFloat(t.Bottom))
}

// GridLength is the decoded value of tag 0x07.
type GridLength struct {
	Kind  int32
	Value float32
}

// String renders a GridLength per spec §4.4: kind 0 is always "Auto", kind 1
// is the plain numeric value, kind 2 is star sizing ("*" for a value of
// exactly 1, "<value>*" otherwise).
func (g GridLength) String() string {
	switch g.Kind {
	case 0:
		return "Auto"
	case 1:
		return formatFloat(g.Value)
	case 2:
		if g.Value == 1 {
			return "*"
		}
		return formatFloat(g.Value) + "*"
	default:
		return formatFloat(g.Value)
	}
}

func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

// Color is the decoded value of tag 0x08: wire order is B,G,R,A; String
// renders the conventional "#AARRGGBB" form.
type Color struct {
	B, G, R, A uint8
}

func (c Color) String() string {
	return fmt.Sprintf("#%02X%02X%02X%02X", c.A, c.R, c.G, c.B)
}

// decodeValue reads a one-byte tag followed by the tag's payload, per
// spec §4.4. strs resolves string-table indices for tag 0x05; oracle
// resolves enum member names for tag 0x0B.
func decodeValue(r *byteReader, strs *Tables, oracle FrameworkOracle) (PropertyValue, error) {
	tag, err := r.readU8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case valueTagBoolFalse:
		return false, nil
	case valueTagBoolTrue:
		return true, nil
	case valueTagFloat:
		return r.readF32()
	case valueTagInt:
		return r.readI32()
	case valueTagString:
		idx, err := r.readU16()
		if err != nil {
			return nil, err
		}
		return strs.string(int32(idx)), nil
	case valueTagThickness:
		var t Thickness
		if t.Left, err = r.readF32(); err != nil {
			return nil, err
		}
		if t.Top, err = r.readF32(); err != nil {
			return nil, err
		}
		if t.Right, err = r.readF32(); err != nil {
			return nil, err
		}
		if t.Bottom, err = r.readF32(); err != nil {
			return nil, err
		}
		return t, nil
	case valueTagGridLength:
		var g GridLength
		if g.Kind, err = r.readI32(); err != nil {
			return nil, err
		}
		if g.Value, err = r.readF32(); err != nil {
			return nil, err
		}
		return g, nil
	case valueTagColor:
		raw, err := r.readBytes(4)
		if err != nil {
			return nil, err
		}
		return Color{B: raw[0], G: raw[1], R: raw[2], A: raw[3]}, nil
	case valueTagDuration:
		return r.readInlineString()
	case valueTagEmpty:
		return "", nil
	case valueTagEnum:
		enumID, err := r.readU16()
		if err != nil {
			return nil, err
		}
		value, err := r.readI32()
		if err != nil {
			return nil, err
		}
		return resolveEnumValue(oracle, enumID, value), nil
	default:
		return nil, wrapAt(ErrUnknownValueType, r.position(), 0, fmt.Sprintf("tag 0x%02x", tag))
	}
}
