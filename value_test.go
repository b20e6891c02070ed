// Copyright 2024 The xbf Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package xbf

import (
	"math"
	"testing"
)

func decodeTestValue(t *testing.T, raw []byte) PropertyValue {
	t.Helper()
	r := newByteReader(raw)
	tbl := &Tables{Strings: []string{"Res"}}
	v, err := decodeValue(r, tbl, NopOracle{})
	if err != nil {
		t.Fatalf("decodeValue: %v", err)
	}
	return v
}

func TestDecodeValueBoolFloatInt(t *testing.T) {
	if v := decodeTestValue(t, []byte{valueTagBoolTrue}); v != true {
		t.Fatalf("bool true = %v", v)
	}
	if v := decodeTestValue(t, []byte{valueTagBoolFalse}); v != false {
		t.Fatalf("bool false = %v", v)
	}

	nb := newNodeBuilder()
	nb.f32bits(math.Float32bits(3.5))
	if v := decodeTestValue(t, append([]byte{valueTagFloat}, nb.bytes()...)); v != float32(3.5) {
		t.Fatalf("float = %v", v)
	}

	nb2 := newNodeBuilder()
	nb2.i32(42)
	if v := decodeTestValue(t, append([]byte{valueTagInt}, nb2.bytes()...)); v != int32(42) {
		t.Fatalf("int = %v", v)
	}
}

func TestDecodeValueString(t *testing.T) {
	nb := newNodeBuilder()
	nb.u16(0)
	v := decodeTestValue(t, append([]byte{valueTagString}, nb.bytes()...))
	if v != "Res" {
		t.Fatalf("string = %v, want Res", v)
	}
}

func TestDecodeValueColor(t *testing.T) {
	raw := append([]byte{valueTagColor}, 0x33, 0x22, 0x11, 0xFF)
	v := decodeTestValue(t, raw)
	c, ok := v.(Color)
	if !ok {
		t.Fatalf("value is %T, want Color", v)
	}
	if got := c.String(); got != "#FF112233" {
		t.Fatalf("Color.String() = %q, want #FF112233", got)
	}
}

func TestThicknessNormalization(t *testing.T) {
	tests := []struct {
		name string
		t    Thickness
		want string
	}{
		{"uniform", Thickness{4, 4, 4, 4}, "4"},
		{"symmetric", Thickness{4, 8, 4, 8}, "4,8"},
		{"full", Thickness{1, 2, 3, 4}, "1,2,3,4"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.t.String(); got != tc.want {
				t.Fatalf("Thickness.String() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestGridLengthNormalization(t *testing.T) {
	tests := []struct {
		name string
		g    GridLength
		want string
	}{
		{"auto", GridLength{Kind: 0}, "Auto"},
		{"numeric", GridLength{Kind: 1, Value: 200}, "200"},
		{"star", GridLength{Kind: 2, Value: 1}, "*"},
		{"weighted star", GridLength{Kind: 2, Value: 0.5}, "0.5*"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.g.String(); got != tc.want {
				t.Fatalf("GridLength.String() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDecodeValueEnumFallsBackWithoutOracle(t *testing.T) {
	nb := newNodeBuilder()
	nb.u16(7)
	nb.i32(2)
	v := decodeTestValue(t, append([]byte{valueTagEnum}, nb.bytes()...))
	if v != "(Enum0x7)2" {
		t.Fatalf("enum fallback = %v, want (Enum0x7)2", v)
	}
}

func TestDecodeValueUnknownTag(t *testing.T) {
	r := newByteReader([]byte{0xFE})
	_, err := decodeValue(r, &Tables{}, NopOracle{})
	if err == nil {
		t.Fatal("expected error for unknown value tag")
	}
}
