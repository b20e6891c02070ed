// Copyright 2024 The xbf Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package xbf

import "fmt"

// FrameworkOracle is the external mapping from small integer IDs to
// well-known type names, property names, and enumeration value names. It is
// treated as an opaque lookup oracle: the core never tries to derive these
// names from the file itself. Keeping it behind this interface is what lets
// the core be unit-tested with NopOracle, which returns "not found" for
// every id (spec §9, "Framework oracle placement").
type FrameworkOracle interface {
	// TypeName resolves a framework type id (with the high bit already
	// masked off by the caller) to a fully-qualified type name.
	TypeName(id uint16) (string, bool)

	// PropertyName resolves a framework property id to its name.
	PropertyName(id uint16) (string, bool)

	// EnumValue resolves a framework enum id + integer value to the
	// enumeration member's name.
	EnumValue(enumID uint16, value int32) (string, bool)
}

// NopOracle is a FrameworkOracle stub that never resolves anything, forcing
// every high-bit id through the "UnknownType0x…" / "(Enum0x…)v" fallback
// paths described in spec §4.3. It is the default oracle when Options.Oracle
// is nil.
type NopOracle struct{}

func (NopOracle) TypeName(uint16) (string, bool)            { return "", false }
func (NopOracle) PropertyName(uint16) (string, bool)        { return "", false }
func (NopOracle) EnumValue(uint16, int32) (string, bool)    { return "", false }

func unknownTypeName(id uint16) string {
	return fmt.Sprintf("UnknownType0x%X", id)
}

func unknownEnumName(enumID uint16, value int32) string {
	return fmt.Sprintf("(Enum0x%X)%d", enumID, value)
}
