// Copyright 2024 The xbf Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package xbf

// frameworkIDFlag is the high bit that routes a 16-bit id to the framework
// oracle instead of the in-file tables (spec §4.3).
const frameworkIDFlag = uint16(0x8000)
const frameworkIDMask = uint16(0x7FFF)

// nameResolver resolves type and property IDs either through the framework
// oracle (high bit set) or the in-file tables, qualifying types with the
// active XML namespace prefix where one has been declared. A new
// nameResolver is created for each parse call (Reader.newInterpreter): the
// prefix map it owns accumulates every root-namespace declaration seen so far
// in that parse, and is not carried over to later parse calls on the same
// Reader.
type nameResolver struct {
	tables *Tables
	oracle FrameworkOracle

	// prefixes maps an XML namespace URI to its declared prefix. An empty
	// string value means the default (un-prefixed) xmlns declaration.
	prefixes map[string]string
}

func newNameResolver(tables *Tables, oracle FrameworkOracle) *nameResolver {
	if oracle == nil {
		oracle = NopOracle{}
	}
	return &nameResolver{tables: tables, oracle: oracle, prefixes: make(map[string]string)}
}

func (n *nameResolver) registerPrefix(uri, prefix string) {
	n.prefixes[uri] = prefix
}

// xmlnsAttr returns the property name a root-namespace declaration should be
// recorded under: "xmlns" for the default namespace, "xmlns:prefix"
// otherwise.
func xmlnsAttr(prefix string) string {
	if prefix == "" {
		return "xmlns"
	}
	return "xmlns:" + prefix
}

// typeName resolves a 16-bit type id per spec §4.3.
func (n *nameResolver) typeName(id uint16) string {
	if id&frameworkIDFlag != 0 {
		if name, ok := n.oracle.TypeName(id & frameworkIDMask); ok {
			return name
		}
		return unknownTypeName(id & frameworkIDMask)
	}
	if int(id) >= len(n.tables.Types) {
		return unknownTypeName(id)
	}
	rec := n.tables.Types[id]
	name := n.tables.string(rec.NameID)
	if uri, ok := n.tables.typeNamespaceURI(rec.NamespaceID); ok {
		if prefix, declared := n.prefixes[uri]; declared {
			if prefix == "" {
				return name
			}
			return prefix + ":" + name
		}
	}
	return name
}

// propertyName resolves a 16-bit property id per spec §4.3.
func (n *nameResolver) propertyName(id uint16) string {
	if id&frameworkIDFlag != 0 {
		if name, ok := n.oracle.PropertyName(id & frameworkIDMask); ok {
			return name
		}
		return unknownTypeName(id & frameworkIDMask)
	}
	if int(id) >= len(n.tables.Properties) {
		return unknownTypeName(id)
	}
	return n.tables.string(n.tables.Properties[id].NameID)
}

// resolveEnumValue resolves an enum id + value pair via the oracle, falling
// back to the "(Enum0x…)v" rendering when the oracle doesn't know it.
func resolveEnumValue(oracle FrameworkOracle, enumID uint16, value int32) string {
	if oracle == nil {
		oracle = NopOracle{}
	}
	if name, ok := oracle.EnumValue(enumID, value); ok {
		return name
	}
	return unknownEnumName(enumID, value)
}
