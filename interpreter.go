// Copyright 2024 The xbf Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package xbf

import (
	"fmt"

	"github.com/xbfgo/xbf/xbflog"
)

// Root-frame opcodes (spec §4.5, "Root-frame opcodes").
const (
	opRootNamespaceA = 0x12
	opRootNamespaceB = 0x03
	opRootClassInline = 0x0B
	opRootBegin       = 0x17
)

// Node-frame opcodes (spec §4.5, "Node-frame opcodes").
const (
	opUnknownPrologue      = 0x01
	opAmbiguous            = 0x04
	opSetPropertyObject    = 0x07
	opAddObjectSimple      = 0x08
	opAddObjectKeylessStyle = 0x09
	opAddKeyedObject       = 0x0A
	opClassInline          = 0x0B
	opConnection           = 0x0C
	opXName                = 0x0D
	opXUid                 = 0x0E
	opSectionReference     = 0x0F
	opDataTemplate         = 0x11
	opCollectionBegin      = 0x13
	opCollectionEnd        = 0x02
	opObjectBegin          = 0x14
	opLiteralFramework     = 0x15
	opLiteralNonFramework  = 0x16
	opCreateWithArgA       = 0x18
	opCreateWithArgB       = 0x19
	opPropertyA            = 0x1A
	opPropertyB            = 0x1B
	opResolvedPropertySetter = 0x1C
	opStyleTargetType      = 0x1D
	opStaticResourceProperty = 0x1E
	opTemplateBinding      = 0x1F
	opObjectEnd            = 0x21
	opStaticResourceObject = 0x22
	opThemeResourceObject  = 0x23
	opThemeResourceProperty = 0x24
	opConditionalBegin     = 0x26
	opConditionalEnd       = 0x27
	opObjectEndReturn      = 0x28
	opSetPropertyExtension = 0x20
	opUnknownStackPop      = 0x8B
)

// frameMode carries the options a single readNodesFrame invocation needs:
// the end-of-section boundary, and the readSingleObject/readSingleNode
// flags used by recursive section descents (spec §4.5).
type frameMode struct {
	end uint32

	// singleObject, when true, ends the frame as soon as the object
	// identified by target closes (or a nested root closes, in which case
	// target is irrelevant).
	singleObject bool
	target       *Obj

	// singleNode, when true, ends the frame after exactly one opcode has
	// been dispatched.
	singleNode bool
}

const noEnd = ^uint32(0)

// interpreter is the node stream state machine described in spec §4.5. One
// interpreter instance is created per top-level parse call (ReadRootNodeSection
// / DisassembleRootNodeSection / DisassembleNodeSection) and is discarded
// afterwards; it owns the
// three collaborating stacks for that call.
type interpreter struct {
	r      *byteReader
	tables *Tables
	names  *nameResolver
	opts   *Options

	rootStack []*Obj
	objStack  []*Obj
	colStack  []*ObjCollection

	depth int

	trc *trace

	anomalies *[]string
	logger    *xbflog.Helper
}

func newInterpreter(r *byteReader, tables *Tables, names *nameResolver, opts *Options, anomalies *[]string, logger *xbflog.Helper) *interpreter {
	return &interpreter{r: r, tables: tables, names: names, opts: opts, anomalies: anomalies, logger: logger}
}

// addAnomaly records a recoverable, non-fatal observation (a count mismatch,
// a padding field that wasn't zero, opcode 0x8B firing) the same way
// pe.File.Anomalies collects them instead of aborting the parse.
func (it *interpreter) addAnomaly(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if it.logger != nil {
		it.logger.Warnf("xbf: %s", msg)
	}
	if it.anomalies == nil {
		return
	}
	*it.anomalies = append(*it.anomalies, msg)
}

func (it *interpreter) pushDepth() error {
	it.depth++
	limit := 256
	if it.opts != nil && it.opts.DepthLimit > 0 {
		limit = it.opts.DepthLimit
	}
	if it.depth > limit {
		return ErrDepthExceeded
	}
	return nil
}

func (it *interpreter) popDepth() { it.depth-- }

// current returns the top of objStack, the target of property-set and
// child-add opcodes.
func (it *interpreter) current() *Obj {
	if len(it.objStack) == 0 {
		return nil
	}
	return it.objStack[len(it.objStack)-1]
}

func (it *interpreter) curCol() *ObjCollection {
	if len(it.colStack) == 0 {
		return nil
	}
	return it.colStack[len(it.colStack)-1]
}

func (it *interpreter) pushObj(o *Obj) { it.objStack = append(it.objStack, o) }

func (it *interpreter) popObj() *Obj {
	n := len(it.objStack)
	o := it.objStack[n-1]
	it.objStack = it.objStack[:n-1]
	return o
}

func (it *interpreter) pushCol(c *ObjCollection) { it.colStack = append(it.colStack, c) }

func (it *interpreter) popCol() *ObjCollection {
	n := len(it.colStack)
	c := it.colStack[n-1]
	it.colStack = it.colStack[:n-1]
	return c
}

// readRoot implements the root-frame loop of spec §4.5 ("Root-frame
// opcodes"): it consumes namespace declarations and an optional inline
// x:Class until it hits a root-begin opcode, at which point it assigns the
// root object its type name, pushes it, transitions into the node frame
// bounded by end, and returns
// once that frame reports the root has closed.
func (it *interpreter) readRoot(end uint32) (*Obj, error) {
	if err := it.pushDepth(); err != nil {
		return nil, err
	}
	defer it.popDepth()

	// The root object is allocated up front (but not yet pushed onto any
	// stack) so that namespace/x:Class declarations seen before the actual
	// root-begin opcode still land on the same Obj root-begin later assigns
	// a type name to (spec §8 scenario 3: the xmlns decl precedes rootbegin
	// in the byte stream but ends up a property of the finished root).
	root := newObj("")

	for {
		startPos := it.r.position()
		if end != noEnd && startPos >= end {
			return nil, wrapAt(ErrUnexpectedEOF, startPos, it.tables.sectionBase, "root frame ended without root begin")
		}
		op, err := it.r.readU8()
		if err != nil {
			return nil, err
		}
		switch op {
		case opRootNamespaceA, opRootNamespaceB:
			idx, err := it.r.readU16()
			if err != nil {
				return nil, err
			}
			uri := ""
			if int(idx) < len(it.tables.XmlNamespaces) {
				uri = it.tables.string(it.tables.XmlNamespaces[idx].NameID)
			}
			prefix, err := it.r.readInlineString()
			if err != nil {
				return nil, err
			}
			it.names.registerPrefix(uri, prefix)
			root.SetProperty(xmlnsAttr(prefix), uri)
			it.trc.record(it, startPos, fmt.Sprintf("%s = %q", xmlnsAttr(prefix), uri))

		case opRootClassInline:
			name, err := it.r.readInlineString()
			if err != nil {
				return nil, err
			}
			root.SetProperty("x:Class", name)
			it.trc.record(it, startPos, "x:Class = "+name)

		case opRootBegin:
			typeID, err := it.r.readU16()
			if err != nil {
				return nil, err
			}
			root.TypeName = it.names.typeName(typeID)
			it.rootStack = append(it.rootStack, root)
			it.pushObj(root)
			it.pushCol(root.Children)
			it.trc.record(it, startPos, "rootbegin "+root.TypeName)
			it.trc.indentIn()

			if err := it.readNodesFrame(&frameMode{end: end}); err != nil {
				return nil, err
			}
			it.trc.indentOut()
			it.rootStack = it.rootStack[:len(it.rootStack)-1]
			return root, nil

		default:
			return nil, wrapAt(ErrUnknownOpcode, startPos, it.tables.sectionBase,
				fmt.Sprintf("opcode 0x%02x in root frame", op))
		}
	}
}

// readNodesFrame is the node-frame dispatch loop (spec §4.5, "Node-frame
// opcodes"). It runs until m.end is reached, a dispatch reports the frame
// should end (object end matching rootStack top or m.target, or an explicit
// "object end + return"), or (in single-node mode) exactly one opcode has
// been processed.
func (it *interpreter) readNodesFrame(m *frameMode) error {
	if err := it.pushDepth(); err != nil {
		return err
	}
	defer it.popDepth()

	for {
		if m.end != noEnd && it.r.position() >= m.end {
			return nil
		}
		startPos := it.r.position()
		op, err := it.r.readU8()
		if err != nil {
			return err
		}
		done, err := it.dispatchNode(op, m, startPos)
		if err != nil {
			if _, ok := err.(*ParseError); ok {
				return err
			}
			return wrapAt(err, startPos, it.tables.sectionBase, "")
		}
		if done {
			return nil
		}
		if m.singleNode {
			return nil
		}
	}
}

func (it *interpreter) dispatchNode(op byte, m *frameMode, startPos uint32) (bool, error) {
	switch op {
	case opUnknownPrologue:
		it.trc.record(it, startPos, "prologue")
		return false, nil

	case opAmbiguous:
		return false, it.dispatchAmbiguousOpcode(m, startPos)

	case opSetPropertyObject, opSetPropertyExtension:
		name, err := it.readPropertyName()
		if err != nil {
			return false, err
		}
		val := it.popObj()
		it.current().SetProperty(name, val)
		it.trc.record(it, startPos, fmt.Sprintf("%s = <%s>", name, val.TypeName))
		return false, nil

	case opAddObjectSimple, opAddObjectKeylessStyle:
		val := it.popObj()
		it.curCol().Add(val)
		it.trc.record(it, startPos, "addobj "+val.TypeName)
		return false, nil

	case opAddKeyedObject:
		val := it.popObj()
		key, err := decodeValue(it.r, it.tables, it.names.oracle)
		if err != nil {
			return false, err
		}
		val.Key, val.HasKey = fmt.Sprint(key), true
		it.curCol().Add(val)
		it.trc.record(it, startPos, fmt.Sprintf("keyaddobj %s key=%v", val.TypeName, key))
		return false, nil

	case opClassInline:
		name, err := it.r.readInlineString()
		if err != nil {
			return false, err
		}
		it.current().SetProperty("x:Class", name)
		it.trc.record(it, startPos, "x:Class = "+name)
		return false, nil

	case opConnection:
		val, err := decodeValue(it.r, it.tables, it.names.oracle)
		if err != nil {
			return false, err
		}
		id, _ := val.(int32)
		it.current().ConnectionID, it.current().HasConnection = id, true
		it.trc.record(it, startPos, fmt.Sprintf("connectionid %d", id))
		return false, nil

	case opXName:
		val, err := decodeValue(it.r, it.tables, it.names.oracle)
		if err != nil {
			return false, err
		}
		it.current().Name, it.current().HasName = fmt.Sprint(val), true
		it.trc.record(it, startPos, "x:Name = "+it.current().Name)
		return false, nil

	case opXUid:
		val, err := decodeValue(it.r, it.tables, it.names.oracle)
		if err != nil {
			return false, err
		}
		it.current().UID, it.current().HasUID = fmt.Sprint(val), true
		it.trc.record(it, startPos, "x:Uid = "+it.current().UID)
		return false, nil

	case opSectionReference:
		it.trc.record(it, startPos, "sectionref")
		return false, it.readSectionReference()

	case opDataTemplate:
		it.trc.record(it, startPos, "datatemplate")
		return false, it.readDataTemplate()

	case opCollectionBegin:
		name, err := it.readPropertyName()
		if err != nil {
			return false, err
		}
		col := &ObjCollection{Owner: it.current(), OwnerProperty: name}
		it.current().SetProperty(name, col)
		it.pushCol(col)
		it.trc.record(it, startPos, "collectionbegin "+name)
		it.trc.indentIn()
		return false, nil

	case opCollectionEnd:
		it.popCol()
		it.trc.indentOut()
		it.trc.record(it, startPos, "collectionend")
		return false, nil

	case opObjectBegin:
		typeID, err := it.r.readU16()
		if err != nil {
			return false, err
		}
		obj := newObj(it.names.typeName(typeID))
		it.pushObj(obj)
		it.pushCol(obj.Children)
		if m.singleObject && m.target == nil {
			m.target = obj
		}
		it.trc.record(it, startPos, "objbegin "+obj.TypeName)
		it.trc.indentIn()
		return false, nil

	case opObjectEnd, opObjectEndReturn:
		cur := it.current()
		if it.curCol() == cur.Children {
			it.popCol()
		}
		it.trc.indentOut()
		it.trc.record(it, startPos, "objend "+cur.TypeName)
		if op == opObjectEndReturn {
			return true, nil
		}
		if m.singleObject && cur == m.target {
			return true, nil
		}
		if len(it.rootStack) > 0 && cur == it.rootStack[len(it.rootStack)-1] {
			return true, nil
		}
		return false, nil

	case opLiteralFramework, opLiteralNonFramework:
		typeID, err := it.r.readU16()
		if err != nil {
			return false, err
		}
		val, err := decodeValue(it.r, it.tables, it.names.oracle)
		if err != nil {
			return false, err
		}
		obj := newObj(it.names.typeName(typeID))
		obj.SetProperty("Value", val)
		it.pushObj(obj)
		if m.singleObject && m.target == nil {
			m.target = obj
		}
		it.trc.record(it, startPos, fmt.Sprintf("literal %s = %v", obj.TypeName, val))
		return false, nil

	case opRootBegin, opRootNamespaceA:
		it.r.pos--
		_, err := it.readRoot(m.end)
		if err != nil {
			return false, err
		}
		it.trc.record(it, startPos, "nestedroot")
		if m.singleObject {
			return true, nil
		}
		return false, nil

	case opCreateWithArgA, opCreateWithArgB:
		typeID, err := it.r.readU16()
		if err != nil {
			return false, err
		}
		arg, err := decodeValue(it.r, it.tables, it.names.oracle)
		if err != nil {
			return false, err
		}
		typeName := it.names.typeName(typeID)
		it.current().SetProperty("x:Class", typeName)
		it.current().SetProperty("x:Arguments", arg)
		it.trc.record(it, startPos, fmt.Sprintf("create %s(%v)", typeName, arg))
		return false, nil

	case opPropertyA, opPropertyB:
		name, err := it.readPropertyName()
		if err != nil {
			return false, err
		}
		val, err := decodeValue(it.r, it.tables, it.names.oracle)
		if err != nil {
			return false, err
		}
		it.current().SetProperty(name, val)
		it.trc.record(it, startPos, fmt.Sprintf("%s = %v", name, val))
		return false, nil

	case opResolvedPropertySetter:
		a, err := it.readPropertyName()
		if err != nil {
			return false, err
		}
		b, err := it.readPropertyName()
		if err != nil {
			return false, err
		}
		it.current().SetProperty(a, b)
		it.trc.record(it, startPos, fmt.Sprintf("%s = %s", a, b))
		return false, nil

	case opStyleTargetType:
		name, err := it.readPropertyName()
		if err != nil {
			return false, err
		}
		typeID, err := it.r.readU16()
		if err != nil {
			return false, err
		}
		it.current().SetProperty(name, it.names.typeName(typeID))
		it.trc.record(it, startPos, fmt.Sprintf("%s = %s", name, it.names.typeName(typeID)))
		return false, nil

	case opStaticResourceProperty:
		name, err := it.readPropertyName()
		if err != nil {
			return false, err
		}
		val, err := decodeValue(it.r, it.tables, it.names.oracle)
		if err != nil {
			return false, err
		}
		text := fmt.Sprintf("{StaticResource %v}", val)
		it.current().SetProperty(name, text)
		it.trc.record(it, startPos, fmt.Sprintf("%s = %s", name, text))
		return false, nil

	case opStaticResourceObject, opThemeResourceObject:
		val, err := decodeValue(it.r, it.tables, it.names.oracle)
		if err != nil {
			return false, err
		}
		typeName := "StaticResource"
		if op == opThemeResourceObject {
			typeName = "ThemeResource"
		}
		obj := newObj(typeName)
		obj.SetProperty("ResourceKey", val)
		it.pushObj(obj)
		if m.singleObject && m.target == nil {
			m.target = obj
		}
		it.trc.record(it, startPos, fmt.Sprintf("%s key=%v", typeName, val))
		return false, nil

	case opThemeResourceProperty:
		name, err := it.readPropertyName()
		if err != nil {
			return false, err
		}
		val, err := decodeValue(it.r, it.tables, it.names.oracle)
		if err != nil {
			return false, err
		}
		text := fmt.Sprintf("{ThemeResource %v}", val)
		it.current().SetProperty(name, text)
		it.trc.record(it, startPos, fmt.Sprintf("%s = %s", name, text))
		return false, nil

	case opTemplateBinding:
		name, err := it.readPropertyName()
		if err != nil {
			return false, err
		}
		path, err := it.readPropertyName()
		if err != nil {
			return false, err
		}
		text := fmt.Sprintf("{TemplateBinding %s}", path)
		it.current().SetProperty(name, text)
		it.trc.record(it, startPos, fmt.Sprintf("%s = %s", name, text))
		return false, nil

	case opConditionalBegin:
		typeID, err := it.r.readU16()
		if err != nil {
			return false, err
		}
		arg, err := it.r.readInlineString()
		if err != nil {
			return false, err
		}
		it.trc.record(it, startPos, fmt.Sprintf("condbegin %s %q", it.names.typeName(typeID), arg))
		it.trc.indentIn()
		return false, nil

	case opConditionalEnd:
		it.trc.indentOut()
		it.trc.record(it, startPos, "condend")
		return false, nil

	case opUnknownStackPop:
		if len(it.objStack) > 0 {
			it.popObj()
		}
		it.addAnomaly("opcode 0x8B encountered at position 0x%x", startPos)
		it.trc.record(it, startPos, "unknown-0x8B")
		return false, nil

	default:
		return false, wrapAt(ErrUnknownOpcode, startPos, it.tables.sectionBase,
			fmt.Sprintf("opcode 0x%02x", op))
	}
}

// dispatchAmbiguousOpcode implements spec §4.5.1: opcode 0x04 is
// triple-overloaded and its meaning is decided entirely from stack context,
// centralized here so the dispatch table above stays a flat lookup.
func (it *interpreter) dispatchAmbiguousOpcode(m *frameMode, startPos uint32) error {
	cur := it.current()
	switch {
	case it.curCol() != cur.Children:
		val, err := decodeValue(it.r, it.tables, it.names.oracle)
		if err != nil {
			return err
		}
		obj := newObj("Verbatim")
		obj.SetProperty("Value", val)
		it.pushObj(obj)
		if m.singleObject && m.target == nil {
			m.target = obj
		}
		it.trc.record(it, startPos, fmt.Sprintf("verbatim %v", val))
		return nil

	case len(it.rootStack) > 0 && cur == it.rootStack[len(it.rootStack)-1]:
		val, err := decodeValue(it.r, it.tables, it.names.oracle)
		if err != nil {
			return err
		}
		cur.SetProperty("x:Class", val)
		it.trc.record(it, startPos, fmt.Sprintf("x:Class = %v", val))
		return nil

	default:
		val, err := decodeValue(it.r, it.tables, it.names.oracle)
		if err != nil {
			return err
		}
		it.trc.record(it, startPos, fmt.Sprintf("discarded %v", val))
		return nil
	}
}

// readPropertyName reads a u16 property id and resolves it through the
// name resolver. GetPropertyName in spec terms.
func (it *interpreter) readPropertyName() (string, error) {
	id, err := it.r.readU16()
	if err != nil {
		return "", err
	}
	return it.names.propertyName(id), nil
}
