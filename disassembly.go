// Copyright 2024 The xbf Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package xbf

// Command is one recorded step of a disassembly trace: the opcode
// dispatched, where it was read from, and a deep-copied snapshot of the
// stacks at that moment (spec §6, "Disassembly trace").
type Command struct {
	Position         uint32
	ByteSlice        []byte
	NodeSectionIndex int
	Text             string
	ObjectStack      []string
	CollectionStack  []string
	Indent           int
}

// Disassembly is the ordered, deterministic sequence of Commands produced by
// DisassembleRootNodeSection / DisassembleNodeSection. Order matches opcode
// occurrence; Indent reflects logical nesting depth, incremented on
// begin opcodes and decremented on the matching end.
type Disassembly struct {
	Commands []Command
}

// trace accumulates Commands during a parse. It is nil on a plain
// (non-disassembling) parse, so recording is a cheap nil check on the hot
// path.
type trace struct {
	sectionIndex int
	indent       int
	commands     []Command
}

// indentIn/indentOut bump the trace's nesting depth around begin/end
// opcodes (spec §6: "Indentation reflects current logical nesting depth
// incremented/decremented by begin/end opcodes"). Both are no-ops when no
// trace is being recorded.
func (t *trace) indentIn() {
	if t == nil {
		return
	}
	t.indent++
}

func (t *trace) indentOut() {
	if t == nil {
		return
	}
	if t.indent > 0 {
		t.indent--
	}
}

func (t *trace) record(it *interpreter, startPos uint32, text string) {
	if t == nil {
		return
	}
	endPos := it.r.position()
	var raw []byte
	if endPos >= startPos && int(endPos) <= len(it.r.data) {
		raw = append([]byte(nil), it.r.data[startPos:endPos]...)
	}
	t.commands = append(t.commands, Command{
		Position:         startPos,
		ByteSlice:        raw,
		NodeSectionIndex: t.sectionIndex,
		Text:             text,
		ObjectStack:      snapshotObjStack(it.objStack),
		CollectionStack:  snapshotColStack(it.colStack),
		Indent:           t.indent,
	})
}

func snapshotObjStack(stack []*Obj) []string {
	out := make([]string, len(stack))
	for i, o := range stack {
		if o == nil {
			continue
		}
		out[i] = o.TypeName
	}
	return out
}

func snapshotColStack(stack []*ObjCollection) []string {
	out := make([]string, len(stack))
	for i, c := range stack {
		if c == nil {
			continue
		}
		out[i] = c.OwnerProperty
	}
	return out
}
