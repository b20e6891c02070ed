// Copyright 2024 The xbf Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package xbf

// PropertyValue is the value half of a (name, value) property pair on an
// Obj. It is one of: a primitive scalar (bool, int32, float32, string), a
// nested *Obj, or an *ObjCollection (a collection-valued property such as
// TextBlock.Inlines). Concrete primitive values are represented with their
// native Go types boxed in the interface{}; Obj/ObjCollection pointers are
// stored directly so callers can type-switch without an extra wrapper.
type PropertyValue interface{}

// Property is one (name, value) pair in an Obj's property list. Order is
// output order and may contain duplicates if the node stream emits the same
// property name twice; callers that want "last write wins" semantics apply
// that themselves.
type Property struct {
	Name  string
	Value PropertyValue
}

// Obj is the materialized object entity described in spec §3.
type Obj struct {
	TypeName string

	Name         string
	HasName      bool
	UID          string
	HasUID       bool
	Key          string
	HasKey       bool
	ConnectionID int32
	HasConnection bool

	Properties []Property

	// Children is this object's implicit children collection, created when
	// the object is opened (owner=self, ownerProperty="Children") and
	// pushed onto colStack at that time.
	Children *ObjCollection
}

// newObj allocates an Obj with its implicit children collection wired up,
// matching the "object creation" lifecycle step in spec §3.
func newObj(typeName string) *Obj {
	o := &Obj{TypeName: typeName}
	o.Children = &ObjCollection{Owner: o, OwnerProperty: "Children"}
	return o
}

// SetProperty appends a (name, value) pair to the object's property list.
func (o *Obj) SetProperty(name string, value PropertyValue) {
	o.Properties = append(o.Properties, Property{Name: name, Value: value})
}

// ObjCollection is an ordered sequence of *Obj with a back-reference to its
// owning object and the property name it was declared under. The
// back-reference is a plain pointer, not an owning reference: objects own
// their children exclusively (the graph is acyclic by construction per
// spec §9), collections merely point back up at the object that declared
// them so callers can recover context without walking the tree.
type ObjCollection struct {
	// Owner is excluded from JSON encoding: since Owner.Children == this
	// collection, marshaling it would walk Owner straight back into the
	// collection that points at it, an unbounded cycle (spec §9, "Cycles
	// and back-references").
	Owner         *Obj `json:"-"`
	OwnerProperty string
	Items         []*Obj
}

// Add appends obj to the collection, in declaration order.
func (c *ObjCollection) Add(obj *Obj) {
	c.Items = append(c.Items, obj)
}
