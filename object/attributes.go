package object

import (
	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// ---------------------------------------------------------------------------
// Attributes: insertion-ordered attribute table
// ---------------------------------------------------------------------------

// Attributes maps attribute names to attribute objects. Names are unique and
// iteration follows insertion order. The table owns one reference to every
// attribute object it holds.
type Attributes struct {
	m *linkedhashmap.Map
}

func newAttributes() *Attributes {
	return &Attributes{m: linkedhashmap.New()}
}

// Len returns the number of entries.
func (a *Attributes) Len() int {
	if a == nil {
		return 0
	}
	return a.m.Size()
}

// Get returns the attribute object stored under name (borrowed).
func (a *Attributes) Get(name string) (*Object, bool) {
	if a == nil {
		return nil, false
	}
	v, ok := a.m.Get(name)
	if !ok {
		return nil, false
	}
	return v.(*Object), true
}

// Names returns the attribute names in insertion order.
func (a *Attributes) Names() []string {
	if a == nil {
		return nil
	}
	keys := a.m.Keys()
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.(string)
	}
	return names
}

// Each calls fn for every entry in insertion order.
func (a *Attributes) Each(fn func(name string, attr *Object)) {
	if a == nil {
		return
	}
	a.m.Each(func(k, v interface{}) {
		fn(k.(string), v.(*Object))
	})
}

// put stores attr under name, taking over the caller's reference. A
// previous entry under the same name is released (last write wins).
func (a *Attributes) put(name string, attr *Object) {
	if old, ok := a.Get(name); ok {
		a.m.Put(name, attr)
		old.DecRef()
		return
	}
	a.m.Put(name, attr)
}

// release drops every entry.
func (a *Attributes) release() {
	values := a.m.Values()
	a.m.Clear()
	for _, v := range values {
		v.(*Object).DecRef()
	}
}

// ---------------------------------------------------------------------------
// Attribute registration
// ---------------------------------------------------------------------------

// AttributeOf returns the descriptor of an attribute object, or nil when o is
// not an attribute.
func AttributeOf(o *Object) *AttributeData {
	if o == nil {
		return nil
	}
	d, _ := o.data.(*AttributeData)
	return d
}

func (o *Object) ensureAttributes() *Attributes {
	if o.attributes == nil {
		o.attributes = newAttributes()
	}
	return o.attributes
}

// AddProperty inserts a property. The value is borrowed: the table takes its
// own reference. An existing entry with the same name is replaced.
func (o *Object) AddProperty(name string, vis Visibility, value *Object) {
	o.addAttribute(name, AttribProperty, vis, MethodNone, value)
}

// AddConstant inserts a constant. Constants cannot be reassigned through
// SetProperty.
func (o *Object) AddConstant(name string, vis Visibility, value *Object) {
	o.addAttribute(name, AttribConstant, vis, MethodNone, value)
}

// AddInternalMethod wraps fn in a callable and inserts it as a method.
func (o *Object) AddInternalMethod(name string, flags MethodFlags, vis Visibility, fn Method) {
	callable := o.rt.newCallable(name, fn, nil, flags, vis)
	o.addAttribute(name, AttribMethod, vis, flags, callable)
	callable.DecRef()
}

// AddAbstractMethod declares a method without an implementation. Interfaces
// use it to list the methods implementors must provide.
func (o *Object) AddAbstractMethod(name string, vis Visibility) {
	null := o.rt.Null()
	o.addAttribute(name, AttribMethod, vis, MethodAbstract, null)
	null.DecRef()
}

func (o *Object) addAttribute(name string, kind AttribKind, vis Visibility, flags MethodFlags, value *Object) {
	attr := o.rt.newAttribute(kind, vis, flags, value)
	o.ensureAttributes().put(name, attr)
}

// ---------------------------------------------------------------------------
// Attribute lookup
// ---------------------------------------------------------------------------

// FindAttribute returns the attribute object for name, searching the object's
// own table, then its class, then the parent chain. The result is borrowed.
func (o *Object) FindAttribute(name string) *Object {
	if attr, ok := o.attributes.Get(name); ok {
		return attr
	}
	if o.class != nil {
		if attr, ok := o.class.attributes.Get(name); ok {
			return attr
		}
	}
	for p := o.parent; p != nil; p = p.parent {
		if attr, ok := p.attributes.Get(name); ok {
			return attr
		}
	}
	return nil
}

// GetProperty returns the value of a property or constant (borrowed).
func (o *Object) GetProperty(name string) (*Object, bool) {
	attr := o.FindAttribute(name)
	d := AttributeOf(attr)
	if d == nil || d.Kind == AttribMethod {
		return nil, false
	}
	return d.Value, true
}

// SetProperty assigns a property on the object itself. The value is
// borrowed. Unknown names create a new public property.
func (o *Object) SetProperty(name string, value *Object) error {
	if o.IsImmutable() {
		return ErrImmutable
	}
	if own, ok := o.attributes.Get(name); ok {
		d := AttributeOf(own)
		switch d.Kind {
		case AttribConstant:
			return ErrConstant
		case AttribMethod:
			return ErrNotProperty
		}
		d.set(value)
		return nil
	}
	vis := VisibilityPublic
	if inherited := AttributeOf(o.FindAttribute(name)); inherited != nil {
		switch inherited.Kind {
		case AttribConstant:
			return ErrConstant
		case AttribMethod:
			return ErrNotProperty
		}
		vis = inherited.Visibility
	}
	o.AddProperty(name, vis, value)
	return nil
}

// copyShape gives a new instance its own entries for the class's properties
// and constants. Methods stay on the class and are found through lookup.
func (o *Object) copyShape(class *Object) {
	class.attributes.Each(func(name string, attr *Object) {
		d := AttributeOf(attr)
		if d == nil || d.Kind == AttribMethod {
			return
		}
		o.addAttribute(name, d.Kind, d.Visibility, d.Flags, d.Value)
	})
}
