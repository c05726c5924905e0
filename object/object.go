package object

import (
	"strings"
	"unicode"
	"unsafe"
)

// Object is the header shared by every class and instance.
//
// Class objects are created once per type when the Runtime is built and live
// until Shutdown. Instances are created by Runtime.Allocate with a reference
// count of one and are destroyed when DecRef drives the count to zero.
type Object struct {
	refCount int
	typ      Type
	name     string
	flags    Flags

	class  *Object // owning; nil for class objects
	parent *Object // nil only for the base class

	interfaces []*Object   // weak; entries live in the registry
	attributes *Attributes // properties, constants and methods
	data       Data        // typed trailing block, interpreted by hooks

	rt        *Runtime
	destroyed bool
}

// Method is the signature of an internal method. The returned object is an
// owned reference; nil means an exception was raised into rt.
type Method func(rt *Runtime, self *Object, args []*Object) *Object

// ---------------------------------------------------------------------------
// Typed data and lifecycle hooks
// ---------------------------------------------------------------------------

// Data is the typed block trailing an object header. Every built-in type has
// exactly one implementation. The lifecycle hooks below are optional and are
// discovered by interface assertion.
type Data interface {
	// Fresh returns a zeroed block of the same type for a new instance.
	Fresh() Data
}

// Populater fills a freshly allocated instance from constructor arguments.
type Populater interface {
	Populate(rt *Runtime, obj *Object, args []*Object) error
}

// Freer releases internal data (typically references to other objects).
type Freer interface {
	Free(obj *Object)
}

// Destroyer runs when the reference count of an instance reaches zero,
// before attributes and internal data are released.
type Destroyer interface {
	Destroy(obj *Object)
}

// Cloner returns a copy of the typed data for a cloned instance.
type Cloner interface {
	Clone(obj *Object) Data
}

// Cacher may return an existing object instead of allocating a new one.
// A nil result means no cached object applies.
type Cacher interface {
	Cached(rt *Runtime, class *Object, args []*Object) *Object
}

// Hasher returns a hash of the object value.
type Hasher interface {
	Hash(obj *Object) uint64
}

// Debugger renders the object for diagnostics.
type Debugger interface {
	Debug(obj *Object) string
}

// ---------------------------------------------------------------------------
// Header accessors
// ---------------------------------------------------------------------------

// Type returns the scalar type tag.
func (o *Object) Type() Type { return o.typ }

// Name returns the symbolic (class) name.
func (o *Object) Name() string { return o.name }

// Flags returns the kind and flag bits.
func (o *Object) Flags() Flags { return o.flags }

// Class returns the class this instance was created from, or nil for classes.
func (o *Object) Class() *Object { return o.class }

// Parent returns the parent object. Only the base class has a nil parent.
func (o *Object) Parent() *Object { return o.parent }

// Data returns the typed data block.
func (o *Object) Data() Data { return o.data }

// RefCount returns the current reference count.
func (o *Object) RefCount() int { return o.refCount }

// Destroyed reports whether the object has been released.
func (o *Object) Destroyed() bool { return o.destroyed }

// Attributes returns the object's own attribute table.
func (o *Object) Attributes() *Attributes { return o.attributes }

// Interfaces returns a copy of the implemented interface list.
func (o *Object) Interfaces() []*Object {
	out := make([]*Object, len(o.interfaces))
	copy(out, o.interfaces)
	return out
}

func (o *Object) IsClass() bool     { return o.flags.Has(KindClass) }
func (o *Object) IsInterface() bool { return o.flags.Has(KindInterface) }
func (o *Object) IsAbstract() bool  { return o.flags.Has(KindAbstract) }
func (o *Object) IsInstance() bool  { return o.flags.Has(KindInstance) }
func (o *Object) IsImmutable() bool { return o.flags.Has(FlagImmutable) }
func (o *Object) IsFinal() bool     { return o.flags.Has(FlagFinal) }

// SetImmutable marks the object immutable. There is no way back.
func (o *Object) SetImmutable() {
	o.flags |= FlagImmutable
}

// SetFinal marks a class as final.
func (o *Object) SetFinal() {
	o.flags |= FlagFinal
}

// ID returns a numeric identity derived from the object's address.
func (o *Object) ID() int64 {
	return int64(uintptr(unsafe.Pointer(o)))
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

// Debug renders an object using its type's debug hook. Objects without one
// render as their type name, capitalised for classes.
func Debug(o *Object) string {
	if o == nil {
		return "<nil>"
	}
	if o.destroyed {
		return "<destroyed " + o.name + ">"
	}
	if d, ok := o.data.(Debugger); ok && o.IsInstance() {
		return d.Debug(o)
	}
	name := o.name
	if name == "" {
		name = o.typ.String()
	}
	if o.IsClass() || o.IsInterface() {
		return capitalize(name)
	}
	return name
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// Memory returns an approximate footprint of the object in bytes.
func (o *Object) Memory() int {
	size := int(unsafe.Sizeof(*o))
	size += len(o.interfaces) * int(unsafe.Sizeof(o))
	if o.attributes != nil {
		size += o.attributes.Len() * int(unsafe.Sizeof(Object{}))
	}
	switch d := o.data.(type) {
	case *StringData:
		size += len(d.Value)
	case *RegexData:
		size += len(d.Pattern)
	case *ListData:
		size += len(d.Items) * int(unsafe.Sizeof(o))
	case *TupleData:
		size += len(d.Items) * int(unsafe.Sizeof(o))
	case *HashData:
		size += d.Len() * 2 * int(unsafe.Sizeof(o))
	case *ExceptionData:
		size += len(d.Message) + int(unsafe.Sizeof(d.Code))
	case *NumericalData:
		size += int(unsafe.Sizeof(d.Value))
	case *BooleanData, *NullData, *BaseData, *UserData, *CallableData, *AttributeData, nil:
		// fixed size, accounted for by the header
	}
	return size
}

// String implements fmt.Stringer using Debug.
func (o *Object) String() string {
	return Debug(o)
}

func joinDebug(items []*Object) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = Debug(it)
	}
	return strings.Join(parts, ", ")
}
