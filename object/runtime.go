package object

import (
	"fmt"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("saffire.object")

// ---------------------------------------------------------------------------
// Runtime: process-wide class registry
// ---------------------------------------------------------------------------

// Stats counts object lifecycle events.
type Stats struct {
	Allocated int
	Cached    int
	Cloned    int
	Destroyed int
}

// Live returns the number of allocated objects not yet destroyed.
func (s Stats) Live() int {
	return s.Allocated + s.Cloned - s.Destroyed
}

// Runtime holds the built-in classes, the boolean and null singletons and the
// in-flight exception. It is built once by NewRuntime, is read-only after
// that apart from user class registration, and is torn down once by
// Shutdown.
type Runtime struct {
	classes [NumTypes]*Object
	byName  map[string]*Object
	order   []*Object // registration order, for teardown

	trueObj  *Object
	falseObj *Object
	nullObj  *Object
	numCache [numCacheMax - numCacheMin + 1]*Object

	exception *Object

	stats  Stats
	closed bool
}

// NewRuntime builds the registry: the base class first, then one class per
// built-in type, then the singletons and the internal method tables.
func NewRuntime() *Runtime {
	rt := &Runtime{byName: make(map[string]*Object)}

	base := rt.newClass("base", TypeBase, nil, &BaseData{})
	rt.register(base)
	for _, b := range builtinTypes {
		rt.register(rt.newClass(b.typ.String(), b.typ, base, b.data))
	}

	rt.trueObj = rt.newSingleton(TypeBoolean, &BooleanData{Value: true})
	rt.falseObj = rt.newSingleton(TypeBoolean, &BooleanData{Value: false})
	rt.nullObj = rt.newSingleton(TypeNull, &NullData{})
	for i := range rt.numCache {
		rt.numCache[i] = rt.newSingleton(TypeNumerical, &NumericalData{Value: int64(i + numCacheMin)})
	}

	rt.initBase()
	rt.initRegex()
	rt.initException()

	log.Debugf("runtime initialised with %d classes", len(rt.order))
	return rt
}

var builtinTypes = []struct {
	typ  Type
	data Data
}{
	{TypeCallable, &CallableData{}},
	{TypeAttribute, &AttributeData{}},
	{TypeBoolean, &BooleanData{}},
	{TypeNull, &NullData{}},
	{TypeNumerical, &NumericalData{}},
	{TypeRegex, &RegexData{}},
	{TypeString, &StringData{}},
	{TypeHash, &HashData{}},
	{TypeTuple, &TupleData{}},
	{TypeUser, &UserData{}},
	{TypeList, &ListData{}},
	{TypeException, &ExceptionData{}},
}

func (rt *Runtime) newClass(name string, typ Type, parent *Object, data Data) *Object {
	return &Object{
		typ:    typ,
		name:   name,
		flags:  KindClass,
		parent: parent,
		data:   data,
		rt:     rt,
	}
}

func (rt *Runtime) newSingleton(typ Type, data Data) *Object {
	class := rt.classes[typ]
	return &Object{
		typ:    typ,
		name:   class.name,
		flags:  KindInstance | FlagImmutable,
		class:  class,
		parent: class.parent,
		data:   data,
		rt:     rt,
	}
}

func (rt *Runtime) register(class *Object) {
	if rt.classes[class.typ] == nil {
		rt.classes[class.typ] = class
	}
	rt.byName[class.name] = class
	rt.order = append(rt.order, class)
}

// Class returns the built-in class for a type tag.
func (rt *Runtime) Class(t Type) *Object {
	if int(t) >= NumTypes {
		return nil
	}
	return rt.classes[t]
}

// Lookup finds a registered class or interface by name.
func (rt *Runtime) Lookup(name string) (*Object, bool) {
	c, ok := rt.byName[name]
	return c, ok
}

// Stats returns lifecycle counters.
func (rt *Runtime) Stats() Stats {
	return rt.stats
}

// DefineClass registers a new class extending parent. The class inherits the
// parent's type tag; a nil data block inherits a fresh copy of the parent's.
func (rt *Runtime) DefineClass(name string, parent *Object, data Data) (*Object, error) {
	if rt.closed {
		return nil, ErrRuntimeClosed
	}
	if parent == nil {
		parent = rt.classes[TypeBase]
	}
	if !parent.IsClass() {
		return nil, fmt.Errorf("%w: parent %q", ErrNotAClass, parent.name)
	}
	if data == nil {
		data = parent.data.Fresh()
	}
	typ := parent.typ
	if typ == TypeBase {
		typ = TypeUser
	}
	class := rt.newClass(name, typ, parent, data)
	class.interfaces = append(class.interfaces, parent.interfaces...)
	rt.register(class)
	return class, nil
}

// DefineAbstractClass registers a class that cannot be instantiated.
func (rt *Runtime) DefineAbstractClass(name string, parent *Object, data Data) (*Object, error) {
	class, err := rt.DefineClass(name, parent, data)
	if err != nil {
		return nil, err
	}
	class.flags |= KindAbstract
	return class, nil
}

// DefineInterface registers an interface declaring the given method names.
func (rt *Runtime) DefineInterface(name string, methods ...string) *Object {
	iface := &Object{
		typ:    TypeUser,
		name:   name,
		flags:  KindInterface,
		parent: rt.classes[TypeBase],
		data:   &UserData{},
		rt:     rt,
	}
	for _, m := range methods {
		iface.AddAbstractMethod(m, VisibilityPublic)
	}
	rt.register(iface)
	return iface
}

// AddInterface appends iface to the interface list of class. It is a
// registration-time operation.
func (rt *Runtime) AddInterface(class, iface *Object) error {
	if !class.IsClass() {
		return fmt.Errorf("%w: %q", ErrNotAClass, class.name)
	}
	if !iface.IsInterface() {
		return fmt.Errorf("%w: %q", ErrNotInterface, iface.name)
	}
	if class.refCount > 0 {
		return fmt.Errorf("%w: %q", ErrHasInstances, class.name)
	}
	class.interfaces = append(class.interfaces, iface)
	return nil
}

// ---------------------------------------------------------------------------
// Allocation
// ---------------------------------------------------------------------------

// Allocate creates an instance of class. The type's cache hook is consulted
// first. Otherwise a fresh header is derived from the class, its property
// shape copied, the populate hook run with args and finally the "__ctor"
// method invoked. The result is an owned reference with a count of one for
// new objects.
//
// When the constructor raises, the instance is released, the exception stays
// in flight and ErrRaised is returned.
func (rt *Runtime) Allocate(class *Object, args ...*Object) (*Object, error) {
	if rt.closed {
		return nil, ErrRuntimeClosed
	}
	if class == nil || !class.IsClass() {
		return nil, ErrNotAClass
	}
	if class.IsAbstract() {
		return nil, fmt.Errorf("%w: %q", ErrAbstract, class.name)
	}
	if c, ok := class.data.(Cacher); ok {
		if cached := c.Cached(rt, class, args); cached != nil {
			cached.IncRef()
			rt.stats.Cached++
			return cached, nil
		}
	}

	inst := rt.newInstance(class, class.data.Fresh())
	inst.copyShape(class)

	if p, ok := inst.data.(Populater); ok {
		if err := p.Populate(rt, inst, args); err != nil {
			inst.DecRef()
			return nil, fmt.Errorf("%s: %w", class.name, err)
		}
	}

	if ctor := inst.FindAttribute("__ctor"); ctor != nil {
		pending := rt.exception
		result := rt.invoke(ctor, inst, args)
		if result != nil {
			result.DecRef()
		}
		if rt.exception != pending {
			inst.DecRef()
			return nil, ErrRaised
		}
	}
	return inst, nil
}

// newInstance creates an allocated instance header without running hooks.
func (rt *Runtime) newInstance(class *Object, data Data) *Object {
	class.IncRef()
	inst := &Object{
		refCount: 1,
		typ:      class.typ,
		name:     class.name,
		flags:    KindInstance | FlagAllocated,
		class:    class,
		parent:   class.parent,
		data:     data,
		rt:       rt,
	}
	if len(class.interfaces) > 0 {
		inst.interfaces = append([]*Object(nil), class.interfaces...)
	}
	rt.stats.Allocated++
	return inst
}

// Clone creates an independent copy of o with a reference count of one. The
// typed data is copied by the type's clone hook; types without one share their
// data block, which is only safe for immutable data.
func (rt *Runtime) Clone(o *Object) *Object {
	if o.destroyed {
		invariant("Clone", o, "object already destroyed")
	}
	if o.IsClass() || o.IsInterface() {
		o.IncRef()
		return o
	}
	data := o.data
	if c, ok := o.data.(Cloner); ok {
		data = c.Clone(o)
	}
	class := o.class
	class.IncRef()
	clone := &Object{
		refCount: 1,
		typ:      o.typ,
		name:     o.name,
		flags:    (o.flags & FlagImmutable) | KindInstance | FlagAllocated,
		class:    class,
		parent:   o.parent,
		data:     data,
		rt:       rt,
	}
	if len(o.interfaces) > 0 {
		clone.interfaces = append([]*Object(nil), o.interfaces...)
	}
	o.attributes.Each(func(name string, attr *Object) {
		d := AttributeOf(attr)
		clone.addAttribute(name, d.Kind, d.Visibility, d.Flags, d.Value)
	})
	rt.stats.Cloned++
	return clone
}

// ---------------------------------------------------------------------------
// Method invocation
// ---------------------------------------------------------------------------

// Call invokes the method name on obj. Missing methods raise an exception.
func (rt *Runtime) Call(obj *Object, name string, args ...*Object) *Object {
	attr := obj.FindAttribute(name)
	if attr == nil {
		rt.RaiseException(nil, ExceptionMethodNotFound, "method '%s' not found in '%s'", name, obj.name)
		return nil
	}
	return rt.invoke(attr, obj, args)
}

func (rt *Runtime) invoke(attr *Object, self *Object, args []*Object) *Object {
	d := AttributeOf(attr)
	if d == nil || d.Kind != AttribMethod {
		rt.RaiseException(nil, ExceptionNotCallable, "'%s' is not a method", self.name)
		return nil
	}
	if d.Flags&MethodAbstract != 0 {
		rt.RaiseException(nil, ExceptionAbstractCall, "cannot call abstract method on '%s'", self.name)
		return nil
	}
	callable, _ := d.Value.data.(*CallableData)
	if callable == nil || callable.Native == nil {
		rt.RaiseException(nil, ExceptionNotCallable, "'%s' has no native implementation", self.name)
		return nil
	}
	return callable.Native(rt, self, args)
}

// ---------------------------------------------------------------------------
// Shutdown
// ---------------------------------------------------------------------------

// Shutdown releases the in-flight exception and the attribute tables of every
// registered class. The runtime cannot be used afterwards.
func (rt *Runtime) Shutdown() {
	if rt.closed {
		return
	}
	rt.ClearException()
	for i := len(rt.order) - 1; i >= 0; i-- {
		class := rt.order[i]
		if class.attributes != nil {
			class.attributes.release()
			class.attributes = nil
		}
	}
	rt.closed = true
	log.Debugf("runtime shut down: %d allocated, %d destroyed", rt.stats.Allocated+rt.stats.Cloned, rt.stats.Destroyed)
}
