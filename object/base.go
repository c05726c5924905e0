package object

import "errors"

// ---------------------------------------------------------------------------
// Base reflective surface
// ---------------------------------------------------------------------------

// initBase installs the methods every object inherits through the base
// class.
func (rt *Runtime) initBase() {
	base := rt.classes[TypeBase]

	base.AddInternalMethod("__new", MethodStatic, VisibilityPublic, baseNew)
	base.AddInternalMethod("__ctor", MethodCtor, VisibilityPublic, baseNull)
	base.AddInternalMethod("__dtor", MethodDtor, VisibilityPublic, baseNull)

	base.AddInternalMethod("__properties", MethodNone, VisibilityPublic, func(rt *Runtime, self *Object, args []*Object) *Object {
		return rt.nameList(collectNames(self, func(d *AttributeData) bool { return d.Kind != AttribMethod }))
	})
	base.AddInternalMethod("__methods", MethodNone, VisibilityPublic, func(rt *Runtime, self *Object, args []*Object) *Object {
		return rt.nameList(collectNames(self, func(d *AttributeData) bool { return d.Kind == AttribMethod }))
	})
	base.AddInternalMethod("__parents", MethodNone, VisibilityPublic, func(rt *Runtime, self *Object, args []*Object) *Object {
		var parents []*Object
		for p := self.parent; p != nil; p = p.parent {
			parents = append(parents, p)
		}
		return rt.NewList(parents...)
	})
	base.AddInternalMethod("__name", MethodNone, VisibilityPublic, func(rt *Runtime, self *Object, args []*Object) *Object {
		return rt.NewString(self.name)
	})
	base.AddInternalMethod("__implements", MethodNone, VisibilityPublic, func(rt *Runtime, self *Object, args []*Object) *Object {
		if len(args) == 1 {
			name, ok := StringValue(args[0])
			if !ok {
				name = args[0].name
			}
			return rt.Boolean(self.HasInterface(name))
		}
		return rt.NewList(self.interfaces...)
	})
	base.AddInternalMethod("__memory", MethodNone, VisibilityPublic, func(rt *Runtime, self *Object, args []*Object) *Object {
		return rt.NewNumerical(int64(self.Memory()))
	})
	base.AddInternalMethod("__annotations", MethodNone, VisibilityPublic, func(rt *Runtime, self *Object, args []*Object) *Object {
		return rt.NewHash()
	})
	base.AddInternalMethod("__clone", MethodNone, VisibilityPublic, func(rt *Runtime, self *Object, args []*Object) *Object {
		return rt.Clone(self)
	})
	base.AddInternalMethod("__immutable?", MethodNone, VisibilityPublic, func(rt *Runtime, self *Object, args []*Object) *Object {
		return rt.Boolean(self.IsImmutable())
	})
	base.AddInternalMethod("__immutable", MethodNone, VisibilityPublic, func(rt *Runtime, self *Object, args []*Object) *Object {
		self.SetImmutable()
		self.IncRef()
		return self
	})
	base.AddInternalMethod("__destroy", MethodNone, VisibilityPublic, func(rt *Runtime, self *Object, args []*Object) *Object {
		if dtor := self.FindAttribute("__dtor"); dtor != nil {
			if res := rt.invoke(dtor, self, nil); res != nil {
				res.DecRef()
			} else {
				return nil
			}
		}
		return rt.Null()
	})
	base.AddInternalMethod("__refcount", MethodNone, VisibilityPublic, func(rt *Runtime, self *Object, args []*Object) *Object {
		return rt.NewNumerical(int64(self.refCount))
	})
	base.AddInternalMethod("__id", MethodNone, VisibilityPublic, func(rt *Runtime, self *Object, args []*Object) *Object {
		return rt.NewNumerical(self.ID())
	})
}

func baseNull(rt *Runtime, self *Object, args []*Object) *Object {
	return rt.Null()
}

// baseNew allocates a new instance of the receiver's class.
func baseNew(rt *Runtime, self *Object, args []*Object) *Object {
	class := self
	if !class.IsClass() {
		class = self.class
	}
	inst, err := rt.Allocate(class, args...)
	if err != nil {
		if !errors.Is(err, ErrRaised) {
			rt.RaiseException(nil, ExceptionArgument, "cannot instantiate '%s': %v", class.name, err)
		}
		return nil
	}
	return inst
}

// collectNames lists attribute names visible on o, nearest definition first,
// each name once.
func collectNames(o *Object, keep func(*AttributeData) bool) []string {
	seen := make(map[string]bool)
	var names []string
	visit := func(a *Attributes) {
		a.Each(func(name string, attr *Object) {
			if seen[name] {
				return
			}
			seen[name] = true
			if d := AttributeOf(attr); d != nil && keep(d) {
				names = append(names, name)
			}
		})
	}
	visit(o.attributes)
	if o.class != nil {
		visit(o.class.attributes)
	}
	for p := o.parent; p != nil; p = p.parent {
		visit(p.attributes)
	}
	return names
}

func (rt *Runtime) nameList(names []string) *Object {
	items := make([]*Object, len(names))
	for i, n := range names {
		items[i] = rt.NewString(n)
	}
	list := rt.NewList(items...)
	releaseAll(items)
	return list
}
