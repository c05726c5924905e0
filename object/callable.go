package object

import "fmt"

// ---------------------------------------------------------------------------
// Callable, attribute, user and base data blocks
// ---------------------------------------------------------------------------

// CallableData is the data block of callable objects. Internal methods set
// Native; callables produced from compiled code carry the frame in Code,
// which is opaque to this package.
type CallableData struct {
	Name       string
	Native     Method
	Code       any
	Flags      MethodFlags
	Visibility Visibility
}

func (d *CallableData) Fresh() Data { return &CallableData{} }

func (d *CallableData) Clone(obj *Object) Data {
	c := *d
	return &c
}

func (d *CallableData) Debug(obj *Object) string {
	if d.Native != nil {
		return fmt.Sprintf("callable<%s internal>", d.Name)
	}
	return fmt.Sprintf("callable<%s>", d.Name)
}

func (rt *Runtime) newCallable(name string, fn Method, code any, flags MethodFlags, vis Visibility) *Object {
	return rt.newInstance(rt.classes[TypeCallable], &CallableData{
		Name:       name,
		Native:     fn,
		Code:       code,
		Flags:      flags,
		Visibility: vis,
	})
}

// NewCallable returns an owned callable wrapping compiled code.
func (rt *Runtime) NewCallable(name string, code any) *Object {
	return rt.newCallable(name, nil, code, MethodNone, VisibilityPublic)
}

// NewNativeCallable returns an owned callable backed by fn.
func (rt *Runtime) NewNativeCallable(name string, fn Method) *Object {
	return rt.newCallable(name, fn, nil, MethodNone, VisibilityPublic)
}

// AttributeData describes one attribute table entry. The attribute owns one
// reference to Value.
type AttributeData struct {
	Kind       AttribKind
	Visibility Visibility
	Flags      MethodFlags
	Value      *Object
}

func (d *AttributeData) Fresh() Data { return &AttributeData{} }

func (d *AttributeData) set(v *Object) {
	if v != nil {
		v.IncRef()
	}
	old := d.Value
	d.Value = v
	if old != nil {
		old.DecRef()
	}
}

func (d *AttributeData) Free(obj *Object) {
	if d.Value != nil {
		d.Value.DecRef()
		d.Value = nil
	}
}

func (d *AttributeData) Clone(obj *Object) Data {
	c := *d
	if c.Value != nil {
		c.Value.IncRef()
	}
	return &c
}

func (d *AttributeData) Debug(obj *Object) string {
	return fmt.Sprintf("attribute<%s %s %s>", d.Visibility, d.Kind, Debug(d.Value))
}

func (rt *Runtime) newAttribute(kind AttribKind, vis Visibility, flags MethodFlags, value *Object) *Object {
	d := &AttributeData{Kind: kind, Visibility: vis, Flags: flags}
	d.set(value)
	return rt.newInstance(rt.classes[TypeAttribute], d)
}

// UserData is the data block of user-defined classes. User state lives in
// the attribute table.
type UserData struct{}

func (d *UserData) Fresh() Data { return &UserData{} }

func (d *UserData) Clone(obj *Object) Data { return &UserData{} }

// BaseData is the data block of the base class.
type BaseData struct{}

func (d *BaseData) Fresh() Data { return &BaseData{} }
