package object

// ---------------------------------------------------------------------------
// Reference counting
// ---------------------------------------------------------------------------

// IncRef adds a reference. Panics with *InvariantError if the object has
// already been destroyed.
func (o *Object) IncRef() {
	if o.destroyed {
		invariant("IncRef", o, "object already destroyed")
	}
	o.refCount++
}

// DecRef drops a reference and returns the new count. When the count of an
// allocated object reaches zero the object is destroyed. Objects that were
// not allocated (classes and singletons) are permanently alive and their
// count never goes below zero.
//
// Panics with *InvariantError when called on a destroyed object.
func (o *Object) DecRef() int {
	if o.destroyed {
		invariant("DecRef", o, "object already destroyed")
	}
	if !o.flags.Has(FlagAllocated) {
		if o.refCount > 0 {
			o.refCount--
		}
		return o.refCount
	}
	if o.refCount <= 0 {
		invariant("DecRef", o, "reference count already zero")
	}
	o.refCount--
	if o.refCount == 0 {
		o.destroy()
	}
	return o.refCount
}

// destroy runs the type's destroy hook, releases the attribute table and the
// typed data, and poisons the header.
func (o *Object) destroy() {
	d := o.data
	if h, ok := d.(Destroyer); ok {
		h.Destroy(o)
	}
	if o.attributes != nil {
		o.attributes.release()
		o.attributes = nil
	}
	if h, ok := d.(Freer); ok {
		h.Free(o)
	}
	if o.class != nil {
		o.class.DecRef()
	}
	o.interfaces = nil
	o.data = nil
	o.class = nil
	o.parent = nil
	o.destroyed = true
	if o.rt != nil {
		o.rt.stats.Destroyed++
	}
}

// ---------------------------------------------------------------------------
// Ref: owning handle
// ---------------------------------------------------------------------------

// Ref owns one reference to an object. Release drops it; Clone takes an
// additional reference. The zero Ref owns nothing.
//
//	r := object.Own(obj)
//	defer r.Release()
type Ref struct {
	obj *Object
}

// Own wraps a reference the caller already holds.
func Own(o *Object) Ref {
	return Ref{obj: o}
}

// Get returns the object without transferring ownership.
func (r Ref) Get() *Object {
	return r.obj
}

// Valid reports whether the handle owns an object.
func (r Ref) Valid() bool {
	return r.obj != nil
}

// Clone returns a second handle, incrementing the reference count.
func (r Ref) Clone() Ref {
	if r.obj != nil {
		r.obj.IncRef()
	}
	return Ref{obj: r.obj}
}

// Take transfers ownership out of the handle.
func (r *Ref) Take() *Object {
	o := r.obj
	r.obj = nil
	return o
}

// Release drops the owned reference. Releasing twice is a no-op.
func (r *Ref) Release() {
	if r.obj == nil {
		return
	}
	o := r.obj
	r.obj = nil
	o.DecRef()
}
