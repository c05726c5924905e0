package object

import (
	"errors"
	"testing"
)

// countingData counts destroy hook invocations.
type countingData struct {
	destroyed *int
}

func (d *countingData) Fresh() Data { return &countingData{destroyed: d.destroyed} }

func (d *countingData) Destroy(obj *Object) { *d.destroyed++ }

func TestAllocateStartsAtOne(t *testing.T) {
	rt := NewRuntime()
	defer rt.Shutdown()

	s, err := rt.Allocate(rt.Class(TypeString))
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if s.RefCount() != 1 {
		t.Errorf("refcount = %d, want 1", s.RefCount())
	}
	if !s.IsInstance() || s.IsClass() {
		t.Errorf("flags = %b, want instance", s.Flags())
	}
	s.DecRef()
}

func TestDestroyExactlyOnce(t *testing.T) {
	rt := NewRuntime()
	defer rt.Shutdown()

	var n int
	class, err := rt.DefineClass("Counter", nil, &countingData{destroyed: &n})
	if err != nil {
		t.Fatalf("DefineClass failed: %v", err)
	}
	obj, err := rt.Allocate(class)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	const extra = 5
	for i := 0; i < extra; i++ {
		obj.IncRef()
	}
	for i := 0; i < extra+1; i++ {
		obj.DecRef()
	}

	if n != 1 {
		t.Errorf("destroy hook ran %d times, want 1", n)
	}
	if !obj.Destroyed() {
		t.Error("object not marked destroyed")
	}
	if obj.RefCount() != 0 {
		t.Errorf("refcount = %d, want 0", obj.RefCount())
	}
}

func TestDecRefDestroyedPanics(t *testing.T) {
	rt := NewRuntime()
	defer rt.Shutdown()

	s := rt.NewString("gone")
	s.DecRef()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic on second DecRef")
		}
		var ie *InvariantError
		if err, ok := r.(error); !ok || !errors.As(err, &ie) {
			t.Fatalf("panic value = %v, want *InvariantError", r)
		}
		if ie.Op != "DecRef" {
			t.Errorf("op = %q, want DecRef", ie.Op)
		}
	}()
	s.DecRef()
}

func TestClassesArePermanent(t *testing.T) {
	rt := NewRuntime()
	defer rt.Shutdown()

	class := rt.Class(TypeList)
	class.DecRef()
	class.DecRef()
	if class.Destroyed() {
		t.Error("class object destroyed by DecRef")
	}
	if class.RefCount() != 0 {
		t.Errorf("class refcount = %d, want 0", class.RefCount())
	}
}

func TestRefHandle(t *testing.T) {
	rt := NewRuntime()
	defer rt.Shutdown()

	r := Own(rt.NewString("handle"))
	c := r.Clone()
	if r.Get().RefCount() != 2 {
		t.Fatalf("refcount after Clone = %d, want 2", r.Get().RefCount())
	}

	obj := r.Get()
	r.Release()
	r.Release()
	if r.Valid() {
		t.Error("released handle still valid")
	}
	if obj.RefCount() != 1 {
		t.Errorf("refcount after Release = %d, want 1", obj.RefCount())
	}

	c.Release()
	if !obj.Destroyed() {
		t.Error("object not destroyed after last Release")
	}
}

func TestRefTake(t *testing.T) {
	rt := NewRuntime()
	defer rt.Shutdown()

	r := Own(rt.NewNumerical(1000))
	obj := r.Take()
	r.Release()
	if obj.Destroyed() {
		t.Fatal("Take did not transfer ownership")
	}
	obj.DecRef()
	if !obj.Destroyed() {
		t.Error("object not destroyed")
	}
}

func TestContainerReleasesItems(t *testing.T) {
	rt := NewRuntime()
	defer rt.Shutdown()

	before := rt.Stats().Live()
	item := rt.NewString("item")
	list := rt.NewList(item)
	clone := rt.Clone(list)
	if item.RefCount() != 3 {
		t.Errorf("item refcount = %d, want 3", item.RefCount())
	}

	list.DecRef()
	clone.DecRef()
	if item.RefCount() != 1 {
		t.Errorf("item refcount after release = %d, want 1", item.RefCount())
	}
	item.DecRef()

	if live := rt.Stats().Live(); live != before {
		t.Errorf("live objects = %d, want %d", live, before)
	}
}
