package object

import (
	"fmt"

	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// ---------------------------------------------------------------------------
// List and tuple
// ---------------------------------------------------------------------------

// ListData is the data block of lists. The list owns a reference to every
// item.
type ListData struct {
	Items []*Object
}

func (d *ListData) Fresh() Data { return &ListData{} }

func (d *ListData) Populate(rt *Runtime, obj *Object, args []*Object) error {
	d.Items = retainAll(args)
	return nil
}

func (d *ListData) Free(obj *Object) {
	releaseAll(d.Items)
	d.Items = nil
}

func (d *ListData) Clone(obj *Object) Data {
	return &ListData{Items: retainAll(d.Items)}
}

func (d *ListData) Debug(obj *Object) string {
	return "[" + joinDebug(d.Items) + "]"
}

// Append adds a borrowed item to the list.
func (d *ListData) Append(item *Object) {
	item.IncRef()
	d.Items = append(d.Items, item)
}

// TupleData is the data block of tuples. Tuples are immutable once
// populated.
type TupleData struct {
	Items []*Object
}

func (d *TupleData) Fresh() Data { return &TupleData{} }

func (d *TupleData) Populate(rt *Runtime, obj *Object, args []*Object) error {
	d.Items = retainAll(args)
	obj.SetImmutable()
	return nil
}

func (d *TupleData) Free(obj *Object) {
	releaseAll(d.Items)
	d.Items = nil
}

func (d *TupleData) Clone(obj *Object) Data {
	return &TupleData{Items: retainAll(d.Items)}
}

func (d *TupleData) Debug(obj *Object) string {
	return "(" + joinDebug(d.Items) + ")"
}

func retainAll(items []*Object) []*Object {
	if len(items) == 0 {
		return nil
	}
	out := make([]*Object, len(items))
	for i, it := range items {
		it.IncRef()
		out[i] = it
	}
	return out
}

func releaseAll(items []*Object) {
	for _, it := range items {
		it.DecRef()
	}
}

// NewList returns an owned list holding references to items.
func (rt *Runtime) NewList(items ...*Object) *Object {
	return rt.newInstance(rt.classes[TypeList], &ListData{Items: retainAll(items)})
}

// NewTuple returns an owned, immutable tuple holding references to items.
func (rt *Runtime) NewTuple(items ...*Object) *Object {
	t := rt.newInstance(rt.classes[TypeTuple], &TupleData{Items: retainAll(items)})
	t.SetImmutable()
	return t
}

// ---------------------------------------------------------------------------
// Hash
// ---------------------------------------------------------------------------

type hashEntry struct {
	key   *Object
	value *Object
}

// HashData is the data block of hash objects. Keys must implement the Hasher
// hook. Iteration follows insertion order of distinct hash values.
type HashData struct {
	buckets *linkedhashmap.Map // uint64 -> []hashEntry
	size    int
}

func (d *HashData) Fresh() Data { return &HashData{} }

func (d *HashData) init() {
	if d.buckets == nil {
		d.buckets = linkedhashmap.New()
	}
}

// Populate takes alternating key and value arguments.
func (d *HashData) Populate(rt *Runtime, obj *Object, args []*Object) error {
	if len(args)%2 != 0 {
		return fmt.Errorf("%w: hash needs key/value pairs", ErrBadArguments)
	}
	d.init()
	for i := 0; i < len(args); i += 2 {
		if err := d.Put(args[i], args[i+1]); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of entries.
func (d *HashData) Len() int {
	return d.size
}

// Put stores value under key. Both are borrowed.
func (d *HashData) Put(key, value *Object) error {
	h, ok := key.data.(Hasher)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnhashable, key.typ)
	}
	d.init()
	sum := h.Hash(key)
	var bucket []hashEntry
	if v, found := d.buckets.Get(sum); found {
		bucket = v.([]hashEntry)
	}
	value.IncRef()
	for i, e := range bucket {
		if sameValue(e.key, key) {
			old := e.value
			bucket[i].value = value
			old.DecRef()
			return nil
		}
	}
	key.IncRef()
	d.buckets.Put(sum, append(bucket, hashEntry{key: key, value: value}))
	d.size++
	return nil
}

// Get returns the value stored under key (borrowed).
func (d *HashData) Get(key *Object) (*Object, bool) {
	h, ok := key.data.(Hasher)
	if !ok || d.buckets == nil {
		return nil, false
	}
	v, found := d.buckets.Get(h.Hash(key))
	if !found {
		return nil, false
	}
	for _, e := range v.([]hashEntry) {
		if sameValue(e.key, key) {
			return e.value, true
		}
	}
	return nil, false
}

// Keys returns the keys in insertion order (borrowed).
func (d *HashData) Keys() []*Object {
	var keys []*Object
	d.each(func(e hashEntry) { keys = append(keys, e.key) })
	return keys
}

func (d *HashData) each(fn func(hashEntry)) {
	if d.buckets == nil {
		return
	}
	d.buckets.Each(func(_, v interface{}) {
		for _, e := range v.([]hashEntry) {
			fn(e)
		}
	})
}

func (d *HashData) Free(obj *Object) {
	d.each(func(e hashEntry) {
		e.key.DecRef()
		e.value.DecRef()
	})
	d.buckets = nil
	d.size = 0
}

func (d *HashData) Clone(obj *Object) Data {
	c := &HashData{}
	d.each(func(e hashEntry) {
		_ = c.Put(e.key, e.value)
	})
	return c
}

func (d *HashData) Debug(obj *Object) string {
	s := "{"
	first := true
	d.each(func(e hashEntry) {
		if !first {
			s += ", "
		}
		first = false
		s += Debug(e.key) + ": " + Debug(e.value)
	})
	return s + "}"
}

// NewHash returns an owned, empty hash.
func (rt *Runtime) NewHash() *Object {
	d := &HashData{}
	d.init()
	return rt.newInstance(rt.classes[TypeHash], d)
}

// sameValue compares two hashable keys by type and value.
func sameValue(a, b *Object) bool {
	if a == b {
		return true
	}
	if a.typ != b.typ {
		return false
	}
	switch x := a.data.(type) {
	case *StringData:
		return x.Value == b.data.(*StringData).Value
	case *NumericalData:
		return x.Value == b.data.(*NumericalData).Value
	case *BooleanData:
		return x.Value == b.data.(*BooleanData).Value
	case *NullData:
		return true
	default:
		return false
	}
}
