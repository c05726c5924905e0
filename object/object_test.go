package object

import (
	"errors"
	"strings"
	"testing"
)

func TestRegistryBuiltins(t *testing.T) {
	rt := NewRuntime()
	defer rt.Shutdown()

	base := rt.Class(TypeBase)
	if base == nil || base.Parent() != nil {
		t.Fatal("base class missing or has a parent")
	}
	for typ := TypeCallable; typ < NumTypes; typ++ {
		if typ == TypeBase {
			continue
		}
		class := rt.Class(typ)
		if class == nil {
			t.Errorf("no class for %s", typ)
			continue
		}
		if class.Parent() != base {
			t.Errorf("%s parent = %v, want base", typ, class.Parent())
		}
		if !class.IsClass() {
			t.Errorf("%s is not flagged as a class", typ)
		}
	}
	if c, ok := rt.Lookup("string"); !ok || c != rt.Class(TypeString) {
		t.Errorf("Lookup(string) = %v, %v", c, ok)
	}
}

func TestInstanceOf(t *testing.T) {
	rt := NewRuntime()
	defer rt.Shutdown()

	s := rt.NewString("x")
	defer s.DecRef()

	if !s.InstanceOf("base") {
		t.Error("string is not an instance of base")
	}
	if !s.InstanceOf("string") {
		t.Error("string is not an instance of string")
	}
	if s.InstanceOf("list") {
		t.Error("string reported as instance of list")
	}
	if !rt.Class(TypeList).InstanceOf("base") {
		t.Error("list class is not an instance of base")
	}
	if !rt.Class(TypeBase).InstanceOf("base") {
		t.Error("base is not an instance of base")
	}
}

func TestUserClassInheritance(t *testing.T) {
	rt := NewRuntime()
	defer rt.Shutdown()

	animal, err := rt.DefineClass("Animal", nil, nil)
	if err != nil {
		t.Fatalf("DefineClass failed: %v", err)
	}
	dog, err := rt.DefineClass("Dog", animal, nil)
	if err != nil {
		t.Fatalf("DefineClass failed: %v", err)
	}
	if dog.Type() != TypeUser {
		t.Errorf("dog type = %s, want user", dog.Type())
	}

	animal.AddInternalMethod("speak", MethodNone, VisibilityPublic, func(rt *Runtime, self *Object, args []*Object) *Object {
		return rt.NewString("...")
	})

	d, err := rt.Allocate(dog)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	defer d.DecRef()

	if !d.InstanceOf("Animal") || !d.InstanceOf("Dog") {
		t.Error("dog instance does not report its ancestry")
	}
	res := rt.Call(d, "speak")
	if res == nil {
		t.Fatalf("speak raised: %v", rt.Exception())
	}
	defer res.DecRef()
	if v, _ := StringValue(res); v != "..." {
		t.Errorf("speak = %q, want ...", v)
	}
}

func TestInterfaces(t *testing.T) {
	rt := NewRuntime()
	defer rt.Shutdown()

	iface := rt.DefineInterface("Countable", "count")
	bag, err := rt.DefineClass("Bag", nil, nil)
	if err != nil {
		t.Fatalf("DefineClass failed: %v", err)
	}
	if err := rt.AddInterface(bag, iface); err != nil {
		t.Fatalf("AddInterface failed: %v", err)
	}

	ok, missing := bag.CheckInterfaceImplementations()
	if ok {
		t.Error("incomplete implementation accepted")
	}
	if len(missing) != 1 || missing[0] != "Countable.count" {
		t.Errorf("missing = %v, want [Countable.count]", missing)
	}

	bag.AddInternalMethod("count", MethodNone, VisibilityPublic, func(rt *Runtime, self *Object, args []*Object) *Object {
		return rt.NewNumerical(0)
	})
	if ok, missing := bag.CheckInterfaceImplementations(); !ok {
		t.Errorf("complete implementation rejected, missing %v", missing)
	}

	inst, err := rt.Allocate(bag)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	defer inst.DecRef()

	if !inst.HasInterface("Countable") {
		t.Error("instance does not carry the interface")
	}
	if !inst.InstanceOf("Countable") {
		t.Error("InstanceOf does not consult interfaces")
	}
	if inst.HasInterface("Bag") {
		t.Error("HasInterface matched the class name")
	}

	other := rt.DefineInterface("Sized")
	if err := rt.AddInterface(bag, other); !errors.Is(err, ErrHasInstances) {
		t.Errorf("AddInterface with live instances = %v, want ErrHasInstances", err)
	}
	if _, err := rt.Allocate(iface); !errors.Is(err, ErrNotAClass) {
		t.Errorf("Allocate(interface) = %v, want ErrNotAClass", err)
	}
}

func TestAbstractClass(t *testing.T) {
	rt := NewRuntime()
	defer rt.Shutdown()

	shape, err := rt.DefineAbstractClass("Shape", nil, nil)
	if err != nil {
		t.Fatalf("DefineAbstractClass failed: %v", err)
	}
	if _, err := rt.Allocate(shape); !errors.Is(err, ErrAbstract) {
		t.Errorf("Allocate(abstract) = %v, want ErrAbstract", err)
	}
}

func TestPropertiesAndImmutability(t *testing.T) {
	rt := NewRuntime()
	defer rt.Shutdown()

	point, err := rt.DefineClass("Point", nil, nil)
	if err != nil {
		t.Fatalf("DefineClass failed: %v", err)
	}
	zero := rt.NewNumerical(0)
	point.AddProperty("x", VisibilityPublic, zero)
	point.AddConstant("DIMENSIONS", VisibilityPublic, zero)
	zero.DecRef()

	p, err := rt.Allocate(point)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	defer p.DecRef()

	seven := rt.NewNumerical(7)
	defer seven.DecRef()
	if err := p.SetProperty("x", seven); err != nil {
		t.Fatalf("SetProperty failed: %v", err)
	}
	if v, ok := p.GetProperty("x"); !ok || v != seven {
		t.Errorf("x = %v, want 7", v)
	}
	if _, ok := point.GetProperty("x"); !ok {
		t.Error("class lost its property")
	}
	if err := p.SetProperty("DIMENSIONS", seven); !errors.Is(err, ErrConstant) {
		t.Errorf("assigning constant = %v, want ErrConstant", err)
	}
	if err := p.SetProperty("__ctor", seven); !errors.Is(err, ErrNotProperty) {
		t.Errorf("assigning method = %v, want ErrNotProperty", err)
	}

	p.SetImmutable()
	if err := p.SetProperty("x", seven); !errors.Is(err, ErrImmutable) {
		t.Errorf("assigning on immutable = %v, want ErrImmutable", err)
	}

	c := rt.Clone(p)
	defer c.DecRef()
	if !c.IsImmutable() {
		t.Error("clone dropped immutability")
	}
}

func TestCacheHooks(t *testing.T) {
	rt := NewRuntime()
	defer rt.Shutdown()

	five := rt.NewNumerical(5)
	defer five.DecRef()

	n, err := rt.Allocate(rt.Class(TypeNumerical), five)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	defer n.DecRef()
	if n != five {
		t.Error("small numerical not served from cache")
	}

	big := rt.NewNumerical(100000)
	defer big.DecRef()
	m, err := rt.Allocate(rt.Class(TypeNumerical), big)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	defer m.DecRef()
	if m == big {
		t.Error("large numerical served from cache")
	}
	if v, _ := NumericalValue(m); v != 100000 {
		t.Errorf("value = %d, want 100000", v)
	}

	b, err := rt.Allocate(rt.Class(TypeBoolean), rt.True())
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	defer b.DecRef()
	if b != rt.True() {
		t.Error("boolean allocation did not return the true singleton")
	}

	null, err := rt.Allocate(rt.Class(TypeNull))
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	defer null.DecRef()
	if null != rt.Null() {
		t.Error("null allocation did not return the singleton")
	}
	null.DecRef()

	if rt.Stats().Cached != 3 {
		t.Errorf("cached = %d, want 3", rt.Stats().Cached)
	}
}

func TestTupleIsImmutable(t *testing.T) {
	rt := NewRuntime()
	defer rt.Shutdown()

	one := rt.NewNumerical(1)
	defer one.DecRef()
	tup, err := rt.Allocate(rt.Class(TypeTuple), one, one)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	defer tup.DecRef()
	if !tup.IsImmutable() {
		t.Error("tuple is mutable")
	}
	if got := Debug(tup); got != "(1, 1)" {
		t.Errorf("Debug = %q, want (1, 1)", got)
	}
}

func TestHash(t *testing.T) {
	rt := NewRuntime()
	defer rt.Shutdown()

	k1 := rt.NewString("a")
	k2 := rt.NewString("a")
	v := rt.NewNumerical(1)
	defer k1.DecRef()
	defer k2.DecRef()
	defer v.DecRef()

	h := rt.NewHash()
	defer h.DecRef()
	hd := h.Data().(*HashData)
	if err := hd.Put(k1, v); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, ok := hd.Get(k2)
	if !ok || got != v {
		t.Errorf("Get(equal key) = %v, %v", got, ok)
	}
	if err := hd.Put(k2, v); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if hd.Len() != 1 {
		t.Errorf("len = %d, want 1", hd.Len())
	}

	list := rt.NewList()
	defer list.DecRef()
	if err := hd.Put(list, v); !errors.Is(err, ErrUnhashable) {
		t.Errorf("Put(list) = %v, want ErrUnhashable", err)
	}

	if _, err := rt.Allocate(rt.Class(TypeHash), k1); !errors.Is(err, ErrBadArguments) {
		t.Errorf("odd hash arguments = %v, want ErrBadArguments", err)
	}
}

func TestRegexMatch(t *testing.T) {
	rt := NewRuntime()
	defer rt.Shutdown()

	re, err := rt.NewRegex(`^a+b$`)
	if err != nil {
		t.Fatalf("NewRegex failed: %v", err)
	}
	defer re.DecRef()

	subject := rt.NewString("aaab")
	defer subject.DecRef()
	res := rt.Call(re, "match", subject)
	if res == nil {
		t.Fatalf("match raised: %v", rt.Exception())
	}
	defer res.DecRef()
	if res != rt.True() {
		t.Errorf("match = %v, want true", res)
	}

	if _, err := rt.NewRegex(`(`); err == nil {
		t.Error("invalid pattern compiled")
	}
}

func TestRaiseException(t *testing.T) {
	rt := NewRuntime()
	defer rt.Shutdown()

	s := rt.NewString("x")
	defer s.DecRef()

	if res := rt.Call(s, "nope"); res != nil {
		t.Fatal("missing method returned a value")
	}
	if !rt.ExceptionPending() {
		t.Fatal("no exception in flight")
	}
	exc := ExceptionOf(rt.Exception())
	if exc.Code != ExceptionMethodNotFound {
		t.Errorf("code = %d, want %d", exc.Code, ExceptionMethodNotFound)
	}
	if !strings.Contains(exc.Message, "nope") {
		t.Errorf("message = %q, want method name", exc.Message)
	}

	rt.RaiseException(nil, 42, "second %d", 2)
	if ExceptionOf(rt.Exception()).Message != "second 2" {
		t.Errorf("message = %q, want second 2", ExceptionOf(rt.Exception()).Message)
	}
	taken := rt.TakeException()
	if rt.ExceptionPending() {
		t.Error("exception still pending after Take")
	}
	taken.DecRef()
}

func TestUserExceptionClass(t *testing.T) {
	rt := NewRuntime()
	defer rt.Shutdown()

	ioErr, err := rt.DefineClass("IOError", rt.Class(TypeException), nil)
	if err != nil {
		t.Fatalf("DefineClass failed: %v", err)
	}
	rt.RaiseException(ioErr, 7, "disk on fire")
	exc := rt.Exception()
	if !exc.InstanceOf("exception") || exc.Name() != "IOError" {
		t.Errorf("raised %v, want IOError instance", exc)
	}
	rt.ClearException()

	defer func() {
		if recover() == nil {
			t.Error("raising a non-exception class did not panic")
		}
	}()
	rt.RaiseException(rt.Class(TypeString), 0, "bad")
}

func TestConstructorRaises(t *testing.T) {
	rt := NewRuntime()
	defer rt.Shutdown()

	var destroyed int
	class, err := rt.DefineClass("Fragile", nil, &countingData{destroyed: &destroyed})
	if err != nil {
		t.Fatalf("DefineClass failed: %v", err)
	}
	class.AddInternalMethod("__ctor", MethodCtor, VisibilityPublic, func(rt *Runtime, self *Object, args []*Object) *Object {
		rt.RaiseException(nil, 1, "refusing")
		return nil
	})

	if _, err := rt.Allocate(class); !errors.Is(err, ErrRaised) {
		t.Fatalf("Allocate = %v, want ErrRaised", err)
	}
	if destroyed != 1 {
		t.Errorf("half-built instance destroyed %d times, want 1", destroyed)
	}
	if !rt.ExceptionPending() {
		t.Error("constructor exception not left in flight")
	}
}

func TestBaseReflection(t *testing.T) {
	rt := NewRuntime()
	defer rt.Shutdown()

	s := rt.NewString("x")
	defer s.DecRef()

	name := rt.Call(s, "__name")
	defer name.DecRef()
	if v, _ := StringValue(name); v != "string" {
		t.Errorf("__name = %q, want string", v)
	}

	rc := rt.Call(s, "__refcount")
	defer rc.DecRef()
	if v, _ := NumericalValue(rc); v != 1 {
		t.Errorf("__refcount = %d, want 1", v)
	}

	id := rt.Call(s, "__id")
	defer id.DecRef()
	if v, _ := NumericalValue(id); v != s.ID() {
		t.Errorf("__id = %d, want %d", v, s.ID())
	}

	methods := rt.Call(rt.Class(TypeRegex), "__methods")
	defer methods.DecRef()
	var names []string
	for _, m := range methods.Data().(*ListData).Items {
		v, _ := StringValue(m)
		names = append(names, v)
	}
	joined := strings.Join(names, ",")
	if !strings.HasPrefix(joined, "match,") || !strings.Contains(joined, "__ctor") {
		t.Errorf("__methods = %v", names)
	}

	imm := rt.Call(s, "__immutable")
	imm.DecRef()
	q := rt.Call(s, "__immutable?")
	if q != rt.True() {
		t.Errorf("__immutable? = %v, want true", q)
	}
	q.DecRef()

	parents := rt.Call(s, "__parents")
	defer parents.DecRef()
	if items := parents.Data().(*ListData).Items; len(items) != 1 || items[0] != rt.Class(TypeBase) {
		t.Errorf("__parents = %v, want [Base]", parents)
	}
}

func TestDebug(t *testing.T) {
	rt := NewRuntime()
	defer rt.Shutdown()

	if got := Debug(rt.Class(TypeString)); got != "String" {
		t.Errorf("Debug(string class) = %q, want String", got)
	}
	n := rt.NewNumerical(42)
	defer n.DecRef()
	if got := Debug(n); got != "42" {
		t.Errorf("Debug(42) = %q", got)
	}
	s := rt.NewString("hi")
	defer s.DecRef()
	l := rt.NewList(n, s)
	defer l.DecRef()
	if got := Debug(l); got != `[42, "hi"]` {
		t.Errorf("Debug(list) = %q", got)
	}
	long := rt.NewString(strings.Repeat("x", 100))
	defer long.DecRef()
	if long.Memory()-s.Memory() != 98 {
		t.Errorf("memory delta = %d, want 98", long.Memory()-s.Memory())
	}
}

func TestShutdown(t *testing.T) {
	rt := NewRuntime()
	rt.RaiseException(nil, 1, "left over")
	rt.Shutdown()
	rt.Shutdown()

	if rt.ExceptionPending() {
		t.Error("exception survived shutdown")
	}
	if _, err := rt.Allocate(rt.Class(TypeString)); !errors.Is(err, ErrRuntimeClosed) {
		t.Errorf("Allocate after Shutdown = %v, want ErrRuntimeClosed", err)
	}
	if _, err := rt.DefineClass("Late", nil, nil); !errors.Is(err, ErrRuntimeClosed) {
		t.Errorf("DefineClass after Shutdown = %v, want ErrRuntimeClosed", err)
	}
}
