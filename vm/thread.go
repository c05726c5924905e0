package vm

import (
	"github.com/tliron/commonlog"

	"github.com/chazu/saffire/bytecode"
	"github.com/chazu/saffire/object"
)

var log = commonlog.GetLogger("saffire.vm")

// MaxFrames bounds the call depth of a thread.
const MaxFrames = 1024

// Thread runs bytecode frames on a runtime. It owns its call frames and any
// globals defined on it. A thread is not safe for concurrent use.
type Thread struct {
	rt      *object.Runtime
	frames  []*Frame
	globals map[string]*object.Object

	// base is the frame depth below which the current Run must not unwind.
	base int
}

// NewThread returns a thread executing on rt.
func NewThread(rt *object.Runtime) *Thread {
	return &Thread{
		rt:      rt,
		globals: make(map[string]*object.Object),
	}
}

// Runtime returns the thread's runtime.
func (t *Thread) Runtime() *object.Runtime {
	return t.rt
}

// Define binds a global, taking ownership of o.
func (t *Thread) Define(name string, o *object.Object) {
	if old, ok := t.globals[name]; ok {
		old.DecRef()
	}
	t.globals[name] = o
}

// Depth returns the number of active frames.
func (t *Thread) Depth() int {
	return len(t.frames)
}

// Current returns the innermost frame, or nil.
func (t *Thread) Current() *Frame {
	if len(t.frames) == 0 {
		return nil
	}
	return t.frames[len(t.frames)-1]
}

// Close releases the globals and any frames left behind.
func (t *Thread) Close() {
	for len(t.frames) > 0 {
		t.popFrame()
	}
	for name, o := range t.globals {
		o.DecRef()
		delete(t.globals, name)
	}
}

func (t *Thread) pushFrame(f *Frame) bool {
	if len(t.frames) >= MaxFrames {
		f.Release()
		t.rt.RaiseException(nil, object.ExceptionGeneric, "stack overflow: more than %d frames", MaxFrames)
		return false
	}
	t.frames = append(t.frames, f)
	return true
}

func (t *Thread) popFrame() {
	n := len(t.frames)
	f := t.frames[n-1]
	t.frames[n-1] = nil
	t.frames = t.frames[:n-1]
	f.Release()
}

// ---------------------------------------------------------------------------
// Exception propagation
// ---------------------------------------------------------------------------

// Unwind propagates the in-flight exception. Frames without a try scope are
// discarded until one handles it. When nothing does, the exception is
// consumed and returned as an *UncaughtError.
func (t *Thread) Unwind() error {
	if !t.rt.ExceptionPending() {
		return nil
	}
	var where string
	var line int
	if f := t.Current(); f != nil {
		where, line = f.Name(), f.Line()
	}

	for len(t.frames) > t.base {
		if t.Current().HandleException(t.rt) {
			return nil
		}
		t.popFrame()
	}

	exc := t.rt.TakeException()
	defer exc.DecRef()
	ue := &UncaughtError{Class: exc.Name(), Frame: where, Line: line}
	if d := object.ExceptionOf(exc); d != nil {
		ue.Code, ue.Message = d.Code, d.Message
	}
	log.Criticalf("%s", ue)
	return ue
}

// ---------------------------------------------------------------------------
// Interpreter loop
// ---------------------------------------------------------------------------

// Run executes bc in a new frame and returns the value it returns, owned by
// the caller. An exception nothing catches is returned as *UncaughtError.
// Consistency and invariant violations are recovered here and returned as
// errors; the thread's frames for this run are discarded.
func (t *Thread) Run(bc *bytecode.Bytecode) (result *object.Object, err error) {
	f, err := NewFrame(t.rt, bc)
	if err != nil {
		return nil, err
	}

	saved := t.base
	t.base = len(t.frames)
	defer func() {
		if r := recover(); r != nil {
			switch e := r.(type) {
			case *ConsistencyError:
				err = e
			case *object.InvariantError:
				err = e
			default:
				panic(r)
			}
			log.Criticalf("%s", err)
			for len(t.frames) > t.base {
				t.popFrame()
			}
			result = nil
		}
		t.base = saved
	}()

	if !t.pushFrame(f) {
		return nil, t.Unwind()
	}
	return t.loop()
}

func (t *Thread) loop() (*object.Object, error) {
	rt := t.rt
	for len(t.frames) > t.base {
		f := t.Current()
		if f.IP >= len(f.Code.Code) {
			if res := t.ret(rt.Null()); res != nil {
				return res, nil
			}
			continue
		}

		ins, err := f.Code.Decode(f.IP)
		if err != nil {
			consistency("Decode", "%v", err)
		}
		f.lastIP = f.IP
		f.IP += ins.Op.Width()

		switch ins.Op {
		case bytecode.OpStop:
			for len(t.frames) > t.base {
				t.popFrame()
			}
			return rt.Null(), nil

		case bytecode.OpPop:
			f.Pop().DecRef()

		case bytecode.OpDup:
			v := f.Top()
			v.IncRef()
			f.Push(v)

		case bytecode.OpLoadConst:
			c := f.Constant(ins.Operands[0])
			c.IncRef()
			f.Push(c)

		case bytecode.OpLoadID:
			name := t.identifier(f, ins.Operands[0])
			if v, ok := f.Local(name); ok {
				v.IncRef()
				f.Push(v)
			} else if v, ok := t.globals[name]; ok {
				v.IncRef()
				f.Push(v)
			} else {
				rt.RaiseException(nil, object.ExceptionGeneric, "identifier '%s' is not defined", name)
			}

		case bytecode.OpStoreID:
			f.SetLocal(t.identifier(f, ins.Operands[0]), f.Pop())

		case bytecode.OpJumpAbs:
			f.IP = ins.Operands[0]

		case bytecode.OpJumpIfTrue, bytecode.OpJumpIfFalse:
			v := f.Pop()
			cond := object.Truthy(v)
			v.DecRef()
			if cond == (ins.Op == bytecode.OpJumpIfTrue) {
				f.IP = ins.Operands[0]
			}

		case bytecode.OpCall:
			t.call(f, ins.Operands[0])

		case bytecode.OpReturn:
			var v *object.Object
			if f.SP() > 0 {
				v = f.Pop()
			} else {
				v = rt.Null()
			}
			if res := t.ret(v); res != nil {
				return res, nil
			}

		case bytecode.OpSetupLoop:
			f.PushLoopBlock(f.SP(), ins.Operands[0], ins.Operands[1])

		case bytecode.OpSetupExcept:
			f.PushExceptionBlock(f.SP(), ins.Operands[0], ins.Operands[1], ins.Operands[2])

		case bytecode.OpPopBlock:
			if b := f.PopBlock(); b.Kind == BlockException {
				f.leaveTry(b)
			}

		case bytecode.OpBreakLoop:
			f.Break(false)

		case bytecode.OpBreakElse:
			f.Break(true)

		case bytecode.OpContinueLoop:
			f.Continue(ins.Operands[0])

		case bytecode.OpEndFinally:
			f.EndFinally()

		case bytecode.OpThrow:
			v := f.Pop()
			if v.Type() == object.TypeException {
				rt.Throw(v)
			} else {
				rt.RaiseException(nil, object.ExceptionArgument, "can only throw exceptions, not %s", v.Type())
			}
			v.DecRef()

		default:
			consistency("Run", "unhandled opcode %s at offset %d", ins.Op, f.lastIP)
		}

		if rt.ExceptionPending() {
			if err := t.Unwind(); err != nil {
				return nil, err
			}
		}
	}
	return rt.Null(), nil
}

// ret pops the current frame and hands v to its caller. It returns v when
// the frame was the outermost frame of the run, nil otherwise.
func (t *Thread) ret(v *object.Object) *object.Object {
	t.Current().Return()
	t.popFrame()
	if len(t.frames) == t.base {
		return v
	}
	t.Current().Push(v)
	return nil
}

func (t *Thread) identifier(f *Frame, i int) string {
	if i < 0 || i >= len(f.Code.Identifiers) {
		consistency("Identifier", "identifier %d out of range in frame %q", i, f.Name())
	}
	return f.Code.Identifiers[i]
}

// call invokes the callable below the top n values. Native callables borrow
// their arguments; compiled callables receive them on their own stack.
func (t *Thread) call(f *Frame, n int) {
	rt := t.rt
	args := f.PopN(n)
	callee := f.Pop()
	defer callee.DecRef()

	d, _ := callee.Data().(*object.CallableData)
	if d != nil && d.Native != nil {
		res := d.Native(rt, callee, args)
		release(args)
		switch {
		case res != nil:
			f.Push(res)
		case !rt.ExceptionPending():
			f.Push(rt.Null())
		}
		return
	}
	if d != nil {
		if code, ok := d.Code.(*bytecode.Bytecode); ok {
			nf, err := NewFrame(rt, code)
			if err != nil {
				release(args)
				rt.RaiseException(nil, object.ExceptionGeneric, "%v", err)
				return
			}
			for _, a := range args {
				nf.Push(a)
			}
			t.pushFrame(nf)
			return
		}
	}
	release(args)
	rt.RaiseException(nil, object.ExceptionNotCallable, "'%s' is not callable", callee.Name())
}

func release(objs []*object.Object) {
	for _, o := range objs {
		o.DecRef()
	}
}
