package vm

import (
	"github.com/chazu/saffire/bytecode"
	"github.com/chazu/saffire/object"
)

// ---------------------------------------------------------------------------
// Frame
// ---------------------------------------------------------------------------

// Frame is the activation of one bytecode frame. It owns one reference to
// every value on its stack, every constant and every local. The block stack
// is private to the frame.
type Frame struct {
	Code *bytecode.Bytecode
	IP   int

	// lastIP is the offset of the instruction being executed.
	lastIP int

	constants []*object.Object
	locals    map[string]*object.Object
	stack     []*object.Object
	blocks    []Block
	handlers  []handler
}

// NewFrame creates a frame for bc. Constants are materialised immediately.
func NewFrame(rt *object.Runtime, bc *bytecode.Bytecode) (*Frame, error) {
	consts, err := LoadConstants(rt, bc)
	if err != nil {
		return nil, err
	}
	return &Frame{
		Code:      bc,
		constants: consts,
		locals:    make(map[string]*object.Object),
		stack:     make([]*object.Object, 0, bc.StackSize),
	}, nil
}

// Name returns the frame's code name.
func (f *Frame) Name() string {
	if f.Code == nil {
		return "<none>"
	}
	return f.Code.Name
}

// Line returns the source line of the instruction being executed.
func (f *Frame) Line() int {
	if f.Code == nil {
		return 0
	}
	return f.Code.LineFor(f.lastIP)
}

// Constant returns the constant at index i (borrowed).
func (f *Frame) Constant(i int) *object.Object {
	if i < 0 || i >= len(f.constants) {
		consistency("Constant", "constant %d out of range in frame %q", i, f.Name())
	}
	return f.constants[i]
}

// ---------------------------------------------------------------------------
// Value stack
// ---------------------------------------------------------------------------

// SP returns the current value stack depth.
func (f *Frame) SP() int {
	return len(f.stack)
}

// Push transfers ownership of o to the stack.
func (f *Frame) Push(o *object.Object) {
	f.stack = append(f.stack, o)
}

// Pop transfers ownership of the top value to the caller.
func (f *Frame) Pop() *object.Object {
	n := len(f.stack)
	if n == 0 {
		consistency("Pop", "value stack underflow in frame %q", f.Name())
	}
	o := f.stack[n-1]
	f.stack[n-1] = nil
	f.stack = f.stack[:n-1]
	return o
}

// Top returns the top value without transferring ownership.
func (f *Frame) Top() *object.Object {
	n := len(f.stack)
	if n == 0 {
		consistency("Top", "value stack underflow in frame %q", f.Name())
	}
	return f.stack[n-1]
}

// PopN pops n values, returned in push order.
func (f *Frame) PopN(n int) []*object.Object {
	if n > len(f.stack) {
		consistency("PopN", "value stack underflow in frame %q: need %d, have %d", f.Name(), n, len(f.stack))
	}
	start := len(f.stack) - n
	out := make([]*object.Object, n)
	copy(out, f.stack[start:])
	clear(f.stack[start:])
	f.stack = f.stack[:start]
	return out
}

// RestoreSP drops values above depth sp, releasing each of them.
func (f *Frame) RestoreSP(sp int) {
	if sp > len(f.stack) {
		consistency("RestoreSP", "cannot restore stack depth %d above current depth %d", sp, len(f.stack))
	}
	for len(f.stack) > sp {
		f.Pop().DecRef()
	}
}

// ---------------------------------------------------------------------------
// Locals
// ---------------------------------------------------------------------------

// Local returns the local bound to name (borrowed).
func (f *Frame) Local(name string) (*object.Object, bool) {
	o, ok := f.locals[name]
	return o, ok
}

// SetLocal binds name to o, taking ownership. The previous value is
// released.
func (f *Frame) SetLocal(name string, o *object.Object) {
	if old, ok := f.locals[name]; ok {
		old.DecRef()
	}
	f.locals[name] = o
}

// Release drops every reference the frame holds.
func (f *Frame) Release() {
	f.RestoreSP(0)
	f.blocks = nil
	f.handlers = nil
	for name, o := range f.locals {
		o.DecRef()
		delete(f.locals, name)
	}
	ReleaseConstants(f.constants)
	f.constants = nil
}
