package object

import (
	"fmt"
	"strconv"
)

// Exception codes raised by the runtime itself.
const (
	ExceptionGeneric        int64 = 0
	ExceptionMethodNotFound int64 = 1
	ExceptionNotCallable    int64 = 2
	ExceptionAbstractCall   int64 = 3
	ExceptionArgument       int64 = 4
	ExceptionImmutable      int64 = 5
)

// ExceptionData is the data block of exception objects.
type ExceptionData struct {
	Code    int64
	Message string
}

func (d *ExceptionData) Fresh() Data { return &ExceptionData{} }

// Populate accepts an optional message followed by an optional code.
func (d *ExceptionData) Populate(rt *Runtime, obj *Object, args []*Object) error {
	if len(args) > 0 {
		msg, ok := StringValue(args[0])
		if !ok {
			return fmt.Errorf("%w: exception message must be a string", ErrBadArguments)
		}
		d.Message = msg
	}
	if len(args) > 1 {
		code, ok := NumericalValue(args[1])
		if !ok {
			return fmt.Errorf("%w: exception code must be numerical", ErrBadArguments)
		}
		d.Code = code
	}
	return nil
}

func (d *ExceptionData) Clone(obj *Object) Data {
	c := *d
	return &c
}

func (d *ExceptionData) Debug(obj *Object) string {
	return obj.name + "(" + strconv.FormatInt(d.Code, 10) + ", " + strconv.Quote(d.Message) + ")"
}

// ExceptionOf returns the data block of an exception object, or nil.
func ExceptionOf(o *Object) *ExceptionData {
	if o == nil {
		return nil
	}
	d, _ := o.data.(*ExceptionData)
	return d
}

// ---------------------------------------------------------------------------
// In-flight exception slot
// ---------------------------------------------------------------------------

// RaiseException allocates an instance of class with the given code and
// formatted message and makes it the in-flight exception, replacing any
// previous one. A nil class raises the built-in exception class.
func (rt *Runtime) RaiseException(class *Object, code int64, format string, args ...any) {
	if class == nil {
		class = rt.classes[TypeException]
	}
	if class.typ != TypeException || !class.IsClass() {
		invariant("RaiseException", class, "not an exception class")
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	exc := rt.newInstance(class, &ExceptionData{Code: code, Message: msg})
	exc.copyShape(class)
	rt.setException(exc)
	log.Debugf("raised %s", Debug(exc))
}

// Throw makes an existing exception object the in-flight exception. The
// reference is borrowed.
func (rt *Runtime) Throw(exc *Object) {
	if exc.typ != TypeException {
		invariant("Throw", exc, "not an exception")
	}
	exc.IncRef()
	rt.setException(exc)
}

func (rt *Runtime) setException(exc *Object) {
	if rt.exception != nil {
		rt.exception.DecRef()
	}
	rt.exception = exc
}

// Exception returns the in-flight exception (borrowed), or nil.
func (rt *Runtime) Exception() *Object {
	return rt.exception
}

// ExceptionPending reports whether an exception is in flight.
func (rt *Runtime) ExceptionPending() bool {
	return rt.exception != nil
}

// TakeException clears the in-flight slot and hands its reference to the
// caller.
func (rt *Runtime) TakeException() *Object {
	exc := rt.exception
	rt.exception = nil
	return exc
}

// ClearException drops the in-flight exception.
func (rt *Runtime) ClearException() {
	if rt.exception != nil {
		rt.exception.DecRef()
		rt.exception = nil
	}
}

func (rt *Runtime) initException() {
	class := rt.classes[TypeException]
	class.AddInternalMethod("code", MethodNone, VisibilityPublic, func(rt *Runtime, self *Object, args []*Object) *Object {
		d := ExceptionOf(self)
		if d == nil {
			return rt.NewNumerical(0)
		}
		return rt.NewNumerical(d.Code)
	})
	class.AddInternalMethod("message", MethodNone, VisibilityPublic, func(rt *Runtime, self *Object, args []*Object) *Object {
		d := ExceptionOf(self)
		if d == nil {
			return rt.NewString("")
		}
		return rt.NewString(d.Message)
	})
}
