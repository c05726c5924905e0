package object

import (
	"errors"
	"fmt"
)

var (
	ErrNotAClass     = errors.New("object is not a class")
	ErrAbstract      = errors.New("cannot instantiate an abstract class or interface")
	ErrNotInterface  = errors.New("object is not an interface")
	ErrHasInstances  = errors.New("class already has instances")
	ErrImmutable     = errors.New("object is immutable")
	ErrConstant      = errors.New("cannot assign to a constant")
	ErrNotProperty   = errors.New("attribute is not a property")
	ErrUnhashable    = errors.New("object is not hashable")
	ErrBadArguments  = errors.New("invalid constructor arguments")
	ErrRaised        = errors.New("exception raised")
	ErrRuntimeClosed = errors.New("runtime has been shut down")
)

// InvariantError reports a violated object lifetime invariant, such as
// decrementing an object that has already been destroyed. It indicates a
// corrupted interpreter state and is delivered by panic.
type InvariantError struct {
	Op     string
	Name   string
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("object invariant violated: %s on %q: %s", e.Op, e.Name, e.Reason)
}

func invariant(op string, o *Object, reason string) {
	name := "<nil>"
	if o != nil {
		name = o.name
	}
	panic(&InvariantError{Op: op, Name: name, Reason: reason})
}
