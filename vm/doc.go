// Package vm executes saffire bytecode frames.
//
// Every frame owns a value stack and a block stack. Loop and try scopes are
// recorded on the block stack together with the value stack depth at which
// they were entered, so that any non-local exit can restore the stack
// exactly:
//
//   - BREAK_LOOP and BREAK_ELSE pop to the innermost loop block and jump to
//     its break or else target.
//   - A raised exception pops to the innermost exception block, pushes the
//     exception and jumps to the catch target. END_FINALLY then moves to the
//     finally clause and from there past it.
//   - RETURN pops every block of the frame without entering any catch clause.
//
// An exception that leaves the outermost frame of a Run is returned as an
// *UncaughtError. Block or value stack underflow is a *ConsistencyError,
// raised by panic inside the interpreter and recovered by Run.
package vm
