package vm

import (
	"github.com/chazu/saffire/object"
)

// ---------------------------------------------------------------------------
// Non-local exits
// ---------------------------------------------------------------------------

// Break leaves the innermost loop. Try scopes between the exit and the loop
// are discarded without running their clauses. With useElse the frame jumps
// to the loop's else target, otherwise to its break target.
func (f *Frame) Break(useElse bool) {
	for {
		b := f.PopBlock()
		f.RestoreSP(b.SP)
		f.dropHandlers(len(f.blocks))
		if b.Kind != BlockLoop {
			continue
		}
		if useElse {
			f.IP = b.Else
		} else {
			f.IP = b.Break
		}
		return
	}
}

// Continue jumps to target inside the innermost loop, discarding try scopes
// opened since the loop was entered. The loop block stays in place.
func (f *Frame) Continue(target int) {
	for f.PeekBlock().Kind != BlockLoop {
		b := f.PopBlock()
		f.RestoreSP(b.SP)
	}
	f.dropHandlers(len(f.blocks) - 1)
	f.IP = target
}

// Return unwinds every block of the frame, restoring each recorded stack
// depth. Catch targets are never entered.
func (f *Frame) Return() {
	for len(f.blocks) > 0 {
		b := f.PopBlock()
		f.RestoreSP(b.SP)
	}
	f.handlers = f.handlers[:0]
}

// ---------------------------------------------------------------------------
// Exceptions
// ---------------------------------------------------------------------------

// HandleException unwinds the frame up to the innermost try scope when an
// exception is in flight. The block is popped, the stack restored to the
// depth recorded by the try, the exception pushed as the only value the
// handler sees and the frame positioned at the catch target. It reports
// false, with the block stack emptied, when the frame has no try scope.
func (f *Frame) HandleException(rt *object.Runtime) bool {
	if !rt.ExceptionPending() {
		return false
	}
	for len(f.blocks) > 0 {
		b := f.PopBlock()
		f.RestoreSP(b.SP)
		depth := len(f.blocks)
		f.dropHandlers(depth)
		if b.Kind != BlockException {
			continue
		}
		f.Push(rt.TakeException())
		f.handlers = append(f.handlers, handler{block: b, stage: stageCatch, depth: depth})
		f.IP = b.Catch
		return true
	}
	f.handlers = f.handlers[:0]
	return false
}

// CompleteCatch moves to the finally clause of b after its catch clause
// completed normally.
func (f *Frame) CompleteCatch(b Block) {
	f.IP = b.Finally
}

// CompleteFinally moves past the finally clause of b.
func (f *Frame) CompleteFinally(b Block) {
	f.IP = b.EndFinally
}

// leaveTry handles the normal end of a try body: the finally clause of b
// runs next.
func (f *Frame) leaveTry(b Block) {
	f.handlers = append(f.handlers, handler{block: b, stage: stageFinally, depth: len(f.blocks)})
	f.IP = b.Finally
}

// EndFinally closes the running catch or finally clause of the innermost
// handled try scope.
func (f *Frame) EndFinally() {
	n := len(f.handlers)
	if n == 0 {
		consistency("EndFinally", "no catch or finally clause is running in frame %q", f.Name())
	}
	h := &f.handlers[n-1]
	if h.stage == stageCatch {
		h.stage = stageFinally
		f.CompleteCatch(h.block)
		return
	}
	b := h.block
	f.handlers = f.handlers[:n-1]
	f.CompleteFinally(b)
}
