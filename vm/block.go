package vm

import "fmt"

// ---------------------------------------------------------------------------
// Control-flow blocks
// ---------------------------------------------------------------------------

// BlockKind distinguishes loop scopes from try scopes.
type BlockKind uint8

const (
	BlockLoop BlockKind = iota + 1
	BlockException
)

func (k BlockKind) String() string {
	switch k {
	case BlockLoop:
		return "loop"
	case BlockException:
		return "exception"
	}
	return fmt.Sprintf("BlockKind(%d)", k)
}

// Block is one entry of a frame's block stack. SP is the value stack depth
// at the time the block was entered.
//
// Loop blocks use Break and Else. Exception blocks use Catch, Finally and
// EndFinally (the first instruction after the finally clause).
type Block struct {
	Kind BlockKind
	SP   int

	Break int
	Else  int

	Catch      int
	Finally    int
	EndFinally int
}

func (b Block) String() string {
	if b.Kind == BlockLoop {
		return fmt.Sprintf("loop(sp=%d break=%d else=%d)", b.SP, b.Break, b.Else)
	}
	return fmt.Sprintf("%s(sp=%d catch=%d finally=%d end=%d)", b.Kind, b.SP, b.Catch, b.Finally, b.EndFinally)
}

// PushLoopBlock enters a loop scope at stack depth sp.
func (f *Frame) PushLoopBlock(sp, breakTarget, elseTarget int) {
	f.blocks = append(f.blocks, Block{
		Kind:  BlockLoop,
		SP:    sp,
		Break: breakTarget,
		Else:  elseTarget,
	})
}

// PushExceptionBlock enters a try scope at stack depth sp.
func (f *Frame) PushExceptionBlock(sp, catchTarget, finallyTarget, endFinallyTarget int) {
	f.blocks = append(f.blocks, Block{
		Kind:       BlockException,
		SP:         sp,
		Catch:      catchTarget,
		Finally:    finallyTarget,
		EndFinally: endFinallyTarget,
	})
}

// PopBlock removes and returns the innermost block. An empty block stack
// panics with a *ConsistencyError.
func (f *Frame) PopBlock() Block {
	n := len(f.blocks)
	if n == 0 {
		consistency("PopBlock", "block stack underflow in frame %q", f.Name())
	}
	b := f.blocks[n-1]
	f.blocks = f.blocks[:n-1]
	return b
}

// PeekBlock returns the innermost block without removing it. An empty block
// stack panics with a *ConsistencyError.
func (f *Frame) PeekBlock() Block {
	n := len(f.blocks)
	if n == 0 {
		consistency("PeekBlock", "block stack underflow in frame %q", f.Name())
	}
	return f.blocks[n-1]
}

// BlockDepth returns the number of open blocks.
func (f *Frame) BlockDepth() int {
	return len(f.blocks)
}

// ---------------------------------------------------------------------------
// Handler stages
// ---------------------------------------------------------------------------

type stage uint8

const (
	stageCatch stage = iota
	stageFinally
)

// handler is a try scope whose block has been popped and whose catch or
// finally clause is running. depth is the block stack depth it belongs to.
type handler struct {
	block Block
	stage stage
	depth int
}

// dropHandlers forgets handlers opened deeper than depth.
func (f *Frame) dropHandlers(depth int) {
	n := len(f.handlers)
	for n > 0 && f.handlers[n-1].depth > depth {
		n--
	}
	f.handlers = f.handlers[:n]
}
