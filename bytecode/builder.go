package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Operand is an instruction argument: either an immediate value or a
// reference to a label resolved when the frame is built.
type Operand struct {
	value int
	label string
}

// Int returns an immediate operand.
func Int(n int) Operand { return Operand{value: n} }

// To returns an operand that resolves to the offset of label.
func To(label string) Operand { return Operand{label: label} }

type patch struct {
	at    int
	label string
	line  int
}

type constKey struct {
	kind ConstantKind
	s    string
	n    int64
}

// Builder assembles a frame. Constant and identifier pools are deduplicated
// and the line table records every line-number transition. The first error
// sticks and is reported by Build.
type Builder struct {
	name      string
	stackSize int

	constants  []Constant
	constIndex map[constKey]int

	identifiers []string
	idIndex     map[string]int

	code     []byte
	lines    []LineEntry
	labels   map[string]int
	patches  []patch
	lastLine int

	err error
}

// NewBuilder returns a builder for a frame called name.
func NewBuilder(name string) *Builder {
	return &Builder{
		name:       name,
		constIndex: make(map[constKey]int),
		idIndex:    make(map[string]int),
		labels:     make(map[string]int),
		lastLine:   -1,
	}
}

// String adds a string constant and returns its pool index.
func (b *Builder) String(s string) int {
	return b.constant(Constant{Kind: ConstString, String: s})
}

// Numerical adds a numerical constant and returns its pool index.
func (b *Builder) Numerical(n int64) int {
	return b.constant(Constant{Kind: ConstNumerical, Number: n})
}

// Regex adds a regex constant and returns its pool index.
func (b *Builder) Regex(pattern string) int {
	return b.constant(Constant{Kind: ConstRegex, String: pattern})
}

// Code adds a nested frame. Code constants are never deduplicated.
func (b *Builder) Code(bc *Bytecode) int {
	b.constants = append(b.constants, Constant{Kind: ConstCode, Code: bc})
	return len(b.constants) - 1
}

func (b *Builder) constant(c Constant) int {
	key := constKey{kind: c.Kind, s: c.String, n: c.Number}
	if i, ok := b.constIndex[key]; ok {
		return i
	}
	b.constants = append(b.constants, c)
	i := len(b.constants) - 1
	b.constIndex[key] = i
	return i
}

// Identifier adds a name to the identifier pool and returns its index.
func (b *Builder) Identifier(name string) int {
	if i, ok := b.idIndex[name]; ok {
		return i
	}
	b.identifiers = append(b.identifiers, name)
	i := len(b.identifiers) - 1
	b.idIndex[name] = i
	return i
}

// SetStackSize records the maximum value stack depth of the frame.
func (b *Builder) SetStackSize(n int) {
	if n > b.stackSize {
		b.stackSize = n
	}
}

// Mark defines label at the current code offset.
func (b *Builder) Mark(label string) {
	if _, dup := b.labels[label]; dup {
		b.fail(fmt.Errorf("bytecode: label %q defined twice", label))
		return
	}
	b.labels[label] = len(b.code)
}

// Offset returns the current code offset.
func (b *Builder) Offset() int {
	return len(b.code)
}

// Emit appends one instruction originating from the given source line.
func (b *Builder) Emit(line int, op Opcode, operands ...Operand) {
	if b.err != nil {
		return
	}
	if !op.Valid() {
		b.fail(fmt.Errorf("bytecode: invalid opcode %#02x on line %d", byte(op), line))
		return
	}
	if len(operands) != op.Operands() {
		b.fail(fmt.Errorf("bytecode: %s takes %d operands, got %d on line %d", op, op.Operands(), len(operands), line))
		return
	}
	if line != b.lastLine {
		b.lines = append(b.lines, LineEntry{Offset: len(b.code), Line: line})
		b.lastLine = line
	}
	b.code = append(b.code, byte(op))
	for _, opr := range operands {
		if opr.label != "" {
			b.patches = append(b.patches, patch{at: len(b.code), label: opr.label, line: line})
		} else if opr.value < 0 || opr.value > math.MaxUint16 {
			b.fail(fmt.Errorf("bytecode: operand %d of %s out of range on line %d", opr.value, op, line))
			return
		}
		b.code = binary.LittleEndian.AppendUint16(b.code, uint16(opr.value))
	}
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Build resolves label references and returns the frame.
func (b *Builder) Build() (*Bytecode, error) {
	if b.err != nil {
		return nil, b.err
	}
	for _, p := range b.patches {
		target, ok := b.labels[p.label]
		if !ok {
			return nil, fmt.Errorf("bytecode: undefined label %q on line %d", p.label, p.line)
		}
		if target > math.MaxUint16 {
			return nil, fmt.Errorf("bytecode: label %q at offset %d out of range", p.label, target)
		}
		binary.LittleEndian.PutUint16(b.code[p.at:], uint16(target))
	}
	bc := &Bytecode{
		Name:        b.name,
		StackSize:   b.stackSize,
		Code:        append([]byte(nil), b.code...),
		Constants:   append([]Constant(nil), b.constants...),
		Identifiers: append([]string(nil), b.identifiers...),
		Lines:       append([]LineEntry(nil), b.lines...),
	}
	return bc, nil
}
