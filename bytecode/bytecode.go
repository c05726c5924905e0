// Package bytecode defines the in-memory representation of a compiled saffire
// frame, the builder used by the assembler to produce it, and the CBOR
// marshal step used by the container format.
package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
)

// ConstantKind identifies the type of a constant pool entry.
type ConstantKind uint8

const (
	ConstString    ConstantKind = 1
	ConstNumerical ConstantKind = 2
	ConstCode      ConstantKind = 3
	ConstRegex     ConstantKind = 4
)

func (k ConstantKind) String() string {
	switch k {
	case ConstString:
		return "string"
	case ConstNumerical:
		return "numerical"
	case ConstCode:
		return "code"
	case ConstRegex:
		return "regex"
	}
	return fmt.Sprintf("ConstantKind(%d)", k)
}

// Constant is one constant pool entry. String carries the value of string
// and regex constants, Number the value of numerical ones and Code the nested
// frame of code constants.
type Constant struct {
	Kind   ConstantKind `cbor:"1,keyasint"`
	String string       `cbor:"2,keyasint,omitempty"`
	Number int64        `cbor:"3,keyasint,omitempty"`
	Code   *Bytecode    `cbor:"4,keyasint,omitempty"`
}

func (c Constant) describe() string {
	switch c.Kind {
	case ConstString:
		return fmt.Sprintf("%q", c.String)
	case ConstNumerical:
		return fmt.Sprintf("%d", c.Number)
	case ConstRegex:
		return "/" + c.String + "/"
	case ConstCode:
		if c.Code != nil {
			return "<code " + c.Code.Name + ">"
		}
		return "<code>"
	}
	return "?"
}

// LineEntry records that code from Offset onwards originates from Line.
type LineEntry struct {
	Offset int `cbor:"1,keyasint"`
	Line   int `cbor:"2,keyasint"`
}

// Bytecode is a compiled frame.
type Bytecode struct {
	Name        string      `cbor:"1,keyasint"`
	StackSize   int         `cbor:"2,keyasint"`
	Code        []byte      `cbor:"3,keyasint"`
	Constants   []Constant  `cbor:"4,keyasint,omitempty"`
	Identifiers []string    `cbor:"5,keyasint,omitempty"`
	Lines       []LineEntry `cbor:"6,keyasint,omitempty"`

	// SourceFilename is the absolute path of the source file. It is set by
	// the loader and never persisted.
	SourceFilename string `cbor:"-"`
}

// LineFor returns the source line of the instruction at offset, or 0 when the
// line table does not cover it.
func (bc *Bytecode) LineFor(offset int) int {
	i := sort.Search(len(bc.Lines), func(i int) bool {
		return bc.Lines[i].Offset > offset
	})
	if i == 0 {
		return 0
	}
	return bc.Lines[i-1].Line
}

// Instruction is one decoded instruction.
type Instruction struct {
	Offset   int
	Op       Opcode
	Operands []int
}

var ErrTruncated = errors.New("bytecode: truncated instruction")

// Decode returns the instruction at offset.
func (bc *Bytecode) Decode(offset int) (Instruction, error) {
	if offset < 0 || offset >= len(bc.Code) {
		return Instruction{}, fmt.Errorf("%w at offset %d", ErrTruncated, offset)
	}
	op := Opcode(bc.Code[offset])
	if !op.Valid() {
		return Instruction{}, fmt.Errorf("bytecode: invalid opcode %#02x at offset %d", byte(op), offset)
	}
	if offset+op.Width() > len(bc.Code) {
		return Instruction{}, fmt.Errorf("%w: %s at offset %d", ErrTruncated, op, offset)
	}
	ins := Instruction{Offset: offset, Op: op}
	for i := 0; i < op.Operands(); i++ {
		p := offset + 1 + i*OperandSize
		ins.Operands = append(ins.Operands, int(binary.LittleEndian.Uint16(bc.Code[p:])))
	}
	return ins, nil
}

// Instructions decodes the whole code block.
func (bc *Bytecode) Instructions() ([]Instruction, error) {
	var out []Instruction
	for off := 0; off < len(bc.Code); {
		ins, err := bc.Decode(off)
		if err != nil {
			return out, err
		}
		out = append(out, ins)
		off += ins.Op.Width()
	}
	return out, nil
}

// Disassemble writes a listing of the frame and its nested code constants.
func (bc *Bytecode) Disassemble(w io.Writer) error {
	fmt.Fprintf(w, "frame %q (stack %d)\n", bc.Name, bc.StackSize)
	for i, c := range bc.Constants {
		fmt.Fprintf(w, "  const %3d  %-9s %s\n", i, c.Kind, c.describe())
	}
	for i, id := range bc.Identifiers {
		fmt.Fprintf(w, "  id    %3d  %s\n", i, id)
	}
	instructions, err := bc.Instructions()
	for _, ins := range instructions {
		fmt.Fprintf(w, "  %04d  line %-4d %-14s", ins.Offset, bc.LineFor(ins.Offset), ins.Op)
		for _, opr := range ins.Operands {
			fmt.Fprintf(w, " %d", opr)
		}
		fmt.Fprintln(w)
	}
	if err != nil {
		return err
	}
	for _, c := range bc.Constants {
		if c.Kind == ConstCode && c.Code != nil {
			if err := c.Code.Disassemble(w); err != nil {
				return err
			}
		}
	}
	return nil
}
