package bytecode

import "fmt"

// Opcode is a single VM instruction. Operands follow the opcode as
// little-endian uint16 values.
type Opcode byte

const (
	OpStop Opcode = iota
	OpPop
	OpDup
	OpLoadConst
	OpLoadID
	OpStoreID
	OpJumpAbs
	OpJumpIfTrue
	OpJumpIfFalse
	OpCall
	OpReturn
	OpSetupLoop
	OpSetupExcept
	OpPopBlock
	OpBreakLoop
	OpBreakElse
	OpContinueLoop
	OpEndFinally
	OpThrow

	numOpcodes
)

// OperandSize is the encoded width of one operand.
const OperandSize = 2

type opInfo struct {
	name     string
	operands int
}

var opTable = [numOpcodes]opInfo{
	OpStop:         {"STOP", 0},
	OpPop:          {"POP", 0},
	OpDup:          {"DUP", 0},
	OpLoadConst:    {"LOAD_CONST", 1},
	OpLoadID:       {"LOAD_ID", 1},
	OpStoreID:      {"STORE_ID", 1},
	OpJumpAbs:      {"JUMP_ABSOLUTE", 1},
	OpJumpIfTrue:   {"JUMP_IF_TRUE", 1},
	OpJumpIfFalse:  {"JUMP_IF_FALSE", 1},
	OpCall:         {"CALL", 1},
	OpReturn:       {"RETURN", 0},
	OpSetupLoop:    {"SETUP_LOOP", 2},   // break, else
	OpSetupExcept:  {"SETUP_EXCEPT", 3}, // catch, finally, end finally
	OpPopBlock:     {"POP_BLOCK", 0},
	OpBreakLoop:    {"BREAK_LOOP", 0},
	OpBreakElse:    {"BREAK_ELSE", 0},
	OpContinueLoop: {"CONTINUE_LOOP", 1},
	OpEndFinally:   {"END_FINALLY", 0},
	OpThrow:        {"THROW", 0},
}

// Valid reports whether op is a known opcode.
func (op Opcode) Valid() bool {
	return op < numOpcodes
}

// Operands returns the number of operands op takes.
func (op Opcode) Operands() int {
	if !op.Valid() {
		return 0
	}
	return opTable[op].operands
}

// Width returns the encoded size of the instruction in bytes.
func (op Opcode) Width() int {
	return 1 + op.Operands()*OperandSize
}

func (op Opcode) String() string {
	if !op.Valid() {
		return fmt.Sprintf("OP_%#02x", byte(op))
	}
	return opTable[op].name
}
