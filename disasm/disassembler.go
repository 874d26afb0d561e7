package disasm

import (
	"sort"

	"github.com/crytic/medusa-geth/core/vm"
	"github.com/holiman/uint256"
)

// Instruction describes a single decoded EVM instruction within a bytecode buffer.
type Instruction struct {
	// Index refers to the position of this instruction within its parent Disassembly. Source map entries are
	// indexed by this value.
	Index int

	// Offset refers to the byte offset at which the instruction's opcode byte resides.
	Offset int

	// Length refers to the number of bytes the instruction occupies: 1 for plain opcodes, 1 plus the operand
	// width for PUSH1..PUSH32. A trailing PUSH whose declared operand extends past the end of the buffer is
	// truncated to the remaining bytes.
	Length int

	// OpCode is the instruction's opcode byte.
	OpCode vm.OpCode

	// PushValue describes the immediate operand of a PUSH1..PUSH32 instruction. It is nil for all other
	// opcodes, including PUSH0 which carries no operand bytes.
	PushValue *uint256.Int
}

// Disassembly describes the ordered instruction list decoded from a bytecode buffer, along with a reverse
// lookup from byte offsets to instruction indexes. It is immutable after construction.
type Disassembly struct {
	// Instructions is the ordered list of decoded instructions. Instructions partition the bytecode with no
	// gaps or overlaps.
	Instructions []Instruction

	// offsets mirrors the byte offset of each instruction, kept separately for binary-searched reverse lookup.
	offsets []int

	// codeSize is the total byte length of the disassembled bytecode.
	codeSize int
}

// Disassemble decodes the provided bytecode into its ordered instruction list. Decoding never fails: a PUSH
// opcode whose declared operand length exceeds the remaining buffer produces a final instruction truncated to
// the remaining bytes, as deployed bytecode is often trimmed of trailing metadata.
func Disassemble(bytecode []byte) *Disassembly {
	disassembly := &Disassembly{
		Instructions: make([]Instruction, 0, len(bytecode)/2),
		offsets:      make([]int, 0, len(bytecode)/2),
		codeSize:     len(bytecode),
	}

	currentOffset := 0
	for currentOffset < len(bytecode) {
		op := vm.OpCode(bytecode[currentOffset])

		// Calculate the length of immediate data that follows this instruction.
		operandCount := 0
		if op.IsPush() && op != vm.PUSH0 {
			operandCount = int(op) - int(vm.PUSH1) + 1
		}

		instruction := Instruction{
			Index:  len(disassembly.Instructions),
			Offset: currentOffset,
			Length: operandCount + 1,
			OpCode: op,
		}

		// Truncate the final instruction if its operand would run past the end of the buffer.
		if currentOffset+instruction.Length > len(bytecode) {
			instruction.Length = len(bytecode) - currentOffset
		}

		// Decode the immediate operand for PUSH instructions.
		if operandCount > 0 && instruction.Length > 1 {
			operand := bytecode[currentOffset+1 : currentOffset+instruction.Length]
			instruction.PushValue = new(uint256.Int).SetBytes(operand)
		}

		disassembly.Instructions = append(disassembly.Instructions, instruction)
		disassembly.offsets = append(disassembly.offsets, currentOffset)
		currentOffset += instruction.Length
	}

	return disassembly
}

// CodeSize returns the total byte length of the disassembled bytecode, which equals the summed lengths of all
// instructions.
func (d *Disassembly) CodeSize() int {
	return d.codeSize
}

// InstructionIndexAtOffset returns the index of the instruction containing the given byte offset. An offset
// landing inside a PUSH operand resolves to the PUSH instruction itself, as the instruction is the unit of
// resolution. The boolean return indicates whether the offset falls within the disassembled span.
func (d *Disassembly) InstructionIndexAtOffset(offset int) (int, bool) {
	if offset < 0 || offset >= d.codeSize || len(d.offsets) == 0 {
		return 0, false
	}

	// Find the first instruction starting beyond the offset; the one before it contains the offset.
	index := sort.Search(len(d.offsets), func(i int) bool {
		return d.offsets[i] > offset
	})
	return index - 1, true
}

// InstructionAtOffset returns the instruction containing the given byte offset, or nil if the offset falls
// outside the disassembled span.
func (d *Disassembly) InstructionAtOffset(offset int) *Instruction {
	index, ok := d.InstructionIndexAtOffset(offset)
	if !ok {
		return nil
	}
	return &d.Instructions[index]
}
