package disasm

import (
	"encoding/hex"
	"testing"

	"github.com/crytic/medusa-geth/core/vm"
	"github.com/stretchr/testify/assert"
)

// mustDecodeHex decodes a hex string, failing the test on error.
func mustDecodeHex(t *testing.T, s string) []byte {
	bytecode, err := hex.DecodeString(s)
	assert.NoError(t, err)
	return bytecode
}

// TestDisassemblePushOperands verifies PUSH instructions consume their declared operand bytes and decode their
// immediate values.
func TestDisassemblePushOperands(t *testing.T) {
	// PUSH1 0x80, PUSH1 0x40: the canonical free memory pointer prologue.
	disassembly := Disassemble(mustDecodeHex(t, "60806040"))
	assert.Equal(t, 2, len(disassembly.Instructions))
	assert.Equal(t, 4, disassembly.CodeSize())

	first := disassembly.Instructions[0]
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, 0, first.Offset)
	assert.Equal(t, 2, first.Length)
	assert.Equal(t, vm.PUSH1, first.OpCode)
	assert.NotNil(t, first.PushValue)
	assert.Equal(t, uint64(0x80), first.PushValue.Uint64())

	second := disassembly.Instructions[1]
	assert.Equal(t, 1, second.Index)
	assert.Equal(t, 2, second.Offset)
	assert.Equal(t, 2, second.Length)
	assert.Equal(t, uint64(0x40), second.PushValue.Uint64())
}

// TestDisassembleNonPushOpcodes verifies plain opcodes occupy a single byte and carry no immediate.
func TestDisassembleNonPushOpcodes(t *testing.T) {
	// CALLVALUE DUP1 ISZERO JUMPDEST STOP
	disassembly := Disassemble(mustDecodeHex(t, "3480155b00"))
	assert.Equal(t, 5, len(disassembly.Instructions))
	for i, instruction := range disassembly.Instructions {
		assert.Equal(t, i, instruction.Index)
		assert.Equal(t, i, instruction.Offset)
		assert.Equal(t, 1, instruction.Length)
		assert.Nil(t, instruction.PushValue)
	}
	assert.Equal(t, vm.CALLVALUE, disassembly.Instructions[0].OpCode)
	assert.Equal(t, vm.JUMPDEST, disassembly.Instructions[3].OpCode)
	assert.Equal(t, vm.STOP, disassembly.Instructions[4].OpCode)
}

// TestDisassemblePushZero verifies PUSH0 carries no operand bytes.
func TestDisassemblePushZero(t *testing.T) {
	// PUSH0 PUSH0 ADD
	disassembly := Disassemble([]byte{0x5f, 0x5f, 0x01})
	assert.Equal(t, 3, len(disassembly.Instructions))
	assert.Equal(t, 1, disassembly.Instructions[0].Length)
	assert.Nil(t, disassembly.Instructions[0].PushValue)
	assert.Equal(t, vm.ADD, disassembly.Instructions[2].OpCode)
}

// TestDisassembleTruncatedPush verifies a trailing PUSH whose operand runs past the end of the buffer decodes as
// a truncated final instruction rather than failing. Deployed bytecode is often trimmed of trailing metadata, so
// this shape is legal input.
func TestDisassembleTruncatedPush(t *testing.T) {
	// PUSH32 with only two of its declared thirty-two operand bytes present.
	disassembly := Disassemble([]byte{0x7f, 0x01, 0x02})
	assert.Equal(t, 1, len(disassembly.Instructions))

	instruction := disassembly.Instructions[0]
	assert.Equal(t, vm.PUSH32, instruction.OpCode)
	assert.Equal(t, 3, instruction.Length)
	assert.NotNil(t, instruction.PushValue)
	assert.Equal(t, uint64(0x0102), instruction.PushValue.Uint64())

	// A PUSH as the very last byte has no operand bytes at all.
	disassembly = Disassemble([]byte{0x00, 0x60})
	assert.Equal(t, 2, len(disassembly.Instructions))
	last := disassembly.Instructions[1]
	assert.Equal(t, 1, last.Length)
	assert.Nil(t, last.PushValue)
}

// TestDisassemblyPartitionsBytecode verifies the instruction lengths sum exactly to the bytecode length with no
// gaps or overlaps, for a bytecode mixing plain opcodes and PUSH operands.
func TestDisassemblyPartitionsBytecode(t *testing.T) {
	bytecode := mustDecodeHex(t, "608060405234801561001057600080fd5b50")
	disassembly := Disassemble(bytecode)

	expectedOffset := 0
	for _, instruction := range disassembly.Instructions {
		assert.Equal(t, expectedOffset, instruction.Offset)
		expectedOffset += instruction.Length
	}
	assert.Equal(t, len(bytecode), expectedOffset)
	assert.Equal(t, len(bytecode), disassembly.CodeSize())
}

// TestInstructionIndexAtOffset verifies reverse lookup resolves operand-interior offsets to their containing
// PUSH instruction, and rejects offsets outside the disassembled span.
func TestInstructionIndexAtOffset(t *testing.T) {
	// PUSH2 0xAABB, STOP
	disassembly := Disassemble([]byte{0x61, 0xaa, 0xbb, 0x00})

	// Offsets within the PUSH2 instruction, including its operand bytes, resolve to instruction 0.
	for offset := 0; offset <= 2; offset++ {
		index, ok := disassembly.InstructionIndexAtOffset(offset)
		assert.True(t, ok)
		assert.Equal(t, 0, index)
	}

	// The STOP at offset 3 resolves to instruction 1.
	index, ok := disassembly.InstructionIndexAtOffset(3)
	assert.True(t, ok)
	assert.Equal(t, 1, index)

	// Offsets outside the span do not resolve.
	_, ok = disassembly.InstructionIndexAtOffset(4)
	assert.False(t, ok)
	_, ok = disassembly.InstructionIndexAtOffset(-1)
	assert.False(t, ok)

	// The convenience form returns the instruction itself.
	instruction := disassembly.InstructionAtOffset(1)
	assert.NotNil(t, instruction)
	assert.Equal(t, vm.PUSH2, instruction.OpCode)
	assert.Nil(t, disassembly.InstructionAtOffset(100))
}

// TestDisassembleEmptyBytecode verifies empty input yields an empty instruction list.
func TestDisassembleEmptyBytecode(t *testing.T) {
	disassembly := Disassemble(nil)
	assert.Equal(t, 0, len(disassembly.Instructions))
	assert.Equal(t, 0, disassembly.CodeSize())
	_, ok := disassembly.InstructionIndexAtOffset(0)
	assert.False(t, ok)
}
