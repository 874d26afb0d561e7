package resolution

import "fmt"

// SourceMapFormatError describes a source map record which violates the format grammar. It is fatal for the
// artifact being resolved: no partially decoded source map is ever retained.
type SourceMapFormatError struct {
	// Index refers to the position of the offending record within the source map string.
	Index int

	// Record is the raw text of the offending record.
	Record string

	// Reason describes the grammar violation.
	Reason string
}

// Error returns the error message string, implementing the `error` interface.
func (e *SourceMapFormatError) Error() string {
	return fmt.Sprintf("malformed source map record %d ('%s'): %s", e.Index, e.Record, e.Reason)
}

// AddressOutOfRangeError describes a requested address which lies outside the disassembled instruction span.
// It is recoverable at the call site and does not invalidate the resolver or its artifact.
type AddressOutOfRangeError struct {
	// Address is the requested byte offset.
	Address uint64

	// CodeSize is the byte length of the disassembled bytecode; valid addresses lie in [0, CodeSize).
	CodeSize int
}

// Error returns the error message string, implementing the `error` interface.
func (e *AddressOutOfRangeError) Error() string {
	return fmt.Sprintf("address 0x%x is outside the disassembled bytecode span of %d bytes", e.Address, e.CodeSize)
}
