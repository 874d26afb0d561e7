package resolution

import (
	"strconv"
	"strings"
)

// Reference: Source mapping is performed according to the rules specified in solidity documentation:
// https://docs.soliditylang.org/en/latest/internals/source_mappings.html

// SourceMapJumpType describes the type of jump operation occurring within a SourceMapEntry if the instruction
// is jumping.
type SourceMapJumpType string

const (
	// JumpTypeRegular indicates a regular jump or fall-through. Both the blank field of pre-0.4 documents and
	// the "-" code of later compilers decode to this value.
	JumpTypeRegular SourceMapJumpType = ""

	// JumpTypeInto indicates a jump into a function occurred.
	JumpTypeInto SourceMapJumpType = "i"

	// JumpTypeOut indicates a return from a function occurred.
	JumpTypeOut SourceMapJumpType = "o"
)

// SourceMap describes a list of entries, one per instruction index in the disassembled bytecode, describing
// which source file and start/length range of source code the instruction maps to.
type SourceMap []SourceMapEntry

// SourceMapEntry describes an individual entry of a source mapping output by the compiler. The index of each
// entry corresponds to an instruction index (not to be mistaken with a byte offset). Entries are produced once
// by decoding and never mutated after.
type SourceMapEntry struct {
	// Index refers to the index of the SourceMapEntry within its parent SourceMap, equal to the instruction
	// index it describes.
	Index int

	// Offset refers to the byte offset which marks the start of the source range the instruction maps to.
	Offset int

	// Length refers to the byte length of the source range the instruction maps to.
	Length int

	// FileIndex refers to the index of the source file housing the relevant source code. A value of -1 denotes
	// a synthetic, compiler-generated instruction with no corresponding source location.
	FileIndex int

	// JumpType refers to the SourceMapJumpType which provides information about any type of jump that occurred.
	JumpType SourceMapJumpType

	// ModifierDepth refers to the depth in which code has executed a modifier function. This is used to assist
	// debuggers, e.g. understanding if the same modifier is re-used multiple times in a call.
	ModifierDepth int
}

// ParseSourceMap takes a source mapping string returned by the compiler and decodes it into one SourceMapEntry
// per instruction index. Records are ";"-separated; fields within a record are ":"-separated and any omitted
// field inherits the value of the immediately preceding record. If the string carries fewer records than
// instructions, the last decoded values repeat for every remaining instruction index.
// Returns a SourceMapFormatError identifying the offending record if the string violates the format grammar.
func ParseSourceMap(sourceMapStr string, instructionCount int) (SourceMap, error) {
	sourceMap := make(SourceMap, 0, instructionCount)
	if instructionCount == 0 {
		return sourceMap, nil
	}

	// Separate all the individual source mapping records.
	records := strings.Split(sourceMapStr, ";")

	// The current entry carries the running value of each field, as omitted fields inherit the previous
	// record's value. Offset and length start out invalid: the first record must supply them explicitly.
	// File index, jump type and modifier depth have defined defaults.
	current := SourceMapEntry{
		Index:         -1,
		Offset:        -1,
		Length:        -1,
		FileIndex:     0,
		JumpType:      JumpTypeRegular,
		ModifierDepth: 0,
	}

	for i, record := range records {
		// Entries beyond the instruction count describe nothing we can resolve against.
		if len(sourceMap) == instructionCount {
			break
		}
		current.Index = len(sourceMap)

		// An empty record inherits every field from the previous record.
		if len(record) > 0 {
			fields := strings.Split(record, ":")

			// If the source range start offset exists, update our current entry data.
			if len(fields) > 0 && fields[0] != "" {
				offset, err := strconv.Atoi(fields[0])
				if err != nil {
					return nil, &SourceMapFormatError{Index: i, Record: record, Reason: "start offset is not numeric"}
				}
				current.Offset = offset
			}

			// If the source range length exists, update our current entry data.
			if len(fields) > 1 && fields[1] != "" {
				length, err := strconv.Atoi(fields[1])
				if err != nil {
					return nil, &SourceMapFormatError{Index: i, Record: record, Reason: "length is not numeric"}
				}
				current.Length = length
			}

			// If the source file index exists, update our current entry data.
			if len(fields) > 2 && fields[2] != "" {
				fileIndex, err := strconv.Atoi(fields[2])
				if err != nil {
					return nil, &SourceMapFormatError{Index: i, Record: record, Reason: "file index is not numeric"}
				}
				current.FileIndex = fileIndex
			}

			// If the jump type information exists, update our current entry data.
			if len(fields) > 3 && fields[3] != "" {
				switch fields[3] {
				case "i":
					current.JumpType = JumpTypeInto
				case "o":
					current.JumpType = JumpTypeOut
				case "-":
					current.JumpType = JumpTypeRegular
				default:
					return nil, &SourceMapFormatError{Index: i, Record: record, Reason: "unknown jump type '" + fields[3] + "'"}
				}
			}

			// If the modifier call depth exists, update our current entry data.
			if len(fields) > 4 && fields[4] != "" {
				modifierDepth, err := strconv.Atoi(fields[4])
				if err != nil {
					return nil, &SourceMapFormatError{Index: i, Record: record, Reason: "modifier depth is not numeric"}
				}
				current.ModifierDepth = modifierDepth
			}
		}

		// A record referencing a real source file must have a resolved start offset and length, supplied either
		// directly or inherited from an earlier record. This rejects a first record that omits them (there is
		// nothing to inherit from) and a later record that inherits them from a synthetic entry. Negative values
		// remain legal for synthetic entries (file index -1).
		if current.FileIndex >= 0 && (current.Offset < 0 || current.Length < 0) {
			return nil, &SourceMapFormatError{Index: i, Record: record, Reason: "record references a source file without a resolved start and length"}
		}

		sourceMap = append(sourceMap, current)
	}

	// Left-pad implicitly: the last decoded values repeat for every instruction index beyond the last record.
	for len(sourceMap) < instructionCount {
		current.Index = len(sourceMap)
		sourceMap = append(sourceMap, current)
	}

	return sourceMap, nil
}
