package resolution

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/crytic/sourcemapper/artifacts"
	"github.com/crytic/sourcemapper/disasm"
	"github.com/crytic/sourcemapper/logging"
)

// Resolver maps byte addresses within an artifact's bytecode to their originating source locations. The
// disassembly and decoded source map are computed once at construction and shared by reference thereafter, so a
// Resolver is safe for concurrent lookups.
type Resolver struct {
	// artifact is the normalized compiler output the resolver operates on.
	artifact *artifacts.Artifact

	// disassembly is the instruction list derived from the artifact's bytecode.
	disassembly *disasm.Disassembly

	// sourceMap holds one decoded entry per instruction index.
	sourceMap SourceMap

	// reconstructor renders best-effort snippets when literal source text is unavailable.
	reconstructor SnippetReconstructor

	// metadataStart is the byte offset at which the bytecode's trailing contract metadata begins, or the code
	// size when no metadata was detected. Source maps never cover the metadata bytes.
	metadataStart int

	// logger describes the resolution-scoped logger.
	logger *logging.Logger
}

// NewResolver derives the instruction list and decoded source map from the given artifact and returns a
// Resolver ready for repeated address lookups. Returns a SourceMapFormatError if the artifact's source map
// violates the format grammar.
func NewResolver(artifact *artifacts.Artifact) (*Resolver, error) {
	disassembly := disasm.Disassemble(artifact.Bytecode)
	sourceMap, err := ParseSourceMap(artifact.SourceMapRaw, len(disassembly.Instructions))
	if err != nil {
		return nil, err
	}

	return &Resolver{
		artifact:      artifact,
		disassembly:   disassembly,
		sourceMap:     sourceMap,
		reconstructor: NewASTReconstructor(artifact.ASTs),
		metadataStart: len(artifacts.TrimContractMetadata(artifact.Bytecode)),
		logger:        logging.GlobalLogger.NewSubLogger("module", "resolution"),
	}, nil
}

// SetReconstructor replaces the strategy used to render snippets for sources whose literal text is unavailable.
// Passing nil disables reconstruction entirely; such lookups yield an empty snippet.
func (r *Resolver) SetReconstructor(reconstructor SnippetReconstructor) {
	r.reconstructor = reconstructor
}

// SourceMap returns the decoded source map, one entry per instruction index.
func (r *Resolver) SourceMap() SourceMap {
	return r.sourceMap
}

// Disassembly returns the instruction list derived from the artifact's bytecode.
func (r *Resolver) Disassembly() *disasm.Disassembly {
	return r.disassembly
}

// EntryForAddress returns the source map entry for the instruction containing the given byte address. An
// address landing inside a PUSH operand resolves to the PUSH instruction's entry. Returns an
// AddressOutOfRangeError if the address lies outside the disassembled span.
func (r *Resolver) EntryForAddress(address uint64) (*SourceMapEntry, error) {
	if address >= uint64(r.disassembly.CodeSize()) {
		return nil, &AddressOutOfRangeError{Address: address, CodeSize: r.disassembly.CodeSize()}
	}
	index, ok := r.disassembly.InstructionIndexAtOffset(int(address))
	if !ok {
		return nil, &AddressOutOfRangeError{Address: address, CodeSize: r.disassembly.CodeSize()}
	}
	return &r.sourceMap[index], nil
}

// Resolve maps a hex-encoded byte address (0x-prefixed or bare) within the artifact's bytecode to its
// originating source location. Repeated calls with the same address yield identical results.
func (r *Resolver) Resolve(addressHex string) (*MapperResult, error) {
	address, err := ParseAddress(addressHex)
	if err != nil {
		return nil, err
	}
	entry, err := r.EntryForAddress(address)
	if err != nil {
		return nil, err
	}

	// Addresses within the trailing contract metadata are still in range, but the padded source map entries
	// covering them describe the last real instruction, not the metadata bytes.
	if address >= uint64(r.metadataStart) {
		r.logger.Warn("address 0x", strconv.FormatUint(address, 16), " falls within the trailing contract metadata")
	}

	result := r.mapEntry(entry)
	r.logger.Debug("resolved address 0x", strconv.FormatUint(address, 16), " to instruction ", entry.Index,
		logging.StructuredLogInfo{"file": result.File, "line": result.Line})
	return result, nil
}

// ResolveAddress is the one-shot form of resolution: it normalizes the given compiler output document for the
// requested contract, derives the lookups, and resolves a single hex address to its source location. Callers
// performing repeated lookups against the same document should load the artifact once and reuse a Resolver.
func ResolveAddress(document []byte, addressHex string, contractIdentifier string, sourceRoot string) (*MapperResult, error) {
	artifact, err := artifacts.Load(document, contractIdentifier, artifacts.LoadOptions{SourceRoot: sourceRoot})
	if err != nil {
		return nil, err
	}
	resolver, err := NewResolver(artifact)
	if err != nil {
		return nil, err
	}
	return resolver.Resolve(addressHex)
}

// ParseAddress parses a hex-encoded byte address, tolerating an optional 0x prefix.
func ParseAddress(addressHex string) (uint64, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(addressHex, "0x"), "0X")
	if trimmed == "" {
		return 0, fmt.Errorf("could not parse address '%s': empty hex string", addressHex)
	}
	address, err := strconv.ParseUint(trimmed, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("could not parse address '%s': %v", addressHex, err)
	}
	return address, nil
}
