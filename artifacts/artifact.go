package artifacts

import (
	"bytes"

	"github.com/Masterminds/semver"
	"github.com/crytic/sourcemapper/logging"
	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
)

// SourceFile describes a single source file referenced by a compiler output document. Its index matches the file
// indexes used by the source map.
type SourceFile struct {
	// Index refers to the position of this file within its parent Artifact's source table. File indexes referenced
	// by source map entries resolve against this.
	Index int

	// Path describes the source file path as recorded by the compiler. It may be empty for legacy documents which
	// carry a single implicit source.
	Path string

	// Content describes the literal source text. A nil Content marks the file as unavailable, in which case line
	// resolution degrades to reconstruction mode.
	Content []byte
}

// Available returns a boolean indicating whether literal source text was resolved for this file.
func (s *SourceFile) Available() bool {
	return s.Content != nil
}

// Artifact represents the canonical, schema-independent form of a compiler output document for a single contract.
// It is built once per document and is read-only thereafter; derived lookups may be shared across goroutines.
type Artifact struct {
	// ID is a unique identifier assigned at load time, used to correlate log output across repeated lookups
	// against the same artifact.
	ID uuid.UUID

	// ContractName describes the name of the contract this artifact was normalized for.
	ContractName string

	// Bytecode describes the selected bytecode. By default this is the deployed/runtime bytecode; it is the
	// creation bytecode only when the artifact was loaded with LoadOptions.Creation set.
	Bytecode []byte

	// SourceMapRaw describes the raw source mapping string matching Bytecode. Runtime bytecode is always paired
	// with the runtime source map, and creation bytecode with the creation source map.
	SourceMapRaw string

	// Sources describes the ordered source file table. Indexes are dense and zero-based, matching the file
	// indexes referenced by the source map.
	Sources []SourceFile

	// ASTs maps a source file index to the raw decoded AST for that file, when the document provided one. It is
	// used for best-effort snippet reconstruction when literal source text is unavailable.
	ASTs map[int]any

	// CompilerVersion describes the compiler version recorded in the contract's metadata, if any was found.
	CompilerVersion *semver.Version

	// logger describes the artifact-scoped logger used to report non-fatal conditions such as missing sources.
	logger *logging.Logger
}

// newArtifact creates an empty Artifact with a fresh correlation ID and an artifact-scoped sub-logger.
func newArtifact(contractName string) *Artifact {
	id := uuid.New()
	return &Artifact{
		ID:           id,
		ContractName: contractName,
		ASTs:         make(map[int]any),
		logger:       logging.GlobalLogger.NewSubLogger("artifact", id.String()),
	}
}

// Source returns the SourceFile for the given file index, or nil if the index is out of bounds or negative
// (negative indexes denote compiler-generated code with no corresponding source).
func (a *Artifact) Source(fileIndex int) *SourceFile {
	if fileIndex < 0 || fileIndex >= len(a.Sources) {
		return nil
	}
	return &a.Sources[fileIndex]
}

// CodeHash returns the keccak256 hash of the artifact's selected bytecode. It serves as a stable identity for
// the loaded code in logs and matching.
func (a *Artifact) CodeHash() []byte {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(a.Bytecode)
	return hasher.Sum(nil)
}

// IsMatch returns a boolean indicating whether the provided deployed bytecode matches this artifact's bytecode.
// It first compares the bytecode hashes embedded in the trailing contract metadata, as deployed code may differ
// from compiled code due to immutables or linked libraries. If no metadata can be extracted from either side,
// it falls back to whole-code equality.
func (a *Artifact) IsMatch(deployedBytecode []byte) bool {
	deploymentMetadata := ExtractContractMetadata(deployedBytecode)
	definitionMetadata := ExtractContractMetadata(a.Bytecode)
	if deploymentMetadata != nil && definitionMetadata != nil {
		deploymentHash := deploymentMetadata.ExtractBytecodeHash()
		definitionHash := definitionMetadata.ExtractBytecodeHash()
		if deploymentHash != nil && definitionHash != nil {
			return bytes.Equal(deploymentHash, definitionHash)
		}
	}
	return bytes.Equal(deployedBytecode, a.Bytecode)
}
