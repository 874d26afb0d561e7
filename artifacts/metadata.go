package artifacts

import (
	"bytes"
	"encoding/json"

	"github.com/Masterminds/semver"
	"github.com/fxamacker/cbor"
)

// ContractMetadata is a CBOR-encoded structure describing contract information which is embedded within smart
// contract bytecode by the Solidity compiler (unless explicitly directed not to).
// Reference: https://docs.soliditylang.org/en/latest/metadata.html
type ContractMetadata map[string]any

// metadataHashPrefixes defines patterns to use in search for CBOR-encoded contract metadata appended to the end
// of bytecode.
var metadataHashPrefixes = [][]byte{
	{0xa1, 0x65, 98, 122, 122, 114, 48, 0x58, 0x20},  // a1 65 "bzzr0" 0x58 0x20 (solc <= 0.5.8)
	{0xa2, 0x65, 98, 122, 122, 114, 48, 0x58, 0x20},  // a2 65 "bzzr0" 0x58 0x20 (solc >= 0.5.9)
	{0xa2, 0x65, 98, 122, 122, 114, 49, 0x58, 0x20},  // a2 65 "bzzr1" 0x58 0x20 (solc >= 0.5.11)
	{0xa2, 0x64, 0x69, 0x70, 0x66, 0x73, 0x58, 0x22}, // a2 64 "ipfs" 0x58 0x22 (solc >= 0.6.0)
}

// bytecodeHashMetadataKeys defines the keys in the CBOR-encoded ContractMetadata which contain bytecode hashes.
var bytecodeHashMetadataKeys = [...]string{
	"bzzr0",
	"bzzr1",
	"ipfs",
}

// minTestedCompilerVersion is the lowest compiler version the resolution pipeline has been validated against.
// Older documents are still loaded, but a warning is logged.
var minTestedCompilerVersion = semver.MustParse("0.5.17")

// ExtractContractMetadata extracts contract metadata from the provided bytecode and returns it. If contract
// metadata could not be extracted, nil is returned.
func ExtractContractMetadata(bytecode []byte) *ContractMetadata {
	// Try matching each metadata hash prefix. Metadata is appended to the end of the bytecode.
	for _, metadataHashPrefix := range metadataHashPrefixes {
		metadataOffset := bytes.LastIndex(bytecode, metadataHashPrefix)
		if metadataOffset != -1 {
			var metadata ContractMetadata
			err := cbor.Unmarshal(bytecode[metadataOffset:], &metadata)
			if err != nil {
				continue
			}
			return &metadata
		}
	}
	return nil
}

// TrimContractMetadata attempts to detect trailing contract metadata within the provided bytecode and returns
// the bytecode up to where the metadata begins. If no metadata could be located, the input is returned as-is.
// Source maps never cover the metadata bytes, so addresses beyond the trimmed length cannot resolve to source.
func TrimContractMetadata(bytecode []byte) []byte {
	for _, metadataHashPrefix := range metadataHashPrefixes {
		metadataOffset := bytes.LastIndex(bytecode, metadataHashPrefix)
		if metadataOffset > 0 {
			return bytecode[:metadataOffset-1]
		}
	}
	return bytecode
}

// ExtractBytecodeHash extracts the bytecode hash from the given contract metadata and returns the bytes
// representing the hash. If it could not be detected or extracted, nil is returned.
func (m ContractMetadata) ExtractBytecodeHash() []byte {
	// Try every known metadata key to see if we can resolve the bytecode hash
	for _, possibleMetadataKey := range bytecodeHashMetadataKeys {
		if bytecodeHashData, keyExists := m[possibleMetadataKey]; keyExists {
			if bytecodeHash, ok := bytecodeHashData.([]byte); ok {
				return bytecodeHash
			}
		}
	}
	return nil
}

// solcMetadata describes the subset of the standard-json per-contract metadata blob the normalizer consumes:
// the compiler version, and literal source content when the document was produced with useLiteralContent.
type solcMetadata struct {
	Compiler struct {
		Version string `json:"version"`
	} `json:"compiler"`
	Sources map[string]struct {
		Content string `json:"content"`
	} `json:"sources"`
}

// parseSolcMetadata parses the JSON metadata string embedded in standard-json contract output. Returns nil if
// the metadata could not be parsed, as metadata is strictly supplemental.
func parseSolcMetadata(metadataJSON string) *solcMetadata {
	if metadataJSON == "" {
		return nil
	}
	var metadata solcMetadata
	if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
		return nil
	}
	return &metadata
}

// parseCompilerVersion parses a semantic compiler version out of a metadata version string such as
// "0.8.17+commit.8df45f5f". Returns nil if no version could be parsed.
func parseCompilerVersion(versionStr string) *semver.Version {
	if versionStr == "" {
		return nil
	}
	version, err := semver.NewVersion(versionStr)
	if err != nil {
		return nil
	}
	return version
}
