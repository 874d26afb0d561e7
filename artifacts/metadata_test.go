package artifacts

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

// buildIpfsMetadata builds a CBOR-encoded metadata trailer of the shape appended by solc >= 0.6.0, carrying the
// given 34-byte ipfs hash alongside a compiler version entry.
func buildIpfsMetadata(hash []byte) []byte {
	// a2 (2-entry map), 64 "ipfs", 58 22 (34-byte string), hash, 64 "solc", 43 (3-byte string), version
	blob := []byte{0xa2, 0x64, 'i', 'p', 'f', 's', 0x58, 0x22}
	blob = append(blob, hash...)
	blob = append(blob, 0x64, 's', 'o', 'l', 'c', 0x43, 0x00, 0x08, 0x11)
	return blob
}

// testIpfsHash returns a distinguishable 34-byte hash for metadata fixtures.
func testIpfsHash(fill byte) []byte {
	return bytes.Repeat([]byte{fill}, 34)
}

// TestExtractContractMetadata verifies CBOR metadata appended to bytecode is located and decoded, and that the
// embedded bytecode hash can be extracted from it.
func TestExtractContractMetadata(t *testing.T) {
	hash := testIpfsHash(0xab)
	bytecode := append([]byte{0x60, 0x80, 0x60, 0x40, 0xfe}, buildIpfsMetadata(hash)...)

	metadata := ExtractContractMetadata(bytecode)
	assert.NotNil(t, metadata)
	assert.Equal(t, hash, metadata.ExtractBytecodeHash())

	// Bytecode with no metadata trailer yields nothing.
	assert.Nil(t, ExtractContractMetadata([]byte{0x60, 0x80, 0x60, 0x40}))
	assert.Nil(t, ExtractContractMetadata(nil))
}

// TestTrimContractMetadata verifies the metadata trailer and its preceding terminator byte are trimmed, and that
// bytecode without a trailer passes through unchanged.
func TestTrimContractMetadata(t *testing.T) {
	code := []byte{0x60, 0x80, 0x60, 0x40}
	withTerminator := append(append([]byte{}, code...), 0xfe)
	bytecode := append(append([]byte{}, withTerminator...), buildIpfsMetadata(testIpfsHash(0x11))...)

	assert.Equal(t, code, TrimContractMetadata(bytecode))
	assert.Equal(t, code, TrimContractMetadata(code))
}

// TestArtifactIsMatch verifies bytecode matching prefers the metadata-embedded hashes, so deployed code which
// differs from compiled code (immutables, linked libraries) still matches, and falls back to whole-code equality
// when no metadata exists.
func TestArtifactIsMatch(t *testing.T) {
	hash := testIpfsHash(0xcd)
	compiled := append([]byte{0x60, 0x00, 0xfe}, buildIpfsMetadata(hash)...)
	deployedSameHash := append([]byte{0x60, 0xff, 0xfe}, buildIpfsMetadata(hash)...)
	deployedOtherHash := append([]byte{0x60, 0x00, 0xfe}, buildIpfsMetadata(testIpfsHash(0xef))...)

	artifact := &Artifact{Bytecode: compiled}
	assert.True(t, artifact.IsMatch(deployedSameHash))
	assert.False(t, artifact.IsMatch(deployedOtherHash))

	// Without metadata on either side, only identical code matches.
	bare := &Artifact{Bytecode: []byte{0x60, 0x80}}
	assert.True(t, bare.IsMatch([]byte{0x60, 0x80}))
	assert.False(t, bare.IsMatch([]byte{0x60, 0x40}))
}

// TestParseSolcMetadata verifies the standard-json metadata blob parses into the compiler version and literal
// source content the normalizer consumes, and that unusable blobs yield nil.
func TestParseSolcMetadata(t *testing.T) {
	metadata := parseSolcMetadata(`{
		"compiler": {"version": "0.8.17+commit.8df45f5f"},
		"sources": {"contracts/C.sol": {"content": "contract C {}"}}
	}`)
	assert.NotNil(t, metadata)
	assert.Equal(t, "0.8.17+commit.8df45f5f", metadata.Compiler.Version)
	assert.Equal(t, "contract C {}", metadata.Sources["contracts/C.sol"].Content)

	assert.Nil(t, parseSolcMetadata(""))
	assert.Nil(t, parseSolcMetadata("not json"))
}

// TestParseCompilerVersion verifies semantic versions parse out of metadata version strings, including the
// "+commit" build suffix solc appends.
func TestParseCompilerVersion(t *testing.T) {
	version := parseCompilerVersion("0.8.17+commit.8df45f5f")
	assert.NotNil(t, version)
	assert.Equal(t, int64(0), version.Major())
	assert.Equal(t, int64(8), version.Minor())
	assert.Equal(t, int64(17), version.Patch())

	assert.Nil(t, parseCompilerVersion(""))
	assert.Nil(t, parseCompilerVersion("garbage"))

	// The tested-version floor comparison relies on semver ordering.
	old := parseCompilerVersion("0.4.24+commit.e67f0147")
	assert.NotNil(t, old)
	assert.True(t, old.LessThan(minTestedCompilerVersion))
}
