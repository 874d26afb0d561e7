package artifacts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestLoadLegacyDocument verifies legacy single-object documents normalize with their single implicit source,
// selecting the runtime pair by default and the creation pair on request.
func TestLoadLegacyDocument(t *testing.T) {
	document := []byte(`{
		"bin": "6001600155",
		"bin-runtime": "60806040",
		"srcmap": "0:5:0",
		"srcmap-runtime": "0:4:0:-"
	}`)

	// Default selection is the deployed/runtime pair.
	artifact, err := Load(document, "C", LoadOptions{})
	assert.NoError(t, err)
	assert.Equal(t, "C", artifact.ContractName)
	assert.Equal(t, []byte{0x60, 0x80, 0x60, 0x40}, artifact.Bytecode)
	assert.Equal(t, "0:4:0:-", artifact.SourceMapRaw)
	assert.Equal(t, 1, len(artifact.Sources))
	assert.Equal(t, 0, artifact.Sources[0].Index)
	assert.False(t, artifact.Sources[0].Available())

	// Creation selects the creation bytecode with its matching source map, never cross-matching pairs.
	artifact, err = Load(document, "C", LoadOptions{Creation: true})
	assert.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x01, 0x60, 0x01, 0x55}, artifact.Bytecode)
	assert.Equal(t, "0:5:0", artifact.SourceMapRaw)
}

// TestLoadLegacyMissingBytecode verifies requesting a pair the document does not carry is a SchemaError.
func TestLoadLegacyMissingBytecode(t *testing.T) {
	document := []byte(`{"bin-runtime": "60806040", "srcmap-runtime": "0:4:0:-"}`)

	_, err := Load(document, "C", LoadOptions{Creation: true})
	var schemaErr *SchemaError
	assert.ErrorAs(t, err, &schemaErr)
}

// TestLoadCombinedDocument verifies combined-json documents normalize their ordered source list into the file
// index table and attach per-source ASTs by list position.
func TestLoadCombinedDocument(t *testing.T) {
	document := []byte(`{
		"contracts": {
			"contracts/Bar.sol:Bar": {
				"bin": "6001",
				"bin-runtime": "60806040",
				"srcmap": "0:2:0",
				"srcmap-runtime": "0:4:0:-"
			},
			"contracts/Foo.sol:Foo": {
				"bin-runtime": "6002",
				"srcmap-runtime": "0:1:1"
			}
		},
		"sourceList": ["contracts/Bar.sol", "contracts/Foo.sol"],
		"sources": {
			"contracts/Bar.sol": {"AST": {"nodeType": "SourceUnit", "src": "0:10:0"}}
		}
	}`)

	artifact, err := Load(document, "Bar", LoadOptions{})
	assert.NoError(t, err)
	assert.Equal(t, "Bar", artifact.ContractName)
	assert.Equal(t, []byte{0x60, 0x80, 0x60, 0x40}, artifact.Bytecode)
	assert.Equal(t, "0:4:0:-", artifact.SourceMapRaw)

	// The sourceList order defines the file indexes referenced by the source map.
	assert.Equal(t, 2, len(artifact.Sources))
	assert.Equal(t, "contracts/Bar.sol", artifact.Sources[0].Path)
	assert.Equal(t, "contracts/Foo.sol", artifact.Sources[1].Path)

	// The AST attached to Bar.sol lands at its sourceList position.
	assert.NotNil(t, artifact.ASTs[0])
	assert.Nil(t, artifact.ASTs[1])

	// The creation pair remains independently selectable.
	artifact, err = Load(document, "Bar", LoadOptions{Creation: true})
	assert.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x01}, artifact.Bytecode)
	assert.Equal(t, "0:2:0", artifact.SourceMapRaw)
}

// TestLoadCombinedContractMatching verifies the identifier matching rules: exact keys, bare names, and source
// paths all locate a contract, while absent and ambiguous identifiers are SchemaErrors naming the candidates.
func TestLoadCombinedContractMatching(t *testing.T) {
	document := []byte(`{
		"contracts": {
			"contracts/Bar.sol:Bar": {"bin-runtime": "6001", "srcmap-runtime": "0:1:0"},
			"contracts/Bar.sol:Barn": {"bin-runtime": "6002", "srcmap-runtime": "0:1:0"},
			"contracts/Other.sol:Other": {"bin-runtime": "6003", "srcmap-runtime": "0:1:0"}
		},
		"sourceList": ["contracts/Bar.sol", "contracts/Other.sol"]
	}`)

	// A fully qualified key matches exactly.
	artifact, err := Load(document, "contracts/Bar.sol:Barn", LoadOptions{})
	assert.NoError(t, err)
	assert.Equal(t, "Barn", artifact.ContractName)

	// A bare name prefers its exact-name match over prefix matches like "Barn".
	artifact, err = Load(document, "Bar", LoadOptions{})
	assert.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x01}, artifact.Bytecode)

	// Matching is case-insensitive.
	artifact, err = Load(document, "other", LoadOptions{})
	assert.NoError(t, err)
	assert.Equal(t, "Other", artifact.ContractName)

	// An absent contract reports the available candidates.
	_, err = Load(document, "Quux", LoadOptions{})
	var schemaErr *SchemaError
	assert.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "Quux", schemaErr.Contract)
	assert.Equal(t, 3, len(schemaErr.Candidates))
}

// TestLoadCombinedAmbiguousContract verifies an identifier matching multiple contracts of the same name is a
// SchemaError listing every match.
func TestLoadCombinedAmbiguousContract(t *testing.T) {
	document := []byte(`{
		"contracts": {
			"contracts/A.sol:Token": {"bin-runtime": "6001", "srcmap-runtime": "0:1:0"},
			"contracts/B.sol:Token": {"bin-runtime": "6002", "srcmap-runtime": "0:1:0"}
		},
		"sourceList": ["contracts/A.sol", "contracts/B.sol"]
	}`)

	_, err := Load(document, "Token", LoadOptions{})
	var schemaErr *SchemaError
	assert.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{"contracts/A.sol:Token", "contracts/B.sol:Token"}, schemaErr.Candidates)
}

// TestLoadStandardDocument verifies standard-json documents normalize per-file ids into the file index table,
// embed literal content, attach ASTs, and record the compiler version from the metadata blob.
func TestLoadStandardDocument(t *testing.T) {
	document := []byte(`{
		"contracts": {
			"contracts/C.sol": {
				"C": {
					"metadata": "{\"compiler\":{\"version\":\"0.8.17+commit.8df45f5f\"},\"sources\":{\"contracts/Lib.sol\":{\"content\":\"library L {}\"}}}",
					"evm": {
						"bytecode": {"object": "6001600155", "sourceMap": "0:5:0"},
						"deployedBytecode": {"object": "0x60806040", "sourceMap": "0:4:0:-"}
					}
				}
			}
		},
		"sources": {
			"contracts/C.sol": {"id": 0, "content": "contract C {}", "ast": {"nodeType": "SourceUnit", "src": "0:13:0"}},
			"contracts/Lib.sol": {"id": 1}
		}
	}`)

	artifact, err := Load(document, "C", LoadOptions{})
	assert.NoError(t, err)
	assert.Equal(t, "C", artifact.ContractName)
	assert.Equal(t, []byte{0x60, 0x80, 0x60, 0x40}, artifact.Bytecode)
	assert.Equal(t, "0:4:0:-", artifact.SourceMapRaw)

	// The per-file ids define the file index table, with embedded content where the document carries it.
	assert.Equal(t, 2, len(artifact.Sources))
	assert.Equal(t, "contracts/C.sol", artifact.Sources[0].Path)
	assert.Equal(t, []byte("contract C {}"), artifact.Sources[0].Content)
	assert.NotNil(t, artifact.ASTs[0])

	// Lib.sol embeds no content in the sources mapping, but the metadata blob carries it literally.
	assert.Equal(t, "contracts/Lib.sol", artifact.Sources[1].Path)
	assert.Equal(t, []byte("library L {}"), artifact.Sources[1].Content)

	// The compiler version comes from the metadata blob.
	assert.NotNil(t, artifact.CompilerVersion)
	assert.Equal(t, int64(8), artifact.CompilerVersion.Minor())

	// The creation pair remains independently selectable.
	artifact, err = Load(document, "C", LoadOptions{Creation: true})
	assert.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x01, 0x60, 0x01, 0x55}, artifact.Bytecode)
	assert.Equal(t, "0:5:0", artifact.SourceMapRaw)
}

// TestLoadStandardSourceRoot verifies sources without embedded content are read from the source root, and that
// missing files degrade to unavailable sources rather than failing the load.
func TestLoadStandardSourceRoot(t *testing.T) {
	document := []byte(`{
		"contracts": {
			"contracts/C.sol": {
				"C": {
					"evm": {
						"deployedBytecode": {"object": "6080", "sourceMap": "0:4:0"}
					}
				}
			}
		},
		"sources": {
			"contracts/C.sol": {"id": 0},
			"contracts/Missing.sol": {"id": 1}
		}
	}`)

	// Write C.sol under a temporary source root; Missing.sol stays absent.
	sourceRoot := t.TempDir()
	err := os.MkdirAll(filepath.Join(sourceRoot, "contracts"), 0755)
	assert.NoError(t, err)
	err = os.WriteFile(filepath.Join(sourceRoot, "contracts", "C.sol"), []byte("contract C {}"), 0644)
	assert.NoError(t, err)

	artifact, err := Load(document, "C", LoadOptions{SourceRoot: sourceRoot})
	assert.NoError(t, err)
	assert.Equal(t, []byte("contract C {}"), artifact.Sources[0].Content)
	assert.False(t, artifact.Sources[1].Available())

	// Without a source root, both sources are simply unavailable.
	artifact, err = Load(document, "C", LoadOptions{})
	assert.NoError(t, err)
	assert.False(t, artifact.Sources[0].Available())
}

// TestLoadSchemaDetection verifies documents which match no supported generation, and non-JSON input, are
// SchemaErrors rather than panics or partial artifacts.
func TestLoadSchemaDetection(t *testing.T) {
	var schemaErr *SchemaError

	_, err := Load([]byte("not json"), "C", LoadOptions{})
	assert.ErrorAs(t, err, &schemaErr)

	_, err = Load([]byte(`{"something": "else"}`), "C", LoadOptions{})
	assert.ErrorAs(t, err, &schemaErr)

	// A combined-json document is still recognized by its qualified contract keys when the sourceList is absent.
	document := []byte(`{
		"contracts": {
			"contracts/C.sol:C": {"bin-runtime": "6080", "srcmap-runtime": "0:1:0"}
		}
	}`)
	artifact, err := Load(document, "C", LoadOptions{})
	assert.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x80}, artifact.Bytecode)
}

// TestLoadUnlinkedBytecode verifies bytecode carrying unlinked library placeholders is rejected, as placeholder
// characters are not decodable hex and the code could not have been deployed as-is.
func TestLoadUnlinkedBytecode(t *testing.T) {
	document := []byte(`{
		"bin-runtime": "6080__$fb58009a6b1ecea3b9d99bedd645df4ec3$__6040",
		"srcmap-runtime": "0:4:0"
	}`)

	_, err := Load(document, "C", LoadOptions{})
	var schemaErr *SchemaError
	assert.ErrorAs(t, err, &schemaErr)
}

// TestArtifactSourceLookup verifies file index lookups reject negative and out-of-range indexes.
func TestArtifactSourceLookup(t *testing.T) {
	document := []byte(`{"bin-runtime": "6080", "srcmap-runtime": "0:1:0"}`)
	artifact, err := Load(document, "C", LoadOptions{})
	assert.NoError(t, err)

	assert.NotNil(t, artifact.Source(0))
	assert.Nil(t, artifact.Source(-1))
	assert.Nil(t, artifact.Source(1))
}

// TestArtifactIdentity verifies each load produces a unique correlation ID and a stable code hash.
func TestArtifactIdentity(t *testing.T) {
	document := []byte(`{"bin-runtime": "6080", "srcmap-runtime": "0:1:0"}`)

	first, err := Load(document, "C", LoadOptions{})
	assert.NoError(t, err)
	second, err := Load(document, "C", LoadOptions{})
	assert.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.CodeHash(), second.CodeHash())
	assert.Equal(t, 32, len(first.CodeHash()))
}
