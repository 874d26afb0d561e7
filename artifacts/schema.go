package artifacts

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/crytic/sourcemapper/utils"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// The compiler has produced several output document generations over time. Each generation is modeled as its own
// tagged variant below and normalized into the canonical Artifact at this boundary, so the resolution pipeline
// never inspects document shapes itself.

// LoadOptions describes optional parameters for normalizing a compiler output document.
type LoadOptions struct {
	// Creation selects the creation-time bytecode and its matching source map instead of the deployed/runtime
	// pair. Creation and runtime code have independent instruction streams and are never cross-matched.
	Creation bool

	// SourceRoot describes a base directory used to resolve source file content when the document does not embed
	// it. If empty, sources without embedded content are marked unavailable.
	SourceRoot string
}

// legacyDocument describes the oldest supported schema generation: a single-object output with top-level
// bytecode and source map keys and no source file table (single implicit source).
type legacyDocument struct {
	Bin           string `json:"bin"`
	BinRuntime    string `json:"bin-runtime"`
	SrcMap        string `json:"srcmap"`
	SrcMapRuntime string `json:"srcmap-runtime"`
}

// combinedDocument describes solc's --combined-json output, with contracts keyed by "path:ContractName" and an
// ordered top-level source list.
type combinedDocument struct {
	Contracts  map[string]combinedContract `json:"contracts"`
	SourceList []string                    `json:"sourceList"`
	Sources    map[string]combinedSource   `json:"sources"`
}

// combinedContract describes a single contract entry within a combined-json document.
type combinedContract struct {
	Bin           string `json:"bin"`
	BinRuntime    string `json:"bin-runtime"`
	SrcMap        string `json:"srcmap"`
	SrcMapRuntime string `json:"srcmap-runtime"`
	Metadata      string `json:"metadata"`
}

// combinedSource describes a per-source entry within a combined-json document. Note the capitalized AST key in
// this generation.
type combinedSource struct {
	AST any `json:"AST"`
}

// standardDocument describes solc's standard-json output, with contracts nested by source path then contract
// name, and a sources mapping carrying per-file numeric identifiers.
type standardDocument struct {
	Contracts map[string]map[string]standardContract `json:"contracts"`
	Sources   map[string]standardSource              `json:"sources"`
}

// standardContract describes a single contract entry within a standard-json document.
type standardContract struct {
	Metadata string `json:"metadata"`
	EVM      struct {
		Bytecode         standardBytecode `json:"bytecode"`
		DeployedBytecode standardBytecode `json:"deployedBytecode"`
	} `json:"evm"`
}

// standardBytecode describes a bytecode object within a standard-json document.
type standardBytecode struct {
	Object    string `json:"object"`
	SourceMap string `json:"sourceMap"`
}

// standardSource describes a per-source entry within a standard-json document. Content is present when the
// document was produced with useLiteralContent.
type standardSource struct {
	ID      int     `json:"id"`
	Content *string `json:"content"`
	AST     any     `json:"ast"`
}

// Load normalizes a raw compiler output document into the canonical Artifact for the requested contract.
// The schema generation is detected from the document's top-level shape. Returns a SchemaError if the document
// matches no supported generation or the contract identifier cannot be located within it.
func Load(document []byte, contractIdentifier string, options LoadOptions) (*Artifact, error) {
	// Decode the top level only, so we can detect which schema generation we were given.
	var topLevel map[string]json.RawMessage
	if err := json.Unmarshal(document, &topLevel); err != nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("document is not valid JSON: %v", err)}
	}

	_, hasBin := topLevel["bin"]
	_, hasBinRuntime := topLevel["bin-runtime"]
	_, hasSourceList := topLevel["sourceList"]
	contractsRaw, hasContracts := topLevel["contracts"]

	switch {
	case hasBinRuntime || hasBin:
		return loadLegacy(document, contractIdentifier, options)
	case hasContracts && hasSourceList:
		return loadCombined(document, contractIdentifier, options)
	case hasContracts:
		// Without a sourceList we distinguish combined-json from standard-json by the shape of the contract
		// keys: combined-json keys are fully qualified "path:ContractName" strings.
		var contractKeys map[string]json.RawMessage
		if err := json.Unmarshal(contractsRaw, &contractKeys); err != nil {
			return nil, &SchemaError{Reason: fmt.Sprintf("could not decode document contracts: %v", err)}
		}
		for key := range contractKeys {
			if strings.Contains(key, ":") {
				return loadCombined(document, contractIdentifier, options)
			}
		}
		return loadStandard(document, contractIdentifier, options)
	default:
		return nil, &SchemaError{Reason: "document does not match any supported compiler output schema"}
	}
}

// loadLegacy normalizes a legacy single-object document. Legacy outputs carry no source file table, so the
// artifact is given a single implicit source with no recorded path.
func loadLegacy(document []byte, contractIdentifier string, options LoadOptions) (*Artifact, error) {
	var doc legacyDocument
	if err := json.Unmarshal(document, &doc); err != nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("could not decode legacy document: %v", err)}
	}

	// Select the deployed/runtime pair unless the creation pair was explicitly requested.
	bytecodeHex, sourceMapRaw := doc.BinRuntime, doc.SrcMapRuntime
	if options.Creation {
		bytecodeHex, sourceMapRaw = doc.Bin, doc.SrcMap
	}
	if bytecodeHex == "" {
		return nil, &SchemaError{Reason: "legacy document is missing the requested bytecode", Contract: contractIdentifier}
	}

	bytecode, err := decodeBytecodeHex(bytecodeHex)
	if err != nil {
		return nil, err
	}

	artifact := newArtifact(normalizeContractIdentifier(contractIdentifier))
	artifact.Bytecode = bytecode
	artifact.SourceMapRaw = sourceMapRaw
	artifact.Sources = []SourceFile{{Index: 0}}
	artifact.logger.Debug("loaded legacy artifact with ", len(bytecode), " bytes of bytecode")
	return artifact, nil
}

// loadCombined normalizes a combined-json document for the requested contract.
func loadCombined(document []byte, contractIdentifier string, options LoadOptions) (*Artifact, error) {
	var doc combinedDocument
	if err := json.Unmarshal(document, &doc); err != nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("could not decode combined-json document: %v", err)}
	}

	// Locate the requested contract among the "path:ContractName" keys.
	key, err := matchContractKey(maps.Keys(doc.Contracts), contractIdentifier)
	if err != nil {
		return nil, err
	}
	contract := doc.Contracts[key]

	bytecodeHex, sourceMapRaw := contract.BinRuntime, contract.SrcMapRuntime
	if options.Creation {
		bytecodeHex, sourceMapRaw = contract.Bin, contract.SrcMap
	}
	if bytecodeHex == "" {
		return nil, &SchemaError{Reason: "contract entry is missing the requested bytecode", Contract: key}
	}

	bytecode, err := decodeBytecodeHex(bytecodeHex)
	if err != nil {
		return nil, err
	}

	artifact := newArtifact(key[strings.LastIndex(key, ":")+1:])
	artifact.Bytecode = bytecode
	artifact.SourceMapRaw = sourceMapRaw

	// The ordered sourceList provides the dense file index table referenced by the source map.
	for i, path := range doc.SourceList {
		artifact.Sources = append(artifact.Sources, SourceFile{Index: i, Path: path})
	}

	// Attach any per-source ASTs, keyed by the file's position within the sourceList.
	for path, source := range doc.Sources {
		if source.AST == nil {
			continue
		}
		if index := slices.Index(doc.SourceList, path); index >= 0 {
			artifact.ASTs[index] = source.AST
		}
	}

	artifact.applyMetadata(contract.Metadata)
	artifact.resolveSourceContent(options.SourceRoot)
	return artifact, nil
}

// loadStandard normalizes a standard-json document for the requested contract.
func loadStandard(document []byte, contractIdentifier string, options LoadOptions) (*Artifact, error) {
	var doc standardDocument
	if err := json.Unmarshal(document, &doc); err != nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("could not decode standard-json document: %v", err)}
	}

	// Build fully qualified "path:ContractName" keys so the same matching rules apply to every generation.
	contractsByKey := make(map[string]standardContract)
	for path, contracts := range doc.Contracts {
		for name, contract := range contracts {
			contractsByKey[path+":"+name] = contract
		}
	}
	key, err := matchContractKey(maps.Keys(contractsByKey), contractIdentifier)
	if err != nil {
		return nil, err
	}
	contract := contractsByKey[key]

	selected := contract.EVM.DeployedBytecode
	if options.Creation {
		selected = contract.EVM.Bytecode
	}
	if selected.Object == "" {
		return nil, &SchemaError{Reason: "contract entry is missing the requested bytecode", Contract: key}
	}

	bytecode, err := decodeBytecodeHex(selected.Object)
	if err != nil {
		return nil, err
	}

	artifact := newArtifact(key[strings.LastIndex(key, ":")+1:])
	artifact.Bytecode = bytecode
	artifact.SourceMapRaw = selected.SourceMap

	// The per-file "id" values provide the file index table. Indexes are expected to be dense and zero-based;
	// any gap is kept as an unavailable placeholder so indexes still line up with the source map.
	maxID := -1
	for _, source := range doc.Sources {
		if source.ID > maxID {
			maxID = source.ID
		}
	}
	artifact.Sources = make([]SourceFile, maxID+1)
	for i := range artifact.Sources {
		artifact.Sources[i].Index = i
	}
	for path, source := range doc.Sources {
		if source.ID < 0 || source.ID > maxID {
			continue
		}
		sourceFile := &artifact.Sources[source.ID]
		sourceFile.Path = path
		if source.Content != nil {
			sourceFile.Content = []byte(*source.Content)
		}
		if source.AST != nil {
			artifact.ASTs[source.ID] = source.AST
		}
	}

	// The metadata blob may carry literal source content for files the sources mapping did not embed.
	metadata := artifact.applyMetadata(contract.Metadata)
	if metadata != nil {
		for i := range artifact.Sources {
			sourceFile := &artifact.Sources[i]
			if sourceFile.Available() {
				continue
			}
			if metadataSource, ok := metadata.Sources[sourceFile.Path]; ok && metadataSource.Content != "" {
				sourceFile.Content = []byte(metadataSource.Content)
			}
		}
	}

	artifact.resolveSourceContent(options.SourceRoot)
	return artifact, nil
}

// applyMetadata parses the contract's metadata blob, records the compiler version on the artifact, and warns
// when the version predates the oldest tested compiler. Returns the parsed metadata, or nil if none was usable.
func (a *Artifact) applyMetadata(metadataJSON string) *solcMetadata {
	metadata := parseSolcMetadata(metadataJSON)
	if metadata == nil {
		return nil
	}
	a.CompilerVersion = parseCompilerVersion(metadata.Compiler.Version)
	if a.CompilerVersion != nil && a.CompilerVersion.LessThan(minTestedCompilerVersion) {
		a.logger.Warn("contract was compiled with solc ", a.CompilerVersion.String(),
			", older than the oldest tested version ", minTestedCompilerVersion.String())
	}
	return metadata
}

// resolveSourceContent attempts to read content for each source file which has none embedded, using the
// provided source root. Missing content marks the file unavailable rather than failing the load.
func (a *Artifact) resolveSourceContent(sourceRoot string) {
	for i := range a.Sources {
		sourceFile := &a.Sources[i]
		if sourceFile.Available() || sourceFile.Path == "" {
			continue
		}
		if sourceRoot != "" {
			fullPath := filepath.Join(sourceRoot, sourceFile.Path)
			if utils.FileExists(fullPath) {
				content, err := utils.ReadFileContents(fullPath)
				if err == nil {
					sourceFile.Content = content
					continue
				}
				a.logger.Warn("could not read source file '", fullPath, "'", err)
			}
		}
		a.logger.Warn("source content unavailable for '", sourceFile.Path,
			"', lookups referencing it will degrade to reconstruction mode")
	}
}

// normalizeContractIdentifier reduces a contract identifier to a bare contract name. Identifiers may be given
// as a bare name ("Bar"), a fully qualified key ("contracts/Bar.sol:Bar"), or a source path ("contracts/Bar.sol"),
// in which case the file name is used as the contract name.
func normalizeContractIdentifier(identifier string) string {
	if index := strings.LastIndex(identifier, ":"); index != -1 {
		return identifier[index+1:]
	}
	if strings.HasSuffix(identifier, ".sol") {
		return utils.GetFileNameWithoutExtension(identifier)
	}
	return identifier
}

// matchContractKey locates the single contract key matching the given identifier among the provided fully
// qualified keys. An exact key match wins; otherwise the identifier's contract name is matched
// case-insensitively at a path boundary. Zero or multiple matches are SchemaErrors naming the candidates.
func matchContractKey(keys []string, contractIdentifier string) (string, error) {
	// Try an exact key match first.
	for _, key := range keys {
		if key == contractIdentifier {
			return key, nil
		}
	}

	// Otherwise match the bare contract name at the start of the key or after a path/name separator.
	name := normalizeContractIdentifier(contractIdentifier)
	pattern, err := regexp.Compile(`(?i)(^|[/\\:])` + regexp.QuoteMeta(name))
	if err != nil {
		return "", &SchemaError{Reason: fmt.Sprintf("could not build contract matcher: %v", err), Contract: contractIdentifier}
	}
	var matches []string
	for _, key := range keys {
		if pattern.MatchString(key) {
			matches = append(matches, key)
		}
	}
	slices.Sort(matches)

	if len(matches) == 0 {
		slices.Sort(keys)
		return "", &SchemaError{Reason: "no contract found matching identifier", Contract: contractIdentifier, Candidates: keys}
	}
	if len(matches) > 1 {
		// Prefer an unambiguous exact name match over prefix matches such as "Barn" for "Bar".
		var exact []string
		for _, match := range matches {
			if strings.EqualFold(match[strings.LastIndex(match, ":")+1:], name) {
				exact = append(exact, match)
			}
		}
		if len(exact) == 1 {
			return exact[0], nil
		}
		return "", &SchemaError{Reason: "multiple contracts match identifier", Contract: contractIdentifier, Candidates: matches}
	}
	return matches[0], nil
}

// decodeBytecodeHex decodes a hex-encoded bytecode string, tolerating an optional 0x prefix.
func decodeBytecodeHex(bytecodeHex string) ([]byte, error) {
	bytecodeHex = strings.TrimPrefix(bytecodeHex, "0x")
	if strings.Contains(bytecodeHex, "__") {
		return nil, &SchemaError{Reason: "bytecode contains unlinked library placeholders"}
	}
	bytecode, err := hex.DecodeString(bytecodeHex)
	if err != nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("could not decode bytecode hex: %v", err)}
	}
	return bytecode, nil
}
