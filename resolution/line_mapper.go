package resolution

import (
	"bytes"
	"fmt"
)

// MapperResult is the externally observed outcome of resolving an address: the source file path, the 1-based
// line number, and the exact source snippet. A Line of 0 indicates the location could not be resolved against
// literal source text; Code then carries a best-effort reconstruction, or is empty. The result is immutable
// once produced.
type MapperResult struct {
	// Line is the 1-based line number within File, or 0 when unresolved.
	Line int

	// Code is the exact source snippet, or a reconstructed approximation when literal source is unavailable.
	Code string

	// File is the source file path, or empty for synthetic instructions with no corresponding source.
	File string
}

// String returns a "file:line:code" rendering of the result.
func (m *MapperResult) String() string {
	return fmt.Sprintf("%s:%d:%s", m.File, m.Line, m.Code)
}

// mapEntry computes the MapperResult for a decoded source map entry against the artifact's source table.
func (r *Resolver) mapEntry(entry *SourceMapEntry) *MapperResult {
	// Synthetic, compiler-generated instructions map to no source at all.
	if entry.FileIndex < 0 {
		return &MapperResult{}
	}

	sourceFile := r.artifact.Source(entry.FileIndex)
	if sourceFile == nil {
		// Generated sources (e.g. compiler utility routines) may reference file indexes beyond the document's
		// source table; these degrade the same way synthetic entries do.
		r.logger.Debug("source map references file index ", entry.FileIndex, " beyond the artifact's source table")
		return &MapperResult{}
	}

	result := &MapperResult{File: sourceFile.Path}

	// Without literal source text we fall back to reconstruction mode: line stays 0 and the snippet is a
	// best-effort rendering from the AST, if one is available.
	if !sourceFile.Available() {
		if r.reconstructor != nil {
			if code, ok := r.reconstructor.Reconstruct(entry.FileIndex, entry.Offset, entry.Length); ok {
				result.Code = code
			}
		}
		return result
	}

	// Clamp the range to the content bounds; compiler-emitted ranges occasionally run past the source end. The
	// end is derived from the remaining content rather than start+length, which could overflow on huge records.
	content := sourceFile.Content
	start := entry.Offset
	if start < 0 {
		start = 0
	}
	if start > len(content) {
		start = len(content)
	}
	end := len(content)
	if entry.Length < len(content)-start {
		end = start + entry.Length
	}
	if end < start {
		end = start
	}

	// The line number is the count of newlines preceding the range start, reported 1-based. The snippet is
	// taken verbatim, with no trimming or normalization.
	result.Line = bytes.Count(content[:start], []byte("\n")) + 1
	result.Code = string(content[start:end])
	return result
}
