package artifacts

import (
	"fmt"
	"strings"
)

// SchemaError describes a failure to normalize a compiler output document: the document matches no supported
// schema generation, or the requested contract could not be located within it. It is fatal for the load and is
// never retried.
type SchemaError struct {
	// Reason describes why normalization failed.
	Reason string

	// Contract describes the contract identifier the load was requested for, if relevant to the failure.
	Contract string

	// Candidates lists the contract keys that were considered, when the failure was an absent or ambiguous
	// contract identifier.
	Candidates []string
}

// Error returns the error message string, implementing the `error` interface.
func (e *SchemaError) Error() string {
	msg := e.Reason
	if e.Contract != "" {
		msg = fmt.Sprintf("%s (contract: '%s')", msg, e.Contract)
	}
	if len(e.Candidates) > 0 {
		msg = fmt.Sprintf("%s, candidates: [%s]", msg, strings.Join(e.Candidates, ", "))
	}
	return msg
}
