package exitcodes

const (
	// ================================
	// Platform-universal exit codes
	// ================================

	// ExitCodeSuccess indicates no errors or failures had occurred.
	ExitCodeSuccess = 0

	// ExitCodeGeneralError indicates some type of general error occurred.
	ExitCodeGeneralError = 1

	// ================================
	// Application-specific exit codes
	// ================================
	// Note: Despite not being standardized, exit codes 2-5 are often used for common use cases, so we avoid them.

	// ExitCodeSchemaError indicates the artifact document could not be normalized: it matches no supported
	// compiler output schema, or the requested contract is absent from it.
	ExitCodeSchemaError = 6

	// ExitCodeResolutionError indicates the address could not be resolved against an otherwise valid artifact,
	// e.g. it lies outside the disassembled bytecode span or the source map is malformed.
	ExitCodeResolutionError = 7
)
