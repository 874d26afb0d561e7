package cmd

import (
	"github.com/spf13/pflag"
)

// resolveFlags holds the parsed CLI arguments for the resolve command.
type resolveFlags struct {
	artifactPath string
	contract     string
	sourceRoot   string
	creation     bool
	verbose      bool
	logFile      string
}

// addResolveFlags adds the various flags for the resolve command.
func addResolveFlags() {
	// Prevent alphabetical sorting of usage message
	resolveCmd.Flags().SortFlags = false

	// Artifact document
	resolveCmd.Flags().String("artifact", "", "path to the compiler output document (combined-json, standard-json, or legacy)")

	// Contract identifier
	resolveCmd.Flags().String("contract", "", "contract to resolve against, given as a name, source path, or path:Name key")

	// Source root
	resolveCmd.Flags().String("source-root", "", "base directory used to read source files the document does not embed")

	// Creation pair selection
	resolveCmd.Flags().Bool("creation", false, "resolve against the creation bytecode and source map instead of the deployed pair")

	// Verbosity
	resolveCmd.Flags().Bool("verbose", false, "enable debug logging")

	// Log file
	resolveCmd.Flags().String("log-file", "", "path to write structured logs to")

	_ = resolveCmd.MarkFlagRequired("artifact")
}

// parseResolveFlags reads the resolve command's arguments out of the provided flag set.
func parseResolveFlags(flags *pflag.FlagSet) (*resolveFlags, error) {
	parsed := &resolveFlags{}
	var err error

	if parsed.artifactPath, err = flags.GetString("artifact"); err != nil {
		return nil, err
	}
	if parsed.contract, err = flags.GetString("contract"); err != nil {
		return nil, err
	}
	if parsed.sourceRoot, err = flags.GetString("source-root"); err != nil {
		return nil, err
	}
	if parsed.creation, err = flags.GetBool("creation"); err != nil {
		return nil, err
	}
	if parsed.verbose, err = flags.GetBool("verbose"); err != nil {
		return nil, err
	}
	if parsed.logFile, err = flags.GetString("log-file"); err != nil {
		return nil, err
	}
	return parsed, nil
}
