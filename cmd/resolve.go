package cmd

import (
	"fmt"

	"github.com/crytic/sourcemapper/artifacts"
	"github.com/crytic/sourcemapper/cmd/exitcodes"
	"github.com/crytic/sourcemapper/logging"
	"github.com/crytic/sourcemapper/resolution"
	"github.com/crytic/sourcemapper/utils"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// resolveCmd represents the command provider for address resolution.
var resolveCmd = &cobra.Command{
	Use:   "resolve [addresses]",
	Short: "Resolve bytecode addresses to their source locations",
	Long: "resolve maps one or more hex-encoded byte addresses within a contract's deployed bytecode to the " +
		"source file, 1-based line number, and code snippet they originate from, using a compiler output document",
	Args:          cobra.MinimumNArgs(1),
	RunE:          cmdRunResolve,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	addResolveFlags()
	rootCmd.AddCommand(resolveCmd)
}

// cmdRunResolve executes the resolve CLI command: it loads the artifact document once, derives the lookups, and
// resolves every provided address against them.
func cmdRunResolve(cmd *cobra.Command, args []string) error {
	flags, err := parseResolveFlags(cmd.Flags())
	if err != nil {
		return err
	}

	// Replace the disabled global logger with a console-enabled one at the requested verbosity, attaching a
	// structured log file writer if one was requested.
	level := zerolog.WarnLevel
	if flags.verbose {
		level = zerolog.DebugLevel
	}
	logging.GlobalLogger = logging.NewLogger(level, true)
	if flags.logFile != "" {
		file, err := utils.CreateFile("", flags.logFile)
		if err != nil {
			return err
		}
		defer file.Close()
		logging.GlobalLogger.AddWriter(file)
	}

	// Read and normalize the artifact document.
	document, err := utils.ReadFileContents(flags.artifactPath)
	if err != nil {
		return err
	}
	artifact, err := artifacts.Load(document, flags.contract, artifacts.LoadOptions{
		Creation:   flags.creation,
		SourceRoot: flags.sourceRoot,
	})
	if err != nil {
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeSchemaError)
	}

	// Derive the instruction list and decoded source map once; every address resolves against the same handle.
	resolver, err := resolution.NewResolver(artifact)
	if err != nil {
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeResolutionError)
	}

	for _, addressHex := range args {
		result, err := resolver.Resolve(addressHex)
		if err != nil {
			return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeResolutionError)
		}
		fmt.Println(result.String())
	}
	return nil
}
