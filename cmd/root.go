package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sourcemapper",
	Short: "A Solidity bytecode address to source location resolver",
	Long:  "sourcemapper resolves byte offsets within compiled contract bytecode to the source file, line, and code that produced them",
}

func Execute() error {
	return rootCmd.Execute()
}
