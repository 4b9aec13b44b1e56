// Package main provides the nfa CLI: an HTTP service and a one-shot
// console for asking natural-language questions about zipped NF-e
// invoice archives.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "nfa",
		Short:        "Analyze zipped NF-e invoice CSVs with natural-language questions",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")

	root.AddCommand(newServeCmd())
	root.AddCommand(newAskCmd())
	return root
}
