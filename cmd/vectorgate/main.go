// Package main implements the vectorgate server and its client CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// serverURL is the base URL used by the client subcommands.
var serverURL string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vectorgate",
		Short: "Vector store gateway keyed by caller ids",
		Long: `vectorgate stores, searches and deletes embeddings in a vector engine
(Qdrant or an embedded chromem database) under caller-chosen string ids.

Run "vectorgate serve" to start the HTTP API. The store, search, delete and
health subcommands talk to a running server.`,
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9090", "vectorgate server URL")

	root.AddCommand(
		newServeCmd(),
		newVersionCmd(),
		newStoreCmd(),
		newSearchCmd(),
		newDeleteCmd(),
		newHealthCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "vectorgate by Fyrsmith Labs\n")
			fmt.Fprintf(out, "Version:    %s\n", version)
			fmt.Fprintf(out, "Commit:     %s\n", gitCommit)
			fmt.Fprintf(out, "Build Date: %s\n", buildDate)
		},
	}
}
