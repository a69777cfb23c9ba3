// File: cmd/levee/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// levee command line: frame header tooling and the echo server.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "levee",
		Short: "WebSocket frame codec and message channel toolkit",
		Long: `levee bundles a streaming WebSocket frame codec and a
reference-counted message channel.

  encode   build a frame header (optionally with a masked payload)
  scan     decode frame headers from hex, chunk by chunk
  serve    run the WebSocket echo server`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		encodeCmd(),
		scanCmd(),
		serveCmd(),
		versionCmd(),
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
