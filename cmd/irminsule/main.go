// Command irminsule is the server and client CLI for the content-addressed
// object store: `irminsule serve` runs the protocol server, while
// `irminsule key|value|tag|sync|watch` dial a running server as a client.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/nymote/irminsule/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{Use: "irminsule"}
	rootCmd.AddCommand(cli.ServeRoute, cli.KeyRoute, cli.ValueRoute, cli.TagRoute, cli.SyncRoute, cli.WatchRoute)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
