package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ---------------------------------------------------------------------------
// Controllers
// ---------------------------------------------------------------------------

func watchHandler(cmd *cobra.Command, args []string) {
	tagsCSV, _ := cmd.Flags().GetString("tags")
	requireFlag(cmd, "tags", tagsCSV)
	tags := splitCSV(tagsCSV)

	c, err := dialLongLived(cmd.Context())
	bail(err)
	defer c.Close()

	ctx := cmd.Context()
	next, err := c.Watch(ctx, tags)
	bail(err)
	for {
		pairs, g, err := next()
		if err != nil {
			cliLog.WithError(err).Warn("watch stream ended")
			return
		}
		for _, p := range pairs {
			fmt.Printf("%s -> %s (delta: %d vertices)\n", p.Tag, p.Key.String(), len(g.Vertices))
		}
	}
}

// ---------------------------------------------------------------------------
// CLI definitions
// ---------------------------------------------------------------------------

var watchCmd = &cobra.Command{
	Use:              "watch",
	Short:            "Subscribe to tag changes and print graph deltas as they arrive",
	PersistentPreRun: initClientMiddleware,
	Run:              watchHandler,
}

func init() {
	addConnectionFlags(watchCmd)
	watchCmd.Flags().String("tags", "", "comma-separated tag names to watch")
}

// ---------------------------------------------------------------------------
// Consolidated route export
// ---------------------------------------------------------------------------

// WatchRoute is the entry-point command (root: "watch").
var WatchRoute = watchCmd
