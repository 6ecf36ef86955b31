package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nymote/irminsule/internal/key"
)

// ---------------------------------------------------------------------------
// Controllers
// ---------------------------------------------------------------------------

func syncPullKeysHandler(cmd *cobra.Command, args []string) {
	rootsCSV, _ := cmd.Flags().GetString("roots")
	sinksCSV, _ := cmd.Flags().GetString("sinks")
	requireFlag(cmd, "sinks", sinksCSV)

	var roots []key.Key
	for _, h := range splitCSV(rootsCSV) {
		k, err := key.ParseHex(h)
		bail(err)
		roots = append(roots, k)
	}
	sinks := splitCSV(sinksCSV)

	c, ctx, cancel, err := dial(cmd.Context())
	bail(err)
	defer cancel()
	defer c.Close()
	g, err := c.SyncPullKeys(ctx, roots, sinks)
	bail(err)
	fmt.Printf("vertices=%d edges=%d\n", len(g.Vertices), len(g.Edges))
	for _, v := range g.Vertices {
		fmt.Println(" ", v.String())
	}
}

func syncPullTagsHandler(cmd *cobra.Command, args []string) {
	c, ctx, cancel, err := dial(cmd.Context())
	bail(err)
	defer cancel()
	defer c.Close()
	pairs, err := c.SyncPullTags(ctx)
	bail(err)
	for _, p := range pairs {
		fmt.Printf("%s -> %s\n", p.Tag, p.Key.String())
	}
}

// ---------------------------------------------------------------------------
// CLI definitions
// ---------------------------------------------------------------------------

var syncCmd = &cobra.Command{
	Use:              "sync",
	Short:            "Sync Engine operations (pull side)",
	PersistentPreRun: initClientMiddleware,
}

var syncPullKeysCmd = &cobra.Command{Use: "pull-keys", Short: "Pull the ancestor closure of a set of sink tags", Run: syncPullKeysHandler}
var syncPullTagsCmd = &cobra.Command{Use: "pull-tags", Short: "Pull the full tag snapshot", Run: syncPullTagsHandler}

func init() {
	addConnectionFlags(syncCmd)
	syncPullKeysCmd.Flags().String("roots", "", "comma-separated hex root keys cutting the closure")
	syncPullKeysCmd.Flags().String("sinks", "", "comma-separated sink tag names")
	syncCmd.AddCommand(syncPullKeysCmd, syncPullTagsCmd)
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Consolidated route export
// ---------------------------------------------------------------------------

// SyncRoute is the entry-point command (root: "sync").
var SyncRoute = syncCmd
