package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nymote/irminsule/internal/key"
)

// ---------------------------------------------------------------------------
// Controllers
// ---------------------------------------------------------------------------

func keyAddHandler(cmd *cobra.Command, args []string) {
	hexKey, _ := cmd.Flags().GetString("key")
	requireFlag(cmd, "key", hexKey)
	k, err := key.ParseHex(hexKey)
	bail(err)

	c, ctx, cancel, err := dial(cmd.Context())
	bail(err)
	defer cancel()
	defer c.Close()
	bail(c.KeyAdd(ctx, k))
	fmt.Println("ok")
}

func keyRelHandler(cmd *cobra.Command, args []string) {
	predHex, _ := cmd.Flags().GetString("pred")
	succHex, _ := cmd.Flags().GetString("succ")
	requireFlag(cmd, "pred", predHex)
	requireFlag(cmd, "succ", succHex)
	pred, err := key.ParseHex(predHex)
	bail(err)
	succ, err := key.ParseHex(succHex)
	bail(err)

	c, ctx, cancel, err := dial(cmd.Context())
	bail(err)
	defer cancel()
	defer c.Close()
	bail(c.KeyRel(ctx, pred, succ))
	fmt.Println("ok")
}

func keyListHandler(cmd *cobra.Command, args []string) {
	c, ctx, cancel, err := dial(cmd.Context())
	bail(err)
	defer cancel()
	defer c.Close()
	ks, err := c.KeyList(ctx)
	bail(err)
	for _, k := range ks {
		fmt.Println(k.String())
	}
}

func keyPredHandler(cmd *cobra.Command, args []string) {
	hexKey, _ := cmd.Flags().GetString("key")
	requireFlag(cmd, "key", hexKey)
	k, err := key.ParseHex(hexKey)
	bail(err)

	c, ctx, cancel, err := dial(cmd.Context())
	bail(err)
	defer cancel()
	defer c.Close()
	ks, err := c.KeyPred(ctx, k)
	bail(err)
	for _, p := range ks {
		fmt.Println(p.String())
	}
}

func keySuccHandler(cmd *cobra.Command, args []string) {
	hexKey, _ := cmd.Flags().GetString("key")
	requireFlag(cmd, "key", hexKey)
	k, err := key.ParseHex(hexKey)
	bail(err)

	c, ctx, cancel, err := dial(cmd.Context())
	bail(err)
	defer cancel()
	defer c.Close()
	ks, err := c.KeySucc(ctx, k)
	bail(err)
	for _, s := range ks {
		fmt.Println(s.String())
	}
}

// ---------------------------------------------------------------------------
// CLI definitions
// ---------------------------------------------------------------------------

var keyCmd = &cobra.Command{
	Use:              "key",
	Short:            "Key-Graph Store operations",
	PersistentPreRun: initClientMiddleware,
}

var keyAddCmd = &cobra.Command{Use: "add", Short: "Insert a vertex", Run: keyAddHandler}
var keyRelCmd = &cobra.Command{Use: "rel", Short: "Insert a predecessor/successor edge", Run: keyRelHandler}
var keyListCmd = &cobra.Command{Use: "list", Short: "List all vertices", Run: keyListHandler}
var keyPredCmd = &cobra.Command{Use: "pred", Short: "List a key's direct predecessors", Run: keyPredHandler}
var keySuccCmd = &cobra.Command{Use: "succ", Short: "List a key's direct successors", Run: keySuccHandler}

func init() {
	addConnectionFlags(keyCmd)
	keyAddCmd.Flags().String("key", "", "hex-encoded key")
	keyRelCmd.Flags().String("pred", "", "hex-encoded predecessor key")
	keyRelCmd.Flags().String("succ", "", "hex-encoded successor key")
	keyPredCmd.Flags().String("key", "", "hex-encoded key")
	keySuccCmd.Flags().String("key", "", "hex-encoded key")
	keyCmd.AddCommand(keyAddCmd, keyRelCmd, keyListCmd, keyPredCmd, keySuccCmd)
}

// ---------------------------------------------------------------------------
// Consolidated route export
// ---------------------------------------------------------------------------

// KeyRoute is the entry-point command (root: "key").
var KeyRoute = keyCmd
