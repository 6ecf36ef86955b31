package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nymote/irminsule/internal/key"
)

// ---------------------------------------------------------------------------
// Controllers
// ---------------------------------------------------------------------------

func tagUpdateHandler(cmd *cobra.Command, args []string) {
	tag, _ := cmd.Flags().GetString("tag")
	hexKey, _ := cmd.Flags().GetString("key")
	requireFlag(cmd, "tag", tag)
	requireFlag(cmd, "key", hexKey)
	k, err := key.ParseHex(hexKey)
	bail(err)

	c, ctx, cancel, err := dial(cmd.Context())
	bail(err)
	defer cancel()
	defer c.Close()
	bail(c.TagUpdate(ctx, tag, k))
	fmt.Println("ok")
}

func tagRemoveHandler(cmd *cobra.Command, args []string) {
	tag, _ := cmd.Flags().GetString("tag")
	requireFlag(cmd, "tag", tag)

	c, ctx, cancel, err := dial(cmd.Context())
	bail(err)
	defer cancel()
	defer c.Close()
	bail(c.TagRemove(ctx, tag))
	fmt.Println("ok")
}

func tagReadHandler(cmd *cobra.Command, args []string) {
	tag, _ := cmd.Flags().GetString("tag")
	requireFlag(cmd, "tag", tag)

	c, ctx, cancel, err := dial(cmd.Context())
	bail(err)
	defer cancel()
	defer c.Close()
	k, err := c.TagRead(ctx, tag)
	bail(err)
	if k == nil {
		fmt.Println("(absent)")
		return
	}
	fmt.Println(k.String())
}

func tagListHandler(cmd *cobra.Command, args []string) {
	c, ctx, cancel, err := dial(cmd.Context())
	bail(err)
	defer cancel()
	defer c.Close()
	tags, err := c.TagListAll(ctx)
	bail(err)
	for _, t := range tags {
		fmt.Println(t)
	}
}

// ---------------------------------------------------------------------------
// CLI definitions
// ---------------------------------------------------------------------------

var tagCmd = &cobra.Command{
	Use:              "tag",
	Short:            "Tag Store operations",
	PersistentPreRun: initClientMiddleware,
}

var tagUpdateCmd = &cobra.Command{Use: "update", Short: "Upsert a tag binding", Run: tagUpdateHandler}
var tagRemoveCmd = &cobra.Command{Use: "remove", Short: "Delete a tag if present", Run: tagRemoveHandler}
var tagReadCmd = &cobra.Command{Use: "read", Short: "Read a tag's bound key", Run: tagReadHandler}
var tagListCmd = &cobra.Command{Use: "list", Short: "List all tag names", Run: tagListHandler}

func init() {
	addConnectionFlags(tagCmd)
	tagUpdateCmd.Flags().String("tag", "", "tag name")
	tagUpdateCmd.Flags().String("key", "", "hex-encoded key")
	tagRemoveCmd.Flags().String("tag", "", "tag name")
	tagReadCmd.Flags().String("tag", "", "tag name")
	tagCmd.AddCommand(tagUpdateCmd, tagRemoveCmd, tagReadCmd, tagListCmd)
}

// ---------------------------------------------------------------------------
// Consolidated route export
// ---------------------------------------------------------------------------

// TagRoute is the entry-point command (root: "tag").
var TagRoute = tagCmd
