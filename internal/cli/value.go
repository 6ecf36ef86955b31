package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nymote/irminsule/internal/codec"
	"github.com/nymote/irminsule/internal/key"
	"github.com/nymote/irminsule/internal/value"
)

// ---------------------------------------------------------------------------
// Controllers
// ---------------------------------------------------------------------------

func valueWriteHandler(cmd *cobra.Command, args []string) {
	file, _ := cmd.Flags().GetString("file")
	requireFlag(cmd, "file", file)
	data, err := os.ReadFile(file)
	bail(err)
	v := value.NewBlob(data, nil)

	c, ctx, cancel, err := dial(cmd.Context())
	bail(err)
	defer cancel()
	defer c.Close()
	k, err := c.ValWrite(ctx, v)
	bail(err)
	fmt.Println(k.String())
}

func valueReadHandler(cmd *cobra.Command, args []string) {
	hexKey, _ := cmd.Flags().GetString("key")
	requireFlag(cmd, "key", hexKey)
	k, err := key.ParseHex(hexKey)
	bail(err)

	c, ctx, cancel, err := dial(cmd.Context())
	bail(err)
	defer cancel()
	defer c.Close()
	v, err := c.ValRead(ctx, k)
	bail(err)
	if v == nil {
		fmt.Fprintln(os.Stderr, "not found")
		os.Exit(1)
	}
	data, err := codec.ValueToJSON(v)
	bail(err)
	fmt.Println(string(data))
}

// ---------------------------------------------------------------------------
// CLI definitions
// ---------------------------------------------------------------------------

var valueCmd = &cobra.Command{
	Use:              "value",
	Short:            "Value Store operations",
	PersistentPreRun: initClientMiddleware,
}

var valueWriteCmd = &cobra.Command{Use: "write", Short: "Write a file's contents as a blob Value", Run: valueWriteHandler}
var valueReadCmd = &cobra.Command{Use: "read", Short: "Read a Value by key (debug JSON mirror)", Run: valueReadHandler}

func init() {
	addConnectionFlags(valueCmd)
	valueWriteCmd.Flags().String("file", "", "path to the file to write as a blob")
	valueReadCmd.Flags().String("key", "", "hex-encoded key")
	valueCmd.AddCommand(valueWriteCmd, valueReadCmd)
}

// ---------------------------------------------------------------------------
// Consolidated route export
// ---------------------------------------------------------------------------

// ValueRoute is the entry-point command (root: "value").
var ValueRoute = valueCmd
