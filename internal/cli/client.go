// Package cli wires cobra commands to the protocol Client/Server for the
// irminsule binary, one file per domain area (key/value/tag/sync/watch/
// serve), each following the same Globals & middleware / Controllers / CLI
// definitions / route export layout.
package cli

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nymote/irminsule/internal/protocol"
	"github.com/nymote/irminsule/pkg/config"
	"github.com/nymote/irminsule/pkg/utils"
)

// ---------------------------------------------------------------------------
// Globals & middleware
// ---------------------------------------------------------------------------

var (
	cliLog   = logrus.New()
	cliFlags struct {
		addr          string
		timeout       int
		initialWindow int
	}
)

func initClientMiddleware(cmd *cobra.Command, args []string) {
	_ = godotenv.Load()
	if v, _ := cmd.Flags().GetString("addr"); v != "" {
		cliFlags.addr = v
	} else {
		cliFlags.addr = utils.EnvOrDefault("IRMIN_ADDR", "127.0.0.1:4771")
	}
	if v, _ := cmd.Flags().GetInt("timeout"); v != 0 {
		cliFlags.timeout = v
	} else {
		cliFlags.timeout = utils.EnvOrDefaultInt("IRMIN_TIMEOUT_SECONDS", 10)
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		cliLog.WithError(err).Warn("failed to load config, using codec window default")
		return
	}
	cliFlags.initialWindow = cfg.Codec.InitialWindow
}

func addConnectionFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("addr", "", "server address (default IRMIN_ADDR or 127.0.0.1:4771)")
	cmd.PersistentFlags().Int("timeout", 0, "request timeout in seconds (default IRMIN_TIMEOUT_SECONDS or 10)")
}

func dial(ctx context.Context) (*protocol.Client, context.Context, context.CancelFunc, error) {
	conn, err := net.Dial("tcp", cliFlags.addr)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("dial %s: %w", cliFlags.addr, err)
	}
	callCtx, cancel := context.WithTimeout(ctx, time.Duration(cliFlags.timeout)*time.Second)
	return protocol.NewClientWithWindow(conn, cliFlags.initialWindow), callCtx, cancel, nil
}

// dialLongLived connects without a request-scoped deadline, for WATCH's
// server-streaming mode where the client may legitimately wait far longer
// than the ordinary per-call timeout between events.
func dialLongLived(ctx context.Context) (*protocol.Client, error) {
	conn, err := net.Dial("tcp", cliFlags.addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cliFlags.addr, err)
	}
	_ = ctx
	return protocol.NewClientWithWindow(conn, cliFlags.initialWindow), nil
}

func bail(err error) {
	if err != nil {
		cliLog.Fatalf("error: %v", err)
	}
}

func requireFlag(cmd *cobra.Command, name string, val string) {
	if val == "" {
		_ = cmd.Usage()
		bail(fmt.Errorf("--%s is required", name))
	}
}
