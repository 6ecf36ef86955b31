package cli

import (
	"context"
	"net"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nymote/irminsule/internal/key"
	"github.com/nymote/irminsule/internal/protocol"
	"github.com/nymote/irminsule/internal/store"
	"github.com/nymote/irminsule/pkg/config"
)

// ---------------------------------------------------------------------------
// Controllers
// ---------------------------------------------------------------------------

func serveHandler(cmd *cobra.Command, args []string) {
	cfg, err := config.LoadFromEnv()
	bail(err)

	if lvl, lerr := logrus.ParseLevel(cfg.Logging.Level); lerr == nil {
		logrus.SetLevel(lvl)
	}
	key.Width = cfg.Hash.Width

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.Server.ListenAddr
	}
	diskPath, _ := cmd.Flags().GetString("disk")

	var values store.ValueStore
	if diskPath != "" {
		disk, derr := store.OpenDiskValueStore(diskPath)
		bail(derr)
		cached, cerr := store.NewCachedValueStore(disk, 4096)
		bail(cerr)
		values = cached
	} else {
		values = store.NewMemValueStore()
	}

	srv := &protocol.Server{
		Graph:           store.NewKeyGraph(),
		Values:          values,
		Tags:            store.NewTagStore(),
		MaxPullVertices: cfg.Sync.MaxPullVertices,
		InitialWindow:   cfg.Codec.InitialWindow,
		Log:             logrus.StandardLogger(),
	}

	ln, err := net.Listen("tcp", addr)
	bail(err)
	logrus.WithField("addr", addr).Info("irminsule server listening")

	ctx := context.Background()
	for {
		conn, err := ln.Accept()
		if err != nil {
			logrus.WithError(err).Error("accept failed")
			continue
		}
		go func() {
			if err := srv.Serve(ctx, conn); err != nil {
				logrus.WithError(err).Debug("connection closed")
			}
		}()
	}
}

// ---------------------------------------------------------------------------
// CLI definitions
// ---------------------------------------------------------------------------

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the irminsule protocol server",
	Run:   serveHandler,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from config/server.listen_addr)")
	serveCmd.Flags().String("disk", "", "path to a log-structured disk value store (default: in-memory only)")
}

// ---------------------------------------------------------------------------
// Consolidated route export
// ---------------------------------------------------------------------------

// ServeRoute is the entry-point command (root: "serve").
var ServeRoute = serveCmd
