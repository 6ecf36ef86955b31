package protocol

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nymote/irminsule/internal/codec"
	"github.com/nymote/irminsule/internal/key"
	"github.com/nymote/irminsule/internal/store"
	"github.com/nymote/irminsule/internal/syncengine"
)

// Server dispatches opcode frames to the three stores (spec.md §4.7). One
// Server instance is shared across connections; per-connection state lives
// entirely on the stack of Serve.
type Server struct {
	Graph  *store.KeyGraph
	Values store.ValueStore
	Tags   *store.TagStore

	// MaxPullVertices caps SYNC_PULL_KEYS closures (spec.md §6
	// sync.max_pull_vertices); zero means unbounded.
	MaxPullVertices int

	// WatchPollInterval is how often the WATCH loop re-checks the Tag
	// Store for changes. The spec does not mandate a push-notification
	// mechanism, only that changes are eventually observed.
	WatchPollInterval time.Duration

	// InitialWindow is the starting capacity of each connection's
	// codec.Window buffer (spec.md §6 codec.initial_window). Zero means use
	// this package's default of 4096 bytes.
	InitialWindow int

	Log *logrus.Logger
}

const defaultInitialWindow = 4096

func (s *Server) initialWindow() int {
	if s.InitialWindow > 0 {
		return s.InitialWindow
	}
	return defaultInitialWindow
}

func (s *Server) logger() *logrus.Logger {
	if s.Log != nil {
		return s.Log
	}
	return logrus.StandardLogger()
}

// Serve runs the single-threaded cooperative dispatch loop for one
// connection until it errors, the client disconnects, or ctx is canceled.
func (s *Server) Serve(ctx context.Context, conn net.Conn) error {
	defer conn.Close()
	w := codec.NewWindow(conn, s.initialWindow())
	log := s.logger().WithField("remote", conn.RemoteAddr())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		opByte, err := codec.ReadByte(ctx, w)
		if err != nil {
			return err
		}
		op := Opcode(opByte)
		log.WithField("op", op).Debug("dispatch")

		if err := s.dispatch(ctx, w, op, conn); err != nil {
			var perr *ProtocolError
			if errors.As(err, &perr) {
				// Recoverable (spec.md §7 point 5): reply ERR, keep the
				// connection open for the next request.
				if werr := writeErr(ctx, w, err); werr != nil {
					return werr
				}
				log.WithError(err).WithField("op", op).Warn("request failed")
				w.Compact()
				continue
			}
			// DecodeError, IntegrityError, and IOError are all fatal
			// (spec.md §7 points 1/2/6): a failure here can leave the
			// window offset mid-frame, so treating it as recoverable would
			// desync every subsequent request on this connection. Best
			// effort the client an ERR before closing.
			_ = writeErr(ctx, w, err)
			log.WithError(err).WithField("op", op).Error("fatal request error, closing connection")
			return err
		}
		w.Compact()
	}
}

func writeErr(ctx context.Context, w *codec.Window, err error) error {
	if werr := codec.WriteByte(ctx, w, byte(StatusErr)); werr != nil {
		return werr
	}
	return codec.WriteString(ctx, w, err.Error())
}

func writeOK(ctx context.Context, w *codec.Window) error {
	return codec.WriteByte(ctx, w, byte(StatusOK))
}

func (s *Server) dispatch(ctx context.Context, w *codec.Window, op Opcode, conn net.Conn) error {
	switch op {
	case OpKeyAdd:
		k, err := codec.ReadKey(ctx, w)
		if err != nil {
			return err
		}
		s.Graph.AddKey(k)
		return writeUnit(ctx, w)

	case OpKeyRel:
		pred, err := codec.ReadKey(ctx, w)
		if err != nil {
			return err
		}
		succ, err := codec.ReadKey(ctx, w)
		if err != nil {
			return err
		}
		s.Graph.AddRelation(pred, succ)
		return writeUnit(ctx, w)

	case OpKeyList:
		if err := writeOK(ctx, w); err != nil {
			return err
		}
		return codec.WriteKeyList(ctx, w, s.Graph.List())

	case OpKeyPred:
		k, err := codec.ReadKey(ctx, w)
		if err != nil {
			return err
		}
		if err := writeOK(ctx, w); err != nil {
			return err
		}
		return codec.WriteKeyList(ctx, w, s.Graph.Pred(k))

	case OpKeySucc:
		k, err := codec.ReadKey(ctx, w)
		if err != nil {
			return err
		}
		if err := writeOK(ctx, w); err != nil {
			return err
		}
		return codec.WriteKeyList(ctx, w, s.Graph.Succ(k))

	case OpValWrite:
		v, err := codec.ReadValue(ctx, w)
		if err != nil {
			return err
		}
		k, err := s.Values.Write(v)
		if err != nil {
			return err
		}
		if err := writeOK(ctx, w); err != nil {
			return err
		}
		return codec.WriteKey(ctx, w, k)

	case OpValRead:
		k, err := codec.ReadKey(ctx, w)
		if err != nil {
			return err
		}
		v, ok, err := s.Values.Read(k)
		if err != nil {
			return err
		}
		if err := writeOK(ctx, w); err != nil {
			return err
		}
		if !ok {
			return codec.WriteOptionValue(ctx, w, nil)
		}
		return codec.WriteOptionValue(ctx, w, v)

	case OpTagUpdate:
		t, err := codec.ReadTag(ctx, w)
		if err != nil {
			return err
		}
		k, err := codec.ReadKey(ctx, w)
		if err != nil {
			return err
		}
		s.Tags.Update(t, k.String())
		return writeUnit(ctx, w)

	case OpTagRemove:
		t, err := codec.ReadTag(ctx, w)
		if err != nil {
			return err
		}
		s.Tags.Remove(t)
		return writeUnit(ctx, w)

	case OpTagRead:
		t, err := codec.ReadTag(ctx, w)
		if err != nil {
			return err
		}
		hex, ok := s.Tags.Read(t)
		if err := writeOK(ctx, w); err != nil {
			return err
		}
		if !ok {
			return codec.WriteOptionKey(ctx, w, nil)
		}
		k, err := key.ParseHex(hex)
		if err != nil {
			return err
		}
		return codec.WriteOptionKey(ctx, w, &k)

	case OpTagList:
		if err := writeOK(ctx, w); err != nil {
			return err
		}
		return codec.WriteTagList(ctx, w, s.Tags.List())

	case OpSyncPullKeys:
		roots, err := codec.ReadKeyList(ctx, w)
		if err != nil {
			return err
		}
		sinks, err := codec.ReadTagList(ctx, w)
		if err != nil {
			return err
		}
		g, err := syncengine.Pull(s.Graph, s.Tags, roots, sinks, s.MaxPullVertices)
		if err != nil {
			return err
		}
		if err := writeOK(ctx, w); err != nil {
			return err
		}
		return codec.WriteGraph(ctx, w, g)

	case OpSyncPullTags:
		snap := s.Tags.Snapshot()
		pairs, err := tagKeyPairs(snap)
		if err != nil {
			return err
		}
		if err := writeOK(ctx, w); err != nil {
			return err
		}
		return codec.WriteTagKeyList(ctx, w, pairs)

	case OpSyncPushKeys:
		g, err := codec.ReadGraph(ctx, w)
		if err != nil {
			return err
		}
		pairs, err := codec.ReadTagKeyList(ctx, w)
		if err != nil {
			return err
		}
		syncengine.Push(s.Graph, s.Tags, g, pairs)
		return writeUnit(ctx, w)

	case OpSyncPushTags:
		pairs, err := codec.ReadTagKeyList(ctx, w)
		if err != nil {
			return err
		}
		for _, p := range pairs {
			s.Tags.Update(p.Tag, p.Key.String())
		}
		return writeUnit(ctx, w)

	case OpWatch:
		tags, err := codec.ReadTagList(ctx, w)
		if err != nil {
			return err
		}
		if err := writeOK(ctx, w); err != nil {
			return err
		}
		return s.watchLoop(ctx, w, tags)

	default:
		return &ProtocolError{Detail: fmt.Sprintf("unknown opcode %d", op)}
	}
}

func writeUnit(ctx context.Context, w *codec.Window) error {
	return writeOK(ctx, w)
}

func tagKeyPairs(snap map[string]string) ([]codec.TagKey, error) {
	out := make([]codec.TagKey, 0, len(snap))
	for t, hexKey := range snap {
		k, err := key.ParseHex(hexKey)
		if err != nil {
			return nil, err
		}
		out = append(out, codec.TagKey{Tag: t, Key: k})
	}
	return out, nil
}

// watchLoop implements the server-streaming side of spec.md §4.7 WATCH: it
// polls the Tag Store for the subscribed tags and, on change, emits an
// (updated_tags, delta_graph) event until the client closes the stream.
func (s *Server) watchLoop(ctx context.Context, w *codec.Window, tags []string) error {
	interval := s.WatchPollInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	prev := make(map[string]string, len(tags))
	for _, t := range tags {
		if k, ok := s.Tags.Read(t); ok {
			prev[t] = k
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			changed, delta, next := syncengine.WatchDiff(s.Graph, s.Tags, tags, prev)
			if len(changed) == 0 {
				continue
			}
			prev = next
			pairs := make([]codec.TagKey, 0, len(changed))
			for t, hexKey := range changed {
				if hexKey == "" {
					continue // tag removed since the last event; no key to report
				}
				k, err := key.ParseHex(hexKey)
				if err != nil {
					return err
				}
				pairs = append(pairs, codec.TagKey{Tag: t, Key: k})
			}
			if err := codec.WriteTagKeyList(ctx, w, pairs); err != nil {
				return err
			}
			if err := codec.WriteGraph(ctx, w, delta); err != nil {
				return err
			}
		}
	}
}
