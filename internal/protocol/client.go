package protocol

import (
	"context"
	"fmt"
	"net"

	"github.com/nymote/irminsule/internal/codec"
	"github.com/nymote/irminsule/internal/key"
	"github.com/nymote/irminsule/internal/value"
)

// Client issues requests over a single connection and reads the matching
// response, one call per opcode (spec.md §4.7). It is not safe for
// concurrent use by multiple goroutines: the protocol is one request in
// flight at a time per connection.
type Client struct {
	conn net.Conn
	w    *codec.Window
}

// NewClient wraps an already-dialed connection with this package's default
// initial window capacity (4096 bytes).
func NewClient(conn net.Conn) *Client {
	return NewClientWithWindow(conn, defaultInitialWindow)
}

// NewClientWithWindow wraps an already-dialed connection with a
// caller-supplied initial window capacity (spec.md §6 codec.initial_window).
func NewClientWithWindow(conn net.Conn, initialWindow int) *Client {
	if initialWindow <= 0 {
		initialWindow = defaultInitialWindow
	}
	return &Client{conn: conn, w: codec.NewWindow(conn, initialWindow)}
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) call(ctx context.Context, op Opcode, writeArgs func() error) error {
	if err := codec.WriteByte(ctx, c.w, byte(op)); err != nil {
		return err
	}
	if writeArgs != nil {
		if err := writeArgs(); err != nil {
			return err
		}
	}
	status, err := codec.ReadByte(ctx, c.w)
	if err != nil {
		return err
	}
	if Status(status) == StatusErr {
		msg, err := codec.ReadString(ctx, c.w)
		if err != nil {
			return err
		}
		return fmt.Errorf("%s: %s", op, msg)
	}
	return nil
}

func (c *Client) KeyAdd(ctx context.Context, k key.Key) error {
	return c.call(ctx, OpKeyAdd, func() error { return codec.WriteKey(ctx, c.w, k) })
}

func (c *Client) KeyRel(ctx context.Context, pred, succ key.Key) error {
	return c.call(ctx, OpKeyRel, func() error {
		if err := codec.WriteKey(ctx, c.w, pred); err != nil {
			return err
		}
		return codec.WriteKey(ctx, c.w, succ)
	})
}

func (c *Client) KeyList(ctx context.Context) ([]key.Key, error) {
	var out []key.Key
	err := c.call(ctx, OpKeyList, nil)
	if err != nil {
		return nil, err
	}
	out, err = codec.ReadKeyList(ctx, c.w)
	return out, err
}

func (c *Client) KeyPred(ctx context.Context, k key.Key) ([]key.Key, error) {
	if err := c.call(ctx, OpKeyPred, func() error { return codec.WriteKey(ctx, c.w, k) }); err != nil {
		return nil, err
	}
	return codec.ReadKeyList(ctx, c.w)
}

func (c *Client) KeySucc(ctx context.Context, k key.Key) ([]key.Key, error) {
	if err := c.call(ctx, OpKeySucc, func() error { return codec.WriteKey(ctx, c.w, k) }); err != nil {
		return nil, err
	}
	return codec.ReadKeyList(ctx, c.w)
}

func (c *Client) ValWrite(ctx context.Context, v *value.Value) (key.Key, error) {
	if err := c.call(ctx, OpValWrite, func() error { return codec.WriteValue(ctx, c.w, v) }); err != nil {
		return key.Key{}, err
	}
	return codec.ReadKey(ctx, c.w)
}

func (c *Client) ValRead(ctx context.Context, k key.Key) (*value.Value, error) {
	if err := c.call(ctx, OpValRead, func() error { return codec.WriteKey(ctx, c.w, k) }); err != nil {
		return nil, err
	}
	return codec.ReadOptionValue(ctx, c.w)
}

func (c *Client) TagUpdate(ctx context.Context, tag string, k key.Key) error {
	return c.call(ctx, OpTagUpdate, func() error {
		if err := codec.WriteTag(ctx, c.w, tag); err != nil {
			return err
		}
		return codec.WriteKey(ctx, c.w, k)
	})
}

func (c *Client) TagRemove(ctx context.Context, tag string) error {
	return c.call(ctx, OpTagRemove, func() error { return codec.WriteTag(ctx, c.w, tag) })
}

func (c *Client) TagRead(ctx context.Context, tag string) (*key.Key, error) {
	if err := c.call(ctx, OpTagRead, func() error { return codec.WriteTag(ctx, c.w, tag) }); err != nil {
		return nil, err
	}
	return codec.ReadOptionKey(ctx, c.w)
}

func (c *Client) TagListAll(ctx context.Context) ([]string, error) {
	if err := c.call(ctx, OpTagList, nil); err != nil {
		return nil, err
	}
	return codec.ReadTagList(ctx, c.w)
}

func (c *Client) SyncPullKeys(ctx context.Context, roots []key.Key, sinks []string) (codec.Graph, error) {
	if err := c.call(ctx, OpSyncPullKeys, func() error {
		if err := codec.WriteKeyList(ctx, c.w, roots); err != nil {
			return err
		}
		return codec.WriteTagList(ctx, c.w, sinks)
	}); err != nil {
		return codec.Graph{}, err
	}
	return codec.ReadGraph(ctx, c.w)
}

func (c *Client) SyncPullTags(ctx context.Context) ([]codec.TagKey, error) {
	if err := c.call(ctx, OpSyncPullTags, nil); err != nil {
		return nil, err
	}
	return codec.ReadTagKeyList(ctx, c.w)
}

func (c *Client) SyncPushKeys(ctx context.Context, g codec.Graph, bindings []codec.TagKey) error {
	return c.call(ctx, OpSyncPushKeys, func() error {
		if err := codec.WriteGraph(ctx, c.w, g); err != nil {
			return err
		}
		return codec.WriteTagKeyList(ctx, c.w, bindings)
	})
}

func (c *Client) SyncPushTags(ctx context.Context, bindings []codec.TagKey) error {
	return c.call(ctx, OpSyncPushTags, func() error { return codec.WriteTagKeyList(ctx, c.w, bindings) })
}

// Watch sends a WATCH request and returns a reader function the caller
// invokes repeatedly to block for the next (changed tags, delta graph)
// event, per spec.md §4.7's server-streaming upgrade. The initial OK status
// is consumed by Watch itself; every subsequent call to the returned
// function reads one event frame with no further status byte.
func (c *Client) Watch(ctx context.Context, tags []string) (func() ([]codec.TagKey, codec.Graph, error), error) {
	if err := c.call(ctx, OpWatch, func() error { return codec.WriteTagList(ctx, c.w, tags) }); err != nil {
		return nil, err
	}
	next := func() ([]codec.TagKey, codec.Graph, error) {
		pairs, err := codec.ReadTagKeyList(ctx, c.w)
		if err != nil {
			return nil, codec.Graph{}, err
		}
		g, err := codec.ReadGraph(ctx, c.w)
		if err != nil {
			return nil, codec.Graph{}, err
		}
		return pairs, g, nil
	}
	return next, nil
}
