package codec

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/nymote/irminsule/internal/key"
	"github.com/nymote/irminsule/internal/value"
)

// DecodeError is returned for malformed bytes on the wire or in storage
// (spec.md §7 kind 1): fatal for the frame, connection closed by the
// caller.
type DecodeError struct {
	Context string
	Err     error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode %s: %v", e.Context, e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

func decodeErr(context string, err error) error {
	if err == nil {
		return nil
	}
	var ioErr *IOError
	if errors.As(err, &ioErr) {
		// A stream failure while reading, not malformed content: propagate
		// as-is (spec.md §7 point 6) instead of misreporting it as a
		// DecodeError.
		return err
	}
	return &DecodeError{Context: context, Err: err}
}

// --- uint32 -----------------------------------------------------------

// SizeofUint32 is the fixed wire length of a uint32 (spec.md §4.1: "4-byte
// lengths").
const SizeofUint32 = 4

func WriteUint32(ctx context.Context, w *Window, v uint32) error {
	var buf [SizeofUint32]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return w.WriteN(ctx, buf[:])
}

func ReadUint32(ctx context.Context, w *Window) (uint32, error) {
	b, err := w.ReadN(ctx, SizeofUint32)
	if err != nil {
		return 0, decodeErr("uint32", err)
	}
	return binary.BigEndian.Uint32(b), nil
}

// --- uint64 -----------------------------------------------------------

// SizeofUint64 is the fixed wire length of a uint64 (spec.md §4.1: "8-byte
// counts").
const SizeofUint64 = 8

func WriteUint64(ctx context.Context, w *Window, v uint64) error {
	var buf [SizeofUint64]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return w.WriteN(ctx, buf[:])
}

func ReadUint64(ctx context.Context, w *Window) (uint64, error) {
	b, err := w.ReadN(ctx, SizeofUint64)
	if err != nil {
		return 0, decodeErr("uint64", err)
	}
	return binary.BigEndian.Uint64(b), nil
}

// --- byte (used for opcodes/status/kind tags) --------------------------

const SizeofByte = 1

func WriteByte(ctx context.Context, w *Window, b byte) error {
	return w.WriteN(ctx, []byte{b})
}

func ReadByte(ctx context.Context, w *Window) (byte, error) {
	b, err := w.ReadN(ctx, SizeofByte)
	if err != nil {
		return 0, decodeErr("byte", err)
	}
	return b[0], nil
}

// --- string -------------------------------------------------------------

// SizeofString is the wire length of a 4-byte length prefix plus the UTF-8
// bytes of s, no terminator (spec.md §4.1).
func SizeofString(s string) int { return SizeofUint32 + len(s) }

func WriteString(ctx context.Context, w *Window, s string) error {
	if err := WriteUint32(ctx, w, uint32(len(s))); err != nil {
		return err
	}
	return w.WriteN(ctx, []byte(s))
}

func ReadString(ctx context.Context, w *Window) (string, error) {
	n, err := ReadUint32(ctx, w)
	if err != nil {
		return "", err
	}
	b, err := w.ReadN(ctx, int(n))
	if err != nil {
		return "", decodeErr("string", err)
	}
	return string(b), nil
}

// --- Tag ------------------------------------------------------------

// Tags are encoded identically to strings (spec.md §3 "no structural
// constraints beyond being serializable").
func SizeofTag(t string) int                           { return SizeofString(t) }
func WriteTag(ctx context.Context, w *Window, t string) error { return WriteString(ctx, w, t) }
func ReadTag(ctx context.Context, w *Window) (string, error)  { return ReadString(ctx, w) }

// --- Key ------------------------------------------------------------

// SizeofKey is the wire length of a Key: its raw digest bytes, no length
// prefix (spec.md §4.1 "Keys: raw digest bytes").
func SizeofKey() int { return key.Width }

func WriteKey(ctx context.Context, w *Window, k key.Key) error {
	return w.WriteN(ctx, k.Bytes())
}

func ReadKey(ctx context.Context, w *Window) (key.Key, error) {
	b, err := w.ReadN(ctx, key.Width)
	if err != nil {
		return key.Key{}, decodeErr("key", err)
	}
	return key.FromBytes(b), nil
}

// --- []Key (list of keys) -----------------------------------------------

func SizeofKeyList(ks []key.Key) int { return SizeofUint32 + len(ks)*key.Width }

func WriteKeyList(ctx context.Context, w *Window, ks []key.Key) error {
	if err := WriteUint32(ctx, w, uint32(len(ks))); err != nil {
		return err
	}
	for _, k := range ks {
		if err := WriteKey(ctx, w, k); err != nil {
			return err
		}
	}
	return nil
}

func ReadKeyList(ctx context.Context, w *Window) ([]key.Key, error) {
	n, err := ReadUint32(ctx, w)
	if err != nil {
		return nil, err
	}
	out := make([]key.Key, n)
	for i := range out {
		k, err := ReadKey(ctx, w)
		if err != nil {
			return nil, err
		}
		out[i] = k
	}
	return out, nil
}

// --- []Tag -----------------------------------------------------------

func WriteTagList(ctx context.Context, w *Window, tags []string) error {
	if err := WriteUint32(ctx, w, uint32(len(tags))); err != nil {
		return err
	}
	for _, t := range tags {
		if err := WriteTag(ctx, w, t); err != nil {
			return err
		}
	}
	return nil
}

func ReadTagList(ctx context.Context, w *Window) ([]string, error) {
	n, err := ReadUint32(ctx, w)
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		t, err := ReadTag(ctx, w)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// --- option<Key> ----------------------------------------------------

// A present/absent Key is a 1-byte flag followed by the key bytes if
// present, used for Tag Store reads (spec.md §4.7 `TAG_READ`).
func SizeofOptionKey(k *key.Key) int {
	if k == nil {
		return SizeofByte
	}
	return SizeofByte + SizeofKey()
}

func WriteOptionKey(ctx context.Context, w *Window, k *key.Key) error {
	if k == nil {
		return WriteByte(ctx, w, 0)
	}
	if err := WriteByte(ctx, w, 1); err != nil {
		return err
	}
	return WriteKey(ctx, w, *k)
}

func ReadOptionKey(ctx context.Context, w *Window) (*key.Key, error) {
	present, err := ReadByte(ctx, w)
	if err != nil {
		return nil, err
	}
	if present == 0 {
		return nil, nil
	}
	k, err := ReadKey(ctx, w)
	if err != nil {
		return nil, err
	}
	return &k, nil
}

// --- TagKey pair and []TagKey ----------------------------------------

// TagKey is the wire pair (Tag, Key) used by SYNC_PULL_TAGS/SYNC_PUSH_TAGS
// (spec.md §4.7).
type TagKey struct {
	Tag string
	Key key.Key
}

func WriteTagKeyList(ctx context.Context, w *Window, pairs []TagKey) error {
	if err := WriteUint32(ctx, w, uint32(len(pairs))); err != nil {
		return err
	}
	for _, p := range pairs {
		if err := WriteTag(ctx, w, p.Tag); err != nil {
			return err
		}
		if err := WriteKey(ctx, w, p.Key); err != nil {
			return err
		}
	}
	return nil
}

func ReadTagKeyList(ctx context.Context, w *Window) ([]TagKey, error) {
	n, err := ReadUint32(ctx, w)
	if err != nil {
		return nil, err
	}
	out := make([]TagKey, n)
	for i := range out {
		t, err := ReadTag(ctx, w)
		if err != nil {
			return nil, err
		}
		k, err := ReadKey(ctx, w)
		if err != nil {
			return nil, err
		}
		out[i] = TagKey{Tag: t, Key: k}
	}
	return out, nil
}

// --- Value ------------------------------------------------------------

// SizeofValue is the canonical on-wire length of v (spec.md §4.1: "a 1-byte
// tag discriminating blob vs node, then the payload, then the
// predecessor-list").
func SizeofValue(v *value.Value) int { return v.SizeofCanonical() }

func WriteValue(ctx context.Context, w *Window, v *value.Value) error {
	var buf bytes.Buffer
	v.AppendCanonical(&buf)
	return w.WriteN(ctx, buf.Bytes())
}

func ReadValue(ctx context.Context, w *Window) (*value.Value, error) {
	tag, err := ReadByte(ctx, w)
	if err != nil {
		return nil, err
	}
	switch value.Kind(tag) {
	case value.KindBlob:
		n, err := ReadUint32(ctx, w)
		if err != nil {
			return nil, err
		}
		blob, err := w.ReadN(ctx, int(n))
		if err != nil {
			return nil, decodeErr("value blob", err)
		}
		blobCopy := append([]byte(nil), blob...)
		pred, err := readPredList(ctx, w)
		if err != nil {
			return nil, err
		}
		return value.NewBlob(blobCopy, pred), nil
	case value.KindNode:
		count, err := ReadUint32(ctx, w)
		if err != nil {
			return nil, err
		}
		children := make([]value.Child, count)
		for i := range children {
			label, err := ReadString(ctx, w)
			if err != nil {
				return nil, err
			}
			k, err := ReadKey(ctx, w)
			if err != nil {
				return nil, err
			}
			children[i] = value.Child{Label: label, Key: k}
		}
		pred, err := readPredList(ctx, w)
		if err != nil {
			return nil, err
		}
		return value.NewNode(children, pred), nil
	default:
		return nil, decodeErr("value", fmt.Errorf("unknown value kind tag %d", tag))
	}
}

func readPredList(ctx context.Context, w *Window) ([]key.Key, error) {
	return ReadKeyList(ctx, w)
}

// --- option<Value> ----------------------------------------------------

func WriteOptionValue(ctx context.Context, w *Window, v *value.Value) error {
	if v == nil {
		return WriteByte(ctx, w, 0)
	}
	if err := WriteByte(ctx, w, 1); err != nil {
		return err
	}
	return WriteValue(ctx, w, v)
}

func ReadOptionValue(ctx context.Context, w *Window) (*value.Value, error) {
	present, err := ReadByte(ctx, w)
	if err != nil {
		return nil, err
	}
	if present == 0 {
		return nil, nil
	}
	return ReadValue(ctx, w)
}

// --- Graph (vertex set + induced edge set) -----------------------------

// Graph is the wire/value representation of a Key-Graph Store subgraph, as
// returned by SYNC_PULL_KEYS (spec.md §4.7).
type Graph struct {
	Vertices []key.Key
	Edges    [][2]key.Key // [pred, succ]
}

func WriteGraph(ctx context.Context, w *Window, g Graph) error {
	if err := WriteKeyList(ctx, w, g.Vertices); err != nil {
		return err
	}
	if err := WriteUint32(ctx, w, uint32(len(g.Edges))); err != nil {
		return err
	}
	for _, e := range g.Edges {
		if err := WriteKey(ctx, w, e[0]); err != nil {
			return err
		}
		if err := WriteKey(ctx, w, e[1]); err != nil {
			return err
		}
	}
	return nil
}

func ReadGraph(ctx context.Context, w *Window) (Graph, error) {
	vertices, err := ReadKeyList(ctx, w)
	if err != nil {
		return Graph{}, err
	}
	n, err := ReadUint32(ctx, w)
	if err != nil {
		return Graph{}, err
	}
	edges := make([][2]key.Key, n)
	for i := range edges {
		pred, err := ReadKey(ctx, w)
		if err != nil {
			return Graph{}, err
		}
		succ, err := ReadKey(ctx, w)
		if err != nil {
			return Graph{}, err
		}
		edges[i] = [2]key.Key{pred, succ}
	}
	return Graph{Vertices: vertices, Edges: edges}, nil
}
