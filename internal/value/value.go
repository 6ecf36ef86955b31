// Package value implements the immutable Value payload, its predecessor
// list, and the three-way merge algebra of spec.md §4.3.
//
// A Value's canonical byte encoding (produced by AppendCanonical) is both
// the hash preimage for Key() and the wire format written by
// internal/codec — spec.md §4.1 specifies the two as the same bytes ("a
// 1-byte tag ..., then the payload, then the predecessor-list").
package value

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sort"

	"github.com/nymote/irminsule/internal/key"
)

// Kind discriminates a Value's payload shape.
type Kind uint8

const (
	// KindBlob marks a leaf payload: opaque bytes with no children.
	KindBlob Kind = iota
	// KindNode marks an interior payload: an ordered list of labeled
	// child keys.
	KindNode
)

// Child is one (label, key) pair of a node payload.
type Child struct {
	Label string
	Key   key.Key
}

// Value is an immutable payload plus predecessor list (spec.md §3).
type Value struct {
	Kind     Kind
	Blob     []byte  // valid iff Kind == KindBlob
	Children []Child // valid iff Kind == KindNode, order is authoring intent

	pred []key.Key // sorted predecessor keys (spec.md §4.3 point 5)

	key    key.Key
	hasKey bool
}

// NewBlob constructs a blob-leaf Value. A sorted copy of pred is stored in
// canonical order; the caller's slice is left unchanged.
func NewBlob(data []byte, pred []key.Key) *Value {
	return &Value{Kind: KindBlob, Blob: append([]byte(nil), data...), pred: sortedCopy(pred)}
}

// NewNode constructs a node Value from an ordered list of labeled children.
func NewNode(children []Child, pred []key.Key) *Value {
	cs := make([]Child, len(children))
	copy(cs, children)
	return &Value{Kind: KindNode, Children: cs, pred: sortedCopy(pred)}
}

func sortedCopy(ks []key.Key) []key.Key {
	out := make([]key.Key, len(ks))
	copy(out, ks)
	key.SortKeys(out)
	return out
}

// IsBlob reports whether v is a blob leaf.
func (v *Value) IsBlob() bool { return v.Kind == KindBlob }

// IsNode reports whether v is a node.
func (v *Value) IsNode() bool { return v.Kind == KindNode }

// Pred returns the ordered (sorted) list of predecessor keys, spec.md
// §4.3 `pred(v)`. The returned slice must not be mutated.
func (v *Value) Pred() []key.Key { return v.pred }

// Key returns key(v) = hash(canonical_encoding(v)), cached after first
// computation (spec.md §4.3).
func (v *Value) Key() key.Key {
	if !v.hasKey {
		var buf bytes.Buffer
		v.AppendCanonical(&buf)
		v.key = key.Of(buf.Bytes())
		v.hasKey = true
	}
	return v.key
}

// SizeofCanonical returns the exact byte length AppendCanonical will write,
// i.e. spec.md §4.1's sizeof(x) for a Value.
func (v *Value) SizeofCanonical() int {
	n := 1 // tag byte
	switch v.Kind {
	case KindBlob:
		n += 4 + len(v.Blob)
	case KindNode:
		n += 4
		for _, c := range v.Children {
			n += 4 + len(c.Label) + key.Width
		}
	}
	n += 4 + len(v.pred)*key.Width
	return n
}

// AppendCanonical appends the bit-exact wire/hash encoding of v to buf
// (spec.md §4.1): 1-byte kind tag, then payload, then predecessor list.
func (v *Value) AppendCanonical(buf *bytes.Buffer) {
	buf.WriteByte(byte(v.Kind))
	switch v.Kind {
	case KindBlob:
		writeU32(buf, uint32(len(v.Blob)))
		buf.Write(v.Blob)
	case KindNode:
		writeU32(buf, uint32(len(v.Children)))
		for _, c := range v.Children {
			writeU32(buf, uint32(len(c.Label)))
			buf.WriteString(c.Label)
			buf.Write(c.Key.Bytes())
		}
	}
	writeU32(buf, uint32(len(v.pred)))
	for _, p := range v.pred {
		buf.Write(p.Bytes())
	}
}

func writeU32(buf *bytes.Buffer, n uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], n)
	buf.Write(tmp[:])
}

// Equal reports structural equality: same kind, same blob bytes (or same
// ordered children), and the same predecessor set. This intentionally
// compares structure rather than Key() equality so a caller can detect "a
// equals b" even before either has a computed key.
func (v *Value) Equal(o *Value) bool {
	if v == o {
		return true
	}
	if v == nil || o == nil {
		return false
	}
	if v.Kind != o.Kind || !predEqual(v.pred, o.pred) {
		return false
	}
	switch v.Kind {
	case KindBlob:
		return bytes.Equal(v.Blob, o.Blob)
	case KindNode:
		if len(v.Children) != len(o.Children) {
			return false
		}
		for i, c := range v.Children {
			d := o.Children[i]
			if c.Label != d.Label || !c.Key.Equal(d.Key) {
				return false
			}
		}
		return true
	}
	return false
}

func predEqual(a, b []key.Key) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Resolver reconciles divergent child keys during Merge (spec.md
// "Resolver" in the GLOSSARY). It returns ok=false to abort the whole
// merge with no result.
type Resolver func(a, b key.Key) (resolved key.Key, ok bool)

// ErrMergeConflict is returned by Merge (as a false ok, not literally this
// error — spec.md §7 models MergeConflict as a nil/None return, not an
// error value). It is exported only so callers have a canonical sentinel
// to compare against when they choose to surface a conflict as an error
// at a higher layer.
var ErrMergeConflict = errors.New("value: merge conflict")

// Merge implements the three-way-style merge of spec.md §4.3. It returns
// (result, true) on success or (nil, false) on an unresolvable conflict.
func Merge(resolve Resolver, a, b *Value) (*Value, bool) {
	if a.Equal(b) {
		return a, true
	}
	if a.IsBlob() && b.IsBlob() {
		// Equal() above also compares predecessors, so blobs with the same
		// bytes but different predecessor lists land here and merge to a.
		if bytes.Equal(a.Blob, b.Blob) {
			return a, true
		}
		// Differing bytes: blob conflicts are not auto-resolvable.
		return nil, false
	}
	if a.IsNode() && b.IsNode() {
		merged, ok := mergeNodes(resolve, a, b)
		if !ok {
			return nil, false
		}
		pred := sortedCopy([]key.Key{a.Key(), b.Key()})
		merged.pred = pred
		return merged, true
	}
	// Mixed blob/node at the same position.
	return nil, false
}

func mergeNodes(resolve Resolver, a, b *Value) (*Value, bool) {
	byLabel := make(map[string]key.Key, len(a.Children)+len(b.Children))
	order := make([]string, 0, len(a.Children)+len(b.Children))
	seen := make(map[string]bool)

	put := func(label string, k key.Key) bool {
		if existing, ok := byLabel[label]; ok {
			if existing.Equal(k) {
				return true
			}
			resolved, ok := resolve(existing, k)
			if !ok {
				return false
			}
			byLabel[label] = resolved
			return true
		}
		byLabel[label] = k
		if !seen[label] {
			seen[label] = true
			order = append(order, label)
		}
		return true
	}

	for _, c := range a.Children {
		if !put(c.Label, c.Key) {
			return nil, false
		}
	}
	for _, c := range b.Children {
		if !put(c.Label, c.Key) {
			return nil, false
		}
	}

	// Children are sorted by label rather than kept in first-seen order so
	// merge(r, a, b) and merge(r, b, a) produce the same Children order (and
	// therefore the same Key()) whenever both succeed, per spec.md §8.
	sort.Strings(order)
	children := make([]Child, 0, len(order))
	for _, label := range order {
		children = append(children, Child{Label: label, Key: byLabel[label]})
	}
	return &Value{Kind: KindNode, Children: children}, true
}
