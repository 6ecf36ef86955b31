package codec

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/nymote/irminsule/internal/key"
	"github.com/nymote/irminsule/internal/value"
)

// jsonValue is the debug JSON mirror of a Value (spec.md §9): blobs render
// as a hex payload string, nodes as an ordered list of {label, key} pairs,
// and every value carries its sorted predecessor list as hex strings. This
// mirror is for inspection tooling only — it is never parsed back into the
// binary wire format, only into a Value for round-trip tests.
type jsonValue struct {
	Kind     string          `json:"kind"`
	Payload  string          `json:"payload,omitempty"`
	Children []jsonChild     `json:"children,omitempty"`
	Pred     []string        `json:"pred"`
}

type jsonChild struct {
	Label string `json:"label"`
	Key   string `json:"key"`
}

// ValueToJSON renders v as its debug JSON mirror.
func ValueToJSON(v *value.Value) ([]byte, error) {
	jv := jsonValue{Pred: hexKeys(v.Pred())}
	switch {
	case v.IsBlob():
		jv.Kind = "blob"
		jv.Payload = hex.EncodeToString(v.Blob)
	case v.IsNode():
		jv.Kind = "node"
		jv.Children = make([]jsonChild, len(v.Children))
		for i, c := range v.Children {
			jv.Children[i] = jsonChild{Label: c.Label, Key: c.Key.String()}
		}
	}
	return json.Marshal(jv)
}

// ValueFromJSON parses the debug mirror produced by ValueToJSON back into a
// Value. It is the `of_json` side of spec.md §9's `of_json(to_json(x)) = x`
// law.
func ValueFromJSON(data []byte) (*value.Value, error) {
	var jv jsonValue
	if err := json.Unmarshal(data, &jv); err != nil {
		return nil, decodeErr("json value", err)
	}
	pred, err := parseHexKeys(jv.Pred)
	if err != nil {
		return nil, err
	}
	switch jv.Kind {
	case "blob":
		blob, err := hex.DecodeString(jv.Payload)
		if err != nil {
			return nil, decodeErr("json value payload", err)
		}
		return value.NewBlob(blob, pred), nil
	case "node":
		children := make([]value.Child, len(jv.Children))
		for i, c := range jv.Children {
			k, err := key.ParseHex(c.Key)
			if err != nil {
				return nil, decodeErr("json value child key", err)
			}
			children[i] = value.Child{Label: c.Label, Key: k}
		}
		return value.NewNode(children, pred), nil
	default:
		return nil, decodeErr("json value", fmt.Errorf("unknown kind %q", jv.Kind))
	}
}

func hexKeys(ks []key.Key) []string {
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = k.String()
	}
	return out
}

func parseHexKeys(ss []string) ([]key.Key, error) {
	out := make([]key.Key, len(ss))
	for i, s := range ss {
		k, err := key.ParseHex(s)
		if err != nil {
			return nil, decodeErr("json key list", err)
		}
		out[i] = k
	}
	return out, nil
}

// jsonGraph is the debug mirror of a Graph: vertices as hex strings, edges
// as [pred, succ] hex pairs.
type jsonGraph struct {
	Vertices []string   `json:"vertices"`
	Edges    [][2]string `json:"edges"`
}

// GraphToJSON renders g as its debug JSON mirror.
func GraphToJSON(g Graph) ([]byte, error) {
	jg := jsonGraph{Vertices: hexKeys(g.Vertices), Edges: make([][2]string, len(g.Edges))}
	for i, e := range g.Edges {
		jg.Edges[i] = [2]string{e[0].String(), e[1].String()}
	}
	return json.Marshal(jg)
}

// GraphFromJSON parses the mirror produced by GraphToJSON.
func GraphFromJSON(data []byte) (Graph, error) {
	var jg jsonGraph
	if err := json.Unmarshal(data, &jg); err != nil {
		return Graph{}, decodeErr("json graph", err)
	}
	vertices, err := parseHexKeys(jg.Vertices)
	if err != nil {
		return Graph{}, err
	}
	edges := make([][2]key.Key, len(jg.Edges))
	for i, e := range jg.Edges {
		pred, err := key.ParseHex(e[0])
		if err != nil {
			return Graph{}, decodeErr("json graph edge", err)
		}
		succ, err := key.ParseHex(e[1])
		if err != nil {
			return Graph{}, decodeErr("json graph edge", err)
		}
		edges[i] = [2]key.Key{pred, succ}
	}
	return Graph{Vertices: vertices, Edges: edges}, nil
}

// Tree is the polymorphic JSON tree of spec.md §9's design notes: a
// debug-only structural view of an arbitrary Value DAG, inlining children
// recursively rather than stopping at a key reference. Depth must be
// bounded by the caller (e.g. by the Key-Graph Store's root cutoff) since
// the underlying DAG may be cyclic-looking under naive recursion if a
// caller mismanages predecessor edges.
type Tree struct {
	Kind     string          `json:"kind"`
	Payload  string          `json:"payload,omitempty"`
	Children []TreeChild     `json:"children,omitempty"`
}

// TreeChild pairs a label with an inlined subtree.
type TreeChild struct {
	Label string `json:"label"`
	Value Tree   `json:"value"`
}

// BuildTree inlines v and its children up to maxDepth levels, resolving
// child keys via lookup. lookup returning (nil, false) renders that child
// as an opaque reference (kind "ref") instead of recursing.
func BuildTree(v *value.Value, lookup func(key.Key) (*value.Value, bool), maxDepth int) Tree {
	if v.IsBlob() {
		return Tree{Kind: "blob", Payload: hex.EncodeToString(v.Blob)}
	}
	t := Tree{Kind: "node"}
	for _, c := range v.Children {
		if maxDepth <= 0 {
			t.Children = append(t.Children, TreeChild{Label: c.Label, Value: Tree{Kind: "ref", Payload: c.Key.String()}})
			continue
		}
		child, ok := lookup(c.Key)
		if !ok {
			t.Children = append(t.Children, TreeChild{Label: c.Label, Value: Tree{Kind: "ref", Payload: c.Key.String()}})
			continue
		}
		t.Children = append(t.Children, TreeChild{Label: c.Label, Value: BuildTree(child, lookup, maxDepth-1)})
	}
	return t
}
