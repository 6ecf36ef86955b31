package value

import (
	"bytes"
	"testing"

	"github.com/nymote/irminsule/internal/key"
)

func TestBlobKeyMatchesSpecExample(t *testing.T) {
	// spec.md §8 scenario 1: write blob "hello" -> key = sha1("hello"‖[]).
	v := NewBlob([]byte("hello"), nil)
	var buf []byte
	buf = append(buf, byte(KindBlob))
	buf = append(buf, 0, 0, 0, 5)
	buf = append(buf, "hello"...)
	buf = append(buf, 0, 0, 0, 0) // empty predecessor list
	want := key.Of(buf)
	if !v.Key().Equal(want) {
		t.Fatalf("blob key mismatch: got %s want %s", v.Key(), want)
	}
	if len(v.Pred()) != 0 {
		t.Fatalf("expected empty predecessor list")
	}
}

func TestNodeWithTwoChildren(t *testing.T) {
	// spec.md §8 scenario 2.
	ka := NewBlob([]byte("a"), nil).Key()
	kb := NewBlob([]byte("b"), nil).Key()
	node := NewNode([]Child{{Label: "l1", Key: ka}, {Label: "l2", Key: kb}}, []key.Key{ka, kb})

	pred := node.Pred()
	if len(pred) != 2 {
		t.Fatalf("expected 2 predecessors, got %d", len(pred))
	}
	sorted := []key.Key{ka, kb}
	key.SortKeys(sorted)
	if !pred[0].Equal(sorted[0]) || !pred[1].Equal(sorted[1]) {
		t.Fatalf("predecessor list not sorted canonically")
	}
}

func TestSizeofMatchesAppendCanonical(t *testing.T) {
	v := NewBlob([]byte("payload"), []key.Key{key.Of([]byte("p"))})
	var buf bytes.Buffer
	v.AppendCanonical(&buf)
	if got, want := buf.Len(), v.SizeofCanonical(); got != want {
		t.Fatalf("sizeof mismatch: AppendCanonical wrote %d bytes, SizeofCanonical reported %d", got, want)
	}
}

func TestKeyIsPureFunctionOfPayloadAndPred(t *testing.T) {
	p := key.Of([]byte("pred"))
	a := NewBlob([]byte("x"), []key.Key{p})
	b := NewBlob([]byte("x"), []key.Key{p})
	if !a.Key().Equal(b.Key()) {
		t.Fatalf("identical payload+pred must derive identical keys")
	}
	c := NewBlob([]byte("x"), nil)
	if a.Key().Equal(c.Key()) {
		t.Fatalf("differing predecessor lists must derive distinct keys")
	}
}

func TestMergeReflexivity(t *testing.T) {
	v := NewBlob([]byte("same"), nil)
	resolve := func(a, b key.Key) (key.Key, bool) { return key.Key{}, false }
	got, ok := Merge(resolve, v, v)
	if !ok || !got.Equal(v) {
		t.Fatalf("merge(v, v) must return Some v")
	}
}

func TestMergeBlobConflict(t *testing.T) {
	v1 := NewBlob([]byte("x"), nil)
	v2 := NewBlob([]byte("y"), nil)
	resolve := func(a, b key.Key) (key.Key, bool) { return key.Key{}, false }
	_, ok := Merge(resolve, v1, v2)
	if ok {
		t.Fatalf("differing blobs must not auto-resolve")
	}
}

func TestMergeBlobEqualBytesSucceeds(t *testing.T) {
	v1 := NewBlob([]byte("same"), []key.Key{key.Of([]byte("p1"))})
	v2 := NewBlob([]byte("same"), []key.Key{key.Of([]byte("p2"))})
	resolve := func(a, b key.Key) (key.Key, bool) { return key.Key{}, false }
	got, ok := Merge(resolve, v1, v2)
	if !ok {
		t.Fatalf("equal blob bytes should merge even with different predecessors")
	}
	if !got.Equal(v1) {
		t.Fatalf("expected merged value to equal either input for matching blobs")
	}
}

func TestMergeMixedBlobNodeFails(t *testing.T) {
	blob := NewBlob([]byte("x"), nil)
	node := NewNode(nil, nil)
	resolve := func(a, b key.Key) (key.Key, bool) { return key.Key{}, false }
	if _, ok := Merge(resolve, blob, node); ok {
		t.Fatalf("mixed blob/node must not merge")
	}
}

func TestMergeNodesIdenticalChildrenKept(t *testing.T) {
	ka := NewBlob([]byte("a"), nil).Key()
	n1 := NewNode([]Child{{Label: "l", Key: ka}}, nil)
	n2 := NewNode([]Child{{Label: "l", Key: ka}}, nil)
	resolve := func(a, b key.Key) (key.Key, bool) { return key.Key{}, false }
	got, ok := Merge(resolve, n1, n2)
	if !ok {
		t.Fatalf("identical child keys must merge without invoking resolve")
	}
	if len(got.Children) != 1 || !got.Children[0].Key.Equal(ka) {
		t.Fatalf("unexpected merged children: %+v", got.Children)
	}
}

func TestMergeNodesDivergentUsesResolver(t *testing.T) {
	// spec.md §8 scenario 6: n1={l: k_a}, n2={l: k_a, m: k_b}; resolver
	// returning the second argument yields a node with both labels.
	ka := NewBlob([]byte("a"), nil).Key()
	kb := NewBlob([]byte("b"), nil).Key()
	n1 := NewNode([]Child{{Label: "l", Key: ka}}, nil)
	n2 := NewNode([]Child{{Label: "l", Key: ka}, {Label: "m", Key: kb}}, nil)

	resolveSecond := func(a, b key.Key) (key.Key, bool) { return b, true }
	got, ok := Merge(resolveSecond, n1, n2)
	if !ok {
		t.Fatalf("expected merge to succeed")
	}
	if len(got.Children) != 2 {
		t.Fatalf("expected both labels present, got %+v", got.Children)
	}
	wantPred := []key.Key{n1.Key(), n2.Key()}
	key.SortKeys(wantPred)
	pred := got.Pred()
	if len(pred) != 2 || !pred[0].Equal(wantPred[0]) || !pred[1].Equal(wantPred[1]) {
		t.Fatalf("unexpected merged predecessor list: %+v", pred)
	}
}

func TestMergeResolverRejectionAbortsWholeMerge(t *testing.T) {
	ka := NewBlob([]byte("a"), nil).Key()
	kb := NewBlob([]byte("b"), nil).Key()
	kc := NewBlob([]byte("c"), nil).Key()
	n1 := NewNode([]Child{{Label: "l", Key: ka}, {Label: "shared", Key: kb}}, nil)
	n2 := NewNode([]Child{{Label: "l", Key: kc}, {Label: "shared", Key: kb}}, nil)

	reject := func(a, b key.Key) (key.Key, bool) { return key.Key{}, false }
	if _, ok := Merge(reject, n1, n2); ok {
		t.Fatalf("a rejecting resolver must abort the whole merge, not just the divergent label")
	}
}

func TestMergePredecessorCommutativity(t *testing.T) {
	ka := NewBlob([]byte("a"), nil).Key()
	kb := NewBlob([]byte("b"), nil).Key()
	n1 := NewNode([]Child{{Label: "l", Key: ka}}, nil)
	n2 := NewNode([]Child{{Label: "l", Key: ka}, {Label: "m", Key: kb}}, nil)
	resolveSecond := func(a, b key.Key) (key.Key, bool) { return b, true }

	ab, ok1 := Merge(resolveSecond, n1, n2)
	ba, ok2 := Merge(func(a, b key.Key) (key.Key, bool) { return a, true }, n2, n1)
	if !ok1 || !ok2 {
		t.Fatalf("expected both merge directions to succeed")
	}
	if !ab.Key().Equal(ba.Key()) {
		t.Fatalf("merge must be commutative at the key level: %s != %s", ab.Key(), ba.Key())
	}
}

func TestMergeCommutativeWithDisjointNewLabels(t *testing.T) {
	// a and b each introduce a label the other doesn't have, so a naive
	// first-seen child order would differ between merge(r,a,b) and
	// merge(r,b,a). spec.md §8: key(merge(r,a,b)) = key(merge(r,b,a)).
	kx := NewBlob([]byte("x"), nil).Key()
	ky := NewBlob([]byte("y"), nil).Key()
	a := NewNode([]Child{{Label: "x", Key: kx}}, nil)
	b := NewNode([]Child{{Label: "y", Key: ky}}, nil)
	resolve := func(a, b key.Key) (key.Key, bool) { return key.Key{}, false }

	ab, ok1 := Merge(resolve, a, b)
	ba, ok2 := Merge(resolve, b, a)
	if !ok1 || !ok2 {
		t.Fatalf("expected both merge directions to succeed (no conflicting labels)")
	}
	if !ab.Key().Equal(ba.Key()) {
		t.Fatalf("merge must be commutative at the key level: %s != %s", ab.Key(), ba.Key())
	}
	if len(ab.Children) != 2 || ab.Children[0].Label != "x" || ab.Children[1].Label != "y" {
		t.Fatalf("expected children sorted by label [x,y], got %+v", ab.Children)
	}
}
