package syncengine

import (
	"testing"

	"github.com/nymote/irminsule/internal/key"
	"github.com/nymote/irminsule/internal/store"
)

// chain builds a -> b -> c (a is the oldest ancestor, c the newest) in g
// and returns their keys.
func chain(g *store.KeyGraph) (a, b, c key.Key) {
	a = key.Of([]byte("a"))
	b = key.Of([]byte("b"))
	c = key.Of([]byte("c"))
	g.AddRelation(a, b)
	g.AddRelation(b, c)
	return
}

func TestPullFullClosureWithNoRoots(t *testing.T) {
	g := store.NewKeyGraph()
	a, b, c := chain(g)
	tags := store.NewTagStore()
	tags.Update("main", c.String())

	got, err := Pull(g, tags, nil, []string{"main"}, 0)
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if len(got.Vertices) != 3 {
		t.Fatalf("expected 3 vertices, got %d: %+v", len(got.Vertices), got.Vertices)
	}
	mustContain(t, got.Vertices, a, b, c)
}

func TestPullRootsCutClosure(t *testing.T) {
	// spec.md §8 scenario 5: chain k1<-k2<-k3, tag head->k3,
	// pull_keys([k1], ["head"]) returns {k2,k3} with k1 excluded.
	g := store.NewKeyGraph()
	a, b, c := chain(g)
	tags := store.NewTagStore()
	tags.Update("main", c.String())

	got, err := Pull(g, tags, []key.Key{a}, []string{"main"}, 0)
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if len(got.Vertices) != 2 {
		t.Fatalf("expected 2 vertices, got %d: %+v", len(got.Vertices), got.Vertices)
	}
	mustContain(t, got.Vertices, b, c)
	mustNotContain(t, got.Vertices, a)
}

func TestPullUnknownSinkTagYieldsEmptyGraph(t *testing.T) {
	g := store.NewKeyGraph()
	tags := store.NewTagStore()
	got, err := Pull(g, tags, nil, []string{"absent"}, 0)
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if len(got.Vertices) != 0 {
		t.Fatalf("expected empty graph, got %+v", got)
	}
}

func TestPullRespectsMaxVertices(t *testing.T) {
	g := store.NewKeyGraph()
	_, _, c := chain(g)
	tags := store.NewTagStore()
	tags.Update("main", c.String())

	if _, err := Pull(g, tags, nil, []string{"main"}, 1); err != ErrPullTooLarge {
		t.Fatalf("expected ErrPullTooLarge, got %v", err)
	}
}

func TestPullEdgesAreInduced(t *testing.T) {
	g := store.NewKeyGraph()
	a, b, c := chain(g)
	tags := store.NewTagStore()
	tags.Update("main", c.String())

	got, err := Pull(g, tags, []key.Key{a}, []string{"main"}, 0)
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if len(got.Edges) != 1 || !got.Edges[0][0].Equal(b) || !got.Edges[0][1].Equal(c) {
		t.Fatalf("expected single induced edge b->c, got %+v", got.Edges)
	}
}

func mustContain(t *testing.T, ks []key.Key, want ...key.Key) {
	t.Helper()
	for _, w := range want {
		found := false
		for _, k := range ks {
			if k.Equal(w) {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("expected %s in %+v", w, ks)
		}
	}
}

func mustNotContain(t *testing.T, ks []key.Key, absent ...key.Key) {
	t.Helper()
	for _, a := range absent {
		for _, k := range ks {
			if k.Equal(a) {
				t.Fatalf("expected %s absent from %+v", a, ks)
			}
		}
	}
}
