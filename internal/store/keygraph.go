// Package store implements the three stores of spec.md §4.4-4.6: the
// Key-Graph Store (a DAG of keys), the Value Store (content-addressed
// blob/node payloads), and the Tag Store (mutable name-to-key bindings).
package store

import (
	"sync"

	"github.com/nymote/irminsule/internal/key"
)

// KeyGraph is an in-memory, append-only DAG of keys (spec.md §4.4). It is
// safe for concurrent use; mutation ordering on a single vertex/edge is
// serialized by the embedded mutex, matching the Tag Store's per-name
// ordering guarantee and no stronger.
type KeyGraph struct {
	mu    sync.RWMutex
	nodes map[key.Key]struct{}
	pred  map[key.Key][]key.Key
	succ  map[key.Key][]key.Key
}

// NewKeyGraph returns an empty Key-Graph Store.
func NewKeyGraph() *KeyGraph {
	return &KeyGraph{
		nodes: make(map[key.Key]struct{}),
		pred:  make(map[key.Key][]key.Key),
		succ:  make(map[key.Key][]key.Key),
	}
}

// AddKey inserts k as a vertex. Idempotent.
func (g *KeyGraph) AddKey(k key.Key) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[k] = struct{}{}
}

// AddRelation records the edge pred -> succ, inserting both endpoints if
// absent. Idempotent.
func (g *KeyGraph) AddRelation(pred, succ key.Key) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[pred] = struct{}{}
	g.nodes[succ] = struct{}{}
	if !containsKey(g.succ[pred], succ) {
		g.succ[pred] = append(g.succ[pred], succ)
	}
	if !containsKey(g.pred[succ], pred) {
		g.pred[succ] = append(g.pred[succ], pred)
	}
}

// List returns every vertex, in unspecified order.
func (g *KeyGraph) List() []key.Key {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]key.Key, 0, len(g.nodes))
	for k := range g.nodes {
		out = append(out, k)
	}
	return out
}

// Pred returns k's direct predecessors, or an empty slice if k is unknown.
func (g *KeyGraph) Pred(k key.Key) []key.Key { return g.edgesOf(g.pred, k) }

// Succ returns k's direct successors, or an empty slice if k is unknown.
func (g *KeyGraph) Succ(k key.Key) []key.Key { return g.edgesOf(g.succ, k) }

func (g *KeyGraph) edgesOf(m map[key.Key][]key.Key, k key.Key) []key.Key {
	g.mu.RLock()
	defer g.mu.RUnlock()
	es := m[k]
	out := make([]key.Key, len(es))
	copy(out, es)
	return out
}

// Has reports whether k was ever added as a vertex.
func (g *KeyGraph) Has(k key.Key) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[k]
	return ok
}

func containsKey(ks []key.Key, k key.Key) bool {
	for _, x := range ks {
		if x.Equal(k) {
			return true
		}
	}
	return false
}
