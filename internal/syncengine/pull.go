// Package syncengine implements the two closure computations of spec.md
// §4.8 that drive sync wire traffic: Pull (reverse-BFS ancestor closure up
// to a root cutoff) and Push (inserting a client-sent subgraph plus tags).
// Watch layers a polling diff on top of the Tag Store to detect the changes
// a WATCH subscriber should be told about.
package syncengine

import (
	"fmt"

	"github.com/nymote/irminsule/internal/codec"
	"github.com/nymote/irminsule/internal/key"
	"github.com/nymote/irminsule/internal/store"
)

// ErrPullTooLarge is returned when a pull closure would exceed
// MaxPullVertices (spec.md §6 sync.max_pull_vertices, a safety cap against
// unbounded history walks from a malicious or mistaken sink set).
var ErrPullTooLarge = fmt.Errorf("syncengine: pull closure exceeds configured vertex cap")

// Pull computes the subgraph of spec.md §4.8 "Pull": every vertex reachable
// from a sink tag's bound key by following pred, with descent stopped at
// any key in roots. If roots is empty, the full transitive closure up to
// the sinks is returned. maxVertices <= 0 means unbounded.
func Pull(g *store.KeyGraph, tags *store.TagStore, roots []key.Key, sinkTags []string, maxVertices int) (codec.Graph, error) {
	rootSet := make(map[key.Key]bool, len(roots))
	for _, r := range roots {
		rootSet[r] = true
	}

	var frontier []key.Key
	for _, sink := range sinkTags {
		hexKey, ok := tags.Read(sink)
		if !ok {
			continue
		}
		k, err := key.ParseHex(hexKey)
		if err != nil {
			return codec.Graph{}, fmt.Errorf("pull: resolve sink %q: %w", sink, err)
		}
		frontier = append(frontier, k)
	}

	visited := make(map[key.Key]bool)
	var order []key.Key
	for len(frontier) > 0 {
		k := frontier[0]
		frontier = frontier[1:]
		if visited[k] {
			continue
		}
		visited[k] = true
		// Roots cut the closure: they stop descent into their ancestors and
		// are themselves excluded from the result (spec.md §8 scenario 5:
		// "k1 excluded" even though it is the vertex the walk stops at).
		if rootSet[k] {
			continue
		}
		order = append(order, k)
		if maxVertices > 0 && len(order) > maxVertices {
			return codec.Graph{}, ErrPullTooLarge
		}
		frontier = append(frontier, g.Pred(k)...)
	}

	included := make(map[key.Key]bool, len(order))
	for _, k := range order {
		included[k] = true
	}
	edges := make([][2]key.Key, 0)
	for _, v := range order {
		for _, succ := range g.Succ(v) {
			if included[succ] {
				edges = append(edges, [2]key.Key{v, succ})
			}
		}
	}
	return codec.Graph{Vertices: order, Edges: edges}, nil
}
