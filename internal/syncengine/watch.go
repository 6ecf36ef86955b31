package syncengine

import (
	"github.com/nymote/irminsule/internal/codec"
	"github.com/nymote/irminsule/internal/key"
	"github.com/nymote/irminsule/internal/store"
)

// WatchDiff implements spec.md §4.8 "Watch": for each watched tag whose
// bound key changed since prev, it computes the vertices reachable
// (following pred, no root cutoff) from the new value but not from the
// previous one, and returns the changed tag bindings plus the union delta
// graph, along with the updated prev map for the next call.
func WatchDiff(g *store.KeyGraph, tags *store.TagStore, watched []string, prev map[string]string) (changed map[string]string, delta codec.Graph, next map[string]string) {
	changed = make(map[string]string)
	next = make(map[string]string, len(prev))
	for k, v := range prev {
		next[k] = v
	}

	deltaVertices := make(map[key.Key]bool)
	for _, t := range watched {
		curHex, ok := tags.Read(t)
		prevHex, hadPrev := prev[t]
		if !ok {
			if hadPrev {
				delete(next, t)
				changed[t] = "" // tag removed; caller decides how to surface this
			}
			continue
		}
		if hadPrev && curHex == prevHex {
			continue
		}
		changed[t] = curHex
		next[t] = curHex

		curKey, err := key.ParseHex(curHex)
		if err != nil {
			continue
		}
		newAncestors := ancestors(g, curKey)
		var oldAncestors map[key.Key]bool
		if hadPrev {
			if oldKey, err := key.ParseHex(prevHex); err == nil {
				oldAncestors = ancestors(g, oldKey)
			}
		}
		for v := range newAncestors {
			if oldAncestors == nil || !oldAncestors[v] {
				deltaVertices[v] = true
			}
		}
	}

	vertices := make([]key.Key, 0, len(deltaVertices))
	for v := range deltaVertices {
		vertices = append(vertices, v)
	}
	edges := make([][2]key.Key, 0)
	for _, v := range vertices {
		for _, succ := range g.Succ(v) {
			if deltaVertices[succ] {
				edges = append(edges, [2]key.Key{v, succ})
			}
		}
	}
	delta = codec.Graph{Vertices: vertices, Edges: edges}
	return changed, delta, next
}

// ancestors returns the full set of k and its transitive predecessors
// (k included), following pred with no root cutoff.
func ancestors(g *store.KeyGraph, k key.Key) map[key.Key]bool {
	visited := map[key.Key]bool{k: true}
	frontier := []key.Key{k}
	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		for _, p := range g.Pred(cur) {
			if !visited[p] {
				visited[p] = true
				frontier = append(frontier, p)
			}
		}
	}
	return visited
}
