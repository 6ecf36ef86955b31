package syncengine

import (
	"github.com/nymote/irminsule/internal/codec"
	"github.com/nymote/irminsule/internal/store"
)

// Push implements spec.md §4.8 "Push": insert every vertex and edge of g
// into the Key-Graph Store, then every tag binding. It never touches the
// Value Store — value transfer is a separate VAL_WRITE stream the client
// drives after SYNC_PUSH_KEYS.
func Push(g *store.KeyGraph, tags *store.TagStore, graph codec.Graph, bindings []codec.TagKey) {
	for _, v := range graph.Vertices {
		g.AddKey(v)
	}
	for _, e := range graph.Edges {
		g.AddRelation(e[0], e[1])
	}
	for _, b := range bindings {
		tags.Update(b.Tag, b.Key.String())
	}
}
