package analysis

import (
	"errors"
	"sort"

	"github.com/dominikbraun/graph"
)

// Graph is a simple directed render graph from components to targets.
// Parallel edges collapse: adding an existing (source, target) pair returns
// the edge already stored.
type Graph[E any] struct {
	g       graph.Graph[string, Target]
	entries map[edgeKey]*entry[E]
	adj     map[string]map[string]graph.Edge[string]
}

// DeclaredGraph holds the edges derived from render tags.
type DeclaredGraph = Graph[DeclaredEdge]

// ActualGraph holds the edges observed in implementations.
type ActualGraph = Graph[ActualEdge]

type edgeKey struct {
	source ComponentID
	target string
}

type entry[E any] struct {
	source ComponentID
	target Target
	edge   E
}

func newGraph[E any]() *Graph[E] {
	return &Graph[E]{
		g:       graph.New(Target.Key, graph.Directed()),
		entries: make(map[edgeKey]*entry[E]),
	}
}

// add inserts an edge and reports whether it is new.
func (g *Graph[E]) add(source, target Target, edge E) (*E, bool) {
	_ = g.g.AddVertex(source)
	_ = g.g.AddVertex(target)

	key := edgeKey{source: source.Component, target: target.Key()}
	if err := g.g.AddEdge(source.Key(), target.Key()); errors.Is(err, graph.ErrEdgeAlreadyExists) {
		return &g.entries[key].edge, false
	}

	e := &entry[E]{source: source.Component, target: target, edge: edge}
	g.entries[key] = e
	g.adj = nil
	return &e.edge, true
}

// Edge returns the edge between source and target.
func (g *Graph[E]) Edge(source ComponentID, target Target) (E, bool) {
	e, ok := g.entries[edgeKey{source: source, target: target.Key()}]
	if !ok {
		var zero E
		return zero, false
	}
	return e.edge, true
}

// Has reports whether the graph contains the edge.
func (g *Graph[E]) Has(source ComponentID, target Target) bool {
	_, ok := g.entries[edgeKey{source: source, target: target.Key()}]
	return ok
}

// Len returns the number of edges.
func (g *Graph[E]) Len() int {
	return len(g.entries)
}

// Edges returns all edges ordered by source, then target.
func (g *Graph[E]) Edges() []E {
	return g.collect(func(*entry[E]) bool { return true })
}

// From returns the edges leaving a component ordered by target.
func (g *Graph[E]) From(source ComponentID) []E {
	return g.collect(func(e *entry[E]) bool { return e.source == source })
}

func (g *Graph[E]) collect(keep func(*entry[E]) bool) []E {
	var list []*entry[E]
	for _, e := range g.entries {
		if keep(e) {
			list = append(list, e)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].source != list[j].source {
			return list[i].source < list[j].source
		}
		return list[i].target.Key() < list[j].target.Key()
	})

	out := make([]E, len(list))
	for i, e := range list {
		out[i] = e.edge
	}
	return out
}

// reachable returns the keys of everything a component renders within bound
// hops, following component targets. complete is false when the walk meets an
// unresolved target or runs out of depth.
func (g *Graph[E]) reachable(from Target, bound int) (map[string]bool, bool) {
	if g.adj == nil {
		adj, err := g.g.AdjacencyMap()
		if err != nil {
			return nil, false
		}
		g.adj = adj
	}

	seen := map[string]bool{from.Key(): true}
	complete := true
	frontier := []string{from.Key()}

	for depth := 0; len(frontier) > 0; depth++ {
		var next []string
		for _, key := range frontier {
			succ := g.adj[key]
			if depth == bound && len(succ) > 0 {
				complete = false
				continue
			}
			for _, k := range sortedKeys(succ) {
				t, err := g.g.Vertex(k)
				if err != nil {
					continue
				}
				switch t.Kind {
				case TargetUnresolved:
					complete = false
				case TargetIntrinsic:
					seen[k] = true
				case TargetComponent:
					if !seen[k] {
						seen[k] = true
						next = append(next, k)
					}
				}
			}
		}
		frontier = next
	}
	return seen, complete
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
