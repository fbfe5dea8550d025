package analysis

import (
	"sort"

	"github.com/dominikbraun/graph"
)

// walkResult summarizes where content supplied to a property ends up.
type walkResult struct {
	rendered bool
	depth    int         // Smallest depth at which the content is rendered
	chain    []chainLink // Properties the content passes through, first visit order
	exceeded bool        // The walk hit the depth bound
	cycle    bool        // The walk came back to a property on its own path
	escapes  bool        // Some property hands the content to unknown code
}

// inconclusive reports whether the walk could not settle where the content
// goes. A cycle counts only when nothing within the bound renders the content.
func (r walkResult) inconclusive() bool {
	return r.exceeded || (r.cycle && !r.rendered)
}

type chainLink struct {
	prop  PropertyID
	depth int
}

// forwarder walks the property forwarding graph. An edge P -> R means the
// component owning P passes its value for P to property R of another
// component.
type forwarder struct {
	adj      map[PropertyID]map[PropertyID]graph.Edge[PropertyID]
	rendered []bool
	escapes  []bool
	bound    int
}

func newForwarder(u *usageState, bound int) (*forwarder, error) {
	adj, err := u.forwarding.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	return &forwarder{adj: adj, rendered: u.rendered, escapes: u.escapes, bound: bound}, nil
}

// walk follows content supplied to start. The start property is depth 1;
// every forwarding hop adds one. Depths beyond the bound are never visited,
// and a property already on the current path ends that branch as a cycle.
// Each chain link carries the smallest depth the property was reached at.
func (f *forwarder) walk(start PropertyID) walkResult {
	var res walkResult
	best := make(map[PropertyID]int)
	link := make(map[PropertyID]int) // Index into res.chain
	onPath := make(map[PropertyID]bool)

	var visit func(p PropertyID, depth int)
	visit = func(p PropertyID, depth int) {
		if depth > f.bound {
			res.exceeded = true
			return
		}
		if onPath[p] {
			res.cycle = true
			return
		}
		if d, ok := best[p]; ok && d <= depth {
			return
		}
		if i, ok := link[p]; ok {
			res.chain[i].depth = depth
		} else {
			link[p] = len(res.chain)
			res.chain = append(res.chain, chainLink{prop: p, depth: depth})
		}
		best[p] = depth

		if f.rendered[p] && (!res.rendered || depth < res.depth) {
			res.rendered = true
			res.depth = depth
		}
		if f.escapes[p] {
			res.escapes = true
		}

		onPath[p] = true
		for _, next := range f.successors(p) {
			visit(next, depth+1)
		}
		delete(onPath, p)
	}
	visit(start, 1)

	return res
}

func (f *forwarder) successors(p PropertyID) []PropertyID {
	out := make([]PropertyID, 0, len(f.adj[p]))
	for next := range f.adj[p] {
		out = append(out, next)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
