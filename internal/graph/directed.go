// Package graph provides the directed graph used to record dependencies
// between objects of a site.
//
// Vertices are opaque comparable keys registered lazily the first time an
// edge touches them. Every edge carries a payload P; callers that need to
// distinguish "no payload recorded" use a pointer type for P.
package graph

import "sort"

type edgeKey[K comparable] struct {
	from K
	to   K
}

// Edge is a single directed edge as returned by Directed.Edges.
type Edge[K comparable, P any] struct {
	From  K
	To    K
	Props P
}

// Directed is a directed graph with per-edge payloads.
//
// It is not safe for concurrent mutation.
type Directed[K comparable, P any] struct {
	index    map[K]int
	vertices []K

	from  map[K]map[K]struct{}
	to    map[K]map[K]struct{}
	props map[edgeKey[K]]P
}

// New returns a graph with the given vertices registered in order.
func New[K comparable, P any](vertices ...K) *Directed[K, P] {
	g := &Directed[K, P]{
		index: make(map[K]int, len(vertices)),
		from:  make(map[K]map[K]struct{}),
		to:    make(map[K]map[K]struct{}),
		props: make(map[edgeKey[K]]P),
	}
	for _, v := range vertices {
		g.AddVertex(v)
	}
	return g
}

// AddVertex registers v. Adding an existing vertex is a no-op.
func (g *Directed[K, P]) AddVertex(v K) {
	if _, ok := g.index[v]; ok {
		return
	}
	g.index[v] = len(g.vertices)
	g.vertices = append(g.vertices, v)
}

// AddEdge adds the edge from -> to, registering both vertices if needed.
// Adding an edge that already exists replaces its payload.
func (g *Directed[K, P]) AddEdge(from, to K, props P) {
	g.AddVertex(from)
	g.AddVertex(to)

	if g.from[from] == nil {
		g.from[from] = make(map[K]struct{})
	}
	g.from[from][to] = struct{}{}

	if g.to[to] == nil {
		g.to[to] = make(map[K]struct{})
	}
	g.to[to][from] = struct{}{}

	g.props[edgeKey[K]{from: from, to: to}] = props
}

// HasEdge reports whether the edge from -> to exists.
func (g *Directed[K, P]) HasEdge(from, to K) bool {
	_, ok := g.from[from][to]
	return ok
}

// PropsFor returns the payload of the edge from -> to. The boolean is false
// when no such edge exists.
func (g *Directed[K, P]) PropsFor(from, to K) (P, bool) {
	p, ok := g.props[edgeKey[K]{from: from, to: to}]
	return p, ok
}

// DeleteEdgesTo removes every incoming edge of to.
func (g *Directed[K, P]) DeleteEdgesTo(to K) {
	for from := range g.to[to] {
		delete(g.from[from], to)
		if len(g.from[from]) == 0 {
			delete(g.from, from)
		}
		delete(g.props, edgeKey[K]{from: from, to: to})
	}
	delete(g.to, to)
}

// DirectPredecessorsOf returns every u with an edge u -> v, in vertex
// registration order. Unknown vertices have no predecessors.
func (g *Directed[K, P]) DirectPredecessorsOf(v K) []K {
	return g.ordered(g.to[v])
}

// DirectSuccessorsOf returns every w with an edge v -> w, in vertex
// registration order.
func (g *Directed[K, P]) DirectSuccessorsOf(v K) []K {
	return g.ordered(g.from[v])
}

// PredecessorsOf returns every vertex from which v is reachable, excluding v
// itself unless it lies on a cycle.
func (g *Directed[K, P]) PredecessorsOf(v K) []K {
	seen := make(map[K]struct{})
	queue := g.DirectPredecessorsOf(v)
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		queue = append(queue, g.DirectPredecessorsOf(u)...)
	}
	return g.ordered(seen)
}

// Vertices returns all vertices in registration order.
func (g *Directed[K, P]) Vertices() []K {
	out := make([]K, len(g.vertices))
	copy(out, g.vertices)
	return out
}

// Edges returns all edges, ordered by source then destination registration
// order.
func (g *Directed[K, P]) Edges() []Edge[K, P] {
	var out []Edge[K, P]
	for _, v := range g.vertices {
		for _, w := range g.DirectSuccessorsOf(v) {
			out = append(out, Edge[K, P]{From: v, To: w, Props: g.props[edgeKey[K]{from: v, to: w}]})
		}
	}
	return out
}

func (g *Directed[K, P]) ordered(set map[K]struct{}) []K {
	if len(set) == 0 {
		return nil
	}
	out := make([]K, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return g.index[out[i]] < g.index[out[j]] })
	return out
}
