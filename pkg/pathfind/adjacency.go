// Package pathfind discovers routes between two nodes with a
// bounded-depth breadth-first traversal over an adjacency view rebuilt
// per run from the link table. Neighbor iteration is ordered by
// ascending link id, so identical graphs produce identical paths for
// the same endpoints.
package pathfind

import (
	"sort"

	"github.com/vanderheijden86/netcover/pkg/model"
)

// Edge is one traversable hop out of a node.
type Edge struct {
	LinkID int64
	To     int64
}

// Adjacency is the per-run traversal index over the link table. It is
// the only index the finder keeps; nodes hold no back-pointers to
// links. Read-only after construction.
type Adjacency struct {
	neighbors map[int64][]Edge
}

// NewAdjacency builds the adjacency view. Bidirected links contribute
// an edge in each direction; directed links only start -> end. Each
// node's edge list is sorted by ascending link id for deterministic
// traversal.
func NewAdjacency(links map[int64]*model.Link) *Adjacency {
	a := &Adjacency{neighbors: make(map[int64][]Edge, len(links))}
	for _, l := range links {
		a.neighbors[l.StartNodeID] = append(a.neighbors[l.StartNodeID], Edge{LinkID: l.ID, To: l.EndNodeID})
		if l.Bidirected {
			a.neighbors[l.EndNodeID] = append(a.neighbors[l.EndNodeID], Edge{LinkID: l.ID, To: l.StartNodeID})
		}
	}
	for id := range a.neighbors {
		edges := a.neighbors[id]
		sort.Slice(edges, func(i, j int) bool { return edges[i].LinkID < edges[j].LinkID })
	}
	return a
}

// Neighbors returns the outgoing edges of a node in ascending link-id
// order. The returned slice is shared; callers must not mutate it.
func (a *Adjacency) Neighbors(node int64) []Edge {
	return a.neighbors[node]
}

// HasDirectLink reports whether a single hop joins s and t.
func (a *Adjacency) HasDirectLink(s, t int64) bool {
	for _, e := range a.neighbors[s] {
		if e.To == t {
			return true
		}
	}
	return false
}

// HopDistanceBelow reports whether t is reachable from s in fewer than
// maxHops hops. It runs a BFS truncated at depth maxHops-1, so the
// cost is bounded by the local neighborhood, not the graph. s == t is
// distance zero and always below any positive maxHops.
func (a *Adjacency) HopDistanceBelow(s, t int64, maxHops int) bool {
	if maxHops <= 0 {
		return false
	}
	if s == t {
		return true
	}

	visited := map[int64]struct{}{s: {}}
	frontier := []int64{s}
	for depth := 1; depth < maxHops; depth++ {
		var next []int64
		for _, node := range frontier {
			for _, e := range a.neighbors[node] {
				if e.To == t {
					return true
				}
				if _, seen := visited[e.To]; seen {
					continue
				}
				visited[e.To] = struct{}{}
				next = append(next, e.To)
			}
		}
		if len(next) == 0 {
			return false
		}
		frontier = next
	}
	return false
}
