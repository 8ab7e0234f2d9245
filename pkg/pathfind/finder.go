package pathfind

import (
	"context"

	"github.com/vanderheijden86/netcover/pkg/model"
)

// DefaultDepthLimit bounds the BFS when the caller does not set one.
const DefaultDepthLimit = 50

// Finder turns a node pair into a path, or nothing. It holds only
// read-only views and is safe for concurrent Find calls.
type Finder struct {
	cat        *model.Catalog
	adj        *Adjacency
	depthLimit int
}

// NewFinder builds a finder over the catalog's link table.
func NewFinder(cat *model.Catalog, adj *Adjacency, depthLimit int) *Finder {
	if depthLimit <= 0 {
		depthLimit = DefaultDepthLimit
	}
	return &Finder{cat: cat, adj: adj, depthLimit: depthLimit}
}

// DepthLimit returns the configured BFS depth bound.
func (f *Finder) DepthLimit() int { return f.depthLimit }

// queueItem pairs a node with its BFS depth.
type queueItem struct {
	node  int64
	depth int
}

// Find runs a bounded breadth-first traversal from s to t and returns
// the discovered path in traversal order, or nil when the frontier is
// exhausted or the depth limit is reached first. Neighbors are visited
// in ascending link-id order, so the result is deterministic for a
// given graph and endpoint pair. Costs and lengths accumulate along
// the sequence, treating missing links as zero-cost.
//
// The context is checked once per dequeued node; cancellation aborts
// with a nil path.
func (f *Finder) Find(ctx context.Context, s, t int64) *model.Path {
	if s == t {
		return nil
	}

	parentNode := map[int64]int64{s: s}
	parentLink := make(map[int64]int64)
	queue := []queueItem{{node: s, depth: 0}}

	for len(queue) > 0 {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		item := queue[0]
		queue = queue[1:]
		if item.depth >= f.depthLimit {
			continue
		}

		for _, e := range f.adj.Neighbors(item.node) {
			if _, seen := parentNode[e.To]; seen {
				continue
			}
			parentNode[e.To] = item.node
			parentLink[e.To] = e.LinkID
			if e.To == t {
				return f.reconstruct(s, t, parentNode, parentLink)
			}
			queue = append(queue, queueItem{node: e.To, depth: item.depth + 1})
		}
	}
	return nil
}

// reconstruct walks the parent maps back from t to s and emits the
// path in s -> t order with accumulated cost and length.
func (f *Finder) reconstruct(s, t int64, parentNode, parentLink map[int64]int64) *model.Path {
	var nodes []int64
	var links []int64
	for at := t; ; {
		nodes = append(nodes, at)
		if at == s {
			break
		}
		links = append(links, parentLink[at])
		at = parentNode[at]
	}
	reverseInt64s(nodes)
	reverseInt64s(links)

	p := &model.Path{Nodes: nodes, Links: links}
	for _, id := range links {
		if l, ok := f.cat.Links[id]; ok {
			p.TotalCost += l.Cost
			p.TotalLengthMM += l.LengthMM
		}
	}
	return p
}

func reverseInt64s(s []int64) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
