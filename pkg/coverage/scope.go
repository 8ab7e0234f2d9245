// Package coverage resolves a scope filter into dense index spaces and
// tracks which in-scope nodes and links have been visited by accepted
// paths. The tracker is bitset-backed and sized for universes on the
// order of 10^7 elements.
package coverage

import (
	"errors"
	"sort"

	"github.com/vanderheijden86/netcover/pkg/model"
)

// ErrScopeEmpty is returned when a filter resolves to zero nodes.
// The driver refuses to start a run on an empty scope.
var ErrScopeEmpty = errors.New("coverage: scope filter matches no nodes")

// Scope is the resolved, immutable sampling universe bound: two
// injective maps from catalog ids to dense indices, with inverses.
// Built once at run start and read-only afterwards.
type Scope struct {
	Filter model.ScopeFilter

	nodeIndex map[int64]int
	linkIndex map[int64]int

	// Sorted ascending; position equals dense index.
	nodeIDs []int64
	linkIDs []int64
}

// ResolveScope materializes the dense index spaces for a filter.
// Node ids are deduplicated and sorted ascending before indexing, so
// repeated resolution with an equal filter yields identical mappings
// and comparable bitset exports. A link is in scope iff both of its
// endpoints are.
func ResolveScope(cat *model.Catalog, filter model.ScopeFilter) (*Scope, error) {
	s := &Scope{Filter: filter}

	seen := make(map[int64]struct{}, len(cat.Nodes))
	for id, n := range cat.Nodes {
		if _, dup := seen[id]; dup {
			continue
		}
		if filter.MatchesNode(n) {
			seen[id] = struct{}{}
			s.nodeIDs = append(s.nodeIDs, id)
		}
	}
	if len(s.nodeIDs) == 0 {
		return nil, ErrScopeEmpty
	}
	sort.Slice(s.nodeIDs, func(i, j int) bool { return s.nodeIDs[i] < s.nodeIDs[j] })

	s.nodeIndex = make(map[int64]int, len(s.nodeIDs))
	for i, id := range s.nodeIDs {
		s.nodeIndex[id] = i
	}

	for id, l := range cat.Links {
		if _, ok := s.nodeIndex[l.StartNodeID]; !ok {
			continue
		}
		if _, ok := s.nodeIndex[l.EndNodeID]; !ok {
			continue
		}
		s.linkIDs = append(s.linkIDs, id)
	}
	sort.Slice(s.linkIDs, func(i, j int) bool { return s.linkIDs[i] < s.linkIDs[j] })

	s.linkIndex = make(map[int64]int, len(s.linkIDs))
	for i, id := range s.linkIDs {
		s.linkIndex[id] = i
	}

	return s, nil
}

// NodeCount returns N, the number of in-scope nodes.
func (s *Scope) NodeCount() int { return len(s.nodeIDs) }

// LinkCount returns L, the number of in-scope links.
func (s *Scope) LinkCount() int { return len(s.linkIDs) }

// Total returns N + L.
func (s *Scope) Total() int { return len(s.nodeIDs) + len(s.linkIDs) }

// NodeIndex maps a node id to its dense index.
func (s *Scope) NodeIndex(id int64) (int, bool) {
	idx, ok := s.nodeIndex[id]
	return idx, ok
}

// LinkIndex maps a link id to its dense index.
func (s *Scope) LinkIndex(id int64) (int, bool) {
	idx, ok := s.linkIndex[id]
	return idx, ok
}

// NodeID is the inverse of NodeIndex.
func (s *Scope) NodeID(index int) int64 { return s.nodeIDs[index] }

// LinkID is the inverse of LinkIndex.
func (s *Scope) LinkID(index int) int64 { return s.linkIDs[index] }
