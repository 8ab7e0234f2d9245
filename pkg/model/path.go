package model

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Path is an ordered walk through the graph: Nodes[i] and Nodes[i+1]
// are joined by Links[i] in an allowed direction. Identity is the
// content hash of the two id sequences; everything else is derived.
type Path struct {
	Nodes []int64
	Links []int64

	TotalCost     float64
	TotalLengthMM float64

	// Derived sets, sorted ascending: data codes and utilities from the
	// traversed nodes, references from the start and end PoCs.
	DataCodes  []int64
	UtilityNos []int64
	References []string

	// Endpoint provenance, carried for persistence and validation.
	StartPocID       int64
	EndPocID         int64
	StartEquipmentID int64
	EndEquipmentID   int64
}

// NodeCount returns the number of nodes in the path.
func (p *Path) NodeCount() int { return len(p.Nodes) }

// LinkCount returns the number of links in the path.
func (p *Path) LinkCount() int { return len(p.Links) }

// StartNodeID returns the first node id, or 0 for an empty path.
func (p *Path) StartNodeID() int64 {
	if len(p.Nodes) == 0 {
		return 0
	}
	return p.Nodes[0]
}

// EndNodeID returns the last node id, or 0 for an empty path.
func (p *Path) EndNodeID() int64 {
	if len(p.Nodes) == 0 {
		return 0
	}
	return p.Nodes[len(p.Nodes)-1]
}

// PathHash is the 128-bit content hash of a path's node and link
// sequences. Two paths are the same iff their hashes are equal.
type PathHash struct {
	Hi uint64
	Lo uint64
}

// String renders the hash as 32 lowercase hex digits.
func (h PathHash) String() string {
	return fmt.Sprintf("%016x%016x", h.Hi, h.Lo)
}

// IsZero reports whether the hash is the zero value.
func (h PathHash) IsZero() bool { return h == PathHash{} }

// Domain tags keep the node and link streams from colliding: the hash
// of nodes [1,2] links [3] must differ from nodes [1] links [2,3].
const (
	hashTagNodes = "netcover/nodes\x00"
	hashTagLinks = "netcover/links\x00"
)

// Hash computes the sequence-sensitive content hash of the path. The
// id sequences are streamed little-endian into two xxhash lanes, each
// prefixed with its own domain tag: the hi lane takes the node ids and
// then the link ids, the lo lane the link ids alone. [A,B] and [B,A]
// hash differently and the result is stable across runs and platforms.
func (p *Path) Hash() PathHash {
	var buf [8]byte

	hi := xxhash.New()
	_, _ = hi.WriteString(hashTagNodes)
	for _, id := range p.Nodes {
		binary.LittleEndian.PutUint64(buf[:], uint64(id))
		_, _ = hi.Write(buf[:])
	}
	// The link stream also feeds the hi lane so the two halves do not
	// collide for paths sharing a node sequence.
	lo := xxhash.New()
	_, _ = lo.WriteString(hashTagLinks)
	for _, id := range p.Links {
		binary.LittleEndian.PutUint64(buf[:], uint64(id))
		_, _ = lo.Write(buf[:])
		_, _ = hi.Write(buf[:])
	}

	return PathHash{Hi: hi.Sum64(), Lo: lo.Sum64()}
}

// Enrich fills the derived sets: data codes and utilities from the
// catalog's node records, references from the catalog's records of the
// start and end PoCs. Nodes absent from the catalog are skipped; the
// validator reports them separately.
func (p *Path) Enrich(cat *Catalog) {
	dataCodes := make(map[int64]struct{})
	utilities := make(map[int64]struct{})
	references := make(map[string]struct{})

	for _, id := range p.Nodes {
		n, ok := cat.Nodes[id]
		if !ok {
			continue
		}
		if n.DataCode != 0 {
			dataCodes[n.DataCode] = struct{}{}
		}
		if n.UtilityNo != nil {
			utilities[*n.UtilityNo] = struct{}{}
		}
	}
	for _, id := range []int64{p.StartPocID, p.EndPocID} {
		if poc, ok := cat.Pocs[id]; ok && poc.Reference != "" {
			references[poc.Reference] = struct{}{}
		}
	}

	p.DataCodes = sortedInt64s(dataCodes)
	p.UtilityNos = sortedInt64s(utilities)
	p.References = sortedStrings(references)
}

func sortedInt64s(set map[int64]struct{}) []int64 {
	if len(set) == 0 {
		return nil
	}
	out := make([]int64, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedStrings(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
