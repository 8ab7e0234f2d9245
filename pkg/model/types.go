// Package model defines the typed records shared by every netcover
// component: the catalog entities loaded once per run (nodes, links,
// toolsets, equipments, PoCs), the scope filter that bounds a run, and
// the path and validation records produced by the sampling loop.
//
// All catalog records are read-only after load. Components receive them
// by pointer and must never mutate them during a run.
package model

import "fmt"

// Node is a point in the network graph. A node may belong to an
// equipment (via a PoC) or be plain routing infrastructure.
type Node struct {
	ID         int64
	FabNo      int64
	ModelNo    int64
	DataCode   int64
	E2EGroupNo int64
	Markers    string

	// UtilityNo is nil when the node carries no utility assignment.
	UtilityNo *int64

	// IsVirtual marks synthetic routing nodes that never carry a utility.
	IsVirtual bool
	// IsLogical marks equipment-logical nodes, which represent an
	// equipment's internal connectivity and may bridge utilities.
	IsLogical bool
	// IsUsed mirrors the catalog's active flag for the node.
	IsUsed bool
}

// Link is a directed or bidirected connection between two nodes.
type Link struct {
	ID          int64
	StartNodeID int64
	EndNodeID   int64
	// Bidirected links admit traversal in either direction; otherwise
	// only StartNodeID -> EndNodeID.
	Bidirected bool
	Cost       float64
	LengthMM   float64
}

// Connects reports whether the link joins from and to in an allowed
// traversal direction.
func (l *Link) Connects(from, to int64) bool {
	if l.StartNodeID == from && l.EndNodeID == to {
		return true
	}
	return l.Bidirected && l.StartNodeID == to && l.EndNodeID == from
}

// Toolset is a named grouping of equipments sharing a fab/phase/model
// context. It is the coarsest unit of sampling.
type Toolset struct {
	Code       string
	FabNo      int64
	PhaseNo    int64
	ModelNo    int64
	E2EGroupNo int64
	IsActive   bool
}

// Equipment is a piece of equipment belonging to a toolset.
type Equipment struct {
	ID          int64
	ToolsetCode string
	NodeID      int64
	DataCode    int64
	CategoryNo  int64
	PhaseNo     int64
	IsActive    bool
}

// Poc is a point of connection on an equipment, identified by a node in
// the graph.
type Poc struct {
	ID          int64
	EquipmentID int64
	NodeID      int64
	Markers     string
	Reference   string
	Flow        string

	// UtilityNo is nil when the PoC carries no utility assignment.
	UtilityNo *int64

	IsUsed     bool
	IsLoopback bool
}

// PocPair is an ordered pair of PoCs selected for one sampling attempt.
// Start and End always belong to different equipments (or different
// toolsets in inter-toolset mode).
type PocPair struct {
	Start *Poc
	End   *Poc
}

// UtilityTransition is a (from, to) utility pair. The catalog's allowed
// transition table is keyed by this type.
type UtilityTransition struct {
	From int64
	To   int64
}

// ScopeFilter bounds the sampling universe for a run. Zero values mean
// "no filter" for the numeric fields and empty string for Toolset.
type ScopeFilter struct {
	FabNo      int64  `yaml:"fab_no"`
	PhaseNo    int64  `yaml:"phase_no"`
	ModelNo    int64  `yaml:"model_no"`
	E2EGroupNo int64  `yaml:"e2e_group_no"`
	Toolset    string `yaml:"toolset"`
}

// IsZero reports whether no filter field is set.
func (f ScopeFilter) IsZero() bool {
	return f == ScopeFilter{}
}

// String renders the filter for tags and log lines.
func (f ScopeFilter) String() string {
	return fmt.Sprintf("fab=%d phase=%d model=%d e2e=%d toolset=%q",
		f.FabNo, f.PhaseNo, f.ModelNo, f.E2EGroupNo, f.Toolset)
}

// MatchesNode reports whether a node satisfies the filter. The toolset
// component is not applied here; toolset membership is an equipment
// property and is resolved by the sampling universe.
func (f ScopeFilter) MatchesNode(n *Node) bool {
	if f.FabNo != 0 && n.FabNo != f.FabNo {
		return false
	}
	if f.ModelNo != 0 && n.ModelNo != f.ModelNo {
		return false
	}
	if f.E2EGroupNo != 0 && n.E2EGroupNo != f.E2EGroupNo {
		return false
	}
	return true
}

// MatchesToolset reports whether a toolset satisfies the filter.
func (f ScopeFilter) MatchesToolset(ts *Toolset) bool {
	if !ts.IsActive {
		return false
	}
	if f.FabNo != 0 && ts.FabNo != f.FabNo {
		return false
	}
	if f.PhaseNo != 0 && ts.PhaseNo != f.PhaseNo {
		return false
	}
	if f.ModelNo != 0 && ts.ModelNo != f.ModelNo {
		return false
	}
	if f.E2EGroupNo != 0 && ts.E2EGroupNo != f.E2EGroupNo {
		return false
	}
	if f.Toolset != "" && ts.Code != f.Toolset {
		return false
	}
	return true
}

// Catalog is the immutable, fully materialized view of the network and
// equipment tables a run operates on. It is loaded once before the
// sampling loop starts and never mutated afterwards.
type Catalog struct {
	Nodes      map[int64]*Node
	Links      map[int64]*Link
	Toolsets   map[string]*Toolset
	Equipments map[int64]*Equipment
	Pocs       map[int64]*Poc

	// Transitions holds the allowed utility transition pairs. A missing
	// entry means the transition is not allowed.
	Transitions map[UtilityTransition]bool
}

// NewCatalog returns an empty catalog with all maps allocated.
func NewCatalog() *Catalog {
	return &Catalog{
		Nodes:       make(map[int64]*Node),
		Links:       make(map[int64]*Link),
		Toolsets:    make(map[string]*Toolset),
		Equipments:  make(map[int64]*Equipment),
		Pocs:        make(map[int64]*Poc),
		Transitions: make(map[UtilityTransition]bool),
	}
}

// AllowsTransition reports whether the (from, to) utility transition is
// in the allowed table.
func (c *Catalog) AllowsTransition(from, to int64) bool {
	return c.Transitions[UtilityTransition{From: from, To: to}]
}

// EquipmentPocs returns the PoCs belonging to an equipment. The order
// is unspecified; callers that need determinism must sort.
func (c *Catalog) EquipmentPocs(equipmentID int64) []*Poc {
	var pocs []*Poc
	for _, p := range c.Pocs {
		if p.EquipmentID == equipmentID {
			pocs = append(pocs, p)
		}
	}
	return pocs
}
