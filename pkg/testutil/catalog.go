// Package testutil provides a synthetic catalog builder, canned catalog
// fixtures, and an in-memory run store for netcover tests.
package testutil

import (
	"fmt"

	"github.com/vanderheijden86/netcover/pkg/model"
)

// CatalogBuilder assembles a model.Catalog for tests. Nodes default to
// used, non-virtual, with a data code and markers so that fixtures do
// not trip the data quality checks unless a test asks for it.
type CatalogBuilder struct {
	cat    *model.Catalog
	nextEq int64
	nextPo int64
}

// NewCatalog returns an empty builder.
func NewCatalog() *CatalogBuilder {
	return &CatalogBuilder{cat: model.NewCatalog()}
}

// Build returns the assembled catalog.
func (b *CatalogBuilder) Build() *model.Catalog { return b.cat }

// NodeOpt mutates a node under construction.
type NodeOpt func(*model.Node)

// WithUtility assigns a utility number.
func WithUtility(u int64) NodeOpt {
	return func(n *model.Node) { n.UtilityNo = &u }
}

// WithoutUtility clears the utility assignment.
func WithoutUtility() NodeOpt {
	return func(n *model.Node) { n.UtilityNo = nil }
}

// Logical marks the node equipment-logical.
func Logical() NodeOpt {
	return func(n *model.Node) { n.IsLogical = true }
}

// Virtual marks the node virtual.
func Virtual() NodeOpt {
	return func(n *model.Node) { n.IsVirtual = true }
}

// WithDataCode overrides the default data code.
func WithDataCode(dc int64) NodeOpt {
	return func(n *model.Node) { n.DataCode = dc }
}

// Node adds a node with test-friendly defaults: used, data code 100,
// markers set, utility 1.
func (b *CatalogBuilder) Node(id int64, opts ...NodeOpt) *CatalogBuilder {
	u := int64(1)
	n := &model.Node{
		ID:        id,
		FabNo:     1,
		ModelNo:   1,
		DataCode:  100,
		Markers:   fmt.Sprintf("M%d", id),
		UtilityNo: &u,
		IsUsed:    true,
	}
	for _, opt := range opts {
		opt(n)
	}
	b.cat.Nodes[id] = n
	return b
}

// Link adds a bidirected link with cost 1 and length 10.
func (b *CatalogBuilder) Link(id, from, to int64) *CatalogBuilder {
	return b.DirectedLink(id, from, to, true)
}

// DirectedLink adds a link with explicit directionality.
func (b *CatalogBuilder) DirectedLink(id, from, to int64, bidirected bool) *CatalogBuilder {
	b.cat.Links[id] = &model.Link{
		ID:          id,
		StartNodeID: from,
		EndNodeID:   to,
		Bidirected:  bidirected,
		Cost:        1,
		LengthMM:    10,
	}
	return b
}

// LinkCosted adds a bidirected link with explicit cost and length.
func (b *CatalogBuilder) LinkCosted(id, from, to int64, cost, lengthMM float64) *CatalogBuilder {
	b.cat.Links[id] = &model.Link{
		ID:          id,
		StartNodeID: from,
		EndNodeID:   to,
		Bidirected:  true,
		Cost:        cost,
		LengthMM:    lengthMM,
	}
	return b
}

// Toolset adds an active toolset.
func (b *CatalogBuilder) Toolset(code string) *CatalogBuilder {
	b.cat.Toolsets[code] = &model.Toolset{
		Code:     code,
		FabNo:    1,
		PhaseNo:  1,
		ModelNo:  1,
		IsActive: true,
	}
	return b
}

// Equipment adds an active equipment to a toolset and returns its id.
func (b *CatalogBuilder) Equipment(toolset string, nodeID int64) int64 {
	b.nextEq++
	id := b.nextEq
	b.cat.Equipments[id] = &model.Equipment{
		ID:          id,
		ToolsetCode: toolset,
		NodeID:      nodeID,
		DataCode:    100,
		CategoryNo:  1,
		PhaseNo:     1,
		IsActive:    true,
	}
	return id
}

// PocOpt mutates a PoC under construction.
type PocOpt func(*model.Poc)

// Unused clears the PoC's used flag.
func Unused() PocOpt {
	return func(p *model.Poc) { p.IsUsed = false }
}

// Loopback marks the PoC as a loopback.
func Loopback() PocOpt {
	return func(p *model.Poc) { p.IsLoopback = true }
}

// PocUtility assigns the PoC's utility.
func PocUtility(u int64) PocOpt {
	return func(p *model.Poc) { p.UtilityNo = &u }
}

// Poc adds a fully configured, used PoC on an equipment and returns
// its id.
func (b *CatalogBuilder) Poc(equipmentID, nodeID int64, opts ...PocOpt) int64 {
	b.nextPo++
	id := b.nextPo
	u := int64(1)
	p := &model.Poc{
		ID:          id,
		EquipmentID: equipmentID,
		NodeID:      nodeID,
		Markers:     fmt.Sprintf("P%d", id),
		Reference:   fmt.Sprintf("REF-%d", id),
		Flow:        "supply",
		UtilityNo:   &u,
		IsUsed:      true,
	}
	for _, opt := range opts {
		opt(p)
	}
	b.cat.Pocs[id] = p
	return id
}

// AllowTransition registers an allowed utility transition.
func (b *CatalogBuilder) AllowTransition(from, to int64) *CatalogBuilder {
	b.cat.Transitions[model.UtilityTransition{From: from, To: to}] = true
	return b
}

// TwoNodeCatalog is the minimal covered universe: nodes 1 and 2 joined
// by bidirected link 10, one toolset with two equipments, each with
// one used PoC.
func TwoNodeCatalog() *model.Catalog {
	b := NewCatalog()
	b.Node(1).Node(2)
	b.LinkCosted(10, 1, 2, 3, 100)
	b.Toolset("TS-A")
	eq1 := b.Equipment("TS-A", 1)
	eq2 := b.Equipment("TS-A", 2)
	b.Poc(eq1, 1)
	b.Poc(eq2, 2)
	return b.Build()
}

// TriangleCatalog is a 3-cycle 1-2-3 with bidirected links 10, 11, 12
// and two toolsets holding one equipment each at nodes 1 and 3.
func TriangleCatalog() *model.Catalog {
	b := NewCatalog()
	b.Node(1).Node(2).Node(3)
	b.Link(10, 1, 2)
	b.Link(11, 2, 3)
	b.Link(12, 3, 1)
	b.Toolset("TS-A").Toolset("TS-B")
	eq1 := b.Equipment("TS-A", 1)
	eq3 := b.Equipment("TS-B", 3)
	b.Poc(eq1, 1)
	b.Poc(eq3, 3)
	return b.Build()
}

// LineCatalog builds a line graph 1-2-...-n with bidirected links
// (100+i connects i and i+1), one toolset, and used PoCs on the two
// endpoint equipments.
func LineCatalog(n int) *model.Catalog {
	b := NewCatalog()
	for i := 1; i <= n; i++ {
		b.Node(int64(i))
	}
	for i := 1; i < n; i++ {
		b.Link(int64(100+i), int64(i), int64(i+1))
	}
	b.Toolset("TS-A")
	eqStart := b.Equipment("TS-A", 1)
	eqEnd := b.Equipment("TS-A", int64(n))
	b.Poc(eqStart, 1)
	b.Poc(eqEnd, int64(n))
	return b.Build()
}
