// Package sampling selects PoC pairs for the path finder. The universe
// is a cached, filtered view of the catalog built once per run; the
// sampler draws from it under attempt caps and diversity weights.
package sampling

import (
	"errors"
	"sort"

	"github.com/vanderheijden86/netcover/pkg/model"
)

// ErrUniverseTooSmall is returned when the filtered catalog cannot
// form any PoC pair: fewer than two eligible equipments in every
// toolset (intra-toolset mode) or fewer than two eligible toolsets
// (inter-toolset mode). Fatal before loop start.
var ErrUniverseTooSmall = errors.New("sampling: universe cannot form a poc pair")

// EquipmentGroup is one eligible equipment with its PoCs. The PoC list
// carries every PoC of the equipment, sorted by id; eligibility only
// requires that at least one is used.
type EquipmentGroup struct {
	Equipment *model.Equipment
	Pocs      []*model.Poc
	UsedPocs  []*model.Poc
}

// ToolsetGroup is one eligible toolset with its eligible equipments,
// sorted by equipment id.
type ToolsetGroup struct {
	Toolset    *model.Toolset
	Equipments []*EquipmentGroup
}

// Universe is the queryable, cached view of the eligible catalog.
// Per-attempt catalog scans would dominate runtime; the preloaded
// universe pays for itself after a few hundred attempts. All slices
// are sorted, so seeded sampling over them is reproducible.
type Universe struct {
	Toolsets []*ToolsetGroup

	totalEquipments int
	totalPocs       int
}

// BuildUniverse filters the catalog down to the sampling universe.
// Equipments without a used PoC are dropped. In intra-toolset mode a
// toolset also needs at least two eligible equipments to stay.
func BuildUniverse(cat *model.Catalog, filter model.ScopeFilter, interToolset bool) (*Universe, error) {
	pocsByEquipment := make(map[int64][]*model.Poc)
	for _, p := range cat.Pocs {
		pocsByEquipment[p.EquipmentID] = append(pocsByEquipment[p.EquipmentID], p)
	}

	groupsByToolset := make(map[string][]*EquipmentGroup)
	for _, eq := range cat.Equipments {
		if !eq.IsActive {
			continue
		}
		pocs := pocsByEquipment[eq.ID]
		var used []*model.Poc
		for _, p := range pocs {
			if p.IsUsed {
				used = append(used, p)
			}
		}
		if len(used) == 0 {
			continue
		}
		sort.Slice(pocs, func(i, j int) bool { return pocs[i].ID < pocs[j].ID })
		sort.Slice(used, func(i, j int) bool { return used[i].ID < used[j].ID })
		groupsByToolset[eq.ToolsetCode] = append(groupsByToolset[eq.ToolsetCode], &EquipmentGroup{
			Equipment: eq,
			Pocs:      pocs,
			UsedPocs:  used,
		})
	}

	u := &Universe{}
	for code, groups := range groupsByToolset {
		ts, ok := cat.Toolsets[code]
		if !ok || !filter.MatchesToolset(ts) {
			continue
		}
		if !interToolset && len(groups) < 2 {
			// Cannot form an intra-toolset pair.
			continue
		}
		sort.Slice(groups, func(i, j int) bool { return groups[i].Equipment.ID < groups[j].Equipment.ID })
		u.Toolsets = append(u.Toolsets, &ToolsetGroup{Toolset: ts, Equipments: groups})
	}
	sort.Slice(u.Toolsets, func(i, j int) bool { return u.Toolsets[i].Toolset.Code < u.Toolsets[j].Toolset.Code })

	for _, ts := range u.Toolsets {
		u.totalEquipments += len(ts.Equipments)
		for _, eq := range ts.Equipments {
			u.totalPocs += len(eq.Pocs)
		}
	}

	if len(u.Toolsets) == 0 {
		return nil, ErrUniverseTooSmall
	}
	if interToolset && len(u.Toolsets) < 2 {
		return nil, ErrUniverseTooSmall
	}
	return u, nil
}

// ToolsetCount returns the number of eligible toolsets.
func (u *Universe) ToolsetCount() int { return len(u.Toolsets) }

// EquipmentCount returns the number of eligible equipments.
func (u *Universe) EquipmentCount() int { return u.totalEquipments }

// PocCount returns the number of PoCs carried by the universe.
func (u *Universe) PocCount() int { return u.totalPocs }
