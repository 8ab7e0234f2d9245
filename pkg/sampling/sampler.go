package sampling

import (
	"math/rand"
	"sort"

	"github.com/vanderheijden86/netcover/pkg/config"
	"github.com/vanderheijden86/netcover/pkg/model"
	"github.com/vanderheijden86/netcover/pkg/pathfind"
)

// maxRetries bounds the inner retry loop of one Pair call.
const maxRetries = 50

// usedPocPreference is the probability of drawing from the used PoCs
// of an equipment instead of uniformly over all of them.
const usedPocPreference = 0.8

// Options configures a Sampler beyond its bias knobs.
type Options struct {
	InterToolset bool
	// LegacyDistance replaces the hop-distance surrogate with the
	// historical node-id delta.
	LegacyDistance bool
}

// Sampler emits PoC pairs under hard attempt caps and diversity
// weights. Counters are incremented on selection, not on success, so a
// difficult pair cannot dominate attempts. Not safe for concurrent
// use; the driver owns it.
type Sampler struct {
	cfg      config.BiasConfig
	opts     Options
	universe *Universe
	adj      *pathfind.Adjacency
	rng      *rand.Rand

	// minDistance starts at the configured minimum and is lowered by
	// the relaxation ladder.
	minDistance int

	toolsetAttempts map[string]int
	equipAttempts   map[int64]int
	pocAttempts     map[int64]int

	toolsetResets int
}

// NewSampler builds a sampler over a prepared universe. The adjacency
// view backs the hop-distance surrogate; rng must be seeded by the
// caller for reproducible runs.
func NewSampler(u *Universe, adj *pathfind.Adjacency, cfg config.BiasConfig, opts Options, rng *rand.Rand) *Sampler {
	return &Sampler{
		cfg:             cfg,
		opts:            opts,
		universe:        u,
		adj:             adj,
		rng:             rng,
		minDistance:     cfg.MinDistanceBetweenNodes,
		toolsetAttempts: make(map[string]int),
		equipAttempts:   make(map[int64]int),
		pocAttempts:     make(map[int64]int),
	}
}

// MinDistance returns the current minimum node distance.
func (s *Sampler) MinDistance() int { return s.minDistance }

// Relax lowers the minimum distance by step, clamped at floor, and
// returns the new value. The driver calls this on plateau.
func (s *Sampler) Relax(step, floor int) int {
	s.minDistance -= step
	if s.minDistance < floor {
		s.minDistance = floor
	}
	return s.minDistance
}

// Pair draws one PoC pair, or reports false after the bounded retry
// budget is spent. The caller records a failed attempt in that case.
func (s *Sampler) Pair() (model.PocPair, bool) {
	for retry := 0; retry < maxRetries; retry++ {
		var a, b *model.Poc
		if s.opts.InterToolset {
			tsA, tsB, ok := s.pickToolsetPair()
			if !ok {
				continue
			}
			eqA, okA := s.pickEquipment(tsA.Equipments, nil)
			eqB, okB := s.pickEquipment(tsB.Equipments, nil)
			if !okA || !okB {
				continue
			}
			a, b = s.pickPoc(eqA), s.pickPoc(eqB)
		} else {
			ts, ok := s.pickToolset()
			if !ok {
				continue
			}
			eqA, okA := s.pickEquipment(ts.Equipments, nil)
			if !okA {
				continue
			}
			eqB, okB := s.pickEquipment(ts.Equipments, eqA.Equipment)
			if !okB {
				continue
			}
			a, b = s.pickPoc(eqA), s.pickPoc(eqB)
		}

		if a == nil || b == nil || a.ID == b.ID {
			continue
		}
		if !s.acceptDiversity(a, b) {
			continue
		}
		if a.NodeID == b.NodeID {
			continue
		}
		if s.tooClose(a.NodeID, b.NodeID) {
			continue
		}
		return model.PocPair{Start: a, End: b}, true
	}
	return model.PocPair{}, false
}

// pickToolset chooses uniformly among toolsets under the per-toolset
// attempt cap, resetting all counters when every toolset is exhausted.
func (s *Sampler) pickToolset() (*ToolsetGroup, bool) {
	eligible := s.eligibleToolsets()
	if len(eligible) == 0 {
		s.resetToolsetAttempts()
		eligible = s.universe.Toolsets
	}
	if len(eligible) == 0 {
		return nil, false
	}
	ts := eligible[s.rng.Intn(len(eligible))]
	s.toolsetAttempts[ts.Toolset.Code]++
	return ts, true
}

// pickToolsetPair chooses two distinct toolsets for inter-toolset mode.
func (s *Sampler) pickToolsetPair() (*ToolsetGroup, *ToolsetGroup, bool) {
	eligible := s.eligibleToolsets()
	if len(eligible) < 2 {
		s.resetToolsetAttempts()
		eligible = s.universe.Toolsets
	}
	if len(eligible) < 2 {
		return nil, nil, false
	}
	i := s.rng.Intn(len(eligible))
	j := s.rng.Intn(len(eligible) - 1)
	if j >= i {
		j++
	}
	a, b := eligible[i], eligible[j]
	s.toolsetAttempts[a.Toolset.Code]++
	s.toolsetAttempts[b.Toolset.Code]++
	return a, b, true
}

func (s *Sampler) eligibleToolsets() []*ToolsetGroup {
	var out []*ToolsetGroup
	for _, ts := range s.universe.Toolsets {
		if s.toolsetAttempts[ts.Toolset.Code] < s.cfg.MaxAttemptsPerToolset {
			out = append(out, ts)
		}
	}
	return out
}

func (s *Sampler) resetToolsetAttempts() {
	for code := range s.toolsetAttempts {
		delete(s.toolsetAttempts, code)
	}
	s.toolsetResets++
}

// pickEquipment chooses uniformly among equipments under the
// per-equipment cap, excluding exclude when non-nil. Counters for the
// group are reset when no equipment remains under the cap.
func (s *Sampler) pickEquipment(groups []*EquipmentGroup, exclude *model.Equipment) (*EquipmentGroup, bool) {
	candidates := make([]*EquipmentGroup, 0, len(groups))
	for _, g := range groups {
		if exclude != nil && g.Equipment.ID == exclude.ID {
			continue
		}
		if s.equipAttempts[g.Equipment.ID] < s.cfg.MaxAttemptsPerEquipment {
			candidates = append(candidates, g)
		}
	}
	if len(candidates) == 0 {
		for _, g := range groups {
			delete(s.equipAttempts, g.Equipment.ID)
		}
		for _, g := range groups {
			if exclude == nil || g.Equipment.ID != exclude.ID {
				candidates = append(candidates, g)
			}
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}
	g := candidates[s.rng.Intn(len(candidates))]
	s.equipAttempts[g.Equipment.ID]++
	return g, true
}

// pickPoc draws a PoC from an equipment: with probability 0.8 among
// its used PoCs, otherwise uniformly over all. Per-PoC attempt caps
// apply with the same reset-on-exhaustion policy as equipments.
func (s *Sampler) pickPoc(g *EquipmentGroup) *model.Poc {
	pool := g.Pocs
	if len(g.UsedPocs) > 0 && s.rng.Float64() < usedPocPreference {
		pool = g.UsedPocs
	}

	candidates := make([]*model.Poc, 0, len(pool))
	for _, p := range pool {
		if s.pocAttempts[p.ID] < s.cfg.MaxAttemptsPerEquipment {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		for _, p := range pool {
			delete(s.pocAttempts, p.ID)
		}
		candidates = pool
	}
	if len(candidates) == 0 {
		return nil
	}
	p := candidates[s.rng.Intn(len(candidates))]
	s.pocAttempts[p.ID]++
	return p
}

// acceptDiversity applies the Bernoulli diversity weights. When the
// utility draw fires, the pair must differ in utility; when the phase
// draw fires, the owning equipments must differ in phase. Unknown
// utilities count as differing, so sparse catalogs cannot deadlock.
func (s *Sampler) acceptDiversity(a, b *model.Poc) bool {
	if s.cfg.UtilityDiversityWeight > 0 && s.rng.Float64() < s.cfg.UtilityDiversityWeight {
		if a.UtilityNo != nil && b.UtilityNo != nil && *a.UtilityNo == *b.UtilityNo {
			return false
		}
	}
	if s.cfg.PhaseDiversityWeight > 0 && s.rng.Float64() < s.cfg.PhaseDiversityWeight {
		if s.samePhase(a, b) {
			return false
		}
	}
	return true
}

func (s *Sampler) samePhase(a, b *model.Poc) bool {
	eqA := s.findEquipment(a.EquipmentID)
	eqB := s.findEquipment(b.EquipmentID)
	if eqA == nil || eqB == nil {
		return false
	}
	return eqA.PhaseNo == eqB.PhaseNo
}

func (s *Sampler) findEquipment(id int64) *model.Equipment {
	for _, ts := range s.universe.Toolsets {
		for _, g := range ts.Equipments {
			if g.Equipment.ID == id {
				return g.Equipment
			}
		}
	}
	return nil
}

// tooClose applies the minimum-distance rejection. Hop distance is the
// default; legacy mode keeps the historical node-id delta behavior.
func (s *Sampler) tooClose(a, b int64) bool {
	if s.minDistance <= 1 {
		return false
	}
	if s.opts.LegacyDistance {
		delta := a - b
		if delta < 0 {
			delta = -delta
		}
		return delta < int64(s.minDistance)
	}
	return s.adj.HopDistanceBelow(a, b, s.minDistance)
}

// Stats summarizes the attempt counter distribution for the run
// report.
type Stats struct {
	ToolsetsSampled   int
	ToolsetResets     int
	EquipmentAttempts int
	PocAttempts       int
	MaxPerEquipment   int
	MaxPerPoc         int
	UniqueEquipments  int
	UniquePocs        int
}

// Stats returns the current sampling statistics.
func (s *Sampler) Stats() Stats {
	st := Stats{
		ToolsetsSampled:  len(s.toolsetAttempts),
		ToolsetResets:    s.toolsetResets,
		UniqueEquipments: len(s.equipAttempts),
		UniquePocs:       len(s.pocAttempts),
	}
	for _, n := range s.equipAttempts {
		st.EquipmentAttempts += n
		if n > st.MaxPerEquipment {
			st.MaxPerEquipment = n
		}
	}
	for _, n := range s.pocAttempts {
		st.PocAttempts += n
		if n > st.MaxPerPoc {
			st.MaxPerPoc = n
		}
	}
	return st
}

// SampledToolsets returns the codes of toolsets sampled so far, sorted
// for stable reporting.
func (s *Sampler) SampledToolsets() []string {
	out := make([]string, 0, len(s.toolsetAttempts))
	for code := range s.toolsetAttempts {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
