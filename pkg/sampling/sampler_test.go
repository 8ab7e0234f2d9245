package sampling_test

import (
	"math/rand"
	"testing"

	"github.com/vanderheijden86/netcover/pkg/config"
	"github.com/vanderheijden86/netcover/pkg/model"
	"github.com/vanderheijden86/netcover/pkg/pathfind"
	"github.com/vanderheijden86/netcover/pkg/sampling"
	"github.com/vanderheijden86/netcover/pkg/testutil"
)

func newSampler(t *testing.T, cat *model.Catalog, bias config.BiasConfig, opts sampling.Options, seed int64) *sampling.Sampler {
	t.Helper()
	u, err := sampling.BuildUniverse(cat, model.ScopeFilter{}, opts.InterToolset)
	if err != nil {
		t.Fatalf("BuildUniverse: %v", err)
	}
	adj := pathfind.NewAdjacency(cat.Links)
	return sampling.NewSampler(u, adj, bias, opts, rand.New(rand.NewSource(seed)))
}

func minimalBias() config.BiasConfig {
	bias := config.DefaultBias()
	bias.MinDistanceBetweenNodes = 1
	return bias
}

// The minimum viable universe, two equipments with one used PoC each,
// must still produce a pair: the diversity weights are probabilistic
// and cannot deadlock the sampler.
func TestSampler_MinimalUniverseNoDeadlock(t *testing.T) {
	cat := testutil.TwoNodeCatalog()
	s := newSampler(t, cat, minimalBias(), sampling.Options{}, 1)

	pair, ok := s.Pair()
	if !ok {
		t.Fatal("minimal universe should produce a pair")
	}
	if pair.Start.EquipmentID == pair.End.EquipmentID {
		t.Error("pair endpoints must belong to different equipments")
	}
	if pair.Start.NodeID == pair.End.NodeID {
		t.Error("pair endpoints must sit on different nodes")
	}
}

func TestSampler_ManyDrawsStayValid(t *testing.T) {
	cat := testutil.TwoNodeCatalog()
	s := newSampler(t, cat, minimalBias(), sampling.Options{}, 7)

	for i := 0; i < 200; i++ {
		pair, ok := s.Pair()
		if !ok {
			t.Fatalf("draw %d failed on a viable universe", i)
		}
		if pair.Start.EquipmentID == pair.End.EquipmentID {
			t.Fatalf("draw %d paired a single equipment with itself", i)
		}
	}

	stats := s.Stats()
	if stats.EquipmentAttempts == 0 || stats.PocAttempts == 0 {
		t.Error("attempt counters should accumulate across draws")
	}
	if stats.UniqueEquipments == 0 {
		t.Error("stats should report sampled equipments")
	}
}

func TestSampler_MinDistanceRejection(t *testing.T) {
	// Equipments sit two hops apart; min distance 5 rejects every
	// candidate pair.
	cat := testutil.LineCatalog(3)
	bias := config.DefaultBias()
	bias.MinDistanceBetweenNodes = 5
	s := newSampler(t, cat, bias, sampling.Options{}, 3)

	if _, ok := s.Pair(); ok {
		t.Fatal("pairs below the minimum distance must be rejected")
	}

	// Relaxing down the ladder eventually admits the pair: 5 -> 3
	// still rejects (distance 2 < 3), 3 -> 1 accepts.
	if got := s.Relax(2, 1); got != 3 {
		t.Fatalf("Relax step 1 = %d, want 3", got)
	}
	if _, ok := s.Pair(); ok {
		t.Fatal("distance 2 is still below minimum 3")
	}
	if got := s.Relax(2, 1); got != 1 {
		t.Fatalf("Relax step 2 = %d, want 1", got)
	}
	if _, ok := s.Pair(); !ok {
		t.Fatal("minimum distance 1 should admit equipments two hops apart")
	}
}

func TestSampler_RelaxClampsAtFloor(t *testing.T) {
	cat := testutil.TwoNodeCatalog()
	s := newSampler(t, cat, minimalBias(), sampling.Options{}, 1)
	if got := s.Relax(2, 1); got != 1 {
		t.Errorf("relaxing below the floor should clamp: got %d", got)
	}
}

func TestSampler_LegacyDistance(t *testing.T) {
	// Legacy mode compares node id deltas, not hops. Nodes 1 and 2
	// differ by 1, so a minimum of 5 rejects them regardless of the
	// graph.
	cat := testutil.TwoNodeCatalog()
	bias := config.DefaultBias()
	bias.MinDistanceBetweenNodes = 5
	s := newSampler(t, cat, bias, sampling.Options{LegacyDistance: true}, 5)
	if _, ok := s.Pair(); ok {
		t.Fatal("legacy delta 1 is below minimum 5")
	}
}

func TestSampler_InterToolset(t *testing.T) {
	cat := testutil.TriangleCatalog()
	s := newSampler(t, cat, minimalBias(), sampling.Options{InterToolset: true}, 2)

	pair, ok := s.Pair()
	if !ok {
		t.Fatal("inter-toolset universe should produce a pair")
	}
	eqA := cat.Equipments[pair.Start.EquipmentID]
	eqB := cat.Equipments[pair.End.EquipmentID]
	if eqA.ToolsetCode == eqB.ToolsetCode {
		t.Error("inter-toolset pair endpoints must belong to different toolsets")
	}
}
