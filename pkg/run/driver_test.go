package run_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/vanderheijden86/netcover/pkg/config"
	"github.com/vanderheijden86/netcover/pkg/coverage"
	"github.com/vanderheijden86/netcover/pkg/logging"
	"github.com/vanderheijden86/netcover/pkg/model"
	"github.com/vanderheijden86/netcover/pkg/run"
	"github.com/vanderheijden86/netcover/pkg/sampling"
	"github.com/vanderheijden86/netcover/pkg/testutil"
)

// baseConfig returns a run config suitable for tiny test graphs: the
// documented defaults with the distance constraint neutralized and a
// fixed seed.
func baseConfig() config.RunConfig {
	cfg := config.DefaultConfig().Run
	cfg.Bias.MinDistanceBetweenNodes = 1
	cfg.CoverageTarget = 1.0
	cfg.Seed = 42
	return cfg
}

func runDriver(t *testing.T, cat *model.Catalog, cfg config.RunConfig) (*run.Result, *testutil.MemStore) {
	t.Helper()
	store := testutil.NewMemStore()
	driver := run.NewDriver(cat, store, cfg, logging.Nop())
	res, err := driver.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res, store
}

// Two-node graph, trivially covered: one attempt, one path, full
// coverage, no validation findings.
func TestDriver_TwoNodeGraphCovered(t *testing.T) {
	res, store := runDriver(t, testutil.TwoNodeCatalog(), baseConfig())

	if res.Reason != run.ReasonTargetReached {
		t.Fatalf("reason = %s, want target_reached", res.Reason)
	}
	if res.Metrics.TotalAttempts != 1 || res.Metrics.PathsFound != 1 || res.Metrics.UniquePaths != 1 {
		t.Errorf("metrics = %+v, want 1 attempt, 1 found, 1 unique", res.Metrics)
	}
	if res.FinalCoverage != 1.0 {
		t.Errorf("coverage = %v, want 1.0", res.FinalCoverage)
	}
	if res.Metrics.ValidationErrors != 0 {
		t.Errorf("validation errors = %d, want 0", res.Metrics.ValidationErrors)
	}

	if len(store.Paths) != 1 {
		t.Fatalf("persisted %d paths, want 1", len(store.Paths))
	}
	p := store.Paths[0].Path
	// Endpoints may come out in either order; the content is fixed.
	okForward := len(p.Nodes) == 2 && p.Nodes[0] == 1 && p.Nodes[1] == 2
	okBackward := len(p.Nodes) == 2 && p.Nodes[0] == 2 && p.Nodes[1] == 1
	if !okForward && !okBackward {
		t.Errorf("path nodes = %v, want [1 2] or [2 1]", p.Nodes)
	}
	if len(p.Links) != 1 || p.Links[0] != 10 {
		t.Errorf("path links = %v, want [10]", p.Links)
	}
	if p.TotalCost != 3 || p.TotalLengthMM != 100 {
		t.Errorf("cost=%v length=%v, want 3 and 100", p.TotalCost, p.TotalLengthMM)
	}

	sum := store.LastSummary()
	if sum == nil || sum.Status != run.StatusCompleted {
		t.Errorf("summary = %+v, want COMPLETED", sum)
	}
	if sum != nil {
		if sum.Sampling.UniqueEquipments != 2 || sum.Sampling.EquipmentAttempts < 2 {
			t.Errorf("sampling stats = %+v, want both equipments drawn", sum.Sampling)
		}
		if sum.Sampling.UniquePocs != 2 {
			t.Errorf("sampling stats = %+v, want both pocs drawn", sum.Sampling)
		}
	}
	if res.Sampling.ToolsetsSampled != 1 {
		t.Errorf("result sampling stats = %+v, want 1 toolset", res.Sampling)
	}
}

// Disconnected universe: attempts happen, nothing is found, the
// used-PoC pair raises review flags, coverage stays at zero.
func TestDriver_DisconnectedUniverse(t *testing.T) {
	b := testutil.NewCatalog()
	b.Node(1).Node(2)
	b.Toolset("TS-A")
	eq1 := b.Equipment("TS-A", 1)
	eq2 := b.Equipment("TS-A", 2)
	b.Poc(eq1, 1)
	b.Poc(eq2, 2)

	cfg := baseConfig()
	cfg.AttemptsCeiling = 25
	cfg.Bias.PlateauThreshold = 1000

	res, store := runDriver(t, b.Build(), cfg)

	if res.Reason != run.ReasonAttemptsCeiling {
		t.Fatalf("reason = %s, want attempts_ceiling", res.Reason)
	}
	if res.Metrics.PathsFound != 0 {
		t.Errorf("paths found = %d, want 0", res.Metrics.PathsFound)
	}
	if res.FinalCoverage != 0 {
		t.Errorf("coverage = %v, want 0", res.FinalCoverage)
	}
	if len(store.Reviews) == 0 {
		t.Error("not-found between used pocs should raise review flags")
	}
	for _, flag := range store.Reviews {
		if flag.Reason != "NOT_FOUND" {
			t.Errorf("review reason = %s, want NOT_FOUND", flag.Reason)
		}
	}
}

// Triangle with one deterministic route: once the first path is
// accepted, identical rediscoveries add nothing and the relaxation
// ladder runs dry.
func TestDriver_RepeatDiscoverySuppressed(t *testing.T) {
	cfg := baseConfig()
	cfg.IsInterToolset = true
	cfg.Bias.PlateauThreshold = 3
	cfg.MaxRelaxationLevels = 1
	cfg.AttemptsCeiling = 200

	res, store := runDriver(t, testutil.TriangleCatalog(), cfg)

	if res.Metrics.UniquePaths != 1 {
		t.Fatalf("unique paths = %d, want 1", res.Metrics.UniquePaths)
	}
	if res.Reason != run.ReasonPlateauExhausted {
		t.Fatalf("reason = %s, want plateau_exhausted", res.Reason)
	}
	// Direct link 12 joins the two equipment nodes, so coverage caps
	// at nodes {1,3} + link {12} out of 3 nodes and 3 links.
	want := 3.0 / 6.0
	if math.Abs(res.FinalCoverage-want) > 1e-12 {
		t.Errorf("coverage = %v, want %v", res.FinalCoverage, want)
	}
	if len(store.Paths) != 1 {
		t.Errorf("persisted %d paths, want 1", len(store.Paths))
	}

	// Rediscoveries are recorded as found-but-not-improving attempts.
	improved := 0
	for _, a := range store.Attempts {
		if a.Status == run.AttemptFound && a.Note == "no coverage improvement" {
			improved++
		}
	}
	if improved == 0 {
		t.Error("expected found-no-improvement attempts after the first acceptance")
	}
}

// Plateau with relaxation: only distance-2 pairs exist; the minimum
// distance steps 5 -> 3 -> 1 and the path is then accepted.
func TestDriver_PlateauRelaxation(t *testing.T) {
	cfg := baseConfig()
	cfg.Bias.MinDistanceBetweenNodes = 5
	cfg.Bias.PlateauThreshold = 3
	cfg.MaxRelaxationLevels = 2
	cfg.AttemptsCeiling = 100

	res, _ := runDriver(t, testutil.LineCatalog(3), cfg)

	if res.Reason != run.ReasonTargetReached {
		t.Fatalf("reason = %s, want target_reached after relaxation", res.Reason)
	}
	if res.RelaxationLevels != 2 {
		t.Errorf("relaxation levels = %d, want 2", res.RelaxationLevels)
	}
	if res.Metrics.FailedAttempts != 6 {
		t.Errorf("failed attempts = %d, want 6 (three per plateau)", res.Metrics.FailedAttempts)
	}
	if res.Metrics.TotalAttempts != 7 {
		t.Errorf("total attempts = %d, want 7", res.Metrics.TotalAttempts)
	}
	if res.FinalCoverage != 1.0 {
		t.Errorf("coverage = %v, want 1.0", res.FinalCoverage)
	}
}

// Attempt ceiling: exactly the configured number of attempts on a
// universe that yields no paths.
func TestDriver_AttemptsCeiling(t *testing.T) {
	b := testutil.NewCatalog()
	b.Node(1).Node(2)
	b.Toolset("TS-A")
	eq1 := b.Equipment("TS-A", 1)
	eq2 := b.Equipment("TS-A", 2)
	b.Poc(eq1, 1)
	b.Poc(eq2, 2)

	cfg := baseConfig()
	cfg.AttemptsCeiling = 10
	cfg.Bias.PlateauThreshold = 1000

	res, _ := runDriver(t, b.Build(), cfg)

	if res.Reason != run.ReasonAttemptsCeiling {
		t.Fatalf("reason = %s, want attempts_ceiling", res.Reason)
	}
	if res.Metrics.TotalAttempts != 10 {
		t.Errorf("attempts = %d, want exactly 10", res.Metrics.TotalAttempts)
	}
	if res.FinalCoverage != 0 {
		t.Errorf("coverage = %v, want 0", res.FinalCoverage)
	}
}

// A zero coverage target terminates before the first attempt.
func TestDriver_ZeroTarget(t *testing.T) {
	cfg := baseConfig()
	cfg.CoverageTarget = 0

	res, _ := runDriver(t, testutil.TwoNodeCatalog(), cfg)

	if res.Reason != run.ReasonTargetReached {
		t.Fatalf("reason = %s, want target_reached", res.Reason)
	}
	if res.Metrics.TotalAttempts != 0 {
		t.Errorf("attempts = %d, want 0", res.Metrics.TotalAttempts)
	}
}

func TestDriver_EmptyScope(t *testing.T) {
	cfg := baseConfig()
	cfg.Filter.FabNo = 99

	store := testutil.NewMemStore()
	driver := run.NewDriver(testutil.TwoNodeCatalog(), store, cfg, logging.Nop())
	_, err := driver.Run(context.Background())
	if !errors.Is(err, coverage.ErrScopeEmpty) {
		t.Fatalf("got %v, want ErrScopeEmpty", err)
	}
}

func TestDriver_UniverseTooSmall(t *testing.T) {
	b := testutil.NewCatalog()
	b.Node(1)
	b.Toolset("TS-A")
	eq := b.Equipment("TS-A", 1)
	b.Poc(eq, 1)

	store := testutil.NewMemStore()
	driver := run.NewDriver(b.Build(), store, baseConfig(), logging.Nop())
	res, err := driver.Run(context.Background())
	if !errors.Is(err, sampling.ErrUniverseTooSmall) {
		t.Fatalf("got %v, want ErrUniverseTooSmall", err)
	}
	if res == nil || res.Reason != run.ReasonUniverseEmpty {
		t.Fatalf("result = %+v, want universe_empty", res)
	}
}

func TestDriver_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := testutil.NewMemStore()
	driver := run.NewDriver(testutil.TwoNodeCatalog(), store, baseConfig(), logging.Nop())
	res, err := driver.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Reason != run.ReasonCancelled {
		t.Fatalf("reason = %s, want cancelled", res.Reason)
	}
	if res.Metrics.TotalAttempts != 0 {
		t.Errorf("attempts = %d, want 0 after pre-loop cancellation", res.Metrics.TotalAttempts)
	}
}

// Runs with the same seed, catalog, and config produce identical
// metrics and paths.
func TestDriver_SeededReproducibility(t *testing.T) {
	cfg := baseConfig()
	cfg.IsInterToolset = true
	cfg.Bias.PlateauThreshold = 3
	cfg.MaxRelaxationLevels = 1
	cfg.AttemptsCeiling = 50
	cfg.Seed = 1234

	res1, store1 := runDriver(t, testutil.TriangleCatalog(), cfg)
	res2, store2 := runDriver(t, testutil.TriangleCatalog(), cfg)

	if res1.Metrics != res2.Metrics {
		t.Errorf("metrics diverged: %+v vs %+v", res1.Metrics, res2.Metrics)
	}
	if len(store1.Paths) != len(store2.Paths) {
		t.Fatalf("path counts diverged: %d vs %d", len(store1.Paths), len(store2.Paths))
	}
	for i := range store1.Paths {
		if store1.Paths[i].Hash != store2.Paths[i].Hash {
			t.Errorf("path %d hash diverged", i)
		}
	}
}
