package sampling_test

import (
	"errors"
	"testing"

	"github.com/vanderheijden86/netcover/pkg/model"
	"github.com/vanderheijden86/netcover/pkg/sampling"
	"github.com/vanderheijden86/netcover/pkg/testutil"
)

func TestBuildUniverse_DropsEquipmentWithoutUsedPocs(t *testing.T) {
	b := testutil.NewCatalog()
	b.Node(1).Node(2).Node(3)
	b.Toolset("TS-A")
	eq1 := b.Equipment("TS-A", 1)
	eq2 := b.Equipment("TS-A", 2)
	eq3 := b.Equipment("TS-A", 3)
	b.Poc(eq1, 1)
	b.Poc(eq2, 2)
	b.Poc(eq3, 3, testutil.Unused())

	u, err := sampling.BuildUniverse(b.Build(), model.ScopeFilter{}, false)
	if err != nil {
		t.Fatalf("BuildUniverse: %v", err)
	}
	if u.EquipmentCount() != 2 {
		t.Errorf("got %d equipments, want 2 (unused-poc equipment dropped)", u.EquipmentCount())
	}
}

func TestBuildUniverse_DropsSingleEquipmentToolset(t *testing.T) {
	b := testutil.NewCatalog()
	b.Node(1).Node(2).Node(3)
	b.Toolset("TS-A").Toolset("TS-B")
	eq1 := b.Equipment("TS-A", 1)
	eq2 := b.Equipment("TS-A", 2)
	eq3 := b.Equipment("TS-B", 3)
	b.Poc(eq1, 1)
	b.Poc(eq2, 2)
	b.Poc(eq3, 3)

	u, err := sampling.BuildUniverse(b.Build(), model.ScopeFilter{}, false)
	if err != nil {
		t.Fatalf("BuildUniverse: %v", err)
	}
	if u.ToolsetCount() != 1 {
		t.Errorf("got %d toolsets, want 1 (single-equipment toolset cannot pair)", u.ToolsetCount())
	}
	if u.Toolsets[0].Toolset.Code != "TS-A" {
		t.Errorf("surviving toolset = %s, want TS-A", u.Toolsets[0].Toolset.Code)
	}
}

func TestBuildUniverse_TooSmall(t *testing.T) {
	b := testutil.NewCatalog()
	b.Node(1)
	b.Toolset("TS-A")
	eq := b.Equipment("TS-A", 1)
	b.Poc(eq, 1)

	_, err := sampling.BuildUniverse(b.Build(), model.ScopeFilter{}, false)
	if !errors.Is(err, sampling.ErrUniverseTooSmall) {
		t.Fatalf("got %v, want ErrUniverseTooSmall", err)
	}
}

func TestBuildUniverse_InterToolsetNeedsTwoToolsets(t *testing.T) {
	b := testutil.NewCatalog()
	b.Node(1).Node(2)
	b.Toolset("TS-A")
	eq1 := b.Equipment("TS-A", 1)
	eq2 := b.Equipment("TS-A", 2)
	b.Poc(eq1, 1)
	b.Poc(eq2, 2)

	_, err := sampling.BuildUniverse(b.Build(), model.ScopeFilter{}, true)
	if !errors.Is(err, sampling.ErrUniverseTooSmall) {
		t.Fatalf("got %v, want ErrUniverseTooSmall in inter-toolset mode", err)
	}

	// The same universe is fine intra-toolset.
	if _, err := sampling.BuildUniverse(b.Build(), model.ScopeFilter{}, false); err != nil {
		t.Fatalf("intra-toolset build failed: %v", err)
	}
}

func TestBuildUniverse_FilterExcludesToolset(t *testing.T) {
	cat := testutil.TriangleCatalog()
	u, err := sampling.BuildUniverse(cat, model.ScopeFilter{Toolset: "TS-A"}, true)
	if err == nil {
		// Only TS-A survives the filter; inter-toolset mode needs two.
		t.Fatalf("got %d toolsets with no error, want ErrUniverseTooSmall", u.ToolsetCount())
	}
	if !errors.Is(err, sampling.ErrUniverseTooSmall) {
		t.Fatalf("got %v, want ErrUniverseTooSmall", err)
	}
}
