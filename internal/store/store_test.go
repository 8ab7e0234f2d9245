package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/vanderheijden86/netcover/internal/store"
	"github.com/vanderheijden86/netcover/pkg/config"
	"github.com/vanderheijden86/netcover/pkg/model"
	"github.com/vanderheijden86/netcover/pkg/run"
	"github.com/vanderheijden86/netcover/pkg/sampling"
)

func openStore(t *testing.T) *store.RunStore {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "netcover.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createRun(t *testing.T, s *store.RunStore, id string) {
	t.Helper()
	err := s.CreateRun(context.Background(), run.Record{
		ID:        id,
		Tag:       "20250101_random_simple",
		StartedAt: time.Now(),
		Config:    config.DefaultConfig().Run,
	})
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
}

func samplePath() *model.Path {
	return &model.Path{
		Nodes:         []int64{1, 2, 3},
		Links:         []int64{10, 11},
		TotalCost:     2,
		TotalLengthMM: 20,
		DataCodes:     []int64{100},
		UtilityNos:    []int64{1},
		StartPocID:    1,
		EndPocID:      2,
	}
}

func TestSavePath_Idempotent(t *testing.T) {
	s := openStore(t)
	createRun(t, s, "run-1")

	p := samplePath()
	rec := run.PathRecord{RunID: "run-1", Hash: p.Hash(), Path: p, SourceType: "random"}

	id1, err := s.SavePath(context.Background(), rec)
	if err != nil {
		t.Fatalf("SavePath: %v", err)
	}
	id2, err := s.SavePath(context.Background(), rec)
	if err != nil {
		t.Fatalf("SavePath (resubmit): %v", err)
	}
	if id1 != id2 {
		t.Errorf("resubmitting the same (run, hash) returned %d then %d", id1, id2)
	}
}

func TestSavePath_SharesDefinitionAcrossRuns(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	createRun(t, s, "run-1")
	createRun(t, s, "run-2")

	p := samplePath()
	if _, err := s.SavePath(ctx, run.PathRecord{RunID: "run-1", Hash: p.Hash(), Path: p, SourceType: "random"}); err != nil {
		t.Fatalf("SavePath run-1: %v", err)
	}
	if _, err := s.SavePath(ctx, run.PathRecord{RunID: "run-2", Hash: p.Hash(), Path: p, SourceType: "random"}); err != nil {
		t.Fatalf("SavePath run-2: %v", err)
	}

	// Same endpoints, same filter: one definition row serves both
	// executions.
	hash := store.DefinitionHash("random", p.StartNodeID(), p.EndNodeID(), model.ScopeFilter{})
	id1, err := s.FetchPathDefinitionID(ctx, hash)
	if err != nil {
		t.Fatalf("FetchPathDefinitionID: %v", err)
	}
	if id1 == 0 {
		t.Fatal("definition id should be assigned")
	}

	// A different endpoint pair gets its own definition.
	other := samplePath()
	other.Nodes = []int64{3, 2, 1}
	if _, err := s.SavePath(ctx, run.PathRecord{RunID: "run-1", Hash: other.Hash(), Path: other, SourceType: "random"}); err != nil {
		t.Fatalf("SavePath reversed: %v", err)
	}
	otherHash := store.DefinitionHash("random", 3, 1, model.ScopeFilter{})
	id2, err := s.FetchPathDefinitionID(ctx, otherHash)
	if err != nil {
		t.Fatalf("FetchPathDefinitionID (reversed): %v", err)
	}
	if id1 == id2 {
		t.Error("distinct endpoint pairs should not share a definition")
	}
}

func TestRunLifecycle(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	createRun(t, s, "run-1")

	if err := s.UpdateRunStatus(ctx, "run-1", run.StatusRunning, 0, 10, 8); err != nil {
		t.Fatalf("UpdateRunStatus: %v", err)
	}
	if err := s.UpdateRunStatus(ctx, "run-1", run.StatusCompleted, 0.92, 10, 8); err != nil {
		t.Fatalf("UpdateRunStatus (terminal): %v", err)
	}

	runs, err := s.FetchRecentRuns(ctx, 5)
	if err != nil {
		t.Fatalf("FetchRecentRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	r := runs[0]
	if r.Status != string(run.StatusCompleted) {
		t.Errorf("status = %s, want COMPLETED", r.Status)
	}
	if r.TotalCoverage != 0.92 {
		t.Errorf("coverage = %v, want 0.92", r.TotalCoverage)
	}
	if r.EndedAt == nil {
		t.Error("terminal status should stamp ended_at")
	}
}

func TestCoveredElements_Deduplicated(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	createRun(t, s, "run-1")

	if err := s.SaveCoveredElements(ctx, "run-1", []int64{1, 2}, []int64{10}); err != nil {
		t.Fatalf("SaveCoveredElements: %v", err)
	}
	// The driver tolerates duplicate writes; the store must too.
	if err := s.SaveCoveredElements(ctx, "run-1", []int64{2, 3}, []int64{10}); err != nil {
		t.Fatalf("SaveCoveredElements (overlap): %v", err)
	}
}

func TestSummaries(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	createRun(t, s, "run-1")

	err := s.SaveCoverageSummary(ctx, run.CoverageSummary{
		RunID: "run-1", TotalNodes: 10, TotalLinks: 8,
		CoveredNodes: 5, CoveredLinks: 4,
		NodePct: 50, LinkPct: 50, OverallPct: 50, UniquePaths: 2,
	})
	if err != nil {
		t.Fatalf("SaveCoverageSummary: %v", err)
	}
	// Upsert on progress.
	err = s.SaveCoverageSummary(ctx, run.CoverageSummary{
		RunID: "run-1", TotalNodes: 10, TotalLinks: 8,
		CoveredNodes: 10, CoveredLinks: 8,
		NodePct: 100, LinkPct: 100, OverallPct: 100, UniquePaths: 3,
	})
	if err != nil {
		t.Fatalf("SaveCoverageSummary (upsert): %v", err)
	}

	now := time.Now()
	err = s.SaveSummary(ctx, run.Summary{
		RunID:  "run-1",
		Status: run.StatusCompleted,
		Reason: run.ReasonTargetReached,
		Metrics: run.Metrics{
			TotalAttempts: 12, PathsFound: 5, UniquePaths: 3, FailedAttempts: 7,
			ToolsetsSampled: 2,
		},
		Sampling: sampling.Stats{
			ToolsetsSampled: 2, EquipmentAttempts: 24, PocAttempts: 24,
			MaxPerEquipment: 3, MaxPerPoc: 3,
			UniqueEquipments: 8, UniquePocs: 12,
		},
		TargetCoverage:   0.9,
		AchievedCoverage: 1.0,
		SuccessRate:      5.0 / 12.0,
		StartedAt:        now.Add(-time.Minute),
		EndedAt:          now,
	})
	if err != nil {
		t.Fatalf("SaveSummary: %v", err)
	}

	sum, err := s.FetchSummary(ctx, "run-1")
	if err != nil {
		t.Fatalf("FetchSummary: %v", err)
	}
	if sum.TotalAttempts != 12 || sum.UniquePaths != 3 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.Reason != string(run.ReasonTargetReached) {
		t.Errorf("reason = %s, want target_reached", sum.Reason)
	}
	if sum.ToolsetsSampled != 2 || sum.EquipmentAttempts != 24 || sum.UniquePocs != 12 {
		t.Errorf("sampling distribution = %+v, want the stored figures back", sum)
	}
	if sum.MaxPerEquipment != 3 || sum.MaxPerPoc != 3 || sum.UniqueEquipments != 8 || sum.PocAttempts != 24 {
		t.Errorf("sampling distribution = %+v, want the stored figures back", sum)
	}
}

func TestValidationErrorsAndReport(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	createRun(t, s, "run-1")

	errs := []model.ValidationError{
		{
			RunID: "run-1", PathID: 1, TestCode: "CONN_004",
			Severity: model.SeverityCritical, Scope: model.ScopeConnectivity,
			ErrorType: "MISSING_NODE", ObjectKind: model.ObjectNode, ObjectID: 99,
			Message: "node does not exist in catalog",
		},
		{
			RunID: "run-1", PathID: 1, TestCode: "UTIL_002",
			Severity: model.SeverityHigh, Scope: model.ScopeUtility,
			ErrorType: "INVALID_TRANSITION", ObjectKind: model.ObjectLink, ObjectID: 10,
			Message: "utility transition 1 -> 2 is not allowed",
			Data:    map[string]any{"from_utility": 1, "to_utility": 2},
		},
	}
	if err := s.SaveValidationErrors(ctx, errs); err != nil {
		t.Fatalf("SaveValidationErrors: %v", err)
	}

	sum, err := s.FetchValidationSummary(ctx, "run-1")
	if err != nil {
		t.Fatalf("FetchValidationSummary: %v", err)
	}
	if sum.Total != 2 || sum.Critical != 1 || sum.High != 1 {
		t.Errorf("validation summary = %+v", sum)
	}
}

func TestReviewFlags(t *testing.T) {
	s := openStore(t)
	createRun(t, s, "run-1")
	err := s.SaveReviewFlag(context.Background(), run.ReviewFlag{
		RunID: "run-1", Reason: "NOT_FOUND", StartPocID: 1, EndPocID: 2,
		Notes: "no path between used pocs",
	})
	if err != nil {
		t.Fatalf("SaveReviewFlag: %v", err)
	}
}
