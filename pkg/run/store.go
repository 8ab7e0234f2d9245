package run

import (
	"context"
	"time"

	"github.com/vanderheijden86/netcover/pkg/config"
	"github.com/vanderheijden86/netcover/pkg/model"
	"github.com/vanderheijden86/netcover/pkg/sampling"
)

// Record is the run row created before the loop starts.
type Record struct {
	ID        string
	Tag       string
	StartedAt time.Time
	Config    config.RunConfig
}

// AttemptStatus classifies one sampling attempt for persistence.
type AttemptStatus string

// Attempt statuses.
const (
	AttemptFound    AttemptStatus = "FOUND"
	AttemptNotFound AttemptStatus = "NOT_FOUND"
	AttemptError    AttemptStatus = "ERROR"
)

// PathRecord is what the driver hands the persistence layer for a new
// unique path. Submitting the same (run id, hash) twice must be safe;
// the store returns the existing path id in that case.
type PathRecord struct {
	RunID      string
	Hash       model.PathHash
	Path       *model.Path
	SourceType string // "random"
	Filter     model.ScopeFilter
}

// ReviewFlag marks a finding for human follow-up: a not-found pair
// between used PoCs, or a critical validation error.
type ReviewFlag struct {
	RunID      string
	Reason     string // NOT_FOUND, CRITICAL_VALIDATION
	StartPocID int64
	EndPocID   int64
	PathID     int64
	Notes      string
}

// CoverageSummary is the updatable per-run coverage row.
type CoverageSummary struct {
	RunID        string
	TotalNodes   int
	TotalLinks   int
	CoveredNodes int
	CoveredLinks int
	NodePct      float64
	LinkPct      float64
	OverallPct   float64
	UniquePaths  int
}

// Summary is the aggregated run row written once at run end.
type Summary struct {
	RunID  string
	Status Status
	Reason TerminationReason

	Metrics Metrics

	// Sampling is the sampler's attempt distribution at run end.
	Sampling sampling.Stats

	TargetCoverage     float64
	AchievedCoverage   float64
	CoverageEfficiency float64

	AvgPathNodes  float64
	StdPathNodes  float64
	AvgPathLinks  float64
	AvgPathLength float64

	SuccessRate float64

	StartedAt time.Time
	EndedAt   time.Time
}

// Store is the persistence boundary of the driver. Writes may be
// buffered; the driver tolerates duplicate writes and the store
// deduplicates via its own uniqueness constraints.
type Store interface {
	// CreateRun inserts the run row with status INITIALIZED.
	CreateRun(ctx context.Context, rec Record) error
	// UpdateRunStatus advances the run's lifecycle state and final
	// coverage figures.
	UpdateRunStatus(ctx context.Context, runID string, status Status, coverage float64, totalNodes, totalLinks int) error

	// SavePath persists a unique path and returns its stable id.
	// Idempotent on (run id, content hash).
	SavePath(ctx context.Context, rec PathRecord) (int64, error)
	// SaveAttempt records one attempt's outcome.
	SaveAttempt(ctx context.Context, runID string, status AttemptStatus, note string) error

	// SaveCoveredElements batch-inserts newly covered node and link
	// ids.
	SaveCoveredElements(ctx context.Context, runID string, nodeIDs, linkIDs []int64) error
	// SaveCoverageSummary upserts the per-run coverage summary row.
	SaveCoverageSummary(ctx context.Context, sum CoverageSummary) error

	// SaveValidationErrors batch-inserts validation findings.
	SaveValidationErrors(ctx context.Context, errs []model.ValidationError) error
	// SaveReviewFlag records a finding for human follow-up.
	SaveReviewFlag(ctx context.Context, flag ReviewFlag) error

	// SaveSummary writes the final aggregated run row.
	SaveSummary(ctx context.Context, sum Summary) error
}
