// Package run drives the coverage-driven sampling loop: sample a PoC
// pair, find a path, deduplicate, update coverage, validate, and
// decide whether to stop, relax, or continue. The driver owns the
// coverage tracker and the dedup index; per-attempt errors never
// escape it.
package run

import (
	"time"

	"github.com/vanderheijden86/netcover/pkg/sampling"
)

// TerminationReason explains why a run stopped.
type TerminationReason string

// Termination reasons.
const (
	ReasonTargetReached    TerminationReason = "target_reached"
	ReasonPlateauExhausted TerminationReason = "plateau_exhausted"
	ReasonAttemptsCeiling  TerminationReason = "attempts_ceiling"
	ReasonUniverseEmpty    TerminationReason = "universe_empty"
	ReasonCancelled        TerminationReason = "cancelled"
	ReasonTimedOut         TerminationReason = "timed_out"
)

// Status is a run's lifecycle state as persisted.
type Status string

// Run statuses.
const (
	StatusInitialized Status = "INITIALIZED"
	StatusRunning     Status = "RUNNING"
	StatusCompleted   Status = "COMPLETED"
	StatusPartial     Status = "PARTIAL"
	StatusFailed      Status = "FAILED"
	StatusCancelled   Status = "CANCELLED"
)

// statusFor maps a termination reason onto the persisted status.
func statusFor(reason TerminationReason) Status {
	switch reason {
	case ReasonTargetReached:
		return StatusCompleted
	case ReasonCancelled, ReasonTimedOut:
		return StatusCancelled
	case ReasonUniverseEmpty:
		return StatusFailed
	default:
		return StatusPartial
	}
}

// Metrics holds the per-run counters mutated by the driver.
type Metrics struct {
	TotalAttempts    int `json:"total_attempts"`
	PathsFound       int `json:"paths_found"`
	UniquePaths      int `json:"unique_paths"`
	FailedAttempts   int `json:"failed_attempts"`
	DuplicatePaths   int `json:"duplicate_paths"`
	ToolsetsSampled  int `json:"toolsets_sampled"`
	ReviewFlags      int `json:"review_flags"`
	ValidationErrors int `json:"validation_errors"`
	CriticalErrors   int `json:"critical_errors"`
}

// Result is the exit outcome reported to the caller.
type Result struct {
	RunID  string
	Reason TerminationReason

	Metrics Metrics

	// Sampling is the sampler's attempt distribution at run end.
	Sampling sampling.Stats

	FinalCoverage float64
	NodeCoverage  float64
	LinkCoverage  float64

	// RelaxationLevels counts how far down the ladder the run went.
	RelaxationLevels int

	Elapsed time.Duration
}
