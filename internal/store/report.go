package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RunInfo is one row of the run listing.
type RunInfo struct {
	ID             string
	Tag            string
	Status         string
	CoverageTarget float64
	TotalCoverage  float64
	RunAt          time.Time
	EndedAt        *time.Time
}

// FetchRecentRuns lists the most recent runs, newest first.
func (s *RunStore) FetchRecentRuns(ctx context.Context, limit int) ([]RunInfo, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tag, status, coverage_target, total_coverage, run_at, ended_at
		FROM tb_runs
		ORDER BY run_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		var r RunInfo
		var total sql.NullFloat64
		var ended sql.NullTime
		if err := rows.Scan(&r.ID, &r.Tag, &r.Status, &r.CoverageTarget, &total, &r.RunAt, &ended); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if total.Valid {
			r.TotalCoverage = total.Float64
		}
		if ended.Valid {
			t := ended.Time
			r.EndedAt = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ValidationSummary is the per-run severity histogram.
type ValidationSummary struct {
	Total    int
	Critical int
	High     int
	Medium   int
	Low      int
}

// FetchValidationSummary aggregates validation findings for a run.
func (s *RunStore) FetchValidationSummary(ctx context.Context, runID string) (ValidationSummary, error) {
	var sum ValidationSummary
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			SUM(CASE WHEN severity = 'CRITICAL' THEN 1 ELSE 0 END),
			SUM(CASE WHEN severity = 'HIGH' THEN 1 ELSE 0 END),
			SUM(CASE WHEN severity = 'MEDIUM' THEN 1 ELSE 0 END),
			SUM(CASE WHEN severity = 'LOW' THEN 1 ELSE 0 END)
		FROM tb_validation_errors
		WHERE run_id = ?`, runID).Scan(
		&sum.Total,
		&nullableInt{&sum.Critical}, &nullableInt{&sum.High},
		&nullableInt{&sum.Medium}, &nullableInt{&sum.Low})
	if err != nil {
		return ValidationSummary{}, fmt.Errorf("query validation summary: %w", err)
	}
	return sum, nil
}

// SummaryRow is the aggregated run summary as persisted.
type SummaryRow struct {
	RunID            string
	Status           string
	Reason           string
	TotalAttempts    int
	PathsFound       int
	UniquePaths      int
	FailedAttempts   int
	TargetCoverage   float64
	AchievedCoverage float64
	AvgPathNodes     float64
	AvgPathLength    float64
	SuccessRate      float64

	// Sampler attempt distribution.
	ToolsetsSampled   int
	EquipmentAttempts int
	PocAttempts       int
	MaxPerEquipment   int
	MaxPerPoc         int
	UniqueEquipments  int
	UniquePocs        int
}

// FetchSummary loads the aggregated summary row for a run.
func (s *RunStore) FetchSummary(ctx context.Context, runID string) (*SummaryRow, error) {
	var r SummaryRow
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, status, reason, total_attempts, total_paths_found,
			unique_paths, failed_attempts, target_coverage, achieved_coverage,
			avg_path_nodes, avg_path_length, success_rate,
			toolsets_sampled, equipment_attempts, poc_attempts,
			max_attempts_per_equipment, max_attempts_per_poc,
			unique_equipments_sampled, unique_pocs_sampled
		FROM tb_run_summaries
		WHERE run_id = ?`, runID).Scan(
		&r.RunID, &r.Status, &r.Reason, &r.TotalAttempts, &r.PathsFound,
		&r.UniquePaths, &r.FailedAttempts, &r.TargetCoverage, &r.AchievedCoverage,
		&r.AvgPathNodes, &r.AvgPathLength, &r.SuccessRate,
		&r.ToolsetsSampled, &r.EquipmentAttempts, &r.PocAttempts,
		&r.MaxPerEquipment, &r.MaxPerPoc,
		&r.UniqueEquipments, &r.UniquePocs)
	if err != nil {
		return nil, fmt.Errorf("query run summary: %w", err)
	}
	return &r, nil
}

// nullableInt scans a nullable aggregate into an int, treating NULL as
// zero.
type nullableInt struct{ v *int }

func (n *nullableInt) Scan(src any) error {
	if src == nil {
		*n.v = 0
		return nil
	}
	switch x := src.(type) {
	case int64:
		*n.v = int(x)
	case float64:
		*n.v = int(x)
	default:
		return fmt.Errorf("unsupported aggregate type %T", src)
	}
	return nil
}
