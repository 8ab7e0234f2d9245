// Package store persists run artifacts to SQLite: run lifecycle rows,
// unique paths, attempt records, covered-element streams, validation
// errors, review flags, and the per-run summaries. Writes are
// idempotent where the driver may retry; uniqueness constraints
// deduplicate.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/netcover/pkg/model"
	"github.com/vanderheijden86/netcover/pkg/run"
)

// RunStore is the SQLite implementation of run.Store.
type RunStore struct {
	db *sql.DB
}

// Open opens (or creates) the run store and applies the schema.
func Open(path string) (*RunStore, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	s := &RunStore{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *RunStore) init() error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *RunStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// CreateRun inserts the run row with status INITIALIZED.
func (s *RunStore) CreateRun(ctx context.Context, rec run.Record) error {
	f := rec.Config.Filter
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tb_runs (id, tag, status, coverage_target,
			fab_no, phase_no, model_no, e2e_group_no, toolset,
			is_inter_toolset, run_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Tag, string(run.StatusInitialized), rec.Config.CoverageTarget,
		nullInt64(f.FabNo), nullInt64(f.PhaseNo), nullInt64(f.ModelNo), nullInt64(f.E2EGroupNo),
		nullString(f.Toolset), boolInt(rec.Config.IsInterToolset), rec.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// UpdateRunStatus advances the run's lifecycle state. Terminal states
// also stamp ended_at.
func (s *RunStore) UpdateRunStatus(ctx context.Context, runID string, status run.Status, cov float64, totalNodes, totalLinks int) error {
	query := `UPDATE tb_runs SET status = ?, total_coverage = ?, total_nodes = ?, total_links = ?`
	args := []any{string(status), cov, totalNodes, totalLinks}
	switch status {
	case run.StatusCompleted, run.StatusPartial, run.StatusFailed, run.StatusCancelled:
		query += `, ended_at = ?`
		args = append(args, time.Now().UTC())
	}
	query += ` WHERE id = ?`
	args = append(args, runID)

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	return nil
}

// pathContext is the JSON payload stored alongside a path row.
type pathContext struct {
	Nodes            []int64 `json:"nodes"`
	Links            []int64 `json:"links"`
	StartPocID       int64   `json:"start_poc_id"`
	EndPocID         int64   `json:"end_poc_id"`
	StartEquipmentID int64   `json:"start_equipment_id"`
	EndEquipmentID   int64   `json:"end_equipment_id"`
}

// SavePath persists a unique path and returns its stable id.
// Resubmitting the same (run id, hash) returns the existing id. The
// execution row references a deduplicated definition row keyed by the
// (endpoints, filter) request hash.
func (s *RunStore) SavePath(ctx context.Context, rec run.PathRecord) (int64, error) {
	p := rec.Path

	defID, err := s.resolveDefinition(ctx, rec)
	if err != nil {
		return 0, err
	}

	ctxJSON, err := json.Marshal(pathContext{
		Nodes:            p.Nodes,
		Links:            p.Links,
		StartPocID:       p.StartPocID,
		EndPocID:         p.EndPocID,
		StartEquipmentID: p.StartEquipmentID,
		EndEquipmentID:   p.EndEquipmentID,
	})
	if err != nil {
		return 0, fmt.Errorf("marshal path context: %w", err)
	}
	dataCodes, _ := json.Marshal(p.DataCodes)
	utilities, _ := json.Marshal(p.UtilityNos)
	references, _ := json.Marshal(p.References)

	// Per-path coverage is derived metadata: the count of distinct
	// elements the path touches.
	pathCoverage := float64(distinctCount(p.Nodes) + distinctCount(p.Links))

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tb_run_paths (run_id, path_definition_id, path_hash, source_type,
			node_count, link_count, total_cost, total_length_mm, coverage,
			data_codes_scope, utilities_scope, references_scope, path_context,
			start_poc_id, end_poc_id, start_equipment_id, end_equipment_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, path_hash) DO NOTHING`,
		rec.RunID, defID, rec.Hash.String(), rec.SourceType,
		p.NodeCount(), p.LinkCount(), p.TotalCost, p.TotalLengthMM, pathCoverage,
		string(dataCodes), string(utilities), string(references), string(ctxJSON),
		p.StartPocID, p.EndPocID, p.StartEquipmentID, p.EndEquipmentID)
	if err != nil {
		return 0, fmt.Errorf("insert path: %w", err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM tb_run_paths WHERE run_id = ? AND path_hash = ?`,
		rec.RunID, rec.Hash.String()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("fetch path id: %w", err)
	}
	return id, nil
}

// SaveAttempt records one attempt's outcome.
func (s *RunStore) SaveAttempt(ctx context.Context, runID string, status run.AttemptStatus, note string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tb_attempt_paths (run_id, status, notes) VALUES (?, ?, ?)`,
		runID, string(status), nullString(note))
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// SaveCoveredElements batch-inserts newly covered node and link ids.
func (s *RunStore) SaveCoveredElements(ctx context.Context, runID string, nodeIDs, linkIDs []int64) error {
	if err := s.batchInsertCovered(ctx, "tb_run_covered_nodes", "node_id", runID, nodeIDs); err != nil {
		return err
	}
	return s.batchInsertCovered(ctx, "tb_run_covered_links", "link_id", runID, linkIDs)
}

func (s *RunStore) batchInsertCovered(ctx context.Context, table, column, runID string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (run_id, %s) VALUES ", table, column)
	args := make([]any, 0, len(ids)*2)
	for i, id := range ids {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?)")
		args = append(args, runID, id)
	}
	sb.WriteString(fmt.Sprintf(" ON CONFLICT (run_id, %s) DO NOTHING", column))

	if _, err := s.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert covered %s: %w", column, err)
	}
	return nil
}

// SaveCoverageSummary upserts the per-run coverage summary row.
func (s *RunStore) SaveCoverageSummary(ctx context.Context, sum run.CoverageSummary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tb_run_coverage_summary (run_id,
			total_nodes_in_scope, total_links_in_scope,
			covered_nodes, covered_links,
			node_coverage_pct, link_coverage_pct, overall_coverage_pct,
			unique_paths_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id) DO UPDATE SET
			covered_nodes = excluded.covered_nodes,
			covered_links = excluded.covered_links,
			node_coverage_pct = excluded.node_coverage_pct,
			link_coverage_pct = excluded.link_coverage_pct,
			overall_coverage_pct = excluded.overall_coverage_pct,
			unique_paths_count = excluded.unique_paths_count,
			updated_at = excluded.updated_at`,
		sum.RunID, sum.TotalNodes, sum.TotalLinks, sum.CoveredNodes, sum.CoveredLinks,
		sum.NodePct, sum.LinkPct, sum.OverallPct, sum.UniquePaths, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert coverage summary: %w", err)
	}
	return nil
}

// SaveValidationErrors batch-inserts validation findings.
func (s *RunStore) SaveValidationErrors(ctx context.Context, errs []model.ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin validation batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tb_validation_errors (run_id, path_id, test_code,
			severity, error_scope, error_type, object_type, object_id,
			error_message, error_data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare validation insert: %w", err)
	}
	defer stmt.Close()

	for i := range errs {
		e := &errs[i]
		var data any
		if len(e.Data) > 0 {
			raw, err := json.Marshal(e.Data)
			if err != nil {
				return fmt.Errorf("marshal error data: %w", err)
			}
			data = string(raw)
		}
		if _, err := stmt.ExecContext(ctx, e.RunID, e.PathID, e.TestCode,
			string(e.Severity), string(e.Scope), e.ErrorType,
			string(e.ObjectKind), e.ObjectID, e.Message, data); err != nil {
			return fmt.Errorf("insert validation error: %w", err)
		}
	}
	return tx.Commit()
}

// SaveReviewFlag records a finding for human follow-up.
func (s *RunStore) SaveReviewFlag(ctx context.Context, flag run.ReviewFlag) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tb_run_reviews (run_id, reason, start_poc_id, end_poc_id, path_id, notes)
		VALUES (?, ?, ?, ?, ?, ?)`,
		flag.RunID, flag.Reason, nullInt64(flag.StartPocID), nullInt64(flag.EndPocID),
		nullInt64(flag.PathID), nullString(flag.Notes))
	if err != nil {
		return fmt.Errorf("insert review flag: %w", err)
	}
	return nil
}

// SaveSummary writes the final aggregated run row.
func (s *RunStore) SaveSummary(ctx context.Context, sum run.Summary) error {
	m := sum.Metrics
	sp := sum.Sampling
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tb_run_summaries (run_id, status, reason,
			total_attempts, total_paths_found, unique_paths, failed_attempts,
			duplicate_paths, toolsets_sampled,
			equipment_attempts, poc_attempts,
			max_attempts_per_equipment, max_attempts_per_poc,
			unique_equipments_sampled, unique_pocs_sampled,
			total_errors, critical_errors,
			total_reviews, target_coverage, achieved_coverage, coverage_efficiency,
			avg_path_nodes, std_path_nodes, avg_path_links, avg_path_length,
			success_rate, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id) DO UPDATE SET
			status = excluded.status,
			reason = excluded.reason,
			achieved_coverage = excluded.achieved_coverage,
			ended_at = excluded.ended_at`,
		sum.RunID, string(sum.Status), string(sum.Reason),
		m.TotalAttempts, m.PathsFound, m.UniquePaths, m.FailedAttempts,
		m.DuplicatePaths, m.ToolsetsSampled,
		sp.EquipmentAttempts, sp.PocAttempts,
		sp.MaxPerEquipment, sp.MaxPerPoc,
		sp.UniqueEquipments, sp.UniquePocs,
		m.ValidationErrors, m.CriticalErrors,
		m.ReviewFlags, sum.TargetCoverage, sum.AchievedCoverage, sum.CoverageEfficiency,
		sum.AvgPathNodes, sum.StdPathNodes, sum.AvgPathLinks, sum.AvgPathLength,
		sum.SuccessRate, sum.StartedAt.UTC(), sum.EndedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert run summary: %w", err)
	}
	return nil
}

func distinctCount(ids []int64) int {
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}

func nullInt64(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
