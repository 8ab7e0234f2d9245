package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/vanderheijden86/netcover/pkg/model"
	"github.com/vanderheijden86/netcover/pkg/run"
)

// DefinitionHash identifies a path request before execution: the
// endpoint pair plus the scope filter, independent of the route the
// finder discovers. Identical requests across runs share one
// definition row.
func DefinitionHash(sourceType string, sNode, eNode int64, f model.ScopeFilter) string {
	key := fmt.Sprintf("source:%s|s_node:%d|e_node:%d|fab:%d|phase:%d|model:%d|e2e:%d|toolset:%s",
		sourceType, sNode, eNode, f.FabNo, f.PhaseNo, f.ModelNo, f.E2EGroupNo, f.Toolset)
	return fmt.Sprintf("%016x", xxhash.Sum64String(key))
}

// resolveDefinition returns the definition id for a path record,
// inserting the definition row on first sight.
func (s *RunStore) resolveDefinition(ctx context.Context, rec run.PathRecord) (int64, error) {
	hash := DefinitionHash(rec.SourceType, rec.Path.StartNodeID(), rec.Path.EndNodeID(), rec.Filter)

	f := rec.Filter
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tb_path_definitions (definition_hash, source_type,
			s_node_id, e_node_id,
			filter_fab_no, filter_phase_no, filter_model_no,
			filter_e2e_group_no, filter_toolset)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (definition_hash) DO NOTHING`,
		hash, rec.SourceType,
		rec.Path.StartNodeID(), rec.Path.EndNodeID(),
		nullInt64(f.FabNo), nullInt64(f.PhaseNo), nullInt64(f.ModelNo),
		nullInt64(f.E2EGroupNo), nullString(f.Toolset))
	if err != nil {
		return 0, fmt.Errorf("insert path definition: %w", err)
	}

	return s.FetchPathDefinitionID(ctx, hash)
}

// FetchPathDefinitionID looks a definition up by its hash.
func (s *RunStore) FetchPathDefinitionID(ctx context.Context, hash string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM tb_path_definitions WHERE definition_hash = ?`, hash).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("path definition %s not found", hash)
	}
	if err != nil {
		return 0, fmt.Errorf("fetch path definition: %w", err)
	}
	return id, nil
}
