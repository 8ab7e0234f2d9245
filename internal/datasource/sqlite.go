// Package datasource provides read access to the catalog tables: the
// network graph (nodes, links), the equipment hierarchy (toolsets,
// equipments, PoCs), and the allowed utility transition table. The
// catalog is loaded once per run into an in-memory model.Catalog; the
// sampling loop never touches the database afterwards.
package datasource

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/netcover/pkg/metrics"
	"github.com/vanderheijden86/netcover/pkg/model"
)

// CatalogReader reads the catalog tables from a SQLite database.
type CatalogReader struct {
	db   *sql.DB
	path string
}

// NewCatalogReader opens the catalog database for reading with
// read-performance pragmas.
func NewCatalogReader(path string) (*CatalogReader, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA cache_size = -64000",   // 64MB cache
		"PRAGMA mmap_size = 268435456", // 256MB mmap
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			// Non-fatal, reads still work without the pragma.
			continue
		}
	}

	return &CatalogReader{db: db, path: path}, nil
}

// Close closes the database connection.
func (r *CatalogReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (r *CatalogReader) Path() string { return r.path }

// LoadCatalog materializes the full catalog. The six tables load
// concurrently; each goroutine fills its own map, so the catalog needs
// no locking once LoadCatalog returns.
func (r *CatalogReader) LoadCatalog(ctx context.Context) (*model.Catalog, error) {
	defer metrics.Timer(metrics.CatalogLoad)()

	cat := model.NewCatalog()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.loadNodes(ctx, cat) })
	g.Go(func() error { return r.loadLinks(ctx, cat) })
	g.Go(func() error { return r.loadToolsets(ctx, cat) })
	g.Go(func() error { return r.loadEquipments(ctx, cat) })
	g.Go(func() error { return r.loadPocs(ctx, cat) })
	g.Go(func() error { return r.loadTransitions(ctx, cat) })
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return cat, nil
}

func (r *CatalogReader) loadNodes(ctx context.Context, cat *model.Catalog) error {
	query := `
		SELECT id, fab_no, model_no, data_code, e2e_group_no,
		       markers, utility_no, is_virtual, is_logical, is_used
		FROM nw_nodes
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var n model.Node
		var markers sql.NullString
		var utility sql.NullInt64
		var virtual, logical, used sql.NullBool
		if err := rows.Scan(&n.ID, &n.FabNo, &n.ModelNo, &n.DataCode, &n.E2EGroupNo,
			&markers, &utility, &virtual, &logical, &used); err != nil {
			return fmt.Errorf("scan node: %w", err)
		}
		if markers.Valid {
			n.Markers = markers.String
		}
		if utility.Valid {
			v := utility.Int64
			n.UtilityNo = &v
		}
		n.IsVirtual = virtual.Valid && virtual.Bool
		n.IsLogical = logical.Valid && logical.Bool
		n.IsUsed = used.Valid && used.Bool
		node := n
		cat.Nodes[n.ID] = &node
	}
	return rows.Err()
}

func (r *CatalogReader) loadLinks(ctx context.Context, cat *model.Catalog) error {
	query := `SELECT id, s_node_id, e_node_id, bidirected, cost, length_mm FROM nw_links`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("query links: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l model.Link
		var bidirected sql.NullBool
		var cost, length sql.NullFloat64
		if err := rows.Scan(&l.ID, &l.StartNodeID, &l.EndNodeID, &bidirected, &cost, &length); err != nil {
			return fmt.Errorf("scan link: %w", err)
		}
		l.Bidirected = bidirected.Valid && bidirected.Bool
		if cost.Valid {
			l.Cost = cost.Float64
		}
		if length.Valid {
			l.LengthMM = length.Float64
		}
		link := l
		cat.Links[l.ID] = &link
	}
	return rows.Err()
}

func (r *CatalogReader) loadToolsets(ctx context.Context, cat *model.Catalog) error {
	query := `SELECT code, fab_no, phase_no, model_no, e2e_group_no, is_active FROM tb_toolsets`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("query toolsets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ts model.Toolset
		var active sql.NullBool
		if err := rows.Scan(&ts.Code, &ts.FabNo, &ts.PhaseNo, &ts.ModelNo, &ts.E2EGroupNo, &active); err != nil {
			return fmt.Errorf("scan toolset: %w", err)
		}
		ts.IsActive = active.Valid && active.Bool
		toolset := ts
		cat.Toolsets[ts.Code] = &toolset
	}
	return rows.Err()
}

func (r *CatalogReader) loadEquipments(ctx context.Context, cat *model.Catalog) error {
	query := `
		SELECT eq.id, eq.toolset, eq.node_id, eq.data_code, eq.category_no,
		       ts.phase_no, eq.is_active
		FROM tb_equipments eq
		JOIN tb_toolsets ts ON ts.code = eq.toolset
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("query equipments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var eq model.Equipment
		var active sql.NullBool
		if err := rows.Scan(&eq.ID, &eq.ToolsetCode, &eq.NodeID, &eq.DataCode, &eq.CategoryNo,
			&eq.PhaseNo, &active); err != nil {
			return fmt.Errorf("scan equipment: %w", err)
		}
		eq.IsActive = active.Valid && active.Bool
		equipment := eq
		cat.Equipments[eq.ID] = &equipment
	}
	return rows.Err()
}

func (r *CatalogReader) loadPocs(ctx context.Context, cat *model.Catalog) error {
	query := `
		SELECT id, equipment_id, node_id, markers, reference,
		       utility_no, flow, is_used, is_loopback
		FROM tb_equipment_pocs
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("query pocs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p model.Poc
		var markers, reference, flow sql.NullString
		var utility sql.NullInt64
		var used, loopback sql.NullBool
		if err := rows.Scan(&p.ID, &p.EquipmentID, &p.NodeID, &markers, &reference,
			&utility, &flow, &used, &loopback); err != nil {
			return fmt.Errorf("scan poc: %w", err)
		}
		if markers.Valid {
			p.Markers = markers.String
		}
		if reference.Valid {
			p.Reference = reference.String
		}
		if flow.Valid {
			p.Flow = flow.String
		}
		if utility.Valid {
			v := utility.Int64
			p.UtilityNo = &v
		}
		p.IsUsed = used.Valid && used.Bool
		p.IsLoopback = loopback.Valid && loopback.Bool
		poc := p
		cat.Pocs[p.ID] = &poc
	}
	return rows.Err()
}

// loadTransitions reads the allowed utility transition table. A
// missing table is not an error: the catalog then allows no
// transitions and the validator flags every utility change without an
// equipment-logical intermediary.
func (r *CatalogReader) loadTransitions(ctx context.Context, cat *model.Catalog) error {
	query := `SELECT from_utility, to_utility FROM tb_utility_transitions`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil
	}
	defer rows.Close()

	for rows.Next() {
		var tr model.UtilityTransition
		if err := rows.Scan(&tr.From, &tr.To); err != nil {
			return fmt.Errorf("scan utility transition: %w", err)
		}
		cat.Transitions[tr] = true
	}
	return rows.Err()
}
