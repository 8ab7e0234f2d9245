package store

// Schema for the run tables. Applied with CREATE TABLE IF NOT EXISTS
// so the store can share a database with the catalog tables.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS tb_runs (
		id TEXT PRIMARY KEY,
		tag TEXT NOT NULL,
		status TEXT NOT NULL,
		coverage_target REAL NOT NULL,
		fab_no INTEGER,
		phase_no INTEGER,
		model_no INTEGER,
		e2e_group_no INTEGER,
		toolset TEXT,
		is_inter_toolset INTEGER NOT NULL DEFAULT 0,
		total_coverage REAL,
		total_nodes INTEGER,
		total_links INTEGER,
		run_at TIMESTAMP NOT NULL,
		ended_at TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS tb_path_definitions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		definition_hash TEXT NOT NULL UNIQUE,
		source_type TEXT NOT NULL,
		s_node_id INTEGER,
		e_node_id INTEGER,
		filter_fab_no INTEGER,
		filter_phase_no INTEGER,
		filter_model_no INTEGER,
		filter_e2e_group_no INTEGER,
		filter_toolset TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS tb_run_paths (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		path_definition_id INTEGER NOT NULL,
		path_hash TEXT NOT NULL,
		source_type TEXT NOT NULL,
		node_count INTEGER NOT NULL,
		link_count INTEGER NOT NULL,
		total_cost REAL NOT NULL,
		total_length_mm REAL NOT NULL,
		coverage REAL NOT NULL,
		data_codes_scope TEXT,
		utilities_scope TEXT,
		references_scope TEXT,
		path_context TEXT NOT NULL,
		start_poc_id INTEGER,
		end_poc_id INTEGER,
		start_equipment_id INTEGER,
		end_equipment_id INTEGER,
		executed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (run_id, path_hash)
	)`,
	`CREATE TABLE IF NOT EXISTS tb_attempt_paths (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		status TEXT NOT NULL,
		notes TEXT,
		picked_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS tb_run_covered_nodes (
		run_id TEXT NOT NULL,
		node_id INTEGER NOT NULL,
		covered_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (run_id, node_id)
	)`,
	`CREATE TABLE IF NOT EXISTS tb_run_covered_links (
		run_id TEXT NOT NULL,
		link_id INTEGER NOT NULL,
		covered_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (run_id, link_id)
	)`,
	`CREATE TABLE IF NOT EXISTS tb_run_coverage_summary (
		run_id TEXT PRIMARY KEY,
		total_nodes_in_scope INTEGER NOT NULL,
		total_links_in_scope INTEGER NOT NULL,
		covered_nodes INTEGER NOT NULL,
		covered_links INTEGER NOT NULL,
		node_coverage_pct REAL NOT NULL,
		link_coverage_pct REAL NOT NULL,
		overall_coverage_pct REAL NOT NULL,
		unique_paths_count INTEGER NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS tb_validation_errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		path_id INTEGER NOT NULL,
		test_code TEXT NOT NULL,
		severity TEXT NOT NULL,
		error_scope TEXT NOT NULL,
		error_type TEXT NOT NULL,
		object_type TEXT NOT NULL,
		object_id INTEGER NOT NULL,
		error_message TEXT NOT NULL,
		error_data TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS tb_run_reviews (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		reason TEXT NOT NULL,
		start_poc_id INTEGER,
		end_poc_id INTEGER,
		path_id INTEGER,
		notes TEXT,
		flagged_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS tb_run_summaries (
		run_id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		reason TEXT NOT NULL,
		total_attempts INTEGER NOT NULL,
		total_paths_found INTEGER NOT NULL,
		unique_paths INTEGER NOT NULL,
		failed_attempts INTEGER NOT NULL,
		duplicate_paths INTEGER NOT NULL,
		toolsets_sampled INTEGER NOT NULL,
		equipment_attempts INTEGER NOT NULL,
		poc_attempts INTEGER NOT NULL,
		max_attempts_per_equipment INTEGER NOT NULL,
		max_attempts_per_poc INTEGER NOT NULL,
		unique_equipments_sampled INTEGER NOT NULL,
		unique_pocs_sampled INTEGER NOT NULL,
		total_errors INTEGER NOT NULL,
		critical_errors INTEGER NOT NULL,
		total_reviews INTEGER NOT NULL,
		target_coverage REAL NOT NULL,
		achieved_coverage REAL NOT NULL,
		coverage_efficiency REAL NOT NULL,
		avg_path_nodes REAL NOT NULL,
		std_path_nodes REAL NOT NULL,
		avg_path_links REAL NOT NULL,
		avg_path_length REAL NOT NULL,
		success_rate REAL NOT NULL,
		started_at TIMESTAMP NOT NULL,
		ended_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ix_run_paths_run ON tb_run_paths (run_id)`,
	`CREATE INDEX IF NOT EXISTS ix_attempt_paths_run ON tb_attempt_paths (run_id)`,
	`CREATE INDEX IF NOT EXISTS ix_validation_errors_run ON tb_validation_errors (run_id)`,
}
