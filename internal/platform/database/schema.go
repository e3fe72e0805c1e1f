package database

import "database/sql"

var globalSchema = []string{
	`CREATE TABLE IF NOT EXISTS organizations (
		id TEXT PRIMARY KEY,
		slug TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL,
		domain TEXT,
		db_file_path TEXT NOT NULL,
		plan_tier TEXT DEFAULT 'standard',
		member_quota INTEGER DEFAULT 100,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		deleted_at INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		organization_id TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		email_verified INTEGER DEFAULT 0,
		password_hash TEXT NOT NULL,
		full_name TEXT,
		role TEXT NOT NULL,
		avatar_url TEXT,
		last_login_at INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		deleted_at INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS invites (
		id TEXT PRIMARY KEY,
		organization_id TEXT NOT NULL,
		code TEXT UNIQUE NOT NULL,
		email TEXT,
		role TEXT NOT NULL,
		invited_by TEXT,
		status TEXT DEFAULT 'pending',
		max_uses INTEGER DEFAULT 1,
		current_uses INTEGER DEFAULT 0,
		expires_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS api_keys (
		id TEXT PRIMARY KEY,
		organization_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		key_hash TEXT UNIQUE NOT NULL,
		key_prefix TEXT NOT NULL,
		scopes TEXT,
		last_used_at INTEGER,
		expires_at INTEGER,
		created_at INTEGER NOT NULL,
		revoked_at INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id TEXT PRIMARY KEY,
		organization_id TEXT NOT NULL,
		user_id TEXT,
		action TEXT NOT NULL,
		resource_type TEXT NOT NULL,
		resource_id TEXT,
		metadata TEXT,
		ip_address TEXT,
		user_agent TEXT,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_org ON audit_logs(organization_id, created_at)`,
}

var tenantSchema = []string{
	`CREATE TABLE IF NOT EXISTS webhooks (
		id TEXT PRIMARY KEY,
		organization_id TEXT NOT NULL,
		name TEXT NOT NULL,
		endpoint_url TEXT NOT NULL,
		method TEXT DEFAULT 'POST',
		secret TEXT,
		headers TEXT,
		timeout_seconds INTEGER DEFAULT 30,
		retry_count INTEGER DEFAULT 3,
		rate_limit_per_minute INTEGER DEFAULT 0,
		is_active INTEGER DEFAULT 1,
		health_check_enabled INTEGER DEFAULT 0,
		total_executions INTEGER DEFAULT 0,
		successful_executions INTEGER DEFAULT 0,
		failed_executions INTEGER DEFAULT 0,
		avg_response_time_ms INTEGER DEFAULT 0,
		last_test_status TEXT,
		last_test_at INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS webhook_assignments (
		id TEXT PRIMARY KEY,
		organization_id TEXT NOT NULL,
		page TEXT NOT NULL,
		position TEXT NOT NULL,
		webhook_id TEXT NOT NULL,
		is_active INTEGER DEFAULT 1,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	// The uniqueness invariant for active assignments is enforced at the
	// storage layer so two concurrent assigns cannot race into a duplicate.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_assignments_active_triple
		ON webhook_assignments(organization_id, page, position) WHERE is_active = 1`,
	`CREATE INDEX IF NOT EXISTS idx_assignments_webhook ON webhook_assignments(webhook_id)`,
	`CREATE TABLE IF NOT EXISTS webhook_executions (
		id TEXT PRIMARY KEY,
		webhook_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		status TEXT NOT NULL,
		status_code INTEGER,
		response_time_ms INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,
		payload_size INTEGER DEFAULT 0,
		retry_count INTEGER DEFAULT 0,
		is_test INTEGER DEFAULT 0,
		request_headers TEXT,
		request_body TEXT,
		response_body TEXT,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_executions_webhook ON webhook_executions(webhook_id, created_at)`,
}

func MigrateGlobal(db *sql.DB) error {
	for _, stmt := range globalSchema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func MigrateTenant(db *sql.DB) error {
	for _, stmt := range tenantSchema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
