package sqlstore

import (
	"context"
	"fmt"
	"strings"
)

// The schema is created idempotently at startup; there is no versioned
// migration history.
const schemaTemplate = `
CREATE TABLE IF NOT EXISTS users (
	id VARCHAR(64) PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	email VARCHAR(255) NOT NULL UNIQUE,
	password_hash VARCHAR(255) NOT NULL,
	role VARCHAR(32) NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	must_change_password BOOLEAN NOT NULL DEFAULT FALSE,
	created_at {{time}} NOT NULL,
	updated_at {{time}} NOT NULL
);

CREATE TABLE IF NOT EXISTS rooms (
	id VARCHAR(64) PRIMARY KEY,
	room_number VARCHAR(32) NOT NULL UNIQUE,
	floor INTEGER NOT NULL,
	wing VARCHAR(8) NOT NULL DEFAULT '',
	kind VARCHAR(16) NOT NULL,
	capacity INTEGER NOT NULL CHECK (capacity >= 0),
	room_type VARCHAR(16) NOT NULL,
	current_count INTEGER NOT NULL DEFAULT 0,
	is_occupied BOOLEAN NOT NULL DEFAULT FALSE,
	created_at {{time}} NOT NULL,
	updated_at {{time}} NOT NULL,
	CHECK (current_count >= 0 AND current_count <= capacity)
);

CREATE TABLE IF NOT EXISTS students (
	id VARCHAR(64) PRIMARY KEY,
	registration_number VARCHAR(64) NOT NULL UNIQUE,
	national_id VARCHAR(64) NOT NULL,
	first_name VARCHAR(128) NOT NULL,
	last_name VARCHAR(128) NOT NULL DEFAULT '',
	email VARCHAR(255) NOT NULL DEFAULT '',
	phone VARCHAR(64) NOT NULL DEFAULT '',
	university VARCHAR(16) NOT NULL,
	room_type VARCHAR(16) NOT NULL,
	status VARCHAR(16) NOT NULL,
	room_number VARCHAR(32),
	check_in_date {{time}},
	created_at {{time}} NOT NULL,
	updated_at {{time}} NOT NULL,
	CHECK (university <> 'PRIVATE' OR room_type = 'PREMIUM')
);

CREATE INDEX IF NOT EXISTS idx_students_room_number ON students (room_number);

CREATE TABLE IF NOT EXISTS requests (
	id VARCHAR(64) PRIMARY KEY,
	type VARCHAR(32) NOT NULL,
	status VARCHAR(16) NOT NULL,
	student_id VARCHAR(64),
	payload TEXT NOT NULL,
	requester_id VARCHAR(64) NOT NULL,
	resolver_id VARCHAR(64),
	rejection_reason TEXT,
	created_at {{time}} NOT NULL,
	resolved_at {{time}}
);

CREATE INDEX IF NOT EXISTS idx_requests_status ON requests (status);

CREATE TABLE IF NOT EXISTS logs (
	id VARCHAR(64) PRIMARY KEY,
	action VARCHAR(64) NOT NULL,
	user_id VARCHAR(64) NOT NULL DEFAULT '',
	entity_type VARCHAR(32) NOT NULL DEFAULT '',
	entity_id VARCHAR(64) NOT NULL DEFAULT '',
	metadata TEXT NOT NULL DEFAULT '{}',
	description TEXT NOT NULL DEFAULT '',
	created_at {{time}} NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_logs_created_at ON logs (created_at);

CREATE TABLE IF NOT EXISTS notifications (
	id VARCHAR(64) PRIMARY KEY,
	user_id VARCHAR(64) NOT NULL,
	kind VARCHAR(32) NOT NULL,
	title VARCHAR(255) NOT NULL,
	message TEXT NOT NULL,
	request_id VARCHAR(64),
	is_read BOOLEAN NOT NULL DEFAULT FALSE,
	created_at {{time}} NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications (user_id, is_read);
`

// Schema returns the DDL for dialect d.
func Schema(d Dialect) []string {
	ddl := strings.ReplaceAll(schemaTemplate, "{{time}}", d.TimeType)
	var stmts []string
	for _, stmt := range strings.Split(ddl, ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}

// EnsureSchema creates any missing tables in a single transaction.
func (s *Store) EnsureSchema(ctx context.Context) error {
	dtx, err := s.begin(ctx, false)
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer func() { _ = dtx.Rollback(ctx) }()

	for _, stmt := range Schema(s.dialect) {
		if _, err := dtx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}

	if err := dtx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}
	s.logger.Info().Str("dialect", s.dialect.Name).Msg("Database schema ensured")
	return nil
}
