package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// migration is one forward-only schema step.
type migration struct {
	version     int
	description string
	statements  []string
}

// migrations are applied in order; never edit a released entry, append a new one.
var migrations = []migration{
	{
		version:     1,
		description: "accounts, members and payments",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS account (
				id TEXT PRIMARY KEY,
				email TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL DEFAULT '',
				role TEXT NOT NULL,
				created_at TEXT NOT NULL,
				failed_logins INTEGER NOT NULL DEFAULT 0,
				locked_until TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS member (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				dob TEXT,
				age INTEGER NOT NULL DEFAULT 0,
				weight_kg REAL NOT NULL DEFAULT 0,
				height_cm REAL NOT NULL DEFAULT 0,
				identity_number TEXT NOT NULL DEFAULT '',
				address TEXT NOT NULL DEFAULT '',
				phone TEXT NOT NULL,
				whatsapp TEXT NOT NULL DEFAULT '',
				joining_date TEXT NOT NULL,
				status TEXT NOT NULL,
				created_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS payment (
				id TEXT PRIMARY KEY,
				member_id TEXT NOT NULL,
				member_name TEXT NOT NULL DEFAULT '',
				amount TEXT NOT NULL,
				payment_type TEXT NOT NULL,
				payment_date TEXT NOT NULL,
				valid_until TEXT NOT NULL,
				receipt_ref TEXT NOT NULL DEFAULT '',
				notes TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL,
				FOREIGN KEY (member_id) REFERENCES member(id)
			)`,
		},
	},
	{
		version:     2,
		description: "ledger indexes",
		statements: []string{
			`CREATE INDEX IF NOT EXISTS idx_payment_member ON payment(member_id, valid_until)`,
			`CREATE INDEX IF NOT EXISTS idx_payment_date ON payment(payment_date)`,
			`CREATE INDEX IF NOT EXISTS idx_member_status ON member(status)`,
		},
	},
	{
		version:     3,
		description: "membership plan columns",
		statements: []string{
			`ALTER TABLE member ADD COLUMN membership_type TEXT NOT NULL DEFAULT ''`,
			`ALTER TABLE member ADD COLUMN monthly_fee TEXT NOT NULL DEFAULT '0'`,
		},
	},
	{
		version:     4,
		description: "outbox for report deliveries",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS outbox (
				id TEXT PRIMARY KEY,
				action_type TEXT NOT NULL,
				payload TEXT NOT NULL,
				status TEXT NOT NULL,
				attempts INTEGER NOT NULL DEFAULT 0,
				max_attempts INTEGER NOT NULL,
				last_attempted_at TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL,
				external_id TEXT NOT NULL DEFAULT '',
				error_message TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox(status, created_at)`,
		},
	},
	{
		version:     5,
		description: "audit trail",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS audit_event (
				id TEXT PRIMARY KEY,
				at TEXT NOT NULL,
				category TEXT NOT NULL,
				action TEXT NOT NULL,
				actor_id TEXT NOT NULL DEFAULT '',
				actor_email TEXT NOT NULL DEFAULT '',
				resource_type TEXT NOT NULL DEFAULT '',
				resource_id TEXT NOT NULL DEFAULT '',
				summary TEXT NOT NULL DEFAULT '',
				ip_address TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE INDEX IF NOT EXISTS idx_audit_resource ON audit_event(resource_id)`,
		},
	},
}

// LatestSchemaVersion returns the version the schema reaches after all migrations.
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// SchemaVersion returns the currently applied schema version (0 for a fresh database).
// PRE: db is a valid database connection
// POST: Returns the highest applied version
func SchemaVersion(db *sql.DB) (int, error) {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return 0, fmt.Errorf("failed to create schema_version table: %w", err)
	}
	var version int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// MigrateDB brings the schema up to LatestSchemaVersion. Each migration runs
// in its own transaction together with its schema_version row.
// PRE: db is a valid database connection; dbPath is used for logging only
// POST: All pending migrations are applied, foreign keys enforced
func MigrateDB(db *sql.DB, dbPath string) error {
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.description, err)
		}
		slog.Info("schema_migrated", "db", dbPath, "version", m.version, "description", m.description)
	}
	return nil
}

func applyMigration(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range m.statements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(
		"INSERT INTO schema_version (version, description, applied_at) VALUES (?, ?, ?)",
		m.version, m.description, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return err
	}
	return tx.Commit()
}
