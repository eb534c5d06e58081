package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema version tracking
const currentSchemaVersion = 1

// initializeSchema creates all tables for a new database
func (db *DB) initializeSchema(ctx context.Context) error {
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}

		if err := createDocumentTables(tx); err != nil {
			return err
		}
		if err := createRecordsView(tx); err != nil {
			return err
		}

		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}

		db.logger.Info("Database schema initialized", "version", currentSchemaVersion)

		return nil
	})
}

// runMigrations runs any pending schema migrations
func (db *DB) runMigrations(ctx context.Context) error {
	version, err := db.getSchemaVersion(ctx)
	if err != nil {
		return err
	}

	// a zero-length file left behind by an interrupted create
	if version == 0 {
		return db.initializeSchema(ctx)
	}

	if version == currentSchemaVersion {
		db.logger.Debug("Database schema is up to date", "version", version)
		return nil
	}

	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	db.logger.Info("Running database migrations",
		"from_version", version,
		"to_version", currentSchemaVersion,
	)

	return nil
}

// getSchemaVersion gets the current schema version
func (db *DB) getSchemaVersion(ctx context.Context) (int, error) {
	var tableName string
	err := db.QueryRowContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return version, nil
}

// setSchemaVersion sets the schema version
func setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("DELETE FROM schema_version")
	if err != nil {
		return err
	}
	_, err = tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}
	return nil
}

// createDocumentTables creates one table per stored form. A document is only
// complete when all three rows exist; they are always written in one
// transaction.
func createDocumentTables(tx *sql.Tx) error {
	statements := []struct {
		name string
		ddl  string
	}{
		{"json_documents", `
			CREATE TABLE IF NOT EXISTS json_documents (
				id TEXT PRIMARY KEY,
				raw_original_text TEXT NOT NULL,
				created_at TEXT NOT NULL
			)`},
		{"json_normalized", `
			CREATE TABLE IF NOT EXISTS json_normalized (
				document_id TEXT PRIMARY KEY REFERENCES json_documents(id) ON DELETE CASCADE,
				normalized_json BLOB NOT NULL
			)`},
		{"json_order_preserved", `
			CREATE TABLE IF NOT EXISTS json_order_preserved (
				document_id TEXT PRIMARY KEY REFERENCES json_documents(id) ON DELETE CASCADE,
				order_preserved_text TEXT NOT NULL
			)`},
		{"idx_json_documents_created", `
			CREATE INDEX IF NOT EXISTS idx_json_documents_created
			ON json_documents(created_at)`},
	}

	for _, s := range statements {
		if _, err := tx.Exec(s.ddl); err != nil {
			return fmt.Errorf("failed to create %s: %w", s.name, err)
		}
	}
	return nil
}

// createRecordsView exposes the conceptual one-row-per-document record.
func createRecordsView(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE VIEW IF NOT EXISTS json_records AS
		SELECT d.id,
		       n.normalized_json,
		       o.order_preserved_text,
		       d.raw_original_text,
		       d.created_at
		FROM json_documents d
		JOIN json_normalized n ON n.document_id = d.id
		JOIN json_order_preserved o ON o.document_id = d.id
	`)
	if err != nil {
		return fmt.Errorf("failed to create json_records view: %w", err)
	}
	return nil
}
