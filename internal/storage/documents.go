package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Write stages of a document insert, in the order they run.
const (
	StageRaw            = "raw"
	StageNormalized     = "normalized"
	StageOrderPreserved = "order_preserved"
)

// Document is one stored JSON document in all three of its forms.
type Document struct {
	ID                 string
	NormalizedJSON     string
	OrderPreservedText string
	RawOriginalText    string
	CreatedAt          time.Time
}

// DocumentSummary is a listing row.
type DocumentSummary struct {
	ID        string
	RawBytes  int
	CreatedAt time.Time
}

// DocumentRepository provides access to stored documents
type DocumentRepository struct {
	db *DB

	// afterStage runs inside the transaction after each stage. Tests use it
	// to fail a write part way through.
	afterStage func(stage string) error
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Insert writes all three forms of doc in a single transaction. Either every
// form is stored or none is.
func (r *DocumentRepository) Insert(ctx context.Context, doc *Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document id is empty")
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO json_documents (id, raw_original_text, created_at)
			VALUES (?, ?, ?)
		`, doc.ID, doc.RawOriginalText, doc.CreatedAt.Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("write raw form: %w", err)
		}
		if err := r.stage(StageRaw); err != nil {
			return err
		}

		// jsonb() validates the text and stores SQLite's binary JSON encoding
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO json_normalized (document_id, normalized_json)
			VALUES (?, jsonb(?))
		`, doc.ID, doc.NormalizedJSON); err != nil {
			return fmt.Errorf("write normalized form: %w", err)
		}
		if err := r.stage(StageNormalized); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO json_order_preserved (document_id, order_preserved_text)
			VALUES (?, ?)
		`, doc.ID, doc.OrderPreservedText); err != nil {
			return fmt.Errorf("write order-preserved form: %w", err)
		}
		return r.stage(StageOrderPreserved)
	})
	if err != nil {
		return classify(fmt.Errorf("failed to insert document %s: %w", doc.ID, err))
	}

	r.db.logger.Debug("Stored document",
		"op", "insert",
		"id", doc.ID,
		"raw_bytes", len(doc.RawOriginalText),
	)
	return nil
}

func (r *DocumentRepository) stage(name string) error {
	if r.afterStage == nil {
		return nil
	}
	return r.afterStage(name)
}

// Get retrieves a document by id. It returns ErrNotFound when no complete
// document exists.
func (r *DocumentRepository) Get(ctx context.Context, id string) (*Document, error) {
	var doc Document
	var createdAt string

	err := r.db.QueryRowContext(ctx, `
		SELECT id, json(normalized_json), order_preserved_text, raw_original_text, created_at
		FROM json_records
		WHERE id = ?
	`, id).Scan(&doc.ID, &doc.NormalizedJSON, &doc.OrderPreservedText, &doc.RawOriginalText, &createdAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, classify(fmt.Errorf("failed to get document %s: %w", id, err))
	}

	doc.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return &doc, nil
}

// List returns document summaries, newest first.
func (r *DocumentRepository) List(ctx context.Context, limit, offset int) ([]DocumentSummary, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, length(CAST(raw_original_text AS BLOB)), created_at
		FROM json_records
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to list documents: %w", err))
	}
	defer rows.Close()

	var summaries []DocumentSummary
	for rows.Next() {
		var s DocumentSummary
		var createdAt string
		if err := rows.Scan(&s.ID, &s.RawBytes, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		s.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

// Count returns the number of complete documents.
func (r *DocumentRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM json_records").Scan(&n); err != nil {
		return 0, classify(fmt.Errorf("failed to count documents: %w", err))
	}
	return n, nil
}
