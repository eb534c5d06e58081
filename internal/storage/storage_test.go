package storage

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setupTestDB(t *testing.T) (*DB, string) {
	// Create temporary directory for test database
	tmpDir, err := os.MkdirTemp("", "jsonorder-storage-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	// Create logger
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Open database
	db, err := Open(Options{Path: filepath.Join(tmpDir, ".jsonorder", "jsonorder.db")}, logger)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		t.Fatalf("Failed to open database: %v", err)
	}

	return db, tmpDir
}

func teardownTestDB(t *testing.T, db *DB, tmpDir string) {
	if err := db.Close(); err != nil {
		t.Errorf("Failed to close database: %v", err)
	}
	if err := os.RemoveAll(tmpDir); err != nil {
		t.Errorf("Failed to remove temp dir: %v", err)
	}
}

func countRows(t *testing.T, db *DB, table string) int {
	t.Helper()
	var n int
	if err := db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}

func sampleDocument(id string) *Document {
	return &Document{
		ID:                 id,
		NormalizedJSON:     `{"a":1,"b":[true,null],"z":"last"}`,
		OrderPreservedText: `{"z":"last","a":1,"b":[true,null]}`,
		RawOriginalText:    "{ \"z\": \"last\", \"a\": 1, \"b\": [true, null] }\n",
	}
}

func TestDatabaseInitialization(t *testing.T) {
	db, tmpDir := setupTestDB(t)
	defer teardownTestDB(t, db, tmpDir)

	// Verify database file was created
	dbPath := filepath.Join(tmpDir, ".jsonorder", "jsonorder.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatalf("Database file was not created at %s", dbPath)
	}

	// Verify schema version
	version, err := db.getSchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("Failed to get schema version: %v", err)
	}

	if version != currentSchemaVersion {
		t.Errorf("Expected schema version %d, got %d", currentSchemaVersion, version)
	}

	for _, table := range []string{"json_documents", "json_normalized", "json_order_preserved", "json_records"} {
		if n := countRows(t, db, table); n != 0 {
			t.Errorf("Expected empty %s, got %d rows", table, n)
		}
	}
}

func TestReopenExistingDatabase(t *testing.T) {
	db, tmpDir := setupTestDB(t)
	defer func() { _ = os.RemoveAll(tmpDir) }()

	ctx := context.Background()
	repo := NewDocumentRepository(db)
	if err := repo.Insert(ctx, sampleDocument("doc-1")); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := Open(Options{Path: filepath.Join(tmpDir, ".jsonorder", "jsonorder.db")}, logger)
	if err != nil {
		t.Fatalf("Failed to reopen: %v", err)
	}
	defer db.Close()

	if _, err := NewDocumentRepository(db).Get(ctx, "doc-1"); err != nil {
		t.Errorf("Document should survive reopen: %v", err)
	}
}

func TestNewerSchemaRejected(t *testing.T) {
	db, tmpDir := setupTestDB(t)
	defer func() { _ = os.RemoveAll(tmpDir) }()

	if _, err := db.ExecContext(context.Background(), "UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("Failed to bump version: %v", err)
	}
	_ = db.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := Open(Options{Path: filepath.Join(tmpDir, ".jsonorder", "jsonorder.db")}, logger); err == nil {
		t.Fatal("Expected error opening database with newer schema")
	}
}

func TestOpenInMemory(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := Open(Options{Path: MemoryPath}, logger)
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	defer db.Close()

	repo := NewDocumentRepository(db)
	ctx := context.Background()
	if err := repo.Insert(ctx, sampleDocument("mem")); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}
	if n, _ := repo.Count(ctx); n != 1 {
		t.Errorf("Expected 1 document, got %d", n)
	}
}

func TestDocumentRepository(t *testing.T) {
	db, tmpDir := setupTestDB(t)
	defer teardownTestDB(t, db, tmpDir)

	repo := NewDocumentRepository(db)
	ctx := context.Background()

	doc := sampleDocument("doc-1")
	if err := repo.Insert(ctx, doc); err != nil {
		t.Fatalf("Failed to insert document: %v", err)
	}
	if doc.CreatedAt.IsZero() {
		t.Error("Insert should stamp CreatedAt")
	}

	got, err := repo.Get(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}

	if got.RawOriginalText != doc.RawOriginalText {
		t.Errorf("Raw text changed: got %q, want %q", got.RawOriginalText, doc.RawOriginalText)
	}
	if got.OrderPreservedText != doc.OrderPreservedText {
		t.Errorf("Order-preserved text changed: got %q, want %q", got.OrderPreservedText, doc.OrderPreservedText)
	}
	if got.NormalizedJSON != doc.NormalizedJSON {
		t.Errorf("Normalized JSON changed: got %q, want %q", got.NormalizedJSON, doc.NormalizedJSON)
	}
	if !got.CreatedAt.Equal(doc.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, doc.CreatedAt)
	}

	// Each form lives in its own table
	for _, table := range []string{"json_documents", "json_normalized", "json_order_preserved"} {
		if n := countRows(t, db, table); n != 1 {
			t.Errorf("Expected 1 row in %s, got %d", table, n)
		}
	}
}

func TestDocumentRepository_NotFound(t *testing.T) {
	db, tmpDir := setupTestDB(t)
	defer teardownTestDB(t, db, tmpDir)

	_, err := NewDocumentRepository(db).Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDocumentRepository_DuplicateID(t *testing.T) {
	db, tmpDir := setupTestDB(t)
	defer teardownTestDB(t, db, tmpDir)

	repo := NewDocumentRepository(db)
	ctx := context.Background()

	if err := repo.Insert(ctx, sampleDocument("dup")); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}
	err := repo.Insert(ctx, sampleDocument("dup"))
	if err == nil {
		t.Fatal("Expected duplicate insert to fail")
	}
	if IsTransient(err) {
		t.Errorf("Constraint violation should not be transient: %v", err)
	}
}

func TestDocumentRepository_InsertIsAtomic(t *testing.T) {
	stages := []string{StageRaw, StageNormalized, StageOrderPreserved}

	for _, stage := range stages {
		t.Run(stage, func(t *testing.T) {
			db, tmpDir := setupTestDB(t)
			defer teardownTestDB(t, db, tmpDir)

			injected := fmt.Errorf("injected failure after %s", stage)
			repo := NewDocumentRepository(db)
			repo.afterStage = func(s string) error {
				if s == stage {
					return injected
				}
				return nil
			}

			err := repo.Insert(context.Background(), sampleDocument("partial"))
			if !errors.Is(err, injected) {
				t.Fatalf("Expected injected error, got %v", err)
			}

			for _, table := range []string{"json_documents", "json_normalized", "json_order_preserved"} {
				if n := countRows(t, db, table); n != 0 {
					t.Errorf("Expected no rows in %s after failed insert, got %d", table, n)
				}
			}

			if _, err := repo.Get(context.Background(), "partial"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Expected ErrNotFound for rolled back document, got %v", err)
			}
		})
	}
}

func TestDocumentRepository_RejectsInvalidNormalizedJSON(t *testing.T) {
	db, tmpDir := setupTestDB(t)
	defer teardownTestDB(t, db, tmpDir)

	doc := sampleDocument("bad")
	doc.NormalizedJSON = `{"a":`

	if err := NewDocumentRepository(db).Insert(context.Background(), doc); err == nil {
		t.Fatal("Expected insert with malformed normalized JSON to fail")
	}
	if n := countRows(t, db, "json_documents"); n != 0 {
		t.Errorf("Raw row should have been rolled back, got %d rows", n)
	}
}

func TestDocumentRepository_ListAndCount(t *testing.T) {
	db, tmpDir := setupTestDB(t)
	defer teardownTestDB(t, db, tmpDir)

	repo := NewDocumentRepository(db)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"first", "second", "third"} {
		doc := sampleDocument(id)
		doc.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := repo.Insert(ctx, doc); err != nil {
			t.Fatalf("Failed to insert %s: %v", id, err)
		}
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 documents, got %d", count)
	}

	all, err := repo.List(ctx, 0, 0)
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 summaries, got %d", len(all))
	}
	want := []string{"third", "second", "first"}
	for i, s := range all {
		if s.ID != want[i] {
			t.Errorf("List[%d] = %s, want %s", i, s.ID, want[i])
		}
		if s.RawBytes != len(sampleDocument(s.ID).RawOriginalText) {
			t.Errorf("List[%d].RawBytes = %d", i, s.RawBytes)
		}
	}

	page, err := repo.List(ctx, 1, 1)
	if err != nil {
		t.Fatalf("Failed to list page: %v", err)
	}
	if len(page) != 1 || page[0].ID != "second" {
		t.Errorf("Expected page [second], got %+v", page)
	}
}

func TestBusyDatabaseIsTransient(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "busy.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	holder, err := Open(Options{Path: path}, logger)
	if err != nil {
		t.Fatalf("Failed to open holder: %v", err)
	}
	defer holder.Close()

	writer, err := Open(Options{Path: path, BusyTimeout: time.Millisecond}, logger)
	if err != nil {
		t.Fatalf("Failed to open writer: %v", err)
	}
	defer writer.Close()

	ctx := context.Background()
	tx, err := holder.Conn().BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("Failed to take write lock: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = NewDocumentRepository(writer).Insert(ctx, sampleDocument("blocked"))
	if err == nil {
		t.Fatal("Expected insert to fail while another writer holds the lock")
	}
	if !IsTransient(err) || !errors.Is(err, ErrTransient) {
		t.Errorf("Expected transient error, got %v", err)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"not found", ErrNotFound, false},
		{"tagged", fmt.Errorf("%w: locked", ErrTransient), true},
		{"bad conn", fmt.Errorf("query: %w", driver.ErrBadConn), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
