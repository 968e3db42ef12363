package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"gitlab.com/timkado/api/forum-service/internal/domain"

	_ "modernc.org/sqlite"
)

// DocumentStore implements domain.DocumentStore on SQLite. Documents are JSON
// bodies in a single table keyed by (collection, id). A single connection
// serializes writers, which makes every Update atomic.
type DocumentStore struct {
	db     *sql.DB
	logger domain.Logger
}

// Open opens (or creates) the database at path and applies pending migrations.
func Open(path string, logger domain.Logger) (*DocumentStore, error) {
	if logger == nil {
		panic("logger cannot be nil in sqlite.Open")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database '%s': %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure sqlite database: %w", err)
	}
	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DocumentStore{db: db, logger: logger}, nil
}

// Close releases the database handle.
func (s *DocumentStore) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *DocumentStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrations is an ordered list of SQL migrations.
// Each migration runs exactly once, tracked by schema_version table.
var migrations = []string{
	`
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	body TEXT NOT NULL,
	PRIMARY KEY (collection, id)
);
`,
	`
CREATE INDEX IF NOT EXISTS idx_documents_created_by ON documents(collection, json_extract(body, '$.createdBy'));
CREATE INDEX IF NOT EXISTS idx_documents_post_id ON documents(collection, json_extract(body, '$.postId'));
`,
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var currentVersion int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for i := currentVersion; i < len(migrations); i++ {
		if _, err := db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
	}
	return nil
}

// Get implements domain.DocumentStore.
func (s *DocumentStore) Get(ctx context.Context, collection, id string) (domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE collection = ? AND id = ?`, collection, id)
	var body string
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Document{}, fmt.Errorf("document %s/%s: %w", collection, id, domain.ErrNotFound)
		}
		s.logger.Error(ctx, "Failed to read document from sqlite", "collection", collection, "id", id, "error", err.Error())
		return domain.Document{}, fmt.Errorf("sqlite select document %s/%s failed: %w", collection, id, err)
	}
	fields, err := decodeBody(body)
	if err != nil {
		return domain.Document{}, fmt.Errorf("document %s/%s: %w", collection, id, err)
	}
	return domain.Document{ID: id, Fields: fields}, nil
}

// List implements domain.DocumentStore.
func (s *DocumentStore) List(ctx context.Context, collection string) ([]domain.Document, error) {
	return s.selectDocuments(ctx, `SELECT id, body FROM documents WHERE collection = ? ORDER BY id`, collection)
}

// Query implements domain.DocumentStore. String values are narrowed with
// JSON1 in SQL; the final match is always Fields.Matches so every store
// agrees on semantics.
func (s *DocumentStore) Query(ctx context.Context, collection, field string, op domain.QueryOp, value any) ([]domain.Document, error) {
	want, err := domain.NormalizeValue(value)
	if err != nil {
		return nil, err
	}

	var candidates []domain.Document
	str, isString := want.(string)
	path := jsonPath(field)
	switch {
	case isString && op == domain.OpEquals:
		candidates, err = s.selectDocuments(ctx, `
SELECT id, body FROM documents
WHERE collection = ? AND json_extract(body, ?) = ?
ORDER BY id`, collection, path, str)
	case isString && op == domain.OpArrayContains:
		candidates, err = s.selectDocuments(ctx, `
SELECT d.id, d.body FROM documents d
WHERE d.collection = ?
  AND json_type(d.body, ?) = 'array'
  AND EXISTS (SELECT 1 FROM json_each(d.body, ?) e WHERE e.value = ?)
ORDER BY d.id`, collection, path, path, str)
	default:
		candidates, err = s.List(ctx, collection)
	}
	if err != nil {
		return nil, err
	}

	matched := make([]domain.Document, 0, len(candidates))
	for _, doc := range candidates {
		if doc.Fields.Matches(field, op, want) {
			matched = append(matched, doc)
		}
	}
	return matched, nil
}

// Create implements domain.DocumentStore.
func (s *DocumentStore) Create(ctx context.Context, collection string, data domain.Fields) (string, error) {
	fields, err := domain.EncodeFields(data)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document for collection '%s': %w", collection, err)
	}
	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx, `INSERT INTO documents (collection, id, body) VALUES (?, ?, ?)`, collection, id, string(body)); err != nil {
		s.logger.Error(ctx, "Failed to insert document into sqlite", "collection", collection, "error", err.Error())
		return "", fmt.Errorf("sqlite insert into collection '%s' failed: %w", collection, err)
	}
	return id, nil
}

// Update implements domain.DocumentStore.
func (s *DocumentStore) Update(ctx context.Context, collection, id string, partial domain.Fields) error {
	normalized, err := domain.EncodeFields(partial)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin update %s/%s failed: %w", collection, id, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var body string
	err = tx.QueryRowContext(ctx, `SELECT body FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("document %s/%s: %w", collection, id, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("sqlite select document %s/%s failed: %w", collection, id, err)
	}
	current, err := decodeBody(body)
	if err != nil {
		return fmt.Errorf("document %s/%s: %w", collection, id, err)
	}
	merged, err := json.Marshal(current.Merge(normalized))
	if err != nil {
		return fmt.Errorf("failed to marshal document %s/%s: %w", collection, id, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE documents SET body = ? WHERE collection = ? AND id = ?`, string(merged), collection, id); err != nil {
		s.logger.Error(ctx, "Failed to update document in sqlite", "collection", collection, "id", id, "error", err.Error())
		return fmt.Errorf("sqlite update document %s/%s failed: %w", collection, id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit update %s/%s failed: %w", collection, id, err)
	}
	return nil
}

// Delete implements domain.DocumentStore.
func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id); err != nil {
		s.logger.Error(ctx, "Failed to delete document from sqlite", "collection", collection, "id", id, "error", err.Error())
		return fmt.Errorf("sqlite delete document %s/%s failed: %w", collection, id, err)
	}
	return nil
}

func (s *DocumentStore) selectDocuments(ctx context.Context, query string, args ...any) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error(ctx, "Failed to query documents from sqlite", "error", err.Error())
		return nil, fmt.Errorf("sqlite query documents failed: %w", err)
	}
	defer rows.Close()

	docs := make([]domain.Document, 0)
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("sqlite scan document failed: %w", err)
		}
		fields, err := decodeBody(body)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", id, err)
		}
		docs = append(docs, domain.Document{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite iterate documents failed: %w", err)
	}
	return docs, nil
}

func jsonPath(field string) string {
	return `$."` + strings.ReplaceAll(field, `"`, `\"`) + `"`
}

func decodeBody(body string) (domain.Fields, error) {
	var fields domain.Fields
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document body: %w", err)
	}
	return fields, nil
}
