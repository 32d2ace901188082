package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/helpdesk-sync/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// UpsertDocuments inserts or replaces a batch of documents.
func (s *SQLiteStore) UpsertDocuments(ctx context.Context, docs []model.Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT OR REPLACE INTO documents (
			id, source, title, link,
			sections, owners, metadata,
			created_at, updated_at, fetched_at
		) VALUES (
			?, ?, ?, ?,
			?, ?, ?,
			?, ?, ?
		)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	for _, d := range docs {
		sections, err := json.Marshal(d.Sections)
		if err != nil {
			return fmt.Errorf("marshaling sections for document %s: %w", d.ID, err)
		}
		owners, err := json.Marshal(d.Owners)
		if err != nil {
			return fmt.Errorf("marshaling owners for document %s: %w", d.ID, err)
		}
		metadata, err := json.Marshal(d.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata for document %s: %w", d.ID, err)
		}

		_, err = stmt.ExecContext(ctx,
			d.ID, string(d.Source), d.Title, d.Link,
			string(sections), string(owners), string(metadata),
			d.CreatedAt.UTC(), d.UpdatedAt.UTC(), d.FetchedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("upserting document %s: %w", d.ID, err)
		}
	}

	return tx.Commit()
}

// GetDocuments retrieves documents matching the provided filter options.
func (s *SQLiteStore) GetDocuments(
	ctx context.Context,
	opts DocumentFilter,
) ([]model.Document, error) {
	var conditions []string
	var args []interface{}

	if opts.Source != nil {
		conditions = append(conditions, "source = ?")
		args = append(args, *opts.Source)
	}
	if opts.Query != nil && *opts.Query != "" {
		conditions = append(conditions, "(title LIKE ? OR sections LIKE ?)")
		q := "%" + *opts.Query + "%"
		args = append(args, q, q)
	}

	query := "SELECT * FROM documents"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	// Determine sort column.
	sortBy := "updated_at"
	if opts.SortBy != "" {
		allowedSorts := map[string]bool{
			"title":      true,
			"created_at": true,
			"updated_at": true,
			"fetched_at": true,
		}
		if allowedSorts[opts.SortBy] {
			sortBy = opts.SortBy
		}
	}

	direction := "ASC"
	if opts.SortDesc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", sortBy, direction)

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", opts.Offset)
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// GetDocumentByID retrieves a single document by its ID.
func (s *SQLiteStore) GetDocumentByID(
	ctx context.Context,
	id string,
) (*model.Document, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT * FROM documents WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("getting document %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("getting document %s: %w", id, err)
		}
		return nil, fmt.Errorf("getting document %s: %w", id, sql.ErrNoRows)
	}

	doc, err := scanDocument(rows)
	if err != nil {
		return nil, fmt.Errorf("getting document %s: %w", id, err)
	}

	return &doc, nil
}

// CountDocuments returns the number of stored documents for a source.
func (s *SQLiteStore) CountDocuments(
	ctx context.Context,
	source model.SourceType,
) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM documents WHERE source = ?", string(source),
	)
	if err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return count, nil
}

// GetCursor returns the persisted resume cursor for a source, or an
// empty string when none is stored.
func (s *SQLiteStore) GetCursor(
	ctx context.Context,
	source model.SourceType,
) (string, error) {
	var cursor string
	err := s.db.GetContext(ctx, &cursor,
		"SELECT cursor FROM checkpoints WHERE source = ?", string(source),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading checkpoint for %s: %w", source, err)
	}
	return cursor, nil
}

// SaveCursor stores the resume cursor for a source, replacing any
// previous value.
func (s *SQLiteStore) SaveCursor(
	ctx context.Context,
	source model.SourceType,
	cursor string,
) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO checkpoints (source, cursor, updated_at)
		VALUES (?, ?, ?)`,
		string(source), cursor, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving checkpoint for %s: %w", source, err)
	}
	return nil
}

// ClearCursor removes the persisted cursor for a source.
func (s *SQLiteStore) ClearCursor(
	ctx context.Context,
	source model.SourceType,
) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM checkpoints WHERE source = ?", string(source),
	)
	if err != nil {
		return fmt.Errorf("clearing checkpoint for %s: %w", source, err)
	}
	return nil
}

// CreateRun inserts a new sync run record.
func (s *SQLiteStore) CreateRun(ctx context.Context, run model.SyncRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_runs (
			id, source, mode, started_at, finished_at,
			documents, batches, success, error
		) VALUES (?, ?, ?, ?, NULL, 0, 0, 0, '')`,
		run.ID, string(run.Source), string(run.Mode), run.StartedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating sync run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun updates a sync run with its final counters and outcome.
func (s *SQLiteStore) FinishRun(ctx context.Context, run model.SyncRun) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sync_runs
		SET finished_at = ?, documents = ?, batches = ?, success = ?, error = ?
		WHERE id = ?`,
		run.FinishedAt.UTC(), run.Documents, run.Batches,
		boolToInt(run.Success), run.Error, run.ID,
	)
	if err != nil {
		return fmt.Errorf("finishing sync run %s: %w", run.ID, err)
	}
	return nil
}

// GetRuns retrieves the most recent sync runs for a source, newest first.
func (s *SQLiteStore) GetRuns(
	ctx context.Context,
	source model.SourceType,
	limit int,
) ([]model.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryxContext(ctx, `
		SELECT * FROM sync_runs WHERE source = ?
		ORDER BY started_at DESC LIMIT ?`,
		string(source), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying sync runs: %w", err)
	}
	defer rows.Close()

	var runs []model.SyncRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// LastSuccessfulRun returns the most recent successful run for a
// source, or nil when the source has never completed a run.
func (s *SQLiteStore) LastSuccessfulRun(
	ctx context.Context,
	source model.SourceType,
) (*model.SyncRun, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT * FROM sync_runs WHERE source = ? AND success = 1
		ORDER BY started_at DESC LIMIT 1`,
		string(source),
	)
	if err != nil {
		return nil, fmt.Errorf("querying last successful run: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	run, err := scanRun(rows)
	if err != nil {
		return nil, err
	}

	return &run, nil
}

// scanDocument scans a document row from a sqlx.Rows result set.
func scanDocument(rows *sqlx.Rows) (model.Document, error) {
	var (
		doc       model.Document
		src       string
		sections  string
		owners    string
		metadata  string
		createdAt time.Time
		updatedAt time.Time
		fetchedAt time.Time
	)

	err := rows.Scan(
		&doc.ID, &src, &doc.Title, &doc.Link,
		&sections, &owners, &metadata,
		&createdAt, &updatedAt, &fetchedAt,
	)
	if err != nil {
		return model.Document{}, fmt.Errorf("scanning document row: %w", err)
	}

	doc.Source = model.SourceType(src)
	doc.CreatedAt = createdAt
	doc.UpdatedAt = updatedAt
	doc.FetchedAt = fetchedAt

	if sections != "" {
		if err := json.Unmarshal([]byte(sections), &doc.Sections); err != nil {
			return model.Document{}, fmt.Errorf("unmarshaling sections: %w", err)
		}
	}
	if owners != "" {
		if err := json.Unmarshal([]byte(owners), &doc.Owners); err != nil {
			return model.Document{}, fmt.Errorf("unmarshaling owners: %w", err)
		}
	}
	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &doc.Metadata); err != nil {
			return model.Document{}, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}

	return doc, nil
}

// scanRun scans a sync run row from a sqlx.Rows result set.
func scanRun(rows *sqlx.Rows) (model.SyncRun, error) {
	var (
		run        model.SyncRun
		src        string
		mode       string
		startedAt  time.Time
		finishedAt sql.NullTime
		success    int
	)

	err := rows.Scan(
		&run.ID, &src, &mode, &startedAt, &finishedAt,
		&run.Documents, &run.Batches, &success, &run.Error,
	)
	if err != nil {
		return model.SyncRun{}, fmt.Errorf("scanning sync run row: %w", err)
	}

	run.Source = model.SourceType(src)
	run.Mode = model.SyncMode(mode)
	run.StartedAt = startedAt
	if finishedAt.Valid {
		run.FinishedAt = finishedAt.Time
	}
	run.Success = success != 0

	return run, nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
