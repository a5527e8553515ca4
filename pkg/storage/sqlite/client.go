// Package sqlite provides the SQLite implementation of the record store.
//
// SQLite is the default backend: a single local file holding every record.
// JSON side channels are stored in TEXT columns and timestamps are normalized
// to UTC so that range filters compare correctly.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cosmoos/cosmo-go/pkg/storage"
)

// Client implements RecordStore using SQLite as the backend.
type Client struct {
	// db is the SQLite database connection.
	db *sql.DB

	// tableName is the name of the table storing records.
	tableName string

	// ids generates record IDs.
	ids *storage.IDGenerator
}

// Config contains configuration for creating a SQLite RecordStore.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// TableName is the name of the table to use (default: "records").
	TableName string

	// IDs generates record IDs (default: node 1).
	IDs *storage.IDGenerator
}

// NewClient creates a new SQLite RecordStore client.
//
// The parent directory of DBPath is created when missing and the table and
// indexes are created on first use.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.TableName == "" {
		cfg.TableName = "records"
	}
	if cfg.IDs == nil {
		cfg.IDs = storage.DefaultIDGenerator()
	}

	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("NewSQLiteClient: failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	client := &Client{
		db:        db,
		tableName: cfg.TableName,
		ids:       cfg.IDs,
	}

	if err := client.initTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return client, nil
}

// initTables initializes the database table structure.
func (c *Client) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY,
			record_type TEXT NOT NULL,
			logical_id TEXT,
			title TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL DEFAULT '',
			structured TEXT NOT NULL DEFAULT '',
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`, c.tableName)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	indexes := []string{
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_type_created ON %s(record_type, created_at)`,
			c.tableName, c.tableName),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_type_logical ON %s(record_type, logical_id)`,
			c.tableName, c.tableName),
	}
	for _, q := range indexes {
		if _, err := c.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("initTables: %w", err)
		}
	}

	return nil
}

// FetchAll returns records of one type ordered oldest first.
func (c *Client) FetchAll(ctx context.Context, recordType storage.RecordType, opts *storage.FetchOptions) ([]*storage.Record, error) {
	if opts == nil {
		opts = &storage.FetchOptions{}
	}

	conditions := []string{"record_type = ?"}
	args := []interface{}{string(recordType)}
	if !opts.Since.IsZero() {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, opts.Since.UTC())
	}
	if !opts.Until.IsZero() {
		conditions = append(conditions, "created_at < ?")
		args = append(args, opts.Until.UTC())
	}

	query := fmt.Sprintf(`
		SELECT id, record_type, logical_id, title, body, structured, metadata, created_at, updated_at
		FROM %s
		WHERE %s
		ORDER BY created_at ASC, id ASC
	`, c.tableName, strings.Join(conditions, " AND "))
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("FetchAll: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*storage.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("FetchAll: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("FetchAll: %w", err)
	}

	return records, nil
}

// Get retrieves a record by ID.
func (c *Client) Get(ctx context.Context, id int64) (*storage.Record, error) {
	query := fmt.Sprintf(`
		SELECT id, record_type, logical_id, title, body, structured, metadata, created_at, updated_at
		FROM %s
		WHERE id = ?
	`, c.tableName)

	record, err := scanRecord(c.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("Get: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return record, nil
}

// FindByLogicalID retrieves the record keyed by (type, logical id).
func (c *Client) FindByLogicalID(ctx context.Context, recordType storage.RecordType, logicalID string) (*storage.Record, error) {
	query := fmt.Sprintf(`
		SELECT id, record_type, logical_id, title, body, structured, metadata, created_at, updated_at
		FROM %s
		WHERE record_type = ? AND logical_id = ?
	`, c.tableName)

	record, err := scanRecord(c.db.QueryRowContext(ctx, query, string(recordType), logicalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("FindByLogicalID: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("FindByLogicalID: %w", err)
	}
	return record, nil
}

// Create inserts a record.
func (c *Client) Create(ctx context.Context, record *storage.Record) (*storage.Record, error) {
	storage.PrepareCreate(record, c.ids, time.Now())

	structured, metadata, err := storage.EncodeColumns(record)
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s
		(id, record_type, logical_id, title, body, structured, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.tableName)

	_, err = c.db.ExecContext(ctx, query,
		record.ID,
		string(record.Type),
		nullString(record.LogicalID),
		record.Title,
		record.Body,
		structured,
		metadata,
		record.CreatedAt.UTC(),
		record.UpdatedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	return record, nil
}

// Update replaces title, body, side channels and logical id of a record.
func (c *Client) Update(ctx context.Context, record *storage.Record) error {
	record.UpdatedAt = time.Now()

	structured, metadata, err := storage.EncodeColumns(record)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET logical_id = ?, title = ?, body = ?, structured = ?, metadata = ?, updated_at = ?
		WHERE id = ?
	`, c.tableName)

	result, err := c.db.ExecContext(ctx, query,
		nullString(record.LogicalID),
		record.Title,
		record.Body,
		structured,
		metadata,
		record.UpdatedAt.UTC(),
		record.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("Update: %w", storage.ErrNotFound)
	}

	return nil
}

// Delete removes a record by ID.
func (c *Client) Delete(ctx context.Context, id int64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", c.tableName)

	result, err := c.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("Delete: %w", storage.ErrNotFound)
	}

	return nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanRecord scans a record from a database row or rows.
func scanRecord(scanner rowScanner) (*storage.Record, error) {
	var record storage.Record
	var recordType string
	var logicalID sql.NullString
	var structured, metadata string

	err := scanner.Scan(
		&record.ID,
		&recordType,
		&logicalID,
		&record.Title,
		&record.Body,
		&structured,
		&metadata,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Type = storage.RecordType(recordType)
	record.LogicalID = logicalID.String
	if err := storage.DecodeColumns(&record, structured, metadata); err != nil {
		return nil, err
	}

	return &record, nil
}

// nullString maps "" to SQL NULL so the unique (type, logical_id) index
// only constrains upserted records.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
