// Package mysql provides the MySQL (and MySQL-compatible, e.g. OceanBase)
// implementation of the record store.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/cosmoos/cosmo-go/pkg/storage"
)

// Client is a MySQL record store.
type Client struct {
	db        *sql.DB
	config    *Config
	tableName string
	ids       *storage.IDGenerator
}

// Config contains MySQL configuration.
type Config struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	TableName string
	IDs       *storage.IDGenerator
}

// NewClient creates a new MySQL client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.TableName == "" {
		cfg.TableName = "records"
	}
	if cfg.IDs == nil {
		cfg.IDs = storage.DefaultIDGenerator()
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=UTC",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewMySQLClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("NewMySQLClient: %w", err)
	}

	client := &Client{
		db:        db,
		config:    cfg,
		tableName: cfg.TableName,
		ids:       cfg.IDs,
	}

	if err := client.initTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return client, nil
}

// initTables initializes the database table.
func (c *Client) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT PRIMARY KEY,
			record_type VARCHAR(64) NOT NULL,
			logical_id VARCHAR(255),
			title TEXT NOT NULL,
			body LONGTEXT NOT NULL,
			structured LONGTEXT NOT NULL,
			metadata JSON,
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL,
			INDEX idx_type_created (record_type, created_at),
			UNIQUE INDEX idx_type_logical (record_type, logical_id)
		)
	`, c.tableName)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	return nil
}

// FetchAll returns records of one type ordered oldest first.
func (c *Client) FetchAll(ctx context.Context, recordType storage.RecordType, opts *storage.FetchOptions) ([]*storage.Record, error) {
	whereClause, args := buildFetchClause(recordType, opts)

	query := fmt.Sprintf(`
		SELECT id, record_type, logical_id, title, body, structured, metadata, created_at, updated_at
		FROM %s
		%s
		ORDER BY created_at ASC, id ASC
	`, c.tableName, whereClause)
	if opts != nil && opts.Limit > 0 {
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

// Update replaces the mutable fields of a record.
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

	// MySQL reports 0 affected rows when values are unchanged, so check existence.
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if rowsAffected == 0 {
		if _, err := c.Get(ctx, record.ID); err != nil {
			return fmt.Errorf("Update: %w", storage.ErrNotFound)
		}
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

func scanRecord(scanner rowScanner) (*storage.Record, error) {
	var record storage.Record
	var recordType string
	var logicalID, metadata sql.NullString
	var structured string

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
	if err := storage.DecodeColumns(&record, structured, metadata.String); err != nil {
		return nil, err
	}

	return &record, nil
}

// buildFetchClause builds the WHERE clause for FetchAll.
func buildFetchClause(recordType storage.RecordType, opts *storage.FetchOptions) (string, []interface{}) {
	conditions := []string{"record_type = ?"}
	args := []interface{}{string(recordType)}

	if opts != nil {
		if !opts.Since.IsZero() {
			conditions = append(conditions, "created_at >= ?")
			args = append(args, opts.Since.UTC())
		}
		if !opts.Until.IsZero() {
			conditions = append(conditions, "created_at < ?")
			args = append(args, opts.Until.UTC())
		}
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
