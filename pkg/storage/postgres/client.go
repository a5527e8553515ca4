package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/cosmoos/cosmo-go/pkg/storage"
)

// Client is a PostgreSQL record store.
type Client struct {
	db        *sql.DB
	tableName string
	ids       *storage.IDGenerator
}

// Config contains PostgreSQL configuration.
type Config struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	TableName string
	SSLMode   string
	IDs       *storage.IDGenerator
}

// NewClient creates a new PostgreSQL client.
func NewClient(cfg *Config) (*Client, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	tableName := cfg.TableName
	if tableName == "" {
		tableName = "records"
	}
	ids := cfg.IDs
	if ids == nil {
		ids = storage.DefaultIDGenerator()
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	client := &Client{
		db:        db,
		tableName: tableName,
		ids:       ids,
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
			title TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL DEFAULT '',
			structured TEXT NOT NULL DEFAULT '',
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`, c.tableName)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: create table: %w", err)
	}

	indexes := []string{
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_type_created ON %s(record_type, created_at)`,
			c.tableName, c.tableName),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_type_logical ON %s(record_type, logical_id)`,
			c.tableName, c.tableName),
	}
	for _, q := range indexes {
		if _, err := c.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("initTables: create index: %w", err)
		}
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
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
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
		WHERE id = $1
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
		WHERE record_type = $1 AND logical_id = $2
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
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9)
	`, c.tableName)

	_, err = c.db.ExecContext(ctx, query,
		record.ID,
		string(record.Type),
		nullString(record.LogicalID),
		record.Title,
		record.Body,
		structured,
		metadata,
		record.CreatedAt,
		record.UpdatedAt,
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
		SET logical_id = $1, title = $2, body = $3, structured = $4, metadata = $5::jsonb, updated_at = $6
		WHERE id = $7
	`, c.tableName)

	result, err := c.db.ExecContext(ctx, query,
		nullString(record.LogicalID),
		record.Title,
		record.Body,
		structured,
		metadata,
		record.UpdatedAt,
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
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", c.tableName)

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
