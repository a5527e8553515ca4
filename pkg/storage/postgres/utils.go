// Package postgres provides the PostgreSQL implementation of the record store.
package postgres

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/cosmoos/cosmo-go/pkg/storage"
)

// buildFetchClause builds a WHERE clause for FetchAll starting from $1.
func buildFetchClause(recordType storage.RecordType, opts *storage.FetchOptions) (string, []interface{}) {
	return buildFetchClauseWithOffset(recordType, opts, 1)
}

// buildFetchClauseWithOffset builds a WHERE clause starting from a specific parameter index.
func buildFetchClauseWithOffset(recordType storage.RecordType, opts *storage.FetchOptions, startIndex int) (string, []interface{}) {
	argIndex := startIndex
	conditions := []string{fmt.Sprintf("record_type = $%d", argIndex)}
	args := []interface{}{string(recordType)}
	argIndex++

	if opts != nil {
		if !opts.Since.IsZero() {
			conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIndex))
			args = append(args, opts.Since)
			argIndex++
		}
		if !opts.Until.IsZero() {
			conditions = append(conditions, fmt.Sprintf("created_at < $%d", argIndex))
			args = append(args, opts.Until)
		}
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

// nullString maps "" to SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
