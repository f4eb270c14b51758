package postgres

import (
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

func isNotFound(err error) bool {
	return err == sql.ErrNoRows
}

// isBindParameterMismatch reports whether the error is the 08P01 protocol
// violation some poolers raise when a multi-parameter bind hits a prepared
// statement they rewrote. Callers retry with values inlined as literals.
func isBindParameterMismatch(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "08P01" {
		return true
	}
	return strings.Contains(err.Error(), "bind message supplies")
}

// isUnnamedPreparedStatementMissing reports whether the error is the 26000
// error transaction-mode poolers raise when the unnamed prepared statement
// was dropped between parse and execute.
func isUnnamedPreparedStatementMissing(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "26000" {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "unnamed prepared statement does not exist") ||
		strings.Contains(msg, "26000")
}

func quoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// nullStringToInt64 parses numeric columns that arrive as text when binary
// prepared results are disabled. Null or unparsable values map to zero.
func nullStringToInt64(value sql.NullString) int64 {
	if !value.Valid {
		return 0
	}
	parsed, err := strconv.ParseInt(strings.TrimSpace(value.String), 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}
