// Package database holds small SQL builders shared by repositories.
package database

import (
	"fmt"
	"sort"
	"strings"
)

// Pagination bounds
const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

// BuildWhereClause joins equality conditions with AND.
// Columns are emitted in sorted order so the placeholder numbering is stable.
func BuildWhereClause(conditions map[string]interface{}) (string, []interface{}) {
	if len(conditions) == 0 {
		return "", nil
	}

	columns := make([]string, 0, len(conditions))
	for column := range conditions {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	clauses := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns))
	for i, column := range columns {
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, i+1))
		args = append(args, conditions[column])
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// BuildOrderByClause accepts "column [ASC|DESC]" for allow-listed columns only
func BuildOrderByClause(orderBy string, allowedColumns []string) string {
	parts := strings.Fields(orderBy)
	if len(parts) == 0 {
		return ""
	}

	column := parts[0]
	allowed := false
	for _, col := range allowedColumns {
		if col == column {
			allowed = true
			break
		}
	}
	if !allowed {
		return ""
	}

	direction := "ASC"
	if len(parts) > 1 && strings.EqualFold(parts[1], "DESC") {
		direction = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", column, direction)
}

// ClampLimit bounds a page size to (0, MaxLimit]
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// BuildPaginationClause renders LIMIT/OFFSET with clamped values
func BuildPaginationClause(limit, offset int) string {
	if offset < 0 {
		offset = 0
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", ClampLimit(limit), offset)
}
