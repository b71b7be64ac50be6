package store

import (
	"fmt"
	"strings"
	"time"
)

// DetectDSNType classifies a DSN as "postgres", "memory", or "sqlite"
// (file path). Used by callers to choose a backend from a single setting.
func DetectDSNType(dsn string) string {
	switch {
	case dsn == "" || dsn == ":memory:":
		return "memory"
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"), strings.Contains(dsn, "host="):
		return "postgres"
	default:
		return "sqlite"
	}
}

// windowQuery appends occurred_at bounds and a stable ordering to a base
// SELECT. placeholder is "?" for SQLite; any other value selects Postgres
// style numbered placeholders.
func windowQuery(base string, w Window, placeholder string) (string, []interface{}) {
	var args []interface{}
	next := func() string {
		if placeholder == "?" {
			return "?"
		}
		return fmt.Sprintf("$%d", len(args))
	}

	query := base
	joiner := " WHERE"
	if !w.Since.IsZero() {
		args = append(args, w.Since.UTC())
		query += joiner + " occurred_at >= " + next()
		joiner = " AND"
	}
	if !w.Until.IsZero() {
		args = append(args, w.Until.UTC())
		query += joiner + " occurred_at < " + next()
	}
	query += " ORDER BY occurred_at"
	return query, args
}

// nullableTime returns nil for a nil time pointer so the column stores NULL.
func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
