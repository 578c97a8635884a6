package store

import (
	"database/sql"
	"time"
)

// Nullable timestamps are stored as epoch seconds; a nil pointer
// round-trips as SQL NULL, never as a zero value, so "never set" is
// distinguishable after reload.

func toNullInt64(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UTC().Unix(), Valid: true}
}

func fromNullInt64(ns sql.NullInt64) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := time.Unix(ns.Int64, 0).UTC()
	return &t
}

// Local-date fields ("" = never) map to nullable TEXT the same way.

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func fromNullString(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
