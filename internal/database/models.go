package database

import (
	"encoding/json"
	"time"
)

// SessionEntry is one stored session value
type SessionEntry struct {
	Namespace string          `db:"namespace" json:"namespace"`
	Key       string          `db:"key" json:"key"`
	Value     json.RawMessage `db:"value" json:"value"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
	Version   int             `db:"version" json:"version"`
}

const schema = `
CREATE TABLE IF NOT EXISTS session_entries (
	namespace  TEXT        NOT NULL,
	key        TEXT        NOT NULL,
	value      JSONB       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	version    INTEGER     NOT NULL DEFAULT 1,
	PRIMARY KEY (namespace, key)
)`

// Storage operation names used for metrics and spans
const (
	OpGet    = "get"
	OpSet    = "set"
	OpRemove = "remove"
	OpClear  = "clear"
)
