package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
//
// stock_logs.item_id deliberately has no foreign key: log entries outlive
// the items they describe. Item and log ids are AUTOINCREMENT so a deleted
// id is never handed out again.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'manager', 'user')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS items (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    name            TEXT NOT NULL,
    image           TEXT,
    warehouse_stock INTEGER NOT NULL DEFAULT 0 CHECK (warehouse_stock >= 0),
    display_stock   INTEGER NOT NULL DEFAULT 0 CHECK (display_stock >= 0),
    created_at      DATETIME NOT NULL,
    updated_at      DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS stock_logs (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    item_id    INTEGER NOT NULL,
    item_name  TEXT NOT NULL,
    type       TEXT NOT NULL CHECK (type IN ('input', 'transfer', 'sale', 'reduction')),
    quantity   INTEGER NOT NULL CHECK (quantity > 0),
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_stock_logs_created_at ON stock_logs(created_at);
CREATE INDEX IF NOT EXISTS idx_stock_logs_item_id ON stock_logs(item_id);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
