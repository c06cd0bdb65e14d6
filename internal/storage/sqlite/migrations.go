package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// Members keep an explicit position because their order is the payout rotation.
const schema = `
CREATE TABLE IF NOT EXISTS counters (
    name TEXT PRIMARY KEY,
    value INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS groups (
    id INTEGER PRIMARY KEY,
    creator TEXT NOT NULL,
    contribution_amount INTEGER NOT NULL,
    cycle_duration INTEGER NOT NULL,
    max_members INTEGER NOT NULL,
    current_cycle INTEGER NOT NULL,
    payout_index INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    cycle_start_time INTEGER NOT NULL,
    is_complete INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS group_members (
    group_id INTEGER NOT NULL,
    position INTEGER NOT NULL,
    member TEXT NOT NULL,
    PRIMARY KEY (group_id, member),
    UNIQUE (group_id, position),
    FOREIGN KEY (group_id) REFERENCES groups(id)
);

CREATE TABLE IF NOT EXISTS contributions (
    group_id INTEGER NOT NULL,
    cycle INTEGER NOT NULL,
    member TEXT NOT NULL,
    PRIMARY KEY (group_id, cycle, member),
    FOREIGN KEY (group_id) REFERENCES groups(id)
);

CREATE TABLE IF NOT EXISTS payouts (
    group_id INTEGER NOT NULL,
    member TEXT NOT NULL,
    PRIMARY KEY (group_id, member),
    FOREIGN KEY (group_id) REFERENCES groups(id)
);

CREATE TABLE IF NOT EXISTS withdrawals (
    group_id INTEGER NOT NULL,
    member TEXT NOT NULL,
    PRIMARY KEY (group_id, member),
    FOREIGN KEY (group_id) REFERENCES groups(id)
);

CREATE TABLE IF NOT EXISTS group_metadata (
    group_id INTEGER PRIMARY KEY,
    name TEXT,
    description TEXT,
    rules TEXT,
    FOREIGN KEY (group_id) REFERENCES groups(id)
);

CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE COLLATE NOCASE,
    display_name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_contributions_member ON contributions(group_id, member);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
