package sqlite

// Schema DDL applied by Migrate. Statements are idempotent so Migrate can
// run on every start.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS ledger_collections (
    id         TEXT PRIMARY KEY,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);`,
	`CREATE TABLE IF NOT EXISTS ledger_caps (
    id            TEXT PRIMARY KEY,
    collection_id TEXT NOT NULL REFERENCES ledger_collections (id),
    holder        TEXT NOT NULL DEFAULT '',
    created_at    TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at    TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_ledger_caps_collection ON ledger_caps (collection_id);`,
	`CREATE TABLE IF NOT EXISTS ledger_supply (
    collection_id TEXT NOT NULL,
    token_id      TEXT NOT NULL,
    total         INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (collection_id, token_id)
);`,
	`CREATE TABLE IF NOT EXISTS ledger_metadata (
    collection_id TEXT NOT NULL,
    token_id      TEXT NOT NULL,
    data          BLOB NOT NULL,
    PRIMARY KEY (collection_id, token_id)
);`,
	`CREATE TABLE IF NOT EXISTS ledger_balances (
    id            TEXT PRIMARY KEY,
    collection_id TEXT NOT NULL,
    token_id      TEXT NOT NULL,
    amount        INTEGER NOT NULL DEFAULT 0,
    holder        TEXT NOT NULL DEFAULT '',
    created_at    TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at    TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_ledger_balances_token ON ledger_balances (collection_id, token_id);
CREATE INDEX IF NOT EXISTS idx_ledger_balances_holder ON ledger_balances (holder);`,
	`CREATE TABLE IF NOT EXISTS ledger_events (
    id            TEXT PRIMARY KEY,
    collection_id TEXT NOT NULL,
    seq           INTEGER NOT NULL,
    type          TEXT NOT NULL,
    token_id      TEXT NOT NULL,
    from_actor    TEXT NOT NULL DEFAULT '',
    to_actor      TEXT NOT NULL DEFAULT '',
    amount        INTEGER NOT NULL DEFAULT 0,
    created_at    TEXT NOT NULL DEFAULT (datetime('now')),
    UNIQUE (collection_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_ledger_events_token ON ledger_events (collection_id, token_id);`,
}
