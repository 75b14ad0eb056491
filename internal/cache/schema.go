package cache

// Schema contains SQL schema definitions for the cache
const Schema = `
-- Identifiers of messages that were fully handled
CREATE TABLE IF NOT EXISTS processed_messages (
    message_id TEXT PRIMARY KEY,
    processed_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- One row per triage decision, for audit
CREATE TABLE IF NOT EXISTS triage_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    message_id TEXT NOT NULL,
    thread_id TEXT NOT NULL DEFAULT '',
    sender TEXT NOT NULL DEFAULT '',
    subject TEXT NOT NULL DEFAULT '',
    decision TEXT NOT NULL,
    rule TEXT NOT NULL DEFAULT '',
    class TEXT NOT NULL DEFAULT '',
    summary TEXT NOT NULL DEFAULT '',
    action_id TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_triage_log_message_id ON triage_log(message_id);
CREATE INDEX IF NOT EXISTS idx_triage_log_created_at ON triage_log(created_at);
CREATE INDEX IF NOT EXISTS idx_triage_log_decision ON triage_log(decision);
`
