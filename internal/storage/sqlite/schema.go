package sqlite

const schema = `
-- Signals table (append-only event log)
CREATE TABLE IF NOT EXISTS signals (
    signal_id TEXT PRIMARY KEY,
    signal_type TEXT NOT NULL CHECK(length(signal_type) > 0),
    scope TEXT NOT NULL DEFAULT 'guardian',
    severity TEXT NOT NULL DEFAULT 'info',
    policy_id TEXT NOT NULL DEFAULT '',
    message TEXT NOT NULL DEFAULT '',
    payload_ref TEXT NOT NULL DEFAULT '',
    emitted_at TEXT NOT NULL,
    mode TEXT NOT NULL DEFAULT 'observation_only'
);

CREATE INDEX IF NOT EXISTS idx_signals_emitted_at ON signals(emitted_at);
CREATE INDEX IF NOT EXISTS idx_signals_type ON signals(signal_type);

-- Annotations table (append-only human notes)
CREATE TABLE IF NOT EXISTS annotations (
    annotation_id TEXT PRIMARY KEY,
    author TEXT NOT NULL,
    reference_type TEXT NOT NULL,
    reference_id TEXT NOT NULL DEFAULT '',
    reference_window TEXT NOT NULL DEFAULT '',
    interpretation_text TEXT NOT NULL,
    confidence TEXT NOT NULL,
    intent TEXT NOT NULL,
    timestamp_utc TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_annotations_timestamp ON annotations(timestamp_utc);
`
