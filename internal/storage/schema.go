package storage

const schema = `
-- 'items' holds study material and its scheduling state. The payload
-- column is the kind-specific content as one JSON object. 'version'
-- guards concurrent reviews of the same item.
CREATE TABLE IF NOT EXISTS items (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    theme TEXT NOT NULL,
    status TEXT NOT NULL,
    payload TEXT NOT NULL,
    interval_days REAL NOT NULL DEFAULT 0,
    ease_factor REAL NOT NULL,
    repetitions INTEGER NOT NULL DEFAULT 0,
    next_review DATETIME,
    created_at DATETIME NOT NULL,
    last_reviewed_at DATETIME,
    version INTEGER NOT NULL DEFAULT 1
);

-- 'drafts' holds generated candidates awaiting acceptance. Keyed by
-- content identity so regenerating the same text does not multiply rows.
CREATE TABLE IF NOT EXISTS drafts (
    key TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    theme TEXT NOT NULL,
    payload TEXT NOT NULL,
    created_at DATETIME NOT NULL
);

-- 'documents' remembers each ingested document and its last analysis
-- metrics, so unchanged documents are skipped on the next sync.
CREATE TABLE IF NOT EXISTS documents (
    path TEXT PRIMARY KEY,
    content_hash TEXT NOT NULL,
    readability REAL NOT NULL,
    density REAL NOT NULL,
    ingested_at DATETIME NOT NULL
);

-- 'sources' tracks where study text comes from, either a local
-- directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local',
    last_scanned DATETIME
);
`
