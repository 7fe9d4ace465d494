package store

const schema = `
CREATE TABLE IF NOT EXISTS records (
    id           TEXT PRIMARY KEY,
    source       TEXT NOT NULL,
    niche        TEXT NOT NULL,
    kind         TEXT NOT NULL,
    external_id  TEXT NOT NULL,
    title        TEXT NOT NULL DEFAULT '',
    text         TEXT NOT NULL DEFAULT '',
    url          TEXT NOT NULL DEFAULT '',
    author       TEXT NOT NULL DEFAULT '',
    rating       REAL NOT NULL DEFAULT 0,
    views        INTEGER NOT NULL DEFAULT 0,
    duration     INTEGER NOT NULL DEFAULT 0,
    installs     INTEGER NOT NULL DEFAULT 0,
    score        INTEGER NOT NULL DEFAULT 0,
    comments     INTEGER NOT NULL DEFAULT 0,
    advertiser   TEXT NOT NULL DEFAULT '',
    days_active  INTEGER NOT NULL DEFAULT 0,
    impressions  REAL NOT NULL DEFAULT 0,
    published_at DATETIME NOT NULL,
    collected_at DATETIME NOT NULL,
    extra        TEXT NOT NULL DEFAULT '{}',
    UNIQUE(source, external_id)
);

CREATE INDEX IF NOT EXISTS idx_records_niche ON records(niche);
CREATE INDEX IF NOT EXISTS idx_records_source ON records(source);
CREATE INDEX IF NOT EXISTS idx_records_kind ON records(kind);
CREATE INDEX IF NOT EXISTS idx_records_collected_at ON records(collected_at);

CREATE TABLE IF NOT EXISTS sample_snapshots (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    record_id  TEXT NOT NULL REFERENCES records(id),
    views      INTEGER NOT NULL,
    comments   INTEGER NOT NULL,
    checked_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_record ON sample_snapshots(record_id);
CREATE INDEX IF NOT EXISTS idx_snapshots_checked ON sample_snapshots(checked_at);

CREATE TABLE IF NOT EXISTS opportunities (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    niche           TEXT NOT NULL UNIQUE,
    app_score       INTEGER NOT NULL DEFAULT 0,
    content_score   INTEGER NOT NULL DEFAULT 0,
    ad_score        INTEGER NOT NULL DEFAULT 0,
    overall         INTEGER NOT NULL DEFAULT 0,
    app_samples     INTEGER NOT NULL DEFAULT 0,
    content_samples INTEGER NOT NULL DEFAULT 0,
    ad_samples      INTEGER NOT NULL DEFAULT 0,
    breakdown       TEXT NOT NULL DEFAULT '{}',
    first_seen      DATETIME NOT NULL,
    last_updated    DATETIME NOT NULL,
    alerted         BOOLEAN NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_opportunities_overall ON opportunities(overall);
CREATE INDEX IF NOT EXISTS idx_opportunities_updated ON opportunities(last_updated);
`
