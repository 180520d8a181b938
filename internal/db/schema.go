package db

// Schema is applied in full at startup; every statement is idempotent so an
// existing database passes through unchanged.
const Schema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS config (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    description TEXT,
    updated_at INTEGER
);

CREATE TABLE IF NOT EXISTS subreddits (
    name TEXT PRIMARY KEY,
    title TEXT,
    description TEXT,
    subscriber_count INTEGER,
    over_18 BOOLEAN DEFAULT 0,
    status TEXT DEFAULT 'pending',
    error_message TEXT,
    last_updated INTEGER
);

CREATE TABLE IF NOT EXISTS posts (
    id TEXT PRIMARY KEY,
    subreddit TEXT NOT NULL,
    author TEXT,
    title TEXT,
    url TEXT,
    created_utc INTEGER NOT NULL DEFAULT 0,
    score INTEGER NOT NULL DEFAULT 0,
    post_type TEXT NOT NULL,
    selftext TEXT,
    downloaded BOOLEAN NOT NULL DEFAULT 0,
    downloaded_at INTEGER,
    error TEXT,
    media_status TEXT NOT NULL DEFAULT 'pending' CHECK(
        media_status IN (
            'pending', 'downloaded', 'permanently_removed',
            'temporarily_unavailable', 'error', 'duplicate',
            'not_applicable', 'unknown'
        )
    ),
    last_comment_update INTEGER,
    comment_count INTEGER NOT NULL DEFAULT 0,
    expected_comment_count INTEGER,
    comment_fetch_attempts INTEGER NOT NULL DEFAULT 0,
    last_comment_failure TEXT,
    last_status_check INTEGER,
    FOREIGN KEY(subreddit) REFERENCES subreddits(name)
);

CREATE TABLE IF NOT EXISTS post_media (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    post_id TEXT NOT NULL,
    media_url TEXT NOT NULL,
    media_type TEXT NOT NULL,
    original_url TEXT,
    download_path TEXT,
    position INTEGER NOT NULL DEFAULT 0,
    downloaded BOOLEAN NOT NULL DEFAULT 0,
    downloaded_at INTEGER,
    error TEXT,
    download_attempts INTEGER NOT NULL DEFAULT 0,
    last_attempt INTEGER,
    media_status TEXT NOT NULL DEFAULT 'pending' CHECK(
        media_status IN (
            'pending', 'downloaded', 'permanently_removed',
            'temporarily_unavailable', 'error', 'duplicate',
            'not_applicable', 'unknown'
        )
    ),
    UNIQUE(post_id, position),
    FOREIGN KEY(post_id) REFERENCES posts(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS comments (
    id TEXT PRIMARY KEY,
    post_id TEXT NOT NULL,
    parent_id TEXT,
    author TEXT,
    body TEXT NOT NULL DEFAULT '',
    created_utc INTEGER NOT NULL DEFAULT 0,
    score INTEGER NOT NULL DEFAULT 0,
    edited BOOLEAN NOT NULL DEFAULT 0,
    depth INTEGER NOT NULL DEFAULT 0,
    path TEXT NOT NULL,
    downloaded_at INTEGER,
    FOREIGN KEY(post_id) REFERENCES posts(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS media_deduplication (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    canonical_hash TEXT NOT NULL,
    quick_hash TEXT NOT NULL,
    canonical_path TEXT NOT NULL,
    first_seen_timestamp INTEGER NOT NULL,
    first_seen_post_id TEXT NOT NULL,
    total_size INTEGER NOT NULL,
    mime_type TEXT,
    duplicate_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS media_links (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    post_id TEXT NOT NULL,
    canonical_hash TEXT NOT NULL,
    link_path TEXT NOT NULL,
    created_timestamp INTEGER NOT NULL,
    is_crosspost BOOLEAN NOT NULL DEFAULT 0,
    original_post_id TEXT,
    UNIQUE(post_id, canonical_hash),
    FOREIGN KEY(post_id) REFERENCES posts(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS worker_status (
    worker_type TEXT PRIMARY KEY,
    enabled BOOLEAN NOT NULL DEFAULT 0,
    last_updated INTEGER
);

CREATE INDEX IF NOT EXISTS idx_posts_subreddit ON posts(subreddit);
CREATE INDEX IF NOT EXISTS idx_posts_score ON posts(score);
CREATE INDEX IF NOT EXISTS idx_posts_downloaded ON posts(downloaded);
CREATE INDEX IF NOT EXISTS idx_posts_media_status ON posts(media_status);
CREATE INDEX IF NOT EXISTS idx_posts_subreddit_downloaded ON posts(subreddit, downloaded);
CREATE INDEX IF NOT EXISTS idx_posts_comment_status ON posts(comment_fetch_attempts, expected_comment_count);
CREATE INDEX IF NOT EXISTS idx_post_media_post ON post_media(post_id);
CREATE INDEX IF NOT EXISTS idx_post_media_status ON post_media(media_status, downloaded);
CREATE INDEX IF NOT EXISTS idx_comments_post ON comments(post_id);
CREATE INDEX IF NOT EXISTS idx_comments_parent ON comments(parent_id);
CREATE INDEX IF NOT EXISTS idx_comments_path ON comments(path);
CREATE INDEX IF NOT EXISTS idx_media_quick_hash ON media_deduplication(quick_hash);
CREATE INDEX IF NOT EXISTS idx_media_canonical_hash ON media_deduplication(canonical_hash);
CREATE INDEX IF NOT EXISTS idx_media_links_hash ON media_links(canonical_hash);

INSERT OR IGNORE INTO config (key, value, description, updated_at) VALUES
    ('nsfw_mode', 'false', 'Whether NSFW content is shown', CAST(strftime('%s','now') AS INTEGER)),
    ('batch_size', '50', 'Posts pulled per replenishment batch', CAST(strftime('%s','now') AS INTEGER)),
    ('batch_delay', '300', 'Seconds between idle replenishment checks', CAST(strftime('%s','now') AS INTEGER)),
    ('download_comments', 'true', 'Whether to fetch comments for posts', CAST(strftime('%s','now') AS INTEGER)),
    ('comment_depth', '10', 'Maximum comment tree depth to fetch', CAST(strftime('%s','now') AS INTEGER)),
    ('subreddit_duplicate_strategy', 'highest_voted', 'Duplicate resolution within a subreddit (highest_voted or oldest)', CAST(strftime('%s','now') AS INTEGER));

INSERT OR IGNORE INTO worker_status (worker_type, enabled, last_updated) VALUES
    ('media', 0, CAST(strftime('%s','now') AS INTEGER)),
    ('comments', 0, CAST(strftime('%s','now') AS INTEGER)),
    ('metadata', 0, CAST(strftime('%s','now') AS INTEGER));
`
