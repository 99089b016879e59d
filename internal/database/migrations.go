package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    url TEXT UNIQUE,
    title TEXT NOT NULL,
    content TEXT,
    source TEXT,
    posted_at INTEGER NOT NULL,
    content_fetched INTEGER DEFAULT 0,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS engagement_records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    item_id INTEGER NOT NULL,
    viewer_id INTEGER NOT NULL,
    like_count INTEGER NOT NULL DEFAULT 0,
    comment_count INTEGER NOT NULL DEFAULT 0,
    share_count INTEGER NOT NULL DEFAULT 0,
    view_count INTEGER NOT NULL DEFAULT 0,
    total_score REAL NOT NULL DEFAULT 0,
    last_updated INTEGER NOT NULL,
    UNIQUE(item_id, viewer_id)
);

CREATE TABLE IF NOT EXISTS interest_entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    viewer_id INTEGER NOT NULL,
    keyword TEXT NOT NULL,
    weight REAL NOT NULL DEFAULT 1.0,
    occurrences INTEGER NOT NULL DEFAULT 1,
    last_updated INTEGER NOT NULL,
    UNIQUE(viewer_id, keyword)
);

CREATE TABLE IF NOT EXISTS viewer_prefs (
    viewer_id INTEGER PRIMARY KEY,
    feed_type TEXT NOT NULL CHECK(feed_type IN ('smart', 'standard')),
    updated_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_items_posted ON items(posted_at);
CREATE INDEX IF NOT EXISTS idx_engagement_item ON engagement_records(item_id);
CREATE INDEX IF NOT EXISTS idx_engagement_viewer ON engagement_records(viewer_id);
CREATE INDEX IF NOT EXISTS idx_engagement_score ON engagement_records(total_score);
CREATE INDEX IF NOT EXISTS idx_interests_viewer ON interest_entries(viewer_id);
CREATE INDEX IF NOT EXISTS idx_interests_keyword ON interest_entries(keyword);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
