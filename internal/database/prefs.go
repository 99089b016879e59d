package database

import "database/sql"

// GetFeedType returns the viewer's preferred feed type, or "" if the
// viewer has no stored preference.
func (db *DB) GetFeedType(viewerID int64) (string, error) {
	var feedType string
	err := db.conn.QueryRow(
		"SELECT feed_type FROM viewer_prefs WHERE viewer_id = ?", viewerID,
	).Scan(&feedType)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return feedType, nil
}

// SetFeedType stores the viewer's preferred feed type ("smart" or
// "standard").
func (db *DB) SetFeedType(viewerID int64, feedType string) error {
	_, err := db.conn.Exec(`
		INSERT INTO viewer_prefs (viewer_id, feed_type, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(viewer_id) DO UPDATE SET
			feed_type = excluded.feed_type,
			updated_at = excluded.updated_at`,
		viewerID, feedType,
	)
	return err
}
