package database

import (
	"database/sql"
	"time"
)

// GetInterests returns all interest entries for a viewer, strongest first.
func (db *DB) GetInterests(viewerID int64) ([]InterestEntry, error) {
	rows, err := db.conn.Query(
		`SELECT id, viewer_id, keyword, weight, occurrences, last_updated
		FROM interest_entries WHERE viewer_id = ? ORDER BY weight DESC, keyword ASC`,
		viewerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInterests(rows)
}

// GetInterest returns a single interest entry, or nil if absent.
func (db *DB) GetInterest(viewerID int64, keyword string) (*InterestEntry, error) {
	row := db.conn.QueryRow(
		`SELECT id, viewer_id, keyword, weight, occurrences, last_updated
		FROM interest_entries WHERE viewer_id = ? AND keyword = ?`,
		viewerID, keyword,
	)
	var e InterestEntry
	if err := row.Scan(&e.ID, &e.ViewerID, &e.Keyword, &e.Weight, &e.Occurrences, &e.LastUpdated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// ReinforceInterest adds increment to the keyword's weight and bumps its
// occurrence count, creating the entry (weight = increment, occurrences = 1)
// if absent. A single atomic upsert, so concurrent reinforcements of the
// same keyword don't lose updates.
func (db *DB) ReinforceInterest(viewerID int64, keyword string, increment float64) error {
	now := time.Now().Unix()
	_, err := db.conn.Exec(`
		INSERT INTO interest_entries (viewer_id, keyword, weight, occurrences, last_updated)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(viewer_id, keyword) DO UPDATE SET
			weight = weight + ?,
			occurrences = occurrences + 1,
			last_updated = ?`,
		viewerID, keyword, increment, now, increment, now,
	)
	return err
}

// AllInterests returns every interest entry across all viewers, for the
// decay sweep.
func (db *DB) AllInterests() ([]InterestEntry, error) {
	rows, err := db.conn.Query(
		`SELECT id, viewer_id, keyword, weight, occurrences, last_updated
		FROM interest_entries`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInterests(rows)
}

// InterestWeightUpdate is one decayed weight to persist.
type InterestWeightUpdate struct {
	ID     int64
	Weight float64
}

// ApplyInterestDecay persists the outcome of a decay sweep in one
// transaction: decayed weights are written (refreshing last_updated, so
// an immediately repeated sweep finds young entries and changes nothing)
// and expired entries are removed. now is the sweep's reference instant.
func (db *DB) ApplyInterestDecay(updates []InterestWeightUpdate, deletes []int64, now int64) error {
	if len(updates) == 0 && len(deletes) == 0 {
		return nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}

	for _, u := range updates {
		if _, err := tx.Exec(
			"UPDATE interest_entries SET weight = ?, last_updated = ? WHERE id = ?", u.Weight, now, u.ID,
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	for _, id := range deletes {
		if _, err := tx.Exec(
			"DELETE FROM interest_entries WHERE id = ?", id,
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// DeleteViewerInterests removes all interest entries for a viewer.
// Returns the number of entries removed.
func (db *DB) DeleteViewerInterests(viewerID int64) (int64, error) {
	result, err := db.conn.Exec(
		"DELETE FROM interest_entries WHERE viewer_id = ?", viewerID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanInterests(rows *sql.Rows) ([]InterestEntry, error) {
	var entries []InterestEntry
	for rows.Next() {
		var e InterestEntry
		if err := rows.Scan(&e.ID, &e.ViewerID, &e.Keyword, &e.Weight, &e.Occurrences, &e.LastUpdated); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
