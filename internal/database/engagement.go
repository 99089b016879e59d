package database

import (
	"database/sql"
	"fmt"
	"time"
)

// Engagement counter columns addressable by IncrementCounter.
const (
	CounterLike    = "like_count"
	CounterComment = "comment_count"
	CounterShare   = "share_count"
	CounterView    = "view_count"
)

var engagementCounters = map[string]bool{
	CounterLike:    true,
	CounterComment: true,
	CounterShare:   true,
	CounterView:    true,
}

// GetEngagement returns the engagement record for (item, viewer), or nil
// if no interaction has been recorded yet.
func (db *DB) GetEngagement(itemID, viewerID int64) (*EngagementRecord, error) {
	row := db.conn.QueryRow(
		`SELECT id, item_id, viewer_id, like_count, comment_count, share_count,
		view_count, total_score, last_updated
		FROM engagement_records WHERE item_id = ? AND viewer_id = ?`,
		itemID, viewerID,
	)
	var r EngagementRecord
	if err := row.Scan(&r.ID, &r.ItemID, &r.ViewerID, &r.LikeCount, &r.CommentCount,
		&r.ShareCount, &r.ViewCount, &r.TotalScore, &r.LastUpdated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

// IncrementCounter applies a delta to one engagement counter as a single
// atomic read-modify-write, creating the record with zero defaults if
// absent. The counter is clamped at zero, so decrementing an absent or
// zero counter is a no-op. Returns the record after the update.
func (db *DB) IncrementCounter(itemID, viewerID int64, counter string, delta int) (*EngagementRecord, error) {
	if !engagementCounters[counter] {
		return nil, fmt.Errorf("unknown engagement counter %q", counter)
	}

	now := time.Now().Unix()
	query := fmt.Sprintf(`
		INSERT INTO engagement_records (item_id, viewer_id, %[1]s, last_updated)
		VALUES (?, ?, MAX(0, ?), ?)
		ON CONFLICT(item_id, viewer_id) DO UPDATE SET
			%[1]s = MAX(0, %[1]s + ?),
			last_updated = ?`, counter)

	if _, err := db.conn.Exec(query, itemID, viewerID, delta, now, delta, now); err != nil {
		return nil, err
	}
	return db.GetEngagement(itemID, viewerID)
}

// UpsertEngagement merges the given fields into the record for
// (item, viewer), creating it with zero defaults if absent, and refreshes
// last_updated. Returns the record after the merge.
func (db *DB) UpsertEngagement(itemID, viewerID int64, fields EngagementFields) (*EngagementRecord, error) {
	existing, err := db.GetEngagement(itemID, viewerID)
	if err != nil {
		return nil, err
	}

	merged := EngagementRecord{ItemID: itemID, ViewerID: viewerID}
	if existing != nil {
		merged = *existing
	}
	if fields.LikeCount != nil {
		merged.LikeCount = *fields.LikeCount
	}
	if fields.CommentCount != nil {
		merged.CommentCount = *fields.CommentCount
	}
	if fields.ShareCount != nil {
		merged.ShareCount = *fields.ShareCount
	}
	if fields.ViewCount != nil {
		merged.ViewCount = *fields.ViewCount
	}
	if fields.TotalScore != nil {
		merged.TotalScore = *fields.TotalScore
	}

	now := time.Now().Unix()
	_, err = db.conn.Exec(`
		INSERT INTO engagement_records
			(item_id, viewer_id, like_count, comment_count, share_count, view_count, total_score, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_id, viewer_id) DO UPDATE SET
			like_count = excluded.like_count,
			comment_count = excluded.comment_count,
			share_count = excluded.share_count,
			view_count = excluded.view_count,
			total_score = excluded.total_score,
			last_updated = excluded.last_updated`,
		itemID, viewerID, merged.LikeCount, merged.CommentCount,
		merged.ShareCount, merged.ViewCount, merged.TotalScore, now,
	)
	if err != nil {
		return nil, err
	}
	return db.GetEngagement(itemID, viewerID)
}

// SetTotalScore stores a recomputed total score for (item, viewer).
func (db *DB) SetTotalScore(itemID, viewerID int64, score float64) error {
	_, err := db.conn.Exec(
		`UPDATE engagement_records SET total_score = ?, last_updated = ?
		WHERE item_id = ? AND viewer_id = ?`,
		score, time.Now().Unix(), itemID, viewerID,
	)
	return err
}
