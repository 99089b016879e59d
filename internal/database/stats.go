package database

// GetStats returns aggregate counts for the status command.
func (db *DB) GetStats() (*Stats, error) {
	stats := &Stats{}

	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM items", &stats.TotalItems},
		{"SELECT COUNT(*) FROM engagement_records", &stats.EngagementRecords},
		{"SELECT COUNT(DISTINCT viewer_id) FROM engagement_records", &stats.EngagedViewers},
		{"SELECT COUNT(*) FROM interest_entries", &stats.InterestEntries},
		{"SELECT COUNT(DISTINCT viewer_id) FROM interest_entries", &stats.InterestViewers},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.query).Scan(q.dest); err != nil {
			return nil, err
		}
	}
	return stats, nil
}
