package database

// Item represents a unit of feed content being scored.
type Item struct {
	ID             int64
	URL            *string
	Title          string
	Content        *string
	Source         *string
	PostedAt       int64 // unix seconds
	ContentFetched bool
	CreatedAt      *string
}

// EngagementRecord holds per-(item, viewer) interaction counters and the
// derived total score. TotalScore is a cached value, always recomputable
// from the four counters and the weights in force at recomputation time.
type EngagementRecord struct {
	ID           int64
	ItemID       int64
	ViewerID     int64
	LikeCount    int
	CommentCount int
	ShareCount   int
	ViewCount    int
	TotalScore   float64
	LastUpdated  int64 // unix seconds
}

// EngagementFields is a partial update for an engagement record. Nil
// fields are left untouched (or zeroed on create).
type EngagementFields struct {
	LikeCount    *int
	CommentCount *int
	ShareCount   *int
	ViewCount    *int
	TotalScore   *float64
}

// InterestEntry is a learned per-viewer keyword affinity.
type InterestEntry struct {
	ID          int64
	ViewerID    int64
	Keyword     string
	Weight      float64
	Occurrences int
	LastUpdated int64 // unix seconds
}

// Stats contains aggregate database statistics.
type Stats struct {
	TotalItems        int
	EngagementRecords int
	EngagedViewers    int
	InterestEntries   int
	InterestViewers   int
}
