// Package engage turns raw interaction events into engagement counters
// and derived scores. One hook per event kind; each applies an atomic
// counter delta, recomputes the record's total score under the current
// weights, and invalidates the score cache entry for that (item, viewer).
package engage

import (
	"github.com/jthurman/smartfeed/internal/config"
	"github.com/jthurman/smartfeed/internal/database"
	"github.com/jthurman/smartfeed/internal/scoring"
)

// Tracker consumes interaction events and maintains engagement records.
type Tracker struct {
	db     *database.DB
	engine *scoring.Engine
	cfg    *config.Config
}

// NewTracker creates an engagement tracker.
func NewTracker(db *database.DB, engine *scoring.Engine, cfg *config.Config) *Tracker {
	return &Tracker{db: db, engine: engine, cfg: cfg}
}

// OnFavoriteAdded records a like on an item by a viewer.
func (t *Tracker) OnFavoriteAdded(itemID, viewerID int64) error {
	return t.apply(itemID, viewerID, database.CounterLike, +1)
}

// OnFavoriteRemoved reverses a like. Removing a favorite that was never
// counted is a no-op: the counter clamps at zero.
func (t *Tracker) OnFavoriteRemoved(itemID, viewerID int64) error {
	return t.apply(itemID, viewerID, database.CounterLike, -1)
}

// OnCommentPosted records a comment on an item, attributed to the
// commenter as the viewer.
func (t *Tracker) OnCommentPosted(itemID, commenterID int64) error {
	return t.apply(itemID, commenterID, database.CounterComment, +1)
}

// OnCommentRemoved reverses a comment, clamped at zero.
func (t *Tracker) OnCommentRemoved(itemID, commenterID int64) error {
	return t.apply(itemID, commenterID, database.CounterComment, -1)
}

// OnItemShared records a share of an item by a viewer.
func (t *Tracker) OnItemShared(itemID, viewerID int64) error {
	return t.apply(itemID, viewerID, database.CounterShare, +1)
}

// OnItemViewed records a view of an item by a viewer.
func (t *Tracker) OnItemViewed(itemID, viewerID int64) error {
	return t.apply(itemID, viewerID, database.CounterView, +1)
}

// apply is the shared event path: atomic clamped counter delta, total
// score recompute from the resulting counters, cache invalidation.
func (t *Tracker) apply(itemID, viewerID int64, counter string, delta int) error {
	record, err := t.db.IncrementCounter(itemID, viewerID, counter, delta)
	if err != nil {
		return err
	}

	total := scoring.TotalScore(record, t.cfg.Scoring)
	if err := t.db.SetTotalScore(itemID, viewerID, total); err != nil {
		return err
	}

	t.engine.Invalidate(itemID, viewerID)
	return nil
}
