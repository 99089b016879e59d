package scoring

import (
	"strings"
	"time"

	"github.com/jthurman/smartfeed/internal/config"
	"github.com/jthurman/smartfeed/internal/database"
)

// freshnessBonus is the flat addition for items younger than the
// configured freshness threshold.
const freshnessBonus = 10.0

// Engine computes per-(item, viewer) scores from stored engagement,
// item age, and the viewer's learned interests, fronted by a score cache.
type Engine struct {
	db    *database.DB
	cache ScoreCache
	cfg   *config.Config
}

// NewEngine creates a scoring engine. cache may be nil when caching is
// disabled in the config.
func NewEngine(db *database.DB, cache ScoreCache, cfg *config.Config) *Engine {
	return &Engine{db: db, cache: cache, cfg: cfg}
}

// Breakdown exposes the parts of a computed score, for the score command
// and the feed explanation surface.
type Breakdown struct {
	BaseScore      float64
	TimeDecay      float64
	InterestBoost  float64
	FreshnessBonus float64
	Final          float64
	Cached         bool
}

// CalculateScore returns the final score for an item as seen by a viewer.
// With caching enabled, a live cache entry is returned without touching
// the stores; otherwise the score is composed, cached, and returned.
func (e *Engine) CalculateScore(itemID, viewerID int64) (float64, error) {
	b, err := e.CalculateScoreAt(itemID, viewerID, time.Now())
	if err != nil {
		return 0, err
	}
	return b.Final, nil
}

// CalculateScoreAt computes the score as of the given instant. Split out
// from CalculateScore so the arithmetic is testable against a fixed clock.
func (e *Engine) CalculateScoreAt(itemID, viewerID int64, now time.Time) (*Breakdown, error) {
	key := CacheKey(itemID, viewerID)

	if e.cachingEnabled() {
		if score, ok := e.cache.Get(key); ok {
			return &Breakdown{Final: score, Cached: true}, nil
		}
	}

	b := &Breakdown{TimeDecay: 1.0}

	record, err := e.db.GetEngagement(itemID, viewerID)
	if err != nil {
		return nil, err
	}
	if record != nil {
		b.BaseScore = record.TotalScore
	}

	item, err := e.db.GetItem(itemID)
	if err != nil {
		return nil, err
	}
	// Unknown item: no age or content to judge, so decay stays 1.0 and the
	// boost and bonus stay 0.
	if item != nil {
		hours := hoursSince(item.PostedAt, now)
		b.TimeDecay = TimeDecayMultiplier(hours, e.cfg.Scoring.TimeDecayRate)
		if hours < e.cfg.Scoring.FreshnessThreshold {
			b.FreshnessBonus = freshnessBonus
		}

		if item.Content != nil && *item.Content != "" {
			boost, err := e.interestBoost(viewerID, *item.Content)
			if err != nil {
				return nil, err
			}
			b.InterestBoost = boost
		}
	}

	b.Final = b.BaseScore*b.TimeDecay + b.InterestBoost + b.FreshnessBonus

	if e.cachingEnabled() {
		ttl := time.Duration(e.cfg.Cache.Duration) * time.Second
		e.cache.Set(key, b.Final, ttl)
	}
	return b, nil
}

// Invalidate drops the cached score for (item, viewer). Called by the
// engagement tracker after every mutation so staleness is bounded by
// "between the last mutation and the next read".
func (e *Engine) Invalidate(itemID, viewerID int64) {
	if e.cache != nil {
		e.cache.Invalidate(CacheKey(itemID, viewerID))
	}
}

// TotalScore recomputes the derived engagement score from the four
// counters using the weights in force right now. Pure arithmetic.
func TotalScore(r *database.EngagementRecord, s config.Scoring) float64 {
	return float64(r.LikeCount)*s.LikeWeight +
		float64(r.CommentCount)*s.CommentWeight +
		float64(r.ShareCount)*s.ShareWeight +
		float64(r.ViewCount)*s.ViewWeight
}

// TimeDecayMultiplier maps item age in hours to a multiplier in (0, 1]:
// exactly 1 at age 0, approaching 0 as age grows.
func TimeDecayMultiplier(hoursSincePosted, decayRateHours float64) float64 {
	return 1 / (1 + hoursSincePosted/decayRateHours)
}

// hoursSince returns the item age in hours, clamped at 0 so items with
// future timestamps count as maximally fresh.
func hoursSince(postedAt int64, now time.Time) float64 {
	hours := now.Sub(time.Unix(postedAt, 0)).Hours()
	if hours < 0 {
		return 0
	}
	return hours
}

// interestBoost sums the weights of the viewer's interests whose keyword
// appears, case-insensitively, anywhere in the content. Substring match,
// not token match: "read" matches "already".
func (e *Engine) interestBoost(viewerID int64, content string) (float64, error) {
	interests, err := e.db.GetInterests(viewerID)
	if err != nil {
		return 0, err
	}

	lower := strings.ToLower(content)
	boost := 0.0
	for _, entry := range interests {
		if strings.Contains(lower, strings.ToLower(entry.Keyword)) {
			boost += entry.Weight
		}
	}
	return boost, nil
}

func (e *Engine) cachingEnabled() bool {
	return e.cfg.Cache.Enabled && e.cache != nil
}
