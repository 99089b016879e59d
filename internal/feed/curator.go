// Package feed assembles ranked feed pages. Ranking is per-viewer: a
// chronological page of items is scored by the scoring engine and
// reordered by score. Viewers who opted out of smart ordering get the
// chronological page back untouched.
package feed

import (
	"log"
	"sort"
	"time"

	"github.com/jthurman/smartfeed/internal/config"
	"github.com/jthurman/smartfeed/internal/database"
	"github.com/jthurman/smartfeed/internal/scoring"
)

// Feed type values stored on viewer preferences.
const (
	TypeSmart    = "smart"
	TypeStandard = "standard"
)

// RankedItem pairs an item with its computed score and the viewer's
// engagement counters, for API responses and the HTML preview.
type RankedItem struct {
	Item       database.Item
	Score      float64
	Engagement *database.EngagementRecord // nil when the viewer never interacted
}

// Page is one assembled feed page.
type Page struct {
	Items      []RankedItem
	Page       int
	PerPage    int
	TotalItems int
	FeedType   string // ordering actually applied
}

// Curator builds feed pages.
type Curator struct {
	db     *database.DB
	engine *scoring.Engine
	cfg    *config.Config
}

// NewCurator creates a feed curator.
func NewCurator(db *database.DB, engine *scoring.Engine, cfg *config.Config) *Curator {
	return &Curator{db: db, engine: engine, cfg: cfg}
}

// RankPage returns one feed page for a viewer. feedType overrides the
// viewer's stored preference when non-empty; perPage <= 0 falls back to
// the configured page size. Scoring failures degrade to chronological
// order rather than failing the page.
func (c *Curator) RankPage(viewerID int64, page, perPage int, feedType string) (*Page, error) {
	return c.rankPageAt(viewerID, page, perPage, feedType, time.Now())
}

func (c *Curator) rankPageAt(viewerID int64, page, perPage int, feedType string, now time.Time) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = c.cfg.Feed.PerPage
	}

	effective, err := c.effectiveFeedType(viewerID, feedType)
	if err != nil {
		return nil, err
	}

	items, err := c.db.ListItemsPage(page, perPage)
	if err != nil {
		return nil, err
	}
	total, err := c.db.CountItems()
	if err != nil {
		return nil, err
	}

	ranked := make([]RankedItem, 0, len(items))
	for _, item := range items {
		ranked = append(ranked, RankedItem{Item: item})
	}

	if effective == TypeSmart {
		if err := c.scoreAll(ranked, viewerID, now); err != nil {
			// Chronological order is always a valid feed; a scoring
			// failure must not take the page down with it.
			log.Printf("feed: scoring failed for viewer %d, serving chronological: %v", viewerID, err)
			effective = TypeStandard
			for i := range ranked {
				ranked[i].Score = 0
			}
		} else {
			sort.SliceStable(ranked, func(i, j int) bool {
				if ranked[i].Score != ranked[j].Score {
					return ranked[i].Score > ranked[j].Score
				}
				return ranked[i].Item.PostedAt > ranked[j].Item.PostedAt
			})
		}
	}

	return &Page{
		Items:      ranked,
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		FeedType:   effective,
	}, nil
}

// effectiveFeedType resolves the ordering for a viewer: explicit request
// param, then the stored viewer preference, then the configured default.
// Smart ordering disabled globally forces standard for everyone.
func (c *Curator) effectiveFeedType(viewerID int64, requested string) (string, error) {
	if !c.cfg.Feed.SmartEnabled {
		return TypeStandard, nil
	}
	if requested == TypeSmart || requested == TypeStandard {
		return requested, nil
	}

	pref, err := c.db.GetFeedType(viewerID)
	if err != nil {
		return "", err
	}
	if pref == TypeSmart || pref == TypeStandard {
		return pref, nil
	}
	return c.cfg.Feed.DefaultType, nil
}

func (c *Curator) scoreAll(ranked []RankedItem, viewerID int64, now time.Time) error {
	for i := range ranked {
		b, err := c.engine.CalculateScoreAt(ranked[i].Item.ID, viewerID, now)
		if err != nil {
			return err
		}
		ranked[i].Score = b.Final

		rec, err := c.db.GetEngagement(ranked[i].Item.ID, viewerID)
		if err != nil {
			return err
		}
		ranked[i].Engagement = rec
	}
	return nil
}
