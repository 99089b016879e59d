// Package interest learns per-viewer keyword affinities from the content
// a viewer interacts with, and ages them out again over time. Extraction
// is deliberately naive: a stop-word filter over whitespace tokens, no
// stemming, no phrases.
package interest

import (
	"log"
	"sort"
	"strings"
	"time"

	"github.com/jthurman/smartfeed/internal/config"
	"github.com/jthurman/smartfeed/internal/database"
)

// stopWords are tokens that never become interests.
var stopWords = map[string]bool{
	"the": true, "is": true, "at": true, "which": true, "on": true,
	"a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "with": true, "for": true, "to": true, "of": true,
}

// trailingPunct is stripped from the end of each token before filtering.
const trailingPunct = ".,!?;:"

// Analyzer reinforces and decays viewer interests.
type Analyzer struct {
	db     *database.DB
	cfg    *config.Config
	stopCh chan struct{}
}

// NewAnalyzer creates an interest analyzer.
func NewAnalyzer(db *database.DB, cfg *config.Config) *Analyzer {
	return &Analyzer{db: db, cfg: cfg, stopCh: make(chan struct{})}
}

// ExtractKeywords pulls candidate interest keywords out of content:
// markup stripped, lowercased, split on whitespace, trailing punctuation
// trimmed, tokens of length <= 3 and stop words dropped, deduplicated.
// Returned sorted for deterministic iteration.
func ExtractKeywords(content string) []string {
	text := strings.ToLower(stripMarkup(content))

	seen := make(map[string]bool)
	for _, word := range strings.Fields(text) {
		word = strings.TrimRight(word, trailingPunct)
		if len(word) <= 3 || stopWords[word] {
			continue
		}
		seen[word] = true
	}

	keywords := make([]string, 0, len(seen))
	for w := range seen {
		keywords = append(keywords, w)
	}
	sort.Strings(keywords)
	return keywords
}

// Reinforce strengthens one (viewer, keyword) interest: weight grows by
// increment and the occurrence count by one, creating the entry if absent.
func (a *Analyzer) Reinforce(viewerID int64, keyword string, increment float64) error {
	return a.db.ReinforceInterest(viewerID, keyword, increment)
}

// OnFavorite reinforces every keyword of the favorited content.
func (a *Analyzer) OnFavorite(viewerID int64, content string) error {
	return a.reinforceAll(viewerID, content, a.cfg.Interest.FavoriteIncrement)
}

// OnComment reinforces every keyword of the comment body (not the parent
// item's content).
func (a *Analyzer) OnComment(viewerID int64, body string) error {
	return a.reinforceAll(viewerID, body, a.cfg.Interest.CommentIncrement)
}

func (a *Analyzer) reinforceAll(viewerID int64, content string, increment float64) error {
	if !a.cfg.Interest.Enabled {
		return nil
	}
	for _, keyword := range ExtractKeywords(content) {
		if err := a.db.ReinforceInterest(viewerID, keyword, increment); err != nil {
			return err
		}
	}
	return nil
}

// DecayResult summarizes one decay sweep.
type DecayResult struct {
	Scanned int
	Decayed int
	Deleted int
}

// DecayInterests runs the periodic decay sweep over every interest entry
// across all viewers.
func (a *Analyzer) DecayInterests() (*DecayResult, error) {
	return a.DecayInterestsAt(time.Now())
}

// DecayInterestsAt applies tiered decay as of the given instant: entries
// idle for more than 90 days are deleted, 60-90 days lose 30% of their
// weight, 30-60 days lose 10%, younger ones are untouched. Only changed
// weights are persisted. Persisting refreshes last_updated, so an
// accidental second run in quick succession finds young entries and
// changes nothing.
func (a *Analyzer) DecayInterestsAt(now time.Time) (*DecayResult, error) {
	entries, err := a.db.AllInterests()
	if err != nil {
		return nil, err
	}

	result := &DecayResult{Scanned: len(entries)}
	var updates []database.InterestWeightUpdate
	var deletes []int64

	for _, entry := range entries {
		daysSince := now.Sub(time.Unix(entry.LastUpdated, 0)).Hours() / 24

		switch {
		case daysSince > 90:
			deletes = append(deletes, entry.ID)
			result.Deleted++
		case daysSince > 60:
			updates = append(updates, database.InterestWeightUpdate{ID: entry.ID, Weight: entry.Weight * 0.7})
			result.Decayed++
		case daysSince > 30:
			updates = append(updates, database.InterestWeightUpdate{ID: entry.ID, Weight: entry.Weight * 0.9})
			result.Decayed++
		}
	}

	if err := a.db.ApplyInterestDecay(updates, deletes, now.Unix()); err != nil {
		return nil, err
	}
	return result, nil
}

// StartDecayTimer runs the decay sweep once now and then daily, until
// Stop is called.
func (a *Analyzer) StartDecayTimer() {
	a.runDecay()

	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				a.runDecay()
			case <-a.stopCh:
				return
			}
		}
	}()
}

// Stop shuts down the decay timer goroutine.
func (a *Analyzer) Stop() {
	close(a.stopCh)
}

func (a *Analyzer) runDecay() {
	result, err := a.DecayInterests()
	if err != nil {
		log.Printf("interest decay error: %v", err)
		return
	}
	if result.Decayed > 0 || result.Deleted > 0 {
		log.Printf("interest decay: %d decayed, %d deleted of %d", result.Decayed, result.Deleted, result.Scanned)
	}
}

// stripMarkup removes HTML tags and decodes the common entities, the
// same treatment feed content gets on import.
func stripMarkup(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")
	return s
}
