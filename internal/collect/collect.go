// Package collect imports feed content into the item store. RSS/Atom
// entries are the item source; deduplication is by URL.
package collect

import (
	"log"

	"github.com/jthurman/smartfeed/internal/config"
	"github.com/jthurman/smartfeed/internal/database"
)

// Result holds the results of an import run.
type Result struct {
	TotalFound int
	NewItems   int
	Duplicates int
	Sources    map[string]int
}

// Importer pulls entries from configured RSS feeds into the item store.
type Importer struct {
	db         *database.DB
	feedParser *FeedParser
	daysBack   int
}

// NewImporter creates a feed importer.
func NewImporter(cfg *config.Config, db *database.DB, daysBack int) *Importer {
	imp := &Importer{
		db:       db,
		daysBack: daysBack,
	}

	if len(cfg.Sources.Feeds) > 0 {
		feeds := make([]FeedConfig, len(cfg.Sources.Feeds))
		for i, f := range cfg.Sources.Feeds {
			feeds[i] = FeedConfig{URL: f.URL, Name: f.Name}
		}
		imp.feedParser = NewFeedParser(feeds)
	}

	return imp
}

// Import imports items from all configured feeds.
func (imp *Importer) Import() *Result {
	r := &Result{Sources: make(map[string]int)}

	if imp.feedParser == nil {
		log.Println("No feed sources configured")
		return r
	}

	log.Println("Importing from RSS feeds...")
	entries := imp.feedParser.ParseAll(imp.daysBack)
	r.TotalFound = len(entries)

	for _, entry := range entries {
		var source, content *string
		if entry.Source != "" {
			source = &entry.Source
		}
		if entry.Content != "" {
			content = &entry.Content
		}
		entryURL := entry.URL

		id, err := imp.db.InsertItem(&entryURL, entry.Title, content, source, entry.PostedAt)
		if err != nil {
			log.Printf("Failed to insert item %s: %v", entry.URL, err)
			continue
		}
		if id > 0 {
			r.NewItems++
			r.Sources[entry.Source]++
		} else {
			r.Duplicates++
		}
	}

	log.Printf("Import complete: %d found, %d new, %d duplicates", r.TotalFound, r.NewItems, r.Duplicates)
	return r
}
