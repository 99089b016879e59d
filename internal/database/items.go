package database

import (
	"database/sql"
)

// InsertItem inserts a feed item. Returns the ID on success, 0 if the URL
// is a duplicate.
func (db *DB) InsertItem(url *string, title string, content, source *string, postedAt int64) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO items (url, title, content, source, posted_at)
		VALUES (?, ?, ?, ?, ?)`,
		url, title, content, source, postedAt,
	)
	if err != nil {
		// Duplicate URL constraint
		return 0, nil //nolint: nilerr
	}
	return result.LastInsertId()
}

// GetItem returns a single item by ID, or nil if absent.
func (db *DB) GetItem(itemID int64) (*Item, error) {
	row := db.conn.QueryRow(
		`SELECT id, url, title, content, source, posted_at, content_fetched, created_at
		FROM items WHERE id = ?`, itemID,
	)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetItemByURL returns the item with the given URL, or nil if absent.
func (db *DB) GetItemByURL(url string) (*Item, error) {
	row := db.conn.QueryRow(
		`SELECT id, url, title, content, source, posted_at, content_fetched, created_at
		FROM items WHERE url = ?`, url,
	)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListItemsPage returns one page of items in reverse chronological order.
// Pages are 1-based.
func (db *DB) ListItemsPage(page, perPage int) ([]Item, error) {
	if page < 1 {
		page = 1
	}
	rows, err := db.conn.Query(
		`SELECT id, url, title, content, source, posted_at, content_fetched, created_at
		FROM items ORDER BY posted_at DESC, id DESC LIMIT ? OFFSET ?`,
		perPage, (page-1)*perPage,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

// CountItems returns the total number of items.
func (db *DB) CountItems() (int, error) {
	var n int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM items").Scan(&n)
	return n, err
}

// GetItemsNeedingFetch returns items with empty content that haven't had a
// fetch attempt.
func (db *DB) GetItemsNeedingFetch() ([]Item, error) {
	rows, err := db.conn.Query(
		`SELECT id, url, title, content, source, posted_at, content_fetched, created_at
		FROM items
		WHERE (content IS NULL OR content = '') AND content_fetched = 0 AND url IS NOT NULL
		ORDER BY posted_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

// UpdateItemContent updates item content after fetching.
func (db *DB) UpdateItemContent(itemID int64, content *string) error {
	_, err := db.conn.Exec(
		"UPDATE items SET content = ?, content_fetched = 1 WHERE id = ?",
		content, itemID,
	)
	return err
}

// MarkItemFetchAttempted marks that we tried to fetch content.
func (db *DB) MarkItemFetchAttempted(itemID int64) error {
	_, err := db.conn.Exec(
		"UPDATE items SET content_fetched = 1 WHERE id = ?", itemID,
	)
	return err
}

func scanItems(rows *sql.Rows) ([]Item, error) {
	var items []Item
	for rows.Next() {
		var item Item
		var fetched int
		if err := rows.Scan(&item.ID, &item.URL, &item.Title, &item.Content,
			&item.Source, &item.PostedAt, &fetched, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.ContentFetched = fetched != 0
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanItem(row *sql.Row) (*Item, error) {
	var item Item
	var fetched int
	if err := row.Scan(&item.ID, &item.URL, &item.Title, &item.Content,
		&item.Source, &item.PostedAt, &fetched, &item.CreatedAt); err != nil {
		return nil, err
	}
	item.ContentFetched = fetched != 0
	return &item, nil
}
