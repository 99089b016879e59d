package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jthurman/smartfeed/internal/config"
	"github.com/jthurman/smartfeed/internal/database"
	"github.com/jthurman/smartfeed/internal/interest"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(s string) *string { return &s }

func testConfig() *config.Config {
	return &config.Config{
		Scoring: config.Scoring{
			LikeWeight:         2.0,
			CommentWeight:      3.0,
			ShareWeight:        5.0,
			ViewWeight:         0.5,
			TimeDecayRate:      24,
			FreshnessThreshold: 2,
		},
		Interest: config.Interest{Enabled: true, FavoriteIncrement: 1.5, CommentIncrement: 1.2},
		Feed:     config.Feed{SmartEnabled: true, DefaultType: "smart", PerPage: 20},
		Cache:    config.Cache{Enabled: true, Duration: 300},
	}
}

func newTestServer(t *testing.T) (*Server, *database.DB) {
	t.Helper()
	db := openTestDB(t)
	cfg := testConfig()
	srv, err := New(db, cfg, interest.NewAnalyzer(db, cfg))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return srv, db
}

func postForm(t *testing.T, srv *Server, path, form string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestFeedPageRoute(t *testing.T) {
	srv, db := newTestServer(t)
	db.InsertItem(ptr("https://a.com/1"), "First Item", ptr("Some **content**."), ptr("A"), time.Now().Unix())

	req := httptest.NewRequest("GET", "/?viewer_id=1", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "First Item") {
		t.Error("expected item title in response body")
	}
	if !strings.Contains(body, "<strong>content</strong>") {
		t.Error("expected markdown-rendered content")
	}
}

func TestAPIFeedRoute(t *testing.T) {
	srv, db := newTestServer(t)
	now := time.Now()
	old, _ := db.InsertItem(ptr("https://a.com/old"), "Old", nil, nil, now.Add(-48*time.Hour).Unix())
	db.InsertItem(ptr("https://a.com/new"), "New", nil, nil, now.Add(-47*time.Hour).Unix())

	// Engagement on the older item promotes it under smart ordering.
	score := 100.0
	db.UpsertEngagement(old, 1, database.EngagementFields{TotalScore: &score})

	req := httptest.NewRequest("GET", "/api/feed?viewer_id=1", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var page struct {
		Items []struct {
			Title string  `json:"title"`
			Score float64 `json:"score"`
		} `json:"items"`
		FeedType   string `json:"feed_type"`
		TotalItems int    `json:"total_items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if page.FeedType != "smart" {
		t.Errorf("expected smart feed type, got %q", page.FeedType)
	}
	if page.TotalItems != 2 {
		t.Errorf("expected 2 total items, got %d", page.TotalItems)
	}
	if len(page.Items) != 2 || page.Items[0].Title != "Old" {
		t.Errorf("expected engaged item first, got %+v", page.Items)
	}
	if page.Items[0].Score <= page.Items[1].Score {
		t.Errorf("expected descending scores, got %g then %g", page.Items[0].Score, page.Items[1].Score)
	}
}

func TestAPIFeedRequiresViewer(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/feed", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without viewer_id, got %d", rec.Code)
	}
}

func TestFavoriteEventRoute(t *testing.T) {
	srv, db := newTestServer(t)
	itemID, _ := db.InsertItem(ptr("https://a.com/1"), "Item", ptr("mountain hiking photography"), nil, time.Now().Unix())

	rec := postForm(t, srv, "/api/events/favorite", fmt.Sprintf("item_id=%d&viewer_id=7", itemID))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	eng, _ := db.GetEngagement(itemID, 7)
	if eng == nil || eng.LikeCount != 1 {
		t.Errorf("expected like recorded, got %+v", eng)
	}

	// Favorite also feeds the interest analyzer from the item content.
	entry, _ := db.GetInterest(7, "mountain")
	if entry == nil || entry.Weight != 1.5 {
		t.Errorf("expected interest 'mountain' at weight 1.5, got %+v", entry)
	}

	var resp struct {
		Status string  `json:"status"`
		Score  float64 `json:"score"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ok" || resp.Score <= 0 {
		t.Errorf("expected positive score in response, got %+v", resp)
	}
}

func TestCommentEventUsesCommentText(t *testing.T) {
	srv, db := newTestServer(t)
	itemID, _ := db.InsertItem(ptr("https://a.com/1"), "Item", nil, nil, time.Now().Unix())

	form := fmt.Sprintf("item_id=%d&viewer_id=7&content=%s", itemID, "great+trail+running+advice")
	rec := postForm(t, srv, "/api/events/comment", form)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	eng, _ := db.GetEngagement(itemID, 7)
	if eng == nil || eng.CommentCount != 1 {
		t.Errorf("expected comment recorded, got %+v", eng)
	}

	entry, _ := db.GetInterest(7, "trail")
	if entry == nil || entry.Weight != 1.2 {
		t.Errorf("expected interest 'trail' at weight 1.2, got %+v", entry)
	}
}

func TestUnfavoriteClampsAtZero(t *testing.T) {
	srv, db := newTestServer(t)
	itemID, _ := db.InsertItem(ptr("https://a.com/1"), "Item", nil, nil, time.Now().Unix())

	rec := postForm(t, srv, "/api/events/unfavorite", fmt.Sprintf("item_id=%d&viewer_id=7", itemID))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	eng, _ := db.GetEngagement(itemID, 7)
	if eng == nil || eng.LikeCount != 0 {
		t.Errorf("expected clamped like count, got %+v", eng)
	}
}

func TestUnknownEventRoute(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := postForm(t, srv, "/api/events/boost", "item_id=1&viewer_id=1")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown event, got %d", rec.Code)
	}
}

func TestInterestsRoute(t *testing.T) {
	srv, db := newTestServer(t)
	db.ReinforceInterest(3, "hiking", 2.5)
	db.ReinforceInterest(3, "cooking", 1.5)

	req := httptest.NewRequest("GET", "/api/interests?viewer_id=3", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		ViewerID  int64 `json:"viewer_id"`
		Interests []struct {
			Keyword string  `json:"keyword"`
			Weight  float64 `json:"weight"`
		} `json:"interests"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Interests) != 2 {
		t.Fatalf("expected 2 interests, got %d", len(resp.Interests))
	}
	// Highest weight first.
	if resp.Interests[0].Keyword != "hiking" {
		t.Errorf("expected 'hiking' first, got %q", resp.Interests[0].Keyword)
	}
}

func TestPreferenceRoute(t *testing.T) {
	srv, db := newTestServer(t)

	rec := postForm(t, srv, "/api/preference", "viewer_id=4&feed_type=standard")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	ft, _ := db.GetFeedType(4)
	if ft != "standard" {
		t.Errorf("expected stored preference 'standard', got %q", ft)
	}

	rec = postForm(t, srv, "/api/preference", "viewer_id=4&feed_type=chaotic")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid feed type, got %d", rec.Code)
	}
}

func TestStaticRoute(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/static/style.css", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "font-sans") {
		t.Error("expected CSS content")
	}
}
