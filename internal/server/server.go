package server

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/jthurman/smartfeed/internal/config"
	"github.com/jthurman/smartfeed/internal/database"
	"github.com/jthurman/smartfeed/internal/engage"
	"github.com/jthurman/smartfeed/internal/feed"
	"github.com/jthurman/smartfeed/internal/interest"
	"github.com/jthurman/smartfeed/internal/scoring"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// Server is the HTTP surface: a JSON API for feed pages, interaction
// events, interests and preferences, plus an HTML feed preview.
type Server struct {
	db       *database.DB
	cfg      *config.Config
	engine   *scoring.Engine
	tracker  *engage.Tracker
	analyzer *interest.Analyzer
	curator  *feed.Curator
	pages    map[string]*template.Template
	mux      *http.ServeMux
}

// New creates a new Server. The analyzer is shared with the caller so
// the decay timer can run on the same instance.
func New(db *database.DB, cfg *config.Config, analyzer *interest.Analyzer) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"score": func(f float64) string {
			return strconv.FormatFloat(f, 'f', 2, 64)
		},
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// For each page template, clone the base and parse the page into the clone.
	// This gives each page its own {{define "content"}} and {{define "title"}}.
	pageNames := []string{"feed.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	engine := scoring.NewEngine(db, scoring.NewMemoryCache(), cfg)
	s := &Server{
		db:       db,
		cfg:      cfg,
		engine:   engine,
		tracker:  engage.NewTracker(db, engine, cfg),
		analyzer: analyzer,
		curator:  feed.NewCurator(db, engine, cfg),
		pages:    pages,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	// Static files
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// JSON API
	s.mux.HandleFunc("/api/feed", s.handleAPIFeed)
	s.mux.HandleFunc("/api/interests", s.handleAPIInterests)
	s.mux.HandleFunc("/api/events/", s.handleAPIEvent)
	s.mux.HandleFunc("/api/preference", s.handleAPIPreference)

	// HTML preview
	s.mux.HandleFunc("/", s.handleFeedPage)
}

type feedItemJSON struct {
	ID       int64   `json:"id"`
	URL      *string `json:"url"`
	Title    string  `json:"title"`
	Content  *string `json:"content"`
	Source   *string `json:"source"`
	PostedAt int64   `json:"posted_at"`
	Score    float64 `json:"score"`
	Likes    int     `json:"likes"`
	Comments int     `json:"comments"`
	Shares   int     `json:"shares"`
	Views    int     `json:"views"`
}

type feedPageJSON struct {
	Items      []feedItemJSON `json:"items"`
	Page       int            `json:"page"`
	PerPage    int            `json:"per_page"`
	TotalItems int            `json:"total_items"`
	FeedType   string         `json:"feed_type"`
}

func (s *Server) handleAPIFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	viewerID, err := queryInt64(r, "viewer_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "viewer_id is required")
		return
	}
	page := queryIntDefault(r, "page", 1)
	perPage := queryIntDefault(r, "per_page", 0)
	feedType := r.URL.Query().Get("feed_type")
	if feedType != "" && feedType != feed.TypeSmart && feedType != feed.TypeStandard {
		writeError(w, http.StatusBadRequest, "feed_type must be 'smart' or 'standard'")
		return
	}

	p, err := s.curator.RankPage(viewerID, page, perPage, feedType)
	if err != nil {
		log.Printf("feed page for viewer %d: %v", viewerID, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	out := feedPageJSON{
		Items:      make([]feedItemJSON, 0, len(p.Items)),
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalItems: p.TotalItems,
		FeedType:   p.FeedType,
	}
	for _, ri := range p.Items {
		item := feedItemJSON{
			ID:       ri.Item.ID,
			URL:      ri.Item.URL,
			Title:    ri.Item.Title,
			Content:  ri.Item.Content,
			Source:   ri.Item.Source,
			PostedAt: ri.Item.PostedAt,
			Score:    ri.Score,
		}
		if ri.Engagement != nil {
			item.Likes = ri.Engagement.LikeCount
			item.Comments = ri.Engagement.CommentCount
			item.Shares = ri.Engagement.ShareCount
			item.Views = ri.Engagement.ViewCount
		}
		out.Items = append(out.Items, item)
	}
	writeJSON(w, http.StatusOK, out)
}

type interestJSON struct {
	Keyword     string  `json:"keyword"`
	Weight      float64 `json:"weight"`
	Occurrences int     `json:"occurrences"`
	LastUpdated int64   `json:"last_updated"`
}

func (s *Server) handleAPIInterests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	viewerID, err := queryInt64(r, "viewer_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "viewer_id is required")
		return
	}

	entries, err := s.db.GetInterests(viewerID)
	if err != nil {
		log.Printf("interests for viewer %d: %v", viewerID, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	out := make([]interestJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, interestJSON{
			Keyword:     e.Keyword,
			Weight:      e.Weight,
			Occurrences: e.Occurrences,
			LastUpdated: e.LastUpdated,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"viewer_id": viewerID, "interests": out})
}

// handleAPIEvent dispatches POST /api/events/{kind}. Every event bumps
// a counter and refreshes the score; favorite and comment additionally
// feed the interest analyzer.
func (s *Server) handleAPIEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	kind := strings.TrimPrefix(r.URL.Path, "/api/events/")

	itemID, err := formInt64(r, "item_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "item_id is required")
		return
	}
	viewerID, err := formInt64(r, "viewer_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "viewer_id is required")
		return
	}

	switch kind {
	case "favorite":
		err = s.tracker.OnFavoriteAdded(itemID, viewerID)
		if err == nil {
			s.analyzeItemContent(itemID, viewerID)
		}
	case "unfavorite":
		err = s.tracker.OnFavoriteRemoved(itemID, viewerID)
	case "comment":
		err = s.tracker.OnCommentPosted(itemID, viewerID)
		if err == nil {
			if body := strings.TrimSpace(r.FormValue("content")); body != "" {
				if aerr := s.analyzer.OnComment(viewerID, body); aerr != nil {
					log.Printf("interest analysis for comment on item %d: %v", itemID, aerr)
				}
			}
		}
	case "uncomment":
		err = s.tracker.OnCommentRemoved(itemID, viewerID)
	case "share":
		err = s.tracker.OnItemShared(itemID, viewerID)
	case "view":
		err = s.tracker.OnItemViewed(itemID, viewerID)
	default:
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown event %q", kind))
		return
	}

	if err != nil {
		log.Printf("event %s on item %d by viewer %d: %v", kind, itemID, viewerID, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	score, err := s.engine.CalculateScore(itemID, viewerID)
	if err != nil {
		log.Printf("score after %s on item %d: %v", kind, itemID, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "score": score})
}

// analyzeItemContent runs interest extraction over the favorited item's
// stored content. A missing item or empty content is not an error.
func (s *Server) analyzeItemContent(itemID, viewerID int64) {
	item, err := s.db.GetItem(itemID)
	if err != nil || item == nil {
		return
	}
	text := item.Title
	if item.Content != nil && *item.Content != "" {
		text = *item.Content
	}
	if err := s.analyzer.OnFavorite(viewerID, text); err != nil {
		log.Printf("interest analysis for favorite on item %d: %v", itemID, err)
	}
}

func (s *Server) handleAPIPreference(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	viewerID, err := formInt64(r, "viewer_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "viewer_id is required")
		return
	}
	feedType := r.FormValue("feed_type")
	if feedType != feed.TypeSmart && feedType != feed.TypeStandard {
		writeError(w, http.StatusBadRequest, "feed_type must be 'smart' or 'standard'")
		return
	}

	if err := s.db.SetFeedType(viewerID, feedType); err != nil {
		log.Printf("set feed type for viewer %d: %v", viewerID, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "feed_type": feedType})
}

func (s *Server) handleFeedPage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	viewerID := int64(queryIntDefault(r, "viewer_id", 1))
	page := queryIntDefault(r, "page", 1)

	p, err := s.curator.RankPage(viewerID, page, 0, r.URL.Query().Get("feed_type"))
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	data := map[string]any{
		"ViewerID": viewerID,
		"Feed":     p,
		"PrevPage": 0,
		"NextPage": 0,
	}
	if p.Page > 1 {
		data["PrevPage"] = p.Page - 1
	}
	if p.Page*p.PerPage < p.TotalItems {
		data["NextPage"] = p.Page + 1
	}
	s.render(w, "feed.html", data)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
	}
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryInt64(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
}

func queryIntDefault(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return v
}

func formInt64(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(r.FormValue(key), 10, 64)
}

// Serve starts the HTTP server on the given port.
func Serve(db *database.DB, cfg *config.Config, analyzer *interest.Analyzer, port int) error {
	srv, err := New(db, cfg, analyzer)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
