package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/WebblyCMS/Webbly/internal/cache"
	"github.com/WebblyCMS/Webbly/internal/config"
	"github.com/WebblyCMS/Webbly/internal/logging"
	"github.com/WebblyCMS/Webbly/internal/models"
)

// ErrReindexRunning is returned when a reindex is requested while one is
// already in progress. Overlapping reindex passes are not safe; callers
// must retry after the running pass finishes.
var ErrReindexRunning = errors.New("reindex already in progress")

// ViewCacheName is the namespace the HTTP layer caches rendered search
// responses under. InvalidateContent clears it alongside the memoized
// search payloads, so both must agree on the name.
const ViewCacheName = "api_search"

// searchTTL is how long memoized search results stay fresh.
const searchTTL = 5 * time.Minute

// ContentSource supplies the items to search over. The service only
// reads from it, never writes back.
type ContentSource interface {
	ListContentItems(ctx context.Context, visibleOnly bool) ([]models.ContentItem, error)
}

// State names the phase of the reindex state machine.
type State string

const (
	StateIdle     State = "idle"
	StateClearing State = "clearing"
	StateWarming  State = "warming"
)

// searchPayload is the memoized unit: both result categories of one query.
type searchPayload struct {
	Posts []models.ContentItem `json:"posts"`
	Pages []models.ContentItem `json:"pages"`
}

// Service is the search engine over the content source. All query
// operations are pure reads and safe for concurrent use; Reindex is the
// only stateful operation and serializes itself.
type Service struct {
	source    ContentSource
	cache     *cache.Cache
	settings  *config.SearchSettings
	stopwords map[string]struct{}

	cachedSearch func(context.Context, ...any) (searchPayload, error)

	mu    sync.Mutex // serializes Reindex
	state State
	stMu  sync.RWMutex // guards state reads from handlers
}

// New constructs a search service. The cache is consulted before every
// search; pass a fresh memory-backed cache in tests for isolation.
func New(source ContentSource, c *cache.Cache, settings *config.SearchSettings) *Service {
	if settings == nil {
		settings = config.DefaultSearchSettings()
	}

	stopwords := make(map[string]struct{}, len(settings.Stopwords))
	for _, word := range settings.Stopwords {
		stopwords[strings.ToLower(word)] = struct{}{}
	}

	s := &Service{
		source:    source,
		cache:     c,
		settings:  settings,
		stopwords: stopwords,
		state:     StateIdle,
	}

	s.cachedSearch = cache.Memoize(c, "search", searchTTL, func(ctx context.Context, args ...any) (searchPayload, error) {
		return s.searchDirect(ctx, args[0].(string), args[1].(int), args[2].(bool))
	})

	return s
}

// Search returns the posts and pages matching query, memoized for five
// minutes. Posts are ordered by update time descending, pages by title
// ascending. An empty (or fully non-alphanumeric) query matches nothing.
func (s *Service) Search(ctx context.Context, query string, limit int, includeDrafts bool) ([]models.ContentItem, []models.ContentItem, error) {
	payload, err := s.cachedSearch(ctx, query, limit, includeDrafts)
	if err != nil {
		return nil, nil, err
	}
	return payload.Posts, payload.Pages, nil
}

func (s *Service) searchDirect(ctx context.Context, query string, limit int, includeDrafts bool) (searchPayload, error) {
	normalized := Normalize(query)
	if normalized == "" {
		return searchPayload{Posts: []models.ContentItem{}, Pages: []models.ContentItem{}}, nil
	}

	items, err := s.source.ListContentItems(ctx, !includeDrafts)
	if err != nil {
		return searchPayload{}, fmt.Errorf("failed to list content: %w", err)
	}

	var posts, pages []models.ContentItem
	for _, item := range items {
		if !matches(item, normalized) {
			continue
		}
		switch item.Kind {
		case models.KindPage:
			pages = append(pages, item)
		default:
			posts = append(posts, item)
		}
	}

	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].UpdatedAt.After(posts[j].UpdatedAt)
	})
	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i].Title < pages[j].Title
	})

	if limit > 0 {
		if len(posts) > limit {
			posts = posts[:limit]
		}
		if len(pages) > limit {
			pages = pages[:limit]
		}
	}

	if posts == nil {
		posts = []models.ContentItem{}
	}
	if pages == nil {
		pages = []models.ContentItem{}
	}

	logging.WithSearch(query, includeDrafts).Debug("search executed",
		"posts", len(posts), "pages", len(pages))
	return searchPayload{Posts: posts, Pages: pages}, nil
}

// matches reports whether the normalized query occurs in the item's
// title, body or summary. A missing summary is just an empty string.
func matches(item models.ContentItem, normalizedQuery string) bool {
	return strings.Contains(Normalize(item.Title), normalizedQuery) ||
		strings.Contains(Normalize(item.Body), normalizedQuery) ||
		strings.Contains(Normalize(item.Summary), normalizedQuery)
}

// Related ranks other visible items of the same kind by how many of the
// reference item's keywords they share. Items sharing none are excluded;
// ties keep their original pool order. limit defaults to 5.
func (s *Service) Related(ctx context.Context, ref models.ContentItem, limit int) ([]models.ContentItem, error) {
	if limit <= 0 {
		limit = 5
	}

	keywords := ExtractKeywords(
		ref.Title+" "+ref.Body,
		s.settings.MinKeywordLength,
		s.settings.MaxKeywords,
		s.stopwords,
	)
	if len(keywords) == 0 {
		return []models.ContentItem{}, nil
	}

	items, err := s.source.ListContentItems(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list content: %w", err)
	}

	type scored struct {
		item  models.ContentItem
		score int
	}
	var candidates []scored
	for _, item := range items {
		if item.ID == ref.ID || item.Kind != ref.Kind {
			continue
		}
		score := relatedScore(item, keywords)
		if score == 0 {
			continue
		}
		candidates = append(candidates, scored{item: item, score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	related := make([]models.ContentItem, 0, len(candidates))
	for _, c := range candidates {
		related = append(related, c.item)
	}
	return related, nil
}

// relatedScore counts how many keywords appear in the candidate's title
// or body. Plain case-insensitive substring containment; no stemming.
func relatedScore(item models.ContentItem, keywords []models.Keyword) int {
	title := strings.ToLower(item.Title)
	body := strings.ToLower(item.Body)

	score := 0
	for _, kw := range keywords {
		if strings.Contains(title, kw.Term) || strings.Contains(body, kw.Term) {
			score++
		}
	}
	return score
}

// Reindex clears the cache and warms it with the configured common
// queries, then reports how many content items the pass considered.
// Not re-entrant: a second call while one runs fails with
// ErrReindexRunning instead of interleaving.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	if !s.mu.TryLock() {
		return 0, ErrReindexRunning
	}
	defer s.mu.Unlock()
	defer s.setState(StateIdle)

	logger := slog.With("op", "reindex")

	s.setState(StateClearing)
	if err := s.cache.Clear(ctx); err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}

	s.setState(StateWarming)
	for _, query := range s.settings.CommonQueries {
		if _, _, err := s.Search(ctx, query, 0, false); err != nil {
			return 0, fmt.Errorf("failed to warm query %q: %w", query, err)
		}
	}

	items, err := s.source.ListContentItems(ctx, false)
	if err != nil {
		return 0, fmt.Errorf("failed to count content: %w", err)
	}

	logger.Info("reindex complete", "items", len(items), "warmed_queries", len(s.settings.CommonQueries))
	return len(items), nil
}

// InvalidateContent drops every cache entry tied to one content item:
// its explicit "content:<id>" entries, the memoized search payloads and
// the rendered search responses, any of which may reference it. Called
// after content changes so mutations show up before the TTLs run out.
func (s *Service) InvalidateContent(ctx context.Context, id string) error {
	patterns := []string{
		"content:" + id,
		"memo_search_",
		"view_" + ViewCacheName + "_",
	}
	for _, pattern := range patterns {
		if _, err := s.cache.Invalidate(ctx, pattern); err != nil {
			return err
		}
	}
	return nil
}

// ReindexState reports the current phase of the reindex state machine.
func (s *Service) ReindexState() State {
	s.stMu.RLock()
	defer s.stMu.RUnlock()
	return s.state
}

func (s *Service) setState(state State) {
	s.stMu.Lock()
	s.state = state
	s.stMu.Unlock()
}
