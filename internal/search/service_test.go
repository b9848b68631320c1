package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/WebblyCMS/Webbly/internal/cache"
	"github.com/WebblyCMS/Webbly/internal/models"
)

// fakeSource serves a fixed item slice, honoring the visibleOnly flag.
type fakeSource struct {
	items []models.ContentItem
	calls int
}

func (f *fakeSource) ListContentItems(ctx context.Context, visibleOnly bool) ([]models.ContentItem, error) {
	f.calls++
	if !visibleOnly {
		return f.items, nil
	}
	var visible []models.ContentItem
	for _, item := range f.items {
		if item.Visible {
			visible = append(visible, item)
		}
	}
	return visible, nil
}

func newTestService(items []models.ContentItem) (*Service, *fakeSource, *cache.Cache) {
	source := &fakeSource{items: items}
	c := cache.New(cache.NewMemory(), "test_", time.Minute)
	return New(source, c, nil), source, c
}

func post(id, title, body string, visible bool, updated time.Time) models.ContentItem {
	return models.ContentItem{
		ID: id, Kind: models.KindPost, Title: title, Body: body,
		Visible: visible, UpdatedAt: updated,
	}
}

func page(id, title, body string, visible bool) models.ContentItem {
	return models.ContentItem{
		ID: id, Kind: models.KindPage, Title: title, Body: body, Visible: visible,
	}
}

// TestSearchExcludesDrafts reproduces the draft-visibility scenario
func TestSearchExcludesDrafts(t *testing.T) {
	svc, _, _ := newTestService([]models.ContentItem{
		post("1", "Test Post", "", true, time.Now()),
		post("2", "Other", "", true, time.Now()),
		post("3", "Test Draft", "", false, time.Now()),
	})

	posts, pages, err := svc.Search(context.Background(), "test", 0, false)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(posts) != 1 || posts[0].Title != "Test Post" {
		t.Errorf("expected only Test Post, got %v", posts)
	}
	if len(pages) != 0 {
		t.Errorf("expected no pages, got %v", pages)
	}
}

// TestSearchIncludesDrafts returns drafts when asked to
func TestSearchIncludesDrafts(t *testing.T) {
	svc, _, _ := newTestService([]models.ContentItem{
		post("1", "Test Post", "", true, time.Now()),
		post("3", "Test Draft", "", false, time.Now()),
	})

	posts, _, err := svc.Search(context.Background(), "test", 0, true)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(posts) != 2 {
		t.Errorf("expected both posts with drafts included, got %d", len(posts))
	}
}

// TestSearchEmptyQueryMatchesNothing rejects the match-everything fallback
func TestSearchEmptyQueryMatchesNothing(t *testing.T) {
	svc, _, _ := newTestService([]models.ContentItem{
		post("1", "Anything", "body", true, time.Now()),
	})

	for _, query := range []string{"", "   ", "!!!"} {
		posts, pages, err := svc.Search(context.Background(), query, 0, false)
		if err != nil {
			t.Fatalf("search(%q) failed: %v", query, err)
		}
		if len(posts) != 0 || len(pages) != 0 {
			t.Errorf("query %q should match nothing, got %d posts %d pages", query, len(posts), len(pages))
		}
	}
}

// TestSearchMatchesBodyAndSummary matches beyond the title
func TestSearchMatchesBodyAndSummary(t *testing.T) {
	items := []models.ContentItem{
		post("1", "First", "the keyword hides in the body", true, time.Now()),
		{ID: "2", Kind: models.KindPost, Title: "Second", Summary: "keyword in summary", Visible: true, UpdatedAt: time.Now()},
		post("3", "Third", "nothing relevant", true, time.Now()),
	}
	svc, _, _ := newTestService(items)

	posts, _, err := svc.Search(context.Background(), "keyword", 0, false)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(posts) != 2 {
		t.Errorf("expected body and summary matches, got %d", len(posts))
	}
}

// TestSearchOrdering: posts newest-first, pages by title
func TestSearchOrdering(t *testing.T) {
	now := time.Now()
	svc, _, _ := newTestService([]models.ContentItem{
		post("old", "go old", "", true, now.Add(-2*time.Hour)),
		post("new", "go new", "", true, now),
		page("b", "go beta", "", true),
		page("a", "go alpha", "", true),
	})

	posts, pages, err := svc.Search(context.Background(), "go", 0, false)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if posts[0].ID != "new" || posts[1].ID != "old" {
		t.Errorf("posts should be newest first, got %v, %v", posts[0].ID, posts[1].ID)
	}
	if pages[0].Title != "go alpha" || pages[1].Title != "go beta" {
		t.Errorf("pages should be title-ordered, got %v, %v", pages[0].Title, pages[1].Title)
	}
}

// TestSearchLimit caps each category independently
func TestSearchLimit(t *testing.T) {
	now := time.Now()
	svc, _, _ := newTestService([]models.ContentItem{
		post("1", "hit one", "", true, now),
		post("2", "hit two", "", true, now),
		post("3", "hit three", "", true, now),
		page("4", "hit page", "", true),
	})

	posts, pages, err := svc.Search(context.Background(), "hit", 2, false)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(posts) != 2 {
		t.Errorf("expected 2 posts, got %d", len(posts))
	}
	if len(pages) != 1 {
		t.Errorf("expected 1 page, got %d", len(pages))
	}
}

// TestSearchMemoized: a repeated query must not hit the source again
func TestSearchMemoized(t *testing.T) {
	svc, source, _ := newTestService([]models.ContentItem{
		post("1", "Cached Post", "", true, time.Now()),
	})

	ctx := context.Background()
	if _, _, err := svc.Search(ctx, "cached", 0, false); err != nil {
		t.Fatalf("first search failed: %v", err)
	}
	callsAfterFirst := source.calls

	posts, _, err := svc.Search(ctx, "cached", 0, false)
	if err != nil {
		t.Fatalf("second search failed: %v", err)
	}
	if source.calls != callsAfterFirst {
		t.Errorf("second identical search should be served from cache, source calls went %d -> %d", callsAfterFirst, source.calls)
	}
	if len(posts) != 1 || posts[0].Title != "Cached Post" {
		t.Errorf("cached result should equal direct result, got %v", posts)
	}
}

// TestRelatedRanking scores by shared keywords, excluding self and drafts
func TestRelatedRanking(t *testing.T) {
	now := time.Now()
	ref := post("ref", "Coffee Brewing Guide", "coffee roasting coffee grinding espresso", true, now)
	svc, _, _ := newTestService([]models.ContentItem{
		ref,
		post("strong", "Espresso and Coffee", "grinding roasting techniques", true, now),
		post("weak", "Coffee News", "unrelated body", true, now),
		post("none", "Gardening", "tomatoes and soil", true, now),
		post("draft", "Coffee Secrets", "espresso roasting grinding", false, now),
	})

	related, err := svc.Related(context.Background(), ref, 5)
	if err != nil {
		t.Fatalf("related failed: %v", err)
	}

	ids := make([]string, 0, len(related))
	for _, item := range related {
		ids = append(ids, item.ID)
	}
	if len(related) != 2 {
		t.Fatalf("expected 2 related items, got %v", ids)
	}
	if related[0].ID != "strong" || related[1].ID != "weak" {
		t.Errorf("expected [strong weak], got %v", ids)
	}
}

// TestRelatedLimit cuts off after limit items
func TestRelatedLimit(t *testing.T) {
	now := time.Now()
	ref := post("ref", "topic", "topic topic", true, now)
	items := []models.ContentItem{ref}
	for _, id := range []string{"a", "b", "c"} {
		items = append(items, post(id, "topic "+id, "", true, now))
	}
	svc, _, _ := newTestService(items)

	related, err := svc.Related(context.Background(), ref, 2)
	if err != nil {
		t.Fatalf("related failed: %v", err)
	}
	if len(related) != 2 {
		t.Errorf("expected 2 items, got %d", len(related))
	}
	// Equal scores keep pool order.
	if related[0].ID != "a" || related[1].ID != "b" {
		t.Errorf("expected stable pool order, got %v", related)
	}
}

// TestReindex clears the cache, warms common queries and counts items
func TestReindex(t *testing.T) {
	svc, _, c := newTestService([]models.ContentItem{
		post("1", "Welcome", "", true, time.Now()),
		post("2", "Draft", "", false, time.Now()),
		page("3", "About", "", true),
	})

	ctx := context.Background()
	if err := c.Set(ctx, "stale", []byte("x"), cache.NoExpiration); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	count, err := svc.Reindex(ctx)
	if err != nil {
		t.Fatalf("reindex failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 items considered (drafts included), got %d", count)
	}
	if _, found, _ := c.Get(ctx, "stale"); found {
		t.Error("reindex should have cleared pre-existing entries")
	}
	if state := svc.ReindexState(); state != StateIdle {
		t.Errorf("expected idle state after reindex, got %s", state)
	}
}

// TestInvalidateContentDropsSearchEntries: a content change clears the
// item's own entries, the memoized payloads and the rendered responses,
// leaving unrelated items alone.
func TestInvalidateContentDropsSearchEntries(t *testing.T) {
	svc, _, c := newTestService(nil)
	ctx := context.Background()

	doomed := []string{
		"content:42:rendered",
		"memo_search_aaaa",
		"view_" + ViewCacheName + "_bbbb",
	}
	for _, key := range doomed {
		if err := c.Set(ctx, key, []byte("x"), cache.NoExpiration); err != nil {
			t.Fatalf("set %q failed: %v", key, err)
		}
	}
	c.Set(ctx, "content:7:rendered", []byte("y"), cache.NoExpiration)

	if err := svc.InvalidateContent(ctx, "42"); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}

	for _, key := range doomed {
		if _, found, _ := c.Get(ctx, key); found {
			t.Errorf("%q should be invalidated", key)
		}
	}
	if _, found, _ := c.Get(ctx, "content:7:rendered"); !found {
		t.Error("other items' entries should survive")
	}
}

// blockingSource parks ListContentItems until released, so a test can
// hold a reindex pass open.
type blockingSource struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingSource) ListContentItems(ctx context.Context, visibleOnly bool) ([]models.ContentItem, error) {
	select {
	case b.entered <- struct{}{}:
	default:
	}
	<-b.release
	return nil, nil
}

// TestReindexNotReentrant: a second reindex while one runs fails fast
// instead of interleaving with it.
func TestReindexNotReentrant(t *testing.T) {
	source := &blockingSource{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	c := cache.New(cache.NewMemory(), "test_", time.Minute)
	svc := New(source, c, nil)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Reindex(context.Background())
		done <- err
	}()
	<-source.entered // first pass is inside its warm-up queries

	if _, err := svc.Reindex(context.Background()); !errors.Is(err, ErrReindexRunning) {
		t.Errorf("expected ErrReindexRunning for overlapping reindex, got %v", err)
	}

	close(source.release)
	if err := <-done; err != nil {
		t.Fatalf("first reindex failed: %v", err)
	}
	if state := svc.ReindexState(); state != StateIdle {
		t.Errorf("expected idle after the pass finishes, got %s", state)
	}
}

// failingStore errors on every operation, simulating a dead backend.
type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, cache.ErrBackendUnavailable
}
func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return cache.ErrBackendUnavailable
}
func (failingStore) Delete(context.Context, string) error { return cache.ErrBackendUnavailable }
func (failingStore) Clear(context.Context) error          { return cache.ErrBackendUnavailable }
func (failingStore) Keys(context.Context) ([]string, error) {
	return nil, cache.ErrBackendUnavailable
}
func (failingStore) DeletePattern(context.Context, string) (int, error) {
	return 0, cache.ErrBackendUnavailable
}
func (failingStore) Ping(context.Context) error { return cache.ErrBackendUnavailable }
func (failingStore) Name() string               { return "failing" }
func (failingStore) Close() error               { return nil }

// TestReindexPropagatesCacheFailure surfaces clear errors to the caller
func TestReindexPropagatesCacheFailure(t *testing.T) {
	source := &fakeSource{items: []models.ContentItem{post("1", "x", "", true, time.Now())}}
	c := cache.New(failingStore{}, "test_", time.Minute)
	svc := New(source, c, nil)

	_, err := svc.Reindex(context.Background())
	if !errors.Is(err, cache.ErrBackendUnavailable) {
		t.Fatalf("expected backend error to propagate, got %v", err)
	}
	if state := svc.ReindexState(); state != StateIdle {
		t.Errorf("state should reset to idle after failure, got %s", state)
	}
}

// TestSearchSurvivesDeadCache: caching is an optimization, never a dependency
func TestSearchSurvivesDeadCache(t *testing.T) {
	source := &fakeSource{items: []models.ContentItem{post("1", "Resilient", "", true, time.Now())}}
	c := cache.New(failingStore{}, "test_", time.Minute)
	svc := New(source, c, nil)

	posts, _, err := svc.Search(context.Background(), "resilient", 0, false)
	if err != nil {
		t.Fatalf("search should fall through a dead cache, got %v", err)
	}
	if len(posts) != 1 {
		t.Errorf("expected 1 post, got %d", len(posts))
	}
}
