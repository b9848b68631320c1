package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/WebblyCMS/Webbly/internal/cache"
	"github.com/WebblyCMS/Webbly/internal/database"
	"github.com/WebblyCMS/Webbly/internal/models"
	"github.com/WebblyCMS/Webbly/internal/search"
)

// searchResponse is the payload for one search request.
type searchResponse struct {
	Query string                `json:"query"`
	Posts []models.SearchResult `json:"posts"`
	Pages []models.SearchResult `json:"pages"`
}

// SearchHandler serves the public search and related-content endpoints.
type SearchHandler struct {
	service       *search.Service
	store         *database.DB
	excerptLength int

	cachedSearch func(context.Context, map[string]string) (searchResponse, error)
}

// NewSearchHandler creates a new search handler. Responses are
// view-cached with the request's query parameters folded into the key.
func NewSearchHandler(service *search.Service, store *database.DB, c *cache.Cache, excerptLength int) *SearchHandler {
	h := &SearchHandler{
		service:       service,
		store:         store,
		excerptLength: excerptLength,
	}
	h.cachedSearch = cache.CachedView(c, search.ViewCacheName, 5*time.Minute, h.performSearch)
	return h
}

// HandleSearch responds to GET /api/search?q=&limit=&drafts=
func (h *SearchHandler) HandleSearch(c *fiber.Ctx) error {
	params := map[string]string{
		"q":      c.Query("q"),
		"limit":  c.Query("limit"),
		"drafts": c.Query("drafts"),
	}

	response, err := h.cachedSearch(c.UserContext(), params)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "search failed",
		})
	}
	return c.JSON(response)
}

func (h *SearchHandler) performSearch(ctx context.Context, params map[string]string) (searchResponse, error) {
	query := params["q"]
	limit, _ := strconv.Atoi(params["limit"])
	drafts, _ := strconv.ParseBool(params["drafts"])

	posts, pages, err := h.service.Search(ctx, query, limit, drafts)
	if err != nil {
		return searchResponse{}, err
	}

	return searchResponse{
		Query: query,
		Posts: h.renderResults(posts, query),
		Pages: h.renderResults(pages, query),
	}, nil
}

func (h *SearchHandler) renderResults(items []models.ContentItem, query string) []models.SearchResult {
	results := make([]models.SearchResult, 0, len(items))
	for _, item := range items {
		excerpt := search.BuildExcerpt(item.Body, query, h.excerptLength)
		results = append(results, models.SearchResult{
			Item:      item,
			Excerpt:   excerpt.Text,
			Truncated: excerpt.Truncated,
			Title:     search.Highlight(item.Title, query),
		})
	}
	return results
}

// HandleRelated responds to GET /api/content/:id/related?limit=
func (h *SearchHandler) HandleRelated(c *fiber.Ctx) error {
	item, err := h.store.GetContent(c.UserContext(), c.Params("id"))
	if err != nil {
		if err == database.ErrNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "content not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load content",
		})
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	related, err := h.service.Related(c.UserContext(), item, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to rank related content",
		})
	}

	return c.JSON(fiber.Map{
		"id":      item.ID,
		"related": related,
	})
}
