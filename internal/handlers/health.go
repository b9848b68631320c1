package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/WebblyCMS/Webbly/internal/cache"
	"github.com/WebblyCMS/Webbly/internal/search"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	cache   *cache.Cache
	service *search.Service
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(c *cache.Cache, service *search.Service) *HealthHandler {
	return &HealthHandler{cache: c, service: service}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	cacheStatus := "ok"
	if err := h.cache.Ping(c.UserContext()); err != nil {
		cacheStatus = "unavailable"
	}

	return c.JSON(fiber.Map{
		"status":        "healthy",
		"cache_backend": h.cache.Backend(),
		"cache":         cacheStatus,
		"reindex_state": h.service.ReindexState(),
		"timestamp":     time.Now().Format(time.RFC3339),
	})
}
