package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/WebblyCMS/Webbly/internal/cache"
	"github.com/WebblyCMS/Webbly/internal/search"
)

// AdminHandler serves the administrative cache and reindex endpoints.
// Access is gated by a shared token in the X-Admin-Token header.
type AdminHandler struct {
	service *search.Service
	cache   *cache.Cache
	token   string
}

// NewAdminHandler creates a new admin handler. With an empty token the
// admin endpoints refuse all requests.
func NewAdminHandler(service *search.Service, c *cache.Cache, token string) *AdminHandler {
	return &AdminHandler{service: service, cache: c, token: token}
}

// RequireToken is the auth middleware for the admin route group.
func (h *AdminHandler) RequireToken(c *fiber.Ctx) error {
	if h.token == "" || c.Get("X-Admin-Token") != h.token {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "unauthorized",
		})
	}
	return c.Next()
}

// HandleReindex responds to POST /api/admin/reindex
func (h *AdminHandler) HandleReindex(c *fiber.Ctx) error {
	count, err := h.service.Reindex(c.UserContext())
	if err != nil {
		if errors.Is(err, search.ErrReindexRunning) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "reindex already in progress",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "reindex failed",
		})
	}
	return c.JSON(fiber.Map{"count": count})
}

// HandleCacheClear responds to DELETE /api/admin/cache
func (h *AdminHandler) HandleCacheClear(c *fiber.Ctx) error {
	if err := h.cache.Clear(c.UserContext()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "failed to clear cache",
		})
	}
	return c.JSON(fiber.Map{"status": "cleared"})
}

// HandleCacheInvalidate responds to DELETE /api/admin/cache/:pattern
func (h *AdminHandler) HandleCacheInvalidate(c *fiber.Ctx) error {
	raw := c.Params("pattern")
	if raw == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "pattern is required",
		})
	}

	removed, invErr := h.cache.Invalidate(c.UserContext(), raw)
	if invErr != nil {
		if errors.Is(invErr, cache.ErrNotSupported) {
			return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{
				"error": "backend cannot enumerate keys",
			})
		}
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "failed to invalidate cache",
		})
	}
	return c.JSON(fiber.Map{"removed": removed})
}
