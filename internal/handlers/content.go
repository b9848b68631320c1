package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/WebblyCMS/Webbly/internal/database"
	"github.com/WebblyCMS/Webbly/internal/models"
	"github.com/WebblyCMS/Webbly/internal/search"
)

// ContentHandler serves content CRUD. Mutations invalidate the cache
// entries tied to the touched item so stale search results don't linger
// for the full memoization window.
type ContentHandler struct {
	store   *database.DB
	service *search.Service
}

// NewContentHandler creates a new content handler
func NewContentHandler(store *database.DB, service *search.Service) *ContentHandler {
	return &ContentHandler{store: store, service: service}
}

// HandleList responds to GET /api/content?drafts=
func (h *ContentHandler) HandleList(c *fiber.Ctx) error {
	visibleOnly := c.Query("drafts") != "true"
	items, err := h.store.ListContentItems(c.UserContext(), visibleOnly)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list content",
		})
	}
	if items == nil {
		items = []models.ContentItem{}
	}
	return c.JSON(fiber.Map{"items": items, "count": len(items)})
}

// HandleGet responds to GET /api/content/:id
func (h *ContentHandler) HandleGet(c *fiber.Ctx) error {
	item, err := h.store.GetContent(c.UserContext(), c.Params("id"))
	if err != nil {
		return contentError(c, err)
	}
	return c.JSON(item)
}

// HandleCreate responds to POST /api/content
func (h *ContentHandler) HandleCreate(c *fiber.Ctx) error {
	var item models.ContentItem
	if err := c.BodyParser(&item); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid content payload",
		})
	}
	if item.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "title is required",
		})
	}

	created, err := h.store.CreateContent(c.UserContext(), item)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create content",
		})
	}

	h.invalidate(c, created.ID)
	return c.Status(fiber.StatusCreated).JSON(created)
}

// HandleUpdate responds to PUT /api/content/:id
func (h *ContentHandler) HandleUpdate(c *fiber.Ctx) error {
	var item models.ContentItem
	if err := c.BodyParser(&item); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid content payload",
		})
	}
	item.ID = c.Params("id")

	// Fields absent from the payload keep their stored values.
	existing, err := h.store.GetContent(c.UserContext(), item.ID)
	if err != nil {
		return contentError(c, err)
	}
	if item.Kind == "" {
		item.Kind = existing.Kind
	}
	if item.Slug == "" {
		item.Slug = existing.Slug
	}

	updated, err := h.store.UpdateContent(c.UserContext(), item)
	if err != nil {
		return contentError(c, err)
	}

	h.invalidate(c, updated.ID)
	return c.JSON(updated)
}

// HandleDelete responds to DELETE /api/content/:id
func (h *ContentHandler) HandleDelete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.store.DeleteContent(c.UserContext(), id); err != nil {
		return contentError(c, err)
	}

	h.invalidate(c, id)
	return c.SendStatus(fiber.StatusNoContent)
}

// invalidate drops the cache entries for one item. Failure is logged by
// the cache layer and not surfaced; the write already succeeded and
// stale entries expire on their own TTL anyway.
func (h *ContentHandler) invalidate(c *fiber.Ctx, id string) {
	_ = h.service.InvalidateContent(c.UserContext(), id)
}

func contentError(c *fiber.Ctx, err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "content not found",
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "content operation failed",
	})
}
