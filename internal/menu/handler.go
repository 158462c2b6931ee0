package menu

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Get("/api/v1/menu", h.list)
	app.Get("/api/v1/menu/categories", h.categories)
	app.Get("/api/v1/menu/:id", h.get)
}

// list returns the menu, optionally filtered with ?category=.
func (h *Handler) list(c *fiber.Ctx) error {
	items, err := h.service.List(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "menu unavailable"})
	}
	if cat := c.Query("category"); cat != "" {
		filtered := make([]Item, 0, len(items))
		for _, it := range items {
			if it.Category == cat {
				filtered = append(filtered, it)
			}
		}
		items = filtered
	}
	return c.JSON(items)
}

func (h *Handler) categories(c *fiber.Ctx) error {
	cats, err := h.service.Categories(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "menu unavailable"})
	}
	return c.JSON(cats)
}

func (h *Handler) get(c *fiber.Ctx) error {
	it, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "item not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "menu unavailable"})
	}
	return c.JSON(it)
}
