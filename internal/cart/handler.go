package cart

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/cafe-order-backend/internal/auth"
	"go.uber.org/zap"
)

// Handler exposes the signed-in customer's cart.
type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(s *Service, log *zap.Logger) *Handler {
	return &Handler{service: s, log: log}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Get("/api/v1/cart", h.getCart)
	app.Delete("/api/v1/cart", h.clearCart)
	app.Post("/api/v1/cart/items", h.addItem)
	app.Put("/api/v1/cart/items/:itemID", h.setQuantity)
	app.Delete("/api/v1/cart/items/:itemID", h.removeItem)
}

type addRequest struct {
	ItemID   string `json:"item_id"`
	Quantity *int   `json:"quantity,omitempty"`
}

type setRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrItemNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "item unavailable"})
	case errors.Is(err, ErrCartFull):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "cart full"})
	case errors.Is(err, ErrInvalidQuantity):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid quantity"})
	case errors.Is(err, ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "cart busy, try again"})
	}
	h.log.Error("cart operation failed", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "system error"})
}

// respond writes the updated cart view.
func (h *Handler) respond(c *fiber.Ctx, customerID string) error {
	v, err := h.service.View(c.UserContext(), customerID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(v)
}

func (h *Handler) getCart(c *fiber.Ctx) error {
	customerID, err := auth.CustomerIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	return h.respond(c, customerID)
}

func (h *Handler) clearCart(c *fiber.Ctx) error {
	customerID, err := auth.CustomerIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	if err := h.service.Clear(c.UserContext(), customerID); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) addItem(c *fiber.Ctx) error {
	customerID, err := auth.CustomerIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	payload := new(addRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if payload.ItemID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid item_id"})
	}
	delta := 1
	if payload.Quantity != nil {
		delta = *payload.Quantity
	}
	if _, err := h.service.Add(c.UserContext(), customerID, payload.ItemID, delta); err != nil {
		return h.fail(c, err)
	}
	return h.respond(c, customerID)
}

func (h *Handler) setQuantity(c *fiber.Ctx) error {
	customerID, err := auth.CustomerIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	payload := new(setRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if err := h.service.SetQuantity(c.UserContext(), customerID, c.Params("itemID"), payload.Quantity); err != nil {
		return h.fail(c, err)
	}
	return h.respond(c, customerID)
}

func (h *Handler) removeItem(c *fiber.Ctx) error {
	customerID, err := auth.CustomerIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	if err := h.service.Remove(c.UserContext(), customerID, c.Params("itemID")); err != nil {
		return h.fail(c, err)
	}
	return h.respond(c, customerID)
}
