package order

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/cafe-order-backend/internal/auth"
)

// Handler serves a customer's own orders and the admin order board.
type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Get("/api/v1/orders", h.getOrders)
	app.Get("/api/v1/orders/:id", h.getOrder)

	admin := app.Group("/api/v1/admin/orders", auth.RequireAdmin())
	admin.Get("/", h.listAll)
	admin.Get("/:id", h.adminGetOrder)
	admin.Patch("/:id/status", h.updateStatus)
}

type statusRequest struct {
	Status string `json:"status"`
}

func errorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "order not found"})
	case errors.Is(err, ErrInvalidStatus):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid status"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "system error"})
	}
}

// getOrders returns the authenticated customer's orders, newest first.
func (h *Handler) getOrders(c *fiber.Ctx) error {
	customerID, err := auth.CustomerIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	orders, err := h.service.ListByCustomer(c.UserContext(), customerID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(orders)
}

func (h *Handler) getOrder(c *fiber.Ctx) error {
	customerID, err := auth.CustomerIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	ord, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	// other customers' orders are reported as missing
	if ord.CustomerID != customerID {
		return errorResponse(c, ErrNotFound)
	}
	return c.JSON(ord)
}

// listAll returns every order, optionally filtered with ?status=.
func (h *Handler) listAll(c *fiber.Ctx) error {
	var status Status
	if raw := c.Query("status"); raw != "" {
		s, err := ParseStatus(raw)
		if err != nil {
			return errorResponse(c, err)
		}
		status = s
	}
	orders, err := h.service.List(c.UserContext(), status)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(orders)
}

func (h *Handler) adminGetOrder(c *fiber.Ctx) error {
	ord, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(ord)
}

func (h *Handler) updateStatus(c *fiber.Ctx) error {
	payload := new(statusRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	ord, err := h.service.UpdateStatus(c.UserContext(), c.Params("id"), payload.Status)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(ord)
}
