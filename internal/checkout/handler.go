package checkout

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/cafe-order-backend/internal/auth"
	"github.com/wichananm65/cafe-order-backend/internal/order"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Post("/api/v1/checkout", h.checkout)
}

type checkoutRequest struct {
	DisplayName string `json:"display_name"`
	Phone       string `json:"phone"`
	ContactInfo string `json:"contact_info"`
	Notes       string `json:"notes"`
}

func (h *Handler) checkout(c *fiber.Ctx) error {
	customerID, err := auth.CustomerIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	payload := new(checkoutRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	ord, err := h.service.Finalize(c.UserContext(), customerID, Customer{
		DisplayName: payload.DisplayName,
		Phone:       payload.Phone,
		ContactInfo: payload.ContactInfo,
		Notes:       payload.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, order.ErrEmptyCart):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "cart empty"})
		case errors.Is(err, ErrContactConflict):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
		case errors.Is(err, order.ErrInvalidQuantity):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid quantity"})
		case errors.Is(err, ErrInProgress):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "system error"})
		}
	}
	return c.Status(fiber.StatusCreated).JSON(ord)
}
