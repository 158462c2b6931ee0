package auth

import (
	"crypto/subtle"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Handler serves the admin sign-in endpoint. The single admin account comes
// from configuration; the password is stored as a bcrypt hash.
type Handler struct {
	username     string
	passwordHash []byte
	secret       []byte
	ttl          time.Duration
	log          *zap.Logger
}

func NewHandler(username, passwordHash string, secret []byte, log *zap.Logger) *Handler {
	return &Handler{
		username:     username,
		passwordHash: []byte(passwordHash),
		secret:       secret,
		ttl:          12 * time.Hour,
		log:          log,
	}
}

type signInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Post("/api/v1/admin/sign-in", h.signIn)
}

// Authenticate checks admin credentials.
func (h *Handler) Authenticate(username, password string) error {
	if len(h.passwordHash) == 0 {
		return ErrInvalidCredentials
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(h.username)) == 1
	if err := bcrypt.CompareHashAndPassword(h.passwordHash, []byte(password)); err != nil || !userOK {
		return ErrInvalidCredentials
	}
	return nil
}

func (h *Handler) signIn(c *fiber.Ctx) error {
	payload := new(signInRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if err := h.Authenticate(payload.Username, payload.Password); err != nil {
		h.log.Info("admin sign-in rejected", zap.String("username", payload.Username))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid username or password"})
	}

	signed, err := IssueToken(h.secret, payload.Username, RoleAdmin, h.ttl)
	if err != nil {
		h.log.Error("sign admin token", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to generate token"})
	}
	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   signed,
	})
}
