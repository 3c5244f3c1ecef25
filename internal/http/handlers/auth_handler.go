package handlers

import (
	"github.com/gofiber/fiber/v2"

	"auctionhouse/internal/domain"
	applog "auctionhouse/internal/log"
	"auctionhouse/internal/services"
	"auctionhouse/internal/validate"
)

type AuthHandler struct {
	Auth *services.AuthService
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	UserType string `json:"userType"`
}

// POST /auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var in credentials
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	username, ok := validate.Username(in.Username)
	if !ok {
		return badRequest(c, "username must be 3-32 letters, digits, dot, dash or underscore")
	}
	if !validate.Password(in.Password) {
		return badRequest(c, "password must be 8-64 chars with upper, lower, digit and symbol")
	}
	u, err := h.Auth.Register(c.UserContext(), username, in.Password, domain.UserType(in.UserType))
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "auth.register", map[string]any{"username": u.Username, "user_type": u.UserType})
	return c.Status(fiber.StatusCreated).JSON(u)
}

// POST /auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in credentials
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	username, ok := validate.Username(in.Username)
	if !ok || in.Password == "" {
		applog.Security(c, "auth.login.fail", map[string]any{"username": in.Username, "reason": "bad_format"})
		return fail(c, services.ErrBadCreds)
	}
	tok, u, err := h.Auth.Login(c.UserContext(), username, in.Password)
	if err != nil {
		applog.Security(c, "auth.login.fail", map[string]any{"username": username})
		return fail(c, err)
	}
	c.Locals("user", u)
	applog.Audit(c, "auth.login.success", map[string]any{"username": username})
	return c.JSON(fiber.Map{"token": tok, "user": u})
}
