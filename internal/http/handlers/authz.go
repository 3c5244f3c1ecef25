package handlers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"auctionhouse/internal/domain"
	"auctionhouse/internal/services"
)

func bearer(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(header[len(prefix):])
	return tok, tok != ""
}

// RequireAuth verifies the bearer token and stores the account in Locals("user").
func RequireAuth(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tok, ok := bearer(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return fail(c, fmt.Errorf("%w: missing bearer token", domain.ErrUnauthorized))
		}
		u, err := auth.Verify(c.UserContext(), tok)
		if err != nil {
			return fail(c, err)
		}
		c.Locals("user", u)
		return c.Next()
	}
}

// OptionalAuth attaches the account when a token is sent; a bad token is still rejected.
func OptionalAuth(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) == "" {
			return c.Next()
		}
		return RequireAuth(auth)(c)
	}
}

func RequireRole(types ...domain.UserType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := currentUser(c)
		if u == nil {
			return fail(c, domain.ErrUnauthorized)
		}
		for _, t := range types {
			if u.UserType == t {
				return c.Next()
			}
		}
		return fail(c, fmt.Errorf("%w: %s accounts cannot use this route", domain.ErrForbidden, u.UserType))
	}
}

// RequireSelf restricts a route to the account named by the path parameter.
func RequireSelf(param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := currentUser(c)
		if u == nil || u.ID != c.Params(param) {
			return fail(c, fmt.Errorf("%w: not your account", domain.ErrForbidden))
		}
		return c.Next()
	}
}
