package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "auctionhouse/internal/log"
	"auctionhouse/internal/services"
)

type AccountHandler struct {
	Accounts *services.AccountService
}

// POST /account/close
func (h *AccountHandler) Close(c *fiber.Ctx) error {
	u := currentUser(c)
	if u == nil {
		return fail(c, services.ErrBadCreds)
	}
	if err := h.Accounts.Close(c.UserContext(), u, u.ID); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "account.close", map[string]any{"account_id": u.ID})
	return c.JSON(fiber.Map{"closed": true})
}
