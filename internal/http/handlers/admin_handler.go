package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "auctionhouse/internal/log"
	"auctionhouse/internal/services"
	"auctionhouse/internal/validate"
)

type AdminHandler struct {
	Lifecycle *services.LifecycleService
	Accounts  *services.AccountService
	Reports   *services.ReportService
}

// freezeAction reads {"action": "freeze"|"unfreeze"}; an empty body means freeze.
func freezeAction(c *fiber.Ctx) (bool, bool) {
	var in struct {
		Action string `json:"action"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return false, false
		}
	}
	switch in.Action {
	case "", "freeze":
		return true, true
	case "unfreeze":
		return false, true
	}
	return false, false
}

// POST /admin/items/:id/freeze
func (h *AdminHandler) FreezeItem(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid item id")
	}
	frozen, ok := freezeAction(c)
	if !ok {
		return badRequest(c, "action must be freeze or unfreeze")
	}
	it, err := h.Lifecycle.SetFrozen(c.UserContext(), currentUser(c), id, frozen)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "admin.item.freeze", map[string]any{"item_id": id, "frozen": frozen})
	return c.JSON(it)
}

// POST /admin/users/:id/freeze
func (h *AdminHandler) FreezeUser(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid user id")
	}
	frozen, ok := freezeAction(c)
	if !ok {
		return badRequest(c, "action must be freeze or unfreeze")
	}
	u, err := h.Accounts.SetFrozen(c.UserContext(), currentUser(c), id, frozen)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "admin.user.freeze", map[string]any{"account_id": id, "frozen": frozen})
	return c.JSON(u)
}

// POST /admin/users/:id/close
func (h *AdminHandler) CloseUser(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid user id")
	}
	if err := h.Accounts.Close(c.UserContext(), currentUser(c), id); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "admin.user.close", map[string]any{"account_id": id})
	return c.JSON(fiber.Map{"closed": true})
}

// GET /admin/users
func (h *AdminHandler) Users(c *fiber.Ctx) error {
	users, err := h.Accounts.List(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"users": users})
}

// GET /admin/reports/auction
func (h *AdminHandler) AuctionReport(c *fiber.Ctx) error {
	r, err := h.Reports.Auction(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "admin.report.auction", nil)
	return c.JSON(r)
}

// GET /admin/reports/forensics
func (h *AdminHandler) ForensicsReport(c *fiber.Ctx) error {
	r, err := h.Reports.Forensics(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "admin.report.forensics", nil)
	return c.JSON(r)
}
