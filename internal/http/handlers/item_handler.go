package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"auctionhouse/internal/domain"
	applog "auctionhouse/internal/log"
	"auctionhouse/internal/services"
	"auctionhouse/internal/validate"
)

type ItemHandler struct {
	Catalog   *services.CatalogService
	Lifecycle *services.LifecycleService
	Bidding   *services.BiddingService
}

func itemID(c *fiber.Ctx) (string, bool) {
	return validate.ID(c.Params("id"))
}

// GET /items
func (h *ItemHandler) Search(c *fiber.Ctx) error {
	var q domain.ItemQuery
	if raw := c.Query("q"); raw != "" {
		s, ok := validate.Q(raw)
		if !ok {
			return badRequest(c, "invalid search keyword")
		}
		q.Q = s
	}
	lo, set, ok := validate.Price(c.Query("minPrice"))
	if !ok {
		return badRequest(c, "invalid minPrice")
	}
	if set {
		q.Min = &lo
	}
	hi, set, ok := validate.Price(c.Query("maxPrice"))
	if !ok {
		return badRequest(c, "invalid maxPrice")
	}
	if set {
		q.Max = &hi
	}
	if q.Sort, ok = validate.Sort(c.Query("sort")); !ok {
		return badRequest(c, "sort must be date or price")
	}
	if q.Order, ok = validate.Order(c.Query("order")); !ok {
		return badRequest(c, "order must be asc or desc")
	}
	q.Limit, q.Offset = validate.Page(c.Query("limit"), c.Query("offset"))

	items, err := h.Catalog.Search(c.UserContext(), q)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"items": items, "limit": q.Limit, "offset": q.Offset})
}

// GET /items/recently-sold
func (h *ItemHandler) RecentlySold(c *fiber.Ctx) error {
	limit, _ := validate.Page(c.Query("limit"), "")
	items, err := h.Catalog.RecentlySold(c.UserContext(), limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"items": items})
}

// GET /items/:id
func (h *ItemHandler) Detail(c *fiber.Ctx) error {
	id, ok := itemID(c)
	if !ok {
		return badRequest(c, "invalid item id")
	}
	it, err := h.Catalog.Detail(c.UserContext(), currentUser(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(it)
}

// GET /items/:id/bids
func (h *ItemHandler) Bids(c *fiber.Ctx) error {
	id, ok := itemID(c)
	if !ok {
		return badRequest(c, "invalid item id")
	}
	if _, err := h.Catalog.Detail(c.UserContext(), currentUser(c), id); err != nil {
		return fail(c, err)
	}
	bids, err := h.Bidding.ItemBids(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"bids": bids})
}

// POST /items
func (h *ItemHandler) Create(c *fiber.Ctx) error {
	var in domain.SimpleItem
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	it, err := h.Lifecycle.Create(c.UserContext(), currentUser(c), in)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "item.create", map[string]any{"item_id": it.ID})
	return c.Status(fiber.StatusCreated).JSON(it)
}

// PUT /items/:id
func (h *ItemHandler) Edit(c *fiber.Ctx) error {
	id, ok := itemID(c)
	if !ok {
		return badRequest(c, "invalid item id")
	}
	var patch domain.ItemPatch
	if err := c.BodyParser(&patch); err != nil {
		return badRequest(c, "invalid body")
	}
	it, err := h.Lifecycle.Edit(c.UserContext(), currentUser(c), id, patch)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "item.edit", map[string]any{"item_id": id})
	return c.JSON(it)
}

// DELETE /items/:id
func (h *ItemHandler) Remove(c *fiber.Ctx) error {
	id, ok := itemID(c)
	if !ok {
		return badRequest(c, "invalid item id")
	}
	if err := h.Lifecycle.Remove(c.UserContext(), currentUser(c), id); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "item.remove", map[string]any{"item_id": id})
	return c.SendStatus(fiber.StatusNoContent)
}

type transitionFunc func(ctx context.Context, seller *domain.User, id string) (domain.Item, error)

// state returns a handler for one of the seller transitions.
func state(action string, do transitionFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := itemID(c)
		if !ok {
			return badRequest(c, "invalid item id")
		}
		it, err := do(c.UserContext(), currentUser(c), id)
		if err != nil {
			return fail(c, err)
		}
		applog.Audit(c, action, map[string]any{"item_id": id, "state": it.ItemState})
		return c.JSON(it)
	}
}

// POST /items/:id/publish
func (h *ItemHandler) Publish() fiber.Handler { return state("item.publish", h.Lifecycle.Publish) }

// POST /items/:id/unpublish
func (h *ItemHandler) Unpublish() fiber.Handler { return state("item.unpublish", h.Lifecycle.Unpublish) }

// POST /items/:id/archive
func (h *ItemHandler) Archive() fiber.Handler { return state("item.archive", h.Lifecycle.Archive) }

// POST /items/:id/fulfill
func (h *ItemHandler) Fulfill(c *fiber.Ctx) error {
	id, ok := itemID(c)
	if !ok {
		return badRequest(c, "invalid item id")
	}
	p, err := h.Lifecycle.Fulfill(c.UserContext(), currentUser(c), id)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "item.fulfill", map[string]any{"item_id": id, "buyer_id": p.BuyerID, "amount": p.Amount})
	return c.JSON(p)
}

// GET /sellers/:id/items
func (h *ItemHandler) SellerItems(c *fiber.Ctx) error {
	id, ok := itemID(c)
	if !ok {
		return badRequest(c, "invalid seller id")
	}
	items, err := h.Catalog.SellerItems(c.UserContext(), currentUser(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"items": items})
}
