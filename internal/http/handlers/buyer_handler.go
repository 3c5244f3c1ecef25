package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "auctionhouse/internal/log"
	"auctionhouse/internal/services"
	"auctionhouse/internal/validate"
)

type BuyerHandler struct {
	Bidding  *services.BiddingService
	Accounts *services.AccountService
}

type bidRequest struct {
	ItemID    string `json:"itemId"`
	BidAmount int64  `json:"bidAmount"`
}

// POST /buyers/:id/bids
func (h *BuyerHandler) PlaceBid(c *fiber.Ctx) error {
	var in bidRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	itemID, ok := validate.ID(in.ItemID)
	if !ok {
		return badRequest(c, "invalid item id")
	}
	if !validate.Amount(in.BidAmount) {
		return badRequest(c, "bidAmount must be between 1 and %d", validate.MaxAmount)
	}
	b, err := h.Bidding.PlaceBid(c.UserContext(), c.Params("id"), itemID, in.BidAmount)
	if err != nil {
		// logged after fail so the entry carries the response status
		ferr := fail(c, err)
		_, code := classify(err)
		applog.Info(c, "bid.rejected", map[string]any{"item_id": itemID, "amount": in.BidAmount, "code": code, "reason": err.Error()})
		return ferr
	}
	applog.Audit(c, "bid.place", map[string]any{"item_id": itemID, "bid_id": b.ID, "amount": b.Amount})
	return c.Status(fiber.StatusAccepted).JSON(b)
}

// GET /buyers/:id/active-bids
func (h *BuyerHandler) ActiveBids(c *fiber.Ctx) error {
	bids, err := h.Bidding.ActiveBids(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"bids": bids})
}

// GET /buyers/:id/purchases
func (h *BuyerHandler) Purchases(c *fiber.Ctx) error {
	ps, err := h.Accounts.Purchases(c.UserContext(), currentUser(c), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"purchases": ps})
}

// POST /buyers/:id/add-funds
func (h *BuyerHandler) AddFunds(c *fiber.Ctx) error {
	var in struct {
		Amount int64 `json:"amount"`
	}
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	funds, err := h.Accounts.AddFunds(c.UserContext(), currentUser(c), c.Params("id"), in.Amount)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "account.add_funds", map[string]any{"amount": in.Amount, "funds": funds})
	return c.JSON(fiber.Map{"funds": funds})
}
