package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"auctionhouse/internal/domain"
	applog "auctionhouse/internal/log"
)

// Limits are requests per Window, per client IP.
type Limits struct {
	Global int
	Login  int
	Bids   int
	Window time.Duration
}

var DefaultLimits = Limits{Global: 120, Login: 5, Bids: 30, Window: time.Minute}

const maxBody = 1 << 20 // 1 MiB

func limit(name string, n int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        n,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|" + name
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate."+name+".hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(ErrorBody{
				Status:    fiber.StatusTooManyRequests,
				ErrorCode: "RATE_LIMITED",
				Message:   "rate limit exceeded, retry soon",
			})
		},
	})
}

// NewApp builds the API with its middleware chain and routes.
func NewApp(d *Deps, lim Limits) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "auctionhouse",
		BodyLimit:    maxBody,
		ErrorHandler: ErrorHandler,
	})

	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(cors.New())
	app.Use(recover.New())
	if lim.Global > 0 {
		app.Use(limit("global", lim.Global, lim.Window))
	}

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	auth := RequireAuth(d.Auth)
	optional := OptionalAuth(d.Auth)
	seller := RequireRole(domain.UserSeller)
	buyer := RequireRole(domain.UserBuyer)

	loginLimit := func(c *fiber.Ctx) error { return c.Next() }
	if lim.Login > 0 {
		loginLimit = limit("login", lim.Login, lim.Window)
	}
	bidLimit := func(c *fiber.Ctx) error { return c.Next() }
	if lim.Bids > 0 {
		bidLimit = limit("bids", lim.Bids, lim.Window)
	}

	app.Post("/auth/register", loginLimit, d.AuthHandler.Register)
	app.Post("/auth/login", loginLimit, d.AuthHandler.Login)

	items := d.ItemHandler
	app.Get("/items", items.Search)
	app.Get("/items/recently-sold", items.RecentlySold)
	app.Get("/items/:id", optional, items.Detail)
	app.Get("/items/:id/bids", optional, items.Bids)
	app.Post("/items", auth, seller, items.Create)
	app.Put("/items/:id", auth, seller, items.Edit)
	app.Delete("/items/:id", auth, seller, items.Remove)
	app.Post("/items/:id/publish", auth, seller, items.Publish())
	app.Post("/items/:id/unpublish", auth, seller, items.Unpublish())
	app.Post("/items/:id/archive", auth, seller, items.Archive())
	app.Post("/items/:id/fulfill", auth, RequireRole(domain.UserSeller, domain.UserBuyer), items.Fulfill)
	app.Get("/sellers/:id/items", auth, items.SellerItems)

	buyers := d.BuyerHandler
	self := RequireSelf("id")
	app.Post("/buyers/:id/bids", auth, buyer, self, bidLimit, buyers.PlaceBid)
	app.Get("/buyers/:id/active-bids", auth, self, buyers.ActiveBids)
	app.Get("/buyers/:id/purchases", auth, buyers.Purchases)
	app.Post("/buyers/:id/add-funds", auth, buyer, self, buyers.AddFunds)

	app.Post("/account/close", auth, d.AccountHandler.Close)

	admin := app.Group("/admin", auth, RequireRole(domain.UserAdmin))
	admin.Post("/items/:id/freeze", d.AdminHandler.FreezeItem)
	admin.Post("/users/:id/freeze", d.AdminHandler.FreezeUser)
	admin.Post("/users/:id/close", d.AdminHandler.CloseUser)
	admin.Get("/users", d.AdminHandler.Users)
	admin.Get("/reports/auction", d.AdminHandler.AuctionReport)
	admin.Get("/reports/forensics", d.AdminHandler.ForensicsReport)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(ErrorBody{
			Status:    fiber.StatusNotFound,
			ErrorCode: "NOT_FOUND",
			Message:   "no route for " + c.Method() + " " + c.Path(),
		})
	})
	return app
}
