package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"auctionhouse/internal/domain"
	"auctionhouse/internal/events"
	"auctionhouse/internal/repos"
	"auctionhouse/internal/services"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type env struct {
	clock     *fakeClock
	items     *repos.ItemRepo
	bids      *repos.BidRepo
	users     *repos.UserRepo
	purchases *repos.PurchaseRepo
	cache     *services.ItemCache

	auth      *services.AuthService
	lifecycle *services.LifecycleService
	bidding   *services.BiddingService
	catalog   *services.CatalogService
	accounts  *services.AccountService
	reports   *services.ReportService
}

// newEnv wires services over an in-memory store with the seeded accounts
// u-admin, u-sally (seller) and u-bob (buyer, funds 100).
func newEnv(t *testing.T, pub events.Publisher) *env {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if pub == nil {
		pub = events.Nop{}
	}
	cache, err := services.NewItemCache(16)
	if err != nil {
		t.Fatal(err)
	}

	e := &env{
		clock:     &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
		items:     repos.NewItemRepo(db),
		bids:      repos.NewBidRepo(db),
		users:     repos.NewUserRepo(db),
		purchases: repos.NewPurchaseRepo(db),
		cache:     cache,
	}
	e.auth = services.NewAuthService(e.users, "test-secret", time.Hour)
	e.auth.Now = e.clock.Now
	e.lifecycle = &services.LifecycleService{
		Items: e.items, Bids: e.bids, Users: e.users, Purchases: e.purchases,
		Events: pub, Cache: cache, Now: e.clock.Now,
	}
	e.bidding = &services.BiddingService{
		Items: e.items, Bids: e.bids, Users: e.users,
		Events: pub, Cache: cache, MinIncrement: 1, Now: e.clock.Now,
	}
	e.catalog = services.NewCatalogService(e.items, cache)
	e.accounts = services.NewAccountService(e.users, e.purchases)
	e.reports = &services.ReportService{
		Items: e.items, Bids: e.bids, Users: e.users, Purchases: e.purchases,
		Rate: decimal.RequireFromString("0.05"), Now: e.clock.Now,
	}
	return e
}

func (e *env) user(t *testing.T, id string) *domain.User {
	t.Helper()
	u, err := e.users.ByID(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func (e *env) register(t *testing.T, name string, typ domain.UserType) *domain.User {
	t.Helper()
	u, err := e.auth.Register(context.Background(), name, "Passw0rd!", typ)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func simple(name string, price int64) domain.SimpleItem {
	return domain.SimpleItem{
		Name: name, Description: "a fine " + name, InitPrice: price, LengthOfAuction: 2, Images: []string{"img/" + name + ".jpg"},
	}
}

// listed creates and publishes an item owned by u-sally.
func (e *env) listed(t *testing.T, name string, price int64) domain.Item {
	t.Helper()
	ctx := context.Background()
	sally := e.user(t, "u-sally")
	it, err := e.lifecycle.Create(ctx, sally, simple(name, price))
	if err != nil {
		t.Fatal(err)
	}
	it, err = e.lifecycle.Publish(ctx, sally, it.ID)
	if err != nil {
		t.Fatal(err)
	}
	return it
}
