package handlers

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"auctionhouse/internal/config"
	"auctionhouse/internal/events"
	"auctionhouse/internal/repos"
	"auctionhouse/internal/services"
)

type Deps struct {
	Auth      *services.AuthService
	Lifecycle *services.LifecycleService
	Bidding   *services.BiddingService
	Catalog   *services.CatalogService
	Accounts  *services.AccountService
	Reports   *services.ReportService

	AuthHandler    *AuthHandler
	ItemHandler    *ItemHandler
	BuyerHandler   *BuyerHandler
	AccountHandler *AccountHandler
	AdminHandler   *AdminHandler
}

func NewDeps(db *sqlx.DB, cfg config.Config, pub events.Publisher) (*Deps, error) {
	if pub == nil {
		pub = events.Nop{}
	}
	itemRepo := repos.NewItemRepo(db)
	bidRepo := repos.NewBidRepo(db)
	userRepo := repos.NewUserRepo(db)
	purchaseRepo := repos.NewPurchaseRepo(db)

	cache, err := services.NewItemCache(cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("item cache: %w", err)
	}

	authSvc := services.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTTTL)
	lifecycleSvc := &services.LifecycleService{
		Items: itemRepo, Bids: bidRepo, Users: userRepo, Purchases: purchaseRepo,
		Events: pub, Cache: cache,
	}
	biddingSvc := &services.BiddingService{
		Items: itemRepo, Bids: bidRepo, Users: userRepo,
		Events: pub, Cache: cache, MinIncrement: cfg.MinIncrement,
	}
	catalogSvc := services.NewCatalogService(itemRepo, cache)
	accountSvc := services.NewAccountService(userRepo, purchaseRepo)
	reportSvc := &services.ReportService{
		Items: itemRepo, Bids: bidRepo, Users: userRepo, Purchases: purchaseRepo,
		Rate: decimal.NewFromFloat(cfg.CommissionRate),
	}

	return &Deps{
		Auth:      authSvc,
		Lifecycle: lifecycleSvc,
		Bidding:   biddingSvc,
		Catalog:   catalogSvc,
		Accounts:  accountSvc,
		Reports:   reportSvc,

		AuthHandler:    &AuthHandler{Auth: authSvc},
		ItemHandler:    &ItemHandler{Catalog: catalogSvc, Lifecycle: lifecycleSvc, Bidding: biddingSvc},
		BuyerHandler:   &BuyerHandler{Bidding: biddingSvc, Accounts: accountSvc},
		AccountHandler: &AccountHandler{Accounts: accountSvc},
		AdminHandler:   &AdminHandler{Lifecycle: lifecycleSvc, Accounts: accountSvc, Reports: reportSvc},
	}, nil
}
