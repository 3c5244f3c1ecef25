package services

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"auctionhouse/internal/domain"
	"auctionhouse/internal/repos"
)

// Store contracts; the sqlx repos implement them.

type ItemStore interface {
	Create(ctx context.Context, it domain.Item) error
	Get(ctx context.Context, id string) (domain.Item, error)
	Update(ctx context.Context, it domain.Item) error
	Delete(ctx context.Context, id, sellerID string) error
	Publish(ctx context.Context, id, sellerID string, start, end time.Time) error
	Unpublish(ctx context.Context, id, sellerID string) error
	Archive(ctx context.Context, id, sellerID string) error
	SetFrozen(ctx context.Context, id string, frozen bool) error
	CloseExpired(ctx context.Context, now time.Time) ([]repos.Closed, error)
	Search(ctx context.Context, q domain.ItemQuery) ([]domain.Item, error)
	RecentlySold(ctx context.Context, limit int) ([]domain.Item, error)
	BySeller(ctx context.Context, sellerID string) ([]domain.Item, error)
	All(ctx context.Context) ([]domain.Item, error)
}

type BidStore interface {
	Place(ctx context.Context, b domain.Bid, prevBidID string, pastBids []string) error
	Get(ctx context.Context, id string) (domain.Bid, error)
	ByItem(ctx context.Context, itemID string) ([]domain.Bid, error)
	ActiveByBidder(ctx context.Context, bidderID string) ([]domain.Bid, error)
	All(ctx context.Context) ([]domain.Bid, error)
}

type UserStore interface {
	ByID(ctx context.Context, id string) (*domain.User, error)
	ByUsername(ctx context.Context, username string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	AddFunds(ctx context.Context, id string, amount int64) (int64, error)
	SetFrozen(ctx context.Context, id string, frozen bool) error
	Close(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.User, error)
}

type PurchaseStore interface {
	Fulfill(ctx context.Context, p domain.Purchase, now time.Time) error
	ByBuyer(ctx context.Context, buyerID string) ([]domain.Purchase, error)
	All(ctx context.Context) ([]domain.Purchase, error)
}

// ItemCache is the LRU in front of item detail reads. A nil cache is a no-op.
//
// Every Invalidate bumps a generation for the id's stripe. A reader takes
// Generation before loading from the store and fills through AddIf, so a load
// that raced a write is never cached over the invalidation.
type ItemCache struct {
	lru  *lru.Cache
	mu   sync.Mutex
	gens [cacheStripes]uint64
}

const cacheStripes = 64

func NewItemCache(size int) (*ItemCache, error) {
	if size <= 0 {
		return nil, nil
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &ItemCache{lru: c}, nil
}

func stripe(id string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return int(h.Sum32() % cacheStripes)
}

func (c *ItemCache) Get(id string) (domain.Item, bool) {
	if c == nil {
		return domain.Item{}, false
	}
	v, ok := c.lru.Get(id)
	if !ok {
		return domain.Item{}, false
	}
	return v.(domain.Item), true
}

// Generation is the token AddIf checks against.
func (c *ItemCache) Generation(id string) uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[stripe(id)]
}

// AddIf caches it unless its id was invalidated after gen was taken.
func (c *ItemCache) AddIf(it domain.Item, gen uint64) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[stripe(it.ID)] != gen {
		return false
	}
	c.lru.Add(it.ID, it)
	return true
}

func (c *ItemCache) Invalidate(id string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.gens[stripe(id)]++
	c.lru.Remove(id)
	c.mu.Unlock()
}

func (c *ItemCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

func clock(now func() time.Time) time.Time {
	if now != nil {
		return now().UTC()
	}
	return time.Now().UTC()
}
