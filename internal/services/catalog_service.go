package services

import (
	"context"
	"fmt"

	"auctionhouse/internal/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type CatalogService struct {
	Items ItemStore
	Cache *ItemCache
}

func NewCatalogService(items ItemStore, cache *ItemCache) *CatalogService {
	return &CatalogService{Items: items, Cache: cache}
}

func (s *CatalogService) Search(ctx context.Context, q domain.ItemQuery) ([]domain.Item, error) {
	if q.Limit <= 0 {
		q.Limit = defaultPageSize
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Min != nil && q.Max != nil && *q.Min > *q.Max {
		return nil, fmt.Errorf("%w: minPrice above maxPrice", domain.ErrValidation)
	}
	return s.Items.Search(ctx, q)
}

// publicState is what anonymous viewers may see.
func publicState(it domain.Item) bool {
	if it.Frozen {
		return false
	}
	switch it.ItemState {
	case domain.ItemActive, domain.ItemCompleted, domain.ItemFailed:
		return true
	}
	return false
}

// Detail returns an item through the LRU. Owners and admins see every state;
// everybody else gets NotFound for drafts, archived and frozen items.
func (s *CatalogService) Detail(ctx context.Context, viewer *domain.User, id string) (domain.Item, error) {
	it, ok := s.Cache.Get(id)
	if !ok {
		gen := s.Cache.Generation(id)
		var err error
		if it, err = s.Items.Get(ctx, id); err != nil {
			return domain.Item{}, err
		}
		s.Cache.AddIf(it, gen)
	}
	if publicState(it) {
		return it, nil
	}
	if viewer != nil && (viewer.ID == it.SellerID || viewer.UserType == domain.UserAdmin) {
		return it, nil
	}
	return domain.Item{}, fmt.Errorf("%w: item %s", domain.ErrNotFound, id)
}

func (s *CatalogService) RecentlySold(ctx context.Context, limit int) ([]domain.Item, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	return s.Items.RecentlySold(ctx, limit)
}

func (s *CatalogService) SellerItems(ctx context.Context, viewer *domain.User, sellerID string) ([]domain.Item, error) {
	if viewer == nil || (viewer.ID != sellerID && viewer.UserType != domain.UserAdmin) {
		return nil, fmt.Errorf("%w: not your listing", domain.ErrForbidden)
	}
	return s.Items.BySeller(ctx, sellerID)
}
