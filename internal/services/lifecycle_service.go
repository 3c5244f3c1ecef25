package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"auctionhouse/internal/domain"
	"auctionhouse/internal/events"
	"auctionhouse/internal/repos"
	"auctionhouse/internal/validate"
)

// LifecycleService owns item state transitions. Every transition is a single
// conditional write in the store; a lost race surfaces as ErrConditionFailed.
type LifecycleService struct {
	Items     ItemStore
	Bids      BidStore
	Users     UserStore
	Purchases PurchaseStore
	Events    events.Publisher
	Cache     *ItemCache
	Now       func() time.Time
}

func (s *LifecycleService) emit(ctx context.Context, e events.Event) {
	if s.Events != nil {
		_ = s.Events.Publish(ctx, e)
	}
}

// checkSimple validates a create payload and returns its normalised form.
func checkSimple(in domain.SimpleItem) (domain.SimpleItem, error) {
	var ok bool
	if in.Name, ok = validate.ItemName(in.Name); !ok {
		return in, fmt.Errorf("%w: name is required (max 100 chars)", domain.ErrValidation)
	}
	if in.Description, ok = validate.Description(in.Description); !ok {
		return in, fmt.Errorf("%w: description is required (max 2000 chars)", domain.ErrValidation)
	}
	if !validate.Amount(in.InitPrice) {
		return in, fmt.Errorf("%w: initPrice must be between 1 and %d", domain.ErrValidation, validate.MaxAmount)
	}
	if in.LengthOfAuction < 1 {
		return in, fmt.Errorf("%w: lengthOfAuction must be at least 1 day", domain.ErrValidation)
	}
	if in.Images, ok = validate.Images(in.Images); !ok {
		return in, fmt.Errorf("%w: at least one valid image reference is required", domain.ErrValidation)
	}
	return in, nil
}

func checkPatch(p domain.ItemPatch) (domain.ItemPatch, error) {
	if p.Name != nil {
		v, ok := validate.ItemName(*p.Name)
		if !ok {
			return p, fmt.Errorf("%w: invalid name", domain.ErrValidation)
		}
		p.Name = &v
	}
	if p.Description != nil {
		v, ok := validate.Description(*p.Description)
		if !ok {
			return p, fmt.Errorf("%w: invalid description", domain.ErrValidation)
		}
		p.Description = &v
	}
	if p.InitPrice != nil && !validate.Amount(*p.InitPrice) {
		return p, fmt.Errorf("%w: initPrice must be between 1 and %d", domain.ErrValidation, validate.MaxAmount)
	}
	if p.LengthOfAuction != nil && *p.LengthOfAuction < 1 {
		return p, fmt.Errorf("%w: lengthOfAuction must be at least 1 day", domain.ErrValidation)
	}
	if p.Images != nil {
		v, ok := validate.Images(*p.Images)
		if !ok {
			return p, fmt.Errorf("%w: invalid images", domain.ErrValidation)
		}
		p.Images = &v
	}
	return p, nil
}

func requireSeller(u *domain.User) error {
	if u == nil || u.UserType != domain.UserSeller {
		return fmt.Errorf("%w: sellers only", domain.ErrForbidden)
	}
	if !u.CanTransact() {
		return fmt.Errorf("%w: account is frozen or closed", domain.ErrFrozen)
	}
	return nil
}

func (s *LifecycleService) Create(ctx context.Context, seller *domain.User, in domain.SimpleItem) (domain.Item, error) {
	if err := requireSeller(seller); err != nil {
		return domain.Item{}, err
	}
	in, err := checkSimple(in)
	if err != nil {
		return domain.Item{}, err
	}
	now := clock(s.Now)
	it := domain.ItemFromSimple(in)
	it.ID = uuid.NewString()
	it.SellerID = seller.ID
	it.CreatedAt = now
	it.StartDate = now
	it.EndDate = now.Add(domain.AuctionLength(it.LengthOfAuction))
	it.PastBids = []string{}
	if err := s.Items.Create(ctx, it); err != nil {
		return domain.Item{}, err
	}
	return it, nil
}

// owned loads an item and checks the caller owns it.
func (s *LifecycleService) owned(ctx context.Context, seller *domain.User, id string) (domain.Item, error) {
	it, err := s.Items.Get(ctx, id)
	if err != nil {
		return domain.Item{}, err
	}
	if seller == nil || it.SellerID != seller.ID {
		return domain.Item{}, fmt.Errorf("%w: not the owner of item %s", domain.ErrForbidden, id)
	}
	return it, nil
}

func (s *LifecycleService) Edit(ctx context.Context, seller *domain.User, id string, patch domain.ItemPatch) (domain.Item, error) {
	it, err := s.owned(ctx, seller, id)
	if err != nil {
		return domain.Item{}, err
	}
	if it.ItemState != domain.ItemInactive {
		return domain.Item{}, fmt.Errorf("%w: item is %s", domain.ErrInvalidState, it.ItemState)
	}
	if it.Frozen {
		return domain.Item{}, fmt.Errorf("%w: item is frozen", domain.ErrFrozen)
	}
	patch, err = checkPatch(patch)
	if err != nil {
		return domain.Item{}, err
	}
	patch.Apply(&it)
	if err := s.Items.Update(ctx, it); err != nil {
		return domain.Item{}, err
	}
	s.Cache.Invalidate(id)
	return it, nil
}

func (s *LifecycleService) Remove(ctx context.Context, seller *domain.User, id string) error {
	it, err := s.owned(ctx, seller, id)
	if err != nil {
		return err
	}
	if it.ItemState != domain.ItemInactive {
		return fmt.Errorf("%w: item is %s", domain.ErrInvalidState, it.ItemState)
	}
	if err := s.Items.Delete(ctx, id, seller.ID); err != nil {
		return err
	}
	s.Cache.Invalidate(id)
	return nil
}

// transition runs one conditional state change and re-reads the item.
// Ownership and prior state are part of the store condition, not pre-checked here.
func (s *LifecycleService) transition(ctx context.Context, seller *domain.User, id string, typ string, to domain.ItemState, write func(before domain.Item) error) (domain.Item, error) {
	before, err := s.Items.Get(ctx, id)
	if err != nil {
		return domain.Item{}, err
	}
	if seller == nil {
		return domain.Item{}, domain.ErrUnauthorized
	}
	if err := write(before); err != nil {
		if errors.Is(err, domain.ErrConditionFailed) {
			return domain.Item{}, fmt.Errorf("%w: cannot move item %s from %s to %s", err, id, before.ItemState, to)
		}
		return domain.Item{}, err
	}
	s.Cache.Invalidate(id)
	s.emit(ctx, events.Transition(typ, id, seller.ID, string(before.ItemState), string(to)))
	return s.Items.Get(ctx, id)
}

// Publish opens the auction; the window starts now and lasts lengthOfAuction days.
func (s *LifecycleService) Publish(ctx context.Context, seller *domain.User, id string) (domain.Item, error) {
	if err := requireSeller(seller); err != nil {
		return domain.Item{}, err
	}
	return s.transition(ctx, seller, id, events.ItemPublished, domain.ItemActive, func(before domain.Item) error {
		start := clock(s.Now)
		return s.Items.Publish(ctx, id, seller.ID, start, start.Add(domain.AuctionLength(before.LengthOfAuction)))
	})
}

func (s *LifecycleService) Unpublish(ctx context.Context, seller *domain.User, id string) (domain.Item, error) {
	return s.transition(ctx, seller, id, events.ItemUnpublished, domain.ItemInactive, func(domain.Item) error {
		return s.Items.Unpublish(ctx, id, seller.ID)
	})
}

func (s *LifecycleService) Archive(ctx context.Context, seller *domain.User, id string) (domain.Item, error) {
	return s.transition(ctx, seller, id, events.ItemArchived, domain.ItemArchived, func(domain.Item) error {
		return s.Items.Archive(ctx, id, seller.ID)
	})
}

// CloseExpired settles auctions past their end date. Run by the Closer.
func (s *LifecycleService) CloseExpired(ctx context.Context) ([]repos.Closed, error) {
	closed, err := s.Items.CloseExpired(ctx, clock(s.Now))
	if err != nil {
		return nil, err
	}
	for _, c := range closed {
		s.Cache.Invalidate(c.ItemID)
		typ := events.ItemFailed
		if c.State == domain.ItemCompleted {
			typ = events.ItemCompleted
		}
		e := events.Transition(typ, c.ItemID, "", string(domain.ItemActive), string(c.State))
		e.BidID = c.SoldBidID
		s.emit(ctx, e)
	}
	return closed, nil
}

// Fulfill records the sale of a completed item and debits the winning buyer.
// The caller must be the owning seller or the winning buyer.
func (s *LifecycleService) Fulfill(ctx context.Context, caller *domain.User, id string) (domain.Purchase, error) {
	it, err := s.Items.Get(ctx, id)
	if err != nil {
		return domain.Purchase{}, err
	}
	now := clock(s.Now)
	switch {
	case it.ItemState != domain.ItemCompleted || it.SoldBidID == "":
		return domain.Purchase{}, fmt.Errorf("%w: item %s has no winning bid to fulfill", domain.ErrInvalidState, id)
	case it.SoldTime != nil:
		return domain.Purchase{}, fmt.Errorf("%w: item %s already fulfilled", domain.ErrInvalidState, id)
	case now.Before(it.EndDate):
		return domain.Purchase{}, fmt.Errorf("%w: auction for %s has not ended", domain.ErrInvalidState, id)
	}

	win, err := s.Bids.Get(ctx, it.SoldBidID)
	if err != nil {
		return domain.Purchase{}, err
	}
	if caller == nil || (caller.ID != it.SellerID && caller.ID != win.BidderID) {
		return domain.Purchase{}, fmt.Errorf("%w: only the seller or winning buyer can fulfill", domain.ErrForbidden)
	}
	buyer, err := s.Users.ByID(ctx, win.BidderID)
	if err != nil {
		return domain.Purchase{}, err
	}
	if !buyer.CanTransact() {
		return domain.Purchase{}, fmt.Errorf("%w: buyer account is frozen or closed", domain.ErrFrozen)
	}
	if buyer.Funds < win.Amount {
		return domain.Purchase{}, fmt.Errorf("%w: buyer has %d, sale is %d", domain.ErrInsufficientFunds, buyer.Funds, win.Amount)
	}

	p := domain.Purchase{
		ID:          uuid.NewString(),
		BuyerID:     win.BidderID,
		ItemID:      it.ID,
		BidID:       win.ID,
		ItemName:    it.Name,
		Amount:      win.Amount,
		PurchasedAt: now,
	}
	if err := s.Purchases.Fulfill(ctx, p, now); err != nil {
		return domain.Purchase{}, err
	}
	s.Cache.Invalidate(id)
	e := events.New(events.ItemFulfilled, id, caller.ID)
	e.BidID, e.Amount = win.ID, win.Amount
	s.emit(ctx, e)
	return p, nil
}

// SetFrozen is the admin freeze/unfreeze of an item.
func (s *LifecycleService) SetFrozen(ctx context.Context, admin *domain.User, id string, frozen bool) (domain.Item, error) {
	if admin == nil || admin.UserType != domain.UserAdmin {
		return domain.Item{}, fmt.Errorf("%w: admins only", domain.ErrForbidden)
	}
	if err := s.Items.SetFrozen(ctx, id, frozen); err != nil {
		return domain.Item{}, err
	}
	s.Cache.Invalidate(id)
	typ := events.ItemUnfrozen
	if frozen {
		typ = events.ItemFrozen
	}
	s.emit(ctx, events.New(typ, id, admin.ID))
	return s.Items.Get(ctx, id)
}
