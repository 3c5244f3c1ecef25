package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"auctionhouse/internal/domain"
	"auctionhouse/internal/events"
	"auctionhouse/internal/validate"
)

// BiddingService validates bids and installs them with optimistic concurrency:
// the store write is conditioned on the current bid read here.
type BiddingService struct {
	Items        ItemStore
	Bids         BidStore
	Users        UserStore
	Events       events.Publisher
	Cache        *ItemCache
	MinIncrement int64
	Now          func() time.Time
}

func (s *BiddingService) increment() int64 {
	if s.MinIncrement < 1 {
		return 1
	}
	return s.MinIncrement
}

// MinimumBid is the lowest amount the next bid on it may carry. It saturates at MaxInt64.
func (s *BiddingService) MinimumBid(it domain.Item) int64 {
	highest, inc := it.HighestAmount(), s.increment()
	if highest > math.MaxInt64-inc {
		return math.MaxInt64
	}
	return highest + inc
}

func (s *BiddingService) PlaceBid(ctx context.Context, buyerID, itemID string, amount int64) (domain.Bid, error) {
	if !validate.Amount(amount) {
		return domain.Bid{}, fmt.Errorf("%w: bidAmount must be between 1 and %d", domain.ErrValidation, validate.MaxAmount)
	}
	it, err := s.Items.Get(ctx, itemID)
	if err != nil {
		return domain.Bid{}, err
	}
	if it.ItemState != domain.ItemActive || it.Frozen {
		return domain.Bid{}, fmt.Errorf("%w: item %s is not open for bids", domain.ErrInvalidState, itemID)
	}
	now := clock(s.Now)
	if !now.Before(it.EndDate) {
		return domain.Bid{}, fmt.Errorf("%w: auction for %s ended at %s", domain.ErrExpired, itemID, it.EndDate.Format(time.RFC3339))
	}
	// amount >= 1 here, so amount-inc cannot wrap
	if amount-s.increment() < it.HighestAmount() {
		return domain.Bid{}, fmt.Errorf("%w: bid must be at least %d", domain.ErrBidTooLow, s.MinimumBid(it))
	}

	buyer, err := s.Users.ByID(ctx, buyerID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Bid{}, fmt.Errorf("%w: unknown buyer", domain.ErrForbidden)
	}
	if err != nil {
		return domain.Bid{}, err
	}
	if buyer.UserType != domain.UserBuyer {
		return domain.Bid{}, fmt.Errorf("%w: buyers only", domain.ErrForbidden)
	}
	if !buyer.CanTransact() {
		return domain.Bid{}, fmt.Errorf("%w: account is frozen or closed", domain.ErrFrozen)
	}
	if buyer.Funds < amount {
		return domain.Bid{}, fmt.Errorf("%w: balance %d is below bid %d", domain.ErrInsufficientFunds, buyer.Funds, amount)
	}

	b := domain.Bid{
		ID:        uuid.NewString(),
		ItemID:    itemID,
		BidderID:  buyerID,
		Amount:    amount,
		BidTime:   now,
		CreatedAt: now,
		IsActive:  true,
	}
	if err := s.Bids.Place(ctx, b, it.CurrentBidID, it.PastBids); err != nil {
		return domain.Bid{}, err
	}
	s.Cache.Invalidate(itemID)

	if s.Events != nil {
		e := events.New(events.BidPlaced, itemID, buyerID)
		e.BidID, e.Amount = b.ID, b.Amount
		_ = s.Events.Publish(ctx, e)
	}
	return b, nil
}

func (s *BiddingService) ActiveBids(ctx context.Context, buyerID string) ([]domain.Bid, error) {
	return s.Bids.ActiveByBidder(ctx, buyerID)
}

// ItemBids is the bid history of an item, newest first.
func (s *BiddingService) ItemBids(ctx context.Context, itemID string) ([]domain.Bid, error) {
	if _, err := s.Items.Get(ctx, itemID); err != nil {
		return nil, err
	}
	return s.Bids.ByItem(ctx, itemID)
}
