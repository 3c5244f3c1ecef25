package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"auctionhouse/internal/report"
)

type ReportService struct {
	Items     ItemStore
	Bids      BidStore
	Users     UserStore
	Purchases PurchaseStore
	Rate      decimal.Decimal
	Now       func() time.Time
}

// Snapshot loads the four collections concurrently.
func (s *ReportService) Snapshot(ctx context.Context) (report.Snapshot, error) {
	var snap report.Snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Items, err = s.Items.All(ctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Bids, err = s.Bids.All(ctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Users, err = s.Users.List(ctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Purchases, err = s.Purchases.All(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return report.Snapshot{}, err
	}
	return snap, nil
}

func (s *ReportService) Auction(ctx context.Context) (report.AuctionReport, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return report.AuctionReport{}, err
	}
	return report.Auction(snap, s.Rate, clock(s.Now)), nil
}

func (s *ReportService) Forensics(ctx context.Context) (report.ForensicsReport, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return report.ForensicsReport{}, err
	}
	return report.Forensics(snap, clock(s.Now)), nil
}
