package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"auctionhouse/internal/services"
)

func TestReports_FromStore(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	a := e.listed(t, "Radio", 10)
	e.listed(t, "Organ", 20)
	if _, err := e.bidding.PlaceBid(ctx, "u-bob", a.ID, 40); err != nil {
		t.Fatal(err)
	}
	e.clock.Advance(49 * time.Hour)
	if _, err := e.lifecycle.CloseExpired(ctx); err != nil {
		t.Fatal(err)
	}

	r, err := e.reports.Auction(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if r.TotalItems != 2 || r.SoldItems != 1 || r.ItemsByState["failed"] != 1 {
		t.Fatalf("auction report: %+v", r)
	}
	if !r.Commission.Equal(decimal.RequireFromString("2")) {
		t.Fatalf("commission: %s", r.Commission)
	}

	f, err := e.reports.Forensics(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if f.UsersByType["buyer"] != 1 || len(f.OverCommitted) != 0 {
		t.Fatalf("forensics: %+v", f)
	}
}

func TestCloser_SweepsUntilCancelled(t *testing.T) {
	e := newEnv(t, nil)
	it := e.listed(t, "Lute", 10)
	e.clock.Advance(49 * time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	c := &services.Closer{Lifecycle: e.lifecycle, Interval: 10 * time.Millisecond}
	go func() { done <- c.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		got, err := e.items.Get(context.Background(), it.ID)
		if err == nil && got.ItemState == "failed" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("closer did not settle item: %+v", got)
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}
