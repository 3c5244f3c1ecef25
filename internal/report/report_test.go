package report_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"auctionhouse/internal/domain"
	"auctionhouse/internal/report"
)

func TestDescribe(t *testing.T) {
	cases := []struct {
		name string
		in   []int64
		want report.Stats
	}{
		{"empty", nil, report.Stats{}},
		{"single", []int64{7}, report.Stats{Count: 1, Max: 7, Mean: 7, Median: 7, Mode: 7}},
		{"repeated", []int64{1, 2, 2, 3}, report.Stats{Count: 4, Max: 3, Mean: 2, Median: 2, Mode: 2, StdDev: 0.71}},
		{"unique", []int64{10, 20, 30}, report.Stats{Count: 3, Max: 30, Mean: 20, Median: 20, Mode: 0, StdDev: 8.16}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := report.Describe(tc.in); got != tc.want {
				t.Fatalf("want %+v, got %+v", tc.want, got)
			}
		})
	}
}

func fixture() report.Snapshot {
	sold := time.Now()
	items := []domain.Item{
		{ID: "i1", Name: "Radio", InitPrice: 10, ItemState: domain.ItemCompleted, SoldBidID: "b2", SoldAmount: 100, SoldTime: &sold},
		{ID: "i2", Name: "Lamp", InitPrice: 20, ItemState: domain.ItemCompleted, SoldBidID: "b3", SoldAmount: 50},
		{ID: "i3", Name: "Chair", InitPrice: 30, ItemState: domain.ItemActive, CurrentBidID: "b4", Frozen: true},
		{ID: "i4", Name: "Desk", InitPrice: 40, ItemState: domain.ItemFailed},
	}
	bids := []domain.Bid{
		{ID: "b1", ItemID: "i1", BidderID: "u-ann", Amount: 60},
		{ID: "b2", ItemID: "i1", BidderID: "u-bob", Amount: 100, IsActive: true},
		{ID: "b3", ItemID: "i2", BidderID: "u-ann", Amount: 50, IsActive: true},
		{ID: "b4", ItemID: "i3", BidderID: "u-ann", Amount: 70, IsActive: true},
	}
	users := []domain.User{
		{ID: "u-admin", UserType: domain.UserAdmin},
		{ID: "u-sally", UserType: domain.UserSeller, Frozen: true},
		{ID: "u-ann", Username: "ann", UserType: domain.UserBuyer, Funds: 100},
		{ID: "u-bob", Username: "bob", UserType: domain.UserBuyer, Funds: 0, Closed: true},
	}
	purchases := []domain.Purchase{{ID: "p1", BuyerID: "u-bob", ItemID: "i1", BidID: "b2", Amount: 100}}
	return report.Snapshot{Items: items, Bids: bids, Users: users, Purchases: purchases}
}

func TestAuction(t *testing.T) {
	r := report.Auction(fixture(), decimal.RequireFromString("0.05"), time.Now())

	if r.TotalItems != 4 || r.TotalBids != 4 || r.SoldItems != 2 || r.GrossSales != 150 {
		t.Fatalf("totals: %+v", r)
	}
	if r.ItemsByState["completed"] != 2 || r.ItemsByState["active"] != 1 || r.ItemsByState["failed"] != 1 || r.ItemsByState["archived"] != 0 {
		t.Fatalf("by state: %v", r.ItemsByState)
	}
	if !r.Commission.Equal(decimal.RequireFromString("7.5")) {
		t.Fatalf("commission: %s", r.Commission)
	}
	if r.SoldPrices.Max != 100 || r.SoldPrices.Mean != 75 {
		t.Fatalf("sold prices: %+v", r.SoldPrices)
	}
	// bids per item: 2,1,1,0
	if r.BidsPerItem.Max != 2 || r.BidsPerItem.Mean != 1 || r.BidsPerItem.Mode != 1 {
		t.Fatalf("bids per item: %+v", r.BidsPerItem)
	}
	if len(r.TopItems) != 3 || r.TopItems[0].ItemID != "i1" || r.TopItems[0].Highest != 100 {
		t.Fatalf("top items: %+v", r.TopItems)
	}
}

func TestCommission_RoundsToCents(t *testing.T) {
	items := []domain.Item{{ItemState: domain.ItemCompleted, SoldBidID: "b", SoldAmount: 333}}
	got := report.Commission(items, decimal.RequireFromString("0.0333"))
	if !got.Equal(decimal.RequireFromString("11.09")) {
		t.Fatalf("want 11.09, got %s", got)
	}
}

func TestForensics(t *testing.T) {
	r := report.Forensics(fixture(), time.Now())

	if r.UsersByType["buyer"] != 2 || r.UsersByType["seller"] != 1 || r.UsersByType["admin"] != 1 {
		t.Fatalf("users by type: %v", r.UsersByType)
	}
	if r.FrozenUsers != 1 || r.ClosedUsers != 1 {
		t.Fatalf("flags: frozen=%d closed=%d", r.FrozenUsers, r.ClosedUsers)
	}
	if r.Purchases != 1 || r.PurchaseVolume != 100 {
		t.Fatalf("purchases: %d %d", r.Purchases, r.PurchaseVolume)
	}
	// ann: b3 (unfulfilled win, 50) + b4 (live, 70) = 120 > 100; bob's win is fulfilled
	if len(r.OverCommitted) != 1 || r.OverCommitted[0].BuyerID != "u-ann" || r.OverCommitted[0].Committed != 120 || r.OverCommitted[0].ActiveBids != 2 {
		t.Fatalf("over committed: %+v", r.OverCommitted)
	}
	if len(r.FrozenItems) != 1 || r.FrozenItems[0] != "i3" {
		t.Fatalf("frozen items: %v", r.FrozenItems)
	}
	if r.BidsPerBuyer.Max != 3 || r.BuyerFunds.Max != 100 {
		t.Fatalf("buyer stats: %+v %+v", r.BidsPerBuyer, r.BuyerFunds)
	}
}
