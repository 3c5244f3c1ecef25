package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"auctionhouse/internal/domain"
)

// Snapshot is the full store state a report is computed from.
type Snapshot struct {
	Items     []domain.Item
	Bids      []domain.Bid
	Users     []domain.User
	Purchases []domain.Purchase
}

type AuctionReport struct {
	GeneratedAt    time.Time        `json:"generatedAt"`
	TotalItems     int              `json:"totalItems"`
	ItemsByState   map[string]int   `json:"itemsByState"`
	TotalBids      int              `json:"totalBids"`
	BidsPerItem    Stats            `json:"bidsPerItem"`
	InitialPrices  Stats            `json:"initialPrices"`
	SoldPrices     Stats            `json:"soldPrices"`
	SoldItems      int              `json:"soldItems"`
	GrossSales     int64            `json:"grossSales"`
	CommissionRate decimal.Decimal  `json:"commissionRate"`
	Commission     decimal.Decimal  `json:"commission"`
	TopItems       []ItemBidSummary `json:"topItems"`
}

type ItemBidSummary struct {
	ItemID   string `json:"itemId"`
	Name     string `json:"name"`
	Bids     int    `json:"bids"`
	Highest  int64  `json:"highest"`
	State    string `json:"state"`
	SellerID string `json:"sellerId"`
}

// sold reports whether the item closed with a winning bid.
func sold(it domain.Item) bool {
	return it.ItemState == domain.ItemCompleted && it.SoldBidID != "" && it.SoldAmount > 0
}

// Commission is Σ salePrice × rate over sold items, rounded to cents.
func Commission(items []domain.Item, rate decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		if sold(it) {
			total = total.Add(decimal.NewFromInt(it.SoldAmount).Mul(rate))
		}
	}
	return total.Round(2)
}

const topItemsLimit = 5

func Auction(s Snapshot, rate decimal.Decimal, now time.Time) AuctionReport {
	r := AuctionReport{
		GeneratedAt:    now,
		TotalItems:     len(s.Items),
		TotalBids:      len(s.Bids),
		ItemsByState:   map[string]int{},
		CommissionRate: rate,
		Commission:     Commission(s.Items, rate),
	}
	for _, st := range []domain.ItemState{domain.ItemInactive, domain.ItemActive, domain.ItemCompleted, domain.ItemFailed, domain.ItemArchived} {
		r.ItemsByState[string(st)] = 0
	}

	bidsByItem := map[string]int{}
	highest := map[string]int64{}
	for _, b := range s.Bids {
		bidsByItem[b.ItemID]++
		if b.Amount > highest[b.ItemID] {
			highest[b.ItemID] = b.Amount
		}
	}

	perItem := make([]int64, 0, len(s.Items))
	initPrices := make([]int64, 0, len(s.Items))
	var soldPrices []int64
	summaries := make([]ItemBidSummary, 0, len(s.Items))
	for _, it := range s.Items {
		r.ItemsByState[string(it.ItemState)]++
		perItem = append(perItem, int64(bidsByItem[it.ID]))
		initPrices = append(initPrices, it.InitPrice)
		if sold(it) {
			soldPrices = append(soldPrices, it.SoldAmount)
			r.GrossSales += it.SoldAmount
		}
		if n := bidsByItem[it.ID]; n > 0 {
			summaries = append(summaries, ItemBidSummary{
				ItemID: it.ID, Name: it.Name, Bids: n, Highest: highest[it.ID],
				State: string(it.ItemState), SellerID: it.SellerID,
			})
		}
	}
	r.SoldItems = len(soldPrices)
	r.BidsPerItem = Describe(perItem)
	r.InitialPrices = Describe(initPrices)
	r.SoldPrices = Describe(soldPrices)

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Bids != summaries[j].Bids {
			return summaries[i].Bids > summaries[j].Bids
		}
		return summaries[i].ItemID < summaries[j].ItemID
	})
	if len(summaries) > topItemsLimit {
		summaries = summaries[:topItemsLimit]
	}
	r.TopItems = summaries
	return r
}
