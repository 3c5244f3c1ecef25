package report

import (
	"sort"
	"time"

	"auctionhouse/internal/domain"
)

type ForensicsReport struct {
	GeneratedAt    time.Time      `json:"generatedAt"`
	UsersByType    map[string]int `json:"usersByType"`
	FrozenUsers    int            `json:"frozenUsers"`
	ClosedUsers    int            `json:"closedUsers"`
	BuyerFunds     Stats          `json:"buyerFunds"`
	BidsPerBuyer   Stats          `json:"bidsPerBuyer"`
	Purchases      int            `json:"purchases"`
	PurchaseVolume int64          `json:"purchaseVolume"`
	OverCommitted  []Commitment   `json:"overCommitted"`
	FrozenItems    []string       `json:"frozenItems"`
}

// Commitment is a buyer whose outstanding winning bids exceed their balance.
type Commitment struct {
	BuyerID    string `json:"buyerId"`
	Username   string `json:"username"`
	Funds      int64  `json:"funds"`
	Committed  int64  `json:"committed"`
	ActiveBids int    `json:"activeBids"`
}

// outstanding is true while a bid can still turn into a debit: the item is live,
// or it closed on this bid and has not been fulfilled.
func outstanding(b domain.Bid, it domain.Item, ok bool) bool {
	if !b.IsActive || !ok {
		return false
	}
	switch it.ItemState {
	case domain.ItemActive:
		return it.CurrentBidID == b.ID
	case domain.ItemCompleted:
		return it.SoldBidID == b.ID && it.SoldTime == nil
	}
	return false
}

func Forensics(s Snapshot, now time.Time) ForensicsReport {
	r := ForensicsReport{
		GeneratedAt:   now,
		UsersByType:   map[string]int{string(domain.UserSeller): 0, string(domain.UserBuyer): 0, string(domain.UserAdmin): 0},
		Purchases:     len(s.Purchases),
		OverCommitted: []Commitment{},
		FrozenItems:   []string{},
	}

	items := make(map[string]domain.Item, len(s.Items))
	for _, it := range s.Items {
		items[it.ID] = it
		if it.Frozen {
			r.FrozenItems = append(r.FrozenItems, it.ID)
		}
	}
	for _, p := range s.Purchases {
		r.PurchaseVolume += p.Amount
	}

	bidCount := map[string]int{}
	committed := map[string]int64{}
	activeCount := map[string]int{}
	for _, b := range s.Bids {
		bidCount[b.BidderID]++
		it, ok := items[b.ItemID]
		if outstanding(b, it, ok) {
			committed[b.BidderID] += b.Amount
			activeCount[b.BidderID]++
		}
	}

	var funds, perBuyer []int64
	for _, u := range s.Users {
		r.UsersByType[string(u.UserType)]++
		if u.Frozen {
			r.FrozenUsers++
		}
		if u.Closed {
			r.ClosedUsers++
		}
		if u.UserType != domain.UserBuyer {
			continue
		}
		funds = append(funds, u.Funds)
		perBuyer = append(perBuyer, int64(bidCount[u.ID]))
		if c := committed[u.ID]; c > u.Funds {
			r.OverCommitted = append(r.OverCommitted, Commitment{
				BuyerID: u.ID, Username: u.Username, Funds: u.Funds, Committed: c, ActiveBids: activeCount[u.ID],
			})
		}
	}
	r.BuyerFunds = Describe(funds)
	r.BidsPerBuyer = Describe(perBuyer)

	sort.Strings(r.FrozenItems)
	sort.Slice(r.OverCommitted, func(i, j int) bool {
		return r.OverCommitted[i].Committed-r.OverCommitted[i].Funds > r.OverCommitted[j].Committed-r.OverCommitted[j].Funds
	})
	return r
}
