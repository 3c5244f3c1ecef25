package domain

import "time"

type ItemState string

const (
	ItemInactive  ItemState = "inactive"
	ItemActive    ItemState = "active"
	ItemCompleted ItemState = "completed"
	ItemFailed    ItemState = "failed"
	ItemArchived  ItemState = "archived"
)

// Terminal reports whether no further lifecycle transition is allowed.
func (s ItemState) Terminal() bool {
	return s == ItemCompleted || s == ItemFailed || s == ItemArchived
}

type Item struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	InitPrice       int64      `json:"initPrice"`
	StartDate       time.Time  `json:"startDate"`
	EndDate         time.Time  `json:"endDate"`
	LengthOfAuction int        `json:"lengthOfAuction"` // days
	ItemState       ItemState  `json:"itemState"`
	Frozen          bool       `json:"frozen"`
	Images          []string   `json:"images"`
	SellerID        string     `json:"sellerId"`
	CreatedAt       time.Time  `json:"createdAt"`
	CurrentBidID    string     `json:"currentBidId,omitempty"`
	PastBids        []string   `json:"pastBids"`
	SoldBidID       string     `json:"soldBidId,omitempty"`
	SoldTime        *time.Time `json:"soldTime,omitempty"`

	// Filled by read paths that join the current and sold bids.
	CurrentBidAmount int64 `json:"currentBidAmount,omitempty"`
	SoldAmount       int64 `json:"soldAmount,omitempty"`
}

// HighestAmount is the amount a new bid has to beat.
func (it Item) HighestAmount() int64 {
	if it.CurrentBidID != "" && it.CurrentBidAmount > 0 {
		return it.CurrentBidAmount
	}
	return it.InitPrice
}

// SimpleItem is the create/edit payload of an item.
type SimpleItem struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	InitPrice       int64    `json:"initPrice"`
	LengthOfAuction int      `json:"lengthOfAuction"`
	Images          []string `json:"images"`
}

func ItemFromSimple(s SimpleItem) Item {
	images := make([]string, len(s.Images))
	copy(images, s.Images)
	return Item{
		Name:            s.Name,
		Description:     s.Description,
		InitPrice:       s.InitPrice,
		LengthOfAuction: s.LengthOfAuction,
		Images:          images,
		ItemState:       ItemInactive,
	}
}

func (it Item) ToSimple() SimpleItem {
	images := make([]string, len(it.Images))
	copy(images, it.Images)
	return SimpleItem{
		Name:            it.Name,
		Description:     it.Description,
		InitPrice:       it.InitPrice,
		LengthOfAuction: it.LengthOfAuction,
		Images:          images,
	}
}

// ItemPatch carries the optional fields of an edit; nil means unchanged.
type ItemPatch struct {
	Name            *string   `json:"name"`
	Description     *string   `json:"description"`
	InitPrice       *int64    `json:"initPrice"`
	LengthOfAuction *int      `json:"lengthOfAuction"`
	Images          *[]string `json:"images"`
}

// Apply copies the supplied fields onto it and recomputes the end date.
func (p ItemPatch) Apply(it *Item) {
	if p.Name != nil {
		it.Name = *p.Name
	}
	if p.Description != nil {
		it.Description = *p.Description
	}
	if p.InitPrice != nil {
		it.InitPrice = *p.InitPrice
	}
	if p.LengthOfAuction != nil {
		it.LengthOfAuction = *p.LengthOfAuction
	}
	if p.Images != nil {
		it.Images = append([]string(nil), (*p.Images)...)
	}
	it.EndDate = it.StartDate.Add(AuctionLength(it.LengthOfAuction))
}

func AuctionLength(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}

// ItemQuery filters a catalog search. Min/Max apply to the current highest price.
type ItemQuery struct {
	Q      string
	Min    *int64
	Max    *int64
	Sort   string // date|price
	Order  string // asc|desc
	Limit  int
	Offset int
}
