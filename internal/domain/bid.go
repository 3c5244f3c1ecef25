package domain

import "time"

type Bid struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"itemId"`
	BidderID  string    `json:"bidderId"`
	Amount    int64     `json:"bidAmount"`
	BidTime   time.Time `json:"bidTime"`
	CreatedAt time.Time `json:"createdAt"`
	IsActive  bool      `json:"isActive"`
}

type Purchase struct {
	ID          string    `json:"id"`
	BuyerID     string    `json:"buyerId"`
	ItemID      string    `json:"itemId"`
	BidID       string    `json:"bidId"`
	ItemName    string    `json:"itemName"`
	Amount      int64     `json:"amount"`
	PurchasedAt time.Time `json:"purchasedAt"`
}
