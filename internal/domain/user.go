package domain

import "time"

type UserType string

const (
	UserSeller UserType = "seller"
	UserBuyer  UserType = "buyer"
	UserAdmin  UserType = "admin"
)

func (t UserType) Valid() bool {
	return t == UserSeller || t == UserBuyer || t == UserAdmin
}

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Hash      string    `json:"-"`
	UserType  UserType  `json:"userType"`
	Funds     int64     `json:"funds"`
	Frozen    bool      `json:"frozen"`
	Closed    bool      `json:"closed"`
	CreatedAt time.Time `json:"createdAt"`
}

// CanTransact is false for frozen or closed accounts.
func (u User) CanTransact() bool { return !u.Frozen && !u.Closed }
