package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"auctionhouse/internal/domain"
	"auctionhouse/internal/events"
	"auctionhouse/internal/events/mock"
)

func TestCreate_Validation(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	sally := e.user(t, "u-sally")

	cases := []struct {
		name string
		mut  func(*domain.SimpleItem)
	}{
		{"no name", func(s *domain.SimpleItem) { s.Name = " " }},
		{"no description", func(s *domain.SimpleItem) { s.Description = "" }},
		{"zero price", func(s *domain.SimpleItem) { s.InitPrice = 0 }},
		{"zero length", func(s *domain.SimpleItem) { s.LengthOfAuction = 0 }},
		{"no images", func(s *domain.SimpleItem) { s.Images = nil }},
		{"bad image", func(s *domain.SimpleItem) { s.Images = []string{"../etc/passwd"} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := simple("Lamp", 10)
			tc.mut(&in)
			if _, err := e.lifecycle.Create(ctx, sally, in); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("want ErrValidation, got %v", err)
			}
		})
	}

	if _, err := e.lifecycle.Create(ctx, e.user(t, "u-bob"), simple("Lamp", 10)); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("buyer creating: %v", err)
	}

	it, err := e.lifecycle.Create(ctx, sally, simple("Lamp", 10))
	if err != nil {
		t.Fatal(err)
	}
	if it.ItemState != domain.ItemInactive || !it.EndDate.Equal(it.StartDate.Add(48*time.Hour)) {
		t.Fatalf("created item: %+v", it)
	}
}

func TestPublish_OnlyFromInactiveByOwner(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	sally := e.user(t, "u-sally")
	other := e.register(t, "otherseller", domain.UserSeller)

	it, _ := e.lifecycle.Create(ctx, sally, simple("Desk", 10))
	if _, err := e.lifecycle.Publish(ctx, other, it.ID); !errors.Is(err, domain.ErrConditionFailed) {
		t.Fatalf("non-owner publish: %v", err)
	}
	if got, _ := e.items.Get(ctx, it.ID); got.ItemState != domain.ItemInactive {
		t.Fatalf("state changed: %s", got.ItemState)
	}

	e.clock.Advance(time.Hour)
	pub, err := e.lifecycle.Publish(ctx, sally, it.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !pub.StartDate.Equal(e.clock.Now()) || !pub.EndDate.Equal(e.clock.Now().Add(48*time.Hour)) {
		t.Fatalf("window not reset at publish: %v - %v", pub.StartDate, pub.EndDate)
	}

	if _, err := e.lifecycle.Publish(ctx, sally, it.ID); !errors.Is(err, domain.ErrConditionFailed) {
		t.Fatalf("publish active: %v", err)
	}
	if got, _ := e.items.Get(ctx, it.ID); got.ItemState != domain.ItemActive || !got.StartDate.Equal(pub.StartDate) {
		t.Fatalf("state after failed publish: %+v", got)
	}
}

func TestUnpublish_WithCurrentBidFails(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	sally := e.user(t, "u-sally")
	it := e.listed(t, "Chair", 10)

	if _, err := e.bidding.PlaceBid(ctx, "u-bob", it.ID, 11); err != nil {
		t.Fatal(err)
	}
	if _, err := e.lifecycle.Unpublish(ctx, sally, it.ID); !errors.Is(err, domain.ErrConditionFailed) {
		t.Fatalf("want ErrConditionFailed, got %v", err)
	}
	if got, _ := e.items.Get(ctx, it.ID); got.ItemState != domain.ItemActive {
		t.Fatalf("state: %s", got.ItemState)
	}

	quiet := e.listed(t, "Stool", 10)
	got, err := e.lifecycle.Unpublish(ctx, sally, quiet.ID)
	if err != nil || got.ItemState != domain.ItemInactive {
		t.Fatalf("unpublish without bids: %v %+v", err, got)
	}
	got, err = e.lifecycle.Archive(ctx, sally, quiet.ID)
	if err != nil || got.ItemState != domain.ItemArchived {
		t.Fatalf("archive: %v %+v", err, got)
	}
	if _, err := e.lifecycle.Publish(ctx, sally, quiet.ID); !errors.Is(err, domain.ErrConditionFailed) {
		t.Fatalf("archived is terminal: %v", err)
	}
}

func TestEdit_WhileActiveIsInvalidState(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	sally := e.user(t, "u-sally")
	it := e.listed(t, "Sofa", 10)

	name := "Renamed"
	if _, err := e.lifecycle.Edit(ctx, sally, it.ID, domain.ItemPatch{Name: &name}); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("want ErrInvalidState, got %v", err)
	}
	if got, _ := e.items.Get(ctx, it.ID); got.Name != "Sofa" {
		t.Fatalf("name changed to %q", got.Name)
	}
}

func TestEdit_RemoveInactive(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	sally := e.user(t, "u-sally")
	it, _ := e.lifecycle.Create(ctx, sally, simple("Table", 10))

	price, days := int64(25), 5
	got, err := e.lifecycle.Edit(ctx, sally, it.ID, domain.ItemPatch{InitPrice: &price, LengthOfAuction: &days})
	if err != nil {
		t.Fatal(err)
	}
	if got.InitPrice != 25 || got.Name != "Table" || !got.EndDate.Equal(got.StartDate.Add(5*24*time.Hour)) {
		t.Fatalf("edited: %+v", got)
	}
	bad := int64(0)
	if _, err := e.lifecycle.Edit(ctx, sally, it.ID, domain.ItemPatch{InitPrice: &bad}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("zero price edit: %v", err)
	}
	if _, err := e.lifecycle.Edit(ctx, e.register(t, "thief", domain.UserSeller), it.ID, domain.ItemPatch{InitPrice: &price}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("non-owner edit: %v", err)
	}

	if err := e.lifecycle.Remove(ctx, sally, it.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := e.items.Get(ctx, it.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("removed item still there: %v", err)
	}
	if err := e.lifecycle.Remove(ctx, sally, it.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("remove twice: %v", err)
	}
}

func TestCloseAndFulfill(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := mock.NewMockPublisher(ctrl)
	var seen []events.Event
	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e events.Event) error {
		seen = append(seen, e)
		return nil
	}).AnyTimes()

	e := newEnv(t, pub)
	ctx := context.Background()
	sally := e.user(t, "u-sally")
	sold := e.listed(t, "Radio", 10)
	unsold := e.listed(t, "Organ", 10)
	win, err := e.bidding.PlaceBid(ctx, "u-bob", sold.ID, 40)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := e.lifecycle.Fulfill(ctx, sally, sold.ID); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("fulfill before close: %v", err)
	}

	e.clock.Advance(49 * time.Hour)
	closed, err := e.lifecycle.CloseExpired(ctx)
	if err != nil || len(closed) != 2 {
		t.Fatalf("close: %v %+v", err, closed)
	}
	if got, _ := e.items.Get(ctx, unsold.ID); got.ItemState != domain.ItemFailed {
		t.Fatalf("unsold: %s", got.ItemState)
	}

	stranger := e.register(t, "stranger", domain.UserBuyer)
	if _, err := e.lifecycle.Fulfill(ctx, stranger, sold.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("stranger fulfill: %v", err)
	}
	p, err := e.lifecycle.Fulfill(ctx, e.user(t, "u-bob"), sold.ID)
	if err != nil {
		t.Fatal(err)
	}
	if p.BidID != win.ID || p.Amount != 40 || p.ItemName != "Radio" {
		t.Fatalf("purchase: %+v", p)
	}
	if _, err := e.lifecycle.Fulfill(ctx, sally, sold.ID); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("second fulfill: %v", err)
	}
	if bob := e.user(t, "u-bob"); bob.Funds != 60 {
		t.Fatalf("funds: %d", bob.Funds)
	}
	history, _ := e.accounts.Purchases(ctx, e.user(t, "u-bob"), "u-bob")
	if len(history) != 1 {
		t.Fatalf("purchases: %+v", history)
	}

	types := map[string]int{}
	for _, ev := range seen {
		types[ev.Type]++
	}
	if types[events.ItemPublished] != 2 || types[events.ItemCompleted] != 1 || types[events.ItemFailed] != 1 || types[events.ItemFulfilled] != 1 {
		t.Fatalf("events: %v", types)
	}
}

func TestFulfill_InsufficientFunds(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	admin, sally := e.user(t, "u-admin"), e.user(t, "u-sally")
	it := e.listed(t, "Harp", 10)
	if _, err := e.bidding.PlaceBid(ctx, "u-bob", it.ID, 90); err != nil {
		t.Fatal(err)
	}
	// bob spends elsewhere before the auction closes
	other := e.listed(t, "Flute", 10)
	if _, err := e.bidding.PlaceBid(ctx, "u-bob", other.ID, 50); err != nil {
		t.Fatal(err)
	}
	e.clock.Advance(49 * time.Hour)
	if _, err := e.lifecycle.CloseExpired(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := e.lifecycle.Fulfill(ctx, sally, other.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := e.lifecycle.Fulfill(ctx, sally, it.ID); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}
	if got, _ := e.items.Get(ctx, it.ID); got.SoldTime != nil {
		t.Fatal("sold time set on failed fulfill")
	}

	if _, err := e.lifecycle.SetFrozen(ctx, sally, it.ID, true); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("seller freezing: %v", err)
	}
	frozen, err := e.lifecycle.SetFrozen(ctx, admin, it.ID, true)
	if err != nil || !frozen.Frozen {
		t.Fatalf("admin freeze: %v %+v", err, frozen)
	}
}
