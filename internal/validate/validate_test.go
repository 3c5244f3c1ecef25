package validate_test

import (
	"testing"

	"auctionhouse/internal/validate"
)

func TestUsername(t *testing.T) {
	for _, ok := range []string{"alice", "bob.smith", "seller_01"} {
		if _, v := validate.Username(ok); !v {
			t.Fatalf("%q should be valid", ok)
		}
	}
	for _, bad := range []string{"", "ab", "has space", "semi;colon"} {
		if _, v := validate.Username(bad); v {
			t.Fatalf("%q should be invalid", bad)
		}
	}
}

func TestImages(t *testing.T) {
	if _, ok := validate.Images(nil); ok {
		t.Fatal("empty image list accepted")
	}
	if _, ok := validate.Images([]string{"items/../../etc/passwd"}); ok {
		t.Fatal("traversal accepted")
	}
	got, ok := validate.Images([]string{" items/1/main.jpg "})
	if !ok || got[0] != "items/1/main.jpg" {
		t.Fatalf("want trimmed ref, got %v %v", got, ok)
	}
}

func TestPrice(t *testing.T) {
	if _, set, ok := validate.Price(""); set || !ok {
		t.Fatal("empty price should be unset and valid")
	}
	if n, set, ok := validate.Price("42"); n != 42 || !set || !ok {
		t.Fatalf("want 42, got %d %v %v", n, set, ok)
	}
	if _, _, ok := validate.Price("-1"); ok {
		t.Fatal("negative price accepted")
	}
	if _, _, ok := validate.Price("ten"); ok {
		t.Fatal("non-numeric price accepted")
	}
	if _, _, ok := validate.Price("9223372036854775807"); ok {
		t.Fatal("price above the cap accepted")
	}
}

func TestAmount(t *testing.T) {
	for _, n := range []int64{1, 500, validate.MaxAmount} {
		if !validate.Amount(n) {
			t.Fatalf("%d should be valid", n)
		}
	}
	for _, n := range []int64{0, -5, validate.MaxAmount + 1} {
		if validate.Amount(n) {
			t.Fatalf("%d should be invalid", n)
		}
	}
}

func TestSortOrder(t *testing.T) {
	if s, ok := validate.Sort(""); !ok || s != "date" {
		t.Fatalf("default sort: %q %v", s, ok)
	}
	if _, ok := validate.Sort("name"); ok {
		t.Fatal("unknown sort accepted")
	}
	if o, ok := validate.Order("ASC"); !ok || o != "asc" {
		t.Fatalf("order: %q %v", o, ok)
	}
}

func TestPage(t *testing.T) {
	if l, o := validate.Page("", ""); l != 20 || o != 0 {
		t.Fatalf("defaults: %d %d", l, o)
	}
	if l, o := validate.Page("500", "-3"); l != 100 || o != 0 {
		t.Fatalf("clamp: %d %d", l, o)
	}
}

func TestPassword(t *testing.T) {
	if !validate.Password("Passw0rd!") {
		t.Fatal("strong password rejected")
	}
	if validate.Password("password") {
		t.Fatal("weak password accepted")
	}
}
