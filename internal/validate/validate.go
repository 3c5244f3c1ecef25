package validate

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reUsername = regexp.MustCompile(`^[A-Za-z0-9._-]{3,32}$`)
	reQ        = regexp.MustCompile(`^[A-Za-z0-9 _'\\-]{1,50}$`)
	reID       = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	reImage    = regexp.MustCompile(`^[A-Za-z0-9._/:-]{1,255}$`)
)

func Username(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, reUsername.MatchString(s)
}

// Q validates a search keyword: trims, enforces allowed characters and max length.
func Q(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if len(s) > 50 {
		s = s[:50]
	}
	return s, reQ.MatchString(s)
}

// ID validates a resource identifier (uuid or seeded slug).
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

// ItemName validates a listing title.
func ItemName(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 100 {
		return "", false
	}
	return s, true
}

func Description(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 2000 {
		return "", false
	}
	return s, true
}

// Images requires at least one reference and rejects path traversal.
func Images(refs []string) ([]string, bool) {
	if len(refs) == 0 || len(refs) > 20 {
		return nil, false
	}
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		r = strings.TrimSpace(r)
		if !reImage.MatchString(r) || strings.Contains(r, "..") {
			return nil, false
		}
		out = append(out, r)
	}
	return out, true
}

// Price parses an optional query price; empty means unset.
func Price(s string) (int64, bool, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, true
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 || n > MaxAmount {
		return 0, false, false
	}
	return n, true, true
}

// Sort accepts price|date, defaulting to date.
func Sort(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "date":
		return "date", true
	case "price":
		return "price", true
	}
	return "", false
}

// Order accepts asc|desc, defaulting to desc.
func Order(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc":
		return "desc", true
	case "asc":
		return "asc", true
	}
	return "", false
}

// Page clamps limit/offset query values.
func Page(limitStr, offsetStr string) (int, int) {
	limit, err := strconv.Atoi(strings.TrimSpace(limitStr))
	if err != nil || limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset, err := strconv.Atoi(strings.TrimSpace(offsetStr))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

// MaxAmount caps every money value (bids, prices, deposits and balances).
const MaxAmount int64 = 1_000_000_000_000

// Amount accepts 1..MaxAmount.
func Amount(n int64) bool { return n > 0 && n <= MaxAmount }

// Password enforces length and character-class rules.
func Password(s string) bool {
	l := len(s)
	if l < 8 || l > 64 {
		return false
	}
	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range s {
		switch {
		case 'a' <= r && r <= 'z':
			hasLower = true
		case 'A' <= r && r <= 'Z':
			hasUpper = true
		case '0' <= r && r <= '9':
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	return hasLower && hasUpper && hasDigit && hasSymbol
}
