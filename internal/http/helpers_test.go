package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"auctionhouse/internal/config"
	"auctionhouse/internal/http/handlers"
	"auctionhouse/internal/repos"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type testApp struct {
	app   *fiber.App
	deps  *handlers.Deps
	clock *fakeClock
}

// newTestApp serves the real routes over an in-memory store. Seeded accounts:
// admin, sally (seller) and bob (buyer, funds 100), all with password Passw0rd!.
func newTestApp(t *testing.T, lim handlers.Limits) *testApp {
	t.Helper()
	cfg := config.Config{
		DBDSN:          ":memory:",
		JWTSecret:      "test-secret",
		JWTTTL:         time.Hour,
		CommissionRate: 0.05,
		MinIncrement:   1,
		CacheSize:      16,
	}
	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	deps, err := handlers.NewDeps(db, cfg, nil)
	if err != nil {
		t.Fatalf("deps: %v", err)
	}
	clk := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	deps.Auth.Now = clk.Now
	deps.Lifecycle.Now = clk.Now
	deps.Bidding.Now = clk.Now
	deps.Reports.Now = clk.Now
	return &testApp{app: handlers.NewApp(deps, lim), deps: deps, clock: clk}
}

func noLimits() handlers.Limits { return handlers.Limits{} }

// do sends a JSON request and returns the status and raw body.
func (ta *testApp) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ta.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out
}

// login signs in one of the seeded accounts.
func (ta *testApp) login(t *testing.T, username string) string {
	t.Helper()
	return ta.loginAs(t, username, "Passw0rd!")
}

func (ta *testApp) loginAs(t *testing.T, username, password string) string {
	t.Helper()
	status, body := ta.do(t, "POST", "/auth/login", "", map[string]string{"username": username, "password": password})
	if status != fiber.StatusOK {
		t.Fatalf("login %s: %d %s", username, status, body)
	}
	var out struct {
		Token string `json:"token"`
	}
	decode(t, body, &out)
	return out.Token
}

func decode(t *testing.T, body []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var e handlers.ErrorBody
	decode(t, body, &e)
	return e.ErrorCode
}

type listedItem struct {
	ID               string `json:"id"`
	ItemState        string `json:"itemState"`
	CurrentBidID     string `json:"currentBidId"`
	CurrentBidAmount int64  `json:"currentBidAmount"`
	SoldBidID        string `json:"soldBidId"`
}

// listed creates and publishes an item as sally.
func (ta *testApp) listed(t *testing.T, sallyTok, name string, price int64) listedItem {
	t.Helper()
	status, body := ta.do(t, "POST", "/items", sallyTok, map[string]any{
		"name": name, "description": "a " + name, "initPrice": price,
		"lengthOfAuction": 2, "images": []string{"img/" + name + ".jpg"},
	})
	if status != fiber.StatusCreated {
		t.Fatalf("create: %d %s", status, body)
	}
	var it listedItem
	decode(t, body, &it)
	status, body = ta.do(t, "POST", "/items/"+it.ID+"/publish", sallyTok, nil)
	if status != fiber.StatusOK {
		t.Fatalf("publish: %d %s", status, body)
	}
	decode(t, body, &it)
	return it
}

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	UserID string         `json:"user_id"`
	Status int            `json:"status"`
	Fields map[string]any `json:"fields"`
}

// captureLogs swaps the standard logger output while fn runs.
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	var buf bytes.Buffer
	var mu sync.Mutex
	oldW := log.Writer()
	oldFlags := log.Flags()
	log.SetOutput(&lockedWriter{w: &buf, mu: &mu})
	log.SetFlags(0)
	defer func() {
		log.SetOutput(oldW)
		log.SetFlags(oldFlags)
	}()

	fn()

	mu.Lock()
	defer mu.Unlock()
	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var e logEntry
		if err := json.Unmarshal([]byte(line), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

type lockedWriter struct {
	w  *bytes.Buffer
	mu *sync.Mutex
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

func hasAction(entries []logEntry, level, action string) bool {
	for _, e := range entries {
		if e.Level == level && e.Action == action {
			return true
		}
	}
	return false
}
