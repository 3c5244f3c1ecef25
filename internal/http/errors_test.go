package handlers_test

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"auctionhouse/internal/http/handlers"
)

func TestErrorHandlerHidesInternals(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	app.Use(requestid.New())
	app.Get("/boom", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusInternalServerError, "db timeout: secret trace")
	})
	app.Get("/plain", func(c *fiber.Ctx) error {
		return fmt.Errorf("sqlite: disk I/O error at /var/lib/secret.db")
	})

	for _, path := range []string{"/boom", "/plain"} {
		var s string
		entries := captureLogs(t, func() {
			resp, err := app.Test(httptest.NewRequest("GET", path, nil))
			if err != nil {
				t.Fatalf("test request failed: %v", err)
			}
			if resp.StatusCode != fiber.StatusInternalServerError {
				t.Fatalf("%s: expected 500, got %d", path, resp.StatusCode)
			}
			body, _ := io.ReadAll(resp.Body)
			s = string(body)
		})
		if !strings.Contains(s, "Something went wrong") || !strings.Contains(s, `"errorCode":"INTERNAL"`) {
			t.Fatalf("%s: generic envelope missing; body=%s", path, s)
		}
		if strings.Contains(s, "secret") {
			t.Fatalf("%s: internal details leaked; body=%s", path, s)
		}
		found := false
		for _, e := range entries {
			if e.Level == "error" {
				found = true
			}
		}
		if !found {
			t.Fatalf("%s: expected an error log entry", path)
		}
	}
}

func TestUnknownRouteEnvelope(t *testing.T) {
	ta := newTestApp(t, noLimits())
	status, body := ta.do(t, "GET", "/nope", "", nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
	var e handlers.ErrorBody
	decode(t, body, &e)
	if e.Status != http.StatusNotFound || e.ErrorCode != "NOT_FOUND" || e.Message == "" {
		t.Fatalf("unexpected envelope %+v", e)
	}
}

func TestMalformedBodies(t *testing.T) {
	ta := newTestApp(t, noLimits())
	bob := ta.login(t, "bob")

	req := httptest.NewRequest("POST", "/buyers/u-bob/bids", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bob)
	resp, err := ta.app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed json: expected 400, got %d", resp.StatusCode)
	}

	cases := []map[string]any{
		{"itemId": "../etc/passwd", "bidAmount": 5},
		{"itemId": "abc", "bidAmount": 0},
		{"itemId": "abc", "bidAmount": -3},
		{"itemId": "abc", "bidAmount": int64(1_000_000_000_001)},
		{"itemId": "abc", "bidAmount": int64(math.MaxInt64)},
	}
	for _, body := range cases {
		status, out := ta.do(t, "POST", "/buyers/u-bob/bids", bob, body)
		if status != http.StatusBadRequest || errorCode(t, out) != "VALIDATION_ERROR" {
			t.Fatalf("%v: expected 400 VALIDATION_ERROR, got %d %s", body, status, out)
		}
	}

	status, out := ta.do(t, "POST", "/buyers/u-bob/bids", bob, map[string]any{"itemId": "missing", "bidAmount": 5})
	if status != http.StatusNotFound {
		t.Fatalf("unknown item: expected 404, got %d %s", status, out)
	}
}
