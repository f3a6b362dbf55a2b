package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/plugpoint/plugpoint/internal/app/gamification"
	"github.com/plugpoint/plugpoint/internal/domain"
	"github.com/plugpoint/plugpoint/internal/health"
	"github.com/plugpoint/plugpoint/internal/infra/catalog"
	"github.com/plugpoint/plugpoint/internal/infra/sqlite"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	dir := t.TempDir()

	db, err := sqlite.Open(dir)
	if err != nil {
		t.Fatalf("Open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cache := catalog.NewCache(db, time.Minute)
	err = cache.Import(context.Background(), domain.Catalog{
		Items: []domain.CatalogItem{
			{ID: "sticker", Name: "Sticker", CostPoints: domain.Points(60), ValuePoints: 80, Rarity: domain.RarityCommon},
			{ID: "founder-pin", Name: "Founder Pin", ValuePoints: 500, Rarity: domain.RarityLegendary},
		},
		Badges: []domain.Badge{
			{ID: "first-charge", Name: "First Charge", Status: domain.StatusActive, Criteria: domain.Criteria{SourceCounter: domain.CounterCheckIns, Threshold: 1}},
		},
	})
	if err != nil {
		t.Fatalf("Import catalog: %v", err)
	}

	svc := gamification.NewService(db, cache, nil)
	srv := NewServer(svc, cache)
	srv.SetHealth(health.NewChecker(db, cache, dir))

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func post(t *testing.T, ts *httptest.Server, path, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp, decode(t, resp)
}

func get(t *testing.T, ts *httptest.Server, path string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp, decode(t, resp)
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode %q: %v", raw, err)
	}
	return out
}

func errorType(body map[string]interface{}) string {
	e, _ := body["error"].(map[string]interface{})
	s, _ := e["type"].(string)
	return s
}

func logAction(t *testing.T, ts *httptest.Server, userID, action string) map[string]interface{} {
	t.Helper()
	resp, body := post(t, ts, "/api/v1/gamification/actions",
		`{"userId":"`+userID+`","actionType":"`+action+`"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("log %s status = %d, body = %v", action, resp.StatusCode, body)
	}
	return body
}

// ─── Health ─────────────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	srv, ts := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.health.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for len(srv.health.Statuses()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	resp, body := get(t, ts, "/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if checks := body["checks"].([]interface{}); len(checks) != 3 {
		t.Errorf("checks = %d, want 3", len(checks))
	}
}

func TestCORS_Preflight(t *testing.T) {
	_, ts := newTestServer(t)
	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/v1/gamification/actions", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("preflight status = %d, headers = %v", resp.StatusCode, resp.Header)
	}
}

// ─── Actions ────────────────────────────────────────────────────────────────

func TestLogAction(t *testing.T) {
	_, ts := newTestServer(t)

	body := logAction(t, ts, "u1", "check_in")
	if body["pointsBalance"] != float64(10) {
		t.Errorf("pointsBalance = %v, want 10", body["pointsBalance"])
	}
	counters := body["counters"].(map[string]interface{})
	if counters["checkIns"] != float64(1) {
		t.Errorf("checkIns = %v, want 1", counters["checkIns"])
	}
	inv := body["inventory"].(map[string]interface{})
	badges := inv["badgesEarned"].([]interface{})
	if len(badges) != 1 || badges[0] != "first-charge" {
		t.Errorf("badges = %v", badges)
	}
}

func TestLogAction_BadRequests(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"malformed json", `{"userId":`},
		{"missing user", `{"actionType":"check_in"}`},
		{"missing action", `{"userId":"u1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := post(t, ts, "/api/v1/gamification/actions", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			if errorType(body) != "validation_error" {
				t.Errorf("error type = %q", errorType(body))
			}
		})
	}
}

// ─── Purchases ──────────────────────────────────────────────────────────────

func TestPurchase(t *testing.T) {
	_, ts := newTestServer(t)
	logAction(t, ts, "u1", "easter_egg_redeemed")
	logAction(t, ts, "u1", "easter_egg_redeemed")

	resp, body := post(t, ts, "/api/v1/gamification/purchases", `{"userId":"u1","itemId":"sticker"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	if body["newBalance"] != float64(40) {
		t.Errorf("newBalance = %v, want 40", body["newBalance"])
	}
	profile := body["profile"].(map[string]interface{})
	if profile["netWorth"] != float64(120) {
		t.Errorf("netWorth = %v, want 120", profile["netWorth"])
	}
}

func TestPurchase_ErrorStatuses(t *testing.T) {
	_, ts := newTestServer(t)
	logAction(t, ts, "rich", "easter_egg_redeemed")
	logAction(t, ts, "rich", "easter_egg_redeemed")
	post(t, ts, "/api/v1/gamification/purchases", `{"userId":"rich","itemId":"sticker"}`)

	tests := []struct {
		name     string
		body     string
		status   int
		wantType string
	}{
		{"unknown item", `{"userId":"rich","itemId":"nope"}`, http.StatusNotFound, "not_found"},
		{"not purchasable", `{"userId":"rich","itemId":"founder-pin"}`, http.StatusUnprocessableEntity, "business_rule"},
		{"already owned", `{"userId":"rich","itemId":"sticker"}`, http.StatusUnprocessableEntity, "business_rule"},
		{"insufficient funds", `{"userId":"poor","itemId":"sticker"}`, http.StatusUnprocessableEntity, "business_rule"},
		{"missing item", `{"userId":"rich"}`, http.StatusBadRequest, "validation_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := post(t, ts, "/api/v1/gamification/purchases", tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d (body %v)", resp.StatusCode, tt.status, body)
			}
			if errorType(body) != tt.wantType {
				t.Errorf("error type = %q, want %q", errorType(body), tt.wantType)
			}
		})
	}
}

// ─── Reads ──────────────────────────────────────────────────────────────────

func TestGetProfile_ExpandInventory(t *testing.T) {
	_, ts := newTestServer(t)
	logAction(t, ts, "u1", "check_in")

	_, plain := get(t, ts, "/api/v1/gamification/profiles/u1")
	if _, ok := plain["inventoryDetails"]; ok {
		t.Error("inventoryDetails should be omitted without expand")
	}

	resp, body := get(t, ts, "/api/v1/gamification/profiles/u1?expand=inventory")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	details := body["inventoryDetails"].(map[string]interface{})
	badges := details["badges"].([]interface{})
	if len(badges) != 1 {
		t.Fatalf("badges = %v", badges)
	}
	if badges[0].(map[string]interface{})["name"] != "First Charge" {
		t.Errorf("badge = %v", badges[0])
	}
}

func TestGetProfile_CreatesDefault(t *testing.T) {
	_, ts := newTestServer(t)
	resp, body := get(t, ts, "/api/v1/gamification/profiles/newbie")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["persona"] != "NEWCOMER" || body["pointsBalance"] != float64(0) {
		t.Errorf("profile = %v", body)
	}
}

func TestListEvents(t *testing.T) {
	_, ts := newTestServer(t)
	logAction(t, ts, "u1", "check_in")
	logAction(t, ts, "u1", "route_plan")

	_, body := get(t, ts, "/api/v1/gamification/profiles/u1/events?limit=2")
	events := body["events"].([]interface{})
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	first := events[0].(map[string]interface{})
	if first["actionType"] != "route_plan" {
		t.Errorf("newest event = %v, want route_plan", first)
	}

	resp, body := get(t, ts, "/api/v1/gamification/profiles/u1/events?limit=abc")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, body = %v", resp.StatusCode, body)
	}
}

func TestLeaderboard(t *testing.T) {
	_, ts := newTestServer(t)
	logAction(t, ts, "bob", "check_in")
	logAction(t, ts, "alice", "easter_egg_redeemed")

	resp, body := get(t, ts, "/api/v1/gamification/leaderboard?limit=5")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	entries := body["entries"].([]interface{})
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	top := entries[0].(map[string]interface{})
	if top["userId"] != "alice" || top["rank"] != float64(1) {
		t.Errorf("top = %v", top)
	}
}

func TestCatalog(t *testing.T) {
	_, ts := newTestServer(t)
	resp, body := get(t, ts, "/api/v1/gamification/catalog")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if items := body["items"].([]interface{}); len(items) != 2 {
		t.Errorf("items = %d, want 2", len(items))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.EnableMetrics()
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.Validationf("x"), http.StatusBadRequest},
		{domain.ErrProfileNotFound, http.StatusNotFound},
		{domain.ErrVersionConflict, http.StatusConflict},
		{domain.ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{domain.StorageError("op", io.ErrUnexpectedEOF), http.StatusServiceUnavailable},
		{io.EOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
