package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/psmarinho/paperarena/internal/domain"
	"github.com/psmarinho/paperarena/internal/engine"
	"github.com/psmarinho/paperarena/internal/service"
	"github.com/psmarinho/paperarena/internal/store"
)

// testEnv bundles all dependencies for handler integration tests. The
// simulator tick interval is long enough that no cycle runs during a test,
// so quotes stay at catalog base prices.
type testEnv struct {
	router http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	registry, err := domain.NewRegistry(domain.DefaultCatalog())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	sim, err := engine.New(engine.Params{
		Registry:          registry,
		Rng:               rand.New(rand.NewSource(1)),
		InitialBalance:    1_000_000,
		ClearingFeePerLot: 20,
		CommissionRate:    0.001,
		TickInterval:      time.Hour,
		VolatilityScale:   1.0,
	})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	sim.Start(ctx)

	webhookSvc := service.NewWebhookService(store.NewWebhookStore(), 5*time.Second)
	tradeSvc := service.NewTradeService(sim, registry, 1)
	marketSvc := service.NewMarketService(sim, registry)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(tradeSvc, marketSvc, webhookSvc, 50*time.Millisecond, logger)

	return &testEnv{router: router}
}

// doJSON sends a JSON request and returns the recorder.
func (env *testEnv) doJSON(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

// doRaw sends a raw request with optional content-type override.
func (env *testEnv) doRaw(t *testing.T, method, path, contentType, rawBody string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(rawBody))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

// decodeJSON decodes the response body into v.
func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rr.Body.String())
	}
}

// placeMarketOrder is a helper that opens a position via the API.
func (env *testEnv) placeMarketOrder(t *testing.T, symbol, month, side string, lots int64) map[string]any {
	t.Helper()
	rr := env.doJSON(t, "POST", "/orders", map[string]any{
		"type":   "market",
		"symbol": symbol,
		"month":  month,
		"side":   side,
		"lots":   lots,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("place market order: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	decodeJSON(t, rr, &resp)
	return resp
}

// placeLimitOrder is a helper that rests a limit order via the API.
func (env *testEnv) placeLimitOrder(t *testing.T, symbol, month, side string, price float64, lots int64) map[string]any {
	t.Helper()
	rr := env.doJSON(t, "POST", "/orders", map[string]any{
		"type":        "limit",
		"symbol":      symbol,
		"month":       month,
		"side":        side,
		"lots":        lots,
		"limit_price": price,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("place limit order: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	decodeJSON(t, rr, &resp)
	return resp
}

// --- Healthz ---

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rr := env.doJSON(t, "GET", "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["status"] != "ok" {
		t.Fatalf("expected status ok, got %s", resp["status"])
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("expected application/json, got %s", ct)
	}
}

// --- Instruments ---

func TestInstruments_List(t *testing.T) {
	env := newTestEnv(t)
	rr := env.doJSON(t, "GET", "/instruments", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp map[string]any
	decodeJSON(t, rr, &resp)
	instruments := resp["instruments"].([]any)
	if len(instruments) != 6 {
		t.Fatalf("expected 6 instruments, got %d", len(instruments))
	}
	first := instruments[0].(map[string]any)
	if first["symbol"] != "C5TC" {
		t.Fatalf("expected first symbol C5TC, got %v", first["symbol"])
	}
	if first["tick_size"] != 5.0 {
		t.Fatalf("expected tick_size=5, got %v", first["tick_size"])
	}
	months := first["months"].([]any)
	if len(months) == 0 {
		t.Fatal("expected contract months")
	}
}

// --- Order Endpoints ---

func TestOrder_PlaceMarket_Success(t *testing.T) {
	env := newTestEnv(t)
	resp := env.placeMarketOrder(t, "C5TC", "SEP26", "buy", 5)

	if resp["status"] != "filled" {
		t.Fatalf("expected status=filled, got %v", resp["status"])
	}
	pos := resp["position"].(map[string]any)
	if pos["entry_price"] != 24860.0 {
		t.Fatalf("expected entry_price=24860 (base quote), got %v", pos["entry_price"])
	}
	if pos["lots"] != 5.0 {
		t.Fatalf("expected lots=5, got %v", pos["lots"])
	}
	if _, ok := resp["order"]; ok {
		t.Fatal("market fill response should not include a resting order")
	}
	createdAt, ok := pos["opened_at"].(string)
	if !ok {
		t.Fatal("opened_at should be a string")
	}
	if _, err := time.Parse(time.RFC3339, createdAt); err != nil {
		t.Fatalf("opened_at not RFC 3339: %s", createdAt)
	}
}

func TestOrder_PlaceLimit_Rests(t *testing.T) {
	env := newTestEnv(t)
	resp := env.placeLimitOrder(t, "C5TC", "SEP26", "buy", 24800, 5)

	if resp["status"] != "resting" {
		t.Fatalf("expected status=resting, got %v", resp["status"])
	}
	order := resp["order"].(map[string]any)
	if order["limit_price"] != 24800.0 {
		t.Fatalf("expected limit_price=24800, got %v", order["limit_price"])
	}
	// 24800 * 5 lots * 0.10 margin ratio.
	if order["margin_reserved"] != 12400.0 {
		t.Fatalf("expected margin_reserved=12400, got %v", order["margin_reserved"])
	}
	if _, ok := resp["position"]; ok {
		t.Fatal("resting response should not include a position")
	}
}

func TestOrder_Place_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"invalid type", map[string]any{
			"type": "stop", "symbol": "C5TC", "month": "SEP26", "side": "buy", "lots": 1,
		}},
		{"invalid side", map[string]any{
			"type": "market", "symbol": "C5TC", "month": "SEP26", "side": "long", "lots": 1,
		}},
		{"zero lots", map[string]any{
			"type": "market", "symbol": "C5TC", "month": "SEP26", "side": "buy", "lots": 0,
		}},
		{"missing limit price", map[string]any{
			"type": "limit", "symbol": "C5TC", "month": "SEP26", "side": "buy", "lots": 1,
		}},
		{"off-tick limit price", map[string]any{
			"type": "limit", "symbol": "C5TC", "month": "SEP26", "side": "buy", "lots": 1, "limit_price": 24801,
		}},
		{"market with limit price", map[string]any{
			"type": "market", "symbol": "C5TC", "month": "SEP26", "side": "buy", "lots": 1, "limit_price": 24800,
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := env.doJSON(t, "POST", "/orders", tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestOrder_Place_UnknownContract(t *testing.T) {
	env := newTestEnv(t)

	rr := env.doJSON(t, "POST", "/orders", map[string]any{
		"type": "market", "symbol": "AAPL", "month": "SEP26", "side": "buy", "lots": 1,
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown symbol, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	decodeJSON(t, rr, &resp)
	if resp["error"] != "symbol_not_found" {
		t.Fatalf("expected error=symbol_not_found, got %v", resp["error"])
	}

	rr = env.doJSON(t, "POST", "/orders", map[string]any{
		"type": "market", "symbol": "C5TC", "month": "JAN99", "side": "buy", "lots": 1,
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown month, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestOrder_Place_InsufficientMargin(t *testing.T) {
	env := newTestEnv(t)

	// 24860 * 450 lots * 0.10 margin exceeds the 1,000,000 balance.
	rr := env.doJSON(t, "POST", "/orders", map[string]any{
		"type": "market", "symbol": "C5TC", "month": "SEP26", "side": "buy", "lots": 450,
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	decodeJSON(t, rr, &resp)
	if resp["error"] != "insufficient_margin" {
		t.Fatalf("expected error=insufficient_margin, got %v", resp["error"])
	}
}

func TestOrder_Cancel_Success(t *testing.T) {
	env := newTestEnv(t)
	placed := env.placeLimitOrder(t, "C5TC", "SEP26", "buy", 24800, 5)
	orderID := placed["order"].(map[string]any)["order_id"].(string)

	rr := env.doJSON(t, "DELETE", "/orders/"+orderID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	decodeJSON(t, rr, &resp)
	if resp["status"] != "cancelled" {
		t.Fatalf("expected status=cancelled, got %v", resp["status"])
	}

	// Reserved margin is released: snapshot shows none held.
	snap := env.getSnapshot(t, "")
	account := snap["account"].(map[string]any)
	if account["reserved_margin"] != 0.0 {
		t.Fatalf("expected reserved_margin=0 after cancel, got %v", account["reserved_margin"])
	}
}

func TestOrder_Cancel_NotFound(t *testing.T) {
	env := newTestEnv(t)
	rr := env.doJSON(t, "DELETE", "/orders/nonexistent", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

// --- Position Endpoints ---

func TestPosition_Close_Success(t *testing.T) {
	env := newTestEnv(t)
	placed := env.placeMarketOrder(t, "C5TC", "SEP26", "buy", 2)
	positionID := placed["position"].(map[string]any)["position_id"].(string)

	rr := env.doJSON(t, "POST", "/positions/"+positionID+"/close", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	decodeJSON(t, rr, &resp)
	if resp["close_price"] != 24860.0 {
		t.Fatalf("expected close_price=24860 (unchanged quote), got %v", resp["close_price"])
	}
	// Flat close: realized = -(open fees + close fees), both on 24860 x 2.
	// clearing 2*20=40, commission 24860*2*0.001=49.72 per leg.
	wantRealized := -2 * (40 + 49.72)
	got := resp["realized_pl"].(float64)
	if got > wantRealized+1e-6 || got < wantRealized-1e-6 {
		t.Fatalf("expected realized_pl=%v, got %v", wantRealized, got)
	}
}

func TestPosition_Close_NotFound(t *testing.T) {
	env := newTestEnv(t)
	rr := env.doJSON(t, "POST", "/positions/nonexistent/close", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rr.Code, rr.Body.String())
	}
}

// --- Snapshot ---

func (env *testEnv) getSnapshot(t *testing.T, query string) map[string]any {
	t.Helper()
	rr := env.doJSON(t, "GET", "/snapshot"+query, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get snapshot: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	decodeJSON(t, rr, &resp)
	return resp
}

func TestSnapshot_Shape(t *testing.T) {
	env := newTestEnv(t)
	env.placeMarketOrder(t, "C5TC", "SEP26", "buy", 2)
	env.placeLimitOrder(t, "P4TC", "OCT26", "sell", 16000, 1)

	snap := env.getSnapshot(t, "")

	quotes := snap["quotes"].([]any)
	if len(quotes) != 30 { // 6 instruments x 5 months
		t.Fatalf("expected 30 quotes, got %d", len(quotes))
	}
	positions := snap["positions"].([]any)
	if len(positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(positions))
	}
	pos := positions[0].(map[string]any)
	if pos["mark_price"] != 24860.0 {
		t.Fatalf("expected mark_price=24860, got %v", pos["mark_price"])
	}
	pending := snap["pending_orders"].([]any)
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending order, got %d", len(pending))
	}
	history := snap["history"].([]any)
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
	// Newest first: the limit submission, then the market open.
	newest := history[0].(map[string]any)
	if newest["type"] != "limit" {
		t.Fatalf("expected newest history type=limit, got %v", newest["type"])
	}
	candles := snap["candles"].(map[string]any)
	if candles["symbol"] != "C5TC" || candles["timeframe"] != "5m" {
		t.Fatalf("expected default C5TC/5m series, got %v/%v", candles["symbol"], candles["timeframe"])
	}
	if bars := candles["candles"].([]any); len(bars) != 60 {
		t.Fatalf("expected 60 bars, got %d", len(bars))
	}
	account := snap["account"].(map[string]any)
	if account["available_cash"].(float64) >= account["cash_balance"].(float64) {
		t.Fatal("available cash should be reduced by reserved margin")
	}
	leaderboard := snap["leaderboard"].([]any)
	if len(leaderboard) == 0 {
		t.Fatal("expected leaderboard entries")
	}
}

func TestSnapshot_PaginationValidation(t *testing.T) {
	env := newTestEnv(t)

	for _, query := range []string{"?page=0", "?limit=0", "?limit=101", "?page=abc"} {
		rr := env.doJSON(t, "GET", "/snapshot"+query, nil)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("query %s: expected 400, got %d: %s", query, rr.Code, rr.Body.String())
		}
	}
}

// --- Candles ---

func TestCandles_Switch(t *testing.T) {
	env := newTestEnv(t)

	rr := env.doJSON(t, "GET", "/candles?symbol=P4TC&timeframe=15m", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	decodeJSON(t, rr, &resp)
	if resp["symbol"] != "P4TC" || resp["timeframe"] != "15m" {
		t.Fatalf("expected P4TC/15m, got %v/%v", resp["symbol"], resp["timeframe"])
	}
	if bars := resp["candles"].([]any); len(bars) != 60 {
		t.Fatalf("expected 60 bars, got %d", len(bars))
	}

	// The snapshot now reflects the switched series.
	snap := env.getSnapshot(t, "")
	candles := snap["candles"].(map[string]any)
	if candles["symbol"] != "P4TC" {
		t.Fatalf("snapshot series = %v, want P4TC", candles["symbol"])
	}
}

func TestCandles_Validation(t *testing.T) {
	env := newTestEnv(t)

	rr := env.doJSON(t, "GET", "/candles?symbol=C5TC", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing timeframe: expected 400, got %d", rr.Code)
	}
	rr = env.doJSON(t, "GET", "/candles?symbol=C5TC&timeframe=2h", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad timeframe: expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
	rr = env.doJSON(t, "GET", "/candles?symbol=AAPL&timeframe=5m", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown symbol: expected 404, got %d: %s", rr.Code, rr.Body.String())
	}
}

// --- Leaderboard ---

func TestLeaderboard_Get(t *testing.T) {
	env := newTestEnv(t)

	rr := env.doJSON(t, "GET", "/leaderboard", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp map[string]any
	decodeJSON(t, rr, &resp)
	entries := resp["entries"].([]any)
	if len(entries) == 0 {
		t.Fatal("expected leaderboard entries")
	}
	foundSelf := false
	for i, e := range entries {
		entry := e.(map[string]any)
		if entry["rank"] != float64(i+1) {
			t.Fatalf("entry %d rank = %v, want %d", i, entry["rank"], i+1)
		}
		if entry["self"] == true {
			foundSelf = true
		}
	}
	if !foundSelf {
		t.Fatal("player row missing from leaderboard")
	}
}

// --- Webhook Endpoints ---

func TestWebhook_Upsert_Success(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]any{
		"url":    "https://example.com/hook",
		"events": []string{"order.filled"},
	}
	rr := env.doJSON(t, "POST", "/webhooks", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	// Re-register same subscription: 200.
	rr = env.doJSON(t, "POST", "/webhooks", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on re-register, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestWebhook_List_Success(t *testing.T) {
	env := newTestEnv(t)

	env.doJSON(t, "POST", "/webhooks", map[string]any{
		"url":    "https://example.com/hook",
		"events": []string{"order.filled"},
	})

	rr := env.doJSON(t, "GET", "/webhooks", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	decodeJSON(t, rr, &resp)
	webhooks := resp["webhooks"].([]any)
	if len(webhooks) != 1 {
		t.Fatalf("expected 1 webhook, got %d", len(webhooks))
	}
}

func TestWebhook_Delete_Success(t *testing.T) {
	env := newTestEnv(t)

	rr := env.doJSON(t, "POST", "/webhooks", map[string]any{
		"url":    "https://example.com/hook",
		"events": []string{"order.filled"},
	})
	var createResp map[string]any
	decodeJSON(t, rr, &createResp)
	webhooks := createResp["webhooks"].([]any)
	whID := webhooks[0].(map[string]any)["webhook_id"].(string)

	rr = env.doJSON(t, "DELETE", "/webhooks/"+whID, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestWebhook_Delete_NotFound(t *testing.T) {
	env := newTestEnv(t)
	rr := env.doJSON(t, "DELETE", "/webhooks/nonexistent", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

// --- Content-Type Validation ---

func TestContentType_MissingOnPost(t *testing.T) {
	env := newTestEnv(t)
	rr := env.doRaw(t, "POST", "/orders", "", `{"type":"market","symbol":"C5TC","month":"SEP26","side":"buy","lots":1}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing Content-Type, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestContentType_WrongOnPost(t *testing.T) {
	env := newTestEnv(t)
	rr := env.doRaw(t, "POST", "/orders", "text/plain", `{"type":"market","symbol":"C5TC","month":"SEP26","side":"buy","lots":1}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for wrong Content-Type, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestContentType_BodylessPostAllowed(t *testing.T) {
	env := newTestEnv(t)
	placed := env.placeMarketOrder(t, "C5TC", "SEP26", "buy", 1)
	positionID := placed["position"].(map[string]any)["position_id"].(string)

	// Close has no body, so no Content-Type header is required.
	rr := env.doRaw(t, "POST", "/positions/"+positionID+"/close", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for body-less close, got %d: %s", rr.Code, rr.Body.String())
	}
}

// --- Stream ---

func TestStream_PushesSnapshots(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The first frame arrives immediately, the second after the interval.
	for i := 0; i < 2; i++ {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var snap map[string]any
		if err := conn.ReadJSON(&snap); err != nil {
			t.Fatalf("read frame %d: %v", i, err)
		}
		if _, ok := snap["quotes"]; !ok {
			t.Fatalf("frame %d missing quotes: %v", i, snap)
		}
		if _, ok := snap["leaderboard"]; !ok {
			t.Fatalf("frame %d missing leaderboard", i)
		}
	}
}

// --- Response Format ---

func TestResponseFormat_SnakeCaseFields(t *testing.T) {
	env := newTestEnv(t)
	env.placeMarketOrder(t, "C5TC", "SEP26", "buy", 1)

	rr := env.doJSON(t, "GET", "/snapshot", nil)
	body := rr.Body.String()

	for _, field := range []string{"cash_balance", "reserved_margin", "available_cash", "entry_price", "pending_orders", "change_percent"} {
		if !strings.Contains(body, `"`+field+`"`) {
			t.Fatalf("response missing snake_case field %q", field)
		}
	}
	for _, bad := range []string{"cashBalance", "entryPrice", "pendingOrders"} {
		if strings.Contains(body, bad) {
			t.Fatalf("response contains camelCase field %q", bad)
		}
	}
}
