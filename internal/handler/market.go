package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/psmarinho/paperarena/internal/domain"
	"github.com/psmarinho/paperarena/internal/engine"
	"github.com/psmarinho/paperarena/internal/service"
)

// MarketHandler handles HTTP requests for the read-side endpoints: the
// snapshot, candles, leaderboard, and instrument catalog.
type MarketHandler struct {
	marketSvc *service.MarketService
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(marketSvc *service.MarketService) *MarketHandler {
	return &MarketHandler{marketSvc: marketSvc}
}

// quoteResponse is one live quote in JSON form.
type quoteResponse struct {
	Symbol        string  `json:"symbol"`
	Month         string  `json:"month"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	UpdatedAt     string  `json:"updated_at"`
}

// candleResponse is one OHLC bar in JSON form.
type candleResponse struct {
	Timestamp string  `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
}

// positionViewResponse is an open position with mark-to-market figures.
type positionViewResponse struct {
	positionResponse
	MarkPrice float64 `json:"mark_price"`
	GrossPL   float64 `json:"gross_pl"`
	NetPL     float64 `json:"net_pl"`
}

// historyEntryResponse is one trade-history row in JSON form.
type historyEntryResponse struct {
	EntryID    string   `json:"entry_id"`
	Type       string   `json:"type"`
	Symbol     string   `json:"symbol"`
	Month      string   `json:"month"`
	Side       string   `json:"side"`
	Price      float64  `json:"price"`
	Lots       int64    `json:"lots"`
	RealizedPL *float64 `json:"realized_pl"`
	CreatedAt  string   `json:"created_at"`
}

// accountResponse is the account balance block of the snapshot.
type accountResponse struct {
	CashBalance    float64 `json:"cash_balance"`
	ReservedMargin float64 `json:"reserved_margin"`
	AvailableCash  float64 `json:"available_cash"`
}

// leaderboardEntryResponse is one ranking row in JSON form.
type leaderboardEntryResponse struct {
	Rank int     `json:"rank"`
	Name string  `json:"name"`
	Team string  `json:"team"`
	ROI  float64 `json:"roi"`
	Self bool    `json:"self"`
}

// snapshotResponse is the JSON response for GET /snapshot.
type snapshotResponse struct {
	Quotes        []quoteResponse            `json:"quotes"`
	Candles       candlesResponse            `json:"candles"`
	Positions     []positionViewResponse     `json:"positions"`
	PendingOrders []pendingOrderResponse     `json:"pending_orders"`
	History       []historyEntryResponse     `json:"history"`
	HistoryTotal  int                        `json:"history_total"`
	Account       accountResponse            `json:"account"`
	Leaderboard   []leaderboardEntryResponse `json:"leaderboard"`
}

// candlesResponse is the JSON response for GET /candles.
type candlesResponse struct {
	Symbol    string           `json:"symbol"`
	Timeframe string           `json:"timeframe"`
	Candles   []candleResponse `json:"candles"`
}

// leaderboardResponse is the JSON response for GET /leaderboard.
type leaderboardResponse struct {
	Entries []leaderboardEntryResponse `json:"entries"`
}

// instrumentResponse is one catalog entry in JSON form.
type instrumentResponse struct {
	Symbol        string   `json:"symbol"`
	Name          string   `json:"name"`
	TickSize      float64  `json:"tick_size"`
	BasePrice     float64  `json:"base_price"`
	MarginRatio   float64  `json:"margin_ratio"`
	DecimalPlaces int      `json:"decimal_places"`
	Months        []string `json:"months"`
}

// instrumentListResponse is the JSON response for GET /instruments.
type instrumentListResponse struct {
	Instruments []instrumentResponse `json:"instruments"`
}

// Snapshot handles GET /snapshot. Optional page/limit query parameters
// paginate the history log; they default to 1/50.
func (h *MarketHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	page, limit, err := parsePagination(r, 1, 50)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	snap, err := h.marketSvc.Snapshot(page, limit)
	if err != nil {
		mapMarketError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildSnapshotResponse(snap))
}

// Candles handles GET /candles?symbol=&timeframe=. It switches the watched
// series and returns the resulting window.
func (h *MarketHandler) Candles(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	timeframe := r.URL.Query().Get("timeframe")
	if symbol == "" || timeframe == "" {
		WriteError(w, http.StatusBadRequest, "validation_error", "symbol and timeframe query parameters are required")
		return
	}

	bars, err := h.marketSvc.SwitchCandles(symbol, timeframe)
	if err != nil {
		mapMarketError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, candlesResponse{
		Symbol:    symbol,
		Timeframe: timeframe,
		Candles:   buildCandleResponses(bars),
	})
}

// Leaderboard handles GET /leaderboard.
func (h *MarketHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, leaderboardResponse{
		Entries: buildLeaderboardResponses(h.marketSvc.Leaderboard()),
	})
}

// Instruments handles GET /instruments.
func (h *MarketHandler) Instruments(w http.ResponseWriter, r *http.Request) {
	instruments := h.marketSvc.Instruments()
	resp := instrumentListResponse{Instruments: make([]instrumentResponse, len(instruments))}
	for i, inst := range instruments {
		resp.Instruments[i] = instrumentResponse{
			Symbol:        inst.Symbol,
			Name:          inst.Name,
			TickSize:      inst.TickSize,
			BasePrice:     inst.BasePrice,
			MarginRatio:   inst.MarginRatio,
			DecimalPlaces: inst.DecimalPlaces,
			Months:        inst.Months,
		}
	}
	WriteJSON(w, http.StatusOK, resp)
}

func parsePagination(r *http.Request, defaultPage, defaultLimit int) (int, int, error) {
	page, limit := defaultPage, defaultLimit
	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, errors.New("page must be an integer")
		}
		page = n
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, errors.New("limit must be an integer")
		}
		limit = n
	}
	return page, limit, nil
}

func buildSnapshotResponse(snap *engine.Snapshot) snapshotResponse {
	resp := snapshotResponse{
		Candles: candlesResponse{
			Symbol:    snap.CandleSymbol,
			Timeframe: string(snap.CandleTimeframe),
			Candles:   buildCandleResponses(snap.Candles),
		},
		HistoryTotal: snap.HistoryTotal,
		Account: accountResponse{
			CashBalance:    snap.Account.CashBalance,
			ReservedMargin: snap.Account.ReservedMargin,
			AvailableCash:  snap.Account.AvailableCash(),
		},
		Leaderboard: buildLeaderboardResponses(snap.Leaderboard),
	}

	resp.Quotes = make([]quoteResponse, len(snap.Quotes))
	for i, q := range snap.Quotes {
		resp.Quotes[i] = quoteResponse{
			Symbol:        q.Symbol,
			Month:         q.Month,
			Price:         q.Price,
			Change:        q.Change,
			ChangePercent: q.ChangePercent,
			UpdatedAt:     q.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}

	resp.Positions = make([]positionViewResponse, len(snap.Positions))
	for i, v := range snap.Positions {
		resp.Positions[i] = positionViewResponse{
			positionResponse: *buildPositionResponse(&v.Position),
			MarkPrice:        v.MarkPrice,
			GrossPL:          v.GrossPL,
			NetPL:            v.NetPL,
		}
	}

	resp.PendingOrders = make([]pendingOrderResponse, len(snap.PendingOrders))
	for i, o := range snap.PendingOrders {
		resp.PendingOrders[i] = *buildPendingOrderResponse(&o)
	}

	resp.History = make([]historyEntryResponse, len(snap.History))
	for i, e := range snap.History {
		resp.History[i] = historyEntryResponse{
			EntryID:    e.EntryID,
			Type:       string(e.Type),
			Symbol:     e.Symbol,
			Month:      e.Month,
			Side:       string(e.Side),
			Price:      e.Price,
			Lots:       e.Lots,
			RealizedPL: e.RealizedPL,
			CreatedAt:  e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}

	return resp
}

func buildCandleResponses(bars []domain.Candle) []candleResponse {
	result := make([]candleResponse, len(bars))
	for i, b := range bars {
		result[i] = candleResponse{
			Timestamp: b.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
		}
	}
	return result
}

func buildLeaderboardResponses(entries []engine.LeaderboardEntry) []leaderboardEntryResponse {
	result := make([]leaderboardEntryResponse, len(entries))
	for i, e := range entries {
		result[i] = leaderboardEntryResponse{
			Rank: e.Rank,
			Name: e.Name,
			Team: e.Team,
			ROI:  e.ROI,
			Self: e.Self,
		}
	}
	return result
}

// mapMarketError maps domain errors to HTTP responses for market endpoints.
func mapMarketError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrSymbolNotFound):
		WriteError(w, http.StatusNotFound, "symbol_not_found", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
