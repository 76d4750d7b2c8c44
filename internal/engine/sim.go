package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/psmarinho/paperarena/internal/domain"
	"github.com/psmarinho/paperarena/internal/store"
)

// Notifier receives engine events. Implementations must not block the
// caller; dispatch work belongs on their own goroutines.
type Notifier interface {
	OrderFilled(order *domain.PendingOrder, pos *domain.Position)
	OrderCancelled(order *domain.PendingOrder)
	PositionClosed(pos *domain.Position, closePrice, realizedPL float64)
}

// Params configures a Simulator.
type Params struct {
	Registry          *domain.Registry
	Source            QuoteSource // nil: a QuoteGenerator seeded from Rng
	Rng               *rand.Rand  // nil: time-seeded
	InitialBalance    float64
	ClearingFeePerLot float64
	CommissionRate    float64
	CandleWindow      int // bars kept per series; default 60
	VolatilityScale   float64
	TickInterval      time.Duration
	CyclesPerBar      int // cycles between bar boundaries; default 15
	LeaderboardSize   int // default 10
	PlayerName        string
	PlayerTeam        string
	Notifier          Notifier // optional
	Logger            *slog.Logger
}

// Simulator owns all mutable simulation state: quotes, the watched candle
// series, resting orders, positions, history, and the account. A single
// goroutine started by Start runs both the recurring cycle and every user
// command, so cycles never overlap and no locks are needed. External
// callers interact only through the exported command methods, which block
// until the loop has executed them.
type Simulator struct {
	registry        *domain.Registry
	source          QuoteSource
	rng             *rand.Rand
	tickInterval    time.Duration
	cyclesPerBar    int
	candleWindow    int
	volatilityScale float64
	leaderboardSize int
	playerName      string
	playerTeam      string
	notifier        Notifier
	logger          *slog.Logger

	cmds chan func()

	// State below is owned by the simulation goroutine.
	quotes     map[domain.QuoteKey]*domain.Quote
	series     *CandleSeries
	orders     *store.PendingOrderStore
	positions  *store.PositionStore
	history    *store.HistoryStore
	account    *domain.Account
	ledger     *Ledger
	resolver   *Resolver
	cycleCount int
}

// New creates a Simulator with quotes seeded at base prices and the first
// catalog instrument watched on the 5m timeframe.
func New(p Params) (*Simulator, error) {
	if p.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if p.InitialBalance <= 0 {
		return nil, fmt.Errorf("initial balance must be > 0")
	}
	if p.TickInterval <= 0 {
		return nil, fmt.Errorf("tick interval must be > 0")
	}
	if p.Rng == nil {
		p.Rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if p.Source == nil {
		p.Source = NewQuoteGenerator(p.Registry, p.VolatilityScale, p.Rng)
	}
	if p.CandleWindow <= 0 {
		p.CandleWindow = 60
	}
	if p.CyclesPerBar <= 0 {
		p.CyclesPerBar = 15
	}
	if p.LeaderboardSize <= 0 {
		p.LeaderboardSize = 10
	}
	if p.PlayerName == "" {
		p.PlayerName = "My Desk"
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}

	account := &domain.Account{CashBalance: p.InitialBalance}
	ledger := NewLedger(account, p.ClearingFeePerLot, p.CommissionRate)
	orders := store.NewPendingOrderStore()

	now := time.Now()
	s := &Simulator{
		registry:        p.Registry,
		source:          p.Source,
		rng:             p.Rng,
		tickInterval:    p.TickInterval,
		cyclesPerBar:    p.CyclesPerBar,
		candleWindow:    p.CandleWindow,
		volatilityScale: p.VolatilityScale,
		leaderboardSize: p.LeaderboardSize,
		playerName:      p.PlayerName,
		playerTeam:      p.PlayerTeam,
		notifier:        p.Notifier,
		logger:          p.Logger,
		cmds:            make(chan func()),
		quotes:          InitialQuotes(p.Registry, now),
		orders:          orders,
		positions:       store.NewPositionStore(),
		history:         store.NewHistoryStore(),
		account:         account,
		ledger:          ledger,
		resolver:        NewResolver(orders, ledger),
	}

	if insts := p.Registry.All(); len(insts) > 0 {
		s.series = NewCandleSeries(insts[0], domain.Timeframe5m, insts[0].BasePrice, s.candleWindow, s.volatilityScale, s.rng, now)
	}
	return s, nil
}

// Start launches the simulation goroutine. It stops when ctx is cancelled.
func (s *Simulator) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.cycle(now)
			case cmd := <-s.cmds:
				cmd()
			}
		}
	}()
}

// do runs fn on the simulation goroutine and waits for completion.
func (s *Simulator) do(fn func()) {
	done := make(chan struct{})
	s.cmds <- func() {
		fn()
		close(done)
	}
	<-done
}

// cycle runs one simulation step in the fixed mutation order: advance all
// quotes, mutate the watched candle, then resolve resting orders against
// the new quotes (which applies the resulting fee and balance moves).
func (s *Simulator) cycle(now time.Time) {
	s.source.Advance(s.quotes, now)
	s.cycleCount++

	if s.series != nil {
		if inst, err := s.registry.Get(s.series.Symbol()); err == nil && inst.Volatility > 0 && s.volatilityScale > 0 {
			move := (s.rng.Float64()*2 - 1) * inst.BasePrice * inst.Volatility * s.volatilityScale
			s.series.Tick(move)
		}
		if s.cycleCount%s.cyclesPerBar == 0 {
			s.series.Roll(now)
		}
	}

	for _, f := range s.resolver.Resolve(s.quotes, now) {
		s.positions.Add(f.Position)
		s.appendHistory(domain.HistoryTypeFill, f.Order.Symbol, f.Order.Month, f.Order.Side, f.Order.LimitPrice, f.Order.Lots, nil, now)
		s.logger.Info("limit order filled",
			slog.String("order_id", f.Order.OrderID),
			slog.String("position_id", f.Position.PositionID),
			slog.String("symbol", f.Order.Symbol),
			slog.Float64("price", f.Order.LimitPrice),
			slog.Int64("lots", f.Order.Lots),
		)
		if s.notifier != nil {
			s.notifier.OrderFilled(f.Order, f.Position)
		}
	}
}

// PlaceOrderRequest is the already-validated input for order placement.
type PlaceOrderRequest struct {
	Symbol     string
	Month      string
	Side       domain.OrderSide
	Lots       int64
	Type       domain.OrderType
	LimitPrice float64 // limit orders only
}

// PlaceOrderResult carries either the immediately opened position or the
// resting order, never both.
type PlaceOrderResult struct {
	Position *domain.Position
	Order    *domain.PendingOrder
}

// PlaceOrder executes a market order at the live quote or rests a limit
// order (filling it immediately at the limit price when already crossed).
func (s *Simulator) PlaceOrder(req PlaceOrderRequest) (res *PlaceOrderResult, err error) {
	s.do(func() {
		res, err = s.placeOrder(req, time.Now())
	})
	return res, err
}

func (s *Simulator) placeOrder(req PlaceOrderRequest, now time.Time) (*PlaceOrderResult, error) {
	inst, err := s.registry.Get(req.Symbol)
	if err != nil {
		return nil, err
	}
	if !inst.HasMonth(req.Month) {
		return nil, domain.ErrMonthNotFound
	}
	q, ok := s.quotes[domain.QuoteKey{Symbol: req.Symbol, Month: req.Month}]
	if !ok {
		return nil, domain.ErrQuoteUnavailable
	}

	if req.Type == domain.OrderTypeMarket {
		pos, _, err := s.ledger.OpenPosition(inst, req.Month, req.Side, req.Lots, q.Price, now)
		if err != nil {
			return nil, err
		}
		s.positions.Add(pos)
		s.appendHistory(domain.HistoryTypeOpen, pos.Symbol, pos.Month, pos.Side, pos.EntryPrice, pos.Lots, nil, now)
		s.logger.Info("market order filled",
			slog.String("position_id", pos.PositionID),
			slog.String("symbol", pos.Symbol),
			slog.Float64("price", pos.EntryPrice),
			slog.Int64("lots", pos.Lots),
		)
		return &PlaceOrderResult{Position: pos}, nil
	}

	// Limit order already crossed by the live quote fills immediately,
	// still at the limit price.
	probe := &domain.PendingOrder{Side: req.Side, LimitPrice: req.LimitPrice}
	if probe.Crossed(q.Price) {
		pos, _, err := s.ledger.OpenPosition(inst, req.Month, req.Side, req.Lots, req.LimitPrice, now)
		if err != nil {
			return nil, err
		}
		s.positions.Add(pos)
		s.appendHistory(domain.HistoryTypeFill, pos.Symbol, pos.Month, pos.Side, pos.EntryPrice, pos.Lots, nil, now)
		return &PlaceOrderResult{Position: pos}, nil
	}

	margin, err := s.ledger.ReserveResting(inst, req.LimitPrice, req.Lots)
	if err != nil {
		return nil, err
	}
	order := &domain.PendingOrder{
		OrderID:        uuid.New().String(),
		Symbol:         req.Symbol,
		Month:          req.Month,
		Side:           req.Side,
		Lots:           req.Lots,
		LimitPrice:     req.LimitPrice,
		MarginReserved: margin,
		Status:         domain.OrderStatusResting,
		CreatedAt:      now,
	}
	s.orders.Add(order)
	s.appendHistory(domain.HistoryTypeLimit, order.Symbol, order.Month, order.Side, order.LimitPrice, order.Lots, nil, now)
	return &PlaceOrderResult{Order: order}, nil
}

// CancelOrder removes a resting order and releases its margin. Takes
// effect before the next cycle can observe the order.
func (s *Simulator) CancelOrder(id string) (o *domain.PendingOrder, err error) {
	s.do(func() {
		o, err = s.cancelOrder(id)
	})
	return o, err
}

func (s *Simulator) cancelOrder(id string) (*domain.PendingOrder, error) {
	o, err := s.orders.Remove(id)
	if err != nil {
		return nil, err
	}
	s.ledger.ReleaseReservation(o.MarginReserved)
	o.Status = domain.OrderStatusCancelled
	if s.notifier != nil {
		s.notifier.OrderCancelled(o)
	}
	return o, nil
}

// CloseResult reports a realized close.
type CloseResult struct {
	Position   *domain.Position
	ClosePrice float64
	RealizedPL float64
}

// ClosePosition closes a position at the live quote and realizes P&L.
func (s *Simulator) ClosePosition(id string) (res *CloseResult, err error) {
	s.do(func() {
		res, err = s.closePosition(id, time.Now())
	})
	return res, err
}

func (s *Simulator) closePosition(id string, now time.Time) (*CloseResult, error) {
	pos, err := s.positions.Get(id)
	if err != nil {
		return nil, err
	}
	q, ok := s.quotes[domain.QuoteKey{Symbol: pos.Symbol, Month: pos.Month}]
	if !ok {
		return nil, domain.ErrQuoteUnavailable
	}

	realized, _ := s.ledger.ClosePosition(pos, q.Price)
	s.positions.Remove(id)

	rp := realized
	s.appendHistory(domain.HistoryTypeClose, pos.Symbol, pos.Month, pos.Side, q.Price, pos.Lots, &rp, now)
	s.logger.Info("position closed",
		slog.String("position_id", pos.PositionID),
		slog.String("symbol", pos.Symbol),
		slog.Float64("close_price", q.Price),
		slog.Float64("realized_pl", realized),
	)
	if s.notifier != nil {
		s.notifier.PositionClosed(pos, q.Price, realized)
	}
	return &CloseResult{Position: pos, ClosePrice: q.Price, RealizedPL: realized}, nil
}

// SwitchCandles changes the watched symbol+timeframe, re-synthesizing the
// series seeded from the live front-month quote. Switching to the pair
// already watched keeps the existing series.
func (s *Simulator) SwitchCandles(symbol string, tf domain.Timeframe) (bars []domain.Candle, err error) {
	s.do(func() {
		bars, err = s.switchCandles(symbol, tf, time.Now())
	})
	return bars, err
}

func (s *Simulator) switchCandles(symbol string, tf domain.Timeframe, now time.Time) ([]domain.Candle, error) {
	inst, err := s.registry.Get(symbol)
	if err != nil {
		return nil, err
	}
	if s.series != nil && s.series.Symbol() == symbol && s.series.Timeframe() == tf {
		return s.series.Bars(), nil
	}

	seed := inst.BasePrice
	if q, ok := s.quotes[domain.QuoteKey{Symbol: symbol, Month: inst.Months[0]}]; ok {
		seed = q.Price
	}
	s.series = NewCandleSeries(inst, tf, seed, s.candleWindow, s.volatilityScale, s.rng, now)
	return s.series.Bars(), nil
}

// PositionView is a position with its mark-to-market figures.
type PositionView struct {
	Position  domain.Position
	MarkPrice float64
	GrossPL   float64
	NetPL     float64
}

// Snapshot is a consistent read-only copy of the whole simulation state.
type Snapshot struct {
	Quotes          []domain.Quote
	CandleSymbol    string
	CandleTimeframe domain.Timeframe
	Candles         []domain.Candle
	Positions       []PositionView
	PendingOrders   []domain.PendingOrder
	History         []domain.HistoryEntry
	HistoryTotal    int
	Account         domain.Account
	Leaderboard     []LeaderboardEntry
}

// Snapshot copies the full state. page/limit paginate the history log.
func (s *Simulator) Snapshot(page, limit int) (snap *Snapshot) {
	s.do(func() {
		snap = s.snapshot(page, limit)
	})
	return snap
}

func (s *Simulator) snapshot(page, limit int) *Snapshot {
	snap := &Snapshot{
		Account:     *s.account,
		Leaderboard: s.leaderboard(),
	}

	for _, inst := range s.registry.All() {
		for _, month := range inst.Months {
			if q, ok := s.quotes[domain.QuoteKey{Symbol: inst.Symbol, Month: month}]; ok {
				snap.Quotes = append(snap.Quotes, *q)
			}
		}
	}

	if s.series != nil {
		snap.CandleSymbol = s.series.Symbol()
		snap.CandleTimeframe = s.series.Timeframe()
		snap.Candles = s.series.Bars()
	}

	for _, pos := range s.positions.List() {
		view := PositionView{Position: *pos, MarkPrice: pos.EntryPrice}
		if q, ok := s.quotes[domain.QuoteKey{Symbol: pos.Symbol, Month: pos.Month}]; ok {
			view.MarkPrice = q.Price
			view.GrossPL, view.NetPL = s.ledger.UnrealizedPL(pos, q.Price)
		}
		snap.Positions = append(snap.Positions, view)
	}

	for _, o := range s.orders.List() {
		snap.PendingOrders = append(snap.PendingOrders, *o)
	}

	entries, total := s.history.List(page, limit)
	snap.HistoryTotal = total
	for _, e := range entries {
		snap.History = append(snap.History, *e)
	}
	return snap
}

// Leaderboard recomputes the ranking from live account state.
func (s *Simulator) Leaderboard() (entries []LeaderboardEntry) {
	s.do(func() {
		entries = s.leaderboard()
	})
	return entries
}

func (s *Simulator) leaderboard() []LeaderboardEntry {
	var totalUnrealized float64
	for _, pos := range s.positions.List() {
		if q, ok := s.quotes[domain.QuoteKey{Symbol: pos.Symbol, Month: pos.Month}]; ok {
			_, net := s.ledger.UnrealizedPL(pos, q.Price)
			totalUnrealized += net
		}
	}
	roi := AccountROI(s.account.CashBalance, totalUnrealized)
	return ComputeLeaderboard(s.playerName, s.playerTeam, roi, s.leaderboardSize)
}

func (s *Simulator) appendHistory(t domain.HistoryType, symbol, month string, side domain.OrderSide, price float64, lots int64, realizedPL *float64, now time.Time) {
	s.history.Append(&domain.HistoryEntry{
		EntryID:    uuid.New().String(),
		Type:       t,
		Symbol:     symbol,
		Month:      month,
		Side:       side,
		Price:      price,
		Lots:       lots,
		RealizedPL: realizedPL,
		CreatedAt:  now,
	})
}
