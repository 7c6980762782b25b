package market

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"log/slog"

	"github.com/reemardelarosa/simulation/internal/engine"
	"github.com/reemardelarosa/simulation/internal/ledger"
	"github.com/reemardelarosa/simulation/libs/kafka"
)

// TradeJournal persists settled trades for offline analysis.
type TradeJournal interface {
	InsertTrade(ctx context.Context, t engine.Trade) error
}

// Metrics is the instrumentation hook the market set reports into.
type Metrics interface {
	ObserveOrder(pair, side string)
	ObserveCancel(pair, reason string)
	ObserveTrades(pair string, count int)
	SetBookDepth(pair, side string, depth float64)
	SetFeePool(asset string, size float64)
}

// MarketSet owns the three order books, the clock, and the last traded
// prices. Agents and the scheduler only touch market state through it.
type MarketSet struct {
	ledger       *ledger.Ledger
	clock        *Clock
	books        map[Pair]*engine.OrderBook
	lastPrice    map[Pair]decimal.Decimal
	matchOnPlace bool

	publisher  kafka.Publisher
	tradeTopic string
	journal    TradeJournal
	metrics    Metrics
	logger     *slog.Logger

	stepTrades int
}

// Config wires the optional collaborators. Publisher, journal and metrics
// may all be nil; the market set degrades to a closed in-process simulation.
type Config struct {
	MatchOnPlace bool
	Publisher    kafka.Publisher
	TradeTopic   string
	Journal      TradeJournal
	Metrics      Metrics
	Logger       *slog.Logger
}

func New(l *ledger.Ledger, cfg Config) *MarketSet {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tradeTopic := cfg.TradeTopic
	if tradeTopic == "" {
		tradeTopic = engine.TradeSettledEventType
	}

	m := &MarketSet{
		ledger:       l,
		clock:        NewClock(),
		books:        make(map[Pair]*engine.OrderBook),
		lastPrice:    make(map[Pair]decimal.Decimal),
		matchOnPlace: cfg.MatchOnPlace,
		publisher:    cfg.Publisher,
		tradeTopic:   tradeTopic,
		journal:      cfg.Journal,
		metrics:      cfg.Metrics,
		logger:       logger,
	}
	for _, p := range Pairs() {
		book := engine.NewOrderBook(p.String(), p.Base(), p.Quote(), l, m.clock, cfg.MatchOnPlace, logger)
		if cfg.Metrics != nil {
			pair := p.String()
			book.SetCancelHook(func(reason string) {
				cfg.Metrics.ObserveCancel(pair, reason)
			})
		}
		m.books[p] = book
		// Books open at par until a trade prints.
		m.lastPrice[p] = decimal.NewFromInt(1)
	}
	return m
}

// Place posts an order on one pair. In match-on-place mode settlement runs
// before returning and the resulting trades are reported.
func (m *MarketSet) Place(ctx context.Context, pair Pair, side engine.Side, price, quantity decimal.Decimal, issuer uuid.UUID) (uuid.UUID, []engine.Trade, error) {
	id, trades, err := m.books[pair].Place(side, price, quantity, issuer)
	if err != nil {
		return uuid.Nil, nil, err
	}
	if m.metrics != nil {
		m.metrics.ObserveOrder(pair.String(), side.String())
	}
	m.emit(ctx, pair, trades)
	return id, trades, nil
}

// Cancel is idempotent, like the underlying book cancel.
func (m *MarketSet) Cancel(pair Pair, id uuid.UUID) {
	m.books[pair].Cancel(id)
}

func (m *MarketSet) BestBid(pair Pair) (engine.Order, bool) {
	return m.books[pair].BestBid()
}

func (m *MarketSet) BestAsk(pair Pair) (engine.Order, bool) {
	return m.books[pair].BestAsk()
}

func (m *MarketSet) Depth(pair Pair, side engine.Side) int {
	return m.books[pair].Depth(side)
}

func (m *MarketSet) Order(pair Pair, id uuid.UUID) (engine.Order, bool) {
	return m.books[pair].Order(id)
}

// ResolveAll settles every crossed book. In batch mode the scheduler calls
// this once per step after all agents have acted; in match-on-place mode the
// books are already uncrossed and this is a no-op.
func (m *MarketSet) ResolveAll(ctx context.Context) []engine.Trade {
	var all []engine.Trade
	for _, p := range Pairs() {
		trades := m.books[p].Resolve()
		m.emit(ctx, p, trades)
		all = append(all, trades...)
	}
	return all
}

// DrainStepTrades returns the number of trades settled since the last call.
// The scheduler uses it to attribute trades to steps in either trigger mode.
func (m *MarketSet) DrainStepTrades() int {
	n := m.stepTrades
	m.stepTrades = 0
	return n
}

// CurrentStep returns the clock step.
func (m *MarketSet) CurrentStep() uint64 {
	return m.clock.Step()
}

// AdvanceStep moves the clock one step forward.
func (m *MarketSet) AdvanceStep() {
	m.clock.Advance()
}

// LastPrice is the most recent traded price for the pair, par before the
// first trade.
func (m *MarketSet) LastPrice(pair Pair) decimal.Decimal {
	return m.lastPrice[pair]
}

// Convert implements ledger.PriceSource by routing through the reference
// prices of the two assets.
func (m *MarketSet) Convert(from, to ledger.AssetKind, value decimal.Decimal) decimal.Decimal {
	if from == to {
		return value
	}
	return value.Mul(m.referencePrice(from)).Div(m.referencePrice(to))
}

func (m *MarketSet) referencePrice(kind ledger.AssetKind) decimal.Decimal {
	switch kind {
	case ledger.Collateral:
		return m.lastPrice[CollateralReference]
	case ledger.Stable:
		return m.lastPrice[StableReference]
	default:
		return decimal.NewFromInt(1)
	}
}

// emit fans settled trades out to prices, metrics, the event stream and the
// journal. Downstream failures are logged, never surfaced: reporting must not
// abort the simulation.
func (m *MarketSet) emit(ctx context.Context, pair Pair, trades []engine.Trade) {
	if len(trades) > 0 {
		m.lastPrice[pair] = trades[len(trades)-1].Price
		m.stepTrades += len(trades)
	}

	for _, t := range trades {
		if m.publisher != nil {
			event, err := engine.NewTradeSettledEvent(t)
			if err != nil {
				m.logger.Error("trade event build failed", "trade_id", t.ID, "error", err)
			} else if _, _, err := m.publisher.PublishJSON(ctx, m.tradeTopic, pair.String(), event); err != nil {
				m.logger.Error("trade event publish failed", "trade_id", t.ID, "error", err)
			}
		}
		if m.journal != nil {
			if err := m.journal.InsertTrade(ctx, t); err != nil {
				m.logger.Error("trade journal insert failed", "trade_id", t.ID, "error", err)
			}
		}
	}

	if m.metrics != nil {
		if len(trades) > 0 {
			m.metrics.ObserveTrades(pair.String(), len(trades))
		}
		m.metrics.SetBookDepth(pair.String(), engine.Bid.String(), float64(m.books[pair].Depth(engine.Bid)))
		m.metrics.SetBookDepth(pair.String(), engine.Ask.String(), float64(m.books[pair].Depth(engine.Ask)))
		for _, kind := range []ledger.AssetKind{ledger.Collateral, ledger.Stable, ledger.Reference} {
			m.metrics.SetFeePool(kind.String(), m.ledger.FeePool(kind).InexactFloat64())
		}
	}
}
