package engine

import (
	"container/heap"
	"container/list"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"log/slog"

	"github.com/reemardelarosa/simulation/internal/ledger"
)

// Clock supplies the step counter and a monotonic per-placement sequence.
// The step alone cannot break ties between orders posted in the same step,
// so orders are stamped with the sequence.
type Clock interface {
	Step() uint64
	NextPostTime() uint64
}

// Ledger is the balance-moving contract the book settles against.
type Ledger interface {
	CanTransfer(from uuid.UUID, kind ledger.AssetKind, value decimal.Decimal) bool
	Transfer(from, to uuid.UUID, kind ledger.AssetKind, value decimal.Decimal) error
}

// OrderBook holds the active bids and asks for one asset pair. Bids are
// ordered by price descending, asks ascending, FIFO within a price level.
// The buyer pays the quote asset and receives the base asset.
type OrderBook struct {
	pair         string
	base, quote  ledger.AssetKind
	ledger       Ledger
	clock        Clock
	matchOnPlace bool
	logger       *slog.Logger

	bids     *bookSide
	asks     *bookSide
	orders   map[uuid.UUID]*orderRef
	onCancel func(reason string)
}

func NewOrderBook(pair string, base, quote ledger.AssetKind, l Ledger, clock Clock, matchOnPlace bool, logger *slog.Logger) *OrderBook {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderBook{
		pair:         pair,
		base:         base,
		quote:        quote,
		ledger:       l,
		clock:        clock,
		matchOnPlace: matchOnPlace,
		logger:       logger.With("pair", pair),
		bids:         newBookSide(true),
		asks:         newBookSide(false),
		orders:       make(map[uuid.UUID]*orderRef),
	}
}

func (b *OrderBook) Pair() string {
	return b.pair
}

// Place posts a new order. In match-on-place mode the book resolves before
// returning and any resulting trades are returned alongside the order ID.
func (b *OrderBook) Place(side Side, price, quantity decimal.Decimal, issuer uuid.UUID) (uuid.UUID, []Trade, error) {
	if side != Bid && side != Ask {
		return uuid.Nil, nil, ErrInvalidOrder
	}
	if price.LessThanOrEqual(decimal.Zero) || quantity.LessThanOrEqual(decimal.Zero) {
		return uuid.Nil, nil, ErrInvalidOrder
	}

	order := &Order{
		ID:       uuid.New(),
		Side:     side,
		Issuer:   issuer,
		Price:    price,
		Quantity: quantity,
		PostTime: b.clock.NextPostTime(),
		Step:     b.clock.Step(),
	}

	sideBook := b.bids
	if side == Ask {
		sideBook = b.asks
	}
	b.orders[order.ID] = sideBook.add(order)

	var trades []Trade
	if b.matchOnPlace {
		trades = b.Resolve()
	}
	return order.ID, trades, nil
}

// SetCancelHook registers a callback invoked whenever an order is cancelled,
// with the reason ("requested" or "unaffordable").
func (b *OrderBook) SetCancelHook(fn func(reason string)) {
	b.onCancel = fn
}

// Cancel marks an order cancelled and removes it from the book. It is
// idempotent: cancelling a terminal or unknown order is a no-op.
func (b *OrderBook) Cancel(id uuid.UUID) {
	ref, ok := b.orders[id]
	if !ok {
		return
	}
	b.remove(ref, Cancelled)
	if b.onCancel != nil {
		b.onCancel(CancelRequested)
	}
}

// Order returns a copy of the order with the given ID, if it is still in the
// book.
func (b *OrderBook) Order(id uuid.UUID) (Order, bool) {
	ref, ok := b.orders[id]
	if !ok {
		return Order{}, false
	}
	return *ref.order, true
}

// BestBid returns a copy of the top-priority bid, if any.
func (b *OrderBook) BestBid() (Order, bool) {
	if best := b.bids.best(); best != nil {
		return *best, true
	}
	return Order{}, false
}

// BestAsk returns a copy of the top-priority ask, if any.
func (b *OrderBook) BestAsk() (Order, bool) {
	if best := b.asks.best(); best != nil {
		return *best, true
	}
	return Order{}, false
}

// Depth counts the active orders on one side.
func (b *OrderBook) Depth(side Side) int {
	count := 0
	for _, ref := range b.orders {
		if ref.order.Side == side {
			count++
		}
	}
	return count
}

// remove takes an order out of the book and marks it terminal.
func (b *OrderBook) remove(ref *orderRef, final State) {
	ref.sideBook.remove(ref)
	delete(b.orders, ref.order.ID)
	ref.order.state = final
}

type orderRef struct {
	order    *Order
	element  *list.Element
	level    *priceLevel
	sideBook *bookSide
}

type priceLevel struct {
	price  decimal.Decimal
	key    string
	orders *list.List
	index  int
}

// bookSide is a heap of price levels with a FIFO list per level. Post times
// increase monotonically, so FIFO order within a level is time priority.
type bookSide struct {
	levels map[string]*priceLevel
	heap   priceHeap
}

func newBookSide(isBid bool) *bookSide {
	s := &bookSide{
		levels: make(map[string]*priceLevel),
		heap:   priceHeap{isMax: isBid},
	}
	heap.Init(&s.heap)
	return s
}

func (s *bookSide) add(order *Order) *orderRef {
	key := order.Price.String()
	level := s.levels[key]
	if level == nil {
		level = &priceLevel{price: order.Price, key: key, orders: list.New()}
		heap.Push(&s.heap, level)
		s.levels[key] = level
	}
	element := level.orders.PushBack(order)
	return &orderRef{order: order, element: element, level: level, sideBook: s}
}

func (s *bookSide) remove(ref *orderRef) {
	ref.level.orders.Remove(ref.element)
	if ref.level.orders.Len() == 0 {
		heap.Remove(&s.heap, ref.level.index)
		delete(s.levels, ref.level.key)
	}
}

// best returns the top-priority order: front of the best price level. Levels
// are removed as they empty, so the front is always live.
func (s *bookSide) best() *Order {
	if s.heap.Len() == 0 {
		return nil
	}
	front := s.heap.levels[0].orders.Front()
	if front == nil {
		return nil
	}
	return front.Value.(*Order)
}

type priceHeap struct {
	levels []*priceLevel
	isMax  bool
}

func (h priceHeap) Len() int { return len(h.levels) }

func (h priceHeap) Less(i, j int) bool {
	cmp := h.levels[i].price.Cmp(h.levels[j].price)
	if h.isMax {
		return cmp > 0
	}
	return cmp < 0
}

func (h priceHeap) Swap(i, j int) {
	h.levels[i], h.levels[j] = h.levels[j], h.levels[i]
	h.levels[i].index = i
	h.levels[j].index = j
}

func (h *priceHeap) Push(x interface{}) {
	level := x.(*priceLevel)
	level.index = len(h.levels)
	h.levels = append(h.levels, level)
}

func (h *priceHeap) Pop() interface{} {
	old := h.levels
	n := len(old)
	item := old[n-1]
	item.index = -1
	h.levels = old[:n-1]
	return item
}
