package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Trade records one settled match.
type Trade struct {
	ID         uuid.UUID
	Pair       string
	BidOrderID uuid.UUID
	AskOrderID uuid.UUID
	Buyer      uuid.UUID
	Seller     uuid.UUID
	Price      decimal.Decimal
	Quantity   decimal.Decimal
	QuoteValue decimal.Decimal
	Step       uint64
	ExecutedAt time.Time
}

// Resolve settles the book while it is crossed: as long as the best bid
// price is at least the best ask price, the pair is matched. An affordability
// failure cancels the failing order and the loop continues with the new top
// of book; resolution ends when the book uncrosses or a side empties.
// Calling Resolve on an uncrossed book is a no-op.
func (b *OrderBook) Resolve() []Trade {
	var trades []Trade
	for {
		bid := b.bids.best()
		ask := b.asks.best()
		if bid == nil || ask == nil {
			return trades
		}
		if bid.Price.LessThan(ask.Price) {
			return trades
		}
		if trade, ok := b.settleCrossed(bid, ask); ok {
			trades = append(trades, trade)
		}
	}
}

// settleCrossed attempts to settle one crossed (bid, ask) pair atomically.
//
// The later poster transacts at its own posted price; the resting order gets
// price improvement if the incoming price is more favourable. Both legs are
// checked for affordability, fees included, before any balance moves. If a
// leg cannot pay, that order is cancelled and nothing is transferred; the
// surviving order stays in the book for the next attempt.
func (b *OrderBook) settleCrossed(bid, ask *Order) (Trade, bool) {
	b.assertLive(bid)
	b.assertLive(ask)

	price := bid.Price
	if ask.PostTime > bid.PostTime {
		price = ask.Price
	}
	quantity := decimal.Min(bid.Quantity, ask.Quantity)
	quoteValue := quantity.Mul(price)

	ok := true
	if !b.ledger.CanTransfer(bid.Issuer, b.quote, quoteValue) {
		b.cancelUnaffordable(bid, quoteValue)
		ok = false
	}
	if !b.ledger.CanTransfer(ask.Issuer, b.base, quantity) {
		b.cancelUnaffordable(ask, quantity)
		ok = false
	}
	if !ok {
		return Trade{}, false
	}

	// Both legs were affordable a moment ago and nothing else runs in
	// between; a transfer failure here means the book or ledger invariants
	// are broken.
	if err := b.ledger.Transfer(bid.Issuer, ask.Issuer, b.quote, quoteValue); err != nil {
		panic(fmt.Sprintf("book %s: quote leg failed after affordability check: %v", b.pair, err))
	}
	if err := b.ledger.Transfer(ask.Issuer, bid.Issuer, b.base, quantity); err != nil {
		panic(fmt.Sprintf("book %s: base leg failed after affordability check: %v", b.pair, err))
	}

	bid.Quantity = bid.Quantity.Sub(quantity)
	ask.Quantity = ask.Quantity.Sub(quantity)
	if bid.Quantity.IsZero() {
		b.remove(b.orders[bid.ID], Filled)
	}
	if ask.Quantity.IsZero() {
		b.remove(b.orders[ask.ID], Filled)
	}

	return Trade{
		ID:         uuid.New(),
		Pair:       b.pair,
		BidOrderID: bid.ID,
		AskOrderID: ask.ID,
		Buyer:      bid.Issuer,
		Seller:     ask.Issuer,
		Price:      price,
		Quantity:   quantity,
		QuoteValue: quoteValue,
		Step:       b.clock.Step(),
		ExecutedAt: time.Now().UTC(),
	}, true
}

// Cancellation reasons reported through the cancel hook.
const (
	CancelRequested    = "requested"
	CancelUnaffordable = "unaffordable"
)

// cancelUnaffordable removes an order whose issuer cannot fund the trade.
// This is an expected market condition, not an error: the caller of Resolve
// only observes that the order left the book.
func (b *OrderBook) cancelUnaffordable(o *Order, needed decimal.Decimal) {
	b.logger.Debug("order cancelled, issuer cannot fund trade",
		"order_id", o.ID,
		"side", o.Side.String(),
		"issuer", o.Issuer,
		"needed", needed.String(),
	)
	b.remove(b.orders[o.ID], Cancelled)
	if b.onCancel != nil {
		b.onCancel(CancelUnaffordable)
	}
}

// assertLive panics on a broken book invariant: a terminal order still in the
// book, or a non-positive price or quantity observed at match time.
func (b *OrderBook) assertLive(o *Order) {
	if o.state != Active {
		panic(fmt.Sprintf("book %s: %s order %s in book", b.pair, o.state, o.ID))
	}
	if o.Price.LessThanOrEqual(decimal.Zero) || o.Quantity.LessThanOrEqual(decimal.Zero) {
		panic(fmt.Sprintf("book %s: order %s has price %s quantity %s",
			b.pair, o.ID, o.Price, o.Quantity))
	}
}
