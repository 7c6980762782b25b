package engine

import (
	"fmt"
	"time"

	"github.com/reemardelarosa/simulation/libs/kafka"
)

const TradeSettledEventType = "trades.settled"

// TradeSettledEvent is the outbound wire form of a settled trade.
type TradeSettledEvent struct {
	kafka.Envelope
	TradeID    string `json:"trade_id"`
	Pair       string `json:"pair"`
	BidOrderID string `json:"bid_order_id"`
	AskOrderID string `json:"ask_order_id"`
	Buyer      string `json:"buyer"`
	Seller     string `json:"seller"`
	Price      string `json:"price"`
	Quantity   string `json:"quantity"`
	QuoteValue string `json:"quote_value"`
	Step       uint64 `json:"step"`
	ExecutedAt string `json:"executed_at"`
}

// NewTradeSettledEvent wraps a trade in an envelope with a deterministic
// event ID, so republishing the same trade cannot fan out as a new event.
func NewTradeSettledEvent(t Trade) (TradeSettledEvent, error) {
	eventID := kafka.DeterministicEventID(TradeSettledEventType, t.ID.String())
	env, err := kafka.NewEnvelopeWithID(eventID, TradeSettledEventType, 1, t.ID.String())
	if err != nil {
		return TradeSettledEvent{}, fmt.Errorf("trade event envelope: %w", err)
	}
	return TradeSettledEvent{
		Envelope:   env,
		TradeID:    t.ID.String(),
		Pair:       t.Pair,
		BidOrderID: t.BidOrderID.String(),
		AskOrderID: t.AskOrderID.String(),
		Buyer:      t.Buyer.String(),
		Seller:     t.Seller.String(),
		Price:      t.Price.String(),
		Quantity:   t.Quantity.String(),
		QuoteValue: t.QuoteValue.String(),
		Step:       t.Step,
		ExecutedAt: t.ExecutedAt.Format(time.RFC3339),
	}, nil
}
