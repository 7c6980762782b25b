package sim

import (
	"context"
	"math/rand"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"log/slog"

	"github.com/reemardelarosa/simulation/internal/engine"
	"github.com/reemardelarosa/simulation/internal/ledger"
	"github.com/reemardelarosa/simulation/internal/market"
)

// Agent is one market participant, activated once per step in an order the
// scheduler decides. Agents only act through the market and mint contracts;
// they never touch book or balance state directly.
type Agent interface {
	AccountID() uuid.UUID
	Step(ctx context.Context)
}

// player carries the handles every agent policy shares.
type player struct {
	id     uuid.UUID
	market *market.MarketSet
	ledger *ledger.Ledger
	mint   *ledger.Mint
	rng    *rand.Rand
	logger *slog.Logger
}

func (p *player) AccountID() uuid.UUID {
	return p.id
}

func (p *player) balance(kind ledger.AssetKind) decimal.Decimal {
	a, err := p.ledger.Account(p.id)
	if err != nil {
		return decimal.Zero
	}
	return a.Balance(kind)
}

// spendable reduces a budget to the value that remains affordable once the
// transfer fee is added on top.
func (p *player) spendable(kind ledger.AssetKind, budget decimal.Decimal) decimal.Decimal {
	unitFee := p.ledger.TransferFee(kind, decimal.NewFromInt(1))
	return budget.Div(decimal.NewFromInt(1).Add(unitFee))
}

// quote returns a reference price to trade around: the best opposing quote
// when one exists, the last traded price otherwise.
func (p *player) quote(pair market.Pair, side engine.Side) decimal.Decimal {
	if side == engine.Bid {
		if ask, ok := p.market.BestAsk(pair); ok {
			return ask.Price
		}
	} else {
		if bid, ok := p.market.BestBid(pair); ok {
			return bid.Price
		}
	}
	return p.market.LastPrice(pair)
}

func (p *player) place(ctx context.Context, pair market.Pair, side engine.Side, price, quantity decimal.Decimal) (uuid.UUID, bool) {
	if price.LessThanOrEqual(decimal.Zero) || quantity.LessThanOrEqual(decimal.Zero) {
		return uuid.Nil, false
	}
	id, _, err := p.market.Place(ctx, pair, side, price, quantity, p.id)
	if err != nil {
		p.logger.Debug("order rejected", "agent", p.id, "pair", pair.String(), "error", err)
		return uuid.Nil, false
	}
	return id, true
}

// Banker escrows collateral and issues stable tokens against it to accrue
// fee distributions, buying collateral with any spare reference currency.
type Banker struct {
	player
	premium decimal.Decimal
}

func NewBanker(p player) *Banker {
	return &Banker{player: p, premium: decimal.NewFromFloat(1.05)}
}

func (b *Banker) Step(ctx context.Context) {
	// Spare reference buys more collateral, paying up to a small premium
	// over the current ask.
	if ref := b.balance(ledger.Reference); ref.IsPositive() {
		price := b.quote(market.CollateralReference, engine.Bid).Mul(b.premium)
		budget := b.spendable(ledger.Reference, ref)
		qty := budget.Div(price)
		b.place(ctx, market.CollateralReference, engine.Bid, price, qty)
	}

	// Everything held as free collateral goes into escrow.
	if col := b.balance(ledger.Collateral); col.IsPositive() {
		if err := b.mint.Escrow(b.id, col); err != nil {
			b.logger.Debug("escrow failed", "agent", b.id, "error", err)
		}
	}

	// Issue up to the utilisation cap.
	remaining, err := b.mint.RemainingRights(b.id)
	if err == nil && remaining.IsPositive() {
		if err := b.mint.Issue(b.id, remaining); err != nil {
			b.logger.Debug("issue failed", "agent", b.id, "error", err)
		}
	}

	// Sell issued stable for reference so the position pays for itself.
	if stb := b.balance(ledger.Stable); stb.IsPositive() {
		price := b.quote(market.StableReference, engine.Ask)
		b.place(ctx, market.StableReference, engine.Ask, price, b.spendable(ledger.Stable, stb))
	}
}

// StableShorter holds stable tokens while the price is rich and reference
// currency while it is cheap, cycling between the two around the peg.
type StableShorter struct {
	player
	sellAbove decimal.Decimal
	buyBelow  decimal.Decimal
	sellOrder uuid.UUID
	buyOrder  uuid.UUID
}

func NewStableShorter(p player) *StableShorter {
	return &StableShorter{
		player:    p,
		sellAbove: decimal.NewFromFloat(1.03),
		buyBelow:  decimal.NewFromFloat(0.99),
	}
}

func (s *StableShorter) Step(ctx context.Context) {
	// Stale quotes from earlier steps come down before repricing.
	if s.sellOrder != uuid.Nil {
		s.market.Cancel(market.StableReference, s.sellOrder)
		s.sellOrder = uuid.Nil
	}
	if s.buyOrder != uuid.Nil {
		s.market.Cancel(market.StableReference, s.buyOrder)
		s.buyOrder = uuid.Nil
	}

	// Collateral is not the point of this player; swap it for stable.
	if col := s.balance(ledger.Collateral); col.IsPositive() {
		price := s.quote(market.CollateralStable, engine.Ask)
		s.place(ctx, market.CollateralStable, engine.Ask, price, s.spendable(ledger.Collateral, col))
	}

	if stb := s.balance(ledger.Stable); stb.IsPositive() {
		if id, ok := s.place(ctx, market.StableReference, engine.Ask, s.sellAbove, s.spendable(ledger.Stable, stb)); ok {
			s.sellOrder = id
		}
	}

	if ref := s.balance(ledger.Reference); ref.IsPositive() {
		budget := s.spendable(ledger.Reference, ref)
		qty := budget.Div(s.buyBelow)
		if id, ok := s.place(ctx, market.StableReference, engine.Bid, s.buyBelow, qty); ok {
			s.buyOrder = id
		}
	}
}

// Randomizer provides noise: a small random order on a random pair each
// step, priced within a band around the last trade.
type Randomizer struct {
	player
	lastPair  market.Pair
	lastOrder uuid.UUID
}

func NewRandomizer(p player) *Randomizer {
	return &Randomizer{player: p}
}

func (r *Randomizer) Step(ctx context.Context) {
	if r.lastOrder != uuid.Nil {
		r.market.Cancel(r.lastPair, r.lastOrder)
		r.lastOrder = uuid.Nil
	}

	pairs := market.Pairs()
	pair := pairs[r.rng.Intn(len(pairs))]
	side := engine.Side(r.rng.Intn(2))

	// Within ±5% of the last traded price.
	band := decimal.NewFromFloat(0.95 + r.rng.Float64()*0.1)
	price := r.market.LastPrice(pair).Mul(band)

	tenth := decimal.NewFromFloat(0.1)
	var qty decimal.Decimal
	if side == engine.Bid {
		budget := r.spendable(pair.Quote(), r.balance(pair.Quote()).Mul(tenth))
		qty = budget.Div(price)
	} else {
		qty = r.spendable(pair.Base(), r.balance(pair.Base()).Mul(tenth))
	}

	if id, ok := r.place(ctx, pair, side, price, qty); ok {
		r.lastPair = pair
		r.lastOrder = id
	}
}

// Arbitrageur trades the triangle: when collateral priced through the stable
// market diverges from its direct reference price, it sells the expensive
// route and buys the cheap one.
type Arbitrageur struct {
	player
	threshold decimal.Decimal
}

func NewArbitrageur(p player) *Arbitrageur {
	return &Arbitrageur{player: p, threshold: decimal.NewFromFloat(0.01)}
}

func (a *Arbitrageur) Step(ctx context.Context) {
	direct := a.market.LastPrice(market.CollateralReference)
	implied := a.market.LastPrice(market.CollateralStable).Mul(a.market.LastPrice(market.StableReference))
	if direct.IsZero() || implied.IsZero() {
		return
	}

	gap := implied.Sub(direct).Div(direct)
	if gap.Abs().LessThan(a.threshold) {
		return
	}

	tenth := decimal.NewFromFloat(0.1)
	if gap.IsPositive() {
		// Collateral is rich through the stable leg: buy direct, sell via
		// the collateral/stable book.
		budget := a.spendable(ledger.Reference, a.balance(ledger.Reference).Mul(tenth))
		if budget.IsPositive() {
			a.place(ctx, market.CollateralReference, engine.Bid, direct, budget.Div(direct))
		}
		if col := a.spendable(ledger.Collateral, a.balance(ledger.Collateral).Mul(tenth)); col.IsPositive() {
			a.place(ctx, market.CollateralStable, engine.Ask, a.market.LastPrice(market.CollateralStable), col)
		}
		return
	}

	// Collateral is cheap through the stable leg: buy it with stable, sell
	// it directly for reference.
	if stb := a.spendable(ledger.Stable, a.balance(ledger.Stable).Mul(tenth)); stb.IsPositive() {
		price := a.market.LastPrice(market.CollateralStable)
		a.place(ctx, market.CollateralStable, engine.Bid, price, stb.Div(price))
	}
	if col := a.spendable(ledger.Collateral, a.balance(ledger.Collateral).Mul(tenth)); col.IsPositive() {
		a.place(ctx, market.CollateralReference, engine.Ask, direct, col)
	}
}
