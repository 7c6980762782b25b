package engine

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/reemardelarosa/simulation/internal/fee"
	"github.com/reemardelarosa/simulation/internal/ledger"
)

type fakeClock struct {
	step uint64
	seq  uint64
}

func (c *fakeClock) Step() uint64 {
	return c.step
}

func (c *fakeClock) NextPostTime() uint64 {
	c.seq++
	return c.seq
}

type fixture struct {
	ledger *ledger.Ledger
	clock  *fakeClock
	book   *OrderBook
	buyer  uuid.UUID
	seller uuid.UUID
}

// newFixture builds a collateral/stable book with zero fees: the buyer pays
// stable, the seller delivers collateral.
func newFixture(t *testing.T) *fixture {
	return newFixtureWithFees(t, "0", "0", "0")
}

func newFixtureWithFees(t *testing.T, colRate, stbRate, refRate string) *fixture {
	t.Helper()
	policy := fee.NewPolicy(
		decimal.RequireFromString(colRate),
		decimal.RequireFromString(stbRate),
		decimal.RequireFromString(refRate),
	)
	l := ledger.New(policy, decimal.NewFromInt(1_000_000), nil)
	clock := &fakeClock{step: 1}
	book := NewOrderBook("COL/STB", ledger.Collateral, ledger.Stable, l, clock, false, nil)

	buyer := l.CreateAccount("buyer")
	seller := l.CreateAccount("seller")
	if err := l.Endow(buyer.ID, ledger.Stable, decimal.NewFromInt(10_000)); err != nil {
		t.Fatalf("endow buyer: %v", err)
	}
	if err := l.Endow(seller.ID, ledger.Collateral, decimal.NewFromInt(10_000)); err != nil {
		t.Fatalf("endow seller: %v", err)
	}
	return &fixture{ledger: l, clock: clock, book: book, buyer: buyer.ID, seller: seller.ID}
}

func (f *fixture) place(t *testing.T, side Side, price, qty int64, issuer uuid.UUID) uuid.UUID {
	t.Helper()
	id, _, err := f.book.Place(side, decimal.NewFromInt(price), decimal.NewFromInt(qty), issuer)
	if err != nil {
		t.Fatalf("place %s %d@%d: %v", side, qty, price, err)
	}
	return id
}

func TestPlaceRejectsInvalidOrders(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name       string
		price, qty int64
	}{
		{"zero price", 0, 5},
		{"negative price", -1, 5},
		{"zero quantity", 10, 0},
		{"negative quantity", 10, -5},
	}
	for _, tc := range cases {
		_, _, err := f.book.Place(Bid, decimal.NewFromInt(tc.price), decimal.NewFromInt(tc.qty), f.buyer)
		if !errors.Is(err, ErrInvalidOrder) {
			t.Fatalf("%s: expected ErrInvalidOrder, got %v", tc.name, err)
		}
	}

	// An out-of-range side must not slip into either side of the book.
	_, _, err := f.book.Place(Side(7), decimal.NewFromInt(10), decimal.NewFromInt(5), f.buyer)
	if !errors.Is(err, ErrInvalidOrder) {
		t.Fatalf("invalid side: expected ErrInvalidOrder, got %v", err)
	}

	if depth := f.book.Depth(Bid) + f.book.Depth(Ask); depth != 0 {
		t.Fatalf("rejected orders entered the book, depth = %d", depth)
	}
}

func TestBestPricesRespectPriceTimeOrder(t *testing.T) {
	f := newFixture(t)

	f.place(t, Bid, 100, 1, f.buyer)
	b2 := f.place(t, Bid, 105, 1, f.buyer)
	f.place(t, Ask, 110, 1, f.seller)
	s2 := f.place(t, Ask, 108, 1, f.seller)

	bid, ok := f.book.BestBid()
	if !ok || bid.ID != b2 {
		t.Fatalf("best bid = %+v, want order at 105", bid)
	}
	ask, ok := f.book.BestAsk()
	if !ok || ask.ID != s2 {
		t.Fatalf("best ask = %+v, want order at 108", ask)
	}

	// Equal price, earlier post wins the top slot.
	early := f.place(t, Bid, 105, 2, f.buyer)
	bid, _ = f.book.BestBid()
	if bid.ID != b2 {
		t.Fatalf("later order at equal price took priority over %s", b2)
	}
	f.book.Cancel(b2)
	bid, _ = f.book.BestBid()
	if bid.ID != early {
		t.Fatalf("expected second-posted order at 105 after cancel, got %s", bid.ID)
	}
}

func TestCancelIsIdempotentAndRemoves(t *testing.T) {
	f := newFixture(t)

	id := f.place(t, Bid, 100, 5, f.buyer)
	f.place(t, Bid, 90, 5, f.buyer)

	f.book.Cancel(id)
	if _, ok := f.book.Order(id); ok {
		t.Fatalf("cancelled order still in book")
	}
	bid, ok := f.book.BestBid()
	if !ok || !bid.Price.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("best bid after cancel = %+v, want 90", bid)
	}

	// Cancelling again, or cancelling an unknown ID, is a no-op.
	f.book.Cancel(id)
	f.book.Cancel(uuid.New())
	if depth := f.book.Depth(Bid); depth != 1 {
		t.Fatalf("depth = %d, want 1", depth)
	}

	// A cancelled order never matches later.
	f.place(t, Ask, 80, 5, f.seller)
	trades := f.book.Resolve()
	for _, tr := range trades {
		if tr.BidOrderID == id {
			t.Fatalf("cancelled order matched in trade %s", tr.ID)
		}
	}
}

func TestDepthCountsSides(t *testing.T) {
	f := newFixture(t)

	f.place(t, Bid, 100, 1, f.buyer)
	f.place(t, Bid, 99, 1, f.buyer)
	f.place(t, Ask, 110, 1, f.seller)

	if got := f.book.Depth(Bid); got != 2 {
		t.Fatalf("bid depth = %d, want 2", got)
	}
	if got := f.book.Depth(Ask); got != 1 {
		t.Fatalf("ask depth = %d, want 1", got)
	}
}

func TestCancelHookReportsReason(t *testing.T) {
	f := newFixture(t)

	var reasons []string
	f.book.SetCancelHook(func(reason string) {
		reasons = append(reasons, reason)
	})

	id := f.place(t, Bid, 100, 1, f.buyer)
	f.book.Cancel(id)
	f.book.Cancel(id)

	pauper := f.ledger.CreateAccount("pauper")
	f.place(t, Bid, 10, 5, pauper.ID)
	f.place(t, Ask, 9, 5, f.seller)
	f.book.Resolve()

	if len(reasons) != 2 {
		t.Fatalf("got %d cancellations, want 2: %v", len(reasons), reasons)
	}
	if reasons[0] != CancelRequested || reasons[1] != CancelUnaffordable {
		t.Fatalf("reasons = %v", reasons)
	}
}

func TestMatchOnPlaceResolvesImmediately(t *testing.T) {
	policy := fee.NewPolicy(decimal.Zero, decimal.Zero, decimal.Zero)
	l := ledger.New(policy, decimal.NewFromInt(1_000_000), nil)
	clock := &fakeClock{step: 1}
	book := NewOrderBook("COL/STB", ledger.Collateral, ledger.Stable, l, clock, true, nil)

	buyer := l.CreateAccount("buyer")
	seller := l.CreateAccount("seller")
	if err := l.Endow(buyer.ID, ledger.Stable, decimal.NewFromInt(1000)); err != nil {
		t.Fatalf("endow: %v", err)
	}
	if err := l.Endow(seller.ID, ledger.Collateral, decimal.NewFromInt(1000)); err != nil {
		t.Fatalf("endow: %v", err)
	}

	if _, trades, err := book.Place(Bid, decimal.NewFromInt(10), decimal.NewFromInt(5), buyer.ID); err != nil || len(trades) != 0 {
		t.Fatalf("uncrossed placement traded: %v %v", trades, err)
	}
	_, trades, err := book.Place(Ask, decimal.NewFromInt(9), decimal.NewFromInt(5), seller.ID)
	if err != nil {
		t.Fatalf("place ask: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(trades))
	}
	if depth := book.Depth(Bid) + book.Depth(Ask); depth != 0 {
		t.Fatalf("book not empty after full fill, depth = %d", depth)
	}
}
