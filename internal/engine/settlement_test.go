package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/reemardelarosa/simulation/internal/ledger"
)

func (f *fixture) balance(t *testing.T, id uuid.UUID, kind ledger.AssetKind) decimal.Decimal {
	t.Helper()
	a, err := f.ledger.Account(id)
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	return a.Balance(kind)
}

func TestSettleAtLaterPostersPrice(t *testing.T) {
	f := newFixture(t)

	// The ask arrives after a higher bid: the incoming ask sets the price and
	// the resting bid gets the improvement.
	f.place(t, Bid, 10, 1, f.buyer)
	f.place(t, Ask, 8, 1, f.seller)

	trades := f.book.Resolve()
	if len(trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(trades))
	}
	if !trades[0].Price.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("price = %s, want 8", trades[0].Price)
	}

	// Reversed arrival: the bid is later and its own price applies.
	f.place(t, Ask, 8, 1, f.seller)
	f.place(t, Bid, 10, 1, f.buyer)
	trades = f.book.Resolve()
	if len(trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(trades))
	}
	if !trades[0].Price.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("price = %s, want 10", trades[0].Price)
	}
}

func TestPartialFillLeavesRemainder(t *testing.T) {
	f := newFixture(t)

	bidID := f.place(t, Bid, 10, 5, f.buyer)
	f.place(t, Ask, 9, 3, f.seller)

	trades := f.book.Resolve()
	if len(trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(trades))
	}
	tr := trades[0]
	if !tr.Quantity.Equal(decimal.NewFromInt(3)) || !tr.Price.Equal(decimal.NewFromInt(9)) {
		t.Fatalf("trade = %s @ %s, want 3 @ 9", tr.Quantity, tr.Price)
	}

	bid, ok := f.book.Order(bidID)
	if !ok {
		t.Fatalf("partially filled bid left the book")
	}
	if !bid.Quantity.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("remaining bid quantity = %s, want 2", bid.Quantity)
	}
	if f.book.Depth(Ask) != 0 {
		t.Fatalf("filled ask still in book")
	}
}

func TestSettlementMovesBothLegs(t *testing.T) {
	f := newFixture(t)

	f.place(t, Bid, 10, 4, f.buyer)
	f.place(t, Ask, 10, 4, f.seller)
	if trades := f.book.Resolve(); len(trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(trades))
	}

	if got := f.balance(t, f.buyer, ledger.Stable); !got.Equal(decimal.NewFromInt(9960)) {
		t.Fatalf("buyer stable = %s, want 9960", got)
	}
	if got := f.balance(t, f.buyer, ledger.Collateral); !got.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("buyer collateral = %s, want 4", got)
	}
	if got := f.balance(t, f.seller, ledger.Collateral); !got.Equal(decimal.NewFromInt(9996)) {
		t.Fatalf("seller collateral = %s, want 9996", got)
	}
	if got := f.balance(t, f.seller, ledger.Stable); !got.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("seller stable = %s, want 40", got)
	}
}

func TestSettlementFeesAccrueToPools(t *testing.T) {
	f := newFixtureWithFees(t, "0.01", "0.005", "0")

	f.place(t, Bid, 10, 100, f.buyer)
	f.place(t, Ask, 10, 100, f.seller)
	if trades := f.book.Resolve(); len(trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(trades))
	}

	// Buyer paid 1000 stable plus the 0.5% fee, seller paid 100 collateral
	// plus the 1% fee.
	if got := f.balance(t, f.buyer, ledger.Stable); !got.Equal(decimal.NewFromInt(8995)) {
		t.Fatalf("buyer stable = %s, want 8995", got)
	}
	if got := f.balance(t, f.seller, ledger.Collateral); !got.Equal(decimal.NewFromInt(9899)) {
		t.Fatalf("seller collateral = %s, want 9899", got)
	}
	if got := f.ledger.FeePool(ledger.Stable); !got.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("stable fee pool = %s, want 5", got)
	}
	if got := f.ledger.FeePool(ledger.Collateral); !got.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("collateral fee pool = %s, want 1", got)
	}
}

func TestUnaffordableOrderCancelledWithoutTransfer(t *testing.T) {
	f := newFixture(t)

	// A pauper bids far beyond its means; the solvent seller's ask survives.
	pauper := f.ledger.CreateAccount("pauper")
	if err := f.ledger.Endow(pauper.ID, ledger.Stable, decimal.NewFromInt(5)); err != nil {
		t.Fatalf("endow: %v", err)
	}

	bidID := f.place(t, Bid, 100, 10, pauper.ID)
	askID := f.place(t, Ask, 90, 10, f.seller)

	trades := f.book.Resolve()
	if len(trades) != 0 {
		t.Fatalf("got %d trades, want 0", len(trades))
	}
	if _, ok := f.book.Order(bidID); ok {
		t.Fatalf("unaffordable bid still in book")
	}
	ask, ok := f.book.Order(askID)
	if !ok {
		t.Fatalf("solvent ask was removed")
	}
	if !ask.Quantity.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("surviving ask quantity = %s, want 10", ask.Quantity)
	}
	if got := f.balance(t, pauper.ID, ledger.Stable); !got.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("pauper balance mutated to %s", got)
	}
	if got := f.balance(t, f.seller, ledger.Collateral); !got.Equal(decimal.NewFromInt(10_000)) {
		t.Fatalf("seller balance mutated to %s", got)
	}
}

func TestBothLegsUnaffordableCancelsBoth(t *testing.T) {
	f := newFixture(t)

	pauperBuyer := f.ledger.CreateAccount("pauper-buyer")
	pauperSeller := f.ledger.CreateAccount("pauper-seller")

	bidID := f.place(t, Bid, 10, 10, pauperBuyer.ID)
	askID := f.place(t, Ask, 9, 10, pauperSeller.ID)

	trades := f.book.Resolve()
	if len(trades) != 0 {
		t.Fatalf("got %d trades, want 0", len(trades))
	}
	if _, ok := f.book.Order(bidID); ok {
		t.Fatalf("unaffordable bid still in book")
	}
	if _, ok := f.book.Order(askID); ok {
		t.Fatalf("unaffordable ask still in book")
	}
}

func TestResolveContinuesPastCancelledOrder(t *testing.T) {
	f := newFixture(t)

	pauper := f.ledger.CreateAccount("pauper")

	// The pauper's bid tops the book; behind it a funded bid can still match.
	f.place(t, Bid, 12, 5, pauper.ID)
	f.place(t, Bid, 11, 5, f.buyer)
	f.place(t, Ask, 10, 5, f.seller)

	trades := f.book.Resolve()
	if len(trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(trades))
	}
	if trades[0].Buyer != f.buyer {
		t.Fatalf("trade buyer = %s, want funded bidder", trades[0].Buyer)
	}
}

func TestResolveIsIdempotentOnUncrossedBook(t *testing.T) {
	f := newFixture(t)

	f.place(t, Bid, 9, 5, f.buyer)
	f.place(t, Ask, 10, 5, f.seller)

	for i := 0; i < 3; i++ {
		if trades := f.book.Resolve(); len(trades) != 0 {
			t.Fatalf("uncrossed resolve produced %d trades", len(trades))
		}
	}
	if f.book.Depth(Bid) != 1 || f.book.Depth(Ask) != 1 {
		t.Fatalf("uncrossed resolve mutated the book")
	}
}

func TestResolveSweepsMultipleLevels(t *testing.T) {
	f := newFixture(t)

	f.place(t, Bid, 10, 2, f.buyer)
	f.place(t, Bid, 9, 2, f.buyer)
	f.place(t, Ask, 8, 3, f.seller)

	trades := f.book.Resolve()
	if len(trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(trades))
	}
	// First fill takes out the 10 bid entirely, the second takes one unit of
	// the 9 bid; the incoming ask priced both.
	if !trades[0].Quantity.Equal(decimal.NewFromInt(2)) || !trades[0].Price.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("first trade = %s @ %s, want 2 @ 8", trades[0].Quantity, trades[0].Price)
	}
	if !trades[1].Quantity.Equal(decimal.NewFromInt(1)) || !trades[1].Price.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("second trade = %s @ %s, want 1 @ 8", trades[1].Quantity, trades[1].Price)
	}
	bid, ok := f.book.BestBid()
	if !ok || !bid.Quantity.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("remaining bid = %+v, want quantity 1 at 9", bid)
	}
	if f.book.Depth(Ask) != 0 {
		t.Fatalf("swept ask still in book")
	}
}
