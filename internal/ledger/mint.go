package ledger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrIssuanceCap   = errors.New("issuance rights exhausted")
	ErrEscrowLocked  = errors.New("escrowed collateral locked by issued stable")
	ErrExcessiveBurn = errors.New("burn exceeds issued stable")
)

// PriceSource converts a quantity of one asset into its market value in
// another. The market set implements this from its last traded prices.
type PriceSource interface {
	Convert(from, to AssetKind, value decimal.Decimal) decimal.Decimal
}

// Mint is the issuance collaborator: it escrows collateral and issues or
// burns stable tokens against it, enforcing the utilisation-ratio cap. The
// matching engine never sees any of this; it only moves the resulting
// balances.
type Mint struct {
	ledger         *Ledger
	prices         PriceSource
	maxUtilisation decimal.Decimal
}

func NewMint(l *Ledger, prices PriceSource, maxUtilisation decimal.Decimal) *Mint {
	return &Mint{ledger: l, prices: prices, maxUtilisation: maxUtilisation}
}

// Escrow locks free collateral so stable tokens can be issued against it.
func (m *Mint) Escrow(id uuid.UUID, value decimal.Decimal) error {
	if value.IsNegative() {
		return ErrInvalidAmount
	}
	a, err := m.ledger.Account(id)
	if err != nil {
		return err
	}
	if a.balances[Collateral].LessThan(value) {
		return fmt.Errorf("%w: escrow %s collateral, has %s",
			ErrInsufficientFunds, value, a.balances[Collateral])
	}
	a.balances[Collateral] = a.balances[Collateral].Sub(value)
	a.escrowed = a.escrowed.Add(value)
	return nil
}

// AvailableEscrowed is the escrowed collateral not locked by issued stable at
// current prices. May be negative after a price move.
func (m *Mint) AvailableEscrowed(id uuid.UUID) (decimal.Decimal, error) {
	a, err := m.ledger.Account(id)
	if err != nil {
		return decimal.Zero, err
	}
	locked := m.prices.Convert(Stable, Collateral, a.issued)
	return a.escrowed.Sub(locked), nil
}

// Unescrow releases collateral that is not backing issued stable.
func (m *Mint) Unescrow(id uuid.UUID, value decimal.Decimal) error {
	if value.IsNegative() {
		return ErrInvalidAmount
	}
	a, err := m.ledger.Account(id)
	if err != nil {
		return err
	}
	available, err := m.AvailableEscrowed(id)
	if err != nil {
		return err
	}
	if value.GreaterThan(available) {
		return fmt.Errorf("%w: unescrow %s, available %s", ErrEscrowLocked, value, available)
	}
	a.escrowed = a.escrowed.Sub(value)
	a.balances[Collateral] = a.balances[Collateral].Add(value)
	return nil
}

// IssuanceRights is the total stable value this account may have outstanding
// given its escrow and the utilisation-ratio cap.
func (m *Mint) IssuanceRights(id uuid.UUID) (decimal.Decimal, error) {
	a, err := m.ledger.Account(id)
	if err != nil {
		return decimal.Zero, err
	}
	return m.prices.Convert(Collateral, Stable, a.escrowed).Mul(m.maxUtilisation), nil
}

// RemainingRights is the stable value still issuable before hitting the cap.
func (m *Mint) RemainingRights(id uuid.UUID) (decimal.Decimal, error) {
	a, err := m.ledger.Account(id)
	if err != nil {
		return decimal.Zero, err
	}
	rights, err := m.IssuanceRights(id)
	if err != nil {
		return decimal.Zero, err
	}
	return rights.Sub(a.issued), nil
}

// Issue creates stable tokens against escrowed collateral, up to the
// remaining issuance rights.
func (m *Mint) Issue(id uuid.UUID, value decimal.Decimal) error {
	if value.IsNegative() {
		return ErrInvalidAmount
	}
	a, err := m.ledger.Account(id)
	if err != nil {
		return err
	}
	remaining, err := m.RemainingRights(id)
	if err != nil {
		return err
	}
	if value.GreaterThan(remaining) {
		return fmt.Errorf("%w: issue %s, remaining %s", ErrIssuanceCap, value, remaining)
	}
	a.issued = a.issued.Add(value)
	a.balances[Stable] = a.balances[Stable].Add(value)
	return nil
}

// Burn destroys stable tokens, freeing the escrow that backed them. Limited
// by both the free stable balance and the issued counter.
func (m *Mint) Burn(id uuid.UUID, value decimal.Decimal) error {
	if value.IsNegative() {
		return ErrInvalidAmount
	}
	a, err := m.ledger.Account(id)
	if err != nil {
		return err
	}
	if value.GreaterThan(a.balances[Stable]) {
		return fmt.Errorf("%w: burn %s stable, has %s",
			ErrInsufficientFunds, value, a.balances[Stable])
	}
	if value.GreaterThan(a.issued) {
		return fmt.Errorf("%w: burn %s, issued %s", ErrExcessiveBurn, value, a.issued)
	}
	a.balances[Stable] = a.balances[Stable].Sub(value)
	a.issued = a.issued.Sub(value)
	return nil
}
