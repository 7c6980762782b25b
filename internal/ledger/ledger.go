package ledger

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"log/slog"
)

var (
	ErrUnknownAccount    = errors.New("unknown account")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must not be negative")
)

// FeePolicy computes the fee owed on transferring a quantity of an asset.
// The fee is charged to the sender on top of the transferred value.
type FeePolicy interface {
	TransferFee(kind AssetKind, value decimal.Decimal) decimal.Decimal
}

// Ledger owns every account balance and the per-asset fee pools. It is the
// only component allowed to move balances; the matching engine and the fee
// distributor both operate through it.
type Ledger struct {
	policy   FeePolicy
	logger   *slog.Logger
	accounts map[uuid.UUID]*Account
	feePools [numAssets]decimal.Decimal

	// reserve holds the fixed collateral supply that endowments draw from.
	reserve          *Account
	collateralSupply decimal.Decimal
}

func New(policy FeePolicy, collateralSupply decimal.Decimal, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Ledger{
		policy:           policy,
		logger:           logger,
		accounts:         make(map[uuid.UUID]*Account),
		collateralSupply: collateralSupply,
	}
	l.reserve = &Account{ID: uuid.New(), Name: "reserve"}
	l.reserve.balances[Collateral] = collateralSupply
	return l
}

// CreateAccount registers a new zero-balance account.
func (l *Ledger) CreateAccount(name string) *Account {
	a := &Account{ID: uuid.New(), Name: name}
	l.accounts[a.ID] = a
	return a
}

// Account looks up a participant account. The system reserve is not
// addressable through this.
func (l *Ledger) Account(id uuid.UUID) (*Account, error) {
	a, ok := l.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, id)
	}
	return a, nil
}

// Accounts returns all participant accounts ordered by ID, so that callers
// iterating over them are deterministic across runs.
func (l *Ledger) Accounts() []*Account {
	out := make([]*Account, 0, len(l.accounts))
	for _, a := range l.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// CollateralSupply is the fixed total collateral in the system.
func (l *Ledger) CollateralSupply() decimal.Decimal {
	return l.collateralSupply
}

// FeePool returns the accrued fees for one asset kind.
func (l *Ledger) FeePool(kind AssetKind) decimal.Decimal {
	if !kind.valid() {
		return decimal.Zero
	}
	return l.feePools[kind]
}

// TransferFee exposes the configured fee for a prospective transfer.
func (l *Ledger) TransferFee(kind AssetKind, value decimal.Decimal) decimal.Decimal {
	return l.policy.TransferFee(kind, value)
}

// CanTransfer reports whether the sender could afford value plus its fee.
// Unknown senders cannot afford anything.
func (l *Ledger) CanTransfer(from uuid.UUID, kind AssetKind, value decimal.Decimal) bool {
	a, ok := l.accounts[from]
	if !ok || !kind.valid() || value.IsNegative() {
		return false
	}
	total := value.Add(l.policy.TransferFee(kind, value))
	return a.balances[kind].GreaterThanOrEqual(total)
}

// Transfer moves value of the given asset from sender to recipient. The
// sender is additionally debited the transfer fee, which accrues to the fee
// pool for that asset; the recipient receives exactly value.
func (l *Ledger) Transfer(from, to uuid.UUID, kind AssetKind, value decimal.Decimal) error {
	if value.IsNegative() {
		return ErrInvalidAmount
	}
	sender, ok := l.accounts[from]
	if !ok {
		return fmt.Errorf("%w: sender %s", ErrUnknownAccount, from)
	}
	recipient, ok := l.accounts[to]
	if !ok {
		return fmt.Errorf("%w: recipient %s", ErrUnknownAccount, to)
	}

	fee := l.policy.TransferFee(kind, value)
	total := value.Add(fee)
	if sender.balances[kind].LessThan(total) {
		return fmt.Errorf("%w: %s needs %s %s, has %s",
			ErrInsufficientFunds, from, total, kind, sender.balances[kind])
	}

	sender.balances[kind] = sender.balances[kind].Sub(total)
	recipient.balances[kind] = recipient.balances[kind].Add(value)
	l.feePools[kind] = l.feePools[kind].Add(fee)
	return nil
}

// Endow grants an account assets from the system reserve, fee-free. Used
// during population setup; collateral endowments are capped by what remains
// in the reserve.
func (l *Ledger) Endow(to uuid.UUID, kind AssetKind, value decimal.Decimal) error {
	if value.IsNegative() {
		return ErrInvalidAmount
	}
	recipient, ok := l.accounts[to]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, to)
	}
	if kind == Collateral {
		value = decimal.Min(value, l.reserve.balances[Collateral])
		l.reserve.balances[Collateral] = l.reserve.balances[Collateral].Sub(value)
	}
	recipient.balances[kind] = recipient.balances[kind].Add(value)
	return nil
}

// PayFromFeePool credits an account from the fee pool of the given asset.
// The pool can never go negative; overdraw is an error and moves nothing.
func (l *Ledger) PayFromFeePool(kind AssetKind, to uuid.UUID, value decimal.Decimal) error {
	if value.IsNegative() {
		return ErrInvalidAmount
	}
	recipient, ok := l.accounts[to]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, to)
	}
	if l.feePools[kind].LessThan(value) {
		return fmt.Errorf("%w: fee pool %s short of %s", ErrInsufficientFunds, kind, value)
	}
	l.feePools[kind] = l.feePools[kind].Sub(value)
	recipient.balances[kind] = recipient.balances[kind].Add(value)
	return nil
}
