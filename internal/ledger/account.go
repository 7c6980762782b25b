package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AssetKind identifies one of the three currencies in the system.
type AssetKind int

const (
	// Collateral is the volatile token that backs stable issuance.
	Collateral AssetKind = iota
	// Stable is the pegged token issued against escrowed collateral.
	Stable
	// Reference is the external unit of account.
	Reference

	numAssets
)

func (k AssetKind) String() string {
	switch k {
	case Collateral:
		return "collateral"
	case Stable:
		return "stable"
	case Reference:
		return "reference"
	default:
		return "unknown"
	}
}

func (k AssetKind) valid() bool {
	return k >= Collateral && k < numAssets
}

// Account holds one participant's balances. All mutation goes through the
// Ledger or the Mint; callers only read.
type Account struct {
	ID   uuid.UUID
	Name string

	balances [numAssets]decimal.Decimal
	escrowed decimal.Decimal
	issued   decimal.Decimal
}

// Balance returns the free balance of the given asset.
func (a *Account) Balance(kind AssetKind) decimal.Decimal {
	if !kind.valid() {
		return decimal.Zero
	}
	return a.balances[kind]
}

// Escrowed returns the collateral currently locked in escrow.
func (a *Account) Escrowed() decimal.Decimal {
	return a.escrowed
}

// Issued returns the stable tokens outstanding against this account's escrow.
func (a *Account) Issued() decimal.Decimal {
	return a.issued
}
