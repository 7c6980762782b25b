package fee

import (
	"github.com/shopspring/decimal"

	"github.com/reemardelarosa/simulation/internal/ledger"
)

// Policy charges a flat multiplicative rate per asset kind on every
// transfer. Rates may be zero; negative rates are clamped to zero.
type Policy struct {
	rates map[ledger.AssetKind]decimal.Decimal
}

func NewPolicy(collateral, stable, reference decimal.Decimal) *Policy {
	return &Policy{rates: map[ledger.AssetKind]decimal.Decimal{
		ledger.Collateral: clampRate(collateral),
		ledger.Stable:     clampRate(stable),
		ledger.Reference:  clampRate(reference),
	}}
}

func clampRate(r decimal.Decimal) decimal.Decimal {
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// Rate returns the configured rate for one asset kind.
func (p *Policy) Rate(kind ledger.AssetKind) decimal.Decimal {
	return p.rates[kind]
}

// TransferFee implements ledger.FeePolicy.
func (p *Policy) TransferFee(kind ledger.AssetKind, value decimal.Decimal) decimal.Decimal {
	if value.IsNegative() {
		return decimal.Zero
	}
	return value.Mul(p.rates[kind])
}
