package fee

import (
	"github.com/shopspring/decimal"
	"log/slog"

	"github.com/reemardelarosa/simulation/internal/ledger"
)

// Distributor periodically pays the accrued stable fee pool out to collateral
// holders, pro rata to their free collateral against the fixed total supply.
type Distributor struct {
	ledger *ledger.Ledger
	period uint64
	logger *slog.Logger
}

func NewDistributor(l *ledger.Ledger, period uint64, logger *slog.Logger) *Distributor {
	if logger == nil {
		logger = slog.Default()
	}
	if period == 0 {
		period = 1
	}
	return &Distributor{ledger: l, period: period, logger: logger}
}

// Due reports whether a distribution should run at the given step.
func (d *Distributor) Due(step uint64) bool {
	return step%d.period == 0
}

// Distribute drains the stable fee pool into collateral holders' balances.
// Each account receives min(collateral × pool/supply, remaining pool), in
// account-ID order, stopping once the pool is empty. Rounding residue stays
// in the pool for the next period. Returns the amount paid out.
func (d *Distributor) Distribute() decimal.Decimal {
	pool := d.ledger.FeePool(ledger.Stable)
	supply := d.ledger.CollateralSupply()
	if pool.IsZero() || supply.IsZero() {
		return decimal.Zero
	}

	rate := pool.Div(supply)
	paid := decimal.Zero
	for _, a := range d.ledger.Accounts() {
		remaining := d.ledger.FeePool(ledger.Stable)
		if remaining.IsZero() {
			break
		}
		share := decimal.Min(a.Balance(ledger.Collateral).Mul(rate), remaining)
		if share.IsZero() {
			continue
		}
		if err := d.ledger.PayFromFeePool(ledger.Stable, a.ID, share); err != nil {
			// Unreachable given the min above; a failure here means the pool
			// accounting is broken.
			panic(err)
		}
		paid = paid.Add(share)
	}

	d.logger.Debug("fees distributed",
		"pool", pool.String(),
		"paid", paid.String(),
		"residue", d.ledger.FeePool(ledger.Stable).String(),
	)
	return paid
}
