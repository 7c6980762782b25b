package market

import (
	"fmt"
	"strings"

	"github.com/reemardelarosa/simulation/internal/ledger"
)

// Pair names one of the three markets. The buyer pays the quote asset and
// receives the base asset.
type Pair int

const (
	// CollateralStable trades collateral priced in stable tokens.
	CollateralStable Pair = iota
	// CollateralReference trades collateral priced in reference currency.
	CollateralReference
	// StableReference trades stable tokens priced in reference currency.
	StableReference
)

// Pairs returns all pairs in their fixed resolution order.
func Pairs() []Pair {
	return []Pair{CollateralStable, CollateralReference, StableReference}
}

func (p Pair) String() string {
	switch p {
	case CollateralStable:
		return "COL/STB"
	case CollateralReference:
		return "COL/REF"
	case StableReference:
		return "STB/REF"
	default:
		return "unknown"
	}
}

func (p Pair) Base() ledger.AssetKind {
	if p == StableReference {
		return ledger.Stable
	}
	return ledger.Collateral
}

func (p Pair) Quote() ledger.AssetKind {
	if p == CollateralStable {
		return ledger.Stable
	}
	return ledger.Reference
}

// ParsePair maps the wire form ("COL/STB", case-insensitive, '-' accepted)
// back to a Pair.
func ParsePair(s string) (Pair, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "/"))
	for _, p := range Pairs() {
		if p.String() == normalized {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown pair %q", s)
}
