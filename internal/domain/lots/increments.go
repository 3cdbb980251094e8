package lots

import "github.com/shopspring/decimal"

// Tier selects the increment rules applied to a lot. Low-value lots use
// small steps so casual bidders stay engaged; headline lots allow larger
// jumps.
type Tier string

const (
	TierA        Tier = "A"
	TierB        Tier = "B"
	TierC        Tier = "C"
	TierStandard Tier = "standard"
)

// IsValid checks if the tier is a known configuration bucket
func (t Tier) IsValid() bool {
	switch t {
	case TierA, TierB, TierC, TierStandard:
		return true
	default:
		return false
	}
}

// Increment is the allowed raise over the current bid for one tier
type Increment struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// IncrementTable maps tiers to their increment configuration
type IncrementTable map[Tier]Increment

// DefaultIncrements returns the stock tier configuration
func DefaultIncrements() IncrementTable {
	return IncrementTable{
		TierA:        {Min: decimal.NewFromFloat(0.25), Max: decimal.NewFromInt(1)},
		TierB:        {Min: decimal.NewFromFloat(0.50), Max: decimal.NewFromInt(5)},
		TierC:        {Min: decimal.NewFromInt(1), Max: decimal.NewFromInt(25)},
		TierStandard: {Min: decimal.NewFromInt(1), Max: decimal.NewFromInt(10)},
	}
}

// ValidRange computes the inclusive [min, max] a bid on the lot must fall in.
// Before the first bid the starting price itself is acceptable; afterwards
// the floor is the current bid plus the tier's minimum increment.
func (t IncrementTable) ValidRange(lot *Lot) (minBid, maxBid decimal.Decimal) {
	inc, ok := t[lot.Tier]
	if !ok {
		inc = t[TierStandard]
	}

	if !lot.HasLeader() {
		return lot.StartingPrice, lot.StartingPrice.Add(inc.Max)
	}
	return lot.CurrentBid.Add(inc.Min), lot.CurrentBid.Add(inc.Max)
}
