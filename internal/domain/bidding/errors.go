package bidding

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrAuctionNotActive = fmt.Errorf("auction is not accepting bids")
	ErrIneligibleBidder = fmt.Errorf("bidder is not eligible for this auction")
)

// RejectReason says which end of the valid range the bid missed
type RejectReason string

const (
	ReasonTooLow  RejectReason = "too_low"
	ReasonTooHigh RejectReason = "too_high"
)

// RangeError rejects a bid outside the increment policy's valid range. It
// carries the computed bounds so the caller can tell the bidder what would
// have been accepted.
type RangeError struct {
	Reason RejectReason
	MinBid decimal.Decimal
	MaxBid decimal.Decimal
}

func (e *RangeError) Error() string {
	if e.Reason == ReasonTooHigh {
		return fmt.Sprintf("bid exceeds the maximum allowed amount of $%s", e.MaxBid.StringFixed(2))
	}
	return fmt.Sprintf("bid must be at least $%s", e.MinBid.StringFixed(2))
}
