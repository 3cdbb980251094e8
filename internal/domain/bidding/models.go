package bidding

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/galabid/galabid/internal/domain/lots"
)

// BidRecord is the immutable fact that a bidder bid an amount on a lot.
// Records are append-only; only the administrator's full reset removes them.
type BidRecord struct {
	ID          uuid.UUID       `db:"id"`
	LotID       uuid.UUID       `db:"lot_id"`
	Amount      decimal.Decimal `db:"amount"`
	BidderName  string          `db:"bidder_name"`
	BidderEmail string          `db:"bidder_email"`
	CreatedAt   time.Time       `db:"created_at"`
}

// PlaceBidCommand represents the command to place a bid
type PlaceBidCommand struct {
	LotID       uuid.UUID
	Amount      decimal.Decimal
	BidderName  string
	BidderEmail string
}

// AcceptedBid is the outcome of a committed bid: the new record plus the
// lot state it produced.
type AcceptedBid struct {
	Bid *BidRecord
	Lot *lots.Lot
}
