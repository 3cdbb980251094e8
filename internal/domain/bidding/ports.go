package bidding

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/galabid/galabid/internal/domain/lots"
	"github.com/galabid/galabid/pkg/events"
)

// LotRepository is the slice of lot persistence the bid engine needs
type LotRepository interface {
	// GetLotByIDForUpdate retrieves a lot and locks its row. This is the
	// per-lot serialization point: two bids on the same lot queue here.
	// Must be called within a transaction.
	GetLotByIDForUpdate(ctx context.Context, tx pgx.Tx, lotID uuid.UUID) (*lots.Lot, error)

	// UpdateLeader promotes a bidder to leader and raises the current bid
	// within a transaction
	UpdateLeader(ctx context.Context, tx pgx.Tx, lotID uuid.UUID, amount decimal.Decimal, name, email string) error
}

// BidRepository defines the interface for bid history persistence
type BidRepository interface {
	// SaveBid appends a bid record within a transaction
	SaveBid(ctx context.Context, tx pgx.Tx, bid *BidRecord) error

	// ListBidsByLot retrieves all bid records for a lot, newest first
	ListBidsByLot(ctx context.Context, lotID uuid.UUID) ([]*BidRecord, error)

	// DeleteAllBids clears the entire bid history within a transaction.
	// Only the administrator's full reset calls this.
	DeleteAllBids(ctx context.Context, tx pgx.Tx) error
}

// OutboxRepository defines the interface for queueing notification events
type OutboxRepository interface {
	// SaveEvent saves an outbox event within a transaction
	SaveEvent(ctx context.Context, tx pgx.Tx, event *events.OutboxEvent) error
}

// AuctionGate checks the auction phase at commit time
type AuctionGate interface {
	// EnsureActive returns ErrAuctionNotActive unless the phase is Active.
	// The check holds a share lock on the state row until the transaction
	// ends, so a pause or end cannot slip between validation and commit.
	EnsureActive(ctx context.Context, tx pgx.Tx) error
}
