package lots

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository defines the interface for lot persistence
type Repository interface {
	// CreateLot creates a new auction lot
	CreateLot(ctx context.Context, lot *Lot) error

	// GetLotByID retrieves a lot by its ID (soft-deleted lots excluded)
	GetLotByID(ctx context.Context, lotID uuid.UUID) (*Lot, error)

	// GetLotByIDForUpdate retrieves a lot by its ID and locks the row.
	// This is the per-lot serialization point for concurrent bids.
	// Must be called within a transaction.
	GetLotByIDForUpdate(ctx context.Context, tx pgx.Tx, lotID uuid.UUID) (*Lot, error)

	// UpdateLotDetails updates a lot's descriptive fields. It never touches
	// the prices, so it cannot clobber a concurrently accepted bid.
	UpdateLotDetails(ctx context.Context, lot *Lot) error

	// UpdateStartingPrice sets a new starting price and re-derives the
	// current bid from it. The write only applies while the lot still has
	// no leader; it reports whether the guard passed.
	UpdateStartingPrice(ctx context.Context, lotID uuid.UUID, price decimal.Decimal) (bool, error)

	// UpdateLeader promotes a bidder to leader and raises the current bid
	// within a transaction
	UpdateLeader(ctx context.Context, tx pgx.Tx, lotID uuid.UUID, amount decimal.Decimal, name, email string) error

	// ListLots retrieves all live lots in display order
	ListLots(ctx context.Context) ([]*Lot, error)

	// ListLotsByGroup retrieves live lots for one group/table
	ListLotsByGroup(ctx context.Context, groupID int) ([]*Lot, error)

	// ListLotsWithLeader retrieves live lots that have at least one accepted bid
	ListLotsWithLeader(ctx context.Context) ([]*Lot, error)

	// SoftDeleteLot hides a lot without breaking bid history references
	SoftDeleteLot(ctx context.Context, lotID uuid.UUID) error

	// ResetLots restores every lot's current bid to its starting price and
	// clears the leaders, within a transaction
	ResetLots(ctx context.Context, tx pgx.Tx) error
}
