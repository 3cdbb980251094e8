package lifecycle

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// StateRepository persists the auction state singleton
type StateRepository interface {
	// GetState reads the current auction state
	GetState(ctx context.Context) (*State, error)

	// SetPhase transitions between Active and Paused. It fails with
	// ErrAuctionEnded once the auction has ended.
	SetPhase(ctx context.Context, phase Phase) error

	// SetDeadline stores the advisory countdown deadline (nil clears it)
	SetDeadline(ctx context.Context, deadline *time.Time) error

	// MarkEnded flips the phase to Ended and clears the countdown. It
	// reports false when the auction had already ended, which is the
	// single-execution guard for settlement.
	MarkEnded(ctx context.Context) (bool, error)

	// ResetState returns the phase to Active with no countdown, within a
	// transaction
	ResetState(ctx context.Context, tx pgx.Tx) error
}

// BidHistory is the slice of bid persistence reset needs
type BidHistory interface {
	DeleteAllBids(ctx context.Context, tx pgx.Tx) error
}

// LotResetter restores lots to their pre-auction state
type LotResetter interface {
	ResetLots(ctx context.Context, tx pgx.Tx) error
}
