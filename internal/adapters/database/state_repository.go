package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/galabid/galabid/internal/domain/bidding"
	"github.com/galabid/galabid/internal/domain/lifecycle"
)

// PostgresStateRepository implements lifecycle.StateRepository and
// bidding.AuctionGate against the auction_state singleton row.
type PostgresStateRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresStateRepository creates a new PostgreSQL auction state repository
func NewPostgresStateRepository(pool *pgxpool.Pool) *PostgresStateRepository {
	return &PostgresStateRepository{pool: pool}
}

// GetState reads the current auction state
func (r *PostgresStateRepository) GetState(ctx context.Context) (*lifecycle.State, error) {
	query := `SELECT phase, deadline, ended_at, updated_at FROM auction_state WHERE id`

	var state lifecycle.State
	err := r.pool.QueryRow(ctx, query).Scan(
		&state.Phase,
		&state.Deadline,
		&state.EndedAt,
		&state.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get auction state: %w", err)
	}
	return &state, nil
}

// EnsureActive verifies inside the caller's transaction that the phase is
// Active. FOR SHARE blocks against a concurrent phase change committing
// first, so "phase is Active and I set the leader" holds atomically.
func (r *PostgresStateRepository) EnsureActive(ctx context.Context, tx pgx.Tx) error {
	query := `SELECT phase FROM auction_state WHERE id FOR SHARE`

	var phase lifecycle.Phase
	if err := tx.QueryRow(ctx, query).Scan(&phase); err != nil {
		return fmt.Errorf("failed to read auction phase: %w", err)
	}
	if phase != lifecycle.PhaseActive {
		return bidding.ErrAuctionNotActive
	}
	return nil
}

// SetPhase transitions between Active and Paused. Ended is sticky: the
// guarded update refuses to leave it.
func (r *PostgresStateRepository) SetPhase(ctx context.Context, phase lifecycle.Phase) error {
	query := `UPDATE auction_state SET phase = $1, updated_at = NOW() WHERE id AND phase <> 'ended'`

	result, err := r.pool.Exec(ctx, query, phase)
	if err != nil {
		return fmt.Errorf("failed to set phase: %w", err)
	}
	if result.RowsAffected() == 0 {
		return lifecycle.ErrAuctionEnded
	}
	return nil
}

// SetDeadline stores the advisory countdown deadline (nil clears it)
func (r *PostgresStateRepository) SetDeadline(ctx context.Context, deadline *time.Time) error {
	query := `UPDATE auction_state SET deadline = $1, updated_at = NOW() WHERE id`

	if _, err := r.pool.Exec(ctx, query, deadline); err != nil {
		return fmt.Errorf("failed to set deadline: %w", err)
	}
	return nil
}

// MarkEnded flips the phase to Ended and clears the countdown. Reports
// false when the auction had already ended; the Ended transition and its
// settlement therefore run at most once.
func (r *PostgresStateRepository) MarkEnded(ctx context.Context) (bool, error) {
	query := `
		UPDATE auction_state
		SET phase = 'ended', deadline = NULL, ended_at = NOW(), updated_at = NOW()
		WHERE id AND phase <> 'ended'
	`
	result, err := r.pool.Exec(ctx, query)
	if err != nil {
		return false, fmt.Errorf("failed to mark auction ended: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// ResetState returns the phase to Active with no countdown, within a
// transaction
func (r *PostgresStateRepository) ResetState(ctx context.Context, tx pgx.Tx) error {
	query := `
		UPDATE auction_state
		SET phase = 'active', deadline = NULL, ended_at = NULL, updated_at = NOW()
		WHERE id
	`
	if _, err := tx.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to reset auction state: %w", err)
	}
	return nil
}
