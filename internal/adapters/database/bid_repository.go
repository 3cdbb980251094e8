package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/galabid/galabid/internal/domain/bidding"
)

// PostgresBidRepository implements bidding.BidRepository using pgx
type PostgresBidRepository struct {
	pool *pgxpool.Pool // Keep pool for read-only operations
}

// NewPostgresBidRepository creates a new PostgreSQL bid repository
func NewPostgresBidRepository(pool *pgxpool.Pool) *PostgresBidRepository {
	return &PostgresBidRepository{pool: pool}
}

// SaveBid appends a bid record within a transaction
func (r *PostgresBidRepository) SaveBid(ctx context.Context, tx pgx.Tx, bid *bidding.BidRecord) error {
	query := `
		INSERT INTO bids (id, lot_id, amount, bidder_name, bidder_email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.Exec(ctx, query,
		bid.ID,
		bid.LotID,
		bid.Amount,
		bid.BidderName,
		bid.BidderEmail,
		bid.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bid: %w", err)
	}
	return nil
}

// ListBidsByLot retrieves all bid records for a lot, newest first
func (r *PostgresBidRepository) ListBidsByLot(ctx context.Context, lotID uuid.UUID) ([]*bidding.BidRecord, error) {
	query := `
		SELECT id, lot_id, amount, bidder_name, bidder_email, created_at
		FROM bids
		WHERE lot_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, lotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bids: %w", err)
	}
	defer rows.Close()

	var result []*bidding.BidRecord
	for rows.Next() {
		var bid bidding.BidRecord
		if err := rows.Scan(
			&bid.ID,
			&bid.LotID,
			&bid.Amount,
			&bid.BidderName,
			&bid.BidderEmail,
			&bid.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		result = append(result, &bid)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bids: %w", err)
	}

	return result, nil
}

// DeleteAllBids clears the entire bid history within a transaction
func (r *PostgresBidRepository) DeleteAllBids(ctx context.Context, tx pgx.Tx) error {
	if _, err := tx.Exec(ctx, `DELETE FROM bids`); err != nil {
		return fmt.Errorf("failed to delete bids: %w", err)
	}
	return nil
}
