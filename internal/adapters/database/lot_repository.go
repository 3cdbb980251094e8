package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/galabid/galabid/internal/domain/lots"
	pkgdb "github.com/galabid/galabid/pkg/database"
)

const lotColumns = `id, name, description, image_url, starting_price, current_bid,
		leader_name, leader_email, tier, group_id, position, created_at, updated_at, deleted_at`

// PostgresLotRepository implements lots.Repository using pgx
type PostgresLotRepository struct {
	pool *pgxpool.Pool // Keep pool for non-transactional reads
}

// NewPostgresLotRepository creates a new PostgreSQL lot repository
func NewPostgresLotRepository(pool *pgxpool.Pool) *PostgresLotRepository {
	return &PostgresLotRepository{pool: pool}
}

// CreateLot creates a new auction lot
func (r *PostgresLotRepository) CreateLot(ctx context.Context, lot *lots.Lot) error {
	query := `
		INSERT INTO lots (id, name, description, image_url, starting_price, current_bid,
			leader_name, leader_email, tier, group_id, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.pool.Exec(ctx, query,
		lot.ID,
		lot.Name,
		lot.Description,
		lot.ImageURL,
		lot.StartingPrice,
		lot.CurrentBid,
		lot.LeaderName,
		lot.LeaderEmail,
		lot.Tier,
		lot.GroupID,
		lot.Position,
		lot.CreatedAt,
		lot.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert lot: %w", err)
	}
	return nil
}

// GetLotByID retrieves a lot by its ID (non-transactional read)
func (r *PostgresLotRepository) GetLotByID(ctx context.Context, lotID uuid.UUID) (*lots.Lot, error) {
	return r.getLotByID(ctx, r.pool, lotID, false)
}

// GetLotByIDForUpdate retrieves a lot by its ID and locks its row. This is
// the per-lot serialization point for concurrent bid submissions.
func (r *PostgresLotRepository) GetLotByIDForUpdate(ctx context.Context, tx pgx.Tx, lotID uuid.UUID) (*lots.Lot, error) {
	return r.getLotByID(ctx, tx, lotID, true)
}

// getLotByID is the internal implementation that works with any DBTX
func (r *PostgresLotRepository) getLotByID(ctx context.Context, db pkgdb.DBTX, lotID uuid.UUID, forUpdate bool) (*lots.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM lots WHERE id = $1 AND deleted_at IS NULL`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var lot lots.Lot
	err := db.QueryRow(ctx, query, lotID).Scan(
		&lot.ID,
		&lot.Name,
		&lot.Description,
		&lot.ImageURL,
		&lot.StartingPrice,
		&lot.CurrentBid,
		&lot.LeaderName,
		&lot.LeaderEmail,
		&lot.Tier,
		&lot.GroupID,
		&lot.Position,
		&lot.CreatedAt,
		&lot.UpdatedAt,
		&lot.DeletedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, lots.ErrLotNotFound
		}
		return nil, fmt.Errorf("failed to get lot: %w", err)
	}
	return &lot, nil
}

// UpdateLotDetails updates a lot's descriptive fields. Prices stay out of
// this statement so an edit can never revert a concurrently committed bid.
func (r *PostgresLotRepository) UpdateLotDetails(ctx context.Context, lot *lots.Lot) error {
	query := `
		UPDATE lots
		SET name = $1, description = $2, image_url = $3, tier = $4,
			group_id = $5, position = $6, updated_at = NOW()
		WHERE id = $7 AND deleted_at IS NULL
	`
	result, err := r.pool.Exec(ctx, query,
		lot.Name,
		lot.Description,
		lot.ImageURL,
		lot.Tier,
		lot.GroupID,
		lot.Position,
		lot.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update lot: %w", err)
	}
	if result.RowsAffected() == 0 {
		return lots.ErrLotNotFound
	}
	return nil
}

// UpdateStartingPrice sets a new starting price and re-derives the current
// bid. The leader guard makes this a no-op once any bid has been accepted,
// including one that lands after the caller's read.
func (r *PostgresLotRepository) UpdateStartingPrice(ctx context.Context, lotID uuid.UUID, price decimal.Decimal) (bool, error) {
	query := `
		UPDATE lots
		SET starting_price = $1, current_bid = $1, updated_at = NOW()
		WHERE id = $2 AND leader_email = '' AND deleted_at IS NULL
	`
	result, err := r.pool.Exec(ctx, query, price, lotID)
	if err != nil {
		return false, fmt.Errorf("failed to update starting price: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// UpdateLeader promotes a bidder to leader and raises the current bid
// within a transaction
func (r *PostgresLotRepository) UpdateLeader(ctx context.Context, tx pgx.Tx, lotID uuid.UUID, amount decimal.Decimal, name, email string) error {
	query := `
		UPDATE lots
		SET current_bid = $1, leader_name = $2, leader_email = $3, updated_at = NOW()
		WHERE id = $4 AND deleted_at IS NULL
	`
	result, err := tx.Exec(ctx, query, amount, name, email, lotID)
	if err != nil {
		return fmt.Errorf("failed to update leader: %w", err)
	}
	if result.RowsAffected() == 0 {
		return lots.ErrLotNotFound
	}
	return nil
}

// ListLots retrieves all live lots in display order
func (r *PostgresLotRepository) ListLots(ctx context.Context) ([]*lots.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM lots WHERE deleted_at IS NULL ORDER BY position, name`
	return r.queryLots(ctx, query)
}

// ListLotsByGroup retrieves live lots for one group/table
func (r *PostgresLotRepository) ListLotsByGroup(ctx context.Context, groupID int) ([]*lots.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM lots WHERE deleted_at IS NULL AND group_id = $1 ORDER BY position, name`
	return r.queryLots(ctx, query, groupID)
}

// ListLotsWithLeader retrieves live lots that received at least one bid
func (r *PostgresLotRepository) ListLotsWithLeader(ctx context.Context) ([]*lots.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM lots WHERE deleted_at IS NULL AND leader_email <> '' ORDER BY leader_name, name`
	return r.queryLots(ctx, query)
}

func (r *PostgresLotRepository) queryLots(ctx context.Context, query string, args ...any) ([]*lots.Lot, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lots: %w", err)
	}
	defer rows.Close()

	var result []*lots.Lot
	for rows.Next() {
		var lot lots.Lot
		if err := rows.Scan(
			&lot.ID,
			&lot.Name,
			&lot.Description,
			&lot.ImageURL,
			&lot.StartingPrice,
			&lot.CurrentBid,
			&lot.LeaderName,
			&lot.LeaderEmail,
			&lot.Tier,
			&lot.GroupID,
			&lot.Position,
			&lot.CreatedAt,
			&lot.UpdatedAt,
			&lot.DeletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan lot: %w", err)
		}
		result = append(result, &lot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lots: %w", err)
	}

	return result, nil
}

// SoftDeleteLot hides a lot without breaking bid history references
func (r *PostgresLotRepository) SoftDeleteLot(ctx context.Context, lotID uuid.UUID) error {
	query := `UPDATE lots SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	result, err := r.pool.Exec(ctx, query, lotID)
	if err != nil {
		return fmt.Errorf("failed to delete lot: %w", err)
	}
	if result.RowsAffected() == 0 {
		return lots.ErrLotNotFound
	}
	return nil
}

// ResetLots restores every lot's current bid to its starting price and
// clears the leaders, within a transaction
func (r *PostgresLotRepository) ResetLots(ctx context.Context, tx pgx.Tx) error {
	query := `
		UPDATE lots
		SET current_bid = starting_price, leader_name = '', leader_email = '', updated_at = NOW()
	`
	if _, err := tx.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to reset lots: %w", err)
	}
	return nil
}
