//go:build integration

package lifecycle_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapterdb "github.com/galabid/galabid/internal/adapters/database"
	"github.com/galabid/galabid/internal/domain/lifecycle"
	"github.com/galabid/galabid/internal/domain/settlement"
	"github.com/galabid/galabid/internal/testhelpers"
	pkgdb "github.com/galabid/galabid/pkg/database"
)

func newLifecycleService(pool *pgxpool.Pool) *lifecycle.Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	txManager := pkgdb.NewPostgresTransactionManager(pool, 5*time.Second)
	lotRepo := adapterdb.NewPostgresLotRepository(pool)
	bidRepo := adapterdb.NewPostgresBidRepository(pool)
	outboxRepo := adapterdb.NewPostgresOutboxRepository(pool)
	stateRepo := adapterdb.NewPostgresStateRepository(pool)

	settler := settlement.NewService(
		txManager,
		lotRepo,
		bidRepo,
		outboxRepo,
		settlement.Config{BaseURL: "https://auction.example.org", AdminEmail: "treasurer@example.org"},
		logger,
	)
	return lifecycle.NewService(txManager, stateRepo, bidRepo, lotRepo, settler, logger)
}

func seedWonLot(t *testing.T, pool *pgxpool.Pool, name, leaderName, leaderEmail string, amount int64) uuid.UUID {
	t.Helper()
	lotID := uuid.New()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO lots (id, name, description, starting_price, current_bid, leader_name, leader_email, tier, created_at, updated_at)
		VALUES ($1, $2, '', 10, $3, $4, $5, 'standard', NOW(), NOW())
	`, lotID, name, decimal.NewFromInt(amount), leaderName, leaderEmail)
	require.NoError(t, err, "Failed to seed lot")
	return lotID
}

func TestEnd_SettlesExactlyOnce(t *testing.T) {
	testDB := testhelpers.NewTestDatabase(t, "../../../migrations")
	defer testDB.Close()
	pool := testDB.Pool
	ctx := context.Background()

	service := newLifecycleService(pool)
	seedWonLot(t, pool, "Signed Jersey", "Alice", "alice@example.org", 80)
	seedWonLot(t, pool, "Gift Basket", "Alice", "alice@example.org", 30)

	report, err := service.End(ctx)
	require.NoError(t, err)
	require.Len(t, report.Lots, 2)
	require.Len(t, report.Winners, 1)
	assert.True(t, report.Winners[0].Total.Equal(decimal.NewFromInt(110)))

	// Winner mail plus administrator report queued
	var wonEvents, reportEvents int
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM outbox_events WHERE event_type = 'notification.auction_won'").Scan(&wonEvents))
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM outbox_events WHERE event_type = 'notification.settlement_report'").Scan(&reportEvents))
	assert.Equal(t, 1, wonEvents)
	assert.Equal(t, 1, reportEvents)

	// Ending again neither transitions nor settles again
	_, err = service.End(ctx)
	assert.ErrorIs(t, err, lifecycle.ErrAuctionEnded)
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM outbox_events WHERE event_type = 'notification.auction_won'").Scan(&wonEvents))
	assert.Equal(t, 1, wonEvents)

	// The report stays reachable after the transition, without new mail
	again, err := service.Settlement(ctx)
	require.NoError(t, err)
	require.Len(t, again.Lots, 2)
	assert.True(t, again.Winners[0].Total.Equal(decimal.NewFromInt(110)))
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM outbox_events WHERE event_type = 'notification.auction_won'").Scan(&wonEvents))
	assert.Equal(t, 1, wonEvents)
}

func TestSettlement_RejectedWhileActive(t *testing.T) {
	testDB := testhelpers.NewTestDatabase(t, "../../../migrations")
	defer testDB.Close()

	service := newLifecycleService(testDB.Pool)
	_, err := service.Settlement(context.Background())
	assert.ErrorIs(t, err, lifecycle.ErrAuctionNotEnded)
}

func TestReset_RestoresLotsAndReactivates(t *testing.T) {
	testDB := testhelpers.NewTestDatabase(t, "../../../migrations")
	defer testDB.Close()
	pool := testDB.Pool
	ctx := context.Background()

	service := newLifecycleService(pool)
	lotID := seedWonLot(t, pool, "Signed Jersey", "Alice", "alice@example.org", 80)
	_, err := pool.Exec(ctx, `
		INSERT INTO bids (id, lot_id, amount, bidder_name, bidder_email, created_at)
		VALUES ($1, $2, 80, 'Alice', 'alice@example.org', NOW())
	`, uuid.New(), lotID)
	require.NoError(t, err)

	_, err = service.End(ctx)
	require.NoError(t, err)

	require.NoError(t, service.Reset(ctx))

	// Lot restored to starting price with no leader
	var currentBid decimal.Decimal
	var leaderEmail string
	require.NoError(t, pool.QueryRow(ctx, "SELECT current_bid, leader_email FROM lots WHERE id = $1", lotID).
		Scan(&currentBid, &leaderEmail))
	assert.True(t, currentBid.Equal(decimal.NewFromInt(10)))
	assert.Empty(t, leaderEmail)

	// History gone, phase back to active
	var bidCount int
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM bids").Scan(&bidCount))
	assert.Equal(t, 0, bidCount)

	state, err := service.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.PhaseActive, state.Phase)
	assert.Nil(t, state.Deadline)
}

func TestPauseResume_RoundTrip(t *testing.T) {
	testDB := testhelpers.NewTestDatabase(t, "../../../migrations")
	defer testDB.Close()
	ctx := context.Background()

	service := newLifecycleService(testDB.Pool)

	require.NoError(t, service.Pause(ctx))
	state, err := service.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.PhasePaused, state.Phase)

	require.NoError(t, service.Resume(ctx))
	state, err = service.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.PhaseActive, state.Phase)
}
