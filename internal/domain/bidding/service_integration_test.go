//go:build integration

package bidding_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapterdb "github.com/galabid/galabid/internal/adapters/database"
	"github.com/galabid/galabid/internal/domain/bidding"
	"github.com/galabid/galabid/internal/domain/lots"
	"github.com/galabid/galabid/internal/testhelpers"
	pkgdb "github.com/galabid/galabid/pkg/database"
)

func seedLot(t *testing.T, pool *pgxpool.Pool, name string, startingPrice int64) uuid.UUID {
	t.Helper()
	lotID := uuid.New()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO lots (id, name, description, starting_price, current_bid, tier, created_at, updated_at)
		VALUES ($1, $2, '', $3, $3, 'standard', NOW(), NOW())
	`, lotID, name, decimal.NewFromInt(startingPrice))
	require.NoError(t, err, "Failed to seed lot")
	return lotID
}

func newBidService(pool *pgxpool.Pool) (*bidding.Service, *adapterdb.PostgresStateRepository) {
	txManager := pkgdb.NewPostgresTransactionManager(pool, 5*time.Second)
	lotRepo := adapterdb.NewPostgresLotRepository(pool)
	bidRepo := adapterdb.NewPostgresBidRepository(pool)
	outboxRepo := adapterdb.NewPostgresOutboxRepository(pool)
	stateRepo := adapterdb.NewPostgresStateRepository(pool)

	service := bidding.NewService(
		txManager,
		lotRepo,
		bidRepo,
		outboxRepo,
		stateRepo,
		lots.DefaultIncrements(),
		bidding.AllowAll(),
	)
	return service, stateRepo
}

func TestPlaceBid_CommitsAtomically(t *testing.T) {
	testDB := testhelpers.NewTestDatabase(t, "../../../migrations")
	defer testDB.Close()
	pool := testDB.Pool
	ctx := context.Background()

	service, _ := newBidService(pool)
	lotID := seedLot(t, pool, "Signed Jersey", 50)

	accepted, err := service.PlaceBid(ctx, bidding.PlaceBidCommand{
		LotID:       lotID,
		Amount:      decimal.NewFromInt(55),
		BidderName:  "Alice",
		BidderEmail: "alice@example.org",
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice", accepted.Lot.LeaderName)

	// Lot row reflects the new leader
	var currentBid decimal.Decimal
	var leaderEmail string
	err = pool.QueryRow(ctx, "SELECT current_bid, leader_email FROM lots WHERE id = $1", lotID).
		Scan(&currentBid, &leaderEmail)
	require.NoError(t, err)
	assert.True(t, currentBid.Equal(decimal.NewFromInt(55)))
	assert.Equal(t, "alice@example.org", leaderEmail)

	// Bid record and confirmation event committed with it
	var bidCount, eventCount int
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM bids WHERE lot_id = $1", lotID).Scan(&bidCount))
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM outbox_events WHERE event_type = 'notification.bid_confirmed'").Scan(&eventCount))
	assert.Equal(t, 1, bidCount)
	assert.Equal(t, 1, eventCount)
}

// TestPlaceBid_ConcurrentBidsOneWinner hammers one lot with identical
// concurrent bids. The row lock must serialize them so exactly one is
// accepted and the rest are rejected against the updated range.
func TestPlaceBid_ConcurrentBidsOneWinner(t *testing.T) {
	testDB := testhelpers.NewTestDatabase(t, "../../../migrations")
	defer testDB.Close()
	pool := testDB.Pool
	ctx := context.Background()

	service, _ := newBidService(pool)
	lotID := seedLot(t, pool, "Signed Jersey", 50)

	const bidders = 8
	var wg sync.WaitGroup
	results := make([]error, bidders)

	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = service.PlaceBid(ctx, bidding.PlaceBidCommand{
				LotID:       lotID,
				Amount:      decimal.NewFromInt(55),
				BidderName:  "Bidder",
				BidderEmail: "bidder@example.org",
			})
		}(i)
	}
	wg.Wait()

	var acceptedCount, rejectedCount int
	for _, err := range results {
		if err == nil {
			acceptedCount++
			continue
		}
		var rangeErr *bidding.RangeError
		require.ErrorAs(t, err, &rangeErr, "losers must fail range validation, nothing else")
		assert.Equal(t, bidding.ReasonTooLow, rangeErr.Reason)
		rejectedCount++
	}

	assert.Equal(t, 1, acceptedCount, "exactly one concurrent bid wins")
	assert.Equal(t, bidders-1, rejectedCount)

	// Exactly one bid row committed
	var bidCount int
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM bids WHERE lot_id = $1", lotID).Scan(&bidCount))
	assert.Equal(t, 1, bidCount)
}

func TestPlaceBid_RespectsPause(t *testing.T) {
	testDB := testhelpers.NewTestDatabase(t, "../../../migrations")
	defer testDB.Close()
	pool := testDB.Pool
	ctx := context.Background()

	service, stateRepo := newBidService(pool)
	lotID := seedLot(t, pool, "Gift Basket", 10)

	require.NoError(t, stateRepo.SetPhase(ctx, "paused"))

	_, err := service.PlaceBid(ctx, bidding.PlaceBidCommand{
		LotID:       lotID,
		Amount:      decimal.NewFromInt(10),
		BidderName:  "Alice",
		BidderEmail: "alice@example.org",
	})
	assert.True(t, errors.Is(err, bidding.ErrAuctionNotActive))

	// Nothing was written
	var bidCount int
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM bids").Scan(&bidCount))
	assert.Equal(t, 0, bidCount)
}
