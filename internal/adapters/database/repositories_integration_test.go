//go:build integration

package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapterdb "github.com/galabid/galabid/internal/adapters/database"
	"github.com/galabid/galabid/internal/domain/lifecycle"
	"github.com/galabid/galabid/internal/domain/lots"
	"github.com/galabid/galabid/internal/testhelpers"
)

func newLot(name string) *lots.Lot {
	now := time.Now()
	return &lots.Lot{
		ID:            uuid.New(),
		Name:          name,
		StartingPrice: decimal.NewFromInt(25),
		CurrentBid:    decimal.NewFromInt(25),
		Tier:          lots.TierB,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestPostgresLotRepository_SoftDelete(t *testing.T) {
	testDB := testhelpers.NewTestDatabase(t, "../../../migrations")
	defer testDB.Close()
	ctx := context.Background()

	repo := adapterdb.NewPostgresLotRepository(testDB.Pool)
	lot := newLot("Signed Jersey")
	require.NoError(t, repo.CreateLot(ctx, lot))

	got, err := repo.GetLotByID(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, lot.Name, got.Name)
	assert.True(t, got.StartingPrice.Equal(decimal.NewFromInt(25)))

	require.NoError(t, repo.SoftDeleteLot(ctx, lot.ID))

	// Hidden from reads, row still present for bid history references
	_, err = repo.GetLotByID(ctx, lot.ID)
	assert.ErrorIs(t, err, lots.ErrLotNotFound)

	var count int
	require.NoError(t, testDB.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM lots WHERE id = $1", lot.ID).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestPostgresLotRepository_ListLotsWithLeader(t *testing.T) {
	testDB := testhelpers.NewTestDatabase(t, "../../../migrations")
	defer testDB.Close()
	ctx := context.Background()

	repo := adapterdb.NewPostgresLotRepository(testDB.Pool)

	won := newLot("Signed Jersey")
	won.LeaderName = "Alice"
	won.LeaderEmail = "alice@example.org"
	won.CurrentBid = decimal.NewFromInt(40)
	require.NoError(t, repo.CreateLot(ctx, won))

	untouched := newLot("Gift Basket")
	require.NoError(t, repo.CreateLot(ctx, untouched))

	list, err := repo.ListLotsWithLeader(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, won.ID, list[0].ID)
}

func TestPostgresLotRepository_UpdateStartingPriceGuard(t *testing.T) {
	testDB := testhelpers.NewTestDatabase(t, "../../../migrations")
	defer testDB.Close()
	ctx := context.Background()

	repo := adapterdb.NewPostgresLotRepository(testDB.Pool)
	lot := newLot("Signed Jersey")
	require.NoError(t, repo.CreateLot(ctx, lot))

	applied, err := repo.UpdateStartingPrice(ctx, lot.ID, decimal.NewFromInt(30))
	require.NoError(t, err)
	assert.True(t, applied)

	// A bid promotes a leader; the price write must refuse from here on
	tx, err := testDB.Pool.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateLeader(ctx, tx, lot.ID, decimal.NewFromInt(31), "Bob", "bob@example.org"))
	require.NoError(t, tx.Commit(ctx))

	applied, err = repo.UpdateStartingPrice(ctx, lot.ID, decimal.NewFromInt(20))
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := repo.GetLotByID(ctx, lot.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentBid.Equal(decimal.NewFromInt(31)),
		"the committed bid must survive the edit")
	assert.True(t, got.StartingPrice.Equal(decimal.NewFromInt(30)))
}

func TestPostgresStateRepository_EndedIsSticky(t *testing.T) {
	testDB := testhelpers.NewTestDatabase(t, "../../../migrations")
	defer testDB.Close()
	ctx := context.Background()

	repo := adapterdb.NewPostgresStateRepository(testDB.Pool)

	// Migration seeds the singleton row active
	state, err := repo.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.PhaseActive, state.Phase)

	transitioned, err := repo.MarkEnded(ctx)
	require.NoError(t, err)
	assert.True(t, transitioned)

	// Second MarkEnded finds nothing to flip
	transitioned, err = repo.MarkEnded(ctx)
	require.NoError(t, err)
	assert.False(t, transitioned)

	// Pause/resume refuse to leave Ended
	assert.ErrorIs(t, repo.SetPhase(ctx, lifecycle.PhasePaused), lifecycle.ErrAuctionEnded)
	assert.ErrorIs(t, repo.SetPhase(ctx, lifecycle.PhaseActive), lifecycle.ErrAuctionEnded)
}
