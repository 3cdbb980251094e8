package settlement

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/galabid/galabid/internal/domain/bidding"
	"github.com/galabid/galabid/internal/domain/lots"
	"github.com/galabid/galabid/pkg/events"
)

// LotSource supplies the lots eligible for settlement
type LotSource interface {
	ListLotsWithLeader(ctx context.Context) ([]*lots.Lot, error)
}

// BidSource supplies the bid history used for runner-up resolution
type BidSource interface {
	ListBidsByLot(ctx context.Context, lotID uuid.UUID) ([]*bidding.BidRecord, error)
}

// OutboxRepository queues winner and report notifications
type OutboxRepository interface {
	SaveEvent(ctx context.Context, tx pgx.Tx, event *events.OutboxEvent) error
}
