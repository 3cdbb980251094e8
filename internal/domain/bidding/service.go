package bidding

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/galabid/galabid/internal/domain/lots"
	"github.com/galabid/galabid/internal/notifications"
	"github.com/galabid/galabid/pkg/database"
	"github.com/galabid/galabid/pkg/events"
)

// Service implements the bid processing engine. A bid commits atomically per
// lot: the row lock taken by GetLotByIDForUpdate serializes concurrent
// submissions on the same lot, while different lots proceed in parallel.
type Service struct {
	txManager   database.TransactionManager
	lotRepo     LotRepository
	bidRepo     BidRepository
	outboxRepo  OutboxRepository
	gate        AuctionGate
	increments  lots.IncrementTable
	eligibility EligibilityRule
}

// NewService creates a new bid processing engine
func NewService(
	txManager database.TransactionManager,
	lotRepo LotRepository,
	bidRepo BidRepository,
	outboxRepo OutboxRepository,
	gate AuctionGate,
	increments lots.IncrementTable,
	eligibility EligibilityRule,
) *Service {
	return &Service{
		txManager:   txManager,
		lotRepo:     lotRepo,
		bidRepo:     bidRepo,
		outboxRepo:  outboxRepo,
		gate:        gate,
		increments:  increments,
		eligibility: eligibility,
	}
}

// PlaceBid validates and commits a bid. Preconditions are checked in order:
// auction active, lot exists, bidder eligible, amount within the increment
// policy's range computed against the lot's state at commit time. The bid
// record, the leader update and the notification outbox events commit in one
// transaction; email delivery itself happens off this path and can never
// fail the bid.
func (s *Service) PlaceBid(ctx context.Context, cmd PlaceBidCommand) (*AcceptedBid, error) {
	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// Phase is observed inside the transaction so a pause or end that
	// committed first is always respected.
	if err := s.gate.EnsureActive(ctx, tx); err != nil {
		return nil, err
	}

	// Lock the lot row; concurrent bids on this lot wait here and then
	// re-validate against the state the winner left behind.
	lot, err := s.lotRepo.GetLotByIDForUpdate(ctx, tx, cmd.LotID)
	if err != nil {
		return nil, err
	}

	if err := s.eligibility(cmd.BidderEmail); err != nil {
		return nil, err
	}

	minBid, maxBid := s.increments.ValidRange(lot)
	if cmd.Amount.LessThan(minBid) {
		return nil, &RangeError{Reason: ReasonTooLow, MinBid: minBid, MaxBid: maxBid}
	}
	if cmd.Amount.GreaterThan(maxBid) {
		return nil, &RangeError{Reason: ReasonTooHigh, MinBid: minBid, MaxBid: maxBid}
	}

	bid := &BidRecord{
		ID:          uuid.New(),
		LotID:       cmd.LotID,
		Amount:      cmd.Amount,
		BidderName:  cmd.BidderName,
		BidderEmail: cmd.BidderEmail,
		CreatedAt:   time.Now(),
	}

	if err := s.bidRepo.SaveBid(ctx, tx, bid); err != nil {
		return nil, fmt.Errorf("failed to save bid: %w", err)
	}

	prevName, prevEmail := lot.LeaderName, lot.LeaderEmail

	if err := s.lotRepo.UpdateLeader(ctx, tx, lot.ID, cmd.Amount, cmd.BidderName, cmd.BidderEmail); err != nil {
		return nil, fmt.Errorf("failed to update leader: %w", err)
	}

	if err := s.queueNotifications(ctx, tx, lot, cmd, prevName, prevEmail); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	lot.CurrentBid = cmd.Amount
	lot.LeaderName = cmd.BidderName
	lot.LeaderEmail = cmd.BidderEmail

	return &AcceptedBid{Bid: bid, Lot: lot}, nil
}

// queueNotifications stores the confirmation mail for the new leader and,
// when a different bidder was displaced, the outbid mail. Both share one
// subject per lot so the bidder's mail client threads the conversation.
func (s *Service) queueNotifications(ctx context.Context, tx pgx.Tx, lot *lots.Lot, cmd PlaceBidCommand, prevName, prevEmail string) error {
	subject := fmt.Sprintf("Auction Status: %s", lot.Name)
	amount := cmd.Amount.StringFixed(2)

	confirmed := notifications.BidConfirmed{
		Recipient:  cmd.BidderEmail,
		BidderName: cmd.BidderName,
		LotID:      lot.ID.String(),
		LotName:    lot.Name,
		Amount:     amount,
		Subject:    subject,
	}
	payload, err := json.Marshal(confirmed)
	if err != nil {
		return fmt.Errorf("failed to marshal confirmation event: %w", err)
	}
	if err := s.outboxRepo.SaveEvent(ctx, tx, events.NewOutboxEvent(events.EventTypeBidConfirmed, payload)); err != nil {
		return fmt.Errorf("failed to save confirmation event: %w", err)
	}

	if prevEmail == "" || prevEmail == cmd.BidderEmail {
		return nil
	}

	outbid := notifications.Outbid{
		Recipient:  prevEmail,
		BidderName: prevName,
		LotID:      lot.ID.String(),
		LotName:    lot.Name,
		Amount:     amount,
		Subject:    subject,
	}
	payload, err = json.Marshal(outbid)
	if err != nil {
		return fmt.Errorf("failed to marshal outbid event: %w", err)
	}
	if err := s.outboxRepo.SaveEvent(ctx, tx, events.NewOutboxEvent(events.EventTypeOutbid, payload)); err != nil {
		return fmt.Errorf("failed to save outbid event: %w", err)
	}

	return nil
}

// ListBidsByLot exposes the bid history for a lot
func (s *Service) ListBidsByLot(ctx context.Context, lotID uuid.UUID) ([]*BidRecord, error) {
	records, err := s.bidRepo.ListBidsByLot(ctx, lotID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}
	return records, nil
}
