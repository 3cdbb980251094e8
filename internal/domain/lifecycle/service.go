package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/galabid/galabid/internal/domain/settlement"
	"github.com/galabid/galabid/pkg/database"
)

// Service errors
var (
	ErrAuctionEnded    = fmt.Errorf("auction has ended")
	ErrAuctionNotEnded = fmt.Errorf("auction has not ended")
	ErrAlreadyActive   = fmt.Errorf("auction is already active")
	ErrAlreadyPaused   = fmt.Errorf("auction is already paused")
)

// Settler resolves winners once the auction ends. Settle queues the
// notification mail on top of what Generate computes.
type Settler interface {
	Settle(ctx context.Context) (*settlement.Report, error)
	Generate(ctx context.Context) (*settlement.Report, error)
}

// Service owns the auction-wide state machine: Active, Paused and Ended,
// with Ended terminal until an explicit Reset.
type Service struct {
	txManager database.TransactionManager
	stateRepo StateRepository
	bids      BidHistory
	lots      LotResetter
	settler   Settler
	logger    *slog.Logger
}

// NewService creates a new lifecycle controller
func NewService(
	txManager database.TransactionManager,
	stateRepo StateRepository,
	bids BidHistory,
	lots LotResetter,
	settler Settler,
	logger *slog.Logger,
) *Service {
	return &Service{
		txManager: txManager,
		stateRepo: stateRepo,
		bids:      bids,
		lots:      lots,
		settler:   settler,
		logger:    logger,
	}
}

// State reads the current auction state
func (s *Service) State(ctx context.Context) (*State, error) {
	return s.stateRepo.GetState(ctx)
}

// Pause stops new bid submissions. Bids already committed stay committed.
func (s *Service) Pause(ctx context.Context) error {
	state, err := s.stateRepo.GetState(ctx)
	if err != nil {
		return err
	}
	switch state.Phase {
	case PhaseEnded:
		return ErrAuctionEnded
	case PhasePaused:
		return ErrAlreadyPaused
	}
	if err := s.stateRepo.SetPhase(ctx, PhasePaused); err != nil {
		return fmt.Errorf("failed to pause auction: %w", err)
	}
	s.logger.Info("Auction paused")
	return nil
}

// Resume re-opens bid submissions after a pause
func (s *Service) Resume(ctx context.Context) error {
	state, err := s.stateRepo.GetState(ctx)
	if err != nil {
		return err
	}
	switch state.Phase {
	case PhaseEnded:
		return ErrAuctionEnded
	case PhaseActive:
		return ErrAlreadyActive
	}
	if err := s.stateRepo.SetPhase(ctx, PhaseActive); err != nil {
		return fmt.Errorf("failed to resume auction: %w", err)
	}
	s.logger.Info("Auction resumed")
	return nil
}

// SetCountdown stores the advisory countdown shown to bidders. Zero minutes
// clears it. The deadline never ends the auction on its own; ending stays an
// explicit administrator action.
func (s *Service) SetCountdown(ctx context.Context, minutes int) (*State, error) {
	state, err := s.stateRepo.GetState(ctx)
	if err != nil {
		return nil, err
	}
	if state.Phase == PhaseEnded {
		return nil, ErrAuctionEnded
	}

	var deadline *time.Time
	if minutes > 0 {
		d := time.Now().Add(time.Duration(minutes) * time.Minute)
		deadline = &d
	}
	if err := s.stateRepo.SetDeadline(ctx, deadline); err != nil {
		return nil, fmt.Errorf("failed to set countdown: %w", err)
	}

	state.Deadline = deadline
	s.logger.Info("Countdown updated", "minutes", minutes)
	return state, nil
}

// End transitions to Ended and runs settlement. The guarded phase flip makes
// the transition and its settlement pass run exactly once; calling End again
// returns ErrAuctionEnded.
func (s *Service) End(ctx context.Context) (*settlement.Report, error) {
	transitioned, err := s.stateRepo.MarkEnded(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to end auction: %w", err)
	}
	if !transitioned {
		return nil, ErrAuctionEnded
	}

	s.logger.Info("Auction ended, running settlement")
	report, err := s.settler.Settle(ctx)
	if err != nil {
		return nil, fmt.Errorf("settlement failed: %w", err)
	}
	return report, nil
}

// Settlement recomputes the report from the committed lot and bid state.
// The phase is already Ended so that state no longer moves, making this
// callable any number of times; it reads only and queues no mail, which
// also makes it the recovery path when the settlement pass inside End
// failed after the phase flip.
func (s *Service) Settlement(ctx context.Context) (*settlement.Report, error) {
	state, err := s.stateRepo.GetState(ctx)
	if err != nil {
		return nil, err
	}
	if state.Phase != PhaseEnded {
		return nil, ErrAuctionNotEnded
	}

	report, err := s.settler.Generate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to regenerate settlement: %w", err)
	}
	return report, nil
}

// Reset atomically clears all bid history, restores every lot to its
// starting price with no leader, and returns the phase to Active with no
// countdown. This is destructive: the settlement CSV is the only surviving
// artifact of the previous auction.
func (s *Service) Reset(ctx context.Context) error {
	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := s.bids.DeleteAllBids(ctx, tx); err != nil {
		return fmt.Errorf("failed to clear bid history: %w", err)
	}
	if err := s.lots.ResetLots(ctx, tx); err != nil {
		return fmt.Errorf("failed to reset lots: %w", err)
	}
	if err := s.stateRepo.ResetState(ctx, tx); err != nil {
		return fmt.Errorf("failed to reset auction state: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}

	s.logger.Info("Auction reset: history cleared, lots restored")
	return nil
}
