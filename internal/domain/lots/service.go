package lots

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service errors
var (
	ErrLotNotFound          = fmt.Errorf("lot not found")
	ErrInvalidStartingPrice = fmt.Errorf("starting price must not be negative")
	ErrInvalidTier          = fmt.Errorf("unknown increment tier")
	ErrLotNameRequired      = fmt.Errorf("lot name is required")
)

// Service implements the administrative lot catalogue operations
type Service struct {
	repo Repository
}

// NewService creates a new lot service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateLot creates a new auction lot. The current bid starts at the
// starting price and stays there until the first accepted bid.
func (s *Service) CreateLot(ctx context.Context, cmd CreateLotCommand) (*Lot, error) {
	if cmd.Name == "" {
		return nil, ErrLotNameRequired
	}
	if cmd.StartingPrice.IsNegative() {
		return nil, ErrInvalidStartingPrice
	}
	tier := cmd.Tier
	if tier == "" {
		tier = TierStandard
	}
	if !tier.IsValid() {
		return nil, ErrInvalidTier
	}

	lot := &Lot{
		ID:            uuid.New(),
		Name:          cmd.Name,
		Description:   cmd.Description,
		ImageURL:      cmd.ImageURL,
		StartingPrice: cmd.StartingPrice,
		CurrentBid:    cmd.StartingPrice,
		Tier:          tier,
		GroupID:       cmd.GroupID,
		Position:      cmd.Position,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	if err := s.repo.CreateLot(ctx, lot); err != nil {
		return nil, fmt.Errorf("failed to create lot: %w", err)
	}

	return lot, nil
}

// GetLot retrieves a lot by ID
func (s *Service) GetLot(ctx context.Context, lotID uuid.UUID) (*Lot, error) {
	lot, err := s.repo.GetLotByID(ctx, lotID)
	if err != nil {
		return nil, err
	}
	return lot, nil
}

// ListLots retrieves all live lots in display order
func (s *Service) ListLots(ctx context.Context) ([]*Lot, error) {
	list, err := s.repo.ListLots(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list lots: %w", err)
	}
	return list, nil
}

// ListLotsByGroup retrieves live lots for one group/table number
func (s *Service) ListLotsByGroup(ctx context.Context, groupID int) ([]*Lot, error) {
	list, err := s.repo.ListLotsByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lots by group: %w", err)
	}
	return list, nil
}

// EditLot updates a lot's fields. The starting price may only change while
// the lot has no leader, in which case the current bid is re-derived from it.
func (s *Service) EditLot(ctx context.Context, cmd EditLotCommand) (*Lot, error) {
	lot, err := s.repo.GetLotByID(ctx, cmd.LotID)
	if err != nil {
		return nil, err
	}

	if cmd.Name == "" {
		return nil, ErrLotNameRequired
	}
	tier := cmd.Tier
	if tier == "" {
		tier = lot.Tier
	}
	if !tier.IsValid() {
		return nil, ErrInvalidTier
	}

	priceChange := !lot.HasLeader() && !cmd.StartingPrice.Equal(lot.StartingPrice)
	if priceChange && cmd.StartingPrice.IsNegative() {
		return nil, ErrInvalidStartingPrice
	}

	lot.Name = cmd.Name
	lot.Description = cmd.Description
	lot.ImageURL = cmd.ImageURL
	lot.Tier = tier
	lot.GroupID = cmd.GroupID
	lot.Position = cmd.Position
	lot.UpdatedAt = time.Now()

	if err := s.repo.UpdateLotDetails(ctx, lot); err != nil {
		return nil, fmt.Errorf("failed to update lot: %w", err)
	}

	if priceChange {
		applied, err := s.repo.UpdateStartingPrice(ctx, cmd.LotID, cmd.StartingPrice)
		if err != nil {
			return nil, fmt.Errorf("failed to update starting price: %w", err)
		}
		if !applied {
			// A bid was accepted between our read and this write; the bid
			// wins, and the caller gets the live row.
			return s.repo.GetLotByID(ctx, cmd.LotID)
		}
		lot.StartingPrice = cmd.StartingPrice
		lot.CurrentBid = cmd.StartingPrice
	}

	return lot, nil
}

// DeleteLot soft-deletes a lot so bid history stays intact
func (s *Service) DeleteLot(ctx context.Context, lotID uuid.UUID) error {
	if _, err := s.repo.GetLotByID(ctx, lotID); err != nil {
		return err
	}
	if err := s.repo.SoftDeleteLot(ctx, lotID); err != nil {
		return fmt.Errorf("failed to delete lot: %w", err)
	}
	return nil
}
