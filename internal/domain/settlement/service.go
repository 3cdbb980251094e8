package settlement

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/galabid/galabid/internal/notifications"
	"github.com/galabid/galabid/pkg/database"
	"github.com/galabid/galabid/pkg/events"
)

// Config holds the settlement-time configuration
type Config struct {
	// BaseURL is the public site URL embedded in lot links
	BaseURL string
	// AdminEmail receives the full report with the CSV attached
	AdminEmail string
}

// Service resolves winners, runner-ups and per-bidder totals from the
// committed lot and bid history state.
type Service struct {
	txManager  database.TransactionManager
	lotSource  LotSource
	bidSource  BidSource
	outboxRepo OutboxRepository
	config     Config
	logger     *slog.Logger
}

// NewService creates a new settlement generator
func NewService(
	txManager database.TransactionManager,
	lotSource LotSource,
	bidSource BidSource,
	outboxRepo OutboxRepository,
	config Config,
	logger *slog.Logger,
) *Service {
	return &Service{
		txManager:  txManager,
		lotSource:  lotSource,
		bidSource:  bidSource,
		outboxRepo: outboxRepo,
		config:     config,
		logger:     logger,
	}
}

// Settle generates the settlement report and queues the winner and
// administrator notifications.
func (s *Service) Settle(ctx context.Context) (*Report, error) {
	report, err := s.Generate(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.dispatch(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// Generate scans the lot store and bid history and resolves the outcome.
// It has no side effects and is idempotent over the same committed state.
func (s *Service) Generate(ctx context.Context) (*Report, error) {
	winningLots, err := s.lotSource.ListLotsWithLeader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list winning lots: %w", err)
	}

	report := &Report{GeneratedAt: time.Now()}

	for _, lot := range winningLots {
		result := LotResult{
			LotID:   lot.ID,
			LotName: lot.Name,
			GroupID: lot.GroupID,
			Winner:  Bidder{Name: lot.LeaderName, Email: lot.LeaderEmail},
			Amount:  lot.CurrentBid,
		}

		runnerUp, err := s.resolveRunnerUp(ctx, &result)
		if err != nil {
			// One lot's history scan failing must not sink the whole
			// settlement; report the runner-up as unknown and move on.
			s.logger.Error("Failed to resolve runner-up", "lot_id", lot.ID, "error", err)
			result.RunnerUpResolved = false
		} else {
			result.RunnerUp = runnerUp
			result.RunnerUpResolved = true
		}

		report.Lots = append(report.Lots, result)
	}

	// Stable order: by winner name, then lot name. Matches the order the
	// treasurer reads the sheet in and keeps regeneration deterministic.
	sort.Slice(report.Lots, func(i, j int) bool {
		a, b := report.Lots[i], report.Lots[j]
		if a.Winner.Name != b.Winner.Name {
			return a.Winner.Name < b.Winner.Name
		}
		return a.LotName < b.LotName
	})

	report.Winners = summarizeWinners(report.Lots)
	return report, nil
}

// resolveRunnerUp finds the highest bid on the lot placed by anyone other
// than the winner. A lot with a single distinct bidder has no runner-up,
// however many times they bid.
func (s *Service) resolveRunnerUp(ctx context.Context, result *LotResult) (*RunnerUp, error) {
	records, err := s.bidSource.ListBidsByLot(ctx, result.LotID)
	if err != nil {
		return nil, err
	}

	var best *RunnerUp
	for _, rec := range records {
		if rec.BidderEmail == result.Winner.Email {
			continue
		}
		if best == nil || rec.Amount.GreaterThan(best.Amount) {
			best = &RunnerUp{
				Name:   rec.BidderName,
				Email:  rec.BidderEmail,
				Amount: rec.Amount,
			}
		}
	}
	return best, nil
}

// summarizeWinners groups won lots by winner email and sums the totals owed
func summarizeWinners(results []LotResult) []WinnerSummary {
	byEmail := make(map[string]*WinnerSummary)
	var order []string
	for _, result := range results {
		summary, ok := byEmail[result.Winner.Email]
		if !ok {
			summary = &WinnerSummary{
				Name:  result.Winner.Name,
				Email: result.Winner.Email,
				Total: decimal.Zero,
			}
			byEmail[result.Winner.Email] = summary
			order = append(order, result.Winner.Email)
		}
		summary.Lots = append(summary.Lots, result)
		summary.Total = summary.Total.Add(result.Amount)
	}

	winners := make([]WinnerSummary, 0, len(order))
	for _, email := range order {
		winners = append(winners, *byEmail[email])
	}
	return winners
}

// dispatch queues one consolidated mail per distinct winner plus the
// administrator report with the CSV attached. Everything is written in one
// transaction; delivery failures downstream are isolated per message by the
// mailer and never surface here.
func (s *Service) dispatch(ctx context.Context, report *Report) error {
	csvData, err := report.CSV(s.config.BaseURL)
	if err != nil {
		return fmt.Errorf("failed to render report csv: %w", err)
	}

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, winner := range report.Winners {
		won := notifications.AuctionWon{
			Recipient:  winner.Email,
			WinnerName: winner.Name,
			Total:      winner.Total.StringFixed(2),
		}
		for _, lot := range winner.Lots {
			won.Lots = append(won.Lots, notifications.WonLot{
				LotName: lot.LotName,
				Amount:  lot.Amount.StringFixed(2),
				GroupID: lot.GroupID,
			})
		}

		payload, err := json.Marshal(won)
		if err != nil {
			return fmt.Errorf("failed to marshal winner event: %w", err)
		}
		if err := s.outboxRepo.SaveEvent(ctx, tx, events.NewOutboxEvent(events.EventTypeAuctionWon, payload)); err != nil {
			return fmt.Errorf("failed to save winner event: %w", err)
		}
	}

	adminReport := notifications.SettlementReport{
		Recipient:   s.config.AdminEmail,
		LotCount:    len(report.Lots),
		CSV:         csvData,
		GeneratedAt: report.GeneratedAt,
	}
	payload, err := json.Marshal(adminReport)
	if err != nil {
		return fmt.Errorf("failed to marshal report event: %w", err)
	}
	if err := s.outboxRepo.SaveEvent(ctx, tx, events.NewOutboxEvent(events.EventTypeSettlementReport, payload)); err != nil {
		return fmt.Errorf("failed to save report event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit settlement events: %w", err)
	}

	s.logger.Info("Settlement dispatched", "lots", len(report.Lots), "winners", len(report.Winners))
	return nil
}
