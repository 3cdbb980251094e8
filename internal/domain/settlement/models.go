package settlement

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bidder identifies a person in the report
type Bidder struct {
	Name  string
	Email string
}

// RunnerUp is the highest bid on a lot placed by someone other than its
// winner
type RunnerUp struct {
	Name   string
	Email  string
	Amount decimal.Decimal
}

// LotResult is the resolved outcome of one lot
type LotResult struct {
	LotID   uuid.UUID
	LotName string
	GroupID int
	Winner  Bidder
	Amount  decimal.Decimal

	// RunnerUp is nil when the lot had a single distinct bidder. When
	// RunnerUpResolved is false the history scan failed for this lot and
	// the runner-up is unknown rather than absent.
	RunnerUp         *RunnerUp
	RunnerUpResolved bool
}

// WinnerSummary aggregates one bidder's won lots and total owed
type WinnerSummary struct {
	Name  string
	Email string
	Lots  []LotResult
	Total decimal.Decimal
}

// Report is the settlement outcome. It is derived state: regenerating it
// from the same committed lots and history yields an identical report.
type Report struct {
	GeneratedAt time.Time
	Lots        []LotResult
	Winners     []WinnerSummary
}

// CSV renders the tabular report artifact handed to the administrator,
// one row per winning lot.
func (r *Report) CSV(baseURL string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"Winner Name", "Winner Email", "Lot", "Winning Bid", "Lot Link",
		"Table", "Runner-Up", "Runner-Up Email", "Runner-Up Bid",
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, lot := range r.Lots {
		table := "General"
		if lot.GroupID > 0 {
			table = fmt.Sprintf("%d", lot.GroupID)
		}

		runnerUpName, runnerUpEmail, runnerUpBid := "none", "", ""
		switch {
		case !lot.RunnerUpResolved:
			runnerUpName = "unknown"
		case lot.RunnerUp != nil:
			runnerUpName = lot.RunnerUp.Name
			runnerUpEmail = lot.RunnerUp.Email
			runnerUpBid = "$" + lot.RunnerUp.Amount.StringFixed(2)
		}

		row := []string{
			lot.Winner.Name,
			lot.Winner.Email,
			lot.LotName,
			"$" + lot.Amount.StringFixed(2),
			fmt.Sprintf("%s/lots/%s", baseURL, lot.LotID),
			table,
			runnerUpName,
			runnerUpEmail,
			runnerUpBid,
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
