// Package notifications defines the JSON payloads carried by outbox events
// from the bid engine and settlement generator to the mailer worker.
package notifications

import "time"

// Monetary amounts travel as fixed-point strings ("55.00") so no float
// rounding can creep in between producer and mailer.

// BidConfirmed is sent to the new leader after an accepted bid
type BidConfirmed struct {
	Recipient  string `json:"recipient"`
	BidderName string `json:"bidder_name"`
	LotID      string `json:"lot_id"`
	LotName    string `json:"lot_name"`
	Amount     string `json:"amount"`
	Subject    string `json:"subject"`
}

// Outbid is sent to the displaced leader after an accepted bid
type Outbid struct {
	Recipient  string `json:"recipient"`
	BidderName string `json:"bidder_name"`
	LotID      string `json:"lot_id"`
	LotName    string `json:"lot_name"`
	Amount     string `json:"amount"`
	Subject    string `json:"subject"`
}

// WonLot is one line item in a winner's consolidated settlement mail
type WonLot struct {
	LotName string `json:"lot_name"`
	Amount  string `json:"amount"`
	GroupID int    `json:"group_id"`
}

// AuctionWon is the consolidated "you won" mail for one distinct winner
type AuctionWon struct {
	Recipient  string   `json:"recipient"`
	WinnerName string   `json:"winner_name"`
	Lots       []WonLot `json:"lots"`
	Total      string   `json:"total"`
}

// SettlementReport carries the full CSV artifact to the administrator
type SettlementReport struct {
	Recipient   string    `json:"recipient"`
	LotCount    int       `json:"lot_count"`
	CSV         []byte    `json:"csv"`
	GeneratedAt time.Time `json:"generated_at"`
}
