package lots

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Lot represents a single auctionable item
type Lot struct {
	ID            uuid.UUID       `db:"id"`
	Name          string          `db:"name"`
	Description   string          `db:"description"`
	ImageURL      string          `db:"image_url"`
	StartingPrice decimal.Decimal `db:"starting_price"`
	CurrentBid    decimal.Decimal `db:"current_bid"`
	LeaderName    string          `db:"leader_name"`
	LeaderEmail   string          `db:"leader_email"`
	Tier          Tier            `db:"tier"`
	GroupID       int             `db:"group_id"`
	Position      int             `db:"position"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
	DeletedAt     *time.Time      `db:"deleted_at"`
}

// HasLeader reports whether any bid has been accepted on the lot
func (l *Lot) HasLeader() bool {
	return l.LeaderEmail != ""
}

// CreateLotCommand represents the command to create a new lot
type CreateLotCommand struct {
	Name          string
	Description   string
	ImageURL      string
	StartingPrice decimal.Decimal
	Tier          Tier
	GroupID       int
	Position      int
}

// EditLotCommand represents the command to edit an existing lot. The starting
// price change only takes effect while the lot has no leader.
type EditLotCommand struct {
	LotID         uuid.UUID
	Name          string
	Description   string
	ImageURL      string
	StartingPrice decimal.Decimal
	Tier          Tier
	GroupID       int
	Position      int
}
