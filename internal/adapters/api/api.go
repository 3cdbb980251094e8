// Package api exposes the auction engine over HTTP for the bidder site and
// the admin console. Handlers stay thin: bind, validate, call the domain
// service, map errors to status codes.
package api

import (
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo"

	"github.com/galabid/galabid/internal/adapters/cache"
	"github.com/galabid/galabid/internal/domain/bidding"
	"github.com/galabid/galabid/internal/domain/lifecycle"
	"github.com/galabid/galabid/internal/domain/lots"
)

type errorResponse struct {
	Reason string `json:"reason"`
}

// auctionStateResponse rides along with every lot read so the UI can show
// paused/ended banners and the countdown without a second call.
type auctionStateResponse struct {
	Phase    string  `json:"phase"`
	Deadline *string `json:"deadline,omitempty"`
}

type lotResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	ImageURL      string `json:"image_url"`
	StartingPrice string `json:"starting_price"`
	CurrentBid    string `json:"current_bid"`
	LeaderName    string `json:"leader_name,omitempty"`
	HasLeader     bool   `json:"has_leader"`
	Tier          string `json:"tier"`
	GroupID       int    `json:"group_id"`
	Position      int    `json:"position"`
}

func mapState(state *lifecycle.State) auctionStateResponse {
	resp := auctionStateResponse{Phase: string(state.Phase)}
	if state.Deadline != nil {
		s := state.Deadline.Format(time.RFC3339)
		resp.Deadline = &s
	}
	return resp
}

func mapLot(lot *lots.Lot) lotResponse {
	return lotResponse{
		ID:            lot.ID.String(),
		Name:          lot.Name,
		Description:   lot.Description,
		ImageURL:      lot.ImageURL,
		StartingPrice: lot.StartingPrice.StringFixed(2),
		CurrentBid:    lot.CurrentBid.StringFixed(2),
		LeaderName:    lot.LeaderName,
		HasLeader:     lot.HasLeader(),
		Tier:          string(lot.Tier),
		GroupID:       lot.GroupID,
		Position:      lot.Position,
	}
}

func mapLotList(list []*lots.Lot) []lotResponse {
	out := make([]lotResponse, len(list))
	for i, lot := range list {
		out[i] = mapLot(lot)
	}
	return out
}

// Services bundles the domain dependencies the HTTP layer needs
type Services struct {
	Bids      *bidding.Service
	Lots      *lots.Service
	Lifecycle *lifecycle.Service
}

// SetupRoutes registers all handlers. The board cache is optional; pass nil
// when Redis is not configured.
func SetupRoutes(e *echo.Echo, services Services, boardCache *cache.BoardCache, logger *slog.Logger) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	apiGroup := e.Group("/api")
	newLotRoutesHandler(apiGroup, services, boardCache, logger)
	newBidRoutesHandler(apiGroup, services, boardCache, logger)
	newAdminRoutesHandler(apiGroup, services, boardCache, validate, logger)
}
