package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo"
	"github.com/shopspring/decimal"

	"github.com/galabid/galabid/internal/adapters/cache"
	"github.com/galabid/galabid/internal/domain/bidding"
	"github.com/galabid/galabid/internal/domain/lifecycle"
	"github.com/galabid/galabid/internal/domain/lots"
)

type bidRoutesHandler struct {
	bidService *bidding.Service
	lifecycle  *lifecycle.Service
	boardCache *cache.BoardCache
	logger     *slog.Logger
}

func newBidRoutesHandler(outer *echo.Group, services Services, boardCache *cache.BoardCache, logger *slog.Logger) *bidRoutesHandler {
	h := &bidRoutesHandler{
		bidService: services.Bids,
		lifecycle:  services.Lifecycle,
		boardCache: boardCache,
		logger:     logger,
	}
	outer.POST("/lots/:id/bids", h.PostBid)

	return h
}

type postBidInput struct {
	Amount decimal.Decimal `json:"amount"`
	Name   string          `json:"name"`
	Email  string          `json:"email"`
}

type bidAcceptedResponse struct {
	Status string      `json:"status"`
	Lot    lotResponse `json:"lot"`
}

type bidRejectedResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
	MinBid string `json:"min_bid"`
	MaxBid string `json:"max_bid"`
}

// PostBid submits a bid on a lot. A rejection always explains the allowed
// range so the bidder can act on it.
func (h *bidRoutesHandler) PostBid(c echo.Context) error {
	ctx := c.Request().Context()

	lotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{"Invalid lot id"})
	}

	var input postBidInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{"Input data is not formed correctly"})
	}
	if input.Name == "" || input.Email == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{"Name and email are required"})
	}
	if !input.Amount.IsPositive() {
		return c.JSON(http.StatusBadRequest, errorResponse{"Bid amount must be positive"})
	}

	cmd := bidding.PlaceBidCommand{
		LotID:       lotID,
		Amount:      input.Amount,
		BidderName:  input.Name,
		BidderEmail: input.Email,
	}

	accepted, err := h.bidService.PlaceBid(ctx, cmd)
	if err != nil {
		return h.mapBidError(c, err)
	}

	if h.boardCache != nil {
		h.boardCache.Invalidate(ctx)
	}

	return c.JSON(http.StatusOK, bidAcceptedResponse{
		Status: "accepted",
		Lot:    mapLot(accepted.Lot),
	})
}

func (h *bidRoutesHandler) mapBidError(c echo.Context, err error) error {
	var rangeErr *bidding.RangeError
	if errors.As(err, &rangeErr) {
		return c.JSON(http.StatusUnprocessableEntity, bidRejectedResponse{
			Status: "rejected",
			Reason: rangeErr.Error(),
			MinBid: rangeErr.MinBid.StringFixed(2),
			MaxBid: rangeErr.MaxBid.StringFixed(2),
		})
	}

	switch {
	case errors.Is(err, bidding.ErrAuctionNotActive):
		return c.JSON(http.StatusConflict, errorResponse{h.notActiveReason(c)})
	case errors.Is(err, bidding.ErrIneligibleBidder):
		return c.JSON(http.StatusForbidden, errorResponse{"This email address is not eligible to bid"})
	case errors.Is(err, lots.ErrLotNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{"There is no lot with given id"})
	}

	h.logger.Error("Bid submission failed", "error", err)
	return c.JSON(http.StatusInternalServerError, errorResponse{"Error"})
}

// notActiveReason distinguishes paused from ended so the bidder is told
// explicitly rather than seeing a silent failure.
func (h *bidRoutesHandler) notActiveReason(c echo.Context) string {
	state, err := h.lifecycle.State(c.Request().Context())
	if err == nil && state.Phase == lifecycle.PhaseEnded {
		return "The auction has ended"
	}
	return "Bidding is paused; please try again shortly"
}
