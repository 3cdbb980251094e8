package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo"

	"github.com/galabid/galabid/internal/adapters/cache"
	"github.com/galabid/galabid/internal/domain/lifecycle"
	"github.com/galabid/galabid/internal/domain/lots"
)

type lotRoutesHandler struct {
	lotService *lots.Service
	lifecycle  *lifecycle.Service
	boardCache *cache.BoardCache
	logger     *slog.Logger
}

func newLotRoutesHandler(outer *echo.Group, services Services, boardCache *cache.BoardCache, logger *slog.Logger) *lotRoutesHandler {
	h := &lotRoutesHandler{
		lotService: services.Lots,
		lifecycle:  services.Lifecycle,
		boardCache: boardCache,
		logger:     logger,
	}
	outer.GET("/lots", h.GetBoard)
	outer.GET("/lots/:id", h.GetLot)
	outer.GET("/groups/:groupID/lots", h.GetGroupLots)

	return h
}

type boardResponse struct {
	Auction auctionStateResponse `json:"auction"`
	Lots    []lotResponse        `json:"lots"`
}

// GetBoard returns every live lot plus the auction state, cached briefly in
// Redis since bidders poll it throughout the event.
func (h *lotRoutesHandler) GetBoard(c echo.Context) error {
	ctx := c.Request().Context()

	if h.boardCache != nil {
		if data, ok := h.boardCache.Get(ctx); ok {
			return c.JSONBlob(http.StatusOK, data)
		}
	}

	state, err := h.lifecycle.State(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{"Error"})
	}
	list, err := h.lotService.ListLots(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{"Error"})
	}

	resp := boardResponse{Auction: mapState(state), Lots: mapLotList(list)}

	if h.boardCache != nil {
		if data, err := json.Marshal(resp); err == nil {
			h.boardCache.Set(ctx, data)
		}
	}

	return c.JSON(http.StatusOK, resp)
}

type lotDetailResponse struct {
	Auction auctionStateResponse `json:"auction"`
	Lot     lotResponse          `json:"lot"`
}

// GetLot returns one lot plus the auction state
func (h *lotRoutesHandler) GetLot(c echo.Context) error {
	ctx := c.Request().Context()

	lotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{"Invalid lot id"})
	}

	lot, err := h.lotService.GetLot(ctx, lotID)
	if err != nil {
		if errors.Is(err, lots.ErrLotNotFound) {
			return c.JSON(http.StatusNotFound, errorResponse{"There is no lot with given id"})
		}
		return c.JSON(http.StatusInternalServerError, errorResponse{"Error"})
	}

	state, err := h.lifecycle.State(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{"Error"})
	}

	return c.JSON(http.StatusOK, lotDetailResponse{Auction: mapState(state), Lot: mapLot(lot)})
}

// GetGroupLots returns the lots for one group/table number
func (h *lotRoutesHandler) GetGroupLots(c echo.Context) error {
	ctx := c.Request().Context()

	groupID, err := strconv.Atoi(c.Param("groupID"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{"Invalid group id"})
	}

	state, err := h.lifecycle.State(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{"Error"})
	}
	list, err := h.lotService.ListLotsByGroup(ctx, groupID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{"Error"})
	}

	return c.JSON(http.StatusOK, boardResponse{Auction: mapState(state), Lots: mapLotList(list)})
}
