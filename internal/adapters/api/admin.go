package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo"
	"github.com/shopspring/decimal"

	"github.com/galabid/galabid/internal/adapters/cache"
	"github.com/galabid/galabid/internal/domain/lifecycle"
	"github.com/galabid/galabid/internal/domain/lots"
	"github.com/galabid/galabid/internal/domain/settlement"
)

type adminRoutesHandler struct {
	lotService *lots.Service
	lifecycle  *lifecycle.Service
	boardCache *cache.BoardCache
	validate   *validator.Validate
	logger     *slog.Logger
}

func newAdminRoutesHandler(outer *echo.Group, services Services, boardCache *cache.BoardCache, v *validator.Validate, logger *slog.Logger) *adminRoutesHandler {
	h := &adminRoutesHandler{
		lotService: services.Lots,
		lifecycle:  services.Lifecycle,
		boardCache: boardCache,
		validate:   v,
		logger:     logger,
	}
	admin := outer.Group("/admin")
	admin.POST("/lots", h.PostLot)
	admin.PATCH("/lots/:id", h.PatchLot)
	admin.DELETE("/lots/:id", h.DeleteLot)
	admin.POST("/pause", h.Pause)
	admin.POST("/resume", h.Resume)
	admin.PUT("/countdown", h.PutCountdown)
	admin.POST("/end", h.EndAuction)
	admin.GET("/settlement", h.GetSettlement)
	admin.POST("/reset", h.Reset)

	return h
}

type lotInput struct {
	Name          string          `json:"name" validate:"required,max=200"`
	Description   string          `json:"description" validate:"max=2000"`
	ImageURL      string          `json:"image_url" validate:"omitempty,url"`
	StartingPrice decimal.Decimal `json:"starting_price"`
	Tier          string          `json:"tier" validate:"omitempty,oneof=A B C standard"`
	GroupID       int             `json:"group_id" validate:"gte=0"`
	Position      int             `json:"position" validate:"gte=0"`
}

// PostLot creates a new lot
func (h *adminRoutesHandler) PostLot(c echo.Context) error {
	ctx := c.Request().Context()

	var input lotInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{"Input data is not formed correctly"})
	}
	if err := h.validate.Struct(input); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{"Not enough values passed or incorrect input value passed"})
	}

	lot, err := h.lotService.CreateLot(ctx, lots.CreateLotCommand{
		Name:          input.Name,
		Description:   input.Description,
		ImageURL:      input.ImageURL,
		StartingPrice: input.StartingPrice,
		Tier:          lots.Tier(input.Tier),
		GroupID:       input.GroupID,
		Position:      input.Position,
	})
	if err != nil {
		return h.mapLotError(c, err)
	}

	h.invalidateBoard(c)
	return c.JSON(http.StatusCreated, mapLot(lot))
}

// PatchLot edits a lot. The starting price change only applies while the
// lot has no leader.
func (h *adminRoutesHandler) PatchLot(c echo.Context) error {
	ctx := c.Request().Context()

	lotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{"Invalid lot id"})
	}

	var input lotInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{"Input data is not formed correctly"})
	}
	if err := h.validate.Struct(input); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{"Not enough values passed or incorrect input value passed"})
	}

	lot, err := h.lotService.EditLot(ctx, lots.EditLotCommand{
		LotID:         lotID,
		Name:          input.Name,
		Description:   input.Description,
		ImageURL:      input.ImageURL,
		StartingPrice: input.StartingPrice,
		Tier:          lots.Tier(input.Tier),
		GroupID:       input.GroupID,
		Position:      input.Position,
	})
	if err != nil {
		return h.mapLotError(c, err)
	}

	h.invalidateBoard(c)
	return c.JSON(http.StatusOK, mapLot(lot))
}

// DeleteLot soft-deletes a lot
func (h *adminRoutesHandler) DeleteLot(c echo.Context) error {
	lotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{"Invalid lot id"})
	}

	if err := h.lotService.DeleteLot(c.Request().Context(), lotID); err != nil {
		return h.mapLotError(c, err)
	}

	h.invalidateBoard(c)
	return c.NoContent(http.StatusNoContent)
}

// Pause stops accepting new bids
func (h *adminRoutesHandler) Pause(c echo.Context) error {
	if err := h.lifecycle.Pause(c.Request().Context()); err != nil {
		return h.mapLifecycleError(c, err)
	}
	h.invalidateBoard(c)
	return c.NoContent(http.StatusNoContent)
}

// Resume re-opens bidding after a pause
func (h *adminRoutesHandler) Resume(c echo.Context) error {
	if err := h.lifecycle.Resume(c.Request().Context()); err != nil {
		return h.mapLifecycleError(c, err)
	}
	h.invalidateBoard(c)
	return c.NoContent(http.StatusNoContent)
}

type countdownInput struct {
	Minutes int `json:"minutes" validate:"gte=0,lte=1440"`
}

// PutCountdown sets or clears the advisory countdown deadline
func (h *adminRoutesHandler) PutCountdown(c echo.Context) error {
	var input countdownInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{"Input data is not formed correctly"})
	}
	if err := h.validate.Struct(input); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{"Minutes must be between 0 and 1440"})
	}

	state, err := h.lifecycle.SetCountdown(c.Request().Context(), input.Minutes)
	if err != nil {
		return h.mapLifecycleError(c, err)
	}

	h.invalidateBoard(c)
	return c.JSON(http.StatusOK, mapState(state))
}

type settlementResponse struct {
	GeneratedAt string               `json:"generated_at"`
	Lots        []settledLotResponse `json:"lots"`
	Winners     []winnerResponse     `json:"winners"`
}

type settledLotResponse struct {
	LotID          string `json:"lot_id"`
	LotName        string `json:"lot_name"`
	GroupID        int    `json:"group_id"`
	WinnerName     string `json:"winner_name"`
	WinnerEmail    string `json:"winner_email"`
	Amount         string `json:"amount"`
	RunnerUpName   string `json:"runner_up_name,omitempty"`
	RunnerUpEmail  string `json:"runner_up_email,omitempty"`
	RunnerUpAmount string `json:"runner_up_amount,omitempty"`
	RunnerUp       string `json:"runner_up"`
}

type winnerResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Total string `json:"total"`
	Lots  int    `json:"lots"`
}

// EndAuction ends the auction and returns the settlement report
func (h *adminRoutesHandler) EndAuction(c echo.Context) error {
	report, err := h.lifecycle.End(c.Request().Context())
	if err != nil {
		return h.mapLifecycleError(c, err)
	}

	h.invalidateBoard(c)
	return c.JSON(http.StatusOK, mapReport(report))
}

// GetSettlement recomputes and returns the settlement report. Available any
// time after the auction has ended, so a report lost to a settlement failure
// during the end transition can always be retrieved again.
func (h *adminRoutesHandler) GetSettlement(c echo.Context) error {
	report, err := h.lifecycle.Settlement(c.Request().Context())
	if err != nil {
		return h.mapLifecycleError(c, err)
	}

	return c.JSON(http.StatusOK, mapReport(report))
}

// Reset clears all bid history and restores every lot, returning the
// auction to Active. Destructive and irreversible.
func (h *adminRoutesHandler) Reset(c echo.Context) error {
	if err := h.lifecycle.Reset(c.Request().Context()); err != nil {
		h.logger.Error("Reset failed", "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{"Error"})
	}

	h.invalidateBoard(c)
	return c.NoContent(http.StatusNoContent)
}

func mapReport(report *settlement.Report) settlementResponse {
	resp := settlementResponse{GeneratedAt: report.GeneratedAt.Format(time.RFC3339)}
	for _, lot := range report.Lots {
		row := settledLotResponse{
			LotID:       lot.LotID.String(),
			LotName:     lot.LotName,
			GroupID:     lot.GroupID,
			WinnerName:  lot.Winner.Name,
			WinnerEmail: lot.Winner.Email,
			Amount:      lot.Amount.StringFixed(2),
			RunnerUp:    "none",
		}
		switch {
		case !lot.RunnerUpResolved:
			row.RunnerUp = "unknown"
		case lot.RunnerUp != nil:
			row.RunnerUp = "resolved"
			row.RunnerUpName = lot.RunnerUp.Name
			row.RunnerUpEmail = lot.RunnerUp.Email
			row.RunnerUpAmount = lot.RunnerUp.Amount.StringFixed(2)
		}
		resp.Lots = append(resp.Lots, row)
	}
	for _, winner := range report.Winners {
		resp.Winners = append(resp.Winners, winnerResponse{
			Name:  winner.Name,
			Email: winner.Email,
			Total: winner.Total.StringFixed(2),
			Lots:  len(winner.Lots),
		})
	}
	return resp
}

func (h *adminRoutesHandler) mapLotError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, lots.ErrLotNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{"There is no lot with given id"})
	case errors.Is(err, lots.ErrLotNameRequired),
		errors.Is(err, lots.ErrInvalidStartingPrice),
		errors.Is(err, lots.ErrInvalidTier):
		return c.JSON(http.StatusBadRequest, errorResponse{err.Error()})
	}
	h.logger.Error("Lot operation failed", "error", err)
	return c.JSON(http.StatusInternalServerError, errorResponse{"Error"})
}

func (h *adminRoutesHandler) mapLifecycleError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, lifecycle.ErrAuctionEnded):
		return c.JSON(http.StatusConflict, errorResponse{"The auction has ended"})
	case errors.Is(err, lifecycle.ErrAuctionNotEnded):
		return c.JSON(http.StatusConflict, errorResponse{"The auction has not ended yet"})
	case errors.Is(err, lifecycle.ErrAlreadyActive):
		return c.JSON(http.StatusConflict, errorResponse{"The auction is already active"})
	case errors.Is(err, lifecycle.ErrAlreadyPaused):
		return c.JSON(http.StatusConflict, errorResponse{"The auction is already paused"})
	}
	h.logger.Error("Lifecycle operation failed", "error", err)
	return c.JSON(http.StatusInternalServerError, errorResponse{"Error"})
}

func (h *adminRoutesHandler) invalidateBoard(c echo.Context) {
	if h.boardCache != nil {
		h.boardCache.Invalidate(c.Request().Context())
	}
}
