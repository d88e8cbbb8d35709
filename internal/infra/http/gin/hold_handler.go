package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"staycal/internal/app/commands"
	"staycal/internal/app/dto"
	holdsapp "staycal/internal/app/handlers/holds"
	"staycal/internal/domain/shared/daterange"
)

type HoldHandler struct {
	Commands commands.Bus
}

type holdRequest struct {
	HoldID   string `json:"hold_id"`
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
}

func (h HoldHandler) Place(c *gin.Context) {
	req, dr, ok := bindHold(c)
	if !ok {
		return
	}
	cmd := holdsapp.PlaceHoldCommand{
		PropertyID:      c.Param("id"),
		HoldID:          req.HoldID,
		CheckIn:         dr.CheckIn,
		CheckOut:        dr.CheckOut,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[holdsapp.PlaceHoldCommand, *dto.Hold](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h HoldHandler) Release(c *gin.Context) {
	_, dr, ok := bindHold(c)
	if !ok {
		return
	}
	cmd := holdsapp.ReleaseHoldCommand{PropertyID: c.Param("id"), HoldID: c.Param("hold"), CheckIn: dr.CheckIn, CheckOut: dr.CheckOut}
	result, err := commands.Dispatch[holdsapp.ReleaseHoldCommand, *dto.Hold](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HoldHandler) Confirm(c *gin.Context) {
	_, dr, ok := bindHold(c)
	if !ok {
		return
	}
	cmd := holdsapp.ConfirmHoldCommand{PropertyID: c.Param("id"), HoldID: c.Param("hold"), CheckIn: dr.CheckIn, CheckOut: dr.CheckOut}
	result, err := commands.Dispatch[holdsapp.ConfirmHoldCommand, *dto.Hold](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func bindHold(c *gin.Context) (holdRequest, daterange.DateRange, bool) {
	var req holdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return req, daterange.DateRange{}, false
	}
	dr, err := daterange.Parse(req.CheckIn, req.CheckOut)
	if err != nil {
		writeError(c, err)
		return req, daterange.DateRange{}, false
	}
	return req, dr, true
}

var _ HoldHTTP = HoldHandler{}
