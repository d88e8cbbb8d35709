package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"staycal/internal/app/dto"
	"staycal/internal/app/handlers/stays"
	"staycal/internal/app/queries"
	"staycal/internal/domain/availability"
	"staycal/internal/domain/shared/daterange"
)

type StayHandler struct {
	Queries queries.Bus
}

type stayCheckRequest struct {
	PropertyID string `json:"property_id"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	Guests     int    `json:"guests"`
}

func (h StayHandler) Check(c *gin.Context) {
	var req stayCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	dr, err := daterange.Parse(req.CheckIn, req.CheckOut)
	if err != nil {
		writeError(c, err)
		return
	}
	if req.Guests == 0 {
		req.Guests = 1
	}
	query := stays.CheckStayQuery{PropertyID: req.PropertyID, CheckIn: dr.CheckIn, CheckOut: dr.CheckOut, Guests: req.Guests}
	result, err := queries.Ask[stays.CheckStayQuery, dto.StayCheck](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusOK
	if result.Availability == availability.StatusIncomplete {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, result)
}

var _ StayHTTP = StayHandler{}
