package ginserver

import (
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"staycal/internal/app/dto"
	calendarapp "staycal/internal/app/handlers/calendar"
	"staycal/internal/app/queries"
)

type CalendarHandler struct {
	Queries queries.Bus
	Now     func() time.Time
}

func (h CalendarHandler) Month(c *gin.Context) {
	month := c.Query("month")
	if month == "" {
		now := time.Now()
		if h.Now != nil {
			now = h.Now()
		}
		month = now.UTC().Format("2006-01")
	}
	query := calendarapp.GetMonthQuery{PropertyID: c.Param("id"), Month: month}
	result, err := queries.Ask[calendarapp.GetMonthQuery, dto.CalendarMonth](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ CalendarHTTP = CalendarHandler{}
