package ginserver

import (
	"context"
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"staycal/internal/domain/availability"
	"staycal/internal/domain/calendar"
	"staycal/internal/domain/holds"
	"staycal/internal/domain/pricing"
	"staycal/internal/domain/property"
	"staycal/internal/domain/reconciliation"
	"staycal/internal/domain/shared/daterange"
)

func statusFor(err error) int {
	var (
		cfgErr     *pricing.ConfigurationError
		incomplete *availability.IncompleteDataError
	)
	switch {
	case errors.Is(err, daterange.ErrInvalidRange),
		errors.Is(err, daterange.ErrInvalidDate),
		errors.Is(err, daterange.ErrTooLong),
		errors.Is(err, pricing.ErrInvalidGuests),
		errors.Is(err, calendar.ErrInvalidKey),
		errors.Is(err, property.ErrIDRequired),
		errors.Is(err, property.ErrInvalidPolicy),
		errors.Is(err, holds.ErrHoldIDRequired),
		errors.Is(err, reconciliation.ErrEmptyWindow),
		errors.Is(err, reconciliation.ErrPropertyRequired),
		errors.Is(err, reconciliation.ErrInvalidRunID),
		errors.As(err, &cfgErr):
		return http.StatusBadRequest
	case errors.Is(err, property.ErrNotFound),
		errors.Is(err, availability.ErrPropertyNotFound),
		errors.Is(err, availability.ErrCalendarNotFound),
		errors.Is(err, holds.ErrNotHeld):
		return http.StatusNotFound
	case errors.Is(err, calendar.ErrWriteConflict),
		errors.Is(err, holds.ErrLocked):
		return http.StatusConflict
	case errors.As(err, &incomplete):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps domain errors to status codes. Internal errors are not echoed.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	body := gin.H{"error": err.Error()}
	var conflict *holds.ConflictError
	if errors.As(err, &conflict) {
		dates := make([]string, 0, len(conflict.Dates))
		for _, d := range conflict.Dates {
			dates = append(dates, daterange.FormatDate(d))
		}
		body["dates"] = dates
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
