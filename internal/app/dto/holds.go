package dto

import (
	"time"

	"staycal/internal/domain/holds"
	"staycal/internal/domain/shared/daterange"
)

type Hold struct {
	HoldID     string    `json:"hold_id"`
	PropertyID string    `json:"property_id"`
	CheckIn    string    `json:"check_in"`
	CheckOut   string    `json:"check_out"`
	Nights     int       `json:"nights"`
	Status     string    `json:"status"`
	At         time.Time `json:"at"`
}

func MapHold(h *holds.Hold, status string) Hold {
	return Hold{
		HoldID:     h.ID,
		PropertyID: h.PropertyID,
		CheckIn:    daterange.FormatDate(h.Range.CheckIn),
		CheckOut:   daterange.FormatDate(h.Range.CheckOut),
		Nights:     h.Range.Nights(),
		Status:     status,
		At:         h.At,
	}
}
