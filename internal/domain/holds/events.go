package holds

import "time"

type HoldPlaced struct {
	PropertyID string    `json:"property_id"`
	HoldID     string    `json:"hold_id"`
	CheckIn    time.Time `json:"check_in"`
	CheckOut   time.Time `json:"check_out"`
	At         time.Time `json:"at"`
}

func (e HoldPlaced) EventName() string     { return "hold.placed" }
func (e HoldPlaced) AggregateID() string   { return e.PropertyID }
func (e HoldPlaced) OccurredAt() time.Time { return e.At }

type HoldReleased struct {
	PropertyID string    `json:"property_id"`
	HoldID     string    `json:"hold_id"`
	CheckIn    time.Time `json:"check_in"`
	CheckOut   time.Time `json:"check_out"`
	At         time.Time `json:"at"`
}

func (e HoldReleased) EventName() string     { return "hold.released" }
func (e HoldReleased) AggregateID() string   { return e.PropertyID }
func (e HoldReleased) OccurredAt() time.Time { return e.At }

type HoldConfirmed struct {
	PropertyID string    `json:"property_id"`
	HoldID     string    `json:"hold_id"`
	CheckIn    time.Time `json:"check_in"`
	CheckOut   time.Time `json:"check_out"`
	At         time.Time `json:"at"`
}

func (e HoldConfirmed) EventName() string     { return "hold.confirmed" }
func (e HoldConfirmed) AggregateID() string   { return e.PropertyID }
func (e HoldConfirmed) OccurredAt() time.Time { return e.At }
