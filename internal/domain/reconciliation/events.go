package reconciliation

import "time"

type AuditCompleted struct {
	PropertyID     string           `json:"property_id"`
	RunID          string           `json:"run_id,omitempty"`
	MonthsAnalyzed int              `json:"months_analyzed"`
	Discrepancies  int              `json:"discrepancies"`
	BySeverity     map[Severity]int `json:"by_severity"`
	HealthScore    float64          `json:"health_score"`
	At             time.Time        `json:"at"`
}

func (e AuditCompleted) EventName() string     { return "audit.completed" }
func (e AuditCompleted) AggregateID() string   { return e.PropertyID }
func (e AuditCompleted) OccurredAt() time.Time { return e.At }

func (r *Report) Completed() AuditCompleted {
	return AuditCompleted{
		PropertyID:     r.PropertyID,
		RunID:          r.RunID,
		MonthsAnalyzed: r.MonthsAnalyzed,
		Discrepancies:  len(r.Discrepancies),
		BySeverity:     r.BySeverity,
		HealthScore:    r.HealthScore,
		At:             r.GeneratedAt,
	}
}

type PriceCalendarCorrected struct {
	PropertyID string    `json:"property_id"`
	Applied    int       `json:"applied"`
	Stale      int       `json:"stale"`
	Conflicted int       `json:"conflicted"`
	Failed     int       `json:"failed"`
	At         time.Time `json:"at"`
}

func (e PriceCalendarCorrected) EventName() string     { return "calendar.corrected" }
func (e PriceCalendarCorrected) AggregateID() string   { return e.PropertyID }
func (e PriceCalendarCorrected) OccurredAt() time.Time { return e.At }
