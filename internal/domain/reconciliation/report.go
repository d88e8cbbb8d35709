package reconciliation

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"staycal/internal/domain/shared/daterange"
)

// Discrepancy is one day on which the two calendar families disagree. A nil
// value means the family has no entry for the day.
type Discrepancy struct {
	Date               time.Time `json:"date"`
	PropertyID         string    `json:"propertyId"`
	AvailabilityValue  *bool     `json:"availabilityValue"`
	PriceCalendarValue *bool     `json:"priceCalendarValue"`
	HoldID             string    `json:"holdId,omitempty"`
	Severity           Severity  `json:"severity"`
	Kind               Kind      `json:"kind"`
	Description        string    `json:"description"`
}

type SkippedMonth struct {
	Month string `json:"month"`
	Error string `json:"error"`
}

// Report is the result of auditing one property over a window.
type Report struct {
	RunID          string           `json:"runId,omitempty"`
	PropertyID     string           `json:"propertyId"`
	GeneratedAt    time.Time        `json:"generatedAt"`
	Window         Window           `json:"window"`
	MonthsAnalyzed int              `json:"monthsAnalyzed"`
	Skipped        []SkippedMonth   `json:"skippedMonths,omitempty"`
	Discrepancies  []Discrepancy    `json:"discrepancies"`
	BySeverity     map[Severity]int `json:"bySeverity"`
	HealthScore    float64          `json:"healthScore"`
}

// HealthScore is a defect density normalised to 0..100, meant for ranking
// properties against each other.
func HealthScore(discrepancies, monthsAnalyzed int) float64 {
	if monthsAnalyzed <= 0 {
		return 0
	}
	score := 100 - float64(discrepancies)/float64(monthsAnalyzed*31)*100
	return math.Round(math.Max(0, score)*100) / 100
}

func (r *Report) finish() {
	sort.SliceStable(r.Discrepancies, func(i, j int) bool {
		return r.Discrepancies[i].Date.Before(r.Discrepancies[j].Date)
	})
	r.BySeverity = map[Severity]int{SeverityHigh: 0, SeverityMedium: 0, SeverityLow: 0}
	for _, d := range r.Discrepancies {
		r.BySeverity[d.Severity]++
	}
	if r.Discrepancies == nil {
		r.Discrepancies = []Discrepancy{}
	}
	r.HealthScore = HealthScore(len(r.Discrepancies), r.MonthsAnalyzed)
}

func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func ReadJSON(rd io.Reader) (*Report, error) {
	var r Report
	if err := json.NewDecoder(rd).Decode(&r); err != nil {
		return nil, fmt.Errorf("reconciliation: decode report: %w", err)
	}
	return &r, nil
}

// Summary renders the report for people.
const severityLegend = "  high: mismatch in the near future; medium: later mismatch or day missing from one family;\n" +
	"  low: mismatch on a date already past, which no new booking can reach\n"

func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Calendar audit for %s (%s, %d months from %s)\n",
		r.PropertyID, r.GeneratedAt.Format(time.RFC3339), r.Window.Months, r.Window.Start.Format("2006-01"))
	fmt.Fprintf(&b, "Health score: %.2f / 100\n", r.HealthScore)
	fmt.Fprintf(&b, "Months analysed: %d", r.MonthsAnalyzed)
	if len(r.Skipped) > 0 {
		fmt.Fprintf(&b, " (%d skipped)", len(r.Skipped))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Discrepancies: %d (high %d, medium %d, low %d)\n",
		len(r.Discrepancies), r.BySeverity[SeverityHigh], r.BySeverity[SeverityMedium], r.BySeverity[SeverityLow])
	if len(r.Discrepancies) > 0 {
		b.WriteString(severityLegend)
	}
	for _, d := range r.Discrepancies {
		fmt.Fprintf(&b, "  %s  %-6s  %s", daterange.FormatDate(d.Date), d.Severity, d.Description)
		if d.HoldID != "" {
			fmt.Fprintf(&b, " [hold %s]", d.HoldID)
		}
		b.WriteString("\n")
	}
	for _, s := range r.Skipped {
		fmt.Fprintf(&b, "  skipped %s: %s\n", s.Month, s.Error)
	}
	return b.String()
}

// ObjectName is the storage name of the report without extension:
// "<propertyId>/<runId>", or the generation time when the run has no id.
func (r *Report) ObjectName() string {
	run := r.RunID
	if run == "" {
		run = r.GeneratedAt.UTC().Format("20060102T150405Z")
	}
	return r.PropertyID + "/" + run
}
