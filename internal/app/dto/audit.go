package dto

import "staycal/internal/domain/reconciliation"

type AuditResult struct {
	Report  *reconciliation.Report `json:"report"`
	Summary string                 `json:"summary"`
}

type CorrectionsResult struct {
	PropertyID string                           `json:"property_id"`
	Planned    int                              `json:"planned"`
	Outcome    *reconciliation.CorrectionReport `json:"outcome"`
}

type SweepEntry struct {
	PropertyID    string  `json:"property_id"`
	HealthScore   float64 `json:"health_score"`
	Discrepancies int     `json:"discrepancies"`
	High          int     `json:"high"`
}

type SweepResult struct {
	RunID    string            `json:"run_id"`
	Audited  []SweepEntry      `json:"audited"`
	Resumed  []string          `json:"resumed,omitempty"`
	Failed   map[string]string `json:"failed,omitempty"`
	Canceled bool              `json:"canceled,omitempty"`
}
