// Package reports delivers finished audit reports to people and archives.
package reports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"staycal/internal/domain/reconciliation"
)

var ErrUnsafePath = errors.New("reports: object name escapes the report directory")

// FileSink writes "<dir>/<propertyId>/<runId>.json" and a ".txt" summary.
type FileSink struct {
	Dir string
}

func (s FileSink) Publish(ctx context.Context, report *reconciliation.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	base := filepath.Join(s.Dir, filepath.FromSlash(report.ObjectName()))
	rel, err := filepath.Rel(s.Dir, base)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %q", ErrUnsafePath, report.ObjectName())
	}
	if err := os.MkdirAll(filepath.Dir(base), 0o755); err != nil {
		return fmt.Errorf("reports: %w", err)
	}
	f, err := os.Create(base + ".json")
	if err != nil {
		return fmt.Errorf("reports: %w", err)
	}
	if err := report.WriteJSON(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("reports: write %s: %w", f.Name(), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("reports: %w", err)
	}
	if err := os.WriteFile(base+".txt", []byte(report.Summary()), 0o644); err != nil {
		return fmt.Errorf("reports: %w", err)
	}
	return nil
}

// LogSink emits one structured line per report; high severity findings are warnings.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Publish(ctx context.Context, report *reconciliation.Report) error {
	if s.Logger == nil {
		return nil
	}
	level := slog.LevelInfo
	if report.BySeverity[reconciliation.SeverityHigh] > 0 {
		level = slog.LevelWarn
	}
	s.Logger.Log(ctx, level, "audit report",
		"property_id", report.PropertyID,
		"run_id", report.RunID,
		"health_score", report.HealthScore,
		"discrepancies", len(report.Discrepancies),
		"high", report.BySeverity[reconciliation.SeverityHigh],
		"medium", report.BySeverity[reconciliation.SeverityMedium],
		"low", report.BySeverity[reconciliation.SeverityLow],
		"skipped_months", len(report.Skipped),
	)
	return nil
}

// Multi publishes to every sink, even after one fails.
type Multi []reconciliation.Sink

func (m Multi) Publish(ctx context.Context, report *reconciliation.Report) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Publish(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ reconciliation.Sink = FileSink{}
	_ reconciliation.Sink = LogSink{}
	_ reconciliation.Sink = Multi{}
)
