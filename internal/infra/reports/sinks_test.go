package reports

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staycal/internal/domain/reconciliation"
	"staycal/internal/infra/obs"
)

func sampleReport() *reconciliation.Report {
	return &reconciliation.Report{
		RunID:          "r1",
		PropertyID:     "chalet",
		GeneratedAt:    time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC),
		Window:         reconciliation.Window{Start: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), Months: 1},
		MonthsAnalyzed: 1,
		Discrepancies:  []reconciliation.Discrepancy{},
		BySeverity:     map[reconciliation.Severity]int{reconciliation.SeverityHigh: 2},
		HealthScore:    93.55,
	}
}

func TestFileSinkRoundTrip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, FileSink{Dir: dir}.Publish(context.Background(), sampleReport()))

	f, err := os.Open(filepath.Join(dir, "chalet", "r1.json"))
	require.NoError(t, err)
	defer f.Close()
	got, err := reconciliation.ReadJSON(f)
	require.NoError(t, err)
	assert.Equal(t, "chalet", got.PropertyID)
	assert.Equal(t, 93.55, got.HealthScore)

	txt, err := os.ReadFile(filepath.Join(dir, "chalet", "r1.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(txt), "Health score: 93.55")
}

func TestFileSinkRejectsNamesOutsideDir(t *testing.T) {
	root := t.TempDir()
	sink := FileSink{Dir: filepath.Join(root, "reports")}

	for _, runID := range []string{"../../escape", "../chalet"} {
		r := sampleReport()
		r.RunID = runID
		err := sink.Publish(context.Background(), r)
		assert.ErrorIs(t, err, ErrUnsafePath, runID)
	}
	r := sampleReport()
	r.PropertyID = ".."
	r.RunID = ".."
	assert.ErrorIs(t, sink.Publish(context.Background(), r), ErrUnsafePath)

	_, err := os.Stat(filepath.Join(root, "escape.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestLogSinkWarnsOnHighSeverity(t *testing.T) {
	var buf bytes.Buffer
	sink := LogSink{Logger: obs.NewLoggerTo(&buf, "prod")}
	require.NoError(t, sink.Publish(context.Background(), sampleReport()))
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), `"property_id":"chalet"`)
}

func TestMultiKeepsGoingAfterFailure(t *testing.T) {
	boom := errors.New("down")
	var called int
	m := Multi{
		reconciliation.SinkFunc(func(context.Context, *reconciliation.Report) error { return boom }),
		nil,
		reconciliation.SinkFunc(func(context.Context, *reconciliation.Report) error { called++; return nil }),
	}
	err := m.Publish(context.Background(), sampleReport())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, called)
}
