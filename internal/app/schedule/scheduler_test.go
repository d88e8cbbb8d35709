package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staycal/internal/app/commands"
	"staycal/internal/app/dto"
	auditapp "staycal/internal/app/handlers/audit"
	"staycal/internal/infra/obs"
)

func TestNightlyRunIDIsPerUTCDay(t *testing.T) {
	late := time.Date(2025, 6, 1, 23, 30, 0, 0, time.FixedZone("EEST", 3*3600))
	assert.Equal(t, "nightly-20250601", NightlyRunID(late))
}

func TestAuditSweepJobDispatchesNightlyRun(t *testing.T) {
	var got auditapp.SweepAuditsCommand
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, auditapp.SweepAuditsCommand{}.Key(), commands.HandlerFunc[auditapp.SweepAuditsCommand, *dto.SweepResult](
		func(ctx context.Context, cmd auditapp.SweepAuditsCommand) (*dto.SweepResult, error) {
			got = cmd
			return &dto.SweepResult{RunID: cmd.RunID, Failed: map[string]string{"b": "boom"}, Audited: []dto.SweepEntry{{PropertyID: "a"}}}, nil
		}))
	now := func() time.Time { return time.Date(2025, 6, 2, 3, 0, 0, 0, time.UTC) }

	err := AuditSweepJob(bus, now)(context.Background())
	assert.Equal(t, "nightly-20250602", got.RunID)
	assert.ErrorContains(t, err, "1 of 2 properties failed")
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := New(obs.Discard())
	err := s.Add(context.Background(), "every tuesday", "audit", func(context.Context) error { return nil })
	assert.Error(t, err)
}

func TestSchedulerRunStopsWithContext(t *testing.T) {
	s := New(obs.Discard())
	require.NoError(t, s.Add(context.Background(), "@every 1h", "noop", func(context.Context) error { return nil }))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, errors.Is(s.Run(ctx), context.Canceled))
}
