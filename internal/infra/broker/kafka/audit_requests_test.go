package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staycal/internal/app/commands"
	"staycal/internal/app/dto"
	auditapp "staycal/internal/app/handlers/audit"
	"staycal/internal/domain/property"
	"staycal/internal/infra/storage/memory"
)

func recordingBus(t *testing.T, result error) (*commands.InMemoryBus, *[]auditapp.RunAuditCommand) {
	t.Helper()
	var seen []auditapp.RunAuditCommand
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, auditapp.RunAuditCommand{}.Key(), commands.HandlerFunc[auditapp.RunAuditCommand, *dto.AuditResult](
		func(ctx context.Context, cmd auditapp.RunAuditCommand) (*dto.AuditResult, error) {
			seen = append(seen, cmd)
			if result != nil {
				return nil, result
			}
			return &dto.AuditResult{Summary: "ok"}, nil
		}))
	return bus, &seen
}

func TestAuditRequestDispatchesCommand(t *testing.T) {
	bus, seen := recordingBus(t, nil)
	h := &AuditRequestHandler{Commands: bus, Inbox: memory.NewInbox()}

	msg := &sarama.ConsumerMessage{Value: []byte(`{"property_id":"chalet","run_id":"r1","start":"2025-01","months":3}`)}
	require.NoError(t, h.Handle(context.Background(), msg))

	require.Len(t, *seen, 1)
	cmd := (*seen)[0]
	assert.Equal(t, "chalet", cmd.PropertyID)
	assert.Equal(t, "r1", cmd.RunID)
	assert.Equal(t, 3, cmd.Window.Months)
	assert.Equal(t, "2025-01", cmd.Window.Start.Format("2006-01"))
}

func TestAuditRequestUnwrapsCloudEventAndDedupes(t *testing.T) {
	bus, seen := recordingBus(t, nil)
	h := &AuditRequestHandler{Commands: bus, Inbox: memory.NewInbox()}

	msg := &sarama.ConsumerMessage{
		Key:   []byte("chalet"),
		Value: []byte(`{"specversion":"1.0","id":"evt-1","data":{}}`),
	}
	require.NoError(t, h.Handle(context.Background(), msg))
	require.NoError(t, h.Handle(context.Background(), msg))

	require.Len(t, *seen, 1)
	assert.Equal(t, "chalet", (*seen)[0].PropertyID)
	assert.Zero(t, (*seen)[0].Window.Months)
}

func TestAuditRequestDropsPermanentFailures(t *testing.T) {
	bus, seen := recordingBus(t, property.ErrNotFound)
	h := &AuditRequestHandler{Commands: bus}

	assert.NoError(t, h.Handle(context.Background(), &sarama.ConsumerMessage{Value: []byte(`garbage`)}))
	assert.NoError(t, h.Handle(context.Background(), &sarama.ConsumerMessage{Value: []byte(`{"property_id":"x","start":"June"}`)}))
	assert.NoError(t, h.Handle(context.Background(), &sarama.ConsumerMessage{Value: []byte(`{"property_id":"ghost"}`)}))
	assert.Len(t, *seen, 1)
}

// flakyBus fails the first n dispatches with err, then succeeds.
func flakyBus(t *testing.T, n int, err error) (*commands.InMemoryBus, *int) {
	t.Helper()
	calls := 0
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, auditapp.RunAuditCommand{}.Key(), commands.HandlerFunc[auditapp.RunAuditCommand, *dto.AuditResult](
		func(ctx context.Context, cmd auditapp.RunAuditCommand) (*dto.AuditResult, error) {
			calls++
			if calls <= n {
				return nil, err
			}
			return &dto.AuditResult{Summary: "ok"}, nil
		}))
	return bus, &calls
}

func TestAuditRequestRetriesTransientFailures(t *testing.T) {
	boom := errors.New("store unavailable")
	bus, calls := flakyBus(t, 1, boom)
	h := &AuditRequestHandler{Commands: bus, Inbox: memory.NewInbox()}
	msg := &sarama.ConsumerMessage{
		Headers: []*sarama.RecordHeader{{Key: []byte("ce-id"), Value: []byte("evt-7")}},
		Value:   []byte(`{"property_id":"chalet","run_id":"nightly"}`),
	}

	assert.ErrorIs(t, h.Handle(context.Background(), msg), boom)
	require.NoError(t, h.Handle(context.Background(), msg), "redelivery must dispatch again")
	assert.Equal(t, 2, *calls)

	require.NoError(t, h.Handle(context.Background(), msg))
	assert.Equal(t, 2, *calls, "a handled message is deduped")
}

func TestAuditRequestMarksRejectedMessages(t *testing.T) {
	bus, seen := recordingBus(t, property.ErrNotFound)
	in := memory.NewInbox()
	h := &AuditRequestHandler{Commands: bus, Inbox: in}
	msg := &sarama.ConsumerMessage{Value: []byte(`{"property_id":"ghost","run_id":"r9"}`)}

	require.NoError(t, h.Handle(context.Background(), msg))
	require.NoError(t, h.Handle(context.Background(), msg))
	assert.Len(t, *seen, 1)
	marked, _ := in.Seen(context.Background(), "r9:ghost")
	assert.True(t, marked)
}

func TestAuditRequestRejectsUnsafeRunID(t *testing.T) {
	bus, seen := recordingBus(t, nil)
	h := &AuditRequestHandler{Commands: bus}

	err := h.Handle(context.Background(), &sarama.ConsumerMessage{Value: []byte(`{"property_id":"chalet","run_id":"../../etc/cron.d/x"}`)})
	assert.NoError(t, err)
	assert.Empty(t, *seen)
}
