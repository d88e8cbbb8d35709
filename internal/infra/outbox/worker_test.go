package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	mu     sync.Mutex
	queue  []*EventDocument
	sent   []string
	failed map[string]string
}

func (q *fakeQueue) Claim(ctx context.Context, workerID string) (*EventDocument, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.queue) == 0 {
		return nil, nil
	}
	doc := q.queue[0]
	q.queue = q.queue[1:]
	return doc, nil
}

func (q *fakeQueue) MarkSent(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sent = append(q.sent, id)
	return nil
}

func (q *fakeQueue) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failed == nil {
		q.failed = map[string]string{}
	}
	q.failed[id] = errMsg
	return nil
}

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type fakeProducer struct {
	out []published
	err error
}

func (p *fakeProducer) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	if p.err != nil {
		return p.err
	}
	p.out = append(p.out, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func TestWorkerRelaysAsCloudEvents(t *testing.T) {
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	q := &fakeQueue{queue: []*EventDocument{
		{ID: "e1", Name: "hold.placed", Aggregate: "chalet", Payload: []byte(`{"hold_id":"h1"}`), OccurredAt: at},
		{ID: "e2", Name: "audit.completed", Aggregate: "chalet", Payload: []byte(`{"run_id":"r1"}`), OccurredAt: at},
	}}
	p := &fakeProducer{}
	w := &Worker{Queue: q, Producer: p, TopicPrefix: "stage."}

	require.NoError(t, w.drain(context.Background()))

	require.Len(t, p.out, 2)
	assert.Equal(t, "stage.hold.events.v1", p.out[0].topic)
	assert.Equal(t, "stage.audit.events.v1", p.out[1].topic)
	assert.Equal(t, "chalet", p.out[0].key)
	assert.Equal(t, "application/cloudevents+json", p.out[0].headers["content-type"])

	var evt map[string]any
	require.NoError(t, json.Unmarshal(p.out[0].payload, &evt))
	assert.Equal(t, "hold.placed.v1", evt["type"])
	assert.Equal(t, "app://staycal", evt["source"])
	assert.Equal(t, "e1", evt["id"])
	assert.Equal(t, map[string]any{"hold_id": "h1"}, evt["data"])
	assert.Equal(t, []string{"e1", "e2"}, q.sent)
}

func TestWorkerReschedulesFailures(t *testing.T) {
	q := &fakeQueue{queue: []*EventDocument{
		{ID: "bad", Name: "hold.placed", Payload: []byte(`not json`)},
		{ID: "e2", Name: "hold.placed", Payload: []byte(`{}`)},
	}}
	p := &fakeProducer{err: errors.New("broker down")}
	w := &Worker{Queue: q, Producer: p, Backoff: []time.Duration{time.Second}}

	require.NoError(t, w.drain(context.Background()))

	assert.Empty(t, q.sent)
	assert.Contains(t, q.failed, "bad")
	assert.Equal(t, "broker down", q.failed["e2"])
}

func TestWorkerRequiresDependencies(t *testing.T) {
	err := (&Worker{}).Run(context.Background())
	assert.ErrorIs(t, err, ErrWorkerNotConfigured)
}
