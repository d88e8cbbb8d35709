package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	sarama.ConsumerGroupSession
	ctx    context.Context
	mu     sync.Mutex
	marked []int64
}

func (s *fakeSession) Context() context.Context { return s.ctx }

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

type scriptedHandler struct {
	failures map[int64]int
	handled  []int64
}

func (h *scriptedHandler) Handle(_ context.Context, msg *sarama.ConsumerMessage) error {
	h.handled = append(h.handled, msg.Offset)
	if h.failures[msg.Offset] > 0 {
		h.failures[msg.Offset]--
		return errors.New("transient")
	}
	return nil
}

func claimOf(offsets ...int64) *fakeClaim {
	c := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, len(offsets))}
	for _, o := range offsets {
		c.messages <- &sarama.ConsumerMessage{Topic: "audit.requests", Offset: o}
	}
	close(c.messages)
	return c
}

func TestConsumeClaimRetriesInPlace(t *testing.T) {
	handler := &scriptedHandler{failures: map[int64]int{1: 2}}
	h := consumerGroupHandler{handler: handler, backoff: []time.Duration{time.Millisecond}}
	sess := &fakeSession{ctx: context.Background()}

	require.NoError(t, h.ConsumeClaim(sess, claimOf(0, 1, 2)))

	assert.Equal(t, []int64{0, 1, 1, 1, 2}, handler.handled)
	assert.Equal(t, []int64{0, 1, 2}, sess.marked)
}

func TestConsumeClaimStopsWithoutMarkingWhenSessionEnds(t *testing.T) {
	handler := &scriptedHandler{failures: map[int64]int{1: 1 << 30}}
	h := consumerGroupHandler{handler: handler, backoff: []time.Duration{time.Millisecond}}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	sess := &fakeSession{ctx: ctx}

	require.NoError(t, h.ConsumeClaim(sess, claimOf(0, 1, 2)))

	assert.Equal(t, []int64{0}, sess.marked)
	assert.NotContains(t, handler.handled, int64(2))
}

func TestBackoffDelay(t *testing.T) {
	h := consumerGroupHandler{backoff: []time.Duration{time.Second, 5 * time.Second}}
	assert.Equal(t, time.Second, h.delay(0))
	assert.Equal(t, 5*time.Second, h.delay(1))
	assert.Equal(t, 5*time.Second, h.delay(9))
	assert.Equal(t, time.Second, consumerGroupHandler{}.delay(3))
}
