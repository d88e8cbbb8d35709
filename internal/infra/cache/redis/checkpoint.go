package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"staycal/internal/domain/reconciliation"
)

const defaultCheckpointTTL = 7 * 24 * time.Hour

// Checkpoint keeps one set of finished property ids per sweep run, so a sweep
// restarted with the same run id skips what is already published.
type Checkpoint struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewCheckpoint(client goredis.UniversalClient, ttl time.Duration) *Checkpoint {
	if ttl <= 0 {
		ttl = defaultCheckpointTTL
	}
	return &Checkpoint{client: client, prefix: "staycal:audit:run:", ttl: ttl}
}

func (c *Checkpoint) Done(ctx context.Context, runID, propertyID string) (bool, error) {
	return c.client.SIsMember(ctx, c.prefix+runID, propertyID).Result()
}

func (c *Checkpoint) MarkDone(ctx context.Context, runID, propertyID string) error {
	key := c.prefix + runID
	pipe := c.client.TxPipeline()
	pipe.SAdd(ctx, key, propertyID)
	pipe.Expire(ctx, key, c.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

var _ reconciliation.Checkpoint = (*Checkpoint)(nil)
