package memory

import (
	"context"
	"sync"

	"staycal/internal/domain/reconciliation"
)

// Checkpoint keeps finished properties per sweep run.
type Checkpoint struct {
	mu   sync.Mutex
	runs map[string]map[string]struct{}
}

func NewCheckpoint() *Checkpoint {
	return &Checkpoint{runs: make(map[string]map[string]struct{})}
}

func (c *Checkpoint) Done(ctx context.Context, runID, propertyID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.runs[runID][propertyID]
	return ok, nil
}

func (c *Checkpoint) MarkDone(ctx context.Context, runID, propertyID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runs[runID] == nil {
		c.runs[runID] = make(map[string]struct{})
	}
	c.runs[runID][propertyID] = struct{}{}
	return nil
}

var _ reconciliation.Checkpoint = (*Checkpoint)(nil)
