package memory

import (
	"context"
	"sync"
)

// Inbox remembers consumed message ids for the lifetime of the process.
type Inbox struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewInbox() *Inbox {
	return &Inbox{seen: make(map[string]struct{})}
}

func (i *Inbox) Seen(ctx context.Context, id string) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, ok := i.seen[id]
	return ok, nil
}

func (i *Inbox) Mark(ctx context.Context, id string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.seen[id] = struct{}{}
	return nil
}
