package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"staycal/internal/domain/holds"
)

// Locker grants all-or-nothing leases on a set of keys within one process.
type Locker struct {
	mu    sync.Mutex
	held  map[string]lockEntry
	clock func() time.Time
}

type lockEntry struct {
	token   string
	expires time.Time
}

func NewLocker() *Locker {
	return &Locker{held: make(map[string]lockEntry), clock: time.Now}
}

func (l *Locker) Acquire(ctx context.Context, keys []string, ttl time.Duration) (holds.Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock()
	for _, k := range keys {
		if e, ok := l.held[k]; ok && now.Before(e.expires) {
			return nil, holds.ErrLocked
		}
	}
	token := uuid.NewString()
	for _, k := range keys {
		l.held[k] = lockEntry{token: token, expires: now.Add(ttl)}
	}
	return &lease{locker: l, token: token, keys: keys}, nil
}

type lease struct {
	locker *Locker
	token  string
	keys   []string
}

func (ls *lease) Release(context.Context) error {
	ls.locker.mu.Lock()
	defer ls.locker.mu.Unlock()
	for _, k := range ls.keys {
		if e, ok := ls.locker.held[k]; ok && e.token == ls.token {
			delete(ls.locker.held, k)
		}
	}
	return nil
}

var _ holds.Locker = (*Locker)(nil)
