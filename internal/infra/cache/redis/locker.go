package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"staycal/internal/domain/holds"
)

// acquireScript sets every key to the token only if none of them exists.
var acquireScript = goredis.NewScript(`
for i = 1, #KEYS do
  if redis.call("EXISTS", KEYS[i]) == 1 then
    return 0
  end
end
for i = 1, #KEYS do
  redis.call("SET", KEYS[i], ARGV[1], "PX", ARGV[2])
end
return 1
`)

// releaseScript deletes only the keys still owned by the token.
var releaseScript = goredis.NewScript(`
local n = 0
for i = 1, #KEYS do
  if redis.call("GET", KEYS[i]) == ARGV[1] then
    n = n + redis.call("DEL", KEYS[i])
  end
end
return n
`)

// Locker serialises hold placement for the same nights across instances.
// Leases expire on their own, so a crashed holder blocks others for at most ttl.
// Keys of one acquisition should share a hash tag when running on a cluster.
type Locker struct {
	client goredis.UniversalClient
	prefix string
}

func NewLocker(client goredis.UniversalClient, prefix string) *Locker {
	if prefix == "" {
		prefix = "staycal:lock:"
	}
	return &Locker{client: client, prefix: prefix}
}

func (l *Locker) Acquire(ctx context.Context, keys []string, ttl time.Duration) (holds.Lease, error) {
	if ttl <= 0 {
		ttl = holds.DefaultLockTTL
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = l.prefix + k
	}
	token := uuid.NewString()
	ok, err := acquireScript.Run(ctx, l.client, full, token, ttl.Milliseconds()).Int()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lock: %w", err)
	}
	if ok != 1 {
		return nil, holds.ErrLocked
	}
	return &lease{client: l.client, keys: full, token: token}, nil
}

type lease struct {
	client goredis.UniversalClient
	keys   []string
	token  string
}

func (ls *lease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, ls.client, ls.keys, ls.token).Err(); err != nil {
		return fmt.Errorf("redis: release lock: %w", err)
	}
	return nil
}

var _ holds.Locker = (*Locker)(nil)
