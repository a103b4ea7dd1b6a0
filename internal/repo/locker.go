package repo

import (
	"context"
	"sync"
	"time"

	"blackjack-service/pkg/utils/random"

	"github.com/redis/go-redis/v9"
)

// LocalLocker serializes work per room inside one process. Each room gets a
// one-slot channel that lives while anyone holds or waits on it.
type LocalLocker struct {
	mu    sync.Mutex
	rooms map[string]*roomLock
}

type roomLock struct {
	slot chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{rooms: make(map[string]*roomLock)}
}

func (l *LocalLocker) Lock(ctx context.Context, roomID string) (func(), error) {
	l.mu.Lock()
	rl, ok := l.rooms[roomID]
	if !ok {
		rl = &roomLock{slot: make(chan struct{}, 1)}
		l.rooms[roomID] = rl
	}
	rl.refs++
	l.mu.Unlock()

	select {
	case rl.slot <- struct{}{}:
	case <-ctx.Done():
		l.release(roomID, rl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-rl.slot
			l.release(roomID, rl)
		})
	}, nil
}

func (l *LocalLocker) release(roomID string, rl *roomLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rl.refs--
	if rl.refs == 0 {
		delete(l.rooms, roomID)
	}
}

const (
	roomLockKeyPrefix = "room:lock:"
	defaultLockTTL    = 10 * time.Second
	lockRetryInterval = 25 * time.Millisecond
)

// Deletes the key only if it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a lease lock shared by every instance using the same redis.
// The lease expires after ttl so a crashed holder cannot wedge a room.
type RedisLocker struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{rdb: rdb, ttl: ttl}
}

func (l *RedisLocker) Lock(ctx context.Context, roomID string) (func(), error) {
	key := roomLockKeyPrefix + roomID
	token := random.Code(16)

	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()
	for {
		gotLock, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if gotLock {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// the caller's ctx may already be done
			releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			unlockScript.Run(releaseCtx, l.rdb, []string{key}, token)
		})
	}, nil
}
