package repo

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"blackjack-service/internal/model"
	"blackjack-service/internal/service/game"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Room stores hold whole games keyed by room id. Get returns (nil, nil) for
// an unknown room. None of them serialize writers; callers hold a Locker.

type MemoryRoomStore struct {
	mu    sync.RWMutex
	rooms map[string]*game.Game
}

func NewMemoryRoomStore() *MemoryRoomStore {
	return &MemoryRoomStore{rooms: make(map[string]*game.Game)}
}

func (s *MemoryRoomStore) Get(_ context.Context, id string) (*game.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[id].Clone(), nil
}

func (s *MemoryRoomStore) Set(_ context.Context, g *game.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[g.ID] = g.Clone()
	return nil
}

func (s *MemoryRoomStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, id)
	return nil
}

func (s *MemoryRoomStore) IDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryRoomStore) Kind() string { return "memory" }

// GormRoomStore keeps one model.Room row per room with the game as a JSON
// document.
type GormRoomStore struct {
	db *gorm.DB
}

func NewGormRoomStore(db *gorm.DB) *GormRoomStore {
	return &GormRoomStore{db: db}
}

func (s *GormRoomStore) Get(ctx context.Context, id string) (*game.Game, error) {
	var row model.Room
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var g game.Game
	if err := json.Unmarshal(row.State, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *GormRoomStore) Set(ctx context.Context, g *game.Game) error {
	state, err := json.Marshal(g)
	if err != nil {
		return err
	}
	row := model.Room{
		ID:        g.ID,
		State:     state,
		Status:    string(g.Status),
		Round:     g.Round,
		Players:   len(g.Players),
		UpdatedAt: time.Now(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (s *GormRoomStore) Remove(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Room{}).Error
}

func (s *GormRoomStore) IDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&model.Room{}).Order("id").Pluck("id", &ids).Error
	return ids, err
}

func (s *GormRoomStore) Kind() string { return "db" }

const (
	roomStateKeyPrefix = "room:state:"
	roomIndexKey       = "room:index"
	defaultRoomTTL     = 24 * time.Hour
)

func buildRoomStateKey(id string) string {
	return roomStateKeyPrefix + id
}

// RedisRoomStore keeps each game as a JSON string with a TTL plus a set of
// known room ids for the sweeper.
type RedisRoomStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisRoomStore(rdb *redis.Client, ttl time.Duration) *RedisRoomStore {
	if ttl <= 0 {
		ttl = defaultRoomTTL
	}
	return &RedisRoomStore{rdb: rdb, ttl: ttl}
}

func (s *RedisRoomStore) Get(ctx context.Context, id string) (*game.Game, error) {
	data, err := s.rdb.Get(ctx, buildRoomStateKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var g game.Game
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *RedisRoomStore) Set(ctx context.Context, g *game.Game) error {
	data, err := json.Marshal(g)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, buildRoomStateKey(g.ID), data, s.ttl)
		pipe.SAdd(ctx, roomIndexKey, g.ID)
		return nil
	})
	return err
}

func (s *RedisRoomStore) Remove(ctx context.Context, id string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, buildRoomStateKey(id))
		pipe.SRem(ctx, roomIndexKey, id)
		return nil
	})
	return err
}

// IDs lists indexed rooms, dropping ids whose state key has expired.
func (s *RedisRoomStore) IDs(ctx context.Context) ([]string, error) {
	members, err := s.rdb.SMembers(ctx, roomIndexKey).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(members)

	ids := make([]string, 0, len(members))
	for _, id := range members {
		n, err := s.rdb.Exists(ctx, buildRoomStateKey(id)).Result()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			s.rdb.SRem(ctx, roomIndexKey, id)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *RedisRoomStore) Kind() string { return "redis" }
