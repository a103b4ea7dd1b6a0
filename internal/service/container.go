package service

import (
	"context"
	"fmt"
	"time"

	"blackjack-service/internal/config"
	"blackjack-service/internal/repo"
	"blackjack-service/internal/service/game"
	"blackjack-service/internal/service/room"
	"blackjack-service/internal/service/wallet"
	"blackjack-service/internal/ws"
	pkgAuth "blackjack-service/pkg/auth"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	Rooms     *room.Service
	Wallet    *wallet.Service
	Hub       *ws.Hub
	Hasher    pkgAuth.Hasher
	StoreKind string
}

type roomStore interface {
	room.Store
	Kind() string
}

// NewContainer wires the services. db and rdb may be nil; the store backend
// and ledger then fall back to what is available or fail loudly.
func NewContainer(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*Container, error) {
	hasher, err := pkgAuth.NewHasher(cfg.Identity.Mode, cfg.Identity.Secret)
	if err != nil {
		return nil, err
	}

	store, err := newRoomStore(cfg.Store.Backend, db, rdb)
	if err != nil {
		return nil, err
	}

	var locker room.Locker = repo.NewLocalLocker()
	if rdb != nil {
		locker = repo.NewRedisLocker(rdb, 0)
	}

	var (
		ledger  room.Ledger
		wallets *wallet.Service
	)
	if db != nil {
		wallets = wallet.NewService(db, wallet.Config{
			StartingBalance: cfg.Wallet.StartingBalance,
			TopupAmount:     cfg.Wallet.TopupAmount,
			TopupInterval:   time.Duration(cfg.Wallet.TopupSeconds) * time.Second,
		})
		ledger = wallets
	}

	engine := game.NewEngine(rulesFromConfig(cfg.Game))
	rooms := room.NewService(store, ledger, locker, engine, room.Config{
		LockTimeout:  time.Duration(cfg.Game.LockTimeoutMs) * time.Millisecond,
		PollInterval: time.Duration(cfg.Game.PollIntervalMs) * time.Millisecond,
		SweepWorkers: cfg.Game.SweepWorkers,
	})
	hub := ws.NewHub()
	rooms.SetNotifier(hub)

	return &Container{
		Rooms:     rooms,
		Wallet:    wallets,
		Hub:       hub,
		Hasher:    hasher,
		StoreKind: store.Kind(),
	}, nil
}

func newRoomStore(backend string, db *gorm.DB, rdb *redis.Client) (roomStore, error) {
	switch backend {
	case "", "memory":
		return repo.NewMemoryRoomStore(), nil
	case "db":
		if db == nil {
			return nil, fmt.Errorf("store backend %q needs database.dsn", backend)
		}
		return repo.NewGormRoomStore(db), nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("store backend %q needs redis.addr", backend)
		}
		return repo.NewRedisRoomStore(rdb, 0), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

func rulesFromConfig(conf config.GameConfig) game.Rules {
	rules := game.DefaultRules()
	if conf.TurnSeconds > 0 {
		rules.TurnTimeout = time.Duration(conf.TurnSeconds) * time.Second
	}
	if conf.IntermissionSeconds > 0 {
		rules.Intermission = time.Duration(conf.IntermissionSeconds) * time.Second
	}
	if conf.StaleSeconds > 0 {
		rules.StaleAfter = time.Duration(conf.StaleSeconds) * time.Second
	}
	if conf.DeckCount > 0 {
		rules.Defaults.DeckCount = conf.DeckCount
	}
	if conf.ShuffleAt > 0 {
		rules.Defaults.ShuffleAt = conf.ShuffleAt
	}
	return rules
}

func (c *Container) Start(ctx context.Context) error {
	c.Rooms.StartSweeper(ctx)
	return nil
}
