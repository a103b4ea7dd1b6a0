package room

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"blackjack-service/internal/service/game"
	appErr "blackjack-service/pkg/errors"
	"blackjack-service/pkg/logger"
	"blackjack-service/pkg/utils/random"

	"go.uber.org/zap"
)

//go:generate mockgen -destination=mocks/ledger_mock.go -package=mocks blackjack-service/internal/service/room Ledger

// Store persists whole games by room id. Get returns (nil, nil) when the
// room does not exist.
type Store interface {
	Get(ctx context.Context, id string) (*game.Game, error)
	Set(ctx context.Context, g *game.Game) error
	Remove(ctx context.Context, id string) error
	IDs(ctx context.Context) ([]string, error)
}

type Ledger interface {
	ReadBalance(ctx context.Context, accountID string) (int64, error)
	ApplyDelta(ctx context.Context, accountID string, delta int64, memo string) error
}

// Locker hands out one holder per room at a time. The returned func
// releases the lock and is safe to call twice.
type Locker interface {
	Lock(ctx context.Context, roomID string) (func(), error)
}

type Notifier interface {
	RoomChanged(roomID string)
}

const (
	defaultLockTimeout  = 3 * time.Second
	defaultPollInterval = 2 * time.Second
	defaultSweepWorkers = 8
	roomIDLength        = 8
	maxCreateAttempts   = 5
	maxNameLength       = 32
)

type Config struct {
	LockTimeout  time.Duration
	PollInterval time.Duration
	SweepWorkers int
}

func defaultConfig() Config {
	return Config{
		LockTimeout:  defaultLockTimeout,
		PollInterval: defaultPollInterval,
		SweepWorkers: defaultSweepWorkers,
	}
}

// Player identifies the caller of an action. TokenHash is the pseudonymous
// seat owner; AccountID optionally links a ledger account.
type Player struct {
	TokenHash string
	Name      string
	AccountID string
}

type SeatBalance struct {
	SeatID  string `json:"seatId"`
	Name    string `json:"name"`
	Balance int64  `json:"balance"`
}

// Service runs every room action as lock, load, transition, save, settle.
type Service struct {
	store    Store
	ledger   Ledger
	locker   Locker
	engine   *game.Engine
	cfg      Config
	notifier Notifier

	startOnce sync.Once
}

func NewService(store Store, ledger Ledger, locker Locker, engine *game.Engine, cfg Config) *Service {
	def := defaultConfig()
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = def.LockTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.SweepWorkers <= 0 {
		cfg.SweepWorkers = def.SweepWorkers
	}
	return &Service{
		store:  store,
		ledger: ledger,
		locker: locker,
		engine: engine,
		cfg:    cfg,
	}
}

// SetNotifier must be called before Start.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", appErr.ErrNameRequired
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		name = string([]rune(name)[:maxNameLength])
	}
	return name, nil
}

func (s *Service) newHand(p Player, name string) game.Hand {
	id := s.engine.NewID()
	return game.Hand{
		ID:        id,
		SeatID:    id,
		Name:      name,
		TokenHash: p.TokenHash,
		AccountID: p.AccountID,
	}
}

// CreateRoom opens a room with p as host.
func (s *Service) CreateRoom(ctx context.Context, p Player) (*game.Game, error) {
	if p.TokenHash == "" {
		return nil, appErr.ErrTokenRequired
	}
	name, err := normalizeName(p.Name)
	if err != nil {
		return nil, err
	}

	var roomID string
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		candidate := random.Code(roomIDLength)
		existing, err := s.store.Get(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			roomID = candidate
			break
		}
	}
	if roomID == "" {
		return nil, appErr.ErrRoomBusy
	}

	g := s.engine.CreateGame(roomID, s.newHand(p, name))
	if err := s.store.Set(ctx, g); err != nil {
		return nil, err
	}
	logger.Log.Info("room created", zap.String("roomID", roomID))
	return g, nil
}

func (s *Service) Get(ctx context.Context, roomID string) (*game.Game, error) {
	g, err := s.store.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, appErr.ErrRoomNotFound
	}
	return g, nil
}

// EnsureJoined seats p unless its token already holds a seat.
func (s *Service) EnsureJoined(ctx context.Context, roomID string, p Player) (*game.Game, error) {
	if p.TokenHash == "" {
		return nil, appErr.ErrTokenRequired
	}
	name, err := normalizeName(p.Name)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, roomID, func(g *game.Game) (*game.Game, error) {
		if g.SeatOf(p.TokenHash) != nil {
			return g, nil
		}
		return s.engine.Join(g, s.newHand(p, name)), nil
	})
}

func (s *Service) Leave(ctx context.Context, roomID, tokenHash string) (*game.Game, error) {
	return s.mutate(ctx, roomID, func(g *game.Game) (*game.Game, error) {
		seat := g.SeatOf(tokenHash)
		if seat == nil {
			return g, nil
		}
		return s.engine.Leave(g, seat.SeatID), nil
	})
}

// Start deals a round. Only the host may start.
func (s *Service) Start(ctx context.Context, roomID, tokenHash string) (*game.Game, error) {
	return s.mutate(ctx, roomID, func(g *game.Game) (*game.Game, error) {
		seat := g.SeatOf(tokenHash)
		if seat == nil || !seat.IsHost {
			return g, nil
		}
		return s.engine.StartRound(g), nil
	})
}

func (s *Service) Hit(ctx context.Context, roomID, tokenHash string) (*game.Game, error) {
	return s.handAction(ctx, roomID, tokenHash, s.engine.Hit)
}

func (s *Service) Stand(ctx context.Context, roomID, tokenHash string) (*game.Game, error) {
	return s.handAction(ctx, roomID, tokenHash, s.engine.Stand)
}

func (s *Service) DoubleDown(ctx context.Context, roomID, tokenHash string) (*game.Game, error) {
	return s.handAction(ctx, roomID, tokenHash, s.engine.DoubleDown)
}

func (s *Service) Split(ctx context.Context, roomID, tokenHash string) (*game.Game, error) {
	return s.handAction(ctx, roomID, tokenHash, s.engine.Split)
}

func (s *Service) handAction(ctx context.Context, roomID, tokenHash string, apply func(*game.Game, string) *game.Game) (*game.Game, error) {
	return s.mutate(ctx, roomID, func(g *game.Game) (*game.Game, error) {
		h := g.ActingHand(tokenHash)
		if h == nil {
			return g, nil
		}
		return apply(g, h.ID), nil
	})
}

// SetBet sets the seat's wager for the next round. A seat linked to an
// account cannot bet more than its balance.
func (s *Service) SetBet(ctx context.Context, roomID, tokenHash string, amount int64) (*game.Game, error) {
	return s.mutate(ctx, roomID, func(g *game.Game) (*game.Game, error) {
		seat := g.SeatOf(tokenHash)
		if seat == nil {
			return g, nil
		}
		if seat.AccountID != "" && s.ledger != nil && amount > 0 {
			balance, err := s.ledger.ReadBalance(ctx, seat.AccountID)
			if err != nil {
				return nil, err
			}
			if amount > balance {
				return nil, appErr.ErrInsufficientBalance
			}
		}
		return s.engine.SetBet(g, seat.SeatID, amount), nil
	})
}

func (s *Service) Insurance(ctx context.Context, roomID, tokenHash string, amount int64) (*game.Game, error) {
	return s.mutate(ctx, roomID, func(g *game.Game) (*game.Game, error) {
		h := g.ActingHand(tokenHash)
		if h == nil {
			return g, nil
		}
		return s.engine.Insurance(g, h.ID, amount), nil
	})
}

// UpdateSettings is host only.
func (s *Service) UpdateSettings(ctx context.Context, roomID, tokenHash string, settings game.Settings) (*game.Game, error) {
	return s.mutate(ctx, roomID, func(g *game.Game) (*game.Game, error) {
		seat := g.SeatOf(tokenHash)
		if seat == nil || !seat.IsHost {
			return g, nil
		}
		return s.engine.UpdateSettings(g, settings), nil
	})
}

func (s *Service) Heartbeat(ctx context.Context, roomID, tokenHash string) (*game.Game, error) {
	return s.mutate(ctx, roomID, func(g *game.Game) (*game.Game, error) {
		return s.engine.Heartbeat(g, tokenHash), nil
	})
}

// ForceTimeout purges stale seats, auto-stands an expired turn and, with
// auto-continue, deals the next round.
func (s *Service) ForceTimeout(ctx context.Context, roomID string) (*game.Game, error) {
	return s.mutate(ctx, roomID, func(g *game.Game) (*game.Game, error) {
		return s.engine.Timeout(g), nil
	})
}

// Balances lists each seat with its linked account balance, 0 when unlinked.
func (s *Service) Balances(ctx context.Context, roomID string) ([]SeatBalance, error) {
	g, err := s.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	items := make([]SeatBalance, 0, len(g.Players))
	for _, seat := range g.Seats() {
		item := SeatBalance{SeatID: seat.SeatID, Name: seat.Name}
		if seat.AccountID != "" && s.ledger != nil {
			balance, err := s.ledger.ReadBalance(ctx, seat.AccountID)
			if err != nil {
				return nil, err
			}
			item.Balance = balance
		}
		items = append(items, item)
	}
	return items, nil
}

// mutate serializes one transition on roomID. An ignored action (the
// transition returns its input) skips the write. A room left without seats
// is removed.
func (s *Service) mutate(ctx context.Context, roomID string, transition func(*game.Game) (*game.Game, error)) (*game.Game, error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.cfg.LockTimeout)
	defer cancel()
	unlock, err := s.locker.Lock(lockCtx, roomID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, appErr.ErrRoomBusy
		}
		return nil, err
	}
	defer unlock()

	g, err := s.store.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, appErr.ErrRoomNotFound
	}

	next, err := transition(g)
	if err != nil {
		return nil, err
	}
	if next == g {
		return g, nil
	}

	if len(next.Players) == 0 {
		if err := s.store.Remove(ctx, roomID); err != nil {
			return nil, err
		}
		logger.Log.Info("room closed", zap.String("roomID", roomID))
		s.notify(roomID)
		return next, nil
	}

	settle := next.NeedsSettlement()
	if settle {
		next.SettledRound = next.Round
	}
	if err := s.store.Set(ctx, next); err != nil {
		return nil, err
	}
	if settle {
		s.settle(ctx, next)
	}
	s.notify(roomID)
	return next, nil
}

func (s *Service) notify(roomID string) {
	if s.notifier != nil {
		s.notifier.RoomChanged(roomID)
	}
}
