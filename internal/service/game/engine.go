package game

import (
	"time"

	"github.com/google/uuid"
)

const (
	defaultTurnSeconds         = 15
	defaultIntermissionSeconds = 3
	defaultStaleSeconds        = 25
	defaultDeckCount           = 4
	defaultShuffleAt           = 15
	maxShuffleAt               = DeckSize - 1
)

type Rules struct {
	TurnTimeout  time.Duration
	Intermission time.Duration
	StaleAfter   time.Duration
	Defaults     Settings
}

func DefaultRules() Rules {
	return Rules{
		TurnTimeout:  defaultTurnSeconds * time.Second,
		Intermission: defaultIntermissionSeconds * time.Second,
		StaleAfter:   defaultStaleSeconds * time.Second,
		Defaults: Settings{
			DeckCount: defaultDeckCount,
			ShuffleAt: defaultShuffleAt,
		},
	}
}

// Engine applies round transitions. It holds no game state, only the rules,
// the clock and the sources of randomness, so one Engine serves every room.
type Engine struct {
	rules   Rules
	now     func() time.Time
	shuffle Shuffler
	newID   func() string
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithShuffler(s Shuffler) Option {
	return func(e *Engine) { e.shuffle = s }
}

func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

func NewEngine(rules Rules, opts ...Option) *Engine {
	e := &Engine{
		rules:   rules,
		now:     time.Now,
		shuffle: defaultShuffler,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.rules.Defaults = normalizeSettings(e.rules.Defaults)
	return e
}

func (e *Engine) Rules() Rules {
	return e.rules
}

func (e *Engine) NewID() string {
	return e.newID()
}

func normalizeSettings(s Settings) Settings {
	s.DeckCount = ClampDecks(s.DeckCount)
	if s.ShuffleAt < 0 {
		s.ShuffleAt = 0
	}
	if s.ShuffleAt > maxShuffleAt {
		s.ShuffleAt = maxShuffleAt
	}
	return s
}

func (e *Engine) deadline(d time.Duration) *time.Time {
	t := e.now().Add(d)
	return &t
}

// draw pops from g.Shoe, substituting a fresh shoe if it has run dry.
func (e *Engine) draw(g *Game) Card {
	card, rest, err := Draw(g.Shoe)
	if err != nil {
		g.Shoe = NewShoe(g.Settings.DeckCount, e.shuffle)
		g.Message = "Shoe ran out; a fresh shoe was brought in"
		card, rest, _ = Draw(g.Shoe)
	}
	g.Shoe = rest
	return card
}
