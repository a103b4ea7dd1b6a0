package game_test

import (
	"fmt"
	"testing"
	"time"

	"blackjack-service/internal/service/game"
)

var noShuffle game.Shuffler = func(int, func(i, j int)) {}

func card(r game.Rank) game.Card {
	return game.Card{Rank: r, Suit: game.Spades}
}

// stack builds a shoe that deals ranks in the given order.
func stack(ranks ...game.Rank) []game.Card {
	shoe := make([]game.Card, len(ranks))
	for i, r := range ranks {
		shoe[len(ranks)-1-i] = card(r)
	}
	return shoe
}

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newEngine(t *testing.T) (*game.Engine, *clock) {
	t.Helper()
	clk := &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	seq := 0
	e := game.NewEngine(game.DefaultRules(),
		game.WithClock(clk.Now),
		game.WithShuffler(noShuffle),
		game.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("gen-%d", seq)
		}),
	)
	return e, clk
}

func seat(id, name string) game.Hand {
	return game.Hand{ID: id, SeatID: id, Name: name, TokenHash: "t-" + id}
}

// table seats the given hands in order with a stacked shoe and no reshuffle.
func table(t *testing.T, e *game.Engine, shoe []game.Card, hands ...game.Hand) *game.Game {
	t.Helper()
	if len(hands) == 0 {
		t.Fatalf("table needs at least one hand")
	}
	g := e.CreateGame("room", hands[0])
	for _, h := range hands[1:] {
		g = e.Join(g, h)
	}
	g.Settings.ShuffleAt = 0
	g.Shoe = shoe
	return g
}
