package game

import (
	"slices"
	"time"
)

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusInRound   Status = "in_round"
	StatusRoundOver Status = "round_over"
)

type Settings struct {
	DeckCount    int  `json:"deckCount"`
	ShuffleAt    int  `json:"shuffleAt"`
	AutoContinue bool `json:"autoContinue"`
}

// Hand is one set of cards in play. A seat normally owns one hand and two
// after a split; SeatID is the join/leave unit.
type Hand struct {
	ID        string `json:"id"`
	SeatID    string `json:"seatId"`
	Name      string `json:"name"`
	TokenHash string `json:"tokenHash"`
	AccountID string `json:"accountId,omitempty"`
	Cards     []Card `json:"cards"`
	Value     int    `json:"value"`
	Busted    bool   `json:"busted"`
	Stood     bool   `json:"stood"`
	Doubled   bool   `json:"doubled"`
	Blackjack bool   `json:"blackjack"`
	Split     bool   `json:"split"`
	Bet       int64  `json:"bet"`
	Insurance int64  `json:"insurance"`
	IsHost    bool   `json:"isHost,omitempty"`
}

func (h *Hand) finished() bool {
	return h.Busted || h.Stood
}

type Dealer struct {
	Cards []Card `json:"cards"`
	Value int    `json:"value"`
}

type Payout struct {
	HandID    string `json:"handId"`
	SeatID    string `json:"seatId"`
	AccountID string `json:"accountId,omitempty"`
	Name      string `json:"name"`
	Result    string `json:"result"`
	Delta     int64  `json:"delta"`
}

// Game is the aggregate stored per room. Transitions never mutate their
// input; they return the same pointer when an action is ignored.
type Game struct {
	ID                string               `json:"id"`
	Players           []Hand               `json:"players"`
	Dealer            Dealer               `json:"dealer"`
	Status            Status               `json:"status"`
	TurnPlayerID      string               `json:"turnPlayerId"`
	TurnExpiresAt     *time.Time           `json:"turnExpiresAt"`
	Settings          Settings             `json:"settings"`
	Shoe              []Card               `json:"shoe"`
	LastSeen          map[string]time.Time `json:"lastSeen"`
	IntermissionUntil *time.Time           `json:"intermissionUntil"`
	Message           string               `json:"message,omitempty"`
	UpdatedAt         time.Time            `json:"updatedAt"`

	Round           int      `json:"round"`
	SettledRound    int      `json:"settledRound"`
	DealerBlackjack bool     `json:"dealerBlackjack"`
	Payouts         []Payout `json:"payouts,omitempty"`
}

func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	c := *g
	c.Players = make([]Hand, len(g.Players))
	for i, h := range g.Players {
		h.Cards = slices.Clone(h.Cards)
		c.Players[i] = h
	}
	c.Dealer.Cards = slices.Clone(g.Dealer.Cards)
	c.Shoe = slices.Clone(g.Shoe)
	c.LastSeen = make(map[string]time.Time, len(g.LastSeen))
	for k, v := range g.LastSeen {
		c.LastSeen[k] = v
	}
	c.Payouts = slices.Clone(g.Payouts)
	c.TurnExpiresAt = copyTime(g.TurnExpiresAt)
	c.IntermissionUntil = copyTime(g.IntermissionUntil)
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func (g *Game) handIndex(id string) int {
	if id == "" {
		return -1
	}
	for i := range g.Players {
		if g.Players[i].ID == id {
			return i
		}
	}
	return -1
}

// HandByID returns the hand with id or nil.
func (g *Game) HandByID(id string) *Hand {
	if idx := g.handIndex(id); idx >= 0 {
		return &g.Players[idx]
	}
	return nil
}

// SeatOf returns the first hand owned by tokenHash, or nil.
func (g *Game) SeatOf(tokenHash string) *Hand {
	if tokenHash == "" {
		return nil
	}
	for i := range g.Players {
		if g.Players[i].TokenHash == tokenHash {
			return &g.Players[i]
		}
	}
	return nil
}

// ActingHand picks the hand a seat's action applies to: the hand holding the
// turn when it belongs to the seat, else the seat's first hand.
func (g *Game) ActingHand(tokenHash string) *Hand {
	if tokenHash == "" {
		return nil
	}
	if h := g.HandByID(g.TurnPlayerID); h != nil && h.TokenHash == tokenHash {
		return h
	}
	return g.SeatOf(tokenHash)
}

// Seats returns the first hand of each seat in seat order.
func (g *Game) Seats() []Hand {
	seen := make(map[string]bool, len(g.Players))
	seats := make([]Hand, 0, len(g.Players))
	for _, h := range g.Players {
		if seen[h.SeatID] {
			continue
		}
		seen[h.SeatID] = true
		seats = append(seats, h)
	}
	return seats
}

func (g *Game) Host() *Hand {
	for i := range g.Players {
		if g.Players[i].IsHost {
			return &g.Players[i]
		}
	}
	return nil
}

// NeedsSettlement is true once per resolved round until the caller records
// SettledRound.
func (g *Game) NeedsSettlement() bool {
	return g.Status == StatusRoundOver && g.Round > g.SettledRound
}
