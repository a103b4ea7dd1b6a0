package game

import (
	"fmt"
	"strings"
	"time"
)

// CreateGame seats host as the room's only host.
func (e *Engine) CreateGame(id string, host Hand) *Game {
	now := e.now()
	host.IsHost = true
	host.Cards = []Card{}
	return &Game{
		ID:        id,
		Players:   []Hand{host},
		Status:    StatusWaiting,
		Settings:  e.rules.Defaults,
		Shoe:      []Card{},
		LastSeen:  map[string]time.Time{host.TokenHash: now},
		UpdatedAt: now,
	}
}

// Join adds a seat unless tokenHash already holds one. A seat joining during
// a round sits out until the next deal.
func (e *Engine) Join(g *Game, h Hand) *Game {
	if h.TokenHash == "" || g.SeatOf(h.TokenHash) != nil {
		return g
	}
	c := g.Clone()
	h.Cards = []Card{}
	h.IsHost = c.Host() == nil
	if c.Status == StatusInRound {
		h.Stood = true
	}
	c.Players = append(c.Players, h)
	c.LastSeen[h.TokenHash] = e.now()
	c.UpdatedAt = e.now()
	return c
}

// Leave removes every hand of seatID. If one of them held the turn, the turn
// passes on; if nobody is left to act the dealer resolves the round.
func (e *Engine) Leave(g *Game, seatID string) *Game {
	removed := func(h *Hand) bool { return h.SeatID == seatID }
	var leaving *Hand
	for i := range g.Players {
		if removed(&g.Players[i]) {
			leaving = &g.Players[i]
			break
		}
	}
	if leaving == nil {
		return g
	}

	c := g.Clone()
	next := ""
	turnLeaves := false
	if cur := c.HandByID(c.TurnPlayerID); cur != nil && removed(cur) {
		turnLeaves = true
		next = nextTurnSkipping(c.Players, c.TurnPlayerID, removed)
	}

	wasHost := false
	kept := make([]Hand, 0, len(c.Players))
	for _, h := range c.Players {
		if removed(&h) {
			wasHost = wasHost || h.IsHost
			continue
		}
		kept = append(kept, h)
	}
	c.Players = kept
	delete(c.LastSeen, leaving.TokenHash)
	c.UpdatedAt = e.now()

	if len(c.Players) == 0 {
		c.Status = StatusWaiting
		c.TurnPlayerID = ""
		c.TurnExpiresAt = nil
		return c
	}
	if wasHost {
		c.Players[0].IsHost = true
	}

	if c.Status == StatusInRound {
		switch {
		case turnLeaves && next != "":
			c.TurnPlayerID = next
			c.TurnExpiresAt = e.deadline(e.rules.TurnTimeout)
		case turnLeaves:
			e.finishRound(c)
		case NextTurn(c.Players, "") == "":
			e.finishRound(c)
		}
	}
	return c
}

// StartRound deals a new round. It is ignored while a round is in play or
// during the intermission after one.
func (e *Engine) StartRound(g *Game) *Game {
	if len(g.Players) == 0 || g.Status == StatusInRound {
		return g
	}
	if g.Status == StatusRoundOver && g.IntermissionUntil != nil && e.now().Before(*g.IntermissionUntil) {
		return g
	}

	c := g.Clone()
	c.Message = ""

	// collapse split hands back to one hand per seat, first seen wins
	seats := c.Seats()
	for i := range seats {
		h := &seats[i]
		h.Cards = make([]Card, 0, 3)
		h.Value = 0
		h.Busted = false
		h.Stood = false
		h.Doubled = false
		h.Blackjack = false
		h.Split = false
		h.Insurance = 0
	}
	c.Players = seats

	threshold := c.Settings.ShuffleAt * c.Settings.DeckCount
	needed := 2 * (len(c.Players) + 1)
	if len(c.Shoe) < threshold || len(c.Shoe) < needed {
		c.Shoe = NewShoe(c.Settings.DeckCount, e.shuffle)
		c.Message = fmt.Sprintf("Shuffled a fresh shoe (%d decks)", ClampDecks(c.Settings.DeckCount))
	}

	c.Dealer = Dealer{Cards: make([]Card, 0, 2)}
	for pass := 0; pass < 2; pass++ {
		for i := range c.Players {
			c.Players[i].Cards = append(c.Players[i].Cards, e.draw(c))
		}
		card := e.draw(c)
		card.Hidden = pass == 1
		c.Dealer.Cards = append(c.Dealer.Cards, card)
	}
	c.Dealer.Value = fullValue(c.Dealer.Cards)

	for i := range c.Players {
		h := &c.Players[i]
		h.Value = HandValue(h.Cards)
		if h.Value == 21 {
			h.Blackjack = true
			h.Stood = true
		}
	}

	c.Round++
	c.Status = StatusInRound
	c.IntermissionUntil = nil
	c.DealerBlackjack = false
	c.Payouts = nil
	c.UpdatedAt = e.now()

	if next := NextTurn(c.Players, ""); next != "" {
		c.TurnPlayerID = next
		c.TurnExpiresAt = e.deadline(e.rules.TurnTimeout)
	} else {
		e.finishRound(c)
	}
	return c
}

// NextTurn scans players after currentID (from the start when currentID is
// empty or unknown) and returns the first hand still able to act, or "" when
// the dealer should resolve.
func NextTurn(players []Hand, currentID string) string {
	return nextTurnSkipping(players, currentID, nil)
}

func nextTurnSkipping(players []Hand, currentID string, skip func(*Hand) bool) string {
	start := 0
	if currentID != "" {
		for i := range players {
			if players[i].ID == currentID {
				start = i + 1
				break
			}
		}
	}
	for i := start; i < len(players); i++ {
		h := &players[i]
		if h.finished() || (skip != nil && skip(h)) {
			continue
		}
		return h.ID
	}
	return ""
}

// turnHand returns the index of handID if it holds the turn and may act.
// Every player action goes through it; a miss means the action is ignored.
func turnHand(g *Game, handID string) int {
	if g.Status != StatusInRound || handID == "" || g.TurnPlayerID != handID {
		return -1
	}
	idx := g.handIndex(handID)
	if idx < 0 || g.Players[idx].finished() {
		return -1
	}
	return idx
}

func (e *Engine) Hit(g *Game, handID string) *Game {
	idx := turnHand(g, handID)
	if idx < 0 {
		return g
	}
	c := g.Clone()
	card := e.draw(c)
	h := &c.Players[idx]
	h.Cards = append(h.Cards, card)
	h.Value = HandValue(h.Cards)
	h.Busted = h.Value > 21
	c.UpdatedAt = e.now()
	if h.Busted {
		e.advance(c, handID)
	} else {
		c.TurnExpiresAt = e.deadline(e.rules.TurnTimeout)
	}
	return c
}

func (e *Engine) Stand(g *Game, handID string) *Game {
	idx := turnHand(g, handID)
	if idx < 0 {
		return g
	}
	c := g.Clone()
	c.Players[idx].Stood = true
	c.UpdatedAt = e.now()
	e.advance(c, handID)
	return c
}

// DoubleDown takes exactly one card on a two card, unsplit hand and stands.
func (e *Engine) DoubleDown(g *Game, handID string) *Game {
	idx := turnHand(g, handID)
	if idx < 0 {
		return g
	}
	h := g.Players[idx]
	if h.Doubled || h.Split || visibleCount(h.Cards) != 2 {
		return g
	}
	c := g.Clone()
	card := e.draw(c)
	ch := &c.Players[idx]
	ch.Cards = append(ch.Cards, card)
	ch.Value = HandValue(ch.Cards)
	ch.Doubled = true
	ch.Stood = true
	ch.Busted = ch.Value > 21
	c.UpdatedAt = e.now()
	e.advance(c, handID)
	return c
}

// Split turns a pair into two hands on the same seat, each topped up with a
// fresh card. Split hands cannot split again or double.
func (e *Engine) Split(g *Game, handID string) *Game {
	idx := turnHand(g, handID)
	if idx < 0 {
		return g
	}
	h := g.Players[idx]
	if h.Split || h.Doubled || len(h.Cards) != 2 || visibleCount(h.Cards) != 2 || h.Cards[0].Rank != h.Cards[1].Rank {
		return g
	}

	c := g.Clone()
	first := c.Players[idx]
	second := Hand{
		ID:        e.newID(),
		SeatID:    first.SeatID,
		Name:      first.Name,
		TokenHash: first.TokenHash,
		AccountID: first.AccountID,
		Bet:       first.Bet,
		Split:     true,
	}
	pair := first.Cards
	first.Cards = []Card{pair[0], e.draw(c)}
	second.Cards = []Card{pair[1], e.draw(c)}
	first.Split = true
	first.Value = HandValue(first.Cards)
	second.Value = HandValue(second.Cards)

	players := make([]Hand, 0, len(c.Players)+1)
	players = append(players, c.Players[:idx]...)
	players = append(players, first, second)
	players = append(players, c.Players[idx+1:]...)
	c.Players = players

	c.TurnPlayerID = first.ID
	c.TurnExpiresAt = e.deadline(e.rules.TurnTimeout)
	c.UpdatedAt = e.now()
	return c
}

// SetBet updates the wager of every hand on seatID between rounds.
func (e *Engine) SetBet(g *Game, seatID string, amount int64) *Game {
	if g.Status == StatusInRound || amount < 0 || amount > MaxBet {
		return g
	}
	changed := false
	for _, h := range g.Players {
		if h.SeatID == seatID && h.Bet != amount {
			changed = true
		}
	}
	if !changed {
		return g
	}
	c := g.Clone()
	for i := range c.Players {
		if c.Players[i].SeatID == seatID {
			c.Players[i].Bet = amount
		}
	}
	c.UpdatedAt = e.now()
	return c
}

// Insurance places a side bet, capped at half the main bet, while the dealer
// shows an ace.
func (e *Engine) Insurance(g *Game, handID string, amount int64) *Game {
	if g.Status != StatusInRound || amount < 0 || len(g.Dealer.Cards) == 0 || g.Dealer.Cards[0].Rank != Ace {
		return g
	}
	idx := g.handIndex(handID)
	if idx < 0 {
		return g
	}
	h := g.Players[idx]
	if h.Busted || h.Split || len(h.Cards) != 2 {
		return g
	}
	if limit := h.Bet / 2; amount > limit {
		amount = limit
	}
	if amount == h.Insurance {
		return g
	}
	c := g.Clone()
	c.Players[idx].Insurance = amount
	c.UpdatedAt = e.now()
	return c
}

// UpdateSettings applies host settings between rounds. Changing the deck
// count discards the shoe so the next deal reshuffles.
func (e *Engine) UpdateSettings(g *Game, s Settings) *Game {
	if g.Status == StatusInRound {
		return g
	}
	s = normalizeSettings(s)
	if s == g.Settings {
		return g
	}
	c := g.Clone()
	if s.DeckCount != c.Settings.DeckCount {
		c.Shoe = []Card{}
	}
	c.Settings = s
	c.UpdatedAt = e.now()
	return c
}

func (e *Engine) Heartbeat(g *Game, tokenHash string) *Game {
	if g.SeatOf(tokenHash) == nil {
		return g
	}
	c := g.Clone()
	c.LastSeen[tokenHash] = e.now()
	return c
}

// PurgeStale drops every seat whose last heartbeat is older than StaleAfter.
// Seats with no recorded heartbeat are left alone.
func (e *Engine) PurgeStale(g *Game) *Game {
	cutoff := e.now().Add(-e.rules.StaleAfter)
	out := g
	for _, seat := range g.Seats() {
		seen, ok := g.LastSeen[seat.TokenHash]
		if !ok || !seen.Before(cutoff) {
			continue
		}
		out = e.Leave(out, seat.SeatID)
	}
	return out
}

// Timeout is the scheduler tick for one room: purge stale seats, auto-stand
// an expired turn, and deal again after the intermission when the room has
// auto-continue on.
func (e *Engine) Timeout(g *Game) *Game {
	out := e.PurgeStale(g)
	if len(out.Players) == 0 {
		return out
	}
	now := e.now()
	if out.Status == StatusInRound && out.TurnPlayerID != "" && out.TurnExpiresAt != nil && !now.Before(*out.TurnExpiresAt) {
		out = e.Stand(out, out.TurnPlayerID)
	}
	if out.Status == StatusRoundOver && out.Settings.AutoContinue &&
		(out.IntermissionUntil == nil || !now.Before(*out.IntermissionUntil)) {
		out = e.StartRound(out)
	}
	return out
}

// advance hands the turn to the next hand after from, or resolves the round.
func (e *Engine) advance(c *Game, from string) {
	if next := NextTurn(c.Players, from); next != "" {
		c.TurnPlayerID = next
		c.TurnExpiresAt = e.deadline(e.rules.TurnTimeout)
		return
	}
	e.finishRound(c)
}

func (e *Engine) finishRound(c *Game) {
	c.DealerBlackjack = e.dealerFinish(c)
	c.Message = Summary(c.Dealer, c.Players, c.DealerBlackjack)
	c.Payouts = ComputePayouts(c.Dealer, c.Players, c.DealerBlackjack)
	c.Status = StatusRoundOver
	c.TurnPlayerID = ""
	c.TurnExpiresAt = nil
	c.IntermissionUntil = e.deadline(e.rules.Intermission)
	c.UpdatedAt = e.now()
}

// dealerFinish reveals the hole card and draws to 17, standing on every 17.
// A two card 21 stops immediately and is reported as a dealer blackjack.
func (e *Engine) dealerFinish(c *Game) bool {
	cards := make([]Card, len(c.Dealer.Cards))
	for i, card := range c.Dealer.Cards {
		card.Hidden = false
		cards[i] = card
	}
	value := HandValue(cards)
	if len(cards) == 2 && value == 21 {
		c.Dealer = Dealer{Cards: cards, Value: value}
		return true
	}
	for value < 17 {
		cards = append(cards, e.draw(c))
		value = HandValue(cards)
	}
	c.Dealer = Dealer{Cards: cards, Value: value}
	return false
}

func displayName(h Hand) string {
	if name := strings.TrimSpace(h.Name); name != "" {
		return name
	}
	return "Player"
}
