package game

import "time"

type ClientHand struct {
	ID        string `json:"id"`
	SeatID    string `json:"seatId"`
	Name      string `json:"name"`
	Cards     []Card `json:"cards"`
	Value     int    `json:"value"`
	Busted    bool   `json:"busted"`
	Stood     bool   `json:"stood"`
	Doubled   bool   `json:"doubled"`
	Blackjack bool   `json:"blackjack"`
	Split     bool   `json:"split"`
	Bet       int64  `json:"bet"`
	Insurance int64  `json:"insurance"`
	IsHost    bool   `json:"isHost"`
}

type ClientPayout struct {
	HandID string `json:"handId"`
	Name   string `json:"name"`
	Result string `json:"result"`
	Delta  int64  `json:"delta"`
}

// ClientGameState is what one viewer is allowed to see of a Game.
type ClientGameState struct {
	ID                string         `json:"id"`
	Players           []ClientHand   `json:"players"`
	Dealer            Dealer         `json:"dealer"`
	Status            Status         `json:"status"`
	TurnPlayerID      *string        `json:"turnPlayerId"`
	TurnExpiresAt     *time.Time     `json:"turnExpiresAt"`
	IntermissionUntil *time.Time     `json:"intermissionUntil"`
	IsHost            bool           `json:"isHost"`
	Me                *ClientHand    `json:"me"`
	Message           string         `json:"message"`
	Settings          Settings       `json:"settings"`
	ShoeRemaining     int            `json:"shoeRemaining"`
	Round             int            `json:"round"`
	DealerBlackjack   bool           `json:"dealerBlackjack"`
	Payouts           []ClientPayout `json:"payouts"`
}

// ToClient projects g for the viewer identified by tokenHash. While a round
// is in play the dealer's hole card is blanked and left out of the total.
func ToClient(g *Game, tokenHash string) ClientGameState {
	dealer := Dealer{Cards: make([]Card, len(g.Dealer.Cards))}
	for i, c := range g.Dealer.Cards {
		if g.Status == StatusInRound && i == 1 {
			dealer.Cards[i] = Card{Hidden: true}
			continue
		}
		c.Hidden = false
		dealer.Cards[i] = c
	}
	dealer.Value = HandValue(dealer.Cards)

	out := ClientGameState{
		ID:                g.ID,
		Players:           make([]ClientHand, 0, len(g.Players)),
		Dealer:            dealer,
		Status:            g.Status,
		TurnExpiresAt:     copyTime(g.TurnExpiresAt),
		IntermissionUntil: copyTime(g.IntermissionUntil),
		Message:           g.Message,
		Settings:          g.Settings,
		ShoeRemaining:     len(g.Shoe),
		Round:             g.Round,
		DealerBlackjack:   g.DealerBlackjack,
		Payouts:           make([]ClientPayout, 0, len(g.Payouts)),
	}
	if g.TurnPlayerID != "" {
		turn := g.TurnPlayerID
		out.TurnPlayerID = &turn
	}
	for _, h := range g.Players {
		out.Players = append(out.Players, clientHand(h))
	}
	if me := g.ActingHand(tokenHash); me != nil {
		ch := clientHand(*me)
		out.Me = &ch
		if seat := g.SeatOf(tokenHash); seat != nil {
			out.IsHost = seat.IsHost
		}
	}
	for _, p := range g.Payouts {
		out.Payouts = append(out.Payouts, ClientPayout{
			HandID: p.HandID,
			Name:   p.Name,
			Result: p.Result,
			Delta:  p.Delta,
		})
	}
	return out
}

func clientHand(h Hand) ClientHand {
	cards := make([]Card, len(h.Cards))
	copy(cards, h.Cards)
	return ClientHand{
		ID:        h.ID,
		SeatID:    h.SeatID,
		Name:      h.Name,
		Cards:     cards,
		Value:     h.Value,
		Busted:    h.Busted,
		Stood:     h.Stood,
		Doubled:   h.Doubled,
		Blackjack: h.Blackjack,
		Split:     h.Split,
		Bet:       h.Bet,
		Insurance: h.Insurance,
		IsHost:    h.IsHost,
	}
}
