package game

import (
	"errors"
	"math/rand"
	"strconv"
)

type Suit string

type Rank string

const (
	Spades   Suit = "♠"
	Hearts   Suit = "♥"
	Diamonds Suit = "♦"
	Clubs    Suit = "♣"
)

const (
	Ace   Rank = "A"
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "10"
	Jack  Rank = "J"
	Queen Rank = "Q"
	King  Rank = "K"
)

// MaxBet bounds a wager so doubled and blackjack payouts stay within int64.
const MaxBet int64 = 1_000_000_000

const (
	DeckSize = 52
	MinDecks = 1
	MaxDecks = 6
)

var (
	suits = []Suit{Spades, Hearts, Diamonds, Clubs}
	ranks = []Rank{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King}
)

var ErrShoeEmpty = errors.New("shoe is empty")

// Card is a value type; Hidden marks the dealer's hole card.
type Card struct {
	Rank   Rank `json:"rank"`
	Suit   Suit `json:"suit"`
	Hidden bool `json:"hidden,omitempty"`
}

func (c Card) String() string {
	if c.Hidden {
		return "??"
	}
	return string(c.Rank) + string(c.Suit)
}

// Shuffler permutes n elements through swap. rand.Shuffle is Fisher–Yates.
type Shuffler func(n int, swap func(i, j int))

func defaultShuffler(n int, swap func(i, j int)) {
	rand.Shuffle(n, swap)
}

func unshuffled() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, s := range suits {
		for _, r := range ranks {
			deck = append(deck, Card{Rank: r, Suit: s})
		}
	}
	return deck
}

// NewDeck returns a shuffled 52 card deck.
func NewDeck(shuffle Shuffler) []Card {
	if shuffle == nil {
		shuffle = defaultShuffler
	}
	deck := unshuffled()
	shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	return deck
}

// NewShoe concatenates deckCount decks (clamped to 1..6) and shuffles the
// combined sequence once.
func NewShoe(deckCount int, shuffle Shuffler) []Card {
	if shuffle == nil {
		shuffle = defaultShuffler
	}
	deckCount = ClampDecks(deckCount)
	shoe := make([]Card, 0, DeckSize*deckCount)
	for i := 0; i < deckCount; i++ {
		shoe = append(shoe, unshuffled()...)
	}
	shuffle(len(shoe), func(i, j int) { shoe[i], shoe[j] = shoe[j], shoe[i] })
	return shoe
}

func ClampDecks(n int) int {
	if n < MinDecks {
		return MinDecks
	}
	if n > MaxDecks {
		return MaxDecks
	}
	return n
}

// Draw pops the last card. The returned slice shares storage with shoe.
func Draw(shoe []Card) (Card, []Card, error) {
	if len(shoe) == 0 {
		return Card{}, shoe, ErrShoeEmpty
	}
	last := len(shoe) - 1
	return shoe[last], shoe[:last], nil
}

func pips(r Rank) int {
	switch r {
	case Ace:
		return 11
	case Ten, Jack, Queen, King:
		return 10
	default:
		v, _ := strconv.Atoi(string(r))
		return v
	}
}

// HandValue scores visible cards, counting aces as 11 and dropping them to 1
// one at a time while the total is over 21.
func HandValue(cards []Card) int {
	total := 0
	aces := 0
	for _, c := range cards {
		if c.Hidden {
			continue
		}
		if c.Rank == Ace {
			aces++
		}
		total += pips(c.Rank)
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

// fullValue scores cards with any hole card turned up. Redaction is left to
// the client view.
func fullValue(cards []Card) int {
	up := make([]Card, len(cards))
	for i, c := range cards {
		c.Hidden = false
		up[i] = c
	}
	return HandValue(up)
}

func visibleCount(cards []Card) int {
	n := 0
	for _, c := range cards {
		if !c.Hidden {
			n++
		}
	}
	return n
}

// isTwoCard21 reports a two card 21, the natural shape regardless of flags.
func isTwoCard21(cards []Card) bool {
	return len(cards) == 2 && HandValue(cards) == 21
}
