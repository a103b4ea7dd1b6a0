package game

import "strings"

const (
	ResultWin       = "win"
	ResultBlackjack = "blackjack"
	ResultLose      = "lose"
	ResultBust      = "bust"
	ResultPush      = "push"
)

// Outcome settles the main wager of one hand against the dealer. It returns
// the result label and the signed delta on that wager alone.
func Outcome(dealer Dealer, h Hand, dealerBlackjack bool) (string, int64) {
	base := h.Bet
	if base < 0 {
		base = 0
	}
	wager := base
	if h.Doubled {
		wager = base * 2
	}

	if dealerBlackjack {
		if isTwoCard21(h.Cards) {
			return ResultPush, 0
		}
		return ResultLose, -wager
	}
	switch {
	case h.Blackjack:
		return ResultBlackjack, base * 3 / 2
	case h.Busted:
		return ResultBust, -wager
	case dealer.Value > 21, h.Value > dealer.Value:
		return ResultWin, wager
	case h.Value < dealer.Value:
		return ResultLose, -wager
	default:
		return ResultPush, 0
	}
}

// ComputePayouts returns one entry per dealt hand. Insurance pays 2:1 on a
// dealer blackjack and is forfeited otherwise. Hands that were never dealt
// (seats that joined mid-round) are skipped.
func ComputePayouts(dealer Dealer, players []Hand, dealerBlackjack bool) []Payout {
	out := make([]Payout, 0, len(players))
	for _, h := range players {
		if len(h.Cards) == 0 {
			continue
		}
		result, delta := Outcome(dealer, h, dealerBlackjack)
		if h.Insurance > 0 {
			if dealerBlackjack {
				delta += h.Insurance * 2
			} else {
				delta -= h.Insurance
			}
		}
		out = append(out, Payout{
			HandID:    h.ID,
			SeatID:    h.SeatID,
			AccountID: h.AccountID,
			Name:      displayName(h),
			Result:    result,
			Delta:     delta,
		})
	}
	return out
}

// Summary renders "Alice: Win • Bob: Lose" for the dealt hands.
func Summary(dealer Dealer, players []Hand, dealerBlackjack bool) string {
	parts := make([]string, 0, len(players))
	for _, h := range players {
		if len(h.Cards) == 0 {
			continue
		}
		result, _ := Outcome(dealer, h, dealerBlackjack)
		parts = append(parts, displayName(h)+": "+summaryWord(result))
	}
	if dealerBlackjack {
		parts = append([]string{"Dealer blackjack"}, parts...)
	}
	return strings.Join(parts, " • ")
}

func summaryWord(result string) string {
	switch result {
	case ResultWin, ResultBlackjack:
		return "Win"
	case ResultBust:
		return "Bust"
	case ResultPush:
		return "Push"
	default:
		return "Lose"
	}
}
