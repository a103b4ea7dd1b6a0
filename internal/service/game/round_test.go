package game_test

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"blackjack-service/internal/service/game"
)

func TestRoundEndToEnd(t *testing.T) {
	e, _ := newEngine(t)
	g := table(t, e,
		stack(game.Ten, game.Nine, game.Ten, game.Seven, game.Nine, game.Six, game.Two),
		seat("alice", "Alice"), seat("bob", "Bob"),
	)
	g = e.SetBet(g, "bob", 10)

	g = e.StartRound(g)
	if g.Status != game.StatusInRound {
		t.Fatalf("expected in_round, got %s", g.Status)
	}
	for _, h := range g.Players {
		if len(h.Cards) != 2 {
			t.Fatalf("expected 2 cards for %s, got %d", h.Name, len(h.Cards))
		}
	}
	if len(g.Dealer.Cards) != 2 || g.Dealer.Cards[0].Hidden || !g.Dealer.Cards[1].Hidden {
		t.Fatalf("dealer should show one card and hide one: %+v", g.Dealer.Cards)
	}
	if g.TurnPlayerID != "alice" || g.TurnExpiresAt == nil {
		t.Fatalf("expected alice to act first, got %q", g.TurnPlayerID)
	}

	g = e.Stand(g, "alice")
	if g.TurnPlayerID != "bob" {
		t.Fatalf("expected turn to move to bob, got %q", g.TurnPlayerID)
	}

	g = e.Stand(g, "bob")
	if g.Status != game.StatusRoundOver {
		t.Fatalf("expected round_over, got %s", g.Status)
	}
	if g.Dealer.Value < 17 || len(g.Dealer.Cards) != 3 {
		t.Fatalf("dealer should draw to 17: %+v", g.Dealer)
	}
	for _, c := range g.Dealer.Cards {
		if c.Hidden {
			t.Fatalf("dealer cards should be revealed: %+v", g.Dealer.Cards)
		}
	}
	if !strings.Contains(g.Message, "Alice: Lose") || !strings.Contains(g.Message, "Bob: Push") {
		t.Fatalf("unexpected summary %q", g.Message)
	}
	if g.TurnPlayerID != "" || g.TurnExpiresAt != nil || g.IntermissionUntil == nil {
		t.Fatalf("turn should be cleared and intermission set: %+v", g)
	}
	if len(g.Payouts) != 2 || g.Payouts[1].Delta != 0 {
		t.Fatalf("unexpected payouts %+v", g.Payouts)
	}
	if !g.NeedsSettlement() {
		t.Fatalf("resolved round should need settlement")
	}
}

func TestActionsOutOfTurnAreNoOps(t *testing.T) {
	e, _ := newEngine(t)
	g := table(t, e,
		stack(game.Ten, game.Nine, game.Ten, game.Seven, game.Nine, game.Six),
		seat("alice", "Alice"), seat("bob", "Bob"),
	)
	g = e.StartRound(g)
	snapshot := g.Clone()

	for name, next := range map[string]*game.Game{
		"hit":    e.Hit(g, "bob"),
		"stand":  e.Stand(g, "bob"),
		"double": e.DoubleDown(g, "bob"),
		"split":  e.Split(g, "bob"),
		"nobody": e.Hit(g, "nobody"),
	} {
		if next != g {
			t.Fatalf("%s out of turn should return the input", name)
		}
	}
	if !reflect.DeepEqual(g, snapshot) {
		t.Fatalf("input game was mutated")
	}
}

func TestStartRoundReshufflesLowShoe(t *testing.T) {
	e, _ := newEngine(t)
	g := e.CreateGame("room", seat("alice", "Alice"))
	g.Settings.DeckCount = 2
	g.Shoe = stack(game.Two, game.Two, game.Two, game.Two, game.Two, game.Two, game.Two, game.Two, game.Two, game.Two)

	g = e.StartRound(g)
	if want := 2*game.DeckSize - 4; len(g.Shoe) != want {
		t.Fatalf("expected %d cards left, got %d", want, len(g.Shoe))
	}
	if g.Message == "" {
		t.Fatalf("expected a reshuffle message")
	}
}

func TestStartRoundIgnoredWithoutPlayersOrMidRound(t *testing.T) {
	e, _ := newEngine(t)
	g := e.CreateGame("room", seat("alice", "Alice"))
	empty := e.Leave(g, "alice")
	if len(empty.Players) != 0 || empty.Status != game.StatusWaiting {
		t.Fatalf("expected empty waiting room, got %+v", empty)
	}
	if e.StartRound(empty) != empty {
		t.Fatalf("start without players should be ignored")
	}

	g.Settings.ShuffleAt = 0
	g.Shoe = stack(game.Ten, game.Ten, game.Six, game.Seven)
	g = e.StartRound(g)
	if e.StartRound(g) != g {
		t.Fatalf("start during a round should be ignored")
	}
}

func TestNaturalResolvesImmediately(t *testing.T) {
	e, _ := newEngine(t)
	host := seat("alice", "Alice")
	host.Bet = 10
	g := table(t, e, stack(game.Ace, game.Nine, game.King, game.Eight), host)

	g = e.StartRound(g)
	h := g.HandByID("alice")
	if !h.Blackjack || !h.Stood {
		t.Fatalf("natural should be flagged and stood: %+v", h)
	}
	if g.Status != game.StatusRoundOver {
		t.Fatalf("all naturals should resolve the round, got %s", g.Status)
	}
	if len(g.Payouts) != 1 || g.Payouts[0].Delta != 15 || g.Payouts[0].Result != game.ResultBlackjack {
		t.Fatalf("unexpected payouts %+v", g.Payouts)
	}
}

func TestHitBustAdvancesTurn(t *testing.T) {
	e, _ := newEngine(t)
	alice, bob := seat("alice", "Alice"), seat("bob", "Bob")
	alice.Bet, bob.Bet = 10, 10
	g := table(t, e,
		stack(game.Ten, game.Ten, game.Ten, game.Six, game.Nine, game.Seven, game.King),
		alice, bob,
	)
	g = e.StartRound(g)

	g = e.Hit(g, "alice")
	if h := g.HandByID("alice"); !h.Busted || h.Value != 26 {
		t.Fatalf("expected alice bust on 26: %+v", h)
	}
	if g.TurnPlayerID != "bob" {
		t.Fatalf("expected turn to pass to bob, got %q", g.TurnPlayerID)
	}
	if e.Hit(g, "alice") != g {
		t.Fatalf("busted hand should not act")
	}

	g = e.Stand(g, "bob")
	if g.Message != "Alice: Bust • Bob: Win" {
		t.Fatalf("unexpected summary %q", g.Message)
	}
	if g.Payouts[0].Delta != -10 || g.Payouts[1].Delta != 10 {
		t.Fatalf("unexpected payouts %+v", g.Payouts)
	}
}

func TestHitRefreshesDeadline(t *testing.T) {
	e, clk := newEngine(t)
	g := table(t, e, stack(game.Ten, game.Ten, game.Four, game.Seven, game.Two), seat("alice", "Alice"))
	g = e.StartRound(g)
	first := *g.TurnExpiresAt

	clk.Advance(5 * time.Second)
	g = e.Hit(g, "alice")
	if g.TurnPlayerID != "alice" {
		t.Fatalf("turn should stay after a safe hit, got %q", g.TurnPlayerID)
	}
	if !g.TurnExpiresAt.Equal(first.Add(5 * time.Second)) {
		t.Fatalf("deadline not refreshed: %v", g.TurnExpiresAt)
	}
}

func TestShoeRefillsWhenExhausted(t *testing.T) {
	e, _ := newEngine(t)
	g := table(t, e, stack(game.Two, game.Ten, game.Two, game.Seven), seat("alice", "Alice"))
	g = e.StartRound(g)
	if len(g.Shoe) != 0 {
		t.Fatalf("expected shoe to be exhausted, got %d", len(g.Shoe))
	}

	g = e.Hit(g, "alice")
	if h := g.HandByID("alice"); len(h.Cards) != 3 {
		t.Fatalf("hit should draw from a fresh shoe: %+v", h)
	}
	if len(g.Shoe) != 4*game.DeckSize-1 || !strings.Contains(g.Message, "Shoe ran out") {
		t.Fatalf("unexpected shoe %d / message %q", len(g.Shoe), g.Message)
	}
}

func TestDoubleDown(t *testing.T) {
	e, _ := newEngine(t)
	host := seat("alice", "Alice")
	host.Bet = 10
	g := table(t, e, stack(game.Five, game.Ten, game.Six, game.Eight, game.Ten), host)
	g = e.StartRound(g)

	g = e.DoubleDown(g, "alice")
	h := g.HandByID("alice")
	if !h.Doubled || !h.Stood || len(h.Cards) != 3 || h.Value != 21 {
		t.Fatalf("unexpected doubled hand %+v", h)
	}
	if g.Status != game.StatusRoundOver || g.Payouts[0].Delta != 20 {
		t.Fatalf("expected doubled win of 20, got %+v", g.Payouts)
	}
}

func TestDoubleDownNeedsTwoCards(t *testing.T) {
	e, _ := newEngine(t)
	g := table(t, e, stack(game.Two, game.Ten, game.Three, game.Eight, game.Two), seat("alice", "Alice"))
	g = e.StartRound(g)
	g = e.Hit(g, "alice")
	if e.DoubleDown(g, "alice") != g {
		t.Fatalf("double on three cards should be ignored")
	}
}

func TestSplitPlaysBothHands(t *testing.T) {
	e, clk := newEngine(t)
	host := seat("alice", "Alice")
	host.Bet = 10
	g := table(t, e,
		stack(game.Eight, game.Ten, game.Eight, game.Seven, game.Three, game.Ten, game.King),
		host,
	)
	g = e.StartRound(g)

	g = e.Split(g, "alice")
	if len(g.Players) != 2 {
		t.Fatalf("expected two hands after split, got %d", len(g.Players))
	}
	first, second := g.Players[0], g.Players[1]
	if first.ID != "alice" || second.ID != "gen-1" || second.SeatID != "alice" {
		t.Fatalf("unexpected split hands %+v / %+v", first, second)
	}
	if first.Value != 11 || second.Value != 18 || second.Bet != 10 || second.IsHost {
		t.Fatalf("unexpected split values %+v / %+v", first, second)
	}
	if g.TurnPlayerID != "alice" {
		t.Fatalf("turn should stay on the first hand, got %q", g.TurnPlayerID)
	}
	if e.Split(g, "alice") != g || e.DoubleDown(g, "alice") != g {
		t.Fatalf("split hands cannot split again or double")
	}

	g = e.Hit(g, "alice")
	g = e.Stand(g, "alice")
	if g.TurnPlayerID != "gen-1" {
		t.Fatalf("expected turn on the second hand, got %q", g.TurnPlayerID)
	}
	g = e.Stand(g, "gen-1")
	if g.Status != game.StatusRoundOver || len(g.Payouts) != 2 {
		t.Fatalf("expected two payouts, got %+v", g.Payouts)
	}
	for _, p := range g.Payouts {
		if p.Delta != 10 {
			t.Fatalf("expected both split hands to win 10: %+v", g.Payouts)
		}
	}

	clk.Advance(3 * time.Second)
	g = e.StartRound(g)
	if len(g.Players) != 1 || g.Players[0].ID != "alice" || g.Players[0].Split {
		t.Fatalf("split hands should collapse on the next deal: %+v", g.Players)
	}
	if g.Round != 2 {
		t.Fatalf("expected round 2, got %d", g.Round)
	}
}

func TestLeavePassesTurnAndHost(t *testing.T) {
	e, _ := newEngine(t)
	g := table(t, e,
		stack(game.Ten, game.Ten, game.Ten, game.Ten, game.Seven, game.Seven, game.Seven, game.Seven),
		seat("alice", "Alice"), seat("bob", "Bob"), seat("carol", "Carol"),
	)
	g = e.StartRound(g)

	g = e.Leave(g, "alice")
	if g.TurnPlayerID != "bob" {
		t.Fatalf("expected turn to pass to bob, got %q", g.TurnPlayerID)
	}
	if host := g.Host(); host == nil || host.ID != "bob" {
		t.Fatalf("expected host to pass to bob, got %+v", host)
	}
	if _, ok := g.LastSeen["t-alice"]; ok {
		t.Fatalf("leaving seat should drop its heartbeat")
	}

	g = e.Leave(g, "carol")
	if g.TurnPlayerID != "bob" || g.Status != game.StatusInRound {
		t.Fatalf("leaving off turn should not move the turn: %+v", g)
	}

	g = e.Leave(g, "bob")
	if len(g.Players) != 0 || g.Status != game.StatusWaiting {
		t.Fatalf("expected empty waiting room, got %+v", g)
	}
	if e.Leave(g, "bob") != g {
		t.Fatalf("leaving twice should be a no-op")
	}
}

func TestLeaveByLastActorResolvesRound(t *testing.T) {
	e, _ := newEngine(t)
	g := table(t, e,
		stack(game.Ten, game.Ten, game.Ten, game.Nine, game.Seven, game.Seven),
		seat("alice", "Alice"), seat("bob", "Bob"),
	)
	g = e.StartRound(g)
	g = e.Stand(g, "alice")
	g = e.Leave(g, "bob")

	if g.Status != game.StatusRoundOver {
		t.Fatalf("expected round_over, got %s", g.Status)
	}
	if len(g.Payouts) != 1 || g.Payouts[0].HandID != "alice" {
		t.Fatalf("unexpected payouts %+v", g.Payouts)
	}
}

func TestLeaveRemovesBothSplitHands(t *testing.T) {
	e, _ := newEngine(t)
	g := table(t, e,
		stack(game.Ten, game.Eight, game.Ten, game.Nine, game.Eight, game.Seven, game.Two, game.Three),
		seat("alice", "Alice"), seat("bob", "Bob"),
	)
	g = e.StartRound(g)
	g = e.Stand(g, "alice")
	g = e.Split(g, "bob")
	if len(g.Players) != 3 {
		t.Fatalf("expected bob to split, got %+v", g.Players)
	}

	g = e.Leave(g, "bob")
	if len(g.Players) != 1 || g.Status != game.StatusRoundOver {
		t.Fatalf("expected both bob hands gone and the round resolved: %+v", g)
	}
}

func TestJoinMidRoundSitsOut(t *testing.T) {
	e, _ := newEngine(t)
	g := table(t, e, stack(game.Ten, game.Ten, game.Nine, game.Eight), seat("alice", "Alice"))
	g = e.StartRound(g)

	g = e.Join(g, seat("bob", "Bob"))
	bob := g.HandByID("bob")
	if bob == nil || !bob.Stood || len(bob.Cards) != 0 || bob.IsHost {
		t.Fatalf("mid-round joiner should sit out: %+v", bob)
	}
	if e.Join(g, seat("bob", "Bob")) != g {
		t.Fatalf("joining twice should be a no-op")
	}

	g = e.Stand(g, "alice")
	if len(g.Payouts) != 1 || strings.Contains(g.Message, "Bob") {
		t.Fatalf("undealt seat should not settle: %+v %q", g.Payouts, g.Message)
	}
}

func TestInsuranceAgainstDealerBlackjack(t *testing.T) {
	e, _ := newEngine(t)
	host := seat("alice", "Alice")
	host.Bet = 10
	g := table(t, e, stack(game.Ten, game.Ace, game.Nine, game.King), host)
	g = e.StartRound(g)

	g = e.Insurance(g, "alice", 20)
	if h := g.HandByID("alice"); h.Insurance != 5 {
		t.Fatalf("insurance should be capped at half the bet, got %d", h.Insurance)
	}

	g = e.Stand(g, "alice")
	if !g.DealerBlackjack || len(g.Dealer.Cards) != 2 {
		t.Fatalf("expected dealer blackjack without draws: %+v", g.Dealer)
	}
	if g.Payouts[0].Delta != 0 {
		t.Fatalf("insurance should offset the lost bet, got %d", g.Payouts[0].Delta)
	}
	if !strings.Contains(g.Message, "Dealer blackjack") {
		t.Fatalf("unexpected summary %q", g.Message)
	}
}

func TestInsuranceNeedsDealerAce(t *testing.T) {
	e, _ := newEngine(t)
	host := seat("alice", "Alice")
	host.Bet = 10
	g := table(t, e, stack(game.Ten, game.King, game.Nine, game.Seven), host)
	g = e.StartRound(g)
	if e.Insurance(g, "alice", 5) != g {
		t.Fatalf("insurance without a dealer ace should be ignored")
	}
}

func TestBetsOnlyBetweenRounds(t *testing.T) {
	e, _ := newEngine(t)
	g := table(t, e, stack(game.Ten, game.Ten, game.Nine, game.Eight), seat("alice", "Alice"))
	if e.SetBet(g, "alice", -5) != g {
		t.Fatalf("negative bet should be ignored")
	}
	g = e.SetBet(g, "alice", 25)
	if g.HandByID("alice").Bet != 25 {
		t.Fatalf("bet not applied")
	}
	g = e.StartRound(g)
	if e.SetBet(g, "alice", 50) != g {
		t.Fatalf("bet during a round should be ignored")
	}
}

func TestSetBetRejectsOversizedWager(t *testing.T) {
	e, _ := newEngine(t)
	g := table(t, e, nil, seat("alice", "Alice"))

	if e.SetBet(g, "alice", game.MaxBet+1) != g {
		t.Fatalf("bet above the limit should be ignored")
	}
	g = e.SetBet(g, "alice", game.MaxBet)
	if g.Players[0].Bet != game.MaxBet {
		t.Fatalf("bet at the limit should stick, got %d", g.Players[0].Bet)
	}
}

func TestStartRoundScoresDealerHoleCard(t *testing.T) {
	e, _ := newEngine(t)
	g := table(t, e,
		stack(game.Ten, game.Nine, game.Ten, game.Seven, game.Nine, game.Six),
		seat("alice", "Alice"), seat("bob", "Bob"),
	)
	g = e.StartRound(g)

	if !g.Dealer.Cards[1].Hidden || g.Dealer.Value != 16 {
		t.Fatalf("stored dealer value should include the hole card: %+v", g.Dealer)
	}
	if view := game.ToClient(g, "t-alice"); view.Dealer.Value != 10 {
		t.Fatalf("client dealer value should count the up card only, got %d", view.Dealer.Value)
	}
}

func TestUpdateSettings(t *testing.T) {
	e, _ := newEngine(t)
	g := e.CreateGame("room", seat("alice", "Alice"))
	g.Shoe = stack(game.Two)

	g = e.UpdateSettings(g, game.Settings{DeckCount: 9, ShuffleAt: 80, AutoContinue: true})
	want := game.Settings{DeckCount: game.MaxDecks, ShuffleAt: game.DeckSize - 1, AutoContinue: true}
	if g.Settings != want {
		t.Fatalf("expected %+v, got %+v", want, g.Settings)
	}
	if len(g.Shoe) != 0 {
		t.Fatalf("deck count change should discard the shoe")
	}
	if e.UpdateSettings(g, want) != g {
		t.Fatalf("unchanged settings should be a no-op")
	}

	g.Settings.ShuffleAt = 0
	g.Shoe = stack(game.Ten, game.Ten, game.Nine, game.Eight)
	g = e.StartRound(g)
	if e.UpdateSettings(g, game.Settings{DeckCount: 1}) != g {
		t.Fatalf("settings during a round should be ignored")
	}
}

func TestStartRoundWaitsForIntermission(t *testing.T) {
	e, clk := newEngine(t)
	g := table(t, e, stack(game.Ten, game.Ten, game.Nine, game.Eight), seat("alice", "Alice"))
	g = e.StartRound(g)
	g = e.Stand(g, "alice")

	if e.StartRound(g) != g {
		t.Fatalf("start during intermission should be ignored")
	}
	clk.Advance(3 * time.Second)
	g = e.StartRound(g)
	if g.Status != game.StatusInRound || g.Round != 2 || g.Payouts != nil {
		t.Fatalf("expected a fresh round, got %+v", g)
	}
}

func TestTimeoutStandsExpiredTurn(t *testing.T) {
	e, clk := newEngine(t)
	g := table(t, e,
		stack(game.Ten, game.Ten, game.Ten, game.Nine, game.Seven, game.Seven),
		seat("alice", "Alice"), seat("bob", "Bob"),
	)
	g = e.StartRound(g)

	clk.Advance(5 * time.Second)
	if e.Timeout(g) != g {
		t.Fatalf("timeout before the deadline should be a no-op")
	}

	clk.Advance(11 * time.Second)
	g = e.Timeout(g)
	if !g.HandByID("alice").Stood || g.TurnPlayerID != "bob" {
		t.Fatalf("expired turn should auto-stand: %+v", g)
	}
}

func TestTimeoutPurgesStaleSeats(t *testing.T) {
	e, clk := newEngine(t)
	g := table(t, e, nil, seat("alice", "Alice"), seat("bob", "Bob"))

	clk.Advance(20 * time.Second)
	g = e.Heartbeat(g, "t-alice")
	if e.Heartbeat(g, "t-nobody") != g {
		t.Fatalf("heartbeat from an unseated token should be ignored")
	}

	clk.Advance(6 * time.Second)
	g = e.Timeout(g)
	if len(g.Players) != 1 || g.Players[0].ID != "alice" {
		t.Fatalf("expected bob purged, got %+v", g.Players)
	}
}

func TestTimeoutPurgesStaleTurnHolder(t *testing.T) {
	e, clk := newEngine(t)
	g := table(t, e,
		stack(game.Ten, game.Ten, game.Ten, game.Ten, game.Seven, game.Seven),
		seat("alice", "Alice"), seat("bob", "Bob"),
	)
	g = e.StartRound(g)
	if g.TurnPlayerID != "alice" {
		t.Fatalf("expected alice to act first, got %q", g.TurnPlayerID)
	}

	clk.Advance(20 * time.Second)
	g = e.Heartbeat(g, "t-bob")
	clk.Advance(6 * time.Second)
	g = e.Timeout(g)

	if len(g.Players) != 1 || g.Players[0].ID != "bob" {
		t.Fatalf("expected alice purged, got %+v", g.Players)
	}
	if g.Status != game.StatusInRound || g.TurnPlayerID != "bob" {
		t.Fatalf("turn should pass to bob: status %s turn %q", g.Status, g.TurnPlayerID)
	}
	if g.TurnExpiresAt == nil || !g.TurnExpiresAt.After(clk.Now()) {
		t.Fatalf("bob should get a fresh deadline, got %v", g.TurnExpiresAt)
	}
	if host := g.Host(); host == nil || host.ID != "bob" {
		t.Fatalf("expected host to pass to bob, got %+v", host)
	}
}

func TestTimeoutAutoContinues(t *testing.T) {
	e, clk := newEngine(t)
	g := table(t, e, stack(game.Ten, game.Ten, game.Nine, game.Eight), seat("alice", "Alice"))
	g.Settings.AutoContinue = true
	g = e.StartRound(g)
	g = e.Stand(g, "alice")

	if next := e.Timeout(g); next.Status != game.StatusRoundOver {
		t.Fatalf("should wait for the intermission, got %s", next.Status)
	}
	clk.Advance(3 * time.Second)
	g = e.Timeout(g)
	if g.Status != game.StatusInRound || g.Round != 2 {
		t.Fatalf("expected the next round to start, got %+v", g)
	}
}

func TestNextTurn(t *testing.T) {
	players := []game.Hand{
		{ID: "a", Stood: true},
		{ID: "b"},
		{ID: "c", Busted: true},
		{ID: "d"},
	}
	cases := map[string]string{"": "b", "a": "b", "b": "d", "d": "", "missing": "b"}
	for current, want := range cases {
		if got := game.NextTurn(players, current); got != want {
			t.Fatalf("NextTurn(%q): expected %q, got %q", current, want, got)
		}
	}
}
