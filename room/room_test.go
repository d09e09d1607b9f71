package room

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
)

func newTestRoom(seed int64) *Room {
	return NewRoom(rand.New(rand.NewSource(seed)))
}

func TestJoinTwoPlayersDealsHoleCardsAndPostsBlinds(t *testing.T) {
	r := newTestRoom(1)
	p0 := NewPlayer(uuid.New(), "alice", 1000, "s0")
	p1 := NewPlayer(uuid.New(), "bob", 1000, "s1")

	if _, err := r.JoinPlayer(p0); err != nil {
		t.Fatalf("join p0: %v", err)
	}
	if r.Stage.Kind != StageNotEnoughPlayers {
		t.Fatalf("expected NotEnoughPlayers with one seat, got %v", r.Stage)
	}

	required, err := r.JoinPlayer(p1)
	if err != nil {
		t.Fatalf("join p1: %v", err)
	}
	if required != RequiredPlayerReceiveCards {
		t.Fatalf("expected RequiredPlayerReceiveCards, got %v", required)
	}
	if r.Stage.Kind != StagePreFlop {
		t.Fatalf("expected PreFlop, got %v", r.Stage)
	}
	for _, p := range r.Players {
		if p.Hand == nil {
			t.Fatalf("player %s has no hole cards", p.Name)
		}
	}
	// Heads-up: big blind posts 2, small blind (dealer) posts 1.
	var totalBet int64
	for _, p := range r.Players {
		totalBet += p.Bet
	}
	if totalBet != SmallBlindAmount+BigBlindAmount {
		t.Fatalf("expected blinds to total %d, got %d", SmallBlindAmount+BigBlindAmount, totalBet)
	}
	if r.PlayerInTurn == nil {
		t.Fatalf("expected a player in turn after dealing")
	}
}

func TestHeadsUpHandReachesFlopAfterPreflopCallAndCheck(t *testing.T) {
	r := newTestRoom(2)
	p0 := NewPlayer(uuid.New(), "alice", 1000, "s0")
	p1 := NewPlayer(uuid.New(), "bob", 1000, "s1")
	if _, err := r.JoinPlayer(p0); err != nil {
		t.Fatalf("join p0: %v", err)
	}
	if _, err := r.JoinPlayer(p1); err != nil {
		t.Fatalf("join p1: %v", err)
	}

	// Small blind (dealer, acts first heads-up preflop) calls.
	actor := *r.PlayerInTurn
	if _, err := r.TakeAction(actor, Action{Kind: ActionCall}); err != nil {
		t.Fatalf("sb call: %v", err)
	}
	// Big blind checks to close the street.
	actor = *r.PlayerInTurn
	required, err := r.TakeAction(actor, Action{Kind: ActionCheck})
	if err != nil {
		t.Fatalf("bb check: %v", err)
	}
	if required != RequiredNoAction {
		t.Fatalf("expected RequiredNoAction after flop deal, got %v", required)
	}
	if r.Stage.Kind != StageFlop {
		t.Fatalf("expected Flop, got %v", r.Stage)
	}
	if len(r.CommunityCards) != 3 {
		t.Fatalf("expected 3 community cards, got %d", len(r.CommunityCards))
	}
	if len(r.Pots) != 1 || r.Pots[0].Amount != 2*BigBlindAmount {
		t.Fatalf("expected one pot of %d, got %+v", 2*BigBlindAmount, r.Pots)
	}
}

func TestFoldingToOnePlayerTriggersShowdownWithoutDealing(t *testing.T) {
	r := newTestRoom(3)
	p0 := NewPlayer(uuid.New(), "alice", 1000, "s0")
	p1 := NewPlayer(uuid.New(), "bob", 1000, "s1")
	r.JoinPlayer(p0)
	r.JoinPlayer(p1)

	// Preflop: actor folds immediately.
	actor := *r.PlayerInTurn
	required, err := r.TakeAction(actor, Action{Kind: ActionFold})
	if err != nil {
		t.Fatalf("fold: %v", err)
	}
	if required != RequiredFindWinners {
		t.Fatalf("expected RequiredFindWinners, got %v", required)
	}
	if !r.Stage.IsShowdown() || r.Stage.DealRemaining {
		t.Fatalf("expected Showdown(false), got %v", r.Stage)
	}
	// The folding player only matched one of the two blinds, so the
	// uncalled second blind chip splits off into its own single-player
	// side pot rather than merging with the contested one.
	var total int64
	for _, p := range r.Pots {
		total += p.Amount
	}
	if total != SmallBlindAmount+BigBlindAmount {
		t.Fatalf("expected total pot of %d, got %d across %+v", SmallBlindAmount+BigBlindAmount, total, r.Pots)
	}
}

func TestSplitPotAwardsRemainderToClosestToDealer(t *testing.T) {
	r := newTestRoom(4)
	p0 := NewPlayer(uuid.New(), "alice", 1000, "s0")
	p1 := NewPlayer(uuid.New(), "bob", 1000, "s1")
	r.JoinPlayer(p0)
	r.JoinPlayer(p1)

	winners := map[uuid.UUID]struct{}{p0.ID: {}, p1.ID: {}}
	splits, err := r.SplitPot([]struct {
		Amount  int64
		Winners map[uuid.UUID]struct{}
	}{{Amount: 3, Winners: winners}})
	if err != nil {
		t.Fatalf("SplitPot: %v", err)
	}
	if len(splits) != 1 || len(splits[0]) != 2 {
		t.Fatalf("expected a single two-way split, got %+v", splits)
	}
	var total int64
	for _, w := range splits[0] {
		total += w.Amount
	}
	if total != 3 {
		t.Fatalf("expected all 3 chips distributed, got %d", total)
	}
	closest, err := r.ClosestToDealer(winners)
	if err != nil {
		t.Fatalf("ClosestToDealer: %v", err)
	}
	for _, w := range splits[0] {
		if w.Player == closest && w.Amount != 2 {
			t.Fatalf("expected remainder winner %s to receive 2, got %d", closest, w.Amount)
		}
	}
}

func TestLeavePlayerReimbursesChipsAndIsIdempotent(t *testing.T) {
	r := newTestRoom(5)
	p0 := NewPlayer(uuid.New(), "alice", 1000, "s0")
	r.JoinPlayer(p0)

	chips := r.LeavePlayer(p0.ID)
	if chips != p0.Chips {
		t.Fatalf("expected reimbursement of %d, got %d", p0.Chips, chips)
	}
	if chips := r.LeavePlayer(p0.ID); chips != 0 {
		t.Fatalf("expected idempotent second leave to return 0, got %d", chips)
	}
}

func TestRoomIsFullRejectsASixthPlayer(t *testing.T) {
	r := newTestRoom(6)
	for i := 0; i < MaxPlayers; i++ {
		p := NewPlayer(uuid.New(), "p", 1000, "s")
		if _, err := r.JoinPlayer(p); err != nil {
			t.Fatalf("join #%d: %v", i, err)
		}
	}
	extra := NewPlayer(uuid.New(), "extra", 1000, "s-extra")
	if _, err := r.JoinPlayer(extra); err != ErrRoomIsFull {
		t.Fatalf("expected ErrRoomIsFull, got %v", err)
	}
}
