package evaluator

import (
	"testing"

	"github.com/google/uuid"

	"pokerhall/card"
)

func mustCards(t *testing.T, strs ...string) []card.Card {
	t.Helper()
	out := make([]card.Card, 0, len(strs))
	for _, s := range strs {
		c, err := card.ThdmStrToCard(s)
		if err != nil {
			t.Fatalf("ThdmStrToCard(%q): %v", s, err)
		}
		out = append(out, c)
	}
	return out
}

func TestEvaluateRanksFlushAboveStraight(t *testing.T) {
	e := New()
	flush, err := e.Evaluate(mustCards(t, "As", "Ks", "Qs", "Js", "9s", "2h", "3d"))
	if err != nil {
		t.Fatalf("Evaluate flush: %v", err)
	}
	straight, err := e.Evaluate(mustCards(t, "9h", "8c", "7d", "6s", "5h", "2c", "3d"))
	if err != nil {
		t.Fatalf("Evaluate straight: %v", err)
	}
	if !flush.IsBetterThan(straight) {
		t.Fatalf("expected flush to beat straight")
	}
}

func TestEvaluateAllSkipsPlayersWithFewerThanFiveCards(t *testing.T) {
	e := New()
	complete := uuid.New()
	incomplete := uuid.New()
	playersCards := map[uuid.UUID][]card.Card{
		complete:   mustCards(t, "As", "Ks", "Qs", "Js", "9s"),
		incomplete: mustCards(t, "As", "Kd"),
	}
	ranks, err := e.EvaluateAll(playersCards)
	if err != nil {
		t.Fatalf("EvaluateAll: %v", err)
	}
	if _, ok := ranks[incomplete]; ok {
		t.Fatalf("expected incomplete hand to be skipped")
	}
	if _, ok := ranks[complete]; !ok {
		t.Fatalf("expected complete hand to be ranked")
	}
}

func TestAllBestHandsFindsTies(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	better := Rank{value: 10, description: "better"}
	worse := Rank{value: 20, description: "worse"}
	ranks := map[uuid.UUID]Rank{a: better, b: better, c: worse}

	best := AllBestHands([]uuid.UUID{a, b, c}, ranks)
	if len(best) != 2 {
		t.Fatalf("expected 2 tied winners, got %d: %+v", len(best), best)
	}
	if _, ok := best[a]; !ok {
		t.Fatalf("expected a among winners")
	}
	if _, ok := best[b]; !ok {
		t.Fatalf("expected b among winners")
	}
	if _, ok := best[c]; ok {
		t.Fatalf("did not expect c among winners")
	}
}
