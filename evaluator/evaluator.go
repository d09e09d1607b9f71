// Package evaluator wraps a 7-card poker hand evaluator behind the two
// operations the room state machine actually needs: is-better-than and
// is-equal-to. It is pure and stateless, so a single Evaluator is shared
// across every room.
package evaluator

import (
	"sort"

	chehsunliu "github.com/chehsunliu/poker"
	"github.com/google/uuid"

	"pokerhall/card"
)

// Rank is an opaque, totally ordered hand strength: lower is better,
// matching github.com/chehsunliu/poker's convention (1 = royal flush).
type Rank struct {
	value       int32
	description string
}

func (r Rank) String() string { return r.description }

// IsBetterThan reports whether r beats other.
func (r Rank) IsBetterThan(other Rank) bool { return r.value < other.value }

// IsEqualTo reports whether r ties other.
func (r Rank) IsEqualTo(other Rank) bool { return r.value == other.value }

// Evaluator evaluates 7-card (2 hole + up to 5 community) bags.
type Evaluator struct{}

func New() *Evaluator { return &Evaluator{} }

// Evaluate scores a bag of 5, 6, or 7 cards, returning the best 5-card
// rank contained within it.
func (e *Evaluator) Evaluate(cards []card.Card) (Rank, error) {
	hand := make([]chehsunliu.Card, 0, len(cards))
	for _, c := range cards {
		hand = append(hand, chehsunliu.NewCard(c.String()))
	}
	value := chehsunliu.Evaluate(hand)
	return Rank{value: value, description: chehsunliu.RankString(value)}, nil
}

// EvaluateAll evaluates every entry in playersCards (player id -> 7-card
// bag), skipping anyone with fewer than 5 cards (e.g. a showdown reached
// via ShowdownWithoutDealing, which never calls this).
func (e *Evaluator) EvaluateAll(playersCards map[uuid.UUID][]card.Card) (map[uuid.UUID]Rank, error) {
	out := make(map[uuid.UUID]Rank, len(playersCards))
	for id, cards := range playersCards {
		if len(cards) < 5 {
			continue
		}
		rank, err := e.Evaluate(cards)
		if err != nil {
			return nil, err
		}
		out[id] = rank
	}
	return out, nil
}

// AllBestHands does a single linear scan to find every player tied for
// the best rank among ids, starting from the worst-possible rank.
func AllBestHands(ids []uuid.UUID, ranks map[uuid.UUID]Rank) map[uuid.UUID]struct{} {
	best := map[uuid.UUID]struct{}{}
	var bestRank *Rank
	for _, id := range ids {
		r, ok := ranks[id]
		if !ok {
			continue
		}
		switch {
		case bestRank == nil || r.IsBetterThan(*bestRank):
			rCopy := r
			bestRank = &rCopy
			best = map[uuid.UUID]struct{}{id: {}}
		case r.IsEqualTo(*bestRank):
			best[id] = struct{}{}
		}
	}
	return best
}

// SortedIDs is a small helper for callers that need deterministic
// iteration over a player-id set; nothing in this module calls it.
func SortedIDs(ids map[uuid.UUID]struct{}) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
