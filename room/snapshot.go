package room

import (
	"time"

	"github.com/google/uuid"
)

// Timestamped wraps any wire payload with a monotonic wall-clock send
// time. Clients keep only the latest-timestamped payload per stream and
// drop older ones that arrive out of order.
type Timestamped[T any] struct {
	Timestamp time.Time `json:"timestamp"`
	Data      T         `json:"data"`
}

func NewTimestamped[T any](data T) Timestamped[T] {
	return Timestamped[T]{Timestamp: time.Now(), Data: data}
}

// IsNewer reports whether t is strictly more recent than other.
func (t Timestamped[T]) IsNewer(other Timestamped[T]) bool {
	return t.Timestamp.After(other.Timestamp)
}

// HandStateKind tags what, if anything, a client should render for a
// player's hole cards.
type HandStateKind byte

const (
	HandEmpty HandStateKind = iota
	HandHidden
	HandRevealed
)

type HandState struct {
	Kind  HandStateKind `json:"kind"`
	Cards []string      `json:"cards,omitempty"`
}

// PlayerState is the wire projection of a Player: no server-internal
// fields (socket id) ever leave the process.
type PlayerState struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Chips       int64     `json:"chips"`
	Bet         int64     `json:"bet"`
	HasFolded   bool      `json:"has_folded"`
	Position    string    `json:"position"`
	Hand        HandState `json:"hand"`
	Eval        *string   `json:"eval,omitempty"`
	IsConnected bool      `json:"is_connected"`
	LastAction  *string   `json:"last_action,omitempty"`
}

// PotState is the wire projection of a Pot: the amount only, no
// eligibility set (that's server-internal bookkeeping).
type PotState struct {
	Amount int64 `json:"amount"`
}

// SharedGameState is the full `room` event payload.
type SharedGameState struct {
	ID             uuid.UUID     `json:"id"`
	Players        []PlayerState `json:"players"`
	CommunityCards []string      `json:"community_cards"`
	Pots           []PotState    `json:"pots"`
	Stage          string        `json:"stage"`
	CurrentPlayer  *uuid.UUID    `json:"current_player,omitempty"`
}

// OutcomePayout is one entry of an `outcome` event.
type OutcomePayout struct {
	Player uuid.UUID `json:"player"`
	Amount int64     `json:"amount"`
}

// Snapshot projects the room into a SharedGameState. reveal controls
// whether hole cards and eval strings are shown; evals, when non-nil, maps
// player id to a human-readable hand description shown only when reveal is
// true.
func (r *Room) Snapshot(reveal bool, evals map[uuid.UUID]string) SharedGameState {
	players := make([]PlayerState, 0, len(r.Players))
	for _, p := range r.Players {
		ps := PlayerState{
			ID:          p.ID,
			Name:        p.Name,
			Chips:       p.Chips,
			Bet:         p.Bet,
			HasFolded:   p.Folded,
			Position:    p.Position.String(),
			IsConnected: p.Connected,
		}
		switch {
		case p.Hand == nil:
			ps.Hand = HandState{Kind: HandEmpty}
		case reveal:
			ps.Hand = HandState{Kind: HandRevealed, Cards: []string{p.Hand[0].String(), p.Hand[1].String()}}
		default:
			ps.Hand = HandState{Kind: HandHidden}
		}
		if reveal && evals != nil {
			if e, ok := evals[p.ID]; ok {
				ps.Eval = &e
			}
		}
		if p.LastAction != nil {
			s := p.LastAction.Kind.String()
			ps.LastAction = &s
		}
		players = append(players, ps)
	}

	community := make([]string, 0, len(r.CommunityCards))
	for _, c := range r.CommunityCards {
		community = append(community, c.String())
	}

	pots := make([]PotState, 0, len(r.Pots))
	for _, pot := range r.Pots {
		pots = append(pots, PotState{Amount: pot.Amount})
	}

	return SharedGameState{
		ID:             r.ID,
		Players:        players,
		CommunityCards: community,
		Pots:           pots,
		Stage:          r.Stage.String(),
		CurrentPlayer:  r.PlayerInTurn,
	}
}
