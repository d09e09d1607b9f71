package room

import (
	"github.com/google/uuid"

	"pokerhall/card"
)

// Player is one seat at the table. Chips and Bet are both non-negative;
// Chips+Bet is conserved across a hand except for payouts at showdown.
type Player struct {
	ID           uuid.UUID
	Name         string
	Hand         *Hand
	Chips        int64
	Bet          int64
	Folded       bool
	Position     Position
	HasTakenTurn bool
	SocketID     string
	Connected    bool
	LastAction   *Action
}

// NewPlayer seats a fresh player with the given starting stack.
func NewPlayer(id uuid.UUID, name string, buyIn int64, socketID string) *Player {
	return &Player{
		ID:        id,
		Name:      name,
		Chips:     buyIn,
		Position:  PositionNormal,
		Connected: true,
		SocketID:  socketID,
	}
}

// betAmount moves amount chips from the stack into the current bet. It
// fails if the player does not have enough chips.
func (p *Player) betAmount(amount int64) error {
	if amount > p.Chips {
		return ErrInsufficientChips
	}
	p.Bet += amount
	p.Chips -= amount
	return nil
}
